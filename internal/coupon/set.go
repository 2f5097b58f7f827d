package coupon

import (
	"sort"
	"strings"

	"kartcore/internal/model"
)

// mapCatalog implements Catalog using a map for O(1) lookups.
type mapCatalog struct {
	coupons map[string]model.Coupon
}

// NewMapCatalog creates a new map-based catalog.
func NewMapCatalog(capacity int) Catalog {
	return &mapCatalog{
		coupons: make(map[string]model.Coupon, capacity),
	}
}

// Get returns the definition for code. Codes are case-insensitive.
func (s *mapCatalog) Get(code string) (model.Coupon, bool) {
	c, ok := s.coupons[NormaliseCode(code)]
	return c, ok
}

// Coupons returns all definitions ordered by code.
func (s *mapCatalog) Coupons() []model.Coupon {
	out := make([]model.Coupon, 0, len(s.coupons))
	for _, c := range s.coupons {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Size returns the number of coupons in the catalog.
func (s *mapCatalog) Size() int {
	return len(s.coupons)
}

// Add stores c, replacing any earlier definition with the same code.
func (s *mapCatalog) Add(c model.Coupon) {
	c.Code = NormaliseCode(c.Code)
	s.coupons[c.Code] = c
}

// Merge copies every definition from other into s. Later definitions win.
func (s *mapCatalog) Merge(other Catalog) {
	for _, c := range other.Coupons() {
		s.Add(c)
	}
}

// NormaliseCode trims and upper-cases a coupon code.
func NormaliseCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
