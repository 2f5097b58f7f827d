package coupon

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Seeder loads coupon seed files and writes their definitions to a Store.
type Seeder struct {
	loader Loader
	store  Store
	logger zerolog.Logger
}

// NewSeeder creates a seeder.
func NewSeeder(loader Loader, store Store, logger zerolog.Logger) *Seeder {
	return &Seeder{
		loader: loader,
		store:  store,
		logger: logger.With().Str("component", "coupon-seeder").Logger(),
	}
}

// LoadAll loads every path concurrently and merges the results in path order,
// so a code defined in several files takes its last definition.
func (s *Seeder) LoadAll(ctx context.Context, paths []string) (Catalog, error) {
	type loadResult struct {
		index   int
		catalog Catalog
		err     error
	}

	resultChan := make(chan loadResult, len(paths))
	var wg sync.WaitGroup

	for i, path := range paths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()

			catalog, err := s.loader.Load(ctx, path)
			resultChan <- loadResult{index: index, catalog: catalog, err: err}
		}(i, path)
	}

	wg.Wait()
	close(resultChan)

	results := make([]loadResult, len(paths))
	for result := range resultChan {
		results[result.index] = result
	}

	merged := NewMapCatalog(0).(*mapCatalog)
	for i, result := range results {
		if result.err != nil {
			return nil, fmt.Errorf("failed to load coupon file %s: %w", paths[i], result.err)
		}
		merged.Merge(result.catalog)
	}

	return merged, nil
}

// Seed loads paths and upserts the merged definitions. It returns the number
// of coupons written.
func (s *Seeder) Seed(ctx context.Context, paths []string) (int, error) {
	if len(paths) == 0 {
		s.logger.Debug().Msg("no coupon seed files configured")
		return 0, nil
	}

	catalog, err := s.LoadAll(ctx, paths)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load coupon seed files")
		return 0, err
	}

	n, err := s.store.Upsert(ctx, catalog.Coupons())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to upsert coupons")
		return 0, fmt.Errorf("failed to seed coupons: %w", err)
	}

	s.logger.Info().
		Int("file_count", len(paths)).
		Int("coupons", n).
		Msg("coupons seeded")

	return n, nil
}
