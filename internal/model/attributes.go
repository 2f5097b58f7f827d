package model

import "regexp"

// Well-known line item attribute keys. Other keys are accepted as long as they
// match attributeKeyPattern.
const (
	AttrSize      = "size"
	AttrColor     = "color"
	AttrVariant   = "variant"
	AttrEngraving = "engraving"
	AttrGiftWrap  = "gift_wrap"
)

const (
	maxAttributes         = 16
	maxAttributeValueSize = 128
)

var attributeKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)

// Attributes is the key/value bag attached to cart and order lines.
type Attributes map[string]string

// Validate checks the key space and value sizes.
func (a Attributes) Validate() error {
	if len(a) > maxAttributes {
		return NewInvalidRequestError("at most %d attributes are allowed", maxAttributes)
	}
	for k, v := range a {
		if !attributeKeyPattern.MatchString(k) {
			return NewInvalidRequestError("invalid attribute key %q", k)
		}
		if len(v) > maxAttributeValueSize {
			return NewInvalidRequestError("attribute %s exceeds %d bytes", k, maxAttributeValueSize)
		}
	}
	return nil
}
