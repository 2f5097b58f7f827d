package coupon

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"kartcore/internal/model"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for reading gzipped coupon files.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based coupon loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "coupon-loader").Logger(),
	}
}

// Load reads a gzipped coupon file and returns a Catalog.
// The file is expected to contain one JSON coupon definition per line.
func (l *fileLoader) Load(ctx context.Context, filePath string) (Catalog, error) {
	l.logger.Info().Str("file", filePath).Msg("loading coupon file")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open coupon file")
		return nil, fmt.Errorf("failed to open coupon file %s: %w", filePath, err)
	}
	defer file.Close()

	catalog, err := decodeCatalog(ctx, file, filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to read coupon file")
		return nil, err
	}

	l.logger.Info().
		Str("file", filePath).
		Int("coupons_loaded", catalog.Size()).
		Msg("coupon file loaded successfully")

	return catalog, nil
}

// decodeCatalog reads gzipped JSON lines from r. Blank lines are skipped; a
// malformed or invalid line fails the whole file.
func decodeCatalog(ctx context.Context, r io.Reader, source string) (Catalog, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", source, err)
	}
	defer gzipReader.Close()

	catalog := NewMapCatalog(1024).(*mapCatalog)

	scanner := bufio.NewScanner(gzipReader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%10_000 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var c model.Coupon
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			return nil, fmt.Errorf("invalid coupon at %s:%d: %w", source, lineNo, err)
		}
		if err := validateDefinition(&c); err != nil {
			return nil, fmt.Errorf("invalid coupon at %s:%d: %w", source, lineNo, err)
		}
		c.UsedBy = nil
		catalog.Add(c)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading coupon file %s: %w", source, err)
	}

	return catalog, nil
}

func validateDefinition(c *model.Coupon) error {
	if NormaliseCode(c.Code) == "" {
		return fmt.Errorf("code is required")
	}
	switch c.DiscountType {
	case model.DiscountPercentage:
		if c.DiscountValue <= 0 || c.DiscountValue > 100 {
			return fmt.Errorf("percentage discount must be in (0, 100], got %v", c.DiscountValue)
		}
	case model.DiscountFlat:
		if c.DiscountValue <= 0 {
			return fmt.Errorf("flat discount must be positive, got %v", c.DiscountValue)
		}
	default:
		return fmt.Errorf("unknown discount type %q", c.DiscountType)
	}
	if c.UsageLimit != nil && *c.UsageLimit < 0 {
		return fmt.Errorf("usage limit must not be negative")
	}
	if c.ValidFrom != nil && c.ValidTo != nil && c.ValidTo.Before(*c.ValidFrom) {
		return fmt.Errorf("validTo is before validFrom")
	}
	return nil
}
