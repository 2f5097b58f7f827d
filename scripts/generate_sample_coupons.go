package main

import (
	"compress/gzip"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"kartcore/internal/model"

	"github.com/rs/zerolog"
)

// Writes sample coupon seed files for local runs. Later files override
// earlier ones when they define the same code, so couponbase2 deactivates
// SUMMER2024 from couponbase1.
//
//	go run ./scripts -dir data/coupons
//	COUPON_SEED_PATHS=data/coupons/couponbase1.gz,data/coupons/couponbase2.gz
func main() {
	dataDir := flag.String("dir", "data/coupons", "output directory")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		logger.Fatal().Err(err).Msg("failed to create directory")
	}

	now := time.Now().UTC().Truncate(24 * time.Hour)
	nextMonth := now.AddDate(0, 1, 0)
	lastMonth := now.AddDate(0, -1, 0)

	files := map[string][]model.Coupon{
		"couponbase1.gz": {
			{Code: "FLAT50", DiscountType: model.DiscountFlat, DiscountValue: 5000, Active: true},
			{Code: "SAVE10", DiscountType: model.DiscountPercentage, DiscountValue: 10, MaxDiscount: ptr[int64](20000), Active: true},
			{Code: "SUMMER2024", DiscountType: model.DiscountPercentage, DiscountValue: 15, Active: true},
			{Code: "BIGCART", DiscountType: model.DiscountFlat, DiscountValue: 25000, MinCartValue: ptr[int64](200000), Active: true},
		},
		"couponbase2.gz": {
			{Code: "SUMMER2024", DiscountType: model.DiscountPercentage, DiscountValue: 15, Active: false},
			{Code: "FIRST100", DiscountType: model.DiscountFlat, DiscountValue: 10000, UsageLimit: ptr(100), Active: true},
			{Code: "WEEKEND", DiscountType: model.DiscountPercentage, DiscountValue: 5, ValidFrom: &now, ValidTo: &nextMonth, Active: true},
			{Code: "EXPIRED", DiscountType: model.DiscountFlat, DiscountValue: 1000, ValidTo: &lastMonth, Active: true},
		},
	}

	for filename, coupons := range files {
		filePath := filepath.Join(*dataDir, filename)

		if err := writeCouponFile(filePath, coupons); err != nil {
			logger.Fatal().Err(err).Str("file", filePath).Msg("failed to write coupon file")
		}

		logger.Info().Str("file", filePath).Int("coupons", len(coupons)).Msg("coupon file written")
	}
}

// writeCouponFile writes one JSON definition per line, gzipped.
func writeCouponFile(filePath string, coupons []model.Coupon) (err error) {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	gzipWriter := gzip.NewWriter(file)
	enc := json.NewEncoder(gzipWriter)
	for _, c := range coupons {
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("failed to write coupon %s: %w", c.Code, err)
		}
	}

	return gzipWriter.Close()
}

func ptr[T any](v T) *T { return &v }
