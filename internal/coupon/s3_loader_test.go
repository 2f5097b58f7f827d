package coupon

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"kartcore/internal/model"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLoader is a mock implementation of the Loader interface for testing.
type mockLoader struct {
	loadFunc func(ctx context.Context, filePath string) (Catalog, error)
}

func (m *mockLoader) Load(ctx context.Context, filePath string) (Catalog, error) {
	if m.loadFunc != nil {
		return m.loadFunc(ctx, filePath)
	}
	return nil, errors.New("not implemented")
}

// fakeS3 serves fixed object bodies by key.
type fakeS3 struct {
	objects map[string][]byte
	keys    []string
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.keys = append(f.keys, *params.Key)
	body, ok := f.objects[*params.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func catalogWith(codes ...string) Catalog {
	c := NewMapCatalog(len(codes)).(*mapCatalog)
	for _, code := range codes {
		c.Add(model.Coupon{Code: code, DiscountType: model.DiscountFlat, DiscountValue: 10, Active: true})
	}
	return c
}

func TestS3Loader_Load(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	client := &fakeS3{objects: map[string][]byte{
		"seed/coupons.jsonl.gz": gzipLines(t, []string{
			`{"code":"s3flat","discountType":"flat","discountValue":75,"active":true}`,
		}),
	}}

	loader := NewS3LoaderWithClient(client, "kart-seed", logger)

	catalog, err := loader.Load(ctx, "seed/coupons.jsonl.gz")
	require.NoError(t, err)
	c, ok := catalog.Get("S3FLAT")
	require.True(t, ok)
	assert.Equal(t, float64(75), c.DiscountValue)
	assert.Equal(t, []string{"seed/coupons.jsonl.gz"}, client.keys)
}

func TestS3Loader_MissingObject(t *testing.T) {
	loader := NewS3LoaderWithClient(&fakeS3{}, "kart-seed", zerolog.Nop())

	catalog, err := loader.Load(context.Background(), "missing.gz")
	assert.Error(t, err)
	assert.Nil(t, catalog)
	assert.Contains(t, err.Error(), "bucket=kart-seed")
}

func TestFallbackLoader_S3Success(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	s3Loader := &mockLoader{
		loadFunc: func(ctx context.Context, filePath string) (Catalog, error) {
			assert.Equal(t, "coupons/test.gz", filePath, "S3 key should have prefix")
			return catalogWith("S3CODE123"), nil
		},
	}
	fileLoader := &mockLoader{
		loadFunc: func(ctx context.Context, filePath string) (Catalog, error) {
			t.Error("file loader should not be called when S3 succeeds")
			return nil, errors.New("should not be called")
		},
	}

	fallback := NewFallbackLoader(s3Loader, fileLoader, "coupons/", true, logger)

	catalog, err := fallback.Load(ctx, "test.gz")
	assert.NoError(t, err)
	_, ok := catalog.Get("S3CODE123")
	assert.True(t, ok)
}

func TestFallbackLoader_S3FailsFallsBackToLocal(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	s3Loader := &mockLoader{
		loadFunc: func(ctx context.Context, filePath string) (Catalog, error) {
			return nil, errors.New("S3 connection failed")
		},
	}
	fileLoader := &mockLoader{
		loadFunc: func(ctx context.Context, filePath string) (Catalog, error) {
			assert.Equal(t, "test.gz", filePath, "local file path should not have prefix")
			return catalogWith("LOCALCODE1"), nil
		},
	}

	fallback := NewFallbackLoader(s3Loader, fileLoader, "coupons/", true, logger)

	catalog, err := fallback.Load(ctx, "test.gz")
	assert.NoError(t, err)
	_, ok := catalog.Get("LOCALCODE1")
	assert.True(t, ok)
}

func TestFallbackLoader_S3Disabled(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	s3Loader := &mockLoader{
		loadFunc: func(ctx context.Context, filePath string) (Catalog, error) {
			t.Error("S3 loader should not be called when S3 is disabled")
			return nil, errors.New("should not be called")
		},
	}
	fileLoader := &mockLoader{
		loadFunc: func(ctx context.Context, filePath string) (Catalog, error) {
			return catalogWith("LOCALCODE2"), nil
		},
	}

	fallback := NewFallbackLoader(s3Loader, fileLoader, "coupons/", false, logger)

	catalog, err := fallback.Load(ctx, "test.gz")
	assert.NoError(t, err)
	_, ok := catalog.Get("LOCALCODE2")
	assert.True(t, ok)
}

func TestFallbackLoader_S3LoaderNil(t *testing.T) {
	fileLoader := &mockLoader{
		loadFunc: func(ctx context.Context, filePath string) (Catalog, error) {
			return catalogWith("LOCALCODE3"), nil
		},
	}

	fallback := NewFallbackLoader(nil, fileLoader, "coupons/", true, zerolog.Nop())

	catalog, err := fallback.Load(context.Background(), "test.gz")
	assert.NoError(t, err)
	assert.Equal(t, 1, catalog.Size())
}

func TestFallbackLoader_BothFail(t *testing.T) {
	s3Loader := &mockLoader{
		loadFunc: func(ctx context.Context, filePath string) (Catalog, error) {
			return nil, errors.New("S3 error")
		},
	}
	fileLoader := &mockLoader{
		loadFunc: func(ctx context.Context, filePath string) (Catalog, error) {
			return nil, errors.New("file not found")
		},
	}

	fallback := NewFallbackLoader(s3Loader, fileLoader, "coupons/", true, zerolog.Nop())

	catalog, err := fallback.Load(context.Background(), "test.gz")
	assert.Error(t, err)
	assert.Nil(t, catalog)
	assert.Contains(t, err.Error(), "file not found")
}

func TestFallbackLoader_PrefixHandling(t *testing.T) {
	tests := []struct {
		name       string
		s3Prefix   string
		filePath   string
		expectedS3 string
	}{
		{name: "prefix with trailing slash", s3Prefix: "coupons/", filePath: "file.gz", expectedS3: "coupons/file.gz"},
		{name: "prefix without trailing slash", s3Prefix: "coupons", filePath: "file.gz", expectedS3: "couponsfile.gz"},
		{name: "empty prefix", s3Prefix: "", filePath: "file.gz", expectedS3: "file.gz"},
		{name: "nested prefix", s3Prefix: "data/coupons/prod/", filePath: "file.gz", expectedS3: "data/coupons/prod/file.gz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s3Loader := &mockLoader{
				loadFunc: func(ctx context.Context, filePath string) (Catalog, error) {
					assert.Equal(t, tt.expectedS3, filePath)
					return catalogWith(), nil
				},
			}

			fallback := NewFallbackLoader(s3Loader, &mockLoader{}, tt.s3Prefix, true, zerolog.Nop())
			_, err := fallback.Load(context.Background(), tt.filePath)
			assert.NoError(t, err)
		})
	}
}
