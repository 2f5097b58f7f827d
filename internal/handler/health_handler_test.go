package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("dial tcp: connection refused") })

	tests := []struct {
		name           string
		checks         map[string]Pinger
		expectedStatus int
		expectedBody   healthResponse
	}{
		{
			name:           "no dependencies",
			expectedStatus: http.StatusOK,
			expectedBody:   healthResponse{Status: "healthy"},
		},
		{
			name:           "all reachable",
			checks:         map[string]Pinger{"postgres": ok, "redis": ok},
			expectedStatus: http.StatusOK,
			expectedBody:   healthResponse{Status: "healthy", Checks: map[string]string{"postgres": "ok", "redis": "ok"}},
		},
		{
			name:           "redis down",
			checks:         map[string]Pinger{"postgres": ok, "redis": down},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   healthResponse{Status: "degraded", Checks: map[string]string{"postgres": "ok", "redis": "unavailable"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checks, zerolog.Nop())

			w := httptest.NewRecorder()
			h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			var got healthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.expectedBody, got)
		})
	}
}
