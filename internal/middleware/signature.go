package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kartcore/internal/model"

	"github.com/rs/zerolog"
)

const (
	// HeaderSignature carries the hex HMAC-SHA256 of "<timestamp>.<body>".
	HeaderSignature = "X-Signature"
	// HeaderSignatureTimestamp carries the signing time in unix seconds.
	HeaderSignatureTimestamp = "X-Signature-Timestamp"

	maxSignedBodyBytes = 1 << 20
)

// Sign returns the signature a gateway must send for body at ts.
func Sign(secret string, ts time.Time, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts.Unix(), 10)))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// WebhookSignature rejects payment callbacks that are not signed with the
// shared secret or whose timestamp is outside tolerance. An empty secret
// disables verification.
func WebhookSignature(secret string, tolerance time.Duration, logger zerolog.Logger) func(http.Handler) http.Handler {
	return webhookSignature(secret, tolerance, time.Now, logger)
}

func webhookSignature(secret string, tolerance time.Duration, now func() time.Time, logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("component", "webhook_signature").Logger()
	return func(next http.Handler) http.Handler {
		if secret == "" {
			logger.Warn().Msg("webhook signature verification disabled")
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			signature := strings.TrimSpace(r.Header.Get(HeaderSignature))
			tsValue := strings.TrimSpace(r.Header.Get(HeaderSignatureTimestamp))
			if signature == "" || tsValue == "" {
				logger.Warn().Msg("signature headers missing")
				unauthorised(w, "signature missing")
				return
			}

			unix, err := strconv.ParseInt(tsValue, 10, 64)
			if err != nil {
				logger.Warn().Str("timestamp", tsValue).Msg("signature timestamp invalid")
				unauthorised(w, "signature timestamp invalid")
				return
			}
			if tolerance > 0 {
				if skew := now().Sub(time.Unix(unix, 0)); skew > tolerance || skew < -tolerance {
					logger.Warn().Dur("skew", skew).Msg("signature timestamp outside tolerance")
					unauthorised(w, "signature timestamp outside allowed window")
					return
				}
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBodyBytes+1))
			if err != nil || len(body) > maxSignedBodyBytes {
				writeError(w, http.StatusBadRequest, model.ErrCodeInvalidRequest, "unable to read body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			provided, err := hex.DecodeString(signature)
			if err != nil {
				unauthorised(w, "signature encoding invalid")
				return
			}
			expected, _ := hex.DecodeString(Sign(secret, time.Unix(unix, 0), body))
			if !hmac.Equal(provided, expected) {
				logger.Warn().Msg("signature mismatch")
				unauthorised(w, "signature verification failed")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
