package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/homestay/internal/server/response"
)

// KeyConfig protects a route with a shared key.
type KeyConfig struct {
	// Key is the expected value. An empty Key disables the check.
	Key string
	// HeaderName is checked first; "Authorization: Bearer <key>" is the fallback.
	HeaderName string
}

// DefaultKeyConfig returns a KeyConfig reading the X-API-Key header.
func DefaultKeyConfig(key string) KeyConfig {
	return KeyConfig{Key: key, HeaderName: "X-API-Key"}
}

// RequireKey rejects requests that do not present the configured key.
func RequireKey(config KeyConfig, logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.Key == "" {
				next.ServeHTTP(w, r)
				return
			}

			key := extractKey(r, config.HeaderName)
			if subtle.ConstantTimeCompare([]byte(key), []byte(config.Key)) != 1 {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Bool("key_provided", key != "").
					Msg("Authentication failed")

				response.Unauthorized(w, "Invalid or missing API key",
					"Provide a valid API key in the "+config.HeaderName+" header")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractKey(r *http.Request, header string) string {
	if header != "" {
		if key := r.Header.Get(header); key != "" {
			return key
		}
	}
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}
