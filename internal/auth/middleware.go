package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// Config contains configuration for the auth middleware.
type Config struct {
	// SkipPaths are path prefixes that skip authentication entirely.
	SkipPaths []string
}

// DefaultConfig returns the default auth configuration. Registration,
// login and the health check are the only open endpoints.
func DefaultConfig() Config {
	return Config{
		SkipPaths: []string{"/health", "/api/auth/login", "/api/users/register"},
	}
}

// Middleware creates a bearer-token authentication middleware. Requests on
// protected paths without a valid token are rejected with 401; everything
// else proceeds with the resolved Principal attached to the context.
func Middleware(resolver PrincipalResolver, config Config, logger zerolog.Logger) func(http.Handler) http.Handler {
	log := logger.With().Str("component", "auth").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if r.URL.Path == path {
					next.ServeHTTP(w, r)
					return
				}
			}

			token, ok := bearerToken(r)
			if !ok {
				writeAuthError(w, "unauthorized", "missing or malformed Authorization header")
				return
			}

			principal, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("token resolution failed")
				writeAuthError(w, "unauthorized", "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
			ctx = context.WithValue(ctx, tokenContextKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get(AuthorizationHeader)
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", false
	}
	token := strings.TrimPrefix(header, BearerPrefix)
	if token == "" {
		return "", false
	}
	return token, true
}

// writeAuthError writes a JSON error response.
func writeAuthError(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"` + code + `","message":"` + message + `"}}`))
}
