package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/productcatalog/catalog/internal/auth"
	"github.com/productcatalog/catalog/internal/metrics"
	"github.com/productcatalog/catalog/internal/model"
	"github.com/productcatalog/catalog/internal/service"
)

// unauthorizedMessage is shared by every authentication failure.
const unauthorizedMessage = "Could not validate credentials"

// Authenticator resolves a bearer token to an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Identity, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger        *slog.Logger
	Authenticator Authenticator
	Metrics       metrics.Recorder
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(cfg AuthConfig) func(http.Handler) http.Handler {
	return authenticate(cfg, false)
}

// OptionalAuth lets requests without an Authorization header through as anonymous.
// A token that is present must still be valid.
func OptionalAuth(cfg AuthConfig) func(http.Handler) http.Handler {
	return authenticate(cfg, true)
}

func authenticate(cfg AuthConfig, optional bool) func(http.Handler) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, present := extractBearerToken(r)

			if !present {
				if optional {
					next.ServeHTTP(w, r)
					return
				}
				rejectAuth(cfg, w, r, metrics.ReasonMissingToken)
				return
			}

			if token == "" {
				rejectAuth(cfg, w, r, metrics.ReasonInvalidToken)
				return
			}

			identity, err := cfg.Authenticator.Authenticate(r.Context(), token)
			switch {
			case err == nil:
			case errors.Is(err, service.ErrInvalidToken):
				rejectAuth(cfg, w, r, metrics.ReasonInvalidToken)
				return
			case errors.Is(err, service.ErrUnknownSubject):
				rejectAuth(cfg, w, r, metrics.ReasonUnknownSubject)
				return
			default:
				cfg.Logger.Error("authentication lookup failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
				return
			}

			ctx := auth.ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func rejectAuth(cfg AuthConfig, w http.ResponseWriter, r *http.Request, reason string) {
	cfg.Logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
	cfg.Metrics.IncAuthFailure(reason)

	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", unauthorizedMessage)
}

// extractBearerToken reads "Authorization: Bearer <token>".
// present is false only when the header is absent altogether; any other
// scheme yields present with an empty token.
func extractBearerToken(r *http.Request) (token string, present bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	scheme, value, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}
	return strings.TrimSpace(value), true
}
