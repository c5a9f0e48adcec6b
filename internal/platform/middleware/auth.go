package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// TokenValidator validates a bearer token and returns the caller identity
// it asserts.
type TokenValidator interface {
	ValidateToken(tokenString string) (string, error)
}

type contextKeyCaller struct{}

// ContextKeyCaller is exported for use in handlers and tests.
var ContextKeyCaller = contextKeyCaller{}

// CallerIdentity retrieves the authenticated caller identity from the
// context, or "" for unauthenticated requests.
func CallerIdentity(ctx context.Context) string {
	identity, ok := ctx.Value(ContextKeyCaller).(string)
	if !ok {
		return ""
	}
	return identity
}

// WithCaller injects a caller identity, used by tests and the local client.
func WithCaller(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, ContextKeyCaller, identity)
}

// RequireAuth rejects requests without a valid bearer token and puts the
// caller identity in context. Whether that identity may mutate the registry
// is the access control guard's decision, not this middleware's.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				writeUnauthorized(w, "missing bearer token")
				return
			}

			identity, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(ctx, identity)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
