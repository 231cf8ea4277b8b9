package middleware

import (
	"context"
	"net/http"
	"strings"

	"guessthesong/internal/model"
)

type contextKey string

const IdentityKey contextKey = "identity"

// TokenValidator resolves an identity token to a verified user.
type TokenValidator interface {
	ValidateToken(token string) (*model.Identity, error)
}

// AuthMiddleware attaches the caller's verified identity to the request.
type AuthMiddleware struct {
	auth TokenValidator
}

func NewAuthMiddleware(auth TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// RequireIdentity validates the bearer token from the Authorization header.
func (m *AuthMiddleware) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		token := extractBearerToken(r)
		if token == "" {
			http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
			return
		}

		user, err := m.auth.ValidateToken(token)
		if err != nil {
			http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), IdentityKey, *user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetIdentity extracts the verified identity from context
func GetIdentity(ctx context.Context) (model.Identity, bool) {
	user, ok := ctx.Value(IdentityKey).(model.Identity)
	return user, ok
}

// WithIdentity is used by tests and internal callers to stamp a request.
func WithIdentity(ctx context.Context, user model.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, user)
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
