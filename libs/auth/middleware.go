package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/suavhq/suav/libs/httpx"
)

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

type ctxKey int

const ctxKeyIdentity ctxKey = iota

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity).(Identity)
	return id, ok
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[len("Bearer "):])
}

// Require rejects requests without a verified identity with 401.
func Require(v TokenVerifier) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				unauthenticated(w, "missing or invalid Authorization header")
				return
			}
			id, err := v.Verify(r.Context(), token)
			if err != nil {
				unauthenticated(w, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func unauthenticated(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="suav"`)
	httpx.WriteJSON(w, http.StatusUnauthorized, map[string]any{
		"error": map[string]string{"kind": "unauthenticated", "message": msg},
	})
}
