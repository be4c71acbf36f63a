package jwt

import (
	"context"
	"net/http"
	"strings"
)

// Define Context Key for storing the raw bearer token, preventing key collisions with other packages.
type contextKey string

const (
	// ContextBearerTokenKey is the key used to store the raw bearer token in the request Context.
	ContextBearerTokenKey contextKey = "bearer_token"
)

// BearerExtractorMiddleware copies the caller's token into the request Context.
// It looks at the "Authorization: Bearer <token>" header first and then at the "token" query parameter.
// It never rejects a request; handlers decide whether a token is required.
func BearerExtractorMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerFromHeader(r.Header.Get("Authorization"))
			if token == "" {
				token = r.URL.Query().Get("token")
			}

			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextBearerTokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerFromHeader(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// TokenFromRequest returns the bearer token found by BearerExtractorMiddleware, or "".
func TokenFromRequest(r *http.Request) string {
	token, _ := r.Context().Value(ContextBearerTokenKey).(string)
	return token
}
