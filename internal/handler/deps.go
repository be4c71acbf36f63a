package handler

import (
	"net/http"

	"ryachat/internal/app/chat"
	"ryachat/internal/app/storage"
	"ryachat/internal/configs"
	"ryachat/internal/pkg/auth/jwt"
	"ryachat/internal/pkg/pow"
)

// AppDeps carries everything the HTTP handlers need.
type AppDeps struct {
	Manager *chat.Manager
	Config  *configs.AppConfig

	// Blobs is nil when no bucket is configured; uploads are then unavailable.
	Blobs storage.BlobStore

	// Pow is nil or disabled when registration is not gated.
	Pow *pow.Manager
}

// tokenFrom returns the explicit token when given, else the bearer token of the request.
func tokenFrom(explicit string, r *http.Request) string {
	if explicit != "" {
		return explicit
	}
	return jwt.TokenFromRequest(r)
}
