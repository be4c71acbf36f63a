/*
Package handler provides the HTTP handlers and routing setup for the RyaChat server.

This file defines the main Router, applying middleware for request ids, logging, metrics,
CORS and IP-based rate limiting before delegating requests to the API and WebSocket handlers.
*/
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"ryachat/internal/pkg/auth/jwt"
	"ryachat/internal/pkg/errs"
	"ryachat/internal/pkg/limiter"
	"ryachat/internal/pkg/logx"
	"ryachat/internal/pkg/metrics"
	"ryachat/internal/pkg/pow"
	"ryachat/internal/pkg/resp"
)

const (
	RegisterRate  = 0.2
	RegisterBurst = 5
	UploadRate    = 0.1
	UploadBurst   = 3
	JoinRate      = 0.2
	JoinBurst     = 5
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// The IP limiters it creates stop sweeping when ctx ends.
func Router(ctx context.Context, deps *AppDeps) http.Handler {
	registerLimiter := limiter.NewIPRateLimiter(ctx, "register", rate.Limit(RegisterRate), RegisterBurst)
	uploadLimiter := limiter.NewIPRateLimiter(ctx, "upload", rate.Limit(UploadRate), UploadBurst)
	joinLimiter := limiter.NewIPRateLimiter(ctx, "ws", rate.Limit(JoinRate), JoinBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", pow.TokenHeaderKey},
		ExposedHeaders: []string{},
		MaxAge:         300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(metrics.Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{
			"status":  "ok",
			"service": "RyaChat Server",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.BearerExtractorMiddleware())

		api.With(registerLimiter.Middleware).Post("/register", HandleRegister(deps))
		api.Post("/send", HandleSendMessage(deps))
		api.Get("/messages", HandleGetMessages(deps))

		api.Get("/users/search", HandleSearchUsers(deps))
		api.Get("/users/online", HandleOnlineUsers(deps))
		api.Get("/online", HandleOnlineUsers(deps))

		api.Post("/profile/update", HandleUpdateProfile(deps))
		api.Get("/stats", HandleStats(deps))

		api.With(uploadLimiter.Middleware).Post("/upload", HandleUploadImage(deps))

		api.Route("/pow", func(p chi.Router) {
			p.Get("/challenge", HandleGetChallenge(deps))
			p.Post("/verify", HandleVerifyProof(deps))
		})
	})

	r.Get("/ws", HandleWebSocket(deps, wsUpgrader, joinLimiter))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		resp.RespondError(w, r, errs.NewError(errs.ErrNotFound))
	})

	return r
}
