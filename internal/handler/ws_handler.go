/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains HandleWebSocket, which rate limits the caller, upgrades the connection,
registers a live subscriber and runs the client pumps. Authentication happens later over
the socket itself.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"ryachat/internal/app/chat"
	"ryachat/internal/pkg/errs"
	"ryachat/internal/pkg/limiter"
	"ryachat/internal/pkg/logx"
	"ryachat/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !deps.Manager.Features().Live {
			resp.RespondError(w, r, errs.NewError(errs.ErrFeatureDisabled))
			return
		}

		if !rateLimiter.Allow(r) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", limiter.ClientIP(r))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Warn("Failed to upgrade connection to WebSocket", "error", err.Error())
			return
		}

		sub, ok := deps.Manager.Connect()
		if !ok {
			closeMsg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = conn.WriteMessage(websocket.CloseMessage, closeMsg)
			_ = conn.Close()
			return
		}

		client := chat.NewClient(deps.Manager, sub, conn)

		go client.WritePump()

		logx.Info("WebSocket connection established and subscriber registered", "subscriber_id", sub.ID)

		client.ReadPump()
	}
}
