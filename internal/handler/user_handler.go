/*
Package handler provides HTTP handler functions for user search and online listings.
*/
package handler

import (
	"net/http"
	"strings"

	"ryachat/internal/pkg/resp"
)

// HandleSearchUsers finds users by id or username substring.
func HandleSearchUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			query = strings.TrimSpace(r.URL.Query().Get("query"))
		}

		results, customErr := deps.Manager.Search(tokenFrom("", r), query)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"query":   query,
			"results": results,
			"count":   len(results),
		})
	}
}

// HandleOnlineUsers lists the users currently online.
func HandleOnlineUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		online, customErr := deps.Manager.Online(tokenFrom("", r))
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"online": online,
			"count":  len(online),
		})
	}
}

// HandleStats reports totals and uptime. It needs no token.
func HandleStats(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, deps.Manager.Stats())
	}
}
