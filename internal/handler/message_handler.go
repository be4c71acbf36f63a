/*
Package handler provides HTTP handler functions for sending and polling chat messages.
*/
package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"ryachat/internal/app/chat"
	"ryachat/internal/pkg/errs"
	"ryachat/internal/pkg/req"
	"ryachat/internal/pkg/resp"
)

// DefaultPollLimit is used when a poll names no limit or a non-positive one.
const DefaultPollLimit = 100

type SendInput struct {
	UserID   string `json:"userId"`
	Token    string `json:"token"`
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl"`

	// Username is accepted for older clients and ignored; the stored name is used.
	Username string `json:"username"`
}

// HandleSendMessage appends a message for the authenticated sender.
func HandleSendMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input SendInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		msg, customErr := deps.Manager.Send(chat.SendInput{
			UserID:   input.UserID,
			Token:    tokenFrom(input.Token, r),
			Text:     input.Text,
			ImageURL: input.ImageURL,
		})
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"message": msg,
		})
	}
}

// HandleGetMessages returns messages newer than the since cursor together with user counts.
func HandleGetMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		since, ok := parseSince(r.URL.Query().Get("since"))
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		limit := req.QueryInt(r, "limit", DefaultPollLimit)
		if limit <= 0 {
			limit = DefaultPollLimit
		}

		page, customErr := deps.Manager.Messages(tokenFrom("", r), since, limit)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, page)
	}
}

// parseSince accepts an empty cursor, unix milliseconds or an RFC 3339 timestamp.
func parseSince(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, true
	}

	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if ms < 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(ms).UTC(), true
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
