/*
Package handler provides HTTP handler functions for registration and profile management.
*/
package handler

import (
	"net/http"

	"ryachat/internal/app/chat"
	"ryachat/internal/pkg/errs"
	"ryachat/internal/pkg/logx"
	"ryachat/internal/pkg/req"
	"ryachat/internal/pkg/resp"
)

type RegisterInput struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	ConsoleType string `json:"consoleType"`

	// Console is the older name of ConsoleType.
	Console string `json:"console"`
}

// HandleRegister creates a user or, for a known userId, returns the existing token.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Pow.Enabled() && !deps.Pow.ConsumeProofToken(r) {
			logx.Warn("register: missing or invalid proof token")
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeRequired))
			return
		}

		var input RegisterInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		consoleType := input.ConsoleType
		if consoleType == "" {
			consoleType = input.Console
		}

		result, customErr := deps.Manager.Register(input.UserID, input.Username, consoleType)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"token":     result.Token,
			"isNewUser": result.IsNewUser,
			"user":      result.User,
		})
	}
}

type UpdateProfileInput struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
	Avatar string `json:"avatar"`
	Bio    string `json:"bio"`
}

// HandleUpdateProfile changes the caller's avatar and bio.
func HandleUpdateProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input UpdateProfileInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		updated, customErr := deps.Manager.UpdateProfile(
			input.UserID,
			tokenFrom(input.Token, r),
			chat.ProfileUpdate{Avatar: input.Avatar, Bio: input.Bio},
		)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"user": updated,
		})
	}
}
