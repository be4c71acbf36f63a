/*
Package handler provides the HTTP handlers of the proof-of-work registration gate.
*/
package handler

import (
	"errors"
	"net/http"

	"ryachat/internal/pkg/errs"
	"ryachat/internal/pkg/logx"
	"ryachat/internal/pkg/pow"
	"ryachat/internal/pkg/req"
	"ryachat/internal/pkg/resp"
)

// HandleGetChallenge hands out a fresh nonce and the current difficulty.
func HandleGetChallenge(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !deps.Pow.Enabled() {
			resp.RespondError(w, r, errs.NewError(errs.ErrNotFound))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"nonce":      deps.Pow.GenerateNonce(),
			"difficulty": deps.Pow.Difficulty(),
		})
	}
}

type VerifyProofInput struct {
	Nonce   string `json:"nonce"`
	Counter string `json:"counter"`
}

// HandleVerifyProof exchanges a solved challenge for a single-use proof token.
func HandleVerifyProof(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !deps.Pow.Enabled() {
			resp.RespondError(w, r, errs.NewError(errs.ErrNotFound))
			return
		}

		var input VerifyProofInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Nonce == "" || input.Counter == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		token, err := deps.Pow.ValidateProof(input.Nonce, input.Counter)
		if err != nil {
			if !errors.Is(err, pow.ErrProofTooWeak) {
				logx.Warn("pow: proof rejected", "reason", err.Error())
			}
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeInvalid))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"powToken": token,
		})
	}
}
