/*
Package handler provides the HTTP handler for image uploads.
*/
package handler

import (
	"errors"
	"io"
	"net/http"

	"ryachat/internal/app/chat"
	"ryachat/internal/pkg/errs"
	"ryachat/internal/pkg/logx"
	"ryachat/internal/pkg/metrics"
	"ryachat/internal/pkg/randx"
	"ryachat/internal/pkg/req"
	"ryachat/internal/pkg/resp"
)

// UploadFormField is the multipart field carrying the image.
const UploadFormField = "image"

// HandleUploadImage validates an image, stores it in the blob store and returns its URL.
func HandleUploadImage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !deps.Manager.Features().Images || deps.Blobs == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFeatureDisabled))
			return
		}

		if customErr := req.SetupMultipart(w, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		userID, customErr := deps.Manager.Authenticate(tokenFrom(r.FormValue("token"), r))
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		file, header, err := r.FormFile(UploadFormField)
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			resp.RespondError(w, r, errs.NewError(errs.ErrFormParseFailed))
			return
		}
		defer file.Close()

		content, err := io.ReadAll(io.LimitReader(file, chat.MaxImageSize+1))
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFormParseFailed))
			return
		}

		ext, mimeType, customErr := chat.ValidateImage(header.Filename, header.Header.Get("Content-Type"), content)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		key := randx.UploadKey(ext)

		url, err := deps.Blobs.Store(r.Context(), key, content, mimeType)
		if err != nil {
			logx.Error(err, "upload: blob store failed", "user_id", userID, "key", key)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		metrics.UploadsStored.Inc()
		logx.Info("Image uploaded", "user_id", userID, "key", key, "size", len(content))

		resp.RespondSuccess(w, r, map[string]any{
			"imageUrl": url,
		})
	}
}
