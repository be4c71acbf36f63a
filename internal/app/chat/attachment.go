package chat

import (
	"net/http"
	"path/filepath"
	"strings"

	"ryachat/internal/pkg/errs"
)

const (
	// MaxImageSizeMB is the maximum allowed image size in megabytes.
	MaxImageSizeMB = 5

	// MaxImageSize is the maximum allowed image size in bytes.
	MaxImageSize = MaxImageSizeMB * 1024 * 1024
)

// AllowedMIMETypes defines the set of permitted image MIME types.
var AllowedMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// ExtToMIME maps file extensions to their corresponding MIME types.
var ExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// ValidateFileSize checks if the provided file size is within acceptable limits.
func ValidateFileSize(fileSize int64) *errs.CustomError {
	if fileSize <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if fileSize > MaxImageSize {
		return errs.NewError(errs.ErrFileSizeTooLarge, MaxImageSizeMB)
	}

	return nil
}

// ValidateFileType checks that the extension and declared MIME type agree on an allowed image type.
func ValidateFileType(fileName string, mimeType string) *errs.CustomError {
	lowerMimeType := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(lowerMimeType, ';'); i >= 0 {
		lowerMimeType = strings.TrimSpace(lowerMimeType[:i])
	}

	if _, ok := AllowedMIMETypes[lowerMimeType]; !ok {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if len(ext) < 2 {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	expectedMIME, ok := ExtToMIME[ext]
	if !ok || expectedMIME != lowerMimeType {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	return nil
}

// ValidateImage checks size, name, declared type and the sniffed content of an upload.
// It returns the canonical extension and MIME type to store the object under.
func ValidateImage(fileName, mimeType string, content []byte) (string, string, *errs.CustomError) {
	if err := ValidateFileSize(int64(len(content))); err != nil {
		return "", "", err
	}

	if err := ValidateFileType(fileName, mimeType); err != nil {
		return "", "", err
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	expected := ExtToMIME[ext]

	if sniffed := http.DetectContentType(content); sniffed != expected {
		return "", "", errs.NewError(errs.ErrFileTypeInvalid)
	}

	if ext == ".jpeg" {
		ext = ".jpg"
	}
	return ext, expected, nil
}
