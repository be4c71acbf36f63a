// Package errs holds the business error codes shared by the HTTP and live
// channel surfaces, together with the CustomError type that carries them.
package errs

import (
	"fmt"
	"net/http"
	"strings"

	"ryachat/internal/pkg/logx"
)

// CustomError is what chat operations return instead of a plain error.
// Code ends up in the response envelope, Status on the HTTP response line.
type CustomError struct {
	Code    int
	Message string
	Status  int
}

func (e CustomError) Error() string {
	return fmt.Sprintf("code=%d status=%d: %s", e.Code, e.Status, e.Message)
}

// NewError looks code up in the error table. Details fill the message's
// printf verbs, e.g. NewError(ErrMessageContentTooLong, 280).
//
// Unknown codes degrade to ErrUnknown. For ErrUnknown itself the first
// detail may be the underlying error, which is logged rather than shown.
func NewError(code int, details ...any) *CustomError {
	tmpl, ok := errorMap[code]
	if !ok {
		logx.Error(fmt.Errorf("unknown error code %d", code), "Error code missing from error table", "requested_code", code)
		unknown := errorMap[ErrUnknown]
		return &unknown
	}

	out := tmpl
	if out.Status == 0 {
		out.Status = http.StatusOK
	}

	if len(details) == 0 {
		return &out
	}

	if code == ErrUnknown {
		if cause, ok := details[0].(error); ok {
			logx.Error(cause, "Internal error surfaced as ErrUnknown")
		}
		return &out
	}

	if !strings.Contains(out.Message, "%") {
		logx.Warn("Error details ignored, message has no placeholders.", "code", code)
		return &out
	}

	out.Message = fmt.Sprintf(out.Message, details...)
	return &out
}
