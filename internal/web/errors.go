package web

// errors.go maps core errors onto HTTP responses.
//
// Every error response has the same JSON shape. Request validation failures
// carry their literal message; everything else is rendered through the
// core.MapError catalogue so internal detail stays in the server log.

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/coursetrack/internal/core"
	"github.com/JonMunkholm/coursetrack/internal/logging"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

var (
	// errMissingFile is reported when a multipart upload lacks its file part.
	errMissingFile = &core.RequestValidationError{Message: "no file provided"}

	errRateLimited = errors.New("rate limit exceeded")
)

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case core.IsRequestValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrMalformedFeed), errors.Is(err, core.ErrEmptyFeed):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyRuns):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorBody builds the client-facing body for err.
func errorBody(err error) ErrorResponse {
	var rv *core.RequestValidationError
	if errors.As(err, &rv) {
		return ErrorResponse{Error: rv.Message, Message: rv.Message, Code: "VAL001"}
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		return ErrorResponse{Error: err.Error(), Message: err.Error(), Code: "NOTFOUND"}
	case errors.Is(err, core.ErrConflict):
		return ErrorResponse{Error: err.Error(), Message: err.Error(), Code: "CONFLICT"}
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		err = fmt.Errorf("file too large: limit is %d bytes", tooLarge.Limit)
	}

	msg := core.MapError(err)
	body := ErrorResponse{Error: msg.Message, Message: msg.Message, Action: msg.Action, Code: msg.Code}

	var df *core.DependencyFailure
	if errors.As(err, &df) && df.Message != "" {
		body.Error = df.Message
		body.Message = df.Message
	}
	return body
}

// respondError logs err with the request context and writes its response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody(err)

	logger := logging.FromContext(r.Context()).With(
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", body.Code,
		"error", err.Error(),
	)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed")
	} else {
		logger.Info("request rejected")
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(int(s.retryAfter.Seconds())))
	}
	writeJSONStatus(w, status, body)
}
