package web

// handlers_common.go holds request parsing helpers shared by the handlers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/coursetrack/internal/core"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// multipartOverhead is allowed on top of a file limit for the other form
// parts and boundaries.
const multipartOverhead = 1 << 20

// parseIntParam parses a positive integer query parameter, falling back to
// defaultVal when it is absent or not positive.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseBoolParam parses an optional boolean query parameter.
func parseBoolParam(r *http.Request, name string) (*bool, error) {
	val := strings.TrimSpace(r.URL.Query().Get(name))
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, &core.RequestValidationError{Message: name + " must be a boolean value"}
	}
	return &b, nil
}

// parseYearParam parses an optional integer query parameter; zero means absent.
func parseYearParam(r *http.Request, name string) (int, error) {
	val := strings.TrimSpace(r.URL.Query().Get(name))
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, &core.RequestValidationError{Message: name + " must be an integer number"}
	}
	return n, nil
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return &core.RequestValidationError{Message: fmt.Sprintf("invalid JSON body: %v", err)}
	}
	return nil
}

// formFile parses a multipart request of at most limit bytes of file data
// and returns the named file part. The caller closes the file.
func formFile(w http.ResponseWriter, r *http.Request, field string, limit int64) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, err
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil, &core.RequestValidationError{Message: "request must be multipart/form-data"}
		}
		return nil, nil, &core.RequestValidationError{Message: fmt.Sprintf("invalid form: %v", err)}
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, errMissingFile
	}
	return file, header, nil
}

// readAtMost reads up to limit+1 bytes so callers can detect oversize input
// without buffering all of it.
func readAtMost(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit+1))
}
