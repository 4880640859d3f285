package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"duplicate key", errors.New("ERROR: duplicate key value violates unique constraint \"marketofferings_name_key\""), "DB001"},
		{"unique constraint", errors.New("unique constraint violated"), "DB002"},
		{"foreign key", errors.New("insert violates foreign key constraint"), "DB003"},
		{"connection refused", errors.New("dial tcp 127.0.0.1:5432: connection refused"), "DB004"},
		{"timeout wins over deadline", errors.New("context deadline exceeded (timeout)"), "DB006"},
		{"malformed feed", fmt.Errorf("parse feed: %w", ErrMalformedFeed), "FEED002"},
		{"empty feed", ErrEmptyFeed, "FEED003"},
		{"busy limiter", ErrTooManyRuns, "RUN001"},
		{"cancelled", errors.New("context canceled"), "RUN002"},
		{"ssh dial", errors.New("ssh: handshake failed: EOF"), "CERT002"},
		{"case insensitive", errors.New("DEADLOCK detected"), "DB007"},
		{"unknown error", errors.New("something odd happened"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapError(tt.err); got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}

	got := FormatUserError(errors.New("deadlock detected"))
	if !strings.Contains(got, "(Code: DB007)") {
		t.Errorf("FormatUserError() = %q, want code DB007", got)
	}
}

func TestErrorClassification(t *testing.T) {
	rv := fmt.Errorf("create: %w", &RequestValidationError{Message: "bad"})
	if !IsRequestValidation(rv) {
		t.Error("wrapped RequestValidationError not detected")
	}
	if IsDependencyFailure(rv) {
		t.Error("RequestValidationError misclassified as dependency failure")
	}

	df := dependencyFailure("catalog.find", errors.New("connection reset by peer"))
	if !IsDependencyFailure(df) {
		t.Error("DependencyFailure not detected")
	}
	if got := df.Error(); got != "catalog.find: connection reset by peer" {
		t.Errorf("Error() = %q", got)
	}
	if !strings.Contains(MapError(df).Code, "DB005") {
		t.Errorf("dependency failure should map through its cause, got %s", MapError(df).Code)
	}
}
