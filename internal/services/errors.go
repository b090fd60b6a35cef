package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors classify every failure the pipeline can produce.
// Submission-time markers (validation, URL, domain, fetch) never reach the
// queue; executor-time markers (resource exhausted, engine) end a job in
// the failed state.
var (
	ErrValidation        = errors.New("validation error")
	ErrInvalidURL        = errors.New("invalid url")
	ErrDomainNotAllowed  = errors.New("domain not allowed")
	ErrFetchFailed       = errors.New("fetch failed")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrEngine            = errors.New("engine error")
	ErrTransient         = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while
// tagging it with the provided marker for later classification. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureKind maps an executor error to the error kind persisted on a
// failed job and surfaced to polling clients.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, ErrResourceExhausted):
		return "resource_exhausted"
	case errors.Is(err, ErrEngine):
		return "engine_error"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	default:
		return "internal_error"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
