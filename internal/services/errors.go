package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrGeneration      = errors.New("generation failure")
	ErrLayoutMismatch  = errors.New("layout mismatch")
	ErrCompile         = errors.New("compile failure")
	ErrBuildInProgress = errors.New("build in progress")
	ErrPortUnavailable = errors.New("port unavailable")
	ErrPreview         = errors.New("preview failure")
	ErrConfiguration   = errors.New("configuration error")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker so callers can classify it with errors.Is. The
// marker should be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short stable label for the sentinel carried by err, suitable
// for tool responses and log fields. Unknown errors map to "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrGeneration):
		return "generation_failure"
	case errors.Is(err, ErrLayoutMismatch):
		return "layout_mismatch"
	case errors.Is(err, ErrCompile):
		return "compile_failure"
	case errors.Is(err, ErrBuildInProgress):
		return "build_in_progress"
	case errors.Is(err, ErrPortUnavailable):
		return "port_unavailable"
	case errors.Is(err, ErrPreview):
		return "preview_failure"
	case errors.Is(err, ErrConfiguration):
		return "configuration_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	default:
		return "internal"
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
