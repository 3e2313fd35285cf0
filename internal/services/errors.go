package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTransientIO   = errors.New("transient file access failure")
	ErrParse         = errors.New("parse error")
	ErrRemoteCall    = errors.New("remote call error")
	ErrStorage       = errors.New("storage error")
	ErrUnrecognized  = errors.New("unrecognized document")
	ErrConfiguration = errors.New("configuration error")
	ErrPermission    = errors.New("permission denied")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransientIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Class reports the taxonomy label for err, used as the error_class log field.
func Class(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTransientIO):
		return "transient_io"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrRemoteCall):
		return "remote_call"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrUnrecognized):
		return "unrecognized"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrPermission):
		return "permission"
	default:
		return "unknown"
	}
}

// IsTransient reports whether err should be retried by the file-level retry
// controller.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientIO)
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
