package services

import "context"

type contextKey string

const (
	directoryKey contextKey = "directory"
	fileKey      contextKey = "file"
	attemptKey   contextKey = "attempt"
	requestIDKey contextKey = "request_id"
)

// WithDirectory annotates context with the watched directory name.
func WithDirectory(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, directoryKey, name)
}

// DirectoryFromContext returns the watched directory name if present.
func DirectoryFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(directoryKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithFile annotates context with the drop file base name.
func WithFile(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, fileKey, name)
}

// FileFromContext returns the drop file base name if present.
func FileFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(fileKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithAttempt annotates context with the 1-based processing attempt number.
func WithAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, attemptKey, attempt)
}

// AttemptFromContext extracts the attempt number if present.
func AttemptFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(attemptKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
