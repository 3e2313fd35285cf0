package daemon

import (
	"crypto/subtle"
	"net/http"
)

const (
	apiKeyHeader = "X-Api-Key"
	apiKeyQuery  = "apiKey"
)

// authMiddleware returns a middleware that validates the API key.
// If key is empty, no authentication is required and all requests pass through.
// Otherwise the key is read from the X-Api-Key header, falling back to the
// apiKey query parameter.
func authMiddleware(key string, next http.Handler) http.Handler {
	if key == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provided, ok := extractAPIKey(r)
		if !ok {
			writePlain(w, http.StatusUnauthorized, "Api Key was not provided")
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			writePlain(w, http.StatusUnauthorized, "Unauthorized client")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractAPIKey(r *http.Request) (string, bool) {
	if values := r.Header.Values(apiKeyHeader); len(values) > 0 {
		return values[0], true
	}
	if values, ok := r.URL.Query()[apiKeyQuery]; ok && len(values) > 0 {
		return values[0], true
	}
	return "", false
}

func writePlain(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}
