package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"restronaut/internal/config"
)

// CheckOrderService verifies that the order service answers HTTP requests and
// accepts the auth token. Any response other than 401/403 counts as reachable,
// since the service exposes no health route.
func CheckOrderService(ctx context.Context, baseURL, token string) Result {
	const name = "Order service"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	if strings.TrimSpace(token) == "" {
		return Result{Name: name, Detail: "missing auth token"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, base+"/", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("reachability check failed (%v)", err)}
	}
	req.Header.Set("Authorization", strings.TrimSpace(token))

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeRequestError(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid token)"}
	default:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("Reachable (%d)", resp.StatusCode)}
	}
}

// CheckArchiveFromConfig reports whether archiving is configured. A disabled
// archive passes.
func CheckArchiveFromConfig(cfg *config.Config) Result {
	const name = "Archive"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.ArchiveEnabled() {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if strings.TrimSpace(cfg.Archive.Bucket) == "" {
		return Result{Name: name, Detail: "Missing bucket"}
	}
	if cfg.Archive.CredentialsFile != "" {
		if _, err := os.Stat(cfg.Archive.CredentialsFile); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("credentials file unreadable (%v)", err)}
		}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s://%s", cfg.Archive.Provider, cfg.Archive.Bucket)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := checkAccess(path); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeRequestError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "reachability check timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "reachability check timed out"
	}
	return fmt.Sprintf("unreachable (%v)", err)
}
