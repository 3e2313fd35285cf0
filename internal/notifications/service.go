package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"restronaut/internal/config"
)

const userAgent = "restronaut/1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyFileRetained(ctx context.Context, directory, path string, cause error) error
	NotifyUnrecognized(ctx context.Context, directory, path, root string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		failures:     cfg.Notifications.Failures,
		unrecognized: cfg.Notifications.Unrecognized,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	failures     bool
	unrecognized bool
}

func (n *ntfyService) NotifyFileRetained(ctx context.Context, directory, path string, cause error) error {
	if !n.failures {
		return nil
	}
	reason := "unknown"
	if cause != nil {
		reason = strings.TrimSpace(cause.Error())
	}
	data := payload{
		title:    "Restronaut - File Retained",
		message:  fmt.Sprintf("%s left in %s folder\n%s", filepath.Base(path), directory, reason),
		tags:     []string{"restronaut", "retained", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyUnrecognized(ctx context.Context, directory, path, root string) error {
	if !n.unrecognized {
		return nil
	}
	root = strings.TrimSpace(root)
	if root == "" {
		root = "unknown"
	}
	data := payload{
		title:   "Restronaut - Unrecognized Document",
		message: fmt.Sprintf("%s in %s folder has root <%s>\nManual review required", filepath.Base(path), directory, root),
		tags:    []string{"restronaut", "unrecognized", "review"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Restronaut - Test",
		message:  "Notification system test",
		tags:     []string{"restronaut", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyFileRetained(context.Context, string, string, error) error { return nil }
func (noopService) NotifyUnrecognized(context.Context, string, string, string) error { return nil }
func (noopService) TestNotification(context.Context) error                          { return nil }

// NewNoop returns a Service that drops every notification.
func NewNoop() Service { return noopService{} }
