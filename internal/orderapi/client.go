package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"restronaut/internal/config"
	"restronaut/internal/services"
)

const (
	pathCreateOrder     = "/Order"
	pathPrepSalesReport = "/prep-sales-report"
	pathInStoreSales    = "/instore-sales-report"
	defaultTimeout      = 30 * time.Second
	maxErrorBodyLength  = 512
	contentTypeJSON     = "application/json; charset=utf-8"
	userAgent           = "restronaut/1.0"
)

// StatusError reports a non-2xx response from the order service.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s returned %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	AuthToken string
	Timeout   time.Duration
	// Transport overrides the underlying round tripper, mostly for tests.
	Transport http.RoundTripper
}

// Client calls the remote order-management service.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for the given base URL.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, services.Wrap(services.ErrConfiguration, "orderapi", "new", "base URL is required", nil)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout:   timeout,
			Transport: &transport{token: opts.AuthToken, next: opts.Transport},
		},
	}, nil
}

// NewFromConfig builds a client from the [order_service] section.
func NewFromConfig(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "orderapi", "new", "config is nil", nil)
	}
	return New(Options{
		BaseURL:   cfg.OrderService.BaseURL,
		AuthToken: cfg.OrderService.AuthToken,
		Timeout:   cfg.OrderServiceTimeout(),
	})
}

// CreateOrder posts a manual order. body carries the raw XML under "xml".
func (c *Client) CreateOrder(ctx context.Context, body map[string]string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return services.Wrap(services.ErrRemoteCall, "orderapi", "create order", "encode body", err)
	}
	return c.post(ctx, pathCreateOrder, payload, false)
}

// ReportPrepOrder posts an already-serialized prep order report, compressed.
func (c *Client) ReportPrepOrder(ctx context.Context, jsonBody string) error {
	return c.post(ctx, pathPrepSalesReport, []byte(jsonBody), true)
}

// ReportInStoreSales posts an in-store sales report, compressed.
func (c *Client) ReportInStoreSales(ctx context.Context, body map[string]string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return services.Wrap(services.ErrRemoteCall, "orderapi", "instore sales report", "encode body", err)
	}
	return c.post(ctx, pathInStoreSales, payload, true)
}

func (c *Client) post(ctx context.Context, path string, body []byte, compress bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return services.Wrap(services.ErrRemoteCall, "orderapi", path, "build request", err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if compress {
		req.Header.Set(HeaderCompressionMarker, "gzip")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return services.Wrap(services.ErrRemoteCall, "orderapi", path, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLength))
		statusErr := &StatusError{
			Method:     http.MethodPost,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
		return services.Wrap(services.ErrRemoteCall, "orderapi", path, "unexpected status", statusErr)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
