package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"restronaut/internal/config"
	"restronaut/internal/testsupport"
)

type recordedRequest struct {
	Path          string
	Authorization string
	Encoding      string
}

type orderServiceStub struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (s *orderServiceStub) handler(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	s.mu.Lock()
	s.requests = append(s.requests, recordedRequest{
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
		Encoding:      r.Header.Get("Content-Encoding"),
	})
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *orderServiceStub) snapshot() []recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedRequest(nil), s.requests...)
}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	orders     *orderServiceStub
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	homeDir := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("RESTRONAUT_ORDER_SERVICE_TOKEN", "")
	t.Setenv("RESTRONAUT_API_KEY", "")
	t.Setenv("RESTRONAUT_ORDER_SERVICE_URL", "")

	orders := &orderServiceStub{}
	srv := httptest.NewServer(http.HandlerFunc(orders.handler))
	t.Cleanup(srv.Close)

	opts = append([]testsupport.ConfigOption{testsupport.WithOrderService(srv.URL)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	configPath := filepath.Join(homeDir, ".config", "restronaut", "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, orders: orders}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
