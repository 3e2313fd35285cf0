package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"restronaut/internal/config"
)

func setOrderServiceEnv(t *testing.T) {
	t.Helper()
	t.Setenv("RESTRONAUT_ORDER_SERVICE_URL", "https://orders.example.com/api/")
	t.Setenv("RESTRONAUT_ORDER_SERVICE_TOKEN", "secret-token")
}

func TestLoadDefaultConfigUsesEnvAndExpandsPaths(t *testing.T) {
	setOrderServiceEnv(t)
	t.Setenv("RESTRONAUT_API_KEY", "env-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLogDir := filepath.Join(tempHome, ".local", "share", "restronaut", "logs")
	if cfg.Paths.LogDir != wantLogDir {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogDir)
	}
	if cfg.OrderService.BaseURL != "https://orders.example.com/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.OrderService.BaseURL)
	}
	if cfg.OrderService.AuthToken != "secret-token" {
		t.Fatalf("expected token from env, got %q", cfg.OrderService.AuthToken)
	}
	if cfg.API.APIKey != "env-key" {
		t.Fatalf("expected api key from env, got %q", cfg.API.APIKey)
	}
	if cfg.API.Bind != "127.0.0.1:5000" {
		t.Fatalf("unexpected api bind: %q", cfg.API.Bind)
	}
	if cfg.ArchiveEnabled() {
		t.Fatal("expected archive disabled by default")
	}
	if cfg.OrderServiceTimeout() != 30*time.Second {
		t.Fatalf("unexpected order service timeout: %s", cfg.OrderServiceTimeout())
	}

	dirs := cfg.Directories()
	if len(dirs) != 2 {
		t.Fatalf("expected two watched directories, got %d", len(dirs))
	}
	sales := dirs[0]
	if sales.Role != config.RoleSales {
		t.Fatalf("expected sales first, got %q", sales.Role)
	}
	if sales.Path != filepath.Join(tempHome, "sc", "xml", "OUT") {
		t.Fatalf("unexpected sales path: %q", sales.Path)
	}
	if sales.Filter != "*.xml" || sales.RetryBudget != 5 {
		t.Fatalf("unexpected sales defaults: filter=%q budget=%d", sales.Filter, sales.RetryBudget)
	}
	if sales.RetryDelay != time.Second || sales.RefreshInterval != time.Second {
		t.Fatalf("unexpected sales intervals: delay=%s refresh=%s", sales.RetryDelay, sales.RefreshInterval)
	}
	manual := dirs[1]
	if manual.Role != config.RoleManualOrder {
		t.Fatalf("expected manual order second, got %q", manual.Role)
	}
	if manual.Filter != "OUT*.xml" || manual.RetryBudget != 3 {
		t.Fatalf("unexpected manual order defaults: filter=%q budget=%d", manual.Filter, manual.RetryBudget)
	}
	if len(manual.Kinds) != 1 || manual.Kinds[0] != "ManualOrder" {
		t.Fatalf("unexpected manual order kinds: %v", manual.Kinds)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, sales.Path, manual.Path, cfg.Ingress.OrderDir, cfg.Ingress.CurbsideDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "restronaut.toml")

	type payload struct {
		OrderService struct {
			BaseURL   string `toml:"base_url"`
			AuthToken string `toml:"auth_token"`
		} `toml:"order_service"`
		SalesWatch struct {
			Path        string   `toml:"path"`
			Kinds       []string `toml:"kinds"`
			RetryBudget int      `toml:"retry_budget"`
		} `toml:"sales_watch"`
		ManualOrderWatch struct {
			Enabled bool `toml:"enabled"`
		} `toml:"manual_order_watch"`
		Archive struct {
			Provider string `toml:"provider"`
			Bucket   string `toml:"bucket"`
		} `toml:"archive"`
	}
	custom := payload{}
	custom.OrderService.BaseURL = "http://localhost:8080"
	custom.OrderService.AuthToken = "abc123"
	custom.SalesWatch.Path = filepath.Join(tempDir, "out")
	custom.SalesWatch.Kinds = []string{"PrepOrder", " PrepOrder ", "CheckFinalization"}
	custom.SalesWatch.RetryBudget = 2
	custom.ManualOrderWatch.Enabled = false
	custom.Archive.Provider = "GCS"
	custom.Archive.Bucket = "receipts"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	dirs := cfg.Directories()
	if len(dirs) != 1 || dirs[0].Role != config.RoleSales {
		t.Fatalf("expected only the sales folder, got %+v", dirs)
	}
	if dirs[0].RetryBudget != 2 {
		t.Fatalf("unexpected retry budget: %d", dirs[0].RetryBudget)
	}
	if strings.Join(dirs[0].Kinds, ",") != "PrepOrder,CheckFinalization" {
		t.Fatalf("expected deduplicated kinds, got %v", dirs[0].Kinds)
	}
	if cfg.Archive.Provider != "gcs" || !cfg.ArchiveEnabled() {
		t.Fatalf("expected gcs archive, got %q", cfg.Archive.Provider)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	setOrderServiceEnv(t)
	configPath := filepath.Join(t.TempDir(), "restronaut.toml")
	if err := os.WriteFile(configPath, []byte("[sales_watch]\nbogus = 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestValidateRequiresOrderService(t *testing.T) {
	cfg := config.Default()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected missing order service to fail validation")
	}
	if !strings.Contains(err.Error(), "order_service.base_url") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func validConfig() config.Config {
	cfg := config.Default()
	cfg.OrderService.BaseURL = "https://orders.example.com"
	cfg.OrderService.AuthToken = "token"
	return cfg
}

func TestValidateRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"bad scheme", func(c *config.Config) { c.OrderService.BaseURL = "ftp://x" }, "http or https"},
		{"zero timeout", func(c *config.Config) { c.OrderService.TimeoutSeconds = 0 }, "timeout_seconds"},
		{"unknown provider", func(c *config.Config) { c.Archive.Provider = "azure" }, "archive.provider"},
		{"s3 without keys", func(c *config.Config) {
			c.Archive.Provider = "s3"
			c.Archive.Bucket = "b"
		}, "archive.region"},
		{"gcs without bucket", func(c *config.Config) { c.Archive.Provider = "gcs" }, "archive.bucket"},
		{"no watches", func(c *config.Config) {
			c.SalesWatch.Enabled = false
			c.ManualOrderWatch.Enabled = false
		}, "at least one"},
		{"bad glob", func(c *config.Config) { c.SalesWatch.Filter = "[" }, "invalid glob"},
		{"zero budget", func(c *config.Config) { c.ManualOrderWatch.RetryBudget = 0 }, "retry_budget"},
		{"negative delay", func(c *config.Config) { c.SalesWatch.RetryDelayMillis = -1 }, "retry_delay_ms"},
		{"zero refresh", func(c *config.Config) { c.SalesWatch.RefreshIntervalMillis = 0 }, "refresh_interval_ms"},
		{"kind for wrong role", func(c *config.Config) { c.ManualOrderWatch.Kinds = []string{"PrepOrder"} }, "not handled"},
		{"no kinds", func(c *config.Config) { c.SalesWatch.Kinds = nil }, "kinds"},
		{"zero concurrency", func(c *config.Config) { c.Workflow.MaxConcurrency = 0 }, "max_concurrency"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateAcceptsDisabledWatchWithoutPath(t *testing.T) {
	cfg := validConfig()
	cfg.ManualOrderWatch.Enabled = false
	cfg.ManualOrderWatch.Path = ""
	cfg.ManualOrderWatch.Kinds = nil
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected disabled watch to be ignored, got %v", err)
	}
}

func TestArchiveEnvFallbackForS3(t *testing.T) {
	setOrderServiceEnv(t)
	t.Setenv("AWS_REGION", "us-east-2")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "shh")
	configPath := filepath.Join(t.TempDir(), "restronaut.toml")
	body := "[archive]\nprovider = \"s3\"\nbucket = \"checks\"\n"
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Archive.Region != "us-east-2" || cfg.Archive.AccessKey != "AKIA" || cfg.Archive.SecretKey != "shh" {
		t.Fatalf("expected archive credentials from env, got %+v", cfg.Archive)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	setOrderServiceEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Workflow.MaxConcurrency != 8 {
		t.Fatalf("unexpected max concurrency: %d", cfg.Workflow.MaxConcurrency)
	}
	if cfg.LockPath() != filepath.Join(cfg.Paths.LogDir, "restronaut.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}
}
