package testsupport

import (
	"path/filepath"
	"testing"

	"restronaut/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Watch folders sit under the temp root as OUT and CONFIRM; retry delays are
// shortened so tests do not sleep for seconds.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.OrderService.BaseURL = "http://127.0.0.1:1"
	cfgVal.OrderService.AuthToken = "test-token"
	cfgVal.SalesWatch.Path = filepath.Join(base, "OUT")
	cfgVal.SalesWatch.RetryDelayMillis = 1
	cfgVal.SalesWatch.RefreshIntervalMillis = 20
	cfgVal.ManualOrderWatch.Path = filepath.Join(base, "CONFIRM")
	cfgVal.ManualOrderWatch.RetryDelayMillis = 1
	cfgVal.ManualOrderWatch.RefreshIntervalMillis = 20
	cfgVal.Workflow.ShutdownGraceSeconds = 1
	cfgVal.Ingress.OrderDir = filepath.Join(base, "inorder")
	cfgVal.Ingress.CurbsideDir = filepath.Join(base, "in")
	cfgVal.Ingress.CreateFileDir = filepath.Join(base, "created")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithOrderService points the config at a test server.
func WithOrderService(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.OrderService.BaseURL = baseURL
	}
}

// WithAPIKey sets the HTTP ingress API key.
func WithAPIKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.APIKey = key
	}
}

// WithArchive enables archiving to bucket with the given store name.
func WithArchive(bucket, storeName string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archive.Provider = "s3"
		b.cfg.Archive.Bucket = bucket
		b.cfg.Archive.StoreName = storeName
		b.cfg.Archive.Region = "us-east-1"
		b.cfg.Archive.AccessKey = "test"
		b.cfg.Archive.SecretKey = "test"
	}
}

// WithRetry overrides the retry budget of both watch folders.
func WithRetry(budget, delayMillis int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.SalesWatch.RetryBudget = budget
		b.cfg.SalesWatch.RetryDelayMillis = delayMillis
		b.cfg.ManualOrderWatch.RetryBudget = budget
		b.cfg.ManualOrderWatch.RetryDelayMillis = delayMillis
	}
}

