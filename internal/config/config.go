package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Watched folder roles.
const (
	RoleSales       = "sales"
	RoleManualOrder = "manual_order"
)

// Paths contains runtime directory configuration.
type Paths struct {
	LogDir string `toml:"log_dir"`
}

// API contains the HTTP ingress bind address and its API key gate.
type API struct {
	Bind   string `toml:"bind"`
	APIKey string `toml:"api_key"`
}

// OrderService contains the remote order-management service connection.
type OrderService struct {
	BaseURL        string `toml:"base_url"`
	AuthToken      string `toml:"auth_token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Archive contains optional object storage settings for original artifacts.
type Archive struct {
	Provider        string `toml:"provider"` // "", "s3", or "gcs"
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
	AccessKey       string `toml:"access_key"`
	SecretKey       string `toml:"secret_key"`
	Endpoint        string `toml:"endpoint"`
	CredentialsFile string `toml:"credentials_file"`
	StoreName       string `toml:"store_name"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	// RequireSuccess retains the source file when the upload fails. When false
	// the upload is best-effort and the file is deleted regardless.
	RequireSuccess bool `toml:"require_success"`
}

// Watch describes one drop folder.
type Watch struct {
	Enabled               bool     `toml:"enabled"`
	Path                  string   `toml:"path"`
	Filter                string   `toml:"filter"`
	Kinds                 []string `toml:"kinds"`
	RetryBudget           int      `toml:"retry_budget"`
	RetryDelayMillis      int      `toml:"retry_delay_ms"`
	RefreshIntervalMillis int      `toml:"refresh_interval_ms"`
	RescanIntervalSeconds int      `toml:"rescan_interval_seconds"`
	SettleDelayMillis     int      `toml:"settle_delay_ms"`
	Resubscribe           bool     `toml:"resubscribe"`
}

// Workflow contains file processing concurrency settings.
type Workflow struct {
	MaxConcurrency       int `toml:"max_concurrency"`
	ShutdownGraceSeconds int `toml:"shutdown_grace_seconds"`
}

// Ingress contains the folders the HTTP endpoints write into.
type Ingress struct {
	OrderDir      string `toml:"order_dir"`
	CurbsideDir   string `toml:"curbside_dir"`
	CreateFileDir string `toml:"create_file_dir"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Failures       bool   `toml:"failures"`
	Unrecognized   bool   `toml:"unrecognized"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for restronaut.
//
// Configuration sections by subsystem:
//   - Paths: log and lock file directory
//   - API: HTTP ingress bind address and API key
//   - OrderService: remote order-management service
//   - Archive: optional object storage for original check files
//   - SalesWatch / ManualOrderWatch: the two drop folders
//   - Workflow: processing concurrency and shutdown grace
//   - Ingress: folders written by the HTTP endpoints
//   - Notifications: ntfy alerts for retained files
//   - Logging: log format, level, and retention
type Config struct {
	Paths            Paths         `toml:"paths"`
	API              API           `toml:"api"`
	OrderService     OrderService  `toml:"order_service"`
	Archive          Archive       `toml:"archive"`
	SalesWatch       Watch         `toml:"sales_watch"`
	ManualOrderWatch Watch         `toml:"manual_order_watch"`
	Workflow         Workflow      `toml:"workflow"`
	Ingress          Ingress       `toml:"ingress"`
	Notifications    Notifications `toml:"notifications"`
	Logging          Logging       `toml:"logging"`
}

// Directory is the resolved, immutable view of one watched folder.
type Directory struct {
	Name            string
	Role            string
	Path            string
	Filter          string
	Kinds           []string
	RetryBudget     int
	RetryDelay      time.Duration
	RefreshInterval time.Duration
	RescanInterval  time.Duration
	// SettleDelay is how long a file must go without change events before
	// it is scheduled. Zero schedules on the first event.
	SettleDelay     time.Duration
	Resubscribe     bool
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/restronaut/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	candidates := []string{defaultPath}
	if projectPath, err := filepath.Abs("restronaut.toml"); err == nil {
		candidates = append(candidates, projectPath)
	}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), "restronaut.toml"))
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log directory, every enabled watch folder, and
// the ingress folders.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir}
	for _, dir := range c.Directories() {
		dirs = append(dirs, dir.Path)
	}
	dirs = append(dirs, c.IngressDirectories()...)
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Directories returns the enabled watched folders in a stable order.
func (c *Config) Directories() []Directory {
	var out []Directory
	if c.SalesWatch.Enabled {
		out = append(out, c.SalesWatch.resolve(RoleSales))
	}
	if c.ManualOrderWatch.Enabled {
		out = append(out, c.ManualOrderWatch.resolve(RoleManualOrder))
	}
	return out
}

func (w Watch) resolve(role string) Directory {
	kinds := make([]string, len(w.Kinds))
	copy(kinds, w.Kinds)
	return Directory{
		Name:            role,
		Role:            role,
		Path:            w.Path,
		Filter:          w.Filter,
		Kinds:           kinds,
		RetryBudget:     w.RetryBudget,
		RetryDelay:      time.Duration(w.RetryDelayMillis) * time.Millisecond,
		RefreshInterval: time.Duration(w.RefreshIntervalMillis) * time.Millisecond,
		RescanInterval:  time.Duration(w.RescanIntervalSeconds) * time.Second,
		SettleDelay:     time.Duration(w.SettleDelayMillis) * time.Millisecond,
		Resubscribe:     w.Resubscribe,
	}
}

// IngressDirectories returns the non-empty folders written by the HTTP endpoints.
func (c *Config) IngressDirectories() []string {
	var out []string
	for _, dir := range []string{c.Ingress.OrderDir, c.Ingress.CurbsideDir, c.Ingress.CreateFileDir} {
		if strings.TrimSpace(dir) != "" {
			out = append(out, dir)
		}
	}
	return out
}

// OrderServiceTimeout returns the per-call timeout for the remote order service.
func (c *Config) OrderServiceTimeout() time.Duration {
	return time.Duration(c.OrderService.TimeoutSeconds) * time.Second
}

// ArchiveEnabled reports whether an object storage provider is configured.
func (c *Config) ArchiveEnabled() bool {
	return strings.TrimSpace(c.Archive.Provider) != ""
}

// ArchiveTimeout returns the per-upload timeout.
func (c *Config) ArchiveTimeout() time.Duration {
	return time.Duration(c.Archive.TimeoutSeconds) * time.Second
}

// ShutdownGrace returns how long in-flight files may run after shutdown is requested.
func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.Workflow.ShutdownGraceSeconds) * time.Second
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "restronaut.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
