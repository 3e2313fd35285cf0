package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

var allowedKinds = map[string]map[string]struct{}{
	RoleSales:       {"CheckFinalization": {}, "PrepOrder": {}},
	RoleManualOrder: {"ManualOrder": {}},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOrderService(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if !c.SalesWatch.Enabled && !c.ManualOrderWatch.Enabled {
		return errors.New("at least one of sales_watch or manual_order_watch must be enabled")
	}
	if err := validateWatch("sales_watch", RoleSales, c.SalesWatch); err != nil {
		return err
	}
	if err := validateWatch("manual_order_watch", RoleManualOrder, c.ManualOrderWatch); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateOrderService() error {
	if c.OrderService.BaseURL == "" || c.OrderService.AuthToken == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/restronaut/config.toml"
		}
		return fmt.Errorf("order_service.base_url and order_service.auth_token are required. Set RESTRONAUT_ORDER_SERVICE_URL/RESTRONAUT_ORDER_SERVICE_TOKEN or edit %s (create with 'restronaut config init')", defaultPath)
	}
	parsed, err := url.Parse(c.OrderService.BaseURL)
	if err != nil {
		return fmt.Errorf("order_service.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("order_service.base_url must be an http or https URL, got %q", c.OrderService.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("order_service.base_url is missing a host: %q", c.OrderService.BaseURL)
	}
	if c.OrderService.TimeoutSeconds <= 0 {
		return errors.New("order_service.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateArchive() error {
	switch c.Archive.Provider {
	case "":
		return nil
	case "s3":
		if c.Archive.Bucket == "" {
			return errors.New("archive.bucket must be set when archive.provider is s3")
		}
		if c.Archive.Region == "" || c.Archive.AccessKey == "" || c.Archive.SecretKey == "" {
			return errors.New("archive.region, archive.access_key, and archive.secret_key must be set when archive.provider is s3")
		}
	case "gcs":
		if c.Archive.Bucket == "" {
			return errors.New("archive.bucket must be set when archive.provider is gcs")
		}
	default:
		return fmt.Errorf("archive.provider: unsupported value %q (expected s3 or gcs)", c.Archive.Provider)
	}
	if c.Archive.TimeoutSeconds <= 0 {
		return errors.New("archive.timeout_seconds must be positive")
	}
	return nil
}

func validateWatch(section, role string, w Watch) error {
	if !w.Enabled {
		return nil
	}
	if strings.TrimSpace(w.Path) == "" {
		return fmt.Errorf("%s.path must be set when %s.enabled is true", section, section)
	}
	if _, err := filepath.Match(w.Filter, ""); err != nil {
		return fmt.Errorf("%s.filter: invalid glob %q: %w", section, w.Filter, err)
	}
	if w.RetryBudget < 1 {
		return fmt.Errorf("%s.retry_budget must be at least 1", section)
	}
	if w.RetryDelayMillis < 0 {
		return fmt.Errorf("%s.retry_delay_ms must not be negative", section)
	}
	if w.RefreshIntervalMillis <= 0 {
		return fmt.Errorf("%s.refresh_interval_ms must be positive", section)
	}
	if w.RescanIntervalSeconds < 0 {
		return fmt.Errorf("%s.rescan_interval_seconds must not be negative", section)
	}
	if w.SettleDelayMillis < 0 {
		return fmt.Errorf("%s.settle_delay_ms must not be negative", section)
	}
	if len(w.Kinds) == 0 {
		return fmt.Errorf("%s.kinds must list at least one document kind", section)
	}
	allowed := allowedKinds[role]
	for _, kind := range w.Kinds {
		if _, ok := allowed[kind]; !ok {
			return fmt.Errorf("%s.kinds: %q is not handled by a %s folder", section, kind, role)
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.MaxConcurrency < 1 {
		return errors.New("workflow.max_concurrency must be at least 1")
	}
	if c.Workflow.ShutdownGraceSeconds < 0 {
		return errors.New("workflow.shutdown_grace_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}
