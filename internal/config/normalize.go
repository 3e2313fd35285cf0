package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeOrderService()
	if err := c.normalizeArchive(); err != nil {
		return err
	}
	if err := c.normalizeWatch("sales_watch", &c.SalesWatch, defaultSalesFilter, defaultSalesRetryBudget); err != nil {
		return err
	}
	if err := c.normalizeWatch("manual_order_watch", &c.ManualOrderWatch, defaultManualOrderFilter, defaultManualRetryBudget); err != nil {
		return err
	}
	if err := c.normalizeIngress(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.API.APIKey = strings.TrimSpace(c.API.APIKey)
	if c.API.APIKey == "" {
		if value, ok := os.LookupEnv("RESTRONAUT_API_KEY"); ok {
			c.API.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeOrderService() {
	c.OrderService.BaseURL = strings.TrimRight(strings.TrimSpace(c.OrderService.BaseURL), "/")
	if c.OrderService.BaseURL == "" {
		if value, ok := os.LookupEnv("RESTRONAUT_ORDER_SERVICE_URL"); ok {
			c.OrderService.BaseURL = strings.TrimRight(strings.TrimSpace(value), "/")
		}
	}
	c.OrderService.AuthToken = strings.TrimSpace(c.OrderService.AuthToken)
	if c.OrderService.AuthToken == "" {
		if value, ok := os.LookupEnv("RESTRONAUT_ORDER_SERVICE_TOKEN"); ok {
			c.OrderService.AuthToken = strings.TrimSpace(value)
		}
	}
	if c.OrderService.TimeoutSeconds == 0 {
		c.OrderService.TimeoutSeconds = defaultOrderServiceTimeout
	}
}

func (c *Config) normalizeArchive() error {
	c.Archive.Provider = strings.ToLower(strings.TrimSpace(c.Archive.Provider))
	c.Archive.Bucket = strings.TrimSpace(c.Archive.Bucket)
	c.Archive.Endpoint = strings.TrimSpace(c.Archive.Endpoint)
	c.Archive.StoreName = strings.TrimSpace(c.Archive.StoreName)
	if c.Archive.TimeoutSeconds == 0 {
		c.Archive.TimeoutSeconds = defaultArchiveTimeout
	}
	if c.Archive.Provider == "s3" {
		c.Archive.Region = envFallback(c.Archive.Region, "AWS_REGION")
		c.Archive.AccessKey = envFallback(c.Archive.AccessKey, "AWS_ACCESS_KEY_ID")
		c.Archive.SecretKey = envFallback(c.Archive.SecretKey, "AWS_SECRET_ACCESS_KEY")
	}
	if strings.TrimSpace(c.Archive.CredentialsFile) != "" {
		var err error
		if c.Archive.CredentialsFile, err = expandPath(c.Archive.CredentialsFile); err != nil {
			return fmt.Errorf("archive.credentials_file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeWatch(section string, w *Watch, defaultFilter string, defaultBudget int) error {
	var err error
	if strings.TrimSpace(w.Path) != "" {
		if w.Path, err = expandPath(w.Path); err != nil {
			return fmt.Errorf("%s.path: %w", section, err)
		}
	}
	w.Filter = strings.TrimSpace(w.Filter)
	if w.Filter == "" {
		w.Filter = defaultFilter
	}
	if w.RetryBudget == 0 {
		w.RetryBudget = defaultBudget
	}
	if w.RefreshIntervalMillis == 0 {
		w.RefreshIntervalMillis = defaultRefreshIntervalMillis
	}
	kinds := make([]string, 0, len(w.Kinds))
	seen := make(map[string]struct{}, len(w.Kinds))
	for _, kind := range w.Kinds {
		kind = strings.TrimSpace(kind)
		if kind == "" {
			continue
		}
		if _, ok := seen[kind]; ok {
			continue
		}
		seen[kind] = struct{}{}
		kinds = append(kinds, kind)
	}
	w.Kinds = kinds
	return nil
}

func (c *Config) normalizeIngress() error {
	var err error
	if c.Ingress.OrderDir, err = expandPath(strings.TrimSpace(c.Ingress.OrderDir)); err != nil {
		return fmt.Errorf("ingress.order_dir: %w", err)
	}
	if c.Ingress.CurbsideDir, err = expandPath(strings.TrimSpace(c.Ingress.CurbsideDir)); err != nil {
		return fmt.Errorf("ingress.curbside_dir: %w", err)
	}
	if c.Ingress.CreateFileDir, err = expandPath(strings.TrimSpace(c.Ingress.CreateFileDir)); err != nil {
		return fmt.Errorf("ingress.create_file_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func envFallback(value, key string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	if env, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(env)
	}
	return ""
}
