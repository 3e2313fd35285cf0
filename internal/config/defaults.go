package config

import "runtime"

const (
	defaultLogDir                = "~/.local/share/restronaut/logs"
	defaultLogRetentionDays      = 30
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultAPIBind               = "127.0.0.1:5000"
	defaultOrderServiceTimeout   = 30
	defaultArchiveTimeout        = 60
	defaultSalesFilter           = "*.xml"
	defaultManualOrderFilter     = "OUT*.xml"
	defaultSalesRetryBudget      = 5
	defaultManualRetryBudget     = 3
	defaultRetryDelayMillis      = 1000
	defaultRefreshIntervalMillis = 1000
	defaultSettleDelayMillis     = 250
	defaultMaxConcurrency        = 8
	defaultShutdownGraceSeconds  = 10
	defaultNotifyRequestTimeout  = 10
)

// defaultXMLRoot is the folder tree the POS terminal reads and writes.
func defaultXMLRoot() string {
	if runtime.GOOS == "windows" {
		return "C:/sc/xml"
	}
	return "~/sc/xml"
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	root := defaultXMLRoot()
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		OrderService: OrderService{
			TimeoutSeconds: defaultOrderServiceTimeout,
		},
		Archive: Archive{
			TimeoutSeconds: defaultArchiveTimeout,
		},
		SalesWatch: Watch{
			Enabled:               true,
			Path:                  root + "/OUT",
			Filter:                defaultSalesFilter,
			Kinds:                 []string{"CheckFinalization", "PrepOrder"},
			RetryBudget:           defaultSalesRetryBudget,
			RetryDelayMillis:      defaultRetryDelayMillis,
			RefreshIntervalMillis: defaultRefreshIntervalMillis,
			SettleDelayMillis:     defaultSettleDelayMillis,
		},
		ManualOrderWatch: Watch{
			Enabled:               true,
			Path:                  root + "/CONFIRM",
			Filter:                defaultManualOrderFilter,
			Kinds:                 []string{"ManualOrder"},
			RetryBudget:           defaultManualRetryBudget,
			RetryDelayMillis:      defaultRetryDelayMillis,
			RefreshIntervalMillis: defaultRefreshIntervalMillis,
			SettleDelayMillis:     defaultSettleDelayMillis,
		},
		Workflow: Workflow{
			MaxConcurrency:       defaultMaxConcurrency,
			ShutdownGraceSeconds: defaultShutdownGraceSeconds,
		},
		Ingress: Ingress{
			OrderDir:    root + "/inorder",
			CurbsideDir: root + "/in",
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Failures:       true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
