package constants

import "time"

// Centralized default values for timeouts, intervals, and related settings.
// Environment/config may override where supported.

const (
	// Database
	DBReadTimeoutDefault  = 8 * time.Second
	DBWriteTimeoutDefault = 6 * time.Second

	// Health
	HealthTimeoutDefault = 5 * time.Second

	// Config watcher
	ConfigWatcherIntervalDefault = 2 * time.Second

	// App shutdown
	GracefulShutdownTimeoutDefault = 10 * time.Second

	// HTTP server
	HTTPReadHeaderTimeout = 5 * time.Second
	HTTPReadTimeout       = 15 * time.Second
	HTTPWriteTimeout      = 30 * time.Second
	HTTPIdleTimeout       = 60 * time.Second

	// Resolve request deadline, covering candidate load and match log write
	ResolveTimeoutDefault = 10 * time.Second
)
