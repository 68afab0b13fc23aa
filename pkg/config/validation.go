package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	errs "team-matcher/pkg/errors"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error for field '%s' with value '%s': %s", e.Field, e.Value, e.Message)
}

// ConfigValidator collects validation errors
type ConfigValidator struct {
	errors []ValidationError
}

// NewConfigValidator creates a new configuration validator
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{errors: make([]ValidationError, 0)}
}

// AddError adds a validation error
func (cv *ConfigValidator) AddError(field, value, message string) {
	cv.errors = append(cv.errors, ValidationError{Field: field, Value: value, Message: message})
}

// HasErrors returns true if there are validation errors
func (cv *ConfigValidator) HasErrors() bool { return len(cv.errors) > 0 }

// GetErrors returns all validation errors
func (cv *ConfigValidator) GetErrors() []ValidationError { return cv.errors }

// GetErrorsAsString returns all validation errors as a formatted string
func (cv *ConfigValidator) GetErrorsAsString() string {
	var lines []string
	for _, err := range cv.errors {
		lines = append(lines, err.Error())
	}
	return strings.Join(lines, "\n")
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	validator := NewConfigValidator()

	c.validateFormats(validator)
	c.validateRanges(validator)
	c.validateEnvironment(validator)

	if validator.HasErrors() {
		return errs.NewValidation("config.Validate", fmt.Sprintf("configuration validation failed:\n%s", validator.GetErrorsAsString()), nil)
	}
	return nil
}

func validPort(p string) bool {
	port, err := strconv.Atoi(p)
	return err == nil && port >= 1 && port <= 65535
}

// validateFormats checks format validity of configuration values
func (c *Config) validateFormats(validator *ConfigValidator) {
	// DATABASE_URL is optional: without it the service runs scoring endpoints only
	if c.DatabaseURL != "" && (!strings.Contains(c.DatabaseURL, "@") || !strings.Contains(c.DatabaseURL, "/")) {
		validator.AddError("DATABASE_URL", maskString(c.DatabaseURL, 8), "invalid database DSN format (expected user:pass@tcp(host:port)/db)")
	}

	if !validPort(c.Port) {
		validator.AddError("PORT", c.Port, "invalid port number (must be 1-65535)")
	}
	if c.ProfilingEnabled && !validPort(c.ProfilingPort) {
		validator.AddError("PROFILING_PORT", c.ProfilingPort, "invalid profiling port number")
	}

	validLogLevels := []string{"trace", "debug", "info", "warn", "error", "fatal"}
	if c.LogLevel != "" && !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		validator.AddError("LOG_LEVEL", c.LogLevel, "invalid log level (must be one of: trace, debug, info, warn, error, fatal)")
	}
	if c.LogFormat != "" && c.LogFormat != "json" && c.LogFormat != "text" {
		validator.AddError("LOG_FORMAT", c.LogFormat, "invalid log format (must be 'json' or 'text')")
	}
	if c.MetricsEnabled && !strings.HasPrefix(c.MetricsPath, "/") {
		validator.AddError("METRICS_PATH", c.MetricsPath, "metrics path must start with '/'")
	}
}

// validateRanges checks value ranges
func (c *Config) validateRanges(validator *ConfigValidator) {
	if c.MatchThreshold < 0 || c.MatchThreshold > 100 {
		validator.AddError("MATCH_THRESHOLD", strconv.Itoa(c.MatchThreshold), "match threshold must be between 0 and 100")
	}
	if c.AmbiguityMargin < 0 || c.AmbiguityMargin > 100 {
		validator.AddError("AMBIGUITY_MARGIN", strconv.Itoa(c.AmbiguityMargin), "ambiguity margin must be between 0 and 100")
	}
	if c.MaxBatchSize < 1 || c.MaxBatchSize > 10000 {
		validator.AddError("MAX_BATCH_SIZE", strconv.Itoa(c.MaxBatchSize), "batch size must be between 1 and 10000")
	}
	if c.ConfigReloadIntervalSeconds < 1 {
		validator.AddError("CONFIG_RELOAD_INTERVAL_SECONDS", strconv.Itoa(c.ConfigReloadIntervalSeconds), "reload interval must be at least 1 second")
	}

	if c.DBMaxOpenConns < 1 || c.DBMaxOpenConns > 1000 {
		validator.AddError("DB_MAX_OPEN_CONNS", strconv.Itoa(c.DBMaxOpenConns), "max open connections must be between 1 and 1000")
	}
	if c.DBMaxIdleConns < 0 || c.DBMaxIdleConns > c.DBMaxOpenConns {
		validator.AddError("DB_MAX_IDLE_CONNS", strconv.Itoa(c.DBMaxIdleConns), "max idle connections must be between 0 and max open connections")
	}
	if c.DBConnMaxLifetime < 1 || c.DBConnMaxLifetime > 60 {
		validator.AddError("DB_CONN_MAX_LIFETIME_MINUTES", strconv.Itoa(c.DBConnMaxLifetime), "connection max lifetime must be between 1 and 60 minutes")
	}
	if c.DBConnMaxIdleTime < 1 || c.DBConnMaxIdleTime > 30 {
		validator.AddError("DB_CONN_MAX_IDLE_TIME_MINUTES", strconv.Itoa(c.DBConnMaxIdleTime), "connection max idle time must be between 1 and 30 minutes")
	}
}

// validateEnvironment checks the filesystem and port layout
func (c *Config) validateEnvironment(validator *ConfigValidator) {
	if c.EnableFileLogging && c.LogFile != "" {
		if err := checkDirectoryWritable(c.LogFile); err != nil {
			validator.AddError("LOG_FILE", c.LogFile, fmt.Sprintf("log directory is not writable: %v", err))
		}
	}
	if c.AliasesYAMLPath != "" {
		if _, err := os.Stat(c.AliasesYAMLPath); err != nil {
			validator.AddError("ALIASES_YAML_PATH", c.AliasesYAMLPath, "alias file is not readable")
		}
	}
	if c.ProfilingEnabled && c.ProfilingPort == c.Port {
		validator.AddError("PROFILING_PORT", c.ProfilingPort, "port conflict with PORT")
	}
}

// checkDirectoryWritable creates the log file's directory if needed and
// probes it with a temporary file.
func checkDirectoryWritable(filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.NewValidation("config.checkDirectoryWritable", "cannot create directory", err)
	}
	f, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		return errs.NewValidation("config.checkDirectoryWritable", "directory is not writable", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// GetConfigSummary returns a loggable view of the configuration with secrets masked
func (c *Config) GetConfigSummary() map[string]any {
	return map[string]any{
		"database_url":       maskString(c.DatabaseURL, 8),
		"port":               c.Port,
		"env":                c.Env,
		"match_threshold":    c.MatchThreshold,
		"ambiguity_margin":   c.AmbiguityMargin,
		"clear_spec_symbols": c.ClearSpecSymbols,
		"max_length_diff":    c.MaxLengthDiff,
		"allow_swapped":      c.AllowSwapped,
		"aliases_yaml_path":  c.AliasesYAMLPath,
		"max_batch_size":     c.MaxBatchSize,
		"log_level":          c.LogLevel,
		"log_format":         c.LogFormat,
		"metrics_enabled":    c.MetricsEnabled,
		"profiling_enabled":  c.ProfilingEnabled,
	}
}

// maskString masks sensitive strings for logging/display
func maskString(s string, keepFirst int) string {
	if s == "" {
		return ""
	}
	if len(s) <= keepFirst {
		return strings.Repeat("*", len(s))
	}
	return s[:keepFirst] + strings.Repeat("*", len(s)-keepFirst)
}
