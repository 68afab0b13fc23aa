package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseURL string
	Port        string

	// Database performance settings
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime int // minutes
	DBConnMaxIdleTime int // minutes
	DBReadTimeout     time.Duration
	DBWriteTimeout    time.Duration

	// Logging
	LogLevel          string
	LogFormat         string // "json" or "text"
	LogFile           string
	EnableFileLogging bool

	// Matching knobs; all of these are hot-reloadable
	MatchThreshold   int  // minimum fixture score for a match, 0..100
	AmbiguityMargin  int  // runner-up within this many points makes a match ambiguous
	ClearSpecSymbols bool // strip punctuation and whitespace before scoring
	MaxLengthDiff    uint // 0 disables the length gate
	AllowSwapped     bool // also try home/away swapped
	AliasesYAMLPath  string
	MaxBatchSize     int

	// Environment & profiling/metrics
	Env              string // development, staging, production
	ProfilingEnabled bool
	ProfilingPort    string // also used as admin port
	MetricsEnabled   bool
	MetricsPath      string

	ConfigReloadIntervalSeconds int
}

func Load() *Config {
	env := strings.ToLower(getEnv("ENV", "development"))

	// profiling and metrics default on outside production
	devDefault := strconv.FormatBool(env == "development" || env == "staging")

	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8080"),

		DBMaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxLifetime: getInt("DB_CONN_MAX_LIFETIME_MINUTES", 10),
		DBConnMaxIdleTime: getInt("DB_CONN_MAX_IDLE_TIME_MINUTES", 5),
		DBReadTimeout:     getDuration("DB_READ_TIMEOUT", 8*time.Second),
		DBWriteTimeout:    getDuration("DB_WRITE_TIMEOUT", 6*time.Second),

		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		LogFile:           getEnv("LOG_FILE", "/var/log/team-matcher/app.log"),
		EnableFileLogging: getBool("ENABLE_FILE_LOGGING", "false"),

		MatchThreshold:   getInt("MATCH_THRESHOLD", 80),
		AmbiguityMargin:  getInt("AMBIGUITY_MARGIN", 5),
		ClearSpecSymbols: getBool("CLEAR_SPEC_SYMBOLS", "true"),
		MaxLengthDiff:    uint(max(getInt("MAX_LENGTH_DIFF", 0), 0)),
		AllowSwapped:     getBool("ALLOW_SWAPPED", "true"),
		AliasesYAMLPath:  getEnv("ALIASES_YAML_PATH", ""),
		MaxBatchSize:     getInt("MAX_BATCH_SIZE", 500),

		Env:              env,
		ProfilingEnabled: getBool("PROFILING_ENABLED", devDefault),
		ProfilingPort:    getEnv("PROFILING_PORT", "6060"),
		MetricsEnabled:   getBool("METRICS_ENABLED", devDefault),
		MetricsPath:      getEnv("METRICS_PATH", "/metrics"),

		ConfigReloadIntervalSeconds: getInt("CONFIG_RELOAD_INTERVAL_SECONDS", 2),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getInt falls back to def when the variable is unset; a malformed value
// yields -1 so Validate reports it instead of silently using the default.
func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}

func getBool(key, def string) bool {
	b, _ := strconv.ParseBool(getEnv(key, def))
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return def
	}
	return d
}
