package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/joho/godotenv/autoload"

	"team-matcher/internal/aliases"
	"team-matcher/internal/api"
	"team-matcher/internal/constants"
	"team-matcher/internal/matcher"
	"team-matcher/pkg/config"
	"team-matcher/pkg/database"
	"team-matcher/pkg/health"
	"team-matcher/pkg/logging"
	"team-matcher/pkg/metrics"
	"team-matcher/pkg/monitoring"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logConfig(cfg))
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger setup:", err)
		os.Exit(1)
	}
	defer logger.Close()
	logger.Info("Starting team matcher",
		logging.String("version", version),
		logging.Any("config", cfg.GetConfigSummary()))

	monitoring.EnableProfiling(cfg.ProfilingEnabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.Default
	matching := metrics.NewMatching(reg)
	book := aliases.Open(cfg.AliasesYAMLPath, logger)
	matching.AliasesLoaded.Set(float64(book.Len()))

	hm := health.NewHealthManager(health.HealthConfig{Timeout: constants.HealthTimeoutDefault, Version: version}, logger)
	hm.RegisterChecker(health.NewAliasBookChecker(book))

	// The fixture store is optional; without it only the scoring endpoints work.
	var (
		db       *database.DB
		source   matcher.FixtureSource
		recorder matcher.MatchRecorder
		reader   api.FixtureReader
	)
	if cfg.DatabaseURL != "" {
		db, err = database.NewWithConfig(ctx, cfg)
		if err != nil {
			logger.Fatal("Database connection failed", err)
		}
		defer db.Close()
		guarded := matcher.NewGuardedStore(db, reg, logger)
		source, recorder, reader = guarded, guarded, db
		hm.RegisterChecker(health.NewDatabaseHealthChecker(db, "database"))
	} else {
		logger.Warn("DATABASE_URL not set, fixture endpoints disabled")
	}

	engine := matcher.NewEngine(matcher.ConfigFrom(cfg), book, source, recorder, matching, logger)

	var maxBatch atomic.Int64
	maxBatch.Store(int64(cfg.MaxBatchSize))
	srv := api.NewServer(api.Options{
		Engine:       engine,
		Store:        reader,
		Health:       health.NewHandler(hm),
		Logger:       logger,
		MaxBatchSize: func() int { return int(maxBatch.Load()) },
	})

	router := mux.NewRouter()
	var reqMetrics *monitoring.Metrics
	if cfg.MetricsEnabled {
		reqMetrics = monitoring.NewMetrics(512)
		router.Use(monitoring.Middleware(reqMetrics))
	}
	srv.Register(router)

	// Hot-reload matching knobs, log level and the alias book
	cw := config.NewWatcher(time.Duration(cfg.ConfigReloadIntervalSeconds)*time.Second, reg)
	cw.Start()
	defer cw.Close()
	go func() {
		for chg := range cw.Subscribe() {
			if chg.Err != nil {
				logger.Warn("Config reload rejected", logging.Error(chg.Err))
				continue
			}
			engine.ApplyConfig(matcher.ConfigFrom(chg.New))
			maxBatch.Store(int64(chg.New.MaxBatchSize))
			if chg.Has("LogLevel") {
				if lvl, err := logging.ParseLevel(chg.New.LogLevel); err == nil {
					logger.SetLevel(lvl)
				}
			}
			if chg.Has("AliasesYAMLPath") {
				path := chg.New.AliasesYAMLPath
				if path == "" {
					path = aliases.DefaultFileName
				}
				book.SetPath(path)
				reloadAliases(book, matching, logger)
			}
			if chg.Has("Metrics") || chg.Has("Profiling") {
				logger.Warn("Metrics and profiling changes apply on restart", logging.Any("fields", chg.Fields))
			}
			logger.Info("Config applied", logging.Any("fields", chg.Fields))
		}
	}()

	// SIGHUP re-reads the alias book in place
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for range hup {
			reloadAliases(book, matching, logger)
		}
	}()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: constants.HTTPReadHeaderTimeout,
		ReadTimeout:       constants.HTTPReadTimeout,
		WriteTimeout:      constants.HTTPWriteTimeout,
		IdleTimeout:       constants.HTTPIdleTimeout,
	}

	var adminServer *http.Server
	if cfg.ProfilingEnabled || cfg.MetricsEnabled {
		adminMux := http.NewServeMux()
		if cfg.ProfilingEnabled {
			monitoring.RegisterPprof(adminMux)
		}
		if cfg.MetricsEnabled {
			// Prometheus text format at the configured path
			adminMux.Handle(cfg.MetricsPath, reg.Handler())
			if cfg.MetricsPath != "/metrics.json" {
				adminMux.Handle("/metrics.json", monitoring.MetricsHandler(reqMetrics))
			}
		}
		adminServer = &http.Server{Addr: ":" + cfg.ProfilingPort, Handler: adminMux, ReadHeaderTimeout: constants.HTTPReadHeaderTimeout}
		go func() {
			logger.Info("Admin server (pprof/metrics) starting", logging.String("port", cfg.ProfilingPort))
			if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Admin HTTP server error", err)
			}
		}()
	}

	go func() {
		logger.Info("Server starting", logging.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.GracefulShutdownTimeoutDefault)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", err)
	}
	if adminServer != nil {
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Admin HTTP server shutdown error", err)
		}
	}
	logger.Info("Application shutdown complete")
}

func logConfig(cfg *config.Config) logging.LogConfig {
	lc := logging.DefaultLogConfig()
	if lvl, err := logging.ParseLevel(cfg.LogLevel); err == nil {
		lc.Level = lvl
	}
	lc.Format = cfg.LogFormat
	lc.EnableFile = cfg.EnableFileLogging
	lc.FilePath = cfg.LogFile
	return lc
}

func reloadAliases(book *aliases.Book, m *metrics.Matching, logger *logging.Logger) {
	if err := book.Reload(); err != nil {
		logger.Warn("Alias book reload failed, keeping previous entries", logging.Error(err))
		return
	}
	m.AliasesLoaded.Set(float64(book.Len()))
	logger.Info("Alias book reloaded", logging.Int("entries", book.Len()))
}
