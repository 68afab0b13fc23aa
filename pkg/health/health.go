package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"team-matcher/pkg/logging"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusUnknown   HealthStatus = "unknown"
)

// ComponentHealth represents the health of a single component
type ComponentHealth struct {
	Name        string         `json:"name"`
	Status      HealthStatus   `json:"status"`
	Message     string         `json:"message,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Duration    time.Duration  `json:"duration"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// SystemHealth represents the overall system health
type SystemHealth struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentHealth `json:"components"`
	Summary    HealthSummary              `json:"summary"`
}

// HealthSummary provides aggregated health information
type HealthSummary struct {
	TotalComponents int `json:"total_components"`
	HealthyCount    int `json:"healthy_count"`
	DegradedCount   int `json:"degraded_count"`
	UnhealthyCount  int `json:"unhealthy_count"`
	UnknownCount    int `json:"unknown_count"`
}

// HealthChecker defines the interface for health check functions
type HealthChecker interface {
	Check(ctx context.Context) ComponentHealth
	Name() string
}

// HealthCheckFunc adapts a function to HealthChecker.
type HealthCheckFunc struct {
	name string
	fn   func(ctx context.Context) ComponentHealth
}

func (hcf HealthCheckFunc) Check(ctx context.Context) ComponentHealth { return hcf.fn(ctx) }
func (hcf HealthCheckFunc) Name() string                              { return hcf.name }

// NewHealthCheckFunc creates a new HealthCheckFunc
func NewHealthCheckFunc(name string, fn func(ctx context.Context) ComponentHealth) HealthChecker {
	return HealthCheckFunc{name: name, fn: fn}
}

// HealthManager runs registered checkers and caches their last result.
type HealthManager struct {
	checkers  map[string]HealthChecker
	results   map[string]ComponentHealth
	startTime time.Time
	version   string
	timeout   time.Duration
	logger    *logging.ComponentLogger
	mu        sync.RWMutex
}

// HealthConfig holds configuration for the health manager
type HealthConfig struct {
	Timeout time.Duration `json:"timeout"`
	Version string        `json:"version"`
}

// DefaultHealthConfig returns sensible defaults
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{Timeout: 5 * time.Second, Version: "dev"}
}

// NewHealthManager creates a new health manager
func NewHealthManager(config HealthConfig, logger *logging.Logger) *HealthManager {
	return &HealthManager{
		checkers:  make(map[string]HealthChecker),
		results:   make(map[string]ComponentHealth),
		startTime: time.Now(),
		version:   config.Version,
		timeout:   config.Timeout,
		logger:    logger.WithComponent("health"),
	}
}

// RegisterChecker registers a health checker
func (hm *HealthManager) RegisterChecker(checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	name := checker.Name()
	hm.checkers[name] = checker
	hm.results[name] = ComponentHealth{Name: name, Status: HealthStatusUnknown}
	hm.logger.Info("Registered health checker", logging.String("checker", name))
}

// CheckAll runs all health checks concurrently, each under the manager timeout.
func (hm *HealthManager) CheckAll(ctx context.Context) SystemHealth {
	start := time.Now()

	hm.mu.RLock()
	checkers := make([]HealthChecker, 0, len(hm.checkers))
	for _, c := range hm.checkers {
		checkers = append(checkers, c)
	}
	hm.mu.RUnlock()

	results := make(chan ComponentHealth, len(checkers))
	var wg sync.WaitGroup
	for _, checker := range checkers {
		wg.Add(1)
		go func(c HealthChecker) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, hm.timeout)
			defer cancel()
			r := c.Check(checkCtx)
			r.Name = c.Name()
			results <- r
		}(checker)
	}
	wg.Wait()
	close(results)

	components := make(map[string]ComponentHealth, len(checkers))
	hm.mu.Lock()
	for r := range results {
		components[r.Name] = r
		hm.results[r.Name] = r
	}
	hm.mu.Unlock()

	status := determineSystemHealth(components)
	hm.logger.Debug("Completed health check",
		logging.String("status", string(status)),
		logging.Duration("duration", time.Since(start)),
		logging.Int("components", len(components)))

	return hm.system(status, components)
}

// GetCachedHealth returns the last known health status without running checks.
func (hm *HealthManager) GetCachedHealth() SystemHealth {
	hm.mu.RLock()
	components := make(map[string]ComponentHealth, len(hm.results))
	for name, r := range hm.results {
		components[name] = r
	}
	hm.mu.RUnlock()
	return hm.system(determineSystemHealth(components), components)
}

func (hm *HealthManager) system(status HealthStatus, components map[string]ComponentHealth) SystemHealth {
	return SystemHealth{
		Status:     status,
		Timestamp:  time.Now(),
		Version:    hm.version,
		Uptime:     time.Since(hm.startTime).Round(time.Second).String(),
		Components: components,
		Summary:    calculateSummary(components),
	}
}

// determineSystemHealth: any unhealthy component makes the system unhealthy,
// then any degraded one makes it degraded.
func determineSystemHealth(components map[string]ComponentHealth) HealthStatus {
	if len(components) == 0 {
		return HealthStatusUnknown
	}
	s := calculateSummary(components)
	switch {
	case s.UnhealthyCount > 0:
		return HealthStatusUnhealthy
	case s.DegradedCount > 0:
		return HealthStatusDegraded
	case s.HealthyCount == s.TotalComponents:
		return HealthStatusHealthy
	}
	return HealthStatusUnknown
}

func calculateSummary(components map[string]ComponentHealth) HealthSummary {
	summary := HealthSummary{TotalComponents: len(components)}
	for _, c := range components {
		switch c.Status {
		case HealthStatusHealthy:
			summary.HealthyCount++
		case HealthStatusDegraded:
			summary.DegradedCount++
		case HealthStatusUnhealthy:
			summary.UnhealthyCount++
		default:
			summary.UnknownCount++
		}
	}
	return summary
}

// Pinger is satisfied by *sql.DB and by the fixture store.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// DatabaseHealthChecker checks database connectivity
type DatabaseHealthChecker struct {
	db   Pinger
	name string
}

// NewDatabaseHealthChecker creates a database health checker
func NewDatabaseHealthChecker(db Pinger, name string) *DatabaseHealthChecker {
	return &DatabaseHealthChecker{db: db, name: name}
}

func (dhc *DatabaseHealthChecker) Name() string { return dhc.name }

func (dhc *DatabaseHealthChecker) Check(ctx context.Context) ComponentHealth {
	start := time.Now()
	result := ComponentHealth{Name: dhc.name, LastChecked: start}
	if err := dhc.db.PingContext(ctx); err != nil {
		result.Status = HealthStatusUnhealthy
		result.Error = err.Error()
		result.Message = "Database connection failed"
	} else {
		result.Status = HealthStatusHealthy
		result.Message = "Database connection successful"
	}
	result.Duration = time.Since(start)
	return result
}

// AliasBook is the part of the alias book the health check needs.
type AliasBook interface {
	IsLoaded() bool
	Len() int
}

// NewAliasBookChecker reports degraded when no alias file was loaded: matching
// still works on raw names, just with less recall.
func NewAliasBookChecker(book AliasBook) HealthChecker {
	return NewHealthCheckFunc("aliases", func(ctx context.Context) ComponentHealth {
		r := ComponentHealth{
			Name:        "aliases",
			LastChecked: time.Now(),
			Metadata:    map[string]any{"entries": book.Len()},
		}
		if book.IsLoaded() {
			r.Status = HealthStatusHealthy
			r.Message = "Alias book loaded"
		} else {
			r.Status = HealthStatusDegraded
			r.Message = "Alias book not loaded, matching on raw names"
		}
		return r
	})
}

// Handler serves health endpoints on a gorilla/mux router.
type Handler struct {
	manager *HealthManager
}

func NewHandler(manager *HealthManager) *Handler { return &Handler{manager: manager} }

// Register mounts /health, /health/live and /health/ready on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/live", h.handleLiveness).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", h.handleReadiness).Methods(http.MethodGet)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	var health SystemHealth
	if r.URL.Query().Get("cached") == "true" {
		health = h.manager.GetCachedHealth()
	} else {
		health = h.manager.CheckAll(r.Context())
	}
	status := http.StatusOK
	if health.Status == HealthStatusUnhealthy || health.Status == HealthStatusUnknown {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (h *Handler) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "alive",
		"uptime": time.Since(h.manager.startTime).Round(time.Second).String(),
	})
}

func (h *Handler) handleReadiness(w http.ResponseWriter, r *http.Request) {
	health := h.manager.CheckAll(r.Context())
	ready := health.Status != HealthStatusUnhealthy
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status":     health.Status,
		"ready":      ready,
		"components": len(health.Components),
	})
}
