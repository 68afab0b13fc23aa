package monitoring

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	pp "net/http/pprof"
)

// Metrics keeps a ring of recent request durations plus status-class counts.
type Metrics struct {
	mu        sync.Mutex
	durations []float64 // milliseconds, circular buffer of last n
	idx       int
	count     int64
	n         int
	classes   map[int]int64 // 2 -> 2xx, 4 -> 4xx ...
}

func NewMetrics(capacity int) *Metrics {
	if capacity <= 0 {
		capacity = 256
	}
	return &Metrics{durations: make([]float64, capacity), n: capacity, classes: make(map[int]int64)}
}

// Observe adds a duration sample (in milliseconds) for a response with status.
func (m *Metrics) Observe(ms float64, status int) {
	m.mu.Lock()
	m.durations[m.idx] = ms
	m.idx = (m.idx + 1) % m.n
	m.count++
	m.classes[status/100]++
	m.mu.Unlock()
}

// Snapshot is a point-in-time view of request metrics.
type Snapshot struct {
	Count   int64
	Avg     float64
	P50     float64
	P95     float64
	Classes map[int]int64
}

// Snapshot returns basic stats including quantiles for recent samples.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{Count: m.count, Classes: make(map[int]int64, len(m.classes))}
	for k, v := range m.classes {
		s.Classes[k] = v
	}
	var samples []float64
	if m.count < int64(m.n) {
		samples = append(samples, m.durations[:m.idx]...)
	} else {
		samples = append(samples, m.durations...)
	}
	if len(samples) == 0 {
		return s
	}
	var sum float64
	for _, v := range samples {
		sum += v
	}
	s.Avg = sum / float64(len(samples))
	sort.Float64s(samples)
	s.P50 = samples[(len(samples)*50)/100]
	s.P95 = samples[(len(samples)*95)/100]
	return s
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (sw *statusWriter) WriteHeader(statusCode int) {
	sw.statusCode = statusCode
	sw.ResponseWriter.WriteHeader(statusCode)
}

// Middleware measures request duration and status into m. It has the shape
// of a gorilla/mux MiddlewareFunc.
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(sw, r)
			m.Observe(time.Since(start).Seconds()*1000.0, sw.statusCode)
		})
	}
}

// MetricsHandler exposes runtime and request metrics in JSON.
func MetricsHandler(m *Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		s := m.Snapshot()
		resp := map[string]any{
			"time":             time.Now().Format(time.RFC3339),
			"requests_total":   s.Count,
			"requests_2xx":     s.Classes[2],
			"requests_4xx":     s.Classes[4],
			"requests_5xx":     s.Classes[5],
			"duration_ms_avg":  s.Avg,
			"duration_ms_p50":  s.P50,
			"duration_ms_p95":  s.P95,
			"goroutines":       runtime.NumGoroutine(),
			"mem_alloc_bytes":  ms.Alloc,
			"heap_inuse_bytes": ms.HeapInuse,
			"gc_num":           ms.NumGC,
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
}

// RegisterPprof registers the standard pprof handlers under /debug/pprof/.
func RegisterPprof(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pp.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pp.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pp.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pp.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pp.Trace)
}

// EnableProfiling toggles block and mutex profiling rates.
func EnableProfiling(enabled bool) {
	if enabled {
		runtime.SetBlockProfileRate(1)
		runtime.SetMutexProfileFraction(5)
		return
	}
	runtime.SetBlockProfileRate(0)
	runtime.SetMutexProfileFraction(0)
}
