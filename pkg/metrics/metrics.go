package metrics

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Dependency-free metrics with Prometheus text exposition.
// Values are atomics; the registry maps are guarded by a mutex.

// Counter is a monotonically increasing number.
type Counter struct {
	name string
	help string
	val  atomic.Int64
}

func (c *Counter) Inc()            { c.val.Add(1) }
func (c *Counter) Add(delta int64) { c.val.Add(delta) }
func (c *Counter) Get() int64      { return c.val.Load() }

// CounterVec is a family of counters split by a single label.
type CounterVec struct {
	name  string
	help  string
	label string
	mu    sync.RWMutex
	vals  map[string]*atomic.Int64
}

// With returns the counter for one label value, creating it on first use.
func (v *CounterVec) With(value string) *atomic.Int64 {
	v.mu.RLock()
	c, ok := v.vals[value]
	v.mu.RUnlock()
	if ok {
		return c
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if c, ok = v.vals[value]; !ok {
		c = new(atomic.Int64)
		v.vals[value] = c
	}
	return c
}

// Get returns the current value for one label value.
func (v *CounterVec) Get(value string) int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if c, ok := v.vals[value]; ok {
		return c.Load()
	}
	return 0
}

// Gauge is an arbitrary number that can go up and down.
type Gauge struct {
	name string
	help string
	bits atomic.Uint64
}

func (g *Gauge) Set(v float64) { g.bits.Store(math.Float64bits(v)) }
func (g *Gauge) Add(delta float64) {
	for {
		old := g.bits.Load()
		nv := math.Float64frombits(old) + delta
		if g.bits.CompareAndSwap(old, math.Float64bits(nv)) {
			return
		}
	}
}
func (g *Gauge) Get() float64 { return math.Float64frombits(g.bits.Load()) }

// Histogram with fixed upper bounds. The last bound is always +Inf.
type Histogram struct {
	name    string
	help    string
	buckets []float64
	counts  []atomic.Uint64
	sum     Gauge
	count   atomic.Uint64
}

func (h *Histogram) Observe(v float64) {
	i := sort.SearchFloat64s(h.buckets, v)
	if i == len(h.buckets) {
		i--
	}
	h.counts[i].Add(1)
	h.count.Add(1)
	h.sum.Add(v)
}

// Count returns the number of observations.
func (h *Histogram) Count() uint64 { return h.count.Load() }

// Sum returns the sum of all observations.
func (h *Histogram) Sum() float64 { return h.sum.Get() }

// Registry holds all metrics.
type Registry struct {
	mu         sync.RWMutex
	counters   map[string]*Counter
	vecs       map[string]*CounterVec
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
}

func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		vecs:       make(map[string]*CounterVec),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
}

var Default = NewRegistry()

func (r *Registry) Counter(name, help string) *Counter {
	name = sanitize(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		return c
	}
	c := &Counter{name: name, help: help}
	r.counters[name] = c
	return c
}

func (r *Registry) CounterVec(name, help, label string) *CounterVec {
	name = sanitize(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.vecs[name]; ok {
		return v
	}
	v := &CounterVec{name: name, help: help, label: label, vals: make(map[string]*atomic.Int64)}
	r.vecs[name] = v
	return v
}

func (r *Registry) Gauge(name, help string) *Gauge {
	name = sanitize(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.gauges[name]; ok {
		return g
	}
	g := &Gauge{name: name, help: help}
	r.gauges[name] = g
	return g
}

func (r *Registry) Histogram(name, help string, buckets []float64) *Histogram {
	name = sanitize(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.histograms[name]; ok {
		return h
	}
	sorted := append([]float64{}, buckets...)
	sort.Float64s(sorted)
	if len(sorted) == 0 || !math.IsInf(sorted[len(sorted)-1], 1) {
		sorted = append(sorted, math.Inf(1))
	}
	h := &Histogram{name: name, help: help, buckets: sorted, counts: make([]atomic.Uint64, len(sorted))}
	r.histograms[name] = h
	return h
}

// WriteTo renders every metric in Prometheus text format, sorted by name.
func (r *Registry) WriteTo(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range keys(r.counters) {
		c := r.counters[name]
		header(w, c.name, c.help, "counter")
		fmt.Fprintf(w, "%s %d\n", c.name, c.Get())
	}
	for _, name := range keys(r.vecs) {
		v := r.vecs[name]
		header(w, v.name, v.help, "counter")
		v.mu.RLock()
		for _, lv := range keys(v.vals) {
			fmt.Fprintf(w, "%s{%s=%q} %d\n", v.name, v.label, lv, v.vals[lv].Load())
		}
		v.mu.RUnlock()
	}
	for _, name := range keys(r.gauges) {
		g := r.gauges[name]
		header(w, g.name, g.help, "gauge")
		fmt.Fprintf(w, "%s %g\n", g.name, g.Get())
	}
	for _, name := range keys(r.histograms) {
		h := r.histograms[name]
		header(w, h.name, h.help, "histogram")
		var cum uint64
		for i, ub := range h.buckets {
			cum += h.counts[i].Load()
			le := fmt.Sprintf("%g", ub)
			if math.IsInf(ub, 1) {
				le = "+Inf"
			}
			fmt.Fprintf(w, "%s_bucket{le=%q} %d\n", h.name, le, cum)
		}
		fmt.Fprintf(w, "%s_sum %g\n", h.name, h.Sum())
		fmt.Fprintf(w, "%s_count %d\n", h.name, h.Count())
	}
}

func header(w io.Writer, name, help, kind string) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, strings.ReplaceAll(help, "\n", " "))
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
}

// Handler returns an http.Handler that exposes metrics in Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.WriteTo(w)
	})
}

// Handler exposes the Default registry.
func Handler() http.Handler { return Default.Handler() }

func sanitize(s string) string {
	return strings.NewReplacer(" ", "_", "-", "_", ".", "_").Replace(s)
}

func keys[T any](m map[string]T) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

// Timer observes elapsed seconds into a histogram.
type Timer struct {
	h     *Histogram
	start time.Time
}

func (h *Histogram) Start() Timer { return Timer{h: h, start: time.Now()} }

func (t Timer) Observe() {
	if t.h != nil {
		t.h.Observe(time.Since(t.start).Seconds())
	}
}
