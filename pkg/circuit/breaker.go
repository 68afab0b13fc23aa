package circuit

import (
	"context"
	"errors"
	"sync"
	"time"

	"team-matcher/pkg/logging"
	"team-matcher/pkg/metrics"
)

// State represents the circuit breaker state.
// Closed: normal operation; HalfOpen: probing; Open: fail fast.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Config tunes a circuit breaker instance.
type Config struct {
	Name string

	OperationTimeout  time.Duration // per-call timeout
	OpenFor           time.Duration // how long to stay open before probing
	MaxConsecFailures int           // consecutive failures to open
	WindowSize        int           // sliding window of recent calls
	FailureRate       float64       // 0..1 fraction in window to open
	MinCalls          int           // calls in window before FailureRate applies
	SlowCallThreshold time.Duration // duration over which a call is considered slow
	SlowCallRate      float64       // 0..1 fraction in window to open

	// IsFailure filters errors that count against the dependency, e.g. to
	// ignore a missing row. nil counts every error except cancellation.
	IsFailure func(error) bool
}

// DefaultConfig guards a database-backed fixture store.
func DefaultConfig(name string) Config {
	return Config{
		Name:              name,
		OperationTimeout:  5 * time.Second,
		OpenFor:           15 * time.Second,
		MaxConsecFailures: 5,
		WindowSize:        20,
		FailureRate:       0.5,
		MinCalls:          10,
		SlowCallThreshold: 2 * time.Second,
	}
}

// ErrOpen indicates the breaker is open and calls are short-circuited.
var ErrOpen = errors.New("circuit open")

type sample struct {
	success bool
	slow    bool
}

type Breaker struct {
	cfg        Config
	mu         sync.Mutex
	st         State
	lastChange time.Time
	nextProbe  time.Time
	probing    bool
	consecFail int

	win  []sample
	idx  int
	used int

	now func() time.Time
	log *logging.ComponentLogger

	mState    *metrics.Gauge
	mOpen     *metrics.Counter
	mHalfOpen *metrics.Counter
	mSuccess  *metrics.Counter
	mFailure  *metrics.Counter
	mTimeout  *metrics.Counter
	mSlow     *metrics.Counter
	mLatency  *metrics.Histogram
}

// New builds a breaker registering its series on reg (metrics.Default when nil).
// log may be nil.
func New(cfg Config, reg *metrics.Registry, log *logging.Logger) *Breaker {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 20
	}
	if reg == nil {
		reg = metrics.Default
	}
	p := "cb_" + cfg.Name
	b := &Breaker{
		cfg:        cfg,
		st:         Closed,
		lastChange: time.Now(),
		win:        make([]sample, cfg.WindowSize),
		now:        time.Now,
		mState:     reg.Gauge(p+"_state", "Circuit breaker state (0=closed,1=open,2=half-open)"),
		mOpen:      reg.Counter(p+"_opens", "Circuit opened events"),
		mHalfOpen:  reg.Counter(p+"_half_open", "Circuit half-open transitions"),
		mSuccess:   reg.Counter(p+"_success", "Successful calls through circuit"),
		mFailure:   reg.Counter(p+"_failure", "Failed calls through circuit"),
		mTimeout:   reg.Counter(p+"_timeout", "Timed out calls"),
		mSlow:      reg.Counter(p+"_slow", "Slow calls"),
		mLatency:   reg.Histogram(p+"_latency_ms", "Latency of calls (ms)", []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500}),
	}
	if log != nil {
		b.log = log.WithComponent("circuit")
	}
	b.mState.Set(0)
	return b
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st
}

func (b *Breaker) setStateLocked(st State) {
	if b.st == st {
		return
	}
	b.st = st
	b.lastChange = b.now()
	switch st {
	case Open:
		b.mOpen.Inc()
		b.mState.Set(1)
		b.nextProbe = b.lastChange.Add(b.cfg.OpenFor)
	case HalfOpen:
		b.mHalfOpen.Inc()
		b.mState.Set(2)
	case Closed:
		b.mState.Set(0)
		b.consecFail = 0
		b.used, b.idx = 0, 0
	}
	if b.log != nil {
		b.log.Info("breaker state change", logging.String("name", b.cfg.Name), logging.String("state", st.String()))
	}
}

// record adds a sample into the ring and opens the circuit when a threshold trips.
func (b *Breaker) record(success, slow bool) {
	b.win[b.idx] = sample{success: success, slow: slow}
	if b.used < len(b.win) {
		b.used++
	}
	b.idx = (b.idx + 1) % len(b.win)

	if b.st != Closed {
		return
	}
	if b.cfg.MaxConsecFailures > 0 && b.consecFail >= b.cfg.MaxConsecFailures {
		b.setStateLocked(Open)
		return
	}
	if b.used < b.cfg.MinCalls {
		return
	}
	fail, slowN := 0, 0
	for i := 0; i < b.used; i++ {
		if !b.win[i].success {
			fail++
		}
		if b.win[i].slow {
			slowN++
		}
	}
	failRate := float64(fail) / float64(b.used)
	slowRate := float64(slowN) / float64(b.used)
	if (b.cfg.FailureRate > 0 && failRate >= b.cfg.FailureRate) ||
		(b.cfg.SlowCallRate > 0 && slowRate >= b.cfg.SlowCallRate) {
		b.setStateLocked(Open)
	}
}

// Do runs op under the breaker. While open it runs fallback if provided,
// otherwise returns ErrOpen. Only one probe is admitted while half-open.
// op returns an error only; capture outputs through closure variables.
func (b *Breaker) Do(ctx context.Context, op func(ctx context.Context) error, fallback func(ctx context.Context, cause error) error) error {
	b.mu.Lock()
	if b.st == Open && !b.now().Before(b.nextProbe) {
		b.setStateLocked(HalfOpen)
	}
	if b.st == Open || (b.st == HalfOpen && b.probing) {
		b.mu.Unlock()
		if fallback != nil {
			return fallback(ctx, ErrOpen)
		}
		return ErrOpen
	}
	probe := b.st == HalfOpen
	if probe {
		b.probing = true
	}
	b.mu.Unlock()

	if b.cfg.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.OperationTimeout)
		defer cancel()
	}

	start := time.Now()
	err := op(ctx)
	dur := time.Since(start)
	b.mLatency.Observe(float64(dur) / float64(time.Millisecond))
	slow := b.cfg.SlowCallThreshold > 0 && dur > b.cfg.SlowCallThreshold
	if slow {
		b.mSlow.Inc()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		b.mTimeout.Inc()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if probe {
		b.probing = false
	}

	if err != nil && b.countsAsFailure(err) {
		b.consecFail++
		b.mFailure.Inc()
		b.record(false, slow)
		if b.st == HalfOpen {
			b.setStateLocked(Open)
		}
	} else {
		b.consecFail = 0
		b.mSuccess.Inc()
		b.record(true, slow)
		if b.st == HalfOpen {
			b.setStateLocked(Closed)
		}
	}

	if err != nil && fallback != nil {
		return fallback(ctx, err)
	}
	return err
}

func (b *Breaker) countsAsFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if b.cfg.IsFailure != nil {
		return b.cfg.IsFailure(err)
	}
	return true
}
