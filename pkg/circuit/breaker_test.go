package circuit

import (
	"context"
	"errors"
	"testing"
	"time"

	"team-matcher/pkg/metrics"
)

var errBoom = errors.New("boom")

func newTestBreaker(cfg Config) (*Breaker, *time.Time) {
	b := New(cfg, metrics.NewRegistry(), nil)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return clock }
	return b, &clock
}

func fail(context.Context) error { return errBoom }
func ok(context.Context) error   { return nil }

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(Config{Name: "t", MaxConsecFailures: 3, OpenFor: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Do(ctx, fail, nil); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: err = %v, want boom", i, err)
		}
	}
	if b.State() != Open {
		t.Fatalf("state = %v, want open", b.State())
	}

	called := false
	err := b.Do(ctx, func(context.Context) error { called = true; return nil }, nil)
	if !errors.Is(err, ErrOpen) || called {
		t.Fatalf("open breaker must short-circuit, err=%v called=%v", err, called)
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	b, clock := newTestBreaker(Config{Name: "t", MaxConsecFailures: 1, OpenFor: time.Minute})
	ctx := context.Background()

	_ = b.Do(ctx, fail, nil)
	if b.State() != Open {
		t.Fatalf("state = %v, want open", b.State())
	}

	*clock = clock.Add(2 * time.Minute)
	if err := b.Do(ctx, fail, nil); !errors.Is(err, errBoom) {
		t.Fatalf("probe err = %v", err)
	}
	if b.State() != Open {
		t.Fatalf("failed probe must reopen, state = %v", b.State())
	}

	*clock = clock.Add(2 * time.Minute)
	if err := b.Do(ctx, ok, nil); err != nil {
		t.Fatalf("probe err = %v", err)
	}
	if b.State() != Closed {
		t.Fatalf("successful probe must close, state = %v", b.State())
	}
}

func TestBreaker_FailureRate(t *testing.T) {
	b, _ := newTestBreaker(Config{Name: "t", WindowSize: 4, MinCalls: 4, FailureRate: 0.5, OpenFor: time.Minute})
	ctx := context.Background()

	_ = b.Do(ctx, ok, nil)
	_ = b.Do(ctx, fail, nil)
	_ = b.Do(ctx, ok, nil)
	if b.State() != Closed {
		t.Fatalf("below MinCalls the rate must not apply")
	}
	_ = b.Do(ctx, fail, nil)
	if b.State() != Open {
		t.Fatalf("2 of 4 failed, state = %v, want open", b.State())
	}
}

func TestBreaker_Fallback(t *testing.T) {
	b, _ := newTestBreaker(Config{Name: "t", MaxConsecFailures: 1, OpenFor: time.Minute})
	ctx := context.Background()

	var causes []error
	fb := func(_ context.Context, cause error) error {
		causes = append(causes, cause)
		return nil
	}
	if err := b.Do(ctx, fail, fb); err != nil {
		t.Fatalf("fallback result must be returned, got %v", err)
	}
	if err := b.Do(ctx, fail, fb); err != nil {
		t.Fatalf("fallback result must be returned, got %v", err)
	}
	if len(causes) != 2 || !errors.Is(causes[0], errBoom) || !errors.Is(causes[1], ErrOpen) {
		t.Fatalf("causes = %v", causes)
	}
}

func TestBreaker_IsFailureFilter(t *testing.T) {
	notFound := errors.New("not found")
	b, _ := newTestBreaker(Config{
		Name:              "t",
		MaxConsecFailures: 1,
		OpenFor:           time.Minute,
		IsFailure:         func(err error) bool { return !errors.Is(err, notFound) },
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Do(ctx, func(context.Context) error { return notFound }, nil); !errors.Is(err, notFound) {
			t.Fatalf("err = %v", err)
		}
	}
	if b.State() != Closed {
		t.Fatalf("ignored errors must not open the breaker")
	}
	_ = b.Do(ctx, func(context.Context) error { return context.Canceled }, nil)
	if b.State() != Closed {
		t.Fatalf("cancellation must not open the breaker")
	}
}

func TestBreaker_OperationTimeout(t *testing.T) {
	b, _ := newTestBreaker(Config{Name: "t", OperationTimeout: 10 * time.Millisecond})
	err := b.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if b.mTimeout.Get() != 1 {
		t.Fatalf("timeout counter = %d, want 1", b.mTimeout.Get())
	}
}
