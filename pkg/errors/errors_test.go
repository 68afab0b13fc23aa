package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
)

func TestIs_MatchesKindThroughWrapping(t *testing.T) {
	base := NewDB("database.FixturesOn", "query failed", errors.New("conn reset"))
	wrapped := fmt.Errorf("resolve: %w", base)

	if !Is(wrapped, ErrDB) {
		t.Fatalf("expected wrapped DB error to match ErrDB")
	}
	if Is(wrapped, ErrValidation) {
		t.Fatalf("DB error must not match ErrValidation")
	}
	if Is(nil, ErrBiz) {
		t.Fatalf("nil must not match any kind")
	}
	if Is(NewNotFound("op", "missing", nil), ErrBiz) {
		t.Fatalf("not found must not match ErrBiz")
	}
}

func TestIs_OnlyBareSentinelsMatchByKind(t *testing.T) {
	a := NewDB("a", "x", nil)
	b := NewDB("b", "y", nil)
	if errors.Is(a, b) {
		t.Fatalf("two distinct DB errors must not match each other")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindInternal},
		{"plain", errors.New("boom"), KindInternal},
		{"validation", NewValidation("api.decode", "bad body", nil), KindValidation},
		{"not found wraps no rows", NewNotFound("database.FixtureByID", "fixture 7 not found", sql.ErrNoRows), KindNotFound},
		{"wrapped biz", fmt.Errorf("ctx: %w", NewBiz("matcher.Resolve", "no source", nil)), KindBiz},
		{"outermost wins", NewDB("guard", "unavailable", NewValidation("inner", "x", nil)), KindDB},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation without cause", NewValidation("api.decode", "bad body", nil), "validation: api.decode: bad body"},
		{"validation with cause", NewValidation("api.decode", "bad body", errors.New("eof")), "validation: api.decode: bad body: eof"},
		{"biz", NewBiz("matcher.Resolve", "no fixtures", nil), "biz: matcher.Resolve: no fixtures"},
		{"db", NewDB("database.Ping", "unreachable", errors.New("timeout")), "db: database.Ping: unreachable: timeout"},
		{"not found", NewNotFound("database.FixtureByID", "fixture 7 not found", nil), "not found: database.FixtureByID: fixture 7 not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := NewBiz("op", "msg", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to reach the cause")
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected an *Error")
	}
	if e.Message() != "msg" {
		t.Fatalf("Message() = %q, want msg", e.Message())
	}
}
