// Package errors classifies failures of the matcher service by kind.
// Callers branch on the kind with Is or KindOf instead of matching message strings.
package errors

import (
	"errors"
	"fmt"
)

// Kind says who is at fault and how a transport should report the failure.
type Kind uint8

const (
	KindInternal   Kind = iota // unclassified
	KindValidation             // malformed event, fixture, request or config
	KindNotFound               // lookup by id found nothing
	KindBiz                    // input is valid but cannot be acted on
	KindDB                     // fixture store unreachable or failing
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindBiz:
		return "biz"
	case KindDB:
		return "db"
	default:
		return "internal"
	}
}

// Error is a failure of Kind raised by Op (package.Function).
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Message is the caller-facing text without the op or cause.
func (e *Error) Message() string { return e.Msg }

// Is matches the bare kind sentinels, so errors.Is(err, ErrDB) works through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Op == "" && t.Kind == e.Kind
}

func newError(k Kind, op, msg string, err error) error {
	return &Error{Kind: k, Op: op, Msg: msg, Err: err}
}

func NewValidation(op, msg string, err error) error { return newError(KindValidation, op, msg, err) }

// NewNotFound reports a missing fixture or record; err is usually sql.ErrNoRows.
func NewNotFound(op, msg string, err error) error { return newError(KindNotFound, op, msg, err) }

func NewBiz(op, msg string, err error) error { return newError(KindBiz, op, msg, err) }

func NewDB(op, msg string, err error) error { return newError(KindDB, op, msg, err) }

// Kind sentinels.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrBiz        = &Error{Kind: KindBiz}
	ErrDB         = &Error{Kind: KindDB}
)

// Is is errors.Is, kept here so callers need a single import.
func Is(err, target error) bool { return errors.Is(err, target) }

// KindOf returns the kind of the outermost classified error in err's chain,
// or KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
