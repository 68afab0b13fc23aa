package utils

// Nil-propagating combinators. A nil input short-circuits the chain instead of
// calling the next function.

// With applies fn to in, or returns nil when in is nil.
func With[T, R any](in *T, fn func(*T) *R) *R {
	if in == nil {
		return nil
	}
	return fn(in)
}

// Return applies fn to in, or returns failure when in is nil.
func Return[T, R any](in *T, fn func(*T) R, failure R) R {
	if in == nil {
		return failure
	}
	return fn(in)
}

// If keeps in when pred holds.
func If[T any](in *T, pred func(*T) bool) *T {
	if in == nil || !pred(in) {
		return nil
	}
	return in
}

// Unless keeps in when pred does not hold.
func Unless[T any](in *T, pred func(*T) bool) *T {
	if in == nil || pred(in) {
		return nil
	}
	return in
}

// Do runs action for its side effect and passes in through.
func Do[T any](in *T, action func(*T)) *T {
	if in != nil {
		action(in)
	}
	return in
}

// ForEach runs action on every item and returns items. A nil slice yields an
// empty, non-nil one.
func ForEach[T any](items []T, action func(T)) []T {
	if items == nil {
		return []T{}
	}
	for _, it := range items {
		action(it)
	}
	return items
}

// ToSlice wraps a single item.
func ToSlice[T any](item T) []T { return []T{item} }

// PipeTo feeds v into fn.
func PipeTo[T, R any](v T, fn func(T) R) R { return fn(v) }

// Either picks ifTrue or ifFalse depending on cond(v).
func Either[T, R any](v T, cond func(T) bool, ifTrue, ifFalse func(T) R) R {
	if cond(v) {
		return ifTrue(v)
	}
	return ifFalse(v)
}

// EitherNil is Either with a non-nil check as the condition.
func EitherNil[T, R any](v *T, ifTrue, ifFalse func(*T) R) R {
	return Either(v, func(p *T) bool { return p != nil }, ifTrue, ifFalse)
}
