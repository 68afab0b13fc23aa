package utils

import (
	"fmt"
	"reflect"
	"slices"

	errs "team-matcher/pkg/errors"
)

// Cloner is implemented by types that know how to deep-copy themselves.
type Cloner[T any] interface {
	Clone() T
}

// CloneAll returns a new slice holding a Clone of every element.
func CloneAll[T Cloner[T]](items []T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

// CopySlice returns a shallow copy of items.
func CopySlice[T any](items []T) []T { return slices.Clone(items) }

// Clone copies v when it is self-cloning (Clone() any) or a slice/array.
// Anything else is rejected with a validation error.
func Clone(v any) (any, error) {
	if v == nil {
		return nil, errs.NewValidation("utils.Clone", "value is nil", nil)
	}
	if c, ok := v.(interface{ Clone() any }); ok {
		return c.Clone(), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return v, nil
		}
		cp := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(cp, rv)
		return cp.Interface(), nil
	case reflect.Array:
		cp := reflect.New(rv.Type()).Elem()
		cp.Set(rv)
		return cp.Interface(), nil
	}
	return nil, errs.NewValidation("utils.Clone", fmt.Sprintf("type %T has no Clone method", v), nil)
}
