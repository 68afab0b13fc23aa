package utils

import (
	"fmt"
	"reflect"

	errs "team-matcher/pkg/errors"
)

// RequireNotNil fails when v is nil, including typed nil pointers, maps,
// slices, funcs, channels and interfaces.
func RequireNotNil(v any, name string) error {
	if v == nil {
		return errs.NewValidation("utils.RequireNotNil", fmt.Sprintf("the %s should not be nil", name), nil)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		if rv.IsNil() {
			return errs.NewValidation("utils.RequireNotNil", fmt.Sprintf("the %s should not be nil", name), nil)
		}
	}
	return nil
}

// RequireNotBlank fails when s is empty or whitespace only.
func RequireNotBlank(s, name string) error {
	if IsBlank(s) {
		return errs.NewValidation("utils.RequireNotBlank", fmt.Sprintf("the %s should not be empty or white space only", name), nil)
	}
	return nil
}
