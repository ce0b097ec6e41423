package actions

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrValidation matches every input validation failure from this package.
var ErrValidation = errors.New("validation failed")

// FieldErrors maps an input field to the reason it was rejected. It
// satisfies errors.Is(err, ErrValidation).
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s: %s", f, e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is reports whether target is ErrValidation.
func (e FieldErrors) Is(target error) bool {
	return target == ErrValidation
}

// err returns e as an error, or nil when no field failed.
func (e FieldErrors) err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func invalid(field, msg string) error {
	return FieldErrors{field: msg}
}
