package sim

import (
	"errors"
	"fmt"
)

// ErrConfiguration is wrapped by every error returned from a Validate method
// or constructor that rejects its parameters. Callers test with errors.Is.
var ErrConfiguration = errors.New("invalid configuration")

// configErrorf builds an ErrConfiguration-wrapped error.
func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConfiguration)
}

// ConfigErrorf is the exported form of configErrorf for sub-packages
// that validate their own configuration structs.
func ConfigErrorf(format string, args ...any) error {
	return configErrorf(format, args...)
}

// InvariantViolation is panicked when the engine detects a state that can
// only be reached through a bug: virtual time moving backwards, a negative
// delay, or resource accounting leaving [0, capacity].
type InvariantViolation struct {
	Component string
	Detail    string
}

func (v *InvariantViolation) Error() string {
	return fmt.Sprintf("scheduling invariant violated in %s: %s", v.Component, v.Detail)
}

func violate(component, format string, args ...any) {
	panic(&InvariantViolation{Component: component, Detail: fmt.Sprintf(format, args...)})
}
