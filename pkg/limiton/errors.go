package limiton

import (
	"errors"
	"fmt"
)

// Sentinel errors for registry configuration.
var (
	// ErrInvalidCapacity indicates a capacity below one or one that is not an integer.
	ErrInvalidCapacity = errors.New("maximum instance limit must be positive")

	// ErrInvalidOverflowMode indicates an overflow mode other than reject or pump.
	ErrInvalidOverflowMode = errors.New("unknown overflow mode")

	// ErrUndeclared indicates a catalog lookup for a type that was never declared.
	ErrUndeclared = errors.New("product type not declared")

	// ErrAlreadyDeclared indicates Adopt for a type that already has a registry.
	ErrAlreadyDeclared = errors.New("product type already declared")

	// ErrPolicyConflict indicates a type redeclared with a different policy.
	ErrPolicyConflict = errors.New("product type already declared with a different policy")
)

// Sentinel errors for acquisition.
var (
	// ErrCapacityExceeded indicates a full registry in reject mode with capacity above one.
	ErrCapacityExceeded = errors.New("maximum instance limit reached")

	// ErrNilContext indicates Acquire was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrNilConstructor indicates Acquire was called without a constructor.
	ErrNilConstructor = errors.New("constructor cannot be nil")

	// ErrNilInstance indicates a constructor returned neither an instance nor an error.
	ErrNilInstance = errors.New("constructor returned nil instance")

	// ErrArgumentMismatch indicates a reused singleton was requested with different arguments.
	ErrArgumentMismatch = errors.New("arguments differ from resident instance")
)

// ErrExpired indicates a handle whose instance is no longer resident.
var ErrExpired = errors.New("handle expired")

// ConfigurationError reports an invalid registry policy.
// It is returned when a registry is created, never from Acquire.
type ConfigurationError struct {
	// Field is the policy field that failed validation ("capacity", "overflow", "strict_args").
	Field string
	// Value is the rejected input.
	Value any
	// Err is the sentinel for the failed field, usually ErrInvalidCapacity
	// or ErrInvalidOverflowMode.
	Err error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("limiton: invalid %s %v: %v", e.Field, e.Value, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// CapacityExceededError is returned when a reject-mode registry with
// capacity above one is asked for another instance while full.
// Callers may treat it as backpressure and retry later.
type CapacityExceededError struct {
	// Registry is the name of the registry that rejected the request.
	Registry string
	// Capacity is the configured limit.
	Capacity int
}

// Error implements the error interface.
func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("registry %s: %v (%d)", e.Registry, ErrCapacityExceeded, e.Capacity)
}

// Unwrap returns ErrCapacityExceeded for errors.Is support.
func (e *CapacityExceededError) Unwrap() error {
	return ErrCapacityExceeded
}

// ConstructorError wraps a failure returned by a product constructor.
// The registry is left unchanged when it is returned.
type ConstructorError struct {
	// Registry is the name of the registry that invoked the constructor.
	Registry string
	// Err is the constructor's error.
	Err error
}

// Error implements the error interface.
func (e *ConstructorError) Error() string {
	return fmt.Sprintf("registry %s: construct: %v", e.Registry, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ConstructorError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic raised inside a constructor.
type PanicError struct {
	// Registry is the name of the registry that invoked the constructor.
	Registry string
	// Value is the value passed to panic().
	Value any
	// Stack is the stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("registry %s: constructor panicked: %v", e.Registry, e.Value)
}

// ArgumentMismatchError is returned by strict singleton registries when
// the arguments of a reuse request differ from those the resident
// instance was built with.
type ArgumentMismatchError struct {
	Registry string
	// Resident holds the arguments of the resident instance.
	Resident any
	// Requested holds the arguments of the rejected request.
	Requested any
}

// Error implements the error interface.
func (e *ArgumentMismatchError) Error() string {
	return fmt.Sprintf("registry %s: %v: resident %v, requested %v",
		e.Registry, ErrArgumentMismatch, e.Resident, e.Requested)
}

// Unwrap returns ErrArgumentMismatch for errors.Is support.
func (e *ArgumentMismatchError) Unwrap() error {
	return ErrArgumentMismatch
}
