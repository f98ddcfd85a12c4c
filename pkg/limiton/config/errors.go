package config

import "errors"

var (
	// ErrPolicyNotFound indicates a registry name missing from the registries section.
	ErrPolicyNotFound = errors.New("registry policy not found")

	// ErrInvalidFlag indicates a boolean policy field holding a non-boolean value.
	ErrInvalidFlag = errors.New("value must be a boolean")
)
