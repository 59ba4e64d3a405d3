package internal

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned when a key is absent from the store.
	ErrKeyNotFound = errors.New("key not found")

	// ErrKeyValueRequired is returned when a key or value is missing or
	// empty.
	ErrKeyValueRequired = errors.New("key and value are required")
)

type (
	// HTTPError is a non-success response from the kvproxy server.
	HTTPError struct {
		Code    int
		Status  string
		Message string
	}

	// MissingParameterError occurs when the caller has failed to provide a
	// required parameter
	MissingParameterError struct {
		Parameter string
	}

	// InvalidConfigError occurs when a configuration value fails validation.
	InvalidConfigError struct {
		Field  string
		Reason string
	}
)

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return e.Status
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("required parameter missing: %s", e.Parameter)
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
