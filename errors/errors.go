// Package errors defines the failure kinds an attack run can end with.
// Every kind is a concrete type so callers can decide whether to retry
// with relaxed parameters or abort. Use the IsX helpers instead of type
// assertions, since most errors arrive wrapped with context.
package errors

import (
	"context"
	"fmt"

	e "github.com/pkg/errors"
)

// ConfigurationError is returned for invalid attack or cipher parameters.
// It is never worth retrying without changing the input.
type ConfigurationError struct {
	Reason string
}

func (err *ConfigurationError) Error() string {
	return "bad configuration: " + err.Reason
}

// Configurationf is a shortcut for building a ConfigurationError.
func Configurationf(format string, args ...interface{}) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// IsConfigurationError checks if the cause of `err` is a ConfigurationError.
func IsConfigurationError(err error) bool {
	_, ok := e.Cause(err).(*ConfigurationError)
	return ok
}

//////////////

// SearchExhaustionError means that no characteristic survived the
// probability bound for any target difference of a mask.
type SearchExhaustionError struct {
	Round int
	Mask  string
	Bound float64
}

func (err *SearchExhaustionError) Error() string {
	return fmt.Sprintf(
		"no characteristic for round %d with s-boxes %s above bound %g",
		err.Round, err.Mask, err.Bound,
	)
}

// IsSearchExhaustionError checks if the cause of `err` is a SearchExhaustionError.
func IsSearchExhaustionError(err error) bool {
	_, ok := e.Cause(err).(*SearchExhaustionError)
	return ok
}

//////////////

// InsufficientSignalError is returned when too few pairs survive filtering,
// even after growing the pair list several times.
type InsufficientSignalError struct {
	Round    int
	Mask     string
	Filtered int
	Minimum  int
	Attempts int
}

func (err *InsufficientSignalError) Error() string {
	return fmt.Sprintf(
		"only %d of %d required pairs survived filtering for round %d (s-boxes %s) after %d attempts",
		err.Filtered, err.Minimum, err.Round, err.Mask, err.Attempts,
	)
}

// IsInsufficientSignalError checks if the cause of `err` is an InsufficientSignalError.
func IsInsufficientSignalError(err error) bool {
	_, ok := e.Cause(err).(*InsufficientSignalError)
	return ok
}

//////////////

// KeyNotRecoverableError is returned by the first round protocol when no
// candidate for a subkey is left, or when the candidates never narrow down.
type KeyNotRecoverableError struct {
	Subkey     int
	Trials     int
	Candidates int
}

func (err *KeyNotRecoverableError) Error() string {
	if err.Candidates == 0 {
		return fmt.Sprintf("subkey %d not recoverable: no candidate left after %d trials", err.Subkey, err.Trials)
	}

	return fmt.Sprintf(
		"subkey %d not recoverable: %d candidates left after %d trials",
		err.Subkey, err.Candidates, err.Trials,
	)
}

// IsKeyNotRecoverableError checks if the cause of `err` is a KeyNotRecoverableError.
func IsKeyNotRecoverableError(err error) bool {
	_, ok := e.Cause(err).(*KeyNotRecoverableError)
	return ok
}

//////////////

// AttackError tells which round and subkey slot an attack run failed at.
type AttackError struct {
	Round  int
	Subkey int
	Mask   string
	Err    error
}

func (err *AttackError) Error() string {
	where := fmt.Sprintf("round %d (subkey %d", err.Round, err.Subkey)
	if err.Mask != "" {
		where += ", s-boxes " + err.Mask
	}

	return fmt.Sprintf("attack failed at %s): %s: %v", where, Kind(err.Err), err.Err)
}

// Cause returns the underlying error, so e.Cause() can see through it.
func (err *AttackError) Cause() error {
	return err.Err
}

// Kind returns a short name of the failure kind of `err`.
func Kind(err error) string {
	switch cause := e.Cause(err); {
	case cause == nil:
		return "none"
	case IsConfigurationError(cause):
		return "configuration"
	case IsSearchExhaustionError(cause):
		return "search-exhaustion"
	case IsInsufficientSignalError(cause):
		return "insufficient-signal"
	case IsKeyNotRecoverableError(cause):
		return "key-not-recoverable"
	case cause == context.Canceled || cause == context.DeadlineExceeded:
		return "canceled"
	default:
		return "unknown"
	}
}
