package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrLoadTimeout is reported when a child never signals readiness before its deadline.
	ErrLoadTimeout = errors.New("load timeout")

	// ErrLoadFailure is reported when the loading mechanism itself fails.
	ErrLoadFailure = errors.New("load failure")

	// ErrProtocol marks an out-of-sequence lifecycle call (an integration defect).
	ErrProtocol = errors.New("protocol error")

	// ErrAlreadyStarted is returned when children are declared after the run started.
	ErrAlreadyStarted = errors.New("run already started")

	// ErrNoLoader is returned when children are declared but no loader is configured.
	ErrNoLoader = errors.New("no loader configured")

	// ErrUnknownLocation is returned by loaders that cannot serve a location.
	ErrUnknownLocation = errors.New("unknown location")

	// ErrIncompleteStream is used when a child's stream ends before its RunEnd.
	ErrIncompleteStream = errors.New("event stream ended before run end")
)

// LoadError is the terminal error of a child that never connected.
type LoadError struct {
	// Kind is ErrLoadTimeout or ErrLoadFailure.
	Kind     error
	Location string
	Cause    error
}

func (e *LoadError) Error() string {
	var msg string
	switch e.Kind {
	case ErrLoadTimeout:
		msg = fmt.Sprintf("timed out loading %q", e.Location)
	default:
		msg = fmt.Sprintf("failed to load %q", e.Location)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is matches the error kind so callers can use errors.Is(err, ErrLoadTimeout).
func (e *LoadError) Is(target error) bool {
	return target == e.Kind
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// NewLoadTimeout builds the error reported for a handle whose deadline elapsed.
func NewLoadTimeout(location string) error {
	return &LoadError{Kind: ErrLoadTimeout, Location: location}
}

// NewLoadFailure builds the error reported when loading failed outright.
func NewLoadFailure(location string, cause error) error {
	return &LoadError{Kind: ErrLoadFailure, Location: location, Cause: cause}
}

// ProtocolErrorf formats an error wrapping ErrProtocol.
func ProtocolErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocol, fmt.Sprintf(format, args...))
}
