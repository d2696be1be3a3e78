// ABOUTME: Transport error taxonomy
// ABOUTME: Sentinel errors and the DecodeError wrapper for load failures
package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode marks files the decoder could not open or read
	ErrDecode = errors.New("decode failed")

	// ErrDurationExceeded marks files longer than the configured limit
	ErrDurationExceeded = errors.New("duration exceeds limit")

	// ErrNoActiveSource is returned by commands issued with nothing loaded
	ErrNoActiveSource = errors.New("no active source")
)

// DecodeError wraps a decoder failure with the offending path. It matches
// both ErrDecode and the underlying error.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}
