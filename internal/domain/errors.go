package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the referenced resource no longer exists.
	ErrNotFound = errors.New("not found")
	// ErrNoArtifacts indicates a job finished with nothing to select.
	ErrNoArtifacts = errors.New("no artifacts produced")
	// ErrValidation indicates a fetched payload failed content validation.
	ErrValidation = errors.New("payload validation failed")
)

// TransportError wraps a network or HTTP-level failure talking to the remote
// generation service. It is potentially transient, but a single saga run never
// retries it.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("generate %s: http %d", e.Op, e.Status)
	}
	return fmt.Sprintf("generate %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError indicates the remote service returned a response the client
// could not interpret, such as a success status with no handle.
type ProtocolError struct {
	Op     string
	Detail string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("generate %s: malformed response: %s", e.Op, e.Detail)
}

// PayloadTooLargeError indicates an artifact payload exceeded the configured
// ceiling. Size is zero when the remote did not announce a content length and
// the overrun was discovered mid-read.
type PayloadTooLargeError struct {
	Size    int64
	Ceiling int64
}

func (e *PayloadTooLargeError) Error() string {
	if e.Size > 0 {
		return fmt.Sprintf("payload %d bytes exceeds ceiling %d", e.Size, e.Ceiling)
	}
	return fmt.Sprintf("payload exceeds ceiling %d", e.Ceiling)
}
