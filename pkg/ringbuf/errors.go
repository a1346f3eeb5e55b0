package ringbuf

import (
	"errors"
	"fmt"
)

var (
	// ErrMagicMarkerNotFound indicates the magic marker is not present at
	// the configured base address. The address is probably wrong, or the
	// target never initialized its ring buffer.
	ErrMagicMarkerNotFound = errors.New("magic marker not found")
	// ErrSizeNull indicates the structure reports a size of zero, which a
	// valid producer never writes.
	ErrSizeNull = errors.New("ring buffer size is zero")
)

// ReadMemoryError wraps a transport failure while reading target memory.
type ReadMemoryError struct {
	Addr  uint32
	Cause error
}

// Error implements error.
func (e *ReadMemoryError) Error() string {
	return fmt.Sprintf("read memory at %#x: %v", e.Addr, e.Cause)
}

// Unwrap returns the transport error.
func (e *ReadMemoryError) Unwrap() error {
	return e.Cause
}

// WriteMemoryError wraps a transport failure while writing target memory.
type WriteMemoryError struct {
	Addr  uint32
	Cause error
}

// Error implements error.
func (e *WriteMemoryError) Error() string {
	return fmt.Sprintf("write memory at %#x: %v", e.Addr, e.Cause)
}

// Unwrap returns the transport error.
func (e *WriteMemoryError) Unwrap() error {
	return e.Cause
}
