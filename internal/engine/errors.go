package engine

import "errors"

var (
	// ErrClosed is returned by handle methods after Close.
	ErrClosed = errors.New("engine: handle is closed")
	// ErrContextFull is returned by Stream.Next when the context window has no
	// room for another token.
	ErrContextFull = errors.New("engine: context window is full")
	// ErrStreamActive is returned by Start while a previous stream is still open.
	ErrStreamActive = errors.New("engine: a stream is already active on this handle")
)

// dependencyUnavailableError signals a backend that was not compiled into this
// binary (e.g., llama.cpp without the 'llama' build tag).
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing backend.
func IsDependencyUnavailable(err error) bool {
	var d dependencyUnavailableError
	return errors.As(err, &d)
}
