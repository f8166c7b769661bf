package tinypoll

import (
	"errors"
	"fmt"
	"os"
)

// Standard errors.
var (
	// ErrClosed is returned by [Poll.Poll], [Registrator.Register], and
	// [Registrator.Deregister], once shutdown has been requested. It is the
	// normal termination signal for a polling loop, not a failure.
	ErrClosed = errors.New("tinypoll: poll closed")

	// ErrAlreadyClosed is returned by [Registrator.CloseLoop] if shutdown was
	// already requested. It wraps [ErrClosed].
	ErrAlreadyClosed = fmt.Errorf("%w: already closed", ErrClosed)

	// ErrInterrupted indicates the wait syscall was interrupted by a signal.
	// [Poll.Poll] retries it internally, it is never returned to callers of
	// Poll.
	ErrInterrupted = errors.New("tinypoll: interrupted by signal")

	// ErrWritableUnsupported is returned when [Writable] interest is
	// requested. Nothing is registered.
	ErrWritableUnsupported = errors.New("tinypoll: writable interest not implemented")

	// ErrEmptyInterests is returned when no supported interest is requested.
	ErrEmptyInterests = errors.New("tinypoll: no interests requested")

	// ErrUnsupported is returned by [New] on platforms without a backend.
	ErrUnsupported = errors.New("tinypoll: platform not supported")
)

// syscallError wraps a failed syscall, preserving the errno for use with
// [errors.Is], e.g. errors.Is(err, unix.EBADF).
func syscallError(name string, err error) error {
	if err == nil {
		return nil
	}
	return os.NewSyscallError(name, err)
}
