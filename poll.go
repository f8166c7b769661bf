package tinypoll

import (
	"errors"
	"math"
	"time"

	"github.com/joeycumines/logiface"
	"go.uber.org/atomic"
)

// Block may be passed as the timeout to [Poll.Poll], to wait indefinitely.
// Any other negative timeout is treated as zero.
const Block time.Duration = math.MinInt64

// maxTimeout is the longest bounded wait, the limit of the backends' int
// millisecond (epoll) timeout.
const maxTimeout = math.MaxInt32 * time.Millisecond

// Poll is the readiness queue. It is owned by a single goroutine, which
// calls [Poll.Poll] in a loop, while any number of goroutines register
// sources and request shutdown via [Registrator] values.
type Poll struct {
	sel      *selector
	closed   *atomic.Bool
	logger   *logiface.Logger[logiface.Event]
	capacity int
}

// New creates a Poll, backed by a new OS readiness queue.
//
// Fails with the OS error (an *os.SyscallError) if the queue cannot be
// created, or [ErrUnsupported] on platforms without a backend.
func New(opts ...Option) (*Poll, error) {
	cfg, err := resolvePollOptions(opts)
	if err != nil {
		return nil, err
	}

	sel, err := newSelector()
	if err != nil {
		cfg.logger.Err().
			Err(err).
			Log("tinypoll: failed to create readiness queue")
		return nil, err
	}

	cfg.logger.Debug().Log("tinypoll: created")

	return &Poll{
		sel:      sel,
		closed:   atomic.NewBool(false),
		logger:   cfg.logger,
		capacity: cfg.eventCapacity,
	}, nil
}

// Registrator mints a new handle, sharing this Poll's queue and shutdown
// flag. It may be called any number of times.
func (x *Poll) Registrator() Registrator {
	return Registrator{
		h:      x.sel.h,
		closed: x.closed,
		logger: x.logger,
	}
}

// Poll blocks until at least one registered source is ready, or the timeout
// expires, and returns the number of events delivered into events. A zero
// count means the timeout expired.
//
// The timeout is rounded up to whole milliseconds. Pass [Block] to wait
// indefinitely, any other negative value is treated as zero.
//
// Once shutdown has been requested (see [Registrator.CloseLoop]), Poll
// returns [ErrClosed], and delivers no events, even if the wait was
// satisfied by application sources. Interruption by a signal is retried
// transparently, any other error is returned unchanged.
func (x *Poll) Poll(events *Events, timeout time.Duration) (int, error) {
	if x.closed.Load() {
		*events = (*events)[:0]
		return 0, ErrClosed
	}

	timeoutMs := timeoutMillis(timeout)
	var deadline time.Time
	if timeoutMs > 0 {
		deadline = time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	}

	for {
		err := x.sel.wait(events, timeoutMs, x.capacity)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrInterrupted) {
			return 0, err
		}
		x.logger.Trace().Log("tinypoll: wait interrupted, retrying")
		if !deadline.IsZero() {
			timeoutMs = timeoutMillis(time.Until(deadline))
		}
	}

	if x.closed.Load() {
		x.logger.Debug().
			Int("discarded", len(*events)).
			Log("tinypoll: woken by close")
		*events = (*events)[:0]
		return 0, ErrClosed
	}

	return len(*events), nil
}

// Closed reports whether shutdown has been requested, either via
// [Registrator.CloseLoop], or [Poll.Close].
func (x *Poll) Closed() bool {
	return x.closed.Load()
}

// Close releases the OS readiness queue. It must not be called concurrently
// with [Poll.Poll], and any Registrator minted from this Poll must no longer
// be in use. Close also marks the Poll as shut down, so Registrator copies
// that are still reachable fail with [ErrClosed], rather than operating on a
// released handle.
//
// The handle is released exactly once, subsequent calls return the result
// of the first. A release failure is logged, and returned.
func (x *Poll) Close() error {
	if x.closed.CompareAndSwap(false, true) {
		x.logger.Debug().Log("tinypoll: closed without close request")
	}
	err := x.sel.close()
	if err != nil {
		x.logger.Err().
			Err(err).
			Log("tinypoll: failed to release readiness queue")
	}
	return err
}

// timeoutMillis normalizes a timeout for the backends: -1 waits
// indefinitely, and is only produced by Block.
func timeoutMillis(timeout time.Duration) int {
	switch {
	case timeout == Block:
		return -1
	case timeout <= 0:
		return 0
	case timeout >= maxTimeout:
		return math.MaxInt32
	}
	return int((timeout + time.Millisecond - 1) / time.Millisecond)
}
