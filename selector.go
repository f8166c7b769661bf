package tinypoll

import (
	"sync"
)

// selector owns one OS readiness queue, and performs the blocking wait.
//
// The registration syscalls are free functions of the raw handle, rather
// than methods, so that a Registrator can issue them without holding (or
// owning) the selector. Exactly one backend is compiled per platform,
// providing:
//
//   - newHandle() (handle, error)
//   - waitEvents(h handle, buf []Event, timeoutMs int) (int, error)
//   - registerFD(h handle, fd int, token Token, interests Interests) error
//   - deregisterFD(h handle, fd int) error
//   - wakeup(h handle) error
//   - closeHandle(h handle) error
//
// See selector_linux.go (epoll), selector_darwin.go (kqueue), and
// selector_other.go.
type selector struct {
	h    handle
	once sync.Once
	err  error
}

func newSelector() (*selector, error) {
	h, err := newHandle()
	if err != nil {
		return nil, err
	}
	return &selector{h: h}, nil
}

// wait clears events, then blocks until at least one event is delivered, or
// the timeout expires. A negative timeoutMs waits indefinitely. On success,
// the length of events is the number delivered, zero on timeout.
//
// A zero-capacity buffer is grown to defaultCapacity. Interruption by a
// signal is returned as ErrInterrupted, and is not retried.
func (s *selector) wait(events *Events, timeoutMs int, defaultCapacity int) error {
	buf := (*events)[:0]
	if cap(buf) == 0 {
		buf = make(Events, 0, defaultCapacity)
	}
	*events = buf

	n, err := waitEvents(s.h, buf[:cap(buf)], timeoutMs)
	if err != nil {
		return err
	}

	*events = buf[:n]
	return nil
}

// close releases the handle, exactly once. Later calls return the result
// of the first.
func (s *selector) close() error {
	s.once.Do(func() {
		s.err = closeHandle(s.h)
	})
	return s.err
}
