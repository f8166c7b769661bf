//go:build darwin

package tinypoll

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Event is a single readiness notification.
//
// It has the exact layout of the kernel's struct kevent, which the kernel
// populates directly during the wait. It mirrors unix.Kevent_t, except that
// udata is held as an integer rather than a pointer, since it only ever
// carries a Token.
type Event struct {
	Ident  uint64
	Filter int16
	Flags  uint16
	Fflags uint32
	Data   int64
	Udata  uint64
}

// Event must be interchangeable with unix.Kevent_t.
var (
	_ [unsafe.Sizeof(Event{}) - unsafe.Sizeof(unix.Kevent_t{})]struct{}
	_ [unsafe.Sizeof(unix.Kevent_t{}) - unsafe.Sizeof(Event{})]struct{}
	_ [unsafe.Offsetof(Event{}.Udata) - unsafe.Offsetof(unix.Kevent_t{}.Udata)]struct{}
	_ [unsafe.Offsetof(unix.Kevent_t{}.Udata) - unsafe.Offsetof(Event{}.Udata)]struct{}
)

// ID returns the token the source was registered with.
func (x Event) ID() Token {
	return Token(x.Udata)
}

// Readable reports whether the source was reported readable.
func (x Event) Readable() bool {
	return x.Filter == unix.EVFILT_READ
}

// Hangup reports whether the peer closed its end of the connection.
func (x Event) Hangup() bool {
	return x.Flags&unix.EV_EOF != 0
}

// kevents reinterprets s as the x/sys representation, for the syscall.
func kevents(s []Event) []unix.Kevent_t {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*unix.Kevent_t)(unsafe.Pointer(&s[0])), len(s))
}
