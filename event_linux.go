//go:build linux

package tinypoll

import (
	"golang.org/x/sys/unix"
)

// Event is a single readiness notification.
//
// It has the exact layout of the kernel's struct epoll_event, which the
// kernel populates directly during the wait.
type Event unix.EpollEvent

func newEvent(flags uint32, token Token) Event {
	var ev Event
	ev.Events = flags
	ev.setID(token)
	return ev
}

// ID returns the token the source was registered with.
func (x Event) ID() Token {
	return Token(uint32(x.Fd)) | Token(uint32(x.Pad))<<32
}

// Readable reports whether the source was reported readable.
func (x Event) Readable() bool {
	return x.Events&unix.EPOLLIN != 0
}

// Hangup reports whether the peer closed its end of the connection.
func (x Event) Hangup() bool {
	return x.Events&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0
}

// setID stores the token in the 64-bit epoll_data union, which spans the Fd
// and Pad fields. The kernel copies it verbatim, so byte order is irrelevant.
func (x *Event) setID(token Token) {
	x.Fd = int32(uint32(token))
	x.Pad = int32(uint32(token >> 32))
}

func (x *Event) raw() *unix.EpollEvent {
	return (*unix.EpollEvent)(x)
}
