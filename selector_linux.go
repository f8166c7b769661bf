//go:build linux

package tinypoll

import (
	"encoding/binary"
	"errors"
	"math"
	"unsafe"

	"golang.org/x/sys/unix"
)

// wakeupToken is attached to the eventfd registration. Poll never surfaces
// the wakeup event, so it may collide with a caller's token.
const wakeupToken = Token(math.MaxUint64)

// handle is the raw epoll queue, plus the eventfd used to wake it. Both are
// plain integers, safe to copy into any number of Registrator values.
type handle struct {
	epfd   int
	wakefd int
}

func newHandle() (handle, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return handle{}, syscallError("epoll_create1", err)
	}

	wakefd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(epfd)
		return handle{}, syscallError("eventfd", err)
	}

	// Level-triggered and never drained: once written, every later wait
	// returns immediately.
	ev := newEvent(unix.EPOLLIN, wakeupToken)
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, ev.raw()); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return handle{}, syscallError("epoll_ctl", err)
	}

	return handle{epfd: epfd, wakefd: wakefd}, nil
}

func waitEvents(h handle, buf []Event, timeoutMs int) (int, error) {
	raw := unsafe.Slice((*unix.EpollEvent)(&buf[0]), len(buf))
	n, err := unix.EpollWait(h.epfd, raw, timeoutMs)
	if err != nil {
		return 0, waitError("epoll_wait", err)
	}
	return n, nil
}

func registerFD(h handle, fd int, token Token, interests Interests) error {
	ev := newEvent(eventsToEpoll(interests)|unix.EPOLLONESHOT, token)
	err := unix.EpollCtl(h.epfd, unix.EPOLL_CTL_ADD, fd, ev.raw())
	if err == unix.EEXIST {
		// A fired one-shot leaves the fd in the interest list, disabled.
		err = unix.EpollCtl(h.epfd, unix.EPOLL_CTL_MOD, fd, ev.raw())
	}
	return syscallError("epoll_ctl", err)
}

func deregisterFD(h handle, fd int) error {
	err := unix.EpollCtl(h.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT {
		return nil
	}
	return syscallError("epoll_ctl", err)
}

func wakeup(h handle) error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(h.wakefd, buf[:])
	return syscallError("write", err)
}

func closeHandle(h handle) error {
	return errors.Join(
		syscallError("close", unix.Close(h.wakefd)),
		syscallError("close", unix.Close(h.epfd)),
	)
}

// eventsToEpoll converts Interests to epoll event flags.
func eventsToEpoll(interests Interests) uint32 {
	var epollEvents uint32
	if interests.IsReadable() {
		epollEvents |= unix.EPOLLIN
	}
	return epollEvents
}
