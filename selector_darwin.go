//go:build darwin

package tinypoll

import (
	"math"
	"time"

	"golang.org/x/sys/unix"
)

const (
	// wakeupToken is attached to the shutdown timer. Poll never surfaces
	// the wakeup event, so it may collide with a caller's token.
	wakeupToken = Token(math.MaxUint64)

	// wakeupIdent identifies the shutdown timer. Timers have their own
	// ident namespace, separate from file descriptors.
	wakeupIdent = 0
)

// handle is the raw kqueue descriptor, a plain integer, safe to copy into
// any number of Registrator values.
type handle struct {
	kq int
}

func newHandle() (handle, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return handle{}, syscallError("kqueue", err)
	}
	unix.CloseOnExec(kq)
	return handle{kq: kq}, nil
}

func waitEvents(h handle, buf []Event, timeoutMs int) (int, error) {
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		v := unix.NsecToTimespec(int64(timeoutMs) * int64(time.Millisecond))
		ts = &v
	}
	n, err := unix.Kevent(h.kq, nil, kevents(buf), ts)
	if err != nil {
		return 0, waitError("kevent", err)
	}
	return n, nil
}

// submit applies a single change, without retrieving any events.
func submit(h handle, change Event) error {
	changes := [1]Event{change}
	_, err := unix.Kevent(h.kq, kevents(changes[:]), nil, nil)
	return err
}

func registerFD(h handle, fd int, token Token, interests Interests) error {
	for _, change := range eventsToKevents(fd, token, interests, unix.EV_ADD|unix.EV_ENABLE|unix.EV_ONESHOT) {
		if err := submit(h, change); err != nil {
			return syscallError("kevent", err)
		}
	}
	return nil
}

func deregisterFD(h handle, fd int) error {
	err := submit(h, Event{
		Ident:  uint64(fd),
		Filter: unix.EVFILT_READ,
		Flags:  unix.EV_DELETE,
	})
	if err == unix.ENOENT {
		// a fired one-shot is already gone
		return nil
	}
	return syscallError("kevent", err)
}

// wakeup arms a one-shot timer with a zero period, which expires at once.
func wakeup(h handle) error {
	return syscallError("kevent", submit(h, Event{
		Ident:  wakeupIdent,
		Filter: unix.EVFILT_TIMER,
		Flags:  unix.EV_ADD | unix.EV_ENABLE | unix.EV_ONESHOT,
		Data:   0,
		Udata:  uint64(wakeupToken),
	}))
}

func closeHandle(h handle) error {
	return syscallError("close", unix.Close(h.kq))
}

// eventsToKevents converts Interests to kqueue change records.
func eventsToKevents(fd int, token Token, interests Interests, flags uint16) []Event {
	var changes []Event
	if interests.IsReadable() {
		changes = append(changes, Event{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_READ,
			Flags:  flags,
			Udata:  uint64(token),
		})
	}
	return changes
}
