package tinypoll

import (
	"github.com/joeycumines/logiface"
	"go.uber.org/atomic"
)

// Registrator registers sources with, and requests shutdown of, a [Poll]
// that it does not own. It is a small value: copy it freely, and use the
// copies from any goroutine.
//
// A Registrator holds a copy of the raw queue handle, not ownership of it,
// so the Poll it was minted from must not be closed while any copy is in
// use. Once shutdown has been requested, every operation fails with
// [ErrClosed].
//
// The zero value is not usable, all operations fail with ErrClosed.
type Registrator struct {
	h      handle
	closed *atomic.Bool
	logger *logiface.Logger[logiface.Event]
}

// Register enrolls src, to be reported once, with token, when it becomes
// ready per interests. Re-arming, after the event has been received,
// requires another call to Register.
//
// Only [Readable] is supported, [Writable] fails with
// [ErrWritableUnsupported], without registering anything.
//
// A Register racing a concurrent [Registrator.CloseLoop] may either succeed,
// or fail with ErrClosed.
func (x Registrator) Register(src Source, token Token, interests Interests) error {
	if x.isClosed() {
		return ErrClosed
	}

	if err := interests.validate(); err != nil {
		x.logger.Warning().
			Str("interests", interests.String()).
			Uint64("token", uint64(token)).
			Err(err).
			Log("tinypoll: rejected registration")
		return err
	}

	return controlFD(src, func(fd int) error {
		if err := registerFD(x.h, fd, token, interests); err != nil {
			x.logger.Debug().
				Int("fd", fd).
				Uint64("token", uint64(token)).
				Err(err).
				Log("tinypoll: registration failed")
			return err
		}
		x.logger.Trace().
			Int("fd", fd).
			Uint64("token", uint64(token)).
			Str("interests", interests.String()).
			Log("tinypoll: registered")
		return nil
	})
}

// Deregister removes any pending interest in src. It is not an error if the
// registration already fired, or never existed.
//
// Deregister before closing a registered descriptor, to prevent a stale
// event being delivered for a recycled descriptor.
func (x Registrator) Deregister(src Source) error {
	if x.isClosed() {
		return ErrClosed
	}
	return controlFD(src, func(fd int) error {
		return deregisterFD(x.h, fd)
	})
}

// CloseLoop requests shutdown, waking any goroutine blocked in [Poll.Poll],
// which will then return [ErrClosed].
//
// Shutdown is single-use: only the first call (across all copies) succeeds,
// later calls fail with [ErrAlreadyClosed], and do not wake the Poll again.
//
// Any other error means shutdown was recorded, but the wakeup could not be
// injected. The flag cannot be reset, and a Poll blocked with [Block] may
// never return, so the owner must only poll with a bounded timeout from
// then on. The next Poll to return reports ErrClosed.
func (x Registrator) CloseLoop() error {
	if x.closed == nil {
		return ErrClosed
	}
	if !x.closed.CompareAndSwap(false, true) {
		return ErrAlreadyClosed
	}

	// the flag alone cannot wake a goroutine parked in the kernel
	if err := wakeup(x.h); err != nil {
		x.logger.Err().
			Err(err).
			Log("tinypoll: failed to inject shutdown wakeup")
		return err
	}

	x.logger.Info().Log("tinypoll: close requested")
	return nil
}

func (x Registrator) isClosed() bool {
	return x.closed == nil || x.closed.Load()
}
