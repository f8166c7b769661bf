// Package tinypoll is a minimal, readiness-based I/O notification core.
//
// It lets a caller register interest in a socket becoming readable, then
// block a single goroutine until the kernel reports that one or more
// registered sources are ready, receiving back the opaque [Token] each was
// registered with. It is the primitive beneath a non-blocking runtime, not
// the runtime itself: there is no executor, scheduler, or future here.
//
// # Platform Support
//
// Readiness is reported using platform-native mechanisms:
//   - Linux: epoll, with an eventfd as the shutdown wakeup source
//   - macOS: kqueue, with a one-shot EVFILT_TIMER as the shutdown wakeup
//
// Other platforms compile, but [New] fails with [ErrUnsupported].
//
// # One-Shot Delivery
//
// Every registration is one-shot: once a source has been reported ready,
// the kernel removes the interest, and a further [Registrator.Register]
// call is required to re-arm it. Level-triggered (repeating) notification
// is not supported.
//
// # Thread Safety
//
// A [Poll] is owned by a single goroutine, which calls [Poll.Poll] in a
// loop. [Registrator] values are cheap copies, minted by [Poll.Registrator],
// which may be used concurrently from any goroutine, to register sources,
// or to request shutdown via [Registrator.CloseLoop]. After CloseLoop, the
// goroutine blocked in Poll is woken, and Poll returns [ErrClosed].
//
// A Registrator holds a copy of the raw queue handle, not ownership of it.
// The Poll must not be closed while any Registrator is still in use.
//
// # Usage
//
//	p, err := tinypoll.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	r := p.Registrator()
//	go func() {
//	    _ = r.Register(conn, 10, tinypoll.Readable)
//	}()
//
//	events := tinypoll.NewEvents(1024)
//	for {
//	    if _, err := p.Poll(&events, tinypoll.Block); err != nil {
//	        if errors.Is(err, tinypoll.ErrClosed) {
//	            break
//	        }
//	        log.Fatal(err)
//	    }
//	    for _, ev := range events {
//	        handle(ev.ID())
//	    }
//	}
package tinypoll
