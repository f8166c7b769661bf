//go:build linux || darwin

package tinypoll

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/joeycumines/go-tinypoll/internal/delayserver"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// quiet is long enough for a pending event to be delivered, if one exists.
const quiet = 50 * time.Millisecond

func newPoll(t *testing.T, opts ...Option) *Poll {
	t.Helper()
	p, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, p.Close()) })
	return p
}

// socketPair returns two connected stream sockets, as files.
func socketPair(t *testing.T) (*os.File, *os.File) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	a := os.NewFile(uintptr(fds[0]), "a")
	b := os.NewFile(uintptr(fds[1]), "b")
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	return a, b
}

func send(t *testing.T, w io.Writer) {
	t.Helper()
	_, err := w.Write([]byte{'x'})
	require.NoError(t, err)
}

func pollIDs(t *testing.T, p *Poll, events *Events, timeout time.Duration) []Token {
	t.Helper()
	n, err := p.Poll(events, timeout)
	require.NoError(t, err)
	require.Equal(t, n, len(*events))
	ids := make([]Token, 0, n)
	for _, ev := range *events {
		ids = append(ids, ev.ID())
	}
	return ids
}

func TestPoll_oneShot(t *testing.T) {
	p := newPoll(t)
	r, w := socketPair(t)

	require.NoError(t, p.Registrator().Register(r, 10, Readable))
	send(t, w)

	events := NewEvents(16)
	n, err := p.Poll(&events, time.Second)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, Token(10), events[0].ID())
	assert.True(t, events[0].Readable())
	assert.False(t, events[0].Hangup())

	// still readable, but the registration has been consumed
	assert.Empty(t, pollIDs(t, p, &events, quiet))
}

func TestPoll_rearmAfterDelivery(t *testing.T) {
	p := newPoll(t)
	reg := p.Registrator()
	r, w := socketPair(t)
	send(t, w)

	events := NewEvents(16)
	for i := 0; i < 3; i++ {
		require.NoError(t, reg.Register(r, Token(100+i), Readable))
		assert.Equal(t, []Token{Token(100 + i)}, pollIDs(t, p, &events, time.Second))
	}
	assert.Empty(t, pollIDs(t, p, &events, quiet))
}

func TestPoll_multipleRegistrations(t *testing.T) {
	p := newPoll(t)
	reg := p.Registrator()

	tokens := []Token{1, 2, 3}
	for _, token := range tokens {
		r, w := socketPair(t)
		require.NoError(t, reg.Register(r, token, Readable))
		send(t, w)
	}

	var (
		events = NewEvents(16)
		ids    []Token
	)
	deadline := time.Now().Add(5 * time.Second)
	for len(ids) < len(tokens) && time.Now().Before(deadline) {
		ids = append(ids, pollIDs(t, p, &events, time.Second)...)
	}
	assert.ElementsMatch(t, tokens, ids)
}

func TestPoll_eventCapacityBoundsDelivery(t *testing.T) {
	p := newPoll(t)
	reg := p.Registrator()

	for _, token := range []Token{1, 2} {
		r, w := socketPair(t)
		require.NoError(t, reg.Register(r, token, Readable))
		send(t, w)
	}

	events := NewEvents(1)
	first := pollIDs(t, p, &events, time.Second)
	require.Len(t, first, 1)
	second := pollIDs(t, p, &events, time.Second)
	require.Len(t, second, 1)
	assert.ElementsMatch(t, []Token{1, 2}, append(first, second...))
}

func TestPoll_zeroCapacityEventsGrow(t *testing.T) {
	p := newPoll(t, WithEventCapacity(4))
	r, w := socketPair(t)
	require.NoError(t, p.Registrator().Register(r, 1, Readable))
	send(t, w)

	var events Events
	assert.Equal(t, []Token{1}, pollIDs(t, p, &events, time.Second))
	assert.Equal(t, 4, cap(events))
}

func TestPoll_timeout(t *testing.T) {
	p := newPoll(t)
	events := NewEvents(16)

	start := time.Now()
	n, err := p.Poll(&events, 50*time.Millisecond)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, events)
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestPoll_zeroTimeoutReturnsImmediately(t *testing.T) {
	p := newPoll(t)
	events := NewEvents(16)

	start := time.Now()
	for _, timeout := range []time.Duration{0, -time.Second} {
		n, err := p.Poll(&events, timeout)
		require.NoError(t, err)
		assert.Zero(t, n)
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestRegistrator_closeLoopWakesBlockedPoll(t *testing.T) {
	p := newPoll(t)
	reg := p.Registrator()

	polled := make(chan error, 1)
	go func() {
		events := NewEvents(16)
		_, err := p.Poll(&events, Block)
		polled <- err
	}()

	// the close request is issued from a different goroutine
	var g errgroup.Group
	g.Go(func() error {
		time.Sleep(quiet)
		return reg.CloseLoop()
	})
	require.NoError(t, g.Wait())

	select {
	case err := <-polled:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("blocked poll was not woken")
	}
	assert.True(t, p.Closed())
}

func TestRegistrator_closeLoopTwice(t *testing.T) {
	p := newPoll(t)
	reg := p.Registrator()
	clone := reg

	require.NoError(t, reg.CloseLoop())

	err := clone.CloseLoop()
	assert.ErrorIs(t, err, ErrAlreadyClosed)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, p.Registrator().CloseLoop(), ErrAlreadyClosed)
}

func TestRegistrator_concurrentCloseLoop(t *testing.T) {
	p := newPoll(t)

	const callers = 8
	results := make(chan error, callers)
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		reg := p.Registrator()
		g.Go(func() error {
			results <- reg.CloseLoop()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyClosed)
	}
	assert.Equal(t, 1, succeeded)
}

func TestRegistrator_registerAfterCloseLoop(t *testing.T) {
	p := newPoll(t)
	reg := p.Registrator()
	r, w := socketPair(t)

	require.NoError(t, reg.CloseLoop())
	assert.ErrorIs(t, reg.Register(r, 1, Readable), ErrClosed)
	assert.ErrorIs(t, reg.Deregister(r), ErrClosed)
	send(t, w)

	events := NewEvents(16)
	for i := 0; i < 2; i++ {
		n, err := p.Poll(&events, quiet)
		assert.ErrorIs(t, err, ErrClosed)
		assert.Zero(t, n)
		assert.Empty(t, events)
	}
}

func TestPoll_closeLoopDiscardsReadyEvents(t *testing.T) {
	p := newPoll(t)
	reg := p.Registrator()
	r, w := socketPair(t)

	require.NoError(t, reg.Register(r, 1, Readable))
	send(t, w)
	require.NoError(t, reg.CloseLoop())

	events := NewEvents(16)
	n, err := p.Poll(&events, time.Second)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Zero(t, n)
	assert.Empty(t, events)
}

func TestRegistrator_rejectsUnsupportedInterests(t *testing.T) {
	p := newPoll(t)
	reg := p.Registrator()
	r, w := socketPair(t)

	assert.ErrorIs(t, reg.Register(r, 1, Writable), ErrWritableUnsupported)
	assert.ErrorIs(t, reg.Register(r, 2, Readable|Writable), ErrWritableUnsupported)
	assert.ErrorIs(t, reg.Register(r, 3, 0), ErrEmptyInterests)

	// nothing was registered
	send(t, w)
	events := NewEvents(16)
	assert.Empty(t, pollIDs(t, p, &events, quiet))
}

func TestRegistrator_deregister(t *testing.T) {
	p := newPoll(t)
	reg := p.Registrator()
	r, w := socketPair(t)

	require.NoError(t, reg.Register(r, 1, Readable))
	require.NoError(t, reg.Deregister(r))
	send(t, w)

	events := NewEvents(16)
	assert.Empty(t, pollIDs(t, p, &events, quiet))

	// not registered, not an error
	assert.NoError(t, reg.Deregister(r))

	// after delivery, the one-shot registration may be removed
	require.NoError(t, reg.Register(r, 2, Readable))
	assert.Equal(t, []Token{2}, pollIDs(t, p, &events, time.Second))
	assert.NoError(t, reg.Deregister(r))
}

func TestRegistrator_closedSource(t *testing.T) {
	p := newPoll(t)
	r, _ := socketPair(t)
	require.NoError(t, r.Close())

	err := p.Registrator().Register(r, 1, Readable)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrClosed))
}

func TestRegistrator_nilSource(t *testing.T) {
	p := newPoll(t)
	assert.Error(t, p.Registrator().Register(nil, 1, Readable))
}

func TestRegistrator_zeroValue(t *testing.T) {
	var reg Registrator
	r, _ := socketPair(t)
	assert.ErrorIs(t, reg.Register(r, 1, Readable), ErrClosed)
	assert.ErrorIs(t, reg.Deregister(r), ErrClosed)
	assert.ErrorIs(t, reg.CloseLoop(), ErrClosed)
}

func TestPoll_Close(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	reg := p.Registrator()
	r, _ := socketPair(t)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, p.Closed())

	assert.ErrorIs(t, reg.Register(r, 1, Readable), ErrClosed)
	assert.ErrorIs(t, reg.CloseLoop(), ErrAlreadyClosed)

	events := NewEvents(16)
	_, err = p.Poll(&events, 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPoll_hangup(t *testing.T) {
	p := newPoll(t)
	r, w := socketPair(t)

	require.NoError(t, p.Registrator().Register(r, 1, Readable))
	require.NoError(t, w.Close())

	events := NewEvents(16)
	require.Equal(t, []Token{1}, pollIDs(t, p, &events, time.Second))
	assert.True(t, events[0].Hangup())
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(&buf)),
		stumpy.L.WithLevel(logiface.LevelTrace),
	).Logger()

	p := newPoll(t, WithLogger(logger))
	reg := p.Registrator()
	r, _ := socketPair(t)

	require.NoError(t, reg.Register(r, 42, Readable))
	assert.ErrorIs(t, reg.Register(r, 43, Writable), ErrWritableUnsupported)
	require.NoError(t, reg.CloseLoop())

	out := buf.String()
	assert.Contains(t, out, `tinypoll: created`)
	assert.Contains(t, out, `tinypoll: registered`)
	assert.Contains(t, out, `tinypoll: rejected registration`)
	assert.Contains(t, out, `tinypoll: close requested`)
}

func TestTCPStream_delayedResponse(t *testing.T) {
	srv, err := delayserver.Listen("127.0.0.1:0", delayserver.Config{})
	require.NoError(t, err)
	served := make(chan error, 1)
	go func() { served <- srv.Serve(context.Background()) }()
	t.Cleanup(func() {
		assert.NoError(t, srv.Close())
		assert.NoError(t, <-served)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := DialTCP(ctx, srv.Addr())
	require.NoError(t, err)
	defer stream.Close()

	const delay = 200 * time.Millisecond
	start := time.Now()
	_, err = io.WriteString(stream, delayserver.FormatRequest(delay))
	require.NoError(t, err)

	p := newPoll(t)
	require.NoError(t, p.Registrator().Register(stream, 10, Readable))

	events := NewEvents(16)
	assert.Equal(t, []Token{10}, pollIDs(t, p, &events, Block))
	assert.GreaterOrEqual(t, time.Since(start), delay)

	require.NoError(t, stream.SetReadDeadline(time.Now().Add(5*time.Second)))
	b, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 200 OK\r\n\r\n", string(b))
}

func TestRegistrator_closeLoopWakeupFailure(t *testing.T) {
	reg := Registrator{h: badHandle, closed: atomic.NewBool(false)}

	err := reg.CloseLoop()
	assert.ErrorIs(t, err, unix.EBADF)
	assert.NotErrorIs(t, err, ErrClosed)

	// shutdown was still recorded, and cannot be retried
	assert.True(t, reg.closed.Load())
	assert.ErrorIs(t, reg.CloseLoop(), ErrAlreadyClosed)
	r, _ := socketPair(t)
	assert.ErrorIs(t, reg.Register(r, 1, Readable), ErrClosed)
}
