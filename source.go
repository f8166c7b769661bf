package tinypoll

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"
)

// Source is anything that exposes its underlying file descriptor, e.g.
// *net.TCPConn, *net.UnixConn, *os.File, or *TCPStream.
type Source interface {
	SyscallConn() (syscall.RawConn, error)
}

// controlFD calls fn with the raw descriptor of src, keeping it valid for
// the duration of the call.
func controlFD(src Source, fn func(fd int) error) error {
	if src == nil {
		return errors.New("tinypoll: nil source")
	}
	rc, err := src.SyscallConn()
	if err != nil {
		return err
	}
	var opErr error
	if err := rc.Control(func(fd uintptr) {
		opErr = fn(int(fd))
	}); err != nil {
		return err
	}
	return opErr
}

// TCPStream is a connected TCP socket, usable as a [Source].
//
// It only exists to expose a raw descriptor for registration. Reads and
// writes go through the Go runtime, and may be issued once an event for the
// stream's token has been received.
type TCPStream struct {
	conn *net.TCPConn
}

// DialTCP connects to addr.
func DialTCP(ctx context.Context, addr string) (*TCPStream, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewTCPStream(c.(*net.TCPConn)), nil
}

// NewTCPStream wraps an existing connection.
func NewTCPStream(conn *net.TCPConn) *TCPStream {
	return &TCPStream{conn: conn}
}

func (x *TCPStream) Read(b []byte) (int, error) { return x.conn.Read(b) }

func (x *TCPStream) Write(b []byte) (int, error) { return x.conn.Write(b) }

func (x *TCPStream) Close() error { return x.conn.Close() }

// CloseWrite shuts down the writing side of the connection.
func (x *TCPStream) CloseWrite() error { return x.conn.CloseWrite() }

func (x *TCPStream) SetReadDeadline(t time.Time) error { return x.conn.SetReadDeadline(t) }

func (x *TCPStream) LocalAddr() net.Addr { return x.conn.LocalAddr() }

func (x *TCPStream) RemoteAddr() net.Addr { return x.conn.RemoteAddr() }

// SyscallConn implements [Source].
func (x *TCPStream) SyscallConn() (syscall.RawConn, error) { return x.conn.SyscallConn() }
