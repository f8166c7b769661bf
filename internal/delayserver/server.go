package delayserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultAddr is the address the delay server listens on by default.
	DefaultAddr = "127.0.0.1:9527"

	// DefaultWorkers is the default size of the worker pool.
	DefaultWorkers = 4

	responseOK         = "HTTP/1.1 200 OK\r\n\r\n"
	responseBadRequest = "HTTP/1.1 400 Bad Request\r\n\r\n"
	responseTooMany    = "HTTP/1.1 429 Too Many Requests\r\n\r\n"

	// maxRequestSize bounds the request line plus headers.
	maxRequestSize = 4096
)

// Config models optional configuration for Listen.
type Config struct {
	// Logger is used for structured logging, nil disables logging.
	Logger *logiface.Logger[logiface.Event]
	// Workers is the size of the worker pool, defaults to DefaultWorkers.
	Workers int
	// MaxDelay caps the requested delay, zero means no cap.
	MaxDelay time.Duration
	// Rates limits connections per client IP, keyed by window, see
	// catrate.NewLimiter. Empty means unlimited.
	Rates map[time.Duration]int
}

// Server is a delay server, see the package documentation.
type Server struct {
	ln       net.Listener
	pool     *workerPool
	logger   *logiface.Logger[logiface.Event]
	limiter  *catrate.Limiter
	workers  int
	maxDelay time.Duration
}

// Listen binds addr, e.g. "127.0.0.1:0". Call Serve to accept connections.
func Listen(addr string, config Config) (*Server, error) {
	if config.Workers < 0 {
		return nil, errors.New("delayserver: negative workers")
	}
	if config.Workers == 0 {
		config.Workers = DefaultWorkers
	}

	var limiter *catrate.Limiter
	if len(config.Rates) != 0 {
		if err := validateRates(config.Rates); err != nil {
			return nil, err
		}
		limiter = catrate.NewLimiter(config.Rates)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	config.Logger.Info().
		Str("addr", ln.Addr().String()).
		Int("workers", config.Workers).
		Log("delayserver: listening")

	return &Server{
		ln:       ln,
		pool:     newWorkerPool(),
		logger:   config.Logger,
		limiter:  limiter,
		workers:  config.Workers,
		maxDelay: config.MaxDelay,
	}, nil
}

// Addr returns the address the server is listening on.
func (x *Server) Addr() string {
	return x.ln.Addr().String()
}

// Close stops the server, causing Serve to return.
func (x *Server) Close() error {
	err := x.ln.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Serve accepts connections until ctx is canceled, or Close is called,
// then waits for the workers to finish. In-flight delays are abandoned.
// Returns nil on a clean stop.
func (x *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < x.workers; i++ {
		g.Go(func() error {
			x.pool.work()
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		_ = x.ln.Close()
		x.pool.close()
		return nil
	})

	g.Go(func() error {
		defer cancel()
		for {
			conn, err := x.ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				x.logger.Err().Err(err).Log("delayserver: accept failed")
				return err
			}
			if !x.pool.submit(func() { x.handle(gctx, conn) }) {
				_ = conn.Close()
				continue
			}
			x.logger.Trace().
				Str("remote", conn.RemoteAddr().String()).
				Int("pending", x.pool.pending()).
				Log("delayserver: queued connection")
		}
	})

	err := g.Wait()
	x.logger.Info().Log("delayserver: stopped")
	return err
}

func (x *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	// unblocks any read or write once the server stops
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	line, err := readRequest(conn)
	if err != nil {
		x.logger.Debug().Err(err).Log("delayserver: failed to read request")
		if errors.Is(err, ErrBadRequest) {
			x.write(conn, responseBadRequest)
		}
		return
	}

	if next, ok := x.limiter.Allow(clientIP(conn)); !ok {
		x.logger.Debug().
			Str("remote", conn.RemoteAddr().String()).
			Time("next", next).
			Log("delayserver: rate limited")
		x.write(conn, responseTooMany)
		return
	}

	delay, err := ParseDelay(line)
	if err != nil {
		x.logger.Debug().Err(err).Log("delayserver: rejected request")
		x.write(conn, responseBadRequest)
		return
	}
	if x.maxDelay > 0 && delay > x.maxDelay {
		delay = x.maxDelay
	}

	x.logger.Debug().
		Str("remote", conn.RemoteAddr().String()).
		Dur("delay", delay).
		Log("delayserver: delaying")

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	x.write(conn, responseOK)
}

func (x *Server) write(conn net.Conn, response string) {
	if _, err := conn.Write([]byte(response)); err != nil {
		x.logger.Warning().Err(err).Log("delayserver: failed to write response")
	}
}

// readRequest returns the request line, consuming headers up to the blank
// line that ends them. Requests longer than maxRequestSize, in total, fail
// with ErrBadRequest.
func readRequest(conn net.Conn) (string, error) {
	r := bufio.NewReaderSize(conn, maxRequestSize)
	var (
		requestLine string
		size        int
	)
	for {
		b, err := r.ReadSlice('\n')
		size += len(b)
		if errors.Is(err, bufio.ErrBufferFull) || size > maxRequestSize {
			return "", fmt.Errorf("%w: request exceeds %d bytes", ErrBadRequest, maxRequestSize)
		}
		if err != nil {
			return "", err
		}
		line := strings.TrimRight(string(b), "\r\n")
		if line == "" {
			break
		}
		if requestLine == "" {
			requestLine = line
		}
	}
	return requestLine, nil
}

func clientIP(conn net.Conn) string {
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		return addr.IP.String()
	}
	return conn.RemoteAddr().String()
}

// validateRates checks what catrate.NewLimiter would otherwise panic on:
// longer windows must allow more events, at a lower rate.
func validateRates(rates map[time.Duration]int) error {
	windows := make([]time.Duration, 0, len(rates))
	for window, limit := range rates {
		if window <= 0 || limit <= 0 {
			return fmt.Errorf("delayserver: invalid rate %d per %s", limit, window)
		}
		windows = append(windows, window)
	}
	slices.Sort(windows)
	for i := 1; i < len(windows); i++ {
		shorter, longer := windows[i-1], windows[i]
		if rates[longer] <= rates[shorter] ||
			float64(rates[longer])/float64(longer) >= float64(rates[shorter])/float64(shorter) {
			return fmt.Errorf("delayserver: rate %d per %s is irrelevant given %d per %s", rates[longer], longer, rates[shorter], shorter)
		}
	}
	return nil
}
