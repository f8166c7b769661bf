package delayserver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrBadRequest is returned by ParseDelay for any unrecognized request.
var ErrBadRequest = errors.New("delayserver: bad request")

// FormatRequest builds a request for the given delay, in the form the
// server expects.
func FormatRequest(delay time.Duration) string {
	return fmt.Sprintf(
		"GET /delay/%d/url/http://delay.com HTTP/1.1\r\n"+
			"Host: localhost\r\n"+
			"Connection: close\r\n"+
			"\r\n",
		delay.Milliseconds(),
	)
}

// ParseDelay extracts the delay from a request line, e.g.
// "GET /delay/2000/url/http://delay.com HTTP/1.1".
func ParseDelay(requestLine string) (time.Duration, error) {
	fields := strings.Fields(requestLine)
	if len(fields) < 2 {
		return 0, fmt.Errorf("%w: malformed request line %q", ErrBadRequest, requestLine)
	}

	var route []string
	for _, v := range strings.Split(fields[1], "/") {
		if v != "" {
			route = append(route, v)
		}
	}
	if len(route) < 2 || route[0] != "delay" {
		return 0, fmt.Errorf("%w: unknown route %q", ErrBadRequest, fields[1])
	}

	ms, err := strconv.ParseUint(route[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid delay %q", ErrBadRequest, route[1])
	}

	return time.Duration(ms) * time.Millisecond, nil
}
