package devserver

import (
	"errors"
	"net"
	"os"
	"syscall"
	"time"
)

// DefaultProbeTimeout bounds a single port probe.
const DefaultProbeTimeout = 100 * time.Millisecond

// PortOpen reports whether something accepts TCP connections on addr. Refused,
// timed out, unreachable and unresolvable all count as closed. Any other
// outcome, including a connection that is accepted and then dropped, counts as
// open; the backend protocol is never validated.
func PortOpen(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err == nil {
		conn.Close()
		return true
	}
	return !probeClosed(err)
}

func probeClosed(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
