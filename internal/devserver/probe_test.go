package devserver

import (
	"errors"
	"net"
	"os"
	"syscall"
	"testing"
)

func TestPortOpen(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping network-bound test: cannot bind loopback socket: %v", err)
	}
	addr := ln.Addr().String()

	// Accept and immediately drop: still counts as open.
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	if !PortOpen(addr, DefaultProbeTimeout) {
		t.Errorf("expected %s to be open", addr)
	}

	ln.Close()
	if PortOpen(addr, DefaultProbeTimeout) {
		t.Errorf("expected %s to be closed after listener shut down", addr)
	}
}

func TestProbeClosed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"refused", &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}, true},
		{"host unreachable", &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.EHOSTUNREACH)}, true},
		{"timeout", &net.OpError{Op: "dial", Err: os.ErrDeadlineExceeded}, true},
		{"dns", &net.OpError{Op: "dial", Err: &net.DNSError{Err: "no such host", Name: "vite"}}, true},
		{"reset", &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNRESET)}, false},
		{"other", errors.New("something else"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := probeClosed(tt.err); got != tt.want {
				t.Errorf("probeClosed(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
