package ssh

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh/knownhosts"
)

func TestWrapConnectErrorHints(t *testing.T) {
	tests := []struct {
		name string
		err  error
		hint string
	}{
		{"refused", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, "SSH daemon"},
		{"dns", &net.DNSError{Err: "no such host", Name: "node-99"}, "hostname"},
		{"auth", errors.New("ssh: unable to authenticate, attempted methods [none publickey]"), "ssh -v node-01"},
		{"key permissions", errors.New("open id_ed25519: permission denied reading key"), "chmod 600"},
		{"no known_hosts", errors.New("no known_hosts file found at /home/pi/.ssh/known_hosts"), "--insecure"},
		{"unknown host key", &knownhosts.KeyError{}, "--insecure"},
		{"changed host key", &knownhosts.KeyError{Want: []knownhosts.KnownKey{{Filename: "known_hosts", Line: 3}}}, "ssh-keygen -R node-01"},
		{"timeout", errors.New("dial tcp 10.0.0.5:22: i/o timeout"), "--timeout"},
		{"deadline", fmt.Errorf("connect: %w", errors.New("context deadline exceeded")), "--timeout"},
		{"handshake", errors.New("ssh: handshake failed: EOF"), "SSH key or agent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce, ok := WrapConnectError("node-01", tt.err).(*ConnectError)
			if !ok {
				t.Fatalf("expected *ConnectError for %v", tt.err)
			}
			if !strings.Contains(ce.Hint, tt.hint) {
				t.Errorf("hint = %q, want mention of %q", ce.Hint, tt.hint)
			}
			if !errors.Is(ce, tt.err) {
				t.Error("wrapped error should unwrap to the original")
			}
			if !strings.HasPrefix(ce.Error(), "node-01: ") {
				t.Errorf("message = %q, want host prefix", ce.Error())
			}
		})
	}
}

func TestWrapConnectErrorPassThrough(t *testing.T) {
	if err := WrapConnectError("node-01", nil); err != nil {
		t.Errorf("nil error should stay nil, got %v", err)
	}

	plain := errors.New("some random error")
	if got := WrapConnectError("node-01", plain); got != plain {
		t.Errorf("unknown error should be returned as-is, got %v", got)
	}

	inner := &ConnectError{Host: "node-01", Err: errors.New("connection refused"), Hint: "x"}
	outer := fmt.Errorf("connect: %w", inner)
	if got := WrapConnectError("node-01", outer); got != outer {
		t.Error("an already wrapped error should not be wrapped again")
	}
}
