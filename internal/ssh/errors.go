package ssh

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ConnectError wraps an SSH connection error with a user-friendly hint.
type ConnectError struct {
	Host string
	Err  error
	Hint string
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("%s: %v (hint: %s)", e.Host, e.Err, e.Hint)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// WrapConnectError attaches a hint to well-known connection failures.
// Errors that match nothing, and errors already wrapped, are returned as-is.
func WrapConnectError(host string, err error) error {
	if err == nil {
		return nil
	}
	var ce *ConnectError
	if errors.As(err, &ce) {
		return err
	}
	if hint := connectHint(host, err); hint != "" {
		return &ConnectError{Host: host, Err: err, Hint: hint}
	}
	return err
}

func connectHint(host string, err error) string {
	msg := err.Error()

	var keyErr *knownhosts.KeyError
	var dnsErr *net.DNSError
	var authErr *ssh.ServerAuthError

	switch {
	case strings.Contains(msg, "permission denied") && strings.Contains(msg, "key"):
		return "check SSH key permissions (chmod 600)"
	case errors.As(err, &authErr),
		strings.Contains(msg, "unable to authenticate"),
		strings.Contains(msg, "no supported methods remain"):
		return fmt.Sprintf("verify your SSH key or agent. Try: ssh -v %s", host)
	case strings.Contains(msg, "connection refused"):
		return "verify the SSH daemon is running on the target host"
	case errors.As(err, &keyErr) && len(keyErr.Want) > 0:
		return fmt.Sprintf("host key changed; remove the old key with: ssh-keygen -R %s", host)
	case strings.Contains(msg, "no known_hosts"), errors.As(err, &keyErr):
		return fmt.Sprintf("use --insecure or connect once with: ssh %s", host)
	case errors.As(err, &dnsErr), strings.Contains(msg, "no such host"):
		return "verify the hostname is correct"
	case strings.Contains(msg, "i/o timeout"), strings.Contains(msg, "deadline exceeded"):
		return "host did not answer in time; check the network path or raise --timeout"
	case strings.Contains(msg, "handshake failed"):
		return fmt.Sprintf("verify your SSH key or agent. Try: ssh -v %s", host)
	}
	return ""
}
