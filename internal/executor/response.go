package executor

import (
	"errors"
	"strings"
	"time"
)

// ErrNoResponse marks a host for which the transport returned no response record.
var ErrNoResponse = errors.New("no response")

// Response is the outcome of running one command on one host.
type Response struct {
	Host     string
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
	Err      error // connection/timeout errors
}

// StdoutText returns stdout with trailing line breaks removed.
func (r *Response) StdoutText() string {
	return trimOutput(r.Stdout)
}

// StderrText returns stderr with trailing line breaks removed.
func (r *Response) StderrText() string {
	return trimOutput(r.Stderr)
}

// Failed reports whether the command could not be confirmed as successful on the host.
func (r *Response) Failed() bool {
	return r.Err != nil || r.ExitCode != 0 || r.StderrText() != ""
}

// trimOutput drops trailing CR/LF and treats whitespace-only output as empty.
func trimOutput(b []byte) string {
	s := strings.TrimRight(string(b), "\r\n")
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}
