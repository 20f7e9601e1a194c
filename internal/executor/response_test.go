package executor

import (
	"errors"
	"testing"
)

func TestResponseText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"trailing newline", "/usr/bin/docker\n", "/usr/bin/docker"},
		{"crlf", "CONTAINER ID\r\n", "CONTAINER ID"},
		{"whitespace only", " \n\t\n", ""},
		{"inner lines kept", "a\nb\n", "a\nb"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := &Response{Stdout: []byte(tc.in), Stderr: []byte(tc.in)}
			if got := r.StdoutText(); got != tc.want {
				t.Errorf("StdoutText() = %q, want %q", got, tc.want)
			}
			if got := r.StderrText(); got != tc.want {
				t.Errorf("StderrText() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResponseFailed(t *testing.T) {
	tests := []struct {
		name string
		r    Response
		want bool
	}{
		{"clean", Response{Stdout: []byte("ok")}, false},
		{"stderr", Response{Stderr: []byte("curl: (6) Could not resolve host")}, true},
		{"exit code", Response{ExitCode: 2}, true},
		{"transport error", Response{Err: errors.New("dial tcp: connection refused")}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.r.Failed(); got != tc.want {
				t.Errorf("Failed() = %v, want %v", got, tc.want)
			}
		})
	}
}
