package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"
)

func TestIsReconnectable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"context deadline", context.DeadlineExceeded, false},
		{"wrapped context canceled", fmt.Errorf("run: %w", context.Canceled), false},
		{"EOF", io.EOF, true},
		{"unexpected EOF", io.ErrUnexpectedEOF, true},
		{"wrapped EOF", fmt.Errorf("session: %w", io.EOF), true},
		{"net.OpError", &net.OpError{Op: "read", Err: errors.New("reset")}, true},
		{"closed connection", errors.New("use of closed network connection"), true},
		{"connection reset", errors.New("connection reset by peer"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"auth failure", errors.New("ssh: handshake failed: ssh: unable to authenticate"), false},
		{"generic error", errors.New("something went wrong"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := isReconnectable(tc.err); got != tc.want {
				t.Errorf("isReconnectable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestResolveHostConf(t *testing.T) {
	base := ClientConfig{User: "ops", Port: 22, IdentityFiles: []string{"/keys/default"}}
	hosts := map[string]HostConfig{
		"deploy@node-02": {Hostname: "node-02", User: "deploy", Port: 2222, IdentityFile: "/keys/node02", ProxyJump: "bastion"},
	}

	conf, dial := resolveHostConf(base, hosts, "node-01")
	if dial != "node-01" || conf.User != "ops" || conf.Port != 22 {
		t.Errorf("unlisted host should use base config, got %q %+v", dial, conf)
	}

	conf, dial = resolveHostConf(base, hosts, "deploy@node-02")
	if dial != "node-02" {
		t.Errorf("dial host = %q, want node-02", dial)
	}
	if conf.User != "deploy" || conf.Port != 2222 || conf.ProxyJump != "bastion" {
		t.Errorf("overrides not applied: %+v", conf)
	}
	if len(conf.IdentityFiles) != 1 || conf.IdentityFiles[0] != "/keys/node02" {
		t.Errorf("identity files = %v", conf.IdentityFiles)
	}
	if base.IdentityFiles[0] != "/keys/default" {
		t.Error("base config was mutated")
	}
}
