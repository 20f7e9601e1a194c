package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/agent462/dockfleet/internal/executor"
)

// Pool keeps one SSH connection per host for the life of a deploy, so the
// liveness probe, the docker probe and the three install steps share it.
// It implements executor.Runner.
type Pool struct {
	mu        sync.Mutex
	clients   map[string]*Client
	dials     singleflight.Group
	baseConf  ClientConfig
	hostConfs map[string]HostConfig
}

// HostConfig overrides the base client config for one host. The pool is
// keyed by display name; Hostname is what actually gets dialed.
type HostConfig struct {
	Hostname     string
	User         string
	Port         int
	IdentityFile string
	ProxyJump    string
}

// NewPool creates a connection pool with the given base config and per-host overrides.
func NewPool(baseConf ClientConfig, hostConfs map[string]HostConfig) *Pool {
	return &Pool{
		clients:   make(map[string]*Client),
		baseConf:  baseConf,
		hostConfs: hostConfs,
	}
}

// Run implements executor.Runner. A command that fails with what looks like
// a dropped connection is retried once on a fresh connection.
func (p *Pool) Run(ctx context.Context, host string, command string) *executor.Response {
	result := &executor.Response{Host: host}

	stdout, stderr, exitCode, err := p.exec(ctx, host, command)
	if err != nil && isReconnectable(err) {
		p.evict(host)
		stdout, stderr, exitCode, err = p.exec(ctx, host, command)
	}

	result.Stdout = stdout
	result.Stderr = stderr
	result.ExitCode = exitCode
	result.Err = err
	return result
}

func (p *Pool) exec(ctx context.Context, host string, command string) ([]byte, []byte, int, error) {
	client, err := p.GetClient(ctx, host)
	if err != nil {
		return nil, nil, -1, fmt.Errorf("connect: %w", err)
	}
	return client.Exec(ctx, command)
}

// GetClient returns the cached connection for host, dialing it if needed.
// Concurrent callers for the same host share a single dial. Pooled clients
// must not be closed by the caller.
func (p *Pool) GetClient(ctx context.Context, host string) (*Client, error) {
	p.mu.Lock()
	if client, ok := p.clients[host]; ok {
		p.mu.Unlock()
		return client, nil
	}
	p.mu.Unlock()

	ch := p.dials.DoChan(host, func() (any, error) {
		conf, dialHost := resolveHostConf(p.baseConf, p.hostConfs, host)
		client, err := Dial(ctx, dialHost, conf)
		if err != nil {
			return nil, WrapConnectError(host, err)
		}
		p.mu.Lock()
		p.clients[host] = client
		p.mu.Unlock()
		return client, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Client), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) evict(host string) {
	p.mu.Lock()
	client, ok := p.clients[host]
	delete(p.clients, host)
	p.mu.Unlock()

	if ok {
		client.Close()
	}
}

// IsConnected reports whether a cached connection exists for the given host.
func (p *Pool) IsConnected(host string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.clients[host]
	return ok
}

// Close closes all cached connections and resets the pool.
func (p *Pool) Close() error {
	p.mu.Lock()
	clients := p.clients
	p.clients = make(map[string]*Client)
	p.mu.Unlock()

	var firstErr error
	for _, client := range clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// isReconnectable reports whether err looks like a stale connection that a
// fresh dial might fix. Auth failures and context errors are permanent.
func isReconnectable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe")
}

// resolveHostConf layers the host's overrides onto base and returns the name
// to dial. Hosts without an entry are dialed by name with base unchanged.
func resolveHostConf(base ClientConfig, hostConfs map[string]HostConfig, host string) (ClientConfig, string) {
	hc, ok := hostConfs[host]
	if !ok {
		return base, host
	}
	conf, dialHost := base, host
	if hc.Hostname != "" {
		dialHost = hc.Hostname
	}
	if hc.User != "" {
		conf.User = hc.User
	}
	if hc.Port > 0 {
		conf.Port = hc.Port
	}
	if hc.IdentityFile != "" {
		conf.IdentityFiles = []string{hc.IdentityFile}
	}
	if hc.ProxyJump != "" {
		conf.ProxyJump = hc.ProxyJump
	}
	return conf, dialHost
}
