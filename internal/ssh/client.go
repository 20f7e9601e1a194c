package ssh

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// PasswordCallback is called when agent and key-based auth both fail.
// It receives the hostname and should return the password.
type PasswordCallback func(host string) (string, error)

// ClientConfig holds options for creating an SSH client.
type ClientConfig struct {
	// User overrides the SSH username. If empty, resolved from
	// ~/.ssh/config, then $USER, then "root".
	User string

	// Port overrides the SSH port. If zero, resolved from ~/.ssh/config
	// or defaults to 22.
	Port int

	// IdentityFiles lists explicit private key paths to try.
	// If empty, resolved from ~/.ssh/config and default key locations.
	IdentityFiles []string

	// PasswordCallback is invoked when agent and key auth fail.
	PasswordCallback PasswordCallback

	// AcceptUnknownHosts skips known_hosts verification entirely.
	AcceptUnknownHosts bool

	// HostKeyCallback overrides the default host key verification.
	HostKeyCallback ssh.HostKeyCallback

	// ProxyJump lists comma-separated jump hosts ("bastion",
	// "user@jump1:2222,jump2"). "none" disables jumping.
	ProxyJump string

	// ConnectTimeout bounds the TCP dial. Zero means only the context applies.
	ConnectTimeout time.Duration

	// SudoPassword, when set, is written to stdin of commands that start
	// with "sudo " so that hosts without NOPASSWD sudo still work.
	SudoPassword string
}

// Client wraps an SSH connection to a single host.
type Client struct {
	host        string
	sshClient   *ssh.Client
	clientConf  ClientConfig
	jumpClients []*Client // intermediate hops, closed after the client
}

// Dial connects to host using the configured auth chain, tunneling through
// conf.ProxyJump when it is set.
func Dial(ctx context.Context, host string, conf ClientConfig) (*Client, error) {
	if conf.ProxyJump != "" && conf.ProxyJump != "none" {
		return dialViaProxy(ctx, host, conf)
	}
	return dialDirect(ctx, host, conf)
}

func dialDirect(ctx context.Context, host string, conf ClientConfig) (*Client, error) {
	sshConf, addr, err := clientConfigFor(host, conf)
	if err != nil {
		return nil, err
	}

	d := net.Dialer{Timeout: conf.ConnectTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	return handshake(ctx, conn, host, addr, sshConf, conf)
}

// dialThrough opens the connection to host as a channel on an existing client.
func dialThrough(ctx context.Context, via *Client, host string, conf ClientConfig) (*Client, error) {
	sshConf, addr, err := clientConfigFor(host, conf)
	if err != nil {
		return nil, err
	}

	conn, err := via.sshClient.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tunnel through %s to %s: %w", via.host, addr, err)
	}

	client, err := handshake(ctx, conn, host, addr, sshConf, conf)
	if err != nil {
		return nil, fmt.Errorf("via %s: %w", via.host, err)
	}
	return client, nil
}

func clientConfigFor(host string, conf ClientConfig) (*ssh.ClientConfig, string, error) {
	addr, user := resolveAddress(host, conf)

	hostKeyCallback, err := resolveHostKeyCallback(conf)
	if err != nil {
		return nil, "", fmt.Errorf("host key callback: %w", err)
	}

	return &ssh.ClientConfig{
		User:            user,
		Auth:            buildAuthMethods(host, conf),
		HostKeyCallback: hostKeyCallback,
	}, addr, nil
}

// handshake runs the SSH handshake on conn, aborting when ctx is done.
func handshake(ctx context.Context, conn net.Conn, host, addr string, sshConf *ssh.ClientConfig, conf ClientConfig) (*Client, error) {
	type result struct {
		conn  ssh.Conn
		chans <-chan ssh.NewChannel
		reqs  <-chan *ssh.Request
		err   error
	}

	done := make(chan result, 1)
	go func() {
		c, chans, reqs, err := ssh.NewClientConn(conn, addr, sshConf)
		done <- result{c, chans, reqs, err}
	}()

	select {
	case <-ctx.Done():
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, ctx.Err())
	case r := <-done:
		if r.err != nil {
			conn.Close()
			return nil, fmt.Errorf("ssh handshake with %s: %w", addr, r.err)
		}
		return &Client{
			host:       host,
			sshClient:  ssh.NewClient(r.conn, r.chans, r.reqs),
			clientConf: conf,
		}, nil
	}
}

// RunCommand executes command and returns stdout, stderr and the exit code.
// A non-zero exit is not an error; err is reserved for session failures.
func (c *Client) RunCommand(ctx context.Context, command string) (stdout, stderr []byte, exitCode int, err error) {
	return c.run(ctx, command, nil)
}

// Exec runs command, delivering the configured sudo password when the
// command is a sudo invocation.
func (c *Client) Exec(ctx context.Context, command string) (stdout, stderr []byte, exitCode int, err error) {
	if c.clientConf.SudoPassword != "" {
		return c.RunCommandWithSudo(ctx, command, c.clientConf.SudoPassword)
	}
	return c.RunCommand(ctx, command)
}

func (c *Client) run(ctx context.Context, command string, stdin io.Reader) ([]byte, []byte, int, error) {
	session, err := c.sshClient.NewSession()
	if err != nil {
		return nil, nil, -1, fmt.Errorf("new session: %w", err)
	}
	defer session.Close()

	var outBuf, errBuf lockedBuffer
	session.Stdout = &outBuf
	session.Stderr = &errBuf
	if stdin != nil {
		session.Stdin = stdin
	}

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		session.Close()
		return outBuf.Bytes(), errBuf.Bytes(), -1, ctx.Err()
	case err := <-done:
		if err == nil {
			return outBuf.Bytes(), errBuf.Bytes(), 0, nil
		}
		if exitErr, ok := err.(*ssh.ExitError); ok {
			return outBuf.Bytes(), errBuf.Bytes(), exitErr.ExitStatus(), nil
		}
		return outBuf.Bytes(), errBuf.Bytes(), -1, err
	}
}

// Close closes the connection, then any jump hosts innermost first.
func (c *Client) Close() error {
	var firstErr error
	if c.sshClient != nil {
		firstErr = c.sshClient.Close()
	}
	for i := len(c.jumpClients) - 1; i >= 0; i-- {
		if err := c.jumpClients[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Host returns the hostname this client is connected to.
func (c *Client) Host() string {
	return c.host
}

// SSHClient exposes the underlying connection for SFTP sessions.
func (c *Client) SSHClient() *ssh.Client {
	return c.sshClient
}

// lockedBuffer collects session output. Reads may race the session's copy
// goroutines when a command is abandoned on cancellation.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}
