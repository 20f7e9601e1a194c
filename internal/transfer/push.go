package transfer

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agent462/dockfleet/internal/executor"
	hssh "github.com/agent462/dockfleet/internal/ssh"
)

// ClientProvider returns a pooled SSH client for a host. The caller does
// not close it. ssh.Pool implements it.
type ClientProvider interface {
	GetClient(ctx context.Context, host string) (*hssh.Client, error)
}

// Result holds the outcome of a file push to a single host.
type Result struct {
	Host      string
	BytesSent int64
	Duration  time.Duration
	Checksum  string
	Err       error
}

// Pusher uploads files to many hosts in parallel.
type Pusher struct {
	provider    ClientProvider
	concurrency int
	timeout     time.Duration
	progress    ProgressFunc
}

// Option configures a Pusher.
type Option func(*Pusher)

// WithConcurrency sets the maximum number of parallel transfers.
func WithConcurrency(n int) Option {
	return func(p *Pusher) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithTimeout sets the per-host transfer timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Pusher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithProgress registers a callback invoked as bytes are written.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pusher) {
		p.progress = fn
	}
}

// New creates a Pusher.
func New(provider ClientProvider, opts ...Option) *Pusher {
	p := &Pusher{
		provider:    provider,
		concurrency: 20,
		timeout:     5 * time.Minute,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Push uploads localPath to remotePath on every host. Results are in the
// order of hosts; failures are per host and never stop the others.
func (p *Pusher) Push(ctx context.Context, hosts []string, localPath, remotePath string) []*Result {
	results := make([]*Result, len(hosts))

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for i, host := range hosts {
		if err := ctx.Err(); err != nil {
			results[i] = &Result{Host: host, Err: err}
			continue
		}
		g.Go(func() error {
			results[i] = p.pushOne(ctx, host, localPath, remotePath)
			return nil
		})
	}

	g.Wait()
	return results
}

func (p *Pusher) pushOne(ctx context.Context, host, localPath, remotePath string) *Result {
	hostCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	result := &Result{Host: host}

	client, err := p.provider.GetClient(hostCtx, host)
	if err != nil {
		result.Err = fmt.Errorf("connect: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Checksum, result.BytesSent, result.Err = PushFile(hostCtx, client.SSHClient(), localPath, remotePath, host, p.progress)
	result.Duration = time.Since(start)
	return result
}

// Upload pushes localPath to every host and reports each outcome as a
// command response, so an upload can stand in for a remote download step.
// A failed push carries its error in Err and Stderr.
func (p *Pusher) Upload(ctx context.Context, hosts []string, localPath, remotePath string) []*executor.Response {
	results := p.Push(ctx, hosts, localPath, remotePath)
	responses := make([]*executor.Response, len(results))
	for i, r := range results {
		resp := &executor.Response{Host: r.Host, Duration: r.Duration, Err: r.Err}
		if r.Err != nil {
			resp.ExitCode = -1
			resp.Stderr = []byte(r.Err.Error())
		}
		responses[i] = resp
	}
	return responses
}
