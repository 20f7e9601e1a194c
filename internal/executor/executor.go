package executor

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Runner executes a command on a single host. The SSH layer implements it.
type Runner interface {
	Run(ctx context.Context, host string, command string) *Response
}

// Executor issues one command to a set of hosts as a single batched call,
// fanning out with bounded concurrency and a per-host deadline.
type Executor struct {
	runner      Runner
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithConcurrency sets the maximum number of hosts contacted at once.
func WithConcurrency(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithTimeout sets the default per-host command timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the logger used for per-batch debug records.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Executor with the given Runner and options.
func New(runner Runner, opts ...Option) *Executor {
	e := &Executor{
		runner:      runner,
		concurrency: 20,
		timeout:     30 * time.Second,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type hostTimeoutKey struct{}

// TimeoutContext returns a context that overrides the per-host timeout for
// batches executed with it. Long-running steps use this instead of a second
// Executor.
func TimeoutContext(ctx context.Context, d time.Duration) context.Context {
	return context.WithValue(ctx, hostTimeoutKey{}, d)
}

func (e *Executor) hostTimeout(ctx context.Context) time.Duration {
	if d, ok := ctx.Value(hostTimeoutKey{}).(time.Duration); ok && d > 0 {
		return d
	}
	return e.timeout
}

// Execute runs command on all hosts and blocks until every host has answered,
// failed, or hit its deadline. Results are in input order, one per host.
func (e *Executor) Execute(ctx context.Context, hosts []string, command string) []*Response {
	results := make([]*Response, len(hosts))
	if len(hosts) == 0 {
		return results
	}

	timeout := e.hostTimeout(ctx)
	batchStart := time.Now()
	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup

	for i, host := range hosts {
		wg.Add(1)
		go func(idx int, h string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = &Response{Host: h, ExitCode: -1, Err: ctx.Err()}
				return
			}

			hostCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			result := e.runner.Run(hostCtx, h, command)
			if result == nil {
				result = &Response{ExitCode: -1, Err: ErrNoResponse}
			}
			result.Duration = time.Since(start)
			result.Host = h

			// The runner may return without noticing its deadline passed.
			if hostCtx.Err() == context.DeadlineExceeded && result.Err == nil {
				result.Err = context.DeadlineExceeded
			}

			results[idx] = result
		}(i, host)
	}

	wg.Wait()

	e.logger.Debug("batch complete",
		"command", command,
		"hosts", len(hosts),
		"timeout", timeout,
		"duration", time.Since(batchStart),
	)
	return results
}
