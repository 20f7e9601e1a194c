// Package docker installs Docker across a set of Linux hosts and runs docker
// CLI commands on them. Every remote interaction is a batched call through a
// Transport; responses are matched back to hosts by name.
package docker

import (
	"context"
	"log/slog"
	"time"

	"github.com/agent462/dockfleet/internal/executor"
)

// Transport runs one command on many hosts and returns one response per host.
// executor.Executor implements it. Response order is not relied upon.
type Transport interface {
	Execute(ctx context.Context, hosts []string, command string) []*executor.Response
}

// Uploader copies a local file to every host, reporting each outcome as a
// response. transfer.Pusher implements it.
type Uploader interface {
	Upload(ctx context.Context, hosts []string, localPath, remotePath string) []*executor.Response
}

// Orchestrator filters hosts, deploys Docker and executes docker commands.
// It holds no per-call state and is safe to reuse.
type Orchestrator struct {
	transport Transport
	uploader  Uploader
	plan      InstallPlan
	events    EventFunc
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEvents registers a receiver for diagnostic events.
func WithEvents(fn EventFunc) Option {
	return func(o *Orchestrator) {
		o.events = fn
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithInstallPlan replaces the default install plan. Empty fields keep
// their defaults.
func WithInstallPlan(p InstallPlan) Option {
	return func(o *Orchestrator) {
		o.plan = p.withDefaults()
	}
}

// WithUploader sets the uploader used when the plan names a local script file.
func WithUploader(u Uploader) Option {
	return func(o *Orchestrator) {
		o.uploader = u
	}
}

// New creates an Orchestrator on top of transport.
func New(transport Transport, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		transport: transport,
		plan:      DefaultInstallPlan(),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// batch issues command to hosts as one call and returns the responses in
// host order, keyed by each response's Host field.
func (o *Orchestrator) batch(ctx context.Context, hosts []string, command string) []*executor.Response {
	return o.correlate(command, hosts, func() []*executor.Response {
		return o.transport.Execute(ctx, hosts, command)
	})
}

func (o *Orchestrator) correlate(command string, hosts []string, call func() []*executor.Response) []*executor.Response {
	start := time.Now()
	raw := call()
	responses, mm := executor.Correlate(hosts, raw)
	if !mm.Empty() {
		o.logger.Warn("response mismatch",
			"command", command,
			"missing", mm.Missing,
			"unexpected", mm.Unexpected,
		)
	}
	o.logger.Debug("batched call",
		"command", command,
		"hosts", len(hosts),
		"responses", len(raw),
		"duration", time.Since(start),
	)
	return responses
}
