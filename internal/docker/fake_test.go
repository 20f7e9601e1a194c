package docker

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/agent462/dockfleet/internal/executor"
)

type call struct {
	hosts   []string
	command string
}

// fleet is an in-memory Transport. Each host has an OS line and a docker
// flag; the install command flips that flag.
type fleet struct {
	mu    sync.Mutex
	calls []call

	// systems holds the uname output per host; a missing entry is unreachable.
	systems map[string]string
	docker  map[string]bool
	// stderr is returned alongside every command on that host.
	stderr  map[string]string
	reverse bool
	// drop lists hosts the transport never answers for.
	drop    map[string]bool
	handler func(host, cmd string) *executor.Response
	onCall  func(c call)
}

func newFleet() *fleet {
	return &fleet{
		systems: map[string]string{},
		docker:  map[string]bool{},
		stderr:  map[string]string{},
		drop:    map[string]bool{},
	}
}

func (f *fleet) linux(hosts ...string) *fleet {
	for _, h := range hosts {
		f.systems[h] = "Linux " + h + " 6.1.0-18-amd64 #1 SMP PREEMPT_DYNAMIC x86_64 GNU/Linux\n"
	}
	return f
}

func (f *fleet) withDocker(hosts ...string) *fleet {
	for _, h := range hosts {
		f.docker[h] = true
	}
	return f
}

func (f *fleet) Execute(ctx context.Context, hosts []string, command string) []*executor.Response {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := call{hosts: slices.Clone(hosts), command: command}
	f.calls = append(f.calls, c)
	if f.onCall != nil {
		f.onCall(c)
	}

	var out []*executor.Response
	for _, h := range hosts {
		if f.drop[h] {
			continue
		}
		out = append(out, f.respond(h, command))
	}
	if f.reverse {
		slices.Reverse(out)
	}
	return out
}

func (f *fleet) respond(host, command string) *executor.Response {
	if f.handler != nil {
		if r := f.handler(host, command); r != nil {
			return r
		}
	}
	r := &executor.Response{Host: host, Stderr: []byte(f.stderr[host])}
	system := f.systems[host]
	if system == "" {
		r.ExitCode = -1
		r.Err = errUnreachable
		return r
	}
	switch {
	case command == "uname -a":
		r.Stdout = []byte(system)
	case command == "which docker":
		if f.docker[host] {
			r.Stdout = []byte("/usr/bin/docker\n")
		} else {
			r.ExitCode = 1
		}
	case strings.HasPrefix(command, "sudo sh "):
		f.docker[host] = true
		r.Stdout = []byte("# Executing docker install script\n")
	}
	return r
}

func (f *fleet) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmds := make([]string, len(f.calls))
	for i, c := range f.calls {
		cmds[i] = c.command
	}
	return cmds
}

func (f *fleet) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

type sentinel string

func (s sentinel) Error() string { return string(s) }

const errUnreachable = sentinel("dial tcp: connection refused")

// recorder collects events.
type recorder struct {
	events []Event
}

func (r *recorder) record(e Event) {
	r.events = append(r.events, e)
}

func (r *recorder) messages() []string {
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Message
	}
	return out
}
