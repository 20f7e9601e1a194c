package docker

import (
	"context"
	"strings"
)

const (
	probeCommand  = "uname -a"
	dockerCommand = "which docker"
	linuxMarker   = "Linux"
)

// Reason says why a host was dropped by WorkingHosts.
type Reason string

const (
	ReasonUnreachable Reason = "unreachable"
	ReasonNotLinux    Reason = "not-linux"
)

// Exclusion records a host that did not pass the liveness probe.
type Exclusion struct {
	Host   string
	Reason Reason
	Err    error  // transport error, if any
	Output string // probe output for a non-Linux host
}

// WorkingHosts sends one batched "uname -a" and keeps the hosts whose stdout
// mentions Linux, in input order. Hosts with empty stdout, including hosts
// the transport never answered for, are unreachable. Every input host is
// either returned or excluded, never both.
func (o *Orchestrator) WorkingHosts(ctx context.Context, hosts []string) ([]string, []Exclusion) {
	o.emit(LevelMsg, "", "Testing SSH...")

	var working []string
	var excluded []Exclusion
	for _, r := range o.batch(ctx, hosts, probeCommand) {
		out := r.StdoutText()
		switch {
		case out != "" && strings.Contains(out, linuxMarker):
			o.emit(LevelOK, r.Host, "Successfully connected to "+r.Host)
			working = append(working, r.Host)
		case out != "":
			o.emit(LevelError, r.Host, r.Host+" is not a Linux machine")
			excluded = append(excluded, Exclusion{Host: r.Host, Reason: ReasonNotLinux, Output: out})
		default:
			o.emit(LevelError, r.Host, "Failed to connect to "+r.Host)
			excluded = append(excluded, Exclusion{Host: r.Host, Reason: ReasonUnreachable, Err: r.Err})
		}
	}
	return working, excluded
}

// TargetHosts probes each host with its own "which docker" call and returns
// the hosts without Docker, in input order, plus those that already have it.
// Hosts are assumed to be working; liveness is not re-checked.
func (o *Orchestrator) TargetHosts(ctx context.Context, working []string) (targets, installed []string) {
	for _, host := range working {
		if ctx.Err() != nil {
			break
		}
		o.emit(LevelMsg, host, "Checking if Docker is already installed on "+host+"...")

		r := o.batch(ctx, []string{host}, dockerCommand)[0]
		if r.StdoutText() != "" {
			o.emit(LevelWarning, host, "Docker is already installed on "+host)
			installed = append(installed, host)
			continue
		}
		o.emit(LevelMsg, host, "Docker is not installed on "+host)
		targets = append(targets, host)
	}
	return targets, installed
}

// HostStatus is the per-host view produced by Classify.
type HostStatus struct {
	Host       string
	Reachable  bool
	Linux      bool
	System     string // uname -a output
	DockerPath string // empty when docker is absent or unknown
	Err        error
}

// Classify reports reachability, OS and docker location for every host in
// input order. It uses two batched calls and emits no events.
func (o *Orchestrator) Classify(ctx context.Context, hosts []string) []HostStatus {
	statuses := make([]HostStatus, len(hosts))
	index := make(map[string][]int, len(hosts))
	var linux []string

	for i, r := range o.batch(ctx, hosts, probeCommand) {
		out := r.StdoutText()
		st := HostStatus{Host: hosts[i], System: out, Err: r.Err}
		st.Reachable = out != ""
		st.Linux = strings.Contains(out, linuxMarker)
		if st.Linux {
			linux = append(linux, hosts[i])
			index[hosts[i]] = append(index[hosts[i]], i)
		}
		statuses[i] = st
	}
	if len(linux) == 0 || ctx.Err() != nil {
		return statuses
	}

	for j, r := range o.batch(ctx, linux, dockerCommand) {
		positions := index[linux[j]]
		i := positions[0]
		index[linux[j]] = positions[1:]
		statuses[i].DockerPath = r.StdoutText()
	}
	return statuses
}
