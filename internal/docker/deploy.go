package docker

import (
	"context"
	"fmt"
	"time"

	"github.com/agent462/dockfleet/internal/executor"
)

// Outcome is the overall result of a deploy.
type Outcome int

const (
	// Success means the install sequence ran on every target host. Per-host
	// step failures are reported in DeployResult.Steps, not here.
	Success Outcome = iota
	// AllHostsUnreachable means no host passed the liveness probe. Nothing
	// beyond the probe was sent.
	AllHostsUnreachable
	// AllHostsAlreadyInstalled means every working host already had Docker
	// and force was off.
	AllHostsAlreadyInstalled
	// Interrupted means the context ended before the sequence finished.
	Interrupted
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case AllHostsUnreachable:
		return "all-hosts-unreachable"
	case AllHostsAlreadyInstalled:
		return "all-hosts-already-installed"
	case Interrupted:
		return "interrupted"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// InstallPlan describes the three install steps.
type InstallPlan struct {
	ScriptURL  string        // fetched with curl on each host
	ScriptPath string        // where the script lives on the host
	Timeout    time.Duration // per-host deadline for the install step
	ScriptFile string        // local script to upload instead of downloading
}

// DefaultInstallPlan fetches https://get.docker.com into get-docker.sh.
func DefaultInstallPlan() InstallPlan {
	return InstallPlan{
		ScriptURL:  "https://get.docker.com",
		ScriptPath: "get-docker.sh",
		Timeout:    10 * time.Minute,
	}
}

func (p InstallPlan) withDefaults() InstallPlan {
	d := DefaultInstallPlan()
	if p.ScriptURL == "" {
		p.ScriptURL = d.ScriptURL
	}
	if p.ScriptPath == "" {
		p.ScriptPath = d.ScriptPath
	}
	if p.Timeout <= 0 {
		p.Timeout = d.Timeout
	}
	return p
}

// DownloadCommand fetches the install script onto the host.
func (p InstallPlan) DownloadCommand() string {
	return "curl -fsSL " + p.ScriptURL + " -o " + p.ScriptPath
}

// InstallCommand runs the install script as root.
func (p InstallPlan) InstallCommand() string {
	return "sudo sh " + p.ScriptPath
}

// CleanupCommand removes the install script.
func (p InstallPlan) CleanupCommand() string {
	return "rm -f " + p.ScriptPath
}

// Step names.
const (
	StepDownload = "download"
	StepInstall  = "install"
	StepCleanup  = "cleanup"
)

// StepResult is what one install step returned from each target host.
type StepResult struct {
	Name      string
	Command   string
	Responses []*executor.Response // in target order
}

// Failed lists the hosts where the step produced stderr, exited non-zero or
// could not be run.
func (s StepResult) Failed() []*executor.Response {
	var failed []*executor.Response
	for _, r := range s.Responses {
		if r.Failed() {
			failed = append(failed, r)
		}
	}
	return failed
}

// DeployOptions controls a deploy.
type DeployOptions struct {
	// Force installs on every working host, even where Docker is present.
	Force bool
}

// DeployResult describes what a deploy saw and did.
type DeployResult struct {
	Outcome   Outcome
	Working   []string
	Excluded  []Exclusion
	Installed []string // working hosts skipped because Docker was found
	Targets   []string
	Steps     []StepResult
}

// Failed reports whether any install step failed on any host.
func (r *DeployResult) Failed() bool {
	for _, s := range r.Steps {
		if len(s.Failed()) > 0 {
			return true
		}
	}
	return false
}

type installStep struct {
	name    string
	command string
	start   string
	done    string
	run     func(ctx context.Context, hosts []string) []*executor.Response
}

func (o *Orchestrator) installSteps() []installStep {
	p := o.plan
	download := installStep{
		name:    StepDownload,
		command: p.DownloadCommand(),
		start:   "Downloading Docker on hosts...",
		done:    "Downloaded Docker on hosts.",
	}
	if p.ScriptFile != "" && o.uploader != nil {
		download.command = "upload " + p.ScriptFile + " to " + p.ScriptPath
		download.start = "Uploading Docker install script to hosts..."
		download.done = "Uploaded Docker install script to hosts."
		download.run = func(ctx context.Context, hosts []string) []*executor.Response {
			return o.correlate(download.command, hosts, func() []*executor.Response {
				return o.uploader.Upload(ctx, hosts, p.ScriptFile, p.ScriptPath)
			})
		}
	}

	install := installStep{
		name:    StepInstall,
		command: p.InstallCommand(),
		start:   "Installing Docker on hosts...",
		done:    "Installed Docker on hosts.",
		run: func(ctx context.Context, hosts []string) []*executor.Response {
			return o.batch(executor.TimeoutContext(ctx, p.Timeout), hosts, p.InstallCommand())
		},
	}

	cleanup := installStep{
		name:    StepCleanup,
		command: p.CleanupCommand(),
		start:   "Cleaning up Docker installation on hosts...",
		done:    "Success! Installed Docker on hosts and cleaned up installation files.",
	}
	return []installStep{download, install, cleanup}
}

// Deploy installs Docker on the working hosts that need it. Without force,
// hosts that already have Docker are skipped, so a repeated deploy is a
// no-op. The install steps run in order as full barriers over all targets,
// and each step runs regardless of how the previous one went on any host.
//
// The error is non-nil only when ctx ends mid-deploy; the partial result is
// still returned with Outcome Interrupted.
func (o *Orchestrator) Deploy(ctx context.Context, hosts []string, opts DeployOptions) (*DeployResult, error) {
	res := &DeployResult{}

	res.Working, res.Excluded = o.WorkingHosts(ctx, hosts)
	if err := ctx.Err(); err != nil {
		return o.interrupted(res, err)
	}
	if len(res.Working) == 0 {
		o.emit(LevelError, "", "Failed to connect to all of the provided hosts. Deploy aborted.")
		res.Outcome = AllHostsUnreachable
		return res, nil
	}

	if opts.Force {
		res.Targets = res.Working
	} else {
		res.Targets, res.Installed = o.TargetHosts(ctx, res.Working)
		if err := ctx.Err(); err != nil {
			return o.interrupted(res, err)
		}
	}
	if len(res.Targets) == 0 {
		o.emit(LevelWarning, "", "Docker is already installed on all of the provided hosts. Deploy aborted.")
		res.Outcome = AllHostsAlreadyInstalled
		return res, nil
	}

	for _, step := range o.installSteps() {
		if err := ctx.Err(); err != nil {
			return o.interrupted(res, err)
		}

		o.emit(LevelMsg, "", step.start)
		var responses []*executor.Response
		if step.run != nil {
			responses = step.run(ctx, res.Targets)
		} else {
			responses = o.batch(ctx, res.Targets, step.command)
		}

		sr := StepResult{Name: step.name, Command: step.command, Responses: responses}
		res.Steps = append(res.Steps, sr)
		for _, r := range sr.Failed() {
			o.logger.Warn("install step failed",
				"step", step.name,
				"host", r.Host,
				"exit_code", r.ExitCode,
				"stderr", r.StderrText(),
				"error", r.Err,
			)
			o.emit(LevelWarning, r.Host, fmt.Sprintf("%s step reported a problem on %s: %s", step.name, r.Host, failureDetail(r)))
		}

		level := LevelMsg
		if step.name == StepCleanup {
			level = LevelOK
		}
		o.emit(level, "", step.done)
	}

	res.Outcome = Success
	return res, nil
}

func (o *Orchestrator) interrupted(res *DeployResult, err error) (*DeployResult, error) {
	res.Outcome = Interrupted
	o.emit(LevelError, "", "Deploy interrupted: "+err.Error())
	return res, fmt.Errorf("deploy: %w", err)
}

func failureDetail(r *executor.Response) string {
	if s := r.StderrText(); s != "" {
		return s
	}
	if r.Err != nil {
		return r.Err.Error()
	}
	return fmt.Sprintf("exit status %d", r.ExitCode)
}
