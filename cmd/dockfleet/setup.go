package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/agent462/dockfleet/internal/config"
	"github.com/agent462/dockfleet/internal/docker"
	"github.com/agent462/dockfleet/internal/executor"
	"github.com/agent462/dockfleet/internal/hostlist"
	"github.com/agent462/dockfleet/internal/logging"
	"github.com/agent462/dockfleet/internal/ssh"
	"github.com/agent462/dockfleet/internal/transfer"
	"github.com/agent462/dockfleet/internal/ui/console"
	"github.com/agent462/dockfleet/internal/ui/report"
)

// session is everything a subcommand needs once flags and config are
// resolved.
type session struct {
	cfg       *config.Config
	logger    *slog.Logger
	hosts     []config.Host
	pool      *ssh.Pool
	orch      *docker.Orchestrator
	formatter *report.Formatter
	out       io.Writer
}

func (r *session) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// names returns the host identities in input order.
func (r *session) names() []string {
	return config.Names(r.hosts)
}

// setup loads config, applies flag overrides, builds the host list and
// wires the SSH pool, executor and orchestrator. extra holds hosts given as
// positional arguments.
func (f *globalFlags) setup(cmd *cobra.Command, extra []string) (*session, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, &setupError{err: err}
	}
	f.applyOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, setupErr("invalid settings: %w", err)
	}

	level, err := logging.ParseLevel(cfg.Defaults.LogLevel)
	if err != nil {
		return nil, &setupError{err: err}
	}
	format, err := logging.ParseFormat(cfg.Defaults.LogFormat)
	if err != nil {
		return nil, &setupError{err: err}
	}
	logger := logging.New(logging.Config{Level: level, Format: format, Output: cmd.ErrOrStderr()})

	cliHosts, err := f.collectHosts(extra)
	if err != nil {
		return nil, &setupError{err: err}
	}
	hosts, err := config.ResolveHosts(cfg, f.group, cliHosts)
	if err != nil {
		return nil, &setupError{err: err}
	}

	base := ssh.ClientConfig{
		User:               f.user,
		Port:               f.port,
		IdentityFiles:      f.identities,
		AcceptUnknownHosts: cfg.Defaults.Insecure,
		ConnectTimeout:     cfg.Defaults.Timeout.Duration,
	}
	if stdinIsTerminal() {
		base.PasswordCallback = newPasswordPrompter(cmd.ErrOrStderr()).prompt
	}
	if f.sudoPassword {
		pw, err := readSecret(cmd.ErrOrStderr(), "sudo password: ")
		if err != nil {
			return nil, setupErr("reading sudo password: %w", err)
		}
		base.SudoPassword = pw
	}

	pool := ssh.NewPool(base, config.SSHHosts(hosts))
	ex := executor.New(pool,
		executor.WithConcurrency(cfg.Defaults.Concurrency),
		executor.WithTimeout(config.MaxTimeout(hosts, cfg.Defaults.Timeout.Duration)),
		executor.WithLogger(logger),
	)

	uploader := transfer.New(pool,
		transfer.WithConcurrency(cfg.Defaults.Concurrency),
		transfer.WithTimeout(cfg.Install.Timeout.Duration),
		transfer.WithProgress(func(host string, sent, total int64) {
			if sent == total {
				logger.Debug("upload finished", "host", host, "bytes", total)
			}
		}),
	)

	out := cmd.OutOrStdout()
	color := f.useColor(out)
	printer := console.New(out, color)

	orch := docker.New(ex,
		docker.WithEvents(printer.Print),
		docker.WithLogger(logger),
		docker.WithInstallPlan(docker.InstallPlan{
			ScriptURL:  cfg.Install.ScriptURL,
			ScriptPath: cfg.Install.ScriptPath,
			Timeout:    cfg.Install.Timeout.Duration,
			ScriptFile: cfg.Install.ScriptFile,
		}),
		docker.WithUploader(uploader),
	)

	logger.Debug("resolved hosts", "count", len(hosts), "group", f.group)

	return &session{
		cfg:       cfg,
		logger:    logger,
		hosts:     hosts,
		pool:      pool,
		orch:      orch,
		formatter: report.NewFormatter(cfg.Defaults.Output == "json", color),
		out:       out,
	}, nil
}

func (f *globalFlags) loadConfig() (*config.Config, error) {
	if f.configPath != "" {
		return config.Load(f.configPath)
	}
	return config.LoadDefault()
}

// applyOverrides copies explicitly set flags over the config values.
func (f *globalFlags) applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("concurrency") {
		cfg.Defaults.Concurrency = f.concurrency
	}
	if flags.Changed("timeout") {
		cfg.Defaults.Timeout = config.Duration{Duration: f.timeout}
	}
	if flags.Changed("user") {
		cfg.Defaults.User = f.user
	}
	if flags.Changed("insecure") {
		cfg.Defaults.Insecure = f.insecure
	}
	if flags.Changed("output") {
		cfg.Defaults.Output = f.output
	}
	if flags.Changed("log-level") {
		cfg.Defaults.LogLevel = f.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Defaults.LogFormat = f.logFormat
	}
}

// collectHosts expands -H patterns, the -f file and positional hosts, in
// that order.
func (f *globalFlags) collectHosts(extra []string) ([]string, error) {
	var hosts []string
	for _, list := range append(append([]string{}, f.hosts...), extra...) {
		expanded, err := hostlist.Parse(list)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, expanded...)
	}
	if f.hostFile != "" {
		fromFile, err := hostlist.ReadFile(f.hostFile)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, fromFile...)
	}
	return hostlist.Dedup(hosts), nil
}

// useColor reports whether styled output should be written to w.
func (f *globalFlags) useColor(w io.Writer) bool {
	if f.noColor {
		return false
	}
	if v, ok := os.LookupEnv("NO_COLOR"); ok && strings.TrimSpace(v) != "" {
		return false
	}
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
