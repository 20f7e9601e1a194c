// Command dockfleet installs Docker on a fleet of Linux hosts over SSH and
// runs docker commands across them.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agent462/dockfleet/internal/ssh"
)

// Build-time variables (set via -ldflags).
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	ssh.CloseAgent()

	if err != nil && err.Error() != "" {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "dockfleet",
		Short: "Install Docker on remote Linux hosts and run docker commands across them",
		Long: `dockfleet installs Docker over SSH on every reachable Linux host that does
not have it yet, and runs docker CLI commands across a set of hosts.

Hosts come from a config group (-g), a host file (-f) or the command line
(-H). Names may use bracket ranges: node[01-05], 192.168.50.[1-3], web[1,3].

Examples:
  # Install Docker where it is missing
  dockfleet deploy -H 'node[01-05]'

  # Reinstall everywhere
  dockfleet deploy -g swarm --force

  # Run "sudo docker ps" on each host
  dockfleet exec -f hosts.txt ps

  # Compare docker versions across the fleet
  dockfleet exec -g swarm --collapse version --format '{{.Server.Version}}'

  # Show which hosts are reachable and have docker
  dockfleet list -g lab

  # Find SSH hosts on the lab network
  dockfleet scan 192.168.50.0/24 > hosts.txt`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags.register(root)
	root.AddCommand(
		newDeployCmd(flags),
		newExecCmd(flags),
		newListCmd(flags),
		newScanCmd(flags),
		newVersionCmd(),
	)
	return root
}

// setupError is a bad flag, config or host list (exit code 2).
type setupError struct {
	err error
}

func (e *setupError) Error() string { return e.err.Error() }
func (e *setupError) Unwrap() error { return e.err }

func setupErr(format string, args ...any) error {
	return &setupError{err: fmt.Errorf(format, args...)}
}

// failureError reports a run that completed but did not succeed (exit code
// 1). Its message may be empty when the output already explained it.
type failureError struct {
	msg string
}

func (e *failureError) Error() string { return e.msg }

// exitCode maps an error to the process status:
//   - 0: success, including a deploy where every host already had Docker
//   - 1: the run finished but failed on some or all hosts
//   - 2: setup error (flags, config, host list)
//   - 130: interrupted
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var se *setupError
	var fe *failureError
	switch {
	case errors.Is(err, context.Canceled):
		return 130
	case errors.As(err, &fe):
		return 1
	case errors.As(err, &se):
		return 2
	}
	return 2
}
