package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agent462/dockfleet/internal/docker"
)

func newDeployCmd(flags *globalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "deploy [hosts...]",
		Short: "Install Docker on working hosts that do not have it",
		Long: `deploy checks which hosts answer over SSH and run Linux, skips those that
already have docker on their PATH (unless --force), then downloads the
install script, runs it with sudo and removes it on every target host.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := flags.setup(cmd, args)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.orch.Deploy(cmd.Context(), rt.names(), docker.DeployOptions{Force: force})
			if err != nil {
				return err
			}

			fmt.Fprint(rt.out, rt.formatter.Summary(res))

			switch {
			case res.Outcome == docker.AllHostsUnreachable:
				return &failureError{msg: "no working hosts"}
			case exitedWithError(res):
				return &failureError{}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "install even where docker is already present")
	return cmd
}

// exitedWithError reports whether a step exited non-zero or could not run on
// some host. Stderr alone does not count: get-docker.sh traces to stderr.
func exitedWithError(res *docker.DeployResult) bool {
	for _, step := range res.Steps {
		for _, r := range step.Responses {
			if r.Err != nil || r.ExitCode != 0 {
				return true
			}
		}
	}
	return false
}
