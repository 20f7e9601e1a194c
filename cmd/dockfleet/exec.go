package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agent462/dockfleet/internal/grouper"
)

func newExecCmd(flags *globalFlags) *cobra.Command {
	var collapse bool

	cmd := &cobra.Command{
		Use:   "exec <docker args...>",
		Short: `Run "sudo docker <args>" on every host`,
		Long: `exec runs "sudo docker" followed by the given arguments on every selected
host and prints each host's stdout, or stderr when stdout is empty.

dockfleet flags must come before the docker arguments:
  dockfleet exec -g lab ps -a`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := flags.setup(cmd, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			rep := rt.orch.Execute(cmd.Context(), strings.Join(args, " "), rt.names())
			if err := cmd.Context().Err(); err != nil {
				return err
			}

			var out string
			if collapse {
				out, err = rt.formatter.FormatGroups(grouper.Collapse(rep))
			} else {
				out, err = rt.formatter.FormatReport(rep)
			}
			if err != nil {
				return err
			}
			fmt.Fprint(rt.out, out)

			for _, row := range rep.Rows {
				if row.Err != nil || row.ExitCode != 0 {
					return &failureError{}
				}
			}
			return nil
		},
	}

	// Everything after the first argument belongs to docker.
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().BoolVar(&collapse, "collapse", false, "group hosts with identical responses and diff the outliers")
	return cmd
}
