package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list [hosts...]",
		Short: "Show reachability, system and docker path for each host",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := flags.setup(cmd, args)
			if err != nil {
				return err
			}
			defer rt.Close()

			statuses := rt.orch.Classify(cmd.Context(), rt.names())
			if err := cmd.Context().Err(); err != nil {
				return err
			}

			out, err := rt.formatter.FormatStatus(statuses)
			if err != nil {
				return err
			}
			fmt.Fprint(rt.out, out)
			return nil
		},
	}
}
