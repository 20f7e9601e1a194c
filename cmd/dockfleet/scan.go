package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agent462/dockfleet/internal/discover"
)

func newScanCmd(flags *globalFlags) *cobra.Command {
	var dialTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "scan <cidr>",
		Short: "List addresses in an IPv4 range that accept SSH connections",
		Long: `scan dials the SSH port of every usable address in the range and prints
the ones that answer, one per line, ready to be used as a host file (-f).`,
		Example: `  dockfleet scan 192.168.50.0/24 > hosts.txt
  dockfleet deploy -f hosts.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := discover.Scanner{Port: flags.port, Concurrency: 128, DialTimeout: dialTimeout}
			if cmd.Flags().Changed("concurrency") {
				s.Concurrency = flags.concurrency
			}

			hosts, err := s.Scan(cmd.Context(), args[0])
			if err != nil && cmd.Context().Err() == nil {
				return &setupError{err: err}
			}

			out := cmd.OutOrStdout()
			if flags.output == "json" {
				addrs := make([]string, len(hosts))
				for i, h := range hosts {
					addrs[i] = h.String()
				}
				data, jerr := json.MarshalIndent(addrs, "", "  ")
				if jerr != nil {
					return jerr
				}
				fmt.Fprintln(out, string(data))
			} else {
				for _, h := range hosts {
					fmt.Fprintln(out, h)
				}
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&dialTimeout, "dial-timeout", time.Second, "per-address connect timeout")
	return cmd
}
