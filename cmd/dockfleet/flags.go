package main

import (
	"time"

	"github.com/spf13/cobra"
)

// globalFlags holds the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath   string
	group        string
	hostFile     string
	hosts        []string
	user         string
	port         int
	identities   []string
	insecure     bool
	concurrency  int
	timeout      time.Duration
	sudoPassword bool
	noColor      bool
	output       string
	logLevel     string
	logFormat    string
}

func (f *globalFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/dockfleet/config.yaml)")
	pf.StringVarP(&f.group, "group", "g", "", "host group from the config file")
	pf.StringVarP(&f.hostFile, "file", "f", "", "file with one host per line; lines containing # are ignored")
	// StringArray, not StringSlice: commas inside brackets belong to the pattern.
	pf.StringArrayVarP(&f.hosts, "hosts", "H", nil, "hosts or host patterns, comma separated (node[01-05],web1)")
	pf.StringVar(&f.user, "user", "", "SSH user (default from ssh config, then $USER)")
	pf.IntVar(&f.port, "port", 0, "SSH port (default from ssh config, then 22)")
	pf.StringArrayVarP(&f.identities, "identity", "i", nil, "private key file (repeatable)")
	pf.BoolVar(&f.insecure, "insecure", false, "skip known_hosts verification")
	pf.IntVar(&f.concurrency, "concurrency", 0, "maximum hosts contacted at once (default 20)")
	pf.DurationVar(&f.timeout, "timeout", 0, "per-host command timeout (default 30s)")
	pf.BoolVar(&f.sudoPassword, "sudo-password", false, "prompt for a sudo password and send it to sudo commands")
	pf.BoolVar(&f.noColor, "no-color", false, "disable colored output")
	pf.StringVarP(&f.output, "output", "o", "", "output format: table or json")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&f.logFormat, "log-format", "", "log format: text or json")
}
