package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kevinburke/ssh_config"

	"github.com/agent462/dockfleet/internal/hostlist"
	"github.com/agent462/dockfleet/internal/pathutil"
	hssh "github.com/agent462/dockfleet/internal/ssh"
)

// Host represents a resolved SSH host with connection details.
type Host struct {
	Name         string // identity label, the original input such as "admin@node-01"
	Hostname     string // name actually dialed
	User         string
	Port         int
	IdentityFile string
	ProxyJump    string
	Timeout      time.Duration
}

// ResolveHosts resolves the hosts of a config group and CLI-provided names.
// Group entries may be bracket patterns. When both are given, CLI hosts are
// appended after the group's, skipping duplicates.
func ResolveHosts(cfg *Config, groupName string, cliHosts []string) ([]Host, error) {
	if groupName == "" && len(cliHosts) == 0 {
		return nil, fmt.Errorf("no hosts specified: provide a group (-g), a host file (-f) or host names (-H)")
	}

	var hostnames []string
	var groupUser string
	var groupTimeout Duration

	if groupName != "" {
		group, ok := cfg.Groups[groupName]
		if !ok {
			available := make([]string, 0, len(cfg.Groups))
			for name := range cfg.Groups {
				available = append(available, name)
			}
			if len(available) == 0 {
				return nil, fmt.Errorf("group %q not found (no groups defined)", groupName)
			}
			sort.Strings(available)
			return nil, fmt.Errorf("group %q not found (available: %v)", groupName, available)
		}
		for _, entry := range group.Hosts {
			expanded, err := hostlist.Parse(entry)
			if err != nil {
				return nil, fmt.Errorf("group %q: %w", groupName, err)
			}
			hostnames = append(hostnames, expanded...)
		}
		groupUser = group.User
		groupTimeout = group.Timeout
	}

	hostnames = hostlist.Dedup(append(hostnames, cliHosts...))

	hosts := make([]Host, 0, len(hostnames))
	for _, name := range hostnames {
		host := Host{Name: name, Hostname: name, Port: 22}

		// Name stays as the original "user@host" for display and dedup.
		if user, hostname, ok := parseUserAtHost(name); ok {
			host.Hostname = hostname
			host.User = user
		}

		if groupUser != "" {
			host.User = groupUser
		}
		if groupTimeout.Duration > 0 {
			host.Timeout = groupTimeout.Duration
		}

		MergeSSHConfig(&host)

		if host.User == "" {
			host.User = cfg.Defaults.User
		}

		hosts = append(hosts, host)
	}

	return hosts, nil
}

// MergeSSHConfig reads ~/.ssh/config and fills in User, Port, IdentityFile,
// and ProxyJump for the host if they are not already set. Lookups use
// the Hostname field, not the display Name.
func MergeSSHConfig(host *Host) {
	lookup := host.Hostname
	if lookup == "" {
		lookup = host.Name
	}

	if host.User == "" {
		if user := sshConfigGet(lookup, "User"); user != "" {
			host.User = user
		}
	}

	if host.Port == 22 {
		if portStr := sshConfigGet(lookup, "Port"); portStr != "" {
			if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
				host.Port = port
			}
		}
	}

	if host.IdentityFile == "" {
		if identity := sshConfigGet(lookup, "IdentityFile"); identity != "" {
			expanded := pathutil.ExpandHome(identity)
			if _, err := os.Stat(expanded); err == nil {
				host.IdentityFile = expanded
			}
		}
	}

	if host.ProxyJump == "" {
		if proxy := sshConfigGet(lookup, "ProxyJump"); proxy != "" {
			host.ProxyJump = proxy
		}
	}
}

// Names returns the identity label of each host, in order.
func Names(hosts []Host) []string {
	names := make([]string, len(hosts))
	for i, h := range hosts {
		names[i] = h.Name
	}
	return names
}

// SSHHosts maps each host's Name to the SSH overrides the pool dials with.
// A port of 22 is left unset so a --port flag on the base config still applies.
func SSHHosts(hosts []Host) map[string]hssh.HostConfig {
	out := make(map[string]hssh.HostConfig, len(hosts))
	for _, h := range hosts {
		hc := hssh.HostConfig{
			Hostname:     h.Hostname,
			User:         h.User,
			IdentityFile: h.IdentityFile,
			ProxyJump:    h.ProxyJump,
		}
		if h.Port != 22 {
			hc.Port = h.Port
		}
		out[h.Name] = hc
	}
	return out
}

// MaxTimeout returns the longest per-host timeout, or fallback when no host
// sets one.
func MaxTimeout(hosts []Host, fallback time.Duration) time.Duration {
	longest := time.Duration(0)
	for _, h := range hosts {
		if h.Timeout > longest {
			longest = h.Timeout
		}
	}
	if longest == 0 {
		return fallback
	}
	return longest
}

// sshConfigGet looks up a key for a host in the user's SSH config.
func sshConfigGet(hostname, key string) string {
	val, err := ssh_config.GetStrict(hostname, key)
	if err != nil {
		return ""
	}
	return val
}

// parseUserAtHost splits "user@host" into its components.
// Returns ("", "", false) if the input doesn't contain @ or if the user part is empty.
func parseUserAtHost(s string) (user, host string, ok bool) {
	i := strings.Index(s, "@")
	if i <= 0 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}
