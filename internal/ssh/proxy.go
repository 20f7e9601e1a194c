package ssh

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// dialViaProxy connects through each comma-separated jump host in turn and
// then to host through the last hop.
func dialViaProxy(ctx context.Context, host string, conf ClientConfig) (*Client, error) {
	specs := strings.Split(conf.ProxyJump, ",")
	var hops []*Client

	closeHops := func() {
		for i := len(hops) - 1; i >= 0; i-- {
			hops[i].Close()
		}
	}

	for i, spec := range specs {
		hopConf, hopHost := jumpConfig(spec, conf)

		var hop *Client
		var err error
		if i == 0 {
			hop, err = dialDirect(ctx, hopHost, hopConf)
		} else {
			hop, err = dialThrough(ctx, hops[i-1], hopHost, hopConf)
		}
		if err != nil {
			closeHops()
			return nil, fmt.Errorf("dial jump host %q: %w", strings.TrimSpace(spec), err)
		}
		hops = append(hops, hop)
	}

	final := conf
	final.ProxyJump = ""
	client, err := dialThrough(ctx, hops[len(hops)-1], host, final)
	if err != nil {
		closeHops()
		return nil, fmt.Errorf("dial target %s via proxy: %w", host, err)
	}
	client.jumpClients = hops
	return client, nil
}

// jumpConfig derives the config for one jump hop. Auth settings are inherited;
// user and port come from the spec only.
func jumpConfig(spec string, conf ClientConfig) (ClientConfig, string) {
	user, hostname, port := parseJumpHost(spec)
	return ClientConfig{
		User:               user,
		Port:               port,
		IdentityFiles:      conf.IdentityFiles,
		PasswordCallback:   conf.PasswordCallback,
		AcceptUnknownHosts: conf.AcceptUnknownHosts,
		HostKeyCallback:    conf.HostKeyCallback,
		ConnectTimeout:     conf.ConnectTimeout,
	}, hostname
}

// parseJumpHost splits "user@host:port" and its shorter forms.
func parseJumpHost(spec string) (user, hostname string, port int) {
	spec = strings.TrimSpace(spec)

	if i := strings.Index(spec, "@"); i >= 0 {
		user, spec = spec[:i], spec[i+1:]
	}

	h, p, err := net.SplitHostPort(spec)
	if err != nil {
		return user, spec, 0
	}
	port, _ = strconv.Atoi(p)
	return user, h, port
}
