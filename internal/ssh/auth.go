package ssh

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	sshconfig "github.com/kevinburke/ssh_config"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/agent462/dockfleet/internal/pathutil"
)

// resolveAddress picks the dial address and login user for host. Values
// already set on conf win over ~/.ssh/config so a host resolved by the
// config layer is not looked up a second time under a different name.
func resolveAddress(host string, conf ClientConfig) (addr, user string) {
	user = conf.User
	if user == "" {
		user = sshconfig.Get(host, "User")
	}
	if user == "" {
		user = os.Getenv("USER")
	}
	if user == "" {
		user = "root"
	}

	port := conf.Port
	if port == 0 {
		if p, err := strconv.Atoi(sshconfig.Get(host, "Port")); err == nil && p > 0 {
			port = p
		}
	}
	if port == 0 {
		port = 22
	}

	return net.JoinHostPort(host, strconv.Itoa(port)), user
}

// buildAuthMethods returns the auth chain in order: agent, key files, password.
func buildAuthMethods(host string, conf ClientConfig) []ssh.AuthMethod {
	var methods []ssh.AuthMethod

	if m := agentAuthMethod(); m != nil {
		methods = append(methods, m)
	}

	keyFiles := conf.IdentityFiles
	if len(keyFiles) == 0 {
		keyFiles = defaultKeyFiles(host)
	}
	var signers []ssh.Signer
	for _, f := range keyFiles {
		if s := loadKeySigner(f); s != nil {
			signers = append(signers, s)
		}
	}
	if len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}

	if conf.PasswordCallback != nil {
		methods = append(methods, ssh.PasswordCallback(func() (string, error) {
			return conf.PasswordCallback(host)
		}))
	}

	return methods
}

// sharedAgent is a process-wide agent connection. A mutex rather than
// sync.Once lets a failed dial be retried by the next caller.
var sharedAgent struct {
	mu     sync.Mutex
	conn   net.Conn
	client agent.ExtendedAgent
}

// CloseAgent closes the shared SSH agent connection, if any.
func CloseAgent() {
	sharedAgent.mu.Lock()
	defer sharedAgent.mu.Unlock()
	if sharedAgent.conn != nil {
		sharedAgent.conn.Close()
		sharedAgent.conn = nil
		sharedAgent.client = nil
	}
}

// agentAuthMethod returns agent-backed auth, or nil when $SSH_AUTH_SOCK is
// unset, unreachable, or holds no keys.
func agentAuthMethod() ssh.AuthMethod {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil
	}

	sharedAgent.mu.Lock()
	defer sharedAgent.mu.Unlock()

	if sharedAgent.client != nil {
		keys, err := sharedAgent.client.List()
		if err == nil {
			if len(keys) == 0 {
				return nil
			}
			return ssh.PublicKeysCallback(sharedAgent.client.Signers)
		}
		// Stale socket; reconnect below.
		sharedAgent.conn.Close()
		sharedAgent.conn = nil
		sharedAgent.client = nil
	}

	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil
	}
	sharedAgent.conn = conn
	sharedAgent.client = agent.NewClient(conn)

	keys, err := sharedAgent.client.List()
	if err != nil || len(keys) == 0 {
		return nil
	}
	return ssh.PublicKeysCallback(sharedAgent.client.Signers)
}

// defaultKeyFiles lists the IdentityFile from ~/.ssh/config followed by the
// conventional key names that exist on disk.
func defaultKeyFiles(host string) []string {
	var files []string

	if identity := sshconfig.Get(host, "IdentityFile"); identity != "" {
		p := pathutil.ExpandHome(identity)
		if _, err := os.Stat(p); err == nil {
			files = append(files, p)
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return files
	}
	for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
		p := filepath.Join(home, ".ssh", name)
		if _, err := os.Stat(p); err == nil {
			files = append(files, p)
		}
	}
	return files
}

// loadKeySigner parses an unencrypted private key file, returning nil on any failure.
func loadKeySigner(path string) ssh.Signer {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil
	}
	return signer
}
