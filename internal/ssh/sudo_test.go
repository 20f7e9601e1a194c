package ssh

import (
	"context"
	"testing"

	gossh "golang.org/x/crypto/ssh"

	"github.com/agent462/dockfleet/internal/sshtest"
)

func TestSudoStdin(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"sudo sh get-docker.sh", "sudo -S -p '' sh get-docker.sh", true},
		{"sudo docker ps -a", "sudo -S -p '' docker ps -a", true},
		{"  sudo   docker info", "sudo -S -p '' docker info", true},
		{"rm -f get-docker.sh", "rm -f get-docker.sh", false},
		{"sudoedit /etc/hosts", "sudoedit /etc/hosts", false},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := sudoStdin(tc.in)
			if got != tc.want || ok != tc.wantOK {
				t.Errorf("sudoStdin(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestExecDeliversSudoPassword(t *testing.T) {
	pubKey, keyPath := sshtest.GenerateKey(t)

	addr, cleanup := sshtest.Start(t, sshtest.WithPublicKey(pubKey), sshtest.WithStdinHandler(func(cmd, stdin string) (string, string, int) {
		if cmd != "sudo -S -p '' docker ps" {
			return "", "unexpected command " + cmd, 1
		}
		if stdin != "s3cret\n" {
			return "", "sudo: 1 incorrect password attempt", 1
		}
		return "CONTAINER ID   IMAGE\n", "", 0
	}))
	defer cleanup()

	host, port := sshtest.ParseAddr(t, addr)
	t.Setenv("SSH_AUTH_SOCK", "")

	client, err := Dial(context.Background(), host, ClientConfig{
		User:            "testuser",
		Port:            port,
		IdentityFiles:   []string{keyPath},
		HostKeyCallback: gossh.InsecureIgnoreHostKey(),
		SudoPassword:    "s3cret",
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	stdout, stderr, exitCode, err := client.Exec(context.Background(), "sudo docker ps")
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if exitCode != 0 {
		t.Fatalf("exit code %d, stderr %q", exitCode, stderr)
	}
	if string(stdout) != "CONTAINER ID   IMAGE\n" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestExecWithoutSudoPasswordRunsVerbatim(t *testing.T) {
	pubKey, keyPath := sshtest.GenerateKey(t)

	addr, cleanup := sshtest.Start(t, sshtest.WithPublicKey(pubKey), sshtest.WithCmdHandler(func(cmd string) (string, string, int) {
		return cmd, "", 0
	}))
	defer cleanup()

	host, port := sshtest.ParseAddr(t, addr)
	client := dialTestClient(t, host, port, keyPath)
	defer client.Close()

	stdout, _, _, err := client.Exec(context.Background(), "sudo docker ps")
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if string(stdout) != "sudo docker ps" {
		t.Errorf("command was rewritten: %q", stdout)
	}
}
