package ssh_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gossh "golang.org/x/crypto/ssh"

	hssh "github.com/agent462/dockfleet/internal/ssh"
	"github.com/agent462/dockfleet/internal/sshtest"
)

func newTestPool(t *testing.T, hosts map[string]hssh.HostConfig) *hssh.Pool {
	t.Helper()
	t.Setenv("SSH_AUTH_SOCK", "")
	pool := hssh.NewPool(hssh.ClientConfig{
		HostKeyCallback: gossh.InsecureIgnoreHostKey(),
		User:            "testuser",
	}, hosts)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func TestPool_BasicExecution(t *testing.T) {
	pubKey, keyPath := sshtest.GenerateKey(t)
	addr, cleanup := sshtest.Start(t, sshtest.WithPublicKey(pubKey), sshtest.WithCmdHandler(func(cmd string) (string, string, int) {
		return "Linux\n", "", 0
	}))
	defer cleanup()

	_, port := sshtest.ParseAddr(t, addr)
	pool := newTestPool(t, map[string]hssh.HostConfig{
		"node-01": {Hostname: "127.0.0.1", Port: port, IdentityFile: keyPath},
	})

	result := pool.Run(context.Background(), "node-01", "uname -a")
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.StdoutText() != "Linux" {
		t.Errorf("stdout = %q, want Linux", result.StdoutText())
	}
}

func TestPool_ConnectionReuse(t *testing.T) {
	pubKey, keyPath := sshtest.GenerateKey(t)
	var cmdCount atomic.Int32
	addr, cleanup := sshtest.Start(t, sshtest.WithPublicKey(pubKey), sshtest.WithCmdHandler(func(cmd string) (string, string, int) {
		cmdCount.Add(1)
		return "ok\n", "", 0
	}))
	defer cleanup()

	_, port := sshtest.ParseAddr(t, addr)
	pool := newTestPool(t, map[string]hssh.HostConfig{
		"node-01": {Hostname: "127.0.0.1", Port: port, IdentityFile: keyPath},
	})

	ctx := context.Background()
	steps := []string{"curl -fsSL https://get.docker.com -o get-docker.sh", "sudo sh get-docker.sh", "rm -f get-docker.sh"}
	first, err := pool.GetClient(ctx, "node-01")
	if err != nil {
		t.Fatalf("GetClient: %v", err)
	}
	for _, step := range steps {
		if result := pool.Run(ctx, "node-01", step); result.Err != nil {
			t.Fatalf("%s: unexpected error: %v", step, result.Err)
		}
	}
	again, err := pool.GetClient(ctx, "node-01")
	if err != nil {
		t.Fatalf("GetClient: %v", err)
	}
	if first != again {
		t.Error("expected the cached client to be reused")
	}
	if n := cmdCount.Load(); n != 3 {
		t.Errorf("server saw %d commands, want 3", n)
	}
}

func TestPool_ConcurrentDialsShareConnection(t *testing.T) {
	pubKey, keyPath := sshtest.GenerateKey(t)
	addr, cleanup := sshtest.Start(t, sshtest.WithPublicKey(pubKey))
	defer cleanup()

	_, port := sshtest.ParseAddr(t, addr)
	pool := newTestPool(t, map[string]hssh.HostConfig{
		"node-01": {Hostname: "127.0.0.1", Port: port, IdentityFile: keyPath},
	})

	var wg sync.WaitGroup
	clients := make([]*hssh.Client, 5)
	for i := range clients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := pool.GetClient(context.Background(), "node-01")
			if err != nil {
				t.Errorf("GetClient: %v", err)
				return
			}
			clients[i] = c
		}(i)
	}
	wg.Wait()

	for i, c := range clients[1:] {
		if c != clients[0] {
			t.Errorf("client %d differs from client 0", i+1)
		}
	}
}

func TestPool_IsConnected(t *testing.T) {
	pool := hssh.NewPool(hssh.ClientConfig{}, nil)
	defer pool.Close()

	if pool.IsConnected("nonexistent") {
		t.Error("IsConnected should return false for unknown host")
	}
}

func TestPool_Close(t *testing.T) {
	pubKey, keyPath := sshtest.GenerateKey(t)
	addr, cleanup := sshtest.Start(t, sshtest.WithPublicKey(pubKey))
	defer cleanup()

	_, port := sshtest.ParseAddr(t, addr)
	pool := newTestPool(t, map[string]hssh.HostConfig{
		"node-01": {Hostname: "127.0.0.1", Port: port, IdentityFile: keyPath},
	})

	if result := pool.Run(context.Background(), "node-01", "cmd"); result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if !pool.IsConnected("node-01") {
		t.Fatal("should be connected before Close")
	}
	if err := pool.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if pool.IsConnected("node-01") {
		t.Error("should not be connected after Close")
	}
}

func TestPool_ConnectionFailure(t *testing.T) {
	pool := newTestPool(t, map[string]hssh.HostConfig{
		"dead": {Hostname: "127.0.0.1", Port: 1},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	result := pool.Run(ctx, "dead", "uname -a")
	if result.Err == nil {
		t.Fatal("expected error for unreachable host")
	}
	if pool.IsConnected("dead") {
		t.Error("failed dial should not be cached")
	}
}

func TestPool_MultipleHosts(t *testing.T) {
	pubKey, keyPath := sshtest.GenerateKey(t)

	addr1, cleanup1 := sshtest.Start(t, sshtest.WithPublicKey(pubKey), sshtest.WithCmdHandler(func(cmd string) (string, string, int) {
		return "host-a\n", "", 0
	}))
	defer cleanup1()

	addr2, cleanup2 := sshtest.Start(t, sshtest.WithPublicKey(pubKey), sshtest.WithCmdHandler(func(cmd string) (string, string, int) {
		return "host-b\n", "", 0
	}))
	defer cleanup2()

	_, port1 := sshtest.ParseAddr(t, addr1)
	_, port2 := sshtest.ParseAddr(t, addr2)

	pool := newTestPool(t, map[string]hssh.HostConfig{
		"host-a": {Hostname: "127.0.0.1", Port: port1, IdentityFile: keyPath},
		"host-b": {Hostname: "127.0.0.1", Port: port2, IdentityFile: keyPath},
	})

	ctx := context.Background()
	r1 := pool.Run(ctx, "host-a", "hostname")
	r2 := pool.Run(ctx, "host-b", "hostname")

	if r1.Err != nil || r2.Err != nil {
		t.Fatalf("errors: %v, %v", r1.Err, r2.Err)
	}
	if r1.StdoutText() != "host-a" || r2.StdoutText() != "host-b" {
		t.Errorf("stdout = %q, %q", r1.StdoutText(), r2.StdoutText())
	}
	if !pool.IsConnected("host-a") || !pool.IsConnected("host-b") {
		t.Error("both hosts should be connected")
	}
}
