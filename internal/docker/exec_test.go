package docker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agent462/dockfleet/internal/executor"
)

func TestExecute_Scenario(t *testing.T) {
	f := newFleet()
	f.handler = func(host, cmd string) *executor.Response {
		if host == "x" {
			return &executor.Response{Host: "x", Stdout: []byte("CONTAINER ID")}
		}
		return &executor.Response{Host: host}
	}
	o := New(f)

	report := o.Execute(context.Background(), "ps", []string{"x", "y"})

	assert.Equal(t, []string{"sudo docker ps"}, f.commands())
	assert.Equal(t, "sudo docker ps", report.Command)
	assert.Equal(t, map[int]Row{
		0: {Index: 0, Host: "x", Response: "CONTAINER ID", Source: SourceStdout},
		1: {Index: 1, Host: "y", Response: "No response from y", Source: SourceNone},
	}, report.ByIndex())
}

func TestExecute_FallsBackToStderr(t *testing.T) {
	f := newFleet()
	f.handler = func(host, cmd string) *executor.Response {
		return &executor.Response{
			Host:     host,
			Stderr:   []byte("Error response from daemon: No such container: web\n"),
			ExitCode: 1,
		}
	}
	o := New(f)

	report := o.Execute(context.Background(), "logs web", []string{"a"})

	require.Len(t, report.Rows, 1)
	row := report.Rows[0]
	assert.Equal(t, "Error response from daemon: No such container: web", row.Response)
	assert.Equal(t, SourceStderr, row.Source)
	assert.Equal(t, 1, row.ExitCode)
}

func TestExecute_StdoutWinsOverStderr(t *testing.T) {
	f := newFleet()
	f.handler = func(host, cmd string) *executor.Response {
		return &executor.Response{Host: host, Stdout: []byte("abc123\n"), Stderr: []byte("WARNING: no swap limit support\n")}
	}
	o := New(f)

	report := o.Execute(context.Background(), "run -d nginx", []string{"a"})

	assert.Equal(t, "abc123", report.Rows[0].Response)
	assert.Equal(t, SourceStdout, report.Rows[0].Source)
}

func TestExecute_DuplicateHostsKeepRows(t *testing.T) {
	f := newFleet()
	n := 0
	f.handler = func(host, cmd string) *executor.Response {
		n++
		if n == 1 {
			return &executor.Response{Host: host, Stdout: []byte("first")}
		}
		return &executor.Response{Host: host, Stdout: []byte("second")}
	}
	o := New(f)

	report := o.Execute(context.Background(), "info", []string{"a", "a"})

	require.Len(t, report.Rows, 2)
	assert.Equal(t, 0, report.Rows[0].Index)
	assert.Equal(t, 1, report.Rows[1].Index)
	assert.Equal(t, "first", report.Rows[0].Response)
	assert.Equal(t, "second", report.Rows[1].Response)
}

func TestExecute_ReorderedAndMissing(t *testing.T) {
	f := newFleet()
	f.handler = func(host, cmd string) *executor.Response {
		return &executor.Response{Host: host, Stdout: []byte("up on " + host)}
	}
	f.reverse = true
	f.drop["b"] = true
	o := New(f)

	hosts := []string{"a", "b", "c"}
	report := o.Execute(context.Background(), "ps -q", hosts)

	require.Len(t, report.Rows, len(hosts))
	for i, row := range report.Rows {
		assert.Equal(t, i, row.Index)
		assert.Equal(t, hosts[i], row.Host)
	}
	assert.Equal(t, "up on a", report.Rows[0].Response)
	assert.Equal(t, "No response from b", report.Rows[1].Response)
	assert.ErrorIs(t, report.Rows[1].Err, executor.ErrNoResponse)
	assert.Equal(t, "up on c", report.Rows[2].Response)
}

func TestExecute_PassesCommandVerbatim(t *testing.T) {
	f := newFleet()
	o := New(f)

	o.Execute(context.Background(), `ps --format '{{.Names}}' | grep web; echo $HOME`, []string{"a"})

	assert.Equal(t, []string{`sudo docker ps --format '{{.Names}}' | grep web; echo $HOME`}, f.commands())
}

func TestExecute_NoHosts(t *testing.T) {
	o := New(newFleet())
	report := o.Execute(context.Background(), "ps", nil)
	assert.Empty(t, report.Rows)
	assert.Empty(t, report.ByIndex())
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "msg", LevelMsg.String())
	assert.Equal(t, "ok", LevelOK.String())
	assert.Equal(t, "warning", LevelWarning.String())
	assert.Equal(t, "error", LevelError.String())
}
