package report

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/agent462/dockfleet/internal/docker"
	"github.com/agent462/dockfleet/internal/executor"
)

func sampleReport() docker.ExecutionReport {
	return docker.ExecutionReport{
		Command: "sudo docker ps",
		Rows: []docker.Row{
			{Index: 0, Host: "node-01", Response: "CONTAINER ID   IMAGE", Source: docker.SourceStdout},
			{Index: 1, Host: "node-02", Response: "Cannot connect to the Docker daemon", Source: docker.SourceStderr, ExitCode: 1},
			{Index: 2, Host: "node-03", Response: "No response from node-03", Source: docker.SourceNone, ExitCode: -1, Err: executor.ErrNoResponse},
		},
	}
}

func TestFormatReportTable(t *testing.T) {
	f := NewFormatter(false, false)
	output, err := f.FormatReport(sampleReport())
	if err != nil {
		t.Fatalf("FormatReport: %v", err)
	}

	for _, want := range []string{"HOST", "RESPONSE", "node-01", "CONTAINER ID   IMAGE", "Cannot connect to the Docker daemon", "No response from node-03"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in table, got:\n%s", want, output)
		}
	}
	if strings.Contains(output, "\x1b[") {
		t.Errorf("plain table should carry no ANSI escapes:\n%s", output)
	}
	// Rows keep report order.
	if strings.Index(output, "node-01") > strings.Index(output, "node-02") ||
		strings.Index(output, "node-02") > strings.Index(output, "node-03") {
		t.Errorf("rows out of order:\n%s", output)
	}
}

func TestFormatReportColor(t *testing.T) {
	f := NewFormatter(false, true)
	output, err := f.FormatReport(sampleReport())
	if err != nil {
		t.Fatalf("FormatReport: %v", err)
	}
	if !strings.Contains(output, "\x1b[") {
		t.Errorf("expected ANSI escapes in colored table")
	}
}

func TestFormatReportMultiline(t *testing.T) {
	r := docker.ExecutionReport{Rows: []docker.Row{
		{Index: 0, Host: "node-01", Response: "web\ndb\ncache", Source: docker.SourceStdout},
	}}
	output, err := NewFormatter(false, false).FormatReport(r)
	if err != nil {
		t.Fatalf("FormatReport: %v", err)
	}
	for _, want := range []string{"web", "db", "cache"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestFormatReportJSON(t *testing.T) {
	f := NewFormatter(true, false)
	output, err := f.FormatReport(sampleReport())
	if err != nil {
		t.Fatalf("FormatReport: %v", err)
	}

	var parsed []map[string]any
	if err := json.Unmarshal([]byte(output), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, output)
	}
	if len(parsed) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(parsed))
	}
	if parsed[0]["host"] != "node-01" || parsed[0]["response"] != "CONTAINER ID   IMAGE" || parsed[0]["source"] != "stdout" {
		t.Errorf("row 0 = %v", parsed[0])
	}
	if parsed[1]["exit_code"] != float64(1) {
		t.Errorf("row 1 exit_code = %v, want 1", parsed[1]["exit_code"])
	}
	if _, ok := parsed[1]["error"]; ok {
		t.Error("error should be omitted when empty")
	}
	if parsed[2]["error"] != "no response" || parsed[2]["index"] != float64(2) {
		t.Errorf("row 2 = %v", parsed[2])
	}
}

func TestFormatStatus(t *testing.T) {
	statuses := []docker.HostStatus{
		{Host: "node-01", Reachable: true, Linux: true, System: "Linux node-01 6.1.0 x86_64", DockerPath: "/usr/bin/docker"},
		{Host: "node-02", Reachable: true, Linux: true, System: "Linux node-02 6.1.0 x86_64"},
		{Host: "mac", Reachable: true, System: "Darwin mac 23.4.0"},
		{Host: "dead", Err: errors.New("connect: connection refused")},
	}

	output, err := NewFormatter(false, false).FormatStatus(statuses)
	if err != nil {
		t.Fatalf("FormatStatus: %v", err)
	}
	for _, want := range []string{"STATUS", "DOCKER", "/usr/bin/docker", "not installed", "not linux", "unreachable", "connection refused"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in status table, got:\n%s", want, output)
		}
	}

	jsonOut, err := NewFormatter(true, false).FormatStatus(statuses)
	if err != nil {
		t.Fatalf("FormatStatus json: %v", err)
	}
	var parsed []map[string]any
	if err := json.Unmarshal([]byte(jsonOut), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed[0]["docker_path"] != "/usr/bin/docker" || parsed[3]["reachable"] != false {
		t.Errorf("unexpected json: %v", parsed)
	}
}

func TestSummarySuccess(t *testing.T) {
	res := &docker.DeployResult{
		Outcome:   docker.Success,
		Working:   []string{"a", "b", "c"},
		Installed: []string{"c"},
		Targets:   []string{"a", "b"},
		Excluded: []docker.Exclusion{
			{Host: "d", Reason: docker.ReasonUnreachable},
			{Host: "e", Reason: docker.ReasonNotLinux},
		},
		Steps: []docker.StepResult{
			{Name: docker.StepDownload, Responses: []*executor.Response{
				{Host: "a"},
				{Host: "b", ExitCode: 6, Stderr: []byte("curl: (6) Could not resolve host\nmore\n")},
			}},
			{Name: docker.StepInstall, Responses: []*executor.Response{
				{Host: "a"},
				{Host: "b", ExitCode: 2},
			}},
		},
	}

	output := NewFormatter(false, false).Summary(res)

	if !strings.Contains(output, " download failed on b: curl: (6) Could not resolve host\n") {
		t.Errorf("expected download failure line, got:\n%s", output)
	}
	if !strings.Contains(output, " install failed on b: exit status 2") {
		t.Errorf("expected install failure line, got:\n%s", output)
	}
	want := "2 installed, 1 already installed, 1 unreachable, 1 not linux, 1 with step errors"
	if !strings.Contains(output, want) {
		t.Errorf("expected summary %q, got:\n%s", want, output)
	}
}

func TestSummaryAborted(t *testing.T) {
	res := &docker.DeployResult{
		Outcome:  docker.AllHostsUnreachable,
		Excluded: []docker.Exclusion{{Host: "a", Reason: docker.ReasonUnreachable}},
	}
	if got := NewFormatter(false, false).Summary(res); got != "1 unreachable\n" {
		t.Errorf("summary = %q", got)
	}

	empty := &docker.DeployResult{Outcome: docker.Interrupted}
	if got := NewFormatter(false, false).Summary(empty); got != "interrupted\n" {
		t.Errorf("summary = %q", got)
	}
}
