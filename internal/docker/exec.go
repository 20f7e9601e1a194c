package docker

import (
	"context"
)

// Source says which stream a report row's response came from.
type Source string

const (
	SourceStdout Source = "stdout"
	SourceStderr Source = "stderr"
	SourceNone   Source = "none"
)

// Row is one host's line of an ExecutionReport.
type Row struct {
	Index    int    `json:"index"`
	Host     string `json:"host"`
	Response string `json:"response"`
	Source   Source `json:"source"`
	ExitCode int    `json:"exit_code"`
	Err      error  `json:"-"`
}

// ExecutionReport holds one row per requested host. Rows[i].Index == i and
// the rows follow input order, so duplicate host names keep separate rows.
type ExecutionReport struct {
	Command string
	Rows    []Row
}

// ByIndex returns the report keyed by row index.
func (r ExecutionReport) ByIndex() map[int]Row {
	m := make(map[int]Row, len(r.Rows))
	for _, row := range r.Rows {
		m[row.Index] = row
	}
	return m
}

// Execute runs "sudo docker <command>" on every host in one batched call.
// Each row's response is the host's stdout, else its stderr, else
// "No response from <host>". The command is passed to the remote shell
// unmodified and unescaped; callers are trusted. Execute never fails as a
// whole: per-host problems only shape that host's row.
func (o *Orchestrator) Execute(ctx context.Context, command string, hosts []string) ExecutionReport {
	full := "sudo docker " + command
	report := ExecutionReport{Command: full, Rows: make([]Row, len(hosts))}

	for i, r := range o.batch(ctx, hosts, full) {
		row := Row{Index: i, Host: hosts[i], ExitCode: r.ExitCode, Err: r.Err}
		if out := r.StdoutText(); out != "" {
			row.Response, row.Source = out, SourceStdout
		} else if errOut := r.StderrText(); errOut != "" {
			row.Response, row.Source = errOut, SourceStderr
		} else {
			row.Response, row.Source = "No response from "+hosts[i], SourceNone
		}
		report.Rows[i] = row
	}
	return report
}
