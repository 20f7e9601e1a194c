// Package report renders exec reports, host status lists and deploy
// summaries for the terminal or as JSON.
package report

import (
	"encoding/json"
	"fmt"
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/agent462/dockfleet/internal/docker"
)

// Color palette.
var (
	colorGreen  = lipgloss.Color("#04B575")
	colorRed    = lipgloss.Color("#FF4672")
	colorYellow = lipgloss.Color("#FDFF90")
	colorCyan   = lipgloss.Color("#00E5FF")
	colorSubtle = lipgloss.Color("#626262")
)

// Formatter renders results as tables or JSON.
type Formatter struct {
	JSON  bool
	Color bool
}

// NewFormatter creates a Formatter with the given options.
func NewFormatter(jsonOutput, color bool) *Formatter {
	return &Formatter{JSON: jsonOutput, Color: color}
}

// FormatReport renders an exec report as a HOST/RESPONSE table, or as a JSON
// array of rows in JSON mode.
func (f *Formatter) FormatReport(r docker.ExecutionReport) (string, error) {
	if f.JSON {
		return f.reportJSON(r)
	}

	rows := make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		rows[i] = []string{row.Host, row.Response}
	}

	t := f.newTable("HOST", "RESPONSE").Rows(rows...).StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return f.cell(nil).Bold(f.Color)
		case col == 0:
			return f.cell(colorCyan)
		case r.Rows[row].Source == docker.SourceStderr:
			return f.cell(colorYellow)
		case r.Rows[row].Source == docker.SourceNone:
			return f.cell(colorRed)
		}
		return f.cell(nil)
	})
	return t.String() + "\n", nil
}

func (f *Formatter) reportJSON(r docker.ExecutionReport) (string, error) {
	type jsonRow struct {
		Index    int    `json:"index"`
		Host     string `json:"host"`
		Response string `json:"response"`
		Source   string `json:"source"`
		ExitCode int    `json:"exit_code"`
		Error    string `json:"error,omitempty"`
	}

	out := make([]jsonRow, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = jsonRow{
			Index:    row.Index,
			Host:     row.Host,
			Response: row.Response,
			Source:   string(row.Source),
			ExitCode: row.ExitCode,
		}
		if row.Err != nil {
			out[i].Error = row.Err.Error()
		}
	}
	return marshal(out)
}

// FormatStatus renders the host status list produced for the list command.
func (f *Formatter) FormatStatus(statuses []docker.HostStatus) (string, error) {
	if f.JSON {
		return f.statusJSON(statuses)
	}

	rows := make([][]string, len(statuses))
	for i, st := range statuses {
		rows[i] = []string{st.Host, reachability(st), system(st), dockerColumn(st)}
	}

	t := f.newTable("HOST", "STATUS", "SYSTEM", "DOCKER").Rows(rows...).StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return f.cell(nil).Bold(f.Color)
		}
		st := statuses[row]
		switch col {
		case 0:
			return f.cell(colorCyan)
		case 1:
			if !st.Reachable {
				return f.cell(colorRed)
			}
			if !st.Linux {
				return f.cell(colorYellow)
			}
			return f.cell(colorGreen)
		case 3:
			if st.DockerPath == "" {
				return f.cell(colorSubtle)
			}
			return f.cell(colorGreen)
		}
		return f.cell(nil)
	})
	return t.String() + "\n", nil
}

func (f *Formatter) statusJSON(statuses []docker.HostStatus) (string, error) {
	type jsonStatus struct {
		Host       string `json:"host"`
		Reachable  bool   `json:"reachable"`
		Linux      bool   `json:"linux"`
		System     string `json:"system,omitempty"`
		DockerPath string `json:"docker_path,omitempty"`
		Error      string `json:"error,omitempty"`
	}

	out := make([]jsonStatus, len(statuses))
	for i, st := range statuses {
		out[i] = jsonStatus{
			Host:       st.Host,
			Reachable:  st.Reachable,
			Linux:      st.Linux,
			System:     st.System,
			DockerPath: st.DockerPath,
		}
		if st.Err != nil {
			out[i].Error = st.Err.Error()
		}
	}
	return marshal(out)
}

// Summary renders a closing line for a deploy plus one line per host that
// reported a problem during an install step.
func (f *Formatter) Summary(res *docker.DeployResult) string {
	var b strings.Builder

	for _, step := range res.Steps {
		for _, r := range step.Failed() {
			detail := r.StderrText()
			if detail == "" && r.Err != nil {
				detail = r.Err.Error()
			}
			if detail == "" {
				detail = fmt.Sprintf("exit status %d", r.ExitCode)
			}
			line := fmt.Sprintf(" %s failed on %s: %s", step.Name, f.colorize(r.Host, colorCyan), firstLine(detail))
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString(f.summaryLine(res))
	b.WriteString("\n")
	return b.String()
}

func (f *Formatter) summaryLine(res *docker.DeployResult) string {
	unreachable, notLinux := 0, 0
	for _, e := range res.Excluded {
		if e.Reason == docker.ReasonNotLinux {
			notLinux++
		} else {
			unreachable++
		}
	}

	var parts []string
	if res.Outcome == docker.Success {
		parts = append(parts, f.colorize(fmt.Sprintf("%d installed", len(res.Targets)), colorGreen))
	}
	if n := len(res.Installed); n > 0 {
		parts = append(parts, fmt.Sprintf("%d already installed", n))
	}
	if unreachable > 0 {
		parts = append(parts, f.colorize(fmt.Sprintf("%d unreachable", unreachable), colorRed))
	}
	if notLinux > 0 {
		parts = append(parts, f.colorize(fmt.Sprintf("%d not linux", notLinux), colorYellow))
	}
	if failed := failedHosts(res); failed > 0 {
		parts = append(parts, f.colorize(fmt.Sprintf("%d with step errors", failed), colorRed))
	}
	if len(parts) == 0 {
		parts = append(parts, res.Outcome.String())
	}
	return strings.Join(parts, ", ")
}

func failedHosts(res *docker.DeployResult) int {
	seen := make(map[string]bool)
	for _, step := range res.Steps {
		for _, r := range step.Failed() {
			seen[r.Host] = true
		}
	}
	return len(seen)
}

func (f *Formatter) newTable(headers ...string) *table.Table {
	border := lipgloss.NewStyle()
	if f.Color {
		border = border.Foreground(colorSubtle)
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(border).
		Headers(headers...)
}

// cell is the padded style for one table cell, colored when color is on.
func (f *Formatter) cell(c color.Color) lipgloss.Style {
	s := lipgloss.NewStyle().Padding(0, 1)
	if f.Color && c != nil {
		s = s.Foreground(c)
	}
	return s
}

func (f *Formatter) colorize(text string, c color.Color) string {
	if !f.Color {
		return text
	}
	return lipgloss.NewStyle().Foreground(c).Render(text)
}

func reachability(st docker.HostStatus) string {
	switch {
	case !st.Reachable:
		return "unreachable"
	case !st.Linux:
		return "not linux"
	}
	return "ok"
}

func system(st docker.HostStatus) string {
	if st.System != "" {
		return firstLine(st.System)
	}
	if st.Err != nil {
		return st.Err.Error()
	}
	return "-"
}

func dockerColumn(st docker.HostStatus) string {
	switch {
	case !st.Linux:
		return "-"
	case st.DockerPath == "":
		return "not installed"
	}
	return st.DockerPath
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func marshal(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal json: %w", err)
	}
	return string(data) + "\n", nil
}
