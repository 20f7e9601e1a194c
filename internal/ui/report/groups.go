package report

import (
	"fmt"
	"strings"

	"github.com/agent462/dockfleet/internal/docker"
	"github.com/agent462/dockfleet/internal/grouper"
)

// FormatGroups renders a collapsed exec report: each group's hosts followed
// by its response, a diff for every group outside the majority, and a last
// line naming the hosts that did not respond.
func (f *Formatter) FormatGroups(g *grouper.Grouped) (string, error) {
	if f.JSON {
		return f.groupsJSON(g)
	}

	var b strings.Builder
	for _, grp := range g.Groups {
		header := fmt.Sprintf("%s: %s", plural(len(grp.Hosts)), f.colorize(strings.Join(grp.Hosts, ", "), colorCyan))
		if grp.Majority && len(g.Groups) > 1 {
			header += " (majority)"
		}
		if grp.Source == docker.SourceStderr {
			header += " " + f.colorize("(stderr)", colorYellow)
		}
		b.WriteString(header + "\n")

		body := grp.Response
		if grp.Diff != "" {
			body = f.colorDiff(grp.Diff)
		}
		for _, line := range strings.Split(strings.TrimSuffix(body, "\n"), "\n") {
			b.WriteString("  " + line + "\n")
		}
		b.WriteString("\n")
	}

	if len(g.Silent) > 0 {
		hosts := make([]string, len(g.Silent))
		for i, row := range g.Silent {
			hosts[i] = row.Host
		}
		b.WriteString(f.colorize("No response from "+strings.Join(hosts, ", "), colorRed) + "\n")
	}
	return b.String(), nil
}

func (f *Formatter) groupsJSON(g *grouper.Grouped) (string, error) {
	type jsonGroup struct {
		Hosts    []string `json:"hosts"`
		Response string   `json:"response"`
		Source   string   `json:"source"`
		Majority bool     `json:"majority"`
		Diff     string   `json:"diff,omitempty"`
	}
	type jsonGrouped struct {
		Command string      `json:"command"`
		Groups  []jsonGroup `json:"groups"`
		Silent  []string    `json:"no_response,omitempty"`
	}

	out := jsonGrouped{Command: g.Command, Groups: make([]jsonGroup, len(g.Groups))}
	for i, grp := range g.Groups {
		out.Groups[i] = jsonGroup{
			Hosts:    grp.Hosts,
			Response: grp.Response,
			Source:   string(grp.Source),
			Majority: grp.Majority,
			Diff:     grp.Diff,
		}
	}
	for _, row := range g.Silent {
		out.Silent = append(out.Silent, row.Host)
	}
	return marshal(out)
}

func (f *Formatter) colorDiff(diff string) string {
	if !f.Color {
		return diff
	}
	lines := strings.Split(diff, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			lines[i] = f.colorize(line, colorSubtle)
		case strings.HasPrefix(line, "-"):
			lines[i] = f.colorize(line, colorRed)
		case strings.HasPrefix(line, "+"):
			lines[i] = f.colorize(line, colorGreen)
		}
	}
	return strings.Join(lines, "\n")
}

func plural(n int) string {
	if n == 1 {
		return "1 host"
	}
	return fmt.Sprintf("%d hosts", n)
}
