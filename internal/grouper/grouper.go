// Package grouper collapses per-host docker responses into groups of hosts
// that answered identically.
package grouper

import (
	"strings"

	"github.com/agent462/dockfleet/internal/docker"
)

// Group is a set of hosts that returned the same response from the same
// stream.
type Group struct {
	Hosts    []string
	Response string
	Source   docker.Source
	Majority bool   // the largest group; ties go to the earliest
	Diff     string // unified diff of Response against the majority's
}

// Grouped is an execution report collapsed by response.
type Grouped struct {
	Groups  []Group
	Silent  []docker.Row // rows with no response at all
	Command string
}

// Collapse groups the rows of r by response text and source. The majority
// group comes first, the rest follow in order of first appearance. Hosts
// keep report order within a group, and rows without any response are kept
// apart in Silent.
func Collapse(r docker.ExecutionReport) *Grouped {
	g := &Grouped{Command: r.Command}

	type key struct {
		source   docker.Source
		response string
	}
	index := make(map[key]int)
	for _, row := range r.Rows {
		if row.Source == docker.SourceNone {
			g.Silent = append(g.Silent, row)
			continue
		}
		k := key{row.Source, row.Response}
		i, ok := index[k]
		if !ok {
			i = len(g.Groups)
			index[k] = i
			g.Groups = append(g.Groups, Group{Response: row.Response, Source: row.Source})
		}
		g.Groups[i].Hosts = append(g.Groups[i].Hosts, row.Host)
	}
	if len(g.Groups) == 0 {
		return g
	}

	majority := 0
	for i := range g.Groups {
		if len(g.Groups[i].Hosts) > len(g.Groups[majority].Hosts) {
			majority = i
		}
	}
	norm := g.Groups[majority]
	norm.Majority = true

	out := []Group{norm}
	for i, grp := range g.Groups {
		if i == majority {
			continue
		}
		grp.Diff = unifiedDiff(norm.Response, grp.Response)
		out = append(out, grp)
	}
	g.Groups = out
	return g
}

// maxDiffLines caps either side before the diff gives up on alignment and
// shows a full removal and addition.
const maxDiffLines = 500

// unifiedDiff returns a line diff of b against a, headed by "--- majority"
// and "+++ this group". Unchanged lines are prefixed with a space.
func unifiedDiff(a, b string) string {
	aLines, bLines := splitLines(a), splitLines(b)

	var out strings.Builder
	out.WriteString("--- majority\n+++ this group\n")
	emit := func(prefix byte, line string) {
		out.WriteByte(prefix)
		out.WriteString(line)
		out.WriteByte('\n')
	}

	if len(aLines) > maxDiffLines || len(bLines) > maxDiffLines {
		for _, l := range aLines {
			emit('-', l)
		}
		for _, l := range bLines {
			emit('+', l)
		}
		return out.String()
	}

	// common[i][j] is the LCS length of aLines[i:] and bLines[j:].
	m, n := len(aLines), len(bLines)
	common := make([][]int, m+1)
	for i := range common {
		common[i] = make([]int, n+1)
	}
	for i := m - 1; i >= 0; i-- {
		for j := n - 1; j >= 0; j-- {
			if aLines[i] == bLines[j] {
				common[i][j] = common[i+1][j+1] + 1
			} else {
				common[i][j] = max(common[i+1][j], common[i][j+1])
			}
		}
	}

	i, j := 0, 0
	for i < m && j < n {
		switch {
		case aLines[i] == bLines[j]:
			emit(' ', aLines[i])
			i++
			j++
		case common[i+1][j] >= common[i][j+1]:
			emit('-', aLines[i])
			i++
		default:
			emit('+', bLines[j])
			j++
		}
	}
	for ; i < m; i++ {
		emit('-', aLines[i])
	}
	for ; j < n; j++ {
		emit('+', bLines[j])
	}
	return out.String()
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
