// Package hostlist turns user-supplied host specifications into a flat list
// of host names. It understands comma-separated lists, bracket ranges such
// as node[01-05] or 192.168.50.[1-3], and host files.
package hostlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// MaxHosts bounds the expansion of a single pattern.
const MaxHosts = 10000

// Parse splits a comma-separated list and expands every entry. Commas inside
// brackets belong to the range, not the list. Empty entries are skipped.
func Parse(list string) ([]string, error) {
	var hosts []string
	for _, entry := range splitList(list) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		expanded, err := Expand(entry)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, expanded...)
	}
	return hosts, nil
}

// Expand expands the bracket ranges in a single host pattern. A pattern with
// several bracket groups expands to their cartesian product, left to right.
// Brackets holding a colon are left alone so IPv6 literals pass through.
func Expand(pattern string) ([]string, error) {
	open := strings.IndexByte(pattern, '[')
	if open < 0 {
		if strings.IndexByte(pattern, ']') >= 0 {
			return nil, fmt.Errorf("host pattern %q: unmatched ']'", pattern)
		}
		return []string{pattern}, nil
	}
	end := strings.IndexByte(pattern[open:], ']')
	if end < 0 {
		return nil, fmt.Errorf("host pattern %q: unmatched '['", pattern)
	}
	end += open

	prefix, body, rest := pattern[:open], pattern[open+1:end], pattern[end+1:]

	if strings.Contains(body, ":") {
		tails, err := Expand(rest)
		if err != nil {
			return nil, err
		}
		return prepend(pattern[:end+1], tails), nil
	}

	items, err := expandRange(body)
	if err != nil {
		return nil, fmt.Errorf("host pattern %q: %w", pattern, err)
	}
	tails, err := Expand(rest)
	if err != nil {
		return nil, err
	}
	if len(items)*len(tails) > MaxHosts {
		return nil, fmt.Errorf("host pattern %q expands to more than %d hosts", pattern, MaxHosts)
	}

	hosts := make([]string, 0, len(items)*len(tails))
	for _, item := range items {
		hosts = append(hosts, prepend(prefix+item, tails)...)
	}
	return hosts, nil
}

// expandRange expands the inside of one bracket group: "1-3", "01-10",
// "1,3,5" or a mix such as "1-3,7".
func expandRange(body string) ([]string, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("empty range")
	}

	var items []string
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			if part == "" {
				return nil, fmt.Errorf("empty item in range %q", body)
			}
			items = append(items, part)
			continue
		}

		start, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("invalid range start %q", lo)
		}
		stop, err := strconv.Atoi(hi)
		if err != nil {
			return nil, fmt.Errorf("invalid range end %q", hi)
		}
		if start < 0 || stop < start {
			return nil, fmt.Errorf("invalid range %q", part)
		}
		if stop-start+1 > MaxHosts {
			return nil, fmt.Errorf("range %q is larger than %d", part, MaxHosts)
		}

		width := 0
		if len(lo) > 1 && lo[0] == '0' {
			width = len(lo)
		}
		for n := start; n <= stop; n++ {
			items = append(items, fmt.Sprintf("%0*d", width, n))
		}
	}
	return items, nil
}

func prepend(prefix string, tails []string) []string {
	out := make([]string, len(tails))
	for i, t := range tails {
		out[i] = prefix + t
	}
	return out
}

// splitList splits on commas that are not inside brackets.
func splitList(list string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(list); i++ {
		switch list[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, list[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, list[start:])
}

// ReadFile reads a host file. See Read for the format.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open host file: %w", err)
	}
	defer f.Close()

	hosts, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return hosts, nil
}

// Read parses one host pattern per line. Blank lines and any line containing
// a '#' are ignored.
func Read(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	var hosts []string
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.Contains(line, "#") {
			continue
		}

		expanded, err := Parse(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		hosts = append(hosts, expanded...)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read hosts: %w", err)
	}
	return hosts, nil
}

// Dedup removes repeated names, keeping the first occurrence.
func Dedup(hosts []string) []string {
	seen := make(map[string]bool, len(hosts))
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}
