package executor

import "fmt"

// Mismatch describes how a response set differed from the hosts that were asked.
type Mismatch struct {
	Missing    []string // requested hosts with no response
	Unexpected []string // responses for hosts that were not requested
}

// Empty reports whether the responses lined up exactly with the request.
func (m *Mismatch) Empty() bool {
	return m == nil || (len(m.Missing) == 0 && len(m.Unexpected) == 0)
}

func (m *Mismatch) String() string {
	if m.Empty() {
		return "none"
	}
	return fmt.Sprintf("missing %v, unexpected %v", m.Missing, m.Unexpected)
}

// Correlate orders responses to match hosts using each response's Host field
// rather than its position. Hosts that appear more than once consume matching
// responses in arrival order. A host left without a response gets a placeholder
// carrying ErrNoResponse. The returned slice always has len(hosts) entries.
func Correlate(hosts []string, responses []*Response) ([]*Response, *Mismatch) {
	pending := make(map[string][]*Response, len(responses))
	var order []string
	for _, r := range responses {
		if r == nil {
			continue
		}
		if _, ok := pending[r.Host]; !ok {
			order = append(order, r.Host)
		}
		pending[r.Host] = append(pending[r.Host], r)
	}

	out := make([]*Response, len(hosts))
	mm := &Mismatch{}
	for i, h := range hosts {
		queue := pending[h]
		if len(queue) == 0 {
			out[i] = &Response{Host: h, ExitCode: -1, Err: ErrNoResponse}
			mm.Missing = append(mm.Missing, h)
			continue
		}
		out[i] = queue[0]
		pending[h] = queue[1:]
	}

	for _, h := range order {
		for range pending[h] {
			mm.Unexpected = append(mm.Unexpected, h)
		}
	}

	if mm.Empty() {
		return out, nil
	}
	return out, mm
}
