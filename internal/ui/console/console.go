// Package console prints deploy diagnostics as colored lines.
package console

import (
	"fmt"
	"io"
	"sync"

	"charm.land/lipgloss/v2"

	"github.com/agent462/dockfleet/internal/docker"
)

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FDFF90"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4672")).Bold(true)
)

// Printer writes one line per event.
type Printer struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// New creates a Printer. With color off the output is plain text.
func New(w io.Writer, color bool) *Printer {
	return &Printer{w: w, color: color}
}

// Print renders e. Its signature matches docker.EventFunc.
func (p *Printer) Print(e docker.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, p.Line(e))
}

// Line formats e without writing it.
func (p *Printer) Line(e docker.Event) string {
	switch e.Level {
	case docker.LevelOK:
		return p.style(okStyle, e.Message)
	case docker.LevelWarning:
		return p.style(warningStyle, "WARNING: "+e.Message)
	case docker.LevelError:
		return p.style(errorStyle, "ERROR: "+e.Message)
	}
	return e.Message
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}
