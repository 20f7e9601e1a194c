package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// readSecret prompts on w and reads a line from the terminal without echo.
func readSecret(w io.Writer, prompt string) (string, error) {
	if !stdinIsTerminal() {
		return "", fmt.Errorf("stdin is not a terminal")
	}
	fmt.Fprint(w, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// passwordPrompter asks for an SSH password once and reuses the answer for
// every host. Dials run in parallel, so prompts are serialized.
type passwordPrompter struct {
	w io.Writer

	mu       sync.Mutex
	password string
	asked    bool
	err      error
}

func newPasswordPrompter(w io.Writer) *passwordPrompter {
	return &passwordPrompter{w: w}
}

func (p *passwordPrompter) prompt(host string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.asked {
		p.asked = true
		p.password, p.err = readSecret(p.w, fmt.Sprintf("SSH password (first asked by %s): ", host))
	}
	return p.password, p.err
}
