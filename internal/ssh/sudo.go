package ssh

import (
	"context"
	"strings"
)

// RunCommandWithSudo runs command with password delivered on stdin. Only a
// leading "sudo " is rewritten (to "sudo -S -p ''" so no prompt lands in the
// output); other commands run unchanged.
func (c *Client) RunCommandWithSudo(ctx context.Context, command, password string) (stdout, stderr []byte, exitCode int, err error) {
	wrapped, ok := sudoStdin(command)
	if !ok {
		return c.RunCommand(ctx, command)
	}
	return c.run(ctx, wrapped, strings.NewReader(password+"\n"))
}

// sudoStdin rewrites a leading sudo invocation to read its password from stdin.
func sudoStdin(command string) (string, bool) {
	trimmed := strings.TrimLeft(command, " \t")
	if !strings.HasPrefix(trimmed, "sudo ") {
		return command, false
	}
	return "sudo -S -p '' " + strings.TrimLeft(trimmed[len("sudo "):], " \t"), true
}
