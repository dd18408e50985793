package external

import (
	"bytes"
	"os/exec"

	"github.com/udot/udot/internal/uerrors"
)

// ShellAdapter runs a FilteredFile's configured command with input
// piped to its stdin, under the configured shell (the same shell used
// for before/after event scripts, so a FilteredFile's filter command
// and a profile's event scripts agree on syntax).
type ShellAdapter struct {
	Shell     string // defaults to "/bin/sh"
	ShellFlag string // defaults to "-c"
}

func (s ShellAdapter) shell() string {
	if s.Shell == "" {
		return "/bin/sh"
	}
	return s.Shell
}

func (s ShellAdapter) flag() string {
	if s.ShellFlag == "" {
		return "-c"
	}
	return s.ShellFlag
}

// Pipe runs cmd through the shell with input on stdin and returns
// stdout.
func (s ShellAdapter) Pipe(cmd string, input []byte) ([]byte, error) {
	c := exec.Command(s.shell(), s.flag(), cmd)
	c.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if err := c.Run(); err != nil {
		return nil, uerrors.NewGeneration("", "filter command %q failed: %v\n%s", cmd, err, stderr.String())
	}
	return stdout.Bytes(), nil
}
