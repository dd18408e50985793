package external

import (
	"bytes"
	"os"
	"os/exec"

	"github.com/udot/udot/internal/uerrors"
)

// DiffTool shows colorized diffs to the terminal and produces unified
// patches, the two subprocess calls a StaticFile conflict menu needs
// (ShowDiff/CreatePatch on dynamicfile.ConflictResolver). It prefers
// `git diff --no-index`, which colorizes and handles binary files
// sensibly without needing a .git repository, falling back to plain
// `diff` if git isn't on PATH.
type DiffTool struct {
	GitBinary  string // defaults to "git"
	DiffBinary string // defaults to "diff"
}

func (d DiffTool) gitBinary() string {
	if d.GitBinary == "" {
		return "git"
	}
	return d.GitBinary
}

func (d DiffTool) diffBinary() string {
	if d.DiffBinary == "" {
		return "diff"
	}
	return d.DiffBinary
}

// ShowDiff prints a colorized diff between a and b to stdout.
func (d DiffTool) ShowDiff(a, b string) error {
	cmd := exec.Command(d.gitBinary(), "diff", "--no-index", "--color=always", a, b)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	if _, ok := err.(*exec.ExitError); ok {
		// git diff --no-index exits 1 when the files differ, which is
		// the expected case, not a failure.
		return nil
	}
	if err != nil {
		return d.showDiffFallback(a, b)
	}
	return nil
}

func (d DiffTool) showDiffFallback(a, b string) error {
	cmd := exec.Command(d.diffBinary(), "--color=auto", "-u", a, b)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	if _, ok := err.(*exec.ExitError); ok {
		return nil
	}
	return err
}

// CreatePatch returns a unified diff between a and b as text, for the
// "save a patch instead of overwriting" conflict-menu option.
func (d DiffTool) CreatePatch(a, b string) (string, error) {
	cmd := exec.Command(d.diffBinary(), "-u", a, b)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	err := cmd.Run()
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
		return stdout.String(), nil // files differ: exactly what we want
	}
	if err != nil {
		return "", uerrors.NewUnknown(err, "creating patch between "+a+" and "+b)
	}
	return stdout.String(), nil
}
