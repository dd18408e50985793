// Package event runs before/after profile scripts: small shell scripts
// named by a profile's beforeInstall/afterUpdate/etc. properties. It
// streams the child's stdout back to the caller over a channel (the
// one auxiliary goroutine this engine runs outside its main loop) and
// enforces a configurable timeout.
package event

import (
	"bufio"
	"context"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/udot/udot/internal/uerrors"
)

// Config carries the pieces of shell invocation that are
// environment/user settings rather than per-call arguments.
type Config struct {
	Shell     string
	ShellArgs []string
	Timeout   time.Duration // 0 disables the timeout

	// DemoteUID/DemoteGID, when non-zero, are applied to the child
	// process so a script run while udot holds root privileges still
	// executes as the real invoking user.
	DemoteUID uint32
	DemoteGID uint32
}

// Line is one line of output from a running script, tagged by stream.
type Line struct {
	Text    string
	IsError bool
}

// Run executes scriptPath under cfg.Shell, streaming its combined
// output to onLine as it arrives. It returns once the script exits, is
// killed by ctx, or exceeds cfg.Timeout.
func Run(ctx context.Context, cfg Config, scriptPath string, onLine func(Line)) error {
	args := append(append([]string{}, cfg.ShellArgs...), scriptPath)
	cmd := exec.Command(cfg.Shell, args...)
	if cfg.DemoteUID != 0 || cfg.DemoteGID != 0 {
		cmd.SysProcAttr = &syscall.SysProcAttr{
			Credential: &syscall.Credential{Uid: cfg.DemoteUID, Gid: cfg.DemoteGID},
		}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return uerrors.NewUnknown(err, "opening stdout pipe for "+scriptPath)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return uerrors.NewUnknown(err, "opening stderr pipe for "+scriptPath)
	}

	if err := cmd.Start(); err != nil {
		return uerrors.NewGeneration("", "starting script %s: %v", scriptPath, err)
	}

	lines := make(chan Line, 64)
	done := make(chan error, 1)

	var streams sync.WaitGroup
	streams.Add(2)
	go func() { defer streams.Done(); streamLines(stdout, false, lines) }()
	go func() { defer streams.Done(); streamLines(stderr, true, lines) }()
	go func() { streams.Wait(); close(lines) }()
	go func() { done <- cmd.Wait() }()

	var timeoutCh <-chan time.Time
	if cfg.Timeout > 0 {
		timer := time.NewTimer(cfg.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	for open := true; open; {
		select {
		case l, ok := <-lines:
			if !ok {
				open = false
				continue
			}
			onLine(l)
		case err := <-done:
			drainRemaining(lines, onLine)
			if err != nil {
				return uerrors.NewGeneration("", "script %s exited with an error: %v", scriptPath, err)
			}
			return nil
		case <-timeoutCh:
			_ = cmd.Process.Kill()
			return uerrors.NewGeneration("", "script %s timed out after %s", scriptPath, cfg.Timeout)
		case <-ctx.Done():
			_ = cmd.Process.Kill()
			return uerrors.NewUserAbortion()
		}
	}
	// stdout and stderr both closed; wait for the process itself.
	if err := <-done; err != nil {
		return uerrors.NewGeneration("", "script %s exited with an error: %v", scriptPath, err)
	}
	return nil
}

func drainRemaining(lines chan Line, onLine func(Line)) {
	for {
		select {
		case l, ok := <-lines:
			if !ok {
				return
			}
			onLine(l)
		default:
			return
		}
	}
}

func streamLines(r interface{ Read([]byte) (int, error) }, isErr bool, out chan<- Line) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		out <- Line{Text: scanner.Text(), IsError: isErr}
	}
}
