// Package ulog is the small, level-based logger udot uses for the
// human-facing transcript of a run (as opposed to the structured
// operation log in internal/difflog). It wraps the standard log
// package, coloring output with lipgloss when stdout is a terminal.
package ulog

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/udot/udot/internal/uerrors"
)

var (
	mu       sync.Mutex
	out      io.Writer = os.Stdout
	logger             = log.New(os.Stderr, "", 0)
	fileSink io.Writer // non-nil once EnableFileLog succeeds
	runID    string    // correlation ID tagging every line once fileSink is set

	debugEnabled = os.Getenv("UDOT_DEBUG") != ""

	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	debugStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// SetOutput redirects the normal (non-debug, non-error) transcript.
// Tests use this to capture output instead of printing to stdout.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// EnableFileLog opens (creating if needed) <dir>/udot.log in append
// mode and tees every subsequent transcript line into it, each
// prefixed with a fresh run ID so entries from concurrent or
// successive invocations can be told apart in a shared logfile. This
// is what the `--log` flag turns on; without it udot only ever writes
// to stdout/stderr. Returns the run ID for the caller to surface if it
// wants to.
func EnableFileLog(dir string) (string, error) {
	path := dir + string(os.PathSeparator) + "udot.log"
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", uerrors.NewUnknown(err, "opening log file %s", path)
	}
	mu.Lock()
	defer mu.Unlock()
	fileSink = f
	runID = uuid.New().String()
	fmt.Fprintf(f, "[%s] run started\n", runID)
	return runID, nil
}

func tee(format string, args ...any) {
	if fileSink == nil {
		return
	}
	fmt.Fprintf(fileSink, "[%s] "+format+"\n", append([]any{runID}, args...)...)
}

func print(style lipgloss.Style, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(out, style.Render(msg))
	tee(format, args...)
}

// Info prints a plain transcript line.
func Info(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, format+"\n", args...)
	tee(format, args...)
}

// Success prints a line marking a completed, non-destructive step.
func Success(format string, args ...any) {
	print(successStyle, format, args...)
}

// Warning prints a line the user should notice but that doesn't abort
// the run.
func Warning(format string, args ...any) {
	print(warnStyle, "warning: "+format, args...)
}

// Error prints a line describing a failure. Callers still return the
// error up the call stack; this is for the immediate "what just
// happened" line shown before that error reaches main().
func Error(format string, args ...any) {
	print(errStyle, "error: "+format, args...)
}

// Debug prints only when UDOT_DEBUG is set, to the logger's writer
// (stderr by default) rather than the transcript, so it never pollutes
// output a caller might be parsing.
func Debug(format string, args ...any) {
	if !debugEnabled {
		return
	}
	logger.Println(debugStyle.Render(fmt.Sprintf(format, args...)))
}
