package interpreter

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/udot/udot/internal/difflog"
	"github.com/udot/udot/internal/ulog"
)

// needsRoot reports whether writing at path (or reading from it, to
// decide whether it must be overwritten) requires privileges the
// current process doesn't have, walking up to the nearest existing
// ancestor the way the original's access-check did.
func needsRoot(path string) bool {
	if path == "" || path == "/" {
		return true
	}
	for {
		if _, err := os.Stat(path); err == nil {
			return !writable(path)
		}
		parent := filepath.Dir(path)
		if parent == path {
			return true
		}
		path = parent
	}
}

func writable(path string) bool {
	return syscall.Access(path, unixWOK) == nil
}

const unixWOK = 2 // W_OK

// RootNeeded just warns, once per distinct path, about operations that
// will need elevated privileges — used when the user passed
// --skiproot and wants to be told what got skipped rather than asked
// to re-run under sudo.
type RootNeeded struct {
	logged map[string]bool
	warn   func(path string)
}

func NewRootNeeded(warn func(path string)) *RootNeeded {
	return &RootNeeded{warn: warn}
}

func (r *RootNeeded) Start() error {
	r.logged = map[string]bool{}
	return nil
}

func (r *RootNeeded) Handle(op difflog.Operation) error {
	path := linkPath(op)
	if path == "" || !needsRoot(filepath.Dir(path)) {
		return nil
	}
	if r.logged[path] {
		return nil
	}
	r.logged[path] = true
	if r.warn != nil {
		r.warn(path)
	}
	return nil
}

func (r *RootNeeded) Finish() error { return nil }

// SkipRoot filters out of the log every operation that needs
// privileges the process doesn't have, logging one summary warning
// per distinct reason instead of one line per operation.
type SkipRoot struct {
	Log *difflog.DiffLog

	kept    []difflog.Operation
	skipped map[string]int
}

func (s *SkipRoot) Start() error {
	s.skipped = map[string]int{}
	return nil
}

func (s *SkipRoot) Handle(op difflog.Operation) error {
	path := linkPath(op)
	if path != "" && needsRoot(filepath.Dir(path)) {
		reason := skipReason(op, path)
		s.skipped[reason]++
		return nil
	}
	s.kept = append(s.kept, op)
	return nil
}

func skipReason(op difflog.Operation, path string) string {
	kind := "files"
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		kind = "directories"
	}
	return string(op.Kind) + " on " + kind
}

func (s *SkipRoot) Finish() error {
	if s.Log != nil {
		s.Log.Replace(s.kept)
	}
	for reason, count := range s.skipped {
		parts := strings.SplitN(reason, " on ", 2)
		ulog.Warning("skipped %d %s requiring root on %s", count, parts[0], parts[1])
	}
	return nil
}

// GainRoot inspects the (already-filtered-by-nothing) log for any
// operation that would need root and, if privilege escalation is
// allowed, hands the caller everything it needs to re-exec under sudo.
// It performs no elevation itself — re-exec is main()'s job — it only
// detects whether one is needed.
type GainRoot struct {
	AskRoot bool
	Needed  bool
}

func (g *GainRoot) Start() error { return nil }

func (g *GainRoot) Handle(op difflog.Operation) error {
	path := linkPath(op)
	if path != "" && needsRoot(filepath.Dir(path)) {
		g.Needed = true
	}
	return nil
}

func (g *GainRoot) Finish() error { return nil }
