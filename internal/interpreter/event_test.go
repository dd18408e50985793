package interpreter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/udot/udot/internal/difflog"
	"github.com/udot/udot/internal/event"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0755); err != nil {
		t.Fatalf("writeScript: %v", err)
	}
	return path
}

func TestEventInterpreterRunsBeforeScript(t *testing.T) {
	dir := t.TempDir()
	before := writeScript(t, dir, "before.sh", "#!/bin/sh\necho before\n")

	log := difflog.New()
	log.AddProfile("work", nil, before, "")

	ev := &EventInterpreter{Config: event.Config{Shell: "/bin/sh"}, Before: true}
	if err := log.Run(ev); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestEventInterpreterSkipsOnDryRun(t *testing.T) {
	dir := t.TempDir()
	before := writeScript(t, dir, "before.sh", "#!/bin/sh\nexit 7\n")

	log := difflog.New()
	log.AddProfile("work", nil, before, "")

	ev := &EventInterpreter{Config: event.Config{Shell: "/bin/sh"}, Before: true, DryRun: true}
	if err := log.Run(ev); err != nil {
		t.Fatalf("Run should not execute scripts under dry-run: %v", err)
	}
}

func TestEventInterpreterFailurePropagates(t *testing.T) {
	dir := t.TempDir()
	before := writeScript(t, dir, "before.sh", "#!/bin/sh\nexit 1\n")

	log := difflog.New()
	log.AddProfile("work", nil, before, "")

	ev := &EventInterpreter{Config: event.Config{Shell: "/bin/sh"}, Before: true}
	if err := log.Run(ev); err == nil {
		t.Fatalf("expected a failing before-script to abort the run")
	}
}

func TestEventInterpreterIgnoresAfterWhenRunningBeforePass(t *testing.T) {
	dir := t.TempDir()
	after := writeScript(t, dir, "after.sh", "#!/bin/sh\nexit 1\n")

	log := difflog.New()
	log.AddProfile("work", nil, "", after)

	ev := &EventInterpreter{Config: event.Config{Shell: "/bin/sh"}, Before: true}
	if err := log.Run(ev); err != nil {
		t.Fatalf("a before-pass must not run the after-script: %v", err)
	}
}
