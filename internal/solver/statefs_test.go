package solver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/udot/udot/internal/model"
	"github.com/udot/udot/internal/state"
)

func TestCheckRenamedFindsMovedLink(t *testing.T) {
	linkDir := t.TempDir()
	target := filepath.Join(t.TempDir(), "dotfile")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("writing target: %v", err)
	}

	oldPath := filepath.Join(linkDir, "old")
	newPath := filepath.Join(linkDir, "new")
	if err := os.Symlink(target, oldPath); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatalf("rename: %v", err)
	}

	stateDir := t.TempDir()
	s, err := state.Current(stateDir)
	if err != nil {
		t.Fatalf("state.Current: %v", err)
	}
	if err := s.AddProfile(model.ProfileState{Name: "work"}); err != nil {
		t.Fatalf("AddProfile: %v", err)
	}
	if err := s.SetProfileLinks("work", []model.LinkDescriptor{
		{Path: oldPath, Target: &target, Owner: "0:0"},
	}); err != nil {
		t.Fatalf("SetProfileLinks: %v", err)
	}

	solver := StateFilesystemDiffSolver{Store: s}
	log, err := solver.Solve()
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	ops := log.Operations()
	if len(ops) != 1 {
		t.Fatalf("expected 1 operation, got %d", len(ops))
	}
	if ops[0].Kind != "info" {
		t.Fatalf("expected an info op, got %v", ops[0].Kind)
	}
	if !strings.Contains(ops[0].Message, "was renamed to") || !strings.Contains(ops[0].Message, newPath) {
		t.Fatalf("expected a rename message mentioning %q, got %q", newPath, ops[0].Message)
	}
}

func TestCheckRenamedFallsBackToRemoved(t *testing.T) {
	linkDir := t.TempDir()
	target := filepath.Join(t.TempDir(), "dotfile")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("writing target: %v", err)
	}
	oldPath := filepath.Join(linkDir, "old")

	stateDir := t.TempDir()
	s, err := state.Current(stateDir)
	if err != nil {
		t.Fatalf("state.Current: %v", err)
	}
	if err := s.AddProfile(model.ProfileState{Name: "work"}); err != nil {
		t.Fatalf("AddProfile: %v", err)
	}
	if err := s.SetProfileLinks("work", []model.LinkDescriptor{
		{Path: oldPath, Target: &target, Owner: "0:0"},
	}); err != nil {
		t.Fatalf("SetProfileLinks: %v", err)
	}

	solver := StateFilesystemDiffSolver{Store: s}
	log, err := solver.Solve()
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	ops := log.Operations()
	if len(ops) != 1 {
		t.Fatalf("expected 1 operation, got %d", len(ops))
	}
	if !strings.Contains(ops[0].Message, "was removed") {
		t.Fatalf("expected a removed message, got %q", ops[0].Message)
	}
}
