package solver

import (
	"testing"

	"github.com/udot/udot/internal/difflog"
	"github.com/udot/udot/internal/model"
	"github.com/udot/udot/internal/state"
)

func newTestStore(t *testing.T) *state.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := state.Current(dir)
	if err != nil {
		t.Fatalf("state.Current: %v", err)
	}
	return s
}

func TestRemoveProfileDiffSolverEmitsLinksThenProfile(t *testing.T) {
	s := newTestStore(t)
	link := model.LinkDescriptor{Path: "/a", Target: ptr("/b"), Owner: "u:u"}
	if err := s.AddProfile(model.ProfileState{Name: "work", Links: []model.LinkDescriptor{link}}); err != nil {
		t.Fatalf("AddProfile: %v", err)
	}

	solver := RemoveProfileDiffSolver{Store: s}
	log, err := solver.Solve([]string{"work"})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	ops := log.Operations()
	if len(ops) != 2 {
		t.Fatalf("expected 2 ops, got %d: %+v", len(ops), ops)
	}
	if ops[0].Kind != difflog.OpRemoveLink || ops[1].Kind != difflog.OpRemoveProfile {
		t.Fatalf("expected [remove_l, remove_p], got %+v", ops)
	}
}

func TestRemoveProfileDiffSolverSkipsUnknownProfile(t *testing.T) {
	s := newTestStore(t)
	solver := RemoveProfileDiffSolver{Store: s}
	log, err := solver.Solve([]string{"ghost"})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if log.Len() != 0 {
		t.Fatalf("expected no ops for an unknown profile, got %d", log.Len())
	}
}

func TestUninstallDiffSolverRecursesIntoSubprofiles(t *testing.T) {
	s := newTestStore(t)
	parent := "work"
	if err := s.AddProfile(model.ProfileState{Name: parent}); err != nil {
		t.Fatalf("AddProfile: %v", err)
	}
	if err := s.AddProfile(model.ProfileState{Name: "work-sub", Parent: &parent}); err != nil {
		t.Fatalf("AddProfile: %v", err)
	}

	solver := UninstallDiffSolver{Store: s}
	log, err := solver.Solve([]string{"work"})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	var sawSub, sawParent bool
	for _, op := range log.Operations() {
		if op.Kind != difflog.OpRemoveProfile {
			continue
		}
		if op.Profile == "work-sub" {
			sawSub = true
		}
		if op.Profile == "work" {
			if !sawSub {
				t.Fatalf("expected subprofile to be removed before its parent")
			}
			sawParent = true
		}
	}
	if !sawSub || !sawParent {
		t.Fatalf("expected both profile and subprofile to be removed, got %+v", log.Operations())
	}
}

func TestUninstallDiffSolverDetachesExcludedSubprofile(t *testing.T) {
	s := newTestStore(t)
	parent := "work"
	if err := s.AddProfile(model.ProfileState{Name: parent}); err != nil {
		t.Fatalf("AddProfile: %v", err)
	}
	if err := s.AddProfile(model.ProfileState{Name: "work-sub", Parent: &parent}); err != nil {
		t.Fatalf("AddProfile: %v", err)
	}

	solver := UninstallDiffSolver{Store: s, Exclude: map[string]bool{"work-sub": true}}
	log, err := solver.Solve([]string{"work"})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	var detached bool
	for _, op := range log.Operations() {
		if op.Kind == difflog.OpUpdateProp && op.Profile == "work-sub" && op.PropKey == "parent" && op.PropValue == nil {
			detached = true
		}
		if op.Kind == difflog.OpRemoveProfile && op.Profile == "work-sub" {
			t.Fatalf("excluded subprofile must not be removed")
		}
	}
	if !detached {
		t.Fatalf("expected excluded subprofile's parent to be cleared, got %+v", log.Operations())
	}
}
