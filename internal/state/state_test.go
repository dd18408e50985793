package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/udot/udot/internal/model"
)

func TestCurrentCreatesEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	s, err := Current(dir)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if s.Version() != Version {
		t.Fatalf("got version %q, want %q", s.Version(), Version)
	}
	if _, err := os.Stat(filepath.Join(dir, "state.json")); err != nil {
		t.Fatalf("expected state.json to be created: %v", err)
	}
	if len(s.Profiles()) != 0 {
		t.Fatalf("expected empty profile set, got %d", len(s.Profiles()))
	}
}

func TestAddRemoveProfileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Current(dir)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if err := s.AddProfile(model.ProfileState{Name: "work"}); err != nil {
		t.Fatalf("AddProfile: %v", err)
	}

	reloaded, err := load(filepath.Join(dir, "state.json"), dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := reloaded.Profile("work"); !ok {
		t.Fatalf("expected profile 'work' to survive a reload")
	}

	if err := s.RemoveProfile("work"); err != nil {
		t.Fatalf("RemoveProfile: %v", err)
	}
	reloaded2, err := load(filepath.Join(dir, "state.json"), dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := reloaded2.Profile("work"); ok {
		t.Fatalf("expected profile 'work' to be gone after removal")
	}
}

func TestReadOnlyRejectsMutation(t *testing.T) {
	dir := t.TempDir()
	s, err := Current(dir)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if err := s.AddProfile(model.ProfileState{Name: "work"}); err != nil {
		t.Fatalf("AddProfile: %v", err)
	}

	ro, err := ReadOnly(filepath.Join(dir, "state.json"), dir)
	if err != nil {
		t.Fatalf("ReadOnly: %v", err)
	}
	if err := ro.RemoveProfile("work"); err == nil {
		t.Fatalf("expected mutation on a read-only store to fail")
	}
}

func TestVersionGateRejectsTooOld(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	doc := map[string]any{"@version": "0.1.0"}
	data, _ := json.Marshal(doc)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := load(path, dir); err == nil {
		t.Fatalf("expected loading a too-old state file to fail")
	}
}

func TestCreateSnapshotIsFindable(t *testing.T) {
	dir := t.TempDir()
	s, err := Current(dir)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	ts, err := s.CreateSnapshot()
	if err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}
	if s.SnapshotRef() != ts {
		t.Fatalf("SnapshotRef() = %q, want %q", s.SnapshotRef(), ts)
	}
	snaps, err := Snapshots(dir)
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
	if _, err := FromIndex(dir, 0); err != nil {
		t.Fatalf("FromIndex: %v", err)
	}
}

func TestIsVersionSmaller(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"1.9.0", "1.17.0", true},
		{"1.17.0", "1.17.0", false},
		{"1.18.0", "1.17.0", false},
		{"2.0.0", "1.99.99", false},
	}
	for _, tc := range cases {
		if got := isVersionSmaller(tc.a, tc.b); got != tc.want {
			t.Errorf("isVersionSmaller(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}
