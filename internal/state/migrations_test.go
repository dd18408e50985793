package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestUpgradeStoneAgeBackfillsMissingFields(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "dotfile")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("writing target: %v", err)
	}
	linkPath := filepath.Join(dir, "link")
	if err := os.Symlink(target, linkPath); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	doc := map[string]any{
		"@version": "1.12.0",
		"work": map[string]any{
			"name": "work",
			"links": []any{
				map[string]any{"name": linkPath, "target": target},
			},
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshaling fixture: %v", err)
	}
	path := filepath.Join(dir, "state.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	s, err := load(path, dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p, ok := s.Profile("work")
	if !ok || len(p.Links) != 1 {
		t.Fatalf("expected one migrated link, got %+v", p)
	}
	link := p.Links[0]
	if link.Path != linkPath {
		t.Fatalf("expected name to be migrated to path, got %q", link.Path)
	}
	if link.Hard {
		t.Fatalf("expected hard=false after upgradeStoneAge")
	}
	if link.TargetInode == nil {
		t.Fatalf("expected target_inode to be backfilled from stat")
	}
	if link.Owner == "" {
		t.Fatalf("expected owner to be backfilled")
	}
	if s.Version() != Version {
		t.Fatalf("got version %q after upgrade, want %q", s.Version(), Version)
	}
}
