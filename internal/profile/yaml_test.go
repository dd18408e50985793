package profile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileParsesLinksAndSubprofiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "work.yaml")
	err := os.WriteFile(path, []byte(`
name: work
beforeInstall: /home/u/.dotfiles/hooks/pre.sh
links:
  - path: /home/u/.vimrc
    target: /home/u/.dotfiles/vimrc
    secure: true
subprofiles:
  - name: git
    links:
      - path: /home/u/.gitconfig
        target: /home/u/.dotfiles/gitconfig
`), 0o644)
	if err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	result, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if result.Name != "work" {
		t.Fatalf("Name = %q, want work", result.Name)
	}
	if result.BeforeInstall == "" {
		t.Fatalf("expected BeforeInstall to be carried over")
	}
	if len(result.Links) != 1 || !result.Links[0].Secure {
		t.Fatalf("expected one secure link, got %+v", result.Links)
	}
	if len(result.Subprofiles) != 1 || result.Subprofiles[0].Name != "git" {
		t.Fatalf("expected one subprofile named git, got %+v", result.Subprofiles)
	}
	if result.Subprofiles[0].Parent == nil || *result.Subprofiles[0].Parent != "work" {
		t.Fatalf("expected subprofile's parent to be set to work")
	}
}

func TestLoadFileRejectsMissingName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("links: []\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected an error for a profile with no name")
	}
}
