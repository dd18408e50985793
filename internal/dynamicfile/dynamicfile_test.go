package dynamicfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStaticFileCachesByContentHash(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.txt")
	if err := os.WriteFile(srcPath, []byte("hello\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	f := NewStaticFile(dir, "dotfile", srcPath, nil)
	if err := f.UpdateFromSource(); err != nil {
		t.Fatalf("UpdateFromSource: %v", err)
	}
	path := f.Path()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected cached file to exist: %v", err)
	}
	if _, err := os.Stat(path + ".bak"); err != nil {
		t.Fatalf("expected backup sibling to exist: %v", err)
	}

	info1, _ := os.Stat(path)

	// A second identical source produces the same hash and must not
	// rewrite the cache entry (content-addressing law).
	f2 := NewStaticFile(dir, "dotfile", srcPath, nil)
	if err := f2.UpdateFromSource(); err != nil {
		t.Fatalf("UpdateFromSource (2nd): %v", err)
	}
	info2, _ := os.Stat(path)
	if info1.ModTime() != info2.ModTime() {
		t.Fatalf("expected identical content to skip rewriting the cache file")
	}
}

func TestStaticFileUpdateFromContentNoopWhenUnchanged(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.txt")
	os.WriteFile(srcPath, []byte("hello\n"), 0o644)

	f := NewStaticFile(dir, "dotfile", srcPath, nil)
	if err := f.UpdateFromSource(); err != nil {
		t.Fatalf("UpdateFromSource: %v", err)
	}
	if err := f.UpdateFromContent(f.Content()); err != nil {
		t.Fatalf("expected no-op UpdateFromContent to succeed, got %v", err)
	}
}

func TestStaticFileUpdateFromContentSimpleResync(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.txt")
	os.WriteFile(srcPath, []byte("hello\n"), 0o644)

	f := NewStaticFile(dir, "dotfile", srcPath, nil)
	if err := f.UpdateFromSource(); err != nil {
		t.Fatalf("UpdateFromSource: %v", err)
	}

	// Source hasn't changed (still matches cached md5); the cache copy
	// was edited. This should absorb the edit without a conflict.
	edited := []byte("hello edited\n")
	if err := f.UpdateFromContent(edited); err != nil {
		t.Fatalf("UpdateFromContent: %v", err)
	}
	if string(f.Content()) != string(edited) {
		t.Fatalf("expected content to be the edited bytes")
	}
}

func TestStaticFileConflictWithoutResolverIsPrecondition(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.txt")
	os.WriteFile(srcPath, []byte("hello\n"), 0o644)

	f := NewStaticFile(dir, "dotfile", srcPath, nil)
	if err := f.UpdateFromSource(); err != nil {
		t.Fatalf("UpdateFromSource: %v", err)
	}

	// Both source and cache change independently: a real conflict.
	os.WriteFile(srcPath, []byte("source changed\n"), 0o644)
	err := f.UpdateFromContent([]byte("cache changed\n"))
	if err == nil {
		t.Fatalf("expected a conflict error when no resolver is configured")
	}
}

type fakeResolver struct {
	action ConflictAction
}

func (r fakeResolver) Resolve(string, string, string) ConflictAction { return r.action }
func (fakeResolver) ShowDiff(string, string) error                   { return nil }
func (fakeResolver) CreatePatch(string, string) (string, error)      { return "", nil }

func TestStaticFileConflictUseSource(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.txt")
	os.WriteFile(srcPath, []byte("hello\n"), 0o644)

	f := NewStaticFile(dir, "dotfile", srcPath, fakeResolver{action: ConflictUseSource})
	if err := f.UpdateFromSource(); err != nil {
		t.Fatalf("UpdateFromSource: %v", err)
	}
	os.WriteFile(srcPath, []byte("source changed\n"), 0o644)
	if err := f.UpdateFromContent([]byte("cache changed\n")); err != nil {
		t.Fatalf("UpdateFromContent: %v", err)
	}
	if string(f.Content()) != "source changed\n" {
		t.Fatalf("expected content to follow the source, got %q", f.Content())
	}
}

type fakeGPG struct{}

func (fakeGPG) Decrypt(ct []byte) ([]byte, error) { return []byte("decrypted:" + string(ct)), nil }
func (fakeGPG) Encrypt(pt []byte) ([]byte, error) { return []byte("encrypted:" + string(pt)), nil }

func TestEncryptedFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "secret.gpg")
	os.WriteFile(srcPath, []byte("ciphertext"), 0o644)

	inner := NewStaticFile(dir, "secret", srcPath, nil)
	enc := NewEncryptedFile(dir, "secret", inner, fakeGPG{})
	if err := enc.UpdateFromSource(); err != nil {
		t.Fatalf("UpdateFromSource: %v", err)
	}
	if string(enc.Content()) != "decrypted:ciphertext" {
		t.Fatalf("got %q", enc.Content())
	}
}

type fakeShell struct{}

func (fakeShell) Pipe(cmd string, input []byte) ([]byte, error) {
	return []byte("filtered:" + string(input)), nil
}

func TestFilteredFileCannotReverse(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.txt")
	os.WriteFile(srcPath, []byte("hello\n"), 0o644)

	inner := NewStaticFile(dir, "dotfile", srcPath, nil)
	ff := NewFilteredFile(dir, "dotfile", "cat", inner, fakeShell{})
	if err := ff.UpdateFromSource(); err != nil {
		t.Fatalf("UpdateFromSource: %v", err)
	}
	if err := ff.UpdateFromContent([]byte("anything")); err == nil {
		t.Fatalf("expected FilteredFile reverse sync to fail")
	}
}

func TestSplittedFileConcatenatesAndRedistributes(t *testing.T) {
	dir := t.TempDir()
	aPath := filepath.Join(dir, "a.txt")
	bPath := filepath.Join(dir, "b.txt")
	os.WriteFile(aPath, []byte("line1\nline2\n"), 0o644)
	os.WriteFile(bPath, []byte("line3\n"), 0o644)

	a := NewStaticFile(dir, "merged", aPath, nil)
	b := NewStaticFile(dir, "merged", bPath, nil)
	sf := NewSplittedFile(dir, "merged", []AbstractFile{a, b})
	if err := sf.UpdateFromSource(); err != nil {
		t.Fatalf("UpdateFromSource: %v", err)
	}
	want := "line1\nline2\nline3\n"
	if string(sf.Content()) != want {
		t.Fatalf("got %q, want %q", sf.Content(), want)
	}

	edited := []byte("line1\nline2-edited\nline3\n")
	if err := sf.UpdateFromContent(edited); err != nil {
		t.Fatalf("UpdateFromContent: %v", err)
	}
	if string(a.Content()) != "line1\nline2-edited\n" {
		t.Fatalf("expected edit to land in source a, got %q", a.Content())
	}
	if string(b.Content()) != "line3\n" {
		t.Fatalf("expected source b untouched, got %q", b.Content())
	}
}
