package external

import "testing"

func TestFakeGPGRoundTrip(t *testing.T) {
	g := FakeGPG{}
	plain := []byte("super secret")
	cipher, err := g.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	back, err := g.Decrypt(cipher)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(back) != string(plain) {
		t.Fatalf("round trip = %q, want %q", back, plain)
	}
}

func TestFakeShellRecordsCalls(t *testing.T) {
	s := &FakeShell{}
	out, err := s.Pipe("sort", []byte("b\na\n"))
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	if string(out) != "b\na\n" {
		t.Fatalf("default transform should pass input through unchanged")
	}
	if len(s.Calls) != 1 || s.Calls[0] != "sort" {
		t.Fatalf("expected the command to be recorded, got %v", s.Calls)
	}
}

func TestFakeDiffToolRecordsShowDiff(t *testing.T) {
	d := &FakeDiffTool{}
	if err := d.ShowDiff("a.txt", "b.txt"); err != nil {
		t.Fatalf("ShowDiff: %v", err)
	}
	if len(d.Shown) != 1 || d.Shown[0] != ([2]string{"a.txt", "b.txt"}) {
		t.Fatalf("expected the diff pair to be recorded, got %v", d.Shown)
	}
}

func TestFakeDiffToolCreatePatch(t *testing.T) {
	d := &FakeDiffTool{Patches: map[[2]string]string{{"a", "b"}: "--- a\n+++ b\n"}}
	patch, err := d.CreatePatch("a", "b")
	if err != nil {
		t.Fatalf("CreatePatch: %v", err)
	}
	if patch != "--- a\n+++ b\n" {
		t.Fatalf("unexpected patch: %q", patch)
	}
}
