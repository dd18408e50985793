package model

import "testing"

func strp(s string) *string { return &s }
func u64p(n uint64) *uint64 { return &n }
func intp(n int) *int       { return &n }

func TestIsSimilar(t *testing.T) {
	a := LinkDescriptor{Path: "/home/u/.vimrc", Target: strp("/dot/vimrc")}
	b := LinkDescriptor{Path: "/home/u/.vimrc", Target: strp("/dot/other")}
	if !a.IsSimilar(b) {
		t.Fatalf("expected links sharing a path to be similar")
	}

	c := LinkDescriptor{Path: "/home/u/.vimrc2", Target: strp("/dot/vimrc")}
	if !a.IsSimilar(c) {
		t.Fatalf("expected links sharing a target to be similar")
	}

	d := LinkDescriptor{Path: "/home/u/.other", TargetInode: u64p(42)}
	e := LinkDescriptor{Path: "/home/u/.yetanother", TargetInode: u64p(42)}
	if !d.IsSimilar(e) {
		t.Fatalf("expected hard links sharing an inode to be similar")
	}

	f := LinkDescriptor{Path: "/home/u/.unrelated", Target: strp("/dot/x")}
	if a.IsSimilar(f) {
		t.Fatalf("unrelated links must not be similar")
	}
}

func TestEqual(t *testing.T) {
	base := LinkDescriptor{
		Path: "/home/u/.vimrc", Target: strp("/dot/vimrc"),
		Owner: "u:u", Permission: intp(0644), Hard: false, Secure: false,
	}
	same := base
	same.Target = strp("/dot/vimrc")
	if !base.Equal(same) {
		t.Fatalf("expected identical descriptors to be equal")
	}

	changedPerm := base
	changedPerm.Permission = intp(0600)
	if base.Equal(changedPerm) {
		t.Fatalf("expected differing permission to break equality")
	}

	hardA := LinkDescriptor{Path: "/a", TargetInode: u64p(1), Hard: true}
	hardB := LinkDescriptor{Path: "/a", TargetInode: u64p(1), Hard: true}
	if !hardA.Equal(hardB) {
		t.Fatalf("expected hard links with same inode to be equal")
	}
	hardC := LinkDescriptor{Path: "/a", TargetInode: u64p(2), Hard: true}
	if hardA.Equal(hardC) {
		t.Fatalf("expected hard links with different inode to be unequal")
	}
}

func TestBroken(t *testing.T) {
	ok := LinkDescriptor{Path: "/a", Target: strp("/b")}
	if ok.Broken() {
		t.Fatalf("descriptor with a target must not be broken")
	}
	broken := LinkDescriptor{Path: "/a"}
	if !broken.Broken() {
		t.Fatalf("descriptor with no target or inode must be broken")
	}
}
