package prompt

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/udot/udot/internal/model"
	"github.com/udot/udot/internal/state"
)

func TestProfilesTableListsEveryProfile(t *testing.T) {
	parent := "base"
	profiles := []*model.ProfileState{
		{Name: "base", Updated: time.Now()},
		{Name: "work", Parent: &parent, Links: []model.LinkDescriptor{{}, {}}, Updated: time.Now()},
	}
	out := ProfilesTable(profiles)
	if !strings.Contains(out, "base") || !strings.Contains(out, "work") {
		t.Fatalf("expected both profile names in output:\n%s", out)
	}
	if !strings.Contains(out, "2") {
		t.Fatalf("expected work's link count (2) in output:\n%s", out)
	}
}

func TestLinksTableMarksSecureAndHardFlags(t *testing.T) {
	target := "/dotfiles/vimrc"
	links := []model.LinkDescriptor{
		{Path: "/home/u/.vimrc", Target: &target, Owner: "u:u", Secure: true},
		{Path: "/home/u/.bashrc", Hard: true, Owner: "u:u"},
	}
	out := LinksTable(links)
	if !strings.Contains(out, "secure") {
		t.Fatalf("expected the secure flag rendered:\n%s", out)
	}
	if !strings.Contains(out, "hard") {
		t.Fatalf("expected the hard flag rendered:\n%s", out)
	}
}

func TestHistoryTableOrdersAndAges(t *testing.T) {
	now := time.Now()
	snapshots := []state.Snapshot{
		{Timestamp: now.Add(-2 * time.Hour).Unix()},
		{Timestamp: now.Add(-1 * time.Minute).Unix()},
	}
	out := HistoryTable(snapshots, now)
	first := strings.Index(out, strconv.FormatInt(snapshots[0].Timestamp, 10))
	second := strings.Index(out, strconv.FormatInt(snapshots[1].Timestamp, 10))
	if first == -1 || second == -1 || first > second {
		t.Fatalf("expected snapshots rendered in the order given:\n%s", out)
	}
	if !strings.Contains(out, " ago") {
		t.Fatalf("expected each snapshot's age rendered:\n%s", out)
	}
}
