package solver

import (
	"testing"

	"github.com/udot/udot/internal/difflog"
	"github.com/udot/udot/internal/model"
)

func ptr(s string) *string { return &s }

func neverExists(model.LinkDescriptor) bool { return false }

func TestSolveLinkListNoopWhenEqual(t *testing.T) {
	log := difflog.New()
	link := model.LinkDescriptor{Path: "/a", Target: ptr("/b"), Owner: "u:u"}
	changed, err := solveLinkList(log, "work", []model.LinkDescriptor{link}, []model.LinkDescriptor{link}, neverExists)
	if err != nil {
		t.Fatalf("solveLinkList: %v", err)
	}
	if changed {
		t.Fatalf("expected no change for identical lists")
	}
	if log.Len() != 0 {
		t.Fatalf("expected no operations, got %d", log.Len())
	}
}

func TestSolveLinkListAddsNewLink(t *testing.T) {
	log := difflog.New()
	link := model.LinkDescriptor{Path: "/a", Target: ptr("/b"), Owner: "u:u"}
	changed, err := solveLinkList(log, "work", nil, []model.LinkDescriptor{link}, neverExists)
	if err != nil {
		t.Fatalf("solveLinkList: %v", err)
	}
	if !changed {
		t.Fatalf("expected a change")
	}
	ops := log.Operations()
	if len(ops) != 1 || ops[0].Kind != difflog.OpAddLink {
		t.Fatalf("expected one add_l, got %+v", ops)
	}
}

func TestSolveLinkListTracksExistingLink(t *testing.T) {
	log := difflog.New()
	link := model.LinkDescriptor{Path: "/a", Target: ptr("/b"), Owner: "u:u"}
	changed, err := solveLinkList(log, "work", nil, []model.LinkDescriptor{link}, func(model.LinkDescriptor) bool { return true })
	if err != nil {
		t.Fatalf("solveLinkList: %v", err)
	}
	if !changed {
		t.Fatalf("expected a change")
	}
	ops := log.Operations()
	if len(ops) != 1 || ops[0].Kind != difflog.OpTrackLink {
		t.Fatalf("expected one track_l, got %+v", ops)
	}
}

func TestSolveLinkListRemovesGoneLink(t *testing.T) {
	log := difflog.New()
	link := model.LinkDescriptor{Path: "/a", Target: ptr("/b"), Owner: "u:u"}
	changed, err := solveLinkList(log, "work", []model.LinkDescriptor{link}, nil, neverExists)
	if err != nil {
		t.Fatalf("solveLinkList: %v", err)
	}
	if !changed {
		t.Fatalf("expected a change")
	}
	ops := log.Operations()
	if len(ops) != 1 || ops[0].Kind != difflog.OpRemoveLink {
		t.Fatalf("expected one remove_l, got %+v", ops)
	}
}

func TestSolveLinkListMetadataOnlyChangeEmitsUpdateT(t *testing.T) {
	log := difflog.New()
	old := model.LinkDescriptor{Path: "/a", Target: ptr("/b"), Owner: "u:u"}
	new_ := model.LinkDescriptor{Path: "/a", Target: ptr("/b"), Owner: "root:root"}
	changed, err := solveLinkList(log, "work", []model.LinkDescriptor{old}, []model.LinkDescriptor{new_}, neverExists)
	if err != nil {
		t.Fatalf("solveLinkList: %v", err)
	}
	if !changed {
		t.Fatalf("expected a change")
	}
	ops := log.Operations()
	if len(ops) != 1 || ops[0].Kind != difflog.OpUpdateLinkData {
		t.Fatalf("expected one update_t, got %+v", ops)
	}
}

func TestSolveLinkListMovedTargetEmitsUpdateL(t *testing.T) {
	log := difflog.New()
	old := model.LinkDescriptor{Path: "/a", Target: ptr("/old"), Owner: "u:u"}
	new_ := model.LinkDescriptor{Path: "/a", Target: ptr("/new"), Owner: "u:u"}
	changed, err := solveLinkList(log, "work", []model.LinkDescriptor{old}, []model.LinkDescriptor{new_}, neverExists)
	if err != nil {
		t.Fatalf("solveLinkList: %v", err)
	}
	if !changed {
		t.Fatalf("expected a change")
	}
	ops := log.Operations()
	if len(ops) != 1 || ops[0].Kind != difflog.OpUpdateLink {
		t.Fatalf("expected one update_l, got %+v", ops)
	}
}

// Idempotence property: solving the same installed/wanted pair twice
// in a row (simulating a re-run against the post-execution state,
// i.e. installed == wanted the second time) must produce no operations.
func TestSolveLinkListIsIdempotent(t *testing.T) {
	wanted := []model.LinkDescriptor{
		{Path: "/a", Target: ptr("/b"), Owner: "u:u"},
		{Path: "/c", Target: ptr("/d"), Owner: "u:u"},
	}
	log := difflog.New()
	changed, err := solveLinkList(log, "work", wanted, wanted, neverExists)
	if err != nil {
		t.Fatalf("solveLinkList: %v", err)
	}
	if changed || log.Len() != 0 {
		t.Fatalf("expected a no-op re-run, got changed=%v ops=%d", changed, log.Len())
	}
}
