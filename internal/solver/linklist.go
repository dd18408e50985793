// Package solver implements the four Difference Solvers: each knows
// how to compare some pair of "what's installed" / "what's wanted"
// and emit a DiffLog describing the gap between them.
package solver

import (
	"github.com/udot/udot/internal/difflog"
	"github.com/udot/udot/internal/model"
	"github.com/udot/udot/internal/uerrors"
)

// solveLinkList is the core reconciliation step shared by
// UpdateDiffSolver and StateDiffSolver: given the links a profile has
// installed and the links it wants, emit exactly the operations that
// turn one into the other, then report whether anything changed.
//
// It runs in four passes:
//  1. drop every pair that's already byte-for-byte Equal (no-op)
//  2. any remaining installed link with no similar counterpart in
//     wanted is gone: emit remove_l
//  3. any remaining wanted link similar to a remaining installed link
//     is a move: emit update_t if only metadata changed, else update_l
//  4. whatever's left in wanted is new: emit track_l if it already
//     exists on disk (taking ownership without touching it), else add_l
//
// Both lists must be empty afterward; if they aren't, something
// claimed to be similar to two different counterparts, which is a
// solver bug, not a user-facing error.
func solveLinkList(log *difflog.DiffLog, profile string, installed, wanted []model.LinkDescriptor, exists func(model.LinkDescriptor) bool) (changed bool, err error) {
	inst := append([]model.LinkDescriptor(nil), installed...)
	want := append([]model.LinkDescriptor(nil), wanted...)

	// Pass 1: equal pairs are no-ops.
	equalCount := 0
	for i := 0; i < len(inst); {
		matched := -1
		for j, w := range want {
			if inst[i].Equal(w) {
				matched = j
				break
			}
		}
		if matched >= 0 {
			inst = removeLinkAt(inst, i)
			want = removeLinkAt(want, matched)
			equalCount++
			continue
		}
		i++
	}

	// Pass 2: installed links with nothing similar left in wanted are gone.
	for i := 0; i < len(inst); {
		if !anySimilar(inst[i], want) {
			log.RemoveLink(profile, inst[i])
			inst = removeLinkAt(inst, i)
			changed = true
			continue
		}
		i++
	}

	// Pass 3: wanted links similar to a remaining installed link moved or changed.
	for i := 0; i < len(want); {
		j := findSimilar(want[i], inst)
		if j < 0 {
			i++
			continue
		}
		old, new := inst[j], want[i]
		if sameTarget(old, new) {
			log.UpdateLinkData(profile, old, new)
		} else {
			log.UpdateLink(profile, old, new)
		}
		inst = removeLinkAt(inst, j)
		want = removeLinkAt(want, i)
		changed = true
	}

	// Pass 4: whatever's left in wanted is new.
	for _, w := range want {
		if exists != nil && exists(w) {
			log.TrackLink(profile, w)
		} else {
			log.AddLink(profile, w)
		}
		changed = true
	}

	if len(inst) != 0 || len(want) != 0 {
		return false, uerrors.NewFatal("solveLinkList for profile %q left %d installed and %d wanted links unresolved", profile, len(inst), len(want))
	}
	return changed, nil
}

func anySimilar(l model.LinkDescriptor, against []model.LinkDescriptor) bool {
	for _, a := range against {
		if l.IsSimilar(a) {
			return true
		}
	}
	return false
}

func findSimilar(l model.LinkDescriptor, against []model.LinkDescriptor) int {
	for i, a := range against {
		if l.IsSimilar(a) {
			return i
		}
	}
	return -1
}

// sameTarget reports whether two similar links point at the same
// place (same target, or same inode for hard links) — meaning any
// difference between them is metadata-only (owner/permission/secure).
func sameTarget(a, b model.LinkDescriptor) bool {
	if a.Hard || b.Hard {
		if a.TargetInode == nil || b.TargetInode == nil {
			return false
		}
		return *a.TargetInode == *b.TargetInode
	}
	if a.Target == nil || b.Target == nil {
		return false
	}
	return *a.Target == *b.Target
}

func removeLinkAt(links []model.LinkDescriptor, i int) []model.LinkDescriptor {
	return append(links[:i:i], links[i+1:]...)
}
