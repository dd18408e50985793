package solver

import (
	"os"

	"github.com/udot/udot/internal/difflog"
	"github.com/udot/udot/internal/model"
	"github.com/udot/udot/internal/state"
)

// UpdateDiffSolver computes what changes (install, update, subprofile
// removal, event-hash changes) are needed to bring the state store in
// line with a freshly evaluated profile tree.
type UpdateDiffSolver struct {
	Store   *state.Store
	Exclude map[string]bool
}

// Solve walks every root profile in results and returns the log of
// operations needed to reconcile them against s.Store.
func (s UpdateDiffSolver) Solve(results []*model.ProfileResult) (*difflog.DiffLog, error) {
	log := difflog.New()

	allNames := map[string]bool{}
	for _, r := range results {
		collectNames(r, allNames)
	}

	for _, r := range results {
		if err := s.solveProfile(log, r, allNames); err != nil {
			return nil, err
		}
	}
	return log, nil
}

func collectNames(r *model.ProfileResult, out map[string]bool) {
	out[r.Name] = true
	for _, sub := range r.Subprofiles {
		collectNames(sub, out)
	}
}

func (s UpdateDiffSolver) solveProfile(log *difflog.DiffLog, r *model.ProfileResult, allNames map[string]bool) error {
	if s.Exclude[r.Name] {
		return nil
	}

	existing, found := s.Store.Profile(r.Name)

	if found {
		changed, err := solveLinkList(log, r.Name, existing.Links, r.Links, existsOnDisk)
		if err != nil {
			return err
		}

		parentChanged := !samePointerValue(existing.Parent, r.Parent)
		if parentChanged {
			log.UpdateProperty(r.Name, "parent", r.Parent)
		}
		if changed && !parentChanged {
			log.UpdateProfile(r.Name, r.BeforeUpdate, r.AfterUpdate)
		}
		if r.EventsChanged(*existing) {
			emitEventProps(log, r, *existing)
		}
	} else {
		log.AddProfile(r.Name, r.Parent, r.BeforeInstall, r.AfterInstall)
		if _, err := solveLinkList(log, r.Name, nil, r.Links, existsOnDisk); err != nil {
			return err
		}
		emitEventProps(log, r, model.ProfileState{})
	}

	if err := s.removeOrphanedSubprofiles(log, r, allNames); err != nil {
		return err
	}

	for _, sub := range r.Subprofiles {
		if err := s.solveProfile(log, sub, allNames); err != nil {
			return err
		}
	}
	return nil
}

// removeOrphanedSubprofiles finds profiles installed with parent == r.Name
// that are no longer present anywhere in the tree being installed, and
// removes them recursively: each orphan's own descendants are collected
// before it, and all of them are removed via RemoveProfileDiffSolver.
func (s UpdateDiffSolver) removeOrphanedSubprofiles(log *difflog.DiffLog, r *model.ProfileResult, allNames map[string]bool) error {
	var orphans []string
	var collect func(parent string)
	collect = func(parent string) {
		for _, p := range s.Store.Profiles() {
			if p.Parent != nil && *p.Parent == parent && !allNames[p.Name] {
				collect(p.Name)
				orphans = append(orphans, p.Name)
			}
		}
	}
	collect(r.Name)
	if len(orphans) == 0 {
		return nil
	}
	remover := RemoveProfileDiffSolver{Store: s.Store}
	return remover.solveInto(log, orphans)
}

func samePointerValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func emitEventProps(log *difflog.DiffLog, r *model.ProfileResult, prior model.ProfileState) {
	type prop struct {
		key   string
		value string
		prior string
	}
	props := []prop{
		{"beforeInstall", r.BeforeInstall, prior.BeforeInstall},
		{"afterInstall", r.AfterInstall, prior.AfterInstall},
		{"beforeUpdate", r.BeforeUpdate, prior.BeforeUpdate},
		{"afterUpdate", r.AfterUpdate, prior.AfterUpdate},
		{"beforeUninstall", r.BeforeUninstall, prior.BeforeUninstall},
		{"afterUninstall", r.AfterUninstall, prior.AfterUninstall},
	}
	for _, p := range props {
		if p.value != p.prior {
			v := p.value
			log.UpdateProperty(r.Name, p.key, &v)
		}
	}
}

func existsOnDisk(l model.LinkDescriptor) bool {
	_, err := os.Lstat(l.Path)
	return err == nil
}
