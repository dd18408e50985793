package solver

import (
	"github.com/udot/udot/internal/difflog"
	"github.com/udot/udot/internal/model"
	"github.com/udot/udot/internal/state"
)

// StateDiffSolver computes the log that transforms one whole state
// document into another — the timewarp operation. Profiles present in
// Old but not New are removed (recursively); profiles present in both
// are reconciled with solveLinkList; profiles present only in New are
// added fresh.
type StateDiffSolver struct {
	Old     *state.Store
	New     *state.Store
	Exclude map[string]bool
}

func (s StateDiffSolver) Solve() (*difflog.DiffLog, error) {
	log := difflog.New()

	oldNames := map[string]bool{}
	for _, p := range s.Old.Profiles() {
		oldNames[p.Name] = true
	}
	newNames := map[string]bool{}
	for _, p := range s.New.Profiles() {
		newNames[p.Name] = true
	}

	var toRemove []string
	for name := range oldNames {
		if !newNames[name] && !s.Exclude[name] {
			toRemove = append(toRemove, name)
		}
	}
	if len(toRemove) > 0 {
		remover := RemoveProfileDiffSolver{Store: s.Old}
		if err := remover.solveInto(log, toRemove); err != nil {
			return nil, err
		}
	}

	for name := range newNames {
		if s.Exclude[name] {
			continue
		}
		target, _ := s.New.Profile(name)
		if oldNames[name] {
			if err := s.updateProfile(log, name, target); err != nil {
				return nil, err
			}
		} else {
			s.addProfile(log, name, target)
		}
	}
	return log, nil
}

func (s StateDiffSolver) updateProfile(log *difflog.DiffLog, name string, target *model.ProfileState) error {
	installed, _ := s.Old.Profile(name)

	changed, err := solveLinkList(log, name, installed.Links, target.Links, existsOnDisk)
	if err != nil {
		return err
	}

	if !samePointerValue(installed.Parent, target.Parent) {
		log.UpdateProperty(name, "parent", target.Parent)
	}
	if changed {
		log.UpdateProfile(name, target.BeforeUpdate, target.AfterUpdate)
	}
	emitEventPropsFromState(log, name, *target, *installed)
	return nil
}

func (s StateDiffSolver) addProfile(log *difflog.DiffLog, name string, target *model.ProfileState) {
	log.AddProfile(name, target.Parent, target.BeforeInstall, target.AfterInstall)
	for _, link := range target.Links {
		if existsOnDisk(link) {
			log.TrackLink(name, link)
		} else {
			log.AddLink(name, link)
		}
	}
	emitEventPropsFromState(log, name, *target, model.ProfileState{})
}

func emitEventPropsFromState(log *difflog.DiffLog, name string, target, prior model.ProfileState) {
	type prop struct{ key, value, old string }
	for _, p := range []prop{
		{"beforeInstall", target.BeforeInstall, prior.BeforeInstall},
		{"afterInstall", target.AfterInstall, prior.AfterInstall},
		{"beforeUpdate", target.BeforeUpdate, prior.BeforeUpdate},
		{"afterUpdate", target.AfterUpdate, prior.AfterUpdate},
		{"beforeUninstall", target.BeforeUninstall, prior.BeforeUninstall},
		{"afterUninstall", target.AfterUninstall, prior.AfterUninstall},
	} {
		if p.value != p.old {
			v := p.value
			log.UpdateProperty(name, p.key, &v)
		}
	}
}
