package solver

import (
	"github.com/udot/udot/internal/difflog"
	"github.com/udot/udot/internal/state"
	"github.com/udot/udot/internal/ulog"
)

// RemoveProfileDiffSolver emits the unconditional removal of a named
// set of profiles: every one of their links, then the profile entry
// itself.
type RemoveProfileDiffSolver struct {
	Store *state.Store
}

// Solve returns a fresh log removing every profile named.
func (s RemoveProfileDiffSolver) Solve(names []string) (*difflog.DiffLog, error) {
	log := difflog.New()
	if err := s.solveInto(log, names); err != nil {
		return nil, err
	}
	return log, nil
}

func (s RemoveProfileDiffSolver) solveInto(log *difflog.DiffLog, names []string) error {
	for _, name := range names {
		p, ok := s.Store.Profile(name)
		if !ok {
			ulog.Warning("profile %q is not installed, skipping removal", name)
			continue
		}
		for _, link := range p.Links {
			log.RemoveLink(name, link)
		}
		log.RemoveProfile(name, p.BeforeUninstall, p.AfterUninstall)
	}
	return nil
}
