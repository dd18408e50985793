package solver

import (
	"github.com/udot/udot/internal/difflog"
	"github.com/udot/udot/internal/state"
)

// UninstallDiffSolver removes a set of requested profiles and every
// subprofile beneath them, recursively — except subprofiles named in
// Exclude, which are detached from their parent (their "parent"
// property is cleared) rather than removed.
type UninstallDiffSolver struct {
	Store   *state.Store
	Exclude map[string]bool
}

// Solve returns the log that uninstalls names (and their subtrees).
func (s UninstallDiffSolver) Solve(names []string) (*difflog.DiffLog, error) {
	log := difflog.New()
	for _, name := range names {
		if err := s.removeProfile(log, name); err != nil {
			return nil, err
		}
	}
	return log, nil
}

func (s UninstallDiffSolver) removeProfile(log *difflog.DiffLog, name string) error {
	if s.Exclude[name] {
		log.UpdateProperty(name, "parent", nil)
		return nil
	}

	for _, sub := range s.subprofilesOf(name) {
		if err := s.removeProfile(log, sub); err != nil {
			return err
		}
	}

	remover := RemoveProfileDiffSolver{Store: s.Store}
	return remover.solveInto(log, []string{name})
}

func (s UninstallDiffSolver) subprofilesOf(name string) []string {
	var out []string
	for _, p := range s.Store.Profiles() {
		if p.Parent != nil && *p.Parent == name {
			out = append(out, p.Name)
		}
	}
	return out
}
