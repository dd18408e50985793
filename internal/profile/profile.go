// Package profile is the seam where a real profile-authoring surface
// (a DSL for declaring links, merges, and event scripts) would plug
// in. That DSL is out of scope here — this package only defines the
// Builder interface an authoring surface must satisfy to feed a
// Difference Solver, plus a Static builder simple enough to construct
// a *model.ProfileResult by hand in tests and a minimal CLI.
package profile

import "github.com/udot/udot/internal/model"

// Builder produces the evaluated shape of one profile tree. A full
// authoring surface would walk a user's profile script and call back
// into link()/merge()/subprof() as it goes; Builder is the minimal
// contract the rest of the engine needs from whatever does that.
type Builder interface {
	Build() (*model.ProfileResult, error)
}

// Static is a Builder that just returns a pre-built ProfileResult,
// useful for tests and for a CLI invocation that passes profile data
// already assembled (e.g. from a single YAML/JSON profile file) rather
// than through a scripting DSL.
type Static struct {
	Result *model.ProfileResult
}

func (s Static) Build() (*model.ProfileResult, error) {
	return s.Result, nil
}
