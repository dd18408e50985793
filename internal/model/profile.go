package model

import "time"

// ProfileState is a profile's persisted shape inside the state store:
// its install bookkeeping and the links it currently owns.
type ProfileState struct {
	Name      string           `json:"name"`
	Parent    *string          `json:"parent,omitempty"`
	Installed time.Time        `json:"installed"`
	Updated   time.Time        `json:"updated"`
	Links     []LinkDescriptor `json:"links"`

	BeforeInstall   string `json:"beforeInstall,omitempty"`
	AfterInstall    string `json:"afterInstall,omitempty"`
	BeforeUpdate    string `json:"beforeUpdate,omitempty"`
	AfterUpdate     string `json:"afterUpdate,omitempty"`
	BeforeUninstall string `json:"beforeUninstall,omitempty"`
	AfterUninstall  string `json:"afterUninstall,omitempty"`
}

// EventScript returns the script path recorded for the named event
// kind ("beforeInstall", "afterUpdate", ...), or "" if none is set.
func (p ProfileState) EventScript(kind string) string {
	switch kind {
	case "beforeInstall":
		return p.BeforeInstall
	case "afterInstall":
		return p.AfterInstall
	case "beforeUpdate":
		return p.BeforeUpdate
	case "afterUpdate":
		return p.AfterUpdate
	case "beforeUninstall":
		return p.BeforeUninstall
	case "afterUninstall":
		return p.AfterUninstall
	default:
		return ""
	}
}

// ProfileResult is the shape a profile produces once evaluated by the
// (out of scope) authoring surface: the tree of links and subprofiles
// a solver reconciles against the state store.
type ProfileResult struct {
	Name        string
	Parent      *string
	Links       []LinkDescriptor
	Subprofiles []*ProfileResult

	BeforeInstall   string
	AfterInstall    string
	BeforeUpdate    string
	AfterUpdate     string
	BeforeUninstall string
	AfterUninstall  string
}

// Flatten returns r and every subprofile beneath it, depth-first.
func (r *ProfileResult) Flatten() []*ProfileResult {
	out := []*ProfileResult{r}
	for _, sub := range r.Subprofiles {
		out = append(out, sub.Flatten()...)
	}
	return out
}

// EventsChanged reports whether any of the six event-script hash
// properties differ between r and prior.
func (r *ProfileResult) EventsChanged(prior ProfileState) bool {
	return r.BeforeInstall != prior.BeforeInstall ||
		r.AfterInstall != prior.AfterInstall ||
		r.BeforeUpdate != prior.BeforeUpdate ||
		r.AfterUpdate != prior.AfterUpdate ||
		r.BeforeUninstall != prior.BeforeUninstall ||
		r.AfterUninstall != prior.AfterUninstall
}
