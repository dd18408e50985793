package interpreter

import (
	"github.com/udot/udot/internal/difflog"
	"github.com/udot/udot/internal/uerrors"
)

// CheckDiffsolverResult is a sanity check on a solver's own output: it
// verifies every operation references a profile consistent with
// whatever operations the log has already produced for that name (you
// can't remove a profile the log never added or that wasn't already
// installed). A solver that violates this has a bug, so by default
// this raises a FatalError; ErrKind lets a caller downgrade that for
// contexts where the inconsistency is expected (e.g. a partial replay).
type CheckDiffsolverResult struct {
	Installed map[string]bool
	ErrKind   func(format string, args ...any) error // defaults to uerrors.NewFatal

	known map[string]bool
}

func (c *CheckDiffsolverResult) Start() error {
	c.known = map[string]bool{}
	for name := range c.Installed {
		c.known[name] = true
	}
	if c.ErrKind == nil {
		c.ErrKind = uerrors.NewFatal
	}
	return nil
}

func (c *CheckDiffsolverResult) Handle(op difflog.Operation) error {
	switch op.Kind {
	case difflog.OpAddProfile:
		if c.known[op.Profile] {
			return c.ErrKind("diff log adds already-known profile %q", op.Profile)
		}
		c.known[op.Profile] = true
	case difflog.OpRemoveProfile:
		if !c.known[op.Profile] {
			return c.ErrKind("diff log removes unknown profile %q", op.Profile)
		}
		delete(c.known, op.Profile)
	case difflog.OpUpdateProfile, difflog.OpAddLink, difflog.OpRemoveLink, difflog.OpUpdateLink,
		difflog.OpUpdateLinkData, difflog.OpTrackLink, difflog.OpUntrackLink, difflog.OpRestoreLink,
		difflog.OpUpdateProp:
		if !c.known[op.Profile] {
			return c.ErrKind("diff log operates on unknown profile %q", op.Profile)
		}
	}
	return nil
}

func (c *CheckDiffsolverResult) Finish() error { return nil }
