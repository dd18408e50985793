// Package interpreter implements every Interpreter that runs over a
// DiffLog: printers, the DUI reorder strategy, validation checks, root
// detection and elevation, event dispatch, and the executor that
// actually mutates the filesystem and state store.
package interpreter

import (
	"fmt"

	"github.com/udot/udot/internal/difflog"
	"github.com/udot/udot/internal/ulog"
)

// Printer renders each operation as a human-readable transcript line.
// It never mutates anything and never fails.
type Printer struct {
	DryRun bool
}

func (p *Printer) Start() error { return nil }
func (p *Printer) Finish() error { return nil }

func (p *Printer) Handle(op difflog.Operation) error {
	prefix := ""
	if p.DryRun {
		prefix = "[dry run] "
	}
	switch op.Kind {
	case difflog.OpInfo:
		ulog.Info("%s%s", prefix, op.Message)
	case difflog.OpAddProfile:
		ulog.Success("%sinstalling profile %q", prefix, op.Profile)
	case difflog.OpUpdateProfile:
		ulog.Info("%supdating profile %q", prefix, op.Profile)
	case difflog.OpRemoveProfile:
		ulog.Info("%sremoving profile %q", prefix, op.Profile)
	case difflog.OpAddLink:
		ulog.Success("%s%s: + %s", prefix, op.Profile, op.Link.Path)
	case difflog.OpRemoveLink:
		ulog.Info("%s%s: - %s", prefix, op.Profile, op.Link.Path)
	case difflog.OpUpdateLink:
		ulog.Info("%s%s: ~ %s (%s)", prefix, op.Profile, op.OldLink.Path, describeLinkChange(op))
	case difflog.OpUpdateLinkData:
		ulog.Info("%s%s: ~ %s (metadata changed)", prefix, op.Profile, op.OldLink.Path)
	case difflog.OpTrackLink:
		ulog.Info("%s%s: tracking existing %s", prefix, op.Profile, op.Link.Path)
	case difflog.OpUntrackLink:
		ulog.Info("%s%s: untracking %s", prefix, op.Profile, op.Link.Path)
	case difflog.OpRestoreLink:
		ulog.Info("%s%s: restoring %s", prefix, op.Profile, op.NewLink.Path)
	case difflog.OpUpdateProp:
		ulog.Info("%s%s: property %s changed", prefix, op.Profile, op.PropKey)
	}
	return nil
}

func describeLinkChange(op difflog.Operation) string {
	old, new := op.OldLink, op.NewLink
	switch {
	case old.Path != new.Path:
		return fmt.Sprintf("moved to %s", new.Path)
	case old.Hard != new.Hard:
		return "link type changed"
	case old.Target != nil && new.Target != nil && *old.Target != *new.Target:
		return fmt.Sprintf("now points at %s", *new.Target)
	default:
		return "changed"
	}
}

// SummaryPrinter counts operations per profile and, on Finish, prints
// one line per touched profile plus an "up to date" fallback.
type SummaryPrinter struct {
	counts map[string]map[string]int
}

func (p *SummaryPrinter) Start() error {
	p.counts = map[string]map[string]int{}
	return nil
}

var summaryLabels = map[difflog.OpKind]string{
	difflog.OpAddLink:        "added",
	difflog.OpRemoveLink:     "removed",
	difflog.OpUpdateLink:     "updated",
	difflog.OpUpdateLinkData: "updated",
	difflog.OpTrackLink:      "tracked",
	difflog.OpUntrackLink:    "untracked",
	difflog.OpRestoreLink:    "restored",
	difflog.OpUpdateProp:     "updated properties",
}

func (p *SummaryPrinter) Handle(op difflog.Operation) error {
	label, ok := summaryLabels[op.Kind]
	if !ok {
		return nil
	}
	if p.counts[op.Profile] == nil {
		p.counts[op.Profile] = map[string]int{}
	}
	p.counts[op.Profile][label]++
	return nil
}

func (p *SummaryPrinter) Finish() error {
	if len(p.counts) == 0 {
		ulog.Info("Already up-to-date.")
		return nil
	}
	for profile, counts := range p.counts {
		var parts []string
		for _, label := range []string{"added", "removed", "updated", "tracked", "untracked", "restored", "updated properties"} {
			if n := counts[label]; n > 0 {
				parts = append(parts, fmt.Sprintf("%d %s", n, label))
			}
		}
		if len(parts) == 0 {
			continue
		}
		msg := parts[0]
		for _, extra := range parts[1:] {
			msg += ", " + extra
		}
		ulog.Info("%s: %s", profile, msg)
	}
	return nil
}
