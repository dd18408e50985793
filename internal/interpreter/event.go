package interpreter

import (
	"context"

	"github.com/udot/udot/internal/difflog"
	eventexec "github.com/udot/udot/internal/event"
	"github.com/udot/udot/internal/uerrors"
	"github.com/udot/udot/internal/ulog"
)

// EventInterpreter runs the before/after scripts a solver attached to
// an add_p/update_p/remove_p operation (Operation.BeforeEvent/
// AfterEvent), immediately bracketing that operation's own effect. It
// performs no filesystem mutation itself — that is ExecuteInterpreter's
// job — so it must run either just before or just after Execute in the
// same pipeline pass, never instead of it.
type EventInterpreter struct {
	Config eventexec.Config
	DryRun bool

	// Before selects whether this instance runs BeforeEvent (true) or
	// AfterEvent (false) scripts. The orchestrator runs two
	// EventInterpreter passes, one of each, around Execute.
	Before bool

	failures int
}

func (e *EventInterpreter) Start() error {
	e.failures = 0
	return nil
}

func (e *EventInterpreter) Handle(op difflog.Operation) error {
	script := op.AfterEvent
	kind := "after"
	if e.Before {
		script = op.BeforeEvent
		kind = "before"
	}
	if script == "" || e.DryRun {
		return nil
	}

	ulog.Info("running %s-script for %s", kind, op.Profile)
	err := eventexec.Run(context.Background(), e.Config, script, func(l eventexec.Line) {
		if l.IsError {
			ulog.Warning("%s", l.Text)
		} else {
			ulog.Info("%s", l.Text)
		}
	})
	if err != nil {
		e.failures++
		ulog.Error("%s-script for %s failed: %v", kind, op.Profile, err)
	}
	return nil
}

func (e *EventInterpreter) Finish() error {
	if e.failures > 0 {
		return uerrors.NewSystemAbortion("%d event script(s) failed", e.failures)
	}
	return nil
}
