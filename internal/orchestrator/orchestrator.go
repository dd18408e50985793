// Package orchestrator drives one full reconciliation run: computing a
// DiffLog from a Difference Solver, validating it, optionally
// reordering and privilege-checking it, executing it, and bracketing
// the whole thing with before/after event scripts and a state
// snapshot. It is the Go equivalent of uberdot's top-level "generate,
// interprete, execute" driver function, restructured as a single
// method per entry point (update/remove/timewarp/sync) the way the
// teacher's Pipeline.Apply drives one method per host-apply run.
package orchestrator

import (
	"context"
	"os"

	"github.com/udot/udot/internal/difflog"
	eventexec "github.com/udot/udot/internal/event"
	"github.com/udot/udot/internal/interpreter"
	"github.com/udot/udot/internal/model"
	"github.com/udot/udot/internal/rootop"
	"github.com/udot/udot/internal/solver"
	"github.com/udot/udot/internal/state"
	"github.com/udot/udot/internal/uerrors"
	"github.com/udot/udot/internal/ulog"
)

// Options carries every flag that changes how a run behaves, mirroring
// the CLI flags named in this repository's external interface.
type Options struct {
	DryRun      bool
	Force       bool
	Superforce  bool
	Makedirs    bool
	UseDUI      bool
	SkipRoot    bool
	SkipBefore  bool
	SkipAfter   bool
	SkipEvents  bool // implies both SkipBefore and SkipAfter
	AskRoot     bool // if a run needs root and this is false, the run fails with a precondition error instead of asking
	Exclude     map[string]bool
	Parent      *string // --parent override, forwarded to CheckProfiles

	EventConfig eventexec.Config

	// Confirm / ResolveFix feed the interactive checks and the sync
	// solver; nil means "never ask", falling back to each check's
	// non-interactive default.
	Confirm    func(message string) bool
	ResolveFix func(profile, message string, saved model.LinkDescriptor) solver.FixAction
}

// Result reports what a run did, for the CLI layer to render and to
// decide its process exit code from.
type Result struct {
	Log        *difflog.DiffLog
	ExitCode   int  // set only on a root re-exec hand-off; 0 otherwise
	ReExecuted bool // true if this run handed off to a sudo child and Log/Applied are meaningless
	Applied    bool
}

// Orchestrator ties a Store to the search paths and session
// configuration a run needs.
type Orchestrator struct {
	Store       *state.Store
	SessionDir  string
	SearchPaths []string // for blacklist files

	// ReExec lets tests substitute rootop.ReExec with a fake. Defaults
	// to rootop.ReExec.
	ReExec func(rootop.Envelope) (int, error)
}

func (o *Orchestrator) reExec() func(rootop.Envelope) (int, error) {
	if o.ReExec != nil {
		return o.ReExec
	}
	return rootop.ReExec
}

// RunUpdate reconciles results (a freshly evaluated profile tree)
// against the store.
func (o *Orchestrator) RunUpdate(ctx context.Context, opts Options, results []*model.ProfileResult) (*Result, error) {
	s := solver.UpdateDiffSolver{Store: o.Store, Exclude: opts.Exclude}
	log, err := s.Solve(results)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, "update", opts, log)
}

// RunRemove uninstalls the named profiles (and, recursively, their
// subprofiles not in opts.Exclude).
func (o *Orchestrator) RunRemove(ctx context.Context, opts Options, names []string) (*Result, error) {
	s := solver.UninstallDiffSolver{Store: o.Store, Exclude: opts.Exclude}
	log, err := s.Solve(names)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, "remove", opts, log)
}

// RunTimewarp reconciles the store forward or backward to match an
// earlier (or later) snapshot.
func (o *Orchestrator) RunTimewarp(ctx context.Context, opts Options, target *state.Store) (*Result, error) {
	s := solver.StateDiffSolver{Old: o.Store, New: target, Exclude: opts.Exclude}
	log, err := s.Solve()
	if err != nil {
		return nil, err
	}
	return o.run(ctx, "timewarp", opts, log)
}

// RunSync reconciles drift between the store and the live filesystem,
// prompting (via resolveFix) for how to handle each drifted link.
func (o *Orchestrator) RunSync(ctx context.Context, opts Options) (*Result, error) {
	s := solver.StateFilesystemDiffSolver{Store: o.Store, Exclude: opts.Exclude, ResolveFix: opts.ResolveFix}
	log, err := s.Solve()
	if err != nil {
		return nil, err
	}
	return o.run(ctx, "sync", opts, log)
}

// installedByName/installedParents give the two shapes the validating
// checks need: CheckDiffsolverResult only cares whether a name is
// known, CheckProfiles needs each known profile's parent to detect a
// reinstall-under-a-different-root.
func (o *Orchestrator) installedByName() map[string]bool {
	out := map[string]bool{}
	for _, p := range o.Store.Profiles() {
		out[p.Name] = true
	}
	return out
}

func (o *Orchestrator) installedParents() map[string]*string {
	out := map[string]*string{}
	for _, p := range o.Store.Profiles() {
		out[p.Name] = p.Parent
	}
	return out
}

// run is the nine-step sequence shared by every entry point:
//  1. (already done by the caller) solve
//  2. validate (CheckDiffsolverResult, CheckProfiles, CheckLinks,
//     CheckLinkBlacklist, CheckLinkDirs, CheckFileOverwrite)
//  3. optional DUI reorder
//  4. root detection: SkipRoot filters, or GainRoot hands off to sudo
//  5. before-events
//  6. re-validate (CheckFileOverwrite again: a before-script may have
//     changed the filesystem under the log's feet)
//  7. execute + print
//  8. after-events
//  9. snapshot, if anything changed and the run wasn't a dry run
func (o *Orchestrator) run(ctx context.Context, mode string, opts Options, log *difflog.DiffLog) (*Result, error) {
	if err := o.validate(log, opts); err != nil {
		return nil, err
	}

	if opts.UseDUI {
		dui := &interpreter.DUI{Log: log}
		if err := log.Run(dui); err != nil {
			return nil, err
		}
	}

	if opts.SkipRoot {
		skip := &interpreter.SkipRoot{Log: log}
		if err := log.Run(skip); err != nil {
			return nil, err
		}
	} else {
		gain := &interpreter.GainRoot{AskRoot: opts.AskRoot}
		if err := log.Run(gain); err != nil {
			return nil, err
		}
		if gain.Needed && opts.AskRoot {
			code, err := o.handOffToRoot(mode, opts, log)
			if err != nil {
				return nil, err
			}
			return &Result{ReExecuted: true, ExitCode: code}, nil
		}
		if gain.Needed && !opts.AskRoot {
			return nil, uerrors.NewPrecondition("this run needs root privileges; pass --skiproot to proceed without them or allow re-exec under sudo")
		}
	}

	return o.runElevated(opts, log)
}

// ResumeElevated continues a run that already handed off to a root
// child: ops is exactly the operation list the parent process
// serialized into the envelope. Validation, DUI reordering, and root
// detection already happened in the parent, so this only runs the
// steps that need the elevated privileges: before-events onward.
func (o *Orchestrator) ResumeElevated(ctx context.Context, opts Options, ops []difflog.Operation) (*Result, error) {
	log := difflog.New()
	log.Replace(ops)
	return o.runElevated(opts, log)
}

// runElevated is steps 5-9 of the sequence described on run: before-
// events, re-validate, execute+print, after-events, snapshot. Split
// out so a re-exec'd root child (ResumeElevated) runs exactly this
// tail instead of repeating validate/DUI/root-detection a second time.
func (o *Orchestrator) runElevated(opts Options, log *difflog.DiffLog) (*Result, error) {
	skipEvents := opts.SkipEvents
	if !skipEvents && !opts.SkipBefore {
		before := &interpreter.EventInterpreter{Config: opts.EventConfig, DryRun: opts.DryRun, Before: true}
		if err := log.Run(before); err != nil {
			return nil, err
		}
	}

	recheck := &interpreter.CheckFileOverwrite{Force: opts.Force}
	if err := log.Run(recheck); err != nil {
		return nil, err
	}

	printer := &interpreter.Printer{DryRun: opts.DryRun}
	summary := &interpreter.SummaryPrinter{}
	execute := &interpreter.ExecuteInterpreter{Store: o.Store, Makedirs: opts.Makedirs, DryRun: opts.DryRun}
	if err := log.Run(printer, summary, execute); err != nil {
		return nil, err
	}

	if !skipEvents && !opts.SkipAfter {
		after := &interpreter.EventInterpreter{Config: opts.EventConfig, DryRun: opts.DryRun, Before: false}
		if err := log.Run(after); err != nil {
			return nil, err
		}
	}

	if !opts.DryRun && log.Len() > 0 {
		if _, err := o.Store.CreateSnapshot(); err != nil {
			return nil, err
		}
		ulog.Success("run complete, %d operation(s) applied", log.Len())
	}

	return &Result{Log: log, Applied: !opts.DryRun}, nil
}

func (o *Orchestrator) validate(log *difflog.DiffLog, opts Options) error {
	result := &interpreter.CheckDiffsolverResult{Installed: o.installedByName()}
	profiles := &interpreter.CheckProfiles{Installed: o.installedParents(), Parent: opts.Parent}
	links := &interpreter.CheckLinks{}
	dirs := &interpreter.CheckLinkDirs{Makedirs: opts.Makedirs}
	overwrite := &interpreter.CheckFileOverwrite{Force: opts.Force}

	patterns, err := interpreter.LoadBlacklist(o.SearchPaths)
	if err != nil {
		return err
	}
	blacklist := &interpreter.CheckLinkBlacklist{
		Patterns:   patterns,
		Superforce: opts.Superforce,
		Confirm:    opts.Confirm,
	}

	return log.Run(result, profiles, links, dirs, overwrite, blacklist)
}

func (o *Orchestrator) handOffToRoot(mode string, opts Options, log *difflog.DiffLog) (int, error) {
	env := rootop.Envelope{
		SessionDir:  o.SessionDir,
		Mode:        mode,
		DryRun:      opts.DryRun,
		Operations:  log.Operations(),
		InvokingUID: os.Getuid(),
		InvokingGID: os.Getgid(),
	}
	return o.reExec()(env)
}
