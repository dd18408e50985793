package solver

import (
	"os"
	"path/filepath"
	"syscall"

	"github.com/udot/udot/internal/difflog"
	"github.com/udot/udot/internal/model"
	"github.com/udot/udot/internal/state"
	"github.com/udot/udot/internal/uerrors"
)

// FixAction is the user's decision for one drifted link, returned by a
// ResolveFix callback.
type FixAction int

const (
	FixSkip FixAction = iota
	FixRestore
	FixTakeOver
	FixUntrack
)

// StateFilesystemDiffSolver compares the state store against the live
// filesystem and, for every link that has drifted, asks ResolveFix
// what to do about it. With ResolveFix nil it runs in detection-only
// mode: every drift is reported via an info operation and nothing else.
type StateFilesystemDiffSolver struct {
	Store      *state.Store
	Exclude    map[string]bool
	ResolveFix func(profile, message string, saved model.LinkDescriptor) FixAction
}

// Solve walks every installed, non-excluded profile and emits fixes
// (or info messages) for every link whose on-disk state no longer
// matches what the store recorded.
func (s StateFilesystemDiffSolver) Solve() (*difflog.DiffLog, error) {
	log := difflog.New()
	for _, p := range s.Store.Profiles() {
		if s.excluded(p.Name) {
			continue
		}
		for _, link := range p.Links {
			if err := s.checkLink(log, p.Name, link); err != nil {
				return nil, err
			}
		}
	}
	return log, nil
}

func (s StateFilesystemDiffSolver) excluded(name string) bool {
	if s.Exclude[name] {
		return true
	}
	p, ok := s.Store.Profile(name)
	for ok && p.Parent != nil {
		if s.Exclude[*p.Parent] {
			return true
		}
		p, ok = s.Store.Profile(*p.Parent)
	}
	return false
}

func (s StateFilesystemDiffSolver) checkLink(log *difflog.DiffLog, profile string, saved model.LinkDescriptor) error {
	actual, err := readLink(saved.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return s.checkRenamed(log, profile, saved)
		}
		return err
	}
	if saved.Equal(*actual) {
		return nil
	}

	msg := describeDrift(saved, *actual)
	return s.fix(log, profile, msg, saved, *actual)
}

// checkRenamed runs when a link's path is gone: before concluding it
// was removed, it scans the containing directory for another file
// pointing at the same target (or sharing the same target inode, for
// a hard link), the way uberdot's __generate_profile_fix does before
// reporting a link missing outright.
func (s StateFilesystemDiffSolver) checkRenamed(log *difflog.DiffLog, profile string, saved model.LinkDescriptor) error {
	dir := filepath.Dir(saved.Path)
	entries, err := os.ReadDir(dir)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			candidatePath := filepath.Join(dir, entry.Name())
			candidate, err := readLink(candidatePath)
			if err != nil || candidate == nil || !sameTarget(saved, *candidate) {
				continue
			}
			msg := "was renamed to " + candidatePath
			if saved.Hard != candidate.Hard {
				msg = changedTypeMsg(candidatePath, saved)
			}
			return s.fix(log, profile, msg, saved, *candidate)
		}
	}
	return s.fix(log, profile, "was removed", saved, model.LinkDescriptor{Path: saved.Path})
}

func changedTypeMsg(file string, saved model.LinkDescriptor) string {
	from, to := "symbolic", "hard"
	if saved.Hard {
		from, to = "hard", "symbolic"
	}
	return from + " link was replaced by a " + to + " link at " + file
}

func (s StateFilesystemDiffSolver) fix(log *difflog.DiffLog, profile, message string, saved, actual model.LinkDescriptor) error {
	if s.ResolveFix == nil {
		log.Info(profile, "drift at "+saved.Path+": "+message)
		return nil
	}
	switch s.ResolveFix(profile, message, saved) {
	case FixRestore:
		log.RestoreLink(profile, saved, actual)
	case FixTakeOver:
		log.UpdateLinkData(profile, saved, actual)
	case FixUntrack:
		log.UntrackLink(profile, saved)
	case FixSkip:
		// no-op
	}
	return nil
}

func describeDrift(saved, actual model.LinkDescriptor) string {
	switch {
	case saved.Hard != actual.Hard:
		return "changed between a hard link and a symlink"
	case saved.Target != nil && actual.Target != nil && *saved.Target != *actual.Target:
		return "now points at a different target"
	case saved.Owner != actual.Owner:
		return "owner changed"
	case !permEq(saved.Permission, actual.Permission):
		return "permission changed"
	case saved.Secure != actual.Secure:
		return "secure flag changed"
	default:
		return "moved or was recreated"
	}
}

func permEq(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// readLink stats path and reconstructs the LinkDescriptor it currently
// represents on disk, the Go equivalent of uberdot's LinkData.from_file.
func readLink(path string) (*model.LinkDescriptor, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, uerrors.NewFatal("%s: platform does not expose a *syscall.Stat_t for os.FileInfo.Sys()", path)
	}
	perm := int(info.Mode().Perm())
	owner := ownerString(stat)

	ld := &model.LinkDescriptor{
		Path:       path,
		Owner:      owner,
		Permission: &perm,
	}

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return nil, err
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(path), target)
		}
		ld.Target = &target
	} else {
		inode := stat.Ino
		ld.Hard = true
		ld.TargetInode = &inode
	}
	return ld, nil
}
