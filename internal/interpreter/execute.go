package interpreter

import (
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/udot/udot/internal/difflog"
	"github.com/udot/udot/internal/model"
	"github.com/udot/udot/internal/state"
	"github.com/udot/udot/internal/uerrors"
)

// ExecuteInterpreter is the one interpreter in a pipeline that
// actually touches the filesystem or the state store. Every other
// interpreter either reports or reorders; this one applies.
//
// Link mutation always follows the same order: remove whatever is
// currently at the path, create the new link, then lchown/chmod it,
// finally chowning the link's target too when Secure is set (a secret
// file whose permissions must be tightened at the source, not just at
// the symlink).
type ExecuteInterpreter struct {
	Store    *state.Store
	Makedirs bool
	DryRun   bool

	links map[string][]model.LinkDescriptor
}

func (e *ExecuteInterpreter) Start() error {
	e.links = map[string][]model.LinkDescriptor{}
	for _, p := range e.Store.Profiles() {
		e.links[p.Name] = append([]model.LinkDescriptor{}, p.Links...)
	}
	return nil
}

func (e *ExecuteInterpreter) Handle(op difflog.Operation) error {
	switch op.Kind {
	case difflog.OpAddProfile:
		if e.DryRun {
			return nil
		}
		return e.Store.AddProfile(model.ProfileState{
			Name: op.Profile, Parent: op.Parent,
		})
	case difflog.OpRemoveProfile:
		if e.DryRun {
			return nil
		}
		delete(e.links, op.Profile)
		return e.Store.RemoveProfile(op.Profile)
	case difflog.OpUpdateProfile:
		if e.DryRun {
			return nil
		}
		return e.Store.TouchProfile(op.Profile)

	case difflog.OpAddLink, difflog.OpTrackLink:
		if !e.DryRun && op.Kind == difflog.OpAddLink {
			if err := e.createLink(op.Link); err != nil {
				return err
			}
		}
		e.links[op.Profile] = append(e.links[op.Profile], op.Link)
		return e.saveLinks(op.Profile)

	case difflog.OpRemoveLink, difflog.OpUntrackLink:
		if !e.DryRun && op.Kind == difflog.OpRemoveLink {
			if err := e.removeLink(op.Link); err != nil {
				return err
			}
		}
		e.links[op.Profile] = removeByPath(e.links[op.Profile], op.Link.Path)
		return e.saveLinks(op.Profile)

	case difflog.OpUpdateLink:
		if !e.DryRun {
			if err := e.removeLink(op.OldLink); err != nil {
				return err
			}
			if err := e.createLink(op.NewLink); err != nil {
				return err
			}
		}
		e.links[op.Profile] = replaceByPath(e.links[op.Profile], op.OldLink.Path, op.NewLink)
		return e.saveLinks(op.Profile)

	case difflog.OpUpdateLinkData:
		if !e.DryRun {
			if err := e.restyle(op.NewLink); err != nil {
				return err
			}
		}
		e.links[op.Profile] = replaceByPath(e.links[op.Profile], op.OldLink.Path, op.NewLink)
		return e.saveLinks(op.Profile)

	case difflog.OpRestoreLink:
		if !e.DryRun {
			if err := e.removeLink(op.OldLink); err != nil {
				return err
			}
			if err := e.createLink(op.NewLink); err != nil {
				return err
			}
		}
		e.links[op.Profile] = replaceByPath(e.links[op.Profile], op.OldLink.Path, op.NewLink)
		return e.saveLinks(op.Profile)

	case difflog.OpUpdateProp:
		if e.DryRun {
			return nil
		}
		return e.Store.SetProperty(op.Profile, op.PropKey, op.PropValue)
	}
	return nil
}

func (e *ExecuteInterpreter) saveLinks(profile string) error {
	if e.DryRun {
		return nil
	}
	return e.Store.SetProfileLinks(profile, e.links[profile])
}

func removeByPath(links []model.LinkDescriptor, path string) []model.LinkDescriptor {
	out := links[:0]
	for _, l := range links {
		if l.Path != path {
			out = append(out, l)
		}
	}
	return out
}

func replaceByPath(links []model.LinkDescriptor, path string, with model.LinkDescriptor) []model.LinkDescriptor {
	for i, l := range links {
		if l.Path == path {
			links[i] = with
			return links
		}
	}
	return append(links, with)
}

func (e *ExecuteInterpreter) createLink(l model.LinkDescriptor) error {
	if l.Hard {
		return uerrors.NewPrecondition("cannot create hard link %s: hard links can only be adopted from an existing filesystem, not created", l.Path)
	}
	if l.Target == nil {
		return uerrors.NewFatal("link %s has no target to symlink to", l.Path)
	}
	if err := e.makedirsKeepOwner(filepath.Dir(l.Path)); err != nil {
		return err
	}
	if err := os.RemoveAll(l.Path); err != nil {
		return uerrors.NewUnknown(err, "removing existing entry at "+l.Path)
	}
	if err := os.Symlink(*l.Target, l.Path); err != nil {
		return uerrors.NewUnknown(err, "creating symlink "+l.Path)
	}
	return e.restyle(l)
}

func (e *ExecuteInterpreter) removeLink(l model.LinkDescriptor) error {
	if err := os.Remove(l.Path); err != nil && !os.IsNotExist(err) {
		return uerrors.NewUnknown(err, "removing link "+l.Path)
	}
	return cleanupEmptyAncestors(filepath.Dir(l.Path))
}

// restyle applies ownership, permission and (when Secure) target
// ownership to an already-created link, without touching the link
// itself again.
func (e *ExecuteInterpreter) restyle(l model.LinkDescriptor) error {
	uid, gid, err := resolveOwner(l.Owner)
	if err != nil {
		return err
	}
	if uid >= 0 {
		if err := os.Lchown(l.Path, uid, gid); err != nil {
			return uerrors.NewUnknown(err, "chowning link "+l.Path)
		}
	}
	if l.Permission != nil && !l.Hard {
		if err := os.Chmod(l.Path, os.FileMode(*l.Permission)); err != nil {
			return uerrors.NewUnknown(err, "chmodding link "+l.Path)
		}
	}
	if l.Secure && l.Target != nil {
		if uid >= 0 {
			if err := os.Chown(*l.Target, uid, gid); err != nil {
				return uerrors.NewUnknown(err, "chowning secured target "+*l.Target)
			}
		}
		if l.Permission != nil {
			if err := os.Chmod(*l.Target, os.FileMode(*l.Permission)); err != nil {
				return uerrors.NewUnknown(err, "chmodding secured target "+*l.Target)
			}
		}
	}
	return nil
}

// resolveOwner parses a LinkDescriptor.Owner string, "user:group" (the
// format ownerString in the state-filesystem solver renders stat
// results into), and resolves each half to a numeric id. A bare
// "user" with no ":group" reuses that user's primary group.
func resolveOwner(owner string) (uid, gid int, err error) {
	if owner == "" {
		return -1, -1, nil
	}
	userPart, groupPart, hasGroup := strings.Cut(owner, ":")

	u, lookupErr := user.Lookup(userPart)
	if lookupErr != nil {
		return -1, -1, uerrors.NewPrecondition("unknown owner %q: %v", owner, lookupErr)
	}
	uidN, _ := strconv.Atoi(u.Uid)

	if !hasGroup || groupPart == "" {
		gidN, _ := strconv.Atoi(u.Gid)
		return uidN, gidN, nil
	}
	g, lookupErr := user.LookupGroup(groupPart)
	if lookupErr != nil {
		return -1, -1, uerrors.NewPrecondition("unknown group %q: %v", groupPart, lookupErr)
	}
	gidN, _ := strconv.Atoi(g.Gid)
	return uidN, gidN, nil
}

// makedirsKeepOwner creates any missing ancestor directories of path,
// propagating the owner of the nearest existing ancestor onto every
// directory it creates — so a symlink created under a freshly-made
// ~/.config/foo/ doesn't end up root-owned when udot is running
// elevated.
func (e *ExecuteInterpreter) makedirsKeepOwner(dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	if !e.Makedirs {
		return uerrors.NewPrecondition("directory %s does not exist; rerun with --makedirs to create it", dir)
	}
	parent := filepath.Dir(dir)
	if parent != dir {
		if err := e.makedirsKeepOwner(parent); err != nil {
			return err
		}
	}
	info, statErr := os.Stat(parent)
	if err := os.Mkdir(dir, 0o755); err != nil && !os.IsExist(err) {
		return uerrors.NewUnknown(err, "creating directory "+dir)
	}
	if statErr == nil {
		if st, ok := info.Sys().(*syscall.Stat_t); ok {
			_ = os.Chown(dir, int(st.Uid), int(st.Gid))
		}
	}
	return nil
}

// cleanupEmptyAncestors removes dir and walks upward removing any
// ancestor left empty by the removal, stopping at the first
// non-empty directory.
func cleanupEmptyAncestors(dir string) error {
	for {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return nil
		}
		if err := os.Remove(dir); err != nil {
			return nil
		}
		dir = filepath.Dir(dir)
	}
}

func (e *ExecuteInterpreter) Finish() error { return nil }
