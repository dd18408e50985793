package interpreter

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/udot/udot/internal/difflog"
	"github.com/udot/udot/internal/uerrors"
	"github.com/udot/udot/internal/ulog"
)

// CheckProfiles rejects a log that would install a profile twice,
// or reinstall an existing subprofile under a different root without
// first uninstalling it. Parent is the --parent override the current
// invocation was given, if any (nil when not overridden).
type CheckProfiles struct {
	Installed map[string]*string // name -> parent, for every currently-installed profile
	Parent    *string

	known map[string]*string // name -> parent, including profiles this log will add
}

func (c *CheckProfiles) Start() error {
	c.known = map[string]*string{}
	for name, parent := range c.Installed {
		c.known[name] = parent
	}
	return nil
}

func (c *CheckProfiles) Handle(op difflog.Operation) error {
	switch op.Kind {
	case difflog.OpAddProfile:
		if _, exists := c.Installed[op.Profile]; exists {
			return uerrors.NewIntegrity("profile %q is already installed", op.Profile)
		}
		if _, queued := c.known[op.Profile]; queued {
			return uerrors.NewIntegrity("profile %q is already queued to be added in this run", op.Profile)
		}
		c.known[op.Profile] = op.Parent
	case difflog.OpUpdateProp:
		if op.PropKey != "parent" {
			return nil
		}
		oldParent, wasKnown := c.known[op.Profile]
		if !wasKnown {
			return nil
		}
		if samePtr(oldParent, op.PropValue) {
			return nil
		}
		if op.PropValue == nil || (c.Parent != nil && samePtr(c.Parent, op.PropValue)) {
			c.known[op.Profile] = op.PropValue
			return nil
		}
		oldRoot := c.rootOf(op.Profile, oldParent)
		newRoot := c.rootOf(op.Profile, op.PropValue)
		if oldRoot != newRoot {
			return uerrors.NewIntegrity(
				"profile %q is already installed as a subprofile of %q; uninstall it first before reinstalling it under %q",
				op.Profile, oldRoot, newRoot)
		}
		c.known[op.Profile] = op.PropValue
	}
	return nil
}

func (c *CheckProfiles) rootOf(name string, parent *string) string {
	seen := map[string]bool{name: true}
	for parent != nil && !seen[*parent] {
		seen[*parent] = true
		name = *parent
		parent = c.known[*parent]
	}
	return name
}

func (c *CheckProfiles) Finish() error { return nil }

func samePtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// CheckLinks rejects a log that would claim a path already claimed by
// another profile (or, cross-user, by another user's session).
type CheckLinks struct {
	// Claimed maps an already-installed path to the profile (and,
	// optionally, user) that owns it.
	Claimed map[string]ClaimedBy

	claimed map[string]ClaimedBy
}

// ClaimedBy names who owns a path already.
type ClaimedBy struct {
	Profile string
	User    string // "" for the current user
}

func (c *CheckLinks) Start() error {
	c.claimed = map[string]ClaimedBy{}
	for p, by := range c.Claimed {
		c.claimed[p] = by
	}
	return nil
}

func (c *CheckLinks) Handle(op difflog.Operation) error {
	switch op.Kind {
	case difflog.OpAddLink, difflog.OpTrackLink:
		if by, exists := c.claimed[op.Link.Path]; exists {
			return collisionError(op.Link.Path, op.Profile, by)
		}
		c.claimed[op.Link.Path] = ClaimedBy{Profile: op.Profile}
	case difflog.OpUpdateLink, difflog.OpUpdateLinkData:
		delete(c.claimed, op.OldLink.Path)
		if by, exists := c.claimed[op.NewLink.Path]; exists && by.Profile != op.Profile {
			return collisionError(op.NewLink.Path, op.Profile, by)
		}
		c.claimed[op.NewLink.Path] = ClaimedBy{Profile: op.Profile}
	case difflog.OpRemoveLink, difflog.OpUntrackLink:
		delete(c.claimed, op.Link.Path)
	}
	return nil
}

func collisionError(path, profile string, by ClaimedBy) error {
	if by.User != "" {
		return uerrors.NewIntegrity("%s is already managed by profile %q for user %q", path, by.Profile, by.User)
	}
	return uerrors.NewIntegrity("%s is already managed by profile %q; use --dui if this is an ordering problem", path, by.Profile)
}

func (c *CheckLinks) Finish() error { return nil }

// CheckLinkBlacklist rejects (or, with Superforce plus an explicit
// confirmation, allows) any operation touching a path matching one of
// the loaded blacklist patterns.
type CheckLinkBlacklist struct {
	Patterns   []*regexp.Regexp
	Superforce bool
	Confirm    func(message string) bool
}

// LoadBlacklist reads newline-separated regex patterns from every
// black.list file found in searchPaths, deduplicated.
func LoadBlacklist(searchPaths []string) ([]*regexp.Regexp, error) {
	seen := map[string]bool{}
	var patterns []*regexp.Regexp
	for _, dir := range searchPaths {
		path := filepath.Join(dir, "black.list")
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || seen[line] {
				continue
			}
			seen[line] = true
			re, err := regexp.Compile(line)
			if err != nil {
				return nil, uerrors.NewPrecondition("invalid blacklist pattern %q in %s: %v", line, path, err)
			}
			patterns = append(patterns, re)
		}
	}
	return patterns, nil
}

func (c *CheckLinkBlacklist) Start() error { return nil }

func (c *CheckLinkBlacklist) Handle(op difflog.Operation) error {
	path := linkPath(op)
	if path == "" {
		return nil
	}
	for _, re := range c.Patterns {
		if re.MatchString(path) {
			return c.handleMatch(path)
		}
	}
	return nil
}

func (c *CheckLinkBlacklist) handleMatch(path string) error {
	msg := fmt.Sprintf("%s matches a blacklisted pattern", path)
	if c.Superforce {
		ulog.Warning(msg)
		if c.Confirm != nil && !c.Confirm(fmt.Sprintf("Type YES to manage %s anyway", path)) {
			return uerrors.NewUserAbortion()
		}
		return nil
	}
	return uerrors.NewIntegrity("%s; use --superforce to override", msg)
}

func (c *CheckLinkBlacklist) Finish() error { return nil }

func linkPath(op difflog.Operation) string {
	switch op.Kind {
	case difflog.OpAddLink, difflog.OpRemoveLink, difflog.OpTrackLink, difflog.OpUntrackLink:
		return op.Link.Path
	case difflog.OpUpdateLink, difflog.OpUpdateLinkData:
		return op.NewLink.Path
	case difflog.OpRestoreLink:
		return op.NewLink.Path
	default:
		return ""
	}
}

// CheckLinkDirs rejects an operation whose target directory doesn't
// exist, unless Makedirs is set (in which case ExecuteInterpreter is
// trusted to create it).
type CheckLinkDirs struct {
	Makedirs bool
}

func (c *CheckLinkDirs) Start() error  { return nil }
func (c *CheckLinkDirs) Finish() error { return nil }

func (c *CheckLinkDirs) Handle(op difflog.Operation) error {
	if c.Makedirs {
		return nil
	}
	path := linkPath(op)
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return uerrors.NewPrecondition("directory %s does not exist; use --makedirs to create it", dir)
	}
	return nil
}

// CheckFileOverwrite rejects writing a link over a path that already
// has an unmanaged file or non-empty directory on it, unless Force is
// set. A path removed earlier in the same log is not considered an
// overwrite, so a profile's own remove-then-add within one run passes.
type CheckFileOverwrite struct {
	Force bool

	removed map[string]bool
}

func (c *CheckFileOverwrite) Start() error {
	c.removed = map[string]bool{}
	return nil
}

func (c *CheckFileOverwrite) Handle(op difflog.Operation) error {
	switch op.Kind {
	case difflog.OpRemoveLink, difflog.OpUntrackLink:
		c.removed[op.Link.Path] = true
		return nil
	case difflog.OpAddLink, difflog.OpTrackLink:
		return c.checkOverwrite(op.Link.Path)
	case difflog.OpUpdateLink:
		return c.checkOverwrite(op.NewLink.Path)
	}
	return nil
}

func (c *CheckFileOverwrite) checkOverwrite(path string) error {
	if c.removed[path] {
		return nil
	}
	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return uerrors.NewUnknown(err, "checking "+path)
	}
	if c.Force {
		return nil
	}
	if info.IsDir() {
		return uerrors.NewIntegrity("%s is an existing directory; use --force to overwrite it (even if empty)", path)
	}
	return uerrors.NewIntegrity("%s already exists and is not managed by udot; use --force to overwrite it", path)
}

func (c *CheckFileOverwrite) Finish() error { return nil }

// CheckDynamicFiles compares every DynamicFile target's recorded
// content hash against the live file on disk and raises a precondition
// error if any have changed out from under udot, since those edits
// would otherwise be silently discarded by the next generation.
type CheckDynamicFiles struct {
	// HashOf returns the current md5 hash embedded in a DynamicFile's
	// cache path name, and the live hash of the file at targetPath.
	// Returns ok=false if targetPath isn't a DynamicFile target.
	HashOf func(targetPath string) (cached, live string, ok bool, err error)

	changed []string
}

func (c *CheckDynamicFiles) Start() error {
	c.changed = nil
	return nil
}

func (c *CheckDynamicFiles) Handle(op difflog.Operation) error {
	if c.HashOf == nil {
		return nil
	}
	path := linkPath(op)
	if path == "" {
		return nil
	}
	cached, live, ok, err := c.HashOf(path)
	if err != nil {
		return uerrors.NewUnknown(err, "checking dynamic file "+path)
	}
	if ok && cached != live {
		c.changed = append(c.changed, path)
	}
	return nil
}

func (c *CheckDynamicFiles) Finish() error {
	if len(c.changed) == 0 {
		return nil
	}
	return uerrors.NewPrecondition(
		"%d dynamic file(s) changed since they were last generated (%s); run 'udot sync' to merge or discard the changes",
		len(c.changed), strings.Join(c.changed, ", "))
}
