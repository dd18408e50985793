// Package state implements the persistent state store: the single
// JSON document recording every profile udot has installed for the
// current user, its version-gated migration path, and the snapshot
// history timewarp reads from.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/udot/udot/internal/model"
	"github.com/udot/udot/internal/uerrors"
)

// Version is the state format this build of udot writes. MinVersion is
// the oldest format it will still read (and migrate forward).
const (
	Version    = "2.0.0"
	MinVersion = "1.12.0"
)

// Store is one loaded state document: the profile map plus the
// bookkeeping needed to write it back out.
type Store struct {
	dir        string // session directory, holds state.json and state_<ts>.json snapshots
	path       string // the file this Store was loaded from
	version    string
	snapshot   string // @snapshot: timestamp of the last snapshot derived from this state
	profiles   map[string]*model.ProfileState
	order      []string // profile names in sorted order, the order Profiles returns
	autoWrite  bool
	readOnly   bool
}

// rawDoc is the on-disk shape: profile entries plus the @-prefixed
// specials, flattened into one JSON object the way uberdot's state
// files have always looked.
type rawDoc map[string]json.RawMessage

const (
	keyVersion  = "@version"
	keySnapshot = "@snapshot"
)

// Current loads (or, on first run, creates) the current user's state
// document from dir/state.json with auto-write enabled: every mutating
// method commits to disk before returning.
func Current(dir string) (*Store, error) {
	path := filepath.Join(dir, "state.json")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		s := &Store{
			dir: dir, path: path, version: Version,
			profiles: map[string]*model.ProfileState{},
		}
		if err := s.write(); err != nil {
			return nil, err
		}
		s.autoWrite = true
		return s, nil
	}
	s, err := load(path, dir)
	if err != nil {
		return nil, err
	}
	s.autoWrite = true
	return s, nil
}

// ReadOnly loads a state document (another user's, or a timewarp
// target) without allowing mutation.
func ReadOnly(path, dir string) (*Store, error) {
	s, err := load(path, dir)
	if err != nil {
		return nil, err
	}
	s.readOnly = true
	return s, nil
}

func load(path, dir string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc rawDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, uerrors.NewPrecondition("state file %s is not valid JSON: %v", path, err)
	}

	s := &Store{dir: dir, path: path, profiles: map[string]*model.ProfileState{}}

	if raw, ok := doc[keyVersion]; ok {
		_ = json.Unmarshal(raw, &s.version)
	}
	if raw, ok := doc[keySnapshot]; ok {
		_ = json.Unmarshal(raw, &s.snapshot)
	}
	if s.version == "" {
		return nil, uerrors.NewPrecondition("state file %s has no @version field", path)
	}

	for name, raw := range doc {
		if strings.HasPrefix(name, "@") {
			continue
		}
		var ps model.ProfileState
		if err := json.Unmarshal(raw, &ps); err != nil {
			return nil, uerrors.NewPrecondition("state file %s: profile %q is malformed: %v", path, name, err)
		}
		ps.Name = name
		s.profiles[name] = &ps
		s.order = append(s.order, name)
	}
	sort.Strings(s.order)

	if err := s.upgrade(); err != nil {
		return nil, err
	}
	return s, nil
}

// upgrade applies every registered migration whose target version is
// newer than s.version, in order, bumping s.version as it goes. It
// rejects documents older than MinVersion or newer than Version.
func (s *Store) upgrade() error {
	if isVersionSmaller(s.version, MinVersion) {
		return uerrors.NewPrecondition(
			"state file version %s is older than the oldest supported version %s; migrate it with an older udot release first",
			s.version, MinVersion)
	}
	if isVersionSmaller(Version, s.version) {
		return uerrors.NewPrecondition(
			"state file version %s is newer than this build of udot (%s); upgrade udot first", s.version, Version)
	}
	for _, up := range upgrades {
		if isVersionSmaller(s.version, up.target) {
			if err := up.apply(s); err != nil {
				return uerrors.NewUnknown(err, fmt.Sprintf("migrating state from %s to %s", s.version, up.target))
			}
			s.version = up.target
		}
	}
	s.version = Version
	return nil
}

// isVersionSmaller reports whether a < b under dotted numeric
// comparison ("1.9.0" < "1.17.0"), the same rule uberdot's state
// migration gate used.
func isVersionSmaller(a, b string) bool {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var an, bn int
		if i < len(as) {
			an, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bn, _ = strconv.Atoi(bs[i])
		}
		if an != bn {
			return an < bn
		}
	}
	return false
}

// Profiles returns every profile in the document, in stable order.
func (s *Store) Profiles() []*model.ProfileState {
	out := make([]*model.ProfileState, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.profiles[name])
	}
	return out
}

// Profile looks up a single profile by name.
func (s *Store) Profile(name string) (*model.ProfileState, bool) {
	p, ok := s.profiles[name]
	return p, ok
}

// Version reports the document's current (post-migration) version.
func (s *Store) Version() string { return s.version }

// SnapshotRef reports the @snapshot timestamp, or "" if none has been
// taken yet.
func (s *Store) SnapshotRef() string { return s.snapshot }

func (s *Store) mustWritable() error {
	if s.readOnly {
		return uerrors.NewFatal("attempted to mutate a read-only state document (%s)", s.path)
	}
	return nil
}

// AddProfile inserts a brand new profile entry.
func (s *Store) AddProfile(ps model.ProfileState) error {
	if err := s.mustWritable(); err != nil {
		return err
	}
	if _, exists := s.profiles[ps.Name]; exists {
		return uerrors.NewFatal("AddProfile called for already-installed profile %q", ps.Name)
	}
	if ps.Installed.IsZero() {
		ps.Installed = time.Now()
	}
	ps.Updated = ps.Installed
	s.profiles[ps.Name] = &ps
	s.order = append(s.order, ps.Name)
	sort.Strings(s.order)
	return s.maybeSave()
}

// RemoveProfile deletes a profile entry entirely.
func (s *Store) RemoveProfile(name string) error {
	if err := s.mustWritable(); err != nil {
		return err
	}
	delete(s.profiles, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return s.maybeSave()
}

// TouchProfile bumps a profile's Updated timestamp, used whenever any
// mutation is applied to it (links changed, a property changed).
func (s *Store) TouchProfile(name string) error {
	if err := s.mustWritable(); err != nil {
		return err
	}
	p, ok := s.profiles[name]
	if !ok {
		return uerrors.NewFatal("TouchProfile called for unknown profile %q", name)
	}
	p.Updated = time.Now()
	return s.maybeSave()
}

// SetProfileLinks replaces a profile's full link list.
func (s *Store) SetProfileLinks(name string, links []model.LinkDescriptor) error {
	if err := s.mustWritable(); err != nil {
		return err
	}
	p, ok := s.profiles[name]
	if !ok {
		return uerrors.NewFatal("SetProfileLinks called for unknown profile %q", name)
	}
	p.Links = links
	return s.maybeSave()
}

// SetProperty sets or (value == nil) clears a scalar profile property
// by name: "parent", "beforeInstall", "afterInstall", "beforeUpdate",
// "afterUpdate", "beforeUninstall", "afterUninstall".
func (s *Store) SetProperty(name, key string, value *string) error {
	if err := s.mustWritable(); err != nil {
		return err
	}
	p, ok := s.profiles[name]
	if !ok {
		return uerrors.NewFatal("SetProperty called for unknown profile %q", name)
	}
	switch key {
	case "parent":
		p.Parent = value
	case "beforeInstall":
		p.BeforeInstall = derefOr(value, "")
	case "afterInstall":
		p.AfterInstall = derefOr(value, "")
	case "beforeUpdate":
		p.BeforeUpdate = derefOr(value, "")
	case "afterUpdate":
		p.AfterUpdate = derefOr(value, "")
	case "beforeUninstall":
		p.BeforeUninstall = derefOr(value, "")
	case "afterUninstall":
		p.AfterUninstall = derefOr(value, "")
	default:
		return uerrors.NewFatal("SetProperty called with unknown property %q", key)
	}
	return s.maybeSave()
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func (s *Store) maybeSave() error {
	if s.autoWrite {
		return s.write()
	}
	return nil
}

// Save writes the document unconditionally (a read-only Store returns
// an error instead), whether or not it is auto-saving. Callers
// that constructed a Store without auto-write (a fresh in-memory
// document being built up before its first commit point) call this
// explicitly once.
func (s *Store) Save() error {
	if err := s.mustWritable(); err != nil {
		return err
	}
	return s.write()
}

func (s *Store) write() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return uerrors.NewUnknown(err, fmt.Sprintf("creating session directory %s", s.dir))
	}
	doc := map[string]any{keyVersion: orDefault(s.version, Version)}
	if s.snapshot != "" {
		doc[keySnapshot] = s.snapshot
	}
	for name, p := range s.profiles {
		doc[name] = p
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return uerrors.NewUnknown(err, "marshaling state document")
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return uerrors.NewUnknown(err, fmt.Sprintf("writing state file %s", s.path))
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// CreateSnapshot writes the current document to
// dir/state_<unix-ts>.json and records that timestamp as @snapshot.
func (s *Store) CreateSnapshot() (string, error) {
	if err := s.mustWritable(); err != nil {
		return "", err
	}
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	snapPath := filepath.Join(s.dir, fmt.Sprintf("state_%s.json", ts))

	doc := map[string]any{keyVersion: s.version}
	for name, p := range s.profiles {
		doc[name] = p
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", uerrors.NewUnknown(err, "marshaling snapshot")
	}
	if err := os.WriteFile(snapPath, data, 0o644); err != nil {
		return "", uerrors.NewUnknown(err, fmt.Sprintf("writing snapshot %s", snapPath))
	}
	s.snapshot = ts
	if err := s.write(); err != nil {
		return "", err
	}
	return ts, nil
}
