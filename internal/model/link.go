// Package model holds the data types shared by every other package in
// this repository: the managed link descriptor, a profile's persisted
// and evaluated shapes, and the buildup chain that records how a
// DynamicFile was produced.
package model

import (
	"encoding/json"
	"time"
)

// LinkDescriptor describes one managed filesystem link: a path the
// engine owns, and the target it should point at (or, for a hard
// link, the inode it should share).
//
// Target is nil only when Hard is true; every other code path must
// populate it before the descriptor is handed to a solver.
type LinkDescriptor struct {
	Path        string  `json:"path"`
	Target      *string `json:"target"`
	TargetInode *uint64 `json:"target_inode,omitempty"`
	Hard        bool    `json:"hard"`
	Owner       string  `json:"owner"`
	Permission  *int    `json:"permission,omitempty"`
	Secure      bool    `json:"secure"`
	Buildup     *BuildupData `json:"buildup,omitempty"`
	Created     time.Time    `json:"created"`
	Updated     time.Time    `json:"updated"`
}

// UnmarshalJSON accepts both the current "path" key and the stone-age
// state format's "name" key, so a document written before the
// name->path rename can still be decoded (the rename itself is then
// just bookkeeping; upgradeStoneAge fills in the fields stone-age
// documents never had).
func (d *LinkDescriptor) UnmarshalJSON(data []byte) error {
	type alias LinkDescriptor
	aux := struct {
		*alias
		Name string `json:"name"`
	}{alias: (*alias)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if d.Path == "" && aux.Name != "" {
		d.Path = aux.Name
	}
	return nil
}

// IsSimilar reports whether d and other are plausibly "the same
// managed link that has moved or changed" rather than two unrelated
// links: they share a path, or they share a (non-nil) target, or they
// share a target inode.
func (d LinkDescriptor) IsSimilar(other LinkDescriptor) bool {
	if d.Path == other.Path {
		return true
	}
	if d.Target != nil && other.Target != nil && *d.Target == *other.Target {
		return true
	}
	if d.TargetInode != nil && other.TargetInode != nil && *d.TargetInode == *other.TargetInode {
		return true
	}
	return false
}

// Equal reports whether d and other describe the identical managed
// link: same path, same target (by value for symlinks, by inode for
// hard links), and matching owner/permission/hard/secure flags.
func (d LinkDescriptor) Equal(other LinkDescriptor) bool {
	if d.Path != other.Path {
		return false
	}
	if d.Hard != other.Hard || d.Secure != other.Secure {
		return false
	}
	if d.Owner != other.Owner {
		return false
	}
	if !permEqual(d.Permission, other.Permission) {
		return false
	}
	if !d.Hard && d.Target != nil && other.Target != nil {
		if *d.Target != *other.Target {
			return false
		}
	} else {
		if !inodeEqual(d.TargetInode, other.TargetInode) {
			return false
		}
	}
	return true
}

func permEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func inodeEqual(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Broken reports whether the descriptor has no known target at all —
// neither a symlink target nor a hard-link inode — which can only
// happen for a descriptor read back from a corrupted state file.
func (d LinkDescriptor) Broken() bool {
	return d.Target == nil && d.TargetInode == nil
}
