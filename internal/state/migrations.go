package state

import (
	"os"
	"strconv"
	"strings"
	"syscall"
)

// migration upgrades every profile in a Store in place, bumping its
// target version once applied. Each entry mirrors one of uberdot's
// named upgrade functions.
type migration struct {
	target string
	apply  func(*Store) error
}

var upgrades = []migration{
	{target: "1.16.0", apply: upgradeStoneAge},
	{target: "1.18.0", apply: upgradeFlexibleEvents},
}

// upgradeStoneAge rewrites links written before the "fancy" state
// format. The schema only introduced optional properties and renamed
// "name" to "path" (model.LinkDescriptor.UnmarshalJSON already accepts
// either key, so d.Path is already populated by the time this runs);
// what's missing on a stone-age document is hard, target_inode and
// owner, none of which stone-age links ever had reason to set.
func upgradeStoneAge(s *Store) error {
	for _, p := range s.profiles {
		for i := range p.Links {
			l := &p.Links[i]
			l.Hard = false
			if l.Target != nil {
				if st, err := os.Stat(*l.Target); err == nil {
					if sys, ok := st.Sys().(*syscall.Stat_t); ok {
						ino := sys.Ino
						l.TargetInode = &ino
					}
				}
			}
			if l.Owner == "" {
				if st, err := os.Lstat(l.Path); err == nil {
					if sys, ok := st.Sys().(*syscall.Stat_t); ok {
						l.Owner = strconv.FormatUint(uint64(sys.Uid), 10) + ":" + strconv.FormatUint(uint64(sys.Gid), 10)
					}
				}
			}
		}
	}
	return nil
}

// upgradeFlexibleEvents normalizes the six event-hash properties: each
// non-empty one is passed through normalizeEventHash, which reduces an
// event script path to its 32-character md5 suffix; empty fields stay
// empty and no other field is read.
func upgradeFlexibleEvents(s *Store) error {
	for _, p := range s.profiles {
		for _, field := range []*string{
			&p.BeforeInstall, &p.AfterInstall,
			&p.BeforeUpdate, &p.AfterUpdate,
			&p.BeforeUninstall, &p.AfterUninstall,
		} {
			if *field != "" {
				*field = normalizeEventHash(*field)
			}
		}
	}
	return nil
}

// normalizeEventHash extracts the trailing 32 hex characters (an md5
// sum) from an event script symlink name, e.g.
// "beforeInstall#9e107d9d372bb6826bd81d3542a419d6" ->
// "9e107d9d372bb6826bd81d3542a419d6". If the value doesn't look like
// one of these symlink names, it's returned unchanged.
func normalizeEventHash(v string) string {
	if len(v) < 32 {
		return v
	}
	suffix := v[len(v)-32:]
	if isHex(suffix) {
		return suffix
	}
	return v
}

func isHex(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}
