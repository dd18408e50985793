package state

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/udot/udot/internal/uerrors"
)

// Snapshot names one snapshot file on disk, ordered by Timestamp.
type Snapshot struct {
	Timestamp int64
	Path      string
}

// Snapshots lists every state_<ts>.json file in dir, oldest first.
func Snapshots(dir string) ([]Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, uerrors.NewUnknown(err, "listing session directory")
	}
	var out []Snapshot
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, "state_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		tsStr := strings.TrimSuffix(strings.TrimPrefix(name, "state_"), ".json")
		ts, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, Snapshot{Timestamp: ts, Path: filepath.Join(dir, name)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

// FromIndex resolves the n-th snapshot (0-indexed, oldest first).
func FromIndex(dir string, n int) (*Store, error) {
	snaps, err := Snapshots(dir)
	if err != nil {
		return nil, err
	}
	if n < 0 || n >= len(snaps) {
		return nil, uerrors.NewUser("no snapshot at index %d (have %d)", n, len(snaps))
	}
	return ReadOnly(snaps[n].Path, dir)
}

// FromNumber resolves a 1-indexed snapshot number, the form shown to
// users by `udot history`.
func FromNumber(dir string, number int) (*Store, error) {
	return FromIndex(dir, number-1)
}

// FromTimestamp resolves the snapshot with exactly the given unix
// timestamp.
func FromTimestamp(dir string, ts int64) (*Store, error) {
	snaps, err := Snapshots(dir)
	if err != nil {
		return nil, err
	}
	for _, s := range snaps {
		if s.Timestamp == ts {
			return ReadOnly(s.Path, dir)
		}
	}
	return nil, uerrors.NewUser("no snapshot with timestamp %d", ts)
}

// FromLatestBefore resolves the most recent snapshot whose timestamp
// is less than or equal to ts — the "latest ≤ T" addressing mode.
func FromLatestBefore(dir string, ts int64) (*Store, error) {
	snaps, err := Snapshots(dir)
	if err != nil {
		return nil, err
	}
	var best *Snapshot
	for i := range snaps {
		if snaps[i].Timestamp <= ts {
			best = &snaps[i]
		} else {
			break
		}
	}
	if best == nil {
		return nil, uerrors.NewUser("no snapshot at or before timestamp %d", ts)
	}
	return ReadOnly(best.Path, dir)
}

// FromFile resolves a snapshot by an explicit path, for `udot timewarp
// --file`.
func FromFile(path, dir string) (*Store, error) {
	return ReadOnly(path, dir)
}
