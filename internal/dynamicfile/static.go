package dynamicfile

import (
	"os"

	"github.com/udot/udot/internal/model"
	"github.com/udot/udot/internal/uerrors"
)

// ConflictAction is the user's choice when a StaticFile's cached copy
// and its source have diverged independently.
type ConflictAction int

const (
	ConflictIgnore ConflictAction = iota
	ConflictShowFileDiff
	ConflictShowSourceDiff
	ConflictWriteFile
	ConflictCreatePatch
	ConflictUseSource
	ConflictDiscardAll
)

// ConflictResolver is asked to pick one of the seven actions above,
// possibly after showing the user a diff (ShowFileDiff/ShowSourceDiff
// return to the menu rather than resolving it, mirroring the
// original's inline "show a diff, then ask again" loop).
type ConflictResolver interface {
	Resolve(sourcePath, cachedPath, backupPath string) ConflictAction
	ShowDiff(a, b string) error
	CreatePatch(a, b string) (string, error)
}

// StaticFile is a DynamicFile wrapping a single file on disk verbatim:
// its content IS the source's bytes. It is the only variant capable of
// reverse sync all the way back to a real filesystem path, and so it's
// the only one with a conflict-resolution menu.
type StaticFile struct {
	base
	SourcePath string
	Resolver   ConflictResolver
}

func loadStatic(sessionDir, name string, bd model.BuildupData) (AbstractFile, error) {
	return &StaticFile{base: newBase(sessionDir, "static", name), SourcePath: bd.CopyPath}, nil
}

// NewStaticFile builds a StaticFile for a fresh source path (the
// profile-authoring surface calling link()/merge() with a plain file).
func NewStaticFile(sessionDir, name, sourcePath string, resolver ConflictResolver) *StaticFile {
	return &StaticFile{base: newBase(sessionDir, "static", name), SourcePath: sourcePath, Resolver: resolver}
}

func (f *StaticFile) UpdateFromSource() error {
	data, err := os.ReadFile(f.SourcePath)
	if err != nil {
		return uerrors.NewUnknown(err, "reading source "+f.SourcePath)
	}
	return writeIfAbsent(&f.base, data)
}

// UpdateFromContent is called when the cached copy at f.Path() has
// been edited by the user since the last sync. Three cases:
//   - the edit reproduces the last synced content: no-op
//   - the source is unchanged since the last sync: the edit is written
//     back to the source (and the cache)
//   - both changed independently: a real conflict, resolved through
//     the menu
func (f *StaticFile) UpdateFromContent(newContent []byte) error {
	newHash := md5Hex(newContent)
	if newHash == f.md5sum {
		return nil // cache matches what we already have; nothing changed
	}

	sourceData, err := os.ReadFile(f.SourcePath)
	if err != nil {
		return uerrors.NewUnknown(err, "reading source "+f.SourcePath)
	}
	if md5Hex(sourceData) == f.md5sum {
		// source hasn't moved since our last sync; write the edit back.
		return f.writeSource(newContent)
	}

	return f.resolveConflict(newContent, sourceData)
}

func (f *StaticFile) resolveConflict(cached, source []byte) error {
	if f.Resolver == nil {
		return uerrors.NewPrecondition(
			"%s and its source %s changed independently; run 'udot sync' interactively to resolve this", f.Path(), f.SourcePath)
	}

	backup := f.backupPath()
	for {
		switch f.Resolver.Resolve(f.SourcePath, f.Path(), backup) {
		case ConflictIgnore:
			return nil
		case ConflictShowFileDiff:
			if err := f.Resolver.ShowDiff(backup, f.Path()); err != nil {
				return uerrors.NewUnknown(err, "showing file diff")
			}
		case ConflictShowSourceDiff:
			if err := f.Resolver.ShowDiff(backup, f.SourcePath); err != nil {
				return uerrors.NewUnknown(err, "showing source diff")
			}
		case ConflictWriteFile:
			return f.writeSource(cached)
		case ConflictCreatePatch:
			if _, err := f.Resolver.CreatePatch(backup, f.Path()); err != nil {
				return uerrors.NewUnknown(err, "creating patch")
			}
			fallthrough
		case ConflictUseSource:
			return writeIfAbsent(&f.base, source)
		case ConflictDiscardAll:
			if err := os.WriteFile(f.Path(), source, 0o644); err != nil {
				return uerrors.NewUnknown(err, "discarding cache edits")
			}
			return f.writeSource(source)
		}
	}
}

// writeSource overwrites the real source path with data: it backs up
// the previous content to <source>.udot-bak, writes through a temp
// file renamed over the source so a crash mid-write can never leave
// the source half-written, and removes the backup afterwards.
func (f *StaticFile) writeSource(data []byte) error {
	backup := f.SourcePath + ".udot-bak"
	if prev, err := os.ReadFile(f.SourcePath); err == nil {
		if err := os.WriteFile(backup, prev, 0o644); err != nil {
			return uerrors.NewUnknown(err, "backing up source file")
		}
		defer os.Remove(backup)
	}
	tmp := f.SourcePath + ".udot-tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return uerrors.NewUnknown(err, "writing temporary source file")
	}
	if err := os.Rename(tmp, f.SourcePath); err != nil {
		return uerrors.NewUnknown(err, "replacing source file")
	}
	return writeIfAbsent(&f.base, data)
}

func (f *StaticFile) BuildupData() model.BuildupData {
	return model.BuildupData{Path: f.Path(), Type: "static", CopyPath: f.SourcePath}
}
