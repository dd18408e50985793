package prompt

import (
	"github.com/udot/udot/internal/dynamicfile"
	"github.com/udot/udot/internal/uerrors"
)

// DiffShower is the subset of internal/external.DiffTool a
// ConflictMenu needs; satisfied by *external.DiffTool in production
// and *external.FakeDiffTool in tests.
type DiffShower interface {
	ShowDiff(a, b string) error
	CreatePatch(a, b string) (string, error)
}

// ConflictMenu implements dynamicfile.ConflictResolver by presenting
// the seven-option menu uberdot's StaticFile conflict handling showed
// interactively, as a bubbletea menuModel instead of a raw input()
// loop.
type ConflictMenu struct {
	Diff DiffShower
}

var conflictChoices = []string{
	"Ignore (keep both as they are)",
	"Show a diff against the cached copy",
	"Show a diff against the original source",
	"Overwrite the source with the cached copy",
	"Save the difference as a patch file instead",
	"Discard the cached copy, use the source",
	"Discard everything and start over",
}

// Resolve presents the menu once and returns the corresponding
// action. It does not loop on the two "show a diff" choices itself —
// the caller's resolveConflict loop is what re-invokes Resolve after
// displaying a diff, so this only ever needs to ask once per call.
func (c ConflictMenu) Resolve(sourcePath, cachedPath, backupPath string) dynamicfile.ConflictAction {
	choice, err := runMenu("This dynamic file has been edited both at its source and in its cache:", conflictChoices)
	if err != nil || choice < 0 {
		return dynamicfile.ConflictIgnore
	}
	switch choice {
	case 0:
		return dynamicfile.ConflictIgnore
	case 1:
		return dynamicfile.ConflictShowFileDiff
	case 2:
		return dynamicfile.ConflictShowSourceDiff
	case 3:
		return dynamicfile.ConflictWriteFile
	case 4:
		return dynamicfile.ConflictCreatePatch
	case 5:
		return dynamicfile.ConflictUseSource
	default:
		return dynamicfile.ConflictDiscardAll
	}
}

func (c ConflictMenu) ShowDiff(a, b string) error {
	if c.Diff == nil {
		return uerrors.NewFatal("ConflictMenu.ShowDiff called with no DiffShower configured")
	}
	return c.Diff.ShowDiff(a, b)
}

func (c ConflictMenu) CreatePatch(a, b string) (string, error) {
	if c.Diff == nil {
		return "", uerrors.NewFatal("ConflictMenu.CreatePatch called with no DiffShower configured")
	}
	return c.Diff.CreatePatch(a, b)
}
