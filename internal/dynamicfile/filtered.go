package dynamicfile

import (
	"github.com/udot/udot/internal/model"
	"github.com/udot/udot/internal/uerrors"
)

// FilteredFile pipes another AbstractFile's content through a shell
// command. Its transform is one-directional: there is no general way
// to invert an arbitrary shell filter, so reverse sync always fails.
type FilteredFile struct {
	base
	Command string
	Shell   Shell
	src     AbstractFile
}

func loadFiltered(sessionDir, name string, bd model.BuildupData, deps Deps) (AbstractFile, error) {
	if bd.Source == nil {
		return nil, uerrors.NewFatal("filtered dynamic file %q has no recorded source", name)
	}
	src, err := Load(sessionDir, name, *bd.Source, deps)
	if err != nil {
		return nil, err
	}
	return &FilteredFile{base: newBase(sessionDir, "piped", name), Shell: deps.Shell, src: src}, nil
}

// NewFilteredFile wraps src, piping its content through shellCommand
// whenever it's regenerated.
func NewFilteredFile(sessionDir, name, shellCommand string, src AbstractFile, shell Shell) *FilteredFile {
	return &FilteredFile{base: newBase(sessionDir, "piped", name), Command: shellCommand, Shell: shell, src: src}
}

func (f *FilteredFile) UpdateFromSource() error {
	if err := f.src.UpdateFromSource(); err != nil {
		return err
	}
	out, err := f.Shell.Pipe(f.Command, f.src.Content())
	if err != nil {
		return uerrors.NewUnknown(err, "running filter command")
	}
	return writeIfAbsent(&f.base, out)
}

func (f *FilteredFile) UpdateFromContent([]byte) error {
	return uerrors.NewPrecondition("%s cannot reverse a shell filter (%q); edit the source directly instead", f.Path(), f.Command)
}

func (f *FilteredFile) BuildupData() model.BuildupData {
	sub := f.src.BuildupData()
	return model.BuildupData{Path: f.Path(), Type: "filtered", Source: &sub}
}
