package dynamicfile

import (
	"bytes"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/udot/udot/internal/model"
)

// SplittedFile concatenates several sources into one file (separated
// by newlines) and, on reverse sync, redistributes an edited copy
// back across the sources it came from by diffing the new content
// against the old concatenation and mapping each diff opcode's range
// back onto the FileLengths boundaries recorded when it was built.
type SplittedFile struct {
	base
	Sources     []AbstractFile
	FileLengths []int
}

func loadSplitted(sessionDir, name string, bd model.BuildupData, deps Deps) (AbstractFile, error) {
	srcs := make([]AbstractFile, len(bd.Sources))
	for i, sbd := range bd.Sources {
		src, err := Load(sessionDir, name, sbd, deps)
		if err != nil {
			return nil, err
		}
		srcs[i] = src
	}
	return &SplittedFile{base: newBase(sessionDir, "merged", name), Sources: srcs, FileLengths: bd.FileLengths}, nil
}

// NewSplittedFile merges sources in order.
func NewSplittedFile(sessionDir, name string, sources []AbstractFile) *SplittedFile {
	return &SplittedFile{base: newBase(sessionDir, "merged", name), Sources: sources}
}

func (f *SplittedFile) UpdateFromSource() error {
	var buf bytes.Buffer
	lengths := make([]int, len(f.Sources))
	for i, src := range f.Sources {
		if err := src.UpdateFromSource(); err != nil {
			return err
		}
		content := src.Content()
		lines := splitLines(content)
		lengths[i] = len(lines)
		buf.Write(content)
		if !bytes.HasSuffix(content, []byte("\n")) {
			buf.WriteByte('\n')
		}
	}
	f.FileLengths = lengths
	return writeIfAbsent(&f.base, buf.Bytes())
}

func (f *SplittedFile) UpdateFromContent(newContent []byte) error {
	if md5Hex(newContent) == f.md5sum {
		return nil
	}
	segments, err := f.redistribute(newContent)
	if err != nil {
		return err
	}
	for i, seg := range segments {
		if err := f.Sources[i].UpdateFromContent(seg); err != nil {
			return err
		}
	}
	return writeIfAbsent(&f.base, newContent)
}

// redistribute maps the edited whole-file content back onto per-source
// segments using a line-level diff between the previous concatenation
// and newContent: equal and replace/insert/delete ranges are walked in
// order, each consuming lines from the FileLengths boundary they fall
// within. Edits that span a source boundary are assigned to the source
// where the edited range begins — an approximation of the original's
// own word-level SequenceMatcher redistribution, which carried the
// same limitation for a change spanning multiple merged files.
func (f *SplittedFile) redistribute(newContent []byte) ([][]byte, error) {
	oldLines := splitLines(f.content)
	newLines := splitLines(newContent)

	matcher := difflib.NewMatcher(oldLines, newLines)
	opcodes := matcher.GetOpCodes()

	out := make([][]string, len(f.Sources))
	boundaries := sourceBoundaries(f.FileLengths)

	for _, op := range opcodes {
		switch op.Tag {
		case 'e':
			assignByOldRange(out, boundaries, op.I1, op.I2, oldLines)
		default: // replace, delete, insert
			srcIdx := sourceForOldIndex(boundaries, op.I1)
			out[srcIdx] = append(out[srcIdx], newLines[op.J1:op.J2]...)
		}
	}

	segments := make([][]byte, len(f.Sources))
	for i, lines := range out {
		segments[i] = []byte(strings.Join(lines, ""))
	}
	return segments, nil
}

func sourceBoundaries(lengths []int) []int {
	bounds := make([]int, len(lengths)+1)
	for i, l := range lengths {
		bounds[i+1] = bounds[i] + l
	}
	return bounds
}

func sourceForOldIndex(boundaries []int, idx int) int {
	for i := 0; i < len(boundaries)-1; i++ {
		if idx < boundaries[i+1] {
			return i
		}
	}
	return len(boundaries) - 2
}

// assignByOldRange appends an equal-region's old lines to whichever
// source(s) that range spans, splitting at boundaries if necessary.
func assignByOldRange(out [][]string, boundaries []int, i1, i2 int, lines []string) {
	for idx := i1; idx < i2; idx++ {
		src := sourceForOldIndex(boundaries, idx)
		if src < len(out) {
			out[src] = append(out[src], lines[idx])
		}
	}
}

func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	s := string(content)
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func (f *SplittedFile) BuildupData() model.BuildupData {
	subs := make([]model.BuildupData, len(f.Sources))
	for i, s := range f.Sources {
		subs[i] = s.BuildupData()
	}
	return model.BuildupData{Path: f.Path(), Type: "splitted", Sources: subs, FileLengths: f.FileLengths}
}
