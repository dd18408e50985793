package model

// BuildupData records how a managed file was produced, so a later run
// can reconstruct the DynamicFile chain (StaticFile wrapped by zero or
// more EncryptedFile/FilteredFile/SplittedFile layers) without
// re-evaluating the owning profile.
type BuildupData struct {
	// Path is the DynamicFile's content-addressed path on disk
	// (<session_dir>/files/<subdir>/<name>#<md5>), empty for a plain
	// CopyData leaf.
	Path string `json:"path,omitempty"`

	// Type names the DynamicFile variant: "static", "encrypted",
	// "filtered", "splitted", or "copy" for a leaf that isn't a
	// DynamicFile at all (a file referenced as-is).
	Type string `json:"type"`

	// Source is the next layer down for single-source variants
	// (EncryptedFile, FilteredFile). Nil for StaticFile and CopyData.
	Source *BuildupData `json:"source,omitempty"`

	// Sources is the layer list for MultipleSourceDynamicFile variants
	// (SplittedFile). Nil for every other variant.
	Sources []BuildupData `json:"sources,omitempty"`

	// FileLengths records, for a SplittedFile, the line count
	// contributed by each entry in Sources, in order.
	FileLengths []int `json:"file_lengths,omitempty"`

	// CopyPath is the filesystem path a CopyData leaf was copied from,
	// or a StaticFile's source path.
	CopyPath string `json:"copy_path,omitempty"`
}

// IsCopy reports whether this node is a plain file reference rather
// than a DynamicFile.
func (b BuildupData) IsCopy() bool {
	return b.Type == "copy"
}
