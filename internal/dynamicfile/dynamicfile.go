// Package dynamicfile implements DynamicFiles: managed files whose
// content is derived (decrypted, filtered, merged) from one or more
// sources, cached under a session's files/ directory by content hash,
// and capable of writing user edits back to their source.
package dynamicfile

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/udot/udot/internal/model"
	"github.com/udot/udot/internal/uerrors"
)

// AbstractFile is the common interface every DynamicFile variant
// satisfies.
type AbstractFile interface {
	// Path returns the content-addressed path this file currently
	// lives at: <dir>/<name>#<md5>.
	Path() string
	// Content returns the file's current generated bytes.
	Content() []byte
	// UpdateFromSource regenerates Content from the file's source(s)
	// and writes it to Path if that path doesn't already exist.
	UpdateFromSource() error
	// UpdateFromContent is called when the file on disk at Path has
	// changed since it was last written (the user edited it); it
	// decides, per variant, whether and how to propagate that edit
	// back to the source.
	UpdateFromContent(newContent []byte) error
	// BuildupData returns the chain-of-production record persisted
	// into the owning link's state entry.
	BuildupData() model.BuildupData
}

// base holds the fields and cache-path machinery shared by every
// variant; each concrete type embeds it.
type base struct {
	dir     string // <session_dir>/files/<subdir>
	name    string
	md5sum  string
	content []byte
}

func newBase(sessionDir, subdir, name string) base {
	dir := filepath.Join(sessionDir, "files", subdir)
	return base{dir: dir, name: name}
}

func (b *base) Path() string {
	if b.md5sum == "" {
		return ""
	}
	return filepath.Join(b.dir, fmt.Sprintf("%s#%s", b.name, b.md5sum))
}

func (b *base) backupPath() string {
	return b.Path() + ".bak"
}

func (b *base) Content() []byte { return b.content }

// writeIfAbsent is the content-addressing cache law every variant's
// UpdateFromSource relies on: recompute the hash, and only touch disk
// (main file + .bak sibling) if a file at that hash doesn't already
// exist. Two profiles whose sources produce byte-identical content
// share one cache entry.
func writeIfAbsent(b *base, content []byte) error {
	b.content = content
	b.md5sum = md5Hex(content)

	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return uerrors.NewUnknown(err, fmt.Sprintf("creating dynamic file directory %s", b.dir))
	}
	path := b.Path()
	if _, err := os.Stat(path); err == nil {
		return nil // already cached under this hash
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return uerrors.NewUnknown(err, fmt.Sprintf("writing dynamic file %s", path))
	}
	if err := os.WriteFile(path+".bak", content, 0o644); err != nil {
		return uerrors.NewUnknown(err, fmt.Sprintf("writing dynamic file backup %s", path))
	}
	return nil
}

func md5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Load reconstructs an AbstractFile from persisted BuildupData,
// dispatching on its Type the way every variant's content is produced
// by a different generator.
func Load(sessionDir string, name string, bd model.BuildupData, deps Deps) (AbstractFile, error) {
	switch bd.Type {
	case "static":
		return loadStatic(sessionDir, name, bd)
	case "encrypted":
		return loadEncrypted(sessionDir, name, bd, deps)
	case "filtered":
		return loadFiltered(sessionDir, name, bd, deps)
	case "splitted":
		return loadSplitted(sessionDir, name, bd, deps)
	default:
		return nil, uerrors.NewFatal("unknown dynamic file type %q for %q", bd.Type, name)
	}
}

// Deps are the out-of-process adapters a DynamicFile needs to
// regenerate content: gpg for EncryptedFile, a shell for FilteredFile.
// Out of scope per this repository's purpose (§1): these are thin
// interfaces over os/exec, satisfied by internal/external in
// production and by a fake in tests.
type Deps struct {
	GPG   GPG
	Shell Shell
}

// GPG is the subprocess adapter EncryptedFile shells out through.
type GPG interface {
	Decrypt(ciphertext []byte) ([]byte, error)
	Encrypt(plaintext []byte) ([]byte, error)
}

// Shell runs a FilteredFile's configured command over some input.
type Shell interface {
	Pipe(cmd string, input []byte) ([]byte, error)
}
