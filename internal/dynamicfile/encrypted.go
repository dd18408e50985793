package dynamicfile

import (
	"github.com/udot/udot/internal/model"
	"github.com/udot/udot/internal/uerrors"
)

// EncryptedFile wraps another AbstractFile and decrypts its content
// through gpg. Reverse sync re-encrypts edited plaintext back onto the
// wrapped source.
type EncryptedFile struct {
	base
	Source model.BuildupData
	GPG    GPG
	src    AbstractFile
}

func loadEncrypted(sessionDir, name string, bd model.BuildupData, deps Deps) (AbstractFile, error) {
	if bd.Source == nil {
		return nil, uerrors.NewFatal("encrypted dynamic file %q has no recorded source", name)
	}
	src, err := Load(sessionDir, name, *bd.Source, deps)
	if err != nil {
		return nil, err
	}
	return &EncryptedFile{base: newBase(sessionDir, "decrypted", name), GPG: deps.GPG, src: src}, nil
}

// NewEncryptedFile wraps src (typically a StaticFile pointing at a
// .gpg file) with decryption.
func NewEncryptedFile(sessionDir, name string, src AbstractFile, gpg GPG) *EncryptedFile {
	return &EncryptedFile{base: newBase(sessionDir, "decrypted", name), GPG: gpg, src: src}
}

func (f *EncryptedFile) UpdateFromSource() error {
	if err := f.src.UpdateFromSource(); err != nil {
		return err
	}
	plain, err := f.GPG.Decrypt(f.src.Content())
	if err != nil {
		return uerrors.NewUnknown(err, "decrypting "+f.src.Path())
	}
	return writeIfAbsent(&f.base, plain)
}

func (f *EncryptedFile) UpdateFromContent(newContent []byte) error {
	if md5Hex(newContent) == f.md5sum {
		return nil
	}
	cipher, err := f.GPG.Encrypt(newContent)
	if err != nil {
		return uerrors.NewUnknown(err, "re-encrypting "+f.Path())
	}
	if err := f.src.UpdateFromContent(cipher); err != nil {
		return err
	}
	return writeIfAbsent(&f.base, newContent)
}

func (f *EncryptedFile) BuildupData() model.BuildupData {
	sub := f.src.BuildupData()
	return model.BuildupData{Path: f.Path(), Type: "encrypted", Source: &sub}
}
