// Package external wraps the handful of subprocesses udot shells out
// to — gpg, diff, git, sudo — behind small interfaces, the way the
// teacher wraps an SSH connection behind internal/ssh.Client rather
// than calling x/crypto/ssh directly from business logic.
package external

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/crypto/ssh/terminal"

	"github.com/udot/udot/internal/uerrors"
)

// GPGAdapter shells out to the gpg binary for EncryptedFile. It holds
// no state beyond which binary and recipient to use, mirroring how
// internal/ssh.Client holds only connection parameters.
type GPGAdapter struct {
	Binary    string // defaults to "gpg" if empty
	Recipient string // -r argument for Encrypt; Decrypt needs none

	// Passphrase, when non-nil, is piped to gpg over a dedicated fd
	// (--passphrase-fd) instead of letting gpg-agent's pinentry run,
	// for a symmetric-encrypted dynamic file that has no recipient
	// key at all. PromptPassphrase populates this once per process.
	Passphrase []byte
}

// PromptPassphrase reads a passphrase from the controlling terminal
// without echoing it, the way uberdot's decryptPwd setting prompted
// once up front rather than per file. Call it before the first
// Decrypt/Encrypt when a config's DecryptPwd flag is set.
func PromptPassphrase(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := terminal.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, uerrors.NewUnknown(err, "reading passphrase")
	}
	return pass, nil
}

func (g GPGAdapter) binary() string {
	if g.Binary == "" {
		return "gpg"
	}
	return g.Binary
}

// Decrypt runs `gpg --decrypt` over ciphertext and returns the
// plaintext from stdout.
func (g GPGAdapter) Decrypt(ciphertext []byte) ([]byte, error) {
	cmd := exec.Command(g.binary(), "--quiet", "--batch", "--decrypt")
	return g.run(cmd, ciphertext)
}

// Encrypt runs `gpg --encrypt -r <recipient>` over plaintext.
func (g GPGAdapter) Encrypt(plaintext []byte) ([]byte, error) {
	if g.Recipient == "" {
		return nil, uerrors.NewPrecondition("encrypting a dynamic file requires a configured gpg recipient")
	}
	cmd := exec.Command(g.binary(), "--quiet", "--batch", "--yes", "--trust-model", "always",
		"--encrypt", "-r", g.Recipient)
	return g.run(cmd, plaintext)
}

func (g GPGAdapter) run(cmd *exec.Cmd, input []byte) ([]byte, error) {
	if g.Passphrase != nil {
		r, w, err := os.Pipe()
		if err != nil {
			return nil, uerrors.NewUnknown(err, "opening passphrase pipe for gpg")
		}
		cmd.ExtraFiles = append(cmd.ExtraFiles, r)
		cmd.Args = append(cmd.Args, "--pinentry-mode", "loopback", "--passphrase-fd", "3")
		go func() {
			defer w.Close()
			w.Write(g.Passphrase)
		}()
		defer r.Close()
	}

	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, uerrors.NewGeneration("", "gpg failed: %v\n%s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}
