// Package rootop implements udot's privilege re-exec: when a run needs
// root and the user allowed asking for it, the current process
// serializes its pending work into a versioned JSON envelope, pipes it
// to `sudo udot resume` over stdin, and exits with whatever that child
// returns. This replaces a reactive pickle-the-whole-process approach
// with an explicit, inspectable wire format.
package rootop

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"

	"github.com/udot/udot/internal/difflog"
	"github.com/udot/udot/internal/uerrors"
)

// EnvelopeVersion is bumped whenever Envelope's shape changes in a way
// that would break a sudo child built from a different udot version
// reading it.
const EnvelopeVersion = 1

// Envelope is everything the resumed, root-owned process needs to
// finish a run that a non-root invocation started and then handed off.
type Envelope struct {
	Version int `json:"version"`

	SessionDir string             `json:"session_dir"`
	Mode       string             `json:"mode"` // the original subcommand: update, remove, timewarp, sync
	DryRun     bool               `json:"dry_run"`
	Operations []difflog.Operation `json:"operations"`

	// InvokingUID/GID are the real user's credentials, recorded before
	// elevation so event scripts can still be demoted to run as them
	// rather than as root.
	InvokingUID int `json:"invoking_uid"`
	InvokingGID int `json:"invoking_gid"`
}

// Encode serializes env as the envelope format resume expects.
func Encode(env Envelope) ([]byte, error) {
	env.Version = EnvelopeVersion
	data, err := json.Marshal(env)
	if err != nil {
		return nil, uerrors.NewUnknown(err, "encoding root-elevation envelope")
	}
	return data, nil
}

// Decode parses an envelope read from stdin by the resumed process.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, uerrors.NewFatal("malformed root-elevation envelope: %v", err)
	}
	if env.Version != EnvelopeVersion {
		return env, uerrors.NewFatal("root-elevation envelope version %d, expected %d; upgrade/downgrade sudo and the invoking udot together", env.Version, EnvelopeVersion)
	}
	return env, nil
}

// ReExec pipes env to `sudo <self> resume` over stdin and returns once
// that child exits, propagating its exit code to the caller (main()
// calls os.Exit with whatever this returns).
func ReExec(env Envelope) (int, error) {
	data, err := Encode(env)
	if err != nil {
		return 0, err
	}
	self, err := os.Executable()
	if err != nil {
		return 0, uerrors.NewUnknown(err, "resolving current executable for re-exec")
	}

	cmd := exec.Command("sudo", self, "resume")
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return 0, uerrors.NewUnknown(err, "re-executing udot under sudo")
	}
	return 0, nil
}
