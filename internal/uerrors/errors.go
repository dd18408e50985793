// Package uerrors defines the typed error kinds udot uses to pick an
// exit code and to decide whether a failure is recoverable.
package uerrors

import (
	"errors"
	"fmt"
)

// Exit codes. These are part of the external interface: scripts that
// wrap udot key off of them.
const (
	ExitFatal        = 69
	ExitUser         = 101
	ExitIntegrity    = 102
	ExitPrecondition = 103
	ExitGeneration   = 104
	ExitUnknown      = 105
	ExitUserAbort    = 106
	ExitSystemAbort  = 107
)

// ExitCoder is implemented by every error kind in this package so the
// top-level command handler can translate an error into a process exit
// code without a type switch.
type ExitCoder interface {
	error
	ExitCode() int
}

// FatalError marks a state the engine should never reach: an invariant
// was violated somewhere upstream of where it surfaced.
type FatalError struct {
	Message string
}

func NewFatal(format string, args ...any) *FatalError {
	return &FatalError{Message: fmt.Sprintf(format, args...)}
}

func (e *FatalError) Error() string {
	return e.Message + "\nThis should never happen. Please file a bug report before running udot again."
}

func (e *FatalError) ExitCode() int { return ExitFatal }

// UserError reports a problem with how udot was invoked.
type UserError struct {
	Message string
}

func NewUser(format string, args ...any) *UserError {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}

func (e *UserError) Error() string {
	return e.Message + "\nUse --help for more information on how to use this tool."
}

func (e *UserError) ExitCode() int { return ExitUser }

// IntegrityError reports that the requested operation would leave the
// managed link set in an inconsistent state (a collision, a cycle, a
// link claimed by two profiles).
type IntegrityError struct {
	Message string
}

func NewIntegrity(format string, args ...any) *IntegrityError {
	return &IntegrityError{Message: fmt.Sprintf(format, args...)}
}

func (e *IntegrityError) Error() string { return e.Message }

func (e *IntegrityError) ExitCode() int { return ExitIntegrity }

// PreconditionError reports that the environment udot needs (a state
// file of a supported version, an up-to-date DynamicFile cache) isn't
// satisfied.
type PreconditionError struct {
	Message string
}

func NewPrecondition(format string, args ...any) *PreconditionError {
	return &PreconditionError{Message: fmt.Sprintf(format, args...)}
}

func (e *PreconditionError) Error() string { return e.Message }

func (e *PreconditionError) ExitCode() int { return ExitPrecondition }

// GenerationError reports a failure while evaluating a profile.
type GenerationError struct {
	Profile string
	Message string
}

func NewGeneration(profile, format string, args ...any) *GenerationError {
	return &GenerationError{Profile: profile, Message: fmt.Sprintf(format, args...)}
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("[%s]: %s", e.Profile, e.Message)
}

func (e *GenerationError) ExitCode() int { return ExitGeneration }

// UnknownError wraps an error udot did not anticipate. Its Unwrap
// makes it transparent to errors.Is/errors.As.
type UnknownError struct {
	Message string
	Cause   error
}

func NewUnknown(cause error, format string, args ...any) *UnknownError {
	return &UnknownError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *UnknownError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s\nThe underlying error was:\n  %v", e.Message, e.Cause)
}

func (e *UnknownError) Unwrap() error { return e.Cause }

func (e *UnknownError) ExitCode() int { return ExitUnknown }

// UserAbortion reports that the user declined a confirmation prompt.
type UserAbortion struct{}

func NewUserAbortion() *UserAbortion { return &UserAbortion{} }

func (e *UserAbortion) Error() string { return "aborted by user" }

func (e *UserAbortion) ExitCode() int { return ExitUserAbort }

// SystemAbortion reports that the run was interrupted by something
// outside the user's control reaching a terminal failure (an event
// script failing, a signal arriving mid-execution).
type SystemAbortion struct {
	Message string
}

func NewSystemAbortion(format string, args ...any) *SystemAbortion {
	return &SystemAbortion{Message: fmt.Sprintf(format, args...)}
}

func (e *SystemAbortion) Error() string { return e.Message }

func (e *SystemAbortion) ExitCode() int { return ExitSystemAbort }

// CodeOf returns the process exit code for err, defaulting to
// ExitUnknown when err doesn't carry one of its own.
func CodeOf(err error) int {
	if err == nil {
		return 0
	}
	var ec ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return ExitUnknown
}
