// Package difflog implements the operation log a solver produces and
// an interpreter pipeline consumes: an ordered list of profile/link
// mutations plus the two sentinel passes ("start" before the first
// operation, "fin" after the last) every interpreter receives.
package difflog

import "github.com/udot/udot/internal/model"

// OpKind names one kind of DiffLog entry.
type OpKind string

const (
	OpInfo          OpKind = "info"
	OpAddProfile    OpKind = "add_p"
	OpUpdateProfile OpKind = "update_p"
	OpRemoveProfile OpKind = "remove_p"
	OpAddLink       OpKind = "add_l"
	OpRemoveLink    OpKind = "remove_l"
	OpUpdateLink    OpKind = "update_l"
	OpUpdateLinkData OpKind = "update_t" // target unchanged, only metadata (owner/perm/secure) differs
	OpTrackLink     OpKind = "track_l"
	OpUntrackLink   OpKind = "untrack_l"
	OpRestoreLink   OpKind = "restore_l"
	OpUpdateProp    OpKind = "update_prop"
)

// Operation is one entry in the log. Only the fields relevant to Kind
// are populated; the rest are the zero value.
type Operation struct {
	Kind    OpKind
	Profile string

	Message string // OpInfo

	Parent *string // OpAddProfile

	Link    model.LinkDescriptor // OpAddLink, OpRemoveLink, OpTrackLink, OpUntrackLink
	OldLink model.LinkDescriptor // OpUpdateLink, OpUpdateLinkData, OpRestoreLink (actual/installed side)
	NewLink model.LinkDescriptor // OpUpdateLink, OpUpdateLinkData, OpRestoreLink (saved/wanted side)

	PropKey   string  // OpUpdateProp
	PropValue *string // OpUpdateProp, nil clears the property

	BeforeEvent string // event script path to run before this op's effect, if any
	AfterEvent  string // event script path to run after
}

// DiffLog is the ordered operation list a solver builds and every
// Interpreter in a pipeline processes in the same order.
type DiffLog struct {
	ops []Operation
}

// New returns an empty log.
func New() *DiffLog { return &DiffLog{} }

// Append adds one operation.
func (d *DiffLog) Append(op Operation) {
	d.ops = append(d.ops, op)
}

// Operations returns the log's entries in order. Callers must not
// mutate the returned slice.
func (d *DiffLog) Operations() []Operation {
	return d.ops
}

// Len reports how many operations are queued.
func (d *DiffLog) Len() int { return len(d.ops) }

// Replace swaps the entire operation list, the hook a reordering
// interpreter (DUI) uses from its Finish method so that interpreters
// running after it see the new order.
func (d *DiffLog) Replace(ops []Operation) {
	d.ops = ops
}

// Clone returns a copy of the log whose operation slice is independent
// of d's.
func (d *DiffLog) Clone() *DiffLog {
	out := &DiffLog{ops: make([]Operation, len(d.ops))}
	copy(out.ops, d.ops)
	return out
}

// Interpreter consumes a DiffLog one operation at a time, bracketed by
// Start/Finish. Returning an error from any of the three aborts the
// run with that error.
type Interpreter interface {
	Start() error
	Handle(op Operation) error
	Finish() error
}

// Run feeds start, every operation in order, then fin to each
// interpreter in turn — interpreter i finishes its entire pass before
// interpreter i+1 begins, mirroring a validate-then-execute pipeline
// where later interpreters must see the final shape of the log (a DUI
// reorder runs to completion before Execute ever sees an operation).
func (d *DiffLog) Run(interpreters ...Interpreter) error {
	for _, ip := range interpreters {
		if err := ip.Start(); err != nil {
			return err
		}
		for _, op := range d.ops {
			if err := ip.Handle(op); err != nil {
				return err
			}
		}
		if err := ip.Finish(); err != nil {
			return err
		}
	}
	return nil
}
