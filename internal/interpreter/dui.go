package interpreter

import "github.com/udot/udot/internal/difflog"

// DUI reorders a log into delete/update/insert buckets so that, for
// example, a link being freed up by one profile's removal is available
// before another profile tries to claim it. The exact merge order is
// load-bearing: link and profile deletes first, then profile and link
// updates, then profile and link adds, then plain property updates.
type DUI struct {
	Log *difflog.DiffLog

	deletes    []difflog.Operation
	updates    []difflog.Operation
	inserts    []difflog.Operation
	propUpdate []difflog.Operation
}

func (d *DUI) Start() error {
	d.deletes, d.updates, d.inserts, d.propUpdate = nil, nil, nil, nil
	return nil
}

func (d *DUI) Handle(op difflog.Operation) error {
	switch op.Kind {
	case difflog.OpRemoveLink, difflog.OpRemoveProfile, difflog.OpUntrackLink:
		d.deletes = append(d.deletes, op)
	case difflog.OpUpdateLink, difflog.OpUpdateLinkData, difflog.OpUpdateProfile, difflog.OpRestoreLink:
		d.updates = append(d.updates, op)
	case difflog.OpAddLink, difflog.OpAddProfile, difflog.OpTrackLink:
		d.inserts = append(d.inserts, op)
	case difflog.OpUpdateProp:
		d.propUpdate = append(d.propUpdate, op)
	default:
		// info and any future kind pass through in their original
		// relative position by riding along with inserts, the bucket
		// closest to "doesn't block anything else".
		d.inserts = append(d.inserts, op)
	}
	return nil
}

func (d *DUI) Finish() error {
	if d.Log != nil {
		d.Log.Replace(d.Reorder())
	}
	return nil
}

// Reorder returns the bucketed operations in DUI order. Call this
// after running the interpreter over a log and feed the result back
// with DiffLog.Replace.
func (d *DUI) Reorder() []difflog.Operation {
	out := make([]difflog.Operation, 0, len(d.deletes)+len(d.updates)+len(d.inserts)+len(d.propUpdate))
	out = append(out, d.deletes...)
	out = append(out, d.updates...)
	out = append(out, d.inserts...)
	out = append(out, d.propUpdate...)
	return out
}
