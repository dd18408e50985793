package difflog

import "github.com/udot/udot/internal/model"

// These methods are the solver-facing API: every Difference Solver
// builds its log exclusively through them rather than constructing
// Operation values by hand, the way uberdot's DiffLog exposed
// add_profile/update_link/etc. rather than a raw append.

func (d *DiffLog) Info(profile, message string) {
	d.Append(Operation{Kind: OpInfo, Profile: profile, Message: message})
}

func (d *DiffLog) AddProfile(profile string, parent *string, before, after string) {
	d.Append(Operation{Kind: OpAddProfile, Profile: profile, Parent: parent, BeforeEvent: before, AfterEvent: after})
}

func (d *DiffLog) UpdateProfile(profile, before, after string) {
	d.Append(Operation{Kind: OpUpdateProfile, Profile: profile, BeforeEvent: before, AfterEvent: after})
}

func (d *DiffLog) RemoveProfile(profile, before, after string) {
	d.Append(Operation{Kind: OpRemoveProfile, Profile: profile, BeforeEvent: before, AfterEvent: after})
}

func (d *DiffLog) AddLink(profile string, link model.LinkDescriptor) {
	d.Append(Operation{Kind: OpAddLink, Profile: profile, Link: link})
}

func (d *DiffLog) RemoveLink(profile string, link model.LinkDescriptor) {
	d.Append(Operation{Kind: OpRemoveLink, Profile: profile, Link: link})
}

func (d *DiffLog) UpdateLink(profile string, old, new model.LinkDescriptor) {
	d.Append(Operation{Kind: OpUpdateLink, Profile: profile, OldLink: old, NewLink: new})
}

// UpdateLinkData records a link whose target hasn't moved but whose
// metadata (owner, permission, secure) has — no filesystem unlink/link
// cycle is needed, just a re-chmod/re-chown.
func (d *DiffLog) UpdateLinkData(profile string, old, new model.LinkDescriptor) {
	d.Append(Operation{Kind: OpUpdateLinkData, Profile: profile, OldLink: old, NewLink: new})
}

func (d *DiffLog) TrackLink(profile string, link model.LinkDescriptor) {
	d.Append(Operation{Kind: OpTrackLink, Profile: profile, Link: link})
}

func (d *DiffLog) UntrackLink(profile string, link model.LinkDescriptor) {
	d.Append(Operation{Kind: OpUntrackLink, Profile: profile, Link: link})
}

// RestoreLink re-creates actual (what drifted away) as saved (what the
// state store still records), used by the filesystem drift solver.
func (d *DiffLog) RestoreLink(profile string, saved, actual model.LinkDescriptor) {
	d.Append(Operation{Kind: OpRestoreLink, Profile: profile, OldLink: actual, NewLink: saved})
}

func (d *DiffLog) UpdateProperty(profile, key string, value *string) {
	d.Append(Operation{Kind: OpUpdateProp, Profile: profile, PropKey: key, PropValue: value})
}
