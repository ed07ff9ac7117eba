package daemon

import (
	"github.com/mtp-dcn/mtpd/internal/vidtab"
	"github.com/mtp-dcn/mtpd/internal/wire"
)

// allOfferedDown reports whether this node has at least one offered
// port and every one of them is currently down.
func (d *Daemon) allOfferedDown() bool {
	ports := d.Reg.OfferedPorts()
	if len(ports) == 0 {
		return false
	}
	for _, h := range ports {
		if d.Reg.Port(h).IsUP {
			return false
		}
	}
	return true
}

// onFailure runs the failure-flood procedure for a control port h that
// just transitioned down.
func (d *Daemon) onFailure(h vidtab.PortHandle) {
	if d.allOfferedDown() && !d.Cfg.IsTopSpine {
		vids := d.Reg.Accepted.AllVIDs()
		if len(vids) > 0 {
			d.sendAccepted(-1, wire.FailureUpdate, wire.UpdateMsg{Option: wire.OptReachable, VIDs: vids})
		}
		return
	}

	if d.Reg.IsAccepted(h) {
		vids := d.Reg.Accepted.VIDs(h)
		d.sendExcept(h, wire.FailureUpdate, wire.UpdateMsg{Option: wire.OptUnreachable, VIDs: vids})
		return
	}

	// h was an offered (upstream) port.
	if !d.Reg.Offered.AllClean() {
		vids := d.Reg.Offered.AllUnreachableVIDs()
		d.sendOffered(-1, wire.FailureUpdate, wire.UpdateMsg{Option: wire.OptUnreachable, VIDs: vids})
	}
}

// onRecover runs the recover-flood procedure for a control port h that
// just transitioned up via three consecutive on-time keep-alives.
func (d *Daemon) onRecover(h vidtab.PortHandle) {
	if d.Reg.IsAccepted(h) {
		vids := d.Reg.Accepted.VIDs(h)
		d.sendExcept(h, wire.RecoverUpdate, wire.UpdateMsg{Option: wire.OptUnreachable, VIDs: vids})
		return
	}

	// h was an offered (upstream) port. If every other offered port is
	// still down, h's recovery is what ends this node's isolation from
	// the core; otherwise just re-derive and re-announce the remaining
	// unreachable set, mirroring the failure-side non-isolating branch.
	isolatedBefore := true
	for _, other := range d.Reg.OfferedPorts() {
		if other == h {
			continue
		}
		if d.Reg.Port(other).IsUP {
			isolatedBefore = false
			break
		}
	}

	if isolatedBefore && !d.Cfg.IsTopSpine {
		vids := d.Reg.Accepted.AllVIDs()
		if len(vids) > 0 {
			d.sendAccepted(-1, wire.RecoverUpdate, wire.UpdateMsg{Option: wire.OptReachable, VIDs: vids})
		}
		return
	}

	if !d.Reg.Offered.AllClean() {
		vids := d.Reg.Offered.AllUnreachableVIDs()
		d.sendOffered(-1, wire.RecoverUpdate, wire.UpdateMsg{Option: wire.OptUnreachable, VIDs: vids})
	}
}

// HandleFailureUpdate processes a received FAILURE_UPDATE on port q.
func (d *Daemon) HandleFailureUpdate(q vidtab.PortHandle, msg wire.UpdateMsg) {
	if d.Reg.IsAccepted(q) {
		d.Reg.Accepted.MarkUnreachable(q, msg.VIDs)
		d.sendExcept(q, wire.FailureUpdate, wire.UpdateMsg{Option: wire.OptUnreachable, VIDs: msg.VIDs})
		return
	}
	if !d.Reg.IsOffered(q) {
		return
	}

	d.Reg.Offered.ClearReachable(q)
	switch msg.Option {
	case wire.OptUnreachable:
		d.Reg.Offered.AddUnreachable(q, msg.VIDs)
	case wire.OptReachable:
		d.Reg.Offered.AddReachable(q, msg.VIDs)
	}

	if d.Cfg.IsLeaf {
		return
	}
	if !d.Reg.Offered.AllClean() {
		vids := d.Reg.Offered.AllUnreachableVIDs()
		d.sendAccepted(-1, wire.FailureUpdate, wire.UpdateMsg{Option: wire.OptUnreachable, VIDs: vids})
	}
}

// HandleRecoverUpdate processes a received RECOVER_UPDATE on port q.
// Propagation is gated on whether the relevant table was dirty before
// this update was applied: a transition that starts dirty still
// propagates the remaining delta (possibly now empty), a transition
// that starts and ends clean emits nothing.
func (d *Daemon) HandleRecoverUpdate(q vidtab.PortHandle, msg wire.UpdateMsg) {
	if d.Reg.IsAccepted(q) {
		d.Reg.Accepted.MarkReachable(q, msg.VIDs)
		d.sendExcept(q, wire.RecoverUpdate, wire.UpdateMsg{Option: msg.Option, VIDs: msg.VIDs})
		return
	}
	if !d.Reg.IsOffered(q) {
		return
	}

	wasDirty := !d.Reg.Offered.AllClean()
	switch msg.Option {
	case wire.OptUnreachable:
		d.Reg.Offered.RemoveUnreachable(q, msg.VIDs)
	case wire.OptReachable:
		d.Reg.Offered.RemoveReachable(q, msg.VIDs)
	}

	if d.Cfg.IsLeaf || !wasDirty {
		return
	}
	vids := d.Reg.Offered.AllUnreachableVIDs()
	d.sendAccepted(-1, wire.RecoverUpdate, wire.UpdateMsg{Option: wire.OptUnreachable, VIDs: vids})
}
