package daemon

import (
	log "github.com/mtp-dcn/mtpd/internal/mtplog"
	"github.com/mtp-dcn/mtpd/internal/vidtab"
	"github.com/mtp-dcn/mtpd/internal/wire"
)

// StartBootstrap broadcasts HELLONR on every control port that has not
// yet resolved to the accepted or offered side, carrying this node's own
// VID set. Leaves call this once after the 3s settle delay
// with their single root VID; a spine calls the same function with its
// accepted VID set once it has learned something to offer upward.
func (d *Daemon) StartBootstrap(vids []vidtab.VID) {
	tier := byte(1)
	if !d.Cfg.IsLeaf {
		tier = byte(d.Cfg.Tier)
	}
	msg := wire.HelloNRMsg{Tier: tier, VIDs: vids}
	for _, h := range d.Reg.Ports() {
		if d.Reg.IsAccepted(h) || d.Reg.IsOffered(h) {
			continue
		}
		if err := d.send(h, wire.HelloNR, msg); err != nil {
			log.Error("%v", err)
		}
	}
}

// HandleHelloNR implements step 2: a higher-tier node replies with
// JOIN_REQ; a HELLONR from a sender at the same or a higher tier is
// dropped.
func (d *Daemon) HandleHelloNR(h vidtab.PortHandle, msg wire.HelloNRMsg) {
	if int(msg.Tier) >= d.Cfg.Tier {
		log.Debug("dropping HELLONR from %v: sender tier %d >= our tier %d", d.Reg.Port(h).Name, msg.Tier, d.Cfg.Tier)
		return
	}
	if err := d.send(h, wire.JoinReq, wire.VIDListMsg{VIDs: msg.VIDs}); err != nil {
		log.Error("%v", err)
	}
}

// HandleJoinReq implements step 3: the lower-tier node extends every VID
// with the ingress port suffix and replies JOIN_RES.
func (d *Daemon) HandleJoinReq(h vidtab.PortHandle, msg wire.VIDListMsg) {
	port := d.Reg.Port(h)
	extended := make([]vidtab.VID, len(msg.VIDs))
	for i, v := range msg.VIDs {
		extended[i] = v.Extend(port.PortNum)
	}
	if err := d.send(h, wire.JoinRes, wire.VIDListMsg{VIDs: extended}); err != nil {
		log.Error("%v", err)
	}
}

// HandleJoinRes implements step 4: the higher-tier node installs the
// VIDs into its accepted table keyed by h, then (unless it is the top
// spine) broadcasts HELLONR upward on its not-yet-resolved ports carrying
// every VID in its accepted table (the freshly-extended list included),
// and finally acknowledges on h.
func (d *Daemon) HandleJoinRes(h vidtab.PortHandle, msg wire.VIDListMsg) {
	if err := d.Reg.MarkAccepted(h); err != nil {
		log.Error("%v", err)
		return
	}
	d.Reg.Accepted.AddVIDs(h, msg.VIDs)

	if !d.Cfg.IsTopSpine {
		d.StartBootstrap(d.Reg.Accepted.AllVIDs())
	}

	if err := d.send(h, wire.JoinAck, wire.VIDListMsg{VIDs: msg.VIDs}); err != nil {
		log.Error("%v", err)
	}
}

// HandleJoinAck implements step 5: the lower-tier node installs the VIDs
// into its offered table keyed by h, marks h up and session-started, and
// sends START_HELLO.
func (d *Daemon) HandleJoinAck(h vidtab.PortHandle, msg wire.VIDListMsg) {
	if err := d.Reg.MarkOffered(h); err != nil {
		log.Error("%v", err)
		return
	}
	d.Reg.Offered.AddVIDs(h, msg.VIDs)

	port := d.Reg.Port(h)
	port.IsUP = true
	port.Start = true
	port.FailType = vidtab.FailNone
	port.ContinueCt = 3

	if err := d.send(h, wire.StartHello, nil); err != nil {
		log.Error("%v", err)
	}
}

// HandleStartHello implements step 6: the higher-tier node marks h up
// and session-started.
func (d *Daemon) HandleStartHello(h vidtab.PortHandle) {
	port := d.Reg.Port(h)
	port.IsUP = true
	port.Start = true
	port.FailType = vidtab.FailNone
	port.ContinueCt = 3
}
