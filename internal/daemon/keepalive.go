package daemon

import (
	log "github.com/mtp-dcn/mtpd/internal/mtplog"
	"github.com/mtp-dcn/mtpd/internal/vidtab"
	"github.com/mtp-dcn/mtpd/internal/wire"
)

// Tick runs one pass of the periodic control-port maintenance: keep-alive
// emission, miss-based detection, and the kernel presence probe for
// immediate link-down detection. Called once per main-loop iteration.
func (d *Daemon) Tick() {
	now := d.Now()

	for _, h := range d.Reg.Ports() {
		port := d.Reg.Port(h)
		if !port.Start {
			continue
		}

		if now-port.LastSentMs >= HelloTimerMs {
			if err := d.send(h, wire.KeepAlive, nil); err != nil {
				log.Error("%v", err)
			}
		}

		if port.IsUP && port.LastRecvMs > 0 && now-port.LastRecvMs >= DeadTimerMs {
			d.portDown(h, vidtab.FailMiss)
		}
	}

	d.immediateDetect(now)
}

// immediateDetect re-probes the kernel for which of this node's
// interfaces are still physically present, marking ports down whose
// interface has vanished and clearing FailDetect on ports whose
// interface has reappeared.
func (d *Daemon) immediateDetect(now int64) {
	present, err := d.Probe(d.Cfg.NodeName)
	if err != nil {
		log.Error("immediate-detect probe: %v", err)
		return
	}

	for _, h := range d.Reg.Ports() {
		port := d.Reg.Port(h)
		if !port.Start {
			continue
		}

		if !present[port.Name] {
			if port.IsUP {
				d.portDown(h, vidtab.FailDetect)
			}
			continue
		}

		if port.FailType == vidtab.FailDetect {
			port.FailType = vidtab.FailNone
		}
	}
}

// portDown transitions h to down state and runs the failure flood.
func (d *Daemon) portDown(h vidtab.PortHandle, ft vidtab.FailType) {
	port := d.Reg.Port(h)
	port.IsUP = false
	port.FailType = ft
	port.ContinueCt = 0
	d.onFailure(h)
}

// HandleKeepAlive processes a received KEEP_ALIVE on h. Reception always
// refreshes LastRecvMs regardless of the port's up/down state. While
// down, three consecutive on-time keep-alives (relative to the previous
// reception) bring the port back up and trigger the recover flood. A
// port marked FailDetect ignores keep-alives until the kernel probe
// clears that fail type.
func (d *Daemon) HandleKeepAlive(h vidtab.PortHandle) {
	now := d.Now()
	port := d.Reg.Port(h)
	prev := port.LastRecvMs
	port.LastRecvMs = now

	if port.IsUP {
		return
	}
	if port.FailType == vidtab.FailDetect {
		return
	}
	if prev <= 0 || now-prev >= DeadTimerMs {
		return
	}

	port.ContinueCt++
	if port.ContinueCt >= 3 {
		port.IsUP = true
		port.FailType = vidtab.FailNone
		d.onRecover(h)
	}
}
