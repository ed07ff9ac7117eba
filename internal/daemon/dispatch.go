package daemon

import (
	log "github.com/mtp-dcn/mtpd/internal/mtplog"
	"github.com/mtp-dcn/mtpd/internal/vidtab"
	"github.com/mtp-dcn/mtpd/internal/wire"
)

// DispatchControl decodes a frame received on the control socket and
// routes it to the matching handler. ifName is the ingress interface
// name as reported by the kernel. Malformed frames and frames from an
// interface this node doesn't recognize are dropped silently (debug-log
// only), per the error handling design.
func (d *Daemon) DispatchControl(ifName string, frame []byte) {
	etherType, payload, ok := wire.ParseEthHeader(frame)
	if !ok || etherType != wire.EtherTypeMTP {
		log.Debug("dropping non-MTP frame on %v", ifName)
		return
	}

	h, ok := d.Reg.PortByName(ifName)
	if !ok {
		log.Debug("dropping MTP frame from unrecognized interface %v", ifName)
		return
	}

	msgType, body, err := wire.DecodeBody(payload)
	if err != nil {
		log.Debug("dropping malformed MTP frame on %v: %v", ifName, err)
		return
	}

	d.dispatchMessage(h, msgType, body)
}

func (d *Daemon) dispatchMessage(h vidtab.PortHandle, msgType wire.MsgType, body interface{}) {
	switch msgType {
	case wire.HelloNR:
		d.HandleHelloNR(h, body.(wire.HelloNRMsg))
	case wire.JoinReq:
		d.HandleJoinReq(h, body.(wire.VIDListMsg))
	case wire.JoinRes:
		d.HandleJoinRes(h, body.(wire.VIDListMsg))
	case wire.JoinAck:
		d.HandleJoinAck(h, body.(wire.VIDListMsg))
	case wire.StartHello:
		d.HandleStartHello(h)
	case wire.KeepAlive:
		d.HandleKeepAlive(h)
	case wire.FailureUpdate:
		d.HandleFailureUpdate(h, body.(wire.UpdateMsg))
	case wire.RecoverUpdate:
		d.HandleRecoverUpdate(h, body.(wire.UpdateMsg))
	case wire.DataMsg:
		d.dispatchDataMsg(h, body.(wire.DataMsgBody))
	default:
		log.Debug("dropping unknown MTP message type %v", msgType)
	}
}

func (d *Daemon) dispatchDataMsg(ingress vidtab.PortHandle, msg wire.DataMsgBody) {
	if d.Cfg.IsLeaf {
		frame, err := d.HandleLeafEgress(msg)
		if err != nil {
			log.Error("%v", err)
			return
		}
		if err := d.T.SendCompute(frame); err != nil {
			log.Error("%v", err)
		}
		return
	}
	d.HandleSpineForward(ingress, msg)
}

// DispatchCompute decodes an IPv4 frame received on the leaf's compute
// socket and runs the encap/multipath-select path.
func (d *Daemon) DispatchCompute(frame []byte) {
	etherType, payload, ok := wire.ParseEthHeader(frame)
	if !ok || etherType != wire.EtherTypeIPv4 {
		log.Debug("dropping non-IPv4 frame on compute port")
		return
	}

	src, dst, err := wire.ParseIPv4SrcDst(payload)
	if err != nil {
		log.Debug("dropping malformed IPv4 frame on compute port: %v", err)
		return
	}

	d.HandleComputeIngress(src, dst, payload)
}
