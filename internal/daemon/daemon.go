// Package daemon implements the MTP-DCN control and data plane: the
// per-daemon state described in the design notes (one value threaded
// through every handler, no process-wide singletons besides the log
// sink), the VID propagation handshake, keep-alive/failure detection,
// failure/recover flooding, and IPv4<->MTP forwarding.
package daemon

import (
	"fmt"

	"github.com/mtp-dcn/mtpd/internal/config"
	log "github.com/mtp-dcn/mtpd/internal/mtplog"
	"github.com/mtp-dcn/mtpd/internal/vidtab"
	"github.com/mtp-dcn/mtpd/internal/wire"
)

// Timer constants from the specification.
const (
	HelloTimerMs = 500
	DeadTimerMs  = 1500
	SettleMs     = 3000
)

// Transport is the boundary between the protocol state machine and the
// raw sockets it sends frames on. iface.Sockets (internal/iface) provides
// the implementation over x/sys/unix AF_PACKET sockets; tests use an
// in-memory fake.
type Transport interface {
	// SendControl transmits a fully framed MTP Ethernet frame out the
	// named control interface.
	SendControl(ifaceName string, frame []byte) error
	// SendCompute transmits a fully framed IPv4 Ethernet frame out the
	// leaf's compute interface.
	SendCompute(frame []byte) error
}

// Clock abstracts wall-clock milliseconds so tests can drive time
// deterministically.
type Clock func() int64

// Daemon is the complete per-process state: configuration, the port and
// VID tables, and the collaborators (transport, clock) it was built
// with.
type Daemon struct {
	Cfg   *config.Config
	Reg   *vidtab.Registry
	T     Transport
	Now   Clock
	Probe func(nodeName string) (map[string]bool, error)

	computeEthHeader []byte
}

// New builds a Daemon with an empty registry. Control ports must be
// added with AddControlPort before the event loop starts.
func New(cfg *config.Config, t Transport, now Clock, probe func(string) (map[string]bool, error)) *Daemon {
	return &Daemon{
		Cfg:   cfg,
		Reg:   vidtab.NewRegistry(),
		T:     t,
		Now:   now,
		Probe: probe,
	}
}

// SetComputeEthHeader installs the prebuilt Ethernet header template for
// the leaf's compute-facing egress, used when decapsulating DATA_MSG
// frames back onto the tenant network.
func (d *Daemon) SetComputeEthHeader(hdr []byte) {
	d.computeEthHeader = hdr
}

// send builds an MTP frame (port's Ethernet header + type byte + body)
// and hands it to the transport.
func (d *Daemon) send(h vidtab.PortHandle, msgType wire.MsgType, body interface{}) error {
	port := d.Reg.Port(h)
	mtp, err := wire.EncodeBody(msgType, body)
	if err != nil {
		return fmt.Errorf("encode %v for %v: %w", msgType, port.Name, err)
	}
	frame := append(append([]byte{}, port.EthHeader...), mtp...)
	if err := d.T.SendControl(port.Name, frame); err != nil {
		return fmt.Errorf("send %v on %v: %w", msgType, port.Name, err)
	}
	port.LastSentMs = d.Now()
	return nil
}

// sendExcept sends msgType/body out every up control port other than
// except (-1 to exclude none).
func (d *Daemon) sendExcept(except vidtab.PortHandle, msgType wire.MsgType, body interface{}) {
	for _, h := range d.Reg.Ports() {
		if h == except {
			continue
		}
		if !d.Reg.Port(h).IsUP {
			continue
		}
		if err := d.send(h, msgType, body); err != nil {
			log.Error("%v", err)
		}
	}
}

// sendAccepted sends msgType/body out every up accepted-side port other
// than except.
func (d *Daemon) sendAccepted(except vidtab.PortHandle, msgType wire.MsgType, body interface{}) {
	for _, h := range d.Reg.AcceptedPorts() {
		if h == except {
			continue
		}
		if !d.Reg.Port(h).IsUP {
			continue
		}
		if err := d.send(h, msgType, body); err != nil {
			log.Error("%v", err)
		}
	}
}

// sendOffered sends msgType/body out every up offered-side port other
// than except.
func (d *Daemon) sendOffered(except vidtab.PortHandle, msgType wire.MsgType, body interface{}) {
	for _, h := range d.Reg.OfferedPorts() {
		if h == except {
			continue
		}
		if !d.Reg.Port(h).IsUP {
			continue
		}
		if err := d.send(h, msgType, body); err != nil {
			log.Error("%v", err)
		}
	}
}
