//go:build linux

package iface

import "fmt"

// Sockets is the daemon.Transport implementation backed by real raw
// sockets: one shared control socket for every MTP control port, and
// one compute socket for the leaf's tenant-facing IPv4 interface.
type Sockets struct {
	Control *RawSocket
	Compute *RawSocket // nil on spines

	ComputeIfName string
}

func (s *Sockets) SendControl(ifaceName string, frame []byte) error {
	return s.Control.Send(ifaceName, frame)
}

func (s *Sockets) SendCompute(frame []byte) error {
	if s.Compute == nil {
		return fmt.Errorf("iface: no compute socket on this node")
	}
	return s.Compute.Send(s.ComputeIfName, frame)
}

// RecvControl performs one non-blocking read on the shared control
// socket, returning the ingress interface name alongside the frame.
func (s *Sockets) RecvControl(buf []byte) (n int, ifName string, err error) {
	return s.Control.Recv(buf)
}

// RecvCompute performs one non-blocking read on the compute socket.
func (s *Sockets) RecvCompute(buf []byte) (n int, ifName string, err error) {
	if s.Compute == nil {
		return 0, "", fmt.Errorf("iface: no compute socket on this node")
	}
	return s.Compute.Recv(buf)
}
