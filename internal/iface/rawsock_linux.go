//go:build linux

// Package iface provides the daemon's raw-socket packet I/O: one
// AF_PACKET socket for MTP control frames and one for tenant IPv4 frames
// (leaves only). Each socket also sends the frames of its own EtherType;
// there is no separate sending socket. Each socket is
// opened without binding to a specific interface, so it receives frames
// from every live interface on the host; the kernel tags each received
// frame with the ingress interface index via sockaddr_ll, and sends
// target a specific interface the same way.
package iface

import (
	"encoding/binary"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

func htons(v uint16) uint16 {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return binary.LittleEndian.Uint16(b[:])
}

// RawSocket is a single non-blocking AF_PACKET socket filtering on one
// EtherType, usable for both receive and send.
type RawSocket struct {
	fd    int
	proto uint16
}

// OpenRaw opens a non-blocking AF_PACKET/SOCK_RAW socket, not bound to
// any one interface, filtering frames of the given EtherType.
func OpenRaw(etherType uint16) (*RawSocket, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_NONBLOCK, int(htons(etherType)))
	if err != nil {
		return nil, fmt.Errorf("iface: open raw socket for ethertype 0x%x: %w", etherType, err)
	}
	return &RawSocket{fd: fd, proto: etherType}, nil
}

// Close releases the underlying file descriptor.
func (s *RawSocket) Close() error {
	return unix.Close(s.fd)
}

// Recv performs one non-blocking read. EAGAIN/EWOULDBLOCK is reported
// back as the transient-I/O sentinel ErrWouldBlock for the caller to
// ignore per the error handling design.
func (s *RawSocket) Recv(buf []byte) (n int, ifName string, err error) {
	n, from, err := unix.Recvfrom(s.fd, buf, 0)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, "", ErrWouldBlock
		}
		return 0, "", err
	}
	ll, ok := from.(*unix.SockaddrLinklayer)
	if !ok {
		return n, "", fmt.Errorf("iface: unexpected sockaddr type on recv")
	}
	iface, err := net.InterfaceByIndex(ll.Ifindex)
	if err != nil {
		return n, "", fmt.Errorf("iface: resolve ifindex %d: %w", ll.Ifindex, err)
	}
	return n, iface.Name, nil
}

// Send transmits frame out the named interface.
func (s *RawSocket) Send(ifName string, frame []byte) error {
	iface, err := net.InterfaceByName(ifName)
	if err != nil {
		return fmt.Errorf("iface: resolve %v: %w", ifName, err)
	}
	addr := unix.SockaddrLinklayer{
		Protocol: htons(s.proto),
		Ifindex:  iface.Index,
	}
	if err := unix.Sendto(s.fd, frame, 0, &addr); err != nil {
		return fmt.Errorf("iface: send on %v: %w", ifName, err)
	}
	return nil
}
