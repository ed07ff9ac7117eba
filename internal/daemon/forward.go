package daemon

import (
	"encoding/binary"
	"fmt"

	"github.com/mtp-dcn/mtpd/internal/config"
	log "github.com/mtp-dcn/mtpd/internal/mtplog"
	"github.com/mtp-dcn/mtpd/internal/vidtab"
	"github.com/mtp-dcn/mtpd/internal/wire"
)

// jenkinsOneAtATime is Bob Jenkins' one-at-a-time hash, used by the
// specification's multipath selection. No example repo in the retrieval
// pack carries a ready-made implementation of this specific algorithm,
// so it is written directly from the published reference algorithm.
func jenkinsOneAtATime(data []byte) uint32 {
	var hash uint32
	for _, b := range data {
		hash += uint32(b)
		hash += hash << 10
		hash ^= hash >> 6
	}
	hash += hash << 3
	hash ^= hash >> 11
	hash += hash << 15
	return hash
}

// availableOfferedPorts returns the offered ports usable as an egress
// for dest: up, not blocked for dest (i.e. dest is not in that port's
// unreachable sub-table), and whose outward VID set could reach dest.
// An offered port's own advertised set doesn't gate forwarding (it
// advertises this node's own reachable VIDs upward, not what it can
// deliver), so "could reach dest" is satisfied by any clean-for-dest up
// offered port.
func (d *Daemon) availableOfferedPorts(dest vidtab.VID) []vidtab.PortHandle {
	var out []vidtab.PortHandle
	for _, h := range d.Reg.OfferedPorts() {
		port := d.Reg.Port(h)
		if !port.IsUP {
			continue
		}
		if d.offeredBlocks(h, dest) {
			continue
		}
		out = append(out, h)
	}
	return out
}

// offeredBlocks reports whether h's own unreachable sub-table currently
// lists dest.
func (d *Daemon) offeredBlocks(h vidtab.PortHandle, dest vidtab.VID) bool {
	return d.Reg.Offered.HasUnreachable(h, dest)
}

// pickPort selects one of the available ports deterministically via the
// Jenkins hash of the 4-byte (src[2], src[3], dst[2], dst[3]) string.
func pickPort(available []vidtab.PortHandle, srcIP, dstIP [4]byte) vidtab.PortHandle {
	key := []byte{srcIP[2], srcIP[3], dstIP[2], dstIP[3]}
	h := jenkinsOneAtATime(key)
	return available[int(h)%len(available)]
}

// HandleComputeIngress implements leaf ingress from a compute port: an
// IPv4 packet received from a tenant server is encapsulated in a
// DATA_MSG and sent out one of the available offered ports, chosen by
// hash multipath.
func (d *Daemon) HandleComputeIngress(srcIP, dstIP [4]byte, ipv4Payload []byte) {
	srcVID := uint16(srcIP[config.VIDOctet-1])
	destVID := uint16(dstIP[config.VIDOctet-1])

	available := d.availableOfferedPorts(vidtab.FromRootInt(destVID))
	if len(available) == 0 {
		log.Debug("no available offered port for dest VID %d, dropping", destVID)
		return
	}

	h := pickPort(available, srcIP, dstIP)
	body := wire.DataMsgBody{SrcVID: srcVID, DestVID: destVID, Payload: ipv4Payload}
	if err := d.send(h, wire.DataMsg, body); err != nil {
		log.Error("%v", err)
	}
}

// HandleSpineForward implements spine forwarding of a received DATA_MSG:
// prefer the accepted port that owns destVID if it is up and not marked
// unreachable there, otherwise hash-multipath across available offered
// ports.
func (d *Daemon) HandleSpineForward(ingress vidtab.PortHandle, msg wire.DataMsgBody) {
	dest := vidtab.FromRootInt(msg.DestVID)

	if h, ok := d.Reg.Accepted.FindReachable(d.Reg, dest); ok {
		if err := d.send(h, wire.DataMsg, msg); err != nil {
			log.Error("%v", err)
		}
		return
	}

	srcIP, dstIP := vidPairToBytes(msg.SrcVID, msg.DestVID)
	available := d.availableOfferedPorts(dest)
	if len(available) == 0 {
		log.Debug("no available offered port for dest VID %d, dropping", msg.DestVID)
		return
	}
	h := pickPort(available, srcIP, dstIP)
	if err := d.send(h, wire.DataMsg, msg); err != nil {
		log.Error("%v", err)
	}
}

// vidPairToBytes builds the address pair a spine hashes for multipath
// selection from the two on-wire VID integers: each VID is written
// big-endian into bytes 2-3 of its address, so the hash key is
// (src>>8, src&0xff, dst>>8, dst&0xff). The tenant host octets are not
// carried in DATA_MSG, so this key differs from the one the leaf hashed.
func vidPairToBytes(srcVID, destVID uint16) (src [4]byte, dst [4]byte) {
	binary.BigEndian.PutUint16(src[2:4], srcVID)
	binary.BigEndian.PutUint16(dst[2:4], destVID)
	return
}

// HandleLeafEgress implements leaf egress to compute: strip the 5-byte
// MTP header (already done by the caller, msg is the decoded body),
// rebuild an Ethernet frame using the compute port's header template,
// and return it ready to inject onto the compute interface.
func (d *Daemon) HandleLeafEgress(msg wire.DataMsgBody) ([]byte, error) {
	if d.computeEthHeader == nil {
		return nil, fmt.Errorf("forward: no compute Ethernet header installed")
	}
	frame := append(append([]byte{}, d.computeEthHeader...), msg.Payload...)
	return frame, nil
}
