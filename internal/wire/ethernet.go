// Package wire implements the MTP Ethernet framing and message codec:
// the 14-byte Ethernet II envelope every MTP frame shares, and the
// encode/decode pair for the nine MTP message types plus the VID-list
// sub-format they share.
package wire

import (
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// EtherTypes used on the wire.
const (
	EtherTypeMTP  = 0x8850
	EtherTypeIPv4 = 0x0800
)

var broadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// BuildEthHeader serializes the 14-byte Ethernet II header an egress
// port prepends to every frame it sends: broadcast destination, the
// port's own MAC as source, and the given EtherType. Built once at
// port-table construction time so the send path only ever touches the
// payload after it, per the design note on prebuilt headers.
func BuildEthHeader(srcMAC net.HardwareAddr, etherType uint16) ([]byte, error) {
	eth := layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       broadcastMAC,
		EthernetType: layers.EthernetType(etherType),
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: false}
	if err := eth.SerializeTo(buf, opts); err != nil {
		return nil, err
	}

	out := make([]byte, len(buf.Bytes()))
	copy(out, buf.Bytes())
	return out, nil
}

// ParseEthHeader decodes the leading 14 bytes of an incoming frame and
// returns the EtherType plus the remaining payload. MTP (0x8850) has no
// registered gopacket next-layer decoder, so DecodeLayers always reports
// gopacket.UnsupportedLayerType for it once the Ethernet header itself
// is decoded; that case (and the same for the raw tenant IPv4 frames,
// which this daemon decodes itself rather than via layers.IPv4) is
// expected here, not an error.
func ParseEthHeader(frame []byte) (etherType uint16, payload []byte, ok bool) {
	var eth layers.Ethernet
	parser := gopacket.NewDecodingLayerParser(layers.LayerTypeEthernet, &eth)
	decoded := []gopacket.LayerType{}
	err := parser.DecodeLayers(frame, &decoded)
	if err != nil {
		if _, unsupported := err.(gopacket.UnsupportedLayerType); !unsupported {
			return 0, nil, false
		}
	}
	for _, lt := range decoded {
		if lt == layers.LayerTypeEthernet {
			return uint16(eth.EthernetType), eth.Payload, true
		}
	}
	return 0, nil, false
}
