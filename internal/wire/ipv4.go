package wire

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ParseIPv4SrcDst decodes an IPv4 packet (no Ethernet header) and
// returns its source and destination addresses as 4-byte arrays.
func ParseIPv4SrcDst(payload []byte) (src, dst [4]byte, err error) {
	var ip4 layers.IPv4
	parser := gopacket.NewDecodingLayerParser(layers.LayerTypeIPv4, &ip4)
	decoded := []gopacket.LayerType{}
	if err := parser.DecodeLayers(payload, &decoded); err != nil {
		if _, unsupported := err.(gopacket.UnsupportedLayerType); !unsupported {
			return src, dst, fmt.Errorf("wire: decode IPv4: %w", err)
		}
	}
	ip4src := ip4.SrcIP.To4()
	ip4dst := ip4.DstIP.To4()
	if ip4src == nil || ip4dst == nil {
		return src, dst, fmt.Errorf("wire: not an IPv4 packet")
	}
	copy(src[:], ip4src)
	copy(dst[:], ip4dst)
	return src, dst, nil
}
