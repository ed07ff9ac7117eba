// Package vidtab holds the VID type and the per-daemon port and VID
// tables: the control-port registry, the accepted-VID table (downstream)
// and the offered-VID table (upstream), with their reachable/unreachable
// sub-tables.
package vidtab

import "strconv"

// VID is a dotted-integer path identifier anchored at a leaf, e.g. "4"
// or "4.2". Maximum wire length is WireLen bytes including terminator.
type VID string

// WireLen is the zero-padded on-wire width of a VID string.
const WireLen = 64

// Extend appends ".<port>" to v, as the lower-tier node does when it
// receives a Join-Req on ingress port number port.
func (v VID) Extend(port int) VID {
	return VID(string(v) + "." + strconv.Itoa(port))
}

// RootInt parses v as a bare (unextended) integer VID, used for the
// 2-byte on-wire encoding in DATA_MSG.
func (v VID) RootInt() (uint16, bool) {
	n, err := strconv.ParseUint(string(v), 10, 16)
	if err != nil {
		return 0, false
	}
	return uint16(n), true
}

// FromRootInt renders a bare integer VID as a dotted string.
func FromRootInt(n uint16) VID {
	return VID(strconv.Itoa(int(n)))
}
