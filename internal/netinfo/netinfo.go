// Package netinfo answers the "is this interface still physically
// present" question used by the keep-alive immediate-link-down detector.
// It reads /proc/net/dev directly rather than re-enumerating interfaces
// through the socket layer, since that file lists exactly the interfaces
// visible inside the current network namespace -- the same namespace the
// emulator built this node's veth pairs in.
package netinfo

import (
	"strings"

	proc "github.com/c9s/goprocinfo/linux"
)

const procNetDev = "/proc/net/dev"

// Present returns the set of interface names currently visible in
// /proc/net/dev whose name is prefixed by nodeName, matching the
// bootstrap discovery rule in the interface classifier.
func Present(nodeName string) (map[string]bool, error) {
	stat, err := proc.ReadNetworkStat(procNetDev)
	if err != nil {
		return nil, err
	}

	out := make(map[string]bool, len(stat))
	for _, s := range stat {
		name := strings.TrimSpace(s.Iface)
		if strings.HasPrefix(name, nodeName) {
			out[name] = true
		}
	}
	return out, nil
}
