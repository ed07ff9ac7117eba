package daemon

import (
	"testing"

	"github.com/mtp-dcn/mtpd/internal/config"
	"github.com/mtp-dcn/mtpd/internal/vidtab"
	"github.com/mtp-dcn/mtpd/internal/wire"
)

func leafConfig() *config.Config {
	return &config.Config{NodeName: "leaf1", Tier: 1, IsLeaf: true, MyVID: "4"}
}

// scenario 6: the hash is a pure function of its input, so the same key
// always yields the same value. Port choice and spread over candidates
// are checked in TestPickPortDeterministicAndSpreads.
func TestJenkinsOneAtATimeStable(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"zeros", []byte{0, 0, 0, 0}},
		{"small", []byte{1, 2, 3, 4}},
		{"large octets", []byte{0xff, 0xfe, 0xfd, 0xfc}},
	}
	for _, c := range cases {
		first := jenkinsOneAtATime(c.data)
		second := jenkinsOneAtATime(c.data)
		if first != second {
			t.Fatalf("%v: hash not stable across calls: %d != %d", c.name, first, second)
		}
	}
}

func TestPickPortDeterministicAndSpreads(t *testing.T) {
	available := []vidtab.PortHandle{0, 1, 2}

	// same inputs always pick the same port
	a := pickPort(available, [4]byte{10, 0, 1, 5}, [4]byte{10, 0, 2, 9})
	b := pickPort(available, [4]byte{10, 0, 1, 5}, [4]byte{10, 0, 2, 9})
	if a != b {
		t.Fatalf("pickPort not deterministic: %v != %v", a, b)
	}

	// sweeping the low src/dst octets should eventually land on every
	// candidate port, not just one
	seen := map[vidtab.PortHandle]bool{}
	for i := 0; i < 256; i++ {
		h := pickPort(available, [4]byte{10, 0, byte(i), 5}, [4]byte{10, 0, 2, 9})
		seen[h] = true
	}
	if len(seen) != len(available) {
		t.Fatalf("expected pickPort to spread across all %d candidates, saw %d", len(available), len(seen))
	}
}

func TestPickPortSingleCandidate(t *testing.T) {
	available := []vidtab.PortHandle{5}
	h := pickPort(available, [4]byte{1, 2, 3, 4}, [4]byte{5, 6, 7, 8})
	if h != 5 {
		t.Fatalf("expected the only candidate to be picked, got %v", h)
	}
}

// HandleComputeIngress: a leaf encapsulates a tenant IPv4 packet into a
// DATA_MSG and sends it out an available offered port.
func TestHandleComputeIngressEncapsulates(t *testing.T) {
	d, ft := newTestDaemon(t, leafConfig())
	up := addUpPort(d, "leaf1-eth1", 1)
	if err := d.Reg.MarkOffered(up); err != nil {
		t.Fatal(err)
	}

	payload := []byte{0x45, 0x00, 0x00, 0x1c}
	d.HandleComputeIngress([4]byte{10, 0, 4, 7}, [4]byte{10, 0, 9, 2}, payload)

	mt, body := decodeSent(t, ft, "leaf1-eth1")
	if mt != wire.DataMsg {
		t.Fatalf("got %v want DataMsg", mt)
	}
	got := body.(wire.DataMsgBody)
	if got.SrcVID != 4 || got.DestVID != 9 {
		t.Fatalf("unexpected VIDs: %+v", got)
	}
}

func TestHandleComputeIngressNoAvailablePortDrops(t *testing.T) {
	d, ft := newTestDaemon(t, leafConfig())
	down := addUpPort(d, "leaf1-eth1", 1)
	if err := d.Reg.MarkOffered(down); err != nil {
		t.Fatal(err)
	}
	d.Reg.Port(down).IsUP = false

	d.HandleComputeIngress([4]byte{10, 0, 4, 7}, [4]byte{10, 0, 9, 2}, []byte{1, 2, 3})

	if len(ft.sentControl["leaf1-eth1"]) != 0 {
		t.Fatalf("expected no frame sent when no offered port is available")
	}
}

// HandleSpineForward: a DATA_MSG whose destination VID is owned by an
// up, unblocked accepted port is forwarded there directly.
func TestHandleSpineForwardPrefersAcceptedOwner(t *testing.T) {
	d, ft := newTestDaemon(t, midSpineConfig())
	owner := addUpPort(d, "t1-eth1", 1)
	other := addUpPort(d, "t1-eth2", 2)

	if err := d.Reg.MarkAccepted(owner); err != nil {
		t.Fatal(err)
	}
	d.Reg.Accepted.AddVIDs(owner, []vidtab.VID{"9"})
	if err := d.Reg.MarkOffered(other); err != nil {
		t.Fatal(err)
	}

	msg := wire.DataMsgBody{SrcVID: 4, DestVID: 9, Payload: []byte{1, 2, 3}}
	d.HandleSpineForward(other, msg)

	mt, body := decodeSent(t, ft, "t1-eth1")
	if mt != wire.DataMsg {
		t.Fatalf("got %v want DataMsg", mt)
	}
	got := body.(wire.DataMsgBody)
	if got.DestVID != 9 {
		t.Fatalf("unexpected forwarded message: %+v", got)
	}
	if len(ft.sentControl["t1-eth2"]) != 0 {
		t.Fatalf("should not have hash-multipathed when an accepted owner was available")
	}
}

// HandleSpineForward: with no accepted owner, the message is
// hash-multipathed across the available offered ports.
func TestHandleSpineForwardFallsBackToOffered(t *testing.T) {
	d, ft := newTestDaemon(t, midSpineConfig())
	up1 := addUpPort(d, "t1-eth1", 1)
	up2 := addUpPort(d, "t1-eth2", 2)
	if err := d.Reg.MarkOffered(up1); err != nil {
		t.Fatal(err)
	}
	if err := d.Reg.MarkOffered(up2); err != nil {
		t.Fatal(err)
	}

	msg := wire.DataMsgBody{SrcVID: 4, DestVID: 99, Payload: []byte{9, 9}}
	d.HandleSpineForward(up1, msg)

	sent1 := len(ft.sentControl["t1-eth1"])
	sent2 := len(ft.sentControl["t1-eth2"])
	if sent1+sent2 != 1 {
		t.Fatalf("expected exactly one offered port to receive the forwarded message, got eth1=%d eth2=%d", sent1, sent2)
	}
}

func TestHandleSpineForwardNoRouteDrops(t *testing.T) {
	d, ft := newTestDaemon(t, midSpineConfig())
	msg := wire.DataMsgBody{SrcVID: 4, DestVID: 99, Payload: []byte{9, 9}}
	d.HandleSpineForward(0, msg)

	for name, frames := range ft.sentControl {
		if len(frames) != 0 {
			t.Fatalf("expected no frame sent on %v with no route available", name)
		}
	}
}

// HandleLeafEgress: a decoded DATA_MSG is rebuilt into an Ethernet frame
// using the compute port's header template.
func TestHandleLeafEgressRebuildsFrame(t *testing.T) {
	d, _ := newTestDaemon(t, leafConfig())
	computeHdr := []byte{1, 1, 1, 1, 1, 1, 2, 2, 2, 2, 2, 2, 0x08, 0x00}
	d.SetComputeEthHeader(computeHdr)

	payload := []byte{0x45, 0x00, 0xde, 0xad}
	frame, err := d.HandleLeafEgress(wire.DataMsgBody{SrcVID: 1, DestVID: 2, Payload: payload})
	if err != nil {
		t.Fatalf("HandleLeafEgress: %v", err)
	}
	if len(frame) != len(computeHdr)+len(payload) {
		t.Fatalf("unexpected frame length %d", len(frame))
	}
	for i, b := range computeHdr {
		if frame[i] != b {
			t.Fatalf("header byte %d mismatch: got %x want %x", i, frame[i], b)
		}
	}
	for i, b := range payload {
		if frame[len(computeHdr)+i] != b {
			t.Fatalf("payload byte %d mismatch: got %x want %x", i, frame[len(computeHdr)+i], b)
		}
	}
}

func TestHandleLeafEgressNoHeaderErrors(t *testing.T) {
	d, _ := newTestDaemon(t, leafConfig())
	if _, err := d.HandleLeafEgress(wire.DataMsgBody{Payload: []byte{1}}); err == nil {
		t.Fatalf("expected an error when no compute Ethernet header is installed")
	}
}
