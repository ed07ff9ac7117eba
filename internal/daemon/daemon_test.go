package daemon

import (
	"testing"

	"github.com/mtp-dcn/mtpd/internal/config"
	"github.com/mtp-dcn/mtpd/internal/vidtab"
	"github.com/mtp-dcn/mtpd/internal/wire"
)

// fakeTransport records every frame handed to it instead of touching a
// real socket, keyed by egress interface name.
type fakeTransport struct {
	sentControl map[string][][]byte
	sentCompute [][]byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{sentControl: make(map[string][][]byte)}
}

func (f *fakeTransport) SendControl(ifaceName string, frame []byte) error {
	f.sentControl[ifaceName] = append(f.sentControl[ifaceName], frame)
	return nil
}

func (f *fakeTransport) SendCompute(frame []byte) error {
	f.sentCompute = append(f.sentCompute, frame)
	return nil
}

// decodeSent strips the test's fixed-size fake Ethernet header and
// decodes the MTP body of the most recent frame sent on ifaceName.
func decodeSent(t *testing.T, f *fakeTransport, ifaceName string) (wire.MsgType, interface{}) {
	t.Helper()
	frames := f.sentControl[ifaceName]
	if len(frames) == 0 {
		t.Fatalf("no frame sent on %v", ifaceName)
	}
	last := frames[len(frames)-1]
	mt, body, err := wire.DecodeBody(last[len(testEthHeader):])
	if err != nil {
		t.Fatalf("decode sent frame on %v: %v", ifaceName, err)
	}
	return mt, body
}

var testEthHeader = []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x88, 0x50}

func newTestDaemon(t *testing.T, cfg *config.Config) (*Daemon, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	now := int64(1000)
	d := New(cfg, ft, func() int64 { return now }, func(string) (map[string]bool, error) {
		return map[string]bool{}, nil
	})
	return d, ft
}

func addUpPort(d *Daemon, name string, portNum int) vidtab.PortHandle {
	h := d.Reg.AddControlPort(name, portNum, testEthHeader)
	port := d.Reg.Port(h)
	port.IsUP = true
	port.Start = true
	return h
}
