package wire

import (
	"reflect"
	"sort"
	"testing"

	"github.com/mtp-dcn/mtpd/internal/vidtab"
)

func sortedVIDs(vids []vidtab.VID) []vidtab.VID {
	out := append([]vidtab.VID(nil), vids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestVIDListRoundTrip(t *testing.T) {
	vids := []vidtab.VID{"1", "4.2", "4.3.1"}
	enc := EncodeVIDList(vids)
	got, rest, err := DecodeVIDList(enc)
	if err != nil {
		t.Fatalf("DecodeVIDList: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("expected no trailing bytes, got %d", len(rest))
	}
	if !reflect.DeepEqual(sortedVIDs(got), sortedVIDs(vids)) {
		t.Fatalf("round trip mismatch: got %v want %v", got, vids)
	}
}

func TestHelloNRRoundTrip(t *testing.T) {
	msg := HelloNRMsg{Tier: 1, VIDs: []vidtab.VID{"4"}}
	enc, err := EncodeBody(HelloNR, msg)
	if err != nil {
		t.Fatalf("EncodeBody: %v", err)
	}
	mt, body, err := DecodeBody(enc)
	if err != nil {
		t.Fatalf("DecodeBody: %v", err)
	}
	if mt != HelloNR {
		t.Fatalf("got type %v want HelloNR", mt)
	}
	got := body.(HelloNRMsg)
	if got.Tier != msg.Tier || !reflect.DeepEqual(got.VIDs, msg.VIDs) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, msg)
	}
}

func TestDataMsgRoundTripBitExact(t *testing.T) {
	payload := []byte{0x45, 0x00, 0x00, 0x1c, 0xde, 0xad, 0xbe, 0xef}
	msg := DataMsgBody{SrcVID: 1, DestVID: 4, Payload: payload}
	enc, err := EncodeBody(DataMsg, msg)
	if err != nil {
		t.Fatalf("EncodeBody: %v", err)
	}
	mt, body, err := DecodeBody(enc)
	if err != nil {
		t.Fatalf("DecodeBody: %v", err)
	}
	if mt != DataMsg {
		t.Fatalf("got type %v want DataMsg", mt)
	}
	got := body.(DataMsgBody)
	if got.SrcVID != msg.SrcVID || got.DestVID != msg.DestVID || !reflect.DeepEqual(got.Payload, msg.Payload) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, msg)
	}
}

func TestFailureUpdateRoundTrip(t *testing.T) {
	msg := UpdateMsg{Option: OptUnreachable, VIDs: []vidtab.VID{"1", "2.3"}}
	enc, err := EncodeBody(FailureUpdate, msg)
	if err != nil {
		t.Fatalf("EncodeBody: %v", err)
	}
	mt, body, err := DecodeBody(enc)
	if err != nil {
		t.Fatalf("DecodeBody: %v", err)
	}
	if mt != FailureUpdate {
		t.Fatalf("got type %v want FailureUpdate", mt)
	}
	got := body.(UpdateMsg)
	if got.Option != msg.Option || !reflect.DeepEqual(sortedVIDs(got.VIDs), sortedVIDs(msg.VIDs)) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, msg)
	}
}

func TestEmptyBodyMessages(t *testing.T) {
	for _, mt := range []MsgType{StartHello, KeepAlive} {
		enc, err := EncodeBody(mt, nil)
		if err != nil {
			t.Fatalf("EncodeBody(%v): %v", mt, err)
		}
		got, _, err := DecodeBody(enc)
		if err != nil {
			t.Fatalf("DecodeBody(%v): %v", mt, err)
		}
		if got != mt {
			t.Fatalf("got %v want %v", got, mt)
		}
	}
}
