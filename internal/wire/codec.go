package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/mtp-dcn/mtpd/internal/vidtab"
)

// MsgType identifies one of the nine MTP message types, carried as the
// single byte immediately after the Ethernet header.
type MsgType byte

const (
	HelloNR MsgType = iota
	JoinReq
	JoinRes
	JoinAck
	StartHello
	DataMsg
	KeepAlive
	FailureUpdate
	RecoverUpdate
)

// Option distinguishes the two FAILURE_UPDATE / RECOVER_UPDATE variants.
type Option byte

const (
	OptReachable   Option = 1
	OptUnreachable Option = 2
)

// HelloNRMsg is the body of a HELLONR message.
type HelloNRMsg struct {
	Tier byte
	VIDs []vidtab.VID
}

// VIDListMsg is the shared body shape for JOIN_REQ, JOIN_RES and
// JOIN_ACK: a bare VID list.
type VIDListMsg struct {
	VIDs []vidtab.VID
}

// DataMsgBody is the body of a DATA_MSG: two 2-byte VID integers
// followed by the original IPv4 packet, Ethernet header stripped.
type DataMsgBody struct {
	SrcVID  uint16
	DestVID uint16
	Payload []byte
}

// UpdateMsg is the shared body shape for FAILURE_UPDATE and
// RECOVER_UPDATE.
type UpdateMsg struct {
	Option Option
	VIDs   []vidtab.VID
}

// EncodeVIDList renders a VID list as a uint16 count followed by each
// VID zero-padded to WireLen bytes.
func EncodeVIDList(vids []vidtab.VID) []byte {
	out := make([]byte, 2, 2+len(vids)*vidtab.WireLen)
	binary.BigEndian.PutUint16(out, uint16(len(vids)))
	for _, v := range vids {
		field := make([]byte, vidtab.WireLen)
		copy(field, []byte(v))
		out = append(out, field...)
	}
	return out
}

// DecodeVIDList parses a VID list from the front of b and returns the
// VIDs plus whatever bytes followed it.
func DecodeVIDList(b []byte) ([]vidtab.VID, []byte, error) {
	if len(b) < 2 {
		return nil, nil, fmt.Errorf("wire: VID list truncated, no count field")
	}
	count := int(binary.BigEndian.Uint16(b))
	b = b[2:]

	need := count * vidtab.WireLen
	if len(b) < need {
		return nil, nil, fmt.Errorf("wire: VID list truncated, need %d bytes have %d", need, len(b))
	}

	vids := make([]vidtab.VID, count)
	for i := 0; i < count; i++ {
		field := b[i*vidtab.WireLen : (i+1)*vidtab.WireLen]
		end := 0
		for end < len(field) && field[end] != 0 {
			end++
		}
		vids[i] = vidtab.VID(field[:end])
	}
	return vids, b[need:], nil
}

// EncodeBody renders the MTP payload (type byte + body) for msgType
// given one of the *Msg body types above. HELLONR, JOIN_REQ, JOIN_RES,
// JOIN_ACK, KEEP_ALIVE and START_HELLO bodies are matched structurally.
func EncodeBody(msgType MsgType, body interface{}) ([]byte, error) {
	out := []byte{byte(msgType)}

	switch msgType {
	case HelloNR:
		m, ok := body.(HelloNRMsg)
		if !ok {
			return nil, fmt.Errorf("wire: HELLONR needs HelloNRMsg body")
		}
		out = append(out, m.Tier)
		out = append(out, EncodeVIDList(m.VIDs)...)

	case JoinReq, JoinRes, JoinAck:
		m, ok := body.(VIDListMsg)
		if !ok {
			return nil, fmt.Errorf("wire: %v needs VIDListMsg body", msgType)
		}
		out = append(out, EncodeVIDList(m.VIDs)...)

	case StartHello, KeepAlive:
		// empty body

	case DataMsg:
		m, ok := body.(DataMsgBody)
		if !ok {
			return nil, fmt.Errorf("wire: DATA_MSG needs DataMsgBody body")
		}
		var hdr [4]byte
		binary.BigEndian.PutUint16(hdr[0:2], m.SrcVID)
		binary.BigEndian.PutUint16(hdr[2:4], m.DestVID)
		out = append(out, hdr[:]...)
		out = append(out, m.Payload...)

	case FailureUpdate, RecoverUpdate:
		m, ok := body.(UpdateMsg)
		if !ok {
			return nil, fmt.Errorf("wire: %v needs UpdateMsg body", msgType)
		}
		out = append(out, byte(m.Option))
		out = append(out, EncodeVIDList(m.VIDs)...)

	default:
		return nil, fmt.Errorf("wire: unknown message type %v", msgType)
	}

	return out, nil
}

// DecodeBody parses the MTP payload (type byte + body) and returns the
// message type plus one of the *Msg body types above.
func DecodeBody(payload []byte) (MsgType, interface{}, error) {
	if len(payload) < 1 {
		return 0, nil, fmt.Errorf("wire: frame too short, no type byte")
	}
	msgType := MsgType(payload[0])
	rest := payload[1:]

	switch msgType {
	case HelloNR:
		if len(rest) < 1 {
			return 0, nil, fmt.Errorf("wire: HELLONR too short")
		}
		tier := rest[0]
		vids, _, err := DecodeVIDList(rest[1:])
		if err != nil {
			return 0, nil, err
		}
		return msgType, HelloNRMsg{Tier: tier, VIDs: vids}, nil

	case JoinReq, JoinRes, JoinAck:
		vids, _, err := DecodeVIDList(rest)
		if err != nil {
			return 0, nil, err
		}
		return msgType, VIDListMsg{VIDs: vids}, nil

	case StartHello, KeepAlive:
		return msgType, nil, nil

	case DataMsg:
		if len(rest) < 4 {
			return 0, nil, fmt.Errorf("wire: DATA_MSG too short")
		}
		src := binary.BigEndian.Uint16(rest[0:2])
		dst := binary.BigEndian.Uint16(rest[2:4])
		payloadCopy := make([]byte, len(rest)-4)
		copy(payloadCopy, rest[4:])
		return msgType, DataMsgBody{SrcVID: src, DestVID: dst, Payload: payloadCopy}, nil

	case FailureUpdate, RecoverUpdate:
		if len(rest) < 1 {
			return 0, nil, fmt.Errorf("wire: %v too short", msgType)
		}
		opt := Option(rest[0])
		vids, _, err := DecodeVIDList(rest[1:])
		if err != nil {
			return 0, nil, err
		}
		return msgType, UpdateMsg{Option: opt, VIDs: vids}, nil

	default:
		return 0, nil, fmt.Errorf("wire: unknown message type %d", payload[0])
	}
}

func (t MsgType) String() string {
	switch t {
	case HelloNR:
		return "HELLONR"
	case JoinReq:
		return "JOIN_REQ"
	case JoinRes:
		return "JOIN_RES"
	case JoinAck:
		return "JOIN_ACK"
	case StartHello:
		return "START_HELLO"
	case DataMsg:
		return "DATA_MSG"
	case KeepAlive:
		return "KEEP_ALIVE"
	case FailureUpdate:
		return "FAILURE_UPDATE"
	case RecoverUpdate:
		return "RECOVER_UPDATE"
	default:
		return fmt.Sprintf("MsgType(%d)", byte(t))
	}
}
