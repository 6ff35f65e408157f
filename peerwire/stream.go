package peerwire

import (
	"encoding/binary"
	"strconv"
)

// Feed parses as many complete messages as are present in buf and
// returns them along with the unconsumed residual bytes. It is a pure
// function of its input - the same buffer fed in two pieces across two
// calls (with the second call's buf being the first call's residual
// plus newly arrived bytes) yields the same messages as feeding it
// whole in one call. Partial frames are left in the residual; Feed
// never blocks and never errors on a short buffer, only on a malformed
// message it can already see in full.
func Feed(buf []byte) (msgs []*Message, residual []byte, err error) {
	for {
		if len(buf) < 4 {
			return msgs, buf, nil
		}
		length := binary.BigEndian.Uint32(buf[0:4])
		if length == 0 {
			msgs = append(msgs, KeepAliveMsg())
			buf = buf[4:]
			continue
		}
		if uint64(len(buf)) < 4+uint64(length) {
			return msgs, buf, nil
		}
		payload := buf[4 : 4+length]
		msg, err := decodeMessage(payload)
		if err != nil {
			return msgs, buf, err
		}
		msgs = append(msgs, msg)
		buf = buf[4+length:]
	}
}

func decodeMessage(payload []byte) (*Message, error) {
	kind := ID(payload[0])
	body := payload[1:]
	switch kind {
	case Choke, Unchoke, Interested, NotInterested:
		return &Message{Kind: kind}, nil
	case Have:
		if len(body) != 4 {
			return nil, errShortMessage(kind, 4, len(body))
		}
		return &Message{Kind: Have, Index: binary.BigEndian.Uint32(body)}, nil
	case Bitfield:
		bf := make([]byte, len(body))
		copy(bf, body)
		return &Message{Kind: Bitfield, Bitfield: BitField(bf)}, nil
	case Request, Cancel:
		if len(body) != 12 {
			return nil, errShortMessage(kind, 12, len(body))
		}
		return &Message{
			Kind:   kind,
			Index:  binary.BigEndian.Uint32(body[0:4]),
			Begin:  binary.BigEndian.Uint32(body[4:8]),
			Length: binary.BigEndian.Uint32(body[8:12]),
		}, nil
	case Piece:
		if len(body) < 8 {
			return nil, errShortMessage(kind, 8, len(body))
		}
		block := make([]byte, len(body)-8)
		copy(block, body[8:])
		return &Message{
			Kind:  Piece,
			Index: binary.BigEndian.Uint32(body[0:4]),
			Begin: binary.BigEndian.Uint32(body[4:8]),
			Block: block,
		}, nil
	case Port:
		return &Message{Kind: Port}, nil
	default:
		// Unknown ids are decoded as Unknown and skipped, not fatal
		// (spec §4.4).
		return &Message{Kind: Unknown}, nil
	}
}

func errShortMessage(kind ID, want, got int) error {
	return &ProtocolError{Reason: "short " + kind.String() + " payload: want " + strconv.Itoa(want) + " got " + strconv.Itoa(got)}
}

// ProtocolError marks a fatal, connection-closing wire violation: a
// malformed frame the stream parser could not decode.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "peerwire: protocol error: " + e.Reason }
