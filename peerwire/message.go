// Package peerwire implements the BitTorrent peer wire protocol: the
// handshake, the length-prefixed message framing, and a restartable
// stream parser that turns a growing byte buffer into a lazy sequence
// of messages.
package peerwire

import (
	"encoding/binary"
	"fmt"
)

// ID identifies a message's wire type. KeepAlive has no wire id (it is
// the zero-length frame) but is given one here for internal dispatch.
type ID int8

const (
	KeepAlive ID = iota - 1
	Choke
	Unchoke
	Interested
	NotInterested
	Have
	Bitfield
	Request
	Piece
	Cancel
	Port
	Unknown
)

func (id ID) String() string {
	switch id {
	case KeepAlive:
		return "keep-alive"
	case Choke:
		return "choke"
	case Unchoke:
		return "unchoke"
	case Interested:
		return "interested"
	case NotInterested:
		return "not-interested"
	case Have:
		return "have"
	case Bitfield:
		return "bitfield"
	case Request:
		return "request"
	case Piece:
		return "piece"
	case Cancel:
		return "cancel"
	case Port:
		return "port"
	default:
		return "unknown"
	}
}

// Message is the decoded form of any peer wire message. Only the fields
// relevant to Kind are populated.
type Message struct {
	Kind     ID
	Index    uint32
	Begin    uint32
	Length   uint32 // requested block length, for Request/Cancel
	Bitfield BitField
	Block    []byte // payload, for Piece
}

// KeepAliveMsg, ChokeMsg, UnchokeMsg, InterestedMsg and NotInterestedMsg
// build the fixed no-payload messages.
func KeepAliveMsg() *Message      { return &Message{Kind: KeepAlive} }
func ChokeMsg() *Message          { return &Message{Kind: Choke} }
func UnchokeMsg() *Message        { return &Message{Kind: Unchoke} }
func InterestedMsg() *Message     { return &Message{Kind: Interested} }
func NotInterestedMsg() *Message  { return &Message{Kind: NotInterested} }

func HaveMsg(index uint32) *Message {
	return &Message{Kind: Have, Index: index}
}

func BitfieldMsg(bf BitField) *Message {
	return &Message{Kind: Bitfield, Bitfield: bf}
}

func RequestMsg(index, begin, length uint32) *Message {
	return &Message{Kind: Request, Index: index, Begin: begin, Length: length}
}

func CancelMsg(index, begin, length uint32) *Message {
	return &Message{Kind: Cancel, Index: index, Begin: begin, Length: length}
}

func PieceMsg(index, begin uint32, block []byte) *Message {
	return &Message{Kind: Piece, Index: index, Begin: begin, Block: block}
}

// Encode returns the wire bytes for m, including its 4-byte length
// prefix (or the zero-length frame, for keep-alive).
func (m *Message) Encode() ([]byte, error) {
	if m.Kind == KeepAlive {
		return []byte{0, 0, 0, 0}, nil
	}
	var payload []byte
	switch m.Kind {
	case Choke, Unchoke, Interested, NotInterested:
		payload = nil
	case Have:
		payload = make([]byte, 4)
		binary.BigEndian.PutUint32(payload, m.Index)
	case Bitfield:
		payload = []byte(m.Bitfield)
	case Request, Cancel:
		payload = make([]byte, 12)
		binary.BigEndian.PutUint32(payload[0:4], m.Index)
		binary.BigEndian.PutUint32(payload[4:8], m.Begin)
		binary.BigEndian.PutUint32(payload[8:12], m.Length)
	case Piece:
		payload = make([]byte, 8+len(m.Block))
		binary.BigEndian.PutUint32(payload[0:4], m.Index)
		binary.BigEndian.PutUint32(payload[4:8], m.Begin)
		copy(payload[8:], m.Block)
	default:
		return nil, fmt.Errorf("peerwire: cannot encode message kind %v", m.Kind)
	}
	frame := make([]byte, 4+1+len(payload))
	binary.BigEndian.PutUint32(frame[0:4], uint32(1+len(payload)))
	frame[4] = byte(m.Kind)
	copy(frame[5:], payload)
	return frame, nil
}
