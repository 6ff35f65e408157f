package peerwire

import (
	"bytes"
	"fmt"
	"io"
)

const (
	protoLen = 19
	handshakeLen = 1 + protoLen + 8 + 20 + 20
)

var protoString = []byte("BitTorrent protocol")

// Handshake is the fixed 68-byte message exchanged before any framed
// message. This module is a pure leecher: it only ever initiates a
// handshake, never receives inbound connections (spec §4.5 policy).
type Handshake struct {
	Reserved [8]byte
	InfoHash [20]byte
	PeerID   [20]byte
}

// Encode returns the 68 wire bytes of h.
func (h *Handshake) Encode() []byte {
	buf := make([]byte, 0, handshakeLen)
	buf = append(buf, protoLen)
	buf = append(buf, protoString...)
	buf = append(buf, h.Reserved[:]...)
	buf = append(buf, h.InfoHash[:]...)
	buf = append(buf, h.PeerID[:]...)
	return buf
}

// ReadHandshake reads and validates a remote peer's handshake. Any
// deviation in the protocol-string length byte or the protocol string
// itself is a fatal ProtocolError for that connection (spec §4.5); the
// info-hash is returned for the caller to compare against its own
// session, since a mismatch there is equally fatal but the caller
// already knows which session it dialed for.
func ReadHandshake(r io.Reader) (*Handshake, error) {
	buf := make([]byte, handshakeLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("peerwire: read handshake: %w", err)
	}
	if buf[0] != protoLen {
		return nil, &ProtocolError{Reason: fmt.Sprintf("bad protocol string length byte %d", buf[0])}
	}
	if !bytes.Equal(buf[1:1+protoLen], protoString) {
		return nil, &ProtocolError{Reason: "bad protocol string"}
	}
	h := &Handshake{}
	copy(h.Reserved[:], buf[1+protoLen:1+protoLen+8])
	copy(h.InfoHash[:], buf[1+protoLen+8:1+protoLen+28])
	copy(h.PeerID[:], buf[1+protoLen+28:1+protoLen+48])
	return h, nil
}

// Do performs the initiator side of the handshake over conn: write ours,
// read theirs, and confirm the remote echoed our info-hash.
func Do(rw io.ReadWriter, infoHash, peerID [20]byte) (remotePeerID [20]byte, err error) {
	ours := &Handshake{InfoHash: infoHash, PeerID: peerID}
	if _, err := rw.Write(ours.Encode()); err != nil {
		return remotePeerID, fmt.Errorf("peerwire: write handshake: %w", err)
	}
	theirs, err := ReadHandshake(rw)
	if err != nil {
		return remotePeerID, err
	}
	if theirs.InfoHash != infoHash {
		return remotePeerID, &ProtocolError{Reason: "info_hash mismatch"}
	}
	return theirs.PeerID, nil
}
