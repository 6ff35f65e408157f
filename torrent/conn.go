package torrent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"github.com/anacrolix/missinggo/bitmap"
	"github.com/tevino/abool"

	"github.com/lkslts64/leechcore/peerwire"
)

// connLifecycle is the state machine a PeerConnection moves through,
// strictly forward, ending in Closed.
type connLifecycle int32

const (
	Connecting connLifecycle = iota
	HandshakeSent
	HandshakeReceived
	Active
	Closed
)

func (s connLifecycle) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case HandshakeSent:
		return "handshake-sent"
	case HandshakeReceived:
		return "handshake-received"
	case Active:
		return "active"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	dialTimeout      = 15 * time.Second
	handshakeTimeout = 15 * time.Second
	readPollTimeout  = 2 * time.Second
)

// peerConn drives a single outbound TCP connection to a peer. It is
// strictly a leecher: it never sends have, bitfield, unchoke or piece
// messages, and keeps at most one block request in flight.
type peerConn struct {
	addr      string
	infoHash  [20]byte
	ourPeerID [20]byte
	pm        *pieceManager

	conn  net.Conn
	state connLifecycle

	peerChoking  *abool.AtomicBool // starts true - peers choke us until told otherwise
	amInterested *abool.AtomicBool

	remotePeerID string
	peerBf       bitmap.Bitmap

	inFlight bool

	log *log.Logger
}

func newPeerConn(addr string, infoHash, ourPeerID [20]byte, pm *pieceManager) *peerConn {
	return &peerConn{
		addr:         addr,
		infoHash:     infoHash,
		ourPeerID:    ourPeerID,
		pm:           pm,
		state:        Connecting,
		peerChoking:  abool.NewBool(true),
		amInterested: abool.NewBool(false),
		log:          log.New(log.Writer(), "["+addr+"] ", log.LstdFlags),
	}
}

// run dials, handshakes and drives the message loop until ctx is
// cancelled, the peer disconnects, or a protocol violation occurs. Any
// block this connection had Pending is released back to the piece
// manager on the way out.
func (pc *peerConn) run(ctx context.Context) error {
	var d net.Dialer
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	conn, err := d.DialContext(dialCtx, "tcp", pc.addr)
	cancel()
	if err != nil {
		return fmt.Errorf("%w: dial: %v", ErrPeerIO, err)
	}
	return pc.runConn(ctx, conn)
}

// runConn drives the handshake and message loop over an already
// connected transport. Split out from run so tests can drive the
// state machine over an in-process pipe instead of a real dial.
func (pc *peerConn) runConn(ctx context.Context, conn net.Conn) (err error) {
	defer func() {
		pc.state = Closed
		conn.Close()
		pc.pm.removePeer(pc.remotePeerID)
		if err != nil {
			pc.log.Println(err)
		}
	}()

	pc.conn = conn
	pc.remotePeerID = pc.addr // keyed by address until the handshake confirms the peer id

	pc.state = HandshakeSent
	conn.SetDeadline(time.Now().Add(handshakeTimeout))
	remoteID, err := peerwire.Do(conn, pc.infoHash, pc.ourPeerID)
	if err != nil {
		return fmt.Errorf("%w: handshake: %v", ErrPeerIO, err)
	}
	conn.SetDeadline(time.Time{})
	pc.state = HandshakeReceived
	pc.remotePeerID = string(remoteID[:])
	pc.pm.addPeer(pc.remotePeerID, nil)

	if err := pc.sendInterested(); err != nil {
		return err
	}
	pc.state = Active

	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watchDone:
		}
	}()

	return pc.readLoop(ctx)
}

func (pc *peerConn) sendInterested() error {
	msg := peerwire.InterestedMsg()
	enc, err := msg.Encode()
	if err != nil {
		return err
	}
	if _, err := pc.conn.Write(enc); err != nil {
		return fmt.Errorf("%w: %v", ErrPeerIO, err)
	}
	pc.amInterested.Set()
	return nil
}

// readLoop accumulates bytes off the wire, runs them through the
// stream framer and reacts to each decoded message. It also drives the
// single-request pump: whenever we are unchoked, interested and have
// no request outstanding, it asks the piece manager for the next
// block and issues it.
func (pc *peerConn) readLoop(ctx context.Context) error {
	var buf []byte
	readBuf := make([]byte, 32*1024)

	for {
		if err := pc.pump(); err != nil {
			return err
		}

		pc.conn.SetReadDeadline(time.Now().Add(readPollTimeout))
		n, err := pc.conn.Read(readBuf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
					continue
				}
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return fmt.Errorf("%w: %v", ErrPeerIO, err)
			}
		}
		buf = append(buf, readBuf[:n]...)

		msgs, residual, err := peerwire.Feed(buf)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPeerProtocol, err)
		}
		buf = residual

		for _, m := range msgs {
			if err := pc.handle(m); err != nil {
				return err
			}
		}
	}
}

func (pc *peerConn) handle(m *peerwire.Message) error {
	switch m.Kind {
	case peerwire.KeepAlive:
	case peerwire.Choke:
		pc.peerChoking.Set()
		pc.inFlight = false
	case peerwire.Unchoke:
		pc.peerChoking.UnSet()
	case peerwire.Have:
		if pc.peerBf.Get(int(m.Index)) {
			return nil
		}
		pc.peerBf.Set(int(m.Index), true)
		pc.pm.updatePeer(pc.remotePeerID, m.Index)
		return pc.updateInterest()
	case peerwire.Bitfield:
		pc.peerBf = pc.decodeBitfield(m.Bitfield)
		pc.peerBf.IterTyped(func(i int) bool {
			pc.pm.updatePeer(pc.remotePeerID, uint32(i))
			return true
		})
		return pc.updateInterest()
	case peerwire.Piece:
		pc.inFlight = false
		if err := pc.pm.blockReceived(pc.remotePeerID, m.Index, m.Begin, m.Block); err != nil {
			return err
		}
	case peerwire.Interested, peerwire.NotInterested, peerwire.Request, peerwire.Cancel:
		// A pure leecher never grants requests, but tolerates receiving them.
	case peerwire.Unknown, peerwire.Port:
	default:
		return fmt.Errorf("%w: unexpected message kind %v", ErrPeerProtocol, m.Kind)
	}
	return nil
}

// updateInterest recomputes whether the peer's last-known bitfield still
// claims a piece we need and sends interested/not_interested on change.
func (pc *peerConn) updateInterest() error {
	need := pc.pm.peerHasPieceWeNeed(pc.remotePeerID)
	if need == pc.amInterested.IsSet() {
		return nil
	}
	var msg *peerwire.Message
	if need {
		msg = peerwire.InterestedMsg()
	} else {
		msg = peerwire.NotInterestedMsg()
	}
	enc, err := msg.Encode()
	if err != nil {
		return err
	}
	if _, err := pc.conn.Write(enc); err != nil {
		return fmt.Errorf("%w: %v", ErrPeerIO, err)
	}
	pc.amInterested.SetTo(need)
	return nil
}

// decodeBitfield turns a wire-format bitfield into the in-memory bitmap
// used for peer-have bookkeeping.
func (pc *peerConn) decodeBitfield(bf peerwire.BitField) bitmap.Bitmap {
	var bm bitmap.Bitmap
	for i := 0; i < pc.pm.numPieces(); i++ {
		if bf.HasPiece(uint32(i)) {
			bm.Set(i, true)
		}
	}
	return bm
}

// pump issues the next block request when we are free to do so.
func (pc *peerConn) pump() error {
	if pc.inFlight || pc.peerChoking.IsSet() || !pc.amInterested.IsSet() {
		return nil
	}
	index, begin, length, ok := pc.pm.nextRequest(pc.remotePeerID)
	if !ok {
		return nil
	}
	msg := peerwire.RequestMsg(index, begin, length)
	enc, err := msg.Encode()
	if err != nil {
		return err
	}
	if _, err := pc.conn.Write(enc); err != nil {
		return fmt.Errorf("%w: %v", ErrPeerIO, err)
	}
	pc.inFlight = true
	return nil
}
