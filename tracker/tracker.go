// Package tracker issues HTTP tracker announces and parses the
// bencoded response into a list of peer endpoints and the refresh
// interval the client should honor.
package tracker

import (
	"context"
	"errors"
	"net"
	"strconv"
)

// ErrTrackerFailure wraps the tracker's own "failure reason" string.
var ErrTrackerFailure = errors.New("tracker: announce failed")

// ErrTrackerUnreachable covers transport-level failures: DNS, connect,
// timeout, or a response that didn't even bencode-decode.
var ErrTrackerUnreachable = errors.New("tracker: unreachable")

// Event is sent as the `event` query parameter; the zero value omits it
// (a periodic refresh announce).
type Event string

const (
	EventNone      Event = ""
	EventStarted   Event = "started"
	EventCompleted Event = "completed"
)

// AnnounceRequest is everything the tracker needs to answer an announce,
// per spec §4.3.
type AnnounceRequest struct {
	InfoHash   [20]byte
	PeerID     [20]byte
	Port       int
	Uploaded   int64
	Downloaded int64
	Left       int64
	Event      Event
}

// Peer is one entry of the tracker's peer list, compact or dictionary
// form - both decode to this.
type Peer struct {
	IP   net.IP
	Port int
}

func (p Peer) String() string {
	return net.JoinHostPort(p.IP.String(), strconv.Itoa(p.Port))
}

// AnnounceResponse is the tracker's reply, reduced to what the
// orchestrator needs: how often to re-announce and who to connect to.
type AnnounceResponse struct {
	Interval int
	Peers    []Peer
}

// Client issues tracker announces. The only implementation in this
// module is HTTPClient; UDP trackers are out of scope (spec §1).
type Client interface {
	Announce(ctx context.Context, req AnnounceRequest) (*AnnounceResponse, error)
}
