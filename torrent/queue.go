package torrent

import (
	"github.com/eapache/channels"

	"github.com/lkslts64/leechcore/tracker"
)

// peerQueue is an unbounded FIFO of candidate peers fed by periodic
// tracker announces and drained by the worker pool. Using an infinite
// channel means a burst of peers from a re-announce never blocks the
// announce goroutine on a full buffer.
type peerQueue struct {
	ch *channels.InfiniteChannel
}

func newPeerQueue() *peerQueue {
	return &peerQueue{ch: channels.NewInfiniteChannel()}
}

func (q *peerQueue) push(peers []tracker.Peer) {
	for _, p := range peers {
		q.ch.In() <- p
	}
}

// out exposes the receive side for workers to range over.
func (q *peerQueue) out() <-chan interface{} {
	return q.ch.Out()
}

func (q *peerQueue) close() {
	q.ch.Close()
}
