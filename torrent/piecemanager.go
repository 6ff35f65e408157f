package torrent

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/anacrolix/missinggo/bitmap"

	"github.com/lkslts64/leechcore/metainfo"
)

const (
	blockSize      = 16 * 1024
	requestTimeout = 5 * time.Second
)

type pendingEntry struct {
	peerID   string
	issuedAt time.Time
}

type blockKey struct {
	piece int
	begin int64
}

// pieceManager tracks per-block state across the whole torrent, owns
// the peer bitfield index, the pending-request ledger and the output
// file. It is the single source of truth every PeerConnection consults
// before issuing a request and reports back to once a block arrives.
//
// Every method that reads or changes block, peer or progress state takes
// the internal mutex (the *Locked helpers expect it held), so unlike the
// cooperative single-threaded model this is adapted from, callers may
// invoke it concurrently from one goroutine per connection.
type pieceManager struct {
	mu sync.Mutex

	mi     *metainfo.MetaInfo
	pieces []*piece
	file   *os.File

	peerBitfields map[string]*bitmap.Bitmap
	pending       map[blockKey]pendingEntry

	done     int // count of verified pieces
	received int64

	log *log.Logger
}

func newPieceManager(mi *metainfo.MetaInfo, file *os.File, logger *log.Logger) *pieceManager {
	pm := &pieceManager{
		mi:            mi,
		pieces:        make([]*piece, mi.NumPieces()),
		file:          file,
		peerBitfields: make(map[string]*bitmap.Bitmap),
		pending:       make(map[blockKey]pendingEntry),
		log:           logger,
	}
	for i := range pm.pieces {
		pm.pieces[i] = newPiece(i, mi.PieceLen(i), mi.PieceHash(i), blockSize)
	}
	return pm
}

func (pm *pieceManager) addPeer(peerID string, bf *bitmap.Bitmap) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.peerBitfields[peerID] = bf
}

func (pm *pieceManager) updatePeer(peerID string, index uint32) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	bf, ok := pm.peerBitfields[peerID]
	if !ok || bf == nil {
		bf = &bitmap.Bitmap{}
		pm.peerBitfields[peerID] = bf
	}
	bf.Set(int(index), true)
}

// removePeer releases the bitfield entry and resets every block this
// peer had Pending back to Missing, so other peers can pick it up.
func (pm *pieceManager) removePeer(peerID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.peerBitfields, peerID)
	for k, entry := range pm.pending {
		if entry.peerID == peerID {
			pm.resetBlockLocked(k)
			delete(pm.pending, k)
		}
	}
}

func (pm *pieceManager) resetBlockLocked(k blockKey) {
	p := pm.pieces[k.piece]
	bi := p.blockIndexAt(k.begin, blockSize)
	p.blocks[bi] = block{}
}

// sweepTimeoutsLocked requeues any request older than requestTimeout.
func (pm *pieceManager) sweepTimeoutsLocked() {
	now := time.Now()
	for k, entry := range pm.pending {
		if now.Sub(entry.issuedAt) > requestTimeout {
			pm.resetBlockLocked(k)
			delete(pm.pending, k)
		}
	}
}

// nextRequest implements the sequential piece-selection policy: the
// lowest-indexed incomplete piece the peer claims to have, and within
// it the lowest-offset Missing block. Returns ok=false when this peer
// currently has nothing useful to request.
func (pm *pieceManager) nextRequest(peerID string) (index, begin, length uint32, ok bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.sweepTimeoutsLocked()

	bf := pm.peerBitfields[peerID]
	for i := 0; i < len(pm.pieces); i++ {
		p := pm.pieces[i]
		if p.complete {
			continue
		}
		if bf == nil || !bf.Get(i) {
			continue
		}
		for bi := 0; bi < p.numBlocks(); bi++ {
			if p.blocks[bi].state != blockMissing {
				continue
			}
			off := p.blockOffset(bi, blockSize)
			p.blocks[bi].state = blockPending
			pm.pending[blockKey{i, off}] = pendingEntry{peerID: peerID, issuedAt: time.Now()}
			return uint32(i), uint32(off), uint32(p.blockLen(bi, blockSize)), true
		}
	}
	return 0, 0, 0, false
}

// blockReceived records a delivered block, verifies its piece once
// complete, and flushes the piece to disk. Data from a peer that was
// not the one the block was requested from is rejected.
func (pm *pieceManager) blockReceived(peerID string, index, begin uint32, data []byte) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if int(index) >= len(pm.pieces) {
		return ErrPeerProtocol
	}
	p := pm.pieces[index]
	k := blockKey{int(index), int64(begin)}
	entry, ok := pm.pending[k]
	if !ok || entry.peerID != peerID {
		// Stale or unsolicited - ignore rather than fail the connection.
		return nil
	}
	bi := p.blockIndexAt(int64(begin), blockSize)
	if bi >= p.numBlocks() || int64(len(data)) != p.blockLen(bi, blockSize) {
		return ErrPeerProtocol
	}
	p.blocks[bi] = block{state: blockRetrieved, data: data}
	delete(pm.pending, k)

	if !p.allRetrieved() {
		return nil
	}
	payload, ok := p.verify()
	if !ok {
		pm.log.Printf("piece %d: %v, re-queued", index, ErrHashMismatch)
		return nil
	}
	if _, err := pm.file.WriteAt(payload, int64(index)*pm.mi.PieceLength()); err != nil {
		return ErrFileIO
	}
	pm.received += pm.mi.PieceLen(int(index))
	pm.done++
	pm.log.Printf("piece %d: complete (%d/%d)", index, pm.done, len(pm.pieces))
	return nil
}

func (pm *pieceManager) numPieces() int {
	return len(pm.pieces)
}

// peerHasPieceWeNeed reports whether peerID's last-known bitfield claims
// at least one piece that is not yet complete, the condition a
// PeerConnection recomputes interest against on every Have/Bitfield.
func (pm *pieceManager) peerHasPieceWeNeed(peerID string) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	bf := pm.peerBitfields[peerID]
	if bf == nil {
		return false
	}
	for i, p := range pm.pieces {
		if !p.complete && bf.Get(i) {
			return true
		}
	}
	return false
}

func (pm *pieceManager) complete() bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.done == len(pm.pieces)
}

func (pm *pieceManager) progress() (done, total int) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.done, len(pm.pieces)
}

func (pm *pieceManager) bytesDownloaded() int64 {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.received
}
