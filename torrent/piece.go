package torrent

import "crypto/sha1"

// blockState is one of the three states a Block can be in (spec §3).
type blockState int

const (
	blockMissing blockState = iota
	blockPending
	blockRetrieved
)

// block is one 16 KiB (or shorter, for the last block of a piece) unit
// of transfer.
type block struct {
	state blockState
	data  []byte
}

// piece owns an ordered sequence of blocks and the digest they must
// hash to once all are retrieved.
type piece struct {
	index    int
	length   int64
	expected [20]byte
	blocks   []block
	complete bool
}

// newPiece builds a piece of the given length, split into blockSize
// blocks (the last one possibly shorter), all Missing.
func newPiece(index int, length int64, expected [20]byte, blockSize int64) *piece {
	n := int((length + blockSize - 1) / blockSize)
	p := &piece{index: index, length: length, expected: expected, blocks: make([]block, n)}
	return p
}

func (p *piece) numBlocks() int { return len(p.blocks) }

// blockLen returns the byte length of block bi - blockSize for every
// block except possibly the last.
func (p *piece) blockLen(bi int, blockSize int64) int64 {
	off := int64(bi) * blockSize
	if rem := p.length - off; rem < blockSize {
		return rem
	}
	return blockSize
}

func (p *piece) blockOffset(bi int, blockSize int64) int64 {
	return int64(bi) * blockSize
}

// blockIndexAt maps a byte offset back to a block index; callers only
// ever pass offsets that are exact multiples of blockSize.
func (p *piece) blockIndexAt(offset, blockSize int64) int {
	return int(offset / blockSize)
}

func (p *piece) allRetrieved() bool {
	for i := range p.blocks {
		if p.blocks[i].state != blockRetrieved {
			return false
		}
	}
	return true
}

// verify concatenates every block's payload in offset order and checks
// the result against the expected digest. On success it marks the
// piece Complete and returns the assembled bytes; on a mismatch it
// resets every block to Missing (so the piece re-enters the work set)
// and returns ok=false.
func (p *piece) verify() (data []byte, ok bool) {
	data = make([]byte, 0, p.length)
	for i := range p.blocks {
		data = append(data, p.blocks[i].data...)
	}
	sum := sha1.Sum(data)
	if sum != p.expected {
		for i := range p.blocks {
			p.blocks[i] = block{}
		}
		return nil, false
	}
	p.complete = true
	for i := range p.blocks {
		p.blocks[i].data = nil // release the buffer once flushed by the caller
	}
	return data, true
}
