package torrent

import (
	"crypto/sha1"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPieceVerifySuccess(t *testing.T) {
	data := []byte("0123456789abcdef012") // 19 bytes, blockSize 8 -> 3 blocks
	expected := sha1.Sum(data)
	p := newPiece(0, int64(len(data)), expected, 8)
	require.Equal(t, 3, p.numBlocks())

	p.blocks[0].data = data[0:8]
	p.blocks[0].state = blockRetrieved
	p.blocks[1].data = data[8:16]
	p.blocks[1].state = blockRetrieved
	assert.False(t, p.allRetrieved())
	p.blocks[2].data = data[16:19]
	p.blocks[2].state = blockRetrieved
	require.True(t, p.allRetrieved())

	got, ok := p.verify()
	require.True(t, ok)
	assert.Equal(t, data, got)
	assert.True(t, p.complete)
}

func TestPieceVerifyMismatchResets(t *testing.T) {
	var expected [20]byte
	copy(expected[:], "not the real digest!")
	p := newPiece(0, 4, expected, 4)
	p.blocks[0] = block{state: blockRetrieved, data: []byte("fake")}

	_, ok := p.verify()
	assert.False(t, ok)
	assert.False(t, p.complete)
	assert.Equal(t, blockMissing, p.blocks[0].state)
	assert.Nil(t, p.blocks[0].data)
}

func TestPieceBlockLenShortLastBlock(t *testing.T) {
	var expected [20]byte
	p := newPiece(0, 20, expected, 8)
	require.Equal(t, 3, p.numBlocks())
	assert.EqualValues(t, 8, p.blockLen(0, 8))
	assert.EqualValues(t, 8, p.blockLen(1, 8))
	assert.EqualValues(t, 4, p.blockLen(2, 8))
}
