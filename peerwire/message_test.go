package peerwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	bf := NewBitField(4)
	bf.SetPiece(0)
	bf.SetPiece(3)
	tests := []*Message{
		KeepAliveMsg(),
		ChokeMsg(),
		UnchokeMsg(),
		InterestedMsg(),
		NotInterestedMsg(),
		HaveMsg(2),
		BitfieldMsg(bf),
		RequestMsg(1, 16384, 16384),
		PieceMsg(1, 0, []byte("hello block")),
		CancelMsg(1, 16384, 16384),
	}
	for _, m := range tests {
		encoded, err := m.Encode()
		require.NoError(t, err)
		msgs, residual, err := Feed(encoded)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Empty(t, residual)
		assert.Equal(t, m.Kind, msgs[0].Kind)
		assert.Equal(t, m.Index, msgs[0].Index)
		assert.Equal(t, m.Begin, msgs[0].Begin)
		assert.Equal(t, m.Block, msgs[0].Block)
		if m.Kind == Bitfield {
			assert.Equal(t, m.Bitfield, msgs[0].Bitfield)
		}
	}
}

func TestFeedSplitAcrossCalls(t *testing.T) {
	var all []byte
	for i := 0; i < 5; i++ {
		enc, _ := HaveMsg(uint32(i)).Encode()
		all = append(all, enc...)
	}
	// Feed whole.
	whole, residual, err := Feed(all)
	require.NoError(t, err)
	assert.Empty(t, residual)
	require.Len(t, whole, 5)

	// Feed split at every possible byte boundary; results must match.
	for split := 0; split <= len(all); split++ {
		first, rest1, err := Feed(all[:split])
		require.NoError(t, err)
		second, rest2, err := Feed(append(append([]byte{}, rest1...), all[split:]...))
		require.NoError(t, err)
		assert.Empty(t, rest2)
		got := append(first, second...)
		require.Len(t, got, 5, "split at %d", split)
		for i, m := range got {
			assert.Equal(t, Have, m.Kind)
			assert.EqualValues(t, i, m.Index)
		}
	}
}

func TestFeedUnknownIDIsSkippedNotFatal(t *testing.T) {
	// A frame with an id the table doesn't define (e.g. 99).
	frame := []byte{0, 0, 0, 1, 99}
	msgs, residual, err := Feed(frame)
	require.NoError(t, err)
	assert.Empty(t, residual)
	require.Len(t, msgs, 1)
	assert.Equal(t, Unknown, msgs[0].Kind)
}

func TestFeedLeavesPartialFrameBuffered(t *testing.T) {
	enc, _ := HaveMsg(7).Encode()
	partial := enc[:len(enc)-1]
	msgs, residual, err := Feed(partial)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, partial, []byte(residual))
}

func TestFeedMalformedRequestIsFatal(t *testing.T) {
	// Request payload must be 12 bytes; send 4.
	frame := []byte{0, 0, 0, 5, byte(Request), 0, 0, 0, 0}
	_, _, err := Feed(frame)
	require.Error(t, err)
	var pe *ProtocolError
	require.ErrorAs(t, err, &pe)
}
