package bencode

import (
	"crypto/sha1"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReturnsRawSubValue(t *testing.T) {
	data := "d8:announce14:http://tracker4:infod4:name5:movie12:piece lengthi16384e6:pieces0:ee"
	val, ok, err := Get([]byte(data), "info")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "d4:name5:movie12:piece lengthi16384e6:pieces0:e", string(val))

	// the returned bytes are the source's own bytes, so they can be hashed
	// directly, which is the whole point of Get: no re-encoding needed.
	want := sha1.Sum(val)
	assert.Len(t, want, 20)
}

func TestGetMissingKey(t *testing.T) {
	data := "d8:announce14:http://trackere"
	_, ok, err := Get([]byte(data), "info")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetRejectsNonDict(t *testing.T) {
	_, _, err := Get([]byte("li1ee"), "info")
	assert.ErrorIs(t, err, ErrNoDict)
}
