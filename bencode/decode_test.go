package bencode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAnyValues(t *testing.T) {
	tests := []struct {
		data     string
		expected interface{}
	}{
		{"i57e", int64(57)},
		{"i0e", int64(0)},
		{"i-42e", int64(-42)},
		{"5:hello", []byte("hello")},
		{"0:", []byte("")},
		{"le", []interface{}{}},
		{"li1ei2ei3ee", []interface{}{int64(1), int64(2), int64(3)}},
		{"d3:cow3:moo4:spaml1:a1:bee", map[string]interface{}{
			"cow":  []byte("moo"),
			"spam": []interface{}{[]byte("a"), []byte("b")},
		}},
	}
	for _, tt := range tests {
		got, err := DecodeAny([]byte(tt.data))
		require.NoError(t, err, tt.data)
		assert.EqualValues(t, tt.expected, got, tt.data)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	in := "d3:cow3:moo4:spaml1:a1:bee"
	v, err := DecodeAny([]byte(in))
	require.NoError(t, err)
	out, err := Encode(v)
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
}

func TestDecodeStruct(t *testing.T) {
	type info struct {
		Name     string `bencode:"name"`
		PieceLen int64  `bencode:"piece length"`
		Pieces   []byte `bencode:"pieces"`
	}
	data := "d4:name5:movie12:piece lengthi16384e6:pieces0:e"
	var got info
	require.NoError(t, Decode([]byte(data), &got))
	assert.Equal(t, "movie", got.Name)
	assert.EqualValues(t, 16384, got.PieceLen)
	assert.Empty(t, got.Pieces)
}

func TestDecodeUnknownKeysAreSkipped(t *testing.T) {
	type small struct {
		Name string `bencode:"name"`
	}
	data := "d7:comment7:ignored4:name5:movie4:spaml1:a1:bee"
	var got small
	require.NoError(t, Decode([]byte(data), &got))
	assert.Equal(t, "movie", got.Name)
}

func TestDecodeMalformedInputs(t *testing.T) {
	tests := []string{
		"i05e",     // leading zero
		"i-0e",     // negative zero
		"i e",      // non-digit
		"5:ab",     // truncated string
		"ie",       // empty integer
		"l",        // unterminated list
		"d1:ai5e",  // unterminated dict
		"05:hello", // leading zero in length prefix
	}
	for _, data := range tests {
		var v interface{}
		err := Decode([]byte(data), &v)
		assert.Error(t, err, data)
		assert.True(t, errors.Is(err, ErrMalformedBencoding), "data=%q err=%v", data, err)
	}
}

func TestDecodeTrailingBytesReported(t *testing.T) {
	var v interface{}
	err := Decode([]byte("i5eGARBAGE"), &v)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedBencoding))
	// the top-level value itself still decoded correctly.
	assert.EqualValues(t, int64(5), v)
}

func TestDecodeRejectsNonPointer(t *testing.T) {
	var v interface{}
	err := Decode([]byte("i1e"), v)
	assert.Error(t, err)
}
