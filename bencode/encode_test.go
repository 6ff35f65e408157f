package bencode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeScalars(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{int64(57), "i57e"},
		{int64(-9), "i-9e"},
		{int64(0), "i0e"},
		{"hello", "5:hello"},
		{[]byte("hello"), "5:hello"},
		{[]interface{}{int64(1), "a"}, "li1e1:ae"},
	}
	for _, tt := range tests {
		got, err := Encode(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(got))
	}
}

func TestEncodeDictSortsKeys(t *testing.T) {
	m := map[string]interface{}{"spam": []interface{}{"a", "b"}, "cow": "moo"}
	got, err := Encode(m)
	require.NoError(t, err)
	assert.Equal(t, "d3:cow3:moo4:spaml1:a1:bee", string(got))
}

func TestEncodeStructSortsAndOmitsEmpty(t *testing.T) {
	type meta struct {
		Announce string `bencode:"announce"`
		Comment  string `bencode:"comment" empty:"omit"`
	}
	got, err := Encode(meta{Announce: "http://tracker"})
	require.NoError(t, err)
	assert.Equal(t, "d8:announce14:http://trackere", string(got))
}

func TestEncodeDecodeStructRoundTrip(t *testing.T) {
	type piece struct {
		Name     string `bencode:"name"`
		PieceLen int64  `bencode:"piece length"`
	}
	want := piece{Name: "movie", PieceLen: 16384}
	data, err := Encode(want)
	require.NoError(t, err)
	var got piece
	require.NoError(t, Decode(data, &got))
	assert.Equal(t, want, got)
}
