package bencode

import (
	"bytes"
	"fmt"
)

// Get returns the raw, still-encoded bytes of the value stored under
// targetKey in the top-level bencoded dictionary data. It does not
// decode the value, which is exactly what lets metainfo.InfoHash
// reproduce the original bytes of the info dictionary byte-for-byte
// rather than risk a round-trip mismatch through a canonical re-encoder.
func Get(data []byte, targetKey string) (val []byte, ok bool, err error) {
	if len(data) < 2 || data[0] != 'd' || data[len(data)-1] != 'e' {
		return nil, false, ErrNoDict
	}
	body := data[1 : len(data)-1]
	r := &benReader{b: bytes.NewReader(body)}
	for {
		b, perr := r.peek()
		if perr != nil {
			break
		}
		if b == 'e' {
			break
		}
		keyBytes, err := r.readString()
		if err != nil {
			return nil, false, fmt.Errorf("bencode get: %w", err)
		}
		valStart := r.pos()
		if err := skipValue(r); err != nil {
			return nil, false, fmt.Errorf("bencode get: %w", err)
		}
		valEnd := r.pos()
		if string(keyBytes) == targetKey {
			return data[1+valStart : 1+valEnd], true, nil
		}
	}
	return nil, false, nil
}
