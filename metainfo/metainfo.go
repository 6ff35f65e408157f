// Package metainfo parses single-file torrent descriptors and exposes
// the fields needed to join a swarm: the tracker URL, the info-hash,
// the piece hashes and the output file's name and length.
package metainfo

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"os"

	"github.com/lkslts64/leechcore/bencode"
)

// ErrUnsupportedTorrent is returned when the descriptor names more than
// one file (a `files` list inside `info`). Multi-file torrents are out
// of scope for this core.
var ErrUnsupportedTorrent = errors.New("metainfo: multi-file torrents are not supported")

// ErrMalformedMetainfo is returned when the descriptor decodes but
// fails a structural check (piece count mismatch, missing info dict).
var ErrMalformedMetainfo = errors.New("metainfo: malformed descriptor")

const hashLen = 20

// MetaInfo is the immutable, parsed form of a .torrent file.
type MetaInfo struct {
	Announce string  `bencode:"announce"`
	Info     rawInfo `bencode:"info"`

	// InfoHash is the 20-byte SHA-1 over the exact original bytes of
	// the info dictionary, computed separately from the struct decode
	// so that field reordering by the decoder can never change it.
	InfoHash [20]byte `bencode:"-"`
}

// rawInfo mirrors the wire shape of the info dictionary. `Files` exists
// only so Parse can detect and reject multi-file torrents.
type rawInfo struct {
	Name        string        `bencode:"name"`
	PieceLength int64         `bencode:"piece length"`
	Pieces      []byte        `bencode:"pieces"`
	Length      int64         `bencode:"length" empty:"omit"`
	Files       []interface{} `bencode:"files" empty:"omit"`
}

// Name is the UTF-8 file name this torrent describes.
func (m *MetaInfo) Name() string { return m.Info.Name }

// Length is the total size of the file in bytes.
func (m *MetaInfo) Length() int64 { return m.Info.Length }

// PieceLength is the byte size of every piece except possibly the last.
func (m *MetaInfo) PieceLength() int64 { return m.Info.PieceLength }

// NumPieces is the number of pieces the file is split into.
func (m *MetaInfo) NumPieces() int { return len(m.Info.Pieces) / hashLen }

// PieceHash returns the expected 20-byte SHA-1 digest of piece i.
func (m *MetaInfo) PieceHash(i int) [20]byte {
	var h [20]byte
	copy(h[:], m.Info.Pieces[i*hashLen:(i+1)*hashLen])
	return h
}

// PieceLen returns the byte length of piece i: PieceLength for every
// piece except the last, which may be shorter.
func (m *MetaInfo) PieceLen(i int) int64 {
	if i == m.NumPieces()-1 {
		if rem := m.Info.Length % m.Info.PieceLength; rem != 0 {
			return rem
		}
	}
	return m.Info.PieceLength
}

// Load reads and parses a .torrent file from disk.
func Load(filename string) (*MetaInfo, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("metainfo: read %s: %w", filename, err)
	}
	return Parse(data)
}

// Parse decodes the bencoded bytes of a .torrent file and validates the
// result per the invariants in the data model: single file, piece count
// consistent with length and piece length.
func Parse(data []byte) (*MetaInfo, error) {
	var m MetaInfo
	if err := bencode.Decode(data, &m); err != nil {
		return nil, fmt.Errorf("metainfo: decode: %w", err)
	}
	if m.Info.Files != nil {
		return nil, ErrUnsupportedTorrent
	}
	if len(m.Info.Pieces)%hashLen != 0 {
		return nil, fmt.Errorf("%w: pieces field is not a multiple of %d bytes", ErrMalformedMetainfo, hashLen)
	}
	if m.Info.PieceLength <= 0 {
		return nil, fmt.Errorf("%w: non-positive piece length", ErrMalformedMetainfo)
	}
	wantPieces := (m.Info.Length + m.Info.PieceLength - 1) / m.Info.PieceLength
	if int(wantPieces) != len(m.Info.Pieces)/hashLen {
		return nil, fmt.Errorf("%w: piece count %d does not match ceil(length/piece_length)=%d",
			ErrMalformedMetainfo, len(m.Info.Pieces)/hashLen, wantPieces)
	}
	infoBytes, ok, err := bencode.Get(data, "info")
	if err != nil {
		return nil, fmt.Errorf("metainfo: locate info dict: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: missing info dict", ErrMalformedMetainfo)
	}
	m.InfoHash = sha1.Sum(infoBytes)
	return &m, nil
}
