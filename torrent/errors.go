package torrent

import "errors"

var (
	// ErrPeerProtocol is returned when a peer sends a structurally
	// invalid or policy-violating message and the connection must be
	// dropped.
	ErrPeerProtocol = errors.New("torrent: peer protocol violation")
	// ErrPeerIO wraps a transport-level read/write failure on a peer
	// connection.
	ErrPeerIO = errors.New("torrent: peer i/o error")
	// ErrHashMismatch is logged, never returned across a package
	// boundary - a failed piece is silently re-queued.
	ErrHashMismatch = errors.New("torrent: piece hash mismatch")
	// ErrFileIO wraps a failure writing a verified piece to disk.
	ErrFileIO = errors.New("torrent: output file i/o error")
	// ErrTrackerStartFailed means the initial started announce could
	// not be completed after the retry.
	ErrTrackerStartFailed = errors.New("torrent: tracker start announce failed")
)
