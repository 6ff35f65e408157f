package torrent

import "time"

// Config configures a Client. DefaultConfig returns one with every field
// set; NewClient uses it when given a nil Config, but does not fill in
// zero-value fields of a Config it is given.
type Config struct {
	// MaxPeers bounds how many peer connections run concurrently.
	MaxPeers int
	// ListenPort is advertised to the tracker in the announce port
	// field. It is informational only - this client never accepts
	// incoming connections.
	ListenPort int
	// ReannounceFloor is the minimum wait between announces regardless
	// of what the tracker's interval requests.
	ReannounceFloor time.Duration
	// BaseDir is the directory the downloaded file is written into.
	BaseDir string
}

// DefaultConfig returns sane defaults grounded on common client
// behavior: a handful of concurrent peers and the conventional
// BitTorrent port range start.
func DefaultConfig() *Config {
	return &Config{
		MaxPeers:        30,
		ListenPort:      6881,
		ReannounceFloor: 30 * time.Second,
		BaseDir:         ".",
	}
}
