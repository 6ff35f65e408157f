package tracker

import (
	"fmt"
	"net"

	"github.com/lkslts64/leechcore/bencode"
)

// response is the wire shape of a tracker's bencoded reply: either a
// `failure reason`, or an interval plus a peer list in compact (6
// bytes/peer) or dictionary form.
type response struct {
	Fail        string
	Interval    int
	MinInterval int
	rawPeers    interface{}
}

// wireResponse is decoded first because the `peers` key is polymorphic
// (a compact byte string or a list of dicts) and bencode.Decode needs a
// concrete field type to target.
type wireResponse struct {
	Fail        string      `bencode:"failure reason" empty:"omit"`
	Interval    int         `bencode:"interval" empty:"omit"`
	MinInterval int         `bencode:"min interval" empty:"omit"`
	Peers       interface{} `bencode:"peers" empty:"omit"`
}

func (r *response) decode(body []byte) error {
	var w wireResponse
	if err := bencode.Decode(body, &w); err != nil {
		return fmt.Errorf("tracker: decode response: %w", err)
	}
	r.Fail = w.Fail
	r.Interval = w.Interval
	r.MinInterval = w.MinInterval
	r.rawPeers = w.Peers
	return nil
}

// peerList normalizes the polymorphic `peers` field into a []Peer,
// supporting both the compact 6-bytes-per-peer form and the dictionary
// form (spec §4.3).
func (r *response) peerList() ([]Peer, error) {
	switch v := r.rawPeers.(type) {
	case nil:
		return nil, nil
	case []byte:
		return decodeCompactPeers(v)
	case []interface{}:
		peers := make([]Peer, 0, len(v))
		for _, e := range v {
			m, ok := e.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("tracker: peer entry is not a dict")
			}
			ipBytes, _ := m["ip"].([]byte)
			portVal, _ := m["port"].(int64)
			ip := net.ParseIP(string(ipBytes))
			if ip == nil {
				return nil, fmt.Errorf("tracker: peer has unparsable ip %q", ipBytes)
			}
			peers = append(peers, Peer{IP: ip, Port: int(portVal)})
		}
		return peers, nil
	default:
		return nil, fmt.Errorf("tracker: unexpected peers field type %T", v)
	}
}

// decodeCompactPeers splits a compact peer string into 6-byte chunks:
// 4-byte big-endian IPv4 followed by a 2-byte big-endian port. IPv6
// compact peers are out of scope (spec §1 non-goals).
func decodeCompactPeers(raw []byte) ([]Peer, error) {
	if len(raw)%6 != 0 {
		return nil, fmt.Errorf("tracker: compact peers length %d is not a multiple of 6", len(raw))
	}
	peers := make([]Peer, 0, len(raw)/6)
	for i := 0; i < len(raw); i += 6 {
		ip := net.IPv4(raw[i], raw[i+1], raw[i+2], raw[i+3])
		port := int(raw[i+4])<<8 | int(raw[i+5])
		peers = append(peers, Peer{IP: ip, Port: port})
	}
	return peers, nil
}
