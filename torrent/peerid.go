package torrent

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const clientID = "PC"
const version = "0001"

// newPeerID builds an Azureus-style peer id: a two-letter client code,
// a four-digit version, and 12 random decimal digits.
func newPeerID() [20]byte {
	var id [20]byte
	prefix := fmt.Sprintf("-%s%s-", clientID, version)
	copy(id[:], prefix)
	suffix := make([]byte, 12)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			panic(err)
		}
		suffix[i] = '0' + byte(n.Int64())
	}
	copy(id[len(prefix):], suffix)
	return id
}
