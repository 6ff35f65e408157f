package tracker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnounceCompactPeers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "1", q.Get("compact"))
		assert.Equal(t, "started", q.Get("event"))
		peers := []byte{127, 0, 0, 1, 0x1A, 0xE1} // 127.0.0.1:6881
		body := "d8:intervali1800e5:peers6:" + string(peers) + "e"
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	resp, err := c.Announce(context.Background(), AnnounceRequest{
		InfoHash: [20]byte{1, 2, 3},
		PeerID:   [20]byte{4, 5, 6},
		Port:     6881,
		Left:     1000,
		Event:    EventStarted,
	})
	require.NoError(t, err)
	assert.Equal(t, 1800, resp.Interval)
	require.Len(t, resp.Peers, 1)
	assert.Equal(t, "127.0.0.1", resp.Peers[0].IP.String())
	assert.Equal(t, 6881, resp.Peers[0].Port)
}

func TestAnnounceDictPeers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := "d8:intervali900e5:peersld2:ip9:127.0.0.14:porti6882eeee"
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	resp, err := c.Announce(context.Background(), AnnounceRequest{Port: 6881})
	require.NoError(t, err)
	assert.Equal(t, 900, resp.Interval)
	require.Len(t, resp.Peers, 1)
	assert.Equal(t, "127.0.0.1", resp.Peers[0].IP.String())
	assert.Equal(t, 6882, resp.Peers[0].Port)
}

func TestAnnounceFailureReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("d14:failure reason13:bad info_hashe"))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	_, err := c.Announce(context.Background(), AnnounceRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTrackerFailure)
	assert.Contains(t, err.Error(), "bad info_hash")
}

func TestAnnounceUnreachable(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1") // nothing listens here
	_, err := c.Announce(context.Background(), AnnounceRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTrackerUnreachable)
}

func TestBuildQueryEncodesRawInfoHash(t *testing.T) {
	q := buildQuery(AnnounceRequest{
		InfoHash: [20]byte{0x00, 0x01, 0xff},
		PeerID:   [20]byte{'-', 'P', 'C'},
		Port:     6881,
		Left:     5,
	})
	v, err := url.ParseQuery(q)
	require.NoError(t, err)
	assert.Equal(t, "1", v.Get("compact"))
	assert.Equal(t, "6881", v.Get("port"))
	assert.Equal(t, "5", v.Get("left"))
}
