package tracker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// HTTPClient announces to a single HTTP(S) tracker URL. Retrying a
// failed announce once (spec §7) is the orchestrator's job, not
// this client's - HTTPClient always makes exactly one round trip.
type HTTPClient struct {
	AnnounceURL string
	// HTTPClient is the transport to use; defaults to a client with a
	// 30s timeout (spec §5) if nil.
	HTTPClient *http.Client
}

// NewHTTPClient returns a tracker Client bound to announceURL with the
// spec-recommended 30s request timeout.
func NewHTTPClient(announceURL string) *HTTPClient {
	return &HTTPClient{
		AnnounceURL: announceURL,
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) Announce(ctx context.Context, req AnnounceRequest) (*AnnounceResponse, error) {
	u, err := url.Parse(c.AnnounceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad announce url: %v", ErrTrackerUnreachable, err)
	}
	u.RawQuery = buildQuery(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTrackerUnreachable, err)
	}
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTrackerUnreachable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrTrackerUnreachable, err)
	}

	var parsed response
	if err := parsed.decode(body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTrackerUnreachable, err)
	}
	if parsed.Fail != "" {
		return nil, fmt.Errorf("%w: %s", ErrTrackerFailure, parsed.Fail)
	}
	peers, err := parsed.peerList()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTrackerUnreachable, err)
	}
	return &AnnounceResponse{
		Interval: parsed.Interval,
		Peers:    peers,
	}, nil
}

func buildQuery(r AnnounceRequest) string {
	v := url.Values{}
	v.Set("info_hash", string(r.InfoHash[:]))
	v.Set("peer_id", string(r.PeerID[:]))
	v.Set("port", strconv.Itoa(r.Port))
	v.Set("uploaded", strconv.FormatInt(r.Uploaded, 10))
	v.Set("downloaded", strconv.FormatInt(r.Downloaded, 10))
	v.Set("left", strconv.FormatInt(r.Left, 10))
	v.Set("compact", "1")
	if r.Event != EventNone {
		v.Set("event", string(r.Event))
	}
	return v.Encode()
}
