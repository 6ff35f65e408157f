package torrent

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/lkslts64/leechcore/metainfo"
	"github.com/lkslts64/leechcore/tracker"
)

// Client drives a single torrent from an empty file to completion: it
// announces to the tracker, keeps a bounded pool of peer connections
// busy, and stops once every piece has been verified and written.
type Client struct {
	config *Config
	mi     *metainfo.MetaInfo
	peerID [20]byte

	tc tracker.Client
	pm *pieceManager

	file  *os.File
	queue *peerQueue

	uploaded atomic.Int64

	logger *log.Logger
}

// NewClient builds a Client for the torrent described by mi. Pass nil
// for cfg to use DefaultConfig.
func NewClient(mi *metainfo.MetaInfo, cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	path := filepath.Join(cfg.BaseDir, mi.Name())
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileIO, err)
	}
	if err := file.Truncate(mi.Length()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileIO, err)
	}

	peerID := newPeerID()
	logger := log.New(os.Stdout, fmt.Sprintf("leechcore[%x] ", peerID[14:]), log.LstdFlags)

	cl := &Client{
		config: cfg,
		mi:     mi,
		peerID: peerID,
		tc:     tracker.NewHTTPClient(mi.Announce),
		pm:     newPieceManager(mi, file, logger),
		file:   file,
		queue:  newPeerQueue(),
		logger: logger,
	}
	return cl, nil
}

// Run blocks until the torrent completes, ctx is cancelled, or the
// initial tracker announce fails. It tears down every worker and
// closes the output file before returning.
func (cl *Client) Run(ctx context.Context) error {
	defer cl.file.Close()
	defer cl.queue.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resp, err := cl.announce(ctx, tracker.EventStarted)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTrackerStartFailed, err)
	}
	cl.queue.push(resp.Peers)

	var wg sync.WaitGroup
	wg.Add(cl.config.MaxPeers)
	for i := 0; i < cl.config.MaxPeers; i++ {
		go func() {
			defer wg.Done()
			cl.worker(ctx)
		}()
	}

	go cl.reannounceLoop(ctx, resp.Interval)
	go cl.watchCompletion(ctx, cancel)

	wg.Wait()

	if cl.pm.complete() {
		if _, err := cl.announce(ctx, tracker.EventCompleted); err != nil {
			cl.logger.Printf("completed announce failed: %v", err)
		}
	}
	return nil
}

// worker repeatedly pulls a candidate peer off the queue and runs a
// connection to completion (or failure), until ctx is cancelled.
func (cl *Client) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-cl.queue.out():
			if !ok {
				return
			}
			p := v.(tracker.Peer)
			pc := newPeerConn(p.String(), cl.mi.InfoHash, cl.peerID, cl.pm)
			if err := pc.run(ctx); err != nil {
				cl.logger.Printf("peer %s: %v", p, err)
			}
		}
	}
}

// reannounceLoop re-polls the tracker on the interval it requested
// (never faster than ReannounceFloor) and feeds any new peers to the
// queue.
func (cl *Client) reannounceLoop(ctx context.Context, interval int) {
	wait := time.Duration(interval) * time.Second
	if wait < cl.config.ReannounceFloor {
		wait = cl.config.ReannounceFloor
	}
	t := time.NewTicker(wait)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			resp, err := cl.announce(ctx, tracker.EventNone)
			if err != nil {
				cl.logger.Printf("reannounce failed: %v", err)
				continue
			}
			cl.queue.push(resp.Peers)
		}
	}
}

// watchCompletion polls the piece manager and cancels ctx the moment
// every piece has been verified, which unblocks every worker's queue
// read and lets Run proceed to the completed announce.
func (cl *Client) watchCompletion(ctx context.Context, cancel context.CancelFunc) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if cl.pm.complete() {
				done, total := cl.pm.progress()
				cl.logger.Printf("download complete: %d/%d pieces", done, total)
				cancel()
				return
			}
		}
	}
}

func (cl *Client) announce(ctx context.Context, event tracker.Event) (*tracker.AnnounceResponse, error) {
	downloaded := cl.pm.bytesDownloaded()
	req := tracker.AnnounceRequest{
		InfoHash:   cl.mi.InfoHash,
		PeerID:     cl.peerID,
		Port:       cl.config.ListenPort,
		Uploaded:   cl.uploaded.Load(),
		Downloaded: downloaded,
		Left:       cl.mi.Length() - downloaded,
		Event:      event,
	}
	resp, err := cl.tc.Announce(ctx, req)
	if err == nil {
		return resp, nil
	}
	// Retry a failed announce exactly once, immediately, before giving up
	// (the caller then waits for the next interval, or fails Run for the
	// started announce).
	return cl.tc.Announce(ctx, req)
}

// Progress reports how many of the torrent's pieces have been
// verified and written so far.
func (cl *Client) Progress() (done, total int) {
	return cl.pm.progress()
}
