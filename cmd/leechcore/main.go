package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/gosuri/uilive"

	"github.com/lkslts64/leechcore/metainfo"
	"github.com/lkslts64/leechcore/torrent"
)

var (
	torrentFile = flag.String("torrentfile", "", "read the contents of the torrent `file`")
	outDir      = flag.String("dir", ".", "directory to write the downloaded file into")
	maxPeers    = flag.Int("peers", 0, "max concurrent peer connections (0 = default)")
)

func main() {
	flag.Parse()
	if *torrentFile == "" {
		log.Fatal("please provide -torrentfile")
	}

	mi, err := metainfo.Load(*torrentFile)
	if err != nil {
		log.Fatal(err)
	}

	cfg := torrent.DefaultConfig()
	cfg.BaseDir = *outDir
	if *maxPeers > 0 {
		cfg.MaxPeers = *maxPeers
	}

	cl, err := torrent.NewClient(mi, cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	w := uilive.New()
	w.Start()
	defer w.Stop()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				done, total := cl.Progress()
				fmt.Fprintf(w, "%s / %s pieces (%.1f%%)\n",
					humanize.Comma(int64(done)), humanize.Comma(int64(total)),
					100*float64(done)/float64(total))
			}
		}
	}()

	if err := cl.Run(ctx); err != nil {
		log.Fatal(err)
	}
	cancel()
	<-progressDone
	fmt.Println("download complete:", mi.Name())
}
