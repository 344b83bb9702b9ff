// Command surge-simulator feeds a synthetic tide and storm surge into a
// running tidewatch server through its REST ingest endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chrissnell/tidewatch/internal/log"
	"github.com/chrissnell/tidewatch/internal/simulator"
)

func main() {
	serverURL := flag.String("url", "http://localhost:8080", "tidewatch server URL")
	station := flag.String("station", "pilote-norden", "station id to post readings for")
	interval := flag.Duration("interval", time.Second, "wall-clock delay between posts")
	step := flag.Duration("step", 10*time.Minute, "simulated time between readings")
	count := flag.Int("count", 0, "number of readings to post (0 runs until interrupted)")
	startAt := flag.String("start", "", "simulated start time, RFC3339 (defaults to now)")
	surgeHeight := flag.Float64("surge-height", 1.4, "surge height added at the middle of the surge window, in meters")
	surgeOffset := flag.Duration("surge-offset", 6*time.Hour, "simulated time until the surge begins")
	surgeDuration := flag.Duration("surge-duration", 18*time.Hour, "length of the surge window")
	seed := flag.Int64("seed", time.Now().UnixNano(), "noise seed")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	start := time.Now()
	if *startAt != "" {
		var err error
		start, err = time.Parse(time.RFC3339, *startAt)
		if err != nil {
			log.Fatalf("invalid -start: %v", err)
		}
	}

	cfg := simulator.DefaultConfig(start)
	cfg.Step = *step
	cfg.Seed = *seed
	cfg.SurgeHeight = *surgeHeight
	cfg.SurgeOffset = *surgeOffset
	cfg.SurgeDuration = *surgeDuration

	gen, err := simulator.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	client, err := simulator.NewClient(*serverURL)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Infof("posting synthetic readings for [%s] to %s every %v", *station, *serverURL, *interval)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for sent := 0; *count == 0 || sent < *count; sent++ {
		s := gen.Next()
		if err := client.Post(ctx, *station, s); err != nil {
			log.Errorf("reading %s (%.2fm) not accepted: %v", s.Label, s.Height, err)
		} else {
			log.Infow("reading posted", "station", *station, "height", s.Height, "label", s.Label)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			log.Info("interrupted, stopping simulator")
			return
		}
	}
}
