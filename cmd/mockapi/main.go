// Command mockapi runs a deterministic fake of the game's ranking API for
// local development. It can also emit a matching master data directory so a
// tracker instance can be pointed straight at it.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/taptrack/internal/mockapi"
	"github.com/okian/taptrack/pkg/logger"
)

// Default configuration constants.
const (
	defaultAddr     = "127.0.0.1:9480"
	defaultEventID  = 150
	defaultDuration = 9 * 24 * time.Hour
)

func main() {
	var (
		addr       = flag.String("addr", defaultAddr, "Listen address")
		eventID    = flag.Int("event", defaultEventID, "Event id to serve")
		chapters   = flag.Int("chapters", 0, "Chapter count; 0 for a normal event")
		players    = flag.Int("players", mockapi.DefaultPlayers, "Simulated player pool size")
		seed       = flag.Int64("seed", 1, "Simulation seed")
		step       = flag.Duration("step", mockapi.DefaultStepInterval, "Score growth interval")
		duration   = flag.Duration("duration", defaultDuration, "Event duration from now")
		masterdata = flag.String("masterdata", "", "If set, write events.json/worldBlooms.json under this root")
		region     = flag.String("region", "jp", "Region directory used with -masterdata")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get().Named("mockapi")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := mockapi.Config{
		Addr:         *addr,
		EventID:      *eventID,
		Chapters:     *chapters,
		Players:      *players,
		Seed:         *seed,
		StepInterval: *step,
	}
	start := time.Now()

	if *masterdata != "" {
		if err := mockapi.WriteMasterData(cfg, *masterdata, *region, start, *duration); err != nil {
			log.Error(ctx, "writing master data failed", logger.Error(err))
			os.Exit(1)
		}
		log.Info(ctx, "master data written",
			logger.String("root", *masterdata),
			logger.String("region", *region))
	}

	srv := mockapi.NewServer(cfg, start)
	if err := srv.Start(ctx); err != nil {
		log.Error(ctx, "mock api start failed", logger.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	if err := srv.Stop(); err != nil {
		log.Error(context.Background(), "mock api shutdown failed", logger.Error(err))
	}
}
