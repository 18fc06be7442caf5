package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/taptrack/internal/adapters/http/api"
	app "github.com/okian/taptrack/internal/app"
	"github.com/okian/taptrack/internal/config"
	"github.com/okian/taptrack/internal/domain/model"
	"github.com/okian/taptrack/internal/tracker"
	"github.com/okian/taptrack/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Disable default Go metrics collection; the custom registry carries
	// everything the ops surface needs.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := app.New(serviceOptions(cfg, log)...)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer svc.Stop()

	// Ops HTTP surface is optional; an empty address disables it.
	var srv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		api.NewServer(svc).Register(mux)

		srv = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadTimeout:       readTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
		}
		go func() {
			log.Info(ctx, "starting ops HTTP server", logger.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				os.Stderr.WriteString("ops HTTP server failed: " + err.Error() + "\n")
			}
		}()
	}

	<-ctx.Done()
	log.Info(ctx, "shutting down...")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(ctx, "ops server shutdown failed", logger.Error(err))
		}
	}
}

// serviceOptions translates the flat config into service options.
func serviceOptions(cfg *config.Config, log logger.Logger) []app.Option {
	regions := make([]model.Region, len(cfg.Regions))
	for i, r := range cfg.Regions {
		regions[i] = model.Region(r)
	}

	urls := make(map[model.Region]string, len(cfg.RankingAPIURL))
	for r, u := range cfg.RankingAPIURL {
		urls[model.Region(r)] = u
	}

	ranks := make(map[model.Region][]tracker.RankRange, len(cfg.HighResRecord.Ranks))
	for r, pairs := range cfg.HighResRecord.Ranks {
		ranges := make([]tracker.RankRange, 0, len(pairs))
		for _, pair := range pairs {
			if len(pair) == 2 {
				ranges = append(ranges, tracker.RankRange{From: pair[0], To: pair[1]})
			}
		}
		ranks[model.Region(r)] = ranges
	}

	uids := make(map[model.Region][]string, len(cfg.HighResRecord.UIDs))
	for r, list := range cfg.HighResRecord.UIDs {
		uids[model.Region(r)] = list
	}

	return []app.Option{
		app.WithLogger(log),
		app.WithRegions(regions),
		app.WithAPIURLs(urls),
		app.WithToken(cfg.GameAPIToken),
		app.WithMasterDataRoot(cfg.MasterdataRoot),
		app.WithDBRoot(cfg.DBRoot),
		app.WithNormalInterval(time.Duration(cfg.RecordIntervalSeconds) * time.Second),
		app.WithGrace(time.Duration(cfg.RecordTimeAfterEventEndMinutes) * time.Minute),
		app.WithHighResInterval(time.Duration(cfg.HighResRecord.IntervalSeconds) * time.Second),
		app.WithHighResRanks(ranks),
		app.WithHighResUIDs(uids),
	}
}
