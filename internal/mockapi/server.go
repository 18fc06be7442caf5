package mockapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/taptrack/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

// Server serves the simulated leaderboard over the same route shape the
// real game API uses.
type Server struct {
	cfg       Config
	generator *Generator
	httpSrv   *http.Server
	listener  net.Listener
	logger    logger.Logger
}

// NewServer builds a server and its generator.
func NewServer(cfg Config, start time.Time) *Server {
	cfg.normalize()
	return &Server{
		cfg:       cfg,
		generator: NewGenerator(cfg, start),
		logger:    logger.Get().Named("mockapi"),
	}
}

// Start begins listening. It returns once the listener is bound so callers
// can read URL() immediately.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/event/", s.handleRankings)

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln
	s.httpSrv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error(ctx, "mock api serve failed", logger.Error(err))
		}
	}()

	s.logger.Info(ctx, "mock api listening",
		logger.String("addr", ln.Addr().String()),
		logger.Int("event_id", s.cfg.EventID),
		logger.Int("chapters", s.cfg.Chapters))
	return nil
}

// URL returns the base URL of the running server.
func (s *Server) URL() string {
	return "http://" + s.listener.Addr().String()
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop() error {
	if s.httpSrv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown mock api: %w", err)
	}
	return nil
}

// handleRankings answers GET /event/{event_id}/rankings.
func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "event" || parts[2] != "rankings" {
		http.NotFound(w, r)
		return
	}
	eventID, err := strconv.Atoi(parts[1])
	if err != nil || eventID != s.cfg.EventID {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(s.generator.Snapshot(time.Now())); err != nil {
		s.logger.Error(r.Context(), "encoding snapshot failed", logger.Error(err))
	}
}
