// Package admin serves the daemon's loopback HTTP endpoints: /healthz for
// liveness probes, /metrics for Prometheus scrapes, and /status for a JSON
// report of the monitor's state.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status is the payload served on /status.
type Status struct {
	Hostname  string       `json:"hostname"`
	Version   string       `json:"version"`
	Phase     string       `json:"phase"`
	Cycles    uint64       `json:"cycles"`
	LastCycle *CycleReport `json:"last_cycle,omitempty"`
	Clock     *ClockReport `json:"clock,omitempty"`
}

// CycleReport describes the most recent collection cycle.
type CycleReport struct {
	Time       time.Time `json:"time"`
	Enumerated int       `json:"enumerated"`
	Matched    int       `json:"matched"`
	Failed     int       `json:"failed"`
	Written    int       `json:"written"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// ClockReport describes the last NTP probe.
type ClockReport struct {
	Phase         string    `json:"phase"`
	OffsetSeconds float64   `json:"offset_seconds"`
	CheckedAt     time.Time `json:"checked_at"`
	Error         string    `json:"error,omitempty"`
}

// StatusSource is the interface the admin server needs from the daemon.
type StatusSource interface {
	Status() Status
}

type Server struct {
	source StatusSource
	log    *slog.Logger
}

func NewServer(source StatusSource, log *slog.Logger) *Server {
	return &Server{source: source, log: log.With("component", "admin")}
}

// ListenAndServe starts the HTTP server on addr and blocks until ctx is
// cancelled. Cancellation drains in-flight requests before returning.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Shut down when ctx is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("admin endpoint listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve admin endpoint: %w", err)
	}
	return nil
}

// Handler returns the endpoint routing. Split out so tests can drive the
// handlers without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.source.Status()); err != nil {
		s.log.Warn("encode status response", "err", err)
	}
}
