// Package server exposes the autoscaler's health, status and Prometheus
// metrics over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Iron-Ham/dynoscaler/internal/logging"
	"github.com/Iron-Ham/dynoscaler/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

// Server serves /healthz, /status and /metrics.
type Server struct {
	addr     string
	gatherer prometheus.Gatherer
	last     *telemetry.Last
	logger   *logging.Logger
	started  time.Time
}

// New creates a Server. gatherer and last may be nil, in which case the
// matching endpoints report empty data.
func New(addr string, gatherer prometheus.Gatherer, last *telemetry.Last, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if gatherer == nil {
		gatherer = prometheus.NewRegistry()
	}
	if last == nil {
		last = telemetry.NewLast()
	}
	return &Server{
		addr:     addr,
		gatherer: gatherer,
		last:     last,
		logger:   logger.WithComponent("server"),
		started:  time.Now(),
	}
}

// Router returns the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/status", s.statusHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

// Listen binds the configured address. Binding is split from Serve so a
// taken port is reported before the control loop starts.
func (s *Server) Listen() (net.Listener, error) {
	return net.Listen("tcp", s.addr)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

type statusResponse struct {
	Status    string            `json:"status"`
	LastCycle *telemetry.Record `json:"lastCycle"`
}

func (s *Server) statusHandler(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{Status: "waiting"}
	if rec, ok := s.last.Get(); ok {
		resp.Status = "running"
		resp.LastCycle = &rec
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
