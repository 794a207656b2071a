// Package health serves liveness, readiness and Prometheus metrics for the scheduled runner.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/gridcast/internal/metrics"
	"github.com/yourusername/gridcast/internal/scheduler"
)

// DatabasePinger defines the interface for checking database connectivity.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// JobReporter exposes scheduled job state.
type JobReporter interface {
	IsRunning() bool
	Status() []scheduler.JobStatus
}

// HealthResponse represents the JSON response for /health.
type HealthResponse struct {
	Status    string                `json:"status"`
	Service   string                `json:"service"`
	Timestamp string                `json:"timestamp,omitempty"`
	Version   string                `json:"version,omitempty"`
	Jobs      []scheduler.JobStatus `json:"jobs,omitempty"`
}

// ReadyResponse represents the JSON response for /ready.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// Config holds the configuration for the health server.
type Config struct {
	ServiceName string
	Version     string
	Port        int
	MetricsPath string
	Logger      *logrus.Logger
	DB          DatabasePinger
	Jobs        JobReporter
}

// Server is a lightweight HTTP server for health checks and metrics.
type Server struct {
	cfg    Config
	server *http.Server
	mu     sync.RWMutex
	ready  bool
	now    func() time.Time
}

// NewServer creates a new health server.
func NewServer(cfg Config) *Server {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Server{cfg: cfg, now: time.Now}
}

// SetReady marks the server as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// IsReady returns whether the server is ready.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Handler returns the health and metrics routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/live", s.handleLive)
	mux.Handle(s.cfg.MetricsPath, metrics.Handler())
	return mux
}

// Start serves in the background until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.cfg.Logger.WithFields(logrus.Fields{
			"port":    s.cfg.Port,
			"service": s.cfg.ServiceName,
		}).Info("Health server starting")

		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.cfg.Logger.WithError(err).Error("Health server error")
		}
	}()

	go func() {
		<-ctx.Done()
		if err := s.Shutdown(); err != nil {
			s.cfg.Logger.WithError(err).Warn("Health server shutdown failed")
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}
	s.cfg.Logger.Info("Health server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ok",
		Service:   s.cfg.ServiceName,
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Version:   s.cfg.Version,
	}
	if s.cfg.Jobs != nil {
		response.Jobs = s.cfg.Jobs.Status()
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Service: s.cfg.ServiceName})
}

// handleReady fails when the service is not marked ready, the database is
// unreachable, or the scheduler has stopped. A failed job run is reported
// but does not fail readiness.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := s.now()
	checks := make(map[string]string)
	healthy := true

	if s.IsReady() {
		checks["service"] = "ok"
	} else {
		healthy = false
		checks["service"] = "not_ready"
	}

	if s.cfg.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.cfg.DB.Ping(ctx); err != nil {
			healthy = false
			checks["database"] = fmt.Sprintf("error: %v", err)
		} else {
			checks["database"] = "ok"
		}
	}

	if s.cfg.Jobs != nil {
		if s.cfg.Jobs.IsRunning() {
			checks["scheduler"] = "ok"
		} else {
			healthy = false
			checks["scheduler"] = "stopped"
		}
		for _, job := range s.cfg.Jobs.Status() {
			key := "job:" + job.Name
			switch {
			case job.LastRun.IsZero():
				checks[key] = "pending"
			case job.LastErr != "":
				checks[key] = "error: " + job.LastErr
			default:
				checks[key] = "ok"
			}
		}
	}

	response := ReadyResponse{
		Status:   "ok",
		Service:  s.cfg.ServiceName,
		Checks:   checks,
		Duration: s.now().Sub(start).String(),
	}
	status := http.StatusOK
	if !healthy {
		response.Status = "not_ready"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
