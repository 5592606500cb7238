package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"im-bridge/observability"
	"log/slog"
	"net/http"
	"time"
)

type MonitoringServer struct {
	log     *slog.Logger
	monitor *observability.MonitoringManager
	server  *http.Server
}

func NewMonitoringServer(log *slog.Logger, m *observability.MonitoringManager, port int) *MonitoringServer {
	s := &MonitoringServer{log: log, monitor: m}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *MonitoringServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/monitoring", s.handleMonitoring)
	return mux
}

func (s *MonitoringServer) Start() error {
	s.log.Info("Monitoring available", "url", fmt.Sprintf("http://localhost%s/api/monitoring", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("monitoring server error: %w", err)
	}
	return nil
}

func (s *MonitoringServer) Stop(ctx context.Context) {
	_ = s.server.Shutdown(ctx)
}

func (s *MonitoringServer) handleMonitoring(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.monitor.GetLatest()); err != nil {
		s.log.Warn("Failed to encode monitoring snapshot", "error", err)
	}
}
