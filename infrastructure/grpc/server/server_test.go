package server

import (
	"context"
	"encoding/json"
	"im-bridge/observability"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthServer_Reports_Status_Set_By_Probes(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	s := NewHealthServer(log)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	errs := make(chan error, 1)
	go func() { errs <- s.Serve(listener) }()

	conn, err := grpc.NewClient(listener.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	req.NoError(err)
	defer func() { _ = conn.Close() }()
	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Given nothing has been probed yet
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	req.NoError(err)
	req.Equal(healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	// When a probe flips the service
	s.Health().SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	// Then clients see it
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	req.NoError(err)
	req.Equal(healthpb.HealthCheckResponse_SERVING, resp.Status)

	s.Stop(ctx)
	req.NoError(<-errs)
}

func TestMonitoringServer_Serves_Snapshot(t *testing.T) {
	req := require.New(t)
	m := observability.NewMonitoringManager()
	m.IncrForwarded()
	m.IncrForwarded()
	m.IncrDenials()
	s := NewMonitoringServer(slog.Default(), m, 0)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/monitoring", nil))

	req.Equal(http.StatusOK, rec.Code)
	req.Equal("application/json", rec.Header().Get("Content-Type"))
	var stats observability.MonitoringStats
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &stats))
	req.Equal(uint64(2), stats.Forwarded)
	req.Equal(uint64(1), stats.Denials)
}
