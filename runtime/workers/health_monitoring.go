package workers

import (
	"context"
	"log/slog"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Probe reports whether one dependency is usable.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// StatusSetter is satisfied by the gRPC health server.
type StatusSetter interface {
	SetServingStatus(service string, status healthpb.HealthCheckResponse_ServingStatus)
}

// HealthMonitoringWorker runs every probe on each tick and publishes SERVING
// only when all of them pass. Status changes are logged, steady states are not.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	health         StatusSetter
	service        string
	probes         []Probe
	healthInterval time.Duration
	serving        *bool
}

func NewHealthMonitoringWorker(
	log *slog.Logger,
	health StatusSetter,
	service string,
	healthInterval time.Duration,
	probes ...Probe,
) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{
		log:            log,
		health:         health,
		service:        service,
		probes:         probes,
		healthInterval: healthInterval,
	}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.healthInterval)
	defer ticker.Stop()

	w.check(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health probes")
			w.health.SetServingStatus(w.service, healthpb.HealthCheckResponse_NOT_SERVING)
			return nil
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *HealthMonitoringWorker) check(ctx context.Context) {
	serving := true
	for _, p := range w.probes {
		probeCtx, cancel := context.WithTimeout(ctx, w.healthInterval)
		err := p.Check(probeCtx)
		cancel()
		if err != nil {
			serving = false
			if w.serving == nil || *w.serving {
				w.log.Warn("Health probe failed", "probe", p.Name, "error", err)
			}
		}
	}

	if w.serving != nil && *w.serving == serving {
		return
	}
	w.serving = &serving
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	w.log.Info("Health status changed", "service", w.service, "status", status.String())
	w.health.SetServingStatus(w.service, status)
}
