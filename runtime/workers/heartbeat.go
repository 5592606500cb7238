package workers

import (
	"context"
	"im-bridge/domain"
	"im-bridge/observability"
	"log/slog"
	"os"
	"reflect"
	"time"

	"github.com/shirou/gopsutil/process"
)

type NamedChannel struct {
	Name    string
	Channel any
}

// HeartbeatWorker periodically logs the bridge counters next to the process health (CPU, RAM, status)
// and the fill level of the watched channels.
// Reading len and cap of a channel is non-blocking, so this won't interfere with other goroutines.
type HeartbeatWorker struct {
	log            *slog.Logger
	monitoring     *observability.MonitoringManager
	channels       []NamedChannel
	metricInterval time.Duration
}

func NewHeartbeatWorker(
	log *slog.Logger,
	monitoring *observability.MonitoringManager,
	metricInterval time.Duration,
	channels ...NamedChannel,
) *HeartbeatWorker {
	return &HeartbeatWorker{
		log:            log,
		monitoring:     monitoring,
		channels:       channels,
		metricInterval: metricInterval,
	}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping heartbeat")
			return nil
		case <-ticker.C:
			w.beat(p)
		}
	}
}

func (w *HeartbeatWorker) beat(p *process.Process) {
	stats := w.monitoring.GetLatest()
	attrs := []any{
		"events", stats.EventsReceived,
		"events_failed", stats.EventsFailed,
		"commands", stats.CommandsHandled,
		"denials", stats.Denials,
		"in_flight", stats.InFlight,
		"forwarded", stats.Forwarded,
		"forward_failed", stats.ForwardFailed,
		"censored", stats.Censored,
		"alloc_mb", stats.AllocMemMb,
		"uptime", stats.Uptime,
	}

	rss, cpu, status, err := getSelfStats(p)
	if err != nil {
		w.log.Error("Failed to collect self stats", "error", err)
	} else {
		attrs = append(attrs, "rss", rss, "cpu", cpu, "status", domain.ToStatus(status))
	}

	for _, nc := range w.channels {
		v := reflect.ValueOf(nc.Channel)
		if v.Kind() != reflect.Chan {
			w.log.Error("Provided object is not a channel", "name", nc.Name)
			continue
		}
		attrs = append(attrs, nc.Name+"_len", v.Len(), nc.Name+"_cap", v.Cap())
	}

	w.log.Info("Heartbeat", attrs...)
}

// getSelfStats retrieves technical metrics (Memory, CPU, and OS Status) for the given process.
func getSelfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}

	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, firstStatus(status), nil
}

// firstStatus accepts both shapes gopsutil has used for Status: a single code or a list of them.
func firstStatus[T string | []string](status T) string {
	switch v := any(status).(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}
