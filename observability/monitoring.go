package observability

import (
	"runtime"
	"sync/atomic"
	"time"
)

// MonitoringStats is a point-in-time copy of the bridge counters.
type MonitoringStats struct {
	// --- DISPATCH METRICS ---
	EventsReceived  uint64 `json:"events_received"`
	EventsFailed    uint64 `json:"events_failed"`
	CommandsHandled uint64 `json:"commands_handled"`
	Denials         uint64 `json:"denials"`
	InFlight        int64  `json:"in_flight"`

	// --- FORWARD METRICS ---
	Forwarded     uint64 `json:"forwarded"`
	ForwardFailed uint64 `json:"forward_failed"`
	Censored      uint64 `json:"censored"`

	// --- SYSTEM METRICS ---
	AllocMemMb uint64        `json:"alloc_mem_mb"`
	NumGC      uint32        `json:"num_gc"`
	Uptime     time.Duration `json:"uptime"`
}

// MonitoringManager holds lock-free counters shared by every dispatch task.
type MonitoringManager struct {
	startedAt time.Time

	eventsReceived  atomic.Uint64
	eventsFailed    atomic.Uint64
	commandsHandled atomic.Uint64
	denials         atomic.Uint64
	inFlight        atomic.Int64
	forwarded       atomic.Uint64
	forwardFailed   atomic.Uint64
	censored        atomic.Uint64
}

func NewMonitoringManager() *MonitoringManager {
	return &MonitoringManager{startedAt: time.Now()}
}

func (mm *MonitoringManager) IncrEventsReceived()  { mm.eventsReceived.Add(1) }
func (mm *MonitoringManager) IncrEventsFailed()    { mm.eventsFailed.Add(1) }
func (mm *MonitoringManager) IncrCommandsHandled() { mm.commandsHandled.Add(1) }
func (mm *MonitoringManager) IncrDenials()         { mm.denials.Add(1) }
func (mm *MonitoringManager) IncrForwarded()       { mm.forwarded.Add(1) }
func (mm *MonitoringManager) IncrForwardFailed()   { mm.forwardFailed.Add(1) }
func (mm *MonitoringManager) IncrCensored()        { mm.censored.Add(1) }

// TaskStarted and TaskDone bracket every tracked goroutine (events and fan-out).
func (mm *MonitoringManager) TaskStarted() { mm.inFlight.Add(1) }
func (mm *MonitoringManager) TaskDone()    { mm.inFlight.Add(-1) }

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MonitoringStats{
		EventsReceived:  mm.eventsReceived.Load(),
		EventsFailed:    mm.eventsFailed.Load(),
		CommandsHandled: mm.commandsHandled.Load(),
		Denials:         mm.denials.Load(),
		InFlight:        mm.inFlight.Load(),
		Forwarded:       mm.forwarded.Load(),
		ForwardFailed:   mm.forwardFailed.Load(),
		Censored:        mm.censored.Load(),
		AllocMemMb:      m.Alloc / 1024 / 1024,
		NumGC:           m.NumGC,
		Uptime:          time.Since(mm.startedAt).Round(time.Second),
	}
}
