package observability

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMonitoringManager_Counters_Are_Concurrency_Safe(t *testing.T) {
	req := require.New(t)
	mm := NewMonitoringManager()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mm.TaskStarted()
			mm.IncrEventsReceived()
			mm.IncrForwarded()
			mm.TaskDone()
		}()
	}
	wg.Wait()
	mm.IncrForwardFailed()

	stats := mm.GetLatest()
	req.Equal(uint64(50), stats.EventsReceived)
	req.Equal(uint64(50), stats.Forwarded)
	req.Equal(uint64(1), stats.ForwardFailed)
	req.Zero(stats.InFlight)
}
