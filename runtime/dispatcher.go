package runtime

import (
	"context"
	"im-bridge/domain/event"
	"im-bridge/observability"
	"log/slog"
	"sync"
)

// Flow tells the chain whether to try the next branch.
type Flow int

const (
	// Continue hands the request to the next branch.
	Continue Flow = iota
	// Break ends the chain: the request has been handled.
	Break
)

// Handler is one link of the chain of responsibility.
// An error ends the chain and is logged by the Dispatcher.
type Handler func(ctx context.Context, r *Request) (Flow, error)

// First tries each handler in order until one breaks or fails.
func First(handlers ...Handler) Handler {
	return func(ctx context.Context, r *Request) (Flow, error) {
		for _, h := range handlers {
			flow, err := h(ctx, r)
			if err != nil {
				return Break, err
			}
			if flow == Break {
				return Break, nil
			}
		}
		return Continue, nil
	}
}

// Dispatcher handles each inbound event on its own goroutine.
// Events are independent: one event failing never affects another.
type Dispatcher struct {
	svc   *Services
	log   *slog.Logger
	root  Handler
	tasks *tracker
}

func NewDispatcher(svc *Services, log *slog.Logger) *Dispatcher {
	if svc.Monitoring == nil {
		svc.Monitoring = observability.NewMonitoringManager()
	}
	return &Dispatcher{
		svc:   svc,
		log:   log,
		root:  First(AcceptFriendRequest, Commands, Forward),
		tasks: &tracker{monitoring: svc.Monitoring, log: log},
	}
}

// Dispatch returns immediately. The event keeps running after ctx is canceled
// so that a shutdown drains in-flight work instead of cutting it; use Wait for that.
func (d *Dispatcher) Dispatch(ctx context.Context, evt event.Event) {
	d.svc.Monitoring.IncrEventsReceived()
	taskCtx := context.WithoutCancel(ctx)
	d.tasks.Go(func() {
		r := newRequest(d.svc, evt, d.log, d.tasks)
		if _, err := d.root(taskCtx, r); err != nil {
			d.svc.Monitoring.IncrEventsFailed()
			r.Log.Error("Event handling failed", "error", err)
		}
	})
}

// Wait blocks until every event and fan-out task has finished, or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	return d.tasks.Wait(ctx)
}

// tracker is a WaitGroup that reports in-flight tasks and recovers their panics.
type tracker struct {
	wg         sync.WaitGroup
	monitoring *observability.MonitoringManager
	log        *slog.Logger
}

func (t *tracker) Go(fn func()) {
	t.wg.Add(1)
	t.monitoring.TaskStarted()
	go func() {
		defer t.wg.Done()
		defer t.monitoring.TaskDone()
		defer func() {
			if rec := recover(); rec != nil {
				t.log.Error("Task panicked", "panic", rec)
			}
		}()
		fn()
	}()
}

func (t *tracker) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
