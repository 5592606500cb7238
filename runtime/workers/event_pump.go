package workers

import (
	"context"
	"im-bridge/contract"
	"log/slog"
)

// EventPumpWorker moves inbound IM events from the gateway into the dispatcher.
// Dispatch never blocks, so a slow event cannot hold back the ones behind it.
type EventPumpWorker struct {
	log        *slog.Logger
	source     contract.EventSource
	dispatcher contract.IDispatcher
}

func NewEventPumpWorker(log *slog.Logger, source contract.EventSource, dispatcher contract.IDispatcher) *EventPumpWorker {
	return &EventPumpWorker{log: log, source: source, dispatcher: dispatcher}
}

func (w *EventPumpWorker) Run(ctx context.Context) error {
	events := w.source.Events()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event pump")
			return nil
		case evt, ok := <-events:
			if !ok {
				w.log.Info("Event source closed")
				return nil
			}
			w.dispatcher.Dispatch(ctx, evt)
		}
	}
}
