// Package runtime routes inbound IM events through the command path and the forwarder.
// It wires shared services to each event without holding any business state of its own.
package runtime

import (
	"context"
	"fmt"
	"im-bridge/auth"
	"im-bridge/contract"
	"im-bridge/domain"
	"im-bridge/domain/event"
	"im-bridge/domain/message"
	"im-bridge/moderation"
	"im-bridge/observability"
	"im-bridge/parser"
	"im-bridge/repositories"
	"log/slog"
)

// Services are the process-wide dependencies, built once at startup.
type Services struct {
	Token      auth.Token
	OTP        auth.IOTPStore
	Clusters   repositories.IClusterRepository
	Client     contract.IMClient
	Parser     parser.Parser
	Moderator  *moderation.Moderator // nil disables censoring of forwarded text
	Monitoring *observability.MonitoringManager
}

// Request is what one event carries down the handler chain.
// Only Command is written after creation, by the command path, before any gate runs.
type Request struct {
	*Services
	Kind    event.Kind
	Event   event.Event
	Command domain.Command
	Log     *slog.Logger

	tasks *tracker
}

func newRequest(svc *Services, evt event.Event, log *slog.Logger, tasks *tracker) *Request {
	return &Request{
		Services: svc,
		Kind:     evt.Kind(),
		Event:    evt,
		Log:      log.With("kind", evt.Kind().String()),
		tasks:    tasks,
	}
}

// Reply sends text back to the conversation the event came from.
func (r *Request) Reply(ctx context.Context, text string) error {
	te, ok := r.Event.(event.TextEvent)
	if !ok {
		return fmt.Errorf("cannot reply to %s", r.Kind)
	}
	return r.Client.SendMessage(ctx, te.Source(), message.Plain(text))
}

// Go runs fn on a tracked goroutine that outlives the handler.
func (r *Request) Go(fn func()) {
	r.tasks.Go(fn)
}
