package runtime

import (
	"context"
	"fmt"
	"im-bridge/domain"
	"im-bridge/domain/event"
	"im-bridge/domain/message"
	"im-bridge/moderation"
	"strings"
)

// Forward relays a group message to every other group of the sender's clusters.
// Each target gets its own goroutine: a slow or failing target never delays the others,
// and the handler returns without waiting for any of them.
func Forward(ctx context.Context, r *Request) (Flow, error) {
	msg, ok := r.Event.(event.GroupMessage)
	if !ok {
		return Continue, nil
	}
	targets, err := r.Clusters.ForwardTargets(msg.Group)
	if err != nil {
		return Break, fmt.Errorf("forward targets of %s: %w", msg.Group, err)
	}
	if len(targets) == 0 {
		return Break, nil
	}

	body := msg.Chain.Forwardable()
	if len(body) == 0 {
		r.Log.Debug("Nothing forwardable in message", "group", msg.Group)
		return Break, nil
	}
	if r.Moderator != nil {
		body = r.censor(body, msg)
	}

	for _, target := range targets {
		r.Go(func() {
			if err := r.forwardTo(ctx, msg, body, target); err != nil {
				r.Monitoring.IncrForwardFailed()
				r.Log.Error("Forward failed", "group", msg.Group, "target", target, "error", err)
				return
			}
			r.Monitoring.IncrForwarded()
		})
	}
	return Break, nil
}

func (r *Request) forwardTo(ctx context.Context, msg event.GroupMessage, body message.Chain, target domain.Group) error {
	info, err := r.Client.GetGroupMemberInfo(ctx, msg.Group, msg.SenderID)
	if err != nil {
		return fmt.Errorf("sender info: %w", err)
	}
	chain := make(message.Chain, 0, len(body)+1)
	chain = append(chain, message.NewText(info.DisplayName()+": "))
	chain = append(chain, body...)
	return r.Client.SendMessage(ctx, domain.ToGroup(target), chain)
}

func (r *Request) censor(body message.Chain, msg event.GroupMessage) message.Chain {
	var found []string
	censored := body.MapText(func(s string) string {
		out, words := r.Moderator.Censor(s)
		found = append(found, words...)
		return out
	})
	if len(found) > 0 {
		r.Monitoring.IncrCensored()
		r.Log.Warn("Censored words in forwarded message",
			"group", msg.Group,
			"sender", msg.SenderID,
			"lang", moderation.Lang(msg.Content()),
			"words", strings.Join(found, ","))
	}
	return censored
}
