package runtime

import (
	"context"
	"fmt"
	"im-bridge/domain/event"

	"github.com/samber/lo"
)

const (
	invalidTokenText = "Invalid token"
	invalidOTPText   = "Invalid one-time password"
	failedAuthText   = "Failed to authenticate user."
)

// A denied request is answered, then continues down the chain:
// the gated handler never runs, but later branches (the forwarder) still see the message.

// TokenAuth admits commands whose credential is the admin token.
func TokenAuth(next Handler) Handler {
	return func(ctx context.Context, r *Request) (Flow, error) {
		if r.Command != nil && r.Token.Matches(r.Command.Credential()) {
			return next(ctx, r)
		}
		r.deny(ctx, invalidTokenText)
		return Continue, nil
	}
}

// OTPAuth admits commands whose credential is a live one-time password, consuming it.
func OTPAuth(next Handler) Handler {
	return func(ctx context.Context, r *Request) (Flow, error) {
		if r.Command != nil && r.OTP.Verify(r.Command.Credential()) {
			return next(ctx, r)
		}
		r.deny(ctx, invalidOTPText)
		return Continue, nil
	}
}

// MustAdmin admits group messages sent by an administrator of that group.
// Anyone else is ignored without a reply. If the admin list cannot be fetched
// the request is denied.
func MustAdmin(next Handler) Handler {
	return func(ctx context.Context, r *Request) (Flow, error) {
		msg, ok := r.Event.(event.GroupMessage)
		if !ok {
			return Continue, nil
		}
		admins, err := r.Client.GetGroupAdminList(ctx, msg.Group)
		if err != nil {
			r.Log.Error("Admin list query failed", "group", msg.Group, "error", err)
			r.deny(ctx, failedAuthText)
			return Continue, nil
		}
		if !lo.Contains(admins, msg.SenderID) {
			r.Log.Debug("Command from a non-admin ignored", "group", msg.Group, "sender", msg.SenderID)
			r.Monitoring.IncrDenials()
			return Continue, nil
		}
		return next(ctx, r)
	}
}

func (r *Request) deny(ctx context.Context, text string) {
	r.Monitoring.IncrDenials()
	if err := r.Reply(ctx, text); err != nil {
		r.Log.Warn("Denial reply failed", "command", fmt.Sprintf("%T", r.Command), "error", err)
	}
}
