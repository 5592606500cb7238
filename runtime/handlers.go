package runtime

import (
	"context"
	"fmt"
	"im-bridge/domain"
	"im-bridge/domain/event"
	"strings"
)

const (
	otpText           = "Your one-time password is:\n%s"
	clusterListText   = "Available clusters:\n%s"
	clusterListFailed = "Failed to list clusters. Please try again later."
	clusterNewText    = "New cluster created: %s"
	clusterNewFailed  = "Failed to create cluster. Please try again later."
	joinedText        = "Joined to cluster"
	joinFailed        = "Failed to join cluster. Please try again later."
)

var (
	requestOTP  = TokenAuth(RequestOTP)
	clusterAdd  = TokenAuth(ClusterAdd)
	clusterList = TokenAuth(ClusterList)
	join        = MustAdmin(OTPAuth(Join))
)

// AcceptFriendRequest accepts requests whose text carries the admin token.
// Other requests are left pending: neither accepted nor rejected.
func AcceptFriendRequest(ctx context.Context, r *Request) (Flow, error) {
	req, ok := r.Event.(event.NewFriendRequest)
	if !ok || !r.Token.ContainedIn(req.Message) {
		return Continue, nil
	}
	if err := r.Client.AcceptFriendRequest(ctx, req); err != nil {
		return Break, fmt.Errorf("accept friend request from %s: %w", req.RequesterID, err)
	}
	r.Log.Info("Friend request accepted", "requester", req.RequesterID, "nickname", req.Nickname)
	return Break, nil
}

// Commands parses text messages and routes the command to its gated handler.
// Administration happens in private chats with the bot; joining happens in the group.
func Commands(ctx context.Context, r *Request) (Flow, error) {
	te, ok := r.Event.(event.TextEvent)
	if !ok {
		return Continue, nil
	}
	cmd, ok := r.Parser.Parse(te.Content())
	if !ok {
		return Continue, nil
	}
	r.Command = cmd

	switch r.Kind {
	case event.FriendMessageKind:
		switch c := cmd.(type) {
		case domain.RequestOTPCommand:
			return requestOTP(ctx, r)
		case domain.ClusterCommand:
			if c.Sub == domain.ClusterAdd {
				return clusterAdd(ctx, r)
			}
			return clusterList(ctx, r)
		}
	case event.GroupMessageKind:
		if _, ok := cmd.(domain.JoinCommand); ok {
			return join(ctx, r)
		}
	}
	return Continue, nil
}

func RequestOTP(ctx context.Context, r *Request) (Flow, error) {
	r.Monitoring.IncrCommandsHandled()
	otp, err := r.OTP.Generate()
	if err != nil {
		return Break, fmt.Errorf("otp generation failed: %w", err)
	}
	if err = r.Reply(ctx, fmt.Sprintf(otpText, otp)); err != nil {
		return Break, fmt.Errorf("otp delivery failed: %w", err)
	}
	r.Log.Info("One-time password issued")
	return Break, nil
}

func ClusterAdd(ctx context.Context, r *Request) (Flow, error) {
	r.Monitoring.IncrCommandsHandled()
	name, err := r.Clusters.Create()
	if err != nil {
		r.Log.Error("Cluster creation failed", "error", err)
		return Break, r.Reply(ctx, clusterNewFailed)
	}
	r.Log.Info("Cluster created", "cluster", name)
	return Break, r.Reply(ctx, fmt.Sprintf(clusterNewText, name))
}

func ClusterList(ctx context.Context, r *Request) (Flow, error) {
	r.Monitoring.IncrCommandsHandled()
	names, err := r.Clusters.ListNames()
	if err != nil {
		r.Log.Error("Cluster listing failed", "error", err)
		return Break, r.Reply(ctx, clusterListFailed)
	}
	return Break, r.Reply(ctx, fmt.Sprintf(clusterListText, strings.Join(names, "\n")))
}

// Join adds the sender's group to the cluster named in the command.
// An unknown cluster gets the same answer as a storage failure.
func Join(ctx context.Context, r *Request) (Flow, error) {
	r.Monitoring.IncrCommandsHandled()
	msg, ok := r.Event.(event.GroupMessage)
	if !ok {
		return Continue, nil
	}
	cmd, ok := r.Command.(domain.JoinCommand)
	if !ok {
		return Continue, nil
	}
	if err := r.Clusters.Join(cmd.Cluster, msg.Group); err != nil {
		r.Log.Error("Join failed", "cluster", cmd.Cluster, "group", msg.Group, "error", err)
		return Break, r.Reply(ctx, joinFailed)
	}
	r.Log.Info("Group joined cluster", "cluster", cmd.Cluster, "group", msg.Group)
	return Break, r.Reply(ctx, joinedText)
}
