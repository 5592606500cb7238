// Package event defines the inbound IM events the bridge reacts to.
// Events are produced by the IM collaborator and owned by the dispatch
// pipeline for the duration of one event's processing.
package event

import (
	"im-bridge/domain"
	"im-bridge/domain/message"
	"time"
)

// Kind is the discriminant of an inbound event.
type Kind int

const (
	GroupMessageKind Kind = iota
	FriendMessageKind
	GroupTempMessageKind
	GroupMessageRecallKind
	NewFriendRequestKind
)

func (k Kind) String() string {
	switch k {
	case GroupMessageKind:
		return "group_message"
	case FriendMessageKind:
		return "friend_message"
	case GroupTempMessageKind:
		return "group_temp_message"
	case GroupMessageRecallKind:
		return "group_message_recall"
	case NewFriendRequestKind:
		return "new_friend_request"
	default:
		return "unknown"
	}
}

type Event interface {
	Kind() Kind
}

// TextEvent is implemented by events that carry a message a user wrote.
type TextEvent interface {
	Event
	// Source is where replies to this message go.
	Source() domain.Destination
	Content() string
}

type GroupMessage struct {
	Group    domain.Group
	SenderID string
	Chain    message.Chain
	At       time.Time
}

func (GroupMessage) Kind() Kind                   { return GroupMessageKind }
func (m GroupMessage) Source() domain.Destination { return domain.ToGroup(m.Group) }
func (m GroupMessage) Content() string            { return m.Chain.Content() }

type FriendMessage struct {
	SenderID string
	Chain    message.Chain
	At       time.Time
}

func (FriendMessage) Kind() Kind                   { return FriendMessageKind }
func (m FriendMessage) Source() domain.Destination { return domain.ToFriend(m.SenderID) }
func (m FriendMessage) Content() string            { return m.Chain.Content() }

// GroupTempMessage is a private message sent through a group by a non-friend.
type GroupTempMessage struct {
	Group    domain.Group
	SenderID string
	Chain    message.Chain
	At       time.Time
}

func (GroupTempMessage) Kind() Kind { return GroupTempMessageKind }
func (m GroupTempMessage) Source() domain.Destination {
	return domain.ToGroupTemp(m.Group, m.SenderID)
}
func (m GroupTempMessage) Content() string { return m.Chain.Content() }

type GroupMessageRecall struct {
	Group      domain.Group
	AuthorID   string
	OperatorID string
	MessageID  string
	At         time.Time
}

func (GroupMessageRecall) Kind() Kind { return GroupMessageRecallKind }

// NewFriendRequest carries the free text the requester typed,
// which is where the admin token is expected.
type NewFriendRequest struct {
	RequestID   string
	RequesterID string
	Nickname    string
	Message     string
	At          time.Time
}

func (NewFriendRequest) Kind() Kind { return NewFriendRequestKind }
