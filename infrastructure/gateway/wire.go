package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"im-bridge/domain"
	"im-bridge/domain/event"
	"im-bridge/domain/message"
	imerrors "im-bridge/errors"
	"time"
)

// ErrPoison marks a delivery that can never be processed (bad JSON, unknown type).
// Poison deliveries are acked and dropped instead of being requeued forever.
var ErrPoison = errors.New("poison message")

const (
	eventRoutingPrefix  = "event."
	actionRoutingPrefix = "action."
	queryRoutingPrefix  = "query."

	actionSendMessage         = "send_message"
	actionAcceptFriendRequest = "accept_friend_request"
	queryGroupAdminList       = "group_admin_list"
	queryGroupMemberInfo      = "group_member_info"
)

// Meta is the envelope header shared by every message on the gateway exchange.
type Meta struct {
	ID            string    `json:"id"`
	CorrelationID *string   `json:"correlation_id,omitempty"`
	Time          time.Time `json:"time"`
	Type          string    `json:"type"`
}

type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// GenericEnvelope decodes the data part into T.
type GenericEnvelope[T any] struct {
	Meta Meta `json:"meta"`
	Data T    `json:"data"`
}

// ReplyEnvelope is what the gateway answers to a query.
// A non-empty Error means the query failed on the IM side.
type ReplyEnvelope struct {
	Meta  Meta            `json:"meta"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

type groupPayload struct {
	Network string `json:"network"`
	ID      string `json:"id"`
}

func toGroupPayload(g domain.Group) groupPayload {
	return groupPayload{Network: string(g.Network), ID: g.ID}
}

func (p groupPayload) group() (domain.Group, error) {
	network := p.Network
	if network == "" {
		network = string(domain.NetworkQQ)
	}
	g := domain.Group{Network: domain.Network(network), ID: p.ID}
	if err := g.Validate(); err != nil {
		return domain.Group{}, fmt.Errorf("%w: %v", imerrors.ErrInvalidGroup, err)
	}
	return g, nil
}

type messagePayload struct {
	Group  *groupPayload     `json:"group,omitempty"`
	Sender string            `json:"sender"`
	Chain  []message.Element `json:"chain"`
	Time   time.Time         `json:"time"`
}

type recallPayload struct {
	Group     groupPayload `json:"group"`
	Author    string       `json:"author"`
	Operator  string       `json:"operator"`
	MessageID string       `json:"message_id"`
	Time      time.Time    `json:"time"`
}

type friendRequestPayload struct {
	RequestID string    `json:"request_id"`
	Requester string    `json:"requester"`
	Nickname  string    `json:"nickname"`
	Message   string    `json:"message"`
	Time      time.Time `json:"time"`
}

type destinationPayload struct {
	Kind  string        `json:"kind"`
	Group *groupPayload `json:"group,omitempty"`
	User  string        `json:"user,omitempty"`
}

type sendMessagePayload struct {
	Destination destinationPayload `json:"destination"`
	Chain       []message.Element  `json:"chain"`
}

type acceptFriendRequestPayload struct {
	RequestID string `json:"request_id"`
	Requester string `json:"requester"`
}

type groupQueryPayload struct {
	Group  groupPayload `json:"group"`
	Member string       `json:"member,omitempty"`
}

type adminListReply struct {
	Members []string `json:"members"`
}

type memberInfoReply struct {
	Nickname string `json:"nickname"`
	Card     string `json:"card"`
}

// DecodeEvent maps an inbound envelope to its event variant.
// Anything that cannot be decoded is poison.
func DecodeEvent(body []byte) (event.Event, error) {
	var head GenericEnvelope[json.RawMessage]
	if err := json.Unmarshal(body, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPoison, err)
	}
	evt, err := decodeData(head.Meta.Type, head.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPoison, head.Meta.Type, err)
	}
	return evt, nil
}

func decodeData(kind string, data json.RawMessage) (event.Event, error) {
	switch kind {
	case event.GroupMessageKind.String(), event.GroupTempMessageKind.String():
		var p messagePayload
		if err := unmarshal(data, &p); err != nil {
			return nil, err
		}
		if p.Group == nil {
			return nil, fmt.Errorf("%w: missing group", imerrors.ErrInvalidPayload)
		}
		g, err := p.Group.group()
		if err != nil {
			return nil, err
		}
		if kind == event.GroupTempMessageKind.String() {
			return event.GroupTempMessage{Group: g, SenderID: p.Sender, Chain: p.Chain, At: p.Time}, nil
		}
		return event.GroupMessage{Group: g, SenderID: p.Sender, Chain: p.Chain, At: p.Time}, nil

	case event.FriendMessageKind.String():
		var p messagePayload
		if err := unmarshal(data, &p); err != nil {
			return nil, err
		}
		return event.FriendMessage{SenderID: p.Sender, Chain: p.Chain, At: p.Time}, nil

	case event.GroupMessageRecallKind.String():
		var p recallPayload
		if err := unmarshal(data, &p); err != nil {
			return nil, err
		}
		g, err := p.Group.group()
		if err != nil {
			return nil, err
		}
		return event.GroupMessageRecall{Group: g, AuthorID: p.Author, OperatorID: p.Operator, MessageID: p.MessageID, At: p.Time}, nil

	case event.NewFriendRequestKind.String():
		var p friendRequestPayload
		if err := unmarshal(data, &p); err != nil {
			return nil, err
		}
		return event.NewFriendRequest{RequestID: p.RequestID, RequesterID: p.Requester, Nickname: p.Nickname, Message: p.Message, At: p.Time}, nil

	default:
		return nil, imerrors.ErrUnknownEventType
	}
}

func unmarshal(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty data", imerrors.ErrInvalidPayload)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", imerrors.ErrInvalidPayload, err)
	}
	return nil
}

func toDestinationPayload(dest domain.Destination) destinationPayload {
	switch dest.Kind {
	case domain.DestinationFriend:
		return destinationPayload{Kind: "friend", User: dest.UserID}
	case domain.DestinationGroupTemp:
		g := toGroupPayload(dest.Group)
		return destinationPayload{Kind: "group_temp", Group: &g, User: dest.UserID}
	default:
		g := toGroupPayload(dest.Group)
		return destinationPayload{Kind: "group", Group: &g}
	}
}
