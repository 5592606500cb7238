package gateway

import (
	"im-bridge/domain"
	"im-bridge/domain/event"
	"im-bridge/domain/message"
	imerrors "im-bridge/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	g := domain.NewQQGroup("1001")

	tests := []struct {
		name     string
		body     string
		expected event.Event
	}{
		{
			name: "Group message",
			body: `{"meta":{"id":"1","type":"group_message","time":"2026-03-01T10:00:00Z"},
				"data":{"group":{"network":"qq","id":"1001"},"sender":"42","time":"2026-03-01T10:00:00Z",
				"chain":[{"type":"text","text":"hello"},{"type":"face","id":"14"}]}}`,
			expected: event.GroupMessage{Group: g, SenderID: "42", At: at,
				Chain: message.Chain{message.NewText("hello"), {Type: message.Face, ID: "14"}}},
		},
		{
			name: "Group message without network defaults to qq",
			body: `{"meta":{"id":"1","type":"group_message"},"data":{"group":{"id":"1001"},"sender":"42","chain":[]}}`,
			expected: event.GroupMessage{Group: g, SenderID: "42", Chain: message.Chain{}},
		},
		{
			name: "Friend message",
			body: `{"meta":{"id":"2","type":"friend_message"},"data":{"sender":"42","chain":[{"type":"text","text":"/cluster list -t x"}]}}`,
			expected: event.FriendMessage{SenderID: "42", Chain: message.Plain("/cluster list -t x")},
		},
		{
			name:     "Group temp message",
			body:     `{"meta":{"id":"3","type":"group_temp_message"},"data":{"group":{"id":"1001"},"sender":"42","chain":[]}}`,
			expected: event.GroupTempMessage{Group: g, SenderID: "42", Chain: message.Chain{}},
		},
		{
			name:     "Recall",
			body:     `{"meta":{"id":"4","type":"group_message_recall"},"data":{"group":{"id":"1001"},"author":"42","operator":"7","message_id":"m1"}}`,
			expected: event.GroupMessageRecall{Group: g, AuthorID: "42", OperatorID: "7", MessageID: "m1"},
		},
		{
			name:     "Friend request",
			body:     `{"meta":{"id":"5","type":"new_friend_request"},"data":{"request_id":"r1","requester":"42","nickname":"bob","message":"token please"}}`,
			expected: event.NewFriendRequest{RequestID: "r1", RequesterID: "42", Nickname: "bob", Message: "token please"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, err := DecodeEvent([]byte(tt.body))
			require.NoError(t, err)
			require.Equal(t, tt.expected, evt)
		})
	}
}

func TestDecodeEvent_Poison(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		cause error
	}{
		{name: "Not JSON", body: `hello`},
		{name: "Unknown type", body: `{"meta":{"id":"1","type":"nudge"},"data":{}}`, cause: imerrors.ErrUnknownEventType},
		{name: "Missing data", body: `{"meta":{"id":"1","type":"friend_message"}}`, cause: imerrors.ErrInvalidPayload},
		{name: "Group message without group", body: `{"meta":{"id":"1","type":"group_message"},"data":{"sender":"42"}}`, cause: imerrors.ErrInvalidPayload},
		{name: "Unsupported network", body: `{"meta":{"id":"1","type":"group_message"},"data":{"group":{"network":"irc","id":"1"}}}`, cause: imerrors.ErrInvalidGroup},
		{name: "Group id with separator", body: `{"meta":{"id":"1","type":"group_message_recall"},"data":{"group":{"id":"a:b"}}}`, cause: imerrors.ErrInvalidGroup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(tt.body))
			require.ErrorIs(t, err, ErrPoison)
			if tt.cause != nil {
				require.ErrorContains(t, err, tt.cause.Error())
			}
		})
	}
}
