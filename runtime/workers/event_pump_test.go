package workers

import (
	"context"
	"im-bridge/domain"
	"im-bridge/domain/event"
	"im-bridge/domain/message"
	"im-bridge/mocks"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEventPumpWorker_Dispatches_Until_Source_Closes(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	source := mocks.NewMockEventSource(ctrl)
	dispatcher := mocks.NewMockIDispatcher(ctrl)

	events := make(chan event.Event, 2)
	first := event.GroupMessage{Group: domain.NewQQGroup("1"), SenderID: "42", Chain: message.Plain("hi")}
	second := event.FriendMessage{SenderID: "42", Chain: message.Plain("/cluster list -t x")}
	events <- first
	events <- second
	close(events)

	source.EXPECT().Events().Return((<-chan event.Event)(events))
	gomock.InOrder(
		dispatcher.EXPECT().Dispatch(gomock.Any(), first),
		dispatcher.EXPECT().Dispatch(gomock.Any(), second),
	)

	err := NewEventPumpWorker(slog.Default(), source, dispatcher).Run(context.Background())
	req.NoError(err)
}

func TestEventPumpWorker_Stops_On_Context(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	source := mocks.NewMockEventSource(ctrl)
	dispatcher := mocks.NewMockIDispatcher(ctrl)

	source.EXPECT().Events().Return((<-chan event.Event)(make(chan event.Event)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req.NoError(NewEventPumpWorker(slog.Default(), source, dispatcher).Run(ctx))
}
