package runtime

import (
	"context"
	"fmt"
	"im-bridge/auth"
	"im-bridge/domain"
	"im-bridge/domain/event"
	"im-bridge/domain/message"
	"im-bridge/mocks"
	"im-bridge/observability"
	"im-bridge/parser"
	"im-bridge/repositories"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const adminToken = "amber-bison-cedar-dune-ember"

type fixture struct {
	client     *mocks.MockIMClient
	otp        *auth.OTPStore
	clusters   *repositories.ClusterRepository
	monitoring *observability.MonitoringManager
	dispatcher *Dispatcher
}

func newFixture(t *testing.T, names ...string) *fixture {
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	f := &fixture{
		client:     mocks.NewMockIMClient(ctrl),
		otp:        auth.NewOTPStore(),
		clusters:   repositories.NewClusterRepository(setupTestDB(t), log, sequence(names...)),
		monitoring: observability.NewMonitoringManager(),
	}
	f.dispatcher = NewDispatcher(&Services{
		Token:      auth.TokenFrom(adminToken),
		OTP:        f.otp,
		Clusters:   f.clusters,
		Client:     f.client,
		Parser:     parser.NewParser(parser.DefaultPrefix),
		Monitoring: f.monitoring,
	}, log)
	return f
}

// dispatch runs one event and waits for it and every fan-out task it spawned.
func (f *fixture) dispatch(t *testing.T, evt event.Event) {
	f.dispatcher.Dispatch(context.Background(), evt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.dispatcher.Wait(ctx))
}

func setupTestDB(t *testing.T) *badger.DB {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sequence(names ...string) repositories.NameGenerator {
	var mu sync.Mutex
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(names) == 0 {
			return "", fmt.Errorf("no more names")
		}
		n := names[0]
		names = names[1:]
		return n, nil
	}
}

func friendText(sender, text string) event.FriendMessage {
	return event.FriendMessage{SenderID: sender, Chain: message.Plain(text), At: time.Now()}
}

func groupText(group domain.Group, sender, text string) event.GroupMessage {
	return event.GroupMessage{Group: group, SenderID: sender, Chain: message.Plain(text), At: time.Now()}
}

func TestFirst_Stops_At_First_Break(t *testing.T) {
	req := require.New(t)
	var calls []string
	h := func(name string, flow Flow, err error) Handler {
		return func(context.Context, *Request) (Flow, error) {
			calls = append(calls, name)
			return flow, err
		}
	}

	flow, err := First(h("a", Continue, nil), h("b", Break, nil), h("c", Break, nil))(context.Background(), nil)
	req.NoError(err)
	req.Equal(Break, flow)
	req.Equal([]string{"a", "b"}, calls)

	calls = nil
	flow, err = First(h("a", Continue, nil), h("b", Continue, nil))(context.Background(), nil)
	req.NoError(err)
	req.Equal(Continue, flow)
	req.Equal([]string{"a", "b"}, calls)

	calls = nil
	boom := fmt.Errorf("boom")
	_, err = First(h("a", Continue, boom), h("b", Break, nil))(context.Background(), nil)
	req.ErrorIs(err, boom)
	req.Equal([]string{"a"}, calls)
}

func TestDispatcher_Failed_Event_Is_Logged_Not_Propagated(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	g := domain.NewQQGroup("1001")

	// Given a friend request with the token whose acceptance fails
	f.client.EXPECT().
		AcceptFriendRequest(gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("gateway down"))

	f.dispatch(t, event.NewFriendRequest{RequesterID: "42", Message: "hi " + adminToken})
	// And an ordinary group message in no cluster
	f.dispatch(t, groupText(g, "7", "hello"))

	stats := f.monitoring.GetLatest()
	req.Equal(uint64(2), stats.EventsReceived)
	req.Equal(uint64(1), stats.EventsFailed)
	req.Zero(stats.InFlight)
}

func TestDispatcher_Wait_Honors_Context(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	release := make(chan struct{})
	defer close(release)

	f.client.EXPECT().
		AcceptFriendRequest(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, event.NewFriendRequest) error {
			<-release
			return nil
		})

	f.dispatcher.Dispatch(context.Background(), event.NewFriendRequest{RequesterID: "42", Message: adminToken})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req.ErrorIs(f.dispatcher.Wait(ctx), context.DeadlineExceeded)
}

func TestDispatcher_Event_Survives_Dispatch_Context_Cancellation(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	f.client.EXPECT().
		AcceptFriendRequest(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ event.NewFriendRequest) error {
			return ctx.Err()
		})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.dispatcher.Dispatch(ctx, event.NewFriendRequest{RequesterID: "42", Message: adminToken})

	waitCtx, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()
	req.NoError(f.dispatcher.Wait(waitCtx))
	req.Zero(f.monitoring.GetLatest().EventsFailed)
}
