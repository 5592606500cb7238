package test

import (
	"context"
	"fmt"
	"im-bridge/auth"
	"im-bridge/domain"
	"im-bridge/domain/event"
	"im-bridge/domain/message"
	"im-bridge/observability"
	"im-bridge/parser"
	"im-bridge/repositories"
	"im-bridge/runtime"
	"im-bridge/runtime/workers"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const adminToken = "amber-bison-cedar-dune-ember"

type sent struct {
	dest  domain.Destination
	chain message.Chain
}

// fakeIM plays the IM network: it records every outbound message
// and answers queries from fixed admin and member tables.
type fakeIM struct {
	events  chan event.Event
	sent    chan sent
	mu      sync.Mutex
	admins  map[domain.Group][]string
	members map[string]domain.MemberInfo
	friends []string
}

func newFakeIM() *fakeIM {
	return &fakeIM{
		events:  make(chan event.Event, 16),
		sent:    make(chan sent, 64),
		admins:  map[domain.Group][]string{},
		members: map[string]domain.MemberInfo{},
	}
}

func (f *fakeIM) Events() <-chan event.Event { return f.events }

func (f *fakeIM) SendMessage(_ context.Context, dest domain.Destination, chain message.Chain) error {
	f.sent <- sent{dest: dest, chain: chain}
	return nil
}

func (f *fakeIM) GetGroupAdminList(_ context.Context, group domain.Group) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.admins[group], nil
}

func (f *fakeIM) GetGroupMemberInfo(_ context.Context, group domain.Group, memberID string) (domain.MemberInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.members[memberID]
	if !ok {
		return domain.MemberInfo{}, fmt.Errorf("%s is not in %s", memberID, group)
	}
	return info, nil
}

func (f *fakeIM) AcceptFriendRequest(_ context.Context, req event.NewFriendRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.friends = append(f.friends, req.RequesterID)
	return nil
}

func (f *fakeIM) next(t *testing.T) sent {
	select {
	case s := <-f.sent:
		return s
	case <-time.After(2 * time.Second):
		require.FailNow(t, "no message sent")
		return sent{}
	}
}

func (f *fakeIM) nextText(t *testing.T) (domain.Destination, string) {
	s := f.next(t)
	return s.dest, s.chain.Content()
}

func (f *fakeIM) quiet(t *testing.T) {
	select {
	case s := <-f.sent:
		require.FailNow(t, "unexpected message", "%v: %q", s.dest, s.chain.Content())
	case <-time.After(100 * time.Millisecond):
	}
}

// bridge is one run of the service against a badger directory.
type bridge struct {
	db         *badger.DB
	sup        *workers.Supervisor
	dispatcher *runtime.Dispatcher
	monitoring *observability.MonitoringManager
	done       chan struct{}
}

func startBridge(t *testing.T, dir string, im *fakeIM) *bridge {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions(dir).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	require.NoError(t, err)

	b := &bridge{db: db, monitoring: observability.NewMonitoringManager(), done: make(chan struct{})}
	b.dispatcher = runtime.NewDispatcher(&runtime.Services{
		Token:      auth.TokenFrom(adminToken),
		OTP:        auth.NewOTPStore(),
		Clusters:   repositories.NewClusterRepository(db, log, auth.Word),
		Client:     im,
		Parser:     parser.NewParser(parser.DefaultPrefix),
		Monitoring: b.monitoring,
	}, log)
	b.sup = workers.NewSupervisor(log, 50*time.Millisecond)
	b.sup.Add(workers.NewEventPumpWorker(log, im, b.dispatcher))
	go func() {
		defer close(b.done)
		b.sup.Run(context.Background())
	}()
	return b
}

func (b *bridge) stop(t *testing.T) {
	b.sup.Stop()
	<-b.done
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, b.dispatcher.Wait(ctx))
	require.NoError(t, b.db.Close())
}

func friend(id, text string) event.FriendMessage {
	return event.FriendMessage{SenderID: id, Chain: message.Plain(text), At: time.Now()}
}

func group(g domain.Group, sender string, chain message.Chain) event.GroupMessage {
	return event.GroupMessage{Group: g, SenderID: sender, Chain: chain, At: time.Now()}
}

func Test_Scenario(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	im := newFakeIM()
	g1, g2, g3 := domain.NewQQGroup("1001"), domain.NewQQGroup("1002"), domain.NewQQGroup("1003")
	im.admins[g1] = []string{"7"}
	im.admins[g2] = []string{"8"}
	im.admins[g3] = []string{"9"}
	im.members["55"] = domain.MemberInfo{Nickname: "bob", CardName: "Bobby"}
	im.members["66"] = domain.MemberInfo{Nickname: "alice"}

	b := startBridge(t, dir, im)

	// 1. The operator befriends the bot with the token
	im.events <- event.NewFriendRequest{RequestID: "r1", RequesterID: "42", Message: "hi, token " + adminToken}
	req.Eventually(func() bool {
		im.mu.Lock()
		defer im.mu.Unlock()
		return slices.Contains(im.friends, "42")
	}, 2*time.Second, 10*time.Millisecond)

	// 2. Creates a cluster
	im.events <- friend("42", "/cluster add --token "+adminToken)
	dest, text := im.nextText(t)
	req.Equal(domain.ToFriend("42"), dest)
	req.True(strings.HasPrefix(text, "New cluster created: "), text)
	name := strings.TrimPrefix(text, "New cluster created: ")
	req.NotEmpty(name)

	im.events <- friend("42", "/cluster list --token "+adminToken)
	_, text = im.nextText(t)
	req.Equal("Available clusters:\n"+name, text)

	// 3. Two groups join with one OTP each
	otps := make([]string, 0, 2)
	for range 2 {
		im.events <- friend("42", "/request-otp --token "+adminToken)
		_, text = im.nextText(t)
		req.True(strings.HasPrefix(text, "Your one-time password is:\n"), text)
		otps = append(otps, strings.TrimPrefix(text, "Your one-time password is:\n"))
	}

	im.events <- group(g1, "7", message.Plain(fmt.Sprintf("/join %s --otp %s", name, otps[0])))
	dest, text = im.nextText(t)
	req.Equal(domain.ToGroup(g1), dest)
	req.Equal("Joined to cluster", text)

	// An OTP is single use
	im.events <- group(g2, "8", message.Plain(fmt.Sprintf("/join %s --otp %s", name, otps[0])))
	dest, text = im.nextText(t)
	req.Equal(domain.ToGroup(g2), dest)
	req.Equal("Invalid one-time password", text)

	im.events <- group(g2, "8", message.Plain(fmt.Sprintf("/join %s --otp %s", name, otps[1])))
	_, text = im.nextText(t)
	req.Equal("Joined to cluster", text)

	// 4. A message in g1 shows up in g2 only
	im.events <- group(g1, "55", message.Chain{message.NewText("hello"), {Type: message.Voice, URL: "v"}})
	out := im.next(t)
	req.Equal(domain.ToGroup(g2), out.dest)
	req.Equal(message.Chain{message.NewText("Bobby (bob): "), message.NewText("hello")}, out.chain)
	im.quiet(t)

	// And g3, outside the cluster, is not relayed
	im.events <- group(g3, "66", message.Plain("anyone?"))
	im.quiet(t)

	b.stop(t)
	req.Equal(uint64(1), b.monitoring.GetLatest().Forwarded)

	// 5. Memberships survive a restart
	b = startBridge(t, dir, im)
	t.Cleanup(func() { b.stop(t) })

	im.events <- group(g2, "66", message.Plain("back again"))
	out = im.next(t)
	req.Equal(domain.ToGroup(g1), out.dest)
	req.Equal("alice: back again", out.chain.Content())
	im.quiet(t)
}

func Test_Scenario_Concurrent_Fanout(t *testing.T) {
	req := require.New(t)
	im := newFakeIM()
	b := startBridge(t, t.TempDir(), im)
	t.Cleanup(func() { b.stop(t) })

	groups := make([]domain.Group, 6)
	for i := range groups {
		groups[i] = domain.NewQQGroup(fmt.Sprintf("%d", 2000+i))
		im.admins[groups[i]] = []string{"7"}
	}
	im.members["55"] = domain.MemberInfo{Nickname: "bob"}

	im.events <- friend("42", "/cluster add --token "+adminToken)
	_, text := im.nextText(t)
	name := strings.TrimPrefix(text, "New cluster created: ")

	otps := make([]string, len(groups))
	for i := range groups {
		im.events <- friend("42", "/request-otp --token "+adminToken)
		_, text = im.nextText(t)
		otps[i] = strings.TrimPrefix(text, "Your one-time password is:\n")
	}
	// Every group joins at once
	for i, g := range groups {
		im.events <- group(g, "7", message.Plain(fmt.Sprintf("/join %s --otp %s", name, otps[i])))
	}
	for range groups {
		_, text = im.nextText(t)
		req.Equal("Joined to cluster", text)
	}

	im.events <- group(groups[0], "55", message.Plain("ping"))
	var got []domain.Destination
	for range len(groups) - 1 {
		got = append(got, im.next(t).dest)
	}
	im.quiet(t)

	var want []domain.Destination
	for _, g := range groups[1:] {
		want = append(want, domain.ToGroup(g))
	}
	req.ElementsMatch(want, got)
}
