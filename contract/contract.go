//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"im-bridge/domain"
	"im-bridge/domain/event"
	"im-bridge/domain/message"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// IMClient is the IM protocol collaborator: everything the bridge asks of the network.
// Login, sessions and device files are its business, never the bridge's.
type IMClient interface {
	SendMessage(ctx context.Context, dest domain.Destination, chain message.Chain) error
	GetGroupAdminList(ctx context.Context, group domain.Group) ([]string, error)
	GetGroupMemberInfo(ctx context.Context, group domain.Group, memberID string) (domain.MemberInfo, error)
	AcceptFriendRequest(ctx context.Context, req event.NewFriendRequest) error
}

// EventSource delivers inbound events until it is closed.
type EventSource interface {
	Events() <-chan event.Event
}

// IDispatcher accepts inbound events and processes each one independently.
type IDispatcher interface {
	Dispatch(ctx context.Context, evt event.Event)
}
