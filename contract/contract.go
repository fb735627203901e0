//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"messenger/domain"
	"messenger/domain/event"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker is a long-running loop. Panics and restarts are the supervisor's job.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName is the worker's type name, used in supervision logs.
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

// EventSink is the push side of one live connection.
// Consume must not block longer than ctx allows.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IDirectory is the read path over user identities.
type IDirectory interface {
	Lookup(ctx context.Context, id domain.UserID) (domain.User, error)
	LookupByName(ctx context.Context, name string) (domain.User, error)
}

// IMembership answers the only question the fan-out needs from the group registry.
type IMembership interface {
	IsMember(ctx context.Context, groupID domain.GroupID, userID domain.UserID) (bool, error)
}

type ISessionRegistry interface {
	Connect(connectionID string, userID domain.UserID, sink EventSink)
	Disconnect(connectionID string)
	Subscribe(connectionID string, groupID domain.GroupID) bool
	Unsubscribe(connectionID string, groupID domain.GroupID)
	ConnectionsOf(userID domain.UserID) []string
	SubscribersOf(groupID domain.GroupID) []string
	Sink(connectionID string) (EventSink, bool)
	UserOf(connectionID string) (domain.UserID, bool)
}

// IEmitter receives deliveries once the state change behind them is durable.
type IEmitter interface {
	Emit(d event.Delivery)
}
