//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"pairchat/domain"
	"pairchat/domain/event"
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

// EventSink receives delivered domain events. Connection sinks forward
// them to one websocket; permanent sinks feed projections and stats.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Publisher enqueues a domain event for fan-out. Non-blocking,
// best-effort: a full pipeline drops the event.
type Publisher interface {
	Publish(e event.DomainEvent)
}

// IRoomDirectory maps a user id to the sinks of all their live
// connections (the user's room, in fan-out terms).
type IRoomDirectory interface {
	Subscribe(userID, connectionID string, sink EventSink)
	Unsubscribe(userID, connectionID string)
	SinksFor(userID string) []EventSink
	AllSinks() []EventSink
}

// IPresence is the authoritative online/offline view consumed by the
// gateway and the user listing.
type IPresence interface {
	Join(userID, connectionID string)
	Leave(userID, connectionID string)
	IsOnline(userID string) bool
	Snapshot() map[string]domain.Presence
}
