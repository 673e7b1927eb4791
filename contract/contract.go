//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"github.com/google/uuid"

	"github.com/mrarman0786/chat-app/domain"
	"github.com/mrarman0786/chat-app/domain/event"
)

// EventSink is one connection's outbound queue. Consume must never block on
// a slow receiver: implementations report ErrSlowConsumer instead of waiting
// on a full buffer, so that one broken connection cannot stall a broadcast.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
	Close()
}

// IRegistry tracks all live authenticated connections: the broadcast domain
// of a single server process. A connection present in the registry always
// carries a non-zero Identity.
type IRegistry interface {
	Register(connID uuid.UUID, identity domain.Identity, sink EventSink) error
	Deregister(connID uuid.UUID) bool
	BroadcastAll(ctx context.Context, e event.Event)
	BroadcastExcept(ctx context.Context, except uuid.UUID, e event.Event)
	Unicast(ctx context.Context, connID uuid.UUID, e event.Event)
	Size() int
}

type WorkerName string

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision, avoiding manual naming in the Worker
// interface.
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
