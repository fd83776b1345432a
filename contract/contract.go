package contract

import (
	"bookswap/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself.
// Supervision (panic recovery, restarts) lives above it.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision, avoiding manual naming in the
// Worker interface.
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

// EventSink consumes a pushed domain event. Implementations must be safe
// for use from the fanout goroutine and must not block indefinitely.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRoster tracks which push sessions belong to which user.
type IRoster interface {
	Subscribe(userID, sessionID string, sink EventSink)
	Unsubscribe(userID, sessionID string)
	SinksFor(userID string) []EventSink
	AllSinks() []EventSink
}
