package runtime

import (
	"fmt"
	"log/slog"

	"pairchat/domain/event"
)

// Dispatcher is the entry point of the event pipeline. Publish never
// blocks the caller: when the buffer is full the event is dropped with
// a warning, matching the at-most-once delivery contract.
type Dispatcher struct {
	log    *slog.Logger
	events chan event.DomainEvent
}

func NewDispatcher(log *slog.Logger, bufferSize int) *Dispatcher {
	return &Dispatcher{
		log:    log,
		events: make(chan event.DomainEvent, bufferSize),
	}
}

func (d *Dispatcher) Publish(e event.DomainEvent) {
	select {
	case d.events <- e:
	default:
		d.log.Warn(fmt.Sprintf("Event channel full, dropping %T", e))
	}
}

// Events exposes the consuming side for the fan-out worker.
func (d *Dispatcher) Events() <-chan event.DomainEvent {
	return d.events
}
