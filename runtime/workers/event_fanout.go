package workers

import (
	"context"
	"log/slog"
	"time"

	"pairchat/contract"
	"pairchat/domain/event"
)

// EventFanout delivers domain events to the rooms they target and to
// the permanent in-process sinks (stats, projections).
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// durability, or retries: an offline target simply resolves to no sinks.
// Running as a single worker keeps per-source ordering intact.
type EventFanout struct {
	log            *slog.Logger
	rooms          contract.IRoomDirectory
	events         <-chan event.DomainEvent
	permanentSinks []contract.EventSink
	sinkTimeout    time.Duration
}

func NewEventFanout(log *slog.Logger, rooms contract.IRoomDirectory,
	events <-chan event.DomainEvent, sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{
		log:         log,
		rooms:       rooms,
		events:      events,
		sinkTimeout: sinkTimeout,
	}
}

func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.permanentSinks = append(w.permanentSinks, sinks...)
	return w
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.events:
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fanout")
			return nil
		}
	}
}

// Fanout resolves the event's targets and hands the event to each sink.
// A slow or full sink only loses its own copy.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	var sinks []contract.EventSink
	targets := evt.Targets()
	if targets == nil {
		sinks = w.rooms.AllSinks()
	} else {
		seen := make(map[string]struct{}, len(targets))
		for _, userID := range targets {
			// A sender can target itself twice (self-message); rooms
			// must still receive one copy only.
			if _, ok := seen[userID]; ok {
				continue
			}
			seen[userID] = struct{}{}
			sinks = append(sinks, w.rooms.SinksFor(userID)...)
		}
	}

	deliveryCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()

	for _, sink := range sinks {
		if err := sink.Consume(deliveryCtx, evt); err != nil {
			w.log.Debug("Sink refused event", "error", err)
		}
	}
	for _, sink := range w.permanentSinks {
		if err := sink.Consume(deliveryCtx, evt); err != nil {
			w.log.Debug("Permanent sink refused event", "error", err)
		}
	}
}
