// Package broker delivers domain events to the push sessions that should
// see them, independently of the command path that produced them.
//
// Delivery is at-least-once per connected session and stops at the session
// boundary: there is no durable log, and a client connecting after an event
// was emitted never receives it retroactively. A single fanout goroutine
// drains the event channel, so events reach a given sink in emission order.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bookswap/contract"
	"bookswap/domain/event"
)

type Fanout struct {
	log         *slog.Logger
	roster      contract.IRoster
	events      <-chan event.DomainEvent
	sinkTimeout time.Duration
}

func NewFanout(log *slog.Logger, roster contract.IRoster,
	events <-chan event.DomainEvent, sinkTimeout time.Duration) *Fanout {
	return &Fanout{log: log, roster: roster, events: events, sinkTimeout: sinkTimeout}
}

func (f *Fanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			f.log.Debug("Context done, stopping fanout")
			return nil
		case evt, ok := <-f.events:
			if !ok {
				return nil
			}
			f.Deliver(ctx, evt)
		}
	}
}

// Deliver routes one event: addressed events go to each audience user's
// sessions, everything else (presence) is broadcast. A failing sink is
// logged and skipped; it never fails the event for the other sinks.
func (f *Fanout) Deliver(ctx context.Context, evt event.DomainEvent) {
	var sinks []contract.EventSink
	if addressed, ok := evt.(event.Addressed); ok {
		seen := make(map[string]struct{})
		for _, userID := range addressed.Audience() {
			if _, dup := seen[userID]; dup {
				continue
			}
			seen[userID] = struct{}{}
			sinks = append(sinks, f.roster.SinksFor(userID)...)
		}
	} else {
		sinks = f.roster.AllSinks()
	}

	for _, sink := range sinks {
		f.consume(ctx, sink, evt)
	}
}

func (f *Fanout) consume(ctx context.Context, sink contract.EventSink, evt event.DomainEvent) {
	sinkCtx, cancel := context.WithTimeout(ctx, f.sinkTimeout)
	defer cancel()

	if err := sink.Consume(sinkCtx, evt); err != nil {
		f.log.Warn(fmt.Sprintf("Sink rejected event %s: %v", evt.EventID(), err))
	}
}
