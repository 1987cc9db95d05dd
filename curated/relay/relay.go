// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package relay delivers committed events to outbound sinks. Every sink has
// its own cursor that is only advanced once the sink has accepted a batch, so
// an event is delivered at least once. Consumers drop duplicates using the
// event ID.
package relay

import (
	"context"
	"time"

	v1 "github.com/decred/curate/curated/api/v1"
	"github.com/decred/curate/curated/backend"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
)

// Sink receives committed events in sequence order.
type Sink interface {
	// Name returns the name the sink cursor is saved under.
	Name() string

	// Publish delivers the events. The events are redelivered when an
	// error is returned.
	Publish(ctx context.Context, events []v1.Event) error
}

// Source provides the committed events and the sink cursors.
type Source interface {
	Events(from uint64, limit uint32) ([]backend.Event, error)
	EventCursor(sink string) (uint64, error)
	SetEventCursor(sink string, seq uint64) error
}

// Hooks are called as events are relayed. Nil hooks are skipped.
type Hooks struct {
	Relayed func(sink, eventType string)
	Failed  func(sink string)
}

// Relay polls the source and delivers new events to the sinks.
type Relay struct {
	src      Source
	clock    clockwork.Clock
	interval time.Duration
	sinks    []Sink
	hooks    Hooks
}

// New returns a new Relay.
func New(src Source, clock clockwork.Clock, interval time.Duration, hooks Hooks, sinks ...Sink) *Relay {
	return &Relay{
		src:      src,
		clock:    clock,
		interval: interval,
		sinks:    sinks,
		hooks:    hooks,
	}
}

// ConvertEvent converts a backend event to its API form.
func ConvertEvent(e backend.Event) v1.Event {
	return v1.Event{
		Seq:       e.Seq,
		ID:        e.ID,
		Type:      e.Type,
		Timestamp: e.Timestamp,
		Payload:   e.Payload,
	}
}

// ConvertEvents converts backend events to their API form.
func ConvertEvents(events []backend.Event) []v1.Event {
	r := make([]v1.Event, 0, len(events))
	for _, e := range events {
		r = append(r, ConvertEvent(e))
	}
	return r
}

// flushSink delivers every event past the sink cursor and returns the number
// of events that were delivered.
func (r *Relay) flushSink(ctx context.Context, s Sink) (int, error) {
	var delivered int
	for {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}

		from, err := r.src.EventCursor(s.Name())
		if err != nil {
			return delivered, err
		}
		events, err := r.src.Events(from, v1.EventsPageSize)
		if err != nil {
			return delivered, err
		}
		if len(events) == 0 {
			return delivered, nil
		}

		batch := ConvertEvents(events)
		err = s.Publish(ctx, batch)
		if err != nil {
			if r.hooks.Failed != nil {
				r.hooks.Failed(s.Name())
			}
			return delivered, errors.Wrapf(err, "publish %v", s.Name())
		}
		next := batch[len(batch)-1].Seq + 1
		err = r.src.SetEventCursor(s.Name(), next)
		if err != nil {
			return delivered, err
		}
		if r.hooks.Relayed != nil {
			for _, e := range batch {
				r.hooks.Relayed(s.Name(), e.Type)
			}
		}
		delivered += len(batch)

		log.Debugf("Relayed events %v-%v to %v", from, next-1, s.Name())
	}
}

// Flush delivers every pending event to every sink. A failing sink does not
// hold up the others. The first error is returned.
func (r *Relay) Flush(ctx context.Context) error {
	var first error
	for _, s := range r.sinks {
		_, err := r.flushSink(ctx, s)
		if err != nil {
			log.Errorf("Relay %v: %v", s.Name(), err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Run flushes the sinks every interval until the context is canceled.
func (r *Relay) Run(ctx context.Context) error {
	log.Infof("Relay started for %v sinks", len(r.sinks))

	// Errors are logged by Flush and retried on the next tick
	_ = r.Flush(ctx)

	t := r.clock.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Infof("Relay stopped")
			return nil
		case <-t.Chan():
		}
		_ = r.Flush(ctx)
	}
}
