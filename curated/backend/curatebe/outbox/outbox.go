// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package outbox journals events in the same store transaction as the state
// change they describe. Events are numbered by a gap free sequence so that
// relays can resume delivery from a cursor.
package outbox

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/decred/curate/curated/backend"
	"github.com/decred/curate/curated/store"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
)

const (
	// keySeq contains the sequence number of the next event.
	keySeq = "outbox-seq"

	// keyEventPrefix is the prefix of every event key. The zero padded
	// sequence number is appended.
	keyEventPrefix = "outbox-event-"

	// keyCursor contains the next sequence number to deliver to a sink.
	// The {sink} is replaced by the sink name.
	keyCursor = "outbox-cursor-{sink}"
)

func keyEvent(seq uint64) string {
	return fmt.Sprintf("%v%020d", keyEventPrefix, seq)
}

func keyCursorForSink(sink string) string {
	return strings.Replace(keyCursor, "{sink}", sink, 1)
}

// Outbox appends events to the journal.
type Outbox struct {
	clock clockwork.Clock
}

// New returns a new Outbox.
func New(clock clockwork.Clock) *Outbox {
	return &Outbox{
		clock: clock,
	}
}

// Head returns the sequence number that the next event will be assigned.
func Head(g store.Getter) (uint64, error) {
	var seq uint64
	_, err := store.GetJSON(g, keySeq, &seq)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// Append encodes the payload and appends it to the journal as an event of the
// provided type.
func (o *Outbox) Append(tx store.Tx, eventType string, payload interface{}) (*backend.Event, error) {
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %v payload", eventType)
	}
	seq, err := Head(tx)
	if err != nil {
		return nil, err
	}
	e := backend.Event{
		Seq:       seq,
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: o.clock.Now().Unix(),
		Payload:   p,
	}
	err = store.InsertJSON(tx, keyEvent(seq), e)
	if err != nil {
		return nil, errors.Wrapf(err, "insert event %v", seq)
	}
	err = store.PutJSON(tx, keySeq, seq+1)
	if err != nil {
		return nil, err
	}

	log.Debugf("Event %v %v", seq, eventType)

	return &e, nil
}

// Events returns up to limit events starting at sequence from.
func Events(g store.Getter, from uint64, limit uint32) ([]backend.Event, error) {
	head, err := Head(g)
	if err != nil {
		return nil, err
	}
	if from >= head || limit == 0 {
		return []backend.Event{}, nil
	}
	end := from + uint64(limit)
	if end > head || end < from {
		end = head
	}

	keys := make([]string, 0, end-from)
	for seq := from; seq < end; seq++ {
		keys = append(keys, keyEvent(seq))
	}
	blobs, err := g.GetBatch(keys)
	if err != nil {
		return nil, err
	}

	events := make([]backend.Event, 0, len(keys))
	for _, k := range keys {
		b, ok := blobs[k]
		if !ok {
			return nil, errors.Errorf("event missing from journal: %v", k)
		}
		var e backend.Event
		err = json.Unmarshal(b, &e)
		if err != nil {
			return nil, errors.Wrapf(err, "decode %v", k)
		}
		events = append(events, e)
	}

	return events, nil
}

// Cursor returns the next sequence number to deliver to the sink.
func Cursor(g store.Getter, sink string) (uint64, error) {
	var seq uint64
	_, err := store.GetJSON(g, keyCursorForSink(sink), &seq)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// SetCursor records that the sink has accepted every event before seq.
func SetCursor(tx store.Tx, sink string, seq uint64) error {
	return store.PutJSON(tx, keyCursorForSink(sink), seq)
}
