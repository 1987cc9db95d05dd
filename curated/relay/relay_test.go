// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	v1 "github.com/decred/curate/curated/api/v1"
	"github.com/decred/curate/curated/backend"
	"github.com/decred/curate/unittest"
	"github.com/jonboulle/clockwork"
)

// testSource is an in memory event source.
type testSource struct {
	sync.Mutex
	events  []backend.Event
	cursors map[string]uint64
}

func newTestSource(n int) *testSource {
	s := &testSource{
		cursors: make(map[string]uint64),
	}
	s.add(n)
	return s
}

func (s *testSource) add(n int) {
	s.Lock()
	defer s.Unlock()
	for i := 0; i < n; i++ {
		seq := uint64(len(s.events))
		s.events = append(s.events, backend.Event{
			Seq:     seq,
			ID:      fmt.Sprintf("event-%v", seq),
			Type:    v1.EventTypeVoted,
			Payload: json.RawMessage(`{}`),
		})
	}
}

func (s *testSource) Events(from uint64, limit uint32) ([]backend.Event, error) {
	s.Lock()
	defer s.Unlock()
	if from >= uint64(len(s.events)) {
		return []backend.Event{}, nil
	}
	to := from + uint64(limit)
	if to > uint64(len(s.events)) {
		to = uint64(len(s.events))
	}
	return append([]backend.Event{}, s.events[from:to]...), nil
}

func (s *testSource) EventCursor(sink string) (uint64, error) {
	s.Lock()
	defer s.Unlock()
	return s.cursors[sink], nil
}

func (s *testSource) SetEventCursor(sink string, seq uint64) error {
	s.Lock()
	defer s.Unlock()
	s.cursors[sink] = seq
	return nil
}

// testSink records the events it receives. It fails while fail is set.
type testSink struct {
	sync.Mutex
	name     string
	fail     bool
	received []uint64
}

func (s *testSink) Name() string {
	return s.name
}

func (s *testSink) Publish(ctx context.Context, events []v1.Event) error {
	s.Lock()
	defer s.Unlock()
	if s.fail {
		return errors.New("sink down")
	}
	for _, e := range events {
		s.received = append(s.received, e.Seq)
	}
	return nil
}

func (s *testSink) seqs() []uint64 {
	s.Lock()
	defer s.Unlock()
	return append([]uint64{}, s.received...)
}

func seqRange(from, to uint64) []uint64 {
	r := make([]uint64, 0, to-from)
	for i := from; i < to; i++ {
		r = append(r, i)
	}
	return r
}

func TestFlush(t *testing.T) {
	// More than a single page
	n := int(v1.EventsPageSize) + 17
	src := newTestSource(n)
	good := &testSink{name: "good"}
	bad := &testSink{name: "bad", fail: true}

	var relayed, failed int
	hooks := Hooks{
		Relayed: func(sink, eventType string) { relayed++ },
		Failed:  func(sink string) { failed++ },
	}
	r := New(src, clockwork.NewFakeClock(), time.Second, hooks, bad, good)

	err := r.Flush(context.Background())
	if err == nil {
		t.Fatalf("expected error from failing sink")
	}
	unittest.DeepEqual(t, good.seqs(), seqRange(0, uint64(n)))
	if len(bad.seqs()) != 0 {
		t.Fatalf("bad sink received %v events", len(bad.seqs()))
	}
	if relayed != n || failed != 1 {
		t.Fatalf("got relayed %v failed %v, want %v 1", relayed, failed, n)
	}

	// The failing sink cursor did not move
	c, _ := src.EventCursor("bad")
	if c != 0 {
		t.Fatalf("bad cursor got %v, want 0", c)
	}

	// Recover and append more events
	bad.Lock()
	bad.fail = false
	bad.Unlock()
	src.add(3)

	err = r.Flush(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	all := seqRange(0, uint64(n+3))
	unittest.DeepEqual(t, bad.seqs(), all)
	unittest.DeepEqual(t, good.seqs(), all)

	// Nothing left to deliver
	err = r.Flush(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	unittest.DeepEqual(t, good.seqs(), all)
}

func TestFlushCanceled(t *testing.T) {
	src := newTestSource(5)
	s := &testSink{name: "sink"}
	r := New(src, clockwork.NewFakeClock(), time.Second, Hooks{}, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Flush(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want %v", err, context.Canceled)
	}
	if len(s.seqs()) != 0 {
		t.Fatalf("received events after cancel")
	}
}

func TestRun(t *testing.T) {
	src := newTestSource(2)
	s := &testSink{name: "sink"}
	clock := clockwork.NewFakeClock()
	r := New(src, clock, time.Minute, Hooks{}, s)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- r.Run(ctx)
	}()

	// The first flush happens before waiting on the ticker
	clock.BlockUntil(1)
	unittest.DeepEqual(t, s.seqs(), seqRange(0, 2))

	src.add(2)
	clock.Advance(time.Minute)
	deadline := time.Now().Add(5 * time.Second)
	for len(s.seqs()) != 4 {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for relay, got %v", s.seqs())
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestXAddArgs(t *testing.T) {
	e := v1.Event{
		Seq:       7,
		ID:        "abc",
		Type:      v1.EventTypeDailySettlement,
		Timestamp: 1700000000,
		Payload:   json.RawMessage(`{"day":1}`),
	}

	a := xaddArgs("curate:events", 0, e)
	if a.Stream != "curate:events" || a.MaxLen != 0 || a.Approx {
		t.Fatalf("unexpected args %+v", a)
	}
	want := map[string]interface{}{
		"seq":       "7",
		"id":        "abc",
		"type":      v1.EventTypeDailySettlement,
		"timestamp": "1700000000",
		"payload":   `{"day":1}`,
	}
	unittest.DeepEqual(t, a.Values, want)

	a = xaddArgs("curate:events", 1000, e)
	if a.MaxLen != 1000 || !a.Approx {
		t.Fatalf("trim not set %+v", a)
	}
}

func TestNewRedisSink(t *testing.T) {
	_, err := NewRedisSink("http://localhost", "s", 0)
	if err == nil {
		t.Fatalf("expected invalid url error")
	}
	s, err := NewRedisSink("redis://localhost:6379/0", "s", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if s.Name() != SinkRedis {
		t.Fatalf("got %v, want %v", s.Name(), SinkRedis)
	}
}
