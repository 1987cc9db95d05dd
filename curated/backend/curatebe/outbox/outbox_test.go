// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/decred/curate/curated/store"
	"github.com/decred/curate/curated/store/localdb"
	"github.com/jonboulle/clockwork"
)

func newTestStore(t *testing.T) store.BlobKV {
	t.Helper()

	kv, err := localdb.NewMemory(nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(kv.Close)

	return kv
}

func TestAppendAndEvents(t *testing.T) {
	kv := newTestStore(t)
	clock := clockwork.NewFakeClockAt(time.Unix(1700000000, 0))
	o := New(clock)

	// Append three events in one tx
	tx, cancel, err := kv.Tx()
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()
	for i := 0; i < 3; i++ {
		_, err = o.Append(tx, "test", map[string]int{"i": i})
		if err != nil {
			t.Fatal(err)
		}
	}
	err = tx.Commit()
	if err != nil {
		t.Fatal(err)
	}

	head, err := Head(kv)
	if err != nil {
		t.Fatal(err)
	}
	if head != 3 {
		t.Fatalf("got head %v, want 3", head)
	}

	var tests = []struct {
		name  string
		from  uint64
		limit uint32
		want  []uint64
	}{
		{"all", 0, 10, []uint64{0, 1, 2}},
		{"page", 1, 1, []uint64{1}},
		{"past head", 3, 10, []uint64{}},
		{"zero limit", 0, 0, []uint64{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			events, err := Events(kv, tc.from, tc.limit)
			if err != nil {
				t.Fatal(err)
			}
			if len(events) != len(tc.want) {
				t.Fatalf("got %v events, want %v",
					len(events), len(tc.want))
			}
			ids := make(map[string]struct{})
			for i, e := range events {
				if e.Seq != tc.want[i] {
					t.Errorf("got seq %v, want %v", e.Seq, tc.want[i])
				}
				if e.Timestamp != 1700000000 {
					t.Errorf("got timestamp %v", e.Timestamp)
				}
				var p map[string]int
				err = json.Unmarshal(e.Payload, &p)
				if err != nil {
					t.Fatal(err)
				}
				if uint64(p["i"]) != e.Seq {
					t.Errorf("payload %v does not match seq %v",
						p["i"], e.Seq)
				}
				if _, ok := ids[e.ID]; ok {
					t.Errorf("duplicate event id %v", e.ID)
				}
				ids[e.ID] = struct{}{}
			}
		})
	}
}

func TestRollbackDiscardsEvents(t *testing.T) {
	kv := newTestStore(t)
	o := New(clockwork.NewFakeClock())

	tx, cancel, err := kv.Tx()
	if err != nil {
		t.Fatal(err)
	}
	_, err = o.Append(tx, "test", struct{}{})
	if err != nil {
		t.Fatal(err)
	}
	err = tx.Rollback()
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	head, err := Head(kv)
	if err != nil {
		t.Fatal(err)
	}
	if head != 0 {
		t.Fatalf("got head %v, want 0", head)
	}
}

func TestCursor(t *testing.T) {
	kv := newTestStore(t)

	c, err := Cursor(kv, "redis")
	if err != nil {
		t.Fatal(err)
	}
	if c != 0 {
		t.Fatalf("got cursor %v, want 0", c)
	}

	tx, cancel, err := kv.Tx()
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()
	err = SetCursor(tx, "redis", 42)
	if err != nil {
		t.Fatal(err)
	}
	err = tx.Commit()
	if err != nil {
		t.Fatal(err)
	}

	c, err = Cursor(kv, "redis")
	if err != nil {
		t.Fatal(err)
	}
	if c != 42 {
		t.Fatalf("got cursor %v, want 42", c)
	}
	c, err = Cursor(kv, "ws")
	if err != nil {
		t.Fatal(err)
	}
	if c != 0 {
		t.Fatalf("got cursor %v for other sink, want 0", c)
	}
}
