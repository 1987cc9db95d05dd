// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package websockets

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	v1 "github.com/decred/curate/curated/api/v1"
	"github.com/gorilla/websocket"
)

// dial connects a websocket client to the manager.
func dial(t *testing.T, m *Manager) *websocket.Conn {
	t.Helper()

	s := httptest.NewServer(http.HandlerFunc(m.HandleWebsocket))
	t.Cleanup(s.Close)

	url := "ws" + strings.TrimPrefix(s.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// waitFor polls cond until it returns true.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %v", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBroadcast(t *testing.T) {
	m := NewManager(4096, nil)
	c := dial(t, m)

	err := Write(c, WSCSubscribe, "1", WSSubscribe{
		RPCS: []string{v1.EventTypeVoted},
	})
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, "subscription", func() bool {
		return m.subscribers(v1.EventTypeVoted) == 1
	})
	if m.Count() != 1 {
		t.Fatalf("got %v clients, want 1", m.Count())
	}

	m.Broadcast([]v1.Event{
		{Seq: 7, ID: "a", Type: v1.EventTypePostCreated},
		{Seq: 8, ID: "b", Type: v1.EventTypeVoted},
	})

	// Only the subscribed event type is delivered
	c.SetReadDeadline(time.Now().Add(5 * time.Second))
	cmd, id, payload, err := Read(c)
	if err != nil {
		t.Fatal(err)
	}
	if cmd != WSCEvent || id != "b" {
		t.Fatalf("got command %v id %v", cmd, id)
	}
	e, ok := payload.(v1.Event)
	if !ok || e.Seq != 8 {
		t.Fatalf("unexpected payload %v", payload)
	}

	c.Close()
	waitFor(t, "disconnect", func() bool { return m.Count() == 0 })
}

func TestSubscribeInvalid(t *testing.T) {
	m := NewManager(4096, nil)
	c := dial(t, m)

	err := Write(c, WSCSubscribe, "42", WSSubscribe{
		RPCS: []string{v1.EventTypeVoted, "bogus"},
	})
	if err != nil {
		t.Fatal(err)
	}

	c.SetReadDeadline(time.Now().Add(5 * time.Second))
	cmd, id, payload, err := Read(c)
	if err != nil {
		t.Fatal(err)
	}
	if cmd != WSCError || id != "42" {
		t.Fatalf("got command %v id %v", cmd, id)
	}
	e, ok := payload.(WSError)
	if !ok || len(e.Errors) != 1 {
		t.Fatalf("unexpected payload %v", payload)
	}

	// The rejected request did not change the subscriptions
	if n := m.subscribers(v1.EventTypeVoted); n != 0 {
		t.Fatalf("got %v subscribers", n)
	}
}

func TestPing(t *testing.T) {
	m := NewManager(4096, nil)
	c := dial(t, m)

	err := Write(c, WSCSubscribe, "", WSSubscribe{
		RPCS: []string{WSCPing},
	})
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, "subscription", func() bool {
		return m.subscribers(WSCPing) == 1
	})

	// The ping is dropped when the writer is not ready so keep pinging
	// until one arrives.
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(20 * time.Millisecond):
				m.Ping()
			}
		}
	}()

	c.SetReadDeadline(time.Now().Add(5 * time.Second))
	cmd, _, _, err := Read(c)
	if err != nil {
		t.Fatal(err)
	}
	if cmd != WSCPing {
		t.Fatalf("got command %v, want ping", cmd)
	}
}
