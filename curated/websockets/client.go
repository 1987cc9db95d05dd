// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package websockets

import (
	"sync"

	v1 "github.com/decred/curate/curated/api/v1"
	"github.com/gorilla/websocket"
)

// client is a connected event subscriber. subscriptions is guarded by the
// Manager lock.
type client struct {
	id            string
	remote        string
	conn          *websocket.Conn
	wg            sync.WaitGroup
	subscriptions map[string]struct{}

	errorC chan WSError
	pingC  chan struct{}
	eventC chan v1.Event

	done       chan struct{} // Closed when the reader exits
	writerDone chan struct{} // Closed when the writer exits
}

func newClient(remote string, conn *websocket.Conn) *client {
	return &client{
		remote:        remote,
		conn:          conn,
		subscriptions: make(map[string]struct{}),
		errorC:        make(chan WSError),
		pingC:         make(chan struct{}),
		eventC:        make(chan v1.Event, eventBuffer),
		done:          make(chan struct{}),
		writerDone:    make(chan struct{}),
	}
}

func (c *client) String() string {
	return c.remote + " " + c.id
}

func (c *client) subscribed(cmd string) bool {
	_, ok := c.subscriptions[cmd]
	return ok
}

// queue queues the events the client subscribed to. It returns false when
// the client buffer is full.
func (c *client) queue(events []v1.Event) bool {
	for _, e := range events {
		if !c.subscribed(e.Type) {
			continue
		}
		select {
		case c.eventC <- e:
		default:
			return false
		}
	}
	return true
}
