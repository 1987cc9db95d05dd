// Copyright (c) 2017-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package websockets

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	v1 "github.com/decred/curate/curated/api/v1"
	"github.com/decred/curate/util"
	"github.com/gorilla/websocket"
)

const (
	// eventBuffer is the number of events that may be queued for a
	// client. Clients that fall further behind are disconnected and
	// are expected to catch up using the events route.
	eventBuffer = 256
)

// Manager provides an API for managing websocket connections.
type Manager struct {
	sync.RWMutex
	readLimit int64 // Max allowed bytes for msg reads

	clients map[string]*client // [id]*client

	// onChange is called with the number of connected clients whenever
	// a client connects or disconnects.
	onChange func(int)
}

// NewManager returns a new websocket Manager. onChange may be nil.
func NewManager(readLimit int64, onChange func(int)) *Manager {
	if onChange == nil {
		onChange = func(int) {}
	}
	return &Manager{
		readLimit: readLimit,
		clients:   make(map[string]*client),
		onChange:  onChange,
	}
}

// HandleWebsocket upgrades a regular HTTP connection to a websocket.
func (m *Manager) HandleWebsocket(w http.ResponseWriter, r *http.Request) {
	remote := util.RemoteAddr(r)
	log.Tracef("handleWebsocket: %v", remote)
	defer log.Tracef("handleWebsocket exit: %v", remote)

	var upgrader = websocket.Upgrader{
		EnableCompression: true,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "Could not open websocket connection",
			http.StatusBadRequest)
		return
	}
	defer conn.Close() // causes read to exit as well
	wc := newClient(remote, conn)

	wc.conn.SetReadLimit(m.readLimit)

	// Assign a unique client id
	m.Lock()
	for {
		b, err := util.Random(16)
		if err != nil {
			m.Unlock()
			log.Errorf("handleWebsocket: random session id: %v", err)
			return
		}
		wc.id = hex.EncodeToString(b)
		if _, ok := m.clients[wc.id]; !ok {
			break
		}
	}
	m.clients[wc.id] = wc
	n := len(m.clients)
	m.Unlock()
	m.onChange(n)

	log.Debugf("Websocket connected: %v", wc)

	wc.wg.Add(2)
	go m.handleWebsocketRead(wc)
	go m.handleWebsocketWrite(wc)
	wc.wg.Wait()

	m.Lock()
	delete(m.clients, wc.id)
	n = len(m.clients)
	m.Unlock()
	m.onChange(n)

	log.Debugf("Websocket disconnected: %v", wc)
}

// handleWebsocketRead reads a websocket command off the socket and tries to
// handle it. Currently it only supports subscribing to websocket events.
func (m *Manager) handleWebsocketRead(wc *client) {
	defer wc.wg.Done()

	log.Tracef("handleWebsocketRead %v", wc)
	defer log.Tracef("handleWebsocketRead exit %v", wc)

	for {
		cmd, id, payload, err := Read(wc.conn)
		if err != nil {
			log.Tracef("handleWebsocketRead read %v %v", wc, err)
			close(wc.done) // force handlers to quit
			return
		}
		switch cmd {
		case WSCSubscribe:
			subscribe, ok := payload.(WSSubscribe)
			if !ok {
				// We are treating this a hard error so that
				// the client knows they sent in something
				// wrong.
				log.Errorf("handleWebsocketRead invalid "+
					"subscribe type %v %v", wc,
					spew.Sdump(payload))
				close(wc.done)
				return
			}

			subscriptions := make(map[string]struct{})
			var errors []string
			for _, v := range subscribe.RPCS {
				if !ValidSubscription(v) {
					log.Tracef("invalid subscription %v %v",
						wc, v)
					errors = append(errors,
						fmt.Sprintf("invalid "+
							"subscription %v", v))
					continue
				}
				subscriptions[v] = struct{}{}
			}

			if len(errors) == 0 {
				// Replace old subscriptions
				m.Lock()
				wc.subscriptions = subscriptions
				m.Unlock()
				continue
			}
			select {
			case wc.errorC <- WSError{
				Command: WSCSubscribe,
				ID:      id,
				Errors:  errors,
			}:
			case <-wc.writerDone:
				return
			}
		}
	}
}

// handleWebsocketWrite writes errors, pings and subscribed events to the
// websocket.
func (m *Manager) handleWebsocketWrite(wc *client) {
	defer wc.wg.Done()
	defer close(wc.writerDone)
	log.Tracef("handleWebsocketWrite %v", wc)
	defer log.Tracef("handleWebsocketWrite exit %v", wc)

	for {
		var (
			cmd, id string
			payload interface{}
		)
		select {
		case <-wc.done:
			return
		case e, ok := <-wc.errorC:
			if !ok {
				log.Tracef("handleWebsocketWrite error not ok"+
					" %v", wc)
				return
			}
			cmd = WSCError
			id = e.ID
			payload = e
		case _, ok := <-wc.pingC:
			if !ok {
				log.Tracef("handleWebsocketWrite ping not ok"+
					" %v", wc)
				return
			}
			cmd = WSCPing
			id = ""
			payload = WSPing{Timestamp: time.Now().Unix()}
		case e := <-wc.eventC:
			cmd = WSCEvent
			id = e.ID
			payload = e
		}

		err := Write(wc.conn, cmd, id, payload)
		if err != nil {
			log.Tracef("handleWebsocketWrite write %v %v", wc, err)
			wc.conn.Close()
			return
		}
	}
}

// Ping pings every client that subscribed to pings.
func (m *Manager) Ping() {
	log.Tracef("Ping")

	m.RLock()
	defer m.RUnlock()

	for _, c := range m.clients {
		if !c.subscribed(WSCPing) {
			continue
		}
		select {
		case c.pingC <- struct{}{}:
		default:
		}
	}
}

// Broadcast queues the events for every client that subscribed to their
// type. A client whose queue is full is disconnected.
func (m *Manager) Broadcast(events []v1.Event) {
	m.RLock()
	defer m.RUnlock()

	for _, c := range m.clients {
		if !c.queue(events) {
			log.Infof("Websocket %v is too slow, disconnecting", c)
			c.conn.Close()
		}
	}
}

// Count returns the number of connected clients.
func (m *Manager) Count() int {
	m.RLock()
	defer m.RUnlock()

	return len(m.clients)
}

// subscribers returns the number of clients that subscribed to the command.
func (m *Manager) subscribers(cmd string) int {
	m.RLock()
	defer m.RUnlock()

	var n int
	for _, c := range m.clients {
		if c.subscribed(cmd) {
			n++
		}
	}
	return n
}
