// Copyright (c) 2017-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package websockets

import (
	"errors"

	v1 "github.com/decred/curate/curated/api/v1"
	"github.com/gorilla/websocket"
)

// Commands exchanged over an events websocket. Every message is a WSHeader
// followed by the payload of the named command.
const (
	WSCError     = "error"     // Server to client, WSError
	WSCPing      = "ping"      // Server to client, WSPing
	WSCSubscribe = "subscribe" // Client to server, WSSubscribe
	WSCEvent     = "event"     // Server to client, v1.Event
)

// ErrInvalidWSCommand is returned for a command that is not one of the WSC
// commands.
var ErrInvalidWSCommand = errors.New("invalid websocket command")

// WSHeader precedes every payload.
type WSHeader struct {
	Command string `json:"command"`
	ID      string `json:"id,omitempty"` // Echoed back in replies
}

// WSError reports the problems found with a client command.
type WSError struct {
	Command string   `json:"command,omitempty"`
	ID      string   `json:"id,omitempty"`
	Errors  []string `json:"errors"`
}

// WSSubscribe replaces the set of commands the client receives. Entries are
// event types or ping.
type WSSubscribe struct {
	RPCS []string `json:"rpcs"`
}

// WSPing is a keepalive.
type WSPing struct {
	Timestamp int64 `json:"timestamp"`
}

// Write writes a command to the websocket connection. A WSHeader is written to
// the connection prior to sending the command payload.
func Write(c *websocket.Conn, cmd, id string, payload interface{}) error {
	if !validCommand(cmd) {
		return ErrInvalidWSCommand
	}
	err := c.WriteJSON(WSHeader{Command: cmd, ID: id})
	if err != nil {
		return err
	}
	return c.WriteJSON(payload)
}

// Read reads a command from the websocket connection. Reads are performed in
// two steps. First, a WSHeader is read from the connection. If a valid header
// is found then the command payload is read and returned.
func Read(c *websocket.Conn) (string, string, interface{}, error) {
	var header WSHeader
	err := c.ReadJSON(&header)
	if err != nil {
		return "", "", nil, err
	}

	var payload interface{}
	switch header.Command {
	case WSCSubscribe:
		var subscribe WSSubscribe
		err = c.ReadJSON(&subscribe)
		payload = subscribe
	case WSCPing:
		var ping WSPing
		err = c.ReadJSON(&ping)
		payload = ping
	case WSCEvent:
		var event v1.Event
		err = c.ReadJSON(&event)
		payload = event
	case WSCError:
		var e WSError
		err = c.ReadJSON(&e)
		payload = e
	default:
		return "", "", nil, ErrInvalidWSCommand
	}

	return header.Command, header.ID, payload, err
}

// validCommand returns whether the command is a valid command.
func validCommand(cmd string) bool {
	switch cmd {
	case WSCError:
	case WSCPing:
	case WSCSubscribe:
	case WSCEvent:
	default:
		return false
	}
	return true
}

// ValidSubscription returns whether the client may subscribe to the command.
func ValidSubscription(cmd string) bool {
	switch cmd {
	case WSCPing:
	case v1.EventTypePostCreated:
	case v1.EventTypeVoted:
	case v1.EventTypeDailySettlement:
	case v1.EventTypeOwnershipTransferred:
	case v1.EventTypeRoleGranted:
	case v1.EventTypeRoleRevoked:
	case v1.EventTypeSettlementAuthoritySet:
	case v1.EventTypeTransfer:
	case v1.EventTypeRewardsClaimed:
	default:
		return false
	}
	return true
}
