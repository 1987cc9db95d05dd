// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	v1 "github.com/decred/curate/curated/api/v1"
	"github.com/decred/curate/curated/websockets"
	"github.com/decred/curate/util"
	"github.com/gorilla/websocket"
)

// cmdEvents retrieves a page of committed events.
type cmdEvents struct {
	Args struct {
		From string `positional-arg-name:"from" optional:"true"`
	} `positional-args:"true"`

	// Limit is the maximum number of events to return.
	Limit uint32 `long:"limit" optional:"true"`
}

// Execute executes the cmdEvents command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdEvents) Execute(args []string) error {
	var from uint64
	if c.Args.From != "" {
		var err error
		from, err = parseUint("from", c.Args.From)
		if err != nil {
			return err
		}
	}
	limit := c.Limit
	if limit == 0 {
		limit = defaultRequestLimit
	}

	cc, err := newClient()
	if err != nil {
		return err
	}
	events, err := cc.Events(context.Background(), from, limit)
	if err != nil {
		return err
	}
	printJSON(events)
	return nil
}

// eventsHelpMsg is printed to stdout by the help command.
const eventsHelpMsg = `events [from]

Get a page of committed events in sequence order.

Arguments:
1. from  (uint64, optional)  First sequence number (default: 0)

Flags:
 --limit  (uint32, optional)  Maximum number of events (default: 100)`

// allEventTypes contains every event type a client may subscribe to.
var allEventTypes = []string{
	v1.EventTypePostCreated,
	v1.EventTypeVoted,
	v1.EventTypeDailySettlement,
	v1.EventTypeOwnershipTransferred,
	v1.EventTypeRoleGranted,
	v1.EventTypeRoleRevoked,
	v1.EventTypeSettlementAuthoritySet,
	v1.EventTypeTransfer,
	v1.EventTypeRewardsClaimed,
}

// cmdSubscribe streams events over a websocket until interrupted.
type cmdSubscribe struct {
	Args struct {
		Types []string `positional-arg-name:"types" optional:"true"`
	} `positional-args:"true"`
}

// wsURL converts the configured host into the websocket events URL.
func wsURL(host string) (string, error) {
	switch {
	case strings.HasPrefix(host, "https://"):
		host = "wss://" + strings.TrimPrefix(host, "https://")
	case strings.HasPrefix(host, "http://"):
		host = "ws://" + strings.TrimPrefix(host, "http://")
	default:
		return "", fmt.Errorf("invalid host scheme: %v", host)
	}
	return strings.TrimSuffix(host, "/") + v1.APIRoute + v1.RouteEventsWS, nil
}

// Execute executes the cmdSubscribe command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdSubscribe) Execute(args []string) error {
	types := c.Args.Types
	if len(types) == 0 {
		types = allEventTypes
	}
	for _, v := range types {
		if !websockets.ValidSubscription(v) {
			return fmt.Errorf("invalid event type: %v", v)
		}
	}

	u, err := wsURL(cfg.Host)
	if err != nil {
		return err
	}
	tlsConfig, err := util.NewTLSConfig(cfg.SkipVerify, cfg.HTTPSCert)
	if err != nil {
		return err
	}
	d := websocket.Dialer{
		TLSClientConfig: tlsConfig,
	}
	conn, _, err := d.Dial(u, nil)
	if err != nil {
		return fmt.Errorf("dial %v: %v", u, err)
	}
	defer conn.Close()

	// Close the connection on interrupt so that the read loop exits
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-interrupt:
			conn.Close()
		case <-done:
		}
	}()

	// Ping is always subscribed to so that idle connections stay up
	rpcs := append([]string{websockets.WSCPing}, types...)
	err = websockets.Write(conn, websockets.WSCSubscribe, "",
		websockets.WSSubscribe{RPCS: rpcs})
	if err != nil {
		return err
	}

	for {
		cmd, _, payload, err := websockets.Read(conn)
		if err != nil {
			select {
			case <-interrupt:
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		switch cmd {
		case websockets.WSCPing:
			// Nothing to do
		case websockets.WSCEvent:
			printJSON(payload)
		case websockets.WSCError:
			e := payload.(websockets.WSError)
			return fmt.Errorf("subscribe: %v", strings.Join(e.Errors, ", "))
		}
	}
}

// subscribeHelpMsg is printed to stdout by the help command.
const subscribeHelpMsg = `subscribe [types...]

Stream committed events over a websocket until interrupted. All event types
are streamed when none are given.

Arguments:
1. types  ([]string, optional)  Event types to subscribe to

Event types:
  postcreated, voted, dailysettlement, ownershiptransferred, rolegranted,
  rolerevoked, settlementauthorityset, transfer, rewardsclaimed`
