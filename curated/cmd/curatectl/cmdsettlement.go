// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
)

// cmdSettleDay settles an elapsed day.
type cmdSettleDay struct {
	Args struct {
		Day string `positional-arg-name:"day"`
	} `positional-args:"true" required:"true"`
}

// Execute executes the cmdSettleDay command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdSettleDay) Execute(args []string) error {
	day, err := parseUint("day", c.Args.Day)
	if err != nil {
		return err
	}
	cc, err := newClient()
	if err != nil {
		return err
	}
	s, err := cc.SettleDay(context.Background(), day)
	if err != nil {
		return err
	}
	printJSON(s)
	return nil
}

// settleDayHelpMsg is printed to stdout by the help command.
const settleDayHelpMsg = `settleday day

Settle a day that has elapsed. The daily pool is split between the posts that
received votes on the day. A day can only be settled once. Requires RPC
credentials.

Arguments:
1. day  (uint64, required)  Day index`

// cmdSettlement retrieves the settlement of a day.
type cmdSettlement struct {
	Args struct {
		Day string `positional-arg-name:"day"`
	} `positional-args:"true" required:"true"`
}

// Execute executes the cmdSettlement command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdSettlement) Execute(args []string) error {
	day, err := parseUint("day", c.Args.Day)
	if err != nil {
		return err
	}
	cc, err := newClient()
	if err != nil {
		return err
	}
	s, err := cc.SettlementDetails(context.Background(), day)
	if err != nil {
		return err
	}
	printJSON(s)
	return nil
}

// settlementHelpMsg is printed to stdout by the help command.
const settlementHelpMsg = `settlement day

Get the settlement of a day. Settled is false for a day that has not been
settled yet.

Arguments:
1. day  (uint64, required)  Day index`

// cmdClaimable retrieves the rewards of an account.
type cmdClaimable struct {
	Args struct {
		Account string `positional-arg-name:"account"`
	} `positional-args:"true" required:"true"`
}

// Execute executes the cmdClaimable command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdClaimable) Execute(args []string) error {
	cc, err := newClient()
	if err != nil {
		return err
	}
	cr, err := cc.Claimable(context.Background(), c.Args.Account)
	if err != nil {
		return err
	}
	printJSON(cr)
	return nil
}

// claimableHelpMsg is printed to stdout by the help command.
const claimableHelpMsg = `claimable "account"

Get the unclaimed and the total claimed rewards of an account.

Arguments:
1. account  (string, required)  Account`

// cmdClaim withdraws all claimable rewards.
type cmdClaim struct {
	Args struct {
		Caller string `positional-arg-name:"caller"`
	} `positional-args:"true" required:"true"`
}

// Execute executes the cmdClaim command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdClaim) Execute(args []string) error {
	cc, err := newClient()
	if err != nil {
		return err
	}
	amount, err := cc.Claim(context.Background(), c.Args.Caller)
	if err != nil {
		return err
	}
	printf("Claimed %v\n", amount)
	return nil
}

// claimHelpMsg is printed to stdout by the help command.
const claimHelpMsg = `claim "caller"

Withdraw the full claimable balance of the caller. Requires RPC credentials.

Arguments:
1. caller  (string, required)  Claiming account`

// cmdUnsettled retrieves the elapsed days that await settlement.
type cmdUnsettled struct{}

// Execute executes the cmdUnsettled command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdUnsettled) Execute(args []string) error {
	cc, err := newClient()
	if err != nil {
		return err
	}
	days, err := cc.Unsettled(context.Background())
	if err != nil {
		return err
	}
	printJSON(days)
	return nil
}

// unsettledHelpMsg is printed to stdout by the help command.
const unsettledHelpMsg = `unsettled

Get the elapsed days that have votes and have not been settled.`
