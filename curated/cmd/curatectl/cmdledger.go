// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
)

// cmdMint mints tokens.
type cmdMint struct {
	Args struct {
		Caller  string `positional-arg-name:"caller"`
		Account string `positional-arg-name:"account"`
		Amount  string `positional-arg-name:"amount"`
	} `positional-args:"true" required:"true"`
}

// Execute executes the cmdMint command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdMint) Execute(args []string) error {
	cc, err := newClient()
	if err != nil {
		return err
	}
	err = cc.Mint(context.Background(),
		c.Args.Caller, c.Args.Account, c.Args.Amount)
	if err != nil {
		return err
	}
	printf("Minted %v to %v\n", c.Args.Amount, c.Args.Account)
	return nil
}

// mintHelpMsg is printed to stdout by the help command.
const mintHelpMsg = `mint "caller" "account" "amount"

Mint new tokens. The caller must be the settlement authority. Requires RPC
credentials.

Arguments:
1. caller   (string, required)  Settlement authority
2. account  (string, required)  Account to credit
3. amount   (string, required)  Base 10 token amount`

// cmdTransfer transfers tokens.
type cmdTransfer struct {
	Args struct {
		Caller string `positional-arg-name:"caller"`
		To     string `positional-arg-name:"to"`
		Amount string `positional-arg-name:"amount"`
	} `positional-args:"true" required:"true"`
}

// Execute executes the cmdTransfer command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdTransfer) Execute(args []string) error {
	cc, err := newClient()
	if err != nil {
		return err
	}
	err = cc.Transfer(context.Background(),
		c.Args.Caller, c.Args.To, c.Args.Amount)
	if err != nil {
		return err
	}
	printf("Transferred %v to %v\n", c.Args.Amount, c.Args.To)
	return nil
}

// transferHelpMsg is printed to stdout by the help command.
const transferHelpMsg = `transfer "caller" "to" "amount"

Move tokens from the caller to another account. Requires RPC credentials.

Arguments:
1. caller  (string, required)  Sending account
2. to      (string, required)  Receiving account
3. amount  (string, required)  Base 10 token amount`

// cmdBalance retrieves the balance of an account.
type cmdBalance struct {
	Args struct {
		Account string `positional-arg-name:"account"`
	} `positional-args:"true" required:"true"`
}

// Execute executes the cmdBalance command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdBalance) Execute(args []string) error {
	cc, err := newClient()
	if err != nil {
		return err
	}
	b, err := cc.Balance(context.Background(), c.Args.Account)
	if err != nil {
		return err
	}
	printf("%v\n", b)
	return nil
}

// balanceHelpMsg is printed to stdout by the help command.
const balanceHelpMsg = `balance "account"

Get the token balance of an account.

Arguments:
1. account  (string, required)  Account`

// cmdSupply retrieves the total supply.
type cmdSupply struct{}

// Execute executes the cmdSupply command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdSupply) Execute(args []string) error {
	cc, err := newClient()
	if err != nil {
		return err
	}
	s, err := cc.Supply(context.Background())
	if err != nil {
		return err
	}
	printf("%v\n", s)
	return nil
}

// supplyHelpMsg is printed to stdout by the help command.
const supplyHelpMsg = `supply

Get the total token supply.`
