// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
)

// cmdAppointModerator appoints a moderator.
type cmdAppointModerator struct {
	Args struct {
		Caller  string `positional-arg-name:"caller"`
		Account string `positional-arg-name:"account"`
	} `positional-args:"true" required:"true"`
}

// Execute executes the cmdAppointModerator command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdAppointModerator) Execute(args []string) error {
	cc, err := newClient()
	if err != nil {
		return err
	}
	err = cc.AppointModerator(context.Background(),
		c.Args.Caller, c.Args.Account)
	if err != nil {
		return err
	}
	printf("%v is a moderator\n", c.Args.Account)
	return nil
}

// appointModeratorHelpMsg is printed to stdout by the help command.
const appointModeratorHelpMsg = `appointmoderator "caller" "account"

Grant the moderator role. The caller must be the owner. Requires RPC
credentials.

Arguments:
1. caller   (string, required)  Owner account
2. account  (string, required)  Account to appoint`

// cmdAppointCurator appoints a curator.
type cmdAppointCurator struct {
	Args struct {
		Caller  string `positional-arg-name:"caller"`
		Account string `positional-arg-name:"account"`
	} `positional-args:"true" required:"true"`
}

// Execute executes the cmdAppointCurator command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdAppointCurator) Execute(args []string) error {
	cc, err := newClient()
	if err != nil {
		return err
	}
	err = cc.AppointCurator(context.Background(),
		c.Args.Caller, c.Args.Account)
	if err != nil {
		return err
	}
	printf("%v is a curator\n", c.Args.Account)
	return nil
}

// appointCuratorHelpMsg is printed to stdout by the help command.
const appointCuratorHelpMsg = `appointcurator "caller" "account"

Grant the curator role. The caller must be a moderator. Requires RPC
credentials.

Arguments:
1. caller   (string, required)  Moderator account
2. account  (string, required)  Account to appoint`

// cmdRevokeRole revokes a role.
type cmdRevokeRole struct {
	Args struct {
		Caller  string `positional-arg-name:"caller"`
		Account string `positional-arg-name:"account"`
		Role    string `positional-arg-name:"role"`
	} `positional-args:"true" required:"true"`
}

// Execute executes the cmdRevokeRole command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdRevokeRole) Execute(args []string) error {
	cc, err := newClient()
	if err != nil {
		return err
	}
	err = cc.RevokeRole(context.Background(),
		c.Args.Caller, c.Args.Account, c.Args.Role)
	if err != nil {
		return err
	}
	printf("%v revoked from %v\n", c.Args.Role, c.Args.Account)
	return nil
}

// revokeRoleHelpMsg is printed to stdout by the help command.
const revokeRoleHelpMsg = `revokerole "caller" "account" "role"

Revoke a role. Moderators are revoked by the owner and curators by a
moderator. The owner role can only be moved with transferownership. Requires
RPC credentials.

Arguments:
1. caller   (string, required)  Account revoking the role
2. account  (string, required)  Account losing the role
3. role     (string, required)  moderator or curator`

// cmdTransferOwnership moves the owner role.
type cmdTransferOwnership struct {
	Args struct {
		Caller   string `positional-arg-name:"caller"`
		NewOwner string `positional-arg-name:"newowner"`
	} `positional-args:"true" required:"true"`
}

// Execute executes the cmdTransferOwnership command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdTransferOwnership) Execute(args []string) error {
	cc, err := newClient()
	if err != nil {
		return err
	}
	err = cc.TransferOwnership(context.Background(),
		c.Args.Caller, c.Args.NewOwner)
	if err != nil {
		return err
	}
	printf("%v is the owner\n", c.Args.NewOwner)
	return nil
}

// transferOwnershipHelpMsg is printed to stdout by the help command.
const transferOwnershipHelpMsg = `transferownership "caller" "newowner"

Move the owner role to a new account. Requires RPC credentials.

Arguments:
1. caller    (string, required)  Current owner
2. newowner  (string, required)  New owner`

// cmdSetSettlementAuthority binds the minting authority.
type cmdSetSettlementAuthority struct {
	Args struct {
		Caller    string `positional-arg-name:"caller"`
		Authority string `positional-arg-name:"authority"`
	} `positional-args:"true" required:"true"`
}

// Execute executes the cmdSetSettlementAuthority command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdSetSettlementAuthority) Execute(args []string) error {
	cc, err := newClient()
	if err != nil {
		return err
	}
	err = cc.SetSettlementAuthority(context.Background(),
		c.Args.Caller, c.Args.Authority)
	if err != nil {
		return err
	}
	printf("Settlement authority %v\n", c.Args.Authority)
	return nil
}

// setSettlementAuthorityHelpMsg is printed to stdout by the help command.
const setSettlementAuthorityHelpMsg = `setsettlementauthority "caller" "authority"

Bind the account that may mint tokens. This can only be done once and curated
binds the settlement pool on its first start. Requires RPC credentials.

Arguments:
1. caller     (string, required)  Owner account
2. authority  (string, required)  Minting authority`

// cmdHasRole checks whether an account holds a role.
type cmdHasRole struct {
	Args struct {
		Account string `positional-arg-name:"account"`
		Role    string `positional-arg-name:"role"`
	} `positional-args:"true" required:"true"`
}

// Execute executes the cmdHasRole command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdHasRole) Execute(args []string) error {
	cc, err := newClient()
	if err != nil {
		return err
	}
	ok, err := cc.HasRole(context.Background(), c.Args.Account, c.Args.Role)
	if err != nil {
		return err
	}
	printf("%v\n", ok)
	return nil
}

// hasRoleHelpMsg is printed to stdout by the help command.
const hasRoleHelpMsg = `hasrole "account" "role"

Check whether an account holds a role.

Arguments:
1. account  (string, required)  Account
2. role     (string, required)  owner, moderator or curator`
