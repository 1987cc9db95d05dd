// Copyright (c) 2017-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
)

// cmdHelp prints a detailed help message for the specified command.
type cmdHelp struct {
	Args struct {
		Command string `positional-arg-name:"command"`
	} `positional-args:"true" required:"true"`
}

// Execute executes the cmdHelp command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdHelp) Execute(args []string) error {
	switch c.Args.Command {
	// Basic commands
	case "version":
		fmt.Printf("%s\n", versionHelpMsg)

	// Role commands
	case "appointmoderator":
		fmt.Printf("%s\n", appointModeratorHelpMsg)
	case "appointcurator":
		fmt.Printf("%s\n", appointCuratorHelpMsg)
	case "revokerole":
		fmt.Printf("%s\n", revokeRoleHelpMsg)
	case "transferownership":
		fmt.Printf("%s\n", transferOwnershipHelpMsg)
	case "setsettlementauthority":
		fmt.Printf("%s\n", setSettlementAuthorityHelpMsg)
	case "hasrole":
		fmt.Printf("%s\n", hasRoleHelpMsg)

	// Ledger commands
	case "mint":
		fmt.Printf("%s\n", mintHelpMsg)
	case "transfer":
		fmt.Printf("%s\n", transferHelpMsg)
	case "balance":
		fmt.Printf("%s\n", balanceHelpMsg)
	case "supply":
		fmt.Printf("%s\n", supplyHelpMsg)

	// Post and vote commands
	case "postnew":
		fmt.Printf("%s\n", postNewHelpMsg)
	case "vote":
		fmt.Printf("%s\n", voteHelpMsg)
	case "postdetails":
		fmt.Printf("%s\n", postDetailsHelpMsg)
	case "postscore":
		fmt.Printf("%s\n", postScoreHelpMsg)
	case "votedays":
		fmt.Printf("%s\n", voteDaysHelpMsg)
	case "currentday":
		fmt.Printf("%s\n", currentDayHelpMsg)
	case "dayrecord":
		fmt.Printf("%s\n", dayRecordHelpMsg)

	// Settlement commands
	case "settleday":
		fmt.Printf("%s\n", settleDayHelpMsg)
	case "settlement":
		fmt.Printf("%s\n", settlementHelpMsg)
	case "claimable":
		fmt.Printf("%s\n", claimableHelpMsg)
	case "claim":
		fmt.Printf("%s\n", claimHelpMsg)
	case "unsettled":
		fmt.Printf("%s\n", unsettledHelpMsg)

	// Event commands
	case "events":
		fmt.Printf("%s\n", eventsHelpMsg)
	case "subscribe":
		fmt.Printf("%s\n", subscribeHelpMsg)

	default:
		fmt.Printf("invalid command: use 'curatectl -h' " +
			"to view a list of valid commands\n")
	}

	return nil
}
