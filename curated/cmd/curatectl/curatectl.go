// Copyright (c) 2017-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"
)

var (
	// cfg is the global config. It is loaded before any command runs.
	cfg *config
)

type curatectl struct {
	// This is here to prevent parsing errors caused by config flags.
	Config config

	// Basic commands
	Help    cmdHelp    `command:"help"`
	Version cmdVersion `command:"version"`

	// Role commands
	AppointModerator       cmdAppointModerator       `command:"appointmoderator"`
	AppointCurator         cmdAppointCurator         `command:"appointcurator"`
	RevokeRole             cmdRevokeRole             `command:"revokerole"`
	TransferOwnership      cmdTransferOwnership      `command:"transferownership"`
	SetSettlementAuthority cmdSetSettlementAuthority `command:"setsettlementauthority"`
	HasRole                cmdHasRole                `command:"hasrole"`

	// Ledger commands
	Mint     cmdMint     `command:"mint"`
	Transfer cmdTransfer `command:"transfer"`
	Balance  cmdBalance  `command:"balance"`
	Supply   cmdSupply   `command:"supply"`

	// Post and vote commands
	PostNew     cmdPostNew     `command:"postnew"`
	Vote        cmdVote        `command:"vote"`
	PostDetails cmdPostDetails `command:"postdetails"`
	PostScore   cmdPostScore   `command:"postscore"`
	VoteDays    cmdVoteDays    `command:"votedays"`
	CurrentDay  cmdCurrentDay  `command:"currentday"`
	DayRecord   cmdDayRecord   `command:"dayrecord"`

	// Settlement commands
	SettleDay  cmdSettleDay  `command:"settleday"`
	Settlement cmdSettlement `command:"settlement"`
	Claimable  cmdClaimable  `command:"claimable"`
	Claim      cmdClaim      `command:"claim"`
	Unsettled  cmdUnsettled  `command:"unsettled"`

	// Event commands
	Events    cmdEvents    `command:"events"`
	Subscribe cmdSubscribe `command:"subscribe"`
}

const helpMsg = `Application Options:
      --appdata=    Path to application home directory
      --host=       curated host
      --httpscert=  curated https certificate
      --rpcuser=    RPC user name
      --rpcpass=    RPC password
      --skipverify  Skip verifying the server's certifcate chain and host name
      --silent      Suppress all output
      --version     Display version information and exit

Help commands
  help                    Print detailed help message for a command

Basic commands
  version                 (public) Get the curated version

Role commands
  appointmoderator        (rpc)    Appoint a moderator
  appointcurator          (rpc)    Appoint a curator
  revokerole              (rpc)    Revoke a role
  transferownership       (rpc)    Transfer the owner role
  setsettlementauthority  (rpc)    Bind the minting authority
  hasrole                 (public) Check whether an account holds a role

Ledger commands
  mint                    (rpc)    Mint tokens
  transfer                (rpc)    Transfer tokens
  balance                 (public) Get the balance of an account
  supply                  (public) Get the total supply

Post and vote commands
  postnew                 (rpc)    Register a post
  vote                    (rpc)    Vote on a post
  postdetails             (public) Get a post
  postscore               (public) Get the score of a post
  votedays                (public) Get the days an account voted on
  currentday              (public) Get the current day
  dayrecord               (public) Get the voting activity of a day

Settlement commands
  settleday               (rpc)    Settle an elapsed day
  settlement              (public) Get the settlement of a day
  claimable               (public) Get the rewards of an account
  claim                   (rpc)    Withdraw all claimable rewards
  unsettled               (public) Get the elapsed days awaiting settlement

Event commands
  events                  (public) Get a page of events
  subscribe               (public) Stream events over a websocket
`

func _main() error {
	// Load config. The config variable is a global variable.
	var err error
	cfg, err = loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %v", err)
	}

	// Check for a help flag. This is done separately so that we can
	// print our own custom help message.
	var opts flags.Options = flags.HelpFlag | flags.IgnoreUnknown |
		flags.PassDoubleDash
	parser := flags.NewParser(&struct{}{}, opts)
	_, err = parser.Parse()
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			// The -h, --help flag was used. Print the custom help message
			// and exit gracefully.
			fmt.Printf("%v\n", helpMsg)
			os.Exit(0)
		}
		return fmt.Errorf("parse help flag: %v", err)
	}

	// Parse CLI args and execute command
	parser = flags.NewParser(&curatectl{Config: *cfg}, flags.Default)
	_, err = parser.Parse()
	if err != nil {
		// An error has occurred during command execution. go-flags will
		// have already printed the error to os.Stdout. Exit with an
		// error code.
		os.Exit(1)
	}

	return nil
}

func main() {
	err := _main()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
