// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"strconv"
)

// parseUint parses a base 10 uint64 command argument.
func parseUint(name, s string) (uint64, error) {
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %v '%v': %v", name, s, err)
	}
	return u, nil
}

// cmdPostNew registers a new post.
type cmdPostNew struct {
	Args struct {
		Caller      string `positional-arg-name:"caller"`
		ContentHash string `positional-arg-name:"contenthash"`
		Tags        string `positional-arg-name:"tags" optional:"true"`
	} `positional-args:"true" required:"true"`
}

// Execute executes the cmdPostNew command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdPostNew) Execute(args []string) error {
	cc, err := newClient()
	if err != nil {
		return err
	}
	p, err := cc.NewPost(context.Background(), c.Args.Caller,
		c.Args.ContentHash, c.Args.Tags)
	if err != nil {
		return err
	}
	printJSON(p)
	return nil
}

// postNewHelpMsg is printed to stdout by the help command.
const postNewHelpMsg = `postnew "caller" "contenthash" "tags"

Register a post. The caller must be a curator. Requires RPC credentials.

Arguments:
1. caller       (string, required)  Curator account
2. contenthash  (string, required)  Content hash, 0x prefixed hex
3. tags         (string, optional)  Free form tags`

// cmdVote votes on a post.
type cmdVote struct {
	Args struct {
		Caller string `positional-arg-name:"caller"`
		PostID string `positional-arg-name:"postid"`
		Amount string `positional-arg-name:"amount"`
	} `positional-args:"true" required:"true"`
}

// Execute executes the cmdVote command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdVote) Execute(args []string) error {
	postID, err := parseUint("post id", c.Args.PostID)
	if err != nil {
		return err
	}
	amount, err := parseUint("amount", c.Args.Amount)
	if err != nil {
		return err
	}
	cc, err := newClient()
	if err != nil {
		return err
	}
	vr, err := cc.Vote(context.Background(), c.Args.Caller, postID, amount)
	if err != nil {
		return err
	}
	printJSON(vr)
	return nil
}

// voteHelpMsg is printed to stdout by the help command.
const voteHelpMsg = `vote "caller" postid amount

Vote on a post. The caller must be a curator and the amount is added to the
post score and to the current day. Requires RPC credentials.

Arguments:
1. caller  (string, required)  Curator account
2. postid  (uint64, required)  Post id
3. amount  (uint64, required)  Vote weight`

// cmdPostDetails retrieves a post.
type cmdPostDetails struct {
	Args struct {
		PostID string `positional-arg-name:"postid"`
	} `positional-args:"true" required:"true"`
}

// Execute executes the cmdPostDetails command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdPostDetails) Execute(args []string) error {
	postID, err := parseUint("post id", c.Args.PostID)
	if err != nil {
		return err
	}
	cc, err := newClient()
	if err != nil {
		return err
	}
	p, err := cc.PostDetails(context.Background(), postID)
	if err != nil {
		return err
	}
	printJSON(p)
	return nil
}

// postDetailsHelpMsg is printed to stdout by the help command.
const postDetailsHelpMsg = `postdetails postid

Get a post.

Arguments:
1. postid  (uint64, required)  Post id`

// cmdPostScore retrieves the score of a post.
type cmdPostScore struct {
	Args struct {
		PostID string `positional-arg-name:"postid"`
	} `positional-args:"true" required:"true"`
}

// Execute executes the cmdPostScore command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdPostScore) Execute(args []string) error {
	postID, err := parseUint("post id", c.Args.PostID)
	if err != nil {
		return err
	}
	cc, err := newClient()
	if err != nil {
		return err
	}
	score, err := cc.PostScore(context.Background(), postID)
	if err != nil {
		return err
	}
	printf("%v\n", score)
	return nil
}

// postScoreHelpMsg is printed to stdout by the help command.
const postScoreHelpMsg = `postscore postid

Get the cumulative vote weight of a post.

Arguments:
1. postid  (uint64, required)  Post id`

// cmdVoteDays retrieves the days an account voted on.
type cmdVoteDays struct {
	Args struct {
		Account string `positional-arg-name:"account"`
	} `positional-args:"true" required:"true"`
}

// Execute executes the cmdVoteDays command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdVoteDays) Execute(args []string) error {
	cc, err := newClient()
	if err != nil {
		return err
	}
	days, err := cc.VoteDays(context.Background(), c.Args.Account)
	if err != nil {
		return err
	}
	printJSON(days)
	return nil
}

// voteDaysHelpMsg is printed to stdout by the help command.
const voteDaysHelpMsg = `votedays "account"

Get the days an account voted on in ascending order.

Arguments:
1. account  (string, required)  Account`

// cmdCurrentDay retrieves the current day.
type cmdCurrentDay struct{}

// Execute executes the cmdCurrentDay command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdCurrentDay) Execute(args []string) error {
	cc, err := newClient()
	if err != nil {
		return err
	}
	cd, err := cc.CurrentDay(context.Background())
	if err != nil {
		return err
	}
	printJSON(cd)
	return nil
}

// currentDayHelpMsg is printed to stdout by the help command.
const currentDayHelpMsg = `currentday

Get the current day index along with the genesis and server timestamps.`

// cmdDayRecord retrieves the voting activity of a day.
type cmdDayRecord struct {
	Args struct {
		Day string `positional-arg-name:"day"`
	} `positional-args:"true" required:"true"`
}

// Execute executes the cmdDayRecord command.
//
// This function satisfies the go-flags Commander interface.
func (c *cmdDayRecord) Execute(args []string) error {
	day, err := parseUint("day", c.Args.Day)
	if err != nil {
		return err
	}
	cc, err := newClient()
	if err != nil {
		return err
	}
	dr, err := cc.DayRecord(context.Background(), day)
	if err != nil {
		return err
	}
	printJSON(dr)
	return nil
}

// dayRecordHelpMsg is printed to stdout by the help command.
const dayRecordHelpMsg = `dayrecord day

Get the voting activity of a day.

Arguments:
1. day  (uint64, required)  Day index`
