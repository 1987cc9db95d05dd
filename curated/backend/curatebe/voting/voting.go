// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package voting registers posts and accumulates vote weight per post, per
// day and per voter.
package voting

import (
	"math"
	"sort"
	"strconv"
	"strings"

	v1 "github.com/decred/curate/curated/api/v1"
	"github.com/decred/curate/curated/backend"
	"github.com/decred/curate/curated/backend/curatebe/outbox"
	"github.com/decred/curate/curated/backend/curatebe/roles"
	"github.com/decred/curate/curated/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
)

const (
	// DaySeconds is the length of a voting day.
	DaySeconds = 86400

	// Content limits
	maxContentHashLength = 256
	maxTagsLength        = 1024

	keyPostCount = "voting-postcount"
	keyDays      = "voting-days"

	// The {id}, {day} and {address} placeholders are replaced by the
	// post id, the day index and the lowercase hex address.
	keyPost     = "voting-post-{id}"
	keyDay      = "voting-day-{day}"
	keyVoteDays = "voting-votedays-{address}"
)

func keyPostFor(id uint64) string {
	return strings.Replace(keyPost, "{id}", strconv.FormatUint(id, 10), 1)
}

func keyDayFor(day uint64) string {
	return strings.Replace(keyDay, "{day}", strconv.FormatUint(day, 10), 1)
}

func keyVoteDaysFor(account common.Address) string {
	return strings.Replace(keyVoteDays, "{address}",
		strings.ToLower(account.Hex()), 1)
}

// DayIndex returns the day that contains the unix timestamp. Timestamps
// before genesis belong to day 0.
func DayIndex(genesis, now int64) uint64 {
	if now <= genesis {
		return 0
	}
	return uint64(now-genesis) / DaySeconds
}

// Voting is the posting and voting component.
type Voting struct {
	clock   clockwork.Clock
	genesis int64
	roles   *roles.Roles
	outbox  *outbox.Outbox
}

// New returns a new Voting that counts days from the genesis unix timestamp.
func New(clock clockwork.Clock, genesis int64, r *roles.Roles, o *outbox.Outbox) *Voting {
	return &Voting{
		clock:   clock,
		genesis: genesis,
		roles:   r,
		outbox:  o,
	}
}

// CurrentDay returns the index of the current day.
func (v *Voting) CurrentDay() uint64 {
	return DayIndex(v.genesis, v.clock.Now().Unix())
}

func errOverflow(what string) error {
	return backend.UserError{
		ErrorCode:    backend.ErrorCodeOverflow,
		ErrorContext: what,
	}
}

// add returns a+b or an Overflow user error.
func add(a, b uint64, what string) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, errOverflow(what)
	}
	return a + b, nil
}

// PostCount returns the number of posts. Post ids run from 1 to the count.
func (v *Voting) PostCount(g store.Getter) (uint64, error) {
	var count uint64
	_, err := store.GetJSON(g, keyPostCount, &count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Post returns the post. A PostNotFound user error is returned for ids that
// are not registered.
func (v *Voting) Post(g store.Getter, id uint64) (*backend.Post, error) {
	var p backend.Post
	ok, err := store.GetJSON(g, keyPostFor(id), &p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, backend.UserError{
			ErrorCode:    backend.ErrorCodePostNotFound,
			ErrorContext: strconv.FormatUint(id, 10),
		}
	}
	return &p, nil
}

// Days returns every day that saw activity, ascending.
func (v *Voting) Days(g store.Getter) ([]uint64, error) {
	days := []uint64{}
	_, err := store.GetJSON(g, keyDays, &days)
	if err != nil {
		return nil, err
	}
	return days, nil
}

// DayRecord returns the record of the day. Days without activity return an
// empty record.
func (v *Voting) DayRecord(g store.Getter, day uint64) (*backend.DayRecord, error) {
	dr := backend.NewDayRecord(day)
	_, err := store.GetJSON(g, keyDayFor(day), dr)
	if err != nil {
		return nil, err
	}
	return dr, nil
}

// UserVoteDays returns the days on which the account voted, ascending and
// without duplicates.
func (v *Voting) UserVoteDays(g store.Getter, account common.Address) ([]uint64, error) {
	days := []uint64{}
	_, err := store.GetJSON(g, keyVoteDaysFor(account), &days)
	if err != nil {
		return nil, err
	}
	return days, nil
}

// insertDay adds day to the sorted list if it is not present. The returned
// bool is false when the list did not change.
func insertDay(days []uint64, day uint64) ([]uint64, bool) {
	i := sort.Search(len(days), func(i int) bool { return days[i] >= day })
	if i < len(days) && days[i] == day {
		return days, false
	}
	days = append(days, 0)
	copy(days[i+1:], days[i:])
	days[i] = day
	return days, true
}

// loadDay returns the record of the day and adds the day to the day index
// the first time the day is touched.
func (v *Voting) loadDay(tx store.Tx, day uint64) (*backend.DayRecord, error) {
	dr := backend.NewDayRecord(day)
	ok, err := store.GetJSON(tx, keyDayFor(day), dr)
	if err != nil {
		return nil, err
	}
	if ok {
		return dr, nil
	}
	days, err := v.Days(tx)
	if err != nil {
		return nil, err
	}
	days, _ = insertDay(days, day)
	err = store.PutJSON(tx, keyDays, days)
	if err != nil {
		return nil, err
	}
	return dr, nil
}

// CreatePost registers a new post authored by the caller. The caller must be
// a curator. Post ids are assigned sequentially starting at 1.
func (v *Voting) CreatePost(tx store.Tx, caller common.Address, contentHash, tags string) (*backend.Post, error) {
	ok, err := v.roles.HasRole(tx, caller, backend.RoleCurator)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, backend.UserError{
			ErrorCode:    backend.ErrorCodeUnauthorized,
			ErrorContext: caller.Hex() + " is not a curator",
		}
	}
	switch {
	case contentHash == "":
		return nil, backend.UserError{
			ErrorCode:    backend.ErrorCodeContentInvalid,
			ErrorContext: "content hash is empty",
		}
	case len(contentHash) > maxContentHashLength:
		return nil, backend.UserError{
			ErrorCode:    backend.ErrorCodeContentInvalid,
			ErrorContext: "content hash too long",
		}
	case len(tags) > maxTagsLength:
		return nil, backend.UserError{
			ErrorCode:    backend.ErrorCodeContentInvalid,
			ErrorContext: "tags too long",
		}
	}

	count, err := v.PostCount(tx)
	if err != nil {
		return nil, err
	}
	id, err := add(count, 1, "post count")
	if err != nil {
		return nil, err
	}
	now := v.clock.Now().Unix()
	day := DayIndex(v.genesis, now)
	p := backend.Post{
		ID:          id,
		Author:      caller,
		ContentHash: contentHash,
		Tags:        tags,
		Timestamp:   now,
		CreationDay: day,
	}
	err = store.InsertJSON(tx, keyPostFor(id), p)
	if err != nil {
		return nil, errors.Wrapf(err, "post %v", id)
	}
	err = store.PutJSON(tx, keyPostCount, id)
	if err != nil {
		return nil, err
	}

	dr, err := v.loadDay(tx, day)
	if err != nil {
		return nil, err
	}
	dr.PostsCreated = append(dr.PostsCreated, id)
	err = store.PutJSON(tx, keyDayFor(day), dr)
	if err != nil {
		return nil, err
	}

	_, err = v.outbox.Append(tx, v1.EventTypePostCreated, v1.EventPostCreated{
		PostID:      id,
		Author:      caller.Hex(),
		ContentHash: contentHash,
		Tags:        tags,
	})
	if err != nil {
		return nil, err
	}

	log.Debugf("Post %v created by %v on day %v", id, caller, day)

	return &p, nil
}

// Vote adds amount weight from the caller to the post on the current day. It
// returns the day the vote was counted on. The caller must be a curator.
// Voting power is not checked against token balances.
func (v *Voting) Vote(tx store.Tx, caller common.Address, postID, amount uint64) (uint64, error) {
	ok, err := v.roles.HasRole(tx, caller, backend.RoleCurator)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, backend.UserError{
			ErrorCode:    backend.ErrorCodeUnauthorized,
			ErrorContext: caller.Hex() + " is not a curator",
		}
	}
	if amount == 0 {
		return 0, backend.UserError{
			ErrorCode:    backend.ErrorCodeInvalidAmount,
			ErrorContext: "vote amount is zero",
		}
	}
	p, err := v.Post(tx, postID)
	if err != nil {
		return 0, err
	}

	day := v.CurrentDay()
	dr, err := v.loadDay(tx, day)
	if err != nil {
		return 0, err
	}

	// Check every counter before anything is written
	score, err := add(p.Score, amount, "post score")
	if err != nil {
		return 0, err
	}
	total, err := add(dr.TotalVoteWeight, amount, "day weight")
	if err != nil {
		return 0, err
	}
	postWeight, err := add(dr.PostWeights[postID], amount, "post day weight")
	if err != nil {
		return 0, err
	}
	voterWeight, err := add(dr.VoterWeights[caller], amount, "voter day weight")
	if err != nil {
		return 0, err
	}

	p.Score = score
	dr.TotalVoteWeight = total
	dr.PostWeights[postID] = postWeight
	dr.VoterWeights[caller] = voterWeight

	err = store.PutJSON(tx, keyPostFor(postID), p)
	if err != nil {
		return 0, err
	}
	err = store.PutJSON(tx, keyDayFor(day), dr)
	if err != nil {
		return 0, err
	}
	voteDays, err := v.UserVoteDays(tx, caller)
	if err != nil {
		return 0, err
	}
	voteDays, changed := insertDay(voteDays, day)
	if changed {
		err = store.PutJSON(tx, keyVoteDaysFor(caller), voteDays)
		if err != nil {
			return 0, err
		}
	}

	_, err = v.outbox.Append(tx, v1.EventTypeVoted, v1.EventVoted{
		Voter:  caller.Hex(),
		PostID: postID,
		Amount: amount,
		Day:    day,
	})
	if err != nil {
		return 0, err
	}

	log.Debugf("Vote %v on post %v by %v on day %v", amount, postID,
		caller, day)

	return day, nil
}
