// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package settlement closes out elapsed days. The daily pool is apportioned
// across the posts voted on that day in proportion to their weight and is
// credited to the post authors, who withdraw it with a claim.
//
// Rewards are minted to the settlement pool account when a day is settled
// and are transferred to the author on claim, so the pool balance always
// equals the sum of unclaimed rewards.
package settlement

import (
	"sort"
	"strconv"
	"strings"

	v1 "github.com/decred/curate/curated/api/v1"
	"github.com/decred/curate/curated/backend"
	"github.com/decred/curate/curated/backend/curatebe/ledger"
	"github.com/decred/curate/curated/backend/curatebe/outbox"
	"github.com/decred/curate/curated/backend/curatebe/voting"
	"github.com/decred/curate/curated/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
)

const (
	// DailyMintAmount is the default size of the daily reward pool.
	DailyMintAmount = 100000

	keyAccounts = "settlement-accounts"

	// The {day} and {address} placeholders are replaced by the day
	// index and the lowercase hex address.
	keyDay     = "settlement-day-{day}"
	keyAccount = "settlement-account-{address}"
)

var (
	// PoolAddress is the identity of the settlement engine. It is the
	// minting authority and holds unclaimed rewards.
	PoolAddress = common.HexToAddress("0x0000000000000000000000000000000000005e77")
)

func keyDayFor(day uint64) string {
	return strings.Replace(keyDay, "{day}", strconv.FormatUint(day, 10), 1)
}

func keyAccountFor(account common.Address) string {
	return strings.Replace(keyAccount, "{address}",
		strings.ToLower(account.Hex()), 1)
}

// credit is the persisted form of a backend Credit.
type credit struct {
	PostID uint64         `json:"postid"`
	Author common.Address `json:"author"`
	Amount string         `json:"amount"`
}

// settledDay is saved when a day is settled.
type settledDay struct {
	Day             uint64   `json:"day"`
	Pool            string   `json:"pool"`
	TotalVoteWeight uint64   `json:"totalvoteweight"`
	Distributed     string   `json:"distributed"`
	Credits         []credit `json:"credits"`
	Timestamp       int64    `json:"timestamp"`
}

// account is the reward accounting of an author.
type account struct {
	Claimable    string `json:"claimable"`
	TotalClaimed string `json:"totalclaimed"`
}

func decode(s string) (*uint256.Int, error) {
	if s == "" {
		return uint256.NewInt(0), nil
	}
	return uint256.FromDecimal(s)
}

func (s settledDay) convert() (*backend.Settlement, error) {
	pool, err := decode(s.Pool)
	if err != nil {
		return nil, err
	}
	distributed, err := decode(s.Distributed)
	if err != nil {
		return nil, err
	}
	credits := make([]backend.Credit, 0, len(s.Credits))
	for _, c := range s.Credits {
		a, err := decode(c.Amount)
		if err != nil {
			return nil, err
		}
		credits = append(credits, backend.Credit{
			PostID: c.PostID,
			Author: c.Author,
			Amount: a,
		})
	}
	return &backend.Settlement{
		Day:             s.Day,
		Settled:         true,
		Pool:            pool,
		TotalVoteWeight: s.TotalVoteWeight,
		Distributed:     distributed,
		Credits:         credits,
		Timestamp:       s.Timestamp,
	}, nil
}

// Settlement is the settlement component.
type Settlement struct {
	clock     clockwork.Clock
	dailyMint *uint256.Int
	ledger    *ledger.Ledger
	voting    *voting.Voting
	outbox    *outbox.Outbox
}

// New returns a new Settlement that distributes dailyMint tokens per day.
func New(clock clockwork.Clock, dailyMint *uint256.Int, l *ledger.Ledger, v *voting.Voting, o *outbox.Outbox) *Settlement {
	return &Settlement{
		clock:     clock,
		dailyMint: new(uint256.Int).Set(dailyMint),
		ledger:    l,
		voting:    v,
		outbox:    o,
	}
}

// CurrentDay returns the index of the current day.
func (s *Settlement) CurrentDay() uint64 {
	return s.voting.CurrentDay()
}

// settled returns the settled record of the day. The returned bool is false
// when the day has not been settled.
func (s *Settlement) settled(g store.Getter, day uint64) (*settledDay, bool, error) {
	var sd settledDay
	ok, err := store.GetJSON(g, keyDayFor(day), &sd)
	if err != nil {
		return nil, false, err
	}
	return &sd, ok, nil
}

// Settlement returns the settlement of the day. Unsettled days return a
// record with Settled set to false and the pool that would be distributed.
func (s *Settlement) Settlement(g store.Getter, day uint64) (*backend.Settlement, error) {
	sd, ok, err := s.settled(g, day)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &backend.Settlement{
			Day:         day,
			Pool:        new(uint256.Int).Set(s.dailyMint),
			Distributed: uint256.NewInt(0),
			Credits:     []backend.Credit{},
		}, nil
	}
	return sd.convert()
}

// Apportion splits pool across the weights. Each share is
// floor(pool * weight / total). The remainder is not distributed. Weights
// are visited in ascending post id order.
func Apportion(pool *uint256.Int, weights map[uint64]uint64, total uint64) (map[uint64]*uint256.Int, error) {
	shares := make(map[uint64]*uint256.Int, len(weights))
	if total == 0 {
		return shares, nil
	}
	t := uint256.NewInt(total)
	for id, w := range weights {
		if w == 0 {
			continue
		}
		share, overflow := new(uint256.Int).MulDivOverflow(pool,
			uint256.NewInt(w), t)
		if overflow {
			return nil, backend.UserError{
				ErrorCode:    backend.ErrorCodeOverflow,
				ErrorContext: "post share",
			}
		}
		shares[id] = share
	}
	return shares, nil
}

// SettleDay settles an elapsed day. The share of every post voted on during
// the day is credited to its author and the sum of the shares is minted to
// the pool account. A day without votes settles with nothing minted.
func (s *Settlement) SettleDay(tx store.Tx, day uint64) (*backend.Settlement, error) {
	current := s.CurrentDay()
	if day >= current {
		return nil, backend.UserError{
			ErrorCode: backend.ErrorCodeDayNotYetElapsed,
			ErrorContext: "day " + strconv.FormatUint(day, 10) +
				", current day " + strconv.FormatUint(current, 10),
		}
	}
	_, ok, err := s.settled(tx, day)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, backend.UserError{
			ErrorCode:    backend.ErrorCodeDayAlreadySettled,
			ErrorContext: strconv.FormatUint(day, 10),
		}
	}

	dr, err := s.voting.DayRecord(tx, day)
	if err != nil {
		return nil, err
	}
	shares, err := Apportion(s.dailyMint, dr.PostWeights, dr.TotalVoteWeight)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(shares))
	for id := range shares {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var (
		distributed = uint256.NewInt(0)
		credits     = make([]credit, 0, len(ids))
		byAuthor    = make(map[common.Address]*uint256.Int)
		authors     = make([]common.Address, 0, len(ids))
	)
	for _, id := range ids {
		share := shares[id]
		p, err := s.voting.Post(tx, id)
		if err != nil {
			return nil, err
		}
		var overflow bool
		distributed, overflow = distributed.AddOverflow(distributed, share)
		if overflow {
			return nil, backend.UserError{
				ErrorCode:    backend.ErrorCodeOverflow,
				ErrorContext: "distributed",
			}
		}
		credits = append(credits, credit{
			PostID: id,
			Author: p.Author,
			Amount: share.Dec(),
		})
		if _, ok := byAuthor[p.Author]; !ok {
			byAuthor[p.Author] = uint256.NewInt(0)
			authors = append(authors, p.Author)
		}
		byAuthor[p.Author].Add(byAuthor[p.Author], share)
	}

	// Credit the authors before minting so that an overflow is detected
	// before any balance changes.
	for _, a := range authors {
		err = s.credit(tx, a, byAuthor[a])
		if err != nil {
			return nil, err
		}
	}
	if !distributed.IsZero() {
		err = s.ledger.Mint(tx, PoolAddress, PoolAddress, distributed)
		if err != nil {
			return nil, err
		}
	}

	now := s.clock.Now().Unix()
	sd := settledDay{
		Day:             day,
		Pool:            s.dailyMint.Dec(),
		TotalVoteWeight: dr.TotalVoteWeight,
		Distributed:     distributed.Dec(),
		Credits:         credits,
		Timestamp:       now,
	}
	err = store.InsertJSON(tx, keyDayFor(day), sd)
	if err != nil {
		return nil, errors.Wrapf(err, "settled day %v", day)
	}
	_, err = s.outbox.Append(tx, v1.EventTypeDailySettlement,
		v1.EventDailySettlement{
			Day:                    day,
			TotalTokensDistributed: distributed.Dec(),
			Timestamp:              now,
		})
	if err != nil {
		return nil, err
	}

	log.Infof("Settled day %v: %v of %v distributed across %v posts",
		day, distributed.Dec(), s.dailyMint.Dec(), len(credits))

	return sd.convert()
}

// UnsettledDays returns the days before the current day that saw activity
// and have not been settled, ascending.
func (s *Settlement) UnsettledDays(g store.Getter) ([]uint64, error) {
	days, err := s.voting.Days(g)
	if err != nil {
		return nil, err
	}
	current := s.CurrentDay()
	unsettled := make([]uint64, 0, len(days))
	for _, day := range days {
		if day >= current {
			break
		}
		_, ok, err := s.settled(g, day)
		if err != nil {
			return nil, err
		}
		if !ok {
			unsettled = append(unsettled, day)
		}
	}
	return unsettled, nil
}

// Accounts returns every account that has been credited a reward.
func (s *Settlement) Accounts(g store.Getter) ([]common.Address, error) {
	var accounts []common.Address
	_, err := store.GetJSON(g, keyAccounts, &accounts)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// RewardState returns the reward accounting of the account.
func (s *Settlement) RewardState(g store.Getter, a common.Address) (*backend.RewardState, error) {
	var acct account
	_, err := store.GetJSON(g, keyAccountFor(a), &acct)
	if err != nil {
		return nil, err
	}
	claimable, err := decode(acct.Claimable)
	if err != nil {
		return nil, err
	}
	claimed, err := decode(acct.TotalClaimed)
	if err != nil {
		return nil, err
	}
	return &backend.RewardState{
		Claimable:    claimable,
		TotalClaimed: claimed,
	}, nil
}

// ClaimableAmount returns the rewards the account can withdraw.
func (s *Settlement) ClaimableAmount(g store.Getter, a common.Address) (*uint256.Int, error) {
	rs, err := s.RewardState(g, a)
	if err != nil {
		return nil, err
	}
	return rs.Claimable, nil
}

func (s *Settlement) putRewardState(tx store.Tx, a common.Address, rs *backend.RewardState) error {
	return store.PutJSON(tx, keyAccountFor(a), account{
		Claimable:    rs.Claimable.Dec(),
		TotalClaimed: rs.TotalClaimed.Dec(),
	})
}

// credit adds amount to the claimable rewards of the account.
func (s *Settlement) credit(tx store.Tx, a common.Address, amount *uint256.Int) error {
	rs, err := s.RewardState(tx, a)
	if err != nil {
		return err
	}
	var overflow bool
	rs.Claimable, overflow = rs.Claimable.AddOverflow(rs.Claimable, amount)
	if overflow {
		return backend.UserError{
			ErrorCode:    backend.ErrorCodeOverflow,
			ErrorContext: "claimable",
		}
	}
	err = s.putRewardState(tx, a, rs)
	if err != nil {
		return err
	}

	accounts, err := s.Accounts(tx)
	if err != nil {
		return err
	}
	for _, v := range accounts {
		if v == a {
			return nil
		}
	}
	return store.PutJSON(tx, keyAccounts, append(accounts, a))
}

// Claim transfers the full claimable balance of the caller from the pool to
// the caller and zeroes it.
func (s *Settlement) Claim(tx store.Tx, caller common.Address) (*uint256.Int, error) {
	rs, err := s.RewardState(tx, caller)
	if err != nil {
		return nil, err
	}
	if rs.Claimable.IsZero() {
		return nil, backend.UserError{
			ErrorCode: backend.ErrorCodeNothingToClaim,
		}
	}
	amount := new(uint256.Int).Set(rs.Claimable)

	err = s.ledger.Transfer(tx, PoolAddress, caller, amount)
	if err != nil {
		return nil, err
	}
	var overflow bool
	rs.TotalClaimed, overflow = rs.TotalClaimed.AddOverflow(rs.TotalClaimed, amount)
	if overflow {
		return nil, backend.UserError{
			ErrorCode:    backend.ErrorCodeOverflow,
			ErrorContext: "total claimed",
		}
	}
	rs.Claimable = uint256.NewInt(0)
	err = s.putRewardState(tx, caller, rs)
	if err != nil {
		return nil, err
	}
	_, err = s.outbox.Append(tx, v1.EventTypeRewardsClaimed,
		v1.EventRewardsClaimed{
			Account: caller.Hex(),
			Amount:  amount.Dec(),
		})
	if err != nil {
		return nil, err
	}

	log.Debugf("%v claimed %v", caller, amount.Dec())

	return amount, nil
}

// SumClaimable returns the sum of unclaimed rewards across all accounts.
func (s *Settlement) SumClaimable(g store.Getter) (*uint256.Int, error) {
	accounts, err := s.Accounts(g)
	if err != nil {
		return nil, err
	}
	sum := uint256.NewInt(0)
	for _, a := range accounts {
		c, err := s.ClaimableAmount(g, a)
		if err != nil {
			return nil, err
		}
		var overflow bool
		sum, overflow = sum.AddOverflow(sum, c)
		if overflow {
			return nil, errors.Errorf("sum of claimable overflows")
		}
	}
	return sum, nil
}
