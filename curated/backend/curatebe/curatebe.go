// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package curatebe

import (
	"sync"

	"github.com/decred/curate/curated/backend"
	"github.com/decred/curate/curated/backend/curatebe/ledger"
	"github.com/decred/curate/curated/backend/curatebe/outbox"
	"github.com/decred/curate/curated/backend/curatebe/roles"
	"github.com/decred/curate/curated/backend/curatebe/settlement"
	"github.com/decred/curate/curated/backend/curatebe/voting"
	"github.com/decred/curate/curated/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/robfig/cron"
)

const (
	// keyGenesis is the key of the genesis record. It is written once
	// when the backend is first started.
	keyGenesis = "genesis"
)

var (
	_ backend.Backend = (*curateBackend)(nil)
)

// Settings contains the backend settings.
type Settings struct {
	// Owner is the initial owner. It is only used the first time the
	// backend is started.
	Owner common.Address

	// Genesis is the unix timestamp that starts day 0. The current time
	// is used when it is zero. It is only used the first time the
	// backend is started.
	Genesis int64

	// DailyMint is the size of the daily reward pool.
	DailyMint *uint256.Int

	// SettleSchedule is the cron schedule of the job that settles
	// elapsed days. The job is disabled when it is empty.
	SettleSchedule string

	// Settled is called after every committed settlement, whether it
	// was requested by a caller or by the cron job. Optional.
	Settled func(*backend.Settlement)
}

// curateBackend implements the backend Backend interface. Mutating calls hold
// the write lock for the duration of a single store transaction so that the
// engine behaves as a serialized state machine.
type curateBackend struct {
	sync.RWMutex
	shutdown bool
	store    store.BlobKV
	clock    clockwork.Clock
	genesis  backend.Genesis
	cron     *cron.Cron
	settled  func(*backend.Settlement)

	outbox     *outbox.Outbox
	roles      *roles.Roles
	ledger     *ledger.Ledger
	voting     *voting.Voting
	settlement *settlement.Settlement
}

// write executes fn inside of a store transaction. The transaction is only
// committed when fn succeeds.
func (c *curateBackend) write(fn func(tx store.Tx) error) error {
	c.Lock()
	defer c.Unlock()

	if c.shutdown {
		return backend.ErrShutdown
	}

	tx, cancel, err := c.store.Tx()
	if err != nil {
		return err
	}
	defer cancel()

	err = fn(tx)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// read executes fn against the committed state.
func (c *curateBackend) read(fn func(g store.Getter) error) error {
	c.RLock()
	defer c.RUnlock()

	if c.shutdown {
		return backend.ErrShutdown
	}

	return fn(c.store)
}

// errPoolCaller is returned when the settlement pool is used as the caller of
// an external operation. Only the settlement engine moves pool funds.
func errPoolCaller() error {
	return backend.UserError{
		ErrorCode:    backend.ErrorCodeUnauthorized,
		ErrorContext: "the settlement pool can not be a caller",
	}
}

// errPoolAccount is returned when the settlement pool is used as the target
// of an external operation.
func errPoolAccount(what string) error {
	return backend.UserError{
		ErrorCode:    backend.ErrorCodeAddressInvalid,
		ErrorContext: what + " can not be the settlement pool",
	}
}

// AppointModerator grants the moderator role to the account.
//
// This function satisfies the Backend interface.
func (c *curateBackend) AppointModerator(caller, account common.Address) error {
	log.Tracef("AppointModerator: %v %v", caller, account)

	if account == settlement.PoolAddress {
		return errPoolAccount("moderator")
	}

	return c.write(func(tx store.Tx) error {
		return c.roles.AppointModerator(tx, caller, account)
	})
}

// AppointCurator grants the curator role to the account.
//
// This function satisfies the Backend interface.
func (c *curateBackend) AppointCurator(caller, account common.Address) error {
	log.Tracef("AppointCurator: %v %v", caller, account)

	if account == settlement.PoolAddress {
		return errPoolAccount("curator")
	}

	return c.write(func(tx store.Tx) error {
		return c.roles.AppointCurator(tx, caller, account)
	})
}

// RevokeRole removes a role from the account.
//
// This function satisfies the Backend interface.
func (c *curateBackend) RevokeRole(caller, account common.Address, role backend.RoleT) error {
	log.Tracef("RevokeRole: %v %v %v", caller, account, backend.Roles[role])

	return c.write(func(tx store.Tx) error {
		return c.roles.Revoke(tx, caller, account, role)
	})
}

// TransferOwnership moves the owner role to a new account.
//
// This function satisfies the Backend interface.
func (c *curateBackend) TransferOwnership(caller, newOwner common.Address) error {
	log.Tracef("TransferOwnership: %v %v", caller, newOwner)

	if newOwner == settlement.PoolAddress {
		return errPoolAccount("owner")
	}

	return c.write(func(tx store.Tx) error {
		return c.roles.TransferOwnership(tx, caller, newOwner)
	})
}

// SetSettlementAuthority binds the account that is allowed to mint.
//
// This function satisfies the Backend interface.
func (c *curateBackend) SetSettlementAuthority(caller, authority common.Address) error {
	log.Tracef("SetSettlementAuthority: %v %v", caller, authority)

	return c.write(func(tx store.Tx) error {
		return c.roles.SetSettlementAuthority(tx, caller, authority)
	})
}

// HasRole returns whether the account holds the role.
//
// This function satisfies the Backend interface.
func (c *curateBackend) HasRole(account common.Address, role backend.RoleT) (bool, error) {
	log.Tracef("HasRole: %v %v", account, backend.Roles[role])

	var ok bool
	err := c.read(func(g store.Getter) error {
		var err error
		ok, err = c.roles.HasRole(g, account, role)
		return err
	})
	return ok, err
}

// Mint credits new tokens to the account.
//
// This function satisfies the Backend interface.
func (c *curateBackend) Mint(caller, account common.Address, amount *uint256.Int) error {
	log.Tracef("Mint: %v %v %v", caller, account, amount.Dec())

	// The pool is the minting authority of the settlement engine. Mints
	// on its behalf only happen inside SettleDay.
	if caller == settlement.PoolAddress {
		return errPoolCaller()
	}
	if account == settlement.PoolAddress {
		return errPoolAccount("mint recipient")
	}

	return c.write(func(tx store.Tx) error {
		return c.ledger.Mint(tx, caller, account, amount)
	})
}

// Transfer moves tokens from the caller to another account.
//
// This function satisfies the Backend interface.
func (c *curateBackend) Transfer(caller, to common.Address, amount *uint256.Int) error {
	log.Tracef("Transfer: %v %v %v", caller, to, amount.Dec())

	// The pool balance must always equal the unclaimed rewards
	if caller == settlement.PoolAddress {
		return errPoolCaller()
	}
	if to == settlement.PoolAddress {
		return errPoolAccount("transfer recipient")
	}

	return c.write(func(tx store.Tx) error {
		return c.ledger.Transfer(tx, caller, to, amount)
	})
}

// BalanceOf returns the token balance of the account.
//
// This function satisfies the Backend interface.
func (c *curateBackend) BalanceOf(account common.Address) (*uint256.Int, error) {
	log.Tracef("BalanceOf: %v", account)

	var balance *uint256.Int
	err := c.read(func(g store.Getter) error {
		var err error
		balance, err = c.ledger.BalanceOf(g, account)
		return err
	})
	return balance, err
}

// TotalSupply returns the amount of tokens in existence.
//
// This function satisfies the Backend interface.
func (c *curateBackend) TotalSupply() (*uint256.Int, error) {
	log.Tracef("TotalSupply")

	var supply *uint256.Int
	err := c.read(func(g store.Getter) error {
		var err error
		supply, err = c.ledger.TotalSupply(g)
		return err
	})
	return supply, err
}

// CreatePost registers a new post authored by the caller.
//
// This function satisfies the Backend interface.
func (c *curateBackend) CreatePost(caller common.Address, contentHash, tags string) (*backend.Post, error) {
	log.Tracef("CreatePost: %v %v", caller, contentHash)

	var p *backend.Post
	err := c.write(func(tx store.Tx) error {
		var err error
		p, err = c.voting.CreatePost(tx, caller, contentHash, tags)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Vote adds weight to a post and returns the day it was counted on.
//
// This function satisfies the Backend interface.
func (c *curateBackend) Vote(caller common.Address, postID, amount uint64) (uint64, error) {
	log.Tracef("Vote: %v %v %v", caller, postID, amount)

	var day uint64
	err := c.write(func(tx store.Tx) error {
		var err error
		day, err = c.voting.Vote(tx, caller, postID, amount)
		return err
	})
	return day, err
}

// Post returns a post.
//
// This function satisfies the Backend interface.
func (c *curateBackend) Post(postID uint64) (*backend.Post, error) {
	log.Tracef("Post: %v", postID)

	var p *backend.Post
	err := c.read(func(g store.Getter) error {
		var err error
		p, err = c.voting.Post(g, postID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// PostScore returns the cumulative vote weight of a post.
//
// This function satisfies the Backend interface.
func (c *curateBackend) PostScore(postID uint64) (uint64, error) {
	log.Tracef("PostScore: %v", postID)

	p, err := c.Post(postID)
	if err != nil {
		return 0, err
	}
	return p.Score, nil
}

// CurrentDay returns the index of the current day.
//
// This function satisfies the Backend interface.
func (c *curateBackend) CurrentDay() uint64 {
	return c.voting.CurrentDay()
}

// Genesis returns the genesis record.
//
// This function satisfies the Backend interface.
func (c *curateBackend) Genesis() backend.Genesis {
	return c.genesis
}

// UserVoteDays returns the days the account voted on, ascending.
//
// This function satisfies the Backend interface.
func (c *curateBackend) UserVoteDays(account common.Address) ([]uint64, error) {
	log.Tracef("UserVoteDays: %v", account)

	var days []uint64
	err := c.read(func(g store.Getter) error {
		var err error
		days, err = c.voting.UserVoteDays(g, account)
		return err
	})
	return days, err
}

// DayRecord returns the voting activity of a day.
//
// This function satisfies the Backend interface.
func (c *curateBackend) DayRecord(day uint64) (*backend.DayRecord, error) {
	log.Tracef("DayRecord: %v", day)

	var dr *backend.DayRecord
	err := c.read(func(g store.Getter) error {
		var err error
		dr, err = c.voting.DayRecord(g, day)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dr, nil
}

// SettleDay settles an elapsed day.
//
// This function satisfies the Backend interface.
func (c *curateBackend) SettleDay(day uint64) (*backend.Settlement, error) {
	log.Tracef("SettleDay: %v", day)

	var s *backend.Settlement
	err := c.write(func(tx store.Tx) error {
		var err error
		s, err = c.settlement.SettleDay(tx, day)
		return err
	})
	if err != nil {
		return nil, err
	}
	if c.settled != nil {
		c.settled(s)
	}
	return s, nil
}

// Settlement returns the settlement of a day.
//
// This function satisfies the Backend interface.
func (c *curateBackend) Settlement(day uint64) (*backend.Settlement, error) {
	log.Tracef("Settlement: %v", day)

	var s *backend.Settlement
	err := c.read(func(g store.Getter) error {
		var err error
		s, err = c.settlement.Settlement(g, day)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// UnsettledDays returns the elapsed days with activity that have not been
// settled.
//
// This function satisfies the Backend interface.
func (c *curateBackend) UnsettledDays() ([]uint64, error) {
	log.Tracef("UnsettledDays")

	var days []uint64
	err := c.read(func(g store.Getter) error {
		var err error
		days, err = c.settlement.UnsettledDays(g)
		return err
	})
	return days, err
}

// ClaimableAmount returns the rewards the account can withdraw.
//
// This function satisfies the Backend interface.
func (c *curateBackend) ClaimableAmount(account common.Address) (*uint256.Int, error) {
	log.Tracef("ClaimableAmount: %v", account)

	var amount *uint256.Int
	err := c.read(func(g store.Getter) error {
		var err error
		amount, err = c.settlement.ClaimableAmount(g, account)
		return err
	})
	return amount, err
}

// RewardState returns the reward accounting of the account.
//
// This function satisfies the Backend interface.
func (c *curateBackend) RewardState(account common.Address) (*backend.RewardState, error) {
	log.Tracef("RewardState: %v", account)

	var rs *backend.RewardState
	err := c.read(func(g store.Getter) error {
		var err error
		rs, err = c.settlement.RewardState(g, account)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// ClaimRewards withdraws all claimable rewards of the caller.
//
// This function satisfies the Backend interface.
func (c *curateBackend) ClaimRewards(caller common.Address) (*uint256.Int, error) {
	log.Tracef("ClaimRewards: %v", caller)

	if caller == settlement.PoolAddress {
		return nil, errPoolCaller()
	}

	var amount *uint256.Int
	err := c.write(func(tx store.Tx) error {
		var err error
		amount, err = c.settlement.Claim(tx, caller)
		return err
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}

// Events returns up to limit events starting at sequence from.
//
// This function satisfies the Backend interface.
func (c *curateBackend) Events(from uint64, limit uint32) ([]backend.Event, error) {
	log.Tracef("Events: %v %v", from, limit)

	var events []backend.Event
	err := c.read(func(g store.Getter) error {
		var err error
		events, err = outbox.Events(g, from, limit)
		return err
	})
	return events, err
}

// EventCursor returns the next sequence number to deliver to the sink.
//
// This function satisfies the Backend interface.
func (c *curateBackend) EventCursor(sink string) (uint64, error) {
	var seq uint64
	err := c.read(func(g store.Getter) error {
		var err error
		seq, err = outbox.Cursor(g, sink)
		return err
	})
	return seq, err
}

// SetEventCursor records that the sink accepted every event before seq.
//
// This function satisfies the Backend interface.
func (c *curateBackend) SetEventCursor(sink string, seq uint64) error {
	return c.write(func(tx store.Tx) error {
		return outbox.SetCursor(tx, sink, seq)
	})
}

// SettleElapsed settles every elapsed day that saw activity and returns the
// number of days that were settled. Each day is settled in its own
// transaction.
func (c *curateBackend) SettleElapsed() (int, error) {
	days, err := c.UnsettledDays()
	if err != nil {
		return 0, err
	}
	var settled int
	for _, day := range days {
		_, err := c.SettleDay(day)
		switch {
		case backend.IsUserError(err, backend.ErrorCodeDayAlreadySettled):
			// Settled by a caller since the days were listed
			continue
		case err != nil:
			return settled, errors.Wrapf(err, "settle day %v", day)
		}
		settled++
	}
	return settled, nil
}

// BindSettlement binds the settlement pool as the minting authority on behalf
// of the current owner. It does nothing once an authority has been bound, so
// it is safe to call on every start.
func (c *curateBackend) BindSettlement() error {
	log.Tracef("BindSettlement")

	return c.write(func(tx store.Tx) error {
		_, ok, err := c.roles.SettlementAuthority(tx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		owner, err := c.roles.Owner(tx)
		if err != nil {
			return err
		}
		err = c.roles.SetSettlementAuthority(tx, owner,
			settlement.PoolAddress)
		if err != nil {
			return err
		}

		log.Infof("Settlement authority bound to %v", settlement.PoolAddress)

		return nil
	})
}

// Fsck verifies the accounting invariants. The total supply must equal the
// sum of all balances and the settlement pool must hold exactly the
// unclaimed rewards.
//
// This function satisfies the Backend interface.
func (c *curateBackend) Fsck() error {
	log.Tracef("Fsck")

	return c.read(func(g store.Getter) error {
		supply, err := c.ledger.TotalSupply(g)
		if err != nil {
			return err
		}
		sum, err := c.ledger.SumBalances(g)
		if err != nil {
			return err
		}
		if !supply.Eq(sum) {
			return errors.Errorf("total supply %v does not match "+
				"the sum of balances %v", supply.Dec(), sum.Dec())
		}

		pool, err := c.ledger.BalanceOf(g, settlement.PoolAddress)
		if err != nil {
			return err
		}
		claimable, err := c.settlement.SumClaimable(g)
		if err != nil {
			return err
		}
		if !pool.Eq(claimable) {
			return errors.Errorf("pool balance %v does not match "+
				"the unclaimed rewards %v", pool.Dec(), claimable.Dec())
		}

		log.Infof("Fsck: supply %v, unclaimed %v", supply.Dec(),
			claimable.Dec())

		return nil
	})
}

// Close performs cleanup of the backend.
//
// This function satisfies the Backend interface.
func (c *curateBackend) Close() {
	log.Tracef("Close")

	if c.cron != nil {
		c.cron.Stop()
	}

	c.Lock()
	defer c.Unlock()

	// Shutdown backend
	c.shutdown = true

	c.store.Close()
}

// setup loads the genesis record. The genesis record is created and the
// owner is initialized the first time the backend is started.
func setup(kv store.BlobKV, clock clockwork.Clock, s Settings) (*backend.Genesis, error) {
	var g backend.Genesis
	ok, err := store.GetJSON(kv, keyGenesis, &g)
	if err != nil {
		return nil, err
	}
	if ok {
		return &g, nil
	}

	if s.Owner == (common.Address{}) {
		return nil, errors.Errorf("owner required to initialize a new " +
			"backend")
	}
	g = backend.Genesis{
		Owner:     s.Owner,
		Timestamp: s.Genesis,
	}
	if g.Timestamp == 0 {
		g.Timestamp = clock.Now().Unix()
	}

	tx, cancel, err := kv.Tx()
	if err != nil {
		return nil, err
	}
	defer cancel()

	err = store.InsertJSON(tx, keyGenesis, g)
	if err != nil {
		return nil, err
	}
	o := outbox.New(clock)
	err = roles.New(clock, o).Init(tx, g.Owner)
	if err != nil {
		return nil, err
	}
	err = tx.Commit()
	if err != nil {
		return nil, err
	}

	log.Infof("Genesis %v, owner %v", g.Timestamp, g.Owner)

	return &g, nil
}

// New returns a new curateBackend.
func New(kv store.BlobKV, clock clockwork.Clock, s Settings) (*curateBackend, error) {
	if s.DailyMint == nil {
		s.DailyMint = uint256.NewInt(settlement.DailyMintAmount)
	}

	g, err := setup(kv, clock, s)
	if err != nil {
		return nil, errors.Wrap(err, "setup")
	}

	o := outbox.New(clock)
	r := roles.New(clock, o)
	l := ledger.New(r, o)
	v := voting.New(clock, g.Timestamp, r, o)
	c := curateBackend{
		store:      kv,
		clock:      clock,
		genesis:    *g,
		outbox:     o,
		roles:      r,
		ledger:     l,
		voting:     v,
		settlement: settlement.New(clock, s.DailyMint, l, v, o),
		settled:    s.Settled,
	}

	log.Infof("Current day %v", c.CurrentDay())

	if s.SettleSchedule == "" {
		return &c, nil
	}

	// Launch cron
	log.Infof("Launch cron settlement job")
	c.cron = cron.New()
	err = c.cron.AddFunc(s.SettleSchedule, func() {
		n, err := c.SettleElapsed()
		if err != nil {
			log.Errorf("SettleElapsed: %v", err)
			return
		}
		if n > 0 {
			log.Infof("Settled %v elapsed days", n)
		}
	})
	if err != nil {
		return nil, err
	}
	c.cron.Start()

	return &c, nil
}
