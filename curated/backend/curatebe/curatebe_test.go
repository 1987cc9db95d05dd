// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package curatebe

import (
	"errors"
	"testing"
	"time"

	v1 "github.com/decred/curate/curated/api/v1"
	"github.com/decred/curate/curated/backend"
	"github.com/decred/curate/curated/backend/curatebe/settlement"
	"github.com/decred/curate/curated/backend/curatebe/voting"
	"github.com/decred/curate/curated/store/localdb"
	"github.com/decred/curate/unittest"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
)

var (
	owner    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	account1 = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	account2 = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	account3 = common.HexToAddress("0x00000000000000000000000000000000000000b3")
	account4 = common.HexToAddress("0x00000000000000000000000000000000000000b4")

	genesis = time.Unix(1700000000, 0)
	oneDay  = time.Duration(voting.DaySeconds) * time.Second
)

// newTestBackend returns a backend that has been wired the same way the
// daemon wires it on startup. The owner is a moderator and every account is a
// curator.
func newTestBackend(t *testing.T) (*curateBackend, clockwork.FakeClock) {
	t.Helper()

	kv, err := localdb.NewMemory(nil)
	if err != nil {
		t.Fatal(err)
	}
	clock := clockwork.NewFakeClockAt(genesis)
	c, err := New(kv, clock, Settings{
		Owner: owner,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)

	err = c.SetSettlementAuthority(owner, settlement.PoolAddress)
	if err != nil {
		t.Fatal(err)
	}
	err = c.AppointModerator(owner, owner)
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range []common.Address{owner, account1, account2, account3} {
		err = c.AppointCurator(owner, a)
		if err != nil {
			t.Fatal(err)
		}
	}

	return c, clock
}

func mustPost(t *testing.T, c *curateBackend, author common.Address, hash string) uint64 {
	t.Helper()

	p, err := c.CreatePost(author, hash, "tag")
	if err != nil {
		t.Fatal(err)
	}
	return p.ID
}

func mustVote(t *testing.T, c *curateBackend, caller common.Address, postID, amount uint64) {
	t.Helper()

	_, err := c.Vote(caller, postID, amount)
	if err != nil {
		t.Fatal(err)
	}
}

func mustFsck(t *testing.T, c *curateBackend) {
	t.Helper()

	err := c.Fsck()
	if err != nil {
		t.Fatal(err)
	}
}

func balance(t *testing.T, c *curateBackend, a common.Address) uint64 {
	t.Helper()

	b, err := c.BalanceOf(a)
	if err != nil {
		t.Fatal(err)
	}
	return b.Uint64()
}

func TestCurateFlow(t *testing.T) {
	c, clock := newTestBackend(t)

	// The owner creates the first post, so the account posts start at 2
	if id := mustPost(t, c, owner, "QmTestHash"); id != 1 {
		t.Fatalf("got post id %v, want 1", id)
	}
	mustPost(t, c, account1, "QmPost1")
	mustPost(t, c, account2, "QmPost2")
	mustPost(t, c, account3, "QmPost3")

	votes := map[uint64]uint64{2: 500000, 3: 49999, 4: 9}
	for _, id := range []uint64{2, 3, 4} {
		mustVote(t, c, owner, id, votes[id])
	}
	for id, want := range votes {
		score, err := c.PostScore(id)
		if err != nil {
			t.Fatal(err)
		}
		if score != want {
			t.Errorf("post %v: got score %v, want %v", id, score, want)
		}
	}

	day := c.CurrentDay()
	clock.Advance(oneDay)
	s, err := c.SettleDay(day)
	if err != nil {
		t.Fatal(err)
	}
	if s.Distributed.Uint64() != 99998 || s.Dust().Uint64() != 2 {
		t.Fatalf("got distributed %v dust %v, want 99998 and 2",
			s.Distributed, s.Dust())
	}
	supply, err := c.TotalSupply()
	if err != nil {
		t.Fatal(err)
	}
	if !supply.Eq(s.Distributed) {
		t.Fatalf("got supply %v, want %v", supply, s.Distributed)
	}
	mustFsck(t, c)

	for _, a := range []common.Address{account1, account2} {
		_, err := c.ClaimRewards(a)
		if err != nil {
			t.Fatal(err)
		}
	}
	if got := balance(t, c, account1); got != 90907 {
		t.Errorf("account1: got balance %v, want 90907", got)
	}
	if got := balance(t, c, account2); got != 9090 {
		t.Errorf("account2: got balance %v, want 9090", got)
	}
	sum := balance(t, c, account1) + balance(t, c, account2) +
		balance(t, c, account3)
	if sum >= settlement.DailyMintAmount {
		t.Fatalf("balances %v reach the daily mint", sum)
	}
	mustFsck(t, c)

	// Multi-day voting and claiming
	day2 := c.CurrentDay()
	mustVote(t, c, owner, 4, 1000)
	clock.Advance(oneDay)
	_, err = c.SettleDay(day2)
	if err != nil {
		t.Fatal(err)
	}

	days, err := c.UserVoteDays(owner)
	if err != nil {
		t.Fatal(err)
	}
	unittest.DeepEqual(t, days, []uint64{0, 1})

	claimable, err := c.ClaimableAmount(account3)
	if err != nil {
		t.Fatal(err)
	}
	if claimable.Uint64() != 1+settlement.DailyMintAmount {
		t.Fatalf("account3: got claimable %v, want %v", claimable,
			1+settlement.DailyMintAmount)
	}

	// Account 2 already claimed and earned nothing since
	_, err = c.ClaimRewards(account2)
	if !backend.IsUserError(err, backend.ErrorCodeNothingToClaim) {
		t.Fatalf("got err %v, want nothing to claim", err)
	}
	mustFsck(t, c)
}

func TestSeparateCurators(t *testing.T) {
	c, clock := newTestBackend(t)
	err := c.AppointCurator(owner, account4)
	if err != nil {
		t.Fatal(err)
	}

	// Account 1 authors the first post. Accounts 2 and 3 author and vote
	// on their own posts. Account 4 only votes.
	p1 := mustPost(t, c, account1, "QmPost1")
	p2 := mustPost(t, c, account2, "QmPost2")
	p3 := mustPost(t, c, account3, "QmPost3")
	mustVote(t, c, account4, p1, 500000)
	mustVote(t, c, account2, p2, 49999)
	mustVote(t, c, account3, p3, 9)

	for id, want := range map[uint64]uint64{p1: 500000, p2: 49999, p3: 9} {
		score, err := c.PostScore(id)
		if err != nil {
			t.Fatal(err)
		}
		if score != want {
			t.Errorf("post %v: got score %v, want %v", id, score, want)
		}
	}

	// Vote days follow the voters, not the authors
	for a, want := range map[common.Address][]uint64{
		account1: {},
		account2: {0},
		account3: {0},
		account4: {0},
	} {
		days, err := c.UserVoteDays(a)
		if err != nil {
			t.Fatal(err)
		}
		if len(days) != len(want) || (len(want) > 0 && days[0] != want[0]) {
			t.Errorf("%v: got vote days %v, want %v", a, days, want)
		}
	}

	clock.Advance(oneDay)
	s, err := c.SettleDay(0)
	if err != nil {
		t.Fatal(err)
	}
	if s.Distributed.Uint64() > settlement.DailyMintAmount {
		t.Fatalf("distributed %v exceeds the pool", s.Distributed)
	}

	// Every active author is credited and the pure voter is not
	want := map[common.Address]uint64{
		account1: 90907,
		account2: 9090,
		account3: 1,
		account4: 0,
	}
	for a, w := range want {
		claimable, err := c.ClaimableAmount(a)
		if err != nil {
			t.Fatal(err)
		}
		if claimable.Uint64() != w {
			t.Errorf("%v: got claimable %v, want %v", a, claimable, w)
		}
	}
	mustFsck(t, c)
}

func TestPoolAccountRejected(t *testing.T) {
	c, clock := newTestBackend(t)
	id := mustPost(t, c, account1, "QmPost1")
	mustVote(t, c, account2, id, 10)
	clock.Advance(oneDay)
	_, err := c.SettleDay(0)
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.ClaimRewards(account1)
	if err != nil {
		t.Fatal(err)
	}

	// Leave an unclaimed credit in the pool
	mustVote(t, c, account2, id, 10)
	clock.Advance(oneDay)
	_, err = c.SettleDay(1)
	if err != nil {
		t.Fatal(err)
	}
	pool := settlement.PoolAddress

	var tests = []struct {
		name string
		fn   func() error
		want backend.ErrorCodeT
	}{
		{
			"mint as the pool",
			func() error {
				return c.Mint(pool, account3, uint256.NewInt(1000000))
			},
			backend.ErrorCodeUnauthorized,
		},
		{
			"transfer from the pool",
			func() error {
				return c.Transfer(pool, account3,
					uint256.NewInt(settlement.DailyMintAmount))
			},
			backend.ErrorCodeUnauthorized,
		},
		{
			"transfer to the pool",
			func() error {
				return c.Transfer(account1, pool, uint256.NewInt(1))
			},
			backend.ErrorCodeAddressInvalid,
		},
		{
			"claim as the pool",
			func() error {
				_, err := c.ClaimRewards(pool)
				return err
			},
			backend.ErrorCodeUnauthorized,
		},
		{
			"appoint the pool curator",
			func() error {
				return c.AppointCurator(owner, pool)
			},
			backend.ErrorCodeAddressInvalid,
		},
		{
			"appoint the pool moderator",
			func() error {
				return c.AppointModerator(owner, pool)
			},
			backend.ErrorCodeAddressInvalid,
		},
		{
			"transfer ownership to the pool",
			func() error {
				return c.TransferOwnership(owner, pool)
			},
			backend.ErrorCodeAddressInvalid,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.fn()
			if !backend.IsUserError(err, tc.want) {
				t.Fatalf("got err %v, want %v", err,
					backend.ErrorCodes[tc.want])
			}
		})
	}

	// The pool still backs the unclaimed credit
	mustFsck(t, c)
	if got := balance(t, c, pool); got != settlement.DailyMintAmount {
		t.Fatalf("got pool balance %v, want %v", got,
			settlement.DailyMintAmount)
	}
	amount, err := c.ClaimRewards(account1)
	if err != nil {
		t.Fatal(err)
	}
	if amount.Uint64() != settlement.DailyMintAmount {
		t.Fatalf("got claim %v, want %v", amount,
			settlement.DailyMintAmount)
	}
	mustFsck(t, c)
}

func TestSettledCallback(t *testing.T) {
	kv, err := localdb.NewMemory(nil)
	if err != nil {
		t.Fatal(err)
	}
	clock := clockwork.NewFakeClockAt(genesis)
	var settled []uint64
	c, err := New(kv, clock, Settings{
		Owner: owner,
		Settled: func(s *backend.Settlement) {
			settled = append(settled, s.Day)
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	err = c.BindSettlement()
	if err != nil {
		t.Fatal(err)
	}
	err = c.AppointModerator(owner, owner)
	if err != nil {
		t.Fatal(err)
	}
	err = c.AppointCurator(owner, account1)
	if err != nil {
		t.Fatal(err)
	}

	id := mustPost(t, c, account1, "QmPost1")
	mustVote(t, c, account1, id, 1)
	clock.Advance(oneDay)
	mustVote(t, c, account1, id, 1)
	clock.Advance(oneDay)

	// The cron path and the explicit path both report settlements
	n, err := c.SettleElapsed()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("got %v settled days, want 2", n)
	}
	clock.Advance(oneDay)
	_, err = c.SettleDay(2)
	if err != nil {
		t.Fatal(err)
	}
	unittest.DeepEqual(t, settled, []uint64{0, 1, 2})

	// Failed settlements are not reported
	_, err = c.SettleDay(2)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(settled) != 3 {
		t.Fatalf("got %v reported settlements, want 3", len(settled))
	}
}

func TestSettleDayTwice(t *testing.T) {
	c, clock := newTestBackend(t)
	id := mustPost(t, c, account1, "QmPost1")
	mustVote(t, c, account2, id, 10)
	clock.Advance(oneDay)

	_, err := c.SettleDay(0)
	if err != nil {
		t.Fatal(err)
	}
	before, err := c.TotalSupply()
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.SettleDay(0)
	if !backend.IsUserError(err, backend.ErrorCodeDayAlreadySettled) {
		t.Fatalf("got err %v, want day already settled", err)
	}
	after, err := c.TotalSupply()
	if err != nil {
		t.Fatal(err)
	}
	if !before.Eq(after) {
		t.Fatalf("supply changed from %v to %v", before, after)
	}
}

func TestSettleElapsed(t *testing.T) {
	c, clock := newTestBackend(t)
	id := mustPost(t, c, account1, "QmPost1")

	// Votes on day 0 and day 2. Day 3 is in progress.
	mustVote(t, c, account2, id, 1)
	clock.Advance(2 * oneDay)
	mustVote(t, c, account2, id, 1)
	clock.Advance(oneDay)
	mustVote(t, c, account2, id, 1)

	n, err := c.SettleElapsed()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("got %v settled days, want 2", n)
	}
	n, err = c.SettleElapsed()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("got %v settled days on the second run, want 0", n)
	}

	// The quiet day in between can still be settled explicitly
	s, err := c.SettleDay(1)
	if err != nil {
		t.Fatal(err)
	}
	if !s.Distributed.IsZero() {
		t.Fatalf("got distributed %v on a quiet day", s.Distributed)
	}

	claimable, err := c.ClaimableAmount(account1)
	if err != nil {
		t.Fatal(err)
	}
	if claimable.Uint64() != 2*settlement.DailyMintAmount {
		t.Fatalf("got claimable %v, want %v", claimable,
			2*settlement.DailyMintAmount)
	}
	mustFsck(t, c)
}

func TestMintUnauthorized(t *testing.T) {
	c, _ := newTestBackend(t)

	// Only the settlement pool may mint, the owner included
	err := c.Mint(owner, owner, uint256.NewInt(1))
	if !backend.IsUserError(err, backend.ErrorCodeUnauthorized) {
		t.Fatalf("got err %v, want unauthorized", err)
	}

	// The authority is write once
	err = c.SetSettlementAuthority(owner, account1)
	if !backend.IsUserError(err, backend.ErrorCodeAlreadySet) {
		t.Fatalf("got err %v, want already set", err)
	}
}

func TestBindSettlement(t *testing.T) {
	kv, err := localdb.NewMemory(nil)
	if err != nil {
		t.Fatal(err)
	}
	c, err := New(kv, clockwork.NewFakeClockAt(genesis), Settings{
		Owner: owner,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	err = c.BindSettlement()
	if err != nil {
		t.Fatal(err)
	}
	authority, ok, err := c.roles.SettlementAuthority(c.store)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || authority != settlement.PoolAddress {
		t.Fatalf("got authority %v %v, want %v", authority, ok,
			settlement.PoolAddress)
	}

	// Binding again after the owner moved on is a no-op
	err = c.TransferOwnership(owner, account2)
	if err != nil {
		t.Fatal(err)
	}
	err = c.BindSettlement()
	if err != nil {
		t.Fatal(err)
	}

	events, err := c.Events(0, v1.EventsPageSize)
	if err != nil {
		t.Fatal(err)
	}
	var n int
	for _, e := range events {
		if e.Type == v1.EventTypeSettlementAuthoritySet {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("got %v authority events, want 1", n)
	}
}

func TestEvents(t *testing.T) {
	c, clock := newTestBackend(t)
	id := mustPost(t, c, account1, "QmPost1")
	mustVote(t, c, account2, id, 3)
	clock.Advance(oneDay)
	_, err := c.SettleDay(0)
	if err != nil {
		t.Fatal(err)
	}

	events, err := c.Events(0, v1.EventsPageSize)
	if err != nil {
		t.Fatal(err)
	}
	counts := make(map[string]int)
	for i, e := range events {
		if e.Seq != uint64(i) {
			t.Fatalf("event %v has seq %v", i, e.Seq)
		}
		counts[e.Type]++
	}
	want := map[string]int{
		v1.EventTypeOwnershipTransferred:   1,
		v1.EventTypeSettlementAuthoritySet: 1,
		v1.EventTypeRoleGranted:            5,
		v1.EventTypePostCreated:            1,
		v1.EventTypeVoted:                  1,
		v1.EventTypeTransfer:               1,
		v1.EventTypeDailySettlement:        1,
	}
	unittest.DeepEqual(t, counts, want)

	// Cursors are tracked per sink
	err = c.SetEventCursor("redis", uint64(len(events)))
	if err != nil {
		t.Fatal(err)
	}
	seq, err := c.EventCursor("redis")
	if err != nil {
		t.Fatal(err)
	}
	if seq != uint64(len(events)) {
		t.Fatalf("got cursor %v, want %v", seq, len(events))
	}
	seq, err = c.EventCursor("websocket")
	if err != nil {
		t.Fatal(err)
	}
	if seq != 0 {
		t.Fatalf("got cursor %v for a new sink", seq)
	}
}

func TestRestart(t *testing.T) {
	dir := t.TempDir()
	clock := clockwork.NewFakeClockAt(genesis)

	kv, err := localdb.New(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	c, err := New(kv, clock, Settings{Owner: owner})
	if err != nil {
		t.Fatal(err)
	}
	err = c.AppointModerator(owner, owner)
	if err != nil {
		t.Fatal(err)
	}
	c.Close()

	_, err = c.HasRole(owner, backend.RoleModerator)
	if !errors.Is(err, backend.ErrShutdown) {
		t.Fatalf("got err %v, want shutdown", err)
	}

	// The genesis record is kept across restarts
	clock.Advance(3 * oneDay)
	kv, err = localdb.New(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	c, err = New(kv, clock, Settings{Owner: account1})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	want := backend.Genesis{
		Owner:     owner,
		Timestamp: genesis.Unix(),
	}
	unittest.DeepEqual(t, c.Genesis(), want)
	if day := c.CurrentDay(); day != 3 {
		t.Fatalf("got current day %v, want 3", day)
	}
	ok, err := c.HasRole(owner, backend.RoleModerator)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("moderator role lost on restart")
	}
	ok, err = c.HasRole(account1, backend.RoleOwner)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatalf("owner replaced on restart")
	}
}

func TestNewWithoutOwner(t *testing.T) {
	kv, err := localdb.NewMemory(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer kv.Close()

	_, err = New(kv, clockwork.NewFakeClockAt(genesis), Settings{})
	if err == nil {
		t.Fatalf("got nil error for a new backend without an owner")
	}
}
