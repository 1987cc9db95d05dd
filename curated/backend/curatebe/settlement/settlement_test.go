// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package settlement

import (
	"testing"
	"time"

	"github.com/decred/curate/curated/backend"
	"github.com/decred/curate/curated/backend/curatebe/ledger"
	"github.com/decred/curate/curated/backend/curatebe/outbox"
	"github.com/decred/curate/curated/backend/curatebe/roles"
	"github.com/decred/curate/curated/backend/curatebe/voting"
	"github.com/decred/curate/curated/store"
	"github.com/decred/curate/curated/store/localdb"
	"github.com/decred/curate/unittest"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
)

var (
	owner  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	author = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	voter  = common.HexToAddress("0x00000000000000000000000000000000000000d4")

	genesis = time.Unix(1700000000, 0)
	day     = time.Duration(voting.DaySeconds) * time.Second
)

func run(kv store.BlobKV, fn func(store.Tx) error) error {
	tx, cancel, err := kv.Tx()
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

type testSettlement struct {
	*Settlement
	kv     store.BlobKV
	clock  clockwork.FakeClock
	ledger *ledger.Ledger
	voting *voting.Voting
}

// newTestSettlement returns a fully wired settlement whose pool account is
// the minting authority when bind is set. The owner, the author and the voter
// are curators.
func newTestSettlement(t *testing.T, bind bool) *testSettlement {
	t.Helper()

	kv, err := localdb.NewMemory(nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(kv.Close)

	clock := clockwork.NewFakeClockAt(genesis)
	o := outbox.New(clock)
	r := roles.New(clock, o)
	l := ledger.New(r, o)
	v := voting.New(clock, genesis.Unix(), r, o)
	err = run(kv, func(tx store.Tx) error {
		err := r.Init(tx, owner)
		if err != nil {
			return err
		}
		err = r.AppointModerator(tx, owner, owner)
		if err != nil {
			return err
		}
		err = r.AppointCurator(tx, owner, owner)
		if err != nil {
			return err
		}
		err = r.AppointCurator(tx, owner, author)
		if err != nil {
			return err
		}
		err = r.AppointCurator(tx, owner, voter)
		if err != nil {
			return err
		}
		if !bind {
			return nil
		}
		return r.SetSettlementAuthority(tx, owner, PoolAddress)
	})
	if err != nil {
		t.Fatal(err)
	}

	return &testSettlement{
		Settlement: New(clock, uint256.NewInt(DailyMintAmount), l, v, o),
		kv:         kv,
		clock:      clock,
		ledger:     l,
		voting:     v,
	}
}

func (s *testSettlement) post(t *testing.T, a common.Address) uint64 {
	t.Helper()

	var id uint64
	err := run(s.kv, func(tx store.Tx) error {
		p, err := s.voting.CreatePost(tx, a, "QmHash", "")
		if err != nil {
			return err
		}
		id = p.ID
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func (s *testSettlement) vote(t *testing.T, postID, amount uint64) {
	t.Helper()

	err := run(s.kv, func(tx store.Tx) error {
		_, err := s.voting.Vote(tx, voter, postID, amount)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
}

func (s *testSettlement) settle(d uint64) (*backend.Settlement, error) {
	var sd *backend.Settlement
	err := run(s.kv, func(tx store.Tx) error {
		var err error
		sd, err = s.SettleDay(tx, d)
		return err
	})
	return sd, err
}

func (s *testSettlement) claim(a common.Address) (*uint256.Int, error) {
	var amount *uint256.Int
	err := run(s.kv, func(tx store.Tx) error {
		var err error
		amount, err = s.Claim(tx, a)
		return err
	})
	return amount, err
}

func (s *testSettlement) checkInvariants(t *testing.T) {
	t.Helper()

	supply, err := s.ledger.TotalSupply(s.kv)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := s.ledger.SumBalances(s.kv)
	if err != nil {
		t.Fatal(err)
	}
	if !supply.Eq(sum) {
		t.Fatalf("supply %v != sum of balances %v", supply, sum)
	}
	pool, err := s.ledger.BalanceOf(s.kv, PoolAddress)
	if err != nil {
		t.Fatal(err)
	}
	claimable, err := s.SumClaimable(s.kv)
	if err != nil {
		t.Fatal(err)
	}
	if !pool.Eq(claimable) {
		t.Fatalf("pool balance %v != sum of claimable %v", pool, claimable)
	}
}

func TestApportion(t *testing.T) {
	var tests = []struct {
		name    string
		pool    uint64
		weights map[uint64]uint64
		total   uint64
		want    map[uint64]uint64
	}{
		{
			"no votes",
			100000,
			map[uint64]uint64{},
			0,
			map[uint64]uint64{},
		},
		{
			"single post takes the pool",
			100000,
			map[uint64]uint64{7: 3},
			3,
			map[uint64]uint64{7: 100000},
		},
		{
			"floored shares",
			100000,
			map[uint64]uint64{2: 500000, 3: 49999, 4: 9},
			550008,
			map[uint64]uint64{2: 90907, 3: 9090, 4: 1},
		},
		{
			"share rounds to zero",
			10,
			map[uint64]uint64{1: 1, 2: 1000},
			1001,
			map[uint64]uint64{1: 0, 2: 9},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			shares, err := Apportion(uint256.NewInt(tc.pool),
				tc.weights, tc.total)
			if err != nil {
				t.Fatal(err)
			}
			got := make(map[uint64]uint64, len(shares))
			for id, s := range shares {
				got[id] = s.Uint64()
			}
			unittest.DeepEqual(t, got, tc.want)
		})
	}
}

func TestSettleDay(t *testing.T) {
	s := newTestSettlement(t, true)
	p1 := s.post(t, author)
	p2 := s.post(t, owner)
	s.vote(t, p1, 3)
	s.vote(t, p2, 1)

	// Day 0 has not ended
	_, err := s.settle(0)
	if !backend.IsUserError(err, backend.ErrorCodeDayNotYetElapsed) {
		t.Fatalf("got err %v, want day not yet elapsed", err)
	}

	s.clock.Advance(day)
	sd, err := s.settle(0)
	if err != nil {
		t.Fatal(err)
	}
	if sd.Distributed.Uint64() != 100000 {
		t.Errorf("got distributed %v, want 100000", sd.Distributed)
	}
	if sd.Dust().Uint64() != 0 {
		t.Errorf("got dust %v, want 0", sd.Dust())
	}
	if len(sd.Credits) != 2 ||
		sd.Credits[0].PostID != p1 || sd.Credits[0].Amount.Uint64() != 75000 ||
		sd.Credits[1].PostID != p2 || sd.Credits[1].Amount.Uint64() != 25000 {
		t.Errorf("unexpected credits: %+v", sd.Credits)
	}

	// A day can only be settled once
	_, err = s.settle(0)
	if !backend.IsUserError(err, backend.ErrorCodeDayAlreadySettled) {
		t.Fatalf("got err %v, want day already settled", err)
	}

	// Day 1 is current
	_, err = s.settle(1)
	if !backend.IsUserError(err, backend.ErrorCodeDayNotYetElapsed) {
		t.Fatalf("got err %v, want day not yet elapsed", err)
	}

	c, err := s.ClaimableAmount(s.kv, author)
	if err != nil {
		t.Fatal(err)
	}
	if c.Uint64() != 75000 {
		t.Errorf("got claimable %v, want 75000", c)
	}
	s.checkInvariants(t)
}

func TestSettleDayWithoutVotes(t *testing.T) {
	// Settling a quiet day mints nothing and therefore does not need the
	// minting authority.
	s := newTestSettlement(t, false)
	s.post(t, author)

	s.clock.Advance(3 * day)
	for _, d := range []uint64{0, 1} {
		sd, err := s.settle(d)
		if err != nil {
			t.Fatal(err)
		}
		if !sd.Distributed.IsZero() {
			t.Errorf("day %v: got distributed %v, want 0", d, sd.Distributed)
		}
		if sd.Dust().Uint64() != DailyMintAmount {
			t.Errorf("day %v: got dust %v", d, sd.Dust())
		}
	}
	supply, err := s.ledger.TotalSupply(s.kv)
	if err != nil {
		t.Fatal(err)
	}
	if !supply.IsZero() {
		t.Fatalf("got supply %v, want 0", supply)
	}
}

func TestSettleDayUnwired(t *testing.T) {
	s := newTestSettlement(t, false)
	p := s.post(t, author)
	s.vote(t, p, 1)
	s.clock.Advance(day)

	// Minting fails so the whole settlement is rejected
	_, err := s.settle(0)
	if !backend.IsUserError(err, backend.ErrorCodeUnauthorized) {
		t.Fatalf("got err %v, want unauthorized", err)
	}
	sd, err := s.Settlement.Settlement(s.kv, 0)
	if err != nil {
		t.Fatal(err)
	}
	if sd.Settled {
		t.Fatalf("day settled after a failed settlement")
	}
	c, err := s.ClaimableAmount(s.kv, author)
	if err != nil {
		t.Fatal(err)
	}
	if !c.IsZero() {
		t.Fatalf("got claimable %v after a failed settlement", c)
	}
}

func TestClaim(t *testing.T) {
	s := newTestSettlement(t, true)
	p := s.post(t, author)

	_, err := s.claim(author)
	if !backend.IsUserError(err, backend.ErrorCodeNothingToClaim) {
		t.Fatalf("got err %v, want nothing to claim", err)
	}

	// Accumulate two days of rewards
	s.vote(t, p, 1)
	s.clock.Advance(day)
	s.vote(t, p, 1)
	s.clock.Advance(day)
	unsettled, err := s.UnsettledDays(s.kv)
	if err != nil {
		t.Fatal(err)
	}
	unittest.DeepEqual(t, unsettled, []uint64{0, 1})
	for _, d := range unsettled {
		_, err := s.settle(d)
		if err != nil {
			t.Fatal(err)
		}
	}
	unsettled, err = s.UnsettledDays(s.kv)
	if err != nil {
		t.Fatal(err)
	}
	unittest.DeepEqual(t, unsettled, []uint64{})
	s.checkInvariants(t)

	amount, err := s.claim(author)
	if err != nil {
		t.Fatal(err)
	}
	if amount.Uint64() != 2*DailyMintAmount {
		t.Fatalf("got claimed %v, want %v", amount, 2*DailyMintAmount)
	}
	balance, err := s.ledger.BalanceOf(s.kv, author)
	if err != nil {
		t.Fatal(err)
	}
	if !balance.Eq(amount) {
		t.Fatalf("got balance %v, want %v", balance, amount)
	}
	s.checkInvariants(t)

	// The second claim finds nothing
	_, err = s.claim(author)
	if !backend.IsUserError(err, backend.ErrorCodeNothingToClaim) {
		t.Fatalf("got err %v, want nothing to claim", err)
	}
	rs, err := s.RewardState(s.kv, author)
	if err != nil {
		t.Fatal(err)
	}
	if !rs.Claimable.IsZero() || rs.TotalClaimed.Uint64() != 2*DailyMintAmount {
		t.Fatalf("unexpected reward state %v %v", rs.Claimable, rs.TotalClaimed)
	}
}
