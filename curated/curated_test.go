// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	v1 "github.com/decred/curate/curated/api/v1"
	"github.com/decred/curate/curated/backend"
	"github.com/decred/curate/curated/backend/curatebe"
	"github.com/decred/curate/curated/metrics"
	"github.com/decred/curate/curated/store/localdb"
	"github.com/decred/curate/unittest"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-test/deep"
	"github.com/jonboulle/clockwork"
)

const (
	testUser = "user"
	testPass = "pass"

	owner   = "0x00000000000000000000000000000000000000a1"
	author  = "0x00000000000000000000000000000000000000b1"
	voter   = "0x00000000000000000000000000000000000000b2"
	nobody  = "0x00000000000000000000000000000000000000e5"
	badAddr = "0xnothex"
)

var (
	genesis = time.Unix(1700000000, 0)
	oneDay  = 24 * time.Hour
)

type testCurated struct {
	*curated
	clock clockwork.FakeClock

	// settler runs the same job as the settlement cron.
	settler interface {
		SettleElapsed() (int, error)
	}
}

func newTestCurated(t *testing.T) *testCurated {
	t.Helper()

	kv, err := localdb.NewMemory(nil)
	if err != nil {
		t.Fatal(err)
	}
	clock := clockwork.NewFakeClockAt(genesis)
	reg := metrics.NewRegistry()
	m := metrics.New(reg)
	b, err := curatebe.New(kv, clock, curatebe.Settings{
		Owner:   backendAddress(owner),
		Settled: m.SettledDay,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(b.Close)
	err = b.BindSettlement()
	if err != nil {
		t.Fatal(err)
	}

	cfg := &config{
		RPCUser:     testUser,
		RPCPass:     testPass,
		WSReadLimit: defaultWSReadLimit,
	}
	return &testCurated{
		curated: newCurated(cfg, b, reg, m),
		clock:   clock,
		settler: b,
	}
}

func backendAddress(s string) common.Address {
	a, err := parseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// do sends a request to the router and decodes the reply into reply. The
// status code is returned.
func (c *testCurated) do(t *testing.T, method, route string, auth bool, req, reply interface{}) int {
	t.Helper()

	var body []byte
	if req != nil {
		var err error
		body, err = json.Marshal(req)
		if err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, v1.APIRoute+route,
		bytes.NewReader(body))
	if auth {
		r.SetBasicAuth(testUser, testPass)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, r)

	if reply != nil {
		err := json.Unmarshal(w.Body.Bytes(), reply)
		if err != nil {
			t.Fatalf("%v: unmarshal %q: %v", route, w.Body.String(), err)
		}
	}
	return w.Code
}

// mustDo fails the test when the request is not successful.
func (c *testCurated) mustDo(t *testing.T, route string, req, reply interface{}) {
	t.Helper()

	code := c.do(t, http.MethodPost, route, true, req, reply)
	if code != http.StatusOK {
		t.Fatalf("%v: got status %v", route, code)
	}
}

func TestAuth(t *testing.T) {
	c := newTestCurated(t)

	req := v1.AppointModerator{
		Caller:  owner,
		Account: owner,
	}
	var uer v1.UserErrorReply
	code := c.do(t, http.MethodPost, v1.RouteAppointModerator, false,
		req, &uer)
	if code != http.StatusUnauthorized {
		t.Fatalf("got status %v, want %v", code, http.StatusUnauthorized)
	}
	if uer.ErrorCode != v1.ErrorCodeUnauthorized {
		t.Fatalf("got error %v, want unauthorized", uer.ErrorCode)
	}

	// Reads do not require credentials
	var hr v1.HasRoleReply
	code = c.do(t, http.MethodPost, v1.RouteHasRole, false,
		v1.HasRole{Account: owner, Role: v1.RoleOwner}, &hr)
	if code != http.StatusOK || !hr.HasRole {
		t.Fatalf("got status %v reply %+v", code, hr)
	}
}

func TestHandlersFlow(t *testing.T) {
	c := newTestCurated(t)

	c.mustDo(t, v1.RouteAppointModerator,
		v1.AppointModerator{Caller: owner, Account: owner}, nil)
	for _, a := range []string{author, voter} {
		c.mustDo(t, v1.RouteAppointCurator,
			v1.AppointCurator{Caller: owner, Account: a}, nil)
	}

	var npr v1.NewPostReply
	c.mustDo(t, v1.RouteNewPost, v1.NewPost{
		Caller:      author,
		ContentHash: "QmHash",
		Tags:        "go",
	}, &npr)
	wantPost := v1.Post{
		ID:          1,
		Author:      backendAddress(author).Hex(),
		ContentHash: "QmHash",
		Tags:        "go",
		Timestamp:   genesis.Unix(),
	}
	if diff := deep.Equal(npr.Post, wantPost); diff != nil {
		t.Fatal(diff)
	}

	var vr v1.VoteReply
	c.mustDo(t, v1.RouteVote, v1.Vote{
		Caller: voter,
		PostID: 1,
		Amount: 42,
	}, &vr)
	unittest.DeepEqual(t, vr, v1.VoteReply{Day: 0, Score: 42})

	// The current day can not be settled
	var uer v1.UserErrorReply
	code := c.do(t, http.MethodPost, v1.RouteSettleDay, true,
		v1.SettleDay{Day: 0}, &uer)
	if code != http.StatusBadRequest ||
		uer.ErrorCode != v1.ErrorCodeDayNotYetElapsed {
		t.Fatalf("got status %v error %v", code, uer.ErrorCode)
	}

	c.clock.Advance(oneDay)

	var cdr v1.CurrentDayReply
	c.mustDo(t, v1.RouteCurrentDay, v1.CurrentDay{}, &cdr)
	if cdr.Day != 1 || cdr.Genesis != genesis.Unix() {
		t.Fatalf("unexpected current day %+v", cdr)
	}

	var ur v1.UnsettledReply
	c.mustDo(t, v1.RouteUnsettled, v1.Unsettled{}, &ur)
	unittest.DeepEqual(t, ur.Days, []uint64{0})

	var sdr v1.SettleDayReply
	c.mustDo(t, v1.RouteSettleDay, v1.SettleDay{Day: 0}, &sdr)
	wantSettlement := v1.Settlement{
		Day:             0,
		Settled:         true,
		Pool:            "100000",
		TotalVoteWeight: 42,
		Distributed:     "100000",
		Dust:            "0",
		Credits: []v1.Credit{{
			PostID: 1,
			Author: backendAddress(author).Hex(),
			Amount: "100000",
		}},
		Timestamp: sdr.Settlement.Timestamp,
	}
	unittest.DeepEqual(t, sdr.Settlement, wantSettlement)

	var drr v1.DayRecordReply
	c.mustDo(t, v1.RouteDayRecord, v1.DayRecordRequest{Day: 0}, &drr)
	wantRecord := v1.DayRecord{
		Day:             0,
		TotalVoteWeight: 42,
		Posts:           []v1.PostWeight{{PostID: 1, Weight: 42}},
		Voters: []v1.VoterWeight{{
			Account: backendAddress(voter).Hex(),
			Weight:  42,
		}},
		PostsCreated: []uint64{1},
	}
	unittest.DeepEqual(t, drr.Record, wantRecord)

	var clr v1.ClaimableReply
	c.mustDo(t, v1.RouteClaimable, v1.Claimable{Account: author}, &clr)
	unittest.DeepEqual(t, clr, v1.ClaimableReply{
		Claimable:    "100000",
		TotalClaimed: "0",
	})

	var cr v1.ClaimReply
	c.mustDo(t, v1.RouteClaim, v1.Claim{Caller: author}, &cr)
	if cr.Amount != "100000" {
		t.Fatalf("got claim %v, want 100000", cr.Amount)
	}

	var br v1.BalanceReply
	c.mustDo(t, v1.RouteBalance, v1.Balance{Account: author}, &br)
	if br.Balance != "100000" {
		t.Fatalf("got balance %v, want 100000", br.Balance)
	}
	var sr v1.SupplyReply
	c.mustDo(t, v1.RouteSupply, v1.Supply{}, &sr)
	if sr.TotalSupply != "100000" {
		t.Fatalf("got supply %v, want 100000", sr.TotalSupply)
	}

	var vdr v1.VoteDaysReply
	c.mustDo(t, v1.RouteVoteDays, v1.VoteDays{Account: voter}, &vdr)
	unittest.DeepEqual(t, vdr.Days, []uint64{0})

	// Replay the events
	var er v1.EventsReply
	code = c.do(t, http.MethodGet, v1.RouteEvents+"?from=0&limit=500",
		false, nil, &er)
	if code != http.StatusOK {
		t.Fatalf("got status %v", code)
	}
	if len(er.Events) == 0 {
		t.Fatalf("no events")
	}
	for i, e := range er.Events {
		if e.Seq != uint64(i) {
			t.Fatalf("event %v has seq %v", i, e.Seq)
		}
	}
	last := er.Events[len(er.Events)-1]
	if last.Type != v1.EventTypeRewardsClaimed {
		t.Fatalf("got last event %v, want %v", last.Type,
			v1.EventTypeRewardsClaimed)
	}

	// Metrics
	body := c.metricsBody(t)
	for _, want := range []string{
		"curated_posts_created_total 1",
		"curated_days_settled_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("%q missing:\n%v", want, body)
		}
	}
}

// metricsBody returns the text exposition of the daemon metrics.
func (c *testCurated) metricsBody(t *testing.T) string {
	t.Helper()

	r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %v", w.Code)
	}
	return w.Body.String()
}

func TestSettledMetrics(t *testing.T) {
	c := newTestCurated(t)

	o, a, v := backendAddress(owner), backendAddress(author),
		backendAddress(voter)
	err := c.backend.AppointModerator(o, o)
	if err != nil {
		t.Fatal(err)
	}
	for _, account := range []common.Address{a, v} {
		err = c.backend.AppointCurator(o, account)
		if err != nil {
			t.Fatal(err)
		}
	}
	p, err := c.backend.CreatePost(a, "QmHash", "")
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.backend.Vote(v, p.ID, 7)
	if err != nil {
		t.Fatal(err)
	}
	c.clock.Advance(oneDay)

	// Settlements made by the cron job are counted as well
	n, err := c.settler.SettleElapsed()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("got %v settled days, want 1", n)
	}

	body := c.metricsBody(t)
	for _, want := range []string{
		"curated_days_settled_total 1",
		"curated_tokens_distributed_total 100000",
		"curated_tokens_dust_total 0",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("%q missing:\n%v", want, body)
		}
	}
}

func TestLogWriterWithoutRotator(t *testing.T) {
	if logRotator != nil {
		t.Skip("log rotator initialized")
	}
	p := []byte("CURD: test\n")
	n, err := logWriter{}.Write(p)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(p) {
		t.Fatalf("got %v bytes written, want %v", n, len(p))
	}
}

func TestUserErrors(t *testing.T) {
	c := newTestCurated(t)

	tests := []struct {
		name  string
		route string
		req   interface{}
		want  v1.ErrorCodeT
	}{
		{
			"invalid address",
			v1.RouteBalance,
			v1.Balance{Account: badAddr},
			v1.ErrorCodeAddressInvalid,
		},
		{
			"invalid payload",
			v1.RouteBalance,
			"not an object",
			v1.ErrorCodeInputInvalid,
		},
		{
			"invalid amount",
			v1.RouteTransfer,
			v1.Transfer{Caller: owner, To: voter, Amount: "1.5"},
			v1.ErrorCodeInvalidAmount,
		},
		{
			"insufficient balance",
			v1.RouteTransfer,
			v1.Transfer{Caller: owner, To: voter, Amount: "1"},
			v1.ErrorCodeInsufficientBalance,
		},
		{
			"post not found",
			v1.RoutePostScore,
			v1.PostScore{PostID: 9},
			v1.ErrorCodePostNotFound,
		},
		{
			"invalid role",
			v1.RouteHasRole,
			v1.HasRole{Account: owner, Role: "admin"},
			v1.ErrorCodeRoleInvalid,
		},
		{
			"not a curator",
			v1.RouteNewPost,
			v1.NewPost{Caller: nobody, ContentHash: "QmHash"},
			v1.ErrorCodeUnauthorized,
		},
		{
			"not the authority",
			v1.RouteMint,
			v1.Mint{Caller: owner, Account: owner, Amount: "1"},
			v1.ErrorCodeUnauthorized,
		},
		{
			"authority already set",
			v1.RouteSetSettlementAuthority,
			v1.SetSettlementAuthority{Caller: owner, Authority: voter},
			v1.ErrorCodeAlreadySet,
		},
		{
			"nothing to claim",
			v1.RouteClaim,
			v1.Claim{Caller: voter},
			v1.ErrorCodeNothingToClaim,
		},
	}
	for _, v := range tests {
		t.Run(v.name, func(t *testing.T) {
			var uer v1.UserErrorReply
			code := c.do(t, http.MethodPost, v.route, true, v.req, &uer)
			if code != http.StatusBadRequest {
				t.Fatalf("got status %v, want %v", code,
					http.StatusBadRequest)
			}
			if uer.ErrorCode != v.want {
				t.Fatalf("got error %v, want %v", uer.ErrorCode, v.want)
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	c := newTestCurated(t)

	code := c.do(t, http.MethodPost, "/nope", true, nil, nil)
	if code != http.StatusNotFound {
		t.Fatalf("got status %v, want %v", code, http.StatusNotFound)
	}
}

func TestVersion(t *testing.T) {
	c := newTestCurated(t)

	var vr v1.VersionReply
	code := c.do(t, http.MethodGet, v1.RouteVersion, false, nil, &vr)
	if code != http.StatusOK {
		t.Fatalf("got status %v", code)
	}
	if vr.Version != 1 || vr.Route != v1.APIRoute || vr.BuildVersion == "" {
		t.Fatalf("unexpected version reply %+v", vr)
	}
}

func TestConvertErrorCodeToV1(t *testing.T) {
	for code := backend.ErrorCodeUnauthorized; code < backend.ErrorCodeLast; code++ {
		got := convertErrorCodeToV1(code)
		if got == v1.ErrorCodeInvalid {
			t.Errorf("backend error %v has no v1 error", code)
			continue
		}
		if v1.ErrorCodes[got] != backend.ErrorCodes[code] {
			t.Errorf("backend error %q maps to %q",
				backend.ErrorCodes[code], v1.ErrorCodes[got])
		}
	}
}

func TestErrorCodes(t *testing.T) {
	err := unittest.TestGenericConstMap(v1.ErrorCodes,
		uint64(v1.ErrorCodeLast))
	if err != nil {
		t.Fatal(err)
	}
}
