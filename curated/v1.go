// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"sort"
	"time"

	"github.com/davecgh/go-spew/spew"
	v1 "github.com/decred/curate/curated/api/v1"
	"github.com/decred/curate/curated/backend"
	"github.com/decred/curate/curated/relay"
	"github.com/decred/curate/util"
	"github.com/decred/curate/util/version"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func (c *curated) handleVersion(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleVersion")

	util.RespondWithJSON(w, http.StatusOK, v1.VersionReply{
		Version:      1,
		Route:        v1.APIRoute,
		BuildVersion: version.String(),
	})
}

func (c *curated) handleAppointModerator(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleAppointModerator")

	var am v1.AppointModerator
	if !decodeRequest(w, r, "handleAppointModerator", &am) {
		return
	}
	caller, account, err := parseAddressPair(am.Caller, am.Account)
	if err != nil {
		respondWithError(w, r, "handleAppointModerator: %v", err)
		return
	}

	err = c.backend.AppointModerator(caller, account)
	if err != nil {
		respondWithError(w, r,
			"handleAppointModerator: AppointModerator: %v", err)
		return
	}

	log.Infof("%v Moderator appointed %v", util.RemoteAddr(r), account)

	util.RespondWithJSON(w, http.StatusOK, v1.AppointModeratorReply{})
}

func (c *curated) handleAppointCurator(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleAppointCurator")

	var ac v1.AppointCurator
	if !decodeRequest(w, r, "handleAppointCurator", &ac) {
		return
	}
	caller, account, err := parseAddressPair(ac.Caller, ac.Account)
	if err != nil {
		respondWithError(w, r, "handleAppointCurator: %v", err)
		return
	}

	err = c.backend.AppointCurator(caller, account)
	if err != nil {
		respondWithError(w, r,
			"handleAppointCurator: AppointCurator: %v", err)
		return
	}

	log.Infof("%v Curator appointed %v", util.RemoteAddr(r), account)

	util.RespondWithJSON(w, http.StatusOK, v1.AppointCuratorReply{})
}

func (c *curated) handleRevokeRole(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleRevokeRole")

	var rr v1.RevokeRole
	if !decodeRequest(w, r, "handleRevokeRole", &rr) {
		return
	}
	caller, account, err := parseAddressPair(rr.Caller, rr.Account)
	if err != nil {
		respondWithError(w, r, "handleRevokeRole: %v", err)
		return
	}

	err = c.backend.RevokeRole(caller, account,
		backend.RoleFromString(rr.Role))
	if err != nil {
		respondWithError(w, r, "handleRevokeRole: RevokeRole: %v", err)
		return
	}

	log.Infof("%v Role %v revoked from %v",
		util.RemoteAddr(r), rr.Role, account)

	util.RespondWithJSON(w, http.StatusOK, v1.RevokeRoleReply{})
}

func (c *curated) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleTransferOwnership")

	var to v1.TransferOwnership
	if !decodeRequest(w, r, "handleTransferOwnership", &to) {
		return
	}
	caller, newOwner, err := parseAddressPair(to.Caller, to.NewOwner)
	if err != nil {
		respondWithError(w, r, "handleTransferOwnership: %v", err)
		return
	}

	err = c.backend.TransferOwnership(caller, newOwner)
	if err != nil {
		respondWithError(w, r,
			"handleTransferOwnership: TransferOwnership: %v", err)
		return
	}

	log.Infof("%v Ownership transferred to %v", util.RemoteAddr(r), newOwner)

	util.RespondWithJSON(w, http.StatusOK, v1.TransferOwnershipReply{})
}

func (c *curated) handleSetSettlementAuthority(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleSetSettlementAuthority")

	var ssa v1.SetSettlementAuthority
	if !decodeRequest(w, r, "handleSetSettlementAuthority", &ssa) {
		return
	}
	caller, authority, err := parseAddressPair(ssa.Caller, ssa.Authority)
	if err != nil {
		respondWithError(w, r, "handleSetSettlementAuthority: %v", err)
		return
	}

	err = c.backend.SetSettlementAuthority(caller, authority)
	if err != nil {
		respondWithError(w, r,
			"handleSetSettlementAuthority: SetSettlementAuthority: %v", err)
		return
	}

	log.Infof("%v Settlement authority set %v", util.RemoteAddr(r), authority)

	util.RespondWithJSON(w, http.StatusOK, v1.SetSettlementAuthorityReply{})
}

func (c *curated) handleHasRole(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleHasRole")

	var hr v1.HasRole
	if !decodeRequest(w, r, "handleHasRole", &hr) {
		return
	}
	account, err := parseAddress(hr.Account)
	if err != nil {
		respondWithError(w, r, "handleHasRole: %v", err)
		return
	}
	role := backend.RoleFromString(hr.Role)
	if role == backend.RoleInvalid {
		respondWithError(w, r, "handleHasRole: %v",
			v1.UserErrorReply{
				ErrorCode:    v1.ErrorCodeRoleInvalid,
				ErrorContext: hr.Role,
			})
		return
	}

	ok, err := c.backend.HasRole(account, role)
	if err != nil {
		respondWithError(w, r, "handleHasRole: HasRole: %v", err)
		return
	}

	util.RespondWithJSON(w, http.StatusOK, v1.HasRoleReply{
		HasRole: ok,
	})
}

func (c *curated) handleMint(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleMint")

	var m v1.Mint
	if !decodeRequest(w, r, "handleMint", &m) {
		return
	}
	caller, account, err := parseAddressPair(m.Caller, m.Account)
	if err != nil {
		respondWithError(w, r, "handleMint: %v", err)
		return
	}
	amount, err := parseAmount(m.Amount)
	if err != nil {
		respondWithError(w, r, "handleMint: %v", err)
		return
	}

	err = c.backend.Mint(caller, account, amount)
	if err != nil {
		respondWithError(w, r, "handleMint: Mint: %v", err)
		return
	}

	log.Infof("%v Minted %v to %v", util.RemoteAddr(r), amount, account)

	util.RespondWithJSON(w, http.StatusOK, v1.MintReply{})
}

func (c *curated) handleTransfer(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleTransfer")

	var t v1.Transfer
	if !decodeRequest(w, r, "handleTransfer", &t) {
		return
	}
	caller, to, err := parseAddressPair(t.Caller, t.To)
	if err != nil {
		respondWithError(w, r, "handleTransfer: %v", err)
		return
	}
	amount, err := parseAmount(t.Amount)
	if err != nil {
		respondWithError(w, r, "handleTransfer: %v", err)
		return
	}

	err = c.backend.Transfer(caller, to, amount)
	if err != nil {
		respondWithError(w, r, "handleTransfer: Transfer: %v", err)
		return
	}

	util.RespondWithJSON(w, http.StatusOK, v1.TransferReply{})
}

func (c *curated) handleBalance(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleBalance")

	var b v1.Balance
	if !decodeRequest(w, r, "handleBalance", &b) {
		return
	}
	account, err := parseAddress(b.Account)
	if err != nil {
		respondWithError(w, r, "handleBalance: %v", err)
		return
	}

	balance, err := c.backend.BalanceOf(account)
	if err != nil {
		respondWithError(w, r, "handleBalance: BalanceOf: %v", err)
		return
	}

	util.RespondWithJSON(w, http.StatusOK, v1.BalanceReply{
		Balance: balance.Dec(),
	})
}

func (c *curated) handleSupply(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleSupply")

	supply, err := c.backend.TotalSupply()
	if err != nil {
		respondWithError(w, r, "handleSupply: TotalSupply: %v", err)
		return
	}

	util.RespondWithJSON(w, http.StatusOK, v1.SupplyReply{
		TotalSupply: supply.Dec(),
	})
}

func (c *curated) handleNewPost(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleNewPost")

	var np v1.NewPost
	if !decodeRequest(w, r, "handleNewPost", &np) {
		return
	}
	caller, err := parseAddress(np.Caller)
	if err != nil {
		respondWithError(w, r, "handleNewPost: %v", err)
		return
	}

	p, err := c.backend.CreatePost(caller, np.ContentHash, np.Tags)
	if err != nil {
		respondWithError(w, r, "handleNewPost: CreatePost: %v", err)
		return
	}
	c.metrics.PostCreated()

	log.Infof("%v Post created %v by %v", util.RemoteAddr(r), p.ID, caller)

	util.RespondWithJSON(w, http.StatusOK, v1.NewPostReply{
		Post: convertPostToV1(*p),
	})
}

func (c *curated) handleVote(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleVote")

	var v v1.Vote
	if !decodeRequest(w, r, "handleVote", &v) {
		return
	}
	caller, err := parseAddress(v.Caller)
	if err != nil {
		respondWithError(w, r, "handleVote: %v", err)
		return
	}

	day, err := c.backend.Vote(caller, v.PostID, v.Amount)
	if err != nil {
		respondWithError(w, r, "handleVote: Vote: %v", err)
		return
	}
	c.metrics.Voted(v.Amount)

	// The score is read after the vote was committed so a concurrent
	// vote may already be included.
	score, err := c.backend.PostScore(v.PostID)
	if err != nil {
		respondWithError(w, r, "handleVote: PostScore: %v", err)
		return
	}

	log.Infof("%v Vote %v on post %v day %v",
		util.RemoteAddr(r), v.Amount, v.PostID, day)

	util.RespondWithJSON(w, http.StatusOK, v1.VoteReply{
		Day:   day,
		Score: score,
	})
}

func (c *curated) handlePostDetails(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handlePostDetails")

	var pd v1.PostDetails
	if !decodeRequest(w, r, "handlePostDetails", &pd) {
		return
	}

	p, err := c.backend.Post(pd.PostID)
	if err != nil {
		respondWithError(w, r, "handlePostDetails: Post: %v", err)
		return
	}

	util.RespondWithJSON(w, http.StatusOK, v1.PostDetailsReply{
		Post: convertPostToV1(*p),
	})
}

func (c *curated) handlePostScore(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handlePostScore")

	var ps v1.PostScore
	if !decodeRequest(w, r, "handlePostScore", &ps) {
		return
	}

	score, err := c.backend.PostScore(ps.PostID)
	if err != nil {
		respondWithError(w, r, "handlePostScore: PostScore: %v", err)
		return
	}

	util.RespondWithJSON(w, http.StatusOK, v1.PostScoreReply{
		Score: score,
	})
}

func (c *curated) handleVoteDays(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleVoteDays")

	var vd v1.VoteDays
	if !decodeRequest(w, r, "handleVoteDays", &vd) {
		return
	}
	account, err := parseAddress(vd.Account)
	if err != nil {
		respondWithError(w, r, "handleVoteDays: %v", err)
		return
	}

	days, err := c.backend.UserVoteDays(account)
	if err != nil {
		respondWithError(w, r, "handleVoteDays: UserVoteDays: %v", err)
		return
	}

	util.RespondWithJSON(w, http.StatusOK, v1.VoteDaysReply{
		Days: days,
	})
}

func (c *curated) handleCurrentDay(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleCurrentDay")

	day := c.backend.CurrentDay()
	c.metrics.SetCurrentDay(day)

	util.RespondWithJSON(w, http.StatusOK, v1.CurrentDayReply{
		Day:       day,
		Genesis:   c.backend.Genesis().Timestamp,
		Timestamp: time.Now().Unix(),
	})
}

func (c *curated) handleDayRecord(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleDayRecord")

	var dr v1.DayRecordRequest
	if !decodeRequest(w, r, "handleDayRecord", &dr) {
		return
	}

	rec, err := c.backend.DayRecord(dr.Day)
	if err != nil {
		respondWithError(w, r, "handleDayRecord: DayRecord: %v", err)
		return
	}

	util.RespondWithJSON(w, http.StatusOK, v1.DayRecordReply{
		Record: convertDayRecordToV1(*rec),
	})
}

func (c *curated) handleSettleDay(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleSettleDay")

	var sd v1.SettleDay
	if !decodeRequest(w, r, "handleSettleDay", &sd) {
		return
	}

	s, err := c.backend.SettleDay(sd.Day)
	if err != nil {
		respondWithError(w, r, "handleSettleDay: SettleDay: %v", err)
		return
	}
	log.Infof("%v Day %v settled: %v distributed",
		util.RemoteAddr(r), s.Day, s.Distributed)

	util.RespondWithJSON(w, http.StatusOK, v1.SettleDayReply{
		Settlement: convertSettlementToV1(*s),
	})
}

func (c *curated) handleSettlementDetails(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleSettlementDetails")

	var sd v1.SettlementDetails
	if !decodeRequest(w, r, "handleSettlementDetails", &sd) {
		return
	}

	s, err := c.backend.Settlement(sd.Day)
	if err != nil {
		respondWithError(w, r,
			"handleSettlementDetails: Settlement: %v", err)
		return
	}

	util.RespondWithJSON(w, http.StatusOK, v1.SettlementDetailsReply{
		Settlement: convertSettlementToV1(*s),
	})
}

func (c *curated) handleClaimable(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleClaimable")

	var cl v1.Claimable
	if !decodeRequest(w, r, "handleClaimable", &cl) {
		return
	}
	account, err := parseAddress(cl.Account)
	if err != nil {
		respondWithError(w, r, "handleClaimable: %v", err)
		return
	}

	rs, err := c.backend.RewardState(account)
	if err != nil {
		respondWithError(w, r, "handleClaimable: RewardState: %v", err)
		return
	}

	util.RespondWithJSON(w, http.StatusOK, v1.ClaimableReply{
		Claimable:    rs.Claimable.Dec(),
		TotalClaimed: rs.TotalClaimed.Dec(),
	})
}

func (c *curated) handleClaim(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleClaim")

	var cl v1.Claim
	if !decodeRequest(w, r, "handleClaim", &cl) {
		return
	}
	caller, err := parseAddress(cl.Caller)
	if err != nil {
		respondWithError(w, r, "handleClaim: %v", err)
		return
	}

	amount, err := c.backend.ClaimRewards(caller)
	if err != nil {
		respondWithError(w, r, "handleClaim: ClaimRewards: %v", err)
		return
	}
	c.metrics.Claimed(amount)

	log.Infof("%v Claimed %v by %v", util.RemoteAddr(r), amount, caller)

	util.RespondWithJSON(w, http.StatusOK, v1.ClaimReply{
		Amount: amount.Dec(),
	})
}

func (c *curated) handleUnsettled(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleUnsettled")

	days, err := c.backend.UnsettledDays()
	if err != nil {
		respondWithError(w, r, "handleUnsettled: UnsettledDays: %v", err)
		return
	}

	util.RespondWithJSON(w, http.StatusOK, v1.UnsettledReply{
		Days: days,
	})
}

func (c *curated) handleEvents(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleEvents")

	var e v1.Events
	err := util.ParseGetParams(r, &e)
	if err != nil {
		respondWithError(w, r, "handleEvents: ParseGetParams",
			v1.UserErrorReply{
				ErrorCode:    v1.ErrorCodeInputInvalid,
				ErrorContext: err.Error(),
			})
		return
	}
	if e.Limit == 0 || e.Limit > v1.EventsPageSize {
		e.Limit = v1.EventsPageSize
	}

	events, err := c.backend.Events(e.From, e.Limit)
	if err != nil {
		respondWithError(w, r, "handleEvents: Events: %v", err)
		return
	}

	util.RespondWithJSON(w, http.StatusOK, v1.EventsReply{
		Events: relay.ConvertEvents(events),
	})
}

// decodeRequest decodes the JSON request body into v. A user error reply is
// sent and false is returned when the body is not valid.
func decodeRequest(w http.ResponseWriter, r *http.Request, handler string, v interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(v); err != nil {
		respondWithError(w, r, handler+": unmarshal",
			v1.UserErrorReply{
				ErrorCode:    v1.ErrorCodeInputInvalid,
				ErrorContext: err.Error(),
			})
		return false
	}
	log.Tracef("%v", newLogClosure(func() string {
		return spew.Sdump(v)
	}))
	return true
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, v1.UserErrorReply{
			ErrorCode:    v1.ErrorCodeAddressInvalid,
			ErrorContext: s,
		}
	}
	return common.HexToAddress(s), nil
}

func parseAddressPair(a, b string) (common.Address, common.Address, error) {
	x, err := parseAddress(a)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	y, err := parseAddress(b)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return x, y, nil
}

// parseAmount parses a base 10 token amount.
func parseAmount(s string) (*uint256.Int, error) {
	a, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, v1.UserErrorReply{
			ErrorCode:    v1.ErrorCodeInvalidAmount,
			ErrorContext: fmt.Sprintf("%q: %v", s, err),
		}
	}
	return a, nil
}

func respondWithError(w http.ResponseWriter, r *http.Request, format string, err error) {
	var (
		ue  backend.UserError
		uer v1.UserErrorReply
	)
	switch {
	case errors.As(err, &ue):
		// Backend user error
		errCode := convertErrorCodeToV1(ue.ErrorCode)
		m := fmt.Sprintf("%v User error: %v %v", util.RemoteAddr(r),
			errCode, v1.ErrorCodes[errCode])
		if ue.ErrorContext != "" {
			m += fmt.Sprintf(": %v", ue.ErrorContext)
		}
		log.Infof(m)
		util.RespondWithJSON(w, http.StatusBadRequest,
			v1.UserErrorReply{
				ErrorCode:    errCode,
				ErrorContext: ue.ErrorContext,
			})
		return

	case errors.As(err, &uer):
		// Request error
		m := fmt.Sprintf("%v User error: %v %v", util.RemoteAddr(r),
			uer.ErrorCode, v1.ErrorCodes[uer.ErrorCode])
		if uer.ErrorContext != "" {
			m += fmt.Sprintf(": %v", uer.ErrorContext)
		}
		log.Infof(m)
		util.RespondWithJSON(w, http.StatusBadRequest, uer)
		return
	}

	// Internal server error. Log it and return a 500.
	t := time.Now().Unix()
	e := fmt.Sprintf(format, err)
	log.Errorf("%v %v %v %v Internal error %v: %v",
		util.RemoteAddr(r), r.Method, r.URL, r.Proto, t, e)

	// If this is a pkg/errors error then we can pull the
	// stack trace out of the error, otherwise, we use the
	// stack trace for this function.
	stack, ok := util.StackTrace(err)
	if !ok {
		stack = string(debug.Stack())
	}

	log.Errorf("Stacktrace (NOT A REAL CRASH): %v", stack)

	util.RespondWithJSON(w, http.StatusInternalServerError,
		v1.ServerErrorReply{
			ErrorCode: t,
		})
}

func convertErrorCodeToV1(e backend.ErrorCodeT) v1.ErrorCodeT {
	switch e {
	case backend.ErrorCodeUnauthorized:
		return v1.ErrorCodeUnauthorized
	case backend.ErrorCodeInvalidAmount:
		return v1.ErrorCodeInvalidAmount
	case backend.ErrorCodePostNotFound:
		return v1.ErrorCodePostNotFound
	case backend.ErrorCodeDayNotYetElapsed:
		return v1.ErrorCodeDayNotYetElapsed
	case backend.ErrorCodeDayAlreadySettled:
		return v1.ErrorCodeDayAlreadySettled
	case backend.ErrorCodeNothingToClaim:
		return v1.ErrorCodeNothingToClaim
	case backend.ErrorCodeInsufficientBalance:
		return v1.ErrorCodeInsufficientBalance
	case backend.ErrorCodeOverflow:
		return v1.ErrorCodeOverflow
	case backend.ErrorCodeAlreadySet:
		return v1.ErrorCodeAlreadySet
	case backend.ErrorCodeRoleInvalid:
		return v1.ErrorCodeRoleInvalid
	case backend.ErrorCodeAddressInvalid:
		return v1.ErrorCodeAddressInvalid
	case backend.ErrorCodeContentInvalid:
		return v1.ErrorCodeContentInvalid
	}
	return v1.ErrorCodeInvalid
}

func convertPostToV1(p backend.Post) v1.Post {
	return v1.Post{
		ID:          p.ID,
		Author:      p.Author.Hex(),
		ContentHash: p.ContentHash,
		Tags:        p.Tags,
		Timestamp:   p.Timestamp,
		CreationDay: p.CreationDay,
		Score:       p.Score,
	}
}

func convertDayRecordToV1(d backend.DayRecord) v1.DayRecord {
	posts := make([]v1.PostWeight, 0, len(d.PostWeights))
	for id, weight := range d.PostWeights {
		posts = append(posts, v1.PostWeight{
			PostID: id,
			Weight: weight,
		})
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].PostID < posts[j].PostID
	})

	voters := make([]v1.VoterWeight, 0, len(d.VoterWeights))
	for a, weight := range d.VoterWeights {
		voters = append(voters, v1.VoterWeight{
			Account: a.Hex(),
			Weight:  weight,
		})
	}
	sort.Slice(voters, func(i, j int) bool {
		return voters[i].Account < voters[j].Account
	})

	created := d.PostsCreated
	if created == nil {
		created = []uint64{}
	}

	return v1.DayRecord{
		Day:             d.Day,
		TotalVoteWeight: d.TotalVoteWeight,
		Posts:           posts,
		Voters:          voters,
		PostsCreated:    created,
	}
}

func decString(a *uint256.Int) string {
	if a == nil {
		return "0"
	}
	return a.Dec()
}

func convertSettlementToV1(s backend.Settlement) v1.Settlement {
	credits := make([]v1.Credit, 0, len(s.Credits))
	for _, v := range s.Credits {
		credits = append(credits, v1.Credit{
			PostID: v.PostID,
			Author: v.Author.Hex(),
			Amount: decString(v.Amount),
		})
	}
	return v1.Settlement{
		Day:             s.Day,
		Settled:         s.Settled,
		Pool:            decString(s.Pool),
		TotalVoteWeight: s.TotalVoteWeight,
		Distributed:     decString(s.Distributed),
		Dust:            s.Dust().Dec(),
		Credits:         credits,
		Timestamp:       s.Timestamp,
	}
}
