// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	v1 "github.com/decred/curate/curated/api/v1"
)

// Version sends a Version request to the curated v1 API.
func (c *Client) Version(ctx context.Context) (*v1.VersionReply, error) {
	resBody, err := c.makeReq(ctx, http.MethodGet, v1.RouteVersion, nil)
	if err != nil {
		return nil, err
	}

	var vr v1.VersionReply
	err = json.Unmarshal(resBody, &vr)
	if err != nil {
		return nil, err
	}

	return &vr, nil
}

// AppointModerator sends an AppointModerator request to the curated v1 API.
func (c *Client) AppointModerator(ctx context.Context, caller, account string) error {
	am := v1.AppointModerator{
		Caller:  caller,
		Account: account,
	}
	var amr v1.AppointModeratorReply
	return c.post(ctx, v1.RouteAppointModerator, am, &amr)
}

// AppointCurator sends an AppointCurator request to the curated v1 API.
func (c *Client) AppointCurator(ctx context.Context, caller, account string) error {
	ac := v1.AppointCurator{
		Caller:  caller,
		Account: account,
	}
	var acr v1.AppointCuratorReply
	return c.post(ctx, v1.RouteAppointCurator, ac, &acr)
}

// RevokeRole sends a RevokeRole request to the curated v1 API.
func (c *Client) RevokeRole(ctx context.Context, caller, account, role string) error {
	rr := v1.RevokeRole{
		Caller:  caller,
		Account: account,
		Role:    role,
	}
	var rrr v1.RevokeRoleReply
	return c.post(ctx, v1.RouteRevokeRole, rr, &rrr)
}

// TransferOwnership sends a TransferOwnership request to the curated v1 API.
func (c *Client) TransferOwnership(ctx context.Context, caller, newOwner string) error {
	to := v1.TransferOwnership{
		Caller:   caller,
		NewOwner: newOwner,
	}
	var tor v1.TransferOwnershipReply
	return c.post(ctx, v1.RouteTransferOwnership, to, &tor)
}

// SetSettlementAuthority sends a SetSettlementAuthority request to the
// curated v1 API.
func (c *Client) SetSettlementAuthority(ctx context.Context, caller, authority string) error {
	ssa := v1.SetSettlementAuthority{
		Caller:    caller,
		Authority: authority,
	}
	var ssar v1.SetSettlementAuthorityReply
	return c.post(ctx, v1.RouteSetSettlementAuthority, ssa, &ssar)
}

// HasRole sends a HasRole request to the curated v1 API.
func (c *Client) HasRole(ctx context.Context, account, role string) (bool, error) {
	hr := v1.HasRole{
		Account: account,
		Role:    role,
	}
	var hrr v1.HasRoleReply
	err := c.post(ctx, v1.RouteHasRole, hr, &hrr)
	if err != nil {
		return false, err
	}
	return hrr.HasRole, nil
}

// Mint sends a Mint request to the curated v1 API.
func (c *Client) Mint(ctx context.Context, caller, account, amount string) error {
	m := v1.Mint{
		Caller:  caller,
		Account: account,
		Amount:  amount,
	}
	var mr v1.MintReply
	return c.post(ctx, v1.RouteMint, m, &mr)
}

// Transfer sends a Transfer request to the curated v1 API.
func (c *Client) Transfer(ctx context.Context, caller, to, amount string) error {
	t := v1.Transfer{
		Caller: caller,
		To:     to,
		Amount: amount,
	}
	var tr v1.TransferReply
	return c.post(ctx, v1.RouteTransfer, t, &tr)
}

// Balance sends a Balance request to the curated v1 API.
func (c *Client) Balance(ctx context.Context, account string) (string, error) {
	b := v1.Balance{
		Account: account,
	}
	var br v1.BalanceReply
	err := c.post(ctx, v1.RouteBalance, b, &br)
	if err != nil {
		return "", err
	}
	return br.Balance, nil
}

// Supply sends a Supply request to the curated v1 API.
func (c *Client) Supply(ctx context.Context) (string, error) {
	var sr v1.SupplyReply
	err := c.post(ctx, v1.RouteSupply, v1.Supply{}, &sr)
	if err != nil {
		return "", err
	}
	return sr.TotalSupply, nil
}

// NewPost sends a NewPost request to the curated v1 API.
func (c *Client) NewPost(ctx context.Context, caller, contentHash, tags string) (*v1.Post, error) {
	np := v1.NewPost{
		Caller:      caller,
		ContentHash: contentHash,
		Tags:        tags,
	}
	var npr v1.NewPostReply
	err := c.post(ctx, v1.RouteNewPost, np, &npr)
	if err != nil {
		return nil, err
	}
	return &npr.Post, nil
}

// Vote sends a Vote request to the curated v1 API.
func (c *Client) Vote(ctx context.Context, caller string, postID, amount uint64) (*v1.VoteReply, error) {
	v := v1.Vote{
		Caller: caller,
		PostID: postID,
		Amount: amount,
	}
	var vr v1.VoteReply
	err := c.post(ctx, v1.RouteVote, v, &vr)
	if err != nil {
		return nil, err
	}
	return &vr, nil
}

// PostDetails sends a PostDetails request to the curated v1 API.
func (c *Client) PostDetails(ctx context.Context, postID uint64) (*v1.Post, error) {
	pd := v1.PostDetails{
		PostID: postID,
	}
	var pdr v1.PostDetailsReply
	err := c.post(ctx, v1.RoutePostDetails, pd, &pdr)
	if err != nil {
		return nil, err
	}
	return &pdr.Post, nil
}

// PostScore sends a PostScore request to the curated v1 API.
func (c *Client) PostScore(ctx context.Context, postID uint64) (uint64, error) {
	ps := v1.PostScore{
		PostID: postID,
	}
	var psr v1.PostScoreReply
	err := c.post(ctx, v1.RoutePostScore, ps, &psr)
	if err != nil {
		return 0, err
	}
	return psr.Score, nil
}

// VoteDays sends a VoteDays request to the curated v1 API.
func (c *Client) VoteDays(ctx context.Context, account string) ([]uint64, error) {
	vd := v1.VoteDays{
		Account: account,
	}
	var vdr v1.VoteDaysReply
	err := c.post(ctx, v1.RouteVoteDays, vd, &vdr)
	if err != nil {
		return nil, err
	}
	return vdr.Days, nil
}

// CurrentDay sends a CurrentDay request to the curated v1 API.
func (c *Client) CurrentDay(ctx context.Context) (*v1.CurrentDayReply, error) {
	var cdr v1.CurrentDayReply
	err := c.post(ctx, v1.RouteCurrentDay, v1.CurrentDay{}, &cdr)
	if err != nil {
		return nil, err
	}
	return &cdr, nil
}

// DayRecord sends a DayRecord request to the curated v1 API.
func (c *Client) DayRecord(ctx context.Context, day uint64) (*v1.DayRecord, error) {
	dr := v1.DayRecordRequest{
		Day: day,
	}
	var drr v1.DayRecordReply
	err := c.post(ctx, v1.RouteDayRecord, dr, &drr)
	if err != nil {
		return nil, err
	}
	return &drr.Record, nil
}

// SettleDay sends a SettleDay request to the curated v1 API.
func (c *Client) SettleDay(ctx context.Context, day uint64) (*v1.Settlement, error) {
	sd := v1.SettleDay{
		Day: day,
	}
	var sdr v1.SettleDayReply
	err := c.post(ctx, v1.RouteSettleDay, sd, &sdr)
	if err != nil {
		return nil, err
	}
	return &sdr.Settlement, nil
}

// SettlementDetails sends a SettlementDetails request to the curated v1 API.
func (c *Client) SettlementDetails(ctx context.Context, day uint64) (*v1.Settlement, error) {
	sd := v1.SettlementDetails{
		Day: day,
	}
	var sdr v1.SettlementDetailsReply
	err := c.post(ctx, v1.RouteSettlementDetails, sd, &sdr)
	if err != nil {
		return nil, err
	}
	return &sdr.Settlement, nil
}

// Claimable sends a Claimable request to the curated v1 API.
func (c *Client) Claimable(ctx context.Context, account string) (*v1.ClaimableReply, error) {
	cl := v1.Claimable{
		Account: account,
	}
	var clr v1.ClaimableReply
	err := c.post(ctx, v1.RouteClaimable, cl, &clr)
	if err != nil {
		return nil, err
	}
	return &clr, nil
}

// Claim sends a Claim request to the curated v1 API. The claimed amount is
// returned.
func (c *Client) Claim(ctx context.Context, caller string) (string, error) {
	cl := v1.Claim{
		Caller: caller,
	}
	var cr v1.ClaimReply
	err := c.post(ctx, v1.RouteClaim, cl, &cr)
	if err != nil {
		return "", err
	}
	return cr.Amount, nil
}

// Unsettled sends an Unsettled request to the curated v1 API.
func (c *Client) Unsettled(ctx context.Context) ([]uint64, error) {
	var ur v1.UnsettledReply
	err := c.post(ctx, v1.RouteUnsettled, v1.Unsettled{}, &ur)
	if err != nil {
		return nil, err
	}
	return ur.Days, nil
}

// Events requests a page of events from the curated v1 API.
func (c *Client) Events(ctx context.Context, from uint64, limit uint32) ([]v1.Event, error) {
	route := fmt.Sprintf("%v?from=%v&limit=%v", v1.RouteEvents, from, limit)
	resBody, err := c.makeReq(ctx, http.MethodGet, route, nil)
	if err != nil {
		return nil, err
	}

	var er v1.EventsReply
	err = json.Unmarshal(resBody, &er)
	if err != nil {
		return nil, err
	}

	return er.Events, nil
}
