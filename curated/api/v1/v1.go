// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package v1 defines the HTTP API of the curated daemon.
package v1

import (
	"encoding/json"
	"fmt"
)

const (
	// APIRoute is prefixed onto all routes defined in this package.
	APIRoute = "/v1"

	// RouteVersion returns the API version and the server build.
	RouteVersion = "/version"

	// Role routes
	RouteAppointModerator       = "/role/appointmoderator"
	RouteAppointCurator         = "/role/appointcurator"
	RouteRevokeRole             = "/role/revoke"
	RouteTransferOwnership      = "/role/transferownership"
	RouteSetSettlementAuthority = "/role/setsettlementauthority"
	RouteHasRole                = "/role/hasrole"

	// Ledger routes
	RouteMint     = "/ledger/mint"
	RouteTransfer = "/ledger/transfer"
	RouteBalance  = "/ledger/balance"
	RouteSupply   = "/ledger/supply"

	// Post and vote routes
	RouteNewPost     = "/post/new"
	RouteVote        = "/post/vote"
	RoutePostDetails = "/post/details"
	RoutePostScore   = "/post/score"
	RouteVoteDays    = "/post/votedays"
	RouteCurrentDay  = "/day/current"
	RouteDayRecord   = "/day/record"

	// Settlement routes
	RouteSettleDay         = "/settlement/settleday"
	RouteSettlementDetails = "/settlement/details"
	RouteClaimable         = "/settlement/claimable"
	RouteClaim             = "/settlement/claim"
	RouteUnsettled         = "/settlement/unsettled"

	// RouteEvents returns a page of committed events. This is a GET
	// route that takes its parameters from the query string.
	RouteEvents = "/events"

	// RouteEventsWS upgrades to a websocket that streams committed
	// events as they are relayed.
	RouteEventsWS = "/events/ws"

	// EventsPageSize is the maximum number of events returned by a
	// single Events request.
	EventsPageSize uint32 = 100
)

// ErrorCodeT represents a user error code.
type ErrorCodeT uint32

const (
	// ErrorCodeInvalid is an invalid error code.
	ErrorCodeInvalid ErrorCodeT = 0

	// ErrorCodeUnauthorized is returned when the caller does not hold
	// the role the operation requires.
	ErrorCodeUnauthorized ErrorCodeT = 1

	// ErrorCodeInvalidAmount is returned when an amount is zero or
	// otherwise not acceptable.
	ErrorCodeInvalidAmount ErrorCodeT = 2

	// ErrorCodePostNotFound is returned when a post id does not refer
	// to an existing post.
	ErrorCodePostNotFound ErrorCodeT = 3

	// ErrorCodeDayNotYetElapsed is returned when settling a day that
	// has not ended.
	ErrorCodeDayNotYetElapsed ErrorCodeT = 4

	// ErrorCodeDayAlreadySettled is returned when settling a day twice.
	ErrorCodeDayAlreadySettled ErrorCodeT = 5

	// ErrorCodeNothingToClaim is returned when claiming with a zero
	// claimable balance.
	ErrorCodeNothingToClaim ErrorCodeT = 6

	// ErrorCodeInsufficientBalance is returned when a transfer exceeds
	// the sender balance.
	ErrorCodeInsufficientBalance ErrorCodeT = 7

	// ErrorCodeOverflow is returned when an operation would exceed the
	// representable range of an amount or a weight.
	ErrorCodeOverflow ErrorCodeT = 8

	// ErrorCodeAlreadySet is returned when a write-once value has
	// already been set.
	ErrorCodeAlreadySet ErrorCodeT = 9

	// ErrorCodeRoleInvalid is returned when a role is not recognized or
	// can not be used with the operation.
	ErrorCodeRoleInvalid ErrorCodeT = 10

	// ErrorCodeAddressInvalid is returned when an account address can
	// not be parsed or is the zero address.
	ErrorCodeAddressInvalid ErrorCodeT = 11

	// ErrorCodeContentInvalid is returned when a post content hash is
	// missing or too long.
	ErrorCodeContentInvalid ErrorCodeT = 12

	// ErrorCodeInputInvalid is returned when there is an error
	// while parsing a request payload.
	ErrorCodeInputInvalid ErrorCodeT = 13

	// ErrorCodeLast is used by unit tests to verify that all error codes
	// have a human readable entry in the ErrorCodes map. This error will
	// never be returned.
	ErrorCodeLast ErrorCodeT = 14
)

var (
	// ErrorCodes contains the human readable errors.
	ErrorCodes = map[ErrorCodeT]string{
		ErrorCodeInvalid:             "error invalid",
		ErrorCodeUnauthorized:        "unauthorized",
		ErrorCodeInvalidAmount:       "invalid amount",
		ErrorCodePostNotFound:        "post not found",
		ErrorCodeDayNotYetElapsed:    "day not yet elapsed",
		ErrorCodeDayAlreadySettled:   "day already settled",
		ErrorCodeNothingToClaim:      "nothing to claim",
		ErrorCodeInsufficientBalance: "insufficient balance",
		ErrorCodeOverflow:            "overflow",
		ErrorCodeAlreadySet:          "already set",
		ErrorCodeRoleInvalid:         "role invalid",
		ErrorCodeAddressInvalid:      "address invalid",
		ErrorCodeContentInvalid:      "content invalid",
		ErrorCodeInputInvalid:        "input invalid",
	}
)

// UserErrorReply is the reply that the server returns when it encounters an
// error that is caused by something that the user did (malformed input, bad
// timing, etc). The HTTP status code will be 400.
type UserErrorReply struct {
	ErrorCode    ErrorCodeT `json:"errorcode"`
	ErrorContext string     `json:"errorcontext,omitempty"`
}

// Error satisfies the error interface.
func (e UserErrorReply) Error() string {
	if e.ErrorContext == "" {
		return fmt.Sprintf("user error (%v): %v",
			e.ErrorCode, ErrorCodes[e.ErrorCode])
	}
	return fmt.Sprintf("user error (%v): %v: %v",
		e.ErrorCode, ErrorCodes[e.ErrorCode], e.ErrorContext)
}

// ServerErrorReply is the reply that the server returns when it encounters an
// unrecoverable error while executing a command. The HTTP status code will be
// 500 and the ErrorCode field will contain a UNIX timestamp that the user can
// provide to the server admin to track down the error details in the logs.
type ServerErrorReply struct {
	ErrorCode int64 `json:"errorcode"`
}

// Error satisfies the error interface.
func (e ServerErrorReply) Error() string {
	return fmt.Sprintf("server error: %v", e.ErrorCode)
}

// Roles
const (
	RoleOwner     = "owner"
	RoleModerator = "moderator"
	RoleCurator   = "curator"
)

// Accounts are 0x prefixed, hex encoded 20 byte addresses. Token amounts are
// base 10 encoded strings since they may exceed 64 bits. Vote weights and
// day indexes are plain numbers.

// VersionReply returns the API version and the server build version.
type VersionReply struct {
	Version      uint32 `json:"version"`
	Route        string `json:"route"`
	BuildVersion string `json:"buildversion"`
}

// AppointModerator grants the moderator role. The caller must be the owner.
type AppointModerator struct {
	Caller  string `json:"caller"`
	Account string `json:"account"`
}

// AppointModeratorReply is the reply to the AppointModerator command.
type AppointModeratorReply struct{}

// AppointCurator grants the curator role. The caller must be a moderator.
type AppointCurator struct {
	Caller  string `json:"caller"`
	Account string `json:"account"`
}

// AppointCuratorReply is the reply to the AppointCurator command.
type AppointCuratorReply struct{}

// RevokeRole removes a role from an account. Moderators are revoked by the
// owner and curators by a moderator. The owner role can not be revoked.
type RevokeRole struct {
	Caller  string `json:"caller"`
	Account string `json:"account"`
	Role    string `json:"role"`
}

// RevokeRoleReply is the reply to the RevokeRole command.
type RevokeRoleReply struct{}

// TransferOwnership moves the owner role to a new account.
type TransferOwnership struct {
	Caller   string `json:"caller"`
	NewOwner string `json:"newowner"`
}

// TransferOwnershipReply is the reply to the TransferOwnership command.
type TransferOwnershipReply struct{}

// SetSettlementAuthority binds the only account that is permitted to mint.
// It can be set exactly once.
type SetSettlementAuthority struct {
	Caller    string `json:"caller"`
	Authority string `json:"authority"`
}

// SetSettlementAuthorityReply is the reply to the SetSettlementAuthority
// command.
type SetSettlementAuthorityReply struct{}

// HasRole asks whether an account holds a role.
type HasRole struct {
	Account string `json:"account"`
	Role    string `json:"role"`
}

// HasRoleReply is the reply to the HasRole command.
type HasRoleReply struct {
	HasRole bool `json:"hasrole"`
}

// Mint credits new tokens to an account. The caller must be the settlement
// authority.
type Mint struct {
	Caller  string `json:"caller"`
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// MintReply is the reply to the Mint command.
type MintReply struct{}

// Transfer moves tokens from the caller to another account.
type Transfer struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// TransferReply is the reply to the Transfer command.
type TransferReply struct{}

// Balance requests the token balance of an account.
type Balance struct {
	Account string `json:"account"`
}

// BalanceReply is the reply to the Balance command.
type BalanceReply struct {
	Balance string `json:"balance"`
}

// Supply requests the total token supply.
type Supply struct{}

// SupplyReply is the reply to the Supply command.
type SupplyReply struct {
	TotalSupply string `json:"totalsupply"`
}

// Post is a registered content item.
type Post struct {
	ID          uint64 `json:"id"`
	Author      string `json:"author"`
	ContentHash string `json:"contenthash"`
	Tags        string `json:"tags"`
	Timestamp   int64  `json:"timestamp"`   // Creation UNIX timestamp
	CreationDay uint64 `json:"creationday"` // Day index of the creation
	Score       uint64 `json:"score"`       // Cumulative vote weight
}

// NewPost registers a new post. The caller must be a curator.
type NewPost struct {
	Caller      string `json:"caller"`
	ContentHash string `json:"contenthash"`
	Tags        string `json:"tags"`
}

// NewPostReply is the reply to the NewPost command.
type NewPostReply struct {
	Post Post `json:"post"`
}

// Vote casts weight on a post for the current day.
type Vote struct {
	Caller string `json:"caller"`
	PostID uint64 `json:"postid"`
	Amount uint64 `json:"amount"`
}

// VoteReply is the reply to the Vote command.
type VoteReply struct {
	Day   uint64 `json:"day"`   // Day the vote was counted on
	Score uint64 `json:"score"` // Post score after the vote
}

// PostDetails requests a post.
type PostDetails struct {
	PostID uint64 `json:"postid"`
}

// PostDetailsReply is the reply to the PostDetails command.
type PostDetailsReply struct {
	Post Post `json:"post"`
}

// PostScore requests the cumulative vote weight of a post.
type PostScore struct {
	PostID uint64 `json:"postid"`
}

// PostScoreReply is the reply to the PostScore command.
type PostScoreReply struct {
	Score uint64 `json:"score"`
}

// VoteDays requests the days on which an account voted.
type VoteDays struct {
	Account string `json:"account"`
}

// VoteDaysReply is the reply to the VoteDays command. Days are in ascending
// order without duplicates.
type VoteDaysReply struct {
	Days []uint64 `json:"days"`
}

// CurrentDay requests the current day index.
type CurrentDay struct{}

// CurrentDayReply is the reply to the CurrentDay command.
type CurrentDayReply struct {
	Day       uint64 `json:"day"`
	Genesis   int64  `json:"genesis"`   // Genesis UNIX timestamp
	Timestamp int64  `json:"timestamp"` // Server UNIX timestamp
}

// PostWeight is the vote weight a post received on a day.
type PostWeight struct {
	PostID uint64 `json:"postid"`
	Weight uint64 `json:"weight"`
}

// VoterWeight is the vote weight an account cast on a day.
type VoterWeight struct {
	Account string `json:"account"`
	Weight  uint64 `json:"weight"`
}

// DayRecord contains the voting activity of a day.
type DayRecord struct {
	Day             uint64        `json:"day"`
	TotalVoteWeight uint64        `json:"totalvoteweight"`
	Posts           []PostWeight  `json:"posts"`
	Voters          []VoterWeight `json:"voters"`
	PostsCreated    []uint64      `json:"postscreated"`
}

// DayRecordRequest requests the voting activity of a day.
type DayRecordRequest struct {
	Day uint64 `json:"day"`
}

// DayRecordReply is the reply to the DayRecordRequest command.
type DayRecordReply struct {
	Record DayRecord `json:"record"`
}

// Credit is the reward a post earned its author on a settled day.
type Credit struct {
	PostID uint64 `json:"postid"`
	Author string `json:"author"`
	Amount string `json:"amount"`
}

// Settlement is the outcome of settling a day.
type Settlement struct {
	Day             uint64   `json:"day"`
	Settled         bool     `json:"settled"`
	Pool            string   `json:"pool"`
	TotalVoteWeight uint64   `json:"totalvoteweight"`
	Distributed     string   `json:"distributed"` // Amount minted
	Dust            string   `json:"dust"`        // Pool minus distributed
	Credits         []Credit `json:"credits"`
	Timestamp       int64    `json:"timestamp"`
}

// SettleDay settles a day that has elapsed. Anyone may settle a day.
type SettleDay struct {
	Day uint64 `json:"day"`
}

// SettleDayReply is the reply to the SettleDay command.
type SettleDayReply struct {
	Settlement Settlement `json:"settlement"`
}

// SettlementDetails requests the settlement of a day.
type SettlementDetails struct {
	Day uint64 `json:"day"`
}

// SettlementDetailsReply is the reply to the SettlementDetails command.
// Settled is false for days that have not been settled.
type SettlementDetailsReply struct {
	Settlement Settlement `json:"settlement"`
}

// Claimable requests the reward state of an account.
type Claimable struct {
	Account string `json:"account"`
}

// ClaimableReply is the reply to the Claimable command.
type ClaimableReply struct {
	Claimable    string `json:"claimable"`
	TotalClaimed string `json:"totalclaimed"`
}

// Claim withdraws the full claimable balance of the caller.
type Claim struct {
	Caller string `json:"caller"`
}

// ClaimReply is the reply to the Claim command.
type ClaimReply struct {
	Amount string `json:"amount"`
}

// Unsettled requests the days that have elapsed, saw activity and have not
// been settled.
type Unsettled struct{}

// UnsettledReply is the reply to the Unsettled command.
type UnsettledReply struct {
	Days []uint64 `json:"days"`
}

// Event types
const (
	EventTypePostCreated            = "postcreated"
	EventTypeVoted                  = "voted"
	EventTypeDailySettlement        = "dailysettlement"
	EventTypeOwnershipTransferred   = "ownershiptransferred"
	EventTypeRoleGranted            = "rolegranted"
	EventTypeRoleRevoked            = "rolerevoked"
	EventTypeSettlementAuthoritySet = "settlementauthorityset"
	EventTypeTransfer               = "transfer"
	EventTypeRewardsClaimed         = "rewardsclaimed"
)

// Event is a committed state change. Seq is gap free and strictly
// increasing. ID is unique and may be used by consumers to drop duplicate
// deliveries.
type Event struct {
	Seq       uint64          `json:"seq"`
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Events requests a page of events starting at sequence From.
type Events struct {
	From  uint64 `schema:"from"`
	Limit uint32 `schema:"limit"`
}

// EventsReply is the reply to the Events command.
type EventsReply struct {
	Events []Event `json:"events"`
}

// EventPostCreated is the payload of a postcreated event.
type EventPostCreated struct {
	PostID      uint64 `json:"postid"`
	Author      string `json:"author"`
	ContentHash string `json:"contenthash"`
	Tags        string `json:"tags"`
}

// EventVoted is the payload of a voted event.
type EventVoted struct {
	Voter  string `json:"voter"`
	PostID uint64 `json:"postid"`
	Amount uint64 `json:"amount"`
	Day    uint64 `json:"day"`
}

// EventDailySettlement is the payload of a dailysettlement event.
type EventDailySettlement struct {
	Day                    uint64 `json:"day"`
	TotalTokensDistributed string `json:"totaltokensdistributed"`
	Timestamp              int64  `json:"timestamp"`
}

// EventOwnershipTransferred is the payload of an ownershiptransferred event.
// PreviousOwner is the zero address for the genesis event.
type EventOwnershipTransferred struct {
	PreviousOwner string `json:"previousowner"`
	NewOwner      string `json:"newowner"`
}

// EventRoleGranted is the payload of a rolegranted event.
type EventRoleGranted struct {
	Role    string `json:"role"`
	Account string `json:"account"`
	Sender  string `json:"sender"`
}

// EventRoleRevoked is the payload of a rolerevoked event.
type EventRoleRevoked struct {
	Role    string `json:"role"`
	Account string `json:"account"`
	Sender  string `json:"sender"`
}

// EventSettlementAuthoritySet is the payload of a settlementauthorityset
// event.
type EventSettlementAuthoritySet struct {
	Authority string `json:"authority"`
}

// EventTransfer is the payload of a transfer event. From is the zero address
// for mints.
type EventTransfer struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
}

// EventRewardsClaimed is the payload of a rewardsclaimed event.
type EventRewardsClaimed struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}
