// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package backend

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	// ErrShutdown is returned when the backend is shutdown.
	ErrShutdown = errors.New("backend is shutdown")
)

// RoleT represents an access control role.
type RoleT uint32

const (
	// RoleInvalid is an invalid role.
	RoleInvalid RoleT = 0

	// RoleOwner is the single administrative identity. It appoints and
	// revokes moderators and binds the settlement authority.
	RoleOwner RoleT = 1

	// RoleModerator appoints and revokes curators.
	RoleModerator RoleT = 2

	// RoleCurator may register posts.
	RoleCurator RoleT = 3

	// RoleLast is used for unit test validation of human readable
	// roles.
	RoleLast RoleT = 4
)

var (
	// Roles contains the human readable roles.
	Roles = map[RoleT]string{
		RoleInvalid:   "invalid",
		RoleOwner:     "owner",
		RoleModerator: "moderator",
		RoleCurator:   "curator",
	}
)

// RoleFromString returns the role for the human readable name. RoleInvalid
// is returned for unknown names.
func RoleFromString(s string) RoleT {
	for k, v := range Roles {
		if k != RoleInvalid && v == s {
			return k
		}
	}
	return RoleInvalid
}

// ErrorCodeT represents a user error code.
type ErrorCodeT uint32

const (
	ErrorCodeInvalid             ErrorCodeT = 0
	ErrorCodeUnauthorized        ErrorCodeT = 1
	ErrorCodeInvalidAmount       ErrorCodeT = 2
	ErrorCodePostNotFound        ErrorCodeT = 3
	ErrorCodeDayNotYetElapsed    ErrorCodeT = 4
	ErrorCodeDayAlreadySettled   ErrorCodeT = 5
	ErrorCodeNothingToClaim      ErrorCodeT = 6
	ErrorCodeInsufficientBalance ErrorCodeT = 7
	ErrorCodeOverflow            ErrorCodeT = 8
	ErrorCodeAlreadySet          ErrorCodeT = 9
	ErrorCodeRoleInvalid         ErrorCodeT = 10
	ErrorCodeAddressInvalid      ErrorCodeT = 11
	ErrorCodeContentInvalid      ErrorCodeT = 12
	ErrorCodeLast                ErrorCodeT = 13
)

var (
	// ErrorCodes contains the human readable error codes.
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
	}
)

// UserError is returned when an operation is rejected because of something
// the caller did. No state is changed when a UserError is returned.
type UserError struct {
	ErrorCode    ErrorCodeT
	ErrorContext string
}

// Error satisfies the error interface.
func (e UserError) Error() string {
	if e.ErrorContext == "" {
		return ErrorCodes[e.ErrorCode]
	}
	return fmt.Sprintf("%v: %v", ErrorCodes[e.ErrorCode], e.ErrorContext)
}

// IsUserError returns whether the error is a UserError with the provided
// error code.
func IsUserError(err error, code ErrorCodeT) bool {
	var ue UserError
	return errors.As(err, &ue) && ue.ErrorCode == code
}

// Genesis anchors day zero and the initial owner.
type Genesis struct {
	Owner     common.Address `json:"owner"`
	Timestamp int64          `json:"timestamp"`
}

// Post is a registered content item.
type Post struct {
	ID          uint64         `json:"id"`
	Author      common.Address `json:"author"`
	ContentHash string         `json:"contenthash"`
	Tags        string         `json:"tags"`
	Timestamp   int64          `json:"timestamp"`
	CreationDay uint64         `json:"creationday"`
	Score       uint64         `json:"score"`
}

// DayRecord contains the voting activity of a single day. Records only exist
// for days that saw activity.
type DayRecord struct {
	Day             uint64                    `json:"day"`
	TotalVoteWeight uint64                    `json:"totalvoteweight"`
	PostWeights     map[uint64]uint64         `json:"postweights"`
	VoterWeights    map[common.Address]uint64 `json:"voterweights"`
	PostsCreated    []uint64                  `json:"postscreated"`
}

// NewDayRecord returns an empty record for the day.
func NewDayRecord(day uint64) *DayRecord {
	return &DayRecord{
		Day:          day,
		PostWeights:  make(map[uint64]uint64),
		VoterWeights: make(map[common.Address]uint64),
		PostsCreated: []uint64{},
	}
}

// Credit is the reward a post earned its author on a settled day.
type Credit struct {
	PostID uint64
	Author common.Address
	Amount *uint256.Int
}

// Settlement is the outcome of settling a day.
type Settlement struct {
	Day             uint64
	Settled         bool
	Pool            *uint256.Int
	TotalVoteWeight uint64
	Distributed     *uint256.Int
	Credits         []Credit
	Timestamp       int64
}

// Dust returns the part of the pool that was lost to rounding.
func (s Settlement) Dust() *uint256.Int {
	if s.Pool == nil || s.Distributed == nil {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Sub(s.Pool, s.Distributed)
}

// RewardState is the reward accounting of an account.
type RewardState struct {
	Claimable    *uint256.Int
	TotalClaimed *uint256.Int
}

// Event is a committed state change.
type Event struct {
	Seq       uint64          `json:"seq"`
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Backend provides the curation engine. All mutating calls are serialized and
// either apply completely or not at all.
type Backend interface {
	// AppointModerator grants the moderator role. Owner only.
	AppointModerator(caller, account common.Address) error

	// AppointCurator grants the curator role. Moderator only.
	AppointCurator(caller, account common.Address) error

	// RevokeRole removes a role from an account.
	RevokeRole(caller, account common.Address, role RoleT) error

	// TransferOwnership moves the owner role.
	TransferOwnership(caller, newOwner common.Address) error

	// SetSettlementAuthority binds the minting authority. Write once.
	SetSettlementAuthority(caller, authority common.Address) error

	// HasRole returns whether the account holds the role.
	HasRole(account common.Address, role RoleT) (bool, error)

	// Mint credits new tokens. Settlement authority only.
	Mint(caller, account common.Address, amount *uint256.Int) error

	// Transfer moves tokens between accounts.
	Transfer(caller, to common.Address, amount *uint256.Int) error

	// BalanceOf returns the token balance of an account.
	BalanceOf(account common.Address) (*uint256.Int, error)

	// TotalSupply returns the sum of all balances.
	TotalSupply() (*uint256.Int, error)

	// CreatePost registers a post. Curator only.
	CreatePost(caller common.Address, contentHash, tags string) (*Post, error)

	// Vote adds weight to a post on the current day and returns the day.
	Vote(caller common.Address, postID, amount uint64) (uint64, error)

	// Post returns a post.
	Post(postID uint64) (*Post, error)

	// PostScore returns the cumulative vote weight of a post.
	PostScore(postID uint64) (uint64, error)

	// CurrentDay returns the index of the current day.
	CurrentDay() uint64

	// Genesis returns the genesis record.
	Genesis() Genesis

	// UserVoteDays returns the days the account voted on, ascending.
	UserVoteDays(account common.Address) ([]uint64, error)

	// DayRecord returns the voting activity of a day.
	DayRecord(day uint64) (*DayRecord, error)

	// SettleDay settles an elapsed day.
	SettleDay(day uint64) (*Settlement, error)

	// Settlement returns the settlement of a day.
	Settlement(day uint64) (*Settlement, error)

	// UnsettledDays returns the elapsed days with activity that have
	// not been settled, ascending.
	UnsettledDays() ([]uint64, error)

	// ClaimableAmount returns the rewards an account can withdraw.
	ClaimableAmount(account common.Address) (*uint256.Int, error)

	// RewardState returns the reward accounting of an account.
	RewardState(account common.Address) (*RewardState, error)

	// ClaimRewards withdraws all claimable rewards of the caller.
	ClaimRewards(caller common.Address) (*uint256.Int, error)

	// Events returns up to limit events starting at sequence from.
	Events(from uint64, limit uint32) ([]Event, error)

	// EventCursor returns the next sequence to deliver to a sink.
	EventCursor(sink string) (uint64, error)

	// SetEventCursor records that a sink has accepted all events
	// before seq.
	SetEventCursor(sink string, seq uint64) error

	// Fsck verifies the accounting invariants.
	Fsck() error

	// Close performs cleanup of the backend.
	Close()
}
