// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package roles is the access control registry. It records the single owner,
// the moderator and curator sets and the write once settlement authority.
package roles

import (
	"strings"

	v1 "github.com/decred/curate/curated/api/v1"
	"github.com/decred/curate/curated/backend"
	"github.com/decred/curate/curated/backend/curatebe/outbox"
	"github.com/decred/curate/curated/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
)

const (
	keyOwner     = "roles-owner"
	keyAuthority = "roles-settlementauthority"

	// keyMember is the key of a role membership. The {role} and
	// {address} are replaced by the role name and the lowercase hex
	// address.
	keyMember = "roles-{role}-{address}"
)

func keyMemberFor(role backend.RoleT, account common.Address) string {
	k := strings.Replace(keyMember, "{role}", backend.Roles[role], 1)
	return strings.Replace(k, "{address}", strings.ToLower(account.Hex()), 1)
}

// member is saved for every role membership.
type member struct {
	Sender    common.Address `json:"sender"`
	Timestamp int64          `json:"timestamp"`
}

// Roles is the role registry component.
type Roles struct {
	clock  clockwork.Clock
	outbox *outbox.Outbox
}

// New returns a new Roles.
func New(clock clockwork.Clock, o *outbox.Outbox) *Roles {
	return &Roles{
		clock:  clock,
		outbox: o,
	}
}

func errUnauthorized(caller common.Address, need backend.RoleT) error {
	return backend.UserError{
		ErrorCode: backend.ErrorCodeUnauthorized,
		ErrorContext: caller.Hex() + " is not " +
			backend.Roles[need],
	}
}

func errAddressInvalid(what string) error {
	return backend.UserError{
		ErrorCode:    backend.ErrorCodeAddressInvalid,
		ErrorContext: what + " is the zero address",
	}
}

// Init records the genesis owner. It must be called exactly once, in the same
// transaction that writes the genesis record.
func (r *Roles) Init(tx store.Tx, owner common.Address) error {
	if owner == (common.Address{}) {
		return errAddressInvalid("owner")
	}
	err := store.InsertJSON(tx, keyOwner, owner)
	if err != nil {
		return errors.Wrap(err, "owner")
	}
	_, err = r.outbox.Append(tx, v1.EventTypeOwnershipTransferred,
		v1.EventOwnershipTransferred{
			PreviousOwner: common.Address{}.Hex(),
			NewOwner:      owner.Hex(),
		})
	return err
}

// Owner returns the current owner.
func (r *Roles) Owner(g store.Getter) (common.Address, error) {
	var owner common.Address
	ok, err := store.GetJSON(g, keyOwner, &owner)
	if err != nil {
		return owner, err
	}
	if !ok {
		return owner, errors.Errorf("owner not initialized")
	}
	return owner, nil
}

// HasRole returns whether the account holds the role. A role outside the
// known roles is never held.
func (r *Roles) HasRole(g store.Getter, account common.Address, role backend.RoleT) (bool, error) {
	switch role {
	case backend.RoleOwner:
		owner, err := r.Owner(g)
		if err != nil {
			return false, err
		}
		return account == owner, nil
	case backend.RoleModerator, backend.RoleCurator:
		_, err := g.Get(keyMemberFor(role, account))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	default:
		return false, nil
	}
}

// require returns an Unauthorized user error when the caller does not hold
// the role.
func (r *Roles) require(g store.Getter, caller common.Address, role backend.RoleT) error {
	ok, err := r.HasRole(g, caller, role)
	if err != nil {
		return err
	}
	if !ok {
		return errUnauthorized(caller, role)
	}
	return nil
}

// grant adds the account to the role set. Granting a held role is a no-op.
func (r *Roles) grant(tx store.Tx, sender, account common.Address, role backend.RoleT) error {
	if account == (common.Address{}) {
		return errAddressInvalid("account")
	}
	ok, err := r.HasRole(tx, account, role)
	if err != nil {
		return err
	}
	if ok {
		log.Debugf("%v already holds %v", account, backend.Roles[role])
		return nil
	}
	err = store.PutJSON(tx, keyMemberFor(role, account), member{
		Sender:    sender,
		Timestamp: r.clock.Now().Unix(),
	})
	if err != nil {
		return err
	}
	_, err = r.outbox.Append(tx, v1.EventTypeRoleGranted,
		v1.EventRoleGranted{
			Role:    backend.Roles[role],
			Account: account.Hex(),
			Sender:  sender.Hex(),
		})
	return err
}

// AppointModerator grants the moderator role. The caller must be the owner.
func (r *Roles) AppointModerator(tx store.Tx, caller, account common.Address) error {
	err := r.require(tx, caller, backend.RoleOwner)
	if err != nil {
		return err
	}
	return r.grant(tx, caller, account, backend.RoleModerator)
}

// AppointCurator grants the curator role. The caller must be a moderator.
func (r *Roles) AppointCurator(tx store.Tx, caller, account common.Address) error {
	err := r.require(tx, caller, backend.RoleModerator)
	if err != nil {
		return err
	}
	return r.grant(tx, caller, account, backend.RoleCurator)
}

// Revoke removes the role from the account. Moderators are revoked by the
// owner and curators by a moderator. The owner role can only move through
// TransferOwnership. Revoking a role that is not held is a no-op.
func (r *Roles) Revoke(tx store.Tx, caller, account common.Address, role backend.RoleT) error {
	var admin backend.RoleT
	switch role {
	case backend.RoleModerator:
		admin = backend.RoleOwner
	case backend.RoleCurator:
		admin = backend.RoleModerator
	default:
		return backend.UserError{
			ErrorCode:    backend.ErrorCodeRoleInvalid,
			ErrorContext: backend.Roles[role] + " can not be revoked",
		}
	}
	err := r.require(tx, caller, admin)
	if err != nil {
		return err
	}

	ok, err := r.HasRole(tx, account, role)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	err = tx.Del([]string{keyMemberFor(role, account)})
	if err != nil {
		return err
	}
	_, err = r.outbox.Append(tx, v1.EventTypeRoleRevoked,
		v1.EventRoleRevoked{
			Role:    backend.Roles[role],
			Account: account.Hex(),
			Sender:  caller.Hex(),
		})
	return err
}

// TransferOwnership makes newOwner the owner. The caller must be the owner.
func (r *Roles) TransferOwnership(tx store.Tx, caller, newOwner common.Address) error {
	err := r.require(tx, caller, backend.RoleOwner)
	if err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return errAddressInvalid("new owner")
	}
	err = store.PutJSON(tx, keyOwner, newOwner)
	if err != nil {
		return err
	}
	_, err = r.outbox.Append(tx, v1.EventTypeOwnershipTransferred,
		v1.EventOwnershipTransferred{
			PreviousOwner: caller.Hex(),
			NewOwner:      newOwner.Hex(),
		})
	return err
}

// SetSettlementAuthority binds the only account permitted to mint. The
// caller must be the owner and the authority can be set exactly once.
func (r *Roles) SetSettlementAuthority(tx store.Tx, caller, authority common.Address) error {
	err := r.require(tx, caller, backend.RoleOwner)
	if err != nil {
		return err
	}
	if authority == (common.Address{}) {
		return errAddressInvalid("authority")
	}
	err = store.InsertJSON(tx, keyAuthority, authority)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return backend.UserError{
				ErrorCode: backend.ErrorCodeAlreadySet,
			}
		}
		return err
	}
	_, err = r.outbox.Append(tx, v1.EventTypeSettlementAuthoritySet,
		v1.EventSettlementAuthoritySet{
			Authority: authority.Hex(),
		})
	return err
}

// SettlementAuthority returns the bound settlement authority. The returned
// bool is false when it has not been set.
func (r *Roles) SettlementAuthority(g store.Getter) (common.Address, bool, error) {
	var a common.Address
	ok, err := store.GetJSON(g, keyAuthority, &a)
	return a, ok, err
}
