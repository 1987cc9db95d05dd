// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ledger implements the fungible token balances. Only the bound
// settlement authority can mint and the total supply always equals the sum
// of all balances.
package ledger

import (
	"sort"
	"strings"

	v1 "github.com/decred/curate/curated/api/v1"
	"github.com/decred/curate/curated/backend"
	"github.com/decred/curate/curated/backend/curatebe/outbox"
	"github.com/decred/curate/curated/backend/curatebe/roles"
	"github.com/decred/curate/curated/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

const (
	keySupply   = "ledger-supply"
	keyAccounts = "ledger-accounts"

	// keyBalance is the key of an account balance. The {address} is
	// replaced by the lowercase hex address.
	keyBalance = "ledger-balance-{address}"
)

func keyBalanceFor(account common.Address) string {
	return strings.Replace(keyBalance, "{address}",
		strings.ToLower(account.Hex()), 1)
}

// Ledger is the token ledger component.
type Ledger struct {
	roles  *roles.Roles
	outbox *outbox.Outbox
}

// New returns a new Ledger.
func New(r *roles.Roles, o *outbox.Outbox) *Ledger {
	return &Ledger{
		roles:  r,
		outbox: o,
	}
}

// getAmount reads a decimal encoded amount. Missing keys are zero.
func getAmount(g store.Getter, key string) (*uint256.Int, error) {
	var s string
	ok, err := store.GetJSON(g, key, &s)
	if err != nil {
		return nil, err
	}
	if !ok {
		return uint256.NewInt(0), nil
	}
	a, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, errors.Wrapf(err, "%v", key)
	}
	return a, nil
}

func putAmount(tx store.Tx, key string, a *uint256.Int) error {
	return store.PutJSON(tx, key, a.Dec())
}

// Accounts returns every account that has ever held a balance, sorted.
func (l *Ledger) Accounts(g store.Getter) ([]common.Address, error) {
	var accounts []common.Address
	_, err := store.GetJSON(g, keyAccounts, &accounts)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// track adds the account to the account index.
func (l *Ledger) track(tx store.Tx, account common.Address) error {
	accounts, err := l.Accounts(tx)
	if err != nil {
		return err
	}
	i := sort.Search(len(accounts), func(i int) bool {
		return strings.ToLower(accounts[i].Hex()) >=
			strings.ToLower(account.Hex())
	})
	if i < len(accounts) && accounts[i] == account {
		return nil
	}
	accounts = append(accounts, common.Address{})
	copy(accounts[i+1:], accounts[i:])
	accounts[i] = account
	return store.PutJSON(tx, keyAccounts, accounts)
}

// BalanceOf returns the balance of the account. Unknown accounts have a zero
// balance.
func (l *Ledger) BalanceOf(g store.Getter, account common.Address) (*uint256.Int, error) {
	return getAmount(g, keyBalanceFor(account))
}

// TotalSupply returns the amount of tokens in existence.
func (l *Ledger) TotalSupply(g store.Getter) (*uint256.Int, error) {
	return getAmount(g, keySupply)
}

// Mint credits amount new tokens to the account. The caller must be the
// bound settlement authority. Minting zero is a no-op.
func (l *Ledger) Mint(tx store.Tx, caller, account common.Address, amount *uint256.Int) error {
	authority, ok, err := l.roles.SettlementAuthority(tx)
	if err != nil {
		return err
	}
	if !ok || caller != authority {
		return backend.UserError{
			ErrorCode:    backend.ErrorCodeUnauthorized,
			ErrorContext: caller.Hex() + " is not the settlement authority",
		}
	}
	if account == (common.Address{}) {
		return backend.UserError{
			ErrorCode:    backend.ErrorCodeAddressInvalid,
			ErrorContext: "mint to the zero address",
		}
	}
	if amount.IsZero() {
		return nil
	}

	balance, err := l.BalanceOf(tx, account)
	if err != nil {
		return err
	}
	supply, err := l.TotalSupply(tx)
	if err != nil {
		return err
	}
	newBalance, overflow := new(uint256.Int).AddOverflow(balance, amount)
	if overflow {
		return backend.UserError{
			ErrorCode:    backend.ErrorCodeOverflow,
			ErrorContext: "balance",
		}
	}
	newSupply, overflow := new(uint256.Int).AddOverflow(supply, amount)
	if overflow {
		return backend.UserError{
			ErrorCode:    backend.ErrorCodeOverflow,
			ErrorContext: "total supply",
		}
	}

	err = putAmount(tx, keyBalanceFor(account), newBalance)
	if err != nil {
		return err
	}
	err = putAmount(tx, keySupply, newSupply)
	if err != nil {
		return err
	}
	err = l.track(tx, account)
	if err != nil {
		return err
	}
	_, err = l.outbox.Append(tx, v1.EventTypeTransfer, v1.EventTransfer{
		From:  common.Address{}.Hex(),
		To:    account.Hex(),
		Value: amount.Dec(),
	})
	if err != nil {
		return err
	}

	log.Debugf("Minted %v to %v", amount.Dec(), account)

	return nil
}

// Transfer moves amount tokens from the sender to the recipient.
func (l *Ledger) Transfer(tx store.Tx, from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return backend.UserError{
			ErrorCode:    backend.ErrorCodeAddressInvalid,
			ErrorContext: "transfer to the zero address",
		}
	}
	fromBalance, err := l.BalanceOf(tx, from)
	if err != nil {
		return err
	}
	if fromBalance.Lt(amount) {
		return backend.UserError{
			ErrorCode: backend.ErrorCodeInsufficientBalance,
			ErrorContext: "balance " + fromBalance.Dec() +
				" is less than " + amount.Dec(),
		}
	}
	if amount.IsZero() || from == to {
		return nil
	}
	toBalance, err := l.BalanceOf(tx, to)
	if err != nil {
		return err
	}
	// The recipient can not overflow since the supply bounds every
	// balance.
	newFrom := new(uint256.Int).Sub(fromBalance, amount)
	newTo := new(uint256.Int).Add(toBalance, amount)

	err = putAmount(tx, keyBalanceFor(from), newFrom)
	if err != nil {
		return err
	}
	err = putAmount(tx, keyBalanceFor(to), newTo)
	if err != nil {
		return err
	}
	err = l.track(tx, to)
	if err != nil {
		return err
	}
	_, err = l.outbox.Append(tx, v1.EventTypeTransfer, v1.EventTransfer{
		From:  from.Hex(),
		To:    to.Hex(),
		Value: amount.Dec(),
	})
	return err
}

// SumBalances returns the sum of every account balance.
func (l *Ledger) SumBalances(g store.Getter) (*uint256.Int, error) {
	accounts, err := l.Accounts(g)
	if err != nil {
		return nil, err
	}
	sum := uint256.NewInt(0)
	for _, a := range accounts {
		b, err := l.BalanceOf(g, a)
		if err != nil {
			return nil, err
		}
		var overflow bool
		sum, overflow = sum.AddOverflow(sum, b)
		if overflow {
			return nil, errors.Errorf("sum of balances overflows")
		}
	}
	return sum, nil
}
