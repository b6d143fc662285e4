// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package blue

import (
	"fmt"

	. "github.com/Fantom-foundation/blue-simulation/go/common"
	"golang.org/x/exp/maps"
)

// MaxUint160 is the largest Permit2 allowance. Permit2 treats it as an
// infinite allowance that is never decreased.
var MaxUint160 = NewU256(0, 0xffffffff, 0xffffffffffffffff, 0xffffffffffffffff)

// Token is the static configuration of an ERC20 token.
type Token struct {
	Address  Address
	Decimals uint8
	Symbol   string
	Name     string
}

// Permit2Allowance is an allowance granted through the Permit2 contract.
type Permit2Allowance struct {
	Amount     U256
	Expiration uint64
	Nonce      uint64
}

// Holding is the balance and allowances of a user for a single token.
//
// Holdings are values shared between snapshots. The allowance maps must
// never be modified in place; use the With* methods to derive an updated
// copy instead.
type Holding struct {
	User              Address
	Token             Address
	Balance           U256
	Erc20Allowances   map[Address]U256             `json:",omitempty"`
	Permit2Allowances map[Address]Permit2Allowance `json:",omitempty"`
}

// NewHolding creates the zero-value holding of user for token.
func NewHolding(user, token Address) Holding {
	return Holding{User: user, Token: token}
}

// Erc20Allowance is the amount spender may transfer on behalf of the user.
func (h Holding) Erc20Allowance(spender Address) U256 {
	return h.Erc20Allowances[spender]
}

// Permit2Allowance is the allowance spender holds through Permit2.
func (h Holding) Permit2Allowance(spender Address) Permit2Allowance {
	return h.Permit2Allowances[spender]
}

func (h Holding) WithBalance(balance U256) Holding {
	h.Balance = balance
	return h
}

func (h Holding) WithErc20Allowance(spender Address, amount U256) Holding {
	allowances := maps.Clone(h.Erc20Allowances)
	if allowances == nil {
		allowances = make(map[Address]U256, 1)
	}
	allowances[spender] = amount
	h.Erc20Allowances = allowances
	return h
}

func (h Holding) WithPermit2Allowance(spender Address, allowance Permit2Allowance) Holding {
	allowances := maps.Clone(h.Permit2Allowances)
	if allowances == nil {
		allowances = make(map[Address]Permit2Allowance, 1)
	}
	allowances[spender] = allowance
	h.Permit2Allowances = allowances
	return h
}

func (h Holding) Eq(o Holding) bool {
	return h.User == o.User &&
		h.Token == o.Token &&
		h.Balance == o.Balance &&
		equalIgnoringZeroValues(h.Erc20Allowances, o.Erc20Allowances) &&
		equalIgnoringZeroValues(h.Permit2Allowances, o.Permit2Allowances)
}

func (h Holding) String() string {
	return fmt.Sprintf("Holding{user: %v, token: %v, balance: %v}", h.User, h.Token, h.Balance)
}

// equalIgnoringZeroValues compares two maps, treating missing entries as
// zero values.
func equalIgnoringZeroValues[K comparable, V comparable](a, b map[K]V) bool {
	var zero V
	for key, valueA := range a {
		if valueB, contained := b[key]; !contained && valueA != zero {
			return false
		} else if contained && valueA != valueB {
			return false
		}
	}
	for key, valueB := range b {
		if _, contained := a[key]; !contained && valueB != zero {
			return false
		}
	}
	return true
}

// Position is a user's supply, borrow, and collateral in one market.
type Position struct {
	User         Address
	MarketId     MarketId
	SupplyShares U256
	BorrowShares U256
	Collateral   U256
}

// NewPosition creates the zero-value position of user in market.
func NewPosition(user Address, market MarketId) Position {
	return Position{User: user, MarketId: market}
}

// User is the per-account state of the lending market.
type User struct {
	Address             Address
	IsBundlerAuthorized bool
	MorphoNonce         uint64
}
