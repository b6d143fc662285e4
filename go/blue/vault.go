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
	"golang.org/x/exp/slices"
)

// Vault is the state of a MetaMorpho vault, an ERC-4626 vault allocating
// its deposits into lending markets.
type Vault struct {
	Address        Address
	Asset          Address
	Symbol         string
	Name           string
	DecimalsOffset uint8
	// TotalAssets is the amount of assets the vault holds across all
	// markets of its withdraw queue.
	TotalAssets U256
	// LastTotalAssets is the total assets recorded at the last interaction,
	// used to compute the performance fee on interest earned since.
	LastTotalAssets U256
	TotalSupply     U256
	Fee             U256
	FeeRecipient    Address
	Owner           Address
	Curator         Address
	Guardian        Address
	SupplyQueue     []MarketId
	WithdrawQueue   []MarketId
}

// ToShares converts assets into vault shares using the vault's current
// totals, including the virtual offset protecting against inflation.
func (v Vault) ToShares(assets U256, rounding Rounding) (U256, error) {
	return v.toSharesWithTotals(assets, v.TotalSupply, v.TotalAssets, rounding)
}

// ToAssets converts vault shares into assets.
func (v Vault) ToAssets(shares U256, rounding Rounding) (U256, error) {
	return v.toAssetsWithTotals(shares, v.TotalSupply, v.TotalAssets, rounding)
}

func (v Vault) toSharesWithTotals(assets, totalSupply, totalAssets U256, rounding Rounding) (U256, error) {
	supply, err := CheckedAdd(totalSupply, Pow10(uint64(v.DecimalsOffset)))
	if err != nil {
		return U256{}, err
	}
	denominator, err := CheckedAdd(totalAssets, NewU256(1))
	if err != nil {
		return U256{}, err
	}
	return FullMulDiv(assets, supply, denominator, rounding)
}

func (v Vault) toAssetsWithTotals(shares, totalSupply, totalAssets U256, rounding Rounding) (U256, error) {
	assets, err := CheckedAdd(totalAssets, NewU256(1))
	if err != nil {
		return U256{}, err
	}
	denominator, err := CheckedAdd(totalSupply, Pow10(uint64(v.DecimalsOffset)))
	if err != nil {
		return U256{}, err
	}
	return FullMulDiv(shares, assets, denominator, rounding)
}

// AccruedFeeShares computes the shares minted to the fee recipient for the
// interest earned since the last interaction.
func (v Vault) AccruedFeeShares() (U256, error) {
	interest := v.TotalAssets.ZeroFloorSub(v.LastTotalAssets)
	if interest.IsZero() || v.Fee.IsZero() {
		return U256{}, nil
	}
	feeAssets, err := FullMulDiv(interest, v.Fee, Wad, RoundDown)
	if err != nil {
		return U256{}, err
	}
	// The fee is taken from the interest, so it is excluded from the total
	// assets the shares are priced against.
	return v.toSharesWithTotals(feeAssets, v.TotalSupply, v.TotalAssets.Sub(feeAssets), RoundDown)
}

// IsAllocator reports whether account may reallocate the vault's funds.
func (v Vault) IsAllocator(user VaultUser) bool {
	return user.IsAllocator || user.User == v.Owner || user.User == v.Curator
}

func (v Vault) Clone() Vault {
	v.SupplyQueue = slices.Clone(v.SupplyQueue)
	v.WithdrawQueue = slices.Clone(v.WithdrawQueue)
	return v
}

func (v Vault) Eq(o Vault) bool {
	return v.Address == o.Address &&
		v.Asset == o.Asset &&
		v.Symbol == o.Symbol &&
		v.Name == o.Name &&
		v.DecimalsOffset == o.DecimalsOffset &&
		v.TotalAssets == o.TotalAssets &&
		v.LastTotalAssets == o.LastTotalAssets &&
		v.TotalSupply == o.TotalSupply &&
		v.Fee == o.Fee &&
		v.FeeRecipient == o.FeeRecipient &&
		v.Owner == o.Owner &&
		v.Curator == o.Curator &&
		v.Guardian == o.Guardian &&
		slices.Equal(v.SupplyQueue, o.SupplyQueue) &&
		slices.Equal(v.WithdrawQueue, o.WithdrawQueue)
}

func (v Vault) String() string {
	return fmt.Sprintf(
		"Vault{address: %v, asset: %v, totalAssets: %v, totalSupply: %v}",
		v.Address, v.Asset, v.TotalAssets, v.TotalSupply,
	)
}

// VaultUser is the per-user state of a vault.
type VaultUser struct {
	Vault       Address
	User        Address
	IsAllocator bool
	// Allowance is the amount of the vault's asset the user approved the
	// vault to pull.
	Allowance U256
}

// PendingCap is a cap increase waiting for its timelock to elapse.
type PendingCap struct {
	Value   U256
	ValidAt uint64
}

// PublicAllocatorConfig limits the flows the public allocator may move in
// and out of a market on behalf of the vault.
type PublicAllocatorConfig struct {
	MaxIn  U256
	MaxOut U256
}

// VaultMarketConfig is the configuration of a market within a vault.
type VaultMarketConfig struct {
	Vault                 Address
	MarketId              MarketId
	Cap                   U256
	PendingCap            PendingCap
	Enabled               bool
	RemovableAt           uint64
	PublicAllocatorConfig *PublicAllocatorConfig `json:",omitempty"`
}
