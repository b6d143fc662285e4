// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package simulation

import (
	"github.com/Fantom-foundation/blue-simulation/go/blue"
	. "github.com/Fantom-foundation/blue-simulation/go/common"
)

// getVault loads the vault an operation is addressed to and accrues its
// performance fee, as done on every entry point of the vault.
func (r *reducer) getVault(address Address) (blue.Vault, error) {
	vault, found := r.editor.GetVault(address)
	if !found {
		return blue.Vault{}, &VaultNotEnabledError{Vault: address}
	}
	feeShares, err := vault.AccruedFeeShares()
	if err != nil {
		return blue.Vault{}, err
	}
	if !feeShares.IsZero() {
		if err := r.mint(vault.Address, vault.FeeRecipient, feeShares); err != nil {
			return blue.Vault{}, err
		}
		if vault.TotalSupply, err = CheckedAdd(vault.TotalSupply, feeShares); err != nil {
			return blue.Vault{}, err
		}
	}
	vault.LastTotalAssets = vault.TotalAssets
	return vault, nil
}

// vaultSupplyAssets is the amount of assets the vault supplies to a market.
// Cap checks price the supply rounded up, withdrawals rounded down.
func (r *reducer) vaultSupplyAssets(vault Address, market blue.Market, rounding Rounding) (U256, error) {
	position := r.editor.GetPosition(vault, market.Id())
	return market.ToSupplyAssets(position.SupplyShares, rounding)
}

func (r *reducer) metaMorphoDeposit(op MetaMorphoDeposit) error {
	vault, err := r.getVault(op.Address)
	if err != nil {
		return err
	}
	shares, err := vault.ToShares(op.Assets, RoundDown)
	if err != nil {
		return err
	}
	return r.deposit(vault, op.Sender, op.Owner, op.Assets, shares)
}

func (r *reducer) metaMorphoMint(op MetaMorphoMint) error {
	vault, err := r.getVault(op.Address)
	if err != nil {
		return err
	}
	assets, err := vault.ToAssets(op.Shares, RoundUp)
	if err != nil {
		return err
	}
	return r.deposit(vault, op.Sender, op.Owner, assets, op.Shares)
}

func (r *reducer) deposit(vault blue.Vault, sender, owner Address, assets, shares U256) error {
	if owner == (Address{}) {
		return ErrZeroAddress
	}
	if err := r.transfer(vault.Asset, vault.Address, sender, vault.Address, assets); err != nil {
		return err
	}
	if err := r.mint(vault.Address, owner, shares); err != nil {
		return err
	}
	if err := r.supplyVaultAssets(vault, assets); err != nil {
		return err
	}

	var err error
	if vault.TotalSupply, err = CheckedAdd(vault.TotalSupply, shares); err != nil {
		return err
	}
	if vault.TotalAssets, err = CheckedAdd(vault.TotalAssets, assets); err != nil {
		return err
	}
	vault.LastTotalAssets = vault.TotalAssets
	r.editor.SetVault(vault)
	return nil
}

// supplyVaultAssets allocates deposited assets along the supply queue,
// filling each market up to its cap.
func (r *reducer) supplyVaultAssets(vault blue.Vault, assets U256) error {
	remaining := assets
	for _, id := range vault.SupplyQueue {
		if remaining.IsZero() {
			break
		}
		config, found := r.editor.GetVaultMarketConfig(vault.Address, id)
		if !found || !config.Enabled || config.Cap.IsZero() {
			continue
		}
		market, err := r.getMarket(id)
		if err != nil {
			return err
		}
		supplied, err := r.vaultSupplyAssets(vault.Address, market, RoundUp)
		if err != nil {
			return err
		}
		toSupply := Min(config.Cap.ZeroFloorSub(supplied), remaining)
		if toSupply.IsZero() {
			continue
		}
		if _, _, err := r.supply(vault.Address, id, toSupply, U256{}, vault.Address); err != nil {
			return err
		}
		remaining = remaining.Sub(toSupply)
	}
	if !remaining.IsZero() {
		return &CapExceededError{Vault: vault.Address}
	}
	return nil
}

func (r *reducer) metaMorphoWithdraw(op MetaMorphoWithdraw) error {
	vault, err := r.getVault(op.Address)
	if err != nil {
		return err
	}
	shares, err := vault.ToShares(op.Assets, RoundUp)
	if err != nil {
		return err
	}
	return r.redeem(vault, op.Sender, op.Owner, op.Receiver, op.Assets, shares)
}

func (r *reducer) metaMorphoRedeem(op MetaMorphoRedeem) error {
	vault, err := r.getVault(op.Address)
	if err != nil {
		return err
	}
	assets, err := vault.ToAssets(op.Shares, RoundDown)
	if err != nil {
		return err
	}
	return r.redeem(vault, op.Sender, op.Owner, op.Receiver, assets, op.Shares)
}

func (r *reducer) redeem(vault blue.Vault, sender, owner, receiver Address, assets, shares U256) error {
	if receiver == (Address{}) {
		return ErrZeroAddress
	}
	if err := r.spendAllowance(vault.Address, owner, sender, shares); err != nil {
		return err
	}
	if err := r.burn(vault.Address, owner, shares); err != nil {
		return err
	}
	if err := r.withdrawVaultAssets(vault, assets); err != nil {
		return err
	}
	if err := r.transfer(vault.Asset, vault.Address, vault.Address, receiver, assets); err != nil {
		return err
	}

	var err error
	if vault.TotalSupply, err = CheckedSub(vault.TotalSupply, shares); err != nil {
		return err
	}
	vault.TotalAssets = vault.TotalAssets.ZeroFloorSub(assets)
	vault.LastTotalAssets = vault.TotalAssets
	r.editor.SetVault(vault)
	return nil
}

// withdrawVaultAssets frees assets along the withdraw queue, limited by the
// vault's supply and the liquidity of each market.
func (r *reducer) withdrawVaultAssets(vault blue.Vault, assets U256) error {
	remaining := assets
	for _, id := range vault.WithdrawQueue {
		if remaining.IsZero() {
			break
		}
		market, err := r.getMarket(id)
		if err != nil {
			return err
		}
		supplied, err := r.vaultSupplyAssets(vault.Address, market, RoundDown)
		if err != nil {
			return err
		}
		toWithdraw := Min(Min(supplied, market.Liquidity()), remaining)
		if toWithdraw.IsZero() {
			continue
		}
		if _, _, err := r.withdraw(vault.Address, id, toWithdraw, U256{}, vault.Address, vault.Address); err != nil {
			return err
		}
		remaining = remaining.Sub(toWithdraw)
	}
	if !remaining.IsZero() {
		return &InsufficientVaultLiquidityError{Vault: vault.Address}
	}
	return nil
}

// metaMorphoReallocate moves the vault's supply between markets. The
// performance fee is not accrued, so the vault record stays untouched.
func (r *reducer) metaMorphoReallocate(op MetaMorphoReallocate) error {
	vault, found := r.editor.GetVault(op.Address)
	if !found {
		return &VaultNotEnabledError{Vault: op.Address}
	}
	if !vault.IsAllocator(r.editor.GetVaultUser(vault.Address, op.Sender)) {
		return &UnauthorizedError{Sender: op.Sender, Target: vault.Address}
	}

	var totalWithdrawn, totalSupplied U256
	for _, allocation := range op.Allocations {
		id := allocation.Id
		config, found := r.editor.GetVaultMarketConfig(vault.Address, id)
		if !found || !config.Enabled {
			return &MarketNotEnabledError{Market: id, Vault: &vault.Address}
		}
		market, err := r.getMarket(id)
		if err != nil {
			return err
		}
		position := r.editor.GetPosition(vault.Address, id)
		supplied, err := market.ToSupplyAssets(position.SupplyShares, RoundDown)
		if err != nil {
			return err
		}

		if supplied.Gt(allocation.Assets) {
			// A zero target withdraws all shares, leaving no dust behind.
			toWithdraw, shares := supplied.Sub(allocation.Assets), U256{}
			if allocation.Assets.IsZero() {
				toWithdraw, shares = U256{}, position.SupplyShares
			}
			withdrawn, _, err := r.withdraw(vault.Address, id, toWithdraw, shares, vault.Address, vault.Address)
			if err != nil {
				return err
			}
			if totalWithdrawn, err = CheckedAdd(totalWithdrawn, withdrawn); err != nil {
				return err
			}
			continue
		}

		var toSupply U256
		if allocation.Assets == MaxU256() {
			toSupply = totalWithdrawn.ZeroFloorSub(totalSupplied)
		} else {
			toSupply = allocation.Assets.Sub(supplied)
		}
		if toSupply.IsZero() {
			continue
		}
		if config.Cap.IsZero() {
			return &MarketNotEnabledError{Market: id, Vault: &vault.Address}
		}
		if capacity := config.Cap.ZeroFloorSub(supplied); toSupply.Gt(capacity) {
			return &CapExceededError{Vault: vault.Address, Market: &id}
		}
		suppliedAssets, _, err := r.supply(vault.Address, id, toSupply, U256{}, vault.Address)
		if err != nil {
			return err
		}
		if totalSupplied, err = CheckedAdd(totalSupplied, suppliedAssets); err != nil {
			return err
		}
	}
	if totalWithdrawn != totalSupplied {
		return &InconsistentInputError{Reason: "withdrawn and supplied assets of reallocation differ"}
	}
	return nil
}
