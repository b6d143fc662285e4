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
	"errors"

	"github.com/Fantom-foundation/blue-simulation/go/blue"
	. "github.com/Fantom-foundation/blue-simulation/go/common"
)

func (r *reducer) getMarket(id blue.MarketId) (blue.Market, error) {
	market, found := r.editor.GetMarket(id)
	if !found || !market.IsCreated() {
		return blue.Market{}, &MarketNotEnabledError{Market: id}
	}
	return market, nil
}

// exactlyOneZero mirrors the input validation of the lending market, which
// expects either an amount of assets or of shares.
func exactlyOneZero(assets, shares U256) bool {
	return assets.IsZero() != shares.IsZero()
}

// checkAuthorization verifies that sender may manage the position of
// onBehalf. Besides the owner itself, only the bundler may do so, and only
// if it was authorized by the owner.
func (r *reducer) checkAuthorization(sender, onBehalf Address) error {
	if sender == onBehalf {
		return nil
	}
	if sender == r.addresses.Bundler && r.editor.GetUser(onBehalf).IsBundlerAuthorized {
		return nil
	}
	return &UnauthorizedError{Sender: sender, Target: onBehalf}
}

// checkHealth fails if the position is not sufficiently collateralized.
func checkHealth(market blue.Market, position blue.Position) error {
	healthy, err := market.IsHealthy(position)
	if errors.Is(err, blue.ErrUnknownPrice) {
		return &UnknownOraclePriceError{Market: market.Id()}
	}
	if err != nil {
		return err
	}
	if !healthy {
		return &InsufficientCollateralError{Market: market.Id(), User: position.User}
	}
	return nil
}

func (r *reducer) blueSupply(op BlueSupply) error {
	_, _, err := r.supply(op.Sender, op.Id, op.Assets, op.Shares, op.OnBehalf)
	return err
}

// supply adds assets to a market on behalf of a user. It returns the
// supplied assets and minted shares.
func (r *reducer) supply(sender Address, id blue.MarketId, assets, shares U256, onBehalf Address) (U256, U256, error) {
	market, err := r.getMarket(id)
	if err != nil {
		return U256{}, U256{}, err
	}
	if !exactlyOneZero(assets, shares) {
		return U256{}, U256{}, &InconsistentInputError{Reason: "exactly one of assets and shares must be non-zero"}
	}
	if onBehalf == (Address{}) {
		return U256{}, U256{}, ErrZeroAddress
	}

	if !assets.IsZero() {
		shares, err = market.ToSupplyShares(assets, RoundDown)
	} else {
		assets, err = market.ToSupplyAssets(shares, RoundUp)
	}
	if err != nil {
		return U256{}, U256{}, err
	}

	position := r.editor.GetPosition(onBehalf, id)
	if position.SupplyShares, err = CheckedAdd(position.SupplyShares, shares); err != nil {
		return U256{}, U256{}, err
	}
	if market.TotalSupplyShares, err = CheckedAdd(market.TotalSupplyShares, shares); err != nil {
		return U256{}, U256{}, err
	}
	if market.TotalSupplyAssets, err = CheckedAdd(market.TotalSupplyAssets, assets); err != nil {
		return U256{}, U256{}, err
	}
	r.editor.SetPosition(position)
	r.editor.SetMarket(market)

	if err := r.transfer(market.Params.LoanToken, r.addresses.Morpho, sender, r.addresses.Morpho, assets); err != nil {
		return U256{}, U256{}, err
	}
	return assets, shares, nil
}

func (r *reducer) blueWithdraw(op BlueWithdraw) error {
	_, _, err := r.withdraw(op.Sender, op.Id, op.Assets, op.Shares, op.OnBehalf, op.Receiver)
	return err
}

// withdraw removes assets supplied by onBehalf from a market. It returns the
// withdrawn assets and burned shares.
func (r *reducer) withdraw(sender Address, id blue.MarketId, assets, shares U256, onBehalf, receiver Address) (U256, U256, error) {
	market, err := r.getMarket(id)
	if err != nil {
		return U256{}, U256{}, err
	}
	if !exactlyOneZero(assets, shares) {
		return U256{}, U256{}, &InconsistentInputError{Reason: "exactly one of assets and shares must be non-zero"}
	}
	if receiver == (Address{}) {
		return U256{}, U256{}, ErrZeroAddress
	}
	if err := r.checkAuthorization(sender, onBehalf); err != nil {
		return U256{}, U256{}, err
	}

	if !assets.IsZero() {
		shares, err = market.ToSupplyShares(assets, RoundUp)
	} else {
		assets, err = market.ToSupplyAssets(shares, RoundDown)
	}
	if err != nil {
		return U256{}, U256{}, err
	}

	position := r.editor.GetPosition(onBehalf, id)
	var underflow bool
	if position.SupplyShares, underflow = position.SupplyShares.SubUnderflow(shares); underflow {
		return U256{}, U256{}, &InsufficientSharesError{Market: id, User: onBehalf}
	}
	if market.TotalSupplyShares, err = CheckedSub(market.TotalSupplyShares, shares); err != nil {
		return U256{}, U256{}, err
	}
	if market.TotalSupplyAssets, underflow = market.TotalSupplyAssets.SubUnderflow(assets); underflow {
		return U256{}, U256{}, &InsufficientLiquidityError{Market: id}
	}
	if market.TotalBorrowAssets.Gt(market.TotalSupplyAssets) {
		return U256{}, U256{}, &InsufficientLiquidityError{Market: id}
	}
	r.editor.SetPosition(position)
	r.editor.SetMarket(market)

	if err := r.transfer(market.Params.LoanToken, r.addresses.Morpho, r.addresses.Morpho, receiver, assets); err != nil {
		return U256{}, U256{}, err
	}
	return assets, shares, nil
}

func (r *reducer) blueBorrow(op BlueBorrow) error {
	market, err := r.getMarket(op.Id)
	if err != nil {
		return err
	}
	if !exactlyOneZero(op.Assets, op.Shares) {
		return &InconsistentInputError{Reason: "exactly one of assets and shares must be non-zero"}
	}
	if op.Receiver == (Address{}) {
		return ErrZeroAddress
	}
	if err := r.checkAuthorization(op.Sender, op.OnBehalf); err != nil {
		return err
	}

	assets, shares := op.Assets, op.Shares
	if !assets.IsZero() {
		shares, err = market.ToBorrowShares(assets, RoundUp)
	} else {
		assets, err = market.ToBorrowAssets(shares, RoundDown)
	}
	if err != nil {
		return err
	}

	position := r.editor.GetPosition(op.OnBehalf, op.Id)
	if position.BorrowShares, err = CheckedAdd(position.BorrowShares, shares); err != nil {
		return err
	}
	if market.TotalBorrowShares, err = CheckedAdd(market.TotalBorrowShares, shares); err != nil {
		return err
	}
	if market.TotalBorrowAssets, err = CheckedAdd(market.TotalBorrowAssets, assets); err != nil {
		return err
	}
	if err := checkHealth(market, position); err != nil {
		return err
	}
	if market.TotalBorrowAssets.Gt(market.TotalSupplyAssets) {
		return &InsufficientLiquidityError{Market: op.Id}
	}
	r.editor.SetPosition(position)
	r.editor.SetMarket(market)

	return r.transfer(market.Params.LoanToken, r.addresses.Morpho, r.addresses.Morpho, op.Receiver, assets)
}

func (r *reducer) blueRepay(op BlueRepay) error {
	market, err := r.getMarket(op.Id)
	if err != nil {
		return err
	}
	if !exactlyOneZero(op.Assets, op.Shares) {
		return &InconsistentInputError{Reason: "exactly one of assets and shares must be non-zero"}
	}
	if op.OnBehalf == (Address{}) {
		return ErrZeroAddress
	}

	assets, shares := op.Assets, op.Shares
	if !assets.IsZero() {
		shares, err = market.ToBorrowShares(assets, RoundDown)
	} else {
		assets, err = market.ToBorrowAssets(shares, RoundUp)
	}
	if err != nil {
		return err
	}

	position := r.editor.GetPosition(op.OnBehalf, op.Id)
	var underflow bool
	if position.BorrowShares, underflow = position.BorrowShares.SubUnderflow(shares); underflow {
		return &InsufficientSharesError{Market: op.Id, User: op.OnBehalf}
	}
	if market.TotalBorrowShares, err = CheckedSub(market.TotalBorrowShares, shares); err != nil {
		return err
	}
	market.TotalBorrowAssets = market.TotalBorrowAssets.ZeroFloorSub(assets)
	r.editor.SetPosition(position)
	r.editor.SetMarket(market)

	return r.transfer(market.Params.LoanToken, r.addresses.Morpho, op.Sender, r.addresses.Morpho, assets)
}

func (r *reducer) blueSupplyCollateral(op BlueSupplyCollateral) error {
	market, err := r.getMarket(op.Id)
	if err != nil {
		return err
	}
	if op.Assets.IsZero() {
		return &InconsistentInputError{Reason: "zero assets"}
	}
	if op.OnBehalf == (Address{}) {
		return ErrZeroAddress
	}

	position := r.editor.GetPosition(op.OnBehalf, op.Id)
	if position.Collateral, err = CheckedAdd(position.Collateral, op.Assets); err != nil {
		return err
	}
	r.editor.SetPosition(position)

	return r.transfer(market.Params.CollateralToken, r.addresses.Morpho, op.Sender, r.addresses.Morpho, op.Assets)
}

func (r *reducer) blueWithdrawCollateral(op BlueWithdrawCollateral) error {
	market, err := r.getMarket(op.Id)
	if err != nil {
		return err
	}
	if op.Assets.IsZero() {
		return &InconsistentInputError{Reason: "zero assets"}
	}
	if op.Receiver == (Address{}) {
		return ErrZeroAddress
	}
	if err := r.checkAuthorization(op.Sender, op.OnBehalf); err != nil {
		return err
	}

	position := r.editor.GetPosition(op.OnBehalf, op.Id)
	var underflow bool
	if position.Collateral, underflow = position.Collateral.SubUnderflow(op.Assets); underflow {
		return &InsufficientCollateralError{Market: op.Id, User: op.OnBehalf}
	}
	if err := checkHealth(market, position); err != nil {
		return err
	}
	r.editor.SetPosition(position)

	return r.transfer(market.Params.CollateralToken, r.addresses.Morpho, r.addresses.Morpho, op.Receiver, op.Assets)
}

func (r *reducer) blueLiquidate(op BlueLiquidate) error {
	market, err := r.getMarket(op.Id)
	if err != nil {
		return err
	}
	if !exactlyOneZero(op.SeizedAssets, op.RepaidShares) {
		return &InconsistentInputError{Reason: "exactly one of seized assets and repaid shares must be non-zero"}
	}

	position := r.editor.GetPosition(op.Borrower, op.Id)
	healthy, err := market.IsHealthy(position)
	if errors.Is(err, blue.ErrUnknownPrice) {
		return &UnknownOraclePriceError{Market: op.Id}
	}
	if err != nil {
		return err
	}
	if healthy {
		return &HealthyPositionError{Market: op.Id, Borrower: op.Borrower}
	}

	price := *market.Price
	incentive, err := market.LiquidationIncentiveFactor()
	if err != nil {
		return err
	}
	seizedAssets, repaidShares := op.SeizedAssets, op.RepaidShares
	if !seizedAssets.IsZero() {
		quoted, err := MulDiv(seizedAssets, price, OraclePriceScale, RoundUp)
		if err != nil {
			return err
		}
		repaid, err := WDivUp(quoted, incentive)
		if err != nil {
			return err
		}
		if repaidShares, err = market.ToBorrowShares(repaid, RoundUp); err != nil {
			return err
		}
	} else {
		repaid, err := market.ToBorrowAssets(repaidShares, RoundDown)
		if err != nil {
			return err
		}
		incentivized, err := WMulDown(repaid, incentive)
		if err != nil {
			return err
		}
		if seizedAssets, err = MulDiv(incentivized, OraclePriceScale, price, RoundDown); err != nil {
			return err
		}
	}
	repaidAssets, err := market.ToBorrowAssets(repaidShares, RoundUp)
	if err != nil {
		return err
	}

	var underflow bool
	if position.BorrowShares, underflow = position.BorrowShares.SubUnderflow(repaidShares); underflow {
		return &InsufficientSharesError{Market: op.Id, User: op.Borrower}
	}
	if market.TotalBorrowShares, err = CheckedSub(market.TotalBorrowShares, repaidShares); err != nil {
		return err
	}
	market.TotalBorrowAssets = market.TotalBorrowAssets.ZeroFloorSub(repaidAssets)
	if position.Collateral, underflow = position.Collateral.SubUnderflow(seizedAssets); underflow {
		return &InsufficientCollateralError{Market: op.Id, User: op.Borrower}
	}

	// Debt left without collateral is socialized among suppliers.
	if position.Collateral.IsZero() && !position.BorrowShares.IsZero() {
		badDebtShares := position.BorrowShares
		badDebtAssets, err := market.ToBorrowAssets(badDebtShares, RoundUp)
		if err != nil {
			return err
		}
		badDebtAssets = Min(market.TotalBorrowAssets, badDebtAssets)
		market.TotalBorrowAssets = market.TotalBorrowAssets.Sub(badDebtAssets)
		if market.TotalSupplyAssets, err = CheckedSub(market.TotalSupplyAssets, badDebtAssets); err != nil {
			return err
		}
		market.TotalBorrowShares = market.TotalBorrowShares.ZeroFloorSub(badDebtShares)
		position.BorrowShares = U256{}
	}
	r.editor.SetPosition(position)
	r.editor.SetMarket(market)

	if err := r.transfer(market.Params.CollateralToken, r.addresses.Morpho, r.addresses.Morpho, op.Sender, seizedAssets); err != nil {
		return err
	}
	return r.transfer(market.Params.LoanToken, r.addresses.Morpho, op.Sender, r.addresses.Morpho, repaidAssets)
}

func (r *reducer) blueAccrueInterest(op BlueAccrueInterest) error {
	market, err := r.getMarket(op.Id)
	if err != nil {
		return err
	}
	return r.accrueInterest(market)
}

// accrueInterest compounds the borrow rate of the market over the time
// elapsed since its last update. The interest is credited to the vaults
// supplying to the market.
func (r *reducer) accrueInterest(market blue.Market) error {
	timestamp := r.editor.Block().Timestamp
	if timestamp <= market.LastUpdate {
		return nil
	}
	id := market.Id()
	elapsed := NewU256(timestamp - market.LastUpdate)

	suppliers, err := r.vaultSupplies(market)
	if err != nil {
		return err
	}

	growth, err := WTaylorCompounded(market.BorrowRate, elapsed)
	if err != nil {
		return err
	}
	interest, err := WMulDown(market.TotalBorrowAssets, growth)
	if err != nil {
		return err
	}
	if market.TotalBorrowAssets, err = CheckedAdd(market.TotalBorrowAssets, interest); err != nil {
		return err
	}
	if market.TotalSupplyAssets, err = CheckedAdd(market.TotalSupplyAssets, interest); err != nil {
		return err
	}

	if !market.Fee.IsZero() {
		feeAmount, err := WMulDown(interest, market.Fee)
		if err != nil {
			return err
		}
		feeShares, err := ToShares(feeAmount, market.TotalSupplyAssets.Sub(feeAmount), market.TotalSupplyShares, RoundDown)
		if err != nil {
			return err
		}
		if !feeShares.IsZero() {
			recipient := r.editor.Global().FeeRecipient
			if recipient == nil {
				return ErrUnknownFeeRecipient
			}
			position := r.editor.GetPosition(*recipient, id)
			if position.SupplyShares, err = CheckedAdd(position.SupplyShares, feeShares); err != nil {
				return err
			}
			if market.TotalSupplyShares, err = CheckedAdd(market.TotalSupplyShares, feeShares); err != nil {
				return err
			}
			r.editor.SetPosition(position)
		}
	}
	market.LastUpdate = timestamp
	r.editor.SetMarket(market)

	return r.creditVaultInterest(market, suppliers)
}

// vaultSupplies lists the assets each vault supplies to the given market.
func (r *reducer) vaultSupplies(market blue.Market) (map[Address]U256, error) {
	res := map[Address]U256{}
	var err error
	r.editor.Base().Vaults().Range(func(address Address, _ blue.Vault) bool {
		position := r.editor.GetPosition(address, market.Id())
		if position.SupplyShares.IsZero() {
			return true
		}
		var assets U256
		assets, err = market.ToSupplyAssets(position.SupplyShares, RoundDown)
		res[address] = assets
		return err == nil
	})
	return res, err
}

func (r *reducer) creditVaultInterest(market blue.Market, before map[Address]U256) error {
	for address, assets := range before {
		vault, found := r.editor.GetVault(address)
		if !found {
			continue
		}
		after, err := market.ToSupplyAssets(r.editor.GetPosition(address, market.Id()).SupplyShares, RoundDown)
		if err != nil {
			return err
		}
		if vault.TotalAssets, err = CheckedAdd(vault.TotalAssets, after.ZeroFloorSub(assets)); err != nil {
			return err
		}
		r.editor.SetVault(vault)
	}
	return nil
}

func (r *reducer) blueSetAuthorization(op BlueSetAuthorization) error {
	user := r.editor.GetUser(op.Sender)
	if user.IsBundlerAuthorized == op.Authorized {
		return &InconsistentInputError{Reason: "authorization already set"}
	}
	user.IsBundlerAuthorized = op.Authorized
	r.editor.SetUser(user)
	return nil
}
