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
	"testing"

	"github.com/Fantom-foundation/blue-simulation/go/blue"
	. "github.com/Fantom-foundation/blue-simulation/go/common"
	"github.com/Fantom-foundation/blue-simulation/go/st"
)

func updateMarket(e *st.Editor, update func(*blue.Market)) {
	market, _ := e.GetMarket(testMarketId)
	update(&market)
	e.SetMarket(market)
}

func updatePosition(e *st.Editor, user Address, update func(*blue.Position)) {
	position := e.GetPosition(user, testMarketId)
	update(&position)
	e.SetPosition(position)
}

func TestBlue_Supply(t *testing.T) {
	tests := map[string]BlueSupply{
		"by assets": {Meta: Meta{Sender: alice, Address: morpho}, Id: testMarketId, Assets: NewU256(1000), OnBehalf: bob},
		"by shares": {Meta: Meta{Sender: alice, Address: morpho}, Id: testMarketId, Shares: NewU256(1_000_000_000), OnBehalf: bob},
	}
	for name, op := range tests {
		t.Run(name, func(t *testing.T) {
			scenario := Scenario{
				Before: newTestStateBuilder().
					AddHolding(blue.NewHolding(alice, usdc).WithBalance(NewU256(1500)).WithErc20Allowance(morpho, NewU256(1000))).
					Build(),
				Operations: []Operation{op},
				After: func(e *st.Editor) {
					updateMarket(e, func(m *blue.Market) {
						m.TotalSupplyAssets = NewU256(1_001_000)
						m.TotalSupplyShares = NewU256(1_001_000_000_000)
					})
					updatePosition(e, bob, func(p *blue.Position) {
						p.SupplyShares = NewU256(1_000_000_000)
					})
					e.SetHolding(e.GetHolding(alice, usdc).WithBalance(NewU256(500)).WithErc20Allowance(morpho, NewU256(0)))
					setBalance(e, morpho, usdc, 1_001_000)
				},
			}
			scenario.Run(t)
		})
	}
}

func TestBlue_SupplySharesRoundDown(t *testing.T) {
	// Once the market earned interest, a single asset buys slightly less
	// than a million shares.
	market := testMarket()
	market.TotalSupplyAssets = NewU256(1_000_001)
	before := newTestStateBuilder().
		AddMarket(market).
		AddHolding(blue.NewHolding(alice, usdc).WithBalance(NewU256(1)).WithErc20Allowance(morpho, NewU256(1))).
		Build()
	after, err := Apply(before, BlueSupply{Meta: Meta{Sender: alice, Address: morpho}, Id: testMarketId, Assets: NewU256(1), OnBehalf: alice})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 1 * (1e12 + 1e6) / (1_000_001 + 1)
	if want, got := NewU256(999_999), after.GetPosition(alice, testMarketId).SupplyShares; want != got {
		t.Errorf("unexpected shares, want %v, got %v", want, got)
	}
}

func TestBlue_InputValidation(t *testing.T) {
	unknown := blue.MarketId{1, 2, 3}
	meta := Meta{Sender: alice, Address: morpho}
	tests := map[string]struct {
		op   Operation
		want error
	}{
		"supply on unknown market": {
			op:   BlueSupply{Meta: meta, Id: unknown, Assets: NewU256(1), OnBehalf: alice},
			want: &MarketNotEnabledError{},
		},
		"supply without amounts": {
			op:   BlueSupply{Meta: meta, Id: testMarketId, OnBehalf: alice},
			want: &InconsistentInputError{},
		},
		"supply with assets and shares": {
			op:   BlueSupply{Meta: meta, Id: testMarketId, Assets: NewU256(1), Shares: NewU256(1), OnBehalf: alice},
			want: &InconsistentInputError{},
		},
		"supply on behalf of zero address": {
			op:   BlueSupply{Meta: meta, Id: testMarketId, Assets: NewU256(1)},
			want: ErrZeroAddress,
		},
		"withdraw without shares": {
			op:   BlueWithdraw{Meta: meta, Id: testMarketId, Assets: NewU256(1), OnBehalf: alice, Receiver: alice},
			want: &InsufficientSharesError{},
		},
		"withdraw of other user": {
			op:   BlueWithdraw{Meta: meta, Id: testMarketId, Assets: NewU256(1), OnBehalf: vaultAddress, Receiver: alice},
			want: &UnauthorizedError{},
		},
		"borrow without collateral": {
			op:   BlueBorrow{Meta: meta, Id: testMarketId, Assets: NewU256(1), OnBehalf: alice, Receiver: alice},
			want: &InsufficientCollateralError{},
		},
		"repay without debt": {
			op:   BlueRepay{Meta: meta, Id: testMarketId, Shares: NewU256(1), OnBehalf: alice},
			want: &InsufficientSharesError{},
		},
		"supply zero collateral": {
			op:   BlueSupplyCollateral{Meta: meta, Id: testMarketId, OnBehalf: alice},
			want: &InconsistentInputError{},
		},
		"withdraw missing collateral": {
			op:   BlueWithdrawCollateral{Meta: meta, Id: testMarketId, Assets: NewU256(1), OnBehalf: alice, Receiver: alice},
			want: &InsufficientCollateralError{},
		},
		"liquidate healthy position": {
			op:   BlueLiquidate{Meta: meta, Id: testMarketId, Borrower: bob, SeizedAssets: NewU256(1)},
			want: &HealthyPositionError{},
		},
		"accrue interest on unknown market": {
			op:   BlueAccrueInterest{Meta: meta, Id: unknown},
			want: &MarketNotEnabledError{},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			scenario := Scenario{
				Before:     newTestStateBuilder().Build(),
				Operations: []Operation{test.op},
				Error:      test.want,
			}
			scenario.Run(t)
		})
	}
}

func TestBlue_WithdrawOnBehalfRequiresBundlerAuthorization(t *testing.T) {
	builder := func() *st.StateBuilder {
		return newTestStateBuilder().
			AddPosition(blue.Position{User: alice, MarketId: testMarketId, SupplyShares: NewU256(1_000_000_000)})
	}
	op := BlueWithdraw{Meta: Meta{Sender: bundler, Address: morpho}, Id: testMarketId, Assets: NewU256(1000), OnBehalf: alice, Receiver: bob}

	unauthorized := Scenario{
		Before:     builder().Build(),
		Operations: []Operation{op},
		Error:      &UnauthorizedError{},
	}
	unauthorized.Run(t)

	authorized := Scenario{
		Before: builder().Build(),
		Operations: []Operation{
			BlueSetAuthorization{Meta: Meta{Sender: alice, Address: morpho}, Authorized: true},
			op,
		},
		After: func(e *st.Editor) {
			e.SetUser(blue.User{Address: alice, IsBundlerAuthorized: true})
			updatePosition(e, alice, func(p *blue.Position) {
				p.SupplyShares = NewU256(0)
			})
			updateMarket(e, func(m *blue.Market) {
				m.TotalSupplyAssets = NewU256(999_000)
				m.TotalSupplyShares = NewU256(999_000_000_000)
			})
			setBalance(e, morpho, usdc, 999_000)
			setBalance(e, bob, usdc, 1000)
		},
	}
	authorized.Run(t)
}

func TestBlue_SetAuthorizationTwiceFails(t *testing.T) {
	before := newTestStateBuilder().AddUser(blue.User{Address: alice, IsBundlerAuthorized: true}).Build()
	_, err := Apply(before, BlueSetAuthorization{Meta: Meta{Sender: alice, Address: morpho}, Authorized: true})
	var inputErr *InconsistentInputError
	if !errors.As(err, &inputErr) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBlue_BorrowAndRepay(t *testing.T) {
	scenario := Scenario{
		Before: newTestStateBuilder().
			AddHolding(blue.NewHolding(alice, weth).WithBalance(NewU256(1000)).WithErc20Allowance(morpho, MaxU256())).
			AddHolding(blue.NewHolding(alice, usdc).WithErc20Allowance(morpho, MaxU256())).
			Build(),
		Operations: []Operation{
			BlueSupplyCollateral{Meta: Meta{Sender: alice, Address: morpho}, Id: testMarketId, Assets: NewU256(1000), OnBehalf: alice},
			BlueBorrow{Meta: Meta{Sender: alice, Address: morpho}, Id: testMarketId, Assets: NewU256(860), OnBehalf: alice, Receiver: alice},
		},
		After: func(e *st.Editor) {
			updatePosition(e, alice, func(p *blue.Position) {
				p.Collateral = NewU256(1000)
				p.BorrowShares = NewU256(860_000_000)
			})
			updateMarket(e, func(m *blue.Market) {
				m.TotalBorrowAssets = NewU256(860)
				m.TotalBorrowShares = NewU256(860_000_000)
			})
			setBalance(e, alice, weth, 0)
			setBalance(e, morpho, weth, 1000)
			setBalance(e, alice, usdc, 860)
			setBalance(e, morpho, usdc, 1_000_000-860)
		},
	}
	states := scenario.Run(t)

	// repaying all shares restores the initial market
	repaid, err := Apply(states[2], BlueRepay{Meta: Meta{Sender: alice, Address: morpho}, Id: testMarketId, Shares: NewU256(860_000_000), OnBehalf: alice})
	if err != nil {
		t.Fatalf("failed to repay: %v", err)
	}
	market, _ := repaid.GetMarket(testMarketId)
	if !market.TotalBorrowAssets.IsZero() || !market.TotalBorrowShares.IsZero() {
		t.Errorf("unexpected debt after repayment: %v", market)
	}
	if want, got := NewU256(0), repaid.GetHolding(alice, usdc).Balance; want != got {
		t.Errorf("unexpected balance after repayment, want %v, got %v", want, got)
	}

	// borrowing a single asset more exceeds the collateral
	_, err = Apply(states[1], BlueBorrow{Meta: Meta{Sender: alice, Address: morpho}, Id: testMarketId, Assets: NewU256(861), OnBehalf: alice, Receiver: alice})
	var collateralErr *InsufficientCollateralError
	if !errors.As(err, &collateralErr) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBlue_BorrowBeyondLiquidityFails(t *testing.T) {
	before := newTestStateBuilder().
		AddPosition(blue.Position{User: alice, MarketId: testMarketId, Collateral: NewU256(2_000_000)}).
		Build()
	_, err := Apply(before, BlueBorrow{Meta: Meta{Sender: alice, Address: morpho}, Id: testMarketId, Assets: NewU256(1_000_001), OnBehalf: alice, Receiver: alice})
	var liquidityErr *InsufficientLiquidityError
	if !errors.As(err, &liquidityErr) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBlue_BorrowWithUnknownPriceFails(t *testing.T) {
	market := testMarket()
	market.Price = nil
	before := newTestStateBuilder().
		AddMarket(market).
		AddPosition(blue.Position{User: alice, MarketId: testMarketId, Collateral: NewU256(1000)}).
		Build()
	_, err := Apply(before, BlueBorrow{Meta: Meta{Sender: alice, Address: morpho}, Id: testMarketId, Assets: NewU256(1), OnBehalf: alice, Receiver: alice})
	var priceErr *UnknownOraclePriceError
	if !errors.As(err, &priceErr) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBlue_WithdrawCollateralKeepsPositionHealthy(t *testing.T) {
	before := newTestStateBuilder().
		AddMarket(func() blue.Market {
			m := testMarket()
			m.TotalBorrowAssets = NewU256(430)
			m.TotalBorrowShares = NewU256(430_000_000)
			return m
		}()).
		AddPosition(blue.Position{User: alice, MarketId: testMarketId, Collateral: NewU256(1000), BorrowShares: NewU256(430_000_000)}).
		AddHolding(blue.NewHolding(morpho, weth).WithBalance(NewU256(1000))).
		Build()

	after, err := Apply(before, BlueWithdrawCollateral{Meta: Meta{Sender: alice, Address: morpho}, Id: testMarketId, Assets: NewU256(500), OnBehalf: alice, Receiver: alice})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want, got := NewU256(500), after.GetPosition(alice, testMarketId).Collateral; want != got {
		t.Errorf("unexpected collateral, want %v, got %v", want, got)
	}

	// 499 collateral back at most floor(499 * 0.86) = 429 assets
	_, err = Apply(before, BlueWithdrawCollateral{Meta: Meta{Sender: alice, Address: morpho}, Id: testMarketId, Assets: NewU256(501), OnBehalf: alice, Receiver: alice})
	var collateralErr *InsufficientCollateralError
	if !errors.As(err, &collateralErr) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBlue_LiquidationRealizesBadDebt(t *testing.T) {
	market := testMarket()
	market.TotalBorrowAssets = NewU256(900)
	market.TotalBorrowShares = NewU256(900_000_000)
	scenario := Scenario{
		Before: newTestStateBuilder().
			AddMarket(market).
			AddPosition(blue.Position{User: bob, MarketId: testMarketId, Collateral: NewU256(500), BorrowShares: NewU256(900_000_000)}).
			AddHolding(blue.NewHolding(morpho, weth).WithBalance(NewU256(500))).
			AddHolding(blue.NewHolding(carol, usdc).WithBalance(NewU256(480)).WithErc20Allowance(morpho, NewU256(480))).
			Build(),
		Operations: []Operation{
			BlueLiquidate{Meta: Meta{Sender: carol, Address: morpho}, Id: testMarketId, Borrower: bob, SeizedAssets: NewU256(500)},
		},
		After: func(e *st.Editor) {
			e.SetPosition(blue.NewPosition(bob, testMarketId))
			updateMarket(e, func(m *blue.Market) {
				m.TotalBorrowAssets = NewU256(0)
				m.TotalBorrowShares = NewU256(0)
				m.TotalSupplyAssets = NewU256(999_580)
			})
			setBalance(e, morpho, weth, 0)
			setBalance(e, carol, weth, 500)
			e.SetHolding(e.GetHolding(carol, usdc).WithBalance(NewU256(0)).WithErc20Allowance(morpho, NewU256(0)))
			setBalance(e, morpho, usdc, 1_000_480)
		},
	}
	scenario.Run(t)
}

func TestBlue_BadDebtExceedingSupplyFails(t *testing.T) {
	market := testMarket()
	market.TotalSupplyAssets = NewU256(400)
	market.TotalSupplyShares = NewU256(400_000_000)
	market.TotalBorrowAssets = NewU256(900)
	market.TotalBorrowShares = NewU256(900_000_000)
	before := newTestStateBuilder().
		AddMarket(market).
		AddPosition(blue.Position{User: bob, MarketId: testMarketId, Collateral: NewU256(500), BorrowShares: NewU256(900_000_000)}).
		AddHolding(blue.NewHolding(morpho, weth).WithBalance(NewU256(500))).
		AddHolding(blue.NewHolding(carol, usdc).WithBalance(NewU256(480)).WithErc20Allowance(morpho, NewU256(480))).
		Build()

	// 420 assets of bad debt cannot be taken from 400 supplied assets.
	op := BlueLiquidate{Meta: Meta{Sender: carol, Address: morpho}, Id: testMarketId, Borrower: bob, SeizedAssets: NewU256(500)}
	if _, err := Apply(before, op); !errors.Is(err, ErrOverflow) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBlue_PartialLiquidation(t *testing.T) {
	market := testMarket()
	market.TotalBorrowAssets = NewU256(900)
	market.TotalBorrowShares = NewU256(900_000_000)
	before := newTestStateBuilder().
		AddMarket(market).
		AddPosition(blue.Position{User: bob, MarketId: testMarketId, Collateral: NewU256(1000), BorrowShares: NewU256(900_000_000)}).
		AddHolding(blue.NewHolding(morpho, weth).WithBalance(NewU256(1000))).
		AddHolding(blue.NewHolding(carol, usdc).WithBalance(NewU256(1000)).WithErc20Allowance(morpho, MaxU256())).
		Build()

	tests := map[string]struct {
		op           BlueLiquidate
		repaidShares U256
		repaidAssets U256
		seizedAssets U256
	}{
		"by seized assets": {
			op:           BlueLiquidate{Meta: Meta{Sender: carol, Address: morpho}, Id: testMarketId, Borrower: bob, SeizedAssets: NewU256(100)},
			repaidShares: NewU256(96_000_000),
			repaidAssets: NewU256(96),
			seizedAssets: NewU256(100),
		},
		"by repaid shares": {
			op:           BlueLiquidate{Meta: Meta{Sender: carol, Address: morpho}, Id: testMarketId, Borrower: bob, RepaidShares: NewU256(100_000_000)},
			repaidShares: NewU256(100_000_000),
			repaidAssets: NewU256(100),
			seizedAssets: NewU256(104),
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			after, err := Apply(before, test.op)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			position := after.GetPosition(bob, testMarketId)
			if want, got := NewU256(900_000_000).Sub(test.repaidShares), position.BorrowShares; want != got {
				t.Errorf("unexpected borrow shares, want %v, got %v", want, got)
			}
			if want, got := NewU256(1000).Sub(test.seizedAssets), position.Collateral; want != got {
				t.Errorf("unexpected collateral, want %v, got %v", want, got)
			}
			if want, got := NewU256(1000).Sub(test.repaidAssets), after.GetHolding(carol, usdc).Balance; want != got {
				t.Errorf("unexpected liquidator loan balance, want %v, got %v", want, got)
			}
			if want, got := test.seizedAssets, after.GetHolding(carol, weth).Balance; want != got {
				t.Errorf("unexpected liquidator collateral balance, want %v, got %v", want, got)
			}
		})
	}
}

func TestBlue_AccrueInterest(t *testing.T) {
	market := testMarket()
	market.TotalBorrowAssets = NewU256(500_000)
	market.TotalBorrowShares = NewU256(500_000_000_000)
	market.LastUpdate = testTimestamp - 1000
	market.BorrowRate = Pow10(15)
	market.Fee = Pow10(17)

	scenario := Scenario{
		Before:     newTestStateBuilder().AddMarket(market).Build(),
		Operations: []Operation{BlueAccrueInterest{Meta: Meta{Sender: alice, Address: morpho}, Id: testMarketId}},
		After: func(e *st.Editor) {
			// interest = 500_000 * (1 + 1/2 + 1/6) with the borrow rate
			// compounded over 1000 seconds
			updateMarket(e, func(m *blue.Market) {
				m.TotalBorrowAssets = NewU256(1_333_333)
				m.TotalSupplyAssets = NewU256(1_833_333)
				m.TotalSupplyShares = NewU256(1_047_618_877_550)
				m.LastUpdate = testTimestamp
			})
			updatePosition(e, feeRecipient, func(p *blue.Position) {
				p.SupplyShares = NewU256(47_618_877_550)
			})
			vault, _ := e.GetVault(vaultAddress)
			vault.TotalAssets = NewU256(3499)
			e.SetVault(vault)
		},
	}
	scenario.Run(t)
}

func TestBlue_AccrueInterestWithoutFeeRecipientFails(t *testing.T) {
	market := testMarket()
	market.TotalBorrowAssets = NewU256(500_000)
	market.TotalBorrowShares = NewU256(500_000_000_000)
	market.LastUpdate = testTimestamp - 1000
	market.BorrowRate = Pow10(15)
	market.Fee = Pow10(17)

	before := st.NewStateBuilder(blue.EthMainnet).
		SetBlock(1, testTimestamp).
		AddMarket(market).
		Build()
	_, err := Apply(before, BlueAccrueInterest{Meta: Meta{Sender: alice, Address: morpho}, Id: testMarketId})
	if !errors.Is(err, ErrUnknownFeeRecipient) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBlue_AccrueInterestIsNoOpInSameBlock(t *testing.T) {
	before := newTestStateBuilder().Build()
	after, err := Apply(before, BlueAccrueInterest{Meta: Meta{Sender: alice, Address: morpho}, Id: testMarketId})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !before.Eq(after) {
		t.Errorf("unexpected changes: %v", before.Diff(after))
	}
	if before.Markets() != after.Markets() {
		t.Errorf("markets table should be shared")
	}
}
