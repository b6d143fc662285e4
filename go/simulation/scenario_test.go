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
	"reflect"
	"strings"
	"testing"

	"github.com/Fantom-foundation/blue-simulation/go/blue"
	. "github.com/Fantom-foundation/blue-simulation/go/common"
	"github.com/Fantom-foundation/blue-simulation/go/st"
)

const testTimestamp = 1_700_000_000

var (
	testAddresses, _ = blue.GetAddresses(blue.EthMainnet)
	morpho           = testAddresses.Morpho
	bundler          = testAddresses.Bundler
	permit2          = testAddresses.Permit2

	alice   = NewAddressFromInt(0xa11ce)
	bob     = NewAddressFromInt(0xb0b)
	carol   = NewAddressFromInt(0xca201)
	dave    = NewAddressFromInt(0xda4e)
	curator = NewAddressFromInt(0xc0a7)

	usdc         = NewAddressFromInt(0x05dc)
	weth         = NewAddressFromInt(0x0e7)
	vaultAddress = NewAddressFromInt(0x7a017)
	feeRecipient = NewAddressFromInt(0xfee)

	oraclePrice = Pow10(36)
)

func testMarketParams() blue.MarketParams {
	return blue.MarketParams{
		LoanToken:       usdc,
		CollateralToken: weth,
		Oracle:          NewAddressFromInt(0x0ac1e),
		Irm:             NewAddressFromInt(0x1a3),
		Lltv:            MustU256FromDecimal("860000000000000000"),
	}
}

// testMarket has 1,000,000 assets supplied at the initial share price and
// no debt. Collateral and loan tokens are priced equally.
func testMarket() blue.Market {
	return blue.Market{
		Params:            testMarketParams(),
		TotalSupplyAssets: NewU256(1_000_000),
		TotalSupplyShares: NewU256(1_000_000_000_000),
		LastUpdate:        testTimestamp,
		Price:             &oraclePrice,
	}
}

var testMarketId = testMarketParams().Id()

// testVault holds 2,000 assets supplied to the test market, backing 1,000
// shares owned by dave.
func testVault() blue.Vault {
	return blue.Vault{
		Address:         vaultAddress,
		Asset:           usdc,
		Symbol:          "mUSDC",
		Name:            "Morpho USDC",
		TotalAssets:     NewU256(2000),
		LastTotalAssets: NewU256(2000),
		TotalSupply:     NewU256(1000),
		FeeRecipient:    feeRecipient,
		Owner:           carol,
		Curator:         curator,
		SupplyQueue:     []blue.MarketId{testMarketId},
		WithdrawQueue:   []blue.MarketId{testMarketId},
	}
}

// newTestStateBuilder creates a builder for a mainnet state holding the test
// market and vault. Morpho holds the loan tokens backing the market supply.
func newTestStateBuilder() *st.StateBuilder {
	return st.NewStateBuilder(blue.EthMainnet).
		SetBlock(19_000_000, testTimestamp).
		SetFeeRecipient(feeRecipient).
		AddToken(blue.Token{Address: usdc, Decimals: 6, Symbol: "USDC", Name: "USD Coin"}).
		AddToken(blue.Token{Address: weth, Decimals: 18, Symbol: "WETH", Name: "Wrapped Ether"}).
		AddMarket(testMarket()).
		AddHolding(blue.NewHolding(morpho, usdc).WithBalance(NewU256(1_000_000))).
		AddVault(testVault()).
		AddVaultMarketConfig(blue.VaultMarketConfig{
			Vault:    vaultAddress,
			MarketId: testMarketId,
			Cap:      NewU256(1_000_000),
			Enabled:  true,
		}).
		AddPosition(blue.Position{User: vaultAddress, MarketId: testMarketId, SupplyShares: NewU256(2_000_000_000)}).
		AddHolding(blue.NewHolding(dave, vaultAddress).WithBalance(NewU256(1000)))
}

// Scenario is a replay of operations on a state with an expected outcome.
// If Error is set, the replay is expected to fail with an error of the same
// type; otherwise the final state must match the Before state modified by
// After.
type Scenario struct {
	Before     *st.State
	Operations []Operation
	After      func(*st.Editor)
	Error      error
}

func (s *Scenario) Run(t *testing.T) []*st.State {
	t.Helper()
	states, err := Simulate(s.Operations, s.Before)
	if s.Error != nil {
		if err == nil {
			t.Fatalf("expected error of type %T, got success", s.Error)
		}
		if want, got := reflect.TypeOf(s.Error), reflect.TypeOf(rootCause(err)); want != got {
			t.Fatalf("unexpected error, want %v, got %v", want, err)
		}
		if states != nil {
			t.Errorf("unexpected states for failed replay: %v", states)
		}
		return nil
	}
	if err != nil {
		t.Fatalf("failed to simulate operations: %v", err)
	}
	if want, got := len(s.Operations)+1, len(states); want != got {
		t.Fatalf("unexpected number of states, want %d, got %d", want, got)
	}

	editor := st.NewEditor(s.Before)
	if s.After != nil {
		s.After(editor)
	}
	want := editor.Commit()
	if got := states[len(states)-1]; !want.Eq(got) {
		diff := strings.Join(want.Diff(got), "\n\t")
		t.Fatalf("unexpected state after the operations: \n\t%v", diff)
	}
	return states
}

// rootCause unwraps an error down to the error raised by a reducer.
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// setBalance is a helper for After functions.
func setBalance(e *st.Editor, user, token Address, balance uint64) {
	e.SetHolding(e.GetHolding(user, token).WithBalance(NewU256(balance)))
}

func setAllowance(e *st.Editor, owner, token, spender Address, amount U256) {
	e.SetHolding(e.GetHolding(owner, token).WithErc20Allowance(spender, amount))
}
