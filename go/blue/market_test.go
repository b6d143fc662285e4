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
	"errors"
	"testing"

	. "github.com/Fantom-foundation/blue-simulation/go/common"
)

// wstEthUsdcParams are the parameters of the wstETH/USDC market on Ethereum.
var wstEthUsdcParams = MarketParams{
	LoanToken:       HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
	CollateralToken: HexToAddress("0x7f39C581F595B53c5cb19bD0b3f8dA6c935E2Ca0"),
	Oracle:          HexToAddress("0x48F7E36EB6B826B2dF4B2E630B62Cd25e89E40e2"),
	Irm:             HexToAddress("0x870aC11D48B15DB9a138Cf899d20F13F79Ba00BC"),
	Lltv:            MustU256FromDecimal("860000000000000000"),
}

func TestMarketParams_IdIsKeccakOfEncodedParams(t *testing.T) {
	want := "0xb323495f7e4148be5643a4ea4a8221eef163e4bccfdedc2a6f4696baacbc86cc"
	if got := wstEthUsdcParams.Id().String(); want != got {
		t.Errorf("unexpected market id, want %v, got %v", want, got)
	}
	// cached on second use
	if got := wstEthUsdcParams.Id().String(); want != got {
		t.Errorf("unexpected cached market id, want %v, got %v", want, got)
	}
}

func TestMarketParams_IdDependsOnAllParameters(t *testing.T) {
	variants := map[string]func(*MarketParams){
		"loan token":       func(p *MarketParams) { p.LoanToken = NewAddressFromInt(1) },
		"collateral token": func(p *MarketParams) { p.CollateralToken = NewAddressFromInt(1) },
		"oracle":           func(p *MarketParams) { p.Oracle = NewAddressFromInt(1) },
		"irm":              func(p *MarketParams) { p.Irm = NewAddressFromInt(1) },
		"lltv":             func(p *MarketParams) { p.Lltv = NewU256(1) },
	}
	for name, modify := range variants {
		t.Run(name, func(t *testing.T) {
			params := wstEthUsdcParams
			modify(&params)
			if params.Id() == wstEthUsdcParams.Id() {
				t.Errorf("modified parameters produce the same id")
			}
		})
	}
}

func TestMarketId_TextEncoding(t *testing.T) {
	id := wstEthUsdcParams.Id()
	text, err := id.MarshalText()
	if err != nil {
		t.Fatalf("failed to encode id: %v", err)
	}
	var restored MarketId
	if err := restored.UnmarshalText(text); err != nil {
		t.Fatalf("failed to decode id: %v", err)
	}
	if id != restored {
		t.Errorf("unexpected id, want %v, got %v", id, restored)
	}

	for _, invalid := range []string{"", "0x1234", "b323495f7e4148be5643a4ea4a8221eef163e4bccfdedc2a6f4696baacbc86cc"} {
		if err := restored.UnmarshalText([]byte(invalid)); err == nil {
			t.Errorf("expected %q to be rejected", invalid)
		}
	}
}

func TestMarket_IsCreated(t *testing.T) {
	if (Market{Params: wstEthUsdcParams}).IsCreated() {
		t.Errorf("market without update time reported as created")
	}
	if !(Market{Params: wstEthUsdcParams, LastUpdate: 1}).IsCreated() {
		t.Errorf("market with update time reported as unknown")
	}
}

func TestMarket_Liquidity(t *testing.T) {
	market := Market{TotalSupplyAssets: NewU256(1000), TotalBorrowAssets: NewU256(600)}
	if want, got := NewU256(400), market.Liquidity(); want != got {
		t.Errorf("unexpected liquidity, want %v, got %v", want, got)
	}
	market.TotalBorrowAssets = NewU256(1200)
	if got := market.Liquidity(); !got.IsZero() {
		t.Errorf("unexpected liquidity, want 0, got %v", got)
	}
}

func TestMarket_LiquidationIncentiveFactor(t *testing.T) {
	tests := map[string]struct {
		lltv string
		want string
	}{
		"86%":  {lltv: "860000000000000000", want: "1043841336116910229"},
		"zero": {lltv: "0", want: "1150000000000000000"},
		"one":  {lltv: "1000000000000000000", want: "1000000000000000000"},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			market := Market{Params: MarketParams{Lltv: MustU256FromDecimal(test.lltv)}}
			got, err := market.LiquidationIncentiveFactor()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if want := MustU256FromDecimal(test.want); want != got {
				t.Errorf("unexpected factor, want %v, got %v", want, got)
			}
		})
	}
}

func newBorrowedMarket() Market {
	price := OraclePriceScale
	return Market{
		Params:            wstEthUsdcParams,
		TotalSupplyAssets: NewU256(1_000_000),
		TotalSupplyShares: NewU256(1_000_000_000_000),
		TotalBorrowAssets: NewU256(860),
		TotalBorrowShares: NewU256(860_000_000),
		LastUpdate:        1,
		Price:             &price,
	}
}

func TestMarket_MaxBorrow(t *testing.T) {
	market := newBorrowedMarket()
	got, err := market.MaxBorrow(NewU256(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := NewU256(860); want != got {
		t.Errorf("unexpected max borrow, want %v, got %v", want, got)
	}

	market.Price = nil
	if _, err := market.MaxBorrow(NewU256(1000)); !errors.Is(err, ErrUnknownPrice) {
		t.Errorf("unexpected error, want %v, got %v", ErrUnknownPrice, err)
	}
}

func TestMarket_IsHealthy(t *testing.T) {
	tests := map[string]struct {
		position Position
		nilPrice bool
		want     bool
	}{
		"no debt": {
			position: Position{Collateral: NewU256(0)},
			want:     true,
		},
		"no debt without price": {
			position: Position{SupplyShares: NewU256(5)},
			nilPrice: true,
			want:     true,
		},
		"at the limit": {
			position: Position{BorrowShares: NewU256(860_000_000), Collateral: NewU256(1000)},
			want:     true,
		},
		"beyond the limit": {
			position: Position{BorrowShares: NewU256(860_000_000), Collateral: NewU256(999)},
			want:     false,
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			market := newBorrowedMarket()
			if test.nilPrice {
				market.Price = nil
			}
			got, err := market.IsHealthy(test.position)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if test.want != got {
				t.Errorf("unexpected health, want %t, got %t", test.want, got)
			}
		})
	}

	market := newBorrowedMarket()
	market.Price = nil
	position := Position{BorrowShares: NewU256(1), Collateral: NewU256(1000)}
	if _, err := market.IsHealthy(position); !errors.Is(err, ErrUnknownPrice) {
		t.Errorf("unexpected error, want %v, got %v", ErrUnknownPrice, err)
	}
}

func TestMarket_ShareConversions(t *testing.T) {
	market := newBorrowedMarket()
	if got, err := market.ToSupplyShares(NewU256(1000), RoundDown); err != nil || got != NewU256(1_000_000_000) {
		t.Errorf("unexpected supply shares %v (%v)", got, err)
	}
	if got, err := market.ToSupplyAssets(NewU256(1_000_000_000), RoundDown); err != nil || got != NewU256(1000) {
		t.Errorf("unexpected supply assets %v (%v)", got, err)
	}
	if got, err := market.ToBorrowShares(NewU256(100), RoundUp); err != nil || got != NewU256(100_000_000) {
		t.Errorf("unexpected borrow shares %v (%v)", got, err)
	}
	if got, err := market.ToBorrowAssets(NewU256(100_000_001), RoundUp); err != nil || got != NewU256(101) {
		t.Errorf("unexpected borrow assets %v (%v)", got, err)
	}
}
