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
	"github.com/ethereum/go-ethereum/common/hexutil"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/sha3"
)

// MarketId identifies a lending market. It is the keccak256 hash of the
// ABI-encoded market parameters.
type MarketId [32]byte

func (id MarketId) String() string {
	return hexutil.Encode(id[:])
}

func (id MarketId) MarshalText() ([]byte, error) {
	return hexutil.Bytes(id[:]).MarshalText()
}

func (id *MarketId) UnmarshalText(data []byte) error {
	return hexutil.UnmarshalFixedText("MarketId", data, id[:])
}

// ErrUnknownPrice is reported by health computations when the snapshot lacks
// the oracle price of a market.
const ErrUnknownPrice = ConstErr("unknown oracle price")

// MarketParams are the immutable parameters a market is created with.
type MarketParams struct {
	LoanToken       Address
	CollateralToken Address
	Oracle          Address
	Irm             Address
	Lltv            U256
}

// marketIdCache memoizes id derivation, which requires hashing. Parameters
// are comparable values, so the cache is keyed by the parameters themselves.
var marketIdCache, _ = lru.New[MarketParams, MarketId](1024) // can only fail for non-positive size

// Id computes the market identifier as keccak256(abi.encode(params)).
func (p MarketParams) Id() MarketId {
	if id, found := marketIdCache.Get(p); found {
		return id
	}
	var encoded [5 * 32]byte
	copy(encoded[12:32], p.LoanToken[:])
	copy(encoded[44:64], p.CollateralToken[:])
	copy(encoded[76:96], p.Oracle[:])
	copy(encoded[108:128], p.Irm[:])
	lltv := p.Lltv.Uint256()
	lltvBytes := lltv.Bytes32()
	copy(encoded[128:160], lltvBytes[:])

	var id MarketId
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(encoded[:])
	hasher.Sum(id[:0])
	marketIdCache.Add(p, id)
	return id
}

// Market is the state of a lending market at a given block.
type Market struct {
	Params            MarketParams
	TotalSupplyAssets U256
	TotalSupplyShares U256
	TotalBorrowAssets U256
	TotalBorrowShares U256
	LastUpdate        uint64
	Fee               U256
	// BorrowRate is the per-second borrow rate in WAD, as quoted by the
	// interest rate model at the time the snapshot was taken.
	BorrowRate U256
	// Price is the collateral price quoted by the oracle, scaled by 1e36.
	// It is nil if the price was not fetched.
	Price *U256 `json:",omitempty"`
}

func (m Market) Id() MarketId {
	return m.Params.Id()
}

// IsCreated reports whether the market exists on chain. The market contract
// sets the last update timestamp on creation, so zero means unknown.
func (m Market) IsCreated() bool {
	return m.LastUpdate != 0
}

// Liquidity is the amount of loan tokens available for borrowing and
// withdrawing.
func (m Market) Liquidity() U256 {
	return m.TotalSupplyAssets.ZeroFloorSub(m.TotalBorrowAssets)
}

func (m Market) ToSupplyShares(assets U256, rounding Rounding) (U256, error) {
	return ToShares(assets, m.TotalSupplyAssets, m.TotalSupplyShares, rounding)
}

func (m Market) ToSupplyAssets(shares U256, rounding Rounding) (U256, error) {
	return ToAssets(shares, m.TotalSupplyAssets, m.TotalSupplyShares, rounding)
}

func (m Market) ToBorrowShares(assets U256, rounding Rounding) (U256, error) {
	return ToShares(assets, m.TotalBorrowAssets, m.TotalBorrowShares, rounding)
}

func (m Market) ToBorrowAssets(shares U256, rounding Rounding) (U256, error) {
	return ToAssets(shares, m.TotalBorrowAssets, m.TotalBorrowShares, rounding)
}

// MaxBorrow is the maximum amount of loan tokens the given collateral can
// back: collateral * price / 1e36 * lltv.
func (m Market) MaxBorrow(collateral U256) (U256, error) {
	if m.Price == nil {
		return U256{}, fmt.Errorf("market %v: %w", m.Id(), ErrUnknownPrice)
	}
	quoted, err := MulDiv(collateral, *m.Price, OraclePriceScale, RoundDown)
	if err != nil {
		return U256{}, err
	}
	return WMulDown(quoted, m.Params.Lltv)
}

// IsHealthy reports whether the given position is sufficiently
// collateralized. Positions without debt are always healthy, even if the
// oracle price is unknown.
func (m Market) IsHealthy(position Position) (bool, error) {
	if position.BorrowShares.IsZero() {
		return true, nil
	}
	borrowed, err := m.ToBorrowAssets(position.BorrowShares, RoundUp)
	if err != nil {
		return false, err
	}
	maxBorrow, err := m.MaxBorrow(position.Collateral)
	if err != nil {
		return false, err
	}
	return maxBorrow.Ge(borrowed), nil
}

var (
	maxLiquidationIncentiveFactor = MustU256FromDecimal("1150000000000000000")
	liquidationCursor             = MustU256FromDecimal("300000000000000000")
)

// LiquidationIncentiveFactor is min(1.15, 1 / (1 - 0.3 * (1 - lltv))) in WAD.
func (m Market) LiquidationIncentiveFactor() (U256, error) {
	cursorPart, err := WMulDown(liquidationCursor, Wad.ZeroFloorSub(m.Params.Lltv))
	if err != nil {
		return U256{}, err
	}
	lif, err := WDivDown(Wad, Wad.Sub(cursorPart))
	if err != nil {
		return U256{}, err
	}
	return Min(maxLiquidationIncentiveFactor, lif), nil
}

func (m Market) String() string {
	return fmt.Sprintf(
		"Market{id: %v, supply: %v (%v shares), borrow: %v (%v shares), lastUpdate: %d}",
		m.Id(), m.TotalSupplyAssets, m.TotalSupplyShares, m.TotalBorrowAssets, m.TotalBorrowShares, m.LastUpdate,
	)
}
