// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import "fmt"

// Rounding selects the direction in which a division result is truncated.
type Rounding int

const (
	RoundDown Rounding = iota
	RoundUp
)

func (r Rounding) String() string {
	switch r {
	case RoundDown:
		return "down"
	case RoundUp:
		return "up"
	default:
		return fmt.Sprintf("Rounding(%d)", r)
	}
}

var (
	// Wad is the fixed-point unit of the lending market (1e18).
	Wad = Pow10(18)
	// OraclePriceScale is the scale of collateral prices (1e36).
	OraclePriceScale = Pow10(36)
	// VirtualShares and VirtualAssets offset share conversions to protect
	// empty markets from inflation attacks.
	VirtualShares = Pow10(6)
	VirtualAssets = NewU256(1)
)

// checked helpers mirroring Solidity >=0.8 arithmetic

func CheckedAdd(a, b U256) (U256, error) {
	z, overflow := a.AddOverflow(b)
	if overflow {
		return U256{}, ErrOverflow
	}
	return z, nil
}

func CheckedSub(a, b U256) (U256, error) {
	z, underflow := a.SubUnderflow(b)
	if underflow {
		return U256{}, ErrOverflow
	}
	return z, nil
}

func CheckedMul(a, b U256) (U256, error) {
	z, overflow := a.MulOverflow(b)
	if overflow {
		return U256{}, ErrOverflow
	}
	return z, nil
}

// MulDiv computes x*y/d the way the lending market does: the product is
// computed in 256 bits and reverts on overflow. Rounding up adds d-1 to the
// product before dividing, which may overflow as well.
func MulDiv(x, y, d U256, rounding Rounding) (U256, error) {
	if d.IsZero() {
		return U256{}, ErrDivisionByZero
	}
	product, err := CheckedMul(x, y)
	if err != nil {
		return U256{}, err
	}
	if rounding == RoundUp {
		product, err = CheckedAdd(product, d.Sub(NewU256(1)))
		if err != nil {
			return U256{}, err
		}
	}
	return product.Div(d), nil
}

// FullMulDiv computes x*y/d with a 512-bit intermediate product, as done by
// OpenZeppelin's Math.mulDiv. Only a result exceeding 256 bits is an error.
func FullMulDiv(x, y, d U256, rounding Rounding) (U256, error) {
	if d.IsZero() {
		return U256{}, ErrDivisionByZero
	}
	z, overflow := x.MulDivOverflow(y, d)
	if overflow {
		return U256{}, ErrOverflow
	}
	if rounding == RoundUp && !x.MulModIsZero(y, d) {
		return CheckedAdd(z, NewU256(1))
	}
	return z, nil
}

func WMulDown(x, y U256) (U256, error) {
	return MulDiv(x, y, Wad, RoundDown)
}

func WDivDown(x, y U256) (U256, error) {
	return MulDiv(x, Wad, y, RoundDown)
}

func WDivUp(x, y U256) (U256, error) {
	return MulDiv(x, Wad, y, RoundUp)
}

// WTaylorCompounded approximates e^(x*n) - 1 in WAD using the first three
// terms of the Taylor expansion.
func WTaylorCompounded(x, n U256) (U256, error) {
	firstTerm, err := CheckedMul(x, n)
	if err != nil {
		return U256{}, err
	}
	secondTerm, err := MulDiv(firstTerm, firstTerm, Wad.Mul(NewU256(2)), RoundDown)
	if err != nil {
		return U256{}, err
	}
	thirdTerm, err := MulDiv(secondTerm, firstTerm, Wad.Mul(NewU256(3)), RoundDown)
	if err != nil {
		return U256{}, err
	}
	sum, err := CheckedAdd(firstTerm, secondTerm)
	if err != nil {
		return U256{}, err
	}
	return CheckedAdd(sum, thirdTerm)
}

// ToShares converts an amount of assets into market shares.
func ToShares(assets, totalAssets, totalShares U256, rounding Rounding) (U256, error) {
	shares, err := CheckedAdd(totalShares, VirtualShares)
	if err != nil {
		return U256{}, err
	}
	denominator, err := CheckedAdd(totalAssets, VirtualAssets)
	if err != nil {
		return U256{}, err
	}
	return MulDiv(assets, shares, denominator, rounding)
}

// ToAssets converts an amount of market shares into assets.
func ToAssets(shares, totalAssets, totalShares U256, rounding Rounding) (U256, error) {
	assets, err := CheckedAdd(totalAssets, VirtualAssets)
	if err != nil {
		return U256{}, err
	}
	denominator, err := CheckedAdd(totalShares, VirtualShares)
	if err != nil {
		return U256{}, err
	}
	return MulDiv(shares, assets, denominator, rounding)
}
