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

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"pgregory.net/rand"
)

// U256 is a 256-bit unsigned integer type. Contrary to holiman/uint256.Int the
// API operates on values rather than pointers, which makes U256 safe to embed
// in immutable records and to use as a map key.
type U256 struct {
	internal uint256.Int
}

// NewU256 creates a new U256 instance from up to 4 uint64 arguments. The
// arguments are given in the order from most significant to least significant
// by padding leading zeros as needed. No argument results in a value of zero.
func NewU256(args ...uint64) (result U256) {
	if len(args) > 4 {
		panic("Too many arguments")
	}
	offset := 4 - len(args)
	for i := 0; i < len(args) && i < len(result.internal); i++ {
		result.internal[3-i-offset] = args[i]
	}
	return
}

// U256FromDecimal parses a base-10 string.
func U256FromDecimal(s string) (U256, error) {
	var res U256
	if err := res.internal.SetFromDecimal(s); err != nil {
		return U256{}, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return res, nil
}

// MustU256FromDecimal is like U256FromDecimal but panics on malformed input.
// It is intended for constants and tests.
func MustU256FromDecimal(s string) U256 {
	res, err := U256FromDecimal(s)
	if err != nil {
		panic(err)
	}
	return res
}

// U256FromBig converts a non-negative big.Int. It fails if the value does not
// fit into 256 bits or is negative.
func U256FromBig(b *big.Int) (U256, error) {
	if b.Sign() < 0 {
		return U256{}, fmt.Errorf("negative value %v", b)
	}
	internal, overflow := uint256.FromBig(b)
	if overflow {
		return U256{}, ErrOverflow
	}
	return U256{internal: *internal}, nil
}

// Pow10 returns 10^n. Values of n above 77 overflow and panic.
func Pow10(n uint64) U256 {
	if n > 77 {
		panic(fmt.Sprintf("10^%d does not fit into 256 bits", n))
	}
	var res U256
	res.internal.Exp(uint256.NewInt(10), uint256.NewInt(n))
	return res
}

func RandU256(rnd *rand.Rand) U256 {
	var value U256
	value.internal[0] = rnd.Uint64()
	value.internal[1] = rnd.Uint64()
	value.internal[2] = rnd.Uint64()
	value.internal[3] = rnd.Uint64()
	return value
}

// RandU256Below draws a value in [0, limit). A zero limit yields zero.
func RandU256Below(rnd *rand.Rand, limit U256) U256 {
	if limit.IsZero() {
		return U256{}
	}
	return RandU256(rnd).Mod(limit)
}

func MaxU256() (result U256) {
	result.internal.SetAllOne()
	return
}

func (i U256) IsZero() bool {
	return i.internal.IsZero()
}

func (i U256) IsUint64() bool {
	return i.internal.IsUint64()
}

func (i U256) Uint64() uint64 {
	return i.internal.Uint64()
}

func (i U256) Uint256() uint256.Int {
	return i.internal
}

func (a U256) Eq(b U256) bool {
	return a.internal.Eq(&b.internal)
}

func (a U256) Ne(b U256) bool {
	return !a.internal.Eq(&b.internal)
}

func (a U256) Lt(b U256) bool {
	return a.internal.Lt(&b.internal)
}

func (a U256) Gt(b U256) bool {
	return a.internal.Gt(&b.internal)
}

func (a U256) Le(b U256) bool {
	return !a.internal.Gt(&b.internal)
}

func (a U256) Ge(b U256) bool {
	return !a.internal.Lt(&b.internal)
}

func (a U256) Cmp(b U256) int {
	return a.internal.Cmp(&b.internal)
}

// Add returns a+b, wrapping around on overflow. Use AddOverflow where the
// protocol reverts instead.
func (a U256) Add(b U256) (z U256) {
	z.internal.Add(&a.internal, &b.internal)
	return
}

// Sub returns a-b, wrapping around on underflow. Use SubUnderflow where the
// protocol reverts instead.
func (a U256) Sub(b U256) (z U256) {
	z.internal.Sub(&a.internal, &b.internal)
	return
}

func (a U256) Mul(b U256) (z U256) {
	z.internal.Mul(&a.internal, &b.internal)
	return
}

// Div returns a/b, truncated. Division by zero yields zero, as in the EVM.
func (a U256) Div(b U256) (z U256) {
	z.internal.Div(&a.internal, &b.internal)
	return
}

func (a U256) Mod(b U256) (z U256) {
	z.internal.Mod(&a.internal, &b.internal)
	return
}

// AddOverflow returns a+b and whether the addition overflowed.
func (a U256) AddOverflow(b U256) (z U256, overflow bool) {
	_, overflow = z.internal.AddOverflow(&a.internal, &b.internal)
	return
}

// SubUnderflow returns a-b and whether the subtraction underflowed.
func (a U256) SubUnderflow(b U256) (z U256, underflow bool) {
	_, underflow = z.internal.SubOverflow(&a.internal, &b.internal)
	return
}

// MulOverflow returns a*b and whether the product exceeds 256 bits.
func (a U256) MulOverflow(b U256) (z U256, overflow bool) {
	_, overflow = z.internal.MulOverflow(&a.internal, &b.internal)
	return
}

// MulDivOverflow computes floor(a*b/d) with a 512-bit intermediate product.
// The flag reports whether the result exceeds 256 bits. d must not be zero.
func (a U256) MulDivOverflow(b, d U256) (z U256, overflow bool) {
	_, overflow = z.internal.MulDivOverflow(&a.internal, &b.internal, &d.internal)
	return
}

// MulModIsZero reports whether a*b is a multiple of d, computed without
// truncating the product.
func (a U256) MulModIsZero(b, d U256) bool {
	var rem uint256.Int
	rem.MulMod(&a.internal, &b.internal, &d.internal)
	return rem.IsZero()
}

// ZeroFloorSub returns max(a-b, 0).
func (a U256) ZeroFloorSub(b U256) U256 {
	if a.Le(b) {
		return U256{}
	}
	return a.Sub(b)
}

func Min(a, b U256) U256 {
	if a.Lt(b) {
		return a
	}
	return b
}

func Max(a, b U256) U256 {
	if a.Gt(b) {
		return a
	}
	return b
}

// String renders the value in decimal notation.
func (i U256) String() string {
	return i.internal.Dec()
}

// ToBig returns a bigInt version of i
func (i U256) ToBig() *big.Int {
	return i.internal.ToBig()
}

func (i U256) MarshalText() ([]byte, error) {
	return []byte(i.internal.Dec()), nil
}

// UnmarshalText accepts decimal and 0x-prefixed hexadecimal notation.
func (i *U256) UnmarshalText(data []byte) error {
	return i.internal.UnmarshalText(data)
}
