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
	geth "github.com/ethereum/go-ethereum/common"
	"pgregory.net/rand"
)

// Address is the 20-byte address of an account or contract.
type Address = geth.Address

// HexToAddress parses a 0x-prefixed hex address. Malformed input is not
// rejected; use only with trusted constants.
func HexToAddress(s string) Address {
	return geth.HexToAddress(s)
}

func NewAddressFromInt(in uint64) Address {
	value := NewU256(in)
	return geth.BytesToAddress(value.internal.Bytes())
}

func RandomAddress(rnd *rand.Rand) Address {
	address := Address{}
	rnd.Read(address[:]) // never returns an error
	return address
}
