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
	"sync"

	. "github.com/Fantom-foundation/blue-simulation/go/common"
	"golang.org/x/exp/maps"
)

// This file provides a registry of the protocol contract addresses per chain.
//
// Reducers need to recognize the lending market, the bundler, and the
// Permit2 contract to apply their special allowance rules. Well-known chains
// are registered at initialization; additional deployments (e.g. forks used
// in tests) can be added through RegisterAddresses.

// ChainId identifies an EVM network.
type ChainId uint64

const (
	EthMainnet  ChainId = 1
	BaseMainnet ChainId = 8453
)

// ErrUnknownChain is returned for chains without registered addresses.
const ErrUnknownChain = ConstErr("unknown chain")

// Addresses lists the protocol contracts deployed on a chain.
type Addresses struct {
	Morpho  Address
	Bundler Address
	Permit2 Address
}

// GetAddresses returns the contract addresses registered for the given chain.
func GetAddresses(chainId ChainId) (Addresses, error) {
	addressRegistryLock.Lock()
	defer addressRegistryLock.Unlock()
	addresses, found := addressRegistry[chainId]
	if !found {
		return Addresses{}, fmt.Errorf("%w: %d", ErrUnknownChain, chainId)
	}
	return addresses, nil
}

// GetAllRegisteredChains obtains the addresses of all registered chains.
func GetAllRegisteredChains() map[ChainId]Addresses {
	addressRegistryLock.Lock()
	defer addressRegistryLock.Unlock()
	return maps.Clone(addressRegistry)
}

// RegisterAddresses registers the contract addresses of a chain. An error is
// returned if addresses were bound to the same chain before.
func RegisterAddresses(chainId ChainId, addresses Addresses) error {
	addressRegistryLock.Lock()
	defer addressRegistryLock.Unlock()
	if _, found := addressRegistry[chainId]; found {
		return fmt.Errorf("invalid initialization: multiple address sets registered for chain %d", chainId)
	}
	addressRegistry[chainId] = addresses
	return nil
}

var permit2 = HexToAddress("0x000000000022D473030F116dDEE9F6B43aC78BA3")

// addressRegistry is the global registry of protocol deployments.
var addressRegistry = map[ChainId]Addresses{
	EthMainnet: {
		Morpho:  HexToAddress("0xBBBBBbbBBb9cC5e90e3b3Af64bdAF62C37EEFFCb"),
		Bundler: HexToAddress("0x4095F064B8d3c3548A3bebfd0Bbfd04750E30077"),
		Permit2: permit2,
	},
	BaseMainnet: {
		Morpho:  HexToAddress("0xBBBBBbbBBb9cC5e90e3b3Af64bdAF62C37EEFFCb"),
		Bundler: HexToAddress("0x23055618898e202386e6c13955a58D3C68200BFB"),
		Permit2: permit2,
	},
}

// addressRegistryLock to protect access to the registry.
var addressRegistryLock sync.Mutex
