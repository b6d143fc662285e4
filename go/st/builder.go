// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package st

import (
	"github.com/Fantom-foundation/blue-simulation/go/blue"
	. "github.com/Fantom-foundation/blue-simulation/go/common"
)

// StateBuilder assembles the initial snapshot of a replay. No consistency
// checks are performed; the data is assumed to be fetched from chain.
type StateBuilder struct {
	state State
}

func NewStateBuilder(chainId blue.ChainId) *StateBuilder {
	return &StateBuilder{state: State{
		chainId:            chainId,
		markets:            newTable[blue.MarketId, blue.Market](),
		users:              newTable[Address, blue.User](),
		tokens:             newTable[Address, blue.Token](),
		holdings:           newTable[HoldingKey, blue.Holding](),
		positions:          newTable[PositionKey, blue.Position](),
		vaults:             newTable[Address, blue.Vault](),
		vaultUsers:         newTable[VaultUserKey, blue.VaultUser](),
		vaultMarketConfigs: newTable[VaultMarketKey, blue.VaultMarketConfig](),
	}}
}

// Build returns the assembled state. The builder is reset and must not be
// reused.
func (b *StateBuilder) Build() *State {
	res := b.state
	b.state = State{}
	return &res
}

func (b *StateBuilder) SetBlock(number, timestamp uint64) *StateBuilder {
	b.state.block = Block{Number: number, Timestamp: timestamp}
	return b
}

func (b *StateBuilder) SetFeeRecipient(recipient Address) *StateBuilder {
	b.state.global.FeeRecipient = &recipient
	return b
}

func (b *StateBuilder) AddMarket(market blue.Market) *StateBuilder {
	b.state.markets.entries[market.Id()] = market
	return b
}

func (b *StateBuilder) AddUser(user blue.User) *StateBuilder {
	b.state.users.entries[user.Address] = user
	return b
}

func (b *StateBuilder) AddToken(token blue.Token) *StateBuilder {
	b.state.tokens.entries[token.Address] = token
	return b
}

func (b *StateBuilder) AddHolding(holding blue.Holding) *StateBuilder {
	b.state.holdings.entries[HoldingKey{User: holding.User, Token: holding.Token}] = holding
	return b
}

func (b *StateBuilder) AddPosition(position blue.Position) *StateBuilder {
	b.state.positions.entries[PositionKey{User: position.User, Market: position.MarketId}] = position
	return b
}

func (b *StateBuilder) AddVault(vault blue.Vault) *StateBuilder {
	b.state.vaults.entries[vault.Address] = vault.Clone()
	return b
}

func (b *StateBuilder) AddVaultUser(vaultUser blue.VaultUser) *StateBuilder {
	b.state.vaultUsers.entries[VaultUserKey{Vault: vaultUser.Vault, User: vaultUser.User}] = vaultUser
	return b
}

func (b *StateBuilder) AddVaultMarketConfig(config blue.VaultMarketConfig) *StateBuilder {
	b.state.vaultMarketConfigs.entries[VaultMarketKey{Vault: config.Vault, Market: config.MarketId}] = config
	return b
}
