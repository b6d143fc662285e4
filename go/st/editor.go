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

// Editor derives a new State from a base state. Reads observe all writes
// issued so far through the same editor. Tables are cloned on their first
// write only, and Commit shares every untouched table with the base.
//
// An editor that is discarded without calling Commit leaves no trace; the
// base state is never modified.
type Editor struct {
	base   *State
	global Global

	markets            tableEditor[blue.MarketId, blue.Market]
	users              tableEditor[Address, blue.User]
	tokens             tableEditor[Address, blue.Token]
	holdings           tableEditor[HoldingKey, blue.Holding]
	positions          tableEditor[PositionKey, blue.Position]
	vaults             tableEditor[Address, blue.Vault]
	vaultUsers         tableEditor[VaultUserKey, blue.VaultUser]
	vaultMarketConfigs tableEditor[VaultMarketKey, blue.VaultMarketConfig]
}

func NewEditor(base *State) *Editor {
	return &Editor{
		base:               base,
		global:             base.global,
		markets:            newTableEditor(base.markets),
		users:              newTableEditor(base.users),
		tokens:             newTableEditor(base.tokens),
		holdings:           newTableEditor(base.holdings),
		positions:          newTableEditor(base.positions),
		vaults:             newTableEditor(base.vaults),
		vaultUsers:         newTableEditor(base.vaultUsers),
		vaultMarketConfigs: newTableEditor(base.vaultMarketConfigs),
	}
}

// Base returns the state the editor was created from.
func (e *Editor) Base() *State {
	return e.base
}

func (e *Editor) ChainId() blue.ChainId { return e.base.chainId }
func (e *Editor) Block() Block          { return e.base.block }
func (e *Editor) Global() Global        { return e.global }

func (e *Editor) Addresses() (blue.Addresses, error) {
	return blue.GetAddresses(e.base.chainId)
}

func (e *Editor) GetHolding(user, token Address) blue.Holding {
	return getHolding(e.holdings.current(), user, token)
}

func (e *Editor) GetPosition(user Address, market blue.MarketId) blue.Position {
	return getPosition(e.positions.current(), user, market)
}

func (e *Editor) GetVaultUser(vault, user Address) blue.VaultUser {
	return getVaultUser(e.vaultUsers.current(), vault, user)
}

func (e *Editor) GetUser(user Address) blue.User {
	return getUser(e.users.current(), user)
}

func (e *Editor) GetMarket(id blue.MarketId) (blue.Market, bool) {
	return e.markets.get(id)
}

func (e *Editor) GetToken(address Address) (blue.Token, bool) {
	return e.tokens.get(address)
}

func (e *Editor) GetVault(address Address) (blue.Vault, bool) {
	return e.vaults.get(address)
}

func (e *Editor) GetVaultMarketConfig(vault Address, market blue.MarketId) (blue.VaultMarketConfig, bool) {
	return e.vaultMarketConfigs.get(VaultMarketKey{Vault: vault, Market: market})
}

func (e *Editor) SetFeeRecipient(recipient Address) {
	e.global.FeeRecipient = &recipient
}

func (e *Editor) SetMarket(market blue.Market) {
	e.markets.set(market.Id(), market)
}

func (e *Editor) SetUser(user blue.User) {
	e.users.set(user.Address, user)
}

func (e *Editor) SetToken(token blue.Token) {
	e.tokens.set(token.Address, token)
}

func (e *Editor) SetHolding(holding blue.Holding) {
	e.holdings.set(HoldingKey{User: holding.User, Token: holding.Token}, holding)
}

func (e *Editor) SetPosition(position blue.Position) {
	e.positions.set(PositionKey{User: position.User, Market: position.MarketId}, position)
}

func (e *Editor) SetVault(vault blue.Vault) {
	e.vaults.set(vault.Address, vault.Clone())
}

func (e *Editor) SetVaultUser(vaultUser blue.VaultUser) {
	e.vaultUsers.set(VaultUserKey{Vault: vaultUser.Vault, User: vaultUser.User}, vaultUser)
}

func (e *Editor) SetVaultMarketConfig(config blue.VaultMarketConfig) {
	e.vaultMarketConfigs.set(VaultMarketKey{Vault: config.Vault, Market: config.MarketId}, config)
}

// Commit produces the edited state. The editor must not be used afterwards.
func (e *Editor) Commit() *State {
	res := &State{
		chainId:            e.base.chainId,
		block:              e.base.block,
		global:             e.global,
		markets:            e.markets.result(),
		users:              e.users.result(),
		tokens:             e.tokens.result(),
		holdings:           e.holdings.result(),
		positions:          e.positions.result(),
		vaults:             e.vaults.result(),
		vaultUsers:         e.vaultUsers.result(),
		vaultMarketConfigs: e.vaultMarketConfigs.result(),
	}
	*e = Editor{}
	return res
}
