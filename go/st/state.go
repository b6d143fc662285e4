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
	"fmt"
	"strings"

	"github.com/Fantom-foundation/blue-simulation/go/blue"
	. "github.com/Fantom-foundation/blue-simulation/go/common"
)

// Block identifies the block a snapshot was taken at.
type Block struct {
	Number    uint64
	Timestamp uint64
}

// Global holds protocol-wide singletons. Fields are nil until fetched.
type Global struct {
	FeeRecipient *Address `json:",omitempty"`
}

// HoldingKey identifies the holding of a user for a token.
type HoldingKey struct {
	User  Address
	Token Address
}

// PositionKey identifies the position of a user in a market.
type PositionKey struct {
	User   Address
	Market blue.MarketId
}

// VaultUserKey identifies the state of a user in a vault.
type VaultUserKey struct {
	Vault Address
	User  Address
}

// VaultMarketKey identifies the configuration of a market in a vault.
type VaultMarketKey struct {
	Vault  Address
	Market blue.MarketId
}

// State is an immutable snapshot of the simulated protocol state.
//
// A State is never modified after construction. Operations derive new states
// through an Editor, which shares every table that was not touched with the
// state it was derived from. States may therefore be read concurrently
// without synchronization.
type State struct {
	chainId blue.ChainId
	block   Block
	global  Global

	markets            *Table[blue.MarketId, blue.Market]
	users              *Table[Address, blue.User]
	tokens             *Table[Address, blue.Token]
	holdings           *Table[HoldingKey, blue.Holding]
	positions          *Table[PositionKey, blue.Position]
	vaults             *Table[Address, blue.Vault]
	vaultUsers         *Table[VaultUserKey, blue.VaultUser]
	vaultMarketConfigs *Table[VaultMarketKey, blue.VaultMarketConfig]
}

func (s *State) ChainId() blue.ChainId { return s.chainId }
func (s *State) Block() Block          { return s.block }
func (s *State) Global() Global        { return s.global }

// Addresses returns the protocol contracts of the snapshot's chain.
func (s *State) Addresses() (blue.Addresses, error) {
	return blue.GetAddresses(s.chainId)
}

func (s *State) Markets() *Table[blue.MarketId, blue.Market]   { return s.markets }
func (s *State) Users() *Table[Address, blue.User]             { return s.users }
func (s *State) Tokens() *Table[Address, blue.Token]           { return s.tokens }
func (s *State) Holdings() *Table[HoldingKey, blue.Holding]    { return s.holdings }
func (s *State) Positions() *Table[PositionKey, blue.Position] { return s.positions }
func (s *State) Vaults() *Table[Address, blue.Vault]           { return s.vaults }
func (s *State) VaultUsers() *Table[VaultUserKey, blue.VaultUser] {
	return s.vaultUsers
}
func (s *State) VaultMarketConfigs() *Table[VaultMarketKey, blue.VaultMarketConfig] {
	return s.vaultMarketConfigs
}

// GetHolding returns the holding of user for token, or the zero-value
// holding if none is recorded.
func (s *State) GetHolding(user, token Address) blue.Holding {
	return getHolding(s.holdings, user, token)
}

// GetPosition returns the position of user in market, or the zero-value
// position if none is recorded.
func (s *State) GetPosition(user Address, market blue.MarketId) blue.Position {
	return getPosition(s.positions, user, market)
}

// GetVaultUser returns the state of user in vault, or the zero-value record
// if none is recorded.
func (s *State) GetVaultUser(vault, user Address) blue.VaultUser {
	return getVaultUser(s.vaultUsers, vault, user)
}

// GetUser returns the lending market state of user, or the zero-value
// record if none is recorded.
func (s *State) GetUser(user Address) blue.User {
	return getUser(s.users, user)
}

func (s *State) GetMarket(id blue.MarketId) (blue.Market, bool) {
	return s.markets.Get(id)
}

func (s *State) GetToken(address Address) (blue.Token, bool) {
	return s.tokens.Get(address)
}

func (s *State) GetVault(address Address) (blue.Vault, bool) {
	return s.vaults.Get(address)
}

func (s *State) GetVaultMarketConfig(vault Address, market blue.MarketId) (blue.VaultMarketConfig, bool) {
	return s.vaultMarketConfigs.Get(VaultMarketKey{Vault: vault, Market: market})
}

// The lookup helpers are shared between State and Editor so both expose the
// same zero-value-on-miss semantics.

func getHolding(t *Table[HoldingKey, blue.Holding], user, token Address) blue.Holding {
	if holding, found := t.Get(HoldingKey{User: user, Token: token}); found {
		return holding
	}
	return blue.NewHolding(user, token)
}

func getPosition(t *Table[PositionKey, blue.Position], user Address, market blue.MarketId) blue.Position {
	if position, found := t.Get(PositionKey{User: user, Market: market}); found {
		return position
	}
	return blue.NewPosition(user, market)
}

func getVaultUser(t *Table[VaultUserKey, blue.VaultUser], vault, user Address) blue.VaultUser {
	if vaultUser, found := t.Get(VaultUserKey{Vault: vault, User: user}); found {
		return vaultUser
	}
	return blue.VaultUser{Vault: vault, User: user}
}

func getUser(t *Table[Address, blue.User], user Address) blue.User {
	if res, found := t.Get(user); found {
		return res
	}
	return blue.User{Address: user}
}

func (s *State) Eq(other *State) bool {
	return len(s.Diff(other)) == 0
}

// Diff lists human readable differences between two states. Zero-value
// records are considered equal to missing records.
func (s *State) Diff(o *State) (res []string) {
	if s.chainId != o.chainId {
		res = append(res, fmt.Sprintf("Different chain id: %d vs %d", s.chainId, o.chainId))
	}
	if s.block != o.block {
		res = append(res, fmt.Sprintf("Different block: %v vs %v", s.block, o.block))
	}
	if !equalPointers(s.global.FeeRecipient, o.global.FeeRecipient) {
		res = append(res, fmt.Sprintf("Different fee recipient: %v vs %v", fmtPointer(s.global.FeeRecipient), fmtPointer(o.global.FeeRecipient)))
	}

	res = append(res, diffTables("market", s.markets, o.markets, blue.Market{}, equalMarkets)...)
	res = append(res, diffTables("user", s.users, o.users, blue.User{}, func(a, b blue.User) bool {
		return a.IsBundlerAuthorized == b.IsBundlerAuthorized && a.MorphoNonce == b.MorphoNonce
	})...)
	res = append(res, diffTables("token", s.tokens, o.tokens, blue.Token{}, func(a, b blue.Token) bool {
		return a == b
	})...)
	res = append(res, diffTables("holding", s.holdings, o.holdings, blue.Holding{}, func(a, b blue.Holding) bool {
		// Keys already identify the holding, missing entries carry no identity.
		b.User, b.Token = a.User, a.Token
		return a.Eq(b)
	})...)
	res = append(res, diffTables("position", s.positions, o.positions, blue.Position{}, func(a, b blue.Position) bool {
		return a.SupplyShares == b.SupplyShares && a.BorrowShares == b.BorrowShares && a.Collateral == b.Collateral
	})...)
	res = append(res, diffTables("vault", s.vaults, o.vaults, blue.Vault{}, func(a, b blue.Vault) bool {
		return a.Eq(b)
	})...)
	res = append(res, diffTables("vault user", s.vaultUsers, o.vaultUsers, blue.VaultUser{}, func(a, b blue.VaultUser) bool {
		return a.IsAllocator == b.IsAllocator && a.Allowance == b.Allowance
	})...)
	res = append(res, diffTables("vault market config", s.vaultMarketConfigs, o.vaultMarketConfigs, blue.VaultMarketConfig{}, equalVaultMarketConfigs)...)
	return res
}

func diffTables[K comparable, V any](name string, a, b *Table[K, V], zero V, eq func(V, V) bool) (res []string) {
	if a == b {
		return nil
	}
	for _, key := range a.Keys() {
		valueA, _ := a.Get(key)
		valueB, contained := b.Get(key)
		if !contained {
			if !eq(valueA, zero) {
				res = append(res, fmt.Sprintf("Different %s entry:\n\t[%v]=%v\n\tvs\n\tmissing", name, key, valueA))
			}
		} else if !eq(valueA, valueB) {
			res = append(res, fmt.Sprintf("Different %s entry:\n\t[%v]=%v\n\tvs\n\t[%v]=%v", name, key, valueA, key, valueB))
		}
	}
	for _, key := range b.Keys() {
		if _, contained := a.Get(key); contained {
			continue
		}
		if valueB, _ := b.Get(key); !eq(zero, valueB) {
			res = append(res, fmt.Sprintf("Different %s entry:\n\tmissing\n\tvs\n\t[%v]=%v", name, key, valueB))
		}
	}
	return res
}

func equalMarkets(a, b blue.Market) bool {
	return a.Params == b.Params &&
		a.TotalSupplyAssets == b.TotalSupplyAssets &&
		a.TotalSupplyShares == b.TotalSupplyShares &&
		a.TotalBorrowAssets == b.TotalBorrowAssets &&
		a.TotalBorrowShares == b.TotalBorrowShares &&
		a.LastUpdate == b.LastUpdate &&
		a.Fee == b.Fee &&
		a.BorrowRate == b.BorrowRate &&
		equalPointers(a.Price, b.Price)
}

func equalVaultMarketConfigs(a, b blue.VaultMarketConfig) bool {
	return a.Cap == b.Cap &&
		a.PendingCap == b.PendingCap &&
		a.Enabled == b.Enabled &&
		a.RemovableAt == b.RemovableAt &&
		equalPointers(a.PublicAllocatorConfig, b.PublicAllocatorConfig)
}

func equalPointers[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func fmtPointer[T any](p *T) string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprint(*p)
}

func (s *State) String() string {
	builder := strings.Builder{}
	builder.WriteString("{\n")
	builder.WriteString(fmt.Sprintf("\tChainId: %d\n", s.chainId))
	builder.WriteString(fmt.Sprintf("\tBlock: %d (timestamp %d)\n", s.block.Number, s.block.Timestamp))
	builder.WriteString(fmt.Sprintf("\tFeeRecipient: %v\n", fmtPointer(s.global.FeeRecipient)))
	builder.WriteString(fmt.Sprintf("\tMarkets: %d\n", s.markets.Len()))
	builder.WriteString(fmt.Sprintf("\tUsers: %d\n", s.users.Len()))
	builder.WriteString(fmt.Sprintf("\tTokens: %d\n", s.tokens.Len()))
	builder.WriteString(fmt.Sprintf("\tHoldings: %d\n", s.holdings.Len()))
	builder.WriteString(fmt.Sprintf("\tPositions: %d\n", s.positions.Len()))
	builder.WriteString(fmt.Sprintf("\tVaults: %d\n", s.vaults.Len()))
	builder.WriteString(fmt.Sprintf("\tVaultUsers: %d\n", s.vaultUsers.Len()))
	builder.WriteString(fmt.Sprintf("\tVaultMarketConfigs: %d\n", s.vaultMarketConfigs.Len()))
	builder.WriteString("}")
	return builder.String()
}
