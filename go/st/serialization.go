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
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/Fantom-foundation/blue-simulation/go/blue"
)

////////////////////////////////////////////////////////////
// Importing/exporting state

// ExportStateJSON exports the given state in json format to the given file path.
// If the file does not exist, it will be created.
// If the file already exists, it will be overwritten.
func ExportStateJSON(state *State, filePath string) error {
	serialized, err := MarshalState(state)
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, serialized, 0644)
}

// ImportStateJSON imports a state from the given json file.
// If the file does not exist, or is not parsable, the import fails.
func ImportStateJSON(filePath string) (*State, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return DecodeState(file)
}

// MarshalState encodes a state as indented json.
func MarshalState(state *State) ([]byte, error) {
	return json.MarshalIndent(newStateSerializableFromState(state), "", "  ")
}

// DecodeState reads a json encoded state. Unknown fields are rejected.
func DecodeState(reader io.Reader) (*State, error) {
	serializableState := &stateSerializable{}
	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(serializableState); err != nil {
		return nil, err
	}
	return serializableState.deserialize(), nil
}

// UnmarshalState is DecodeState for in-memory data.
func UnmarshalState(data []byte) (*State, error) {
	return DecodeState(bytes.NewReader(data))
}

////////////////////////////////////////////////////////////
// Serialization helpers

// stateSerializable is a serializable representation of the State struct.
// Table entries are stored as lists since every record carries its own key.
type stateSerializable struct {
	ChainId            blue.ChainId
	Block              Block
	Global             Global
	Markets            []blue.Market            `json:",omitempty"`
	Users              []blue.User              `json:",omitempty"`
	Tokens             []blue.Token             `json:",omitempty"`
	Holdings           []blue.Holding           `json:",omitempty"`
	Positions          []blue.Position          `json:",omitempty"`
	Vaults             []blue.Vault             `json:",omitempty"`
	VaultUsers         []blue.VaultUser         `json:",omitempty"`
	VaultMarketConfigs []blue.VaultMarketConfig `json:",omitempty"`
}

// newStateSerializableFromState creates a new stateSerializable instance from
// the given State instance. Entries are listed in a deterministic order.
func newStateSerializableFromState(state *State) *stateSerializable {
	return &stateSerializable{
		ChainId:            state.chainId,
		Block:              state.block,
		Global:             state.global,
		Markets:            values(state.markets),
		Users:              values(state.users),
		Tokens:             values(state.tokens),
		Holdings:           values(state.holdings),
		Positions:          values(state.positions),
		Vaults:             values(state.vaults),
		VaultUsers:         values(state.vaultUsers),
		VaultMarketConfigs: values(state.vaultMarketConfigs),
	}
}

// deserialize converts the stateSerializable to a State instance.
func (s *stateSerializable) deserialize() *State {
	builder := NewStateBuilder(s.ChainId).SetBlock(s.Block.Number, s.Block.Timestamp)
	if s.Global.FeeRecipient != nil {
		builder.SetFeeRecipient(*s.Global.FeeRecipient)
	}
	for _, market := range s.Markets {
		builder.AddMarket(market)
	}
	for _, user := range s.Users {
		builder.AddUser(user)
	}
	for _, token := range s.Tokens {
		builder.AddToken(token)
	}
	for _, holding := range s.Holdings {
		builder.AddHolding(holding)
	}
	for _, position := range s.Positions {
		builder.AddPosition(position)
	}
	for _, vault := range s.Vaults {
		builder.AddVault(vault)
	}
	for _, vaultUser := range s.VaultUsers {
		builder.AddVaultUser(vaultUser)
	}
	for _, config := range s.VaultMarketConfigs {
		builder.AddVaultMarketConfig(config)
	}
	return builder.Build()
}

func values[K comparable, V any](table *Table[K, V]) []V {
	keys := table.Keys()
	res := make([]V, 0, len(keys))
	for _, key := range keys {
		value, _ := table.Get(key)
		res = append(res, value)
	}
	return res
}
