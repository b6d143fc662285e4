// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package simulation

import (
	"bytes"
	"encoding/json"
	"fmt"

	. "github.com/Fantom-foundation/blue-simulation/go/common"
)

// envelope is the serialized form of an operation.
type envelope struct {
	Type    OperationType   `json:"type"`
	Sender  Address         `json:"sender"`
	Address Address         `json:"address"`
	Args    json.RawMessage `json:"args,omitempty"`
}

type multicallArgs struct {
	Operations []json.RawMessage `json:"operations"`
}

// MarshalOperation encodes an operation as
// {"type": ..., "sender": ..., "address": ..., "args": {...}}.
func MarshalOperation(op Operation) ([]byte, error) {
	var args []byte
	var err error
	if multicall, ok := op.(BundlerMulticall); ok {
		inner := multicallArgs{Operations: make([]json.RawMessage, 0, len(multicall.Operations))}
		for _, cur := range multicall.Operations {
			encoded, err := MarshalOperation(cur)
			if err != nil {
				return nil, err
			}
			inner.Operations = append(inner.Operations, encoded)
		}
		args, err = json.Marshal(inner)
	} else {
		args, err = json.Marshal(op)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode arguments of %s: %w", op.Type(), err)
	}
	return json.Marshal(envelope{
		Type:    op.Type(),
		Sender:  op.GetSender(),
		Address: op.GetAddress(),
		Args:    args,
	})
}

// MarshalOperations encodes a list of operations as a json array.
func MarshalOperations(ops []Operation) ([]byte, error) {
	list := make([]json.RawMessage, 0, len(ops))
	for _, op := range ops {
		encoded, err := MarshalOperation(op)
		if err != nil {
			return nil, err
		}
		list = append(list, encoded)
	}
	return json.Marshal(list)
}

// UnmarshalOperation decodes a single operation. Unknown operation types
// are reported as UnsupportedOperationError.
func UnmarshalOperation(data []byte) (Operation, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return env.decode()
}

// UnmarshalOperations decodes a json array of operations.
func UnmarshalOperations(data []byte) ([]Operation, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	res := make([]Operation, 0, len(list))
	for i, cur := range list {
		op, err := UnmarshalOperation(cur)
		if err != nil {
			return nil, fmt.Errorf("invalid operation %d: %w", i, err)
		}
		res = append(res, op)
	}
	return res, nil
}

func (e envelope) decode() (Operation, error) {
	switch e.Type {
	case TypeErc20Approve:
		return decodeArgs[Erc20Approve](e)
	case TypeErc20Permit2:
		return decodeArgs[Erc20Permit2](e)
	case TypeErc20Transfer:
		return decodeArgs[Erc20Transfer](e)
	case TypeErc20Transfer2:
		return decodeArgs[Erc20Transfer2](e)
	case TypeBlueSupply:
		return decodeArgs[BlueSupply](e)
	case TypeBlueWithdraw:
		return decodeArgs[BlueWithdraw](e)
	case TypeBlueBorrow:
		return decodeArgs[BlueBorrow](e)
	case TypeBlueRepay:
		return decodeArgs[BlueRepay](e)
	case TypeBlueSupplyCollateral:
		return decodeArgs[BlueSupplyCollateral](e)
	case TypeBlueWithdrawCollateral:
		return decodeArgs[BlueWithdrawCollateral](e)
	case TypeBlueLiquidate:
		return decodeArgs[BlueLiquidate](e)
	case TypeBlueAccrueInterest:
		return decodeArgs[BlueAccrueInterest](e)
	case TypeBlueSetAuthorization:
		return decodeArgs[BlueSetAuthorization](e)
	case TypeMetaMorphoDeposit:
		return decodeArgs[MetaMorphoDeposit](e)
	case TypeMetaMorphoMint:
		return decodeArgs[MetaMorphoMint](e)
	case TypeMetaMorphoWithdraw:
		return decodeArgs[MetaMorphoWithdraw](e)
	case TypeMetaMorphoRedeem:
		return decodeArgs[MetaMorphoRedeem](e)
	case TypeMetaMorphoReallocate:
		return decodeArgs[MetaMorphoReallocate](e)
	case TypeBundlerMulticall:
		return e.decodeMulticall()
	default:
		return nil, &UnsupportedOperationError{Type: e.Type}
	}
}

func (e envelope) meta() Meta {
	return Meta{Sender: e.Sender, Address: e.Address}
}

func decodeArgs[T Operation](e envelope) (Operation, error) {
	var op T
	if len(e.Args) > 0 {
		decoder := json.NewDecoder(bytes.NewReader(e.Args))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&op); err != nil {
			return nil, fmt.Errorf("invalid arguments of %s: %w", e.Type, err)
		}
	}
	any(&op).(interface{ setMeta(Meta) }).setMeta(e.meta())
	return op, nil
}

func (e envelope) decodeMulticall() (Operation, error) {
	var args multicallArgs
	if len(e.Args) > 0 {
		decoder := json.NewDecoder(bytes.NewReader(e.Args))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&args); err != nil {
			return nil, fmt.Errorf("invalid arguments of %s: %w", e.Type, err)
		}
	}
	res := BundlerMulticall{Meta: e.meta(), Operations: make([]Operation, 0, len(args.Operations))}
	for _, cur := range args.Operations {
		op, err := UnmarshalOperation(cur)
		if err != nil {
			return nil, err
		}
		res.Operations = append(res.Operations, op)
	}
	return res, nil
}
