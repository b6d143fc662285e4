// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package simulation replays protocol operations on immutable snapshots.
//
// Every operation is applied by a reducer deriving a new snapshot from its
// predecessor. Reducers reproduce the arithmetic of the deployed contracts,
// including rounding directions and overflow checks, and fail with a typed
// error if the contract call would revert.
package simulation

import (
	"github.com/Fantom-foundation/blue-simulation/go/blue"
	"github.com/Fantom-foundation/blue-simulation/go/st"
)

// Simulate applies the given operations in order. The result lists the
// initial state followed by the state produced by each operation. On the
// first failing operation no states are returned and the error is an
// *OperationError identifying the operation.
func Simulate(ops []Operation, initial *st.State) ([]*st.State, error) {
	return SimulateWithTracer(ops, initial, nil)
}

// SimulateWithTracer is Simulate reporting every step to the given tracer,
// which may be nil.
func SimulateWithTracer(ops []Operation, initial *st.State, tracer Tracer) ([]*st.State, error) {
	res := make([]*st.State, 0, len(ops)+1)
	res = append(res, initial)
	for i, op := range ops {
		before := res[len(res)-1]
		after, err := Apply(before, op)
		if err != nil {
			if tracer != nil {
				tracer.OnFailure(i, op, err)
			}
			return nil, &OperationError{Index: i, Type: op.Type(), Err: err}
		}
		if tracer != nil {
			tracer.OnOperation(i, op, before, after)
		}
		res = append(res, after)
	}
	return res, nil
}

// Apply derives the state resulting from a single operation. The given
// state is not modified.
func Apply(state *st.State, op Operation) (*st.State, error) {
	addresses, err := state.Addresses()
	if err != nil {
		return nil, err
	}
	r := &reducer{editor: st.NewEditor(state), addresses: addresses}
	if err := r.apply(op); err != nil {
		return nil, err
	}
	return r.editor.Commit(), nil
}

// reducer applies operations on a state editor.
type reducer struct {
	editor    *st.Editor
	addresses blue.Addresses
}

func (r *reducer) apply(op Operation) error {
	switch op := op.(type) {
	case Erc20Approve:
		return r.erc20Approve(op)
	case Erc20Permit2:
		return r.erc20Permit2(op)
	case Erc20Transfer:
		return r.erc20Transfer(op)
	case Erc20Transfer2:
		return r.erc20Transfer2(op)
	case BlueSupply:
		return r.blueSupply(op)
	case BlueWithdraw:
		return r.blueWithdraw(op)
	case BlueBorrow:
		return r.blueBorrow(op)
	case BlueRepay:
		return r.blueRepay(op)
	case BlueSupplyCollateral:
		return r.blueSupplyCollateral(op)
	case BlueWithdrawCollateral:
		return r.blueWithdrawCollateral(op)
	case BlueLiquidate:
		return r.blueLiquidate(op)
	case BlueAccrueInterest:
		return r.blueAccrueInterest(op)
	case BlueSetAuthorization:
		return r.blueSetAuthorization(op)
	case MetaMorphoDeposit:
		return r.metaMorphoDeposit(op)
	case MetaMorphoMint:
		return r.metaMorphoMint(op)
	case MetaMorphoWithdraw:
		return r.metaMorphoWithdraw(op)
	case MetaMorphoRedeem:
		return r.metaMorphoRedeem(op)
	case MetaMorphoReallocate:
		return r.metaMorphoReallocate(op)
	case BundlerMulticall:
		return r.bundlerMulticall(op)
	default:
		return &UnsupportedOperationError{Type: op.Type()}
	}
}
