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

import "fmt"

// bundlerMulticall applies the bundled operations on the editor of the
// enclosing operation, so a failing step discards the whole batch.
func (r *reducer) bundlerMulticall(op BundlerMulticall) error {
	if op.Sender != r.addresses.Bundler {
		return &UnauthorizedError{Sender: op.Sender, Target: r.addresses.Bundler}
	}
	for i, inner := range op.Operations {
		if inner.GetSender() != r.addresses.Bundler {
			return &UnauthorizedError{Sender: inner.GetSender(), Target: r.addresses.Bundler}
		}
		if err := r.apply(inner); err != nil {
			return fmt.Errorf("bundled operation %d (%s): %w", i, inner.Type(), err)
		}
	}
	return nil
}
