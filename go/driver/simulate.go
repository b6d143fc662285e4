// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"

	cliUtils "github.com/Fantom-foundation/blue-simulation/go/driver/cli"
	"github.com/Fantom-foundation/blue-simulation/go/simulation"
	"github.com/Fantom-foundation/blue-simulation/go/st"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var SimulateCmd = cliUtils.AddCommonFlags(cli.Command{
	Action: doSimulate,
	Name:   "simulate",
	Usage:  "Replays operations on a snapshot and prints the resulting state changes",
	Flags: []cli.Flag{
		cliUtils.StateFlag,
		cliUtils.OperationsFlag,
		cliUtils.OutputFlag,
	},
})

func doSimulate(context *cli.Context) error {
	initial, ops, err := loadInputs(context)
	if err != nil {
		return err
	}

	log.Info("Replaying operations", "count", len(ops), "chain", initial.ChainId(), "block", initial.Block().Number)
	states, err := simulation.SimulateWithTracer(ops, initial, simulation.NewLoggingTracer(log.Root()))
	if err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}

	out := context.App.Writer
	for i, op := range ops {
		fmt.Fprintf(out, "%d: %s (sender %v, address %v)\n", i, op.Type(), op.GetSender(), op.GetAddress())
		for _, diff := range states[i].Diff(states[i+1]) {
			fmt.Fprintf(out, "\t%s\n", diff)
		}
	}

	if path := cliUtils.OutputFlag.Fetch(context); path != "" {
		if err := st.ExportStateJSON(states[len(states)-1], path); err != nil {
			return fmt.Errorf("failed to dump final state: %w", err)
		}
		fmt.Fprintf(out, "Final state dumped to %s\n", path)
	}
	return nil
}
