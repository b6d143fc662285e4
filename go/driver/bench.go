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
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	cliUtils "github.com/Fantom-foundation/blue-simulation/go/driver/cli"
	"github.com/Fantom-foundation/blue-simulation/go/simulation"
	"github.com/dsnet/golib/unitconv"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var BenchCmd = cliUtils.AddCommonFlags(cli.Command{
	Action: doBench,
	Name:   "bench",
	Usage:  "Measures the throughput of replaying operations",
	Flags: []cli.Flag{
		cliUtils.StateFlag,
		cliUtils.OperationsFlag,
		cliUtils.IterationsFlag,
		cliUtils.JobsFlag,
	},
})

func doBench(context *cli.Context) error {
	initial, ops, err := loadInputs(context)
	if err != nil {
		return err
	}
	iterations := cliUtils.IterationsFlag.Fetch(context)
	jobCount := cliUtils.JobsFlag.Fetch(context)

	// A failing replay would only measure the time to the first error.
	if _, err := simulation.Simulate(ops, initial); err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}

	log.Info("Starting benchmark", "operations", len(ops), "iterations", iterations, "jobs", jobCount)

	var next atomic.Int64
	var wg sync.WaitGroup
	errs := make([]error, jobCount)
	start := time.Now()
	for i := 0; i < jobCount; i++ {
		wg.Add(1)
		go func(job int) {
			defer wg.Done()
			for next.Add(1) <= int64(iterations) {
				if _, err := simulation.Simulate(ops, initial); err != nil {
					errs[job] = err
					return
				}
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)
	if err := errors.Join(errs...); err != nil {
		return err
	}

	total := iterations * len(ops)
	rate := float64(total) / elapsed.Seconds()
	fmt.Fprintf(context.App.Writer,
		"Replayed %d operations in %v using %d jobs, ~%s operations per second\n",
		total, elapsed.Round(time.Millisecond), jobCount, unitconv.FormatPrefix(rate, unitconv.SI, 0),
	)
	return nil
}
