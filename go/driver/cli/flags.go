// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package cliUtils

import (
	"log/slog"
	"runtime"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

type stateFlagType struct {
	cli.StringFlag
}

var StateFlag = &stateFlagType{
	cli.StringFlag{
		Name:      "state",
		Aliases:   []string{"s"},
		Usage:     "JSON file holding the initial snapshot",
		TakesFile: true,
		Required:  true,
	},
}

func (f *stateFlagType) Fetch(context *cli.Context) string {
	return context.String(f.Name)
}

type operationsFlagType struct {
	cli.StringFlag
}

var OperationsFlag = &operationsFlagType{
	cli.StringFlag{
		Name:      "operations",
		Aliases:   []string{"o"},
		Usage:     "JSON or YAML file listing the operations to replay",
		TakesFile: true,
		Required:  true,
	},
}

func (f *operationsFlagType) Fetch(context *cli.Context) string {
	return context.String(f.Name)
}

type outputFlagType struct {
	cli.StringFlag
}

var OutputFlag = &outputFlagType{
	cli.StringFlag{
		Name:      "output",
		Usage:     "store the final snapshot in the provided filename",
		TakesFile: true,
	},
}

func (f *outputFlagType) Fetch(context *cli.Context) string {
	return context.String(f.Name)
}

type iterationsFlagType struct {
	cli.IntFlag
}

var IterationsFlag = &iterationsFlagType{
	cli.IntFlag{
		Name:    "iterations",
		Aliases: []string{"n"},
		Usage:   "number of times the operations are replayed",
		Value:   1000,
	},
}

func (f *iterationsFlagType) Fetch(context *cli.Context) int {
	return context.Int(f.Name)
}

type jobsFlagType struct {
	cli.IntFlag
}

var JobsFlag = &jobsFlagType{
	cli.IntFlag{
		Name:    "jobs",
		Aliases: []string{"j"},
		Usage:   "number of replays run simultaneously",
		Value:   runtime.NumCPU(),
	},
}

func (f *jobsFlagType) Fetch(context *cli.Context) int {
	if jobs := context.Int(f.Name); jobs > 0 {
		return jobs
	}
	return runtime.NumCPU()
}

type verbosityFlagType struct {
	cli.IntFlag
}

var VerbosityFlag = &verbosityFlagType{
	cli.IntFlag{
		Name:  "verbosity",
		Usage: "log level: 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value: 3,
	},
}

func (f *verbosityFlagType) Fetch(context *cli.Context) slog.Level {
	return log.FromLegacyLevel(context.Int(f.Name))
}

type cpuProfileType struct {
	cli.StringFlag
}

var CpuProfileFlag = &cpuProfileType{
	cli.StringFlag{
		Name:      "cpuprofile",
		Usage:     "store CPU profile in the provided filename",
		TakesFile: true,
	},
}

func (f *cpuProfileType) Fetch(context *cli.Context) string {
	return context.String(f.Name)
}
