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
	"context"

	"github.com/Fantom-foundation/blue-simulation/go/st"
	"github.com/ethereum/go-ethereum/log"
)

//go:generate mockgen -source tracer.go -destination tracer_mock.go -package simulation

// Tracer is notified about the progress of a replay.
type Tracer interface {
	// OnOperation is called after operation index produced state after.
	OnOperation(index int, op Operation, before, after *st.State)
	// OnFailure is called when operation index failed. No further
	// operations are applied afterwards.
	OnFailure(index int, op Operation, err error)
}

// NewLoggingTracer creates a tracer writing every step to the given logger.
func NewLoggingTracer(logger log.Logger) Tracer {
	return &loggingTracer{logger: logger}
}

type loggingTracer struct {
	logger log.Logger
}

func (t *loggingTracer) OnOperation(index int, op Operation, before, after *st.State) {
	t.logger.Debug("Applied operation", "index", index, "type", op.Type(), "sender", op.GetSender(), "address", op.GetAddress())
	if t.logger.Enabled(context.Background(), log.LevelTrace) {
		for _, diff := range before.Diff(after) {
			t.logger.Trace("State change", "index", index, "diff", diff)
		}
	}
}

func (t *loggingTracer) OnFailure(index int, op Operation, err error) {
	t.logger.Warn("Operation failed", "index", index, "type", op.Type(), "sender", op.GetSender(), "err", err)
}
