// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tabnet

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/train"
)

// Classifier runs the TabNet forward pass and a linear readout (no bias) to
// numClasses, returning class probabilities (softmax over the last axis) of
// shape [batch, numClasses] along with the full Outputs.
//
// For training prefer a logits loss: take Outputs.Output and apply your own
// Dense readout, as examples/adult/demo does.
func (m *Model) Classifier(ctx *context.Context, features *Node, numClasses int) (probabilities *Node, outputs *Outputs) {
	outputs = m.Apply(ctx, features)
	logits := layers.Dense(ctx.In("classification"), outputs.Output, false, numClasses)
	return Softmax(logits, -1), outputs
}

// Regressor runs the TabNet forward pass and a linear readout (no bias) to
// numRegressors target values, shape [batch, numRegressors], along with the
// full Outputs.
func (m *Model) Regressor(ctx *context.Context, features *Node, numRegressors int) (predictions *Node, outputs *Outputs) {
	outputs = m.Apply(ctx, features)
	predictions = layers.Dense(ctx.In("regression"), outputs.Output, false, numRegressors)
	return predictions, outputs
}

// AddSparsityLoss registers weight*entropy as an extra loss term with the
// trainer, the same mechanism used by the kernel regularizers. Call it from
// the model graph function with Outputs.TotalEntropy; it is a no-op outside a
// training loop.
func AddSparsityLoss(ctx *context.Context, entropy *Node, weight float64) {
	if weight == 0 {
		return
	}
	train.AddLoss(ctx, MulScalar(entropy, weight))
}
