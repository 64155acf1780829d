// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tabnet

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/tabnet/sparsemax"
)

// attentiveTransformer builds the feature selection mask of one decision step
// from the mask-driver slice of the previous step representation.
//
// The driver is projected to one score per feature, scaled entrywise by the
// remaining attention budget and projected onto the simplex with sparsemax.
// The budget then shrinks by (RelaxationFactor - mask): a feature fully
// attended at gamma=1 becomes unavailable to all later steps, larger gammas
// allow reuse.
//
// It returns the mask, shape [batch, NumFeatures], and the updated budget.
// Like the feature transform, the projection weights are shared across steps.
func (m *Model) attentiveTransformer(ctx *context.Context, driver, budget *Node) (mask, newBudget *Node) {
	scores := m.transformBlock(ctx.In("transform_coef"), driver, m.NumFeatures)
	scores = Mul(scores, budget)
	mask = sparsemax.Sparsemax(scores, -1)
	newBudget = Mul(budget, AddScalar(Neg(mask), m.RelaxationFactor))
	return mask, newBudget
}

// stepEntropy is one decision step's contribution to the sparsity penalty:
// the batch mean of the mask's entropy, averaged over the mask-producing
// steps. The epsilon keeps the log finite on the exact zeros sparsemax
// produces.
func (m *Model) stepEntropy(mask *Node) *Node {
	entropy := Neg(Mul(mask, Log(AddScalar(mask, m.SparsityEpsilon))))
	perExample := ReduceSum(entropy, -1)
	return MulScalar(ReduceAllMean(perExample), 1.0/float64(m.NumDecisionSteps-1))
}
