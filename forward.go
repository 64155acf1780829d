// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tabnet

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/gomlx/gomlx/pkg/ml/layers/batchnorm"
)

// Outputs holds the results of one TabNet forward pass.
type Outputs struct {
	// Output is the aggregated decision representation, shape
	// [batch, OutputDim]. Feed it to a head (Classifier/Regressor) or to
	// your own readout layer.
	Output *Node

	// TotalEntropy is the scalar sparsity penalty, the entropy of the
	// attention masks averaged over the batch and the mask-producing steps.
	// Add it (scaled) to the training loss to push the masks towards sparse
	// feature selection -- see AddSparsityLoss.
	TotalEntropy *Node

	// AggregatedMask weighs each step's mask by how much that step
	// contributed to the output, shape [batch, NumFeatures]. It is the
	// model's per-example feature importance.
	AggregatedMask *Node

	// Masks are the per-step attention masks, each [batch, NumFeatures],
	// with NumDecisionSteps-1 entries (the last step produces no mask).
	Masks []*Node
}

// Apply builds the TabNet forward computation on features, shape
// [batch, NumFeatures]. The learned variables are created in (and reused
// from) the given scope of ctx.
//
// Normalization statistics follow ctx.IsTraining(g): during training the
// batch moments are used and the moving averages updated; frozen, the moving
// averages are used, so repeated inference on the same input is
// deterministic.
//
// It panics (throws with an exception) on invalid configuration or if the
// features shape does not match.
func (m *Model) Apply(ctx *context.Context, features *Node) *Outputs {
	m.assertValid(features)
	g := features.Graph()
	dtype := features.DType()
	batchSize := features.Shape().Dimensions[0]

	// The transform and attentive weights are created at step 0 and reused by
	// every later step, so variable reuse checks are disabled for the whole
	// model scope.
	ctx = ctx.Checked(false)

	features = batchnorm.New(ctx.In("input"), features, -1).
		Momentum(m.BatchMomentum).Done()

	output := Zeros(g, shapes.Make(dtype, batchSize, m.OutputDim))
	aggregatedMask := Zeros(g, shapes.Make(dtype, batchSize, m.NumFeatures))
	totalEntropy := ScalarZero(g, dtype)
	budget := Ones(g, shapes.Make(dtype, batchSize, m.NumFeatures))
	masked := features
	var masks []*Node
	var prevMask *Node

	for ni := range m.NumDecisionSteps {
		stepRepr := m.featureTransform(ctx, masked)
		if ni > 0 {
			// Step 0 only primes the first mask; its decision columns are
			// discarded, like the original TabNet encoder does.
			decision := activations.Relu(
				Slice(stepRepr, AxisRange(), AxisRangeFromStart(m.OutputDim)))
			output = Add(output, decision)
			// How much this step contributed, used to weigh the mask that
			// selected its input features.
			scale := MulScalar(
				ReduceAndKeep(decision, ReduceSum, -1),
				1.0/float64(m.NumDecisionSteps-1))
			aggregatedMask = Add(aggregatedMask, Mul(prevMask, scale))
		}
		if ni < m.NumDecisionSteps-1 {
			driver := Slice(stepRepr, AxisRange(), AxisRangeToEnd(m.OutputDim))
			var mask *Node
			mask, budget = m.attentiveTransformer(ctx.In("attentive"), driver, budget)
			totalEntropy = Add(totalEntropy, m.stepEntropy(mask))
			// The mask always selects from the normalized input features,
			// not from the previous step's masked view.
			masked = Mul(mask, features)
			masks = append(masks, mask)
			prevMask = mask
		}
	}

	return &Outputs{
		Output:         output,
		TotalEntropy:   totalEntropy,
		AggregatedMask: aggregatedMask,
		Masks:          masks,
	}
}
