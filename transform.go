// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tabnet

import (
	"math"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/batchnorm"
)

// batchNorm normalizes x over the batch axis with the model's momentum. If
// VirtualBatchSize is set, normalization statistics are taken per virtual
// ("ghost") batch, but the learned scale/offset and the moving averages are
// shared across all virtual batches of the layer.
func (m *Model) batchNorm(ctx *context.Context, x *Node) *Node {
	batchSize := x.Shape().Dimensions[0]
	if m.VirtualBatchSize <= 0 || batchSize <= m.VirtualBatchSize {
		return batchnorm.New(ctx, x, -1).Momentum(m.BatchMomentum).Done()
	}
	numVirtual := batchSize / m.VirtualBatchSize
	parts := Split(x, 0, numVirtual)
	for ii, part := range parts {
		parts[ii] = batchnorm.New(ctx, part, -1).Momentum(m.BatchMomentum).Done()
	}
	return Concatenate(parts, 0)
}

// transformBlock is the unit shared by the feature transform chain and the
// attentive transformer: a dense projection without bias followed by batch
// normalization.
func (m *Model) transformBlock(ctx *context.Context, x *Node, numUnits int) *Node {
	x = layers.Dense(ctx, x, false, numUnits)
	return m.batchNorm(ctx, x)
}

// glu is the gated linear unit: the first numUnits columns are gated by a
// sigmoid of the remaining columns.
func glu(x *Node, numUnits int) *Node {
	values := Slice(x, AxisRange(), AxisRangeFromStart(numUnits))
	gates := Slice(x, AxisRange(), AxisRangeToEnd(numUnits))
	return Mul(values, Sigmoid(gates))
}

// featureTransform runs the chain of four gated transform blocks over the
// masked features and returns the step representation, shape
// [batch, 2*FeatureDim]. Residual additions are scaled by sqrt(0.5) to keep
// the variance stable along the chain.
//
// The blocks are shared across decision steps: the caller passes the same
// (unchecked) scope every step, so the variables are created at step 0 and
// reused afterwards.
func (m *Model) featureTransform(ctx *context.Context, x *Node) *Node {
	width := 2 * m.FeatureDim
	out1 := glu(m.transformBlock(ctx.In("transform_f1"), x, 2*width), width)
	out2 := glu(m.transformBlock(ctx.In("transform_f2"), out1, 2*width), width)
	out2 = MulScalar(Add(out2, out1), math.Sqrt(0.5))
	out3 := glu(m.transformBlock(ctx.In("transform_f3"), out2, 2*width), width)
	out3 = MulScalar(Add(out3, out2), math.Sqrt(0.5))
	out4 := glu(m.transformBlock(ctx.In("transform_f4"), out3, 2*width), width)
	return MulScalar(Add(out4, out3), math.Sqrt(0.5))
}
