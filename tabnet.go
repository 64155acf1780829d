// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tabnet implements the TabNet model for tabular data, as described in
// "TabNet: Attentive Interpretable Tabular Learning" (Sercan Ö. Arik, Tomas
// Pfister), https://arxiv.org/abs/1908.07442
//
// TabNet processes an encoded feature tensor through a sequence of decision
// steps. At each step a sparse attention mask -- a sparsemax projection of a
// learned score, scaled by how much each feature was already used in earlier
// steps -- selects which features feed a shared chain of gated (GLU) transform
// blocks. Each step contributes to an aggregated output and to a sparsity
// (entropy) penalty that the caller can fold into the task loss.
//
// Start with New (or NewFromContext) to configure a Model, then call
// Model.Apply within a graph building function:
//
//	func MyModel(ctx *context.Context, spec any, inputs []*Node) []*Node {
//		features := inputs[0] // shape [batch, numFeatures]
//		tn := tabnet.New(numFeatures).WithNumDecisionSteps(4)
//		out := tn.Apply(ctx.In("tabnet"), features)
//		tabnet.AddSparsityLoss(ctx, out.TotalEntropy, 1e-4)
//		logits := layers.Dense(ctx.In("readout"), out.Output, false, numClasses)
//		return []*Node{logits}
//	}
//
// The encoding of raw (heterogeneous) columns into the dense feature tensor is
// left to the caller -- see examples/adult for a typical encoder with
// per-column embeddings.
package tabnet

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
)

const (
	// ParamFeatureDim is the hyperparameter with the width of the feature
	// transform representation. The GLU transform chain operates at width
	// 2*feature_dim. The default is 64 (int).
	ParamFeatureDim = "tabnet_feature_dim"

	// ParamOutputDim is the hyperparameter with the width of the aggregated
	// decision output. It must be smaller than 2*feature_dim, since the
	// remaining 2*feature_dim-output_dim columns of each step representation
	// drive the attentive masks. The default is 64 (int).
	ParamOutputDim = "tabnet_output_dim"

	// ParamNumDecisionSteps is the hyperparameter with the number of
	// sequential decision steps. Most datasets do best with 3 to 10 steps.
	// The default is 5 (int).
	ParamNumDecisionSteps = "tabnet_num_decision_steps"

	// ParamRelaxationFactor is the hyperparameter controlling how much a
	// feature can be reused across decision steps: at 1.0 a fully attended
	// feature is disabled for all later steps, larger values relax that.
	// The default is 1.5 (float64).
	ParamRelaxationFactor = "tabnet_relaxation_factor"

	// ParamBatchMomentum is the hyperparameter with the momentum of the
	// moving averages of all batch normalization layers of the model.
	// The default is 0.98 (float64).
	ParamBatchMomentum = "tabnet_batch_momentum"

	// ParamVirtualBatchSize is the hyperparameter with the virtual ("ghost")
	// batch normalization size for the transform blocks. If > 0, the batch is
	// normalized in chunks of this size, with shared parameters and averages.
	// The default is 0 (int), meaning whole-batch normalization.
	ParamVirtualBatchSize = "tabnet_virtual_batch_size"

	// ParamSparsityEpsilon is the hyperparameter with the small constant
	// added inside the log of the entropy penalty, keeping it finite where a
	// mask entry is exactly 0. The default is 1e-5 (float64).
	ParamSparsityEpsilon = "tabnet_sparsity_epsilon"
)

// Model configures a TabNet model. Create it with New, adjust it with the
// With* setters (or NewFromContext/FromContext for hyperparameter driven
// configuration) and call Apply to build the forward computation.
//
// A Model is immutable once Apply is called; the learned weights live in the
// context scope given to Apply.
type Model struct {
	NumFeatures      int          // Number of input feature columns.
	FeatureDim       int          // The transform chain operates at width 2*FeatureDim.
	OutputDim        int          // Width of the aggregated decision output.
	NumDecisionSteps int          // Sequential decision steps; must be >= 1.
	RelaxationFactor float64      // Feature reuse relaxation (gamma); >= 1.
	BatchMomentum    float64      // Momentum for all batch normalization averages.
	VirtualBatchSize int          // Ghost batch normalization size; 0 disables.
	SparsityEpsilon  float64      // Added inside log() of the entropy penalty.
	DType            dtypes.DType // Data type of the created variables.
}

// New creates a TabNet model configuration with the defaults of the original
// paper implementation for a feature tensor with numFeatures columns.
func New(numFeatures int) *Model {
	return &Model{
		NumFeatures:      numFeatures,
		FeatureDim:       64,
		OutputDim:        64,
		NumDecisionSteps: 5,
		RelaxationFactor: 1.5,
		BatchMomentum:    0.98,
		VirtualBatchSize: 0,
		SparsityEpsilon:  1e-5,
		DType:            dtypes.Float32,
	}
}

// NewFromContext creates a TabNet model for numFeatures input columns,
// configured from the context hyperparameters (see Param* constants), falling
// back to the New defaults for parameters not set.
func NewFromContext(ctx *context.Context, numFeatures int) *Model {
	return New(numFeatures).FromContext(ctx)
}

// FromContext overwrites the model configuration with any hyperparameters set
// in the context. It returns the model to allow chaining.
func (m *Model) FromContext(ctx *context.Context) *Model {
	m.FeatureDim = context.GetParamOr(ctx, ParamFeatureDim, m.FeatureDim)
	m.OutputDim = context.GetParamOr(ctx, ParamOutputDim, m.OutputDim)
	m.NumDecisionSteps = context.GetParamOr(ctx, ParamNumDecisionSteps, m.NumDecisionSteps)
	m.RelaxationFactor = context.GetParamOr(ctx, ParamRelaxationFactor, m.RelaxationFactor)
	m.BatchMomentum = context.GetParamOr(ctx, ParamBatchMomentum, m.BatchMomentum)
	m.VirtualBatchSize = context.GetParamOr(ctx, ParamVirtualBatchSize, m.VirtualBatchSize)
	m.SparsityEpsilon = context.GetParamOr(ctx, ParamSparsityEpsilon, m.SparsityEpsilon)
	return m
}

// WithFeatureDim sets the feature transform width (the chain operates at
// 2*featureDim). Defaults to 64.
func (m *Model) WithFeatureDim(featureDim int) *Model {
	m.FeatureDim = featureDim
	return m
}

// WithOutputDim sets the width of the aggregated decision output. It must be
// smaller than 2*FeatureDim. Defaults to 64.
func (m *Model) WithOutputDim(outputDim int) *Model {
	m.OutputDim = outputDim
	return m
}

// WithNumDecisionSteps sets the number of sequential decision steps. With one
// single step the model degenerates to a zero output and no sparsity penalty.
// Defaults to 5.
func (m *Model) WithNumDecisionSteps(numSteps int) *Model {
	m.NumDecisionSteps = numSteps
	return m
}

// WithRelaxationFactor sets gamma, the feature reuse relaxation. Defaults to
// 1.5; typically a larger number of decision steps favors a larger gamma.
func (m *Model) WithRelaxationFactor(gamma float64) *Model {
	m.RelaxationFactor = gamma
	return m
}

// WithBatchMomentum sets the momentum of the batch normalization moving
// averages. Defaults to 0.98.
func (m *Model) WithBatchMomentum(momentum float64) *Model {
	m.BatchMomentum = momentum
	return m
}

// WithVirtualBatchSize enables ghost batch normalization with the given
// virtual batch size. The batch size must be a multiple of it. Defaults to 0,
// which normalizes over the whole batch.
func (m *Model) WithVirtualBatchSize(size int) *Model {
	m.VirtualBatchSize = size
	return m
}

// WithSparsityEpsilon sets the constant added inside the log of the entropy
// penalty. Defaults to 1e-5.
func (m *Model) WithSparsityEpsilon(epsilon float64) *Model {
	m.SparsityEpsilon = epsilon
	return m
}

// WithDType sets the dtype of the variables created by the model. Defaults to
// Float32. The input feature tensor must match.
func (m *Model) WithDType(dtype dtypes.DType) *Model {
	m.DType = dtype
	return m
}

// assertValid panics (with an exception) if the configuration or the feature
// tensor shape is invalid. Any failure here is fatal to the forward pass.
func (m *Model) assertValid(features *Node) {
	if m.NumFeatures <= 0 {
		exceptions.Panicf("tabnet: NumFeatures must be positive, got %d", m.NumFeatures)
	}
	if m.FeatureDim <= 0 || m.OutputDim <= 0 {
		exceptions.Panicf("tabnet: FeatureDim (%d) and OutputDim (%d) must be positive",
			m.FeatureDim, m.OutputDim)
	}
	if m.OutputDim >= 2*m.FeatureDim {
		exceptions.Panicf("tabnet: OutputDim (%d) must be smaller than 2*FeatureDim (%d), "+
			"the remaining columns of the step representation drive the attentive masks",
			m.OutputDim, 2*m.FeatureDim)
	}
	if m.NumDecisionSteps < 1 {
		exceptions.Panicf("tabnet: NumDecisionSteps must be at least 1, got %d", m.NumDecisionSteps)
	}
	if m.RelaxationFactor < 1.0 {
		exceptions.Panicf("tabnet: RelaxationFactor must be >= 1.0, got %g", m.RelaxationFactor)
	}
	if m.VirtualBatchSize < 0 {
		exceptions.Panicf("tabnet: VirtualBatchSize must be >= 0, got %d", m.VirtualBatchSize)
	}
	if features.Rank() != 2 {
		exceptions.Panicf("tabnet: features must be rank-2 ([batch, numFeatures]), got shape %s",
			features.Shape())
	}
	if features.DType() != m.DType {
		exceptions.Panicf("tabnet: features dtype %s does not match the model DType %s",
			features.DType(), m.DType)
	}
	if features.Shape().Dimensions[1] != m.NumFeatures {
		exceptions.Panicf("tabnet: features have %d columns, model configured for NumFeatures=%d",
			features.Shape().Dimensions[1], m.NumFeatures)
	}
	if m.VirtualBatchSize > 0 {
		batchSize := features.Shape().Dimensions[0]
		if batchSize%m.VirtualBatchSize != 0 {
			exceptions.Panicf("tabnet: batch size %d is not a multiple of VirtualBatchSize %d",
				batchSize, m.VirtualBatchSize)
		}
	}
}
