// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package sparsemax provides the sparsemax activation, the euclidean
// projection of a logits vector onto the probability simplex, from
// "From Softmax to Sparsemax: A Sparse Model of Attention and Multi-Label
// Classification" (Martins, Astudillo), https://arxiv.org/abs/1602.02068
//
// Unlike softmax, sparsemax assigns exactly zero probability to low-scoring
// entries, which makes it a natural choice for learned feature selection
// masks.
package sparsemax

import (
	. "github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/pkg/core/graph"
)

// Sparsemax projects logits onto the probability simplex along the given axis:
//
//	sparsemax(z) = argmin_{p in simplex} ||p - z||^2
//
// The result has the same shape as logits; along the projection axis the
// entries are non-negative and sum to 1, and entries below the projection
// threshold are exactly 0. A row of all-equal logits maps to the uniform
// distribution. The projection is shift invariant: adding a constant to a row
// does not change its output.
//
// If no axis is given, it defaults to -1, the last axis. Only a single
// projection axis is supported.
//
// The threshold search runs on a sorted copy of the logits under a
// StopGradient; the threshold is then recomputed from the support set in the
// original entry order, so the returned node carries the exact sparsemax
// Jacobian without requiring a gradient through the sort.
func Sparsemax(logits *graph.Node, axes ...int) *graph.Node {
	if !logits.DType().IsFloat() {
		Panicf("invalid logits dtype (%s), it must be float", logits.DType())
	}
	if logits.Rank() == 0 {
		Panicf("cannot take Sparsemax of a scalar")
	}
	if len(axes) == 0 {
		axes = []int{-1}
	}
	if len(axes) != 1 {
		Panicf("Sparsemax supports a single projection axis, got %v", axes)
	}
	axis := axes[0]
	g := logits.Graph()
	dtype := logits.DType()

	// Find the support size k on the sorted row: the largest k such that
	// 1 + k*z_(k) > z_(1) + ... + z_(k). This section needs no gradient --
	// the threshold is recomputed differentiably below.
	sorted := graph.StopGradient(graph.Sort(logits, axis, false))
	cumSum := graph.CumSum(sorted, axis)
	k := graph.OnePlus(graph.Iota(g, logits.Shape(), axis))
	support := graph.GreaterThan(graph.OnePlus(graph.Mul(k, sorted)), cumSum)
	supportSize := graph.ReduceAndKeep(
		graph.ConvertDType(support, dtype), graph.ReduceSum, axis)
	supportSum := graph.ReduceAndKeep(
		graph.Where(support, sorted, graph.ZerosLike(sorted)), graph.ReduceSum, axis)

	// Threshold tau such that sum(max(z-tau, 0)) == 1. The support always
	// contains at least the largest entry (1 + z_(1) > z_(1)), so
	// supportSize >= 1 and the division is safe.
	tau := graph.Div(graph.MinusOne(supportSum), supportSize)

	// Recompute tau from the support membership in the original order. The
	// value is identical, but now tau is a differentiable function of the
	// in-support logits, giving the exact sparsemax gradient.
	inSupport := graph.ConvertDType(graph.GreaterThan(logits, tau), dtype)
	numInSupport := graph.ReduceAndKeep(inSupport, graph.ReduceSum, axis)
	tau = graph.Div(
		graph.MinusOne(graph.ReduceAndKeep(graph.Mul(inSupport, logits), graph.ReduceSum, axis)),
		numInSupport)
	return graph.Mul(inSupport, graph.Sub(logits, tau))
}
