// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sparsemax_test

import (
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/tabnet/sparsemax"
)

func TestSparsemax(t *testing.T) {
	// Hand-computed projections. Row by row: a dominating entry takes all the
	// mass; two close entries share it and the third is exactly 0; a row
	// already on the simplex is a fixed point; an all-equal row maps to the
	// uniform distribution; shifting a row by a constant changes nothing.
	graphtest.RunTestGraphFn(t, "Sparsemax",
		func(g *Graph) (inputs, outputs []*Node) {
			inputs = []*Node{
				Const(g, [][]float32{
					{3.0, 1.0, 0.2},
					{1.1, 1.0, 0.5},
					{0.6, 0.4, 0.0},
					{0.0, 0.0, 0.0},
					{10.6, 10.4, 10.0},
				}),
			}
			outputs = []*Node{sparsemax.Sparsemax(inputs[0])}
			return
		}, []any{
			[][]float32{
				{1.0, 0.0, 0.0},
				{0.55, 0.45, 0.0},
				{0.6, 0.4, 0.0},
				{1.0 / 3.0, 1.0 / 3.0, 1.0 / 3.0},
				{0.6, 0.4, 0.0},
			},
		}, 1e-4)
}

func TestSparsemaxAxis(t *testing.T) {
	// Projection along axis 0 instead of the default last axis.
	graphtest.RunTestGraphFn(t, "Sparsemax(axis=0)",
		func(g *Graph) (inputs, outputs []*Node) {
			inputs = []*Node{
				Const(g, [][]float32{
					{3.0, 0.5},
					{1.0, 0.5},
				}),
			}
			outputs = []*Node{sparsemax.Sparsemax(inputs[0], 0)}
			return
		}, []any{
			[][]float32{
				{1.0, 0.5},
				{0.0, 0.5},
			},
		}, 1e-4)
}

func TestSparsemaxSumsToOne(t *testing.T) {
	// Larger random-ish rows: every projected row must be non-negative and
	// sum to exactly one.
	graphtest.RunTestGraphFn(t, "Sparsemax normalization",
		func(g *Graph) (inputs, outputs []*Node) {
			inputs = []*Node{
				Const(g, [][]float64{
					{0.31, -1.7, 2.4, 0.3, 0.29, -0.5},
					{-3.0, -3.0, -3.0, -3.0, -3.0, -2.99},
					{100.0, 0.0, -100.0, 1.0, 2.0, 3.0},
				}),
			}
			projected := sparsemax.Sparsemax(inputs[0])
			outputs = []*Node{
				ReduceSum(projected, -1),
				ReduceAllMin(projected),
			}
			return
		}, []any{
			[]float64{1.0, 1.0, 1.0},
			0.0,
		}, 1e-6)
}
