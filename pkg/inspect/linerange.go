// Package inspect implements the pipeline instrumentation engine.
//
// Given an expression tree that ends in an inspect() call, the engine
// rewrites the pipeline so each step's result and timing become observable
// at run time, recovers the literal source text of the pipeline from the
// backing file, and correlates captured per-step values back to their
// originating source lines to produce a human-readable report.
//
// The components are layered leaf-first:
//   - LineRange: min/max source lines of a tree (linerange.go)
//   - ExtractSlice: literal source text recovery (slicer.go)
//   - Rewrite: capture-node insertion (rewriter.go)
//   - Annotate: run-time value/duration correlation (correlate.go)
//   - Plan.Render: report assembly (report.go)
package inspect

import (
	"github.com/pipelens/pipelens/pkg/types"
)

// LineRange computes the minimum and maximum 1-based source line numbers
// any node in the tree originates from. Nodes without line metadata do not
// affect the bounds. ok is false when no node in the whole tree carries a
// line number.
//
// The fold visits every node; the result does not depend on traversal
// order and the tree is never mutated.
func LineRange(tree *types.Node) (min, max int, ok bool) {
	foldLines(tree, func(line int) {
		if !ok {
			min, max, ok = line, line, true
			return
		}
		if line < min {
			min = line
		}
		if line > max {
			max = line
		}
	})
	return min, max, ok
}

// foldLines invokes fn with the line number of every node that carries one.
func foldLines(n *types.Node, fn func(line int)) {
	if n == nil {
		return
	}
	if n.Line > 0 {
		fn(n.Line)
	}
	foldLines(n.LHS, fn)
	foldLines(n.RHS, fn)
	for _, arg := range n.Arguments {
		foldLines(arg, fn)
	}
	for _, expr := range n.Expressions {
		foldLines(expr, fn)
	}
}
