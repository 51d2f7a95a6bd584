package inspect

import (
	"github.com/pipelens/pipelens/pkg/types"
)

// Rewrite returns a structurally transformed copy of a pipeline chain in
// which every step except the outermost one is wrapped in a capture node
// tagged with the step's source line. Evaluating the result yields the
// same value, in the same order, with the same side effects as evaluating
// chain; the wrappers additionally record each step's value and a
// cumulative timestamp into the invocation's capture state.
//
// The input tree is never mutated; callers keep the original for the
// un-instrumented path.
func Rewrite(chain *types.Node) *types.Node {
	return rewriteStep(chain, 0)
}

// rewriteStep walks the chain of pipeline steps with a zero-based depth
// counter of how many links have been processed so far.
func rewriteStep(n *types.Node, depth int) *types.Node {
	// Base case: a node that is not a pipeline link ends the chain and is
	// returned unchanged (nothing to instrument).
	if n == nil || n.Kind != types.NodePipe {
		return n
	}

	cp := n.ShallowCopy()
	cp.LHS = rewriteStep(n.LHS, depth+1)

	// The outermost link is the one handed directly to inspect(); its own
	// value is reported by the report assembler, not by a capture.
	if depth == 0 {
		return cp
	}

	// Synthesized steps without line metadata cannot be correlated back
	// to source text, so wrapping them would only burn a timestamp.
	if n.Line == 0 {
		return cp
	}

	capture := types.NewNode(types.NodeCapture, n.Position)
	capture.Line = n.Line
	capture.LHS = cp
	return capture
}

// StepCount returns the number of pipeline links in a chain. The rewriter
// produces exactly StepCount(chain)-1 capture nodes for a chain of two or
// more steps.
func StepCount(chain *types.Node) int {
	count := 0
	for n := chain; n != nil && n.Kind == types.NodePipe; n = n.LHS {
		count++
	}
	return count
}
