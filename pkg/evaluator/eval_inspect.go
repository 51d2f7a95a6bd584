package evaluator

import (
	"context"
	"io"

	"github.com/pipelens/pipelens/pkg/inspect"
	"github.com/pipelens/pipelens/pkg/types"
)

// evalInspect runs an instrumented chain: a fresh capture state collects
// step values while the chain evaluates, then the prepared plan renders
// the report. The chain's value passes through unchanged, so an inspect
// call never alters what the surrounding expression sees.
//
// When the chain fails the partial report is still written, without the
// final value, and the error propagates as if the call were not there.
func (e *Evaluator) evalInspect(ctx context.Context, node *types.Node, evalCtx *EvalContext) (interface{}, error) {
	plan, ok := node.Value.(*inspect.Plan)
	if !ok {
		return e.evalNode(ctx, node.LHS, evalCtx)
	}

	st := inspect.NewCaptureState()
	value, evalErr := e.evalNode(ctx, node.LHS, evalCtx.WithCapture(st))
	total := st.SinceStart()

	var vars []inspect.Binding
	if plan.Options.ShowVars {
		vars = evalCtx.VisibleBindings()
	}

	report := plan.Render(st, value, total, vars, evalErr != nil, e.opts.Color)
	if _, err := io.WriteString(e.reportWriter(), report); err != nil {
		e.logger.Warn("failed to write inspect report", "error", err)
	}

	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}
