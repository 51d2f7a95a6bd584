package evaluator

import (
	"context"
	"fmt"

	"github.com/pipelens/pipelens/pkg/types"
)

// depthKey is used to store the shared recursion counter in a
// context.Context.
type depthKey struct{}

type depthCounter struct {
	n int
}

func withDepthCounter(ctx context.Context) context.Context {
	return context.WithValue(ctx, depthKey{}, &depthCounter{})
}

func (e *Evaluator) evalNode(ctx context.Context, node *types.Node, evalCtx *EvalContext) (interface{}, error) {
	// Check context cancellation
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if node == nil {
		return nil, nil
	}

	// Check recursion depth
	if d, ok := ctx.Value(depthKey{}).(*depthCounter); ok {
		d.n++
		defer func() { d.n-- }()
		if d.n > e.opts.MaxDepth {
			return nil, types.NewError(types.ErrUndefinedVariable, "maximum recursion depth exceeded", -1)
		}
	}

	// Debug logging
	if e.opts.Debug {
		e.logger.Debug("evaluating node",
			"kind", node.Kind,
			"line", node.Line,
			"depth", evalCtx.Depth())
	}

	// Dispatch based on node kind
	switch node.Kind {
	case types.NodeString:
		return node.StrValue, nil
	case types.NodeNumber:
		return node.NumValue, nil
	case types.NodeBoolean, types.NodeNull:
		// Keep types.Null as-is during evaluation.
		// It is converted to nil at final return.
		return node.Value, nil
	case types.NodeName:
		return e.evalName(node, evalCtx)
	case types.NodeBind:
		return e.evalBind(ctx, node, evalCtx)
	case types.NodeBlock:
		return e.evalBlock(ctx, node, evalCtx)
	case types.NodeBinary:
		return e.evalBinary(ctx, node, evalCtx)
	case types.NodeUnary:
		return e.evalUnary(ctx, node, evalCtx)
	case types.NodeCondition:
		return e.evalCondition(ctx, node, evalCtx)
	case types.NodeArray:
		return e.evalArray(ctx, node, evalCtx)
	case types.NodeObject:
		return e.evalObject(ctx, node, evalCtx)
	case types.NodeCall:
		return e.evalCall(ctx, node, evalCtx)
	case types.NodePipe:
		return e.evalPipe(ctx, node, evalCtx)
	case types.NodeCapture:
		return e.evalCapture(ctx, node, evalCtx)
	case types.NodeInspect:
		return e.evalInspect(ctx, node, evalCtx)
	default:
		return nil, fmt.Errorf("unsupported node kind: %s", node.Kind)
	}
}

// evalName resolves an identifier against the visible bindings.
func (e *Evaluator) evalName(node *types.Node, evalCtx *EvalContext) (interface{}, error) {
	if value, ok := evalCtx.GetBinding(node.StrValue); ok {
		return value, nil
	}
	return nil, types.NewError(types.ErrUndefinedVariable,
		fmt.Sprintf("undefined variable %q", node.StrValue), node.Position)
}

// evalBind evaluates the right-hand side and binds it in the current scope.
func (e *Evaluator) evalBind(ctx context.Context, node *types.Node, evalCtx *EvalContext) (interface{}, error) {
	if node.LHS == nil || node.LHS.Kind != types.NodeName {
		return nil, types.NewError(types.ErrSyntaxError, "left side of := must be a variable name", node.Position)
	}
	value, err := e.evalNode(ctx, node.RHS, evalCtx)
	if err != nil {
		return nil, err
	}
	evalCtx.SetBinding(node.LHS.StrValue, value)
	return value, nil
}

// evalBlock evaluates a sequence of expressions in a nested scope and
// returns the last value. Bindings made inside the block do not leak out.
func (e *Evaluator) evalBlock(ctx context.Context, node *types.Node, evalCtx *EvalContext) (interface{}, error) {
	scope := evalCtx.NewChild()

	var result interface{}
	for _, expr := range node.Expressions {
		value, err := e.evalNode(ctx, expr, scope)
		if err != nil {
			return nil, err
		}
		result = value
	}
	return result, nil
}

// evalArray evaluates an array constructor.
func (e *Evaluator) evalArray(ctx context.Context, node *types.Node, evalCtx *EvalContext) (interface{}, error) {
	result := make([]interface{}, 0, len(node.Expressions))
	for _, expr := range node.Expressions {
		value, err := e.evalNode(ctx, expr, evalCtx)
		if err != nil {
			return nil, err
		}
		result = append(result, value)
	}
	return result, nil
}

// evalObject evaluates an object constructor. Keys must be string
// literals or bare names.
func (e *Evaluator) evalObject(ctx context.Context, node *types.Node, evalCtx *EvalContext) (interface{}, error) {
	result := make(map[string]interface{}, len(node.Expressions))
	for _, pair := range node.Expressions {
		if pair.LHS == nil || (pair.LHS.Kind != types.NodeString && pair.LHS.Kind != types.NodeName) {
			return nil, types.NewError(types.ErrSyntaxError, "object keys must be strings", node.Position)
		}
		value, err := e.evalNode(ctx, pair.RHS, evalCtx)
		if err != nil {
			return nil, err
		}
		result[pair.LHS.StrValue] = value
	}
	return result, nil
}

// evalPipe applies a pipe target to the value of the chain on its left.
// The piped value becomes the target function's first argument.
func (e *Evaluator) evalPipe(ctx context.Context, node *types.Node, evalCtx *EvalContext) (interface{}, error) {
	value, err := e.evalNode(ctx, node.LHS, evalCtx)
	if err != nil {
		return nil, err
	}
	return e.applyPipeTarget(ctx, node.RHS, value, evalCtx)
}

// applyPipeTarget invokes the right side of a pipe with the piped value
// prepended to any explicit arguments.
func (e *Evaluator) applyPipeTarget(ctx context.Context, target *types.Node, value interface{}, evalCtx *EvalContext) (interface{}, error) {
	if target == nil {
		return nil, types.NewError(types.ErrInvokeNonFunction, "|> requires a function on its right side", -1)
	}

	switch target.Kind {
	case types.NodeName:
		return e.callFunction(ctx, target, evalCtx, []interface{}{value})
	case types.NodeCall:
		args := make([]interface{}, 0, len(target.Arguments)+1)
		args = append(args, value)
		for _, arg := range target.Arguments {
			v, err := e.evalNode(ctx, arg, evalCtx)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
		return e.callFunction(ctx, target, evalCtx, args)
	default:
		return nil, types.NewError(types.ErrInvokeNonFunction,
			fmt.Sprintf("cannot pipe into %s", target.Kind), target.Position)
	}
}

// evalCapture evaluates an instrumented pipeline step and records its
// value and elapsed time against the step's source line.
func (e *Evaluator) evalCapture(ctx context.Context, node *types.Node, evalCtx *EvalContext) (interface{}, error) {
	value, err := e.evalNode(ctx, node.LHS, evalCtx)
	if err != nil {
		return nil, err
	}
	if st := evalCtx.Capture(); st != nil {
		st.Record(node.Line, value)
	}
	return value, nil
}
