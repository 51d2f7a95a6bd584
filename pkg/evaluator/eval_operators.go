package evaluator

import (
	"context"
	"fmt"
	"math"
	"reflect"

	"github.com/pipelens/pipelens/pkg/inspect"
	"github.com/pipelens/pipelens/pkg/types"
)

// evalBinary evaluates a binary operator node.
func (e *Evaluator) evalBinary(ctx context.Context, node *types.Node, evalCtx *EvalContext) (interface{}, error) {
	op, _ := node.Value.(string)

	// and/or evaluate their right side lazily
	if op == "and" || op == "or" {
		return e.evalLogical(ctx, node, op, evalCtx)
	}

	lhs, err := e.evalNode(ctx, node.LHS, evalCtx)
	if err != nil {
		return nil, err
	}
	rhs, err := e.evalNode(ctx, node.RHS, evalCtx)
	if err != nil {
		return nil, err
	}

	switch op {
	case "+", "-", "*", "/", "%":
		return e.evalArithmetic(op, lhs, rhs, node.Position)
	case "&":
		return inspect.FormatBare(lhs) + inspect.FormatBare(rhs), nil
	case "=":
		return deepEqual(lhs, rhs), nil
	case "!=":
		return !deepEqual(lhs, rhs), nil
	case "<", "<=", ">", ">=":
		return e.evalComparison(op, lhs, rhs, node.Position)
	default:
		return nil, types.NewError(types.ErrSyntaxError,
			fmt.Sprintf("unknown operator %q", op), node.Position)
	}
}

// evalArithmetic applies a numeric operator. Both operands must be numbers.
func (e *Evaluator) evalArithmetic(op string, lhs, rhs interface{}, pos int) (interface{}, error) {
	a, aok := lhs.(float64)
	b, bok := rhs.(float64)
	if !aok || !bok {
		return nil, types.NewError(types.ErrTypeMismatch,
			fmt.Sprintf("operator %q expects numbers, got %s and %s", op, typeName(lhs), typeName(rhs)), pos)
	}

	var result float64
	switch op {
	case "+":
		result = a + b
	case "-":
		result = a - b
	case "*":
		result = a * b
	case "/":
		if b == 0 {
			return nil, types.NewError(types.ErrDivisionByZero, "division by zero", pos)
		}
		result = a / b
	case "%":
		if b == 0 {
			return nil, types.NewError(types.ErrDivisionByZero, "division by zero", pos)
		}
		result = math.Mod(a, b)
	}

	if math.IsInf(result, 0) || math.IsNaN(result) {
		return nil, types.NewError(types.ErrNumberTooLarge,
			fmt.Sprintf("number out of range in %q", op), pos)
	}
	return result, nil
}

// evalComparison applies an ordering operator to numbers or strings.
func (e *Evaluator) evalComparison(op string, lhs, rhs interface{}, pos int) (interface{}, error) {
	if a, ok := lhs.(float64); ok {
		if b, ok := rhs.(float64); ok {
			switch op {
			case "<":
				return a < b, nil
			case "<=":
				return a <= b, nil
			case ">":
				return a > b, nil
			default:
				return a >= b, nil
			}
		}
	}
	if a, ok := lhs.(string); ok {
		if b, ok := rhs.(string); ok {
			switch op {
			case "<":
				return a < b, nil
			case "<=":
				return a <= b, nil
			case ">":
				return a > b, nil
			default:
				return a >= b, nil
			}
		}
	}
	return nil, types.NewError(types.ErrTypeMismatch,
		fmt.Sprintf("operator %q expects two numbers or two strings, got %s and %s", op, typeName(lhs), typeName(rhs)), pos)
}

// evalLogical evaluates and/or with short-circuiting.
func (e *Evaluator) evalLogical(ctx context.Context, node *types.Node, op string, evalCtx *EvalContext) (interface{}, error) {
	lhs, err := e.evalNode(ctx, node.LHS, evalCtx)
	if err != nil {
		return nil, err
	}
	a, ok := lhs.(bool)
	if !ok {
		return nil, types.NewError(types.ErrTypeMismatch,
			fmt.Sprintf("operator %q expects booleans, got %s", op, typeName(lhs)), node.Position)
	}

	if op == "and" && !a {
		return false, nil
	}
	if op == "or" && a {
		return true, nil
	}

	rhs, err := e.evalNode(ctx, node.RHS, evalCtx)
	if err != nil {
		return nil, err
	}
	b, ok := rhs.(bool)
	if !ok {
		return nil, types.NewError(types.ErrTypeMismatch,
			fmt.Sprintf("operator %q expects booleans, got %s", op, typeName(rhs)), node.Position)
	}
	return b, nil
}

// evalUnary evaluates unary minus.
func (e *Evaluator) evalUnary(ctx context.Context, node *types.Node, evalCtx *EvalContext) (interface{}, error) {
	value, err := e.evalNode(ctx, node.LHS, evalCtx)
	if err != nil {
		return nil, err
	}
	n, ok := value.(float64)
	if !ok {
		return nil, types.NewError(types.ErrTypeMismatch,
			fmt.Sprintf("unary minus expects a number, got %s", typeName(value)), node.Position)
	}
	return -n, nil
}

// evalCondition evaluates a ternary conditional.
func (e *Evaluator) evalCondition(ctx context.Context, node *types.Node, evalCtx *EvalContext) (interface{}, error) {
	cond, err := e.evalNode(ctx, node.LHS, evalCtx)
	if err != nil {
		return nil, err
	}
	b, ok := cond.(bool)
	if !ok {
		return nil, types.NewError(types.ErrTypeMismatch,
			fmt.Sprintf("condition expects a boolean, got %s", typeName(cond)), node.Position)
	}

	if b {
		return e.evalNode(ctx, node.RHS, evalCtx)
	}
	if len(node.Expressions) > 0 {
		return e.evalNode(ctx, node.Expressions[0], evalCtx)
	}
	return nil, nil
}

// deepEqual compares two evaluated values for equality.
func deepEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a, b)
}

// typeName describes a runtime value for error messages.
func typeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "undefined"
	case types.Null:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
