package evaluator

import (
	"context"
	"fmt"
	"strings"

	"github.com/pipelens/pipelens/pkg/types"
)

// FunctionImpl is the implementation signature of a built-in function.
type FunctionImpl func(ctx context.Context, e *Evaluator, evalCtx *EvalContext, args []interface{}) (interface{}, error)

// FunctionDef describes a callable function.
type FunctionDef struct {
	Name    string
	MinArgs int
	MaxArgs int // -1 means unlimited
	Impl    FunctionImpl
}

// evalCall evaluates a direct function call.
func (e *Evaluator) evalCall(ctx context.Context, node *types.Node, evalCtx *EvalContext) (interface{}, error) {
	args := make([]interface{}, 0, len(node.Arguments))
	for _, arg := range node.Arguments {
		v, err := e.evalNode(ctx, arg, evalCtx)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return e.callFunction(ctx, node, evalCtx, args)
}

// callFunction resolves a function by name and invokes it with the given
// arguments. Custom functions shadow built-ins of the same name.
func (e *Evaluator) callFunction(ctx context.Context, node *types.Node, evalCtx *EvalContext, args []interface{}) (interface{}, error) {
	name := node.StrValue

	def, ok := e.getCustomFunction(name)
	if !ok {
		def, ok = lookupBuiltin(name)
	}
	if !ok {
		return nil, types.NewError(types.ErrUndefinedFunction,
			fmt.Sprintf("unknown function %q", name), node.Position)
	}

	if len(args) < def.MinArgs || (def.MaxArgs >= 0 && len(args) > def.MaxArgs) {
		return nil, types.NewError(types.ErrArgumentCountMismatch,
			fmt.Sprintf("%s: wrong number of arguments (%d)", def.Name, len(args)), node.Position)
	}

	return def.Impl(ctx, e, evalCtx, args)
}

// lookupBuiltin resolves a built-in by name. Namespaced spellings such as
// String.to_integer resolve by their final segment.
func lookupBuiltin(name string) (*FunctionDef, bool) {
	if def, ok := builtins[name]; ok {
		return def, true
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		def, ok := builtins[name[i+1:]]
		return def, ok
	}
	return nil, false
}
