// Package pipelens is a pipeline expression engine with built-in source
// instrumentation.
//
// Scripts are small expressions where |> pipes a value into the next
// function. Appending |> inspect() to a chain makes the engine print an
// annotated copy of the chain's own source text when it runs, each step
// line carrying the value and elapsed time observed at that step:
//
//	x := 7;
//	(x + 5)
//	|> to_string
//	|> to_integer()
//	|> inspect()
//
// The instrumentation is resolved before evaluation: outside development
// profiles the inspect call is stripped from the compiled expression and
// costs nothing at run time.
//
// # Quick Start
//
//	// Compile once, evaluate many times
//	expr, err := pipelens.CompileFile("deploy.pipe")
//	result1, _ := eval.EvalWithBindings(ctx, expr, bindings1)
//	result2, _ := eval.EvalWithBindings(ctx, expr, bindings2)
//
//	// One-shot evaluation
//	result, err := pipelens.Eval("1 + 2 |> to_string", nil)
//
// # More Information
//
// For detailed documentation, see:
//   - Parser: github.com/pipelens/pipelens/pkg/parser
//   - Instrumentation: github.com/pipelens/pipelens/pkg/inspect
//   - Evaluator: github.com/pipelens/pipelens/pkg/evaluator
//   - Types: github.com/pipelens/pipelens/pkg/types
package pipelens

import (
	"context"
	"fmt"

	"github.com/pipelens/pipelens/pkg/evaluator"
	"github.com/pipelens/pipelens/pkg/inspect"
	"github.com/pipelens/pipelens/pkg/parser"
	"github.com/pipelens/pipelens/pkg/types"
)

// Version returns the current version of pipelens.
func Version() string {
	return "v0.1.0-dev"
}

// Compile parses a script and resolves its instrumentation under the
// profile taken from the environment.
//
// The compiled expression can be evaluated multiple times against
// different bindings. It is safe for concurrent use.
func Compile(source string, opts ...parser.CompileOption) (*types.Expression, error) {
	expr, err := parser.Compile(source, opts...)
	if err != nil {
		return nil, err
	}
	return inspect.Transform(context.Background(), expr, inspect.Config{})
}

// CompileFile reads, parses and transforms a script file. The resulting
// expression remembers its backing file, so inspect reports can show the
// literal source text of the pipelines they instrument.
func CompileFile(path string, opts ...parser.CompileOption) (*types.Expression, error) {
	expr, err := parser.ParseFile(path, opts...)
	if err != nil {
		return nil, err
	}
	return inspect.Transform(context.Background(), expr, inspect.Config{})
}

// Eval is a convenience function that compiles and evaluates a script in
// a single call.
//
// For repeated evaluations of the same script, use Compile instead.
func Eval(source string, bindings map[string]interface{}, opts ...evaluator.EvalOption) (interface{}, error) {
	return EvalWithContext(context.Background(), source, bindings, opts...)
}

// EvalWithContext evaluates a script with a custom context.
func EvalWithContext(ctx context.Context, source string, bindings map[string]interface{}, opts ...evaluator.EvalOption) (interface{}, error) {
	eval := evaluator.New(opts...)
	return eval.EvalSource(ctx, source, bindings)
}

// MustCompile is like Compile but panics if the script cannot be
// compiled. It simplifies safe initialization of global variables.
func MustCompile(source string) *types.Expression {
	expr, err := Compile(source)
	if err != nil {
		panic(fmt.Sprintf("pipelens: Compile(%q): %v", source, err))
	}
	return expr
}
