package parser

// Package parser implements the pipeline script parser.
//
// The parser uses a hand-written recursive descent approach with Pratt's
// "Top Down Operator Precedence" algorithm. Every node it produces carries
// the 1-based source line it originates from; the instrumentation engine
// relies on that metadata to slice literal source text and to key captured
// step values by line.

import (
	"fmt"
	"os"

	"github.com/pipelens/pipelens/pkg/types"
)

// Parse parses a pipeline script and returns the compiled Expression.
//
// The function tokenizes the input, builds an expression tree, and
// validates the syntax. If parsing fails, it returns a structured error
// with position information.
func Parse(source string) (*types.Expression, error) {
	p := NewParser(source)
	return p.Parse()
}

// ParseFile reads and parses a pipeline script from a file. The resulting
// Expression remembers its backing file so the instrumentation engine can
// recover literal source text from it.
func ParseFile(path string, opts ...CompileOption) (*types.Expression, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", path, err)
	}
	expr, err := Compile(string(data), opts...)
	if err != nil {
		return nil, err
	}
	expr.SetFile(path)
	return expr, nil
}

// Compile is an alias for Parse, provided for API consistency.
func Compile(source string, opts ...CompileOption) (*types.Expression, error) {
	p := NewParser(source, opts...)
	return p.Parse()
}

// CompileOption configures compilation behavior.
type CompileOption func(*CompileOptions)

// CompileOptions holds parser configuration.
type CompileOptions struct {
	// MaxDepth limits recursion depth to prevent stack overflow.
	MaxDepth int
}

// WithMaxDepth sets the maximum parsing depth.
func WithMaxDepth(depth int) CompileOption {
	return func(opts *CompileOptions) {
		opts.MaxDepth = depth
	}
}
