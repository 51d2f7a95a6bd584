// Package types defines the core type system for pipelens.
//
// This package contains type definitions for:
//   - Expression: compiled pipeline scripts
//   - Node: expression tree nodes with source position metadata
//   - Error types: structured errors with codes
package types

// Expression represents a compiled pipeline script.
//
// An Expression can be evaluated multiple times against different variable
// bindings by passing it to [evaluator.Evaluator.Eval]. It is safe for
// concurrent use by multiple goroutines.
type Expression struct {
	ast    *Node
	source string
	file   string
	arena  *NodeArena
}

// NewExpression creates a new Expression from an expression tree.
func NewExpression(ast *Node, source string) *Expression {
	return &Expression{
		ast:    ast,
		source: source,
	}
}

// AST returns the expression tree of the script.
func (e *Expression) AST() *Node {
	return e.ast
}

// Source returns the original source text of the script.
func (e *Expression) Source() string {
	return e.source
}

// File returns the path of the backing source file, or "" when the script
// was compiled from a string with no file behind it.
func (e *Expression) File() string {
	return e.file
}

// SetFile records the path of the backing source file.
func (e *Expression) SetFile(path string) {
	e.file = path
}

// WithAST returns a copy of the expression carrying a different tree.
// The source text and backing file are preserved; transform stages use
// this to return an instrumented expression without touching the input.
func (e *Expression) WithAST(ast *Node) *Expression {
	cp := *e
	cp.ast = ast
	return &cp
}

// AttachArena ties the lifetime of a node arena to the expression.
func (e *Expression) AttachArena(arena *NodeArena) {
	e.arena = arena
}

// String returns the source text of the expression.
func (e *Expression) String() string {
	return e.source
}
