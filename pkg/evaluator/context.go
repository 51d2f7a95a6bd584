package evaluator

import (
	"fmt"
	"sort"

	"github.com/pipelens/pipelens/pkg/inspect"
)

// EvalContext maintains evaluation state: variable bindings, scope
// nesting, and the capture state of the innermost enclosing inspect call.
type EvalContext struct {
	// parent is the enclosing scope, nil at top level
	parent *EvalContext

	// bindings stores variable assignments made in this scope
	bindings map[string]interface{}

	// depth tracks scope nesting
	depth int

	// capture receives step values recorded while an instrumented
	// pipeline runs; nil outside inspect calls
	capture *inspect.CaptureState
}

// NewContext creates a new top-level evaluation context.
func NewContext() *EvalContext {
	return &EvalContext{
		bindings: make(map[string]interface{}),
	}
}

// NewChild creates a nested scope. Bindings made in the child shadow the
// parent's without modifying it.
func (c *EvalContext) NewChild() *EvalContext {
	return &EvalContext{
		parent:   c,
		bindings: make(map[string]interface{}),
		depth:    c.depth + 1,
		capture:  c.capture,
	}
}

// WithCapture creates a nested scope whose pipeline steps record into st.
func (c *EvalContext) WithCapture(st *inspect.CaptureState) *EvalContext {
	child := c.NewChild()
	child.capture = st
	return child
}

// Capture returns the active capture state, or nil.
func (c *EvalContext) Capture() *inspect.CaptureState {
	return c.capture
}

// Depth returns the scope nesting depth.
func (c *EvalContext) Depth() int {
	return c.depth
}

// SetBinding sets a variable binding in this scope.
func (c *EvalContext) SetBinding(name string, value interface{}) {
	c.bindings[name] = value
}

// GetBinding retrieves a variable binding, searching enclosing scopes.
func (c *EvalContext) GetBinding(name string) (interface{}, bool) {
	if value, ok := c.bindings[name]; ok {
		return value, true
	}
	if c.parent != nil {
		return c.parent.GetBinding(name)
	}
	return nil, false
}

// SetBindings sets multiple variable bindings at once.
func (c *EvalContext) SetBindings(bindings map[string]interface{}) {
	for name, value := range bindings {
		c.bindings[name] = value
	}
}

// VisibleBindings returns every binding visible from this scope, sorted
// by name. Inner bindings shadow outer ones of the same name.
func (c *EvalContext) VisibleBindings() []inspect.Binding {
	seen := make(map[string]interface{})
	for scope := c; scope != nil; scope = scope.parent {
		for name, value := range scope.bindings {
			if _, ok := seen[name]; !ok {
				seen[name] = value
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]inspect.Binding, len(names))
	for i, name := range names {
		out[i] = inspect.Binding{Name: name, Value: seen[name]}
	}
	return out
}

// String returns a string representation of the context.
func (c *EvalContext) String() string {
	return fmt.Sprintf("Context{depth=%d, bindings=%d}", c.depth, len(c.bindings))
}
