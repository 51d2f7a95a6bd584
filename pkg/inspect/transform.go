package inspect

import (
	"context"
	"fmt"

	"github.com/viant/afs"

	"github.com/pipelens/pipelens/pkg/project"
	"github.com/pipelens/pipelens/pkg/types"
)

// inspectName is the function name the transform recognizes as the
// instrumentation construct. It never reaches the evaluator's registry.
const inspectName = "inspect"

// Config parameterizes the transform stage. The zero value is usable:
// the active profile is read from the environment, the gate uses its
// default profiles, and files are read from the local filesystem.
type Config struct {
	// Profile is the active execution profile; "" means CurrentProfile().
	Profile string
	// Gate decides in which profiles instrumentation is live; nil means
	// the default gate.
	Gate *Gate
	// FS is used to read source files for slice recovery; nil means the
	// local filesystem.
	FS afs.Service
	// Detector resolves the project-relative path shown in report
	// headers; nil means the default marker set.
	Detector *project.Detector
}

func (c Config) withDefaults() Config {
	if c.Profile == "" {
		c.Profile = CurrentProfile()
	}
	if c.Gate == nil {
		c.Gate = NewGate()
	}
	if c.FS == nil {
		c.FS = afs.New()
	}
	if c.Detector == nil {
		c.Detector = project.New()
	}
	return c
}

// Transform rewrites every inspect() call in the expression into a
// prepared instrumentation node, or strips it entirely when the active
// profile is gated off. The input expression is never mutated; the
// returned expression shares untouched subtrees with it.
//
// Option validation happens here, before any evaluation: a malformed
// option object fails the whole transform.
func Transform(ctx context.Context, expr *types.Expression, cfg Config) (*types.Expression, error) {
	cfg = cfg.withDefaults()

	t := &transformer{
		ctx:     ctx,
		cfg:     cfg,
		file:    expr.File(),
		enabled: cfg.Gate.Enabled(cfg.Profile),
	}

	root, changed, err := t.walk(expr.AST())
	if err != nil {
		return nil, err
	}
	if !changed {
		return expr, nil
	}
	return expr.WithAST(root), nil
}

type transformer struct {
	ctx     context.Context
	cfg     Config
	file    string
	enabled bool
}

// walk transforms a subtree bottom-up, reporting whether anything under
// n changed. Unchanged subtrees are returned as-is so the instrumented
// tree shares structure with the original.
func (t *transformer) walk(n *types.Node) (*types.Node, bool, error) {
	if n == nil {
		return nil, false, nil
	}

	// A pipe whose target is inspect() consumes the pipe node itself:
	// the chain on its left becomes the inspected expression.
	if n.Kind == types.NodePipe {
		if opts, ok := pipedInspect(n.RHS); ok {
			return t.buildInspect(n.LHS, opts, n.Line, n.Position)
		}
	}

	// Direct form: inspect(expr) or inspect(expr, {opts}).
	if n.Kind == types.NodeCall && n.StrValue == inspectName {
		chain, opts, err := directInspectArgs(n)
		if err != nil {
			return nil, false, err
		}
		return t.buildInspect(chain, opts, n.Line, n.Position)
	}

	var (
		cp      *types.Node
		changed bool
	)
	mutate := func() *types.Node {
		if cp == nil {
			cp = n.ShallowCopy()
			changed = true
		}
		return cp
	}

	if child, ch, err := t.walk(n.LHS); err != nil {
		return nil, false, err
	} else if ch {
		mutate().LHS = child
	}
	if child, ch, err := t.walk(n.RHS); err != nil {
		return nil, false, err
	} else if ch {
		mutate().RHS = child
	}
	if args, ch, err := t.walkSlice(n.Arguments); err != nil {
		return nil, false, err
	} else if ch {
		mutate().Arguments = args
	}
	if exprs, ch, err := t.walkSlice(n.Expressions); err != nil {
		return nil, false, err
	} else if ch {
		mutate().Expressions = exprs
	}

	if changed {
		return cp, true, nil
	}
	return n, false, nil
}

func (t *transformer) walkSlice(nodes []*types.Node) ([]*types.Node, bool, error) {
	var out []*types.Node
	for i, n := range nodes {
		child, ch, err := t.walk(n)
		if err != nil {
			return nil, false, err
		}
		if ch && out == nil {
			out = make([]*types.Node, len(nodes))
			copy(out, nodes)
		}
		if out != nil {
			out[i] = child
		}
	}
	if out == nil {
		return nodes, false, nil
	}
	return out, true, nil
}

// buildInspect replaces one inspect call with either the bare chain
// (gate off) or an inspect node carrying a prepared plan.
func (t *transformer) buildInspect(chain *types.Node, optsNode *types.Node, callLine, pos int) (*types.Node, bool, error) {
	if chain == nil {
		return nil, false, types.NewError(types.ErrInvalidOptionValue,
			"inspect() requires an expression to inspect", pos)
	}

	// Nested inspect calls inside the chain are handled first.
	chain, _, err := t.walk(chain)
	if err != nil {
		return nil, false, err
	}

	if !t.enabled {
		return chain, true, nil
	}

	opts, err := ParseOptions(optsNode)
	if err != nil {
		return nil, false, err
	}

	plan := &Plan{
		Options:  opts,
		File:     t.file,
		CallLine: callLine,
	}
	if t.file != "" {
		plan.RelPath = t.cfg.Detector.Rel(t.file)
		plan.Slice = ExtractSlice(t.ctx, t.cfg.FS, t.file, callLine, chain)
	}
	if plan.Slice == nil {
		plan.Fallback = FormatExpr(chain)
	}

	if opts.InspectPipeline {
		chain = Rewrite(chain)
	}

	node := &types.Node{
		Kind:     types.NodeInspect,
		Value:    plan,
		Position: pos,
		Line:     callLine,
		LHS:      chain,
	}
	return node, true, nil
}

// pipedInspect reports whether a pipe target is the inspect construct and
// returns its options argument, if any.
func pipedInspect(rhs *types.Node) (*types.Node, bool) {
	if rhs == nil {
		return nil, false
	}
	switch rhs.Kind {
	case types.NodeName:
		if rhs.StrValue == inspectName {
			return nil, true
		}
	case types.NodeCall:
		if rhs.StrValue != inspectName {
			return nil, false
		}
		switch len(rhs.Arguments) {
		case 0:
			return nil, true
		case 1:
			return rhs.Arguments[0], true
		}
	}
	return nil, false
}

// directInspectArgs splits the arguments of a standalone inspect(...) call
// into the inspected expression and the optional options object.
func directInspectArgs(call *types.Node) (chain, opts *types.Node, err error) {
	switch len(call.Arguments) {
	case 1:
		return call.Arguments[0], nil, nil
	case 2:
		return call.Arguments[0], call.Arguments[1], nil
	default:
		return nil, nil, types.NewError(types.ErrInvalidOptionValue,
			fmt.Sprintf("inspect() takes 1 or 2 arguments, got %d", len(call.Arguments)), call.Position)
	}
}
