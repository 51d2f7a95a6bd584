package inspect

import (
	"testing"

	"github.com/pipelens/pipelens/pkg/parser"
	"github.com/pipelens/pipelens/pkg/types"
)

func TestLineRange(t *testing.T) {
	tree := &types.Node{
		Kind: types.NodePipe,
		Line: 5,
		LHS: &types.Node{
			Kind: types.NodePipe,
			Line: 3,
			LHS:  &types.Node{Kind: types.NodeNumber, Line: 3},
			RHS:  &types.Node{Kind: types.NodeName, Line: 9},
		},
		RHS: &types.Node{Kind: types.NodeName, Line: 5},
	}

	min, max, ok := LineRange(tree)
	if !ok {
		t.Fatal("expected line metadata to be found")
	}
	if min != 3 || max != 9 {
		t.Fatalf("expected range (3, 9), got (%d, %d)", min, max)
	}
}

func TestLineRangeNoMetadata(t *testing.T) {
	tree := &types.Node{
		Kind: types.NodeBinary,
		LHS:  &types.Node{Kind: types.NodeNumber},
		RHS:  &types.Node{Kind: types.NodeNumber},
	}
	if _, _, ok := LineRange(tree); ok {
		t.Fatal("expected no range for a tree without line metadata")
	}

	if _, _, ok := LineRange(nil); ok {
		t.Fatal("expected no range for nil tree")
	}
}

func TestLineRangeParsedPipeline(t *testing.T) {
	expr, err := parser.Parse("(x + 5)\n|> to_string\n|> to_integer()")
	if err != nil {
		t.Fatal(err)
	}

	min, max, ok := LineRange(expr.AST())
	if !ok {
		t.Fatal("expected line metadata")
	}
	if min != 1 || max != 3 {
		t.Fatalf("expected range (1, 3), got (%d, %d)", min, max)
	}
}
