package parser_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pipelens/pipelens/pkg/parser"
	"github.com/pipelens/pipelens/pkg/types"
)

func mustParse(t *testing.T, source string) *types.Node {
	t.Helper()
	expr, err := parser.Parse(source)
	if err != nil {
		t.Fatalf("Parse(%q): %v", source, err)
	}
	return expr.AST()
}

func TestParseLiterals(t *testing.T) {
	tests := []struct {
		source string
		kind   types.NodeKind
	}{
		{`"hello"`, types.NodeString},
		{`'hello'`, types.NodeString},
		{"42", types.NodeNumber},
		{"3.14", types.NodeNumber},
		{"true", types.NodeBoolean},
		{"false", types.NodeBoolean},
		{"null", types.NodeNull},
		{"[1, 2]", types.NodeArray},
		{`{a: 1}`, types.NodeObject},
	}
	for _, tc := range tests {
		ast := mustParse(t, tc.source)
		if ast.Kind != tc.kind {
			t.Errorf("Parse(%q): expected %s node, got %s", tc.source, tc.kind, ast.Kind)
		}
	}
}

func TestParseStringEscapes(t *testing.T) {
	ast := mustParse(t, `"a\nb\tA"`)
	if ast.StrValue != "a\nb\tA" {
		t.Fatalf("expected unescaped value, got %q", ast.StrValue)
	}

	if _, err := parser.Parse(`"bad \q escape"`); err == nil {
		t.Fatal("expected invalid escape error")
	}
}

func TestParsePrecedence(t *testing.T) {
	// 1 + 2 * 3 must parse as 1 + (2 * 3)
	ast := mustParse(t, "1 + 2 * 3")
	if ast.Kind != types.NodeBinary || ast.Value != "+" {
		t.Fatalf("expected + at root, got %s %v", ast.Kind, ast.Value)
	}
	if ast.RHS.Kind != types.NodeBinary || ast.RHS.Value != "*" {
		t.Fatalf("expected * on the right, got %s %v", ast.RHS.Kind, ast.RHS.Value)
	}

	// (1 + 2) * 3 groups explicitly
	ast = mustParse(t, "(1 + 2) * 3")
	if ast.Value != "*" || ast.LHS.Value != "+" {
		t.Fatalf("expected grouped + under *, got %v under %v", ast.LHS.Value, ast.Value)
	}
}

func TestParsePipeChain(t *testing.T) {
	ast := mustParse(t, "(x + 5)\n|> to_string\n|> to_integer()")

	// Outermost pipe is the last step; its line is the line of its |> token.
	if ast.Kind != types.NodePipe {
		t.Fatalf("expected pipe at root, got %s", ast.Kind)
	}
	if ast.Line != 3 {
		t.Fatalf("expected outer pipe on line 3, got %d", ast.Line)
	}
	if ast.RHS.Kind != types.NodeCall || ast.RHS.StrValue != "to_integer" {
		t.Fatalf("expected to_integer() target, got %s %q", ast.RHS.Kind, ast.RHS.StrValue)
	}

	inner := ast.LHS
	if inner.Kind != types.NodePipe || inner.Line != 2 {
		t.Fatalf("expected inner pipe on line 2, got %s line %d", inner.Kind, inner.Line)
	}
	if inner.RHS.Kind != types.NodeName || inner.RHS.StrValue != "to_string" {
		t.Fatalf("expected to_string target, got %s %q", inner.RHS.Kind, inner.RHS.StrValue)
	}
	if inner.LHS.Kind != types.NodeBinary {
		t.Fatalf("expected binary initial step, got %s", inner.LHS.Kind)
	}
}

func TestParseCallLineAttribution(t *testing.T) {
	// A call whose arguments continue on later lines belongs to the line
	// its name starts on.
	ast := mustParse(t, "foo(1,\n2)")
	if ast.Kind != types.NodeCall || ast.Line != 1 {
		t.Fatalf("expected call on line 1, got %s line %d", ast.Kind, ast.Line)
	}
	if len(ast.Arguments) != 2 {
		t.Fatalf("expected 2 arguments, got %d", len(ast.Arguments))
	}
}

func TestParseAssignment(t *testing.T) {
	ast := mustParse(t, "x := 5")
	if ast.Kind != types.NodeBind || ast.StrValue != "x" {
		t.Fatalf("expected bind of x, got %s %q", ast.Kind, ast.StrValue)
	}
	if ast.RHS.Kind != types.NodeNumber {
		t.Fatalf("expected number RHS, got %s", ast.RHS.Kind)
	}

	if _, err := parser.Parse("5 := x"); err == nil {
		t.Fatal("expected error assigning to a literal")
	}
}

func TestParseScript(t *testing.T) {
	ast := mustParse(t, "x := 1; x + 1")
	if ast.Kind != types.NodeBlock {
		t.Fatalf("expected block root for script, got %s", ast.Kind)
	}
	if len(ast.Expressions) != 2 {
		t.Fatalf("expected 2 expressions, got %d", len(ast.Expressions))
	}

	// Trailing semicolon is allowed.
	ast = mustParse(t, "1 + 1;")
	if ast.Kind != types.NodeBinary {
		t.Fatalf("expected binary root, got %s", ast.Kind)
	}
}

func TestParseBlockScope(t *testing.T) {
	ast := mustParse(t, "(y := 2; y * 3)")
	if ast.Kind != types.NodeBlock {
		t.Fatalf("expected block, got %s", ast.Kind)
	}

	// A single parenthesized bind still gets a scope.
	ast = mustParse(t, "(y := 2)")
	if ast.Kind != types.NodeBlock {
		t.Fatalf("expected block around bind, got %s", ast.Kind)
	}

	// Plain grouping is transparent.
	ast = mustParse(t, "(1 + 2)")
	if ast.Kind != types.NodeBinary {
		t.Fatalf("expected grouped binary, got %s", ast.Kind)
	}
}

func TestParseConditional(t *testing.T) {
	ast := mustParse(t, "a > 1 ? \"big\" : \"small\"")
	if ast.Kind != types.NodeCondition {
		t.Fatalf("expected condition, got %s", ast.Kind)
	}
	if len(ast.Expressions) != 1 {
		t.Fatalf("expected else branch, got %d expressions", len(ast.Expressions))
	}

	ast = mustParse(t, "a ? b")
	if ast.Kind != types.NodeCondition || len(ast.Expressions) != 0 {
		t.Fatalf("expected condition without else, got %s with %d", ast.Kind, len(ast.Expressions))
	}
}

func TestParseObjectConstructor(t *testing.T) {
	ast := mustParse(t, `{a: 1, "b c": 2}`)
	if len(ast.Expressions) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(ast.Expressions))
	}
	if ast.Expressions[0].LHS.StrValue != "a" {
		t.Fatalf("expected key a, got %q", ast.Expressions[0].LHS.StrValue)
	}
	if ast.Expressions[1].LHS.Kind != types.NodeString || ast.Expressions[1].LHS.StrValue != "b c" {
		t.Fatalf("expected string key, got %s %q", ast.Expressions[1].LHS.Kind, ast.Expressions[1].LHS.StrValue)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		source string
		code   types.ErrorCode
	}{
		{"", types.ErrSyntaxError},
		{"1 +", types.ErrSyntaxError},
		{")", types.ErrSyntaxError},
		{"foo(1", types.ErrExpectedToken},
		{"[1, 2", types.ErrExpectedToken},
		{`"open`, types.ErrStringNotClosed},
		{"1 /* nope", types.ErrCommentNotClosed},
		{"1 2", types.ErrSyntaxError},
	}

	for _, tc := range tests {
		_, err := parser.Parse(tc.source)
		if err == nil {
			t.Errorf("Parse(%q): expected error", tc.source)
			continue
		}
		var perr *types.Error
		if !errors.As(err, &perr) {
			t.Errorf("Parse(%q): expected *types.Error, got %T", tc.source, err)
			continue
		}
		if perr.Code != tc.code {
			t.Errorf("Parse(%q): expected code %s, got %s", tc.source, tc.code, perr.Code)
		}
	}
}

func TestParseDepthLimit(t *testing.T) {
	deep := ""
	for i := 0; i < 50; i++ {
		deep += "("
	}
	deep += "1"
	for i := 0; i < 50; i++ {
		deep += ")"
	}

	if _, err := parser.Compile(deep, parser.WithMaxDepth(10)); err == nil {
		t.Fatal("expected nesting error")
	}
	if _, err := parser.Compile(deep, parser.WithMaxDepth(200)); err != nil {
		t.Fatalf("unexpected error with generous depth: %v", err)
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.pipe")
	if err := os.WriteFile(path, []byte("1 + 2"), 0o644); err != nil {
		t.Fatal(err)
	}

	expr, err := parser.ParseFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if expr.File() != path {
		t.Fatalf("expected backing file %q, got %q", path, expr.File())
	}
	if expr.Source() != "1 + 2" {
		t.Fatalf("expected source preserved, got %q", expr.Source())
	}

	if _, err := parser.ParseFile(filepath.Join(dir, "missing.pipe")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
