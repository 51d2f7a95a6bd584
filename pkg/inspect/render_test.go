package inspect

import (
	"testing"

	"github.com/pipelens/pipelens/pkg/parser"
	"github.com/pipelens/pipelens/pkg/types"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		value interface{}
		want  string
	}{
		{nil, "null"},
		{types.NullValue, "null"},
		{true, "true"},
		{false, "false"},
		{12.0, "12"},
		{3.14, "3.14"},
		{-0.5, "-0.5"},
		{"hi", `"hi"`},
		{[]interface{}{1.0, "a", nil}, `[1, "a", null]`},
		{map[string]interface{}{"b": 2.0, "a": 1.0}, `{"a": 1, "b": 2}`},
		{[]interface{}{}, "[]"},
		{map[string]interface{}{}, "{}"},
	}
	for _, tc := range tests {
		if got := FormatValue(tc.value); got != tc.want {
			t.Errorf("FormatValue(%v): expected %q, got %q", tc.value, tc.want, got)
		}
	}
}

func TestFormatBare(t *testing.T) {
	if got := FormatBare("hi"); got != "hi" {
		t.Fatalf("expected bare string, got %q", got)
	}
	if got := FormatBare(12.0); got != "12" {
		t.Fatalf("expected number form, got %q", got)
	}
}

func TestFormatExpr(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"x + y", "x + y"},
		{"1 + 2 * 3", "1 + (2 * 3)"},
		{"-x", "-x"},
		{`"hi"`, `"hi"`},
		{"f(1, true)", "f(1, true)"},
		{"x |> to_string |> f(2)", "x |> to_string |> f(2)"},
		{"a := 5", "a := 5"},
		{"[1, null]", "[1, null]"},
		{"a ? b : c", "a ? b : c"},
		{"(a := 1; a)", "(a := 1; a)"},
	}
	for _, tc := range tests {
		expr, err := parser.Parse(tc.source)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.source, err)
		}
		if got := FormatExpr(expr.AST()); got != tc.want {
			t.Errorf("FormatExpr(%q): expected %q, got %q", tc.source, tc.want, got)
		}
	}
}

func TestFormatExprCaptureTransparent(t *testing.T) {
	expr, err := parser.Parse("1\n|> f\n|> g")
	if err != nil {
		t.Fatal(err)
	}
	rewritten := Rewrite(expr.AST())
	if got := FormatExpr(rewritten); got != "1 |> f |> g" {
		t.Fatalf("expected capture wrappers to be invisible, got %q", got)
	}
}
