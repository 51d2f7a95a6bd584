package parser_test

import (
	"testing"

	"github.com/pipelens/pipelens/pkg/parser"
)

type lexerTestCase struct {
	name      string
	input     string
	expected  []parser.Token
	expectErr bool
}

func runLexerTests(t *testing.T, tests []lexerTestCase) {
	t.Helper()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := parser.NewLexer(tc.input)

			for i, want := range tc.expected {
				got := l.Next()
				if got.Type != want.Type {
					t.Fatalf("token %d: expected type %s, got %s (%q)", i, want.Type, got.Type, got.Value)
				}
				if got.Value != want.Value {
					t.Fatalf("token %d: expected value %q, got %q", i, want.Value, got.Value)
				}
				if want.Position != 0 || i == 0 {
					if got.Position != want.Position {
						t.Fatalf("token %d: expected position %d, got %d", i, want.Position, got.Position)
					}
				}
				if want.Line > 0 && got.Line != want.Line {
					t.Fatalf("token %d: expected line %d, got %d", i, want.Line, got.Line)
				}
			}

			last := l.Next()
			if tc.expectErr {
				if last.Type != parser.TokenError && l.Error() == nil {
					t.Fatalf("expected lexer error, got token %s", last.Type)
				}
				return
			}
			if last.Type != parser.TokenEOF {
				t.Fatalf("expected EOF, got %s (%q)", last.Type, last.Value)
			}
			if l.Error() != nil {
				t.Fatalf("unexpected lexer error: %v", l.Error())
			}
		})
	}
}

func TestLexerSymbols(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{
			name:  "arithmetic",
			input: "1 + 2 * 3",
			expected: []parser.Token{
				{Type: parser.TokenNumber, Value: "1", Position: 0, Line: 1},
				{Type: parser.TokenPlus, Value: "+", Position: 2},
				{Type: parser.TokenNumber, Value: "2", Position: 4},
				{Type: parser.TokenMult, Value: "*", Position: 6},
				{Type: parser.TokenNumber, Value: "3", Position: 8},
			},
		},
		{
			name:  "two char symbols",
			input: "a != b <= c := d",
			expected: []parser.Token{
				{Type: parser.TokenName, Value: "a"},
				{Type: parser.TokenNotEqual, Value: "!="},
				{Type: parser.TokenName, Value: "b"},
				{Type: parser.TokenLessEqual, Value: "<="},
				{Type: parser.TokenName, Value: "c"},
				{Type: parser.TokenAssign, Value: ":="},
				{Type: parser.TokenName, Value: "d"},
			},
		},
		{
			name:  "pipe marker",
			input: "x |> f",
			expected: []parser.Token{
				{Type: parser.TokenName, Value: "x"},
				{Type: parser.TokenPipe, Value: "|>"},
				{Type: parser.TokenName, Value: "f"},
			},
		},
		{
			name:  "colon alone stays colon",
			input: "a : b",
			expected: []parser.Token{
				{Type: parser.TokenName, Value: "a"},
				{Type: parser.TokenColon, Value: ":"},
				{Type: parser.TokenName, Value: "b"},
			},
		},
		{
			name:      "bare pipe is an error",
			input:     "a | b",
			expected:  []parser.Token{{Type: parser.TokenName, Value: "a"}},
			expectErr: true,
		},
	})
}

func TestLexerLineTracking(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{
			name:  "pipeline spanning lines",
			input: "(x + 5)\n|> to_string\n|> to_integer()",
			expected: []parser.Token{
				{Type: parser.TokenParenOpen, Value: "(", Line: 1},
				{Type: parser.TokenName, Value: "x", Line: 1},
				{Type: parser.TokenPlus, Value: "+", Line: 1},
				{Type: parser.TokenNumber, Value: "5", Line: 1},
				{Type: parser.TokenParenClose, Value: ")", Line: 1},
				{Type: parser.TokenPipe, Value: "|>", Line: 2},
				{Type: parser.TokenName, Value: "to_string", Line: 2},
				{Type: parser.TokenPipe, Value: "|>", Line: 3},
				{Type: parser.TokenName, Value: "to_integer", Line: 3},
				{Type: parser.TokenParenOpen, Value: "(", Line: 3},
				{Type: parser.TokenParenClose, Value: ")", Line: 3},
			},
		},
		{
			name:  "newline inside comment",
			input: "1 /* a\nb */ + 2",
			expected: []parser.Token{
				{Type: parser.TokenNumber, Value: "1", Line: 1},
				{Type: parser.TokenPlus, Value: "+", Line: 2},
				{Type: parser.TokenNumber, Value: "2", Line: 2},
			},
		},
	})
}

func TestLexerStrings(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{
			name:     "double quoted",
			input:    `"hello"`,
			expected: []parser.Token{{Type: parser.TokenString, Value: "hello"}},
		},
		{
			name:     "single quoted",
			input:    `'world'`,
			expected: []parser.Token{{Type: parser.TokenString, Value: "world"}},
		},
		{
			name:     "empty string",
			input:    `""`,
			expected: []parser.Token{{Type: parser.TokenString, Value: ""}},
		},
		{
			name:     "escapes kept raw",
			input:    `"a\nb"`,
			expected: []parser.Token{{Type: parser.TokenString, Value: `a\nb`}},
		},
		{
			name:      "unterminated string",
			input:     `"abc`,
			expectErr: true,
		},
	})
}

func TestLexerNumbers(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{
			name:     "integer",
			input:    "42",
			expected: []parser.Token{{Type: parser.TokenNumber, Value: "42"}},
		},
		{
			name:     "decimal",
			input:    "3.14",
			expected: []parser.Token{{Type: parser.TokenNumber, Value: "3.14"}},
		},
		{
			name:     "zero",
			input:    "0",
			expected: []parser.Token{{Type: parser.TokenNumber, Value: "0"}},
		},
		{
			name:     "scientific notation",
			input:    "1.5e3",
			expected: []parser.Token{{Type: parser.TokenNumber, Value: "1.5e3"}},
		},
		{
			name:  "negative exponent",
			input: "2E-4",
			expected: []parser.Token{
				{Type: parser.TokenNumber, Value: "2E-4"},
			},
		},
	})
}

func TestLexerNamesAndKeywords(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{
			name:     "underscored name",
			input:    "to_string",
			expected: []parser.Token{{Type: parser.TokenName, Value: "to_string"}},
		},
		{
			name:     "namespaced name",
			input:    "String.to_integer",
			expected: []parser.Token{{Type: parser.TokenName, Value: "String.to_integer"}},
		},
		{
			name:  "keywords",
			input: "true false null and or",
			expected: []parser.Token{
				{Type: parser.TokenBoolean, Value: "true"},
				{Type: parser.TokenBoolean, Value: "false"},
				{Type: parser.TokenNull, Value: "null"},
				{Type: parser.TokenAnd, Value: "and"},
				{Type: parser.TokenOr, Value: "or"},
			},
		},
	})
}

func TestLexerComments(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{
			name:  "comment between tokens",
			input: "1 /* skip me */ + 2",
			expected: []parser.Token{
				{Type: parser.TokenNumber, Value: "1"},
				{Type: parser.TokenPlus, Value: "+"},
				{Type: parser.TokenNumber, Value: "2"},
			},
		},
		{
			name:  "slash without star is division",
			input: "6 / 2",
			expected: []parser.Token{
				{Type: parser.TokenNumber, Value: "6"},
				{Type: parser.TokenDiv, Value: "/"},
				{Type: parser.TokenNumber, Value: "2"},
			},
		},
		{
			name:      "unclosed comment",
			input:     "1 /* never closed",
			expected:  []parser.Token{{Type: parser.TokenNumber, Value: "1"}},
			expectErr: true,
		},
	})
}
