package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pipelens/pipelens/pkg/types"
)

// Parser implements a recursive descent parser for pipeline scripts.
// It uses Pratt's "Top Down Operator Precedence" algorithm to handle
// operator precedence correctly.
type Parser struct {
	lexer   *Lexer
	current Token
	prev    Token
	errors  []error
	opts    CompileOptions
	arena   *types.NodeArena
	depth   int
}

// NewParser creates a new parser for the given input string.
func NewParser(input string, opts ...CompileOption) *Parser {
	options := CompileOptions{
		MaxDepth: 100,
	}
	for _, opt := range opts {
		opt(&options)
	}

	p := &Parser{
		lexer: NewLexer(input),
		opts:  options,
		arena: types.NewNodeArena(),
	}

	// Read the first token
	p.advance()

	return p
}

// Parse parses an entire script and returns the compiled Expression.
// A script is one or more expressions separated by semicolons; a script
// with multiple expressions evaluates to the value of the last one.
func (p *Parser) Parse() (*types.Expression, error) {
	// Check for lexer errors (e.g., unclosed comment)
	if p.current.Type == TokenError {
		return nil, p.lexer.Error()
	}

	if p.current.Type == TokenEOF {
		return nil, p.error(types.ErrSyntaxError, "Empty expression")
	}

	first := p.current
	var exprs []*types.Node
	for {
		node, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, node)

		if p.current.Type != TokenSemicolon {
			break
		}
		p.advance() // Skip ';'
		if p.current.Type == TokenEOF {
			break // Trailing semicolon
		}
	}

	if p.current.Type == TokenError {
		return nil, p.lexer.Error()
	}
	if p.current.Type != TokenEOF {
		return nil, p.error(types.ErrSyntaxError, fmt.Sprintf("Unexpected token: %s", p.current.Value))
	}

	root := exprs[0]
	if len(exprs) > 1 {
		root = p.node(types.NodeBlock, first)
		root.Expressions = exprs
	}

	expr := types.NewExpression(root, p.lexer.input)
	expr.AttachArena(p.arena)
	return expr, nil
}

// Operator precedence table (binding power).
// Higher values bind more tightly.
var precedence = map[TokenType]int{
	TokenAssign:       10, // :=
	TokenCondition:    15, // ?
	TokenPipe:         20, // |>
	TokenOr:           25, // or
	TokenAnd:          30, // and
	TokenEqual:        40, // =
	TokenNotEqual:     40, // !=
	TokenLess:         40, // <
	TokenLessEqual:    40, // <=
	TokenGreater:      40, // >
	TokenGreaterEqual: 40, // >=
	TokenConcat:       50, // &
	TokenPlus:         50, // +
	TokenMinus:        50, // -
	TokenMult:         60, // *
	TokenDiv:          60, // /
	TokenMod:          60, // %
	TokenParenOpen:    80, // ( function call
}

// getPrecedence returns the precedence of a token type.
func (p *Parser) getPrecedence(tt TokenType) int {
	if prec, ok := precedence[tt]; ok {
		return prec
	}
	return 0
}

// advance moves to the next token.
func (p *Parser) advance() {
	p.prev = p.current
	p.current = p.lexer.Next()
}

// expect checks if the current token matches the expected type and advances.
func (p *Parser) expect(tt TokenType) error {
	if p.current.Type != tt {
		return p.error(types.ErrExpectedToken, fmt.Sprintf("Expected %s but got %s", tt.String(), p.current.Type.String()))
	}
	p.advance()
	return nil
}

// error creates a parser error.
func (p *Parser) error(code types.ErrorCode, message string) error {
	err := &types.Error{
		Code:     code,
		Message:  message,
		Position: p.current.Position,
		Token:    p.current.Value,
	}
	p.errors = append(p.errors, err)
	return err
}

// node allocates a new tree node carrying the token's position and line.
func (p *Parser) node(kind types.NodeKind, tok Token) *types.Node {
	n := p.arena.Alloc(kind, tok.Position)
	n.Line = tok.Line
	return n
}

// parseExpression parses an expression with operator precedence.
// rbp is the right binding power (minimum precedence).
func (p *Parser) parseExpression(rbp int) (*types.Node, error) {
	if p.depth++; p.depth > p.opts.MaxDepth {
		p.depth--
		return nil, p.error(types.ErrSyntaxError, "Expression nesting too deep")
	}
	defer func() { p.depth-- }()

	// Parse prefix expression (nud - null denotation)
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	// Parse infix expressions while precedence allows (led - left denotation)
	for rbp < p.getPrecedence(p.current.Type) {
		left, err = p.parseInfix(left)
		if err != nil {
			return nil, err
		}
	}

	return left, nil
}

// parsePrefix parses a prefix expression (nud - null denotation).
// These are expressions that don't require a left-hand side.
func (p *Parser) parsePrefix() (*types.Node, error) {
	token := p.current

	switch token.Type {
	case TokenString:
		return p.parseString()
	case TokenNumber:
		return p.parseNumber()
	case TokenBoolean:
		return p.parseBoolean()
	case TokenNull:
		return p.parseNull()
	case TokenName:
		return p.parseName()
	case TokenMinus:
		return p.parseUnaryMinus()
	case TokenParenOpen:
		return p.parseGrouping()
	case TokenBracketOpen:
		return p.parseArrayConstructor()
	case TokenBraceOpen:
		return p.parseObjectConstructor()
	case TokenAnd, TokenOr:
		// Keywords can also be used as field names in prefix position
		return p.parseNameFromKeyword()
	case TokenError:
		return nil, p.lexer.Error()
	default:
		return nil, p.error(types.ErrSyntaxError, fmt.Sprintf("Unexpected token: %s", token.Type.String()))
	}
}

// parseInfix parses an infix expression (led - left denotation).
// These are expressions that require a left-hand side.
func (p *Parser) parseInfix(left *types.Node) (*types.Node, error) {
	token := p.current

	switch token.Type {
	case TokenParenOpen:
		return p.parseCall(left)
	case TokenPipe:
		return p.parsePipe(left)
	case TokenCondition:
		return p.parseConditional(left)
	case TokenAssign:
		return p.parseAssignment(left)
	case TokenPlus, TokenMinus, TokenMult, TokenDiv, TokenMod,
		TokenEqual, TokenNotEqual, TokenLess, TokenLessEqual,
		TokenGreater, TokenGreaterEqual, TokenConcat,
		TokenAnd, TokenOr:
		return p.parseBinaryOp(left)
	default:
		return nil, p.error(types.ErrSyntaxError, fmt.Sprintf("Unexpected infix token: %s", token.Type.String()))
	}
}

// unescapeString processes escape sequences in a string literal.
func unescapeString(s string) (string, error) {
	if !strings.Contains(s, "\\") {
		return s, nil // Fast path: no escapes
	}

	var result strings.Builder
	result.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			result.WriteByte(s[i])
			continue
		}

		i++ // Skip backslash
		if i >= len(s) {
			return "", fmt.Errorf("invalid escape sequence at end of string")
		}

		switch s[i] {
		case 'n':
			result.WriteByte('\n')
		case 't':
			result.WriteByte('\t')
		case 'r':
			result.WriteByte('\r')
		case '\\':
			result.WriteByte('\\')
		case '"':
			result.WriteByte('"')
		case '\'':
			result.WriteByte('\'')
		case '/':
			result.WriteByte('/')
		case 'u':
			// Unicode escape: \uXXXX
			if i+4 >= len(s) {
				return "", fmt.Errorf("invalid \\u escape: not enough characters")
			}
			hex := s[i+1 : i+5]
			codePoint, err := strconv.ParseUint(hex, 16, 32)
			if err != nil {
				return "", fmt.Errorf("invalid \\u escape: %s", hex)
			}
			result.WriteRune(rune(codePoint))
			i += 4
		default:
			return "", fmt.Errorf("invalid escape sequence: \\%c", s[i])
		}
	}

	return result.String(), nil
}

// parseString parses a string literal.
func (p *Parser) parseString() (*types.Node, error) {
	node := p.node(types.NodeString, p.current)

	unescaped, err := unescapeString(p.current.Value)
	if err != nil {
		return nil, p.error(types.ErrInvalidEscape, fmt.Sprintf("Invalid string literal: %v", err))
	}

	node.Value = unescaped
	node.StrValue = unescaped
	p.advance()
	return node, nil
}

// parseNumber parses a number literal.
func (p *Parser) parseNumber() (*types.Node, error) {
	node := p.node(types.NodeNumber, p.current)

	val, err := strconv.ParseFloat(p.current.Value, 64)
	if err != nil {
		return nil, p.error(types.ErrNumberOutOfRange, fmt.Sprintf("Invalid number: %s", p.current.Value))
	}

	node.Value = val
	node.NumValue = val
	p.advance()
	return node, nil
}

// parseBoolean parses a boolean literal.
func (p *Parser) parseBoolean() (*types.Node, error) {
	node := p.node(types.NodeBoolean, p.current)
	node.Value = p.current.Value == "true"
	p.advance()
	return node, nil
}

// parseNull parses a null literal.
func (p *Parser) parseNull() (*types.Node, error) {
	node := p.node(types.NodeNull, p.current)
	node.Value = types.NullValue
	p.advance()
	return node, nil
}

// parseName parses an identifier.
func (p *Parser) parseName() (*types.Node, error) {
	node := p.node(types.NodeName, p.current)
	node.Value = p.current.Value
	node.StrValue = p.current.Value
	p.advance()
	return node, nil
}

// parseNameFromKeyword treats a keyword token (and, or) as an identifier.
func (p *Parser) parseNameFromKeyword() (*types.Node, error) {
	node := p.node(types.NodeName, p.current)
	node.Value = p.current.Type.String()
	node.StrValue = p.current.Type.String()
	p.advance()
	return node, nil
}

// parseUnaryMinus parses a unary minus operator.
func (p *Parser) parseUnaryMinus() (*types.Node, error) {
	tok := p.current
	p.advance()

	// Parse the operand with high precedence
	expr, err := p.parseExpression(70)
	if err != nil {
		return nil, err
	}

	node := p.node(types.NodeUnary, tok)
	node.Value = "-"
	node.LHS = expr

	return node, nil
}

// parseGrouping parses a parenthesized expression or block.
// A block is one or more expressions separated by semicolons; each block
// creates a new lexical scope for variable bindings. Single expressions
// without semicolons are returned directly (pure grouping).
func (p *Parser) parseGrouping() (*types.Node, error) {
	startTok := p.current
	p.advance() // Skip '('

	if p.current.Type == TokenParenClose {
		// Empty grouping () represents undefined
		node := p.node(types.NodeNull, p.current)
		p.advance()
		return node, nil
	}

	var exprs []*types.Node
	hasSemicolon := false

	for p.current.Type != TokenParenClose {
		expr, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)

		if p.current.Type != TokenSemicolon {
			break
		}
		hasSemicolon = true
		p.advance() // Skip ';'
	}

	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}

	if len(exprs) == 1 && !hasSemicolon {
		// Parentheses isolate variable assignments even for a single
		// expression, so binds still get wrapped in a scope.
		if exprs[0].Kind == types.NodeBind {
			blockNode := p.node(types.NodeBlock, startTok)
			blockNode.Expressions = exprs
			return blockNode, nil
		}
		return exprs[0], nil
	}

	blockNode := p.node(types.NodeBlock, startTok)
	blockNode.Expressions = exprs
	return blockNode, nil
}

// parseArrayConstructor parses an array constructor [...].
func (p *Parser) parseArrayConstructor() (*types.Node, error) {
	tok := p.current
	p.advance() // Skip '['

	node := p.node(types.NodeArray, tok)
	node.Expressions = []*types.Node{}

	if p.current.Type == TokenBracketClose {
		p.advance()
		return node, nil
	}

	for {
		expr, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		node.Expressions = append(node.Expressions, expr)

		if p.current.Type == TokenBracketClose {
			p.advance()
			break
		}

		if err := p.expect(TokenComma); err != nil {
			return nil, err
		}
	}

	return node, nil
}

// parseObjectConstructor parses an object constructor {...}.
// Keys are string literals or bare names; each entry becomes a pair node
// (NodeBinary with ":" value).
func (p *Parser) parseObjectConstructor() (*types.Node, error) {
	tok := p.current
	p.advance() // Skip '{'

	node := p.node(types.NodeObject, tok)
	node.Expressions = []*types.Node{}

	if p.current.Type == TokenBraceClose {
		p.advance()
		return node, nil
	}

	for {
		key, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}

		if err := p.expect(TokenColon); err != nil {
			return nil, err
		}

		value, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}

		pair := p.arena.Alloc(types.NodeBinary, key.Position)
		pair.Line = key.Line
		pair.Value = ":"
		pair.LHS = key
		pair.RHS = value

		node.Expressions = append(node.Expressions, pair)

		if p.current.Type == TokenBraceClose {
			p.advance()
			break
		}

		if err := p.expect(TokenComma); err != nil {
			return nil, err
		}
	}

	return node, nil
}

// parseBinaryOp parses a binary operator expression.
func (p *Parser) parseBinaryOp(left *types.Node) (*types.Node, error) {
	op := p.current
	prec := p.getPrecedence(op.Type)
	p.advance()

	right, err := p.parseExpression(prec)
	if err != nil {
		return nil, err
	}

	node := p.node(types.NodeBinary, op)
	node.Value = operatorString(op.Type)
	node.LHS = left
	node.RHS = right

	return node, nil
}

// parseCall parses a function call expression.
// Called when we see an expression followed by '('. Only named functions
// can be called; the name is kept in Value for registry lookup.
func (p *Parser) parseCall(nameNode *types.Node) (*types.Node, error) {
	if nameNode.Kind != types.NodeName {
		return nil, p.error(types.ErrSyntaxError, "Only named functions can be called")
	}

	callTok := p.current
	p.advance() // Skip '('

	node := p.node(types.NodeCall, callTok)
	node.Value = nameNode.Value
	node.StrValue = nameNode.StrValue
	// The call inherits the name's position so a call that opens a source
	// line is attributed to that line, not to its '(' token.
	node.Position = nameNode.Position
	node.Line = nameNode.Line
	node.Arguments = []*types.Node{}

	if p.current.Type != TokenParenClose {
		for {
			arg, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			node.Arguments = append(node.Arguments, arg)

			if p.current.Type == TokenParenClose {
				break
			}

			if err := p.expect(TokenComma); err != nil {
				return nil, err
			}
		}
	}

	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}

	return node, nil
}

// parsePipe parses a pipeline step.
// Syntax: expr |> target. The prior step is embedded as the node's LHS,
// forming a linear chain from innermost (earliest) to outermost (latest).
// The node's line is the line of the |> token itself, which is what the
// run-time correlator keys captured step values by.
func (p *Parser) parsePipe(left *types.Node) (*types.Node, error) {
	tok := p.current
	prec := p.getPrecedence(TokenPipe)
	p.advance() // Skip '|>'

	right, err := p.parseExpression(prec)
	if err != nil {
		return nil, err
	}

	node := p.node(types.NodePipe, tok)
	node.Value = "|>"
	node.LHS = left
	node.RHS = right

	return node, nil
}

// parseConditional parses a conditional (ternary) expression.
// Syntax: condition ? then_expr : else_expr. The else part is optional.
func (p *Parser) parseConditional(condition *types.Node) (*types.Node, error) {
	tok := p.current
	p.advance() // Skip '?'

	thenExpr, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}

	node := p.node(types.NodeCondition, tok)
	node.LHS = condition
	node.RHS = thenExpr

	if p.current.Type == TokenColon {
		p.advance() // Skip ':'

		// Right-associative, so parse with precedence - 1
		elseExpr, err := p.parseExpression(precedence[TokenCondition] - 1)
		if err != nil {
			return nil, err
		}
		node.Expressions = []*types.Node{elseExpr}
	}

	return node, nil
}

// parseAssignment parses an assignment expression.
// Syntax: name := value
// Right-associative: a := b := 5 is (a := (b := 5)).
func (p *Parser) parseAssignment(left *types.Node) (*types.Node, error) {
	if left.Kind != types.NodeName {
		return nil, p.error(types.ErrSyntaxError, "Left-hand side of assignment must be a name")
	}

	tok := p.current
	prec := p.getPrecedence(TokenAssign)
	p.advance() // Skip ':='

	right, err := p.parseExpression(prec - 1)
	if err != nil {
		return nil, err
	}

	node := p.node(types.NodeBind, tok)
	node.Value = left.Value // Variable name
	node.StrValue = left.StrValue
	node.LHS = left
	node.RHS = right

	return node, nil
}

// operatorString returns the string representation of an operator token.
func operatorString(tt TokenType) string {
	switch tt {
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenMult:
		return "*"
	case TokenDiv:
		return "/"
	case TokenMod:
		return "%"
	case TokenEqual:
		return "="
	case TokenNotEqual:
		return "!="
	case TokenLess:
		return "<"
	case TokenLessEqual:
		return "<="
	case TokenGreater:
		return ">"
	case TokenGreaterEqual:
		return ">="
	case TokenConcat:
		return "&"
	case TokenAnd:
		return "and"
	case TokenOr:
		return "or"
	default:
		return tt.String()
	}
}
