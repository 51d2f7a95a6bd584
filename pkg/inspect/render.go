package inspect

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pipelens/pipelens/pkg/types"
)

// FormatValue renders a runtime value in the engine's canonical structural
// form: numbers without a trailing .0 when integral, strings quoted,
// arrays bracketed, objects with sorted keys.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case types.Null:
		return "null"
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return formatNumber(val)
	case string:
		return strconv.Quote(val)
	case []interface{}:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = FormatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = strconv.Quote(k) + ": " + FormatValue(val[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// FormatBare renders a value for string coercion: like FormatValue but
// strings stay unquoted.
func FormatBare(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return FormatValue(v)
}

// formatNumber prints integral floats without a decimal part.
func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// FormatExpr synthesizes a textual rendering of an expression tree. It is
// the fallback the report body uses when the literal source text cannot be
// recovered from a backing file (interactive input, single-line calls).
// The output is a readable approximation, not a verbatim reproduction.
func FormatExpr(n *types.Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case types.NodeNumber:
		return formatNumber(n.NumValue)
	case types.NodeString:
		return strconv.Quote(n.StrValue)
	case types.NodeBoolean:
		return strconv.FormatBool(n.Value == true)
	case types.NodeNull:
		return "null"
	case types.NodeName:
		return n.StrValue
	case types.NodeUnary:
		return "-" + formatOperand(n.LHS)
	case types.NodeBinary:
		op, _ := n.Value.(string)
		return formatOperand(n.LHS) + " " + op + " " + formatOperand(n.RHS)
	case types.NodePipe:
		return FormatExpr(n.LHS) + " |> " + FormatExpr(n.RHS)
	case types.NodeCall:
		args := make([]string, len(n.Arguments))
		for i, a := range n.Arguments {
			args[i] = FormatExpr(a)
		}
		return n.StrValue + "(" + strings.Join(args, ", ") + ")"
	case types.NodeBind:
		return n.StrValue + " := " + FormatExpr(n.RHS)
	case types.NodeCondition:
		s := FormatExpr(n.LHS) + " ? " + FormatExpr(n.RHS)
		if len(n.Expressions) == 1 {
			s += " : " + FormatExpr(n.Expressions[0])
		}
		return s
	case types.NodeArray:
		parts := make([]string, len(n.Expressions))
		for i, e := range n.Expressions {
			parts[i] = FormatExpr(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case types.NodeObject:
		parts := make([]string, len(n.Expressions))
		for i, pair := range n.Expressions {
			parts[i] = FormatExpr(pair.LHS) + ": " + FormatExpr(pair.RHS)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case types.NodeBlock:
		parts := make([]string, len(n.Expressions))
		for i, e := range n.Expressions {
			parts[i] = FormatExpr(e)
		}
		return "(" + strings.Join(parts, "; ") + ")"
	case types.NodeCapture, types.NodeInspect:
		// Instrumentation wrappers are evaluation-transparent; render
		// what they wrap.
		return FormatExpr(n.LHS)
	default:
		return string(n.Kind)
	}
}

// formatOperand parenthesizes nested operator expressions so the
// synthesized text reads unambiguously.
func formatOperand(n *types.Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case types.NodeBinary, types.NodeCondition, types.NodePipe:
		return "(" + FormatExpr(n) + ")"
	default:
		return FormatExpr(n)
	}
}
