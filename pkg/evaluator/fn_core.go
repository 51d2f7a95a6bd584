package evaluator

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pipelens/pipelens/pkg/inspect"
	"github.com/pipelens/pipelens/pkg/types"
)

// builtins is the registry of built-in functions, keyed by bare name.
var builtins = map[string]*FunctionDef{
	"to_string":  {Name: "to_string", MinArgs: 1, MaxArgs: 1, Impl: fnToString},
	"to_integer": {Name: "to_integer", MinArgs: 1, MaxArgs: 1, Impl: fnToInteger},
	"uppercase":  {Name: "uppercase", MinArgs: 1, MaxArgs: 1, Impl: fnUppercase},
	"lowercase":  {Name: "lowercase", MinArgs: 1, MaxArgs: 1, Impl: fnLowercase},
	"trim":       {Name: "trim", MinArgs: 1, MaxArgs: 1, Impl: fnTrim},
	"split":      {Name: "split", MinArgs: 2, MaxArgs: 2, Impl: fnSplit},
	"join":       {Name: "join", MinArgs: 1, MaxArgs: 2, Impl: fnJoin},
	"length":     {Name: "length", MinArgs: 1, MaxArgs: 1, Impl: fnLength},
	"sum":        {Name: "sum", MinArgs: 1, MaxArgs: 1, Impl: fnSum},
	"count":      {Name: "count", MinArgs: 1, MaxArgs: 1, Impl: fnCount},
	"min":        {Name: "min", MinArgs: 1, MaxArgs: 1, Impl: fnMin},
	"max":        {Name: "max", MinArgs: 1, MaxArgs: 1, Impl: fnMax},
	"average":    {Name: "average", MinArgs: 1, MaxArgs: 1, Impl: fnAverage},
	"reverse":    {Name: "reverse", MinArgs: 1, MaxArgs: 1, Impl: fnReverse},
	"distinct":   {Name: "distinct", MinArgs: 1, MaxArgs: 1, Impl: fnDistinct},
	"append":     {Name: "append", MinArgs: 2, MaxArgs: 2, Impl: fnAppend},
	"sort":       {Name: "sort", MinArgs: 1, MaxArgs: 1, Impl: fnSort},
	"abs":        {Name: "abs", MinArgs: 1, MaxArgs: 1, Impl: fnAbs},
	"floor":      {Name: "floor", MinArgs: 1, MaxArgs: 1, Impl: fnFloor},
	"ceil":       {Name: "ceil", MinArgs: 1, MaxArgs: 1, Impl: fnCeil},
	"round":      {Name: "round", MinArgs: 1, MaxArgs: 1, Impl: fnRound},
	"power":      {Name: "power", MinArgs: 2, MaxArgs: 2, Impl: fnPower},
	"sqrt":       {Name: "sqrt", MinArgs: 1, MaxArgs: 1, Impl: fnSqrt},
	"not":        {Name: "not", MinArgs: 1, MaxArgs: 1, Impl: fnNot},
	"boolean":    {Name: "boolean", MinArgs: 1, MaxArgs: 1, Impl: fnBoolean},
	"type":       {Name: "type", MinArgs: 1, MaxArgs: 1, Impl: fnType},
	"sleep":      {Name: "sleep", MinArgs: 1, MaxArgs: 2, Impl: fnSleep},
}

// argNumber extracts args[i] as a number.
func argNumber(name string, args []interface{}, i int) (float64, error) {
	n, ok := args[i].(float64)
	if !ok {
		return 0, types.NewError(types.ErrTypeMismatch,
			fmt.Sprintf("%s: argument %d must be a number, got %s", name, i+1, typeName(args[i])), -1)
	}
	return n, nil
}

// argString extracts args[i] as a string.
func argString(name string, args []interface{}, i int) (string, error) {
	s, ok := args[i].(string)
	if !ok {
		return "", types.NewError(types.ErrTypeMismatch,
			fmt.Sprintf("%s: argument %d must be a string, got %s", name, i+1, typeName(args[i])), -1)
	}
	return s, nil
}

// argArray extracts args[i] as an array.
func argArray(name string, args []interface{}, i int) ([]interface{}, error) {
	a, ok := args[i].([]interface{})
	if !ok {
		return nil, types.NewError(types.ErrTypeMismatch,
			fmt.Sprintf("%s: argument %d must be an array, got %s", name, i+1, typeName(args[i])), -1)
	}
	return a, nil
}

// argNumbers extracts args[i] as an array of numbers.
func argNumbers(name string, args []interface{}, i int) ([]float64, error) {
	arr, err := argArray(name, args, i)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(arr))
	for j, item := range arr {
		n, ok := item.(float64)
		if !ok {
			return nil, types.NewError(types.ErrTypeMismatch,
				fmt.Sprintf("%s: array items must be numbers, got %s", name, typeName(item)), -1)
		}
		out[j] = n
	}
	return out, nil
}

func fnToString(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	return inspect.FormatBare(args[0]), nil
}

func fnToInteger(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	switch v := args[0].(type) {
	case float64:
		return math.Trunc(v), nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, types.NewError(types.ErrTypeMismatch,
				fmt.Sprintf("to_integer: cannot parse %q as a number", v), -1)
		}
		return math.Trunc(n), nil
	default:
		return nil, types.NewError(types.ErrTypeMismatch,
			fmt.Sprintf("to_integer: argument must be a number or string, got %s", typeName(args[0])), -1)
	}
}

func fnUppercase(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	s, err := argString("uppercase", args, 0)
	if err != nil {
		return nil, err
	}
	return strings.ToUpper(s), nil
}

func fnLowercase(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	s, err := argString("lowercase", args, 0)
	if err != nil {
		return nil, err
	}
	return strings.ToLower(s), nil
}

func fnTrim(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	s, err := argString("trim", args, 0)
	if err != nil {
		return nil, err
	}
	return strings.TrimSpace(s), nil
}

func fnSplit(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	s, err := argString("split", args, 0)
	if err != nil {
		return nil, err
	}
	sep, err := argString("split", args, 1)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(s, sep)
	out := make([]interface{}, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, nil
}

func fnJoin(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	arr, err := argArray("join", args, 0)
	if err != nil {
		return nil, err
	}
	sep := ""
	if len(args) == 2 {
		if sep, err = argString("join", args, 1); err != nil {
			return nil, err
		}
	}
	parts := make([]string, len(arr))
	for i, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil, types.NewError(types.ErrTypeMismatch,
				fmt.Sprintf("join: array items must be strings, got %s", typeName(item)), -1)
		}
		parts[i] = s
	}
	return strings.Join(parts, sep), nil
}

func fnLength(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	switch v := args[0].(type) {
	case string:
		return float64(len([]rune(v))), nil
	case []interface{}:
		return float64(len(v)), nil
	case map[string]interface{}:
		return float64(len(v)), nil
	default:
		return nil, types.NewError(types.ErrTypeMismatch,
			fmt.Sprintf("length: argument must be a string, array or object, got %s", typeName(args[0])), -1)
	}
}

func fnSum(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	nums, err := argNumbers("sum", args, 0)
	if err != nil {
		return nil, err
	}
	total := 0.0
	for _, n := range nums {
		total += n
	}
	return total, nil
}

func fnCount(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	arr, err := argArray("count", args, 0)
	if err != nil {
		return nil, err
	}
	return float64(len(arr)), nil
}

func fnMin(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	nums, err := argNumbers("min", args, 0)
	if err != nil {
		return nil, err
	}
	if len(nums) == 0 {
		return nil, nil
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n < m {
			m = n
		}
	}
	return m, nil
}

func fnMax(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	nums, err := argNumbers("max", args, 0)
	if err != nil {
		return nil, err
	}
	if len(nums) == 0 {
		return nil, nil
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n > m {
			m = n
		}
	}
	return m, nil
}

func fnAverage(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	nums, err := argNumbers("average", args, 0)
	if err != nil {
		return nil, err
	}
	if len(nums) == 0 {
		return nil, nil
	}
	total := 0.0
	for _, n := range nums {
		total += n
	}
	return total / float64(len(nums)), nil
}

func fnReverse(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	switch v := args[0].(type) {
	case string:
		runes := []rune(v)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return string(runes), nil
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[len(v)-1-i] = item
		}
		return out, nil
	default:
		return nil, types.NewError(types.ErrTypeMismatch,
			fmt.Sprintf("reverse: argument must be a string or array, got %s", typeName(args[0])), -1)
	}
}

func fnDistinct(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	arr, err := argArray("distinct", args, 0)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(arr))
	out := make([]interface{}, 0, len(arr))
	for _, item := range arr {
		key := inspect.FormatValue(item)
		if !seen[key] {
			seen[key] = true
			out = append(out, item)
		}
	}
	return out, nil
}

func fnAppend(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	arr, err := argArray("append", args, 0)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, 0, len(arr)+1)
	out = append(out, arr...)
	if extra, ok := args[1].([]interface{}); ok {
		return append(out, extra...), nil
	}
	return append(out, args[1]), nil
}

func fnSort(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	arr, err := argArray("sort", args, 0)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, len(arr))
	copy(out, arr)

	var sortErr error
	sort.SliceStable(out, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		switch a := out[i].(type) {
		case float64:
			if b, ok := out[j].(float64); ok {
				return a < b
			}
		case string:
			if b, ok := out[j].(string); ok {
				return a < b
			}
		}
		sortErr = types.NewError(types.ErrTypeMismatch,
			"sort: array items must be all numbers or all strings", -1)
		return false
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return out, nil
}

func fnAbs(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	n, err := argNumber("abs", args, 0)
	if err != nil {
		return nil, err
	}
	return math.Abs(n), nil
}

func fnFloor(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	n, err := argNumber("floor", args, 0)
	if err != nil {
		return nil, err
	}
	return math.Floor(n), nil
}

func fnCeil(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	n, err := argNumber("ceil", args, 0)
	if err != nil {
		return nil, err
	}
	return math.Ceil(n), nil
}

func fnRound(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	n, err := argNumber("round", args, 0)
	if err != nil {
		return nil, err
	}
	return math.RoundToEven(n), nil
}

func fnPower(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	base, err := argNumber("power", args, 0)
	if err != nil {
		return nil, err
	}
	exp, err := argNumber("power", args, 1)
	if err != nil {
		return nil, err
	}
	result := math.Pow(base, exp)
	if math.IsInf(result, 0) || math.IsNaN(result) {
		return nil, types.NewError(types.ErrNumberTooLarge, "power: result out of range", -1)
	}
	return result, nil
}

func fnSqrt(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	n, err := argNumber("sqrt", args, 0)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, types.NewError(types.ErrNumberTooLarge, "sqrt: argument must be non-negative", -1)
	}
	return math.Sqrt(n), nil
}

func fnNot(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	return !truthy(args[0]), nil
}

func fnBoolean(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	return truthy(args[0]), nil
}

func fnType(_ context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	return typeName(args[0]), nil
}

// fnSleep pauses for the given number of milliseconds. In the piped form
// sleep's first argument is the piped value, which is passed through.
func fnSleep(ctx context.Context, _ *Evaluator, _ *EvalContext, args []interface{}) (interface{}, error) {
	ms, err := argNumber("sleep", args, len(args)-1)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	if len(args) == 2 {
		return args[0], nil
	}
	return nil, nil
}

// truthy converts a value to a boolean: empty strings, zero numbers and
// empty collections are false.
func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case types.Null:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	case []interface{}:
		return len(val) > 0
	case map[string]interface{}:
		return len(val) > 0
	default:
		return true
	}
}
