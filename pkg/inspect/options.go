package inspect

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pipelens/pipelens/pkg/types"
)

// TimeUnit selects the unit durations are displayed in.
type TimeUnit string

// Supported time units.
const (
	UnitSecond      TimeUnit = "second"
	UnitMillisecond TimeUnit = "millisecond"
	UnitMicrosecond TimeUnit = "microsecond"
	UnitNanosecond  TimeUnit = "nanosecond"
)

// suffix returns the display suffix for the unit.
func (u TimeUnit) suffix() string {
	switch u {
	case UnitSecond:
		return "s"
	case UnitMicrosecond:
		return "µs"
	case UnitNanosecond:
		return "ns"
	default:
		return "ms"
	}
}

// FormatDuration renders a duration in the given unit, suffix included.
func FormatDuration(d time.Duration, u TimeUnit) string {
	switch u {
	case UnitSecond:
		return strconv.FormatFloat(d.Seconds(), 'f', 3, 64) + "s"
	case UnitMicrosecond:
		return strconv.FormatInt(d.Microseconds(), 10) + "µs"
	case UnitNanosecond:
		return strconv.FormatInt(d.Nanoseconds(), 10) + "ns"
	default:
		return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
	}
}

// Options configures one inspect() invocation. All fields are optional;
// zero values fall back to the defaults in DefaultOptions.
type Options struct {
	// ShowVars prints all name/value bindings visible at the call site
	// before the report body.
	ShowVars bool
	// Label prepends a text label above the filename/line header.
	Label string
	// Color and BgColor select the terminal color of the header.
	Color   string
	BgColor string
	// TimeUnit controls duration display.
	TimeUnit TimeUnit
	// InspectPipeline enables per-step capture; when false only the
	// outermost value and its source text are reported.
	InspectPipeline bool
	// Measure controls whether durations are computed and printed at all.
	Measure bool
}

// DefaultOptions returns the options used when an inspect() call carries
// no explicit configuration.
func DefaultOptions() Options {
	return Options{
		Color:    "cyan",
		TimeUnit: UnitMillisecond,
		Measure:  true,
	}
}

// supportedColors maps color names to ANSI color codes.
var supportedColors = map[string]string{
	"black":   "0",
	"red":     "1",
	"green":   "2",
	"yellow":  "3",
	"blue":    "4",
	"magenta": "5",
	"cyan":    "6",
	"white":   "7",
}

// Validate checks the option values. Malformed configuration is a fatal
// error raised while the instrumentation is being built, before any code
// executes.
func (o Options) Validate() error {
	if o.Color != "" {
		if _, ok := supportedColors[o.Color]; !ok {
			return types.NewError(types.ErrUnsupportedColor, fmt.Sprintf("unsupported color %q", o.Color), -1)
		}
	}
	if o.BgColor != "" {
		if _, ok := supportedColors[o.BgColor]; !ok {
			return types.NewError(types.ErrUnsupportedColor, fmt.Sprintf("unsupported bg_color %q", o.BgColor), -1)
		}
	}
	switch o.TimeUnit {
	case UnitSecond, UnitMillisecond, UnitMicrosecond, UnitNanosecond:
	default:
		return types.NewError(types.ErrUnsupportedUnit, fmt.Sprintf("unsupported time_unit %q", o.TimeUnit), -1)
	}
	return nil
}

// ParseOptions builds Options from the object literal handed to inspect().
// node may be nil (no options argument). Keys and values must be literals;
// anything unknown or wrongly typed is a configuration error.
func ParseOptions(node *types.Node) (Options, error) {
	opts := DefaultOptions()
	if node == nil {
		return opts, nil
	}
	if node.Kind != types.NodeObject {
		return opts, types.NewError(types.ErrInvalidOptionValue, "inspect options must be an object literal", node.Position)
	}

	for _, pair := range node.Expressions {
		key, ok := literalKey(pair.LHS)
		if !ok {
			return opts, types.NewError(types.ErrInvalidOptionValue, "inspect option keys must be literal strings", pair.Position)
		}

		switch key {
		case "show_vars":
			b, err := literalBool(pair.RHS, key)
			if err != nil {
				return opts, err
			}
			opts.ShowVars = b
		case "label":
			s, err := literalString(pair.RHS, key)
			if err != nil {
				return opts, err
			}
			opts.Label = s
		case "color":
			s, err := literalString(pair.RHS, key)
			if err != nil {
				return opts, err
			}
			opts.Color = s
		case "bg_color":
			s, err := literalString(pair.RHS, key)
			if err != nil {
				return opts, err
			}
			opts.BgColor = s
		case "time_unit":
			s, err := literalString(pair.RHS, key)
			if err != nil {
				return opts, err
			}
			opts.TimeUnit = TimeUnit(s)
		case "inspect_pipeline":
			b, err := literalBool(pair.RHS, key)
			if err != nil {
				return opts, err
			}
			opts.InspectPipeline = b
		case "measure":
			b, err := literalBool(pair.RHS, key)
			if err != nil {
				return opts, err
			}
			opts.Measure = b
		default:
			return opts, types.NewError(types.ErrUnknownOption, fmt.Sprintf("unknown inspect option %q", key), pair.Position)
		}
	}

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// literalKey accepts string literals and bare names as object keys.
func literalKey(n *types.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Kind {
	case types.NodeString, types.NodeName:
		return n.StrValue, true
	default:
		return "", false
	}
}

func literalString(n *types.Node, key string) (string, error) {
	if n == nil || n.Kind != types.NodeString {
		return "", types.NewError(types.ErrInvalidOptionValue, fmt.Sprintf("inspect option %q expects a string literal", key), nodePos(n))
	}
	return n.StrValue, nil
}

func literalBool(n *types.Node, key string) (bool, error) {
	if n == nil || n.Kind != types.NodeBoolean {
		return false, types.NewError(types.ErrInvalidOptionValue, fmt.Sprintf("inspect option %q expects a boolean literal", key), nodePos(n))
	}
	b, _ := n.Value.(bool)
	return b, nil
}

func nodePos(n *types.Node) int {
	if n == nil {
		return -1
	}
	return n.Position
}
