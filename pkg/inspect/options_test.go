package inspect

import (
	"errors"
	"testing"

	"github.com/pipelens/pipelens/pkg/parser"
	"github.com/pipelens/pipelens/pkg/types"
)

func parseOptionsObject(t *testing.T, source string) (Options, error) {
	t.Helper()
	expr, err := parser.Parse(source)
	if err != nil {
		t.Fatalf("Parse(%q): %v", source, err)
	}
	return ParseOptions(expr.AST())
}

func TestParseOptionsDefaults(t *testing.T) {
	opts, err := ParseOptions(nil)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Color != "cyan" || opts.TimeUnit != UnitMillisecond || !opts.Measure {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
	if opts.ShowVars || opts.InspectPipeline || opts.Label != "" || opts.BgColor != "" {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
}

func TestParseOptionsFull(t *testing.T) {
	opts, err := parseOptionsObject(t, `{
		show_vars: true,
		label: "deploy",
		color: "red",
		bg_color: "white",
		time_unit: "microsecond",
		inspect_pipeline: true,
		measure: false
	}`)
	if err != nil {
		t.Fatal(err)
	}

	if !opts.ShowVars || !opts.InspectPipeline || opts.Measure {
		t.Fatalf("boolean options not applied: %+v", opts)
	}
	if opts.Label != "deploy" || opts.Color != "red" || opts.BgColor != "white" {
		t.Fatalf("string options not applied: %+v", opts)
	}
	if opts.TimeUnit != UnitMicrosecond {
		t.Fatalf("expected microsecond unit, got %s", opts.TimeUnit)
	}
}

func TestParseOptionsErrors(t *testing.T) {
	tests := []struct {
		source string
		code   types.ErrorCode
	}{
		{`{bogus: true}`, types.ErrUnknownOption},
		{`{color: "mauve"}`, types.ErrUnsupportedColor},
		{`{bg_color: "chartreuse"}`, types.ErrUnsupportedColor},
		{`{time_unit: "fortnight"}`, types.ErrUnsupportedUnit},
		{`{show_vars: "yes"}`, types.ErrInvalidOptionValue},
		{`{label: 5}`, types.ErrInvalidOptionValue},
		{`[1, 2]`, types.ErrInvalidOptionValue},
	}

	for _, tc := range tests {
		_, err := parseOptionsObject(t, tc.source)
		if err == nil {
			t.Errorf("ParseOptions(%s): expected error", tc.source)
			continue
		}
		var perr *types.Error
		if !errors.As(err, &perr) {
			t.Errorf("ParseOptions(%s): expected *types.Error, got %T", tc.source, err)
			continue
		}
		if perr.Code != tc.code {
			t.Errorf("ParseOptions(%s): expected %s, got %s", tc.source, tc.code, perr.Code)
		}
	}
}

func TestSupportedColors(t *testing.T) {
	for _, name := range []string{"black", "red", "green", "yellow", "blue", "magenta", "cyan", "white"} {
		opts := DefaultOptions()
		opts.Color = name
		opts.BgColor = name
		if err := opts.Validate(); err != nil {
			t.Errorf("color %s: unexpected error %v", name, err)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		unit TimeUnit
		want string
	}{
		{UnitSecond, "0.042s"},
		{UnitMillisecond, "42ms"},
		{UnitMicrosecond, "42000µs"},
		{UnitNanosecond, "42000000ns"},
	}
	for _, tc := range tests {
		if got := FormatDuration(42_000_000, tc.unit); got != tc.want {
			t.Errorf("FormatDuration(42ms, %s): expected %q, got %q", tc.unit, tc.want, got)
		}
	}
}
