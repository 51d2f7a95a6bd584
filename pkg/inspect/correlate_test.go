package inspect

import (
	"strings"
	"testing"
	"time"
)

// seededState builds a capture state with fixed elapsed values so the
// rendered durations are deterministic.
func seededState(records map[int]Record) *CaptureState {
	st := NewCaptureState()
	for line, rec := range records {
		st.records[line] = rec
	}
	return st
}

func TestAnnotatePipeline(t *testing.T) {
	lines := []SlicedLine{
		{Text: "  (x + 5)", Line: 1},
		{Text: "  |> to_string", Line: 2},
		{Text: "  |> to_integer()", Line: 3},
	}
	st := seededState(map[int]Record{
		2: {Value: "12", Elapsed: 5 * time.Millisecond},
	})

	got := Annotate(lines, st, 12.0, 8*time.Millisecond, false, DefaultOptions())

	want := []string{
		"  (x + 5)",
		"  |> to_string #=> [5ms] \"12\"",
		"  |> to_integer() #=> [3ms] 12",
		"",
		"  Total Duration: 8ms",
	}
	assertLines(t, got, want)
}

func TestAnnotateDeltaSubtraction(t *testing.T) {
	// Cumulative timestamps become per-step deltas against the nearest
	// preceding recorded line.
	lines := []SlicedLine{
		{Text: "  1", Line: 1},
		{Text: "  |> a", Line: 2},
		{Text: "  |> b", Line: 3},
		{Text: "  |> c", Line: 4},
	}
	st := seededState(map[int]Record{
		2: {Value: 1.0, Elapsed: 10 * time.Millisecond},
		3: {Value: 2.0, Elapsed: 25 * time.Millisecond},
	})

	got := Annotate(lines, st, 3.0, 30*time.Millisecond, false, DefaultOptions())

	want := []string{
		"  1",
		"  |> a #=> [10ms] 1",
		"  |> b #=> [15ms] 2",
		"  |> c #=> [5ms] 3",
		"",
		"  Total Duration: 30ms",
	}
	assertLines(t, got, want)
}

func TestAnnotateFinalOnly(t *testing.T) {
	// Without per-step captures only the last line gets annotated, and a
	// single measured annotation earns no total footer.
	lines := []SlicedLine{
		{Text: "  (x + 5)", Line: 1},
		{Text: "  |> to_string", Line: 2},
		{Text: "  |> to_integer()", Line: 3},
	}
	st := NewCaptureState()

	got := Annotate(lines, st, 12.0, 2*time.Millisecond, false, DefaultOptions())

	want := []string{
		"  (x + 5)",
		"  |> to_string",
		"  |> to_integer() #=> [2ms] 12",
	}
	assertLines(t, got, want)
}

func TestAnnotateFailed(t *testing.T) {
	lines := []SlicedLine{
		{Text: "  (x + 5)", Line: 1},
		{Text: "  |> boom", Line: 2},
	}
	st := NewCaptureState()

	got := Annotate(lines, st, nil, time.Millisecond, true, DefaultOptions())

	// No final value materialized: every line stays bare.
	want := []string{
		"  (x + 5)",
		"  |> boom",
	}
	assertLines(t, got, want)
}

func TestAnnotateMeasureOff(t *testing.T) {
	lines := []SlicedLine{
		{Text: "  1", Line: 1},
		{Text: "  |> a", Line: 2},
		{Text: "  |> b", Line: 3},
	}
	st := seededState(map[int]Record{
		2: {Value: 1.0, Elapsed: 4 * time.Millisecond},
	})

	opts := DefaultOptions()
	opts.Measure = false
	got := Annotate(lines, st, 2.0, 9*time.Millisecond, false, opts)

	// No duration brackets and no total footer.
	want := []string{
		"  1",
		"  |> a #=> 1",
		"  |> b #=> 2",
	}
	assertLines(t, got, want)
}

func TestAnnotateTimeUnits(t *testing.T) {
	lines := []SlicedLine{{Text: "  x", Line: 1}}
	st := NewCaptureState()

	tests := []struct {
		unit TimeUnit
		want string
	}{
		{UnitSecond, "  x #=> [1.500s] 1"},
		{UnitMillisecond, "  x #=> [1500ms] 1"},
		{UnitMicrosecond, "  x #=> [1500000µs] 1"},
		{UnitNanosecond, "  x #=> [1500000000ns] 1"},
	}
	for _, tc := range tests {
		opts := DefaultOptions()
		opts.TimeUnit = tc.unit
		got := Annotate(lines, st, 1.0, 1500*time.Millisecond, false, opts)
		if got[0] != tc.want {
			t.Errorf("unit %s: expected %q, got %q", tc.unit, tc.want, got[0])
		}
	}
}

func TestAnnotateFallback(t *testing.T) {
	got := AnnotateFallback("x + y", 12.0, 3*time.Millisecond, false, DefaultOptions())
	assertLines(t, got, []string{"  x + y #=> [3ms] 12"})

	got = AnnotateFallback("x + y", nil, 3*time.Millisecond, true, DefaultOptions())
	assertLines(t, got, []string{"  x + y"})
}

func TestCaptureState(t *testing.T) {
	st := NewCaptureState()
	if st.Len() != 0 {
		t.Fatalf("expected empty state, got %d records", st.Len())
	}

	st.Record(3, "a")
	st.Record(2, "b")
	st.Record(3, "c") // re-recording a line replaces the value

	if st.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", st.Len())
	}
	rec, ok := st.Lookup(3)
	if !ok || rec.Value != "c" {
		t.Fatalf("expected replaced record for line 3, got %v (%v)", rec.Value, ok)
	}
	if _, ok := st.Lookup(99); ok {
		t.Fatal("expected miss for unrecorded line")
	}

	lines := st.Lines()
	if len(lines) != 2 || lines[0] != 2 || lines[1] != 3 {
		t.Fatalf("expected sorted lines [2 3], got %v", lines)
	}
}

func assertLines(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d lines, got %d:\n%s", len(want), len(got), strings.Join(got, "\n"))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d:\nexpected %q\ngot      %q", i, want[i], got[i])
		}
	}
}
