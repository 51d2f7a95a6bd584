package inspect

import (
	"time"
)

// Annotate correlates recovered source lines with the records captured
// while the instrumented expression executed and renders the report body.
//
// For each sliced line the correlator looks up the captured record keyed
// by that line. Captured timestamps are cumulative from pipeline start;
// they are converted to per-step deltas by subtracting the elapsed value
// of the nearest other record on a strictly earlier line (the raw value
// stands when none precedes). A lookup miss leaves the line unannotated;
// that is the normal shape of a multi-line initial value, never a crash.
//
// The final sliced line belongs to the outermost step, whose value is the
// expression's own result: it is annotated with final and the time left
// between the last capture and total. When failed is true the final value
// never materialized and the last line stays bare (best-effort partial
// report).
//
// After the body, a trailing summary line with the total duration is
// appended when more than one measured annotation was emitted.
func Annotate(lines []SlicedLine, st *CaptureState, final interface{}, total time.Duration, failed bool, opts Options) []string {
	out := make([]string, 0, len(lines)+1)
	measured := 0

	for i, line := range lines {
		last := i == len(lines)-1

		if last && !failed {
			delta := total - st.MaxElapsed()
			out = append(out, line.Text+annotation(final, delta, opts))
			measured++
			continue
		}

		if rec, ok := st.Lookup(line.Line); ok {
			out = append(out, line.Text+annotation(rec.Value, deltaFor(st, line.Line, rec), opts))
			measured++
			continue
		}

		out = append(out, line.Text)
	}

	if opts.Measure && measured > 1 {
		out = append(out, "")
		out = append(out, bodyIndent+"Total Duration: "+FormatDuration(total, opts.TimeUnit))
	}

	return out
}

// AnnotateFallback renders the single-line report body used when no
// source slice could be recovered: the synthesized expression text with
// the final value attached.
func AnnotateFallback(text string, final interface{}, total time.Duration, failed bool, opts Options) []string {
	if failed {
		return []string{bodyIndent + text}
	}
	return []string{bodyIndent + text + annotation(final, total, opts)}
}

// annotation renders ` #=> [<duration><unit>] <value>`, dropping the
// duration bracket when measuring is disabled.
func annotation(value interface{}, delta time.Duration, opts Options) string {
	if !opts.Measure {
		return " #=> " + FormatValue(value)
	}
	return " #=> [" + FormatDuration(delta, opts.TimeUnit) + "] " + FormatValue(value)
}

// deltaFor converts a record's cumulative elapsed time into the per-step
// delta by nearest-preceding-line subtraction.
func deltaFor(st *CaptureState, line int, rec Record) time.Duration {
	var prev time.Duration
	found := false
	for _, other := range st.Lines() {
		if other >= line {
			break
		}
		prev = st.records[other].Elapsed
		found = true
	}
	if !found {
		return rec.Elapsed
	}
	return rec.Elapsed - prev
}
