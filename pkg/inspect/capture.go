package inspect

import (
	"sort"
	"time"
)

// Record is a captured step value together with the cumulative wall-clock
// time elapsed between the start of the instrumented expression and the
// moment the step finished.
type Record struct {
	Value   interface{}
	Elapsed time.Duration
}

// CaptureState is the side-channel populated by capture nodes while an
// instrumented expression executes. It is created fresh for every
// instrumentation invocation, read once by the correlator, and discarded
// after the report is printed; it is never shared across invocations or
// goroutines.
type CaptureState struct {
	start   time.Time
	records map[int]Record
}

// NewCaptureState creates an empty capture state and starts its clock.
func NewCaptureState() *CaptureState {
	return &CaptureState{
		start:   time.Now(),
		records: make(map[int]Record),
	}
}

// Record stores the value produced by the pipeline step keyed by line,
// stamped with the cumulative elapsed time since the state was created.
func (s *CaptureState) Record(line int, value interface{}) {
	s.records[line] = Record{
		Value:   value,
		Elapsed: time.Since(s.start),
	}
}

// Lookup returns the captured record for a source line.
func (s *CaptureState) Lookup(line int) (Record, bool) {
	r, ok := s.records[line]
	return r, ok
}

// Len returns the number of captured records.
func (s *CaptureState) Len() int {
	return len(s.records)
}

// SinceStart returns the wall-clock time elapsed since the state was
// created. The inspect evaluator reads it right after the instrumented
// expression finishes to obtain the total duration.
func (s *CaptureState) SinceStart() time.Duration {
	return time.Since(s.start)
}

// Lines returns the captured line numbers in ascending order.
func (s *CaptureState) Lines() []int {
	lines := make([]int, 0, len(s.records))
	for line := range s.records {
		lines = append(lines, line)
	}
	sort.Ints(lines)
	return lines
}

// MaxElapsed returns the largest cumulative elapsed value among the
// captured records, or zero when nothing was captured.
func (s *CaptureState) MaxElapsed() time.Duration {
	var max time.Duration
	for _, r := range s.records {
		if r.Elapsed > max {
			max = r.Elapsed
		}
	}
	return max
}
