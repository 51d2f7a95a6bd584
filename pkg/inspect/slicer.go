package inspect

import (
	"context"
	"strings"

	"github.com/viant/afs"

	"github.com/pipelens/pipelens/pkg/types"
)

// pipeMarker is the literal two-character sequence used to chain pipeline
// steps in source text.
const pipeMarker = "|>"

// bodyIndent is the fixed indentation every report body line gets after
// the common leading whitespace of the slice has been stripped.
const bodyIndent = "  "

// SlicedLine pairs a line of recovered source text with the absolute
// 1-based line number it came from.
type SlicedLine struct {
	Text string
	Line int
}

// ExtractSlice recovers the literal source text of the pipeline ending at
// the inspect call on callLine of file. It returns nil whenever the text
// cannot be recovered; that is a normal, expected outcome (interactive
// input, single-line expressions, a call written as a bare function call)
// and the caller falls back to a synthesized rendering of the tree.
//
// The line arithmetic below is deliberately heuristic: it mirrors how
// pipelines are laid out in practice (one step per line, each continuation
// line starting with |>). Alternate correlation strategies can replace
// this function without touching the rewriter or the correlator.
func ExtractSlice(ctx context.Context, fs afs.Service, file string, callLine int, tree *types.Node) []SlicedLine {
	if fs == nil {
		fs = afs.New()
	}

	// Guard 1: the call site must be backed by a real, existing file.
	if file == "" {
		return nil
	}
	if ok, _ := fs.Exists(ctx, file); !ok {
		return nil
	}

	// Guard 2: a true pipeline spans multiple lines. A single-line
	// expression has no preceding steps to recover.
	min, max, ok := LineRange(tree)
	if !ok || min >= max {
		return nil
	}

	// Guard 3: the pipeline must appear textually before the call.
	if max > callLine {
		return nil
	}

	data, err := fs.DownloadWithURL(ctx, file)
	if err != nil {
		return nil
	}
	lines := strings.Split(string(data), "\n")
	if callLine < 1 || callLine > len(lines) {
		return nil
	}

	// Guard 4: the call must be written as the tail of a pipeline, not as
	// a bare function call.
	if !strings.HasPrefix(strings.TrimSpace(lines[callLine-1]), pipeMarker) {
		return nil
	}

	// The closing marker of a multi-line anonymous argument carries no
	// line metadata, leaving max short of the text the pipeline actually
	// occupies. Extend it up to the line above the call.
	if max < callLine-1 {
		max = callLine - 1
	}
	// With nested calls the inspect call itself can sit on the tree's max
	// line; exclude that final line from the slice.
	if max == callLine {
		max = callLine - 1
	}

	// Slice start: include the min line itself, plus one line above it
	// when the min line already opens with the continuation marker, since
	// the pipeline's initial value then lives on that earlier line.
	start := min - 1 // 0-based index of the min line
	if strings.HasPrefix(strings.TrimSpace(lines[start]), pipeMarker) && start > 0 {
		start--
	}
	if start >= max {
		return nil
	}

	sliced := lines[start:max]

	// Strip the common leading whitespace and re-indent uniformly.
	indent := commonIndent(sliced)
	out := make([]SlicedLine, len(sliced))
	for i, text := range sliced {
		text = strings.TrimRight(strings.TrimPrefix(text, indent), " \t\r")
		out[i] = SlicedLine{
			Text: bodyIndent + text,
			Line: start + 1 + i,
		}
	}
	return out
}

// commonIndent returns the longest leading whitespace shared by all
// non-blank lines.
func commonIndent(lines []string) string {
	indent := ""
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lead := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first {
			indent = lead
			first = false
			continue
		}
		indent = sharedPrefix(indent, lead)
		if indent == "" {
			break
		}
	}
	return indent
}

func sharedPrefix(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}
