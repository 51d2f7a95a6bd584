package inspect

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Binding is one name/value pair visible at the inspect call site,
// printed when the show_vars option is on.
type Binding struct {
	Name  string
	Value interface{}
}

// Plan is the prepared instrumentation for one inspect() call. It is
// built entirely at transform time (options validated, source slice
// recovered, header path resolved), so evaluating the call only has to
// run the chain, correlate the captures and render.
type Plan struct {
	// Options for this invocation, already validated.
	Options Options
	// File is the backing source file, "" for interactive input.
	File string
	// RelPath is the file path relative to the project root, used in the
	// report header.
	RelPath string
	// CallLine is the 1-based line of the inspect call itself.
	CallLine int
	// Slice is the recovered literal source text; nil when recovery
	// failed and Fallback is used instead.
	Slice []SlicedLine
	// Fallback is the synthesized rendering of the inspected tree.
	Fallback string
}

// Render assembles the full report: header, optional variable dump, the
// annotated body from the correlator, and the total-duration footer.
// When colored is false all styling is skipped (tests, non-TTY output).
func (p *Plan) Render(st *CaptureState, final interface{}, total time.Duration, vars []Binding, failed, colored bool) string {
	var b strings.Builder

	if p.Options.Label != "" {
		b.WriteString(p.Options.Label)
		b.WriteString("\n\n")
	}

	b.WriteString(p.header(colored))
	b.WriteByte('\n')

	for _, v := range vars {
		b.WriteString(bodyIndent)
		b.WriteString(v.Name)
		b.WriteString(" = ")
		b.WriteString(FormatValue(v.Value))
		b.WriteByte('\n')
	}

	b.WriteByte('\n')

	var body []string
	if p.Slice != nil {
		body = Annotate(p.Slice, st, final, total, failed, p.Options)
	} else {
		body = AnnotateFallback(p.Fallback, final, total, failed, p.Options)
	}
	for _, line := range body {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	return b.String()
}

// header renders `<file-relative-to-project-root>:<line>`, styled with
// the configured colors when colored output is on.
func (p *Plan) header(colored bool) string {
	path := p.RelPath
	if path == "" {
		path = "(nofile)"
	}
	text := path + ":" + strconv.Itoa(p.CallLine)

	if !colored {
		return text
	}

	style := lipgloss.NewStyle()
	if code, ok := supportedColors[p.Options.Color]; ok {
		style = style.Foreground(lipgloss.Color(code))
	}
	if code, ok := supportedColors[p.Options.BgColor]; ok {
		style = style.Background(lipgloss.Color(code))
	}
	return style.Render(text)
}
