package render

import (
	"fmt"
	"io"
	"sort"

	"github.com/mitchellh/colorstring"

	"github.com/Azure/coverlens/pkg/editor"
)

// TextOptions tunes the terminal rendering.
type TextOptions struct {
	// Color paints the gutter markers with ANSI colors.
	Color bool
	// Injected renders the text injected before and after decorations, such
	// as count badges.
	Injected bool
}

type injection struct {
	column int
	order  int
	text   string
}

// Text writes the document with a gutter of line numbers and hit/miss
// markers.
func Text(out io.Writer, doc *editor.Document, o TextOptions) error {
	decorations := doc.AllDecorations()
	marks := LineMarks(decorations)

	injections := map[int][]injection{}
	if o.Injected {
		for i, d := range decorations {
			if b := d.Options.Before; b != nil && b.Content != "" {
				injections[d.Range.Start.Line] = append(injections[d.Range.Start.Line],
					injection{column: d.Range.Start.Column, order: 2 * i, text: "⟨" + b.Content + "⟩"})
			}
			if a := d.Options.After; a != nil && a.Content != "" {
				injections[d.Range.End.Line] = append(injections[d.Range.End.Line],
					injection{column: d.Range.End.Column, order: 2*i + 1, text: "⟨" + a.Content + "⟩"})
			}
		}
	}

	colorize := colorstring.Colorize{
		Colors:  colorstring.DefaultColors,
		Disable: !o.Color,
		Reset:   true,
	}
	width := len(fmt.Sprint(doc.LineCount()))
	for line := 1; line <= doc.LineCount(); line++ {
		gutter := fmt.Sprintf("%*d %s", width, line, marks[line])
		switch marks[line] {
		case Hit:
			gutter = colorize.Color("[green]" + gutter)
		case Miss:
			gutter = colorize.Color("[red]" + gutter)
		}
		if _, err := fmt.Fprintf(out, "%s │ %s\n", gutter, inject(doc.Line(line), injections[line])); err != nil {
			return fmt.Errorf("write line %d: %w", line, err)
		}
	}
	return nil
}

// inject inserts the injected texts into a line. Columns past the end of the
// line are clamped.
func inject(text string, injections []injection) string {
	if len(injections) == 0 {
		return text
	}
	sort.SliceStable(injections, func(i, j int) bool {
		if injections[i].column != injections[j].column {
			return injections[i].column < injections[j].column
		}
		return injections[i].order < injections[j].order
	})

	var result string
	last := 0
	for _, in := range injections {
		at := min(max(in.column-1, last), len(text))
		result += text[last:at] + in.text
		last = at
	}
	return result + text[last:]
}
