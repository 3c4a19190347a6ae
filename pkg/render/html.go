package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"path"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/sirupsen/logrus"

	"github.com/Azure/coverlens/pkg/coverage"
	"github.com/Azure/coverlens/pkg/editor"
	"github.com/Azure/coverlens/pkg/summary"
)

const (
	// DefaultStyle is the chroma style used when none is given.
	DefaultStyle = "colorful"
	// defaultLanguage is used for documents whose name matches no lexer.
	defaultLanguage = "go"
	// missHighlightColor background color for uncovered lines.
	missHighlightColor = "bg:#ffcccc"
)

// Page is one decorated document of an HTML rendering.
type Page struct {
	Name     string
	Document *editor.Document
	Summary  summary.Snapshot
}

type pageView struct {
	Name        string
	Bars        []barView
	Label       string
	MissedLines int
	Code        template.HTML
}

type barView struct {
	Label   string
	Percent string
	Color   coverage.Color
	Counter *coverage.Counter
}

// HTMLRenderer renders decorated documents as a standalone HTML page.
// We use https://pygments.org/docs/styles to style the output, and
// https://github.com/alecthomas/chroma to highlight the code.
type HTMLRenderer struct {
	style  *chroma.Style
	logger logrus.FieldLogger
}

// NewHTMLRenderer creates a renderer with the given code style. Unknown
// styles fall back to the chroma default.
func NewHTMLRenderer(codeStyle string, logger logrus.FieldLogger) *HTMLRenderer {
	style := styles.Get(codeStyle)
	if style == nil {
		style = styles.Fallback
	}

	builder := style.Builder().Add(chroma.LineHighlight, missHighlightColor)
	if s, err := builder.Build(); err == nil {
		style = s
	}

	return &HTMLRenderer{
		style:  style,
		logger: logger.WithField("source", "HTMLRenderer"),
	}
}

// Render writes the pages to out.
func (r *HTMLRenderer) Render(out io.Writer, pages ...Page) error {
	views := make([]pageView, 0, len(pages))
	for _, p := range pages {
		view, err := r.page(p)
		if err != nil {
			return fmt.Errorf("render %s: %w", p.Name, err)
		}
		views = append(views, view)
	}

	if err := htmlTemplate.Execute(out, views); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	r.logger.Debugf("rendered %d pages", len(views))
	return nil
}

func (r *HTMLRenderer) page(p Page) (pageView, error) {
	lexer := lexers.Match(path.Base(p.Name))
	if lexer == nil {
		lexer = lexers.Get(defaultLanguage)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}

	iter, err := lexer.Tokenise(nil, p.Document.Text())
	if err != nil {
		return pageView{}, fmt.Errorf("tokenise failed: %w", err)
	}

	missed := MissedLines(LineMarks(p.Document.AllDecorations()), p.Document.LineCount())
	var hlLines [][2]int
	for _, line := range missed {
		hlLines = append(hlLines, [2]int{line, line})
	}

	formatter := html.New(
		html.WithLineNumbers(true),
		html.LineNumbersInTable(true),
		html.WithLinkableLineNumbers(true, ""),
		html.HighlightLines(hlLines),
	)

	var buf bytes.Buffer
	if err := formatter.Format(&buf, r.style, iter); err != nil {
		return pageView{}, fmt.Errorf("format code: %w", err)
	}

	view := pageView{
		Name:        p.Name,
		Label:       p.Summary.Label,
		MissedLines: len(missed),
		Code:        template.HTML(buf.String()),
	}
	if p.Summary.Visible {
		for _, b := range p.Summary.Bars {
			view.Bars = append(view.Bars, barView{
				Label:   b.Label,
				Percent: coverage.FormatPercent(b.Percent),
				Color:   b.Color,
				Counter: b.Counter,
			})
		}
	}
	r.logger.Debugf("%s: %d missed lines", p.Name, len(missed))
	return view, nil
}

// normalizeLines pluralizes the noun if number is greater than one.
func normalizeLines(lines int) string {
	if lines == 1 {
		return "1 line"
	}
	return fmt.Sprintf("%d lines", lines)
}

var htmlTemplate = template.Must(
	template.New("coverlens").
		Funcs(template.FuncMap{"NormalizeLines": normalizeLines}).
		Parse(htmlPage),
)

const htmlPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>coverlens</title>
<style>
body { font-family: sans-serif; margin: 2em; }
h2 { font-family: monospace; }
.bars td { padding: 0 0.6em; }
.red { color: #c62828; }
.yellow { color: #a68000; }
.green { color: #2e7d32; }
</style>
</head>
<body>
{{- range . }}
<h2>{{ .Name }}</h2>
{{- if .Bars }}
<table class="bars">
{{- range .Bars }}
<tr><td>{{ .Label }}</td><td class="{{ .Color }}">{{ .Percent }}</td>{{ if .Counter }}<td>{{ .Counter.Covered }}/{{ .Counter.Total }}</td>{{ end }}</tr>
{{- end }}
</table>
{{- end }}
{{- if .Label }}<p>{{ .Label }}</p>{{ end }}
<p>{{ NormalizeLines .MissedLines }} missed</p>
{{ .Code }}
{{- end }}
</body>
</html>
`
