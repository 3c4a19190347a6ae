package summary

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mitchellh/colorstring"

	"github.com/Azure/coverlens/pkg/config"
	"github.com/Azure/coverlens/pkg/coverage"
)

const barWidth = 10

// Mode selects how many bars the widget shows.
type Mode int

const (
	// Compact shows one bar with the displayed coverage percent.
	Compact Mode = iota
	// Detailed adds one bar per available category.
	Detailed
)

// Bar is one rendered coverage bar.
type Bar struct {
	Label   string
	Percent float64
	Color   coverage.Color
	// Counter is nil for the combined bar.
	Counter *coverage.Counter
}

// Snapshot is the state of the widget at one point in time.
type Snapshot struct {
	Visible bool
	Bars    []Bar
	Label   string
}

// Widget shows the coverage of the current file as proportional bars.
type Widget struct {
	config config.Source
	mode   Mode
	color  bool

	visible bool
	stats   coverage.Statistics
	testID  string
	tests   int
}

// New creates a hidden widget.
func New(cfg config.Source, mode Mode) *Widget {
	return &Widget{config: cfg, mode: mode}
}

// SetColor enables ANSI colors in Render.
func (w *Widget) SetColor(enabled bool) { w.color = enabled }

// SetCoverage shows the coverage of file, optionally filtered to a test.
func (w *Widget) SetCoverage(file coverage.FileCoverage, testID string) {
	if file == nil {
		w.ClearCoverage()
		return
	}
	w.visible = true
	w.stats = file.Statistics()
	w.testID = testID
	w.tests = len(file.PerTestIDs())
}

// ClearCoverage hides the widget.
func (w *Widget) ClearCoverage() {
	w.visible = false
	w.stats = coverage.Statistics{}
	w.testID = ""
	w.tests = 0
}

func (w *Widget) Visible() bool { return w.visible }

// Bars computes the bars from the current configuration.
func (w *Widget) Bars() []Bar {
	if !w.visible {
		return nil
	}
	opts := w.config.Options()
	th := opts.CoverageBarThresholds

	total := coverage.DisplayPercent(w.stats, opts.DisplayedCoveragePercent, opts.TotalCoverageWeights)
	bars := []Bar{{Label: "Coverage", Percent: total, Color: coverage.ColorFor(total, th)}}
	if w.mode == Compact {
		return bars
	}

	add := func(label string, c *coverage.Counter) {
		if c == nil {
			return
		}
		p := coverage.Percent(*c)
		counter := *c
		bars = append(bars, Bar{Label: label, Percent: p, Color: coverage.ColorFor(p, th), Counter: &counter})
	}
	add("Statement", &w.stats.Statement)
	add("Branch", w.stats.Branch)
	add("Declaration", w.stats.Declaration)
	return bars
}

// Label describes the test filter of the shown coverage.
func (w *Widget) Label() string {
	switch {
	case !w.visible:
		return ""
	case w.testID != "":
		return fmt.Sprintf("Showing coverage for %s", w.testID)
	case w.tests > 0:
		return fmt.Sprintf("%d test(s) ran code in this file", w.tests)
	}
	return ""
}

// Snapshot returns the current state of the widget.
func (w *Widget) Snapshot() Snapshot {
	return Snapshot{Visible: w.visible, Bars: w.Bars(), Label: w.Label()}
}

// Render writes the bars to out. Nothing is written while hidden.
func (w *Widget) Render(out io.Writer) error {
	return w.Snapshot().Render(out, w.color)
}

// Render writes the bars of the snapshot to out.
func (s Snapshot) Render(out io.Writer, color bool) error {
	if !s.Visible {
		return nil
	}
	colorize := colorstring.Colorize{
		Colors:  colorstring.DefaultColors,
		Disable: !color,
		Reset:   true,
	}
	for _, b := range s.Bars {
		line := fmt.Sprintf("%-12s [%s]%s[reset] %7s", b.Label, b.Color, bar(b.Percent), coverage.FormatPercent(b.Percent))
		if b.Counter != nil {
			line += fmt.Sprintf(" (%d/%d)", b.Counter.Covered, b.Counter.Total)
		}
		if _, err := fmt.Fprintln(out, colorize.Color(line)); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	if s.Label != "" {
		if _, err := fmt.Fprintln(out, s.Label); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	return nil
}

func bar(percent float64) string {
	filled := int(math.Round(math.Max(0, math.Min(1, percent)) * barWidth))
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// ColorEnabled reports whether out is a terminal that can show colors.
func ColorEnabled(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
