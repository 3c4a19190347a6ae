package coverage

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoCoverage is returned when a document has no coverage in the selected report.
	ErrNoCoverage = errors.New("no coverage available")
	// ErrUnknownTest is returned when per-test details are requested for a test that did not run the file.
	ErrUnknownTest = errors.New("unknown test")
)

// MaxColumn is used to extend a position-only location to the end of its line.
const MaxColumn = 0x7FFFFFFF

// Position is a 1-based line and column in a document.
type Position struct {
	Line   int
	Column int
}

// Compare returns -1, 0 or 1 when p is before, equal to or after o.
func (p Position) Compare(o Position) int {
	switch {
	case p.Line < o.Line:
		return -1
	case p.Line > o.Line:
		return 1
	case p.Column < o.Column:
		return -1
	case p.Column > o.Column:
		return 1
	}
	return 0
}

func (p Position) Before(o Position) bool { return p.Compare(o) < 0 }

func (p Position) After(o Position) bool { return p.Compare(o) > 0 }

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Range is a half-open span [Start, End) of a document.
type Range struct {
	Start Position
	End   Position
}

// NewRange creates a range from line and column numbers.
func NewRange(startLine, startCol, endLine, endCol int) Range {
	return Range{
		Start: Position{Line: startLine, Column: startCol},
		End:   Position{Line: endLine, Column: endCol},
	}
}

// EmptyAt returns the empty range located at p.
func EmptyAt(p Position) Range {
	return Range{Start: p, End: p}
}

// LineRange extends a position to the end of its line.
func LineRange(p Position) Range {
	return Range{Start: p, End: Position{Line: p.Line, Column: MaxColumn}}
}

// IsEmpty reports whether the range covers no text. Degenerate ranges
// whose end precedes their start are empty too.
func (r Range) IsEmpty() bool {
	return !r.Start.Before(r.End)
}

// Contains reports whether p is inside [Start, End).
func (r Range) Contains(p Position) bool {
	return !p.Before(r.Start) && p.Before(r.End)
}

// ContainsRange reports whether o lies completely inside r.
func (r Range) ContainsRange(o Range) bool {
	return !o.Start.Before(r.Start) && !o.End.After(r.End)
}

// Intersects reports whether the two non-empty ranges share any text.
func (r Range) Intersects(o Range) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// OnLine reports whether the range touches the given line.
func (r Range) OnLine(line int) bool {
	return r.Start.Line <= line && line <= r.End.Line
}

func (r Range) String() string {
	return fmt.Sprintf("[%s,%s)", r.Start, r.End)
}

// DetailKind is the kind of a coverage detail. The order of the constants is
// the display priority: coarser kinds open first and finer kinds nest inside.
type DetailKind int

const (
	Declaration DetailKind = iota
	Statement
	Branch
)

func (k DetailKind) String() string {
	switch k {
	case Declaration:
		return "declaration"
	case Statement:
		return "statement"
	case Branch:
		return "branch"
	default:
		return fmt.Sprintf("DetailKind(%d)", int(k))
	}
}

// ParseDetailKind parses the textual form produced by DetailKind.String.
func ParseDetailKind(s string) (DetailKind, error) {
	switch s {
	case "declaration":
		return Declaration, nil
	case "statement":
		return Statement, nil
	case "branch":
		return Branch, nil
	}
	return 0, fmt.Errorf("unknown detail kind %q", s)
}

// HitCount is either an execution count or a boolean "was executed" flag.
type HitCount struct {
	Value   int64
	Boolean bool
}

// Count returns a numeric hit count.
func Count(n int64) HitCount { return HitCount{Value: n} }

// Executed returns a boolean hit count.
func Executed(hit bool) HitCount {
	if hit {
		return HitCount{Value: 1, Boolean: true}
	}
	return HitCount{Boolean: true}
}

func (h HitCount) Hit() bool { return h.Value > 0 }

// IsNumeric reports whether the count carries an execution count.
func (h HitCount) IsNumeric() bool { return !h.Boolean }

// BranchInfo is one branch of a statement.
type BranchInfo struct {
	Count HitCount
	// Location of the branch, nil when the branch has no distinguishable source span.
	Location *Range
	Label    string
}

// Detail is one reported fact about a source range.
type Detail struct {
	ID    int
	Kind  DetailKind
	Name  string
	Range Range
	Count HitCount

	// Branches of a statement detail.
	Branches []BranchInfo

	// Parent and BranchIndex are set on branch details and point back to the
	// statement and the entry in its Branches.
	Parent      *Detail
	BranchIndex int
}

// HasHitSibling reports whether any branch of the parent statement was executed.
func (d *Detail) HasHitSibling() bool {
	if d.Parent == nil {
		return false
	}
	for _, b := range d.Parent.Branches {
		if b.Count.Hit() {
			return true
		}
	}
	return false
}

// FileCoverage is the coverage of a single document in a report.
type FileCoverage interface {
	URI() string
	Statistics() Statistics
	// Details returns the coverage details of the file. Each call yields a
	// fresh sequence.
	Details(ctx context.Context) ([]*Detail, error)
	// DetailsForTest returns the details recorded by a single test.
	DetailsForTest(ctx context.Context, testID string) ([]*Detail, error)
	// PerTestIDs lists the tests that ran code in this file.
	PerTestIDs() []string
}

// Report is a coverage report covering many documents.
type Report interface {
	// GetURI returns the coverage for the document, or nil.
	GetURI(uri string) FileCoverage
}
