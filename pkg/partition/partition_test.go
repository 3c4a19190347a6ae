package partition

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Azure/coverlens/pkg/coverage"
)

type lines []string

func (l lines) ValueInRange(r coverage.Range) string {
	var b strings.Builder
	for line := r.Start.Line; line <= r.End.Line && line <= len(l); line++ {
		text := l[line-1]
		from, to := 0, len(text)
		if line == r.Start.Line {
			from = min(r.Start.Column-1, len(text))
		}
		if line == r.End.Line {
			to = min(r.End.Column-1, len(text))
		}
		if from < to {
			b.WriteString(text[from:to])
		}
		if line != r.End.Line {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func span(from, to int) coverage.Range {
	return coverage.NewRange(1, from, 1, to)
}

func TestPartitionNestedBranch(t *testing.T) {
	assertion := assert.New(t)

	stmt := &coverage.Detail{ID: 1, Kind: coverage.Statement, Range: span(1, 11), Count: coverage.Count(3)}
	branch := &coverage.Detail{ID: 2, Kind: coverage.Branch, Range: span(4, 7), Count: coverage.Count(0)}

	segments := Partition([]*coverage.Detail{branch, stmt})
	require.Len(t, segments, 3)

	assertion.Equal(span(1, 4), segments[0].Range)
	assertion.True(segments[0].Primary)
	assertion.Same(stmt, segments[0].Detail)

	assertion.Equal(span(4, 7), segments[1].Range)
	assertion.True(segments[1].Primary)
	assertion.Same(branch, segments[1].Detail)

	assertion.Equal(span(7, 11), segments[2].Range)
	assertion.False(segments[2].Primary)
	assertion.Same(stmt, segments[2].Detail)
}

func TestPartitionEmptyBranchMarker(t *testing.T) {
	assertion := assert.New(t)

	stmt := &coverage.Detail{ID: 1, Kind: coverage.Statement, Range: span(1, 11), Count: coverage.Count(1),
		Branches: []coverage.BranchInfo{{Count: coverage.Executed(true)}, {Count: coverage.Executed(false)}}}
	taken := &coverage.Detail{ID: 2, Kind: coverage.Branch, Range: span(2, 4), Count: coverage.Executed(true), Parent: stmt}
	untaken := &coverage.Detail{ID: 3, Kind: coverage.Branch, Range: span(6, 6), Count: coverage.Executed(false), Parent: stmt, BranchIndex: 1}

	segments := Partition([]*coverage.Detail{stmt, taken, untaken})
	require.Len(t, segments, 4)

	assertion.Equal(span(1, 2), segments[0].Range)
	assertion.Equal(span(2, 4), segments[1].Range)
	assertion.Equal(Segment{Range: span(6, 6), Primary: true, Detail: untaken}, segments[2])
	assertion.Equal(span(4, 11), segments[3].Range, "the empty marker never splits its statement")
	assertion.False(segments[3].Primary)
	assertion.True(untaken.HasHitSibling())
}

func TestPartitionTieBreak(t *testing.T) {
	t.Run("coarser kind opens first", func(t *testing.T) {
		decl := &coverage.Detail{ID: 1, Kind: coverage.Declaration, Range: span(1, 20)}
		stmt := &coverage.Detail{ID: 2, Kind: coverage.Statement, Range: span(1, 10)}

		segments := Partition([]*coverage.Detail{stmt, decl})
		require.Len(t, segments, 2)
		assert.Same(t, stmt, segments[0].Detail)
		assert.Equal(t, span(1, 10), segments[0].Range)
		assert.Same(t, decl, segments[1].Detail)
		assert.Equal(t, span(10, 20), segments[1].Range)
		assert.False(t, segments[1].Primary, "every split moves the badge off the remainder")
	})

	t.Run("branch at the start of its statement", func(t *testing.T) {
		assertion := assert.New(t)
		stmt := &coverage.Detail{ID: 1, Kind: coverage.Statement, Range: span(1, 11), Count: coverage.Count(3)}
		branch := &coverage.Detail{ID: 2, Kind: coverage.Branch, Range: span(1, 4), Count: coverage.Count(3)}

		segments := Partition([]*coverage.Detail{branch, stmt})
		require.Len(t, segments, 2)
		assertion.Equal(Segment{Range: span(1, 4), Primary: true, Detail: branch}, segments[0])
		assertion.Equal(Segment{Range: span(4, 11), Primary: false, Detail: stmt}, segments[1])
	})

	t.Run("same kind longer first", func(t *testing.T) {
		outer := &coverage.Detail{ID: 1, Kind: coverage.Statement, Range: span(1, 20)}
		inner := &coverage.Detail{ID: 2, Kind: coverage.Statement, Range: span(1, 5)}

		segments := Partition([]*coverage.Detail{inner, outer})
		require.Len(t, segments, 2)
		assert.Same(t, inner, segments[0].Detail)
		assert.Same(t, outer, segments[1].Detail)
		assert.Equal(t, span(5, 20), segments[1].Range)
	})

	t.Run("identical ranges keep the later detail", func(t *testing.T) {
		first := &coverage.Detail{ID: 1, Kind: coverage.Statement, Range: span(1, 5)}
		second := &coverage.Detail{ID: 2, Kind: coverage.Statement, Range: span(1, 5)}

		segments := Partition([]*coverage.Detail{first, second})
		require.Len(t, segments, 1)
		assert.Same(t, second, segments[0].Detail)
	})
}

func TestPartitionEmptyInput(t *testing.T) {
	assert.Empty(t, Partition(nil))
}

func TestPartitionIdempotent(t *testing.T) {
	details := []*coverage.Detail{
		{ID: 1, Kind: coverage.Statement, Range: span(1, 3)},
		{ID: 2, Kind: coverage.Branch, Range: span(3, 8)},
		{ID: 3, Kind: coverage.Declaration, Range: span(10, 12)},
	}

	segments := Partition(details)
	require.Len(t, segments, len(details))
	for i, s := range segments {
		assert.Same(t, details[i], s.Detail)
		assert.Equal(t, details[i].Range, s.Range)
		assert.True(t, s.Primary)
	}

	again := make([]*coverage.Detail, 0, len(segments))
	for _, s := range segments {
		again = append(again, &coverage.Detail{Kind: s.Detail.Kind, Range: s.Range})
	}
	for i, s := range Partition(again) {
		assert.Equal(t, segments[i].Range, s.Range)
	}
}

// laminar generates a properly nested set of details on a single line. A
// nested detail is never of a coarser kind than its parent.
func laminar(r *rand.Rand, lo, hi, depth int, kind coverage.DetailKind, out []*coverage.Detail) []*coverage.Detail {
	pos := lo
	for pos < hi && depth < 4 {
		start := pos + r.Intn(3)
		if start >= hi {
			break
		}
		end := start + r.Intn(hi-start+1)
		d := &coverage.Detail{
			ID:    len(out),
			Kind:  kind + coverage.DetailKind(r.Intn(3-int(kind))),
			Range: span(start, end),
			Count: coverage.Count(int64(r.Intn(3))),
		}
		out = append(out, d)
		if end > start {
			out = laminar(r, start, end, depth+1, d.Kind, out)
		}
		pos = end
		if r.Intn(4) == 0 {
			break
		}
	}
	return out
}

func TestPartitionTiling(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	const width = 60

	for iter := 0; iter < 300; iter++ {
		details := laminar(r, 1, width, 0, coverage.Declaration, nil)
		r.Shuffle(len(details), func(i, j int) { details[i], details[j] = details[j], details[i] })

		var want, got [width + 1]int
		for _, d := range details {
			for c := d.Range.Start.Column; c < d.Range.End.Column; c++ {
				want[c] = 1
			}
		}

		segments := Partition(details)
		for _, s := range segments {
			for c := s.Range.Start.Column; c < s.Range.End.Column; c++ {
				got[c]++
			}
		}

		for c := 1; c <= width; c++ {
			if !assert.Equalf(t, want[c], got[c], "iteration %d column %d", iter, c) {
				return
			}
		}
		assert.Equal(t, segments, Partition(details), "deterministic")
	}
}

func TestExpand(t *testing.T) {
	assertion := assert.New(t)

	loc := span(5, 8)
	stmt := &coverage.Detail{ID: 7, Kind: coverage.Statement, Range: span(1, 12), Count: coverage.Count(2),
		Branches: []coverage.BranchInfo{
			{Count: coverage.Count(2), Location: &loc, Label: "then"},
			{Count: coverage.Count(0)},
		}}
	decl := &coverage.Detail{ID: 3, Kind: coverage.Declaration, Range: span(1, 20)}

	expanded := Expand([]*coverage.Detail{decl, stmt})
	require.Len(t, expanded, 4)
	assertion.Same(decl, expanded[0])
	assertion.Same(stmt, expanded[1])

	then, implicit := expanded[2], expanded[3]
	assertion.Equal(coverage.Branch, then.Kind)
	assertion.Equal(loc, then.Range)
	assertion.Equal("then", then.Name)
	assertion.Same(stmt, then.Parent)
	assertion.Equal(0, then.BranchIndex)
	assertion.Equal(8, then.ID)

	assertion.Equal(coverage.EmptyAt(stmt.Range.End), implicit.Range, "a branch without a location sits at the end of its statement")
	assertion.Equal(1, implicit.BranchIndex)
	assertion.Equal(9, implicit.ID)
}

func TestBuild(t *testing.T) {
	text := lines{"if x > 0 { y++ }"}
	then := span(10, 17)
	stmt := &coverage.Detail{ID: 1, Kind: coverage.Statement, Range: span(1, 17), Count: coverage.Count(4),
		Branches: []coverage.BranchInfo{
			{Count: coverage.Count(4), Location: &then},
			{Count: coverage.Count(0)},
		}}

	segments := Build([]*coverage.Detail{stmt}, text)
	require.Len(t, segments, 3)

	ByPosition(segments)
	assert.Equal(t, "1 of 2 of branches in `if x > 0 { y++ }` were covered.", segments[0].Description)
	assert.Equal(t, "Branch #1 in `if x > 0 { y++ }` was executed 4 time(s).", segments[1].Description)
	assert.Equal(t, "Branch #2 in `if x > 0 { y++ }` was not covered.", segments[2].Description)
	assert.True(t, segments[2].Range.IsEmpty())
}
