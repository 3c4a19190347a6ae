package partition

import (
	"sort"

	"github.com/Azure/coverlens/pkg/coverage"
)

// Segment is a disjoint piece of a document assigned to exactly one detail.
// Primary is false for the trailing pieces of a detail that was split to make
// room for a nested one; only primary segments carry a count badge.
type Segment struct {
	Range       coverage.Range
	Primary     bool
	Detail      *coverage.Detail
	Description string
}

type openEntry struct {
	rng     coverage.Range
	primary bool
	detail  *coverage.Detail
}

// Partition turns possibly nested details into disjoint segments. Coarser
// kinds open first on equal starts so finer details nest inside them. The
// result is in emission order, not position order.
func Partition(details []*coverage.Detail) []Segment {
	sorted := make([]*coverage.Detail, len(details))
	copy(sorted, details)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})

	var stack []*openEntry
	result := make([]Segment, 0, len(sorted))
	pop := func() {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		result = append(result, Segment{Range: top.rng, Primary: top.primary, Detail: top.detail})
	}

	for _, d := range sorted {
		start := d.Range.Start
		for len(stack) > 0 && !stack[len(stack)-1].rng.End.After(start) {
			pop()
		}

		// empty ranges mark untaken branches and never split anything
		if d.Range.IsEmpty() {
			result = append(result, Segment{Range: d.Range, Primary: true, Detail: d})
			continue
		}

		// split the innermost open entry around d; an entry that d swallows
		// entirely is dropped and the next one is split instead
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			head := coverage.Range{Start: top.rng.Start, End: start}
			if !head.IsEmpty() {
				result = append(result, Segment{Range: head, Primary: top.primary, Detail: top.detail})
			}
			top.primary = false
			top.rng.Start = d.Range.End
			if !top.rng.IsEmpty() {
				break
			}
			stack = stack[:len(stack)-1]
		}

		stack = append(stack, &openEntry{rng: d.Range, primary: true, detail: d})
	}

	for len(stack) > 0 {
		pop()
	}
	return result
}

func less(a, b *coverage.Detail) bool {
	if c := a.Range.Start.Compare(b.Range.Start); c != 0 {
		return c < 0
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.Range.End.After(b.Range.End)
}

// Expand appends a Branch detail for every branch of every statement. A
// branch without a location is placed at the end of its statement.
func Expand(details []*coverage.Detail) []*coverage.Detail {
	nextID := 0
	for _, d := range details {
		if d.ID >= nextID {
			nextID = d.ID + 1
		}
	}

	expanded := make([]*coverage.Detail, len(details), len(details)*2)
	copy(expanded, details)
	for _, d := range details {
		if d.Kind != coverage.Statement {
			continue
		}
		for i, b := range d.Branches {
			rng := coverage.EmptyAt(d.Range.End)
			if b.Location != nil {
				rng = *b.Location
			}
			expanded = append(expanded, &coverage.Detail{
				ID:          nextID,
				Kind:        coverage.Branch,
				Name:        b.Label,
				Range:       rng,
				Count:       b.Count,
				Parent:      d,
				BranchIndex: i,
			})
			nextID++
		}
	}
	return expanded
}

// Build expands, partitions and describes the details of one document.
func Build(details []*coverage.Detail, text TextSource) []Segment {
	segments := Partition(Expand(details))
	descriptions := make(map[*coverage.Detail]string, len(segments))
	for i := range segments {
		d := segments[i].Detail
		desc, ok := descriptions[d]
		if !ok {
			desc = Describe(d, text)
			descriptions[d] = desc
		}
		segments[i].Description = desc
	}
	return segments
}

// ByPosition sorts segments by start position, keeping emission order for ties.
func ByPosition(segments []Segment) {
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Range.Start.Before(segments[j].Range.Start)
	})
}
