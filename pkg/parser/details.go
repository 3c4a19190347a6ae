package parser

import (
	"sort"

	"golang.org/x/tools/cover"

	"github.com/Azure/coverlens/pkg/coverage"
)

// Block is a cover profile block.
type Block struct {
	Range coverage.Range
	Count int64
}

// Blocks is a list of blocks sorted by start.
type Blocks []Block

// MergeProfiles sums the counts of identical blocks of several profiles of
// the same file. Boolean is true when every profile ran in set mode.
func MergeProfiles(profiles ...*cover.Profile) (blocks Blocks, boolean bool) {
	type key struct{ sl, sc, el, ec int }
	counts := map[key]int64{}
	var order []key

	boolean = len(profiles) > 0
	for _, p := range profiles {
		if p.Mode != "set" {
			boolean = false
		}
		for _, b := range p.Blocks {
			k := key{b.StartLine, b.StartCol, b.EndLine, b.EndCol}
			if _, ok := counts[k]; !ok {
				order = append(order, k)
			}
			counts[k] += int64(b.Count)
		}
	}

	blocks = make(Blocks, 0, len(order))
	for _, k := range order {
		blocks = append(blocks, Block{Range: coverage.NewRange(k.sl, k.sc, k.el, k.ec), Count: counts[k]})
	}
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Range.Start.Before(blocks[j].Range.Start)
	})
	return blocks, boolean
}

// covering returns the count of the innermost block that shares text with r
// and starts at or before it, or else of the first block sharing text with
// r. Blocks of function literals nest inside the block of their statement.
func (bs Blocks) covering(r coverage.Range) (int64, bool) {
	best := -1
	for i, b := range bs {
		if !b.Range.Start.Before(r.End) {
			break
		}
		if !b.Range.End.After(r.Start) {
			continue
		}
		if best < 0 || !b.Range.Start.After(r.Start) {
			best = i
		}
	}
	if best < 0 {
		return 0, false
	}
	return bs[best].Count, true
}

// startingIn returns the count of the first block starting inside probe,
// both ends inclusive.
func (bs Blocks) startingIn(probe coverage.Range) (int64, bool) {
	i := sort.Search(len(bs), func(i int) bool {
		return !bs[i].Range.Start.Before(probe.Start)
	})
	if i < len(bs) && !bs[i].Range.Start.After(probe.End) {
		return bs[i].Count, true
	}
	return 0, false
}

// DetailOptions tunes how blocks become details.
type DetailOptions struct {
	// Boolean reports hits as executed flags instead of counts.
	Boolean bool
	// Ignored drops the extents starting on the line.
	Ignored func(line int) bool
}

// Details maps the blocks onto the extents of the file. Extents that no
// block covers were not instrumented and produce no detail.
func (f *File) Details(blocks Blocks, o DetailOptions) []*coverage.Detail {
	hit := func(n int64) coverage.HitCount {
		if o.Boolean {
			return coverage.Executed(n > 0)
		}
		return coverage.Count(n)
	}
	ignored := func(r coverage.Range) bool {
		return o.Ignored != nil && o.Ignored(r.Start.Line)
	}

	var details []*coverage.Detail
	add := func(d *coverage.Detail) {
		d.ID = len(details) + 1
		details = append(details, d)
	}

	for _, fn := range f.Funcs {
		if ignored(fn.Range) {
			continue
		}
		count, ok := blocks.startingIn(coverage.Range{Start: fn.Body.Start, End: fn.Body.End})
		if !ok {
			continue
		}
		add(&coverage.Detail{Kind: coverage.Declaration, Name: fn.Name, Range: fn.Range, Count: hit(count)})
	}

	stmts := make([]*StmtExtent, len(f.Stmts))
	copy(stmts, f.Stmts)
	sort.SliceStable(stmts, func(i, j int) bool {
		return stmts[i].Range.Start.Before(stmts[j].Range.Start)
	})
	for _, s := range stmts {
		if ignored(s.Range) {
			continue
		}
		count, ok := blocks.covering(s.Range)
		if !ok {
			continue
		}
		d := &coverage.Detail{Kind: coverage.Statement, Range: s.Range, Count: hit(count)}
		d.Branches = branchInfos(s.Branches, count, blocks, hit)
		add(d)
	}
	return details
}

func branchInfos(extents []*BranchExtent, header int64, blocks Blocks, hit func(int64) coverage.HitCount) []coverage.BranchInfo {
	if len(extents) == 0 {
		return nil
	}
	counts := make([]int64, len(extents))
	var explicit int64
	for i, b := range extents {
		if b.Implicit() {
			continue
		}
		counts[i], _ = blocks.startingIn(b.Probe)
		explicit += counts[i]
	}

	infos := make([]coverage.BranchInfo, len(extents))
	for i, b := range extents {
		if b.Implicit() {
			counts[i] = max(header-explicit, 0)
		}
		infos[i] = coverage.BranchInfo{Count: hit(counts[i]), Label: b.Label}
		if b.Location != nil {
			loc := *b.Location
			infos[i].Location = &loc
		}
	}
	return infos
}
