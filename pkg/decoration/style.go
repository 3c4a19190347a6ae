package decoration

import (
	"fmt"
	"strings"

	"github.com/Azure/coverlens/pkg/coverage"
	"github.com/Azure/coverlens/pkg/partition"
)

const (
	ClassHit           = "coverage-deco-hit"
	ClassMiss          = "coverage-deco-miss"
	ClassGutter        = "coverage-deco-gutter"
	ClassInline        = "coverage-deco-inline"
	ClassHovered       = "coverage-deco-hovered"
	ClassCount         = "coverage-deco-inline-count"
	ClassMissIndicator = "coverage-deco-branch-miss-indicator"

	descriptionGutter = "coverage-gutter"
	descriptionInline = "coverage-inline"

	missIndicatorChars = 4
	maxBadgeCount      = 99
)

// Mode selects whether inline styling is always shown or only under the pointer.
type Mode int

const (
	AlwaysOn Mode = iota
	HoverOnly
)

func (m Mode) String() string {
	if m == AlwaysOn {
		return "always-on"
	}
	return "hover-only"
}

// style is the pair of variants computed for one segment.
type style struct {
	gutter Options
	inline Options
	miss   bool
}

// styleFor computes the decoration style of a segment. Declarations are
// only used to order nesting and get no decoration.
func styleFor(seg partition.Segment) (style, bool) {
	d := seg.Detail
	switch d.Kind {
	case coverage.Statement:
		return statementStyle(seg), true
	case coverage.Branch:
		return branchStyle(seg), true
	}
	return style{}, false
}

func statementStyle(seg partition.Segment) style {
	count := seg.Detail.Count
	cls := hitClass(count)
	gutter := Options{
		Description:         descriptionInline,
		LineNumberClassName: ClassGutter + " " + cls,
	}
	inline := gutter
	inline.ClassName = ClassInline + " " + cls
	inline.HoverMessage = seg.Description
	if seg.Primary && count.IsNumeric() {
		inline.Before = countBadge(count.Value)
	}
	return style{gutter: gutter, inline: inline, miss: !count.Hit()}
}

func branchStyle(seg partition.Segment) style {
	d := seg.Detail
	count := d.Count
	if d.Parent != nil && d.BranchIndex >= 0 && d.BranchIndex < len(d.Parent.Branches) {
		count = d.Parent.Branches[d.BranchIndex].Count
	}
	cls := hitClass(count)

	// the indicator is pointless when the whole condition never ran
	showMissIndicator := !count.Hit() && seg.Range.IsEmpty() && d.HasHitSibling()

	gutter := Options{
		Description:         descriptionGutter,
		ShowIfCollapsed:     showMissIndicator,
		LineNumberClassName: ClassGutter + " " + cls,
	}
	inline := gutter
	inline.HoverMessage = seg.Description
	if showMissIndicator {
		inline.After = &InjectedText{
			Content:   strings.Repeat("\u00a0", missIndicatorChars),
			ClassName: ClassMissIndicator,
		}
	} else {
		inline.ClassName = ClassInline + " " + cls
		if seg.Primary && count.IsNumeric() {
			inline.Before = countBadge(count.Value)
		}
	}
	return style{gutter: gutter, inline: inline, miss: !count.Hit()}
}

func hitClass(count coverage.HitCount) string {
	if count.Hit() {
		return ClassHit
	}
	return ClassMiss
}

// countBadge returns the "Nx" badge of a count, nil for zero.
func countBadge(n int64) *InjectedText {
	if n == 0 {
		return nil
	}
	content := fmt.Sprintf("%dx", n)
	if n > maxBadgeCount {
		content = fmt.Sprintf("%d+x", maxBadgeCount)
	}
	return &InjectedText{Content: content, ClassName: ClassCount}
}

func hovered(opts Options) Options {
	if opts.ClassName == "" {
		opts.ClassName = ClassHovered
	} else {
		opts.ClassName += " " + ClassHovered
	}
	return opts
}
