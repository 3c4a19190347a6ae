package decoration

import (
	"sort"
)

// Navigation answers nearest-miss queries over the live decorations. It
// keeps no state, so every call reflects the latest apply.
type Navigation struct {
	m *Manager
}

// MissLines returns the distinct, ascending start lines of the non-empty
// miss decorations.
func (n Navigation) MissLines() []int {
	seen := map[int]bool{}
	var lines []int
	for _, l := range n.m.live {
		if !l.Miss {
			continue
		}
		r, ok := n.m.host.DecorationRange(l.ID)
		if !ok || r.IsEmpty() {
			continue
		}
		if !seen[r.Start.Line] {
			seen[r.Start.Line] = true
			lines = append(lines, r.Start.Line)
		}
	}
	sort.Ints(lines)
	return lines
}

// Next returns the first miss line after fromLine, wrapping to the first one.
func (n Navigation) Next(fromLine int) (int, bool) {
	return NextLine(n.MissLines(), fromLine)
}

// Previous returns the last miss line before fromLine, wrapping to the last one.
func (n Navigation) Previous(fromLine int) (int, bool) {
	return PreviousLine(n.MissLines(), fromLine)
}

// NextLine returns the smallest line greater than from, or the smallest line
// overall. lines must be sorted.
func NextLine(lines []int, from int) (int, bool) {
	if len(lines) == 0 {
		return 0, false
	}
	i := sort.SearchInts(lines, from+1)
	if i == len(lines) {
		return lines[0], true
	}
	return lines[i], true
}

// PreviousLine returns the largest line less than from, or the largest line
// overall. lines must be sorted.
func PreviousLine(lines []int, from int) (int, bool) {
	if len(lines) == 0 {
		return 0, false
	}
	i := sort.SearchInts(lines, from)
	if i == 0 {
		return lines[len(lines)-1], true
	}
	return lines[i-1], true
}
