package render

import (
	"strings"

	"github.com/Azure/coverlens/pkg/decoration"
	"github.com/Azure/coverlens/pkg/editor"
)

// Mark is the gutter state of a line.
type Mark int

const (
	Unmarked Mark = iota
	Hit
	Miss
)

func (m Mark) String() string {
	switch m {
	case Hit:
		return "+"
	case Miss:
		return "-"
	}
	return " "
}

// LineMarks computes the gutter mark of every decorated line. A line showing
// both a hit and a miss is a miss.
func LineMarks(decorations []editor.Decoration) map[int]Mark {
	marks := map[int]Mark{}
	for _, d := range decorations {
		mark := gutterMark(d.Options.LineNumberClassName)
		if mark == Unmarked {
			continue
		}
		last := d.Range.End.Line
		// a range ending at the start of a line does not reach into it
		if last > d.Range.Start.Line && d.Range.End.Column <= 1 {
			last--
		}
		for line := d.Range.Start.Line; line <= last; line++ {
			if mark > marks[line] {
				marks[line] = mark
			}
		}
	}
	return marks
}

// MissedLines returns the lines marked as missed in ascending order.
func MissedLines(marks map[int]Mark, lineCount int) []int {
	var lines []int
	for line := 1; line <= lineCount; line++ {
		if marks[line] == Miss {
			lines = append(lines, line)
		}
	}
	return lines
}

func gutterMark(className string) Mark {
	var mark Mark
	for _, cls := range strings.Fields(className) {
		switch cls {
		case decoration.ClassMiss:
			return Miss
		case decoration.ClassHit:
			mark = Hit
		}
	}
	return mark
}
