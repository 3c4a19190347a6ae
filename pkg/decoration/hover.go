package decoration

import (
	"fmt"
	"sync"

	"github.com/Azure/coverlens/pkg/coverage"
)

// HoverState is the state of the hover controller.
type HoverState int

const (
	Idle HoverState = iota
	GutterHovered
	InlineHovered
)

func (s HoverState) String() string {
	switch s {
	case Idle:
		return "idle"
	case GutterHovered:
		return "gutter-hovered"
	case InlineHovered:
		return "inline-hovered"
	}
	return fmt.Sprintf("HoverState(%d)", int(s))
}

// Hover restyles the decorations under the pointer and restores them when
// the pointer moves away. Every entered state is left through a restore
// function that runs exactly once.
type Hover struct {
	m *Manager

	state   HoverState
	line    int
	id      ID
	restore func()
}

// State returns the current state, the hovered line for GutterHovered and
// the hovered decoration for InlineHovered.
func (h *Hover) State() (HoverState, int, ID) {
	return h.state, h.line, h.id
}

// EnterGutter shows the inline styling of all decorations on the line. It is
// a no-op while inline styling is always shown.
func (h *Hover) EnterGutter(line int) {
	if h.m.mode != HoverOnly {
		h.Leave()
		return
	}
	if h.state == GutterHovered && h.line == line {
		return
	}
	h.Leave()

	var targets []*Live
	for _, l := range h.m.live {
		r, ok := h.m.host.DecorationRange(l.ID)
		if ok && r.OnLine(line) {
			targets = append(targets, l)
		}
	}
	if len(targets) == 0 {
		return
	}

	h.enter(targets, func(l *Live) Options { return l.inline })
	h.state = GutterHovered
	h.line = line
}

// EnterInline shows the inline styling of the decoration at pos. Only
// reachable in HoverOnly mode.
func (h *Hover) EnterInline(pos coverage.Position) {
	if h.m.mode != HoverOnly {
		h.Leave()
		return
	}

	var target *Live
	for _, id := range h.m.host.DecorationsInRange(coverage.EmptyAt(pos)) {
		if l, ok := h.m.byID[id]; ok {
			target = l
			break
		}
	}
	if target != nil && h.state == InlineHovered && h.id == target.ID {
		return
	}
	h.Leave()
	if target == nil {
		return
	}

	h.enter([]*Live{target}, func(l *Live) Options { return hovered(l.inline) })
	h.state = InlineHovered
	h.id = target.ID
}

// Leave restores the styling changed by the current state.
func (h *Hover) Leave() {
	if h.restore != nil {
		restore := h.restore
		h.restore = nil
		restore()
	}
	h.state = Idle
	h.line = 0
	h.id = ""
}

func (h *Hover) enter(targets []*Live, styleOf func(l *Live) Options) {
	mode := h.m.mode
	snapshot := make(map[ID]Options, len(targets))
	for _, l := range targets {
		snapshot[l.ID] = l.Options(mode)
	}

	h.m.host.ChangeDecorations(func(a Accessor) {
		for _, l := range targets {
			a.ChangeOptions(l.ID, styleOf(l))
		}
	})

	var once sync.Once
	h.restore = func() {
		once.Do(func() {
			h.m.host.ChangeDecorations(func(a Accessor) {
				for _, l := range targets {
					a.ChangeOptions(l.ID, snapshot[l.ID])
				}
			})
		})
	}
}
