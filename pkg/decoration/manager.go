package decoration

import (
	"github.com/sirupsen/logrus"

	"github.com/Azure/coverlens/pkg/coverage"
	"github.com/Azure/coverlens/pkg/partition"
)

// Live is a decoration owned by the manager. It lives for exactly one
// apply cycle.
type Live struct {
	ID      ID
	Segment partition.Segment
	// Miss is true when the decoration carries a miss gutter marker.
	Miss bool

	gutter Options
	inline Options
}

// Options returns the resting style of the decoration under the mode.
func (l *Live) Options(mode Mode) Options {
	if mode == AlwaysOn {
		return l.inline
	}
	return l.gutter
}

// Manager owns the coverage decorations of one document and replaces them
// atomically on every apply.
type Manager struct {
	host   Host
	logger logrus.FieldLogger
	mode   Mode

	live  []*Live
	byID  map[ID]*Live
	hover *Hover
}

// NewManager creates a manager for the decorations of host.
func NewManager(host Host, logger logrus.FieldLogger) *Manager {
	m := &Manager{
		host:   host,
		logger: logger.WithField("source", "DecorationManager"),
		byID:   map[ID]*Live{},
	}
	m.hover = &Hover{m: m}
	return m
}

// Host returns the document the manager decorates.
func (m *Manager) Host() Host { return m.host }

// Hover returns the hover controller of the managed decorations.
func (m *Manager) Hover() *Hover { return m.hover }

// Navigation returns a view over the managed miss decorations.
func (m *Manager) Navigation() Navigation { return Navigation{m: m} }

// Mode returns the current presentation mode.
func (m *Manager) Mode() Mode { return m.mode }

// Decorations returns the live decorations in creation order.
func (m *Manager) Decorations() []*Live {
	return m.live
}

// Lookup returns the live decoration with the id.
func (m *Manager) Lookup(id ID) (*Live, bool) {
	l, ok := m.byID[id]
	return l, ok
}

// Apply replaces all decorations with ones built from segments, in a single
// host transaction.
func (m *Manager) Apply(segments []partition.Segment, mode Mode) {
	m.hover.Leave()
	m.mode = mode

	previous := m.live
	live := make([]*Live, 0, len(segments))
	byID := make(map[ID]*Live, len(segments))

	m.host.ChangeDecorations(func(a Accessor) {
		for _, l := range previous {
			a.Remove(l.ID)
		}
		for _, seg := range segments {
			st, ok := styleFor(seg)
			if !ok {
				continue
			}
			l := &Live{Segment: seg, Miss: st.miss, gutter: st.gutter, inline: st.inline}
			l.ID = a.Add(seg.Range, l.Options(mode))
			live = append(live, l)
			byID[l.ID] = l
		}
	})

	m.live = live
	m.byID = byID
	m.logger.Debugf("applied %d decorations in %s mode", len(live), mode)
}

// Clear removes every owned decoration. Clearing an empty set does not touch
// the host.
func (m *Manager) Clear() {
	m.hover.Leave()
	if len(m.live) == 0 {
		return
	}
	previous := m.live
	m.host.ChangeDecorations(func(a Accessor) {
		for _, l := range previous {
			a.Remove(l.ID)
		}
	})
	m.live = nil
	m.byID = map[ID]*Live{}
	m.logger.Debugf("cleared %d decorations", len(previous))
}

// SetMode switches presentation of the existing decorations.
func (m *Manager) SetMode(mode Mode) {
	m.hover.Leave()
	if mode == m.mode {
		return
	}
	m.mode = mode
	m.restyle(func(l *Live) Options { return l.Options(mode) })
}

func (m *Manager) restyle(styleOf func(l *Live) Options) {
	if len(m.live) == 0 {
		return
	}
	m.host.ChangeDecorations(func(a Accessor) {
		for _, l := range m.live {
			a.ChangeOptions(l.ID, styleOf(l))
		}
	})
}

// WriteBack stores the current host ranges of the decorations in the details
// they were built from. A detail split into several segments receives the
// span of all of them.
func (m *Manager) WriteBack() {
	spans := map[*coverage.Detail]coverage.Range{}
	var order []*coverage.Detail
	for _, l := range m.live {
		r, ok := m.host.DecorationRange(l.ID)
		if !ok {
			continue
		}
		d := l.Segment.Detail
		current, seen := spans[d]
		if !seen {
			spans[d] = r
			order = append(order, d)
			continue
		}
		if r.Start.Before(current.Start) {
			current.Start = r.Start
		}
		if r.End.After(current.End) {
			current.End = r.End
		}
		spans[d] = current
	}

	for _, d := range order {
		r := spans[d]
		d.Range = r
		if d.Kind == coverage.Branch && d.Parent != nil && d.BranchIndex >= 0 && d.BranchIndex < len(d.Parent.Branches) {
			if b := &d.Parent.Branches[d.BranchIndex]; b.Location != nil {
				loc := r
				b.Location = &loc
			}
		}
	}
	m.logger.Debugf("wrote back ranges of %d details", len(order))
}
