package editor

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Azure/coverlens/pkg/coverage"
	"github.com/Azure/coverlens/pkg/decoration"
)

// Decoration is a snapshot of one decoration of a document.
type Decoration struct {
	ID      decoration.ID
	Range   coverage.Range
	Options decoration.Options
}

type entry struct {
	rng  coverage.Range
	opts decoration.Options
}

// Document is an in-memory text buffer carrying decorations. Decoration
// ranges slide with inserted text.
type Document struct {
	mu sync.RWMutex

	uri   string
	lines []string

	next         int
	order        []decoration.ID
	decorations  map[decoration.ID]*entry
	transactions int

	listeners map[int]func()
	listenID  int
}

var _ decoration.Host = (*Document)(nil)

// NewDocument creates a document with the given content.
func NewDocument(uri, text string) *Document {
	return &Document{
		uri:         uri,
		lines:       strings.Split(text, "\n"),
		decorations: map[decoration.ID]*entry{},
		listeners:   map[int]func(){},
	}
}

func (d *Document) URI() string { return d.uri }

// Text returns the content of the document.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return strings.Join(d.lines, "\n")
}

// LineCount returns the number of lines.
func (d *Document) LineCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.lines)
}

// Line returns the 1-based line n without its line break.
func (d *Document) Line(n int) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if n < 1 || n > len(d.lines) {
		return ""
	}
	return d.lines[n-1]
}

// ValueInRange returns the text inside r. Columns past the end of a line are
// clamped.
func (d *Document) ValueInRange(r coverage.Range) string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var b strings.Builder
	for line := max(r.Start.Line, 1); line <= r.End.Line && line <= len(d.lines); line++ {
		text := d.lines[line-1]
		from, to := 0, len(text)
		if line == r.Start.Line {
			from = clamp(r.Start.Column-1, 0, len(text))
		}
		if line == r.End.Line {
			to = clamp(r.End.Column-1, 0, len(text))
		}
		if from < to {
			b.WriteString(text[from:to])
		}
		if line != r.End.Line {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// ChangeDecorations runs fn as one transaction under the document lock.
func (d *Document) ChangeDecorations(fn func(decoration.Accessor)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.transactions++
	fn(accessor{d})
}

type accessor struct {
	d *Document
}

func (a accessor) Add(r coverage.Range, opts decoration.Options) decoration.ID {
	a.d.next++
	id := decoration.ID(fmt.Sprintf("cov-%d", a.d.next))
	a.d.decorations[id] = &entry{rng: r, opts: opts}
	a.d.order = append(a.d.order, id)
	return id
}

func (a accessor) ChangeOptions(id decoration.ID, opts decoration.Options) {
	if e, ok := a.d.decorations[id]; ok {
		e.opts = opts
	}
}

func (a accessor) Remove(id decoration.ID) {
	if _, ok := a.d.decorations[id]; !ok {
		return
	}
	delete(a.d.decorations, id)
	for i, o := range a.d.order {
		if o == id {
			a.d.order = append(a.d.order[:i], a.d.order[i+1:]...)
			break
		}
	}
}

// DecorationRange returns the current range of a decoration.
func (d *Document) DecorationRange(id decoration.ID) (coverage.Range, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.decorations[id]
	if !ok {
		return coverage.Range{}, false
	}
	return e.rng, true
}

// DecorationOptions returns the current options of a decoration.
func (d *Document) DecorationOptions(id decoration.ID) (decoration.Options, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.decorations[id]
	if !ok {
		return decoration.Options{}, false
	}
	return e.opts, true
}

// DecorationsInRange returns the decorations touching r, including ones
// that only share an edge with it.
func (d *Document) DecorationsInRange(r coverage.Range) []decoration.ID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var ids []decoration.ID
	for _, id := range d.order {
		e := d.decorations[id]
		if !e.rng.Start.After(r.End) && !e.rng.End.Before(r.Start) {
			ids = append(ids, id)
		}
	}
	return ids
}

// AllDecorations returns a snapshot of every decoration in creation order.
func (d *Document) AllDecorations() []Decoration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	all := make([]Decoration, 0, len(d.order))
	for _, id := range d.order {
		e := d.decorations[id]
		all = append(all, Decoration{ID: id, Range: e.rng, Options: e.opts})
	}
	return all
}

// Transactions returns how many decoration transactions ran on the document.
func (d *Document) Transactions() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.transactions
}

// OnDidChangeContent registers fn to run after every edit. The returned
// function unregisters it.
func (d *Document) OnDidChangeContent(fn func()) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listenID++
	id := d.listenID
	d.listeners[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.listeners, id)
	}
}

// Insert inserts text at pos. Decorations after pos slide with the text; a
// non-empty decoration ending exactly at pos grows to include it.
func (d *Document) Insert(pos coverage.Position, text string) error {
	d.mu.Lock()
	if pos.Line < 1 || pos.Line > len(d.lines) {
		d.mu.Unlock()
		return fmt.Errorf("insert: line %d out of range [1, %d]", pos.Line, len(d.lines))
	}
	line := d.lines[pos.Line-1]
	if pos.Column < 1 || pos.Column > len(line)+1 {
		d.mu.Unlock()
		return fmt.Errorf("insert: column %d out of range [1, %d]", pos.Column, len(line)+1)
	}

	inserted := strings.Split(text, "\n")
	head, tail := line[:pos.Column-1], line[pos.Column-1:]
	replacement := make([]string, len(inserted))
	copy(replacement, inserted)
	replacement[0] = head + replacement[0]
	replacement[len(replacement)-1] += tail

	lines := make([]string, 0, len(d.lines)+len(inserted)-1)
	lines = append(lines, d.lines[:pos.Line-1]...)
	lines = append(lines, replacement...)
	lines = append(lines, d.lines[pos.Line:]...)
	d.lines = lines

	shift := func(p coverage.Position) coverage.Position {
		if p.Before(pos) {
			return p
		}
		if p.Line > pos.Line {
			p.Line += len(inserted) - 1
			return p
		}
		if len(inserted) == 1 {
			p.Column += len(text)
			return p
		}
		p.Column = len(inserted[len(inserted)-1]) + 1 + (p.Column - pos.Column)
		p.Line += len(inserted) - 1
		return p
	}
	for _, e := range d.decorations {
		empty := e.rng.IsEmpty()
		if empty || e.rng.Start != pos {
			e.rng.Start = shift(e.rng.Start)
		}
		e.rng.End = shift(e.rng.End)
		if empty {
			e.rng.End = e.rng.Start
		}
	}

	listeners := make([]func(), 0, len(d.listeners))
	for _, fn := range d.listeners {
		listeners = append(listeners, fn)
	}
	d.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	return nil
}
