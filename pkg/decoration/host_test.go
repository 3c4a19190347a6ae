package decoration

import (
	"fmt"

	"github.com/Azure/coverlens/pkg/coverage"
)

type fakeDecoration struct {
	rng  coverage.Range
	opts Options
}

// fakeHost records decorations and the number of transactions applied to it.
type fakeHost struct {
	next         int
	order        []ID
	decorations  map[ID]*fakeDecoration
	transactions int
}

func newFakeHost() *fakeHost {
	return &fakeHost{decorations: map[ID]*fakeDecoration{}}
}

func (h *fakeHost) ChangeDecorations(fn func(Accessor)) {
	h.transactions++
	fn(h)
}

func (h *fakeHost) Add(r coverage.Range, opts Options) ID {
	h.next++
	id := ID(fmt.Sprintf("d%d", h.next))
	h.decorations[id] = &fakeDecoration{rng: r, opts: opts}
	h.order = append(h.order, id)
	return id
}

func (h *fakeHost) ChangeOptions(id ID, opts Options) {
	if d, ok := h.decorations[id]; ok {
		d.opts = opts
	}
}

func (h *fakeHost) Remove(id ID) {
	delete(h.decorations, id)
	for i, o := range h.order {
		if o == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

func (h *fakeHost) DecorationRange(id ID) (coverage.Range, bool) {
	d, ok := h.decorations[id]
	if !ok {
		return coverage.Range{}, false
	}
	return d.rng, true
}

func (h *fakeHost) DecorationsInRange(r coverage.Range) []ID {
	var ids []ID
	for _, id := range h.order {
		d := h.decorations[id]
		if !d.rng.Start.After(r.End) && !d.rng.End.Before(r.Start) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (h *fakeHost) options(id ID) Options {
	return h.decorations[id].opts
}
