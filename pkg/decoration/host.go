package decoration

import (
	"github.com/Azure/coverlens/pkg/coverage"
)

// ID is the handle of a decoration inside its host document.
type ID string

// InjectedText is text rendered before or after a decorated range.
type InjectedText struct {
	Content   string
	ClassName string
}

// Options is the style of a decoration.
type Options struct {
	Description         string
	ShowIfCollapsed     bool
	LineNumberClassName string
	ClassName           string
	HoverMessage        string
	Before              *InjectedText
	After               *InjectedText
}

// Accessor mutates decorations inside one host transaction.
type Accessor interface {
	Add(r coverage.Range, opts Options) ID
	ChangeOptions(id ID, opts Options)
	Remove(id ID)
}

// Host is a document that can carry decorations. Decoration ranges follow
// edits of the document, so the host is the source of truth for them.
type Host interface {
	// ChangeDecorations runs fn as a single transaction; observers never see
	// a partially applied change.
	ChangeDecorations(fn func(Accessor))
	// DecorationRange returns the current range of a decoration.
	DecorationRange(id ID) (coverage.Range, bool)
	// DecorationsInRange returns the decorations touching r, in creation order.
	DecorationsInRange(r coverage.Range) []ID
}
