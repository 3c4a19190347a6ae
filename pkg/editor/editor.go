package editor

import (
	"sync"

	"github.com/Azure/coverlens/pkg/coverage"
)

// Editor is a view on one document at a time with a caret.
type Editor struct {
	mu       sync.Mutex
	model    *Document
	position coverage.Position
	revealed int
}

// New creates an editor without a model, caret on the first line.
func New() *Editor {
	return &Editor{position: coverage.Position{Line: 1, Column: 1}}
}

// SetModel switches the document shown by the editor.
func (e *Editor) SetModel(d *Document) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.model = d
	e.position = coverage.Position{Line: 1, Column: 1}
	e.revealed = 0
}

func (e *Editor) Model() *Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model
}

func (e *Editor) Position() coverage.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

func (e *Editor) SetPosition(p coverage.Position) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = p
}

// RevealLineInCenter scrolls the line into the middle of the viewport.
func (e *Editor) RevealLineInCenter(line int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.revealed = line
}

// RevealedLine returns the line last revealed, 0 when none.
func (e *Editor) RevealedLine() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revealed
}
