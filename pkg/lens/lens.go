package lens

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/Azure/coverlens/pkg/config"
	"github.com/Azure/coverlens/pkg/coverage"
	"github.com/Azure/coverlens/pkg/decoration"
	"github.com/Azure/coverlens/pkg/partition"
	"github.com/Azure/coverlens/pkg/refresh"
	"github.com/Azure/coverlens/pkg/summary"
)

// ErrClosed is returned when an operation is submitted to a stopped lens.
var ErrClosed = errors.New("lens is closed")

const eventQueueSize = 64

// Model is a document the lens can decorate.
type Model interface {
	decoration.Host
	partition.TextSource
	URI() string
}

// contentNotifier is implemented by models that report edits.
type contentNotifier interface {
	OnDidChangeContent(fn func()) func()
}

// Cursor is the caret of the editor showing the model.
type Cursor interface {
	Position() coverage.Position
	SetPosition(p coverage.Position)
	RevealLineInCenter(line int)
}

// MouseTargetKind is the part of the editor under the pointer.
type MouseTargetKind int

const (
	MouseOther MouseTargetKind = iota
	MouseGutterLineNumbers
	MouseContentText
)

// MouseTarget describes a pointer position.
type MouseTarget struct {
	Kind     MouseTargetKind
	Position coverage.Position
}

// Options configures a Lens.
type Options struct {
	Cursor Cursor
	Config config.Source
	Logger logrus.FieldLogger
	// SummaryMode selects the bars of the summary widget.
	SummaryMode summary.Mode
}

// Lens shows the coverage of the active document as decorations. All state
// is owned by the goroutine running Run; every other method only enqueues
// work for it.
type Lens struct {
	events chan func()
	done   chan struct{}
	logger logrus.FieldLogger
	cursor Cursor
	config config.Source

	ctx         context.Context
	model       Model
	manager     *decoration.Manager
	unsubscribe func()
	report      coverage.Report
	testID      string
	showInline  bool
	hasInline   bool
	lastConfig  config.Options
	refresh     *refresh.Coordinator
	summary     *summary.Widget
	idleWaiters []chan struct{}
}

// New creates a lens. It does nothing until Run is called.
func New(o Options) *Lens {
	cfg := o.Config
	if cfg == nil {
		cfg = config.Static(config.Default())
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	l := &Lens{
		events: make(chan func(), eventQueueSize),
		done:   make(chan struct{}),
		logger: o.Logger.WithField("source", "CoverageLens"),
		cursor: o.Cursor,
		config: cfg,
		ctx:    context.Background(),
	}
	l.lastConfig = cfg.Options()
	l.showInline = l.lastConfig.ShowInlineByDefault
	l.summary = summary.New(cfg, o.SummaryMode)
	l.refresh = refresh.New(refresh.Options{
		Post:   l.post,
		Sink:   sink{l},
		Build:  l.build,
		Logger: o.Logger,
		OnIdle: l.notifyIdle,
	})
	return l
}

// Run processes events until ctx is done.
func (l *Lens) Run(ctx context.Context) error {
	l.ctx = ctx
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			l.refresh.Cancel()
			l.notifyIdle()
			return ctx.Err()
		case fn := <-l.events:
			fn()
		}
	}
}

func (l *Lens) post(fn func()) {
	select {
	case l.events <- fn:
	case <-l.done:
	}
}

// Do runs fn on the scheduler goroutine and waits for it.
func (l *Lens) Do(fn func()) error {
	finished := make(chan struct{})
	select {
	case l.events <- func() { fn(); close(finished) }:
	case <-l.done:
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrClosed
	}
}

// WaitIdle blocks until no detail fetch is outstanding.
func (l *Lens) WaitIdle(ctx context.Context) error {
	idle := make(chan struct{})
	err := l.Do(func() {
		if !l.refresh.Pending() {
			close(idle)
			return
		}
		l.idleWaiters = append(l.idleWaiters, idle)
	})
	if err != nil {
		return err
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}
}

func (l *Lens) notifyIdle() {
	for _, ch := range l.idleWaiters {
		close(ch)
	}
	l.idleWaiters = nil
}

// SetModel switches the decorated document. The ranges of the previous
// document's decorations are written back into its details first.
func (l *Lens) SetModel(m Model) {
	l.post(func() { l.setModel(m) })
}

// SetReport selects the coverage report, nil to hide coverage.
func (l *Lens) SetReport(r coverage.Report) {
	l.post(func() {
		l.report = r
		l.recompute()
	})
}

// SetFilterToTest restricts the shown coverage to one test; "" shows all tests.
func (l *Lens) SetFilterToTest(testID string) {
	l.post(func() {
		if l.testID == testID {
			return
		}
		l.testID = testID
		l.recompute()
	})
}

// Invalidate refetches the coverage of the current document.
func (l *Lens) Invalidate() {
	l.post(l.recompute)
}

// ConfigChanged re-reads the configuration and recomputes.
func (l *Lens) ConfigChanged() {
	l.post(func() {
		current := l.config.Options()
		if current.ShowInlineByDefault != l.lastConfig.ShowInlineByDefault {
			l.showInline = current.ShowInlineByDefault
			if l.manager != nil {
				l.manager.SetMode(l.mode())
			}
		}
		l.lastConfig = current
		l.recompute()
	})
}

// MouseMove reports the pointer position.
func (l *Lens) MouseMove(target MouseTarget) {
	l.post(func() {
		if l.manager == nil {
			return
		}
		hover := l.manager.Hover()
		switch target.Kind {
		case MouseGutterLineNumbers:
			hover.EnterGutter(target.Position.Line)
		case MouseContentText:
			hover.EnterInline(target.Position)
		default:
			hover.Leave()
		}
	})
}

// MouseLeave reports the pointer leaving the editor.
func (l *Lens) MouseLeave() {
	l.post(l.leaveHover)
}

// ContentChanged reports an edit of the current document.
func (l *Lens) ContentChanged() {
	l.post(l.leaveHover)
}

// ToggleInlineDisplay switches between always shown and hover only inline coverage.
func (l *Lens) ToggleInlineDisplay() {
	_ = l.Do(func() {
		l.showInline = !l.showInline
		if l.manager != nil {
			l.manager.SetMode(l.mode())
		}
	})
}

// GoToNextMissedLine moves the caret to the next uncovered line.
func (l *Lens) GoToNextMissedLine() bool {
	return l.navigate(decoration.Navigation.Next)
}

// GoToPreviousMissedLine moves the caret to the previous uncovered line.
func (l *Lens) GoToPreviousMissedLine() bool {
	return l.navigate(decoration.Navigation.Previous)
}

// HasInlineCoverageDetails reports whether the document shows any coverage decoration.
func (l *Lens) HasInlineCoverageDetails() bool {
	var has bool
	_ = l.Do(func() { has = l.hasInline })
	return has
}

// InlineShown reports whether inline coverage is always shown.
func (l *Lens) InlineShown() bool {
	var shown bool
	_ = l.Do(func() { shown = l.showInline })
	return shown
}

// Summary returns the state of the summary widget.
func (l *Lens) Summary() summary.Snapshot {
	var s summary.Snapshot
	_ = l.Do(func() { s = l.summary.Snapshot() })
	return s
}

// Decorations returns the live decorations of the current document.
func (l *Lens) Decorations() []*decoration.Live {
	var live []*decoration.Live
	_ = l.Do(func() {
		if l.manager != nil {
			live = append(live, l.manager.Decorations()...)
		}
	})
	return live
}

// Close detaches the lens from the current document.
func (l *Lens) Close() {
	_ = l.Do(func() { l.setModel(nil) })
}

func (l *Lens) setModel(m Model) {
	if l.manager != nil {
		l.manager.WriteBack()
		l.refresh.Cancel()
		l.manager.Clear()
		l.hasInline = false
	}
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}

	l.model = m
	l.manager = nil
	if m != nil {
		l.manager = decoration.NewManager(m, l.logger)
		if n, ok := m.(contentNotifier); ok {
			l.unsubscribe = n.OnDidChangeContent(l.ContentChanged)
		}
	}
	l.recompute()
}

func (l *Lens) leaveHover() {
	if l.manager != nil {
		l.manager.Hover().Leave()
	}
}

func (l *Lens) mode() decoration.Mode {
	if l.showInline {
		return decoration.AlwaysOn
	}
	return decoration.HoverOnly
}

// target resolves the coverage of the current document.
func (l *Lens) target() *refresh.Target {
	if l.report == nil || l.model == nil {
		return nil
	}
	file := l.report.GetURI(l.model.URI())
	if file == nil {
		return nil
	}
	return &refresh.Target{File: file, TestID: l.testID}
}

func (l *Lens) recompute() {
	target := l.target()

	if target != nil && l.config.Options().CoverageToolbarEnabled {
		l.summary.SetCoverage(target.File, target.TestID)
	} else {
		l.summary.ClearCoverage()
	}

	if l.manager == nil {
		l.refresh.Cancel()
		return
	}
	l.refresh.Trigger(l.ctx, target)
}

func (l *Lens) build(details []*coverage.Detail) []partition.Segment {
	var text partition.TextSource
	if l.model != nil {
		text = l.model
	}
	return partition.Build(details, text)
}

func (l *Lens) navigate(find func(decoration.Navigation, int) (int, bool)) bool {
	var moved bool
	_ = l.Do(func() {
		if l.manager == nil || l.cursor == nil {
			return
		}
		line, ok := find(l.manager.Navigation(), l.cursor.Position().Line)
		if !ok {
			return
		}
		l.cursor.SetPosition(coverage.Position{Line: line, Column: 1})
		l.cursor.RevealLineInCenter(line)
		moved = true
	})
	return moved
}

// sink applies refresh results to the current document.
type sink struct {
	l *Lens
}

func (s sink) Apply(segments []partition.Segment) {
	if s.l.manager == nil {
		return
	}
	s.l.manager.Apply(segments, s.l.mode())
	s.l.hasInline = len(segments) > 0
}

func (s sink) Clear() {
	s.l.hasInline = false
	if s.l.manager != nil {
		s.l.manager.Clear()
	}
}
