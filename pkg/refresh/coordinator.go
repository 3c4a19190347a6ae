package refresh

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/Azure/coverlens/pkg/coverage"
	"github.com/Azure/coverlens/pkg/partition"
)

// Target is the coverage to show for the active document.
type Target struct {
	File coverage.FileCoverage
	// TestID filters the details to a single test when set.
	TestID string
}

// Sink receives the outcome of a refresh.
type Sink interface {
	Apply(segments []partition.Segment)
	Clear()
}

// Options configures a Coordinator.
type Options struct {
	// Post schedules fn on the goroutine that owns the sink.
	Post func(fn func())
	Sink Sink
	// Build turns fetched details into segments. It runs on the owning
	// goroutine right before the sink is updated.
	Build  func(details []*coverage.Detail) []partition.Segment
	Logger logrus.FieldLogger
	// OnIdle runs on the owning goroutine when the last outstanding fetch settles.
	OnIdle func()
}

// Coordinator runs at most one detail fetch at a time. Every trigger
// supersedes the previous one, whose result is dropped.
type Coordinator struct {
	post   func(fn func())
	sink   Sink
	build  func(details []*coverage.Detail) []partition.Segment
	logger logrus.FieldLogger
	onIdle func()

	cancel     context.CancelFunc
	generation uint64
	pending    int
}

// New creates a coordinator. All methods must be called from the goroutine
// Post schedules onto.
func New(o Options) *Coordinator {
	build := o.Build
	if build == nil {
		build = partition.Partition
	}
	return &Coordinator{
		post:   o.Post,
		sink:   o.Sink,
		build:  build,
		logger: o.Logger.WithField("source", "RefreshCoordinator"),
		onIdle: o.OnIdle,
	}
}

// Trigger cancels the outstanding fetch and starts a new one for target. A
// nil target clears the sink.
func (c *Coordinator) Trigger(ctx context.Context, target *Target) {
	c.Cancel()
	if target == nil || target.File == nil {
		c.sink.Clear()
		return
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.generation++
	c.pending++
	generation := c.generation

	go func() {
		details, err := fetch(fetchCtx, target)
		c.post(func() {
			c.settle(fetchCtx, generation, details, err)
		})
	}()
}

// Cancel drops the outstanding fetch, if any.
func (c *Coordinator) Cancel() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Pending reports whether a fetch result is still to be settled.
func (c *Coordinator) Pending() bool { return c.pending > 0 }

func fetch(ctx context.Context, target *Target) ([]*coverage.Detail, error) {
	if target.TestID != "" {
		return target.File.DetailsForTest(ctx, target.TestID)
	}
	return target.File.Details(ctx)
}

func (c *Coordinator) settle(ctx context.Context, generation uint64, details []*coverage.Detail, err error) {
	c.pending--
	defer func() {
		if c.pending == 0 && c.onIdle != nil {
			c.onIdle()
		}
	}()

	if ctx.Err() != nil || generation != c.generation {
		c.logger.Debugf("dropping result of superseded fetch %d", generation)
		return
	}
	c.Cancel()

	switch {
	case errors.Is(err, coverage.ErrNoCoverage), errors.Is(err, coverage.ErrUnknownTest):
		c.logger.WithError(err).Debug("no coverage details")
		c.sink.Clear()
	case err != nil:
		c.logger.WithError(err).Error("load coverage details")
		c.sink.Clear()
	default:
		c.sink.Apply(c.build(details))
	}
}
