package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/adapters/socket"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/config"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/binding"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/dialect"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/feature"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/workspace"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/xref"
	specerr "github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/errors"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/ports"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/slogutil"
)

// queueSize bounds the number of pending jobs before callers block.
const queueSize = 256

var errStopped = specerr.New(specerr.Unavailable, "coordinator stopped")

// CoordinatorConfig holds the collaborators of a Coordinator.
type CoordinatorConfig struct {
	Config     *config.Config
	Dialects   *dialect.Table
	Parser     ports.FeatureParser
	FrontEnd   ports.HostFrontEnd // nil = feature-side only (no C# front-end in this build)
	Cache      ports.BindingCache // nil = no warm start
	Watcher    ports.Watcher      // nil = no file watching
	NewMatcher xref.MatcherFactory
	Logger     *slog.Logger
}

// Coordinator owns the feature store and the binding index. Every editor
// request, watcher event and query runs as a job on one goroutine in arrival
// order, so the stores need no locks and a query never observes a half
// applied change.
type Coordinator struct {
	cfg      *config.Config
	log      *slog.Logger
	classify workspace.Classifier
	features *feature.Store
	bindings *binding.Index
	xref     *xref.Resolver
	watcher  ports.Watcher
	handlers map[workspace.DocKind]docHandler

	watchMu     sync.Mutex
	watchedRoot string

	// Loop-owned.
	root         string
	openBindings map[string]bool
	// Watcher changes seen while a scan is in flight, keyed by path, so a
	// scan never installs content older than an event already applied.
	scans     int
	changeSeq uint64
	changedAt map[string]uint64

	jobs     chan job
	done     chan struct{}
	loopDone chan struct{}
	stopOnce sync.Once
}

var _ socket.AppQueries = (*Coordinator)(nil)

type job struct {
	ctx   context.Context // nil for watcher events
	run   func() error
	reply chan error // nil for fire-and-forget jobs
}

// NewCoordinator creates a coordinator and starts its loop. Call Stop to
// release it.
func NewCoordinator(cc CoordinatorConfig) (*Coordinator, error) {
	if cc.Dialects == nil {
		return nil, fmt.Errorf("dialect table required")
	}
	if cc.Parser == nil {
		return nil, fmt.Errorf("feature parser required")
	}
	cfg := cc.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	log := cc.Logger
	if log == nil {
		log = slogutil.NewDiscardLogger()
	}

	features := feature.NewStore(cc.Parser, cc.Dialects, log)
	bindings := binding.NewIndex(cc.FrontEnd, cc.Cache, log)
	c := &Coordinator{
		cfg:          cfg,
		log:          log,
		classify:     workspace.NewClassifier(cfg.FeatureExtensions, cfg.BindingExtensions),
		features:     features,
		bindings:     bindings,
		xref:         xref.NewResolver(features, bindings, cc.NewMatcher, log),
		watcher:      cc.Watcher,
		openBindings: make(map[string]bool),
		changedAt:    make(map[string]uint64),
		jobs:         make(chan job, queueSize),
		done:         make(chan struct{}),
		loopDone:     make(chan struct{}),
	}
	c.handlers = c.newHandlers()

	go c.loop()
	return c, nil
}

// Stop stops watching, drains the loop and flushes the binding cache.
// Safe to call multiple times.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		if c.watcher != nil {
			if err := c.watcher.Stop(); err != nil {
				c.log.Warn("stop watcher", "err", err)
			}
		}
		close(c.done)
		<-c.loopDone
		if err := c.bindings.Flush(); err != nil {
			c.log.Warn("flush binding cache", "err", err)
		}
		c.bindings.Close()
	})
}

// Root returns the workspace root, or "" before InitWorkspace.
func (c *Coordinator) Root(ctx context.Context) (string, error) {
	var root string
	err := c.do(ctx, func() error {
		root = c.root
		return nil
	})
	return root, err
}

func (c *Coordinator) loop() {
	defer close(c.loopDone)
	for {
		select {
		case j := <-c.jobs:
			c.exec(j)
		case <-c.done:
			return
		}
	}
}

func (c *Coordinator) exec(j job) {
	var err error
	if j.ctx != nil && j.ctx.Err() != nil {
		err = j.ctx.Err()
	} else {
		err = c.safely(j.run)
	}
	if j.reply != nil {
		j.reply <- err
		return
	}
	if err != nil {
		c.log.Warn("background job failed", "err", err)
	}
}

// safely runs fn, turning a panic into an Internal error so one bad
// document cannot take the daemon down.
func (c *Coordinator) safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("job panicked", "panic", r)
			err = specerr.Newf(specerr.Internal, "internal error: %v", r)
		}
	}()
	return fn()
}

// do runs fn on the loop and waits for it. A context cancelled before the job
// is dequeued yields ctx.Err() and fn never runs. Once enqueued, do waits for
// the job even if ctx is cancelled meanwhile, because fn writes results the
// caller reads.
func (c *Coordinator) do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j := job{ctx: ctx, run: fn, reply: make(chan error, 1)}
	select {
	case c.jobs <- j:
	case <-c.done:
		return errStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-j.reply:
		return err
	case <-c.loopDone:
		select {
		case err := <-j.reply:
			return err
		default:
			return errStopped
		}
	}
}

// post enqueues fn without waiting. Used by the watcher callback.
func (c *Coordinator) post(fn func() error) {
	select {
	case c.jobs <- job{run: fn}:
	case <-c.done:
	}
}

// flushBindings persists pending cache changes. Failures only cost a warm
// start, so they are logged rather than returned.
func (c *Coordinator) flushBindings() {
	if err := c.bindings.Flush(); err != nil {
		c.log.Warn("flush binding cache", "err", err)
	}
}
