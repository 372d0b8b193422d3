// Package pipeline owns one project's build: the task graph, the bundler,
// and in watch mode the watcher, the bundle queue, the live-reload
// dispatcher and the dev server. Everything is wired through one event bus
// and torn down by Stop.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/assetbuilder/internal/assets"
	"git.home.luguber.info/inful/assetbuilder/internal/bundler"
	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/events"
	"git.home.luguber.info/inful/assetbuilder/internal/eventstore"
	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/fsutil"
	"git.home.luguber.info/inful/assetbuilder/internal/lint"
	"git.home.luguber.info/inful/assetbuilder/internal/livereload"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/server"
	"git.home.luguber.info/inful/assetbuilder/internal/taskgraph"
	"git.home.luguber.info/inful/assetbuilder/internal/watch"
)

const (
	// DefaultBundleQuiet is how long script changes must settle before a bundle.
	DefaultBundleQuiet = 100 * time.Millisecond
	// DefaultBundleMaxDelay bounds how long a burst of script changes can
	// postpone a bundle.
	DefaultBundleMaxDelay = 2 * time.Second
)

// Options configures a Pipeline.
type Options struct {
	Root   string
	Config config.BuildConfig
	Logger *slog.Logger

	// Registry receives the pipeline metrics and backs /metrics. Nil gets a
	// private registry.
	Registry *prom.Registry
	// History records runs and bundles when set. The caller owns it.
	History  eventstore.Store

	// Debounce is the per-subscription quiet window in watch mode.
	Debounce       time.Duration
	BundleQuiet    time.Duration
	BundleMaxDelay time.Duration
}

// Pipeline is the orchestration context of one project.
type Pipeline struct {
	opts     Options
	root     string
	outDir   string
	cfg      config.BuildConfig
	logger   *slog.Logger
	bus      *events.Bus
	registry *prom.Registry
	recorder metrics.Recorder
	layout   *Layout
	bundler  *bundler.Bundler
	orch     *taskgraph.Orchestrator
	status   statusTracker
	history  history

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	srv     *server.Server
}

// New wires the task graph for the project at opts.Root. Graph errors are
// returned here, before anything runs.
func New(opts Options) (*Pipeline, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "resolve project root").
			WithContext("root", opts.Root).
			Build()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = watch.DefaultDebounce
	}
	if opts.BundleQuiet <= 0 {
		opts.BundleQuiet = DefaultBundleQuiet
	}
	if opts.BundleMaxDelay <= 0 {
		opts.BundleMaxDelay = DefaultBundleMaxDelay
	}
	reg := opts.Registry
	if reg == nil {
		reg = prom.NewRegistry()
	}

	cfg := opts.Config
	layout, err := NewLayout(cfg.SourceDir)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		opts:     opts,
		root:     root,
		outDir:   filepath.Join(root, filepath.FromSlash(cfg.OutputDir)),
		cfg:      cfg,
		logger:   logger,
		bus:      events.NewBus(),
		registry: reg,
		recorder: metrics.NewPrometheusRecorder(reg),
		layout:   layout,
		history:  history{store: opts.History, logger: logger},
	}

	runner := assets.NewRunner(root, p.outDir, cfg, logger)
	p.bundler = bundler.New(bundler.Options{
		Root:      root,
		Entry:     cfg.Entry,
		OutputDir: p.outDir,
		Config:    cfg,
		Bus:       p.bus,
		Recorder:  p.recorder,
		Logger:    logger,
	})

	tasks := taskgraph.NewRegistry()
	if err := RegisterTasks(tasks, runner, p.bundler, layout); err != nil {
		return nil, err
	}
	p.orch, err = taskgraph.New(tasks, taskgraph.Options{Logger: logger, Recorder: p.recorder})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// OutputDir returns the absolute output directory.
func (p *Pipeline) OutputDir() string { return p.outDir }

// Config returns the resolved configuration the pipeline was built with.
func (p *Pipeline) Config() config.BuildConfig { return p.cfg }

// Bus returns the pipeline's event bus.
func (p *Pipeline) Bus() *events.Bus { return p.bus }

// Bundler returns the pipeline's bundler.
func (p *Pipeline) Bundler() *bundler.Bundler { return p.bundler }

// LastBuild reports the most recent build outcome.
func (p *Pipeline) LastBuild() server.BuildStatus { return p.status.LastBuild() }

// Run executes targets with their dependencies and records the outcome.
func (p *Pipeline) Run(ctx context.Context, trigger string, targets ...string) (*taskgraph.Report, error) {
	report, err := p.orch.Run(ctx, targets...)
	p.finishRun(ctx, trigger, targets, report, err)
	return report, err
}

// RunOnly executes exactly the named tasks and records the outcome.
func (p *Pipeline) RunOnly(ctx context.Context, trigger string, tasks ...string) (*taskgraph.Report, error) {
	report, err := p.orch.RunOnly(ctx, tasks...)
	p.finishRun(ctx, trigger, tasks, report, err)
	return report, err
}

func (p *Pipeline) finishRun(ctx context.Context, trigger string, targets []string, report *taskgraph.Report, err error) {
	p.status.record(strings.Join(targets, ","), err)
	p.history.recordRun(ctx, trigger, report, err)
}

// Build runs the one-shot build.
func (p *Pipeline) Build(ctx context.Context) (*taskgraph.Report, error) {
	return p.Run(ctx, "build", TaskBuild)
}

// Lint runs the script and stylesheet checks directly and returns every
// issue, for reporting. Lint errors are in the result, not in err.
func (p *Pipeline) Lint(cfg *lint.Config) (*lint.Result, error) {
	var paths []string
	for _, set := range []*fileset.FileSet{p.layout.Scripts, p.layout.AppStylesheet} {
		files, err := set.Expand(p.root)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			paths = append(paths, f.Path)
		}
	}
	return lint.NewLinter(cfg).LintFiles(paths)
}

// Clean empties the output directory and returns the number of entries
// removed. The bundler cache goes with it, so the next build starts cold.
func (p *Pipeline) Clean() (int, error) {
	n, err := fsutil.CleanDir(p.outDir)
	if err != nil {
		return 0, err
	}
	p.bundler.Invalidate()
	p.logger.Info("Output directory cleaned", logfields.Path(p.outDir), logfields.Count(n))
	return n, nil
}

// Start runs the watch-mode build and then keeps the output in sync until
// Stop. A failed initial build is logged and watching continues so the
// next edit can fix it; configuration and graph errors are returned.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ferrors.RuntimeError("pipeline already started").Build()
	}
	p.started = true
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	fail := func(err error) error {
		cancel()
		p.wg.Wait()
		return err
	}

	hub := livereload.NewHub(p.recorder, p.logger)
	dispatcher := livereload.NewDispatcher(hub, p.bus, p.logger)
	p.goRun(func() { dispatcher.Run(runCtx) })

	if _, err := p.Run(runCtx, "watch", TaskBuilding); err != nil {
		if ferrors.HasCategory(err, ferrors.CategoryConfig) || ferrors.HasCategory(err, ferrors.CategoryGraph) {
			return fail(err)
		}
		p.logger.Warn("Initial build failed, watching for changes", logfields.Error(err))
	}

	queue, err := watch.NewBundleQueue(p.bus, watch.BundleQueueConfig{
		QuietWindow: p.opts.BundleQuiet,
		MaxDelay:    p.opts.BundleMaxDelay,
	})
	if err != nil {
		return fail(err)
	}
	bundleCh, unsubBundle := events.Subscribe[events.BundleNow](p.bus, 4)
	taskCh, unsubTasks := events.Subscribe[events.TasksRequested](p.bus, 16)
	p.goRun(func() {
		defer unsubBundle()
		p.bundleWorker(runCtx, bundleCh)
	})
	p.goRun(func() {
		defer unsubTasks()
		p.taskWorker(runCtx, taskCh)
	})
	p.goRun(func() { _ = queue.Run(runCtx) })
	select {
	case <-queue.Ready():
	case <-runCtx.Done():
		return fail(runCtx.Err())
	}

	src := filepath.Join(p.root, filepath.FromSlash(p.cfg.SourceDir))
	watcher, err := watch.New(watch.Options{
		Root:          p.root,
		Subscriptions: Subscriptions(p.layout),
		Scripts:       p.layout.Scripts,
		Ignore: []string{
			p.outDir,
			filepath.Join(p.root, "node_modules"),
			filepath.Join(src, "bower_components"),
		},
		Bus:      p.bus,
		Debounce: p.opts.Debounce,
		Recorder: p.recorder,
		Logger:   p.logger,
	})
	if err != nil {
		return fail(err)
	}
	p.goRun(func() {
		if err := watcher.Run(runCtx); err != nil {
			p.logger.Error("Watcher stopped", logfields.Error(err))
		}
	})

	srv := server.New(server.Options{
		Addr:      p.cfg.Addr,
		OutputDir: p.outDir,
		Hub:       hub,
		Registry:  p.registry,
		Status:    &p.status,
		Logger:    p.logger,
	})
	if err := srv.Start(runCtx); err != nil {
		return fail(err)
	}
	p.mu.Lock()
	p.srv = srv
	p.mu.Unlock()
	return nil
}

// Addr returns the dev server address once Start returned.
func (p *Pipeline) Addr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.srv == nil {
		return ""
	}
	return p.srv.Addr()
}

// Stop shuts the dev server down, stops every worker and closes the bus.
// It is safe to call more than once.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	srv, cancel := p.srv, p.cancel
	p.mu.Unlock()

	var stopErr error
	if srv != nil {
		stopErr = srv.Stop(ctx)
	}
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		stopErr = ferrors.WrapError(ctx.Err(), ferrors.CategoryRuntime, "pipeline workers did not stop").Build()
	}
	p.bus.Close()
	return stopErr
}

func (p *Pipeline) goRun(fn func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		fn()
	}()
}

// bundleWorker runs one bundle per BundleNow and reports completion to the
// queue. Failures keep the previous artifact and are only reported.
func (p *Pipeline) bundleWorker(ctx context.Context, ch <-chan events.BundleNow) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			p.logger.Debug("Bundling",
				slog.String("cause", evt.Cause),
				logfields.Count(evt.RequestCount),
				logfields.Path(evt.LastPath))

			started := time.Now()
			res, err := p.bundler.Bundle(ctx)
			p.status.record(TaskBundle, err)
			p.history.recordBundle(ctx, started, res, err)
			if err != nil {
				p.publish(ctx, events.BuildFailed{Source: TaskBundle, Err: err, FailedAt: time.Now()})
			}
			p.publish(ctx, events.BundleCompleted{Err: err, CompletedAt: time.Now()})
		}
	}
}

// taskWorker runs the tasks requested by the watcher, one request at a time.
func (p *Pipeline) taskWorker(ctx context.Context, ch <-chan events.TasksRequested) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			source := strings.Join(evt.Tasks, ",")
			report, err := p.RunOnly(ctx, evt.FileSet, evt.Tasks...)
			if err != nil {
				p.publish(ctx, events.BuildFailed{Source: source, Err: err, FailedAt: time.Now()})
				continue
			}
			if written := report.Written(); len(written) > 0 {
				p.publish(ctx, events.ArtifactsUpdated{Paths: written, Source: source, UpdatedAt: time.Now()})
			}
		}
	}
}

func (p *Pipeline) publish(ctx context.Context, evt any) {
	if err := p.bus.Publish(ctx, evt); err != nil && ctx.Err() == nil {
		p.logger.Warn("Failed to publish event", logfields.Error(err))
	}
}
