package taskgraph

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
)

// Options configures an Orchestrator.
type Options struct {
	Logger   *slog.Logger
	Recorder metrics.Recorder
}

// Orchestrator executes tasks from a validated Registry.
type Orchestrator struct {
	reg      *Registry
	logger   *slog.Logger
	recorder metrics.Recorder
}

// New validates reg and returns an Orchestrator over it. Graph errors are
// reported here, before any task can run.
func New(reg *Registry, opts Options) (*Orchestrator, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		reg:      reg,
		logger:   logger,
		recorder: metrics.OrNoop(opts.Recorder),
	}, nil
}


// Run executes targets and their transitive dependencies. Each task runs at
// most once. The first failing task cancels its layer and aborts the run.
func (o *Orchestrator) Run(ctx context.Context, targets ...string) (*Report, error) {
	layers, err := o.reg.Plan(targets...)
	if err != nil {
		return nil, err
	}
	return o.execute(ctx, targets, layers)
}

// RunOnly executes exactly the named tasks, skipping their dependencies.
func (o *Orchestrator) RunOnly(ctx context.Context, names ...string) (*Report, error) {
	layers, err := o.reg.PlanOnly(names...)
	if err != nil {
		return nil, err
	}
	return o.execute(ctx, names, layers)
}

func (o *Orchestrator) execute(ctx context.Context, targets []string, layers [][]string) (*Report, error) {
	report := &Report{
		RunID:   uuid.NewString(),
		Targets: targets,
		Layers:  layers,
		Started: time.Now(),
	}
	log := o.logger.With(logfields.RunID(report.RunID))
	log.Debug("Run planned", slog.Any("targets", targets), slog.Any("layers", layers))

	var mu sync.Mutex
	record := func(res TaskResult) {
		mu.Lock()
		report.Results = append(report.Results, res)
		mu.Unlock()
	}

	finish := func(err error) (*Report, error) {
		report.Duration = time.Since(report.Started)
		o.recorder.ObserveRunDuration(report.Duration)
		switch {
		case err == nil:
			o.recorder.IncRunOutcome(metrics.ResultSuccess)
			log.Info("Run completed", logfields.Count(len(report.Results)), logfields.DurationMS(float64(report.Duration.Milliseconds())))
		case ctx.Err() != nil:
			o.recorder.IncRunOutcome(metrics.ResultCanceled)
		default:
			o.recorder.IncRunOutcome(metrics.ResultFailed)
			log.Error("Run failed", logfields.Error(err))
		}
		return report, err
	}

	for i, layer := range layers {
		if err := ctx.Err(); err != nil {
			return finish(ferrors.WrapError(err, ferrors.CategoryRuntime, "run canceled").Build())
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, name := range layer {
			task, _ := o.reg.Get(name)
			g.Go(func() error {
				res := o.runTask(gctx, log, task)
				res.Layer = i
				record(res)
				return res.Err
			})
		}
		if err := g.Wait(); err != nil {
			return finish(err)
		}
	}
	return finish(nil)
}

func (o *Orchestrator) runTask(ctx context.Context, log *slog.Logger, task Task) TaskResult {
	res := TaskResult{Name: task.Name}
	if task.Action == nil {
		return res
	}

	log = log.With(logfields.Task(task.Name))
	log.Debug("Task started")

	start := time.Now()
	effect, err := task.Action(ctx)
	res.Duration = time.Since(start)
	o.recorder.ObserveTaskDuration(task.Name, res.Duration)

	if err != nil {
		if !ferrors.IsClassified(err) {
			err = ferrors.WrapError(err, ferrors.CategoryTask, "task failed").Build()
		}
		if c, ok := err.(*ferrors.ClassifiedError); ok {
			if _, has := c.Context().Get("task"); !has {
				err = c.WithContext("task", task.Name)
			}
		}
		res.Err = err
		o.recorder.IncTaskResult(task.Name, metrics.ResultFailed)
		log.Error("Task failed", logfields.Error(err), logfields.DurationMS(float64(res.Duration.Milliseconds())))
		return res
	}

	res.Written = effect.Written
	o.recorder.IncTaskResult(task.Name, metrics.ResultSuccess)
	log.Debug("Task finished", logfields.Count(len(effect.Written)), logfields.DurationMS(float64(res.Duration.Milliseconds())))
	return res
}
