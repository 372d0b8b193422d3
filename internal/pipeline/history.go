package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/assetbuilder/internal/bundler"
	"git.home.luguber.info/inful/assetbuilder/internal/eventstore"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/taskgraph"
)

// history appends run and bundle outcomes to an event store. A nil store
// disables it. Append failures are logged, never returned: history must not
// fail a build.
type history struct {
	store  eventstore.Store
	logger *slog.Logger
}

func (h *history) recordRun(ctx context.Context, trigger string, report *taskgraph.Report, runErr error) {
	if h.store == nil || report == nil {
		return
	}
	var evts []eventstore.Event
	add := func(e *eventstore.BaseEvent, err error) {
		if err != nil {
			h.logger.Warn("Failed to encode history event", logfields.Error(err))
			return
		}
		evts = append(evts, e)
	}

	started, err := eventstore.NewRunStarted(report.RunID, eventstore.RunStartedPayload{
		Targets: report.Targets,
		Trigger: trigger,
	})
	if err == nil {
		started.EventTimestamp = report.Started
	}
	add(started, err)
	for _, res := range report.Results {
		p := eventstore.TaskFinishedPayload{
			Task:       res.Name,
			DurationMS: res.Duration.Milliseconds(),
			Written:    res.Written,
		}
		if res.Err != nil {
			p.Error = res.Err.Error()
		}
		add(eventstore.NewTaskFinished(report.RunID, p))
	}

	fin := eventstore.RunFinishedPayload{
		DurationMS: report.Duration.Milliseconds(),
		Executed:   report.Executed(),
		Written:    len(report.Written()),
	}
	if runErr != nil {
		fin.Error = runErr.Error()
		fin.Category = string(ferrors.GetCategory(runErr))
	}
	add(eventstore.NewRunFinished(report.RunID, fin))

	h.append(ctx, evts)
}

func (h *history) recordBundle(ctx context.Context, started time.Time, res *bundler.Result, bundleErr error) {
	if h.store == nil {
		return
	}
	p := eventstore.BundlePayload{DurationMS: time.Since(started).Milliseconds()}
	if res != nil {
		p.Compiled = res.Compiled
		p.Reused = res.Reused
		p.Size = res.Size
	}
	if bundleErr != nil {
		p.Error = bundleErr.Error()
		p.Category = string(ferrors.GetCategory(bundleErr))
		if c, ok := ferrors.AsClassified(bundleErr); ok {
			p.Module, _ = c.Context().GetString("module")
		}
	}
	e, err := eventstore.NewBundleFinished(uuid.NewString(), p)
	if err != nil {
		h.logger.Warn("Failed to encode history event", logfields.Error(err))
		return
	}
	h.append(ctx, []eventstore.Event{e})
}

func (h *history) append(ctx context.Context, evts []eventstore.Event) {
	// Record even when the triggering context was canceled.
	ctx = context.WithoutCancel(ctx)
	for _, e := range evts {
		if err := h.store.Append(ctx, e); err != nil {
			h.logger.Warn("Failed to record build history", logfields.RunID(e.RunID()), logfields.Error(err))
			return
		}
	}
}
