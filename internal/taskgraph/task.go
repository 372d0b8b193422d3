// Package taskgraph registers named tasks with explicit dependency edges and
// executes them layer by layer.
package taskgraph

import (
	"context"
	"time"
)

// Effect describes what a task did. Written lists output files replaced,
// as slash paths relative to the output directory.
type Effect struct {
	Written []string
}

// Action is the work of a task. A nil Action marks an aggregate task that
// only groups its dependencies.
type Action func(ctx context.Context) (Effect, error)

// Task is a named unit of work.
type Task struct {
	Name        string
	Deps        []string
	Description string
	Action      Action
}

// TaskResult records one executed task within a run.
type TaskResult struct {
	Name     string
	Layer    int
	Duration time.Duration
	Written  []string
	Err      error
}

// Report summarizes an orchestration run.
type Report struct {
	RunID    string
	Targets  []string
	Layers   [][]string
	Results  []TaskResult
	Started  time.Time
	Duration time.Duration
}

// Written returns every output path written during the run, in result order.
func (r *Report) Written() []string {
	if r == nil {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, res := range r.Results {
		for _, p := range res.Written {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// Executed returns the names of tasks that ran, in completion order.
func (r *Report) Executed() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		names = append(names, res.Name)
	}
	return names
}
