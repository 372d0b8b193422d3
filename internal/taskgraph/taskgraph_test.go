package taskgraph

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// recorder collects task executions in completion order.
type recorder struct {
	mu    sync.Mutex
	order []string
	count map[string]int
}

func newRecorder() *recorder { return &recorder{count: map[string]int{}} }

func (r *recorder) action(name string, written ...string) Action {
	return func(context.Context) (Effect, error) {
		r.mu.Lock()
		r.order = append(r.order, name)
		r.count[name]++
		r.mu.Unlock()
		return Effect{Written: written}, nil
	}
}

func (r *recorder) index(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.order {
		if n == name {
			return i
		}
	}
	return -1
}

func mustRegister(t *testing.T, reg *Registry, tasks ...Task) {
	t.Helper()
	for _, task := range tasks {
		require.NoError(t, reg.Register(task))
	}
}

// lint is shared by every asset task and the build target (diamond).
func pipelineRegistry(t *testing.T, rec *recorder) *Registry {
	t.Helper()
	reg := NewRegistry()
	mustRegister(t, reg,
		Task{Name: "jshint", Action: rec.action("jshint")},
		Task{Name: "csslint", Action: rec.action("csslint")},
		Task{Name: "lint", Deps: []string{"jshint", "csslint"}},
		Task{Name: "css", Deps: []string{"lint"}, Action: rec.action("css", "css/bundle.css")},
		Task{Name: "html", Deps: []string{"lint"}, Action: rec.action("html", "index.html")},
		Task{Name: "bundle", Deps: []string{"lint", "css", "html"}, Action: rec.action("bundle", "bundle.js")},
		Task{Name: "build", Deps: []string{"lint", "bundle", "css"}},
	)
	return reg
}

func TestRunLintFirstAndNoDuplicates(t *testing.T) {
	rec := newRecorder()
	o, err := New(pipelineRegistry(t, rec), Options{})
	require.NoError(t, err)

	report, err := o.Run(t.Context(), "build")
	require.NoError(t, err)

	for name, n := range rec.count {
		assert.Equal(t, 1, n, "task %s ran %d times", name, n)
	}
	assert.Len(t, rec.count, 5)

	for _, dependent := range []string{"css", "html", "bundle"} {
		assert.Less(t, rec.index("jshint"), rec.index(dependent))
		assert.Less(t, rec.index("csslint"), rec.index(dependent))
	}
	assert.Less(t, rec.index("css"), rec.index("bundle"))

	assert.Equal(t, [][]string{{"csslint", "jshint"}, {"lint"}, {"css", "html"}, {"bundle"}, {"build"}}, report.Layers)
	assert.ElementsMatch(t, []string{"css/bundle.css", "index.html", "bundle.js"}, report.Written())
	assert.NotEmpty(t, report.RunID)
}

func TestRunSubsetOnlyRunsClosure(t *testing.T) {
	rec := newRecorder()
	o, err := New(pipelineRegistry(t, rec), Options{})
	require.NoError(t, err)

	_, err = o.Run(t.Context(), "css")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"jshint", "csslint", "css"}, rec.order)
}

func TestRunAbortsOnFailure(t *testing.T) {
	rec := newRecorder()
	boom := errors.New("unreadable file")

	reg := NewRegistry()
	mustRegister(t, reg,
		Task{Name: "lint", Action: rec.action("lint")},
		Task{Name: "css", Deps: []string{"lint"}, Action: func(context.Context) (Effect, error) { return Effect{}, boom }},
		Task{Name: "bundle", Deps: []string{"css"}, Action: rec.action("bundle")},
	)
	o, err := New(reg, Options{})
	require.NoError(t, err)

	report, err := o.Run(t.Context(), "bundle")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryTask))

	c, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	task, _ := c.Context().GetString("task")
	assert.Equal(t, "css", task)

	assert.Equal(t, 0, rec.count["bundle"])
	assert.Equal(t, []string{"lint", "css"}, report.Executed())
}

func TestRunLayerMembersRunConcurrently(t *testing.T) {
	var inFlight, peak atomic.Int32
	slow := func(context.Context) (Effect, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		inFlight.Add(-1)
		return Effect{}, nil
	}

	reg := NewRegistry()
	mustRegister(t, reg,
		Task{Name: "a", Action: slow},
		Task{Name: "b", Action: slow},
		Task{Name: "c", Action: slow},
		Task{Name: "all", Deps: []string{"a", "b", "c"}},
	)
	o, err := New(reg, Options{})
	require.NoError(t, err)

	_, err = o.Run(t.Context(), "all")
	require.NoError(t, err)
	assert.Greater(t, peak.Load(), int32(1))
}

func TestRunOnly(t *testing.T) {
	rec := newRecorder()
	o, err := New(pipelineRegistry(t, rec), Options{})
	require.NoError(t, err)

	report, err := o.RunOnly(t.Context(), "css", "csslint")
	require.NoError(t, err)
	assert.Equal(t, []string{"csslint", "css"}, rec.order)
	assert.Equal(t, [][]string{{"csslint"}, {"css"}}, report.Layers)

	_, err = o.RunOnly(t.Context(), "nope")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryGraph))
}

func TestRunCanceled(t *testing.T) {
	rec := newRecorder()
	o, err := New(pipelineRegistry(t, rec), Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err = o.Run(ctx, "build")
	require.Error(t, err)
	assert.Empty(t, rec.order)
}

func TestRegistryErrors(t *testing.T) {
	t.Run("duplicate", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(Task{Name: "css"}))
		err := reg.Register(Task{Name: "css"})
		require.Error(t, err)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryGraph))
	})

	t.Run("empty name", func(t *testing.T) {
		require.Error(t, NewRegistry().Register(Task{}))
	})

	t.Run("unknown dependency", func(t *testing.T) {
		reg := NewRegistry()
		mustRegister(t, reg, Task{Name: "css", Deps: []string{"lint"}})
		_, err := New(reg, Options{})
		require.Error(t, err)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryGraph))
	})

	t.Run("cycle", func(t *testing.T) {
		reg := NewRegistry()
		mustRegister(t, reg,
			Task{Name: "a", Deps: []string{"c"}},
			Task{Name: "b", Deps: []string{"a"}},
			Task{Name: "c", Deps: []string{"b"}},
			Task{Name: "d"},
		)
		err := reg.Validate()
		require.Error(t, err)
		c, ok := ferrors.AsClassified(err)
		require.True(t, ok)
		assert.Equal(t, ferrors.CategoryGraph, c.Category())
		tasks, _ := c.Context().Get("tasks")
		assert.Equal(t, []string{"a", "b", "c"}, tasks)
	})

	t.Run("unknown target", func(t *testing.T) {
		reg := NewRegistry()
		mustRegister(t, reg, Task{Name: "a"})
		_, err := reg.Plan("b")
		require.Error(t, err)
	})
}

func TestPlanAfterLateRegistration(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, Task{Name: "a"})
	require.NoError(t, reg.Validate())
	mustRegister(t, reg, Task{Name: "b", Deps: []string{"a"}})

	layers, err := reg.Plan("b")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"b"}}, layers)
	assert.Equal(t, []string{"a", "b"}, reg.Names())
}
