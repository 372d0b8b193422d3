package taskgraph

import (
	"slices"
	"sort"
	"sync"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Registry owns the task declarations. Names are unique.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]Task
	depth map[string]int // populated by Validate
}

func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]Task)}
}

// Register adds a task. Empty and duplicate names are graph errors.
func (r *Registry) Register(t Task) error {
	if t.Name == "" {
		return ferrors.GraphError("task name cannot be empty").Build()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[t.Name]; exists {
		return ferrors.GraphError("duplicate task name").
			WithContext("task", t.Name).
			Build()
	}
	t.Deps = slices.Clone(t.Deps)
	r.tasks[t.Name] = t
	r.depth = nil
	return nil
}

// Get returns the named task.
func (r *Registry) Get(name string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[name]
	return t, ok
}

// Names returns all registered task names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every dependency exists and that the graph is
// acyclic (Kahn's algorithm).
func (r *Registry) Validate() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.validateLocked()
}

func (r *Registry) validateLocked() error {
	if r.depth != nil {
		return nil
	}

	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	// dependents: dep -> tasks that depend on it
	dependents := make(map[string][]string)
	inDegree := make(map[string]int)
	for _, name := range names {
		t := r.tasks[name]
		for _, dep := range t.Deps {
			if _, ok := r.tasks[dep]; !ok {
				return ferrors.GraphError("task depends on unknown task").
					WithContext("task", name).
					WithContext("dependency", dep).
					Build()
			}
			dependents[dep] = append(dependents[dep], name)
			inDegree[name]++
		}
	}

	var queue []string
	for _, name := range names {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	depth := make(map[string]int, len(names))
	visited := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		visited++

		next := dependents[current]
		sort.Strings(next)
		for _, n := range next {
			depth[n] = max(depth[n], depth[current]+1)
			inDegree[n]--
			if inDegree[n] == 0 {
				queue = append(queue, n)
			}
		}
		sort.Strings(queue)
	}

	if visited != len(names) {
		var cyclic []string
		for _, name := range names {
			if inDegree[name] > 0 {
				cyclic = append(cyclic, name)
			}
		}
		return ferrors.GraphError("circular task dependency").
			WithContext("tasks", cyclic).
			Build()
	}

	r.depth = depth
	return nil
}

// Plan returns the dependency closure of targets grouped into layers.
// A task's layer is the length of the longest dependency path below it, so
// every dependency lands in an earlier layer. Names within a layer are sorted.
func (r *Registry) Plan(targets ...string) ([][]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validateLocked(); err != nil {
		return nil, err
	}

	closure := make(map[string]bool)
	var visit func(name string)
	visit = func(name string) {
		if closure[name] {
			return
		}
		closure[name] = true
		for _, dep := range r.tasks[name].Deps {
			visit(dep)
		}
	}
	for _, target := range targets {
		if _, ok := r.tasks[target]; !ok {
			return nil, ferrors.GraphError("unknown task").
				WithContext("task", target).
				Build()
		}
		visit(target)
	}

	return r.layersLocked(closure), nil
}

// PlanOnly orders exactly the named tasks, without pulling in their
// dependencies, consistent with the full graph.
func (r *Registry) PlanOnly(names ...string) ([][]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validateLocked(); err != nil {
		return nil, err
	}

	selected := make(map[string]bool)
	for _, name := range names {
		if _, ok := r.tasks[name]; !ok {
			return nil, ferrors.GraphError("unknown task").
				WithContext("task", name).
				Build()
		}
		selected[name] = true
	}
	return r.layersLocked(selected), nil
}

func (r *Registry) layersLocked(selected map[string]bool) [][]string {
	byDepth := make(map[int][]string)
	var depths []int
	for name := range selected {
		d := r.depth[name]
		if _, ok := byDepth[d]; !ok {
			depths = append(depths, d)
		}
		byDepth[d] = append(byDepth[d], name)
	}
	sort.Ints(depths)

	layers := make([][]string, 0, len(depths))
	for _, d := range depths {
		layer := byDepth[d]
		sort.Strings(layer)
		layers = append(layers, layer)
	}
	return layers
}
