// Package bundler builds the single script artifact from a CommonJS module
// graph. It keeps a per-module cache between runs and recompiles only
// modules whose source changed.
package bundler

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/events"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/fsutil"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
)

// DefaultArtifact is the artifact name inside the output directory.
const DefaultArtifact = "bundle.js"

// Options configures a Bundler.
type Options struct {
	Root      string // project root
	Entry     string // entry module, relative to Root
	OutputDir string // absolute output directory
	Artifact  string // file name inside OutputDir, defaults to bundle.js
	Config    config.BuildConfig

	// Bus receives events.ArtifactsUpdated after every successful bundle.
	Bus      *events.Bus
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// Result is the outcome of one successful Bundle call.
type Result struct {
	Artifact string   // absolute path of the written artifact
	Compiled []string // module IDs recompiled in this run
	Reused   []string // module IDs served from the cache
	Size     int
}

// Bundler owns the module cache. Bundle calls are serialized.
type Bundler struct {
	opts     Options
	entry    string
	subst    *strings.Replacer
	resolver resolver
	logger   *slog.Logger
	recorder metrics.Recorder

	mu    sync.Mutex
	cache map[string]*module
}

// New returns a Bundler with an empty cache.
func New(opts Options) *Bundler {
	if opts.Artifact == "" {
		opts.Artifact = DefaultArtifact
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bundler{
		opts:     opts,
		entry:    path.Clean(filepath.ToSlash(opts.Entry)),
		subst:    newSubstituter(opts.Config),
		resolver: resolver{root: opts.Root},
		logger:   logger.With(slog.String("component", "bundler")),
		recorder: metrics.OrNoop(opts.Recorder),
		cache:    make(map[string]*module),
	}
}

// ArtifactPath returns the absolute artifact path.
func (b *Bundler) ArtifactPath() string {
	return filepath.Join(b.opts.OutputDir, b.opts.Artifact)
}

// Bundle walks the module graph from the entry, recompiling changed modules,
// and atomically replaces the artifact. On error the artifact on disk and
// the failing module's cache entry are left as they were. A call that
// arrives while another runs waits for it; a started bundle is not
// interrupted by ctx.
func (b *Bundler) Bundle(ctx context.Context) (*Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	res, err := b.bundleLocked()
	d := time.Since(start)

	if err != nil {
		b.recorder.ObserveBundleDuration(d, metrics.ResultFailed)
		attrs := []any{logfields.Error(err), logfields.DurationMS(float64(d.Milliseconds()))}
		if c, ok := ferrors.AsClassified(err); ok {
			if id, ok := c.Context().GetString("module"); ok {
				attrs = append(attrs, logfields.Module(id))
			}
		}
		b.logger.Error("Bundle failed, keeping previous artifact", attrs...)
		return nil, err
	}

	b.recorder.ObserveBundleDuration(d, metrics.ResultSuccess)
	b.recorder.AddModules(len(res.Compiled), len(res.Reused))
	b.recorder.SetBundleSize(res.Size)
	b.logger.Info("Bundle written",
		logfields.Path(res.Artifact),
		slog.Int("compiled", len(res.Compiled)),
		slog.Int("reused", len(res.Reused)),
		logfields.Size(int64(res.Size)),
		logfields.DurationMS(float64(d.Milliseconds())))

	if b.opts.Bus != nil {
		evt := events.ArtifactsUpdated{
			Paths:     []string{filepath.ToSlash(b.opts.Artifact)},
			Source:    "bundle",
			UpdatedAt: time.Now(),
		}
		if err := b.opts.Bus.Publish(ctx, evt); err != nil {
			b.logger.Warn("Failed to publish artifact update", logfields.Error(err))
		}
	}
	return res, nil
}

func (b *Bundler) bundleLocked() (*Result, error) {
	if !b.resolver.isFile(b.entry) {
		return nil, ferrors.CompileError("entry module not found").
			WithContext("module", b.entry).
			Build()
	}

	reachable := make(map[string]*module)
	var compiled, reused []string

	queue := []string{b.entry}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, done := reachable[id]; done {
			continue
		}

		src, err := os.ReadFile(b.resolver.abs(id))
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryCompile, "read module").
				UserAction().
				WithContext("module", id).
				Build()
		}

		m, ok := b.cache[id]
		if ok && m.hash == hashSource(src) && b.depsCurrent(id, m) {
			reused = append(reused, id)
		} else {
			m, err = compileModule(id, src, b.subst, b.resolver)
			if err != nil {
				return nil, err
			}
			// Valid for its content hash even if a later module fails.
			b.cache[id] = m
			compiled = append(compiled, id)
			b.logger.Debug("Module compiled", logfields.Module(id))
		}

		reachable[id] = m
		queue = append(queue, m.depIDs()...)
	}

	artifact, err := emit(b.entry, reachable, b.opts.Config.Debug)
	if err != nil {
		return nil, err
	}

	out := b.ArtifactPath()
	if err := fsutil.WriteFileAtomic(out, artifact, 0o644); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "write bundle").
			WithContext("path", out).
			Build()
	}

	// Modules no longer reachable from the entry leave the cache.
	for id := range b.cache {
		if _, ok := reachable[id]; !ok {
			delete(b.cache, id)
		}
	}

	sort.Strings(compiled)
	sort.Strings(reused)
	return &Result{Artifact: out, Compiled: compiled, Reused: reused, Size: len(artifact)}, nil
}

// depsCurrent reports whether every require of a cached module still
// resolves to the module it resolved to when compiled. A new file can
// shadow an old target without touching the requiring module.
func (b *Bundler) depsCurrent(id string, m *module) bool {
	for spec, target := range m.deps {
		if got, ok := b.resolver.resolve(id, spec); !ok || got != target {
			return false
		}
	}
	return true
}

// Invalidate drops the whole cache; the next Bundle recompiles everything.
// The pipeline calls it when the output directory is cleaned.
func (b *Bundler) Invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache = make(map[string]*module)
}

// CachedModules returns the IDs held in the cache, sorted.
func (b *Bundler) CachedModules() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.cache))
	for id := range b.cache {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
