// Package assets implements the stateless asset tasks: copy, concatenate,
// stylesheet minification, image optimization and lint. Each constructor
// returns a taskgraph.Action bound to one file set.
package assets

import (
	"context"
	"log/slog"
	"path"
	"path/filepath"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/fsutil"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/taskgraph"
)

// Runner binds asset tasks to a project root, an output directory and the
// resolved build configuration.
type Runner struct {
	root   string
	out    string
	cfg    config.BuildConfig
	logger *slog.Logger
}

// NewRunner creates a Runner. root and outputDir must be absolute.
func NewRunner(root, outputDir string, cfg config.BuildConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		root:   root,
		out:    outputDir,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "assets")),
	}
}

// OutputDir returns the absolute output directory.
func (r *Runner) OutputDir() string { return r.out }

// Copy copies every file of set to dest/<rel> inside the output directory.
func (r *Runner) Copy(set *fileset.FileSet, dest string) taskgraph.Action {
	return func(ctx context.Context) (taskgraph.Effect, error) {
		files, err := set.Expand(r.root)
		if err != nil {
			return taskgraph.Effect{}, err
		}

		var effect taskgraph.Effect
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return effect, err
			}
			rel := path.Join(dest, f.Rel)
			if err := fsutil.CopyFile(f.Path, r.target(rel)); err != nil {
				return effect, r.writeError(err, set, rel)
			}
			effect.Written = append(effect.Written, rel)
		}
		r.logger.Debug("Copied files", logfields.FileSet(set.Name), logfields.Count(len(effect.Written)))
		return effect, nil
	}
}

// Sequence runs actions in order and merges their effects.
func Sequence(actions ...taskgraph.Action) taskgraph.Action {
	return func(ctx context.Context) (taskgraph.Effect, error) {
		var effect taskgraph.Effect
		for _, a := range actions {
			e, err := a(ctx)
			effect.Written = append(effect.Written, e.Written...)
			if err != nil {
				return effect, err
			}
		}
		return effect, nil
	}
}

func (r *Runner) target(rel string) string {
	return filepath.Join(r.out, filepath.FromSlash(rel))
}

func (r *Runner) writeError(err error, set *fileset.FileSet, rel string) error {
	return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write output file").
		WithContext("fileset", set.Name).
		WithContext("path", rel).
		Build()
}
