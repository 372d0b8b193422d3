package assets

import (
	"bytes"
	"context"
	"log/slog"
	"os"

	"github.com/evanw/esbuild/pkg/api"

	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/fsutil"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/taskgraph"
)

// Concat joins the files of set, in expansion order and separated by a
// newline, into target. An empty set writes nothing.
func (r *Runner) Concat(set *fileset.FileSet, target string) taskgraph.Action {
	return func(ctx context.Context) (taskgraph.Effect, error) {
		data, n, err := r.concat(set)
		if err != nil || n == 0 {
			return taskgraph.Effect{}, err
		}
		if err := fsutil.WriteFileAtomic(r.target(target), data, 0o644); err != nil {
			return taskgraph.Effect{}, r.writeError(err, set, target)
		}
		return taskgraph.Effect{Written: []string{target}}, nil
	}
}

// Stylesheet concatenates set into target and minifies the result unless
// the build runs in debug mode.
func (r *Runner) Stylesheet(set *fileset.FileSet, target string) taskgraph.Action {
	return func(ctx context.Context) (taskgraph.Effect, error) {
		data, n, err := r.concat(set)
		if err != nil || n == 0 {
			return taskgraph.Effect{}, err
		}
		raw := len(data)
		if !r.cfg.Debug {
			data, err = MinifyCSS(target, data)
			if err != nil {
				return taskgraph.Effect{}, err
			}
		}
		if err := fsutil.WriteFileAtomic(r.target(target), data, 0o644); err != nil {
			return taskgraph.Effect{}, r.writeError(err, set, target)
		}
		r.logger.Debug("Stylesheet written",
			logfields.Path(target),
			logfields.Count(n),
			logfields.Size(int64(len(data))),
			slog.Int("raw_bytes", raw))
		return taskgraph.Effect{Written: []string{target}}, nil
	}
}

func (r *Runner) concat(set *fileset.FileSet) ([]byte, int, error) {
	files, err := set.Expand(r.root)
	if err != nil {
		return nil, 0, err
	}
	var buf bytes.Buffer
	for i, f := range files {
		src, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, 0, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read input file").
				WithContext("fileset", set.Name).
				WithContext("path", f.Name).
				Build()
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(src)
	}
	return buf.Bytes(), len(files), nil
}

// MinifyCSS minifies a stylesheet with esbuild. Parse errors are task
// errors carrying the first diagnostic.
func MinifyCSS(name string, src []byte) ([]byte, error) {
	out := api.Transform(string(src), api.TransformOptions{
		Loader:           api.LoaderCSS,
		Sourcefile:       name,
		MinifyWhitespace: true,
		MinifySyntax:     true,
		LegalComments:    api.LegalCommentsNone,
		LogLevel:         api.LogLevelSilent,
	})
	if len(out.Errors) > 0 {
		msg := out.Errors[0]
		b := ferrors.TaskError("minify stylesheet").
			WithContext("path", name).
			WithContext("diagnostic", msg.Text)
		if msg.Location != nil {
			b = b.WithContext("line", msg.Location.Line)
		}
		return nil, b.Build()
	}
	return out.Code, nil
}
