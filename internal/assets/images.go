package assets

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/fsutil"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/taskgraph"
)

// Images copies set to dest. Outside debug mode PNG files are re-encoded
// at best compression and the smaller of the two encodings is written.
func (r *Runner) Images(set *fileset.FileSet, dest string) taskgraph.Action {
	if r.cfg.Debug {
		return r.Copy(set, dest)
	}
	return func(ctx context.Context) (taskgraph.Effect, error) {
		files, err := set.Expand(r.root)
		if err != nil {
			return taskgraph.Effect{}, err
		}

		var effect taskgraph.Effect
		var saved int64
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return effect, err
			}
			rel := path.Join(dest, f.Rel)
			if !strings.EqualFold(path.Ext(f.Name), ".png") {
				if err := fsutil.CopyFile(f.Path, r.target(rel)); err != nil {
					return effect, r.writeError(err, set, rel)
				}
				effect.Written = append(effect.Written, rel)
				continue
			}

			src, err := os.ReadFile(f.Path)
			if err != nil {
				return effect, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read image").
					WithContext("path", f.Name).
					Build()
			}
			out, err := OptimizePNG(src)
			if err != nil {
				r.logger.Warn("PNG not optimized, copying as is", logfields.Path(f.Name), logfields.Error(err))
				out = src
			}
			saved += int64(len(src) - len(out))
			if err := fsutil.WriteFileAtomic(r.target(rel), out, 0o644); err != nil {
				return effect, r.writeError(err, set, rel)
			}
			effect.Written = append(effect.Written, rel)
		}
		r.logger.Debug("Images written",
			logfields.FileSet(set.Name),
			logfields.Count(len(effect.Written)),
			logfields.Size(saved))
		return effect, nil
	}
}

// OptimizePNG re-encodes src with the best compression level. It returns
// src unchanged when the re-encoded image is not smaller.
func OptimizePNG(src []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	if buf.Len() >= len(src) {
		return src, nil
	}
	return buf.Bytes(), nil
}
