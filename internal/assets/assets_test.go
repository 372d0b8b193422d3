package assets

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func newRunner(t *testing.T, debug bool) (*Runner, string, string) {
	t.Helper()
	root := t.TempDir()
	out := filepath.Join(root, "dist")
	return NewRunner(root, out, config.BuildConfig{RestURL: "/api", Debug: debug}, nil), root, out
}

func readOut(t *testing.T, out, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

const (
	cssA = "body {\n  margin: 0;\n  padding: 0;\n}\n"
	cssB = "/* theme */\n.header {\n  color: #ffffff;\n  background-color: #000000;\n}\n"
)

func TestStylesheetMinifiedIsSmaller(t *testing.T) {
	r, root, out := newRunner(t, false)
	writeTree(t, root, map[string]string{"app/a.css": cssA, "app/b.css": cssB})
	set := fileset.MustNew("css", "app/a.css", "app/b.css")

	effect, err := r.Stylesheet(set, "css/bundle.css")(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"css/bundle.css"}, effect.Written)

	got := readOut(t, out, "css/bundle.css")
	assert.Less(t, len(got), len(cssA)+1+len(cssB))
	assert.Contains(t, got, ".header{")
	assert.NotContains(t, got, "/* theme */")
}

func TestStylesheetDebugIsPlainConcat(t *testing.T) {
	r, root, out := newRunner(t, true)
	writeTree(t, root, map[string]string{"app/a.css": cssA, "app/b.css": cssB})
	set := fileset.MustNew("css", "app/b.css", "app/a.css")

	_, err := r.Stylesheet(set, "css/bundle.css")(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cssB+"\n"+cssA, readOut(t, out, "css/bundle.css"))
}

func TestStylesheetMissingLiteralFails(t *testing.T) {
	r, _, out := newRunner(t, false)
	set := fileset.MustNew("css", "app/missing.css")

	_, err := r.Stylesheet(set, "css/bundle.css")(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryTask))
	assert.NoFileExists(t, filepath.Join(out, "css", "bundle.css"))
}

func TestCopyWithBase(t *testing.T) {
	r, root, out := newRunner(t, false)
	writeTree(t, root, map[string]string{
		"app/index.html":              "<html></html>",
		"app/views/jobs.html":         "<div></div>",
		"app/e2e-tests/runner.html":   "<x/>",
		"app/bower_components/x.html": "<y/>",
	})
	set := fileset.MustNew("html", "app/**/*.html", "!app/e2e-tests/**", "!app/bower_components/**").WithBase("app")

	effect, err := r.Copy(set, "")(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"index.html", "views/jobs.html"}, effect.Written)
	assert.Equal(t, "<div></div>", readOut(t, out, "views/jobs.html"))
	assert.NoFileExists(t, filepath.Join(out, "e2e-tests", "runner.html"))
}

func TestCopyIntoSubdir(t *testing.T) {
	r, root, out := newRunner(t, false)
	writeTree(t, root, map[string]string{
		"app/bower_components/bootstrap/dist/fonts/a.woff": "a",
		"app/bower_components/bootstrap/dist/fonts/b.ttf":  "b",
	})
	set := fileset.MustNew("bootstrap-font", "app/bower_components/bootstrap/dist/fonts/*")

	effect, err := r.Copy(set, "fonts")(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"fonts/a.woff", "fonts/b.ttf"}, effect.Written)
	assert.Equal(t, "b", readOut(t, out, "fonts/b.ttf"))
}

func TestLicenseSequence(t *testing.T) {
	r, root, out := newRunner(t, false)
	writeTree(t, root, map[string]string{
		"app/LICENSE.txt":                    "project",
		"app/bower_components/a/LICENSE":     "license a",
		"app/bower_components/b/LICENSE.txt": "license b",
	})
	third := fileset.MustNew("third-party-license", "app/bower_components/**/*LICENSE*")
	own := fileset.MustNew("license", "app/LICENSE.txt")

	effect, err := Sequence(r.Concat(third, "3rd-party-LICENSE.txt"), r.Copy(own, ""))(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"3rd-party-LICENSE.txt", "LICENSE.txt"}, effect.Written)
	assert.Equal(t, "license a\nlicense b", readOut(t, out, "3rd-party-LICENSE.txt"))
	assert.Equal(t, "project", readOut(t, out, "LICENSE.txt"))
}

func TestConcatEmptySetWritesNothing(t *testing.T) {
	r, _, out := newRunner(t, false)
	set := fileset.MustNew("third-party-license", "app/bower_components/**/*LICENSE*")

	effect, err := r.Concat(set, "3rd-party-LICENSE.txt")(context.Background())
	require.NoError(t, err)
	assert.Empty(t, effect.Written)
	assert.NoFileExists(t, filepath.Join(out, "3rd-party-LICENSE.txt"))
}

func uncompressedPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	require.NoError(t, enc.Encode(&buf, img))
	return buf.Bytes()
}

func TestImagesOptimizePNG(t *testing.T) {
	raw := uncompressedPNG(t)

	r, root, out := newRunner(t, false)
	writeTree(t, root, map[string]string{"app/img/logo.png": string(raw), "app/img/icon.svg": "<svg/>"})
	set := fileset.MustNew("img", "app/img/**")

	effect, err := r.Images(set, "img")(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"img/icon.svg", "img/logo.png"}, effect.Written)

	got := readOut(t, out, "img/logo.png")
	assert.Less(t, len(got), len(raw))
	_, err = png.Decode(bytes.NewReader([]byte(got)))
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", readOut(t, out, "img/icon.svg"))
}

func TestImagesDebugCopiesVerbatim(t *testing.T) {
	raw := uncompressedPNG(t)

	r, root, out := newRunner(t, true)
	writeTree(t, root, map[string]string{"app/img/logo.png": string(raw)})

	_, err := r.Images(fileset.MustNew("img", "app/img/**"), "img")(context.Background())
	require.NoError(t, err)
	assert.Equal(t, string(raw), readOut(t, out, "img/logo.png"))
}

func TestOptimizePNGKeepsSmallerOriginal(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	require.NoError(t, enc.Encode(&buf, img))

	out, err := OptimizePNG(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), out)

	_, err = OptimizePNG([]byte("not a png"))
	assert.Error(t, err)
}

func TestLintTask(t *testing.T) {
	r, root, _ := newRunner(t, false)
	writeTree(t, root, map[string]string{
		"app/app.js":           "var x = require('./util');\n",
		"app/util.js":          "module.exports = 1;\n",
		"app/util.test.js":     "this is not javascript",
		"app/broken/broken.js": "function (",
	})

	clean := fileset.MustNew("scripts", "app/**/*.js", "!app/**/*test.js", "!app/broken/**")
	effect, err := r.Lint("jshint", clean, nil)(context.Background())
	require.NoError(t, err)
	assert.Empty(t, effect.Written)

	dirty := fileset.MustNew("scripts", "app/**/*.js", "!app/**/*test.js")
	_, err = r.Lint("jshint", dirty, nil)(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryTask))
}

func TestCanceledContextStopsCopy(t *testing.T) {
	r, root, _ := newRunner(t, false)
	writeTree(t, root, map[string]string{"app/a.html": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Copy(fileset.MustNew("html", "app/*.html"), "")(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
