package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/livereload"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
)

type fixedStatus BuildStatus

func (f fixedStatus) LastBuild() BuildStatus { return BuildStatus(f) }

func newTestServer(t *testing.T, status StatusProvider) (*httptest.Server, *livereload.Hub) {
	t.Helper()
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("<html><body><h1>jobs</h1></body></html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(out, "bundle.js"), []byte("console.log(1);"), 0o644))

	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	hub := livereload.NewHub(rec, nil)
	s := New(Options{OutputDir: out, Hub: hub, Registry: reg, Status: status})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		hub.Shutdown()
		ts.Close()
	})
	return ts, hub
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServesPagesWithClientScript(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, body := get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html><body><h1>jobs</h1>"+livereload.Tag+"</body></html>", body)
	assert.Contains(t, resp.Header.Get("Cache-Control"), "no-cache")

	_, body = get(t, ts.URL+"/bundle.js")
	assert.Equal(t, "console.log(1);", body)

	resp, _ = get(t, ts.URL+"/missing.css")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = get(t, ts.URL+livereload.ScriptPath)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "EventSource")
}

func TestHealthAndMetrics(t *testing.T) {
	ts, hub := newTestServer(t, nil)
	hub.Broadcast(livereload.Message{Type: livereload.TypeReload})

	resp, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"healthy"}`, body)

	resp, body = get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "assetbuilder_livereload_broadcasts_total")
}

func TestStatus(t *testing.T) {
	t.Run("idle", func(t *testing.T) {
		ts, _ := newTestServer(t, nil)
		_, body := get(t, ts.URL+"/status")
		assert.JSONEq(t, `{"status":"idle"}`, body)
	})

	t.Run("ok", func(t *testing.T) {
		at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		ts, _ := newTestServer(t, fixedStatus{Source: "bundle", At: at})
		resp, body := get(t, ts.URL+"/status")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"status":"ok","source":"bundle","at":"2026-03-01T12:00:00Z"}`, body)
	})

	t.Run("compile failure", func(t *testing.T) {
		err := ferrors.CompileError("unexpected token").WithContext("module", "app/app.js").Build()
		ts, _ := newTestServer(t, fixedStatus{Source: "bundle", At: time.Now(), Err: err})
		resp, body := get(t, ts.URL+"/status")
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		var payload ferrors.HTTPErrorResponse
		require.NoError(t, json.Unmarshal([]byte(body), &payload))
		assert.Equal(t, "compile", payload.Code)
		assert.Equal(t, "app/app.js", payload.Details["module"])
	})
}

func TestStartStop(t *testing.T) {
	out := t.TempDir()
	hub := livereload.NewHub(nil, nil)
	s := New(Options{Addr: "127.0.0.1:0", OutputDir: out, Hub: hub})

	require.NoError(t, s.Start(context.Background()))
	resp, body := get(t, "http://"+s.Addr()+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"healthy"}`, body)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, 0, hub.ClientCount())
}

func TestStartBindError(t *testing.T) {
	first := New(Options{Addr: "127.0.0.1:0", OutputDir: t.TempDir()})
	require.NoError(t, first.Start(context.Background()))
	defer func() { _ = first.Stop(context.Background()) }()

	second := New(Options{Addr: first.Addr(), OutputDir: t.TempDir()})
	err := second.Start(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryRuntime))
}
