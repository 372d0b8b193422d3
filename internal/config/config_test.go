package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

func boolPtr(b bool) *bool { return &b }

func TestResolveRestURLScenario(t *testing.T) {
	file := &FileValues{RestURL: "/v2"}

	cfg := Resolve(Overrides{}, file, map[string]string{})
	assert.Equal(t, "/v2", cfg.RestURL)

	cfg = Resolve(Overrides{RestURL: "/v3"}, file, map[string]string{})
	assert.Equal(t, "/v3", cfg.RestURL)
}

func TestResolvePrecedence(t *testing.T) {
	env := map[string]string{EnvRestURL: "/from-env"}

	tests := []struct {
		name      string
		cli       Overrides
		file      *FileValues
		env       map[string]string
		wantURL   string
		wantDebug bool
	}{
		{name: "defaults", wantURL: "/api", wantDebug: false},
		{name: "env only", env: env, wantURL: "/from-env"},
		{name: "file beats env", file: &FileValues{RestURL: "/file", Debug: boolPtr(true)}, env: env, wantURL: "/file", wantDebug: true},
		{name: "cli beats file and env", cli: Overrides{RestURL: "/cli", Debug: boolPtr(false)}, file: &FileValues{RestURL: "/file", Debug: boolPtr(true)}, env: env, wantURL: "/cli", wantDebug: false},
		{name: "empty file value is absent", file: &FileValues{RestURL: ""}, env: env, wantURL: "/from-env"},
		{name: "cli debug without url", cli: Overrides{Debug: boolPtr(true)}, wantURL: "/api", wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Resolve(tt.cli, tt.file, tt.env)
			assert.Equal(t, tt.wantURL, cfg.RestURL)
			assert.Equal(t, tt.wantDebug, cfg.Debug)
		})
	}
}

// The CLI value wins for every combination of lower tiers.
func TestResolveCLIAlwaysWins(t *testing.T) {
	files := []*FileValues{nil, {}, {RestURL: "/f", Debug: boolPtr(true)}, {Debug: boolPtr(false)}}
	envs := []map[string]string{nil, {}, {EnvRestURL: "/e"}}

	for _, f := range files {
		for _, e := range envs {
			for _, d := range []bool{true, false} {
				cfg := Resolve(Overrides{RestURL: "/c", Debug: boolPtr(d)}, f, e)
				assert.Equal(t, "/c", cfg.RestURL)
				assert.Equal(t, d, cfg.Debug)
			}
		}
	}
}

func TestResolveLayout(t *testing.T) {
	cfg := Resolve(Overrides{}, nil, nil)
	assert.Equal(t, "app", cfg.SourceDir)
	assert.Equal(t, "dist", cfg.OutputDir)
	assert.Equal(t, "app/app.js", cfg.Entry)
	assert.Equal(t, ":3000", cfg.Addr)

	cfg = Resolve(Overrides{}, &FileValues{SourceDir: "./web/", OutputDir: "public", Addr: "127.0.0.1:8080"}, nil)
	assert.Equal(t, "web", cfg.SourceDir)
	assert.Equal(t, "public", cfg.OutputDir)
	assert.Equal(t, "web/app.js", cfg.Entry)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		values, err := LoadFile(filepath.Join(dir, "config.json"))
		require.NoError(t, err)
		assert.Nil(t, values)
	})

	t.Run("json", func(t *testing.T) {
		p := filepath.Join(dir, "config.json")
		require.NoError(t, os.WriteFile(p, []byte("{\n\t\"restUrl\": \"/v2\",\n\t\"debug\": true\n}\n"), 0o600))

		values, err := LoadFile(p)
		require.NoError(t, err)
		require.NotNil(t, values)
		assert.Equal(t, "/v2", values.RestURL)
		require.NotNil(t, values.Debug)
		assert.True(t, *values.Debug)
	})

	t.Run("yaml", func(t *testing.T) {
		p := filepath.Join(dir, "assetbuilder.yaml")
		require.NoError(t, os.WriteFile(p, []byte("restUrl: /v4\noutputDir: build\n"), 0o600))

		values, err := LoadFile(p)
		require.NoError(t, err)
		assert.Equal(t, "/v4", values.RestURL)
		assert.Equal(t, "build", values.OutputDir)
		assert.Nil(t, values.Debug)
	})

	t.Run("malformed", func(t *testing.T) {
		p := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(p, []byte("{\"restUrl\": "), 0o600))

		_, err := LoadFile(p)
		require.Error(t, err)
		assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
	})
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	localFile := filepath.Join(dir, ".env.local")
	require.NoError(t, os.WriteFile(envFile, []byte("ASSETBUILDER_TEST_A=one\nASSETBUILDER_TEST_B=two\n"), 0o600))
	require.NoError(t, os.WriteFile(localFile, []byte("ASSETBUILDER_TEST_B=local\n"), 0o600))

	t.Setenv("ASSETBUILDER_TEST_A", "process")

	env, err := LoadEnv(envFile, localFile, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "process", env["ASSETBUILDER_TEST_A"])
	assert.Equal(t, "local", env["ASSETBUILDER_TEST_B"])
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", ParseLogLevel("debug").String())
	assert.Equal(t, "WARN", ParseLogLevel(" Warn ").String())
	assert.Equal(t, "ERROR", ParseLogLevel("error").String())
	assert.Equal(t, "INFO", ParseLogLevel("bogus").String())
}
