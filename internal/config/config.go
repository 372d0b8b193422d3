// Package config resolves the effective BuildConfig from command-line
// overrides, the optional config file and the process environment.
package config

import (
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

const (
	// DefaultRestURL is used when no source supplies a REST endpoint.
	DefaultRestURL = "/api"
	// DefaultConfigFile is looked up in the project root when --config is not given.
	DefaultConfigFile = "config.json"
	// EnvRestURL is the only environment variable consulted for BuildConfig.
	EnvRestURL = "ASSETBUILDER_REST_URL"

	DefaultSourceDir = "app"
	DefaultOutputDir = "dist"
	DefaultAddr      = ":3000"
)

// BuildConfig is the resolved, immutable configuration for one process.
// Pass it by value.
type BuildConfig struct {
	RestURL string
	Debug   bool

	SourceDir string // relative to the project root
	OutputDir string // relative to the project root
	Entry     string // bundler entry, relative to the project root
	Addr      string // dev server listen address
}

// FileValues mirrors the config file. Empty strings and a nil Debug mean
// the key is absent.
type FileValues struct {
	RestURL   string `yaml:"restUrl" json:"restUrl"`
	Debug     *bool  `yaml:"debug" json:"debug"`
	SourceDir string `yaml:"sourceDir" json:"sourceDir"`
	OutputDir string `yaml:"outputDir" json:"outputDir"`
	Entry     string `yaml:"entry" json:"entry"`
	Addr      string `yaml:"addr" json:"addr"`
}

// Overrides carries command-line values. RestURL "" and Debug nil mean the
// flag was not given.
type Overrides struct {
	RestURL string
	Debug   *bool
}

// Resolve applies the precedence CLI > file > environment > default to every
// option. It performs no I/O.
func Resolve(cli Overrides, file *FileValues, env map[string]string) BuildConfig {
	if file == nil {
		file = &FileValues{}
	}

	cfg := BuildConfig{
		RestURL:   firstNonEmpty(cli.RestURL, file.RestURL, env[EnvRestURL], DefaultRestURL),
		SourceDir: cleanRel(firstNonEmpty(file.SourceDir, DefaultSourceDir)),
		OutputDir: cleanRel(firstNonEmpty(file.OutputDir, DefaultOutputDir)),
		Addr:      firstNonEmpty(file.Addr, DefaultAddr),
	}

	switch {
	case cli.Debug != nil:
		cfg.Debug = *cli.Debug
	case file.Debug != nil:
		cfg.Debug = *file.Debug
	}

	cfg.Entry = cleanRel(firstNonEmpty(file.Entry, path.Join(cfg.SourceDir, "app.js")))
	return cfg
}

// LoadFile reads the config file at p. A missing file yields (nil, nil).
// Files ending in .json are decoded as JSON, everything else as YAML.
func LoadFile(p string) (*FileValues, error) {
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "read config file").
			Fatal().
			WithContext("path", p).
			Build()
	}

	var values FileValues
	if strings.EqualFold(filepath.Ext(p), ".json") {
		err = json.Unmarshal(data, &values)
	} else {
		err = yaml.Unmarshal(data, &values)
	}
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "parse config file").
			Fatal().
			WithContext("path", p).
			Build()
	}
	return &values, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func cleanRel(p string) string {
	return path.Clean(filepath.ToSlash(p))
}
