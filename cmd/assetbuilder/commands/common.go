// Package commands implements the assetbuilder command line.
package commands

import (
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/eventstore"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/pipeline"
)

// Global carries state shared by every command.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config    string `short:"c" help:"Configuration file path (default: <root>/config.json)"`
	Verbose   bool   `short:"v" help:"Enable verbose logging"`
	Root      string `short:"r" default:"." help:"Project root directory"`
	RestURL   string `name:"restUrl" help:"REST endpoint substituted into scripts (overrides config and environment)"`
	Debug     *bool  `name:"debug" help:"Skip minification and image optimization"`
	HistoryDB string `name:"history-db" help:"Record build history in this sqlite database"`

	Build   BuildCmd   `cmd:"" help:"One-shot build into the output directory"`
	Watch   WatchCmd   `cmd:"" aliases:"serve" help:"Build, serve the output with live reload and rebuild on change"`
	Clean   CleanCmd   `cmd:"" help:"Empty the output directory"`
	Lint    LintCmd    `cmd:"" help:"Lint scripts and the app stylesheet"`
	History HistoryCmd `cmd:"" help:"Show recent builds recorded with --history-db"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := config.ParseLogLevel(os.Getenv(config.EnvLogLevel))
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// ResolveConfig loads the config file and env files of the project root and
// applies the command-line overrides.
func (c *CLI) ResolveConfig() (string, config.BuildConfig, error) {
	root, err := filepath.Abs(c.Root)
	if err != nil {
		return "", config.BuildConfig{}, ferrors.WrapError(err, ferrors.CategoryConfig, "resolve project root").
			WithContext("root", c.Root).
			Build()
	}
	path := c.Config
	if path == "" {
		path = filepath.Join(root, config.DefaultConfigFile)
	}
	file, err := config.LoadFile(path)
	if err != nil {
		return "", config.BuildConfig{}, err
	}

	envFiles := make([]string, 0, len(config.DefaultEnvFiles))
	for _, name := range config.DefaultEnvFiles {
		envFiles = append(envFiles, filepath.Join(root, name))
	}
	env, err := config.LoadEnv(envFiles...)
	if err != nil {
		return "", config.BuildConfig{}, err
	}

	cfg := config.Resolve(config.Overrides{RestURL: c.RestURL, Debug: c.Debug}, file, env)
	return root, cfg, nil
}

// OpenPipeline resolves the configuration and builds the project pipeline.
// The returned close func releases the history store, if any.
func (c *CLI) OpenPipeline(g *Global, mutate func(*config.BuildConfig)) (*pipeline.Pipeline, func(), error) {
	root, cfg, err := c.ResolveConfig()
	if err != nil {
		return nil, nil, err
	}
	if mutate != nil {
		mutate(&cfg)
	}
	g.Logger.Debug("Resolved configuration",
		slog.String("root", root),
		slog.String("rest_url", cfg.RestURL),
		slog.Bool("debug", cfg.Debug),
		slog.String("source_dir", cfg.SourceDir),
		slog.String("output_dir", cfg.OutputDir))

	opts := pipeline.Options{Root: root, Config: cfg, Logger: g.Logger}
	closeFn := func() {}
	if c.HistoryDB != "" {
		store, err := eventstore.NewSQLiteStore(c.HistoryDB)
		if err != nil {
			return nil, nil, err
		}
		opts.History = store
		closeFn = func() {
			if err := store.Close(); err != nil {
				g.Logger.Warn("Failed to close history store", logfields.Error(err))
			}
		}
	}

	p, err := pipeline.New(opts)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return p, closeFn, nil
}
