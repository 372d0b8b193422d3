package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	foundationerrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// DefaultEnvFiles are read in order; later files override earlier ones.
var DefaultEnvFiles = []string{".env", ".env.local"}

// LoadEnv returns the environment seen by Resolve: values from the given env
// files, overlaid by the process environment. Missing files are skipped.
func LoadEnv(files ...string) (map[string]string, error) {
	env := make(map[string]string)

	for _, name := range files {
		values, err := godotenv.Read(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "parse env file").
				Fatal().
				WithContext("path", name).
				Build()
		}
		slog.Debug("Loaded environment file", logfields.Path(name), logfields.Count(len(values)))
		for k, v := range values {
			env[k] = v
		}
	}

	// Process environment wins over files.
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env, nil
}
