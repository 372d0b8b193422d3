package assets

import (
	"context"

	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	"git.home.luguber.info/inful/assetbuilder/internal/lint"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/taskgraph"
)

// Lint checks the files of set. Warnings are logged; error diagnostics
// fail the task. Lint writes no output.
func (r *Runner) Lint(task string, set *fileset.FileSet, linter *lint.Linter) taskgraph.Action {
	if linter == nil {
		linter = lint.NewLinter(nil)
	}
	return func(ctx context.Context) (taskgraph.Effect, error) {
		files, err := set.Expand(r.root)
		if err != nil {
			return taskgraph.Effect{}, err
		}
		paths := make([]string, 0, len(files))
		for _, f := range files {
			paths = append(paths, f.Path)
		}

		result, err := linter.LintFiles(paths)
		if err != nil {
			return taskgraph.Effect{}, err
		}
		for _, issue := range result.Issues {
			attrs := []any{
				logfields.Task(task),
				logfields.Path(issue.FilePath),
				"rule", issue.Rule,
				"line", issue.Line,
			}
			if issue.Severity == lint.SeverityError {
				r.logger.Error(issue.Message, attrs...)
			} else {
				r.logger.Warn(issue.Message, attrs...)
			}
		}
		return taskgraph.Effect{}, result.Err(task)
	}
}
