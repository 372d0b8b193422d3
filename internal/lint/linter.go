// Package lint implements the static checks behind the jshint and csslint
// tasks.
package lint

import (
	"os"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Linter applies rules to files.
type Linter struct {
	cfg   *Config
	rules []Rule
}

// NewLinter creates a linter with the default script and stylesheet rules.
func NewLinter(cfg *Config) *Linter {
	return NewLinterWithRules(cfg,
		NewScriptSyntaxRule(),
		NewDebuggerRule(),
		NewStylesheetSyntaxRule(),
		NewImportantRule(),
		NewEmptyRulesRule(),
	)
}

// NewLinterWithRules creates a linter with an explicit rule list.
func NewLinterWithRules(cfg *Config, rules ...Rule) *Linter {
	if cfg == nil {
		cfg = &Config{Format: "text"}
	}
	return &Linter{cfg: cfg, rules: rules}
}

// LintFiles lints the given files. Unreadable files are task errors.
func (l *Linter) LintFiles(files []string) (*Result, error) {
	result := &Result{Issues: []Issue{}}

	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryTask, "read file for linting").
				WithContext("path", file).
				Build()
		}
		result.FilesTotal++
		l.lintFile(file, src, result)
	}
	return result, nil
}

func (l *Linter) lintFile(filePath string, src []byte, result *Result) {
	for _, rule := range l.rules {
		if !rule.AppliesTo(filePath) {
			continue
		}
		for _, issue := range rule.Check(filePath, src) {
			// Skip info and warnings in quiet mode
			if l.cfg.Quiet && issue.Severity != SeverityError {
				continue
			}
			result.Issues = append(result.Issues, issue)
		}
	}
}

// Err returns a task error when the result has error-level issues.
func (r *Result) Err(task string) error {
	if !r.HasErrors() {
		return nil
	}
	first := Issue{}
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			first = issue
			break
		}
	}
	return ferrors.TaskError("lint errors found").
		WithContext("task", task).
		WithContext("errors", r.ErrorCount()).
		WithContext("first", first.FilePath+": "+first.Message).
		Build()
}
