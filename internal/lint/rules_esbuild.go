package lint

import (
	"github.com/evanw/esbuild/pkg/api"
)

// SyntaxRule parses files with esbuild. Parse errors are errors, esbuild
// warnings (duplicate keys, suspicious comparisons, ...) are warnings.
type SyntaxRule struct {
	name   string
	loader api.Loader
	match  func(string) bool
}

// NewScriptSyntaxRule checks JavaScript sources.
func NewScriptSyntaxRule() *SyntaxRule {
	return &SyntaxRule{name: "js-syntax", loader: api.LoaderJS, match: IsScript}
}

// NewStylesheetSyntaxRule checks CSS sources.
func NewStylesheetSyntaxRule() *SyntaxRule {
	return &SyntaxRule{name: "css-syntax", loader: api.LoaderCSS, match: IsStylesheet}
}

func (r *SyntaxRule) Name() string                   { return r.name }
func (r *SyntaxRule) AppliesTo(filePath string) bool { return r.match(filePath) }

func (r *SyntaxRule) Check(filePath string, src []byte) []Issue {
	out := api.Transform(string(src), api.TransformOptions{
		Loader:     r.loader,
		Sourcefile: filePath,
		LogLevel:   api.LogLevelSilent,
	})

	issues := make([]Issue, 0, len(out.Errors)+len(out.Warnings))
	for _, msg := range out.Errors {
		issues = append(issues, r.issue(filePath, SeverityError, msg))
	}
	for _, msg := range out.Warnings {
		issues = append(issues, r.issue(filePath, SeverityWarning, msg))
	}
	return issues
}

func (r *SyntaxRule) issue(filePath string, sev Severity, msg api.Message) Issue {
	issue := Issue{FilePath: filePath, Severity: sev, Rule: r.name, Message: msg.Text}
	if msg.Location != nil {
		issue.Line = msg.Location.Line
		issue.Column = msg.Location.Column
	}
	return issue
}
