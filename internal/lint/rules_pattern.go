package lint

import "regexp"

// PatternRule flags every match of a regular expression.
type PatternRule struct {
	name     string
	severity Severity
	message  string
	pattern  *regexp.Regexp
	match    func(string) bool
}

func (r *PatternRule) Name() string                   { return r.name }
func (r *PatternRule) AppliesTo(filePath string) bool { return r.match(filePath) }

func (r *PatternRule) Check(filePath string, src []byte) []Issue {
	var issues []Issue
	for _, loc := range r.pattern.FindAllIndex(src, -1) {
		issues = append(issues, Issue{
			FilePath: filePath,
			Severity: r.severity,
			Rule:     r.name,
			Message:  r.message,
			Line:     lineOf(src, loc[0]),
		})
	}
	return issues
}

// NewDebuggerRule warns about debugger statements left in scripts.
func NewDebuggerRule() *PatternRule {
	return &PatternRule{
		name:     "no-debugger",
		severity: SeverityWarning,
		message:  "forgotten 'debugger' statement",
		pattern:  regexp.MustCompile(`(?m)^\s*debugger\s*;?\s*$`),
		match:    IsScript,
	}
}

// NewImportantRule warns about !important declarations.
func NewImportantRule() *PatternRule {
	return &PatternRule{
		name:     "important",
		severity: SeverityWarning,
		message:  "use of !important",
		pattern:  regexp.MustCompile(`!\s*important`),
		match:    IsStylesheet,
	}
}

// NewEmptyRulesRule warns about rule sets without declarations.
func NewEmptyRulesRule() *PatternRule {
	return &PatternRule{
		name:     "empty-rules",
		severity: SeverityWarning,
		message:  "rule is empty",
		pattern:  regexp.MustCompile(`\{\s*\}`),
		match:    IsStylesheet,
	}
}
