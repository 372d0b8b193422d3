package lint

import (
	"path/filepath"
	"strings"
)

// Severity indicates the importance level of a linting issue.
type Severity int

const (
	// SeverityInfo indicates informational messages.
	SeverityInfo Severity = iota
	// SeverityWarning indicates issues that should be fixed but don't fail the task.
	SeverityWarning
	// SeverityError indicates issues that fail the lint task and therefore the build.
	SeverityError
)

// String returns the human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Issue represents a single linting problem found in a file.
type Issue struct {
	FilePath string   // path as given to the linter
	Severity Severity // Issue severity level
	Rule     string   // Rule identifier (e.g., "js-syntax")
	Message  string   // Brief description of the issue
	Line     int      // Line number (0 if file-level issue)
	Column   int
}

// Result contains all issues found during linting.
type Result struct {
	Issues     []Issue
	FilesTotal int // Total files scanned
}

// HasErrors returns true if any error-level issues exist.
func (r *Result) HasErrors() bool {
	return r.ErrorCount() > 0
}

// HasWarnings returns true if any warning-level issues exist.
func (r *Result) HasWarnings() bool {
	return r.WarningCount() > 0
}

// ErrorCount returns the number of error-level issues.
func (r *Result) ErrorCount() int {
	return r.count(SeverityError)
}

// WarningCount returns the number of warning-level issues.
func (r *Result) WarningCount() int {
	return r.count(SeverityWarning)
}

func (r *Result) count(s Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == s {
			n++
		}
	}
	return n
}

// Rule defines a linting rule that can be applied to files.
type Rule interface {
	// Name returns the unique identifier for this rule.
	Name() string

	// AppliesTo returns true if this rule should be checked for the given file.
	AppliesTo(filePath string) bool

	// Check inspects the file content and returns any issues found.
	Check(filePath string, src []byte) []Issue
}

// Config contains configuration for the linter.
type Config struct {
	// Quiet suppresses warnings, only showing errors.
	Quiet bool

	// Format specifies output format (text, json).
	Format string
}

// IsScript returns true for JavaScript sources.
func IsScript(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".js")
}

// IsStylesheet returns true for CSS sources.
func IsStylesheet(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".css")
}

// lineOf returns the 1-based line of byte offset off in src.
func lineOf(src []byte, off int) int {
	return strings.Count(string(src[:off]), "\n") + 1
}
