package lint

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Formatter formats linting results for output.
type Formatter interface {
	Format(w io.Writer, result *Result, target string) error
}

// TextFormatter formats results as human-readable text.
type TextFormatter struct{}

// NewTextFormatter creates a text formatter.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

// Format outputs results in human-readable text format, grouped by file.
func (f *TextFormatter) Format(w io.Writer, result *Result, target string) error {
	if _, err := fmt.Fprintf(w, "Linting %s\n%s\n", target, strings.Repeat("━", 60)); err != nil {
		return err
	}

	issuesByFile := make(map[string][]Issue)
	var files []string
	for _, issue := range result.Issues {
		if _, ok := issuesByFile[issue.FilePath]; !ok {
			files = append(files, issue.FilePath)
		}
		issuesByFile[issue.FilePath] = append(issuesByFile[issue.FilePath], issue)
	}
	sort.Strings(files)

	for _, file := range files {
		if _, err := fmt.Fprintln(w, file); err != nil {
			return err
		}
		for _, issue := range issuesByFile[file] {
			if err := f.formatIssue(w, issue); err != nil {
				return err
			}
		}
	}

	summary := fmt.Sprintf("%d file%s scanned, %d error%s, %d warning%s",
		result.FilesTotal, pluralize(result.FilesTotal),
		result.ErrorCount(), pluralize(result.ErrorCount()),
		result.WarningCount(), pluralize(result.WarningCount()))
	_, err := fmt.Fprintf(w, "%s\n%s\n", strings.Repeat("━", 60), summary)
	return err
}

func (f *TextFormatter) formatIssue(w io.Writer, issue Issue) error {
	icon := "ℹ"
	switch issue.Severity {
	case SeverityError:
		icon = "✗"
	case SeverityWarning:
		icon = "⚠"
	}

	pos := ""
	if issue.Line > 0 {
		pos = fmt.Sprintf("%d:%d ", issue.Line, issue.Column)
	}
	_, err := fmt.Fprintf(w, "  %s %s%s: %s [%s]\n", icon, pos, issue.Severity, issue.Message, issue.Rule)
	return err
}

// JSONFormatter formats results as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// JSONOutput represents the JSON output structure.
type JSONOutput struct {
	Target       string      `json:"target"`
	FilesTotal   int         `json:"files_total"`
	ErrorCount   int         `json:"error_count"`
	WarningCount int         `json:"warning_count"`
	Issues       []JSONIssue `json:"issues"`
}

// JSONIssue represents a single issue in JSON format.
type JSONIssue struct {
	FilePath string `json:"file_path"`
	Severity string `json:"severity"`
	Rule     string `json:"rule"`
	Message  string `json:"message"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
}

// Format outputs results in JSON format.
func (f *JSONFormatter) Format(w io.Writer, result *Result, target string) error {
	output := JSONOutput{
		Target:       target,
		FilesTotal:   result.FilesTotal,
		ErrorCount:   result.ErrorCount(),
		WarningCount: result.WarningCount(),
		Issues:       []JSONIssue{},
	}
	for _, issue := range result.Issues {
		output.Issues = append(output.Issues, JSONIssue{
			FilePath: issue.FilePath,
			Severity: issue.Severity.String(),
			Rule:     issue.Rule,
			Message:  issue.Message,
			Line:     issue.Line,
			Column:   issue.Column,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// NewFormatter creates the appropriate formatter based on format string.
func NewFormatter(format string) Formatter {
	switch format {
	case "json":
		return NewJSONFormatter()
	default:
		return NewTextFormatter()
	}
}

// pluralize returns "s" if count != 1, otherwise empty string.
func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}
