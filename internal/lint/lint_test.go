package lint

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func rulesOf(issues []Issue) []string {
	var out []string
	for _, i := range issues {
		out = append(out, i.Rule)
	}
	return out
}

func TestLintScripts(t *testing.T) {
	dir := t.TempDir()
	clean := writeFile(t, dir, "clean.js", "var a = 1;\nmodule.exports = a;\n")
	broken := writeFile(t, dir, "broken.js", "var a = ;\n")
	dbg := writeFile(t, dir, "dbg.js", "function f() {\n  debugger;\n}\n")

	result, err := NewLinter(nil).LintFiles([]string{clean, broken, dbg})
	require.NoError(t, err)
	assert.Equal(t, 3, result.FilesTotal)
	assert.Equal(t, 1, result.ErrorCount())
	assert.Equal(t, 1, result.WarningCount())

	var syntax, debugger Issue
	for _, issue := range result.Issues {
		switch issue.Rule {
		case "js-syntax":
			syntax = issue
		case "no-debugger":
			debugger = issue
		}
	}
	assert.Equal(t, broken, syntax.FilePath)
	assert.Equal(t, 1, syntax.Line)
	assert.Equal(t, 2, debugger.Line)

	err = result.Err("jshint")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryTask))
}

func TestLintStylesheets(t *testing.T) {
	dir := t.TempDir()
	css := writeFile(t, dir, "app.css", "body { color: red !important; }\n.empty { }\n")

	result, err := NewLinter(nil).LintFiles([]string{css})
	require.NoError(t, err)
	assert.False(t, result.HasErrors())
	assert.ElementsMatch(t, []string{"important", "empty-rules"}, rulesOf(result.Issues))
	assert.NoError(t, result.Err("csslint"))
}

func TestLintQuiet(t *testing.T) {
	dir := t.TempDir()
	css := writeFile(t, dir, "app.css", ".empty { }\n")

	result, err := NewLinter(&Config{Quiet: true}).LintFiles([]string{css})
	require.NoError(t, err)
	assert.Empty(t, result.Issues)
}

func TestLintMissingFile(t *testing.T) {
	_, err := NewLinter(nil).LintFiles([]string{filepath.Join(t.TempDir(), "gone.js")})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryTask))
}

func TestFormatters(t *testing.T) {
	result := &Result{
		FilesTotal: 2,
		Issues: []Issue{
			{FilePath: "app/app.js", Severity: SeverityError, Rule: "js-syntax", Message: "Unexpected \";\"", Line: 1, Column: 8},
			{FilePath: "app/app.css", Severity: SeverityWarning, Rule: "important", Message: "use of !important", Line: 3},
		},
	}

	var text bytes.Buffer
	require.NoError(t, NewFormatter("text").Format(&text, result, "app"))
	assert.Contains(t, text.String(), "app/app.js")
	assert.Contains(t, text.String(), "1:8 ERROR")
	assert.Contains(t, text.String(), "2 files scanned, 1 error, 1 warning")

	var out bytes.Buffer
	require.NoError(t, NewFormatter("json").Format(&out, result, "app"))
	var decoded JSONOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, 1, decoded.ErrorCount)
	assert.Equal(t, 1, decoded.WarningCount)
	require.Len(t, decoded.Issues, 2)
	assert.Equal(t, "WARNING", decoded.Issues[1].Severity)
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "INFO", SeverityInfo.String())
	assert.Equal(t, "UNKNOWN", Severity(9).String())
}
