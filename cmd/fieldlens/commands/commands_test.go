/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: commands_test.go
Description: Tests for the FieldLens CLI commands run through the root command.
*/

package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// execute runs the root command with args and returns its standard output
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

// TestAnalyzeWritesReport tests the analyze command end to end
func TestAnalyzeWritesReport(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "users.ndjson")
	records := `{"id": 1, "active": true, "joined": "2024-03-01"}
{"id": 2, "active": false, "joined": "2024-03-02"}
{"id": 3, "active": true, "joined": "2024-03-03"}
`
	require.NoError(t, os.WriteFile(input, []byte(records), 0644))
	reportDir := filepath.Join(dir, "reports")

	out, err := execute(t, "analyze", input, "--report-dir", reportDir, "--dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Records: 3, fields: 3, failed: 0")
	assert.Contains(t, out, "rejected values: 0")

	reports, err := filepath.Glob(filepath.Join(reportDir, "*.json"))
	require.NoError(t, err)
	require.Len(t, reports, 1)
	dashboards, err := filepath.Glob(filepath.Join(reportDir, "*.html"))
	require.NoError(t, err)
	assert.Len(t, dashboards, 1)

	data, err := os.ReadFile(reports[0])
	require.NoError(t, err)
	var report struct {
		Records int64 `json:"records"`
		Fields  []struct {
			Path           string `json:"path"`
			Interpretation string `json:"interpretation"`
		} `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, int64(3), report.Records)
	interps := map[string]string{}
	for _, f := range report.Fields {
		interps[f.Path] = f.Interpretation
	}
	assert.Equal(t, map[string]string{"active": "boolean", "id": "number", "joined": "date"}, interps)
}

// TestAnalyzeStdoutYAML tests printing the report instead of writing it
func TestAnalyzeStdoutYAML(t *testing.T) {
	input := filepath.Join(t.TempDir(), "data.yaml")
	require.NoError(t, os.WriteFile(input, []byte("name: a\n---\nname: b\n"), 0644))

	out, err := execute(t, "analyze", input, "--stdout", "--report-format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "run_id:")
	assert.Contains(t, out, "path: name")
}

// TestAnalyzeMissingFile tests that unreadable inputs fail the command
func TestAnalyzeMissingFile(t *testing.T) {
	_, err := execute(t, "analyze", filepath.Join(t.TempDir(), "missing.ndjson"), "--stdout")
	assert.Error(t, err)
}

// TestClassify tests classification of JSON arguments
func TestClassify(t *testing.T) {
	out, err := execute(t, "classify", "true")
	require.NoError(t, err)
	var result struct {
		Chain []string `json:"chain"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []string{"boolean"}, result.Chain)

	out, err = execute(t, "classify", `"2024-03-01"`)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []string{"string", "date"}, result.Chain)
}

// TestClassifyYAML tests YAML output and rejection of unknown output formats
func TestClassifyYAML(t *testing.T) {
	out, err := execute(t, "classify", "true", "-o", "yaml")
	require.NoError(t, err)
	var result struct {
		Chain []string `yaml:"chain"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &result))
	assert.Equal(t, []string{"boolean"}, result.Chain)
	assert.Contains(t, out, "chain:\n  - boolean\n")

	_, err = execute(t, "classify", "true", "-o", "xml")
	assert.Error(t, err)
}

// TestParseArgument tests JSON parsing with string fallback
func TestParseArgument(t *testing.T) {
	assert.Equal(t, true, parseArgument("true", false))
	assert.Equal(t, json.Number("12"), parseArgument("12", false))
	assert.Equal(t, "12", parseArgument("12", true))
	assert.Equal(t, "hello world", parseArgument("hello world", false))
	assert.Equal(t, "1 2", parseArgument("1 2", false))
}

// TestInterpretations tests the dependency-ordered listing
func TestInterpretations(t *testing.T) {
	out, err := execute(t, "interpretations", "--schemas")
	require.NoError(t, err)
	assert.Contains(t, out, "boolean")
	assert.Contains(t, out, "follows: string")
	assert.Contains(t, out, "#FieldMetadata")

	out, err = execute(t, "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "#FieldMetadata")
	assert.Less(t, strings.Index(out, ". string "), strings.Index(out, ". date "))
}

// TestCheck tests configuration validation
func TestCheck(t *testing.T) {
	out, err := execute(t, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "6 interpretations")

	out, err = execute(t, "check", "--sample-policy", "vote")
	assert.Error(t, err)
	assert.Contains(t, out, "Configuration invalid")
}
