package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/mhollis/baselint"
)

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	got := findRepoRoot(root)
	assert.Equal(t, root, got)
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	deep := filepath.Join(root, "sub", "deep")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}

	got := findRepoRoot(deep)
	assert.Equal(t, root, got)
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	// A fresh TempDir sits outside any repository, barring an
	// initialized /tmp.
	dir := t.TempDir()

	got := findRepoRoot(dir)
	assert.Equal(t, dir, got)
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("text"))
	assert.NoError(t, validateFormat("json"))
	assert.Error(t, validateFormat("yaml"))
}

func TestResolveDBPath(t *testing.T) {
	old := flagDB
	t.Cleanup(func() { flagDB = old })

	flagDB = ""
	assert.Equal(t, filepath.Join("/repo", ".baselint", "audit.db"), resolveDBPath("/repo"))

	flagDB = "custom.db"
	assert.Equal(t, filepath.Join("/repo", "custom.db"), resolveDBPath("/repo"))

	flagDB = filepath.Join(string(filepath.Separator), "abs", "custom.db")
	assert.Equal(t, flagDB, resolveDBPath("/repo"))
}

func plainOutput(t *testing.T) {
	t.Helper()
	old := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = old })
}

func TestFormatCheckText(t *testing.T) {
	plainOutput(t)

	files := []CLIFileCheck{{
		Path:     "app.css",
		Language: "css",
		Findings: []baselint.Finding{{
			Range: baselint.Range{
				Start: baselint.Position{Line: 0, Column: 7},
				End:   baselint.Position{Line: 0, Column: 12},
			},
			FeatureID:   "css.properties.float",
			FeatureName: "float",
			Reason:      baselint.ReasonUnsupported,
			Severity:    baselint.SeverityWarning,
			Message:     "float is not a Baseline feature",
		}},
		Features: 1,
	}}

	var buf bytes.Buffer
	formatCheckText(&buf, files)
	out := buf.String()

	assert.Contains(t, out, "app.css")
	assert.Contains(t, out, "1:8")
	assert.Contains(t, out, "warning")
	assert.Contains(t, out, "float is not a Baseline feature")
	assert.Contains(t, out, "(css.properties.float)")
	assert.Contains(t, out, "1 finding(s) in 1 file(s), 1 unsupported")
}

func TestFormatCheckText_NoFindings(t *testing.T) {
	plainOutput(t)

	files := []CLIFileCheck{
		{Path: "a.css", Language: "css"},
		{Path: "b.css", Language: "css"},
	}

	var buf bytes.Buffer
	formatCheckText(&buf, files)
	assert.Contains(t, buf.String(), "No findings in 2 file(s)")
}

func TestFormatFeatureText(t *testing.T) {
	plainOutput(t)

	rec := &baselint.Record{
		ID:     "api.fetch",
		Name:   "Fetch",
		Status: baselint.Status{Baseline: baselint.LevelHigh},
		DocURL: "https://developer.mozilla.org/docs/Web/API/Fetch_API",
	}

	var buf bytes.Buffer
	formatFeatureText(&buf, rec)
	out := buf.String()

	assert.Contains(t, out, "Fetch")
	assert.Contains(t, out, "(api.fetch)")
	assert.Contains(t, out, "widely available")
	assert.Contains(t, out, "https://developer.mozilla.org/docs/Web/API/Fetch_API")
}

func TestDisplayPath(t *testing.T) {
	t.Parallel()
	cwd := filepath.Join(string(filepath.Separator), "work", "repo")

	assert.Equal(t, filepath.Join("src", "app.css"), displayPath(cwd, filepath.Join(cwd, "src", "app.css")))
	outside := filepath.Join(string(filepath.Separator), "elsewhere", "x.css")
	assert.Equal(t, outside, displayPath(cwd, outside))
}
