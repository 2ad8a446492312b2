package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixbrock/promptstudio/internal/domain"
	"github.com/felixbrock/promptstudio/internal/history"
	"github.com/felixbrock/promptstudio/internal/persistence"
)

const completion = "```json\n" + `{
  "analysis": {"qualityScore": 82, "clarityScore": 80, "specificityScore": 78, "intent": "summarize", "language": "en"},
  "variants": {"generic": "Summarize the article in 3 bullet points."}
}` + "\n```"

// writeConfig writes a config that keeps history as JSON files under dir.
func writeConfig(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "promptstudio.yaml")
	content := "log:\n  mode: prod\ncompletion:\n  provider: none\nhistory:\n  backend: file\n  path: " + filepath.Join(dir, "history") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, cfgPath, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestExtractFile(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	input := filepath.Join(dir, "completion.txt")
	require.NoError(t, os.WriteFile(input, []byte(completion), 0o600))

	out, _, err := run(t, cfg, "", "extract", input)
	require.NoError(t, err)

	var result domain.OptimizationResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 82.0, result.Analysis.QualityScore)
	assert.Equal(t, "Summarize the article in 3 bullet points.", result.Variants.Generic())
}

func TestExtractStdinReportsFieldErrors(t *testing.T) {
	cfg := writeConfig(t, t.TempDir())
	raw := `{"analysis": {"qualityScore": 20, "clarityScore": 95, "specificityScore": 90, "intent": "x", "language": "en"}, "variants": {"generic": "g"}}`

	_, stderr, err := run(t, cfg, raw, "extract", "-")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "consistency")
	assert.Contains(t, stderr, "analysis.qualityScore")
}

func TestDiff(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	before := filepath.Join(dir, "before.txt")
	after := filepath.Join(dir, "after.txt")
	require.NoError(t, os.WriteFile(before, []byte("a\nb\nc"), 0o600))
	require.NoError(t, os.WriteFile(after, []byte("a\nB\nc\nd"), 0o600))

	out, _, err := run(t, cfg, "", "diff", "--original", before, "--optimized", after)
	require.NoError(t, err)
	assert.Contains(t, out, "+2 -1 =2")
	assert.Contains(t, out, "+    2 B")

	out, _, err = run(t, cfg, "", "diff", "--original", before, "--optimized", after, "--mode", "lcs", "--json")
	require.NoError(t, err)
	var report domain.DiffReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, domain.DiffCounts{Added: 2, Removed: 1, Unchanged: 2}, report.Counts)

	_, _, err = run(t, cfg, "", "diff", "--original", before, "--optimized", after, "--mode", "myers")
	assert.Error(t, err)
}

func TestHistoryCommands(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)

	store, err := persistence.NewFileStore(filepath.Join(dir, "history"), nil)
	require.NoError(t, err)
	l := history.New(store, history.DefaultKey+":abc", 0, nil)

	ids := make([]string, 0, 2)
	for _, prompt := range []string{"first prompt", "second prompt"} {
		entry, err := history.NewEntry(prompt, "", domain.OptimizationResult{
			Analysis: domain.Analysis{QualityScore: 70, Intent: "x", Language: "en", Assumptions: []string{}},
			Variants: domain.VariantSet{domain.VariantGeneric: "better " + prompt},
		}, time.Now())
		require.NoError(t, err)
		l.Append(context.Background(), entry)
		ids = append(ids, entry.Id)
	}

	out, _, err := run(t, cfg, "", "history", "list", "--client", "abc", "--json")
	require.NoError(t, err)
	var entries []domain.HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, ids[1], entries[0].Id)

	out, _, err = run(t, cfg, "", "history", "delete", ids[0], "--client", "abc")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted "+ids[0])

	_, _, err = run(t, cfg, "", "history", "delete", ids[0], "--client", "abc")
	assert.Error(t, err)

	out, _, err = run(t, cfg, "", "history", "list", "--client", "abc")
	require.NoError(t, err)
	assert.Contains(t, out, "second prompt")
	assert.NotContains(t, out, "first prompt")

	_, _, err = run(t, cfg, "", "history", "clear", "--client", "abc")
	require.NoError(t, err)

	out, _, err = run(t, cfg, "", "history", "list", "--client", "abc")
	require.NoError(t, err)
	assert.Contains(t, out, "No optimizations yet.")
}

func TestOptimizeWithoutProvider(t *testing.T) {
	cfg := writeConfig(t, t.TempDir())

	_, _, err := run(t, cfg, "", "optimize", "--prompt", "summarize this article")
	require.Error(t, err)
	assert.ErrorIs(t, err, errNoProvider)

	_, _, err = run(t, cfg, "", "optimize", "--prompt", "hi")
	assert.ErrorContains(t, err, "too short")
}

func TestInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("history:\n  backend: postgres\n"), 0o600))

	_, _, err := run(t, path, "", "history", "list")
	assert.ErrorContains(t, err, "history.backend")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("  short  ", 10))
	assert.Equal(t, "first", preview("first\nsecond", 10))
	assert.Equal(t, "abcd…", preview("abcdefgh", 5))
}
