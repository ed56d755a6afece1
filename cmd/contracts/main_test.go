package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-extractor/internal/entity"
	"github.com/joseph-ayodele/contract-extractor/internal/llm"
)

type fakeService struct{}

func (fakeService) ExtractFields(_ context.Context, req llm.FieldRequest) (llm.RawAnswer, []byte, error) {
	ans := llm.RawAnswer{}
	for _, f := range req.FieldNames() {
		ans[f] = ""
		if f == "buyer" {
			ans[f] = "Acme Inc."
		}
	}
	return ans, nil, nil
}

type workspace struct {
	dir    string
	config string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	dir := t.TempDir()
	cfg := "llm:\n  api_key: test\n" +
		"ledger:\n  driver: sqlite\n  dsn: " + filepath.Join(dir, "ledger.db") + "\n" +
		"store:\n  path: " + filepath.Join(dir, "contracts.tsv") + "\n" +
		"batch:\n  backoff_base: 1ms\n  rate_limit_backoff_base: 1ms\n" +
		"log:\n  level: error\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))

	textService = fakeService{}
	t.Cleanup(func() { textService = nil })
	return workspace{dir: dir, config: path}
}

func (w workspace) writeDoc(t *testing.T, name, url string) string {
	t.Helper()
	doc := entity.ContractDocument{
		URL:      url,
		Metadata: entity.Metadata{Type: "EX-10.1", Form: "8-K", Date: "5/26/25"},
		Sections: []entity.Section{
			{Number: "0", Title: "Preamble", Text: "Agreement between Acme Inc. and Globex LLC."},
			{Number: "1", Title: "Payment", Text: "Buyer pays $100 per month."},
		},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(w.dir, "docs", name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

// run executes the CLI in-process. Flag state is reset between calls since the
// command tree is package level.
func (w workspace) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--config", w.config}, args...))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestExtractDryRunLeavesStoreUntouched(t *testing.T) {
	w := newWorkspace(t)
	doc := w.writeDoc(t, "a.json", "https://e.com/a")

	out, err := w.run(t, "extract", "--dry-run", doc)
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "acme", rec["buyer"])
	assert.Equal(t, "https://e.com/a", rec["url"])
	assert.Equal(t, "10.1", rec["exhibit"])
	assert.NotContains(t, rec, "idx")
	assert.NoFileExists(t, filepath.Join(w.dir, "contracts.tsv"))
}

func TestExtractCommitsOnce(t *testing.T) {
	w := newWorkspace(t)
	doc := w.writeDoc(t, "a.json", "https://e.com/a")

	out, err := w.run(t, "extract", doc)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.EqualValues(t, 0, rec["idx"])

	out, err = w.run(t, "extract", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "already extracted as idx 0")

	out, err = w.run(t, "ledger", "show", "https://e.com/a")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "succeeded"`)
}

func TestBatchDirectoryThenExport(t *testing.T) {
	w := newWorkspace(t)
	w.writeDoc(t, "a.json", "https://e.com/a")
	w.writeDoc(t, "b.json", "https://e.com/b")
	broken := filepath.Join(w.dir, "docs", "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{not json"), 0o644))

	out, err := w.run(t, "batch", "--dir", filepath.Join(w.dir, "docs"), "--concurrency", "2")
	require.ErrorIs(t, err, errBatchFailures)
	assert.Contains(t, out, "2 succeeded, 1 failed, 0 skipped")
	assert.Contains(t, out, "invalid_document")

	out, err = w.run(t, "batch", "--dir", filepath.Join(w.dir, "docs"))
	require.NoError(t, err)
	assert.Contains(t, out, "0 succeeded, 0 failed, 3 skipped")

	out, err = w.run(t, "ledger", "failures")
	require.NoError(t, err)
	assert.Contains(t, out, broken)
	assert.Contains(t, out, "Total: 1")

	xlsx := filepath.Join(w.dir, "out.xlsx")
	out, err = w.run(t, "export", "--out", xlsx)
	require.NoError(t, err)
	assert.Contains(t, out, "exported 2 records")
	assert.FileExists(t, xlsx)

	_, err = w.run(t, "ledger", "reset", broken)
	require.NoError(t, err)
	out, err = w.run(t, "ledger", "list")
	require.NoError(t, err)
	assert.False(t, strings.Contains(out, broken))
}

func TestMigrateAndPing(t *testing.T) {
	w := newWorkspace(t)

	out, err := w.run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "version 1 (sqlite)")

	out, err = w.run(t, "ping")
	require.NoError(t, err)
	assert.Contains(t, out, "ledger: OK")
}

func TestBatchRequiresInput(t *testing.T) {
	w := newWorkspace(t)
	_, err := w.run(t, "batch")
	require.Error(t, err)
}
