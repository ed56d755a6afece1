package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-extractor/internal/pipeline"
)

const docJSON = `{
  "url": "https://www.sec.gov/Archives/edgar/data/1/ex10-2.htm",
  "metadata": {"type": "EX-10.2", "form": "8-K", "date": "5/26/25"},
  "sections": [
    {"number": "0", "title": "Preamble", "text": "Agreement between Seebeks Corp. and Acme Inc."},
    {"number": "1", "title": "Payment", "text": "Buyer shall pay $3,500 per month."}
  ]
}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDocument(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.json"), docJSON)
	writeFile(t, filepath.Join(dir, "bad.json"), "{not json")

	doc, err := LoadDocument(filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	assert.Equal(t, "EX-10.2", doc.Metadata.Type)
	require.Len(t, doc.Sections, 2)
	assert.True(t, doc.Sections[0].IsPreamble())

	_, err = LoadDocument(filepath.Join(dir, "bad.json"))
	var derr *pipeline.DocumentError
	require.ErrorAs(t, err, &derr)

	_, err = LoadDocument(filepath.Join(dir, "missing.json"))
	require.ErrorAs(t, err, &derr)
}

func TestItemForPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.json")
	writeFile(t, path, docJSON)

	item := ItemForPath(path, "")
	assert.Equal(t, "https://www.sec.gov/Archives/edgar/data/1/ex10-2.htm", item.URL)

	item = ItemForPath(path, "https://mirror.example.com/a")
	assert.Equal(t, "https://mirror.example.com/a", item.URL)
	doc, err := item.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, doc.Sections, 2)

	broken := filepath.Join(dir, "broken.json")
	writeFile(t, broken, "[")
	item = ItemForPath(broken, "")
	assert.Equal(t, broken, item.URL)
	_, err = item.Load(context.Background())
	var derr *pipeline.DocumentError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, broken, derr.URL)
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "docs", "a.json"), docJSON)
	manifest := filepath.Join(dir, "batch.yaml")
	writeFile(t, manifest, `
- path: docs/a.json
  url: https://example.com/override
- path: /abs/b.json
`)

	entries, err := LoadManifest(manifest)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, filepath.Join(dir, "docs", "a.json"), entries[0].Path)
	assert.Equal(t, "/abs/b.json", entries[1].Path)

	items := ManifestItems(entries)
	assert.Equal(t, "https://example.com/override", items[0].URL)
	assert.Equal(t, "/abs/b.json", items[1].URL)

	writeFile(t, filepath.Join(dir, "empty.yml"), "- url: https://example.com/x\n")
	_, err = LoadManifest(filepath.Join(dir, "empty.yml"))
	assert.Error(t, err)

	_, err = LoadManifest(filepath.Join(dir, "docs", "a.json"))
	assert.Error(t, err)
}

func TestScanDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.json"), docJSON)
	writeFile(t, filepath.Join(dir, "nested", "a.JSON"), docJSON)
	writeFile(t, filepath.Join(dir, "notes.txt"), "x")
	writeFile(t, filepath.Join(dir, ".cache", "c.json"), docJSON)

	paths, stats, err := ScanDirectory(dir, true, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b.json"), filepath.Join(dir, "nested", "a.JSON")}, paths)
	assert.Equal(t, uint32(2), stats.Matched)

	paths, _, err = ScanDirectory(dir, false, nil)
	require.NoError(t, err)
	assert.Len(t, paths, 3)

	_, _, err = ScanDirectory(" ", true, nil)
	assert.Error(t, err)
}

func TestWatcherEmitsNewDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "existing.json"), docJSON)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}, InitialScan: true, Debounce: 20 * time.Millisecond}, nil)
	require.NoError(t, err)

	next := func() string {
		select {
		case p := <-events:
			return p
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for watcher event")
			return ""
		}
	}
	assert.Equal(t, filepath.Join(dir, "existing.json"), next())

	writeFile(t, filepath.Join(dir, "ignored.txt"), "x")
	writeFile(t, filepath.Join(dir, "new.json"), docJSON)
	assert.Equal(t, filepath.Join(dir, "new.json"), next())

	cancel()
	for range events {
	}
}
