package repository

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
)

func testRecord(idx int64, url string) entity.ExtractedRecord {
	rec := entity.NewExtractedRecord()
	rec.Set(constants.ColumnURL, url)
	rec.Set("buyer", "acme")
	rec.Set("term", "24mo")
	rec.Set("deliverables", `the "Licensed Software"`)
	return rec.WithIdx(idx)
}

func TestRecordStoreHeaderAndAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "contracts.tsv")
	store, err := OpenRecordStore(path, nil)
	require.NoError(t, err)

	require.NoError(t, store.Append(testRecord(0, "https://example.com/a")))
	require.NoError(t, store.Append(testRecord(1, "https://example.com/b")))
	require.NoError(t, store.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, strings.Join(constants.Columns, "\t"), lines[0])
	assert.Equal(t, strings.Join(constants.ColumnKinds(), "\t"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "0\t"))

	store, err = OpenRecordStore(path, nil)
	require.NoError(t, err)
	defer store.Close()
	rows, err := store.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[1].Idx)
	assert.Equal(t, "https://example.com/b", rows[1].URL)
	assert.Equal(t, `the "Licensed Software"`, rows[0].Values["deliverables"])
	assert.Equal(t, "24mo", rows[0].Values["term"])
	assert.Len(t, rows[0].Values, len(constants.Columns))
}

func TestRecordStoreRejectsUnassignedIdx(t *testing.T) {
	store, err := OpenRecordStore(filepath.Join(t.TempDir(), "c.tsv"), nil)
	require.NoError(t, err)
	defer store.Close()

	err = store.Append(entity.NewExtractedRecord())
	var werr *StoreWriteError
	require.ErrorAs(t, err, &werr)
}

func TestRecordStoreTruncatesTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.tsv")
	store, err := OpenRecordStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, store.Append(testRecord(0, "https://example.com/a")))
	require.NoError(t, store.Close())

	// simulate a crash halfway through a row
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("1\tform\tpartial")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	store, err = OpenRecordStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, store.Append(testRecord(1, "https://example.com/b")))

	rows, err := store.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []int64{0, 1}, []int64{rows[0].Idx, rows[1].Idx})
	require.NoError(t, store.Close())
}

func TestRecordStoreSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.tsv")
	require.NoError(t, os.WriteFile(path, []byte("idx\tform\turl\nindex\tmetadata\turl\n"), 0o644))

	_, err := OpenRecordStore(path, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
}

func TestRecordStoreConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.tsv")
	store, err := OpenRecordStore(path, nil)
	require.NoError(t, err)
	defer store.Close()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Append(testRecord(int64(i), "https://example.com/doc")))
		}(i)
	}
	wg.Wait()

	rows, err := store.Rows()
	require.NoError(t, err)
	assert.Len(t, rows, 20)
}

func TestRecordStoreSkipsUnreadableRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.tsv")
	store, err := OpenRecordStore(path, nil)
	require.NoError(t, err)
	for i, u := range []string{"https://example.com/a", "https://example.com/b", "https://example.com/c"} {
		require.NoError(t, store.Append(testRecord(int64(i), u)))
	}
	require.NoError(t, store.Close())

	// damage the first data row in place
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(string(raw), "\n")
	lines[2] = "garbage"
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644))

	store, err = OpenRecordStore(path, nil)
	require.NoError(t, err)
	defer store.Close()

	sc, err := store.Scan()
	require.NoError(t, err)
	assert.Equal(t, []int{3}, sc.Unreadable)
	require.Len(t, sc.Rows, 2)
	assert.Equal(t, "https://example.com/b", sc.Rows[0].URL)
	assert.Equal(t, int64(2), sc.Rows[1].Idx)

	rows, err := store.Rows()
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
