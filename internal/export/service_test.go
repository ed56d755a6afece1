package export

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/repository"
)

type staticRows struct {
	rows []repository.StoredRow
	err  error
}

func (s staticRows) Rows() ([]repository.StoredRow, error) { return s.rows, s.err }

func stored(idx int64, url, buyer string) repository.StoredRow {
	values := map[string]string{}
	for _, c := range constants.Columns {
		values[c] = ""
	}
	values[constants.ColumnURL] = url
	values["buyer"] = buyer
	return repository.StoredRow{Idx: idx, URL: url, Values: values}
}

func TestExportContractsXLSX(t *testing.T) {
	src := staticRows{rows: []repository.StoredRow{
		stored(0, "https://e.com/a", "acme"),
		stored(1, "https://e.com/b", strings.Repeat("x", maxCellChars+10)),
		stored(2, "https://e.com/c", "globex"),
	}}
	from := int64(1)

	data, n, err := NewService(src, nil).ExportContractsXLSX(context.Background(), Window{FromIdx: &from})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetContracts)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, constants.Columns, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "globex", rows[2][columnNumber("buyer")-1])
	assert.Equal(t, "https://e.com/c", rows[2][columnNumber(constants.ColumnURL)-1])
	assert.LessOrEqual(t, len([]rune(rows[1][columnNumber("buyer")-1])), maxCellChars)

	kinds, err := f.GetRows(SheetColumns)
	require.NoError(t, err)
	assert.Len(t, kinds, len(constants.Columns)+1)
	assert.Equal(t, []string{"term", "duration"}, kinds[columnNumber("term")])

	assert.Equal(t, []string{SheetContracts, SheetColumns}, f.GetSheetList())
}

func TestExportPropagatesReadErrors(t *testing.T) {
	_, _, err := NewService(staticRows{err: errors.New("disk gone")}, nil).ExportContractsXLSX(context.Background(), Window{})
	require.Error(t, err)
}
