// Package export renders the record store as an XLSX workbook.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/repository"
)

const (
	SheetContracts = "Contracts"
	SheetColumns   = "Columns"

	// excel rejects longer cell strings
	maxCellChars = 32767
)

// RowSource is the read side of the record store.
type RowSource interface {
	Rows() ([]repository.StoredRow, error)
}

// Window selects an inclusive idx range; nil bounds are open.
type Window struct {
	FromIdx *int64
	ToIdx   *int64
}

func (w Window) contains(idx int64) bool {
	if w.FromIdx != nil && idx < *w.FromIdx {
		return false
	}
	if w.ToIdx != nil && idx > *w.ToIdx {
		return false
	}
	return true
}

// Service produces XLSX bytes for exports.
type Service struct {
	rows   RowSource
	logger *slog.Logger
}

func NewService(rows RowSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{rows: rows, logger: logger}
}

// ExportContractsXLSX returns a workbook with one row per stored record in store
// order, plus a sheet listing every column and its kind.
func (s *Service) ExportContractsXLSX(ctx context.Context, window Window) ([]byte, int, error) {
	start := time.Now()

	stored, err := s.rows.Rows()
	if err != nil {
		return nil, 0, fmt.Errorf("read records: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	// rename the default sheet rather than leaving an empty Sheet1
	if err := f.SetSheetName(f.GetSheetName(0), SheetContracts); err != nil {
		return nil, 0, err
	}
	idx, _ := f.GetSheetIndex(SheetContracts)
	f.SetActiveSheet(idx)

	for i, h := range constants.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetContracts, cell, h)
	}
	_ = f.SetPanes(SheetContracts, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	row := 2
	for _, r := range stored {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		if !window.contains(r.Idx) {
			continue
		}
		for i, c := range constants.Columns {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if c == constants.ColumnIdx {
				_ = f.SetCellValue(SheetContracts, cell, r.Idx)
				continue
			}
			_ = f.SetCellValue(SheetContracts, cell, truncate(r.Values[c], maxCellChars))
		}
		row++
	}
	exported := row - 2

	_ = f.SetColWidth(SheetContracts, "A", "A", 8)
	_ = f.SetColWidth(SheetContracts, "B", "J", 18)
	urlCol, _ := excelize.ColumnNumberToName(columnNumber(constants.ColumnURL))
	_ = f.SetColWidth(SheetContracts, urlCol, urlCol, 60)

	if _, err := f.NewSheet(SheetColumns); err != nil {
		return nil, 0, err
	}
	_ = f.SetSheetRow(SheetColumns, "A1", &[]string{"column", "kind"})
	for i, c := range constants.Columns {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = f.SetSheetRow(SheetColumns, cell, &[]string{c, string(constants.KindOf(c))})
	}
	_ = f.SetColWidth(SheetColumns, "A", "A", 32)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", exported,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), exported, nil
}

func columnNumber(name string) int {
	for i, c := range constants.Columns {
		if c == name {
			return i + 1
		}
	}
	return 1
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
