// Package export writes notified change history as CSV or Excel workbooks.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sheetwatch/internal/core"
)

// Limit caps the number of batches a single export reads.
const Limit = 1000

// SheetName is the worksheet holding exported changes.
const SheetName = "Changes"

// TimeLayout formats detection times in exports.
const TimeLayout = "2006-01-02 15:04:05"

var header = []string{"Batch ID", "Detected At", "Sheet URL", "Sheet", "Cell", "Column", "Kind", "Old Value", "New Value"}

// row is one exported change.
type row struct {
	batchID    string
	detectedAt time.Time
	url        string
	sheet      string
	change     core.Change
}

func flatten(batches []core.ChangeBatch) []row {
	var out []row
	for _, b := range batches {
		for _, c := range b.Changes {
			out = append(out, row{
				batchID:    b.ID.String(),
				detectedAt: b.DetectedAt,
				url:        b.Locator.URL,
				sheet:      b.Locator.Sheet,
				change:     c,
			})
		}
	}
	return out
}

func (r row) strings() []string {
	return []string{
		r.batchID,
		r.detectedAt.UTC().Format(TimeLayout),
		r.url,
		r.sheet,
		r.change.Cell,
		r.change.Column,
		string(r.change.Kind),
		r.change.OldText(),
		r.change.NewText(),
	}
}

// WriteCSV writes one line per change, batches in the given order.
func WriteCSV(w io.Writer, batches []core.ChangeBatch) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range flatten(batches) {
		if err := cw.Write(r.strings()); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteXLSX writes the same table as WriteCSV into a workbook. Numeric
// cells are written as numbers.
func WriteXLSX(w io.Writer, batches []core.ChangeBatch) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range header {
		addr, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, addr, h); err != nil {
			return fmt.Errorf("set header %s: %w", addr, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, r := range flatten(batches) {
		values := []any{
			r.batchID,
			r.detectedAt.UTC().Format(TimeLayout),
			r.url,
			r.sheet,
			r.change.Cell,
			r.change.Column,
			string(r.change.Kind),
			cellValue(r.change.Old, r.change.OldText()),
			cellValue(r.change.New, r.change.NewText()),
		}
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, addr, &values); err != nil {
			return fmt.Errorf("set row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// cellValue keeps numbers numeric in the workbook.
func cellValue(c core.Cell, text string) any {
	if c.Kind == core.CellNumber {
		return c.Num
	}
	return text
}
