package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sheetwatch/internal/core"
)

// isWorkbook reports whether path names an Excel workbook.
func isWorkbook(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// ReadWorkbook reads one sheet of a local workbook, the first one when
// sheet is empty. Cell values are taken
// unformatted so numbers compare by value, not by display format.
func ReadWorkbook(path, sheet string, capturedAt time.Time, maxBytes int64) (*core.Snapshot, error) {
	if maxBytes > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("open sheet file: %w", err)
		}
		if info.Size() > maxBytes {
			return nil, fmt.Errorf("read %s: %w", path, ErrBodyTooLarge)
		}
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open sheet file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	records, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return core.NewSnapshot(nil, nil, capturedAt), nil
	}

	rows := make([][]core.Cell, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make([]core.Cell, len(record))
		for i, raw := range record {
			row[i] = core.ParseCell(raw)
		}
		rows = append(rows, row)
	}
	return core.NewSnapshot(records[0], rows, capturedAt), nil
}
