package source

import (
	"fmt"
	"os"
	"time"

	"github.com/JonMunkholm/sheetwatch/internal/core"
)

// ReadFile parses a local CSV file, or the named sheet of a workbook.
// maxBytes caps the file size (0: no cap).
func ReadFile(path, sheet string, capturedAt time.Time, maxBytes int64) (*core.Snapshot, error) {
	if isWorkbook(path) {
		return ReadWorkbook(path, sheet, capturedAt, maxBytes)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sheet file: %w", err)
	}
	defer f.Close()

	snap, err := ParseCSV(newCappedReader(f, maxBytes), capturedAt)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return snap, nil
}
