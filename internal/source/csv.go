package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/sheetwatch/internal/core"
)

// ParseCSV reads a CSV table into a snapshot. The first record is the
// header; every later record is a row. Ragged rows are padded or truncated
// to the header width by the snapshot. An input with no records yields an
// empty snapshot.
func ParseCSV(r io.Reader, capturedAt time.Time) (*core.Snapshot, error) {
	reader := csv.NewReader(normalize(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return core.NewSnapshot(nil, nil, capturedAt), nil
	}
	if err != nil {
		return nil, csvError(err)
	}

	var rows [][]core.Cell
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}

		row := make([]core.Cell, len(record))
		for i, raw := range record {
			row[i] = core.ParseCell(raw)
		}
		rows = append(rows, row)
	}

	return core.NewSnapshot(header, rows, capturedAt), nil
}

// csvError prefixes parse failures. Transport errors surfacing through the
// reader are returned unchanged so they keep their own classification.
func csvError(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Errorf("parse csv: %w", err)
	}
	return err
}
