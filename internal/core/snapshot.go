package core

import (
	"strconv"
	"strings"
	"time"
)

// Snapshot is one captured state of a monitored table.
//
// Column identifiers are unique and keep the source's column order. A
// snapshot is never modified after NewSnapshot returns; accessors hand out
// copies so callers cannot alias the grid.
type Snapshot struct {
	columns    []string
	index      map[string]int
	rows       [][]Cell
	capturedAt time.Time
}

// NewSnapshot builds a snapshot from a raw header row and parsed rows.
// Headers are normalized (see NormalizeHeaders). Rows shorter than the header
// are padded with absent cells; longer rows are truncated.
func NewSnapshot(header []string, rows [][]Cell, capturedAt time.Time) *Snapshot {
	columns := NormalizeHeaders(header)

	index := make(map[string]int, len(columns))
	for i, col := range columns {
		index[col] = i
	}

	grid := make([][]Cell, len(rows))
	for i, row := range rows {
		r := make([]Cell, len(columns))
		copy(r, row)
		grid[i] = r
	}

	return &Snapshot{
		columns:    columns,
		index:      index,
		rows:       grid,
		capturedAt: capturedAt,
	}
}

// Columns returns the column identifiers in source order.
func (s *Snapshot) Columns() []string {
	out := make([]string, len(s.columns))
	copy(out, s.columns)
	return out
}

// ColumnIndex returns the zero-based position of a column.
func (s *Snapshot) ColumnIndex(col string) (int, bool) {
	i, ok := s.index[col]
	return i, ok
}

// HasColumn reports whether the snapshot contains col.
func (s *Snapshot) HasColumn(col string) bool {
	_, ok := s.index[col]
	return ok
}

// Len returns the number of data rows (the header is not counted).
func (s *Snapshot) Len() int {
	return len(s.rows)
}

// Empty reports whether the snapshot has no data rows.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.rows) == 0
}

// Cell returns the value at row i in column col.
// Out-of-range rows and unknown columns yield an absent cell.
func (s *Snapshot) Cell(i int, col string) Cell {
	if i < 0 || i >= len(s.rows) {
		return Absent
	}
	j, ok := s.index[col]
	if !ok {
		return Absent
	}
	return s.rows[i][j]
}

// CapturedAt returns when the snapshot was taken.
func (s *Snapshot) CapturedAt() time.Time {
	return s.capturedAt
}

// NormalizeHeaders makes source headers usable as column identifiers.
//
// Headers are trimmed. Blank headers, "Unnamed: N" placeholders and repeats of
// an earlier header are replaced by a positional name Col_<letter>. If that
// name is itself taken, a numeric suffix is appended.
func NormalizeHeaders(header []string) []string {
	out := make([]string, len(header))
	taken := make(map[string]bool, len(header))
	rename := make([]bool, len(header))

	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" || strings.HasPrefix(h, "Unnamed:") || taken[h] {
			rename[i] = true
			continue
		}
		out[i] = h
		taken[h] = true
	}

	for i := range header {
		if !rename[i] {
			continue
		}
		base := "Col_" + ColumnLetter(i)
		name := base
		for n := 2; taken[name]; n++ {
			name = base + "_" + strconv.Itoa(n)
		}
		out[i] = name
		taken[name] = true
	}

	return out
}

// ColumnLetter converts a zero-based column index to its spreadsheet letter
// (0→A, 25→Z, 26→AA, 701→ZZ) using bijective base-26.
func ColumnLetter(index int) string {
	if index < 0 {
		return ""
	}
	var buf [16]byte
	n := len(buf)
	for index++; index > 0; index = (index - 1) / 26 {
		n--
		buf[n] = byte('A' + (index-1)%26)
	}
	return string(buf[n:])
}

// CellAddress returns the human-facing address of a data cell. Row 1 holds
// the header, so data row i lives on sheet row i+2.
func CellAddress(colIndex, row int) string {
	return ColumnLetter(colIndex) + strconv.Itoa(row+2)
}
