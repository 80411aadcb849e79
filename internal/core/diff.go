package core

// diff.go computes cell-level changes between two snapshots.
//
// Columns are matched by identifier, not position, so inserting a column in
// the middle of a sheet reports one added column instead of shifting every
// cell to its right. Rows are matched by position.
//
// Output order is deterministic:
//  1. Cells in columns present in both snapshots, row-major, columns in the
//     current snapshot's order
//  2. Added columns in current order, one record per current row
//  3. Removed columns in previous order, one record per previous row

import (
	"encoding/json"
	"sort"
)

const (
	// ColumnAddedMarker stands in for the old value of a cell in a new column.
	ColumnAddedMarker = "[column added]"
	// ColumnRemovedMarker stands in for the new value of a cell in a dropped column.
	ColumnRemovedMarker = "[column removed]"
)

// ChangeKind classifies a change record.
type ChangeKind string

const (
	ChangeModified      ChangeKind = "modified"
	ChangeColumnAdded   ChangeKind = "column_added"
	ChangeColumnRemoved ChangeKind = "column_removed"
)

// Change is one detected cell-level difference.
type Change struct {
	Cell   string // Spreadsheet address, e.g. "B7"
	Column string
	Kind   ChangeKind
	Old    Cell
	New    Cell
}

// OldText renders the old value, or the added-column marker.
func (c Change) OldText() string {
	if c.Kind == ChangeColumnAdded {
		return ColumnAddedMarker
	}
	return c.Old.String()
}

// NewText renders the new value, or the removed-column marker.
func (c Change) NewText() string {
	if c.Kind == ChangeColumnRemoved {
		return ColumnRemovedMarker
	}
	return c.New.String()
}

// MarshalJSON renders old and new values as display text.
func (c Change) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Cell   string     `json:"cell"`
		Column string     `json:"column"`
		Kind   ChangeKind `json:"kind"`
		Old    string     `json:"old"`
		New    string     `json:"new"`
	}{c.Cell, c.Column, c.Kind, c.OldText(), c.NewText()})
}

// ColumnFilter is an allow-list of column identifiers.
// An empty filter lets every column through.
type ColumnFilter map[string]struct{}

// NewColumnFilter builds a filter from column names. Blank names are ignored.
func NewColumnFilter(cols ...string) ColumnFilter {
	f := make(ColumnFilter, len(cols))
	for _, c := range cols {
		if c != "" {
			f[c] = struct{}{}
		}
	}
	return f
}

// Allows reports whether col participates in diffing.
func (f ColumnFilter) Allows(col string) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[col]
	return ok
}

// Names returns the filtered column names, sorted.
func (f ColumnFilter) Names() []string {
	names := make([]string, 0, len(f))
	for c := range f {
		names = append(names, c)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of the filter.
func (f ColumnFilter) Clone() ColumnFilter {
	out := make(ColumnFilter, len(f))
	for c := range f {
		out[c] = struct{}{}
	}
	return out
}

// Diff returns the changes that turn prev into cur.
//
// Precondition: prev is non-nil and cur is non-empty. The first observation
// of a sheet is a baseline and an empty sheet is reported separately; both
// are the caller's concern.
func Diff(prev, cur *Snapshot, filter ColumnFilter) []Change {
	var common, added, removed []string

	for _, col := range cur.columns {
		if !filter.Allows(col) {
			continue
		}
		if prev.HasColumn(col) {
			common = append(common, col)
		} else {
			added = append(added, col)
		}
	}
	for _, col := range prev.columns {
		if filter.Allows(col) && !cur.HasColumn(col) {
			removed = append(removed, col)
		}
	}

	var changes []Change

	for i := 0; i < cur.Len(); i++ {
		for _, col := range common {
			oldVal := prev.Cell(i, col)
			newVal := cur.Cell(i, col)
			if oldVal.Equal(newVal) {
				continue
			}
			changes = append(changes, Change{
				Cell:   CellAddress(cur.index[col], i),
				Column: col,
				Kind:   ChangeModified,
				Old:    oldVal,
				New:    newVal,
			})
		}
	}

	for _, col := range added {
		pos := cur.index[col]
		for i := 0; i < cur.Len(); i++ {
			changes = append(changes, Change{
				Cell:   CellAddress(pos, i),
				Column: col,
				Kind:   ChangeColumnAdded,
				New:    cur.Cell(i, col),
			})
		}
	}

	for _, col := range removed {
		pos := prev.index[col]
		for i := 0; i < prev.Len(); i++ {
			changes = append(changes, Change{
				Cell:   CellAddress(pos, i),
				Column: col,
				Kind:   ChangeColumnRemoved,
				Old:    prev.Cell(i, col),
			})
		}
	}

	return changes
}
