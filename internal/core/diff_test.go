package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff_Unchanged(t *testing.T) {
	s := makeSnapshot([]string{"Name", "Amount", ""},
		[]string{"alice", "1", ""},
		[]string{"bob", "", "x"},
	)

	assert.Empty(t, Diff(s, s, nil))
	assert.Empty(t, Diff(s, s, ColumnFilter{}))
}

func TestDiff_SingleCell(t *testing.T) {
	prev := makeSnapshot([]string{"W", "X"}, []string{"a", "1"})
	cur := makeSnapshot([]string{"W", "X"}, []string{"a", "2"})

	changes := Diff(prev, cur, nil)
	require.Len(t, changes, 1)

	c := changes[0]
	assert.Equal(t, "B2", c.Cell)
	assert.Equal(t, "X", c.Column)
	assert.Equal(t, ChangeModified, c.Kind)
	assert.True(t, c.Old.Equal(NumberCell(1)))
	assert.True(t, c.New.Equal(NumberCell(2)))
	assert.Equal(t, "1", c.OldText())
	assert.Equal(t, "2", c.NewText())
}

func TestDiff_AbsentHandling(t *testing.T) {
	prev := makeSnapshot([]string{"A", "B"}, []string{"", "1"})
	cur := makeSnapshot([]string{"A", "B"}, []string{"", ""})

	changes := Diff(prev, cur, nil)
	require.Len(t, changes, 1, "both-absent cells must not be reported")
	assert.Equal(t, "B2", changes[0].Cell)
	assert.True(t, changes[0].New.IsAbsent())
	assert.Equal(t, "(empty)", changes[0].NewText())
}

func TestDiff_NumericNormalization(t *testing.T) {
	prev := makeSnapshot([]string{"A"}, []string{"1"})
	cur := makeSnapshot([]string{"A"}, []string{"1.0"})

	assert.Empty(t, Diff(prev, cur, nil))
}

func TestDiff_AppendedRows(t *testing.T) {
	prev := makeSnapshot([]string{"A", "B"}, []string{"1", "x"})
	cur := makeSnapshot([]string{"A", "B"}, []string{"1", "x"}, []string{"2", ""})

	changes := Diff(prev, cur, nil)
	require.Len(t, changes, 1)
	assert.Equal(t, "A3", changes[0].Cell)
	assert.True(t, changes[0].Old.IsAbsent())
	assert.True(t, changes[0].New.Equal(NumberCell(2)))
}

func TestDiff_RemovedRowsIgnored(t *testing.T) {
	prev := makeSnapshot([]string{"A"}, []string{"1"}, []string{"2"})
	cur := makeSnapshot([]string{"A"}, []string{"1"})

	// Rows are walked over the current snapshot only
	assert.Empty(t, Diff(prev, cur, nil))
}

func TestDiff_ColumnAdded(t *testing.T) {
	prev := makeSnapshot([]string{"X"}, []string{"1"}, []string{"2"})
	cur := makeSnapshot([]string{"X", "Y"}, []string{"1", "a"}, []string{"2", "b"})

	changes := Diff(prev, cur, nil)
	require.Len(t, changes, 2)

	for i, want := range []string{"a", "b"} {
		c := changes[i]
		assert.Equal(t, ChangeColumnAdded, c.Kind)
		assert.Equal(t, "Y", c.Column)
		assert.Equal(t, ColumnAddedMarker, c.OldText())
		assert.Equal(t, want, c.NewText())
	}
	assert.Equal(t, "B2", changes[0].Cell)
	assert.Equal(t, "B3", changes[1].Cell)
}

func TestDiff_ColumnRemovedUsesPreviousPosition(t *testing.T) {
	prev := makeSnapshot([]string{"A", "B", "C"},
		[]string{"1", "2", "3"},
		[]string{"4", "5", "6"},
		[]string{"7", "8", "9"},
	)
	cur := makeSnapshot([]string{"A", "C"}, []string{"1", "3"})

	changes := Diff(prev, cur, nil)
	require.Len(t, changes, 3, "one record per previous row")

	for i, c := range changes {
		assert.Equal(t, ChangeColumnRemoved, c.Kind)
		assert.Equal(t, "B", c.Column)
		assert.Equal(t, ColumnRemovedMarker, c.NewText())
		assert.Equal(t, CellAddress(1, i), c.Cell)
	}
	assert.Equal(t, "2", changes[0].OldText())
	assert.Equal(t, "8", changes[2].OldText())
}

func TestDiff_AddressUsesCurrentPosition(t *testing.T) {
	prev := makeSnapshot([]string{"A", "B"}, []string{"1", "2"})
	cur := makeSnapshot([]string{"New", "A", "B"}, []string{"n", "1", "3"})

	changes := Diff(prev, cur, nil)
	require.Len(t, changes, 2)

	assert.Equal(t, "C2", changes[0].Cell, "B moved to the third column")
	assert.Equal(t, ChangeModified, changes[0].Kind)
	assert.Equal(t, "A2", changes[1].Cell)
	assert.Equal(t, ChangeColumnAdded, changes[1].Kind)
}

func TestDiff_Ordering(t *testing.T) {
	prev := makeSnapshot([]string{"A", "B", "Gone"},
		[]string{"1", "1", "g"},
		[]string{"2", "2", "h"},
	)
	cur := makeSnapshot([]string{"A", "B", "New"},
		[]string{"9", "9", "n"},
		[]string{"8", "8", "m"},
	)

	var got []string
	for _, c := range Diff(prev, cur, nil) {
		got = append(got, string(c.Kind)+":"+c.Cell)
	}

	want := []string{
		"modified:A2", "modified:B2",
		"modified:A3", "modified:B3",
		"column_added:C2", "column_added:C3",
		"column_removed:C2", "column_removed:C3",
	}
	assert.Equal(t, want, got)
}

func TestDiff_ColumnFilter(t *testing.T) {
	prev := makeSnapshot([]string{"A", "B", "Gone"}, []string{"1", "1", "g"})
	cur := makeSnapshot([]string{"A", "B", "New"}, []string{"2", "2", "n"})

	tests := []struct {
		name    string
		filter  ColumnFilter
		columns []string
	}{
		{"empty filter watches all", ColumnFilter{}, []string{"A", "B", "New", "Gone"}},
		{"common column only", NewColumnFilter("B"), []string{"B"}},
		{"added column only", NewColumnFilter("New"), []string{"New"}},
		{"removed column only", NewColumnFilter("Gone"), []string{"Gone"}},
		{"unknown column", NewColumnFilter("Nope"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cols []string
			for _, c := range Diff(prev, cur, tt.filter) {
				cols = append(cols, c.Column)
			}
			assert.Equal(t, tt.columns, cols)
		})
	}
}

func TestChange_MarshalJSON(t *testing.T) {
	c := Change{Cell: "B2", Column: "Y", Kind: ChangeColumnAdded, New: TextCell("a")}

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"cell":"B2","column":"Y","kind":"column_added","old":"[column added]","new":"a"}`,
		string(data))
}

func TestColumnFilter(t *testing.T) {
	f := NewColumnFilter("b", "", "a")
	assert.Equal(t, []string{"a", "b"}, f.Names())
	assert.True(t, f.Allows("a"))
	assert.False(t, f.Allows("c"))

	var empty ColumnFilter
	assert.True(t, empty.Allows("anything"))

	clone := f.Clone()
	delete(clone, "a")
	assert.True(t, f.Allows("a"), "Clone must not alias")
}
