package core

import (
	"reflect"
	"testing"
	"time"
)

// makeSnapshot builds a snapshot from raw CSV-like strings.
func makeSnapshot(header []string, rows ...[]string) *Snapshot {
	cells := make([][]Cell, len(rows))
	for i, row := range rows {
		cells[i] = make([]Cell, len(row))
		for j, v := range row {
			cells[i][j] = ParseCell(v)
		}
	}
	return NewSnapshot(header, cells, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
}

func TestColumnLetter(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{51, "AZ"},
		{52, "BA"},
		{701, "ZZ"},
		{702, "AAA"},
		{16383, "XFD"},
		{-1, ""},
	}

	for _, tt := range tests {
		if got := ColumnLetter(tt.index); got != tt.want {
			t.Errorf("ColumnLetter(%d) = %q, want %q", tt.index, got, tt.want)
		}
	}
}

func TestColumnLetter_Bijective(t *testing.T) {
	seen := make(map[string]int)
	for i := 0; i < 20000; i++ {
		letter := ColumnLetter(i)
		if prev, ok := seen[letter]; ok {
			t.Fatalf("ColumnLetter(%d) = %q collides with index %d", i, letter, prev)
		}
		seen[letter] = i
	}
}

func TestCellAddress(t *testing.T) {
	if got := CellAddress(0, 0); got != "A2" {
		t.Errorf("CellAddress(0, 0) = %q, want A2", got)
	}
	if got := CellAddress(27, 9); got != "AB11" {
		t.Errorf("CellAddress(27, 9) = %q, want AB11", got)
	}
}

func TestNormalizeHeaders(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   []string
	}{
		{
			name:   "clean headers kept",
			header: []string{"Name", "Amount"},
			want:   []string{"Name", "Amount"},
		},
		{
			name:   "whitespace trimmed",
			header: []string{"  Name ", "\tAmount"},
			want:   []string{"Name", "Amount"},
		},
		{
			name:   "blank header gets positional name",
			header: []string{"Name", "", "Total"},
			want:   []string{"Name", "Col_B", "Total"},
		},
		{
			name:   "unnamed placeholder renamed",
			header: []string{"Unnamed: 0", "Name"},
			want:   []string{"Col_A", "Name"},
		},
		{
			name:   "duplicate renamed",
			header: []string{"Name", "Name", "Name"},
			want:   []string{"Name", "Col_B", "Col_C"},
		},
		{
			name:   "positional name collision gets suffix",
			header: []string{"Col_B", ""},
			want:   []string{"Col_B", "Col_B_2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeHeaders(tt.header)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeHeaders(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestParseCell(t *testing.T) {
	tests := []struct {
		raw  string
		want Cell
	}{
		{"", Absent},
		{"   ", Absent},
		{"1", NumberCell(1)},
		{"1.0", NumberCell(1)},
		{"-2.5", NumberCell(-2.5)},
		{"1e3", NumberCell(1000)},
		{" 42 ", NumberCell(42)},
		{"abc", TextCell("abc")},
		{"1,000", TextCell("1,000")},
		{" padded ", TextCell(" padded ")},
	}

	for _, tt := range tests {
		got := ParseCell(tt.raw)
		if !got.Equal(tt.want) {
			t.Errorf("ParseCell(%q) = %#v, want %#v", tt.raw, got, tt.want)
		}
	}
}

func TestCellEqual(t *testing.T) {
	if !Absent.Equal(Absent) {
		t.Error("two absent cells should be equal")
	}
	if Absent.Equal(TextCell("")) {
		t.Error("absent should not equal an empty text cell")
	}
	if NumberCell(1).Equal(TextCell("1")) {
		t.Error("number and text cells should not be equal")
	}
	if !ParseCell("1").Equal(ParseCell("1.00")) {
		t.Error("numerically equal values should be equal")
	}
}

func TestCellString(t *testing.T) {
	tests := []struct {
		cell Cell
		want string
	}{
		{NumberCell(1), "1"},
		{NumberCell(2.5), "2.5"},
		{TextCell("hello"), "hello"},
		{Absent, "(empty)"},
	}
	for _, tt := range tests {
		if got := tt.cell.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestSnapshot_PadsAndTruncatesRows(t *testing.T) {
	s := makeSnapshot([]string{"A", "B"}, []string{"1"}, []string{"1", "2", "3"})

	if got := s.Cell(0, "B"); !got.IsAbsent() {
		t.Errorf("short row should be padded with absent, got %v", got)
	}
	if got := s.Cell(1, "B"); !got.Equal(NumberCell(2)) {
		t.Errorf("Cell(1, B) = %v, want 2", got)
	}
	if got := s.Cell(5, "A"); !got.IsAbsent() {
		t.Errorf("out of range row should be absent, got %v", got)
	}
	if got := s.Cell(0, "missing"); !got.IsAbsent() {
		t.Errorf("unknown column should be absent, got %v", got)
	}
}

func TestSnapshot_Immutable(t *testing.T) {
	rows := [][]Cell{{NumberCell(1)}}
	s := NewSnapshot([]string{"A"}, rows, time.Now())

	rows[0][0] = NumberCell(99)
	cols := s.Columns()
	cols[0] = "changed"

	if got := s.Cell(0, "A"); !got.Equal(NumberCell(1)) {
		t.Errorf("snapshot grid aliased caller slice: got %v", got)
	}
	if got := s.Columns()[0]; got != "A" {
		t.Errorf("snapshot columns aliased: got %q", got)
	}
}

func TestSnapshot_Empty(t *testing.T) {
	var nilSnap *Snapshot
	if !nilSnap.Empty() {
		t.Error("nil snapshot should be empty")
	}
	if !makeSnapshot([]string{"A"}).Empty() {
		t.Error("header-only snapshot should be empty")
	}
	if makeSnapshot([]string{"A"}, []string{"1"}).Empty() {
		t.Error("snapshot with a row should not be empty")
	}
}
