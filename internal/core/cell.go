package core

// cell.go normalizes raw CSV values into typed cells.
//
// The source exports every value as text. Cells are classified so that "1",
// "1.0" and "1e0" compare equal while "1" and "one" do not:
//
//   - Empty or whitespace-only values are absent
//   - Values matching the numeric grammar are numbers
//   - Everything else is text, kept byte-for-byte
//
// Equality is exact. There is no tolerance for floating point noise.

import (
	"regexp"
	"strconv"
	"strings"
)

// numericRegex validates that a string is a valid numeric format.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// CellKind identifies what a cell holds.
type CellKind uint8

const (
	CellAbsent CellKind = iota
	CellText
	CellNumber
)

func (k CellKind) String() string {
	switch k {
	case CellText:
		return "text"
	case CellNumber:
		return "number"
	default:
		return "absent"
	}
}

// Cell is a single normalized value in a snapshot.
type Cell struct {
	Kind CellKind
	Text string  // Raw value for text cells
	Num  float64 // Parsed value for number cells
}

// Absent is the zero cell.
var Absent = Cell{}

// TextCell returns a text cell holding s.
func TextCell(s string) Cell {
	return Cell{Kind: CellText, Text: s}
}

// NumberCell returns a number cell holding f.
func NumberCell(f float64) Cell {
	return Cell{Kind: CellNumber, Num: f}
}

// ParseCell converts a raw CSV value into its normalized cell.
func ParseCell(raw string) Cell {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Absent
	}
	if numericRegex.MatchString(trimmed) {
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return NumberCell(f)
		}
	}
	return TextCell(raw)
}

// IsAbsent reports whether the cell holds no value.
func (c Cell) IsAbsent() bool {
	return c.Kind == CellAbsent
}

// Equal reports whether two cells hold the same normalized value.
// Two absent cells are equal; an absent cell never equals a present one.
func (c Cell) Equal(o Cell) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch c.Kind {
	case CellNumber:
		return c.Num == o.Num
	case CellText:
		return c.Text == o.Text
	default:
		return true
	}
}

// String renders the cell for humans.
func (c Cell) String() string {
	switch c.Kind {
	case CellNumber:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case CellText:
		return c.Text
	default:
		return "(empty)"
	}
}
