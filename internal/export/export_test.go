package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sheetwatch/internal/core"
)

func sampleBatches() []core.ChangeBatch {
	detected := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	return []core.ChangeBatch{
		{
			ID:         uuid.MustParse("6f1c1f5e-0000-4000-8000-000000000001"),
			UserKey:    "alice",
			Locator:    core.Locator{URL: "https://example.com/s.csv", Sheet: "Sheet1"},
			DetectedAt: detected,
			Changes: []core.Change{
				{Cell: "B2", Column: "Price", Kind: core.ChangeModified, Old: core.NumberCell(10), New: core.NumberCell(12.5)},
				{Cell: "C1", Column: "Note, extra", Kind: core.ChangeColumnAdded, New: core.TextCell("hello")},
			},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleBatches()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, header, records[0])
	assert.Equal(t, []string{
		"6f1c1f5e-0000-4000-8000-000000000001", "2026-03-04 05:06:07",
		"https://example.com/s.csv", "Sheet1", "B2", "Price", "modified", "10", "12.5",
	}, records[1])
	assert.Equal(t, "Note, extra", records[2][5])
	assert.Equal(t, core.ColumnAddedMarker, records[2][7])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleBatches()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, "B2", rows[1][4])

	typ, err := f.GetCellType(SheetName, "I2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ, "numbers stay numeric")

	v, err := f.GetCellValue(SheetName, "I2")
	require.NoError(t, err)
	assert.Equal(t, "12.5", v)

	v, err = f.GetCellValue(SheetName, "H3")
	require.NoError(t, err)
	assert.Equal(t, core.ColumnAddedMarker, v)
}
