package database

// convert.go maps between core values and their column encodings.

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/sheetwatch/internal/core"
)

// Cell kinds as stored in the *_kind columns.
const (
	kindAbsent int16 = 0
	kindText   int16 = 1
	kindNumber int16 = 2
)

// toPgUUID converts a uuid.UUID to pgtype.UUID. The nil UUID is invalid.
func toPgUUID(id uuid.UUID) pgtype.UUID {
	if id == uuid.Nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: id, Valid: true}
}

// fromPgUUID returns uuid.Nil for an invalid pgtype.UUID.
func fromPgUUID(u pgtype.UUID) uuid.UUID {
	if !u.Valid {
		return uuid.Nil
	}
	return uuid.UUID(u.Bytes)
}

func toPgTimestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

// fromPgTimestamptz returns the zero time for NULL.
func fromPgTimestamptz(ts pgtype.Timestamptz) time.Time {
	if !ts.Valid {
		return time.Time{}
	}
	return ts.Time
}

// encodeCell splits a cell into its kind, text and number columns.
// Text is stored untrimmed; whitespace inside a text cell is significant.
func encodeCell(c core.Cell) (int16, pgtype.Text, pgtype.Float8) {
	switch c.Kind {
	case core.CellText:
		return kindText, pgtype.Text{String: c.Text, Valid: true}, pgtype.Float8{}
	case core.CellNumber:
		return kindNumber, pgtype.Text{}, pgtype.Float8{Float64: c.Num, Valid: true}
	default:
		return kindAbsent, pgtype.Text{}, pgtype.Float8{}
	}
}

// decodeCell reverses encodeCell. Unknown kinds and missing values decode
// as absent.
func decodeCell(kind int16, text pgtype.Text, num pgtype.Float8) core.Cell {
	switch {
	case kind == kindText && text.Valid:
		return core.TextCell(text.String)
	case kind == kindNumber && num.Valid:
		return core.NumberCell(num.Float64)
	default:
		return core.Absent
	}
}

func changeParams(batchID pgtype.UUID, pos int, c core.Change) InsertCellChangeParams {
	oldKind, oldText, oldNum := encodeCell(c.Old)
	newKind, newText, newNum := encodeCell(c.New)
	return InsertCellChangeParams{
		BatchID:    batchID,
		Position:   int32(pos),
		Cell:       c.Cell,
		ColumnName: c.Column,
		Kind:       string(c.Kind),
		OldKind:    oldKind,
		OldText:    oldText,
		OldNum:     oldNum,
		NewKind:    newKind,
		NewText:    newText,
		NewNum:     newNum,
	}
}

func rowToChange(row CellChange) core.Change {
	return core.Change{
		Cell:   row.Cell,
		Column: row.ColumnName,
		Kind:   core.ChangeKind(row.Kind),
		Old:    decodeCell(row.OldKind, row.OldText, row.OldNum),
		New:    decodeCell(row.NewKind, row.NewText, row.NewNum),
	}
}

func settingsParams(st core.Settings) UpsertSettingsParams {
	cols := st.Columns
	if cols == nil {
		cols = []string{}
	}
	return UpsertSettingsParams{
		UserKey:    st.UserKey,
		SheetUrl:   st.Locator.URL,
		SheetName:  st.Locator.Sheet,
		IntervalMs: st.Interval.Milliseconds(),
		Threshold:  int32(st.Threshold),
		Columns:    cols,
		Format:     string(st.Format),
	}
}

func rowToSettings(row MonitorSetting) core.Settings {
	format, err := core.ParseFormat(row.Format)
	if err != nil {
		format = core.FormatDetailed
	}
	var cols []string
	if len(row.Columns) > 0 {
		cols = row.Columns
	}
	return core.Settings{
		UserKey:   row.UserKey,
		Locator:   core.Locator{URL: row.SheetUrl, Sheet: row.SheetName},
		Interval:  time.Duration(row.IntervalMs) * time.Millisecond,
		Threshold: int(row.Threshold),
		Columns:   cols,
		Format:    format,
	}
}
