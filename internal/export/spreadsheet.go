package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Fill and number formats applied to exported cells
const (
	HighlightColor = "FF0000"
	DateTimeFormat = "yyyy-mm-dd hh:mm:ss"
	DefaultSheet   = "Triggers"
)

// Sheet describes one exported worksheet
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]interface{}
	// Highlight selects rows whose HighlightColumn cell gets the red fill
	Highlight       func(row []interface{}) bool
	HighlightColumn int
}

// WriteSpreadsheet writes sheet into a new workbook at path. An existing
// file at path is overwritten.
func WriteSpreadsheet(path string, sheet Sheet) error {
	if len(sheet.Header) == 0 {
		return fmt.Errorf("sheet has no header")
	}
	if sheet.HighlightColumn < 0 || sheet.HighlightColumn >= len(sheet.Header) {
		return fmt.Errorf("highlight column %d outside header", sheet.HighlightColumn)
	}
	for i, row := range sheet.Rows {
		if len(row) != len(sheet.Header) {
			return fmt.Errorf("row %d has %d cells, header has %d", i+1, len(row), len(sheet.Header))
		}
	}

	name := sheet.Name
	if name == "" {
		name = DefaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	dateFormat := DateTimeFormat
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFormat})
	if err != nil {
		return fmt.Errorf("failed to create date style: %w", err)
	}
	fillStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{HighlightColor}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create fill style: %w", err)
	}

	if err := writeRow(f, name, 1, toCells(sheet.Header), dateStyle); err != nil {
		return err
	}

	for i, row := range sheet.Rows {
		rowNum := i + 2
		if err := writeRow(f, name, rowNum, row, dateStyle); err != nil {
			return err
		}
		if sheet.Highlight == nil || !sheet.Highlight(row) {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(sheet.HighlightColumn+1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(name, cell, cell, fillStyle); err != nil {
			return fmt.Errorf("failed to highlight %s: %w", cell, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, row []interface{}, dateStyle int) error {
	for col, value := range row {
		cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return err
		}
		if t, ok := value.(time.Time); ok {
			value = wallClock(t)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("failed to write %s: %w", cell, err)
		}
		if _, ok := value.(time.Time); ok {
			if err := f.SetCellStyle(sheet, cell, cell, dateStyle); err != nil {
				return fmt.Errorf("failed to format %s: %w", cell, err)
			}
		}
	}
	return nil
}

// wallClock keeps the local wall-clock reading of t. Spreadsheet dates carry
// no zone.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

func toCells(header []string) []interface{} {
	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}
	return cells
}

// Snapshot is the content of an exported workbook as read back from disk
type Snapshot struct {
	Sheet string
	Rows  [][]string
	// Highlighted holds 1-based row numbers with a red fill in any cell
	Highlighted map[int]bool
}

// ReadSpreadsheet reads the first sheet of the workbook at path
func ReadSpreadsheet(path string) (*Snapshot, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	name := f.GetSheetName(0)
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	snap := &Snapshot{Sheet: name, Rows: rows, Highlighted: make(map[int]bool)}
	for r, row := range rows {
		for c := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			highlighted, err := isHighlighted(f, name, cell)
			if err != nil {
				return nil, err
			}
			if highlighted {
				snap.Highlighted[r+1] = true
				break
			}
		}
	}
	return snap, nil
}

// RawValue returns the stored value of a cell, without number formatting
func RawValue(path, cell string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return f.GetCellValue(f.GetSheetName(0), cell, excelize.Options{RawCellValue: true})
}

func isHighlighted(f *excelize.File, sheet, cell string) (bool, error) {
	styleID, err := f.GetCellStyle(sheet, cell)
	if err != nil || styleID == 0 {
		return false, err
	}
	style, err := f.GetStyle(styleID)
	if err != nil {
		return false, err
	}
	if style.Fill.Type != "pattern" || style.Fill.Pattern != 1 {
		return false, nil
	}
	for _, color := range style.Fill.Color {
		if strings.HasSuffix(strings.ToUpper(color), HighlightColor) {
			return true, nil
		}
	}
	return false, nil
}
