package history

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	capturesSheet = "Captures"
	itemsSheet    = "Items"
)

// ExportXLSX renders entries as a workbook with one sheet of captures and
// one sheet of per-item results.
func ExportXLSX(entries []Entry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// NewFile starts with Sheet1; reuse it for captures.
	if err := f.SetSheetName("Sheet1", capturesSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, err
	}

	writeRow(f, capturesSheet, 1, "ID", "Started", "Duration (s)", "Stage", "Status", "Saved", "Total", "Text chars", "Message")
	writeRow(f, itemsSheet, 1, "Capture ID", "Index", "Title", "Code", "Error")

	itemRow := 2
	for i, e := range entries {
		writeRow(f, capturesSheet, i+2,
			e.ID,
			e.StartedAt.Local().Format(time.DateTime),
			e.FinishedAt.Sub(e.StartedAt).Seconds(),
			e.Stage, e.Status, e.Saved, e.Total, e.TextChars, e.Message)
		for _, it := range e.Items {
			writeRow(f, itemsSheet, itemRow, e.ID, it.Index, it.Title, it.Code, it.Error)
			itemRow++
		}
	}

	_ = f.SetColWidth(capturesSheet, "A", "A", 38)
	_ = f.SetColWidth(capturesSheet, "B", "B", 20)
	_ = f.SetColWidth(capturesSheet, "I", "I", 48)
	_ = f.SetColWidth(itemsSheet, "A", "A", 38)
	_ = f.SetColWidth(itemsSheet, "C", "C", 32)
	_ = f.SetColWidth(itemsSheet, "E", "E", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for col, v := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}
