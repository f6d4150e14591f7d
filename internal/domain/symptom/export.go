package symptom

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const (
	exportSheet      = "Symptoms"
	exportTimeLayout = "2006-01-02 15:04"
)

var exportHeader = []string{"Recorded At", "Medication", "Pain Level", "Symptoms", "Notes"}

var exportColumnWidths = []float64{18, 24, 12, 36, 48}

// ExportXLSX renders the user's symptom history as a spreadsheet, newest
// first. Times are written in loc.
func (s *Service) ExportXLSX(ctx context.Context, userID string, f Filter, loc *time.Location) ([]byte, error) {
	records, err := s.repo.ListByUser(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	meds, err := s.meds.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	names := make(map[uuid.UUID]string, len(meds))
	for _, m := range meds {
		names[m.ID] = m.Name
	}
	if loc == nil {
		loc = time.UTC
	}
	return renderXLSX(records, names, loc)
}

func renderXLSX(records []*Record, names map[uuid.UUID]string, loc *time.Location) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for col, header := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return nil, fmt.Errorf("set header %s: %w", cell, err)
		}
		if err := f.SetCellStyle(exportSheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(exportSheet, name, name, exportColumnWidths[col]); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	for i, r := range records {
		row := i + 2
		notes := ""
		if r.Notes != nil {
			notes = *r.Notes
		}
		values := []interface{}{
			r.RecordedAt.In(loc).Format(exportTimeLayout),
			names[r.MedicationID],
			r.PainLevel,
			strings.Join(r.Symptoms, ", "),
			notes,
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
