// Package report renders ticket lists as spreadsheets.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/field-ticket-service/internal/domain"
)

const (
	sheetName  = "Tickets"
	dateLayout = "2006-01-02 15:04"
)

// Columns is the fixed header row of the export.
var Columns = []string{
	"Ticket Number", "Case ID", "Company", "Serial Number", "Problem",
	"Schedule", "Deadline", "Status", "Assigned To", "Created At",
}

var columnWidths = []float64{16, 14, 24, 18, 40, 18, 18, 16, 22, 18}

// Row is one exported ticket with its assignee resolved to a display name.
type Row struct {
	Ticket       domain.Ticket
	AssigneeName string
}

// FileName returns the download name for an export taken at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("tickets-%s.xlsx", now.Format("2006-01-02"))
}

// Write renders rows into an xlsx workbook on w.
func Write(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, h := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(Columns))
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	for i, row := range rows {
		t := row.Ticket
		values := []any{
			t.TicketNumber,
			deref(t.CaseID),
			t.Company,
			deref(t.SerialNumber),
			t.Problem,
			formatTime(t.Schedule),
			formatTime(t.Deadline),
			string(t.Status),
			row.AssigneeName,
			t.CreatedAt.Format(dateLayout),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	for i, width := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return err
		}
	}
	if err := f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
