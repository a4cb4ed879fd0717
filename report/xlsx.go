package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

const conflictSheet = "Conflicts"

var xlsxColumns = []struct {
	title string
	width float64
}{
	{"#", 6},
	{"Element", 40},
	{"GlobalId", 26},
	{"Rule", 24},
	{"Message", 60},
	{"Property", 50},
	{"Value", 26},
	{"Severity", 12},
	{"Suggestion", 80},
}

// WriteXLSX writes conflicts to a single-sheet workbook with the same
// fields as the text report.
func WriteXLSX(path string, conflicts []Conflict) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", conflictSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return fmt.Errorf("creating cell style: %w", err)
	}

	for i, col := range xlsxColumns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(conflictSheet, name, name, col.width); err != nil {
			return err
		}
		if err := f.SetCellValue(conflictSheet, name+"1", col.title); err != nil {
			return err
		}
	}
	last, _ := excelize.ColumnNumberToName(len(xlsxColumns))
	if err := f.SetCellStyle(conflictSheet, "A1", last+"1", header); err != nil {
		return err
	}

	for i, c := range conflicts {
		v := c.Violation
		row := []any{i + 1, elementOf(v), v.FocusID, v.Shape, v.Message, string(v.Path), v.Value, string(v.Severity), c.Suggestion}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(conflictSheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	if len(conflicts) > 0 {
		end, _ := excelize.CoordinatesToCellName(len(xlsxColumns), len(conflicts)+1)
		if err := f.SetCellStyle(conflictSheet, "A2", end, wrap); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}
