// Package report renders teacher analytics as downloadable workbooks.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/studyhall/progress-ledger/internal/ledger"
)

const analyticsSheet = "Class Analytics"

// WriteAnalyticsXLSX renders an analytics report as an XLSX workbook.
// One row per class, plus a warnings sheet when any student data is missing.
func WriteAnalyticsXLSX(w io.Writer, report *ledger.AnalyticsReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", analyticsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headers := []any{"Class", "Students", "Avg Points", "Avg Level", "Completion Rate"}
	if err := f.SetSheetRow(analyticsSheet, "A1", &headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, class := range report.Classes {
		row := []any{
			class.ClassName,
			class.Students,
			class.AvgPoints,
			class.AvgLevel,
			class.CompletionRate,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(analyticsSheet, cell, &row); err != nil {
			return fmt.Errorf("write class row: %w", err)
		}
	}

	if report.Partial {
		if err := writeWarningsSheet(f, report); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeWarningsSheet(f *excelize.File, report *ledger.AnalyticsReport) error {
	const sheet = "Missing Data"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create warnings sheet: %w", err)
	}

	headers := []any{"Class", "Student", "Reason"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("write warnings header: %w", err)
	}

	row := 2
	for _, class := range report.Classes {
		for _, warning := range class.Warnings {
			values := []any{class.ClassName, warning.StudentID, warning.Reason}
			cell := fmt.Sprintf("A%d", row)
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return fmt.Errorf("write warning row: %w", err)
			}
			row++
		}
	}
	return nil
}
