package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/studyhall/progress-ledger/internal/ledger"
	"github.com/studyhall/progress-ledger/internal/report"
)

func TestWriteAnalyticsXLSX(t *testing.T) {
	rep := &ledger.AnalyticsReport{
		TeacherID:   "t1",
		GeneratedAt: time.Now(),
		Classes: []ledger.ClassSummary{
			{ClassID: "c1", ClassName: "7A", Students: 3, AvgPoints: 120.5, AvgLevel: 2, CompletionRate: 0.4},
			{ClassID: "c2", ClassName: "7B", Students: 2, AvgPoints: 80, AvgLevel: 1.5, CompletionRate: 0.25},
		},
	}

	var buf bytes.Buffer
	if err := report.WriteAnalyticsXLSX(&buf, rep); err != nil {
		t.Fatalf("WriteAnalyticsXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Class Analytics")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3 (header + 2 classes)", len(rows))
	}
	if rows[0][0] != "Class" {
		t.Errorf("header[0] = %q, want Class", rows[0][0])
	}
	if rows[1][0] != "7A" {
		t.Errorf("row1[0] = %q, want 7A", rows[1][0])
	}

	// No warnings, so no Missing Data sheet.
	if idx, _ := f.GetSheetIndex("Missing Data"); idx != -1 {
		t.Error("Missing Data sheet should not exist for a complete report")
	}
}

func TestWriteAnalyticsXLSX_Warnings(t *testing.T) {
	rep := &ledger.AnalyticsReport{
		TeacherID: "t1",
		Partial:   true,
		Classes: []ledger.ClassSummary{
			{
				ClassID:   "c1",
				ClassName: "7A",
				Students:  2,
				Warnings: []ledger.StudentWarning{
					{StudentID: "s2", Reason: "storage failure"},
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := report.WriteAnalyticsXLSX(&buf, rep); err != nil {
		t.Fatalf("WriteAnalyticsXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Missing Data")
	if err != nil {
		t.Fatalf("GetRows(Missing Data) error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("warning rows = %d, want 2 (header + 1 warning)", len(rows))
	}
	if rows[1][1] != "s2" {
		t.Errorf("warning student = %q, want s2", rows[1][1])
	}
}
