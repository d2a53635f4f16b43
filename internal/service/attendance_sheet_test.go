package service

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestParseAttendanceSheet_CSV(t *testing.T) {
	csv := "Reg No,Classes Attended,Total Classes,Month\n" +
		"21cs0001,18,20,3\n" +
		",,,\n" +
		"21CS0002,17.0,20,\n"

	rows, err := ParseAttendanceSheet("march.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseAttendanceSheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (blank skipped)", len(rows))
	}
	if rows[0].RegistrationNumber != "21cs0001" || *rows[0].ClassesAttended != 18 || *rows[0].TotalClasses != 20 || *rows[0].Month != 3 {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if *rows[1].ClassesAttended != 17 || rows[1].Month != nil {
		t.Errorf("row 1 = %+v", rows[1])
	}
}

func TestParseAttendanceSheet_PercentageColumn(t *testing.T) {
	csv := "registration_number,Attendance %\n21CS0001,72.5%\n"
	rows, err := ParseAttendanceSheet("a.CSV", strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].Percentage == nil || *rows[0].Percentage != 72.5 {
		t.Errorf("percentage = %v", rows[0].Percentage)
	}
	if rows[0].ClassesAttended != nil {
		t.Error("counts should be nil when the sheet has no count columns")
	}
}

func TestParseAttendanceSheet_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	data := [][]interface{}{
		{"Registration Number", "Attended", "Total"},
		{"21CS0001", 18, 20},
		{"21CS0003", 5, 0},
	}
	for i, row := range data {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}

	rows, err := ParseAttendanceSheet("attendance.xlsx", &buf)
	if err != nil {
		t.Fatalf("ParseAttendanceSheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	if *rows[1].ClassesAttended != 5 || *rows[1].TotalClasses != 0 {
		t.Errorf("row 1 = %+v", rows[1])
	}
}

func TestParseAttendanceSheet_Errors(t *testing.T) {
	tests := []struct {
		name, file, body string
		want             error
	}{
		{"unsupported", "a.txt", "x", ErrUnsupportedFileType},
		{"no regno column", "a.csv", "name,percentage\nA,80\n", ErrInvalidSheet},
		{"no attendance column", "a.csv", "regno,name\n21CS0001,A\n", ErrInvalidSheet},
		{"header only", "a.csv", "regno,percentage\n", ErrInvalidSheet},
		{"corrupt xlsx", "a.xlsx", "not a zip", ErrInvalidSheet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAttendanceSheet(tt.file, strings.NewReader(tt.body))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, ErrValidation) {
				t.Error("sheet errors should be validation errors")
			}
		})
	}
}
