package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/xuri/excelize/v2"
)

type sheetColumn int

const (
	colRegNo sheetColumn = iota
	colAttended
	colTotal
	colPercentage
	colMonth
	colYear
)

// headerAliases maps normalised header text to a column.
var headerAliases = map[string]sheetColumn{
	"registration number": colRegNo,
	"registration no":     colRegNo,
	"reg no":              colRegNo,
	"regno":               colRegNo,
	"register number":     colRegNo,
	"classes attended":    colAttended,
	"attended":            colAttended,
	"present":             colAttended,
	"total classes":       colTotal,
	"total":               colTotal,
	"conducted":           colTotal,
	"percentage":          colPercentage,
	"attendance":          colPercentage,
	"attendance %":        colPercentage,
	"attendance percent":  colPercentage,
	"%":                   colPercentage,
	"month":               colMonth,
	"year":                colYear,
}

func normaliseHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer("_", " ", ".", " ", "-", " ", "(", " ", ")", " ").Replace(h)
	return strings.Join(strings.Fields(h), " ")
}

// ParseAttendanceSheet reads an .xlsx (first sheet) or .csv upload into
// import rows. Blank lines are skipped; malformed cells become rows the
// importer will reject individually.
func ParseAttendanceSheet(filename string, r io.Reader) ([]model.AttendanceRow, error) {
	records, err := ReadSheet(filename, r)
	if err != nil {
		return nil, err
	}
	return rowsFromRecords(records)
}

// ReadSheet returns the raw cells of an .xlsx (first sheet) or .csv file.
func ReadSheet(filename string, r io.Reader) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSheet, err)
		}
		defer f.Close()

		sheet := f.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidSheet)
		}
		records, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSheet, err)
		}
		return records, nil
	case ".csv":
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		records, err := cr.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSheet, err)
		}
		return records, nil
	default:
		return nil, fmt.Errorf("%w: expected .xlsx or .csv", ErrUnsupportedFileType)
	}
}

func rowsFromRecords(records [][]string) ([]model.AttendanceRow, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: sheet is empty", ErrInvalidSheet)
	}

	cols := map[sheetColumn]int{}
	for i, h := range records[0] {
		if c, ok := headerAliases[normaliseHeader(h)]; ok {
			if _, dup := cols[c]; !dup {
				cols[c] = i
			}
		}
	}
	if _, ok := cols[colRegNo]; !ok {
		return nil, fmt.Errorf("%w: missing registration number column", ErrInvalidSheet)
	}
	_, hasAttended := cols[colAttended]
	_, hasTotal := cols[colTotal]
	_, hasPct := cols[colPercentage]
	if !(hasAttended && hasTotal) && !hasPct {
		return nil, fmt.Errorf("%w: need classes attended and total classes, or percentage", ErrInvalidSheet)
	}

	cell := func(rec []string, c sheetColumn) string {
		i, ok := cols[c]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rows := make([]model.AttendanceRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row := model.AttendanceRow{RegistrationNumber: cell(rec, colRegNo)}
		row.ClassesAttended = parseCount(cell(rec, colAttended))
		row.TotalClasses = parseCount(cell(rec, colTotal))
		if row.ClassesAttended == nil || row.TotalClasses == nil {
			row.ClassesAttended, row.TotalClasses = nil, nil
		}
		row.Percentage = parsePercent(cell(rec, colPercentage))
		row.Month = parseCount(cell(rec, colMonth))
		row.Year = parseCount(cell(rec, colYear))
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrInvalidSheet)
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseCount accepts whole numbers, including spreadsheet floats like "18.0".
func parseCount(s string) *int {
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return &n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return nil
	}
	n := int(f)
	return &n
}

func parsePercent(s string) *float64 {
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// errSheetTooLarge guards the row limit shared with JSON imports.
var errSheetTooLarge = errors.New("sheet exceeds 5000 rows")

// LimitRows enforces the per-import row cap.
func LimitRows(rows []model.AttendanceRow) error {
	if len(rows) > 5000 {
		return fmt.Errorf("%w: %w", ErrValidation, errSheetTooLarge)
	}
	return nil
}
