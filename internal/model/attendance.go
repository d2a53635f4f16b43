package model

import "time"

// AttendanceRecord is one student's attendance for a calendar month.
// Unique per (student, month, year). Counts are nil when the percentage was imported directly.
type AttendanceRecord struct {
	ID              int       `json:"id"`
	StudentID       int       `json:"student_id"`
	Month           int       `json:"month"`
	Year            int       `json:"year"`
	ClassesAttended *int      `json:"classes_attended"`
	TotalClasses    *int      `json:"total_classes"`
	Percentage      float64   `json:"percentage"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AttendancePeriod is the month an import applies to by default.
type AttendancePeriod struct {
	Month int `json:"month" binding:"omitempty,min=1,max=12"`
	Year  int `json:"year" binding:"omitempty,min=2000,max=2100"`
}

// AttendanceRow is one line of an attendance import.
// Either both counts or Percentage must be present. Month/Year override the import period.
type AttendanceRow struct {
	RegistrationNumber string   `json:"registration_number"`
	ClassesAttended    *int     `json:"classes_attended,omitempty"`
	TotalClasses       *int     `json:"total_classes,omitempty"`
	Percentage         *float64 `json:"percentage,omitempty"`
	Month              *int     `json:"month,omitempty"`
	Year               *int     `json:"year,omitempty"`
}

// ImportAttendanceRequest is the JSON body of an attendance import.
type ImportAttendanceRequest struct {
	AttendancePeriod
	Rows []AttendanceRow `json:"rows" binding:"required,min=1,max=5000"`
}

// ImportRowError describes why one import row was not applied.
type ImportRowError struct {
	Row                int    `json:"row"`
	RegistrationNumber string `json:"registration_number"`
	Error              string `json:"error"`
}

// ImportResult summarises an attendance import. Partial success is normal.
type ImportResult struct {
	Total      int              `json:"total"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	NotFound   []string         `json:"not_found"`
	Errors     []ImportRowError `json:"errors"`
}
