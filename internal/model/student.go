package model

import "time"

// Department is one of the six academic departments a student belongs to.
type Department string

const (
	DepartmentCSE   Department = "CSE"
	DepartmentECE   Department = "ECE"
	DepartmentEEE   Department = "EEE"
	DepartmentMECH  Department = "MECH"
	DepartmentCIVIL Department = "CIVIL"
	DepartmentIT    Department = "IT"
)

// Departments lists every valid department.
var Departments = []Department{
	DepartmentCSE, DepartmentECE, DepartmentEEE, DepartmentMECH, DepartmentCIVIL, DepartmentIT,
}

// Student represents a student volunteer.
// AttendancePercentage is nil until attendance has been recorded; IsEligible
// is maintained by the database from it.
type Student struct {
	ID                   int        `json:"id"`
	RegistrationNumber   string     `json:"registration_number"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	PasswordHash         string     `json:"-"`
	Department           Department `json:"department"`
	Year                 int        `json:"year"`
	AttendancePercentage *float64   `json:"attendance_percentage"`
	TotalVolunteerHours  float64    `json:"total_volunteer_hours"`
	IsEligible           bool       `json:"is_eligible"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Eligibility is the outcome of comparing attendance against the threshold.
type Eligibility struct {
	Eligible  bool    `json:"eligible"`
	ShortBy   float64 `json:"short_by"`
	Threshold float64 `json:"threshold"`
}

// StudentFilter narrows admin student listings.
type StudentFilter struct {
	Department *Department
	Year       *int
	Eligible   *bool
	Search     string
}

// StudentLoginRequest is the payload for student authentication.
type StudentLoginRequest struct {
	RegistrationNumber string `json:"registration_number" binding:"required,regno"`
	Password           string `json:"password" binding:"required,min=6,max=128"`
}

// StudentLoginResponse is returned after successful student login.
type StudentLoginResponse struct {
	Token   string  `json:"token"`
	Student Student `json:"student"`
}

// CreateStudentRequest is the payload for creating a new student account.
type CreateStudentRequest struct {
	RegistrationNumber   string     `json:"registration_number" binding:"required,regno"`
	Name                 string     `json:"name" binding:"required,min=2,max=100"`
	Email                string     `json:"email" binding:"required,email,max=255"`
	Department           Department `json:"department" binding:"required,department"`
	Year                 int        `json:"year" binding:"required,min=1,max=4"`
	Password             string     `json:"password" binding:"required,min=6,max=128"`
	AttendancePercentage *float64   `json:"attendance_percentage" binding:"omitempty,min=0,max=100"`
}

// UpdateStudentRequest is the payload for updating an existing student.
// A non-nil AttendancePercentage is a manual override of the imported value.
type UpdateStudentRequest struct {
	RegistrationNumber   string     `json:"registration_number" binding:"required,regno"`
	Name                 string     `json:"name" binding:"required,min=2,max=100"`
	Email                string     `json:"email" binding:"required,email,max=255"`
	Department           Department `json:"department" binding:"required,department"`
	Year                 int        `json:"year" binding:"required,min=1,max=4"`
	Password             string     `json:"password" binding:"omitempty,min=6,max=128"`
	AttendancePercentage *float64   `json:"attendance_percentage" binding:"omitempty,min=0,max=100"`
}
