package models

import "time"

// ResultStatus is the pass/fail outcome stored with a result.
type ResultStatus string

const (
	ResultStatusPass ResultStatus = "Pass"
	ResultStatusFail ResultStatus = "Fail"
)

// Result is the computed outcome of one enrollment. TotalMarks holds the final percentage.
type Result struct {
	ID           string       `db:"id" json:"id"`
	EnrollmentID string       `db:"enrollment_id" json:"enrollment_id"`
	TotalMarks   float64      `db:"total_marks" json:"total_marks"`
	Grade        string       `db:"grade" json:"grade"`
	Status       ResultStatus `db:"status" json:"status"`
	CalculatedAt time.Time    `db:"calculated_at" json:"calculated_at"`
}

// ResultView is a result joined with its enrollment, student and course.
type ResultView struct {
	ResultID     string       `db:"result_id" json:"result_id"`
	EnrollmentID string       `db:"enrollment_id" json:"enrollment_id"`
	TotalMarks   float64      `db:"total_marks" json:"total_marks"`
	Grade        string       `db:"grade" json:"grade"`
	Status       ResultStatus `db:"status" json:"status"`
	AcademicYear string       `db:"academic_year" json:"academic_year"`
	StudentID    string       `db:"student_id" json:"student_id"`
	RollNo       string       `db:"roll_no" json:"roll_no"`
	StudentName  string       `db:"student_name" json:"student_name"`
	CourseID     string       `db:"course_id" json:"course_id"`
	CourseCode   string       `db:"course_code" json:"course_code"`
	CourseName   string       `db:"course_name" json:"course_name"`
	CreditHours  int          `db:"credit_hours" json:"credit_hours"`
	CalculatedAt time.Time    `db:"calculated_at" json:"calculated_at"`
}

// ResultFilter scopes result listings.
type ResultFilter struct {
	StudentID string
	CourseID  string
}
