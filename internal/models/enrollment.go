package models

import "time"

// Enrollment captures a student's registration in a course for an academic year.
type Enrollment struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// EnrollmentSummary is the per-enrollment grading progress used by result generation.
type EnrollmentSummary struct {
	EnrollmentID      string `db:"enrollment_id" json:"enrollment_id"`
	StudentID         string `db:"student_id" json:"student_id"`
	CourseID          string `db:"course_id" json:"course_id"`
	AcademicYear      string `db:"academic_year" json:"academic_year"`
	TotalAssessments  int    `db:"total_assessments" json:"total_assessments"`
	GradedAssessments int    `db:"graded_assessments" json:"graded_assessments"`
}
