package models

import "time"

// Assessment is a gradable component of a course.
type Assessment struct {
	ID         string   `db:"id" json:"id"`
	CourseID   string   `db:"course_id" json:"course_id"`
	Title      string   `db:"title" json:"title"`
	TotalMarks float64  `db:"total_marks" json:"total_marks"`
	Weightage  *float64 `db:"weightage" json:"weightage,omitempty"`
}

// Grade is a student's obtained marks on one assessment within one enrollment.
type Grade struct {
	ID            string    `db:"id" json:"id"`
	EnrollmentID  string    `db:"enrollment_id" json:"enrollment_id"`
	AssessmentID  string    `db:"assessment_id" json:"assessment_id"`
	ObtainedMarks float64   `db:"obtained_marks" json:"obtained_marks"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// GradeEntry joins a grade with the assessment it scores.
type GradeEntry struct {
	EnrollmentID  string   `db:"enrollment_id" json:"enrollment_id"`
	AssessmentID  string   `db:"assessment_id" json:"assessment_id"`
	ObtainedMarks float64  `db:"obtained_marks" json:"obtained_marks"`
	TotalMarks    float64  `db:"total_marks" json:"total_marks"`
	Weightage     *float64 `db:"weightage" json:"weightage,omitempty"`
}

// GradeDetail enriches a grade with assessment info for listings.
type GradeDetail struct {
	Grade
	AssessmentTitle string   `db:"assessment_title" json:"assessment_title"`
	TotalMarks      float64  `db:"total_marks" json:"total_marks"`
	Weightage       *float64 `db:"weightage" json:"weightage,omitempty"`
}

// GradeFilter allows querying of grade entries.
type GradeFilter struct {
	EnrollmentID string
	AssessmentID string
}
