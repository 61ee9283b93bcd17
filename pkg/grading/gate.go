package grading

import "errors"

var (
	// ErrNoAssessments marks a course without any assessment defined.
	ErrNoAssessments = errors.New("grading: course has no assessments")
	// ErrIncomplete marks an enrollment missing grades for some assessments.
	ErrIncomplete = errors.New("grading: enrollment is partially graded")
)

// Completeness summarises how much of a course an enrollment has been graded on.
type Completeness struct {
	TotalAssessments  int
	GradedAssessments int
}

// Check explains why an enrollment is not eligible, or returns nil.
func (c Completeness) Check() error {
	if c.TotalAssessments <= 0 {
		return ErrNoAssessments
	}
	if c.GradedAssessments != c.TotalAssessments {
		return ErrIncomplete
	}
	return nil
}

// IsEligible reports whether every assessment of the course carries a grade.
func IsEligible(c Completeness) bool {
	return c.Check() == nil
}
