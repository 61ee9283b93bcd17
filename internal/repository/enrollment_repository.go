package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-results-api/internal/models"
)

// EnrollmentRepository reads enrollments and their grading progress.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const summarySelect = `SELECT e.id AS enrollment_id, e.student_id, e.course_id, e.academic_year,
        COUNT(DISTINCT a.id) AS total_assessments,
        COUNT(DISTINCT g.id) AS graded_assessments
        FROM enrollments e
        LEFT JOIN assessments a ON a.course_id = e.course_id
        LEFT JOIN grades g ON g.enrollment_id = e.id AND g.assessment_id = a.id`

const summaryGroup = ` GROUP BY e.id, e.student_id, e.course_id, e.academic_year`

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, academic_year, created_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// ListSummaries returns assessment and graded counts for every enrollment in one grouped query.
func (r *EnrollmentRepository) ListSummaries(ctx context.Context) ([]models.EnrollmentSummary, error) {
	query := summarySelect + summaryGroup + ` ORDER BY e.id`
	var summaries []models.EnrollmentSummary
	if err := r.db.SelectContext(ctx, &summaries, query); err != nil {
		return nil, fmt.Errorf("list enrollment summaries: %w", err)
	}
	return summaries, nil
}

// FindSummary returns grading progress for a single enrollment.
func (r *EnrollmentRepository) FindSummary(ctx context.Context, id string) (*models.EnrollmentSummary, error) {
	query := summarySelect + ` WHERE e.id = $1` + summaryGroup
	var summary models.EnrollmentSummary
	if err := r.db.GetContext(ctx, &summary, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment summary: %w", err)
	}
	return &summary, nil
}
