package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-results-api/internal/models"
)

// ResultRepository persists computed results, one row per enrollment.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository constructs repository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Upsert updates the enrollment's result in place or inserts it when absent.
// The existing row is locked for the duration of the transaction.
func (r *ResultRepository) Upsert(ctx context.Context, result *models.Result) error {
	if result.CalculatedAt.IsZero() {
		result.CalculatedAt = time.Now().UTC()
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin result upsert: %w", err)
	}

	var existingID string
	err = tx.GetContext(ctx, &existingID, `SELECT id FROM results WHERE enrollment_id = $1 FOR UPDATE`, result.EnrollmentID)
	switch {
	case err == nil:
		const update = `UPDATE results SET total_marks = $2, grade = $3, status = $4, calculated_at = $5 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, update, existingID, result.TotalMarks, result.Grade, result.Status, result.CalculatedAt); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("update result: %w", err)
		}
		result.ID = existingID
	case errors.Is(err, sql.ErrNoRows):
		if result.ID == "" {
			result.ID = uuid.NewString()
		}
		const insert = `INSERT INTO results (id, enrollment_id, total_marks, grade, status, calculated_at) VALUES ($1, $2, $3, $4, $5, $6)`
		if _, err := tx.ExecContext(ctx, insert, result.ID, result.EnrollmentID, result.TotalMarks, result.Grade, result.Status, result.CalculatedAt); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert result: %w", err)
		}
	default:
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("lookup result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit result: %w", err)
	}
	return nil
}

// List returns results joined with student, course and enrollment details.
func (r *ResultRepository) List(ctx context.Context, filter models.ResultFilter) ([]models.ResultView, error) {
	query := `SELECT r.id AS result_id, r.enrollment_id, r.total_marks, TRIM(r.grade) AS grade, TRIM(r.status) AS status, r.calculated_at,
        e.academic_year, e.student_id, s.roll_no, s.full_name AS student_name,
        e.course_id, c.course_code, c.course_name, c.credit_hours
        FROM results r
        JOIN enrollments e ON e.id = r.enrollment_id
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        WHERE 1=1`
	var args []interface{}
	if filter.StudentID != "" {
		query += fmt.Sprintf(" AND e.student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		query += fmt.Sprintf(" AND e.course_id = $%d", len(args)+1)
		args = append(args, filter.CourseID)
	}
	query += " ORDER BY c.course_code, s.roll_no"
	var views []models.ResultView
	if err := r.db.SelectContext(ctx, &views, query, args...); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return views, nil
}
