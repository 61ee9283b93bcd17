package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-results-api/internal/models"
)

const entryChunkSize = 500

const entriesQuery = `SELECT g.enrollment_id, g.assessment_id, g.obtained_marks, a.total_marks, a.weightage
        FROM grades g
        JOIN enrollments e ON e.id = g.enrollment_id
        JOIN assessments a ON a.id = g.assessment_id AND a.course_id = e.course_id
        WHERE g.enrollment_id IN (?)`

// GradeRepository handles grade persistence and the grade/assessment join used for results.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// List returns grades with their assessment details.
func (r *GradeRepository) List(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, error) {
	query := `SELECT g.id, g.enrollment_id, g.assessment_id, g.obtained_marks, g.created_at, g.updated_at,
        a.title AS assessment_title, a.total_marks, a.weightage
        FROM grades g
        JOIN assessments a ON a.id = g.assessment_id
        WHERE 1=1`
	var args []interface{}
	if filter.EnrollmentID != "" {
		query += fmt.Sprintf(" AND g.enrollment_id = $%d", len(args)+1)
		args = append(args, filter.EnrollmentID)
	}
	if filter.AssessmentID != "" {
		query += fmt.Sprintf(" AND g.assessment_id = $%d", len(args)+1)
		args = append(args, filter.AssessmentID)
	}
	query += " ORDER BY a.title"
	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, query, args...); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

// Upsert inserts or overwrites the grade for an (enrollment, assessment) pair.
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	grade.UpdatedAt = now
	const query = `INSERT INTO grades (id, enrollment_id, assessment_id, obtained_marks, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (enrollment_id, assessment_id)
        DO UPDATE SET obtained_marks = EXCLUDED.obtained_marks, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, grade.ID, grade.EnrollmentID, grade.AssessmentID, grade.ObtainedMarks, grade.CreatedAt, grade.UpdatedAt); err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	return nil
}

// FindAssessment returns an assessment by ID.
func (r *GradeRepository) FindAssessment(ctx context.Context, id string) (*models.Assessment, error) {
	const query = `SELECT id, course_id, title, total_marks, weightage FROM assessments WHERE id = $1`
	var assessment models.Assessment
	if err := r.db.GetContext(ctx, &assessment, query, id); err != nil {
		return nil, err
	}
	return &assessment, nil
}

// FetchEntries returns grade+assessment rows keyed by enrollment ID.
// Only assessments of the enrollment's own course are considered.
func (r *GradeRepository) FetchEntries(ctx context.Context, enrollmentIDs []string) (map[string][]models.GradeEntry, error) {
	result := make(map[string][]models.GradeEntry, len(enrollmentIDs))
	for start := 0; start < len(enrollmentIDs); start += entryChunkSize {
		end := start + entryChunkSize
		if end > len(enrollmentIDs) {
			end = len(enrollmentIDs)
		}
		query, args, err := sqlx.In(entriesQuery, enrollmentIDs[start:end])
		if err != nil {
			return nil, fmt.Errorf("build grade entries query: %w", err)
		}
		query = sqlx.Rebind(sqlx.DOLLAR, query)
		rows, err := r.db.QueryxContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("fetch grade entries: %w", err)
		}
		for rows.Next() {
			var entry models.GradeEntry
			if err := rows.StructScan(&entry); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan grade entry: %w", err)
			}
			result[entry.EnrollmentID] = append(result[entry.EnrollmentID], entry)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterate grade entries: %w", err)
		}
		rows.Close()
	}
	return result, nil
}
