package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-results-api/internal/dto"
	"github.com/noah-isme/academic-results-api/internal/models"
	appErrors "github.com/noah-isme/academic-results-api/pkg/errors"
	"github.com/noah-isme/academic-results-api/pkg/jobs"
)

type gradeRepository interface {
	List(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, error)
	Upsert(ctx context.Context, grade *models.Grade) error
	FindAssessment(ctx context.Context, id string) (*models.Assessment, error)
}

type gradeEnrollmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

type recalculationQueue interface {
	Enqueue(job jobs.Job) error
}

// GradeService records assessment marks and schedules result refreshes.
type GradeService struct {
	grades      gradeRepository
	enrollments gradeEnrollmentReader
	queue       recalculationQueue
	validator   *validator.Validate
	logger      *zap.Logger
	metrics     *MetricsService
	now         func() time.Time
}

// NewGradeService constructs the grade service. queue may be nil to disable automatic recalculation.
func NewGradeService(grades gradeRepository, enrollments gradeEnrollmentReader, queue recalculationQueue, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		grades:      grades,
		enrollments: enrollments,
		queue:       queue,
		validator:   validate,
		logger:      logger,
		metrics:     metrics,
		now:         time.Now,
	}
}

// List returns grade entries with their assessment details.
func (s *GradeService) List(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, error) {
	grades, err := s.grades.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	if grades == nil {
		grades = []models.GradeDetail{}
	}
	return grades, nil
}

// Upsert records obtained marks for an assessment of an enrollment.
func (s *GradeService) Upsert(ctx context.Context, req dto.UpsertGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	enrollment, err := s.enrollments.FindByID(ctx, req.EnrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	assessment, err := s.grades.FindAssessment(ctx, req.AssessmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment")
	}
	if assessment.CourseID != enrollment.CourseID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assessment does not belong to the enrollment course")
	}
	if assessment.TotalMarks > 0 && *req.ObtainedMarks > assessment.TotalMarks {
		return nil, appErrors.Clone(appErrors.ErrValidation, "obtained marks exceed assessment total")
	}

	grade := &models.Grade{
		EnrollmentID:  req.EnrollmentID,
		AssessmentID:  req.AssessmentID,
		ObtainedMarks: *req.ObtainedMarks,
		UpdatedAt:     s.now().UTC(),
	}
	if err := s.grades.Upsert(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grade")
	}

	s.scheduleRecalculation(req.EnrollmentID)
	return grade, nil
}

func (s *GradeService) scheduleRecalculation(enrollmentID string) {
	if s.queue == nil {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: JobRecalculateResult, Key: enrollmentID, Payload: enrollmentID}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to queue result recalculation", zap.String("enrollment_id", enrollmentID), zap.Error(err))
		return
	}
	s.metrics.RecordRecalculationQueued()
}
