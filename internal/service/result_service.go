package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/academic-results-api/internal/dto"
	"github.com/noah-isme/academic-results-api/internal/models"
	appErrors "github.com/noah-isme/academic-results-api/pkg/errors"
	"github.com/noah-isme/academic-results-api/pkg/grading"
	"github.com/noah-isme/academic-results-api/pkg/jobs"
	"github.com/noah-isme/academic-results-api/pkg/keylock"
)

const (
	outcomeGenerated = "generated"
	outcomeSkipped   = "skipped"
	outcomeFailed    = "failed"

	// JobRecalculateResult is the queue job type carrying an enrollment ID payload.
	JobRecalculateResult = "recalculate_result"

	resultCachePrefix = "results:"
)

type resultEnrollmentRepository interface {
	ListSummaries(ctx context.Context) ([]models.EnrollmentSummary, error)
	FindSummary(ctx context.Context, id string) (*models.EnrollmentSummary, error)
}

type resultGradeRepository interface {
	FetchEntries(ctx context.Context, enrollmentIDs []string) (map[string][]models.GradeEntry, error)
}

type resultStore interface {
	Upsert(ctx context.Context, result *models.Result) error
	List(ctx context.Context, filter models.ResultFilter) ([]models.ResultView, error)
}

type resultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// ResultEngineConfig tunes aggregation, classification and batch execution.
type ResultEngineConfig struct {
	Policy       grading.Policy
	Boundaries   []grading.Boundary
	PassMark     float64
	BatchTimeout time.Duration
	Workers      int
	CacheTTL     time.Duration
}

// ResultService computes, stores and serves enrollment results.
type ResultService struct {
	enrollments resultEnrollmentRepository
	grades      resultGradeRepository
	results     resultStore
	cache       resultCache
	aggregator  *grading.Aggregator
	classifier  *grading.Classifier
	locks       *keylock.Locker
	config      ResultEngineConfig
	validator   *validator.Validate
	logger      *zap.Logger
	metrics     *MetricsService
	now         func() time.Time
}

// NewResultService constructs the result engine. cache and metrics may be nil.
func NewResultService(enrollments resultEnrollmentRepository, grades resultGradeRepository, results resultStore, cache resultCache, cfg ResultEngineConfig, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *ResultService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &ResultService{
		enrollments: enrollments,
		grades:      grades,
		results:     results,
		cache:       cache,
		aggregator:  grading.NewAggregator(cfg.Policy),
		classifier:  grading.NewClassifier(cfg.Boundaries, cfg.PassMark),
		locks:       keylock.New(),
		config:      cfg,
		validator:   validate,
		logger:      logger,
		metrics:     metrics,
		now:         time.Now,
	}
}

// Calculate computes and stores the result of a single fully graded enrollment.
func (s *ResultService) Calculate(ctx context.Context, req dto.CalculateResultRequest) (*models.Result, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid calculate payload")
	}

	summary, err := s.enrollments.FindSummary(ctx, req.EnrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	completeness := grading.Completeness{TotalAssessments: summary.TotalAssessments, GradedAssessments: summary.GradedAssessments}
	if completeness.GradedAssessments == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoGrades, "no grades found for this enrollment")
	}
	if err := completeness.Check(); err != nil {
		return nil, appErrors.Clone(appErrors.ErrIncompleteGrades,
			fmt.Sprintf("enrollment has %d of %d assessments graded", summary.GradedAssessments, summary.TotalAssessments))
	}

	entries, err := s.grades.FetchEntries(ctx, []string{summary.EnrollmentID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}

	result, err := s.compute(summary.EnrollmentID, entries[summary.EnrollmentID])
	if err != nil {
		if errors.Is(err, grading.ErrNoEntries) {
			return nil, appErrors.Clone(appErrors.ErrNoGradableAssessments, "no assessment with positive total marks")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute result")
	}

	if err := s.store(ctx, result); err != nil {
		s.metrics.RecordResult(outcomeFailed)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store result")
	}
	s.metrics.RecordResult(outcomeGenerated)
	s.invalidate(ctx, resultCachePrefix+"student:"+summary.StudentID)

	s.logger.Info("result calculated",
		zap.String("enrollment_id", result.EnrollmentID),
		zap.Float64("percentage", result.TotalMarks),
		zap.String("grade", result.Grade),
		zap.String("status", string(result.Status)),
	)
	return result, nil
}

// GenerateAll recomputes results for every fully graded enrollment.
// Enrollments still queued when the batch deadline expires are reported as pending.
func (s *ResultService) GenerateAll(ctx context.Context) (*dto.GenerateResultsSummary, error) {
	start := s.now()
	runCtx := ctx
	if s.config.BatchTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.config.BatchTimeout)
		defer cancel()
	}

	summaries, err := s.enrollments.ListSummaries(runCtx)
	if err != nil {
		if isContextErr(err) {
			return s.finishBatch(start, &dto.GenerateResultsSummary{Partial: true}), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	eligible := make([]models.EnrollmentSummary, 0, len(summaries))
	for _, summary := range summaries {
		if grading.IsEligible(grading.Completeness{TotalAssessments: summary.TotalAssessments, GradedAssessments: summary.GradedAssessments}) {
			eligible = append(eligible, summary)
			continue
		}
		s.metrics.RecordResult(outcomeSkipped)
	}

	out := &dto.GenerateResultsSummary{
		Total:   len(summaries),
		Skipped: len(summaries) - len(eligible),
	}

	var entries map[string][]models.GradeEntry
	if len(eligible) > 0 {
		ids := make([]string, len(eligible))
		for i, summary := range eligible {
			ids[i] = summary.EnrollmentID
		}
		entries, err = s.grades.FetchEntries(runCtx, ids)
		if err != nil {
			if isContextErr(err) {
				out.Pending = len(eligible)
				out.Partial = true
				return s.finishBatch(start, out), nil
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
		}
	}

	var (
		generated int64
		empty     int64
		mu        sync.Mutex
		failures  []dto.ResultFailure
	)
	fail := func(enrollmentID string, err error) {
		s.metrics.RecordResult(outcomeFailed)
		s.logger.Warn("result generation failed", zap.String("enrollment_id", enrollmentID), zap.Error(err))
		mu.Lock()
		failures = append(failures, dto.ResultFailure{EnrollmentID: enrollmentID, Reason: failureReason(err)})
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(s.config.Workers)
	for _, summary := range eligible {
		if runCtx.Err() != nil {
			break
		}
		summary := summary
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			result, err := s.compute(summary.EnrollmentID, entries[summary.EnrollmentID])
			if err != nil {
				if errors.Is(err, grading.ErrNoEntries) {
					atomic.AddInt64(&empty, 1)
					s.metrics.RecordResult(outcomeSkipped)
					return nil
				}
				fail(summary.EnrollmentID, err)
				return nil
			}
			if err := s.store(gctx, result); err != nil {
				if isContextErr(err) {
					return nil
				}
				fail(summary.EnrollmentID, err)
				return nil
			}
			atomic.AddInt64(&generated, 1)
			s.metrics.RecordResult(outcomeGenerated)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(failures, func(i, j int) bool { return failures[i].EnrollmentID < failures[j].EnrollmentID })

	out.Generated = int(atomic.LoadInt64(&generated))
	skippedEmpty := int(atomic.LoadInt64(&empty))
	out.Skipped += skippedEmpty
	out.Failed = len(failures)
	out.Failures = failures
	out.Pending = len(eligible) - out.Generated - out.Failed - skippedEmpty
	out.Partial = out.Pending > 0

	if out.Generated > 0 {
		s.invalidate(ctx, resultCachePrefix+"*")
	}
	return s.finishBatch(start, out), nil
}

// finishBatch stamps the message and duration on a batch summary and records it.
func (s *ResultService) finishBatch(start time.Time, out *dto.GenerateResultsSummary) *dto.GenerateResultsSummary {
	out.Message = summaryMessage(out)
	elapsed := s.now().Sub(start)
	out.DurationMs = elapsed.Milliseconds()
	s.metrics.ObserveBatch(elapsed, out.Partial)

	s.logger.Info("result generation finished",
		zap.Int("total", out.Total),
		zap.Int("generated", out.Generated),
		zap.Int("skipped", out.Skipped),
		zap.Int("failed", out.Failed),
		zap.Int("pending", out.Pending),
		zap.Bool("partial", out.Partial),
		zap.Duration("duration", elapsed),
	)
	return out
}

func isContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// Recalculate refreshes one enrollment's result in the background. Ineligible
// or missing enrollments are skipped without error so the queue does not retry them.
func (s *ResultService) Recalculate(ctx context.Context, enrollmentID string) error {
	summary, err := s.enrollments.FindSummary(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Debug("recalculation skipped, enrollment missing", zap.String("enrollment_id", enrollmentID))
			return nil
		}
		return fmt.Errorf("load enrollment %s: %w", enrollmentID, err)
	}
	if !grading.IsEligible(grading.Completeness{TotalAssessments: summary.TotalAssessments, GradedAssessments: summary.GradedAssessments}) {
		s.logger.Debug("recalculation skipped, enrollment incomplete",
			zap.String("enrollment_id", enrollmentID),
			zap.Int("graded", summary.GradedAssessments),
			zap.Int("total", summary.TotalAssessments),
		)
		return nil
	}

	entries, err := s.grades.FetchEntries(ctx, []string{enrollmentID})
	if err != nil {
		return fmt.Errorf("load grades %s: %w", enrollmentID, err)
	}
	result, err := s.compute(enrollmentID, entries[enrollmentID])
	if err != nil {
		if errors.Is(err, grading.ErrNoEntries) {
			s.logger.Warn("recalculation skipped, no gradable assessments", zap.String("enrollment_id", enrollmentID))
			return nil
		}
		return err
	}
	if err := s.store(ctx, result); err != nil {
		return fmt.Errorf("store result %s: %w", enrollmentID, err)
	}
	s.metrics.RecordResult(outcomeGenerated)
	s.invalidate(ctx, resultCachePrefix+"student:"+summary.StudentID)
	return nil
}

// HandleJob adapts Recalculate to the background queue.
func (s *ResultService) HandleJob(ctx context.Context, job jobs.Job) error {
	if job.Type != JobRecalculateResult {
		return fmt.Errorf("unsupported job type %q", job.Type)
	}
	enrollmentID, ok := job.Payload.(string)
	if !ok || enrollmentID == "" {
		s.logger.Warn("recalculation job without enrollment id", zap.String("job_id", job.ID))
		return nil
	}
	return s.Recalculate(ctx, enrollmentID)
}

// List returns joined results for administrators.
func (s *ResultService) List(ctx context.Context, filter models.ResultFilter) ([]models.ResultView, error) {
	views, err := s.results.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	if views == nil {
		views = []models.ResultView{}
	}
	for i := range views {
		views[i].Grade = grading.Normalize(views[i].Grade)
	}
	return views, nil
}

// ListForStudent returns a student's results, served from cache when possible.
// The boolean reports a cache hit.
func (s *ResultService) ListForStudent(ctx context.Context, studentID string) ([]models.ResultView, bool, error) {
	if studentID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "account is not linked to a student")
	}

	key := resultCachePrefix + "student:" + studentID
	if s.cache != nil {
		var cached []models.ResultView
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, true, nil
		}
	}

	views, err := s.List(ctx, models.ResultFilter{StudentID: studentID})
	if err != nil {
		return nil, false, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, views, s.config.CacheTTL)
	}
	return views, false, nil
}

func (s *ResultService) compute(enrollmentID string, rows []models.GradeEntry) (*models.Result, error) {
	entries := make([]grading.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, grading.Entry{ObtainedMarks: row.ObtainedMarks, TotalMarks: row.TotalMarks, Weight: row.Weightage})
	}
	pct, err := s.aggregator.Aggregate(entries)
	if err != nil {
		return nil, err
	}
	pct = grading.Round2(pct)
	class := s.classifier.Classify(pct)
	return &models.Result{
		EnrollmentID: enrollmentID,
		TotalMarks:   pct,
		Grade:        class.Grade,
		Status:       models.ResultStatus(class.Status),
		CalculatedAt: s.now().UTC(),
	}, nil
}

// store serialises writers per enrollment so concurrent runs cannot interleave.
func (s *ResultService) store(ctx context.Context, result *models.Result) error {
	unlock := s.locks.Lock(result.EnrollmentID)
	defer unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.results.Upsert(ctx, result)
}

func (s *ResultService) invalidate(ctx context.Context, pattern string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, pattern); err != nil {
		s.logger.Warn("result cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
}

func failureReason(err error) string {
	if errors.Is(err, grading.ErrNoEntries) {
		return appErrors.ErrNoGradableAssessments.Message
	}
	return err.Error()
}

func summaryMessage(summary *dto.GenerateResultsSummary) string {
	msg := fmt.Sprintf("Generated %d results. Skipped %d incomplete enrollments.", summary.Generated, summary.Skipped)
	if summary.Failed > 0 {
		msg += fmt.Sprintf(" Failed %d.", summary.Failed)
	}
	if summary.Pending > 0 {
		msg += fmt.Sprintf(" Timed out with %d pending.", summary.Pending)
	}
	return msg
}
