package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-results-api/internal/dto"
	"github.com/noah-isme/academic-results-api/internal/models"
	appErrors "github.com/noah-isme/academic-results-api/pkg/errors"
	"github.com/noah-isme/academic-results-api/pkg/grading"
	"github.com/noah-isme/academic-results-api/pkg/jobs"
)

type fakeEnrollmentSummaries struct {
	summaries []models.EnrollmentSummary
	listErr   error
	block     bool
}

func (f *fakeEnrollmentSummaries) ListSummaries(ctx context.Context) ([]models.EnrollmentSummary, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.summaries, nil
}

func (f *fakeEnrollmentSummaries) FindSummary(ctx context.Context, id string) (*models.EnrollmentSummary, error) {
	for i := range f.summaries {
		if f.summaries[i].EnrollmentID == id {
			summary := f.summaries[i]
			return &summary, nil
		}
	}
	return nil, sql.ErrNoRows
}

type fakeGradeEntries struct {
	entries map[string][]models.GradeEntry
	calls   int
	block   bool
}

func (f *fakeGradeEntries) FetchEntries(ctx context.Context, ids []string) (map[string][]models.GradeEntry, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	out := make(map[string][]models.GradeEntry, len(ids))
	for _, id := range ids {
		if rows, ok := f.entries[id]; ok {
			out[id] = rows
		}
	}
	return out, nil
}

type fakeResultStore struct {
	mu      sync.Mutex
	rows    map[string]models.Result
	upserts int
	failFor map[string]error
	block   bool
	views   []models.ResultView
	lists   int
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{rows: make(map[string]models.Result), failFor: make(map[string]error)}
}

func (f *fakeResultStore) Upsert(ctx context.Context, result *models.Result) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[result.EnrollmentID]; err != nil {
		return err
	}
	f.upserts++
	if existing, ok := f.rows[result.EnrollmentID]; ok {
		result.ID = existing.ID
	} else if result.ID == "" {
		result.ID = "res-" + result.EnrollmentID
	}
	f.rows[result.EnrollmentID] = *result
	return nil
}

func (f *fakeResultStore) List(ctx context.Context, filter models.ResultFilter) ([]models.ResultView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	var out []models.ResultView
	for _, view := range f.views {
		if filter.StudentID == "" || view.StudentID == filter.StudentID {
			out = append(out, view)
		}
	}
	return out, nil
}

type fakeResultCache struct {
	mu          sync.Mutex
	items       map[string][]byte
	invalidated []string
}

func (f *fakeResultCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (f *fakeResultCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if f.items == nil {
		f.items = make(map[string][]byte)
	}
	f.items[key] = raw
	return nil
}

func (f *fakeResultCache) Invalidate(ctx context.Context, pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, pattern)
	f.items = nil
	return nil
}

func ptr(v float64) *float64 { return &v }

func complete(id, student string, n int) models.EnrollmentSummary {
	return models.EnrollmentSummary{EnrollmentID: id, StudentID: student, CourseID: "crs-1", AcademicYear: "2025/2026", TotalAssessments: n, GradedAssessments: n}
}

func newResultServiceForTest(summaries []models.EnrollmentSummary, entries map[string][]models.GradeEntry, store *fakeResultStore, cfg ResultEngineConfig) (*ResultService, *fakeGradeEntries, *fakeResultCache) {
	grades := &fakeGradeEntries{entries: entries}
	cache := &fakeResultCache{}
	svc := NewResultService(&fakeEnrollmentSummaries{summaries: summaries}, grades, store, cache, cfg, nil, zap.NewNop(), NewMetricsService())
	return svc, grades, cache
}

var weightedEntries = []models.GradeEntry{
	{EnrollmentID: "enr-1", AssessmentID: "quiz", ObtainedMarks: 18, TotalMarks: 20, Weightage: ptr(20)},
	{EnrollmentID: "enr-1", AssessmentID: "final", ObtainedMarks: 70, TotalMarks: 100, Weightage: ptr(80)},
}

func TestResultServiceCalculateWeighted(t *testing.T) {
	store := newFakeResultStore()
	svc, _, cache := newResultServiceForTest(
		[]models.EnrollmentSummary{complete("enr-1", "stu-1", 2)},
		map[string][]models.GradeEntry{"enr-1": weightedEntries},
		store, ResultEngineConfig{},
	)

	result, err := svc.Calculate(context.Background(), dto.CalculateResultRequest{EnrollmentID: "enr-1"})
	require.NoError(t, err)
	assert.Equal(t, 74.0, result.TotalMarks)
	assert.Equal(t, "B", result.Grade)
	assert.Equal(t, models.ResultStatusPass, result.Status)
	assert.Equal(t, result.TotalMarks, store.rows["enr-1"].TotalMarks)
	assert.Contains(t, cache.invalidated, "results:student:stu-1")
}

func TestResultServiceCalculateIsIdempotent(t *testing.T) {
	store := newFakeResultStore()
	svc, _, _ := newResultServiceForTest(
		[]models.EnrollmentSummary{complete("enr-1", "stu-1", 2)},
		map[string][]models.GradeEntry{"enr-1": weightedEntries},
		store, ResultEngineConfig{},
	)

	first, err := svc.Calculate(context.Background(), dto.CalculateResultRequest{EnrollmentID: "enr-1"})
	require.NoError(t, err)
	second, err := svc.Calculate(context.Background(), dto.CalculateResultRequest{EnrollmentID: "enr-1"})
	require.NoError(t, err)

	assert.Len(t, store.rows, 1)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.TotalMarks, second.TotalMarks)
	assert.Equal(t, first.Grade, second.Grade)
}

func TestResultServiceCalculateErrors(t *testing.T) {
	summaries := []models.EnrollmentSummary{
		{EnrollmentID: "ungraded", TotalAssessments: 2, GradedAssessments: 0},
		{EnrollmentID: "partial", TotalAssessments: 3, GradedAssessments: 2},
		complete("zero-total", "stu-1", 1),
	}
	entries := map[string][]models.GradeEntry{
		"zero-total": {{EnrollmentID: "zero-total", AssessmentID: "a", ObtainedMarks: 5, TotalMarks: 0}},
	}
	store := newFakeResultStore()
	svc, _, _ := newResultServiceForTest(summaries, entries, store, ResultEngineConfig{})

	cases := map[string]*appErrors.Error{
		"":           appErrors.ErrValidation,
		"missing":    appErrors.ErrNotFound,
		"ungraded":   appErrors.ErrNoGrades,
		"partial":    appErrors.ErrIncompleteGrades,
		"zero-total": appErrors.ErrNoGradableAssessments,
	}
	for id, want := range cases {
		_, err := svc.Calculate(context.Background(), dto.CalculateResultRequest{EnrollmentID: id})
		require.Error(t, err, id)
		assert.Equal(t, want.Code, appErrors.FromError(err).Code, id)
	}
	assert.Empty(t, store.rows)
}

func TestResultServiceCalculateStoreFailure(t *testing.T) {
	store := newFakeResultStore()
	store.failFor["enr-1"] = errors.New("db down")
	svc, _, _ := newResultServiceForTest(
		[]models.EnrollmentSummary{complete("enr-1", "stu-1", 2)},
		map[string][]models.GradeEntry{"enr-1": weightedEntries},
		store, ResultEngineConfig{},
	)

	_, err := svc.Calculate(context.Background(), dto.CalculateResultRequest{EnrollmentID: "enr-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestResultServiceGenerateAllSkipsIncomplete(t *testing.T) {
	summaries := []models.EnrollmentSummary{
		complete("enr-1", "stu-1", 2),
		{EnrollmentID: "enr-2", StudentID: "stu-2", TotalAssessments: 2, GradedAssessments: 1},
		{EnrollmentID: "enr-3", StudentID: "stu-3"},
		complete("enr-4", "stu-4", 1),
	}
	entries := map[string][]models.GradeEntry{
		"enr-1": weightedEntries,
		"enr-4": {{EnrollmentID: "enr-4", AssessmentID: "final", ObtainedMarks: 40, TotalMarks: 100}},
	}
	store := newFakeResultStore()
	svc, grades, cache := newResultServiceForTest(summaries, entries, store, ResultEngineConfig{Workers: 2})

	summary, err := svc.GenerateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.Generated)
	assert.Equal(t, 2, summary.Skipped)
	assert.Zero(t, summary.Failed)
	assert.Zero(t, summary.Pending)
	assert.False(t, summary.Partial)
	assert.Equal(t, "Generated 2 results. Skipped 2 incomplete enrollments.", summary.Message)
	assert.Equal(t, 1, grades.calls)

	assert.Equal(t, "B", store.rows["enr-1"].Grade)
	assert.Equal(t, "F", store.rows["enr-4"].Grade)
	assert.Equal(t, models.ResultStatusFail, store.rows["enr-4"].Status)
	assert.NotContains(t, store.rows, "enr-2")
	assert.NotContains(t, store.rows, "enr-3")
	assert.Contains(t, cache.invalidated, "results:*")
}

func TestResultServiceGenerateAllTwiceKeepsOneRowPerEnrollment(t *testing.T) {
	store := newFakeResultStore()
	svc, _, _ := newResultServiceForTest(
		[]models.EnrollmentSummary{complete("enr-1", "stu-1", 2)},
		map[string][]models.GradeEntry{"enr-1": weightedEntries},
		store, ResultEngineConfig{},
	)

	_, err := svc.GenerateAll(context.Background())
	require.NoError(t, err)
	before := store.rows["enr-1"]
	_, err = svc.GenerateAll(context.Background())
	require.NoError(t, err)

	assert.Len(t, store.rows, 1)
	assert.Equal(t, before.ID, store.rows["enr-1"].ID)
	assert.Equal(t, before.TotalMarks, store.rows["enr-1"].TotalMarks)
}

func TestResultServiceGenerateAllCountsFailures(t *testing.T) {
	summaries := []models.EnrollmentSummary{
		complete("enr-1", "stu-1", 2),
		complete("enr-2", "stu-2", 1),
		complete("enr-3", "stu-3", 1),
	}
	entries := map[string][]models.GradeEntry{
		"enr-1": weightedEntries,
		"enr-2": {{EnrollmentID: "enr-2", AssessmentID: "a", ObtainedMarks: 10, TotalMarks: 20}},
		"enr-3": {{EnrollmentID: "enr-3", AssessmentID: "a", ObtainedMarks: 1, TotalMarks: 0}},
	}
	store := newFakeResultStore()
	store.failFor["enr-2"] = errors.New("constraint violation")
	svc, _, _ := newResultServiceForTest(summaries, entries, store, ResultEngineConfig{})

	summary, err := svc.GenerateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Generated)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Pending)
	assert.False(t, summary.Partial)
	assert.Equal(t, summary.Total, summary.Generated+summary.Skipped+summary.Failed+summary.Pending)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "enr-2", summary.Failures[0].EnrollmentID)
	assert.Equal(t, "constraint violation", summary.Failures[0].Reason)
	assert.Equal(t, "Generated 1 results. Skipped 1 incomplete enrollments. Failed 1.", summary.Message)
	_, stored := store.rows["enr-3"]
	assert.False(t, stored)
}

func TestResultServiceGenerateAllSkipsUngradableEnrollment(t *testing.T) {
	store := newFakeResultStore()
	svc, _, _ := newResultServiceForTest(
		[]models.EnrollmentSummary{complete("enr-1", "stu-1", 1)},
		map[string][]models.GradeEntry{
			"enr-1": {{EnrollmentID: "enr-1", AssessmentID: "a", ObtainedMarks: 1, TotalMarks: 0}},
		},
		store, ResultEngineConfig{},
	)

	summary, err := svc.GenerateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Generated)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.Empty(t, summary.Failures)
	assert.Equal(t, "Generated 0 results. Skipped 1 incomplete enrollments.", summary.Message)
	assert.Zero(t, store.upserts)
}

func TestResultServiceGenerateAllTimeoutWhileLoadingGrades(t *testing.T) {
	summaries := []models.EnrollmentSummary{
		complete("enr-1", "stu-1", 2),
		complete("enr-2", "stu-2", 1),
		{EnrollmentID: "enr-3", StudentID: "stu-3", TotalAssessments: 2, GradedAssessments: 1},
	}
	store := newFakeResultStore()
	svc, grades, _ := newResultServiceForTest(summaries, nil, store, ResultEngineConfig{BatchTimeout: 20 * time.Millisecond})
	grades.block = true

	summary, err := svc.GenerateAll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.True(t, summary.Partial)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 2, summary.Pending)
	assert.Equal(t, 0, summary.Generated)
	assert.Equal(t, summary.Total, summary.Generated+summary.Skipped+summary.Failed+summary.Pending)
	assert.Equal(t, "Generated 0 results. Skipped 1 incomplete enrollments. Timed out with 2 pending.", summary.Message)
	assert.Zero(t, store.upserts)
}

func TestResultServiceGenerateAllTimeoutWhileListingEnrollments(t *testing.T) {
	enrollments := &fakeEnrollmentSummaries{block: true}
	svc := NewResultService(enrollments, &fakeGradeEntries{}, newFakeResultStore(), &fakeResultCache{},
		ResultEngineConfig{BatchTimeout: 20 * time.Millisecond}, nil, zap.NewNop(), nil)

	summary, err := svc.GenerateAll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.True(t, summary.Partial)
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, 0, summary.Generated)
}

func TestResultServiceGenerateAllTimeoutReportsPending(t *testing.T) {
	summaries := make([]models.EnrollmentSummary, 0, 5)
	entries := make(map[string][]models.GradeEntry)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		summaries = append(summaries, complete(id, "stu-"+id, 1))
		entries[id] = []models.GradeEntry{{EnrollmentID: id, AssessmentID: "x", ObtainedMarks: 50, TotalMarks: 100}}
	}
	store := newFakeResultStore()
	store.block = true
	svc, _, _ := newResultServiceForTest(summaries, entries, store, ResultEngineConfig{Workers: 1, BatchTimeout: 30 * time.Millisecond})

	summary, err := svc.GenerateAll(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Partial)
	assert.Equal(t, 5, summary.Pending)
	assert.Zero(t, summary.Generated)
	assert.Equal(t, summary.Total, summary.Generated+summary.Skipped+summary.Failed+summary.Pending)
	assert.Contains(t, summary.Message, "Timed out with 5 pending.")
}

func TestResultServiceGenerateAllEmpty(t *testing.T) {
	svc, grades, _ := newResultServiceForTest(nil, nil, newFakeResultStore(), ResultEngineConfig{})

	summary, err := svc.GenerateAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	assert.Equal(t, "Generated 0 results. Skipped 0 incomplete enrollments.", summary.Message)
	assert.Zero(t, grades.calls)
}

func TestResultServiceGenerateAllListFailure(t *testing.T) {
	svc := NewResultService(&fakeEnrollmentSummaries{listErr: errors.New("boom")}, &fakeGradeEntries{}, newFakeResultStore(), nil, ResultEngineConfig{}, nil, nil, nil)

	_, err := svc.GenerateAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestResultServiceAveragePolicyAndLegacyTable(t *testing.T) {
	store := newFakeResultStore()
	svc, _, _ := newResultServiceForTest(
		[]models.EnrollmentSummary{complete("enr-1", "stu-1", 2)},
		map[string][]models.GradeEntry{"enr-1": weightedEntries},
		store, ResultEngineConfig{Policy: grading.PolicyAverage, Boundaries: grading.LegacyBoundaries},
	)

	result, err := svc.Calculate(context.Background(), dto.CalculateResultRequest{EnrollmentID: "enr-1"})
	require.NoError(t, err)
	assert.Equal(t, 80.0, result.TotalMarks)
	assert.Equal(t, "A-", result.Grade)
}

func TestResultServiceRecalculate(t *testing.T) {
	summaries := []models.EnrollmentSummary{
		complete("enr-1", "stu-1", 2),
		{EnrollmentID: "enr-2", StudentID: "stu-2", TotalAssessments: 2, GradedAssessments: 1},
	}
	store := newFakeResultStore()
	svc, _, _ := newResultServiceForTest(summaries, map[string][]models.GradeEntry{"enr-1": weightedEntries}, store, ResultEngineConfig{})

	require.NoError(t, svc.HandleJob(context.Background(), jobs.Job{ID: "1", Type: JobRecalculateResult, Payload: "enr-1"}))
	require.NoError(t, svc.HandleJob(context.Background(), jobs.Job{ID: "2", Type: JobRecalculateResult, Payload: "enr-2"}))
	require.NoError(t, svc.HandleJob(context.Background(), jobs.Job{ID: "3", Type: JobRecalculateResult, Payload: "missing"}))
	assert.Error(t, svc.HandleJob(context.Background(), jobs.Job{ID: "4", Type: "other"}))

	assert.Len(t, store.rows, 1)
	assert.Equal(t, 74.0, store.rows["enr-1"].TotalMarks)
}

func TestResultServiceListForStudentUsesCache(t *testing.T) {
	store := newFakeResultStore()
	store.views = []models.ResultView{
		{ResultID: "res-1", StudentID: "stu-1", CourseCode: "CS101", Grade: "B", Status: models.ResultStatusPass},
		{ResultID: "res-2", StudentID: "stu-2", CourseCode: "CS101", Grade: "F", Status: models.ResultStatusFail},
	}
	svc, _, _ := newResultServiceForTest(nil, nil, store, ResultEngineConfig{})

	views, hit, err := svc.ListForStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, views, 1)

	views, hit, err = svc.ListForStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "res-1", views[0].ResultID)
	assert.Equal(t, 1, store.lists)

	_, _, err = svc.ListForStudent(context.Background(), "")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
