package dto

import "github.com/noah-isme/academic-results-api/internal/models"

// CalculateResultRequest triggers calculation for a single enrollment.
type CalculateResultRequest struct {
	EnrollmentID string `json:"enrollment_id" validate:"required"`
}

// CalculateResultResponse echoes the stored result.
type CalculateResultResponse struct {
	Message string         `json:"message"`
	Result  *models.Result `json:"result"`
}

// ResultFailure records an enrollment whose result could not be stored.
type ResultFailure struct {
	EnrollmentID string `json:"enrollment_id"`
	Reason       string `json:"reason"`
}

// GenerateResultsSummary reports the outcome of a batch generation run.
// Generated + Skipped + Failed + Pending always equals Total.
type GenerateResultsSummary struct {
	Message    string          `json:"message"`
	Total      int             `json:"total"`
	Generated  int             `json:"generated"`
	Skipped    int             `json:"skipped"`
	Failed     int             `json:"failed"`
	Pending    int             `json:"pending"`
	Partial    bool            `json:"partial"`
	Failures   []ResultFailure `json:"failures,omitempty"`
	DurationMs int64           `json:"duration_ms"`
}

// UpsertGradeRequest records obtained marks for one assessment of an enrollment.
type UpsertGradeRequest struct {
	EnrollmentID  string   `json:"enrollment_id" validate:"required"`
	AssessmentID  string   `json:"assessment_id" validate:"required"`
	ObtainedMarks *float64 `json:"obtained_marks" validate:"required,gte=0"`
}

// ExportResultsRequest scopes an export.
type ExportResultsRequest struct {
	Format    string `form:"format" validate:"omitempty,oneof=csv pdf"`
	StudentID string `form:"studentId"`
	CourseID  string `form:"courseId"`
}
