package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-results-api/internal/dto"
	"github.com/noah-isme/academic-results-api/internal/middleware"
	"github.com/noah-isme/academic-results-api/internal/models"
	"github.com/noah-isme/academic-results-api/internal/service"
	appErrors "github.com/noah-isme/academic-results-api/pkg/errors"
	"github.com/noah-isme/academic-results-api/pkg/response"
)

type resultService interface {
	Calculate(ctx context.Context, req dto.CalculateResultRequest) (*models.Result, error)
	GenerateAll(ctx context.Context) (*dto.GenerateResultsSummary, error)
	List(ctx context.Context, filter models.ResultFilter) ([]models.ResultView, error)
	ListForStudent(ctx context.Context, studentID string) ([]models.ResultView, bool, error)
}

type resultExporter interface {
	ExportResults(ctx context.Context, req dto.ExportResultsRequest) (*service.ExportFile, error)
}

// ResultHandler exposes result computation and retrieval endpoints.
type ResultHandler struct {
	results  resultService
	exporter resultExporter
}

// NewResultHandler constructs handler. exporter may be nil.
func NewResultHandler(results resultService, exporter resultExporter) *ResultHandler {
	return &ResultHandler{results: results, exporter: exporter}
}

// Generate godoc
// @Summary Generate all results
// @Description Recomputes results for every fully graded enrollment. Incomplete enrollments are skipped.
// @Tags Results
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/results/generate [post]
func (h *ResultHandler) Generate(c *gin.Context) {
	summary, err := h.results.GenerateAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, responseMeta(c))
}

// Calculate godoc
// @Summary Calculate one result
// @Tags Results
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CalculateResultRequest true "Enrollment"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /admin/results/calculate [post]
func (h *ResultHandler) Calculate(c *gin.Context) {
	var req dto.CalculateResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.results.Calculate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.CalculateResultResponse{Message: "Result calculated successfully", Result: result}, nil, responseMeta(c))
}

// List godoc
// @Summary List results
// @Tags Results
// @Produce json
// @Security BearerAuth
// @Param studentId query string false "Filter by student"
// @Param courseId query string false "Filter by course"
// @Success 200 {object} response.Envelope
// @Router /admin/results [get]
func (h *ResultHandler) List(c *gin.Context) {
	filter := models.ResultFilter{StudentID: c.Query("studentId"), CourseID: c.Query("courseId")}
	views, err := h.results.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil, responseMeta(c))
}

// ListByStudent godoc
// @Summary Results of one student
// @Tags Results
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /admin/students/{id}/results [get]
func (h *ResultHandler) ListByStudent(c *gin.Context) {
	views, err := h.results.List(c.Request.Context(), models.ResultFilter{StudentID: c.Param("id")})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil, responseMeta(c))
}

// MyResults godoc
// @Summary Results of the signed-in student
// @Tags Results
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /student/results [get]
func (h *ResultHandler) MyResults(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	views, hit, err := h.results.ListForStudent(c.Request.Context(), claims.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, views, nil, responseMeta(c))
}

// Export godoc
// @Summary Export results
// @Tags Results
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf"
// @Param studentId query string false "Filter by student"
// @Param courseId query string false "Filter by course"
// @Success 200 {file} file
// @Router /admin/results/export [get]
func (h *ResultHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	var req dto.ExportResultsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	file, err := h.exporter.ExportResults(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
