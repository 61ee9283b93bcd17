package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-results-api/internal/dto"
	"github.com/noah-isme/academic-results-api/internal/models"
	appErrors "github.com/noah-isme/academic-results-api/pkg/errors"
	"github.com/noah-isme/academic-results-api/pkg/response"
)

type gradeService interface {
	List(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, error)
	Upsert(ctx context.Context, req dto.UpsertGradeRequest) (*models.Grade, error)
}

// GradeHandler exposes grade entry endpoints.
type GradeHandler struct {
	grades gradeService
}

// NewGradeHandler constructs handler.
func NewGradeHandler(grades gradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// List godoc
// @Summary List grade entries
// @Tags Grades
// @Produce json
// @Security BearerAuth
// @Param enrollmentId query string false "Filter by enrollment"
// @Param assessmentId query string false "Filter by assessment"
// @Success 200 {object} response.Envelope
// @Router /admin/grades [get]
func (h *GradeHandler) List(c *gin.Context) {
	filter := models.GradeFilter{EnrollmentID: c.Query("enrollmentId"), AssessmentID: c.Query("assessmentId")}
	grades, err := h.grades.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil, responseMeta(c))
}

// Upsert godoc
// @Summary Record obtained marks
// @Description Creates or replaces the grade for an enrollment and assessment, then queues a result refresh
// @Tags Grades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UpsertGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/grades [post]
func (h *GradeHandler) Upsert(c *gin.Context) {
	var req dto.UpsertGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	grade, err := h.grades.Upsert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil, responseMeta(c))
}
