package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-results-api/internal/dto"
	"github.com/noah-isme/academic-results-api/internal/models"
	appErrors "github.com/noah-isme/academic-results-api/pkg/errors"
	"github.com/noah-isme/academic-results-api/pkg/export"
)

type resultLister interface {
	List(ctx context.Context, filter models.ResultFilter) ([]models.ResultView, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	MaxRows int
}

// ExportFile is a rendered document ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

var resultColumns = []export.Column{
	{Key: "roll_no", Header: "Roll No", Width: 1},
	{Key: "student", Header: "Student", Width: 2},
	{Key: "course_code", Header: "Course", Width: 1},
	{Key: "course_name", Header: "Course Name", Width: 2.2},
	{Key: "credit_hours", Header: "Credits", Width: 0.7},
	{Key: "academic_year", Header: "Year", Width: 1},
	{Key: "percentage", Header: "Percentage", Width: 1},
	{Key: "grade", Header: "Grade", Width: 0.7},
	{Key: "status", Header: "Status", Width: 0.7},
}

// ExportService renders stored results as CSV or PDF.
type ExportService struct {
	results   resultLister
	csv       csvRenderer
	pdf       pdfRenderer
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(results resultLister, cfg ExportConfig, validate *validator.Validate, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 5000
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{results: results, csv: csv, pdf: pdf, validator: validate, logger: logger, cfg: cfg, now: time.Now}
}

// ExportResults renders the filtered result set.
func (s *ExportService) ExportResults(ctx context.Context, req dto.ExportResultsRequest) (*ExportFile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export parameters")
	}
	format := req.Format
	if format == "" {
		format = "csv"
	}

	views, err := s.results.List(ctx, models.ResultFilter{StudentID: req.StudentID, CourseID: req.CourseID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load results")
	}
	if len(views) > s.cfg.MaxRows {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("export exceeds %d rows, narrow the filter", s.cfg.MaxRows))
	}

	dataset := export.Dataset{Title: "Academic Results", Columns: resultColumns, Rows: make([]map[string]string, 0, len(views))}
	for _, v := range views {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"roll_no":       v.RollNo,
			"student":       v.StudentName,
			"course_code":   v.CourseCode,
			"course_name":   v.CourseName,
			"credit_hours":  strconv.Itoa(v.CreditHours),
			"academic_year": v.AcademicYear,
			"percentage":    strconv.FormatFloat(v.TotalMarks, 'f', 2, 64),
			"grade":         v.Grade,
			"status":        string(v.Status),
		})
	}

	stamp := s.now().UTC().Format("20060102-150405")
	file := &ExportFile{Rows: len(views)}
	switch format {
	case "pdf":
		file.Data, err = s.pdf.Render(dataset)
		file.ContentType = "application/pdf"
		file.Filename = "results-" + stamp + ".pdf"
	default:
		file.Data, err = s.csv.Render(dataset)
		file.ContentType = "text/csv"
		file.Filename = "results-" + stamp + ".csv"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("results exported", zap.String("format", format), zap.Int("rows", file.Rows))
	return file, nil
}
