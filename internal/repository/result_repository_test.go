package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-results-api/internal/models"
)

const (
	lookupResultQuery = "SELECT id FROM results WHERE enrollment_id = $1 FOR UPDATE"
	updateResultQuery = "UPDATE results SET total_marks = $2, grade = $3, status = $4, calculated_at = $5 WHERE id = $1"
	insertResultQuery = "INSERT INTO results (id, enrollment_id, total_marks, grade, status, calculated_at)"
)

func TestResultRepositoryUpsertInserts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lookupResultQuery)).
		WithArgs("enr-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta(insertResultQuery)).
		WithArgs(sqlmock.AnyArg(), "enr-1", 74.0, "B", models.ResultStatusPass, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result := &models.Result{EnrollmentID: "enr-1", TotalMarks: 74, Grade: "B", Status: models.ResultStatusPass}
	require.NoError(t, repo.Upsert(context.Background(), result))
	assert.NotEmpty(t, result.ID)
	assert.False(t, result.CalculatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryUpsertIsIdempotent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	// first call inserts, second call finds the row and updates it in place
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lookupResultQuery)).WithArgs("enr-1").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta(insertResultQuery)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	first := &models.Result{ID: "res-1", EnrollmentID: "enr-1", TotalMarks: 66, Grade: "B-", Status: models.ResultStatusPass}
	require.NoError(t, repo.Upsert(context.Background(), first))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lookupResultQuery)).WithArgs("enr-1").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("res-1"))
	mock.ExpectExec(regexp.QuoteMeta(updateResultQuery)).
		WithArgs("res-1", 66.0, "B-", models.ResultStatusPass, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	second := &models.Result{EnrollmentID: "enr-1", TotalMarks: 66, Grade: "B-", Status: models.ResultStatusPass}
	require.NoError(t, repo.Upsert(context.Background(), second))
	assert.Equal(t, "res-1", second.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryUpsertRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lookupResultQuery)).WithArgs("enr-2").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("res-2"))
	mock.ExpectExec(regexp.QuoteMeta(updateResultQuery)).WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	err := repo.Upsert(context.Background(), &models.Result{EnrollmentID: "enr-2", TotalMarks: 40, Grade: "F", Status: models.ResultStatusFail})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update result")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryListFiltersByStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"result_id", "enrollment_id", "total_marks", "grade", "status", "calculated_at", "academic_year", "student_id", "roll_no", "student_name", "course_id", "course_code", "course_name", "credit_hours"}).
		AddRow("res-1", "enr-1", 74.0, "B", "Pass", now, "2025/2026", "stu-1", "R-01", "Ana", "crs-1", "CS101", "Intro", 3)
	mock.ExpectQuery(regexp.QuoteMeta("AND e.student_id = $1 ORDER BY c.course_code, s.roll_no")).
		WithArgs("stu-1").
		WillReturnRows(rows)

	views, err := repo.List(context.Background(), models.ResultFilter{StudentID: "stu-1"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "CS101", views[0].CourseCode)
	assert.Equal(t, models.ResultStatusPass, views[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
