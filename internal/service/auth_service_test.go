package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/academic-results-api/internal/models"
	appErrors "github.com/noah-isme/academic-results-api/pkg/errors"
)

type mockAuthRepo struct {
	user             *models.User
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.user == nil || m.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func newAuthServiceForTest(t *testing.T, user *models.User) (*AuthService, *mockAuthRepo) {
	t.Helper()
	repo := &mockAuthRepo{user: user}
	return NewAuthService(repo, nil, nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "academic-results-api"}), repo
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceLoginIssuesStudentToken(t *testing.T) {
	studentID := "stu-1"
	svc, repo := newAuthServiceForTest(t, &models.User{ID: "u-1", Email: "ana@example.com", PasswordHash: hashed(t, "pa55word"), Role: models.RoleStudent, StudentID: &studentID, Active: true})

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@example.com", Password: "pa55word"})
	require.NoError(t, err)
	assert.Equal(t, "stu-1", resp.User.StudentID)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.True(t, repo.lastLoginUpdated)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "stu-1", claims.StudentID)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	svc, _ := newAuthServiceForTest(t, &models.User{ID: "u-1", Email: "admin@example.com", PasswordHash: hashed(t, "right"), Role: models.RoleAdmin, Active: true})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "wrong"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "right"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email", Password: "right"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	inactive, _ := newAuthServiceForTest(t, &models.User{ID: "u-2", Email: "old@example.com", PasswordHash: hashed(t, "right"), Active: false})
	_, err = inactive.Login(context.Background(), models.LoginRequest{Email: "old@example.com", Password: "right"})
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsForeignSignature(t *testing.T) {
	svc, _ := newAuthServiceForTest(t, &models.User{ID: "u-1", Email: "admin@example.com", PasswordHash: hashed(t, "right"), Role: models.RoleAdmin, Active: true})
	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "right"})
	require.NoError(t, err)

	other := NewAuthService(&mockAuthRepo{}, nil, nil, AuthConfig{AccessTokenSecret: "different", Issuer: "academic-results-api"})
	_, err = other.ValidateToken(resp.AccessToken)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	_, err = svc.ValidateToken("garbage")
	assert.Error(t, err)
}
