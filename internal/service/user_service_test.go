package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edupath/enroll-api/internal/models"
)

type mockUserRepo struct {
	users   map[string]models.User
	emails  map[string]string
	deleted []string
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var list []models.User
	for _, u := range m.users {
		list = append(list, u)
	}
	return list, len(list), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	owner, ok := m.emails[email]
	return ok && owner != excludeID, nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.users[user.ID] = *user
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) (int64, error) {
	if _, ok := m.users[id]; !ok {
		return 0, nil
	}
	delete(m.users, id)
	m.deleted = append(m.deleted, id)
	return 1, nil
}

type mockUserEnrollmentCounter struct {
	counts map[string]int
}

func (m *mockUserEnrollmentCounter) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	return m.counts[userID], nil
}

func TestUserServiceUpdate(t *testing.T) {
	repo := &mockUserRepo{
		users:  map[string]models.User{"u1": {ID: "u1", FullName: "Ana", Email: "ana@example.com"}},
		emails: map[string]string{"ana@example.com": "u1"},
	}
	svc := NewUserService(repo, &mockUserEnrollmentCounter{}, validator.New(), zap.NewNop())

	user, err := svc.Update(context.Background(), "u1", UpdateUserRequest{Name: "Ana Souza", Email: "ana.souza@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", user.FullName)
	assert.Equal(t, "ana.souza@example.com", user.Email)
}

func TestUserServiceUpdateEmailTaken(t *testing.T) {
	repo := &mockUserRepo{
		users:  map[string]models.User{"u1": {ID: "u1", Email: "ana@example.com"}},
		emails: map[string]string{"ana@example.com": "u1", "taken@example.com": "u2"},
	}
	svc := NewUserService(repo, &mockUserEnrollmentCounter{}, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), "u1", UpdateUserRequest{Name: "Ana", Email: "taken@example.com"})
	appErr := asAppError(t, err)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "Email already exists", appErr.Message)
	assert.Equal(t, "Use a different email address", appErr.SuggestedAction)
}

func TestUserServiceDeleteBlockedByEnrollments(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{"u1": {ID: "u1"}}}
	counter := &mockUserEnrollmentCounter{counts: map[string]int{"u1": 2}}
	svc := NewUserService(repo, counter, validator.New(), zap.NewNop())

	_, err := svc.Delete(context.Background(), "u1")
	appErr := asAppError(t, err)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "User has active enrollments", appErr.Message)
	assert.Equal(t, 2, appErr.Meta["enrollmentCount"])
	assert.Empty(t, repo.deleted)
}

func TestUserServiceDeleteAfterEnrollmentsCleared(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{"u1": {ID: "u1"}}}
	counter := &mockUserEnrollmentCounter{counts: map[string]int{"u1": 1}}
	svc := NewUserService(repo, counter, validator.New(), zap.NewNop())

	_, err := svc.Delete(context.Background(), "u1")
	require.Error(t, err)

	counter.counts["u1"] = 0
	deletedID, err := svc.Delete(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", deletedID)
	assert.Contains(t, repo.deleted, "u1")
}

func TestUserServiceGetNotFound(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, &mockUserEnrollmentCounter{}, validator.New(), zap.NewNop())

	_, err := svc.Get(context.Background(), "missing")
	appErr := asAppError(t, err)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, "No user found with ID: missing", appErr.Details)
}
