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

type mockTeacherRepo struct {
	teachers map[string]models.Teacher
	emails   map[string]string
	deleted  []string
}

func (m *mockTeacherRepo) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	var list []models.Teacher
	for _, t := range m.teachers {
		list = append(list, t)
	}
	return list, len(list), nil
}

func (m *mockTeacherRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := m.teachers[id]; ok {
		return &teacher, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	owner, ok := m.emails[email]
	return ok && owner != excludeID, nil
}

func (m *mockTeacherRepo) Update(ctx context.Context, teacher *models.Teacher) error {
	m.teachers[teacher.ID] = *teacher
	return nil
}

func (m *mockTeacherRepo) Delete(ctx context.Context, id string) (int64, error) {
	if _, ok := m.teachers[id]; !ok {
		return 0, nil
	}
	delete(m.teachers, id)
	m.deleted = append(m.deleted, id)
	return 1, nil
}

type mockDependentCounter struct {
	counts map[string]int
}

func (m *mockDependentCounter) CountByTeacher(ctx context.Context, teacherID string) (int, error) {
	return m.counts[teacherID], nil
}

func TestTeacherServiceDeleteBlockedByDependents(t *testing.T) {
	repo := &mockTeacherRepo{teachers: map[string]models.Teacher{"t1": {ID: "t1"}}}
	courses := &mockDependentCounter{counts: map[string]int{"t1": 3}}
	classes := &mockDependentCounter{counts: map[string]int{"t1": 5}}
	svc := NewTeacherService(repo, courses, classes, validator.New(), zap.NewNop())

	_, err := svc.Delete(context.Background(), "t1")
	appErr := asAppError(t, err)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "Teacher has dependent records", appErr.Message)
	assert.Equal(t, 3, appErr.Meta["courseCount"])
	assert.Equal(t, 5, appErr.Meta["classCount"])
	assert.Empty(t, repo.deleted)
}

func TestTeacherServiceDeleteAfterDependentsCleared(t *testing.T) {
	repo := &mockTeacherRepo{teachers: map[string]models.Teacher{"t1": {ID: "t1"}}}
	courses := &mockDependentCounter{counts: map[string]int{"t1": 1}}
	classes := &mockDependentCounter{counts: map[string]int{}}
	svc := NewTeacherService(repo, courses, classes, validator.New(), zap.NewNop())

	_, err := svc.Delete(context.Background(), "t1")
	require.Error(t, err)

	courses.counts["t1"] = 0
	deletedID, err := svc.Delete(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", deletedID)
}

func TestTeacherServiceUpdateEmailTaken(t *testing.T) {
	repo := &mockTeacherRepo{
		teachers: map[string]models.Teacher{"t1": {ID: "t1", Email: "prof@example.com"}},
		emails:   map[string]string{"prof@example.com": "t1", "other@example.com": "t2"},
	}
	svc := NewTeacherService(repo, &mockDependentCounter{}, &mockDependentCounter{}, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), "t1", UpdateTeacherRequest{Name: "Prof", Email: "other@example.com"})
	appErr := asAppError(t, err)
	assert.Equal(t, http.StatusConflict, appErr.Status)
}

func TestTeacherServiceDeleteNotFound(t *testing.T) {
	svc := NewTeacherService(&mockTeacherRepo{}, &mockDependentCounter{}, &mockDependentCounter{}, validator.New(), zap.NewNop())

	_, err := svc.Delete(context.Background(), "missing")
	appErr := asAppError(t, err)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, "Teacher not found", appErr.Message)
}
