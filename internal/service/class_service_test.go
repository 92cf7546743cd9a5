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

const testCourseID = "d4e5f6a7-3333-4444-8555-666677778888"

type mockClassRepo struct {
	classes map[string]models.Class
	keys    map[string]string
	created *models.Class
	deleted []string
}

func (m *mockClassRepo) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	var list []models.ClassDetail
	for _, c := range m.classes {
		list = append(list, models.ClassDetail{Class: c})
	}
	return list, len(list), nil
}

func (m *mockClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) ExistsByKey(ctx context.Context, courseID, name, semester, excludeID string) (bool, error) {
	owner, ok := m.keys[courseID+"/"+name+"/"+semester]
	return ok && owner != excludeID, nil
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.Class) error {
	if m.classes == nil {
		m.classes = make(map[string]models.Class)
	}
	if class.ID == "" {
		class.ID = "new-class"
	}
	m.classes[class.ID] = *class
	m.created = class
	return nil
}

func (m *mockClassRepo) Update(ctx context.Context, class *models.Class) error {
	m.classes[class.ID] = *class
	return nil
}

func (m *mockClassRepo) Delete(ctx context.Context, id string) (int64, error) {
	if _, ok := m.classes[id]; !ok {
		return 0, nil
	}
	delete(m.classes, id)
	m.deleted = append(m.deleted, id)
	return 1, nil
}

type mockActiveEnrollmentCounter struct {
	counts map[string]int
}

func (m *mockActiveEnrollmentCounter) CountActiveByClass(ctx context.Context, classID string) (int, error) {
	return m.counts[classID], nil
}

func newClassFixture(repo *mockClassRepo, enrollments *mockActiveEnrollmentCounter) *ClassService {
	courses := &mockCourseRepo{courses: map[string]models.Course{testCourseID: {ID: testCourseID, TeacherID: testTeacherID}}}
	teachers := &mockTeacherRepo{teachers: map[string]models.Teacher{testTeacherID: {ID: testTeacherID}}}
	if enrollments == nil {
		enrollments = &mockActiveEnrollmentCounter{}
	}
	return NewClassService(repo, courses, teachers, enrollments, validator.New(), zap.NewNop())
}

func TestClassServiceCreate(t *testing.T) {
	repo := &mockClassRepo{}
	svc := newClassFixture(repo, nil)

	class, err := svc.Create(context.Background(), CreateClassRequest{
		CourseID:  testCourseID,
		TeacherID: testTeacherID,
		Name:      "Section A",
		Semester:  "2026.1",
	}, teacherClaims(testTeacherID))
	require.NoError(t, err)
	assert.Equal(t, "Section A", class.Name)
	require.NotNil(t, repo.created)
}

func TestClassServiceCreateForbidden(t *testing.T) {
	repo := &mockClassRepo{}
	svc := newClassFixture(repo, nil)

	other := "c9d8e7f6-2222-4333-8444-555566667777"
	_, err := svc.Create(context.Background(), CreateClassRequest{
		CourseID:  testCourseID,
		TeacherID: testTeacherID,
		Name:      "Section A",
		Semester:  "2026.1",
	}, teacherClaims(other))
	appErr := asAppError(t, err)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
	assert.Nil(t, repo.created)
}

func TestClassServiceCreateDuplicateKey(t *testing.T) {
	repo := &mockClassRepo{keys: map[string]string{testCourseID + "/Section A/2026.1": "k0"}}
	svc := newClassFixture(repo, nil)

	_, err := svc.Create(context.Background(), CreateClassRequest{
		CourseID:  testCourseID,
		TeacherID: testTeacherID,
		Name:      "Section A",
		Semester:  "2026.1",
	}, teacherClaims(testTeacherID))
	appErr := asAppError(t, err)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "Class already exists", appErr.Message)
}

func TestClassServiceCreateCourseNotFound(t *testing.T) {
	svc := newClassFixture(&mockClassRepo{}, nil)

	missing := "00000000-0000-4000-8000-000000000097"
	_, err := svc.Create(context.Background(), CreateClassRequest{
		CourseID:  missing,
		TeacherID: testTeacherID,
		Name:      "Section A",
		Semester:  "2026.1",
	}, teacherClaims(testTeacherID))
	appErr := asAppError(t, err)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, "Course not found", appErr.Message)
}

func TestClassServiceDeleteBlockedByEnrollments(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]models.Class{"k1": {ID: "k1", TeacherID: testTeacherID}}}
	enrollments := &mockActiveEnrollmentCounter{counts: map[string]int{"k1": 7}}
	svc := newClassFixture(repo, enrollments)

	_, err := svc.Delete(context.Background(), "k1", teacherClaims(testTeacherID))
	appErr := asAppError(t, err)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "Class has active enrollments", appErr.Message)
	assert.Equal(t, 7, appErr.Meta["enrollmentCount"])
	assert.Empty(t, repo.deleted)
}

func TestClassServiceDeleteAfterEnrollmentsCleared(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]models.Class{"k1": {ID: "k1", TeacherID: testTeacherID}}}
	enrollments := &mockActiveEnrollmentCounter{counts: map[string]int{"k1": 1}}
	svc := newClassFixture(repo, enrollments)

	_, err := svc.Delete(context.Background(), "k1", teacherClaims(testTeacherID))
	require.Error(t, err)

	enrollments.counts["k1"] = 0
	deletedID, err := svc.Delete(context.Background(), "k1", teacherClaims(testTeacherID))
	require.NoError(t, err)
	assert.Equal(t, "k1", deletedID)
}

func TestClassServiceUpdateKeptKeySkipsUniquenessCheck(t *testing.T) {
	repo := &mockClassRepo{
		classes: map[string]models.Class{"k1": {ID: "k1", CourseID: testCourseID, TeacherID: testTeacherID, Name: "Section A", Semester: "2026.1"}},
		keys:    map[string]string{testCourseID + "/Section A/2026.1": "k1"},
	}
	svc := newClassFixture(repo, nil)

	class, err := svc.Update(context.Background(), "k1", UpdateClassRequest{
		Name:     "Section A",
		Semester: "2026.1",
		Schedule: "Mon 10:00",
	}, teacherClaims(testTeacherID))
	require.NoError(t, err)
	assert.Equal(t, "Mon 10:00", class.Schedule)
}
