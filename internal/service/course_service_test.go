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

const testTeacherID = "b2a4c6e8-1111-4222-8333-444455556666"

type mockCourseRepo struct {
	courses map[string]models.Course
	titles  map[string]string
	created *models.Course
	deleted []string
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var list []models.Course
	for _, c := range m.courses {
		list = append(list, c)
	}
	return list, len(list), nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) ExistsByTitle(ctx context.Context, title, teacherID, excludeID string) (bool, error) {
	owner, ok := m.titles[title+"/"+teacherID]
	return ok && owner != excludeID, nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if m.courses == nil {
		m.courses = make(map[string]models.Course)
	}
	if course.ID == "" {
		course.ID = "new-course"
	}
	m.courses[course.ID] = *course
	m.created = course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) (int64, error) {
	if _, ok := m.courses[id]; !ok {
		return 0, nil
	}
	delete(m.courses, id)
	m.deleted = append(m.deleted, id)
	return 1, nil
}

type mockClassCounter struct {
	counts map[string]int
}

func (m *mockClassCounter) CountByCourse(ctx context.Context, courseID string) (int, error) {
	return m.counts[courseID], nil
}

func teacherClaims(teacherID string) *models.JWTClaims {
	return &models.JWTClaims{AccountID: teacherID, RoleClaim: "teacher:" + teacherID}
}

func newCourseFixture(repo *mockCourseRepo, classes *mockClassCounter) *CourseService {
	teachers := &mockTeacherRepo{teachers: map[string]models.Teacher{testTeacherID: {ID: testTeacherID}}}
	if classes == nil {
		classes = &mockClassCounter{}
	}
	return NewCourseService(repo, teachers, classes, validator.New(), zap.NewNop())
}

func TestCourseServiceCreate(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := newCourseFixture(repo, nil)

	course, err := svc.Create(context.Background(), CreateCourseRequest{
		Title:     "Data Structures",
		Workload:  60,
		TeacherID: testTeacherID,
	}, teacherClaims(testTeacherID))
	require.NoError(t, err)
	assert.Equal(t, "Data Structures", course.Title)
	require.NotNil(t, repo.created)
}

func TestCourseServiceCreateForbiddenForOtherTeacher(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := newCourseFixture(repo, nil)

	other := "c9d8e7f6-2222-4333-8444-555566667777"
	_, err := svc.Create(context.Background(), CreateCourseRequest{
		Title:     "Data Structures",
		TeacherID: testTeacherID,
	}, teacherClaims(other))
	appErr := asAppError(t, err)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
	assert.Nil(t, repo.created)
}

func TestCourseServiceCreateWithoutClaims(t *testing.T) {
	svc := newCourseFixture(&mockCourseRepo{}, nil)

	_, err := svc.Create(context.Background(), CreateCourseRequest{
		Title:     "Data Structures",
		TeacherID: testTeacherID,
	}, nil)
	appErr := asAppError(t, err)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
}

func TestCourseServiceCreateDuplicateTitle(t *testing.T) {
	repo := &mockCourseRepo{titles: map[string]string{"Data Structures/" + testTeacherID: "c0"}}
	svc := newCourseFixture(repo, nil)

	_, err := svc.Create(context.Background(), CreateCourseRequest{
		Title:     "Data Structures",
		TeacherID: testTeacherID,
	}, teacherClaims(testTeacherID))
	appErr := asAppError(t, err)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "Course already exists", appErr.Message)
}

func TestCourseServiceDeleteBlockedByClasses(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{"c1": {ID: "c1", TeacherID: testTeacherID}}}
	classes := &mockClassCounter{counts: map[string]int{"c1": 4}}
	svc := newCourseFixture(repo, classes)

	_, err := svc.Delete(context.Background(), "c1", teacherClaims(testTeacherID))
	appErr := asAppError(t, err)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "Course has classes", appErr.Message)
	assert.Equal(t, 4, appErr.Meta["classCount"])
	assert.Empty(t, repo.deleted)
}

func TestCourseServiceDeleteAfterClassesCleared(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{"c1": {ID: "c1", TeacherID: testTeacherID}}}
	classes := &mockClassCounter{counts: map[string]int{"c1": 1}}
	svc := newCourseFixture(repo, classes)

	_, err := svc.Delete(context.Background(), "c1", teacherClaims(testTeacherID))
	require.Error(t, err)

	classes.counts["c1"] = 0
	deletedID, err := svc.Delete(context.Background(), "c1", teacherClaims(testTeacherID))
	require.NoError(t, err)
	assert.Equal(t, "c1", deletedID)
}

func TestCourseServiceUpdateForbidden(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{"c1": {ID: "c1", Title: "Old", TeacherID: testTeacherID}}}
	svc := newCourseFixture(repo, nil)

	other := "c9d8e7f6-2222-4333-8444-555566667777"
	_, err := svc.Update(context.Background(), "c1", UpdateCourseRequest{Title: "New"}, teacherClaims(other))
	appErr := asAppError(t, err)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
	assert.Equal(t, "Old", repo.courses["c1"].Title)
}
