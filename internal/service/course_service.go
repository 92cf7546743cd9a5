package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupath/enroll-api/internal/authz"
	"github.com/edupath/enroll-api/internal/models"
	appErrors "github.com/edupath/enroll-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ExistsByTitle(ctx context.Context, title, teacherID, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) (int64, error)
}

type teacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type courseClassCounter interface {
	CountByCourse(ctx context.Context, courseID string) (int, error)
}

// CreateCourseRequest describes the course creation payload.
type CreateCourseRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Department  string `json:"department"`
	Workload    int    `json:"workload" validate:"gte=0"`
	TeacherID   string `json:"teacherId" validate:"required,uuid"`
}

// UpdateCourseRequest describes the course update payload.
type UpdateCourseRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Department  string `json:"department"`
	Workload    int    `json:"workload" validate:"gte=0"`
}

// CourseService orchestrates course operations.
type CourseService struct {
	repo      courseRepository
	teachers  teacherReader
	classes   courseClassCounter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, teachers teacherReader, classes courseClassCounter, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, teachers: teachers, classes: classes, validator: validate, logger: logger}
}

// List returns courses plus pagination data.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "COURSE_LIST_FAILED")
	}
	return courses, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// Get returns a course by id.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("Course not found", "No course found with ID: "+id)
		}
		return nil, appErrors.Internal(err, "COURSE_FETCH_FAILED")
	}
	return course, nil
}

// Create registers a new course owned by an existing teacher.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest, claims *models.JWTClaims) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if claims == nil || !authz.MatchesOwner(claims.RoleClaim, &req.TeacherID, s.logger) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "caller does not own this teacher resource")
	}
	if _, err := s.teachers.FindByID(ctx, req.TeacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("Teacher not found", "No teacher found with ID: "+req.TeacherID)
		}
		return nil, appErrors.Internal(err, "COURSE_CREATION_FAILED")
	}

	title := strings.TrimSpace(req.Title)
	taken, err := s.repo.ExistsByTitle(ctx, title, req.TeacherID, "")
	if err != nil {
		return nil, appErrors.Internal(err, "COURSE_CREATION_FAILED")
	}
	if taken {
		return nil, appErrors.Conflict("Course already exists", "A course with this title already exists for this teacher")
	}

	course := &models.Course{
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Department:  strings.TrimSpace(req.Department),
		Workload:    req.Workload,
		TeacherID:   req.TeacherID,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Internal(err, "COURSE_CREATION_FAILED")
	}
	return course, nil
}

// Update modifies a course. Only the owning teacher (or an admin claim bound
// to the same id) may update, and a changed title must stay unique per owner.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest, claims *models.JWTClaims) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("Course not found", "No course found with ID: "+id)
		}
		return nil, appErrors.Internal(err, "COURSE_UPDATE_FAILED")
	}
	if claims == nil || !authz.MatchesOwner(claims.RoleClaim, &course.TeacherID, s.logger) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "caller does not own this course")
	}

	title := strings.TrimSpace(req.Title)
	if title != course.Title {
		taken, err := s.repo.ExistsByTitle(ctx, title, course.TeacherID, id)
		if err != nil {
			return nil, appErrors.Internal(err, "COURSE_UPDATE_FAILED")
		}
		if taken {
			return nil, appErrors.Conflict("Course already exists", "A course with this title already exists for this teacher")
		}
	}

	course.Title = title
	course.Description = strings.TrimSpace(req.Description)
	course.Department = strings.TrimSpace(req.Department)
	course.Workload = req.Workload
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Internal(err, "COURSE_UPDATE_FAILED")
	}
	return course, nil
}

// Delete removes a course unless classes still reference it.
func (s *CourseService) Delete(ctx context.Context, id string, claims *models.JWTClaims) (string, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.NotFound("Course not found", "No course found with ID: "+id)
		}
		return "", appErrors.Internal(err, "COURSE_DELETION_FAILED")
	}
	if claims == nil || !authz.MatchesOwner(claims.RoleClaim, &course.TeacherID, s.logger) {
		return "", appErrors.Clone(appErrors.ErrForbidden, "caller does not own this course")
	}

	classCount, err := s.classes.CountByCourse(ctx, id)
	if err != nil {
		return "", appErrors.Internal(err, "COURSE_DELETION_FAILED")
	}
	if classCount > 0 {
		return "", appErrors.ConflictWithCounts("Course has classes",
			map[string]interface{}{"classCount": classCount})
	}

	if _, err := s.repo.Delete(ctx, id); err != nil {
		return "", appErrors.Internal(err, "COURSE_DELETION_FAILED")
	}
	return id, nil
}
