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

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ExistsByKey(ctx context.Context, courseID, name, semester, excludeID string) (bool, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) (int64, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type classEnrollmentCounter interface {
	CountActiveByClass(ctx context.Context, classID string) (int, error)
}

// CreateClassRequest describes the class creation payload.
type CreateClassRequest struct {
	CourseID  string `json:"courseId" validate:"required,uuid"`
	TeacherID string `json:"teacherId" validate:"required,uuid"`
	Name      string `json:"name" validate:"required"`
	Semester  string `json:"semester" validate:"required"`
	Schedule  string `json:"schedule"`
}

// UpdateClassRequest describes the class update payload.
type UpdateClassRequest struct {
	Name     string `json:"name" validate:"required"`
	Semester string `json:"semester" validate:"required"`
	Schedule string `json:"schedule"`
}

// ClassService orchestrates class operations.
type ClassService struct {
	repo        classRepository
	courses     courseReader
	teachers    teacherReader
	enrollments classEnrollmentCounter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewClassService constructs a ClassService.
func NewClassService(repo classRepository, courses courseReader, teachers teacherReader, enrollments classEnrollmentCounter, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, courses: courses, teachers: teachers, enrollments: enrollments, validator: validate, logger: logger}
}

// List returns classes plus pagination data.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "CLASS_LIST_FAILED")
	}
	return classes, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// Get returns a class by id.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("Class not found", "No class found with ID: "+id)
		}
		return nil, appErrors.Internal(err, "CLASS_FETCH_FAILED")
	}
	return class, nil
}

// Create opens a new class section for an existing course and teacher.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest, claims *models.JWTClaims) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	if claims == nil || !authz.MatchesOwner(claims.RoleClaim, &req.TeacherID, s.logger) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "caller does not own this teacher resource")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("Course not found", "No course found with ID: "+req.CourseID)
		}
		return nil, appErrors.Internal(err, "CLASS_CREATION_FAILED")
	}
	if _, err := s.teachers.FindByID(ctx, req.TeacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("Teacher not found", "No teacher found with ID: "+req.TeacherID)
		}
		return nil, appErrors.Internal(err, "CLASS_CREATION_FAILED")
	}

	name := strings.TrimSpace(req.Name)
	semester := strings.TrimSpace(req.Semester)
	taken, err := s.repo.ExistsByKey(ctx, req.CourseID, name, semester, "")
	if err != nil {
		return nil, appErrors.Internal(err, "CLASS_CREATION_FAILED")
	}
	if taken {
		return nil, appErrors.Conflict("Class already exists", "A class with this name already exists for this course and semester")
	}

	class := &models.Class{
		CourseID:  req.CourseID,
		TeacherID: req.TeacherID,
		Name:      name,
		Semester:  semester,
		Schedule:  strings.TrimSpace(req.Schedule),
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Internal(err, "CLASS_CREATION_FAILED")
	}
	return class, nil
}

// Update modifies a class. Only the owning teacher may update, and a changed
// (name, semester) pair must stay unique within the course.
func (s *ClassService) Update(ctx context.Context, id string, req UpdateClassRequest, claims *models.JWTClaims) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("Class not found", "No class found with ID: "+id)
		}
		return nil, appErrors.Internal(err, "CLASS_UPDATE_FAILED")
	}
	if claims == nil || !authz.MatchesOwner(claims.RoleClaim, &class.TeacherID, s.logger) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "caller does not own this class")
	}

	name := strings.TrimSpace(req.Name)
	semester := strings.TrimSpace(req.Semester)
	if name != class.Name || semester != class.Semester {
		taken, err := s.repo.ExistsByKey(ctx, class.CourseID, name, semester, id)
		if err != nil {
			return nil, appErrors.Internal(err, "CLASS_UPDATE_FAILED")
		}
		if taken {
			return nil, appErrors.Conflict("Class already exists", "A class with this name already exists for this course and semester")
		}
	}

	class.Name = name
	class.Semester = semester
	class.Schedule = strings.TrimSpace(req.Schedule)
	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Internal(err, "CLASS_UPDATE_FAILED")
	}
	return class, nil
}

// Delete removes a class unless active enrollments still reference it.
func (s *ClassService) Delete(ctx context.Context, id string, claims *models.JWTClaims) (string, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.NotFound("Class not found", "No class found with ID: "+id)
		}
		return "", appErrors.Internal(err, "CLASS_DELETION_FAILED")
	}
	if claims == nil || !authz.MatchesOwner(claims.RoleClaim, &class.TeacherID, s.logger) {
		return "", appErrors.Clone(appErrors.ErrForbidden, "caller does not own this class")
	}

	count, err := s.enrollments.CountActiveByClass(ctx, id)
	if err != nil {
		return "", appErrors.Internal(err, "CLASS_DELETION_FAILED")
	}
	if count > 0 {
		return "", appErrors.ConflictWithCounts("Class has active enrollments",
			map[string]interface{}{"enrollmentCount": count})
	}

	if _, err := s.repo.Delete(ctx, id); err != nil {
		return "", appErrors.Internal(err, "CLASS_DELETION_FAILED")
	}
	return id, nil
}
