package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupath/enroll-api/internal/models"
	appErrors "github.com/edupath/enroll-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id string) (int64, error)
}

type teacherCourseCounter interface {
	CountByTeacher(ctx context.Context, teacherID string) (int, error)
}

type teacherClassCounter interface {
	CountByTeacher(ctx context.Context, teacherID string) (int, error)
}

// UpdateTeacherRequest represents payload for updating a teacher profile.
type UpdateTeacherRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// TeacherService orchestrates teacher account operations.
type TeacherService struct {
	repo      teacherRepository
	courses   teacherCourseCounter
	classes   teacherClassCounter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, courses teacherCourseCounter, classes teacherClassCounter, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, courses: courses, classes: classes, validator: validate, logger: logger}
}

// List returns teachers plus pagination data.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "TEACHER_LIST_FAILED")
	}
	return teachers, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// Get returns a teacher by id.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("Teacher not found", "No teacher found with ID: "+id)
		}
		return nil, appErrors.Internal(err, "TEACHER_FETCH_FAILED")
	}
	return teacher, nil
}

// Update modifies a teacher profile, guarding email uniqueness.
func (s *TeacherService) Update(ctx context.Context, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("Teacher not found", "No teacher found with ID: "+id)
		}
		return nil, appErrors.Internal(err, "TEACHER_UPDATE_FAILED")
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email != teacher.Email {
		taken, err := s.repo.ExistsByEmail(ctx, email, id)
		if err != nil {
			return nil, appErrors.Internal(err, "TEACHER_UPDATE_FAILED")
		}
		if taken {
			return nil, appErrors.Conflict("Email already exists", "Use a different email address")
		}
	}

	teacher.FullName = strings.TrimSpace(req.Name)
	teacher.Email = email
	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Internal(err, "TEACHER_UPDATE_FAILED")
	}
	return teacher, nil
}

// Delete removes a teacher unless courses or classes still reference it.
func (s *TeacherService) Delete(ctx context.Context, id string) (string, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.NotFound("Teacher not found", "No teacher found with ID: "+id)
		}
		return "", appErrors.Internal(err, "TEACHER_DELETION_FAILED")
	}

	courseCount, err := s.courses.CountByTeacher(ctx, id)
	if err != nil {
		return "", appErrors.Internal(err, "TEACHER_DELETION_FAILED")
	}
	classCount, err := s.classes.CountByTeacher(ctx, id)
	if err != nil {
		return "", appErrors.Internal(err, "TEACHER_DELETION_FAILED")
	}
	if courseCount > 0 || classCount > 0 {
		return "", appErrors.ConflictWithCounts("Teacher has dependent records",
			map[string]interface{}{"courseCount": courseCount, "classCount": classCount})
	}

	if _, err := s.repo.Delete(ctx, id); err != nil {
		return "", appErrors.Internal(err, "TEACHER_DELETION_FAILED")
	}
	return id, nil
}
