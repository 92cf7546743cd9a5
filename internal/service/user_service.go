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

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) (int64, error)
}

type userEnrollmentCounter interface {
	CountActiveByUser(ctx context.Context, userID string) (int, error)
}

// UpdateUserRequest represents payload for updating a user profile.
type UpdateUserRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// UserService orchestrates user account operations.
type UserService struct {
	repo        userRepository
	enrollments userEnrollmentCounter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(repo userRepository, enrollments userEnrollmentCounter, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, enrollments: enrollments, validator: validate, logger: logger}
}

// List returns users plus pagination data.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "USER_LIST_FAILED")
	}
	return users, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("User not found", "No user found with ID: "+id)
		}
		return nil, appErrors.Internal(err, "USER_FETCH_FAILED")
	}
	return user, nil
}

// Update modifies a user profile, guarding email uniqueness.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("User not found", "No user found with ID: "+id)
		}
		return nil, appErrors.Internal(err, "USER_UPDATE_FAILED")
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email != user.Email {
		taken, err := s.repo.ExistsByEmail(ctx, email, id)
		if err != nil {
			return nil, appErrors.Internal(err, "USER_UPDATE_FAILED")
		}
		if taken {
			return nil, appErrors.Conflict("Email already exists", "Use a different email address")
		}
	}

	user.FullName = strings.TrimSpace(req.Name)
	user.Email = email
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Internal(err, "USER_UPDATE_FAILED")
	}
	return user, nil
}

// Delete removes a user unless active enrollments still reference it. The
// guard pre-empts the ON DELETE CASCADE that would otherwise silently wipe
// the user's enrollment history.
func (s *UserService) Delete(ctx context.Context, id string) (string, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.NotFound("User not found", "No user found with ID: "+id)
		}
		return "", appErrors.Internal(err, "USER_DELETION_FAILED")
	}

	count, err := s.enrollments.CountActiveByUser(ctx, id)
	if err != nil {
		return "", appErrors.Internal(err, "USER_DELETION_FAILED")
	}
	if count > 0 {
		return "", appErrors.ConflictWithCounts("User has active enrollments",
			map[string]interface{}{"enrollmentCount": count})
	}

	if _, err := s.repo.Delete(ctx, id); err != nil {
		return "", appErrors.Internal(err, "USER_DELETION_FAILED")
	}
	return id, nil
}
