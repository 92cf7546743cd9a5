package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupath/enroll-api/internal/models"
	"github.com/edupath/enroll-api/internal/repository"
	appErrors "github.com/edupath/enroll-api/pkg/errors"
	"github.com/edupath/enroll-api/pkg/export"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ExistsActive(ctx context.Context, userID, classID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateActive(ctx context.Context, id string, isActive bool) error
	Delete(ctx context.Context, id string) (int64, error)
	ListActiveByClass(ctx context.Context, classID string) ([]models.EnrollmentDetail, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type listCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CreateEnrollmentRequest describes the enrollment creation payload.
type CreateEnrollmentRequest struct {
	UserID  string `json:"userId" validate:"required,uuid"`
	ClassID string `json:"classId" validate:"required,uuid"`
}

// UpdateEnrollmentRequest describes the partial update payload. Only the
// active flag is mutable through this flow.
type UpdateEnrollmentRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// EnrollmentListResult bundles a page of enrollments with its metadata, and
// doubles as the cached representation.
type EnrollmentListResult struct {
	Enrollments []models.EnrollmentDetail `json:"enrollments"`
	Pagination  *models.Pagination        `json:"pagination"`
}

const enrollmentCachePrefix = "enrollments:list:"

// EnrollmentService enforces the enrollment consistency rules.
type EnrollmentService struct {
	repo      enrollmentRepository
	users     userReader
	classes   classReader
	cache     listCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	metrics   *MetricsService
}

// NewEnrollmentService constructs EnrollmentService. cache may be nil.
func NewEnrollmentService(repo enrollmentRepository, users userReader, classes classReader, cache listCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		users:     users,
		classes:   classes,
		cache:     cache,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
	}
}

// WithMetrics attaches the Prometheus instrumentation. All recording paths
// tolerate a nil MetricsService.
func (s *EnrollmentService) WithMetrics(metrics *MetricsService) *EnrollmentService {
	s.metrics = metrics
	return s
}

// List returns enrollments with pagination metadata, consulting the cache
// when one is configured.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) (*EnrollmentListResult, error) {
	key := listCacheKey(filter)
	if s.cache != nil {
		var cached EnrollmentListResult
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("enrollment list cache lookup failed", zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
	}

	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "ENROLLMENT_LIST_FAILED")
	}
	if enrollments == nil {
		enrollments = []models.EnrollmentDetail{}
	}
	result := &EnrollmentListResult{
		Enrollments: enrollments,
		Pagination:  models.NewPagination(filter.Page, filter.Limit, total),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
			s.logger.Warn("enrollment list cache store failed", zap.Error(err))
		}
	}
	return result, nil
}

// Create registers a user to a class after the referential and uniqueness
// pre-checks. The pre-checks give precise responses; the partial unique index
// remains the arbiter for concurrent creates.
func (s *EnrollmentService) Create(ctx context.Context, req CreateEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("User not found", "No user found with ID: "+req.UserID)
		}
		return nil, appErrors.Internal(err, "ENROLLMENT_CREATION_FAILED")
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("Class not found", "No class found with ID: "+req.ClassID)
		}
		return nil, appErrors.Internal(err, "ENROLLMENT_CREATION_FAILED")
	}
	exists, err := s.repo.ExistsActive(ctx, req.UserID, req.ClassID)
	if err != nil {
		return nil, appErrors.Internal(err, "ENROLLMENT_CREATION_FAILED")
	}
	if exists {
		s.metrics.RecordEnrollmentConflict()
		return nil, appErrors.Conflict("Enrollment already exists", "User is already enrolled in this class")
	}

	enrollment := &models.Enrollment{
		UserID:     req.UserID,
		ClassID:    req.ClassID,
		Code:       GenerateEnrollmentCode(time.Now(), nil),
		EnrolledAt: time.Now().UTC(),
		IsActive:   true,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEnrollment):
			// Lost the race against a concurrent create for the same pair.
			s.metrics.RecordEnrollmentConflict()
			return nil, appErrors.Conflict("Enrollment already exists", "User is already enrolled in this class")
		case errors.Is(err, repository.ErrDuplicateCode):
			s.logger.Warn("enrollment code collision", zap.String("code", enrollment.Code))
			s.metrics.RecordEnrollmentCodeClash()
			return nil, appErrors.Internal(err, "ENROLLMENT_CREATION_FAILED")
		default:
			return nil, appErrors.Internal(err, "ENROLLMENT_CREATION_FAILED")
		}
	}

	s.metrics.RecordEnrollmentCreated()
	s.invalidateListCache(ctx)
	return enrollment, nil
}

// Update applies the partial update to an existing enrollment.
func (s *EnrollmentService) Update(ctx context.Context, id string, req UpdateEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("Enrollment not found", "No enrollment found with ID: "+id)
		}
		return nil, appErrors.Internal(err, "ENROLLMENT_UPDATE_FAILED")
	}
	if err := s.repo.UpdateActive(ctx, id, *req.IsActive); err != nil {
		if errors.Is(err, repository.ErrDuplicateEnrollment) {
			return nil, appErrors.Conflict("Enrollment already exists", "User already has an active enrollment in this class")
		}
		return nil, appErrors.Internal(err, "ENROLLMENT_UPDATE_FAILED")
	}
	enrollment.IsActive = *req.IsActive

	s.invalidateListCache(ctx)
	return enrollment, nil
}

// Delete removes an enrollment permanently. Deactivation is the soft path;
// this is the explicit hard delete.
func (s *EnrollmentService) Delete(ctx context.Context, id string) (string, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.NotFound("Enrollment not found", "No enrollment found with ID: "+id)
		}
		return "", appErrors.Internal(err, "ENROLLMENT_DELETION_FAILED")
	}
	if _, err := s.repo.Delete(ctx, id); err != nil {
		return "", appErrors.Internal(err, "ENROLLMENT_DELETION_FAILED")
	}

	s.invalidateListCache(ctx)
	return id, nil
}

// Roster renders the active enrollments of a class as CSV or PDF.
func (s *EnrollmentService) Roster(ctx context.Context, classID, format string) ([]byte, string, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.NotFound("Class not found", "No class found with ID: "+classID)
		}
		return nil, "", appErrors.Internal(err, "ROSTER_EXPORT_FAILED")
	}
	enrollments, err := s.repo.ListActiveByClass(ctx, classID)
	if err != nil {
		return nil, "", appErrors.Internal(err, "ROSTER_EXPORT_FAILED")
	}

	dataset := export.Dataset{
		Headers: []string{"Enrollment", "Name", "Email", "Enrolled At"},
		Rows:    make([]map[string]string, 0, len(enrollments)),
	}
	for _, e := range enrollments {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Enrollment":  e.Code,
			"Name":        e.UserName,
			"Email":       e.UserEmail,
			"Enrolled At": e.EnrolledAt.UTC().Format(time.RFC3339),
		})
	}

	switch format {
	case "pdf":
		payload, err := s.pdf.Render(dataset, fmt.Sprintf("Roster %s %s", class.Name, class.Semester))
		if err != nil {
			return nil, "", appErrors.Internal(err, "ROSTER_EXPORT_FAILED")
		}
		return payload, "application/pdf", nil
	case "", "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Internal(err, "ROSTER_EXPORT_FAILED")
		}
		return payload, "text/csv", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported roster format: "+format)
	}
}

func (s *EnrollmentService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, enrollmentCachePrefix+"*"); err != nil {
		s.logger.Warn("enrollment list cache invalidation failed", zap.Error(err))
	}
}

func listCacheKey(filter models.EnrollmentFilter) string {
	active := "any"
	if filter.IsActive != nil {
		active = fmt.Sprintf("%t", *filter.IsActive)
	}
	return fmt.Sprintf("%su=%s:c=%s:a=%s:p=%d:l=%d",
		enrollmentCachePrefix, filter.UserID, filter.ClassID, active, filter.Page, filter.Limit)
}
