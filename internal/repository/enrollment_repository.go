package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edupath/enroll-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN users u ON u.id = e.user_id
LEFT JOIN classes c ON c.id = e.class_id`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("e.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("e.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("e.is_active = $%d", len(args)+1))
		args = append(args, *filter.IsActive)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = models.DefaultLimit
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf(`SELECT e.id, e.user_id, e.class_id, e.code, e.enrolled_at, e.is_active,
        u.full_name AS user_name, u.email AS user_email, c.name AS class_name
        %s ORDER BY e.enrolled_at DESC LIMIT %d OFFSET %d`, base+clause, limit, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, user_id, class_id, code, enrolled_at, is_active FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ExistsActive checks if an active enrollment exists for the pair.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, userID, classID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE user_id = $1 AND class_id = $2 AND is_active LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID, classID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment record. The partial unique index on
// (user_id, class_id) WHERE is_active settles concurrent creates; a loss is
// reported as ErrDuplicateEnrollment. A colliding code is ErrDuplicateCode.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		id, err := newID()
		if err != nil {
			return fmt.Errorf("create enrollment: %w", err)
		}
		enrollment.ID = id
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, user_id, class_id, code, enrolled_at, is_active)
        VALUES (:id, :user_id, :class_id, :code, :enrolled_at, :is_active)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		if constraint, ok := uniqueViolationConstraint(err); ok {
			switch constraint {
			case "uniq_enrollments_user_class_active":
				return ErrDuplicateEnrollment
			case "enrollments_code_key":
				return ErrDuplicateCode
			default:
				return ErrDuplicateKey
			}
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateActive toggles the is_active flag for an enrollment.
func (r *EnrollmentRepository) UpdateActive(ctx context.Context, id string, isActive bool) error {
	const query = `UPDATE enrollments SET is_active = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, isActive); err != nil {
		if _, ok := uniqueViolationConstraint(err); ok {
			return ErrDuplicateEnrollment
		}
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// Delete removes an enrollment row permanently.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) (int64, error) {
	const query = `DELETE FROM enrollments WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("delete enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete enrollment rows affected: %w", err)
	}
	return affected, nil
}

// CountActiveByUser counts active enrollments held by a user.
func (r *EnrollmentRepository) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE user_id = $1 AND is_active`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count user enrollments: %w", err)
	}
	return count, nil
}

// CountActiveByClass counts active enrollments on a class.
func (r *EnrollmentRepository) CountActiveByClass(ctx context.Context, classID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE class_id = $1 AND is_active`
	var count int
	if err := r.db.GetContext(ctx, &count, query, classID); err != nil {
		return 0, fmt.Errorf("count class enrollments: %w", err)
	}
	return count, nil
}

// ListActiveByClass returns the active roster of a class with user context.
func (r *EnrollmentRepository) ListActiveByClass(ctx context.Context, classID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.user_id, e.class_id, e.code, e.enrolled_at, e.is_active,
        u.full_name AS user_name, u.email AS user_email, c.name AS class_name
        FROM enrollments e
        LEFT JOIN users u ON u.id = e.user_id
        LEFT JOIN classes c ON c.id = e.class_id
        WHERE e.class_id = $1 AND e.is_active
        ORDER BY u.full_name ASC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, classID); err != nil {
		return nil, fmt.Errorf("list class roster: %w", err)
	}
	return enrollments, nil
}
