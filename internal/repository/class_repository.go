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

// ClassRepository handles persistence of classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns classes with course/teacher context plus the total count.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	base := `FROM classes cl
LEFT JOIN courses co ON co.id = cl.course_id
LEFT JOIN teachers t ON t.id = cl.teacher_id`
	var conditions []string
	var args []interface{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("cl.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("cl.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("cl.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
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

	query := fmt.Sprintf(`SELECT cl.id, cl.course_id, cl.teacher_id, cl.name, cl.semester, cl.schedule, cl.created_at,
        co.title AS course_title, t.full_name AS teacher_name
        %s ORDER BY cl.created_at DESC LIMIT %d OFFSET %d`, base+clause, limit, offset)

	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID returns a class by id.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, course_id, teacher_id, name, semester, schedule, created_at FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// ExistsByKey reports whether a different class already holds the unique
// (course_id, name, semester) combination.
func (r *ClassRepository) ExistsByKey(ctx context.Context, courseID, name, semester, excludeID string) (bool, error) {
	query := "SELECT 1 FROM classes WHERE course_id = $1 AND name = $2 AND semester = $3"
	args := []interface{}{courseID, name, semester}
	if excludeID != "" {
		query += " AND id <> $4"
		args = append(args, excludeID)
	}
	query += " LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check class key: %w", err)
	}
	return true, nil
}

// Create persists a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		id, err := newID()
		if err != nil {
			return fmt.Errorf("create class: %w", err)
		}
		class.ID = id
	}
	if class.CreatedAt.IsZero() {
		class.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO classes (id, course_id, teacher_id, name, semester, schedule, created_at)
        VALUES (:id, :course_id, :teacher_id, :name, :semester, :schedule, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		if _, ok := uniqueViolationConstraint(err); ok {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update modifies an existing class row.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	const query = `UPDATE classes SET name = :name, semester = :semester, schedule = :schedule, teacher_id = :teacher_id
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		if _, ok := uniqueViolationConstraint(err); ok {
			return ErrDuplicateKey
		}
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Delete removes a class row.
func (r *ClassRepository) Delete(ctx context.Context, id string) (int64, error) {
	const query = `DELETE FROM classes WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("delete class: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete class rows affected: %w", err)
	}
	return affected, nil
}

// CountByCourse counts classes attached to a course.
func (r *ClassRepository) CountByCourse(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM classes WHERE course_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID); err != nil {
		return 0, fmt.Errorf("count course classes: %w", err)
	}
	return count, nil
}

// CountByTeacher counts classes taught by a teacher.
func (r *ClassRepository) CountByTeacher(ctx context.Context, teacherID string) (int, error) {
	const query = `SELECT COUNT(*) FROM classes WHERE teacher_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, teacherID); err != nil {
		return 0, fmt.Errorf("count teacher classes: %w", err)
	}
	return count, nil
}
