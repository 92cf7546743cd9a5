package models

import "time"

// Course represents a course owned by a teacher. (title, teacher_id) is unique.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Department  string    `db:"department" json:"department"`
	Workload    int       `db:"workload" json:"workload"`
	TeacherID   string    `db:"teacher_id" json:"teacherId"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// CourseFilter defines filter criteria for listing courses.
type CourseFilter struct {
	TeacherID  string
	Department string
	Search     string
	Page       int
	Limit      int
}
