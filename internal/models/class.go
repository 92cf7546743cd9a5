package models

import "time"

// Class represents a scheduled section of a course.
// (course_id, name, semester) is unique.
type Class struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"courseId"`
	TeacherID string    `db:"teacher_id" json:"teacherId"`
	Name      string    `db:"name" json:"name"`
	Semester  string    `db:"semester" json:"semester"`
	Schedule  string    `db:"schedule" json:"schedule"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ClassDetail extends Class with course and teacher context.
type ClassDetail struct {
	Class
	CourseTitle string `db:"course_title" json:"courseTitle"`
	TeacherName string `db:"teacher_name" json:"teacherName"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	CourseID  string
	TeacherID string
	Semester  string
	Page      int
	Limit     int
}
