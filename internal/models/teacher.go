package models

import "time"

// Teacher represents an instructor account.
type Teacher struct {
	ID           string    `db:"id" json:"id"`
	FullName     string    `db:"full_name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search string
	Page   int
	Limit  int
}
