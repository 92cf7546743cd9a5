package models

import "time"

// Enrollment captures a user's registration to a class. Among active rows the
// (user_id, class_id) pair is unique; the code is globally unique.
type Enrollment struct {
	ID         string    `db:"id" json:"enrollmentId"`
	UserID     string    `db:"user_id" json:"userId"`
	ClassID    string    `db:"class_id" json:"classId"`
	Code       string    `db:"code" json:"enrollment"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolledAt"`
	IsActive   bool      `db:"is_active" json:"isActive"`
}

// EnrollmentDetail enriches Enrollment with user and class info.
type EnrollmentDetail struct {
	Enrollment
	UserName  string `db:"user_name" json:"userName"`
	UserEmail string `db:"user_email" json:"userEmail"`
	ClassName string `db:"class_name" json:"className"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	UserID   string
	ClassID  string
	IsActive *bool
	Page     int
	Limit    int
}
