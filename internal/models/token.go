package models

import "time"

// RefreshToken represents a persisted refresh token session. SubjectKind
// distinguishes user accounts from teacher accounts.
type RefreshToken struct {
	ID          string     `db:"id" json:"id"`
	SubjectID   string     `db:"subject_id" json:"subjectId"`
	SubjectKind string     `db:"subject_kind" json:"subjectKind"`
	Token       string     `db:"token" json:"token"`
	ExpiresAt   time.Time  `db:"expires_at" json:"expiresAt"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	Revoked     bool       `db:"revoked" json:"revoked"`
	RevokedAt   *time.Time `db:"revoked_at" json:"revokedAt,omitempty"`
	IPAddress   string     `db:"ip_address" json:"ipAddress"`
	UserAgent   string     `db:"user_agent" json:"userAgent"`
}
