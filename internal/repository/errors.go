package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors surfaced when an insert loses to a unique index. The index
// is the arbiter for concurrent writers; services translate these into the
// API's conflict responses.
var (
	// ErrDuplicateEnrollment fires on the partial unique index over
	// (user_id, class_id) WHERE is_active.
	ErrDuplicateEnrollment = errors.New("active enrollment already exists")
	// ErrDuplicateCode fires when a generated enrollment code collides.
	ErrDuplicateCode = errors.New("enrollment code already exists")
	// ErrDuplicateKey fires on any other unique index.
	ErrDuplicateKey = errors.New("unique constraint violated")
)

const uniqueViolation = pq.ErrorCode("23505")

func uniqueViolationConstraint(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}
