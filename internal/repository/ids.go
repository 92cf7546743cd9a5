package repository

import (
	"fmt"

	"github.com/google/uuid"
)

// newID mints a time-ordered (version 7) identifier for a new row. Sorting by
// primary key then follows insertion order, and ids stay index friendly.
func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}
