package repository

import (
	"strings"

	"gorm.io/gorm"

	bichon_errors "github.com/therolffr/bichon/errors"
)

// translateError maps storage failures onto the service error taxonomy.
func translateError(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if err == gorm.ErrRecordNotFound {
		return bichon_errors.New(bichon_errors.ResourceNotFound, notFoundMsg)
	}
	if isDuplicateKey(err) {
		return bichon_errors.Wrap(bichon_errors.AlreadyExists, "duplicate key", err)
	}
	return bichon_errors.Wrap(bichon_errors.InternalError, "database operation failed", err)
}

func isDuplicateKey(err error) bool {
	if err == gorm.ErrDuplicatedKey {
		return true
	}
	// lib/pq unique_violation surfaces as SQLSTATE 23505.
	return strings.Contains(err.Error(), "23505") ||
		strings.Contains(err.Error(), "duplicate key")
}
