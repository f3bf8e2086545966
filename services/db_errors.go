package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"growthTrackerAPI/internal/apperror"
	"growthTrackerAPI/internal/user"
)

// forUpdate adds a row lock on postgres. sqlite runs on a single connection and
// is serialized already.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// lockUser loads the user row under forUpdate. Transactions that read then
// write per-user state take it first, so they run one at a time per user.
func lockUser(tx *gorm.DB, userID uuid.UUID) (*user.User, error) {
	var u user.User
	if err := forUpdate(tx).First(&u, "id = ?", userID).Error; err != nil {
		return nil, dbError(err, "user not found")
	}
	return &u, nil
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key")
}

// dbError maps a gorm error onto the API error taxonomy. notFound is the
// message used when the record does not exist.
func dbError(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperror.NotFound(notFound)
	case isDuplicate(err):
		return &apperror.Error{Kind: apperror.KindConflict, Message: "record already exists", Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperror.Upstream("database unavailable", err)
	default:
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return err
		}
		return apperror.Internal("database error", err)
	}
}
