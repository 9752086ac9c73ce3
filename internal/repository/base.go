package repository

import (
	"errors"

	"agora/internal/models"

	"gorm.io/gorm"
)

// storeErr passes AppErrors through and wraps everything else as an internal error.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(err)
}

// notFoundOr maps gorm.ErrRecordNotFound to a NotFound error for resource/id.
func notFoundOr(err error, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return storeErr(err)
}

// isPostgres reports whether db talks to PostgreSQL; row locks are only issued there.
func isPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}
