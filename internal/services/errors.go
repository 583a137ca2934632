package services

import (
	"errors"

	apperrors "taskmaker/backend/internal/errors"
	"taskmaker/backend/internal/repositories"
)

var ErrConcurrentUpdate = apperrors.Conflict("the resource was changed concurrently, retry the request")

// storageError maps repository sentinels onto the error taxonomy. Errors
// that are already part of the taxonomy pass through unchanged, except a
// lost lock race, which is always a conflict.
func storageError(err error, notFound, duplicate string) error {
	var appErr *apperrors.Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrConcurrentUpdate):
		return ErrConcurrentUpdate
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, repositories.ErrNotFound):
		return apperrors.NotFound(notFound)
	case errors.Is(err, repositories.ErrDuplicate) && duplicate != "":
		return apperrors.Conflict(duplicate)
	}
	return apperrors.Internal(err)
}
