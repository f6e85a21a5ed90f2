package persistence

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/ignatzorin/deals-backend/internal/pkg/apperror"
)

const uniqueViolation = "23505"

// storeError превращает сбой драйвера в ошибку доменной таксономии.
// Всё, что не является нарушением уникальности, считается недоступностью хранилища.
func storeError(err error, message string) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if isUniqueViolation(err) {
		return apperror.Wrap(err, apperror.ErrCodeConflict, message)
	}
	return apperror.Wrap(err, apperror.ErrCodeStoreUnavailable, message)
}

// notFoundOr возвращает notFound для sql.ErrNoRows, иначе storeError.
func notFoundOr(err error, notFound error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return storeError(err, message)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func isUniqueViolationOn(err error, constraint string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == constraint
}
