package db

import (
	"errors"

	"github.com/MTRieg/mrieg-com/internal/engine"

	"github.com/jackc/pgconn"
	"gorm.io/gorm"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "55P03"
	}
	return false
}

// classify maps Postgres errors onto the engine's sentinel errors so that
// callers above the store never see driver types.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return engine.ErrUnknownGame
	case isLockTimeout(err):
		return engine.ErrLockTimeout
	case isUniqueViolation(err):
		return engine.ErrGameExists
	default:
		return err
	}
}
