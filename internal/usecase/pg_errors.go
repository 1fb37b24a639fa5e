package usecase

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// isDuplicateKey reports a unique violation, whether gorm translated it or not
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	// PostgreSQL error code 23505 = unique_violation
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
