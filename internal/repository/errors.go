package repository

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Domain-level errors I prefer to bubble up from repository implementations.
var (
	ErrConflict = errors.New("conflict")
	// ErrDuplicateKeyInvariant means a write would leave two rows with the same
	// (game_id, team_id, season_type). The transaction is rolled back; callers treat it as fatal.
	ErrDuplicateKeyInvariant = errors.New("duplicate game log key")
	// ErrUnavailable covers connection-level failures worth surfacing as "warehouse down".
	ErrUnavailable = errors.New("warehouse unavailable")
)

// MapPgError translates the Postgres error codes the sync cares about to domain errors.
// Everything else passes through untouched.
func MapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation, pgerrcode.CardinalityViolation:
			return errors.Join(ErrDuplicateKeyInvariant, err)
		case pgerrcode.ForeignKeyViolation, pgerrcode.CheckViolation:
			return errors.Join(ErrConflict, err)
		case pgerrcode.AdminShutdown, pgerrcode.CannotConnectNow, pgerrcode.TooManyConnections:
			return errors.Join(ErrUnavailable, err)
		}
	}
	return err
}
