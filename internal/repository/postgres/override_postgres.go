package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maxviazov/gamelog-sync/internal/model"
	"github.com/maxviazov/gamelog-sync/internal/repository"
)

var overrideColumns = []string{"game_id", "game_date", "season", "team_id_home", "team_id_away", "source", "updated_at"}

type overrideRepository struct {
	pool *pgxpool.Pool
	tx   repository.TxManager
}

func NewOverrideRepository(pool *pgxpool.Pool) repository.OverrideRepository {
	return &overrideRepository{pool: pool, tx: NewTxManager(pool)}
}

func (r *overrideRepository) Upsert(ctx context.Context, overrides []model.HomeAwayOverride) error {
	if err := ensurePool(r.pool); err != nil {
		return err
	}
	if len(overrides) == 0 {
		return nil
	}
	// Last entry per game wins; COPY would reject the duplicate primary key otherwise.
	latest := make(map[string]int, len(overrides))
	ids := make([]string, 0, len(overrides))
	for i, o := range overrides {
		if _, seen := latest[o.GameID]; !seen {
			ids = append(ids, o.GameID)
		}
		latest[o.GameID] = i
	}

	return r.tx.WithinTx(ctx, func(ctx context.Context) error {
		exec := getQ(ctx, r.pool)
		if _, err := exec.Exec(ctx, `DELETE FROM home_away_overrides WHERE game_id = ANY($1)`, ids); err != nil {
			return fmt.Errorf("clear overrides: %w", err)
		}
		_, err := exec.CopyFrom(ctx, pgx.Identifier{"home_away_overrides"}, overrideColumns,
			pgx.CopyFromSlice(len(ids), func(i int) ([]any, error) {
				o := overrides[latest[ids[i]]]
				var season *int32
				if o.Season != nil {
					s := int32(*o.Season)
					season = &s
				}
				return []any{o.GameID, o.GameDate, season, o.TeamIDHome, o.TeamIDAway, o.Source, o.UpdatedAt}, nil
			}))
		if err != nil {
			return fmt.Errorf("copy overrides: %w", err)
		}
		return nil
	})
}

func (r *overrideRepository) List(ctx context.Context) ([]model.HomeAwayOverride, error) {
	if err := ensurePool(r.pool); err != nil {
		return nil, err
	}
	rows, err := getQ(ctx, r.pool).Query(ctx,
		`SELECT game_id, game_date, season, team_id_home, team_id_away, source, updated_at
		 FROM home_away_overrides ORDER BY game_id`)
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	defer rows.Close()
	var out []model.HomeAwayOverride
	for rows.Next() {
		var (
			o      model.HomeAwayOverride
			season *int32
		)
		if err := rows.Scan(&o.GameID, &o.GameDate, &season, &o.TeamIDHome, &o.TeamIDAway, &o.Source, &o.UpdatedAt); err != nil {
			return nil, repository.MapPgError(err)
		}
		if season != nil {
			s := int(*season)
			o.Season = &s
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.MapPgError(err)
	}
	return out, nil
}

var _ repository.OverrideRepository = (*overrideRepository)(nil)
