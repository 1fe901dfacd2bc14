package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maxviazov/gamelog-sync/internal/model"
	"github.com/maxviazov/gamelog-sync/internal/repository"
)

// gameLogColumns is the column order used by COPY, SELECT and scanning. Key columns come first.
var gameLogColumns = []string{
	"game_id", "team_id", "season_type",
	"season_id", "team_abbreviation", "team_name", "game_date", "matchup", "wl", "is_home",
	"min", "fgm", "fga", "fg_pct", "fg3m", "fg3a", "fg3_pct", "ftm", "fta", "ft_pct",
	"oreb", "dreb", "reb", "ast", "stl", "blk", "tov", "pf", "pts", "plus_minus",
}

const gameLogKey = "game_id, team_id, season_type"

var (
	gameLogSelect = "SELECT " + strings.Join(gameLogColumns, ", ") + " FROM game_log_team"

	stageCreateSQL = `CREATE TEMP TABLE game_log_stage (LIKE game_log_team INCLUDING DEFAULTS, ord BIGINT NOT NULL) ON COMMIT DROP`

	// DISTINCT ON keeps the last staged row per key, so one batch may carry the same key twice.
	stageInsertSQL = fmt.Sprintf(`INSERT INTO game_log_team (%[1]s, updated_at)
		SELECT DISTINCT ON (%[2]s) %[1]s, now()
		FROM game_log_stage
		ORDER BY %[2]s, ord DESC`, strings.Join(gameLogColumns, ", "), gameLogKey)

	mergeSQL = stageInsertSQL + fmt.Sprintf(`
		ON CONFLICT (%s) DO UPDATE SET %s, updated_at = now()
		RETURNING (xmax = 0) AS inserted`, gameLogKey, excludedAssignments())

	// Two stored ids that only differ by leading zeros are the same key.
	duplicateScanSQL = `SELECT COUNT(*) FROM (
		SELECT 1 FROM game_log_team
		GROUP BY ltrim(game_id, '0'), ltrim(team_id, '0'), season_type
		HAVING COUNT(*) > 1) d`
)

func excludedAssignments() string {
	sets := make([]string, 0, len(gameLogColumns))
	for _, c := range gameLogColumns[3:] {
		sets = append(sets, c+" = EXCLUDED."+c)
	}
	return strings.Join(sets, ", ")
}

type gameLogRepository struct {
	pool *pgxpool.Pool
	tx   repository.TxManager
}

func NewGameLogRepository(pool *pgxpool.Pool) repository.GameLogRepository {
	return &gameLogRepository{pool: pool, tx: NewTxManager(pool)}
}

// Upsert stages the batch with COPY and lands it with a single INSERT ... SELECT.
// The duplicate scan runs inside the same transaction, so a violation rolls everything back.
func (r *gameLogRepository) Upsert(ctx context.Context, rows []model.GameLog, mode repository.UpsertMode) (repository.UpsertResult, error) {
	if err := ensurePool(r.pool); err != nil {
		return repository.UpsertResult{}, err
	}
	var res repository.UpsertResult
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		exec := getQ(ctx, r.pool)

		if mode == repository.ModeReplace {
			if _, err := exec.Exec(ctx, `DELETE FROM game_log_team`); err != nil {
				return fmt.Errorf("clear game_log_team: %w", err)
			}
		}
		if len(rows) > 0 {
			// A second Upsert inside the same outer transaction still sees the previous stage.
			if _, err := exec.Exec(ctx, `DROP TABLE IF EXISTS game_log_stage`); err != nil {
				return fmt.Errorf("drop stage: %w", err)
			}
			if _, err := exec.Exec(ctx, stageCreateSQL); err != nil {
				return fmt.Errorf("create stage: %w", err)
			}
			cols := append(append([]string{}, gameLogColumns...), "ord")
			_, err := exec.CopyFrom(ctx, pgx.Identifier{"game_log_stage"}, cols,
				pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
					return append(gameLogValues(rows[i]), int64(i)), nil
				}))
			if err != nil {
				return fmt.Errorf("copy into stage: %w", err)
			}

			switch mode {
			case repository.ModeReplace:
				tag, err := exec.Exec(ctx, stageInsertSQL)
				if err != nil {
					return fmt.Errorf("load game_log_team: %w", err)
				}
				res.Inserted = int(tag.RowsAffected())
			default:
				inserted, updated, err := runMerge(ctx, exec)
				if err != nil {
					return err
				}
				res.Inserted, res.Updated = inserted, updated
			}
		}

		var dups int
		if err := exec.QueryRow(ctx, duplicateScanSQL).Scan(&dups); err != nil {
			return fmt.Errorf("duplicate scan: %w", err)
		}
		if dups > 0 {
			return fmt.Errorf("%w: %d keys", repository.ErrDuplicateKeyInvariant, dups)
		}
		return nil
	})
	if err != nil {
		return repository.UpsertResult{}, err
	}
	return res, nil
}

func runMerge(ctx context.Context, exec q) (inserted, updated int, err error) {
	rs, err := exec.Query(ctx, mergeSQL)
	if err != nil {
		return 0, 0, fmt.Errorf("merge game_log_team: %w", err)
	}
	defer rs.Close()
	for rs.Next() {
		var isNew bool
		if err := rs.Scan(&isNew); err != nil {
			return 0, 0, err
		}
		if isNew {
			inserted++
		} else {
			updated++
		}
	}
	if err := rs.Err(); err != nil {
		return 0, 0, fmt.Errorf("merge game_log_team: %w", err)
	}
	return inserted, updated, nil
}

func (r *gameLogRepository) MaxGameDate(ctx context.Context) (*time.Time, error) {
	if err := ensurePool(r.pool); err != nil {
		return nil, err
	}
	var d *time.Time
	if err := getQ(ctx, r.pool).QueryRow(ctx, `SELECT MAX(game_date) FROM game_log_team`).Scan(&d); err != nil {
		return nil, repository.MapPgError(err)
	}
	if d != nil {
		day := model.Day(*d)
		d = &day
	}
	return d, nil
}

func (r *gameLogRepository) Count(ctx context.Context) (int, error) {
	if err := ensurePool(r.pool); err != nil {
		return 0, err
	}
	var n int
	if err := getQ(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM game_log_team`).Scan(&n); err != nil {
		return 0, repository.MapPgError(err)
	}
	return n, nil
}

func (r *gameLogRepository) List(ctx context.Context) ([]model.GameLog, error) {
	return r.query(ctx, gameLogSelect+` ORDER BY game_date NULLS FIRST, game_id, team_id, season_type`)
}

func (r *gameLogRepository) ListByGameIDs(ctx context.Context, gameIDs []string) ([]model.GameLog, error) {
	if len(gameIDs) == 0 {
		return nil, nil
	}
	return r.query(ctx, gameLogSelect+` WHERE game_id = ANY($1) ORDER BY game_id, team_id, season_type`, gameIDs)
}

func (r *gameLogRepository) GamesMissingOverrides(ctx context.Context, p repository.Page) ([]string, error) {
	if err := ensurePool(r.pool); err != nil {
		return nil, err
	}
	p = p.Normalize()
	rows, err := getQ(ctx, r.pool).Query(ctx, `
		SELECT g.game_id
		FROM game_log_team g
		LEFT JOIN home_away_overrides o ON o.game_id = g.game_id
		WHERE o.game_id IS NULL
		GROUP BY g.game_id
		HAVING COUNT(DISTINCT g.team_id) = 2
		   AND (COUNT(*) FILTER (WHERE g.is_home IS TRUE) <> 1
		        OR COUNT(*) FILTER (WHERE g.is_home IS FALSE) <> 1)
		ORDER BY g.game_id
		LIMIT $1 OFFSET $2`, p.Limit, p.Offset)
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	return ids, nil
}

func (r *gameLogRepository) query(ctx context.Context, sql string, args ...any) ([]model.GameLog, error) {
	if err := ensurePool(r.pool); err != nil {
		return nil, err
	}
	rows, err := getQ(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	defer rows.Close()
	var out []model.GameLog
	for rows.Next() {
		g, err := scanGameLog(rows)
		if err != nil {
			return nil, repository.MapPgError(err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.MapPgError(err)
	}
	return out, nil
}

func scanGameLog(row pgx.Row) (model.GameLog, error) {
	var (
		g          model.GameLog
		seasonType string
	)
	s := &g.Stats
	err := row.Scan(
		&g.GameID, &g.TeamID, &seasonType,
		&g.SeasonID, &g.TeamAbbreviation, &g.TeamName, &g.GameDate, &g.Matchup, &g.WL, &g.IsHome,
		&s.Min, &s.FGM, &s.FGA, &s.FGPct, &s.FG3M, &s.FG3A, &s.FG3Pct, &s.FTM, &s.FTA, &s.FTPct,
		&s.OREB, &s.DREB, &s.REB, &s.AST, &s.STL, &s.BLK, &s.TOV, &s.PF, &s.PTS, &s.PlusMinus,
	)
	if err != nil {
		return model.GameLog{}, err
	}
	g.SeasonType = model.SeasonType(seasonType)
	return g, nil
}

func gameLogValues(g model.GameLog) []any {
	s := g.Stats
	return []any{
		g.GameID, g.TeamID, string(g.SeasonType),
		g.SeasonID, g.TeamAbbreviation, g.TeamName, g.GameDate, g.Matchup, g.WL, g.IsHome,
		s.Min, s.FGM, s.FGA, s.FGPct, s.FG3M, s.FG3A, s.FG3Pct, s.FTM, s.FTA, s.FTPct,
		s.OREB, s.DREB, s.REB, s.AST, s.STL, s.BLK, s.TOV, s.PF, s.PTS, s.PlusMinus,
	}
}

var _ repository.GameLogRepository = (*gameLogRepository)(nil)
