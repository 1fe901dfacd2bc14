package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maxviazov/gamelog-sync/internal/model"
	"github.com/maxviazov/gamelog-sync/internal/repository"
)

var statColumns = []string{
	"min", "fgm", "fga", "fg_pct", "fg3m", "fg3a", "fg3_pct", "ftm", "fta", "ft_pct",
	"oreb", "dreb", "reb", "ast", "stl", "blk", "tov", "pf", "pts", "plus_minus",
}

var (
	boxTeamColumns   = append([]string{"game_id", "team_id", "team_abbreviation", "team_name"}, statColumns...)
	boxPlayerColumns = append([]string{"game_id", "team_id", "player_id", "player_name", "start_position", "minutes", "comment"}, statColumns...)
	pbpColumns       = []string{
		"game_id", "event_num", "event_msg_type", "period", "pc_time_string",
		"home_description", "visitor_description", "neutral_description", "score",
		"player1_id", "player1_team_id", "wc_time_string",
	}
)

// presenceTable is the table whose rows prove a detail kind was already fetched for a game.
var presenceTable = map[repository.DetailKind]string{
	repository.DetailBoxScore:   "box_score_team",
	repository.DetailPlayByPlay: "play_by_play",
}

type detailRepository struct {
	pool *pgxpool.Pool
	tx   repository.TxManager
}

func NewDetailRepository(pool *pgxpool.Pool) repository.DetailRepository {
	return &detailRepository{pool: pool, tx: NewTxManager(pool)}
}

func (r *detailRepository) ExistingGameIDs(ctx context.Context, kind repository.DetailKind, gameIDs []string) (map[string]bool, error) {
	if err := ensurePool(r.pool); err != nil {
		return nil, err
	}
	table, ok := presenceTable[kind]
	if !ok {
		return nil, fmt.Errorf("unknown detail kind %q", kind)
	}
	out := make(map[string]bool)
	if len(gameIDs) == 0 {
		return out, nil
	}
	rows, err := getQ(ctx, r.pool).Query(ctx,
		`SELECT DISTINCT game_id FROM `+pgx.Identifier{table}.Sanitize()+` WHERE game_id = ANY($1)`, gameIDs)
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// ReplaceBoxScores deletes both box score tables for gameIDs and loads box in one transaction.
func (r *detailRepository) ReplaceBoxScores(ctx context.Context, gameIDs []string, box model.BoxScore) error {
	if err := ensurePool(r.pool); err != nil {
		return err
	}
	if len(gameIDs) == 0 {
		return nil
	}
	return r.tx.WithinTx(ctx, func(ctx context.Context) error {
		exec := getQ(ctx, r.pool)
		for _, table := range []string{"box_score_team", "box_score_player"} {
			if _, err := exec.Exec(ctx, `DELETE FROM `+pgx.Identifier{table}.Sanitize()+` WHERE game_id = ANY($1)`, gameIDs); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		if _, err := exec.CopyFrom(ctx, pgx.Identifier{"box_score_team"}, boxTeamColumns,
			pgx.CopyFromSlice(len(box.Teams), func(i int) ([]any, error) {
				t := box.Teams[i]
				return append([]any{t.GameID, t.TeamID, t.TeamAbbreviation, t.TeamName}, statValues(t.Stats)...), nil
			})); err != nil {
			return fmt.Errorf("copy box_score_team: %w", err)
		}
		if _, err := exec.CopyFrom(ctx, pgx.Identifier{"box_score_player"}, boxPlayerColumns,
			pgx.CopyFromSlice(len(box.Players), func(i int) ([]any, error) {
				p := box.Players[i]
				return append([]any{p.GameID, p.TeamID, p.PlayerID, p.PlayerName, p.StartPos, p.Minutes, p.Comment}, statValues(p.Stats)...), nil
			})); err != nil {
			return fmt.Errorf("copy box_score_player: %w", err)
		}
		return nil
	})
}

// ReplacePlayByPlay deletes the timeline of gameIDs and loads rows in one transaction.
func (r *detailRepository) ReplacePlayByPlay(ctx context.Context, gameIDs []string, rows []model.PlayByPlay) error {
	if err := ensurePool(r.pool); err != nil {
		return err
	}
	if len(gameIDs) == 0 {
		return nil
	}
	return r.tx.WithinTx(ctx, func(ctx context.Context) error {
		exec := getQ(ctx, r.pool)
		if _, err := exec.Exec(ctx, `DELETE FROM play_by_play WHERE game_id = ANY($1)`, gameIDs); err != nil {
			return fmt.Errorf("clear play_by_play: %w", err)
		}
		_, err := exec.CopyFrom(ctx, pgx.Identifier{"play_by_play"}, pbpColumns,
			pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
				e := rows[i]
				return []any{
					e.GameID, int32(e.EventNum), int32(e.EventMsgType), int32(e.Period), e.PCTimeString,
					e.HomeDescription, e.VisitorDescription, e.NeutralDescription, e.Score,
					e.Player1ID, e.Player1TeamID, e.WallClockTimeString,
				}, nil
			}))
		if err != nil {
			return fmt.Errorf("copy play_by_play: %w", err)
		}
		return nil
	})
}

func statValues(s model.Stats) []any {
	return []any{
		s.Min, s.FGM, s.FGA, s.FGPct, s.FG3M, s.FG3A, s.FG3Pct, s.FTM, s.FTA, s.FTPct,
		s.OREB, s.DREB, s.REB, s.AST, s.STL, s.BLK, s.TOV, s.PF, s.PTS, s.PlusMinus,
	}
}

var _ repository.DetailRepository = (*detailRepository)(nil)
