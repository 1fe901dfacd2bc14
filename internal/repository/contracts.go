package repository

import (
	"context"
	"time"

	"github.com/maxviazov/gamelog-sync/internal/model"
)

// Pinger represents a minimal readiness probe capability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TxFunc is the unit of work executed within a transaction boundary.
// I pass context through so nested calls can honor cancellations and deadlines.
type TxFunc func(ctx context.Context) error

// TxManager abstracts transactional execution for repositories that support it.
// A call made while a transaction is already in ctx joins it instead of opening a new one.
type TxManager interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}

// UpsertMode selects how a game log batch lands in the warehouse.
type UpsertMode string

const (
	// ModeMerge inserts new keys and overwrites existing ones.
	ModeMerge UpsertMode = "merge"
	// ModeReplace wipes the table and loads the batch as the full truth.
	ModeReplace UpsertMode = "replace"
)

// UpsertResult counts what a game log upsert did.
type UpsertResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// GameLogRepository is the warehouse side of the team game log.
type GameLogRepository interface {
	// Upsert writes rows in one transaction and verifies key uniqueness before commit.
	Upsert(ctx context.Context, rows []model.GameLog, mode UpsertMode) (UpsertResult, error)
	MaxGameDate(ctx context.Context) (*time.Time, error)
	Count(ctx context.Context) (int, error)
	List(ctx context.Context) ([]model.GameLog, error)
	ListByGameIDs(ctx context.Context, gameIDs []string) ([]model.GameLog, error)
	// GamesMissingOverrides lists games with two teams, no override and no clean home/away split.
	GamesMissingOverrides(ctx context.Context, p Page) ([]string, error)
}

// DetailKind names one family of per-game detail tables.
type DetailKind string

const (
	DetailBoxScore   DetailKind = "box_score"
	DetailPlayByPlay DetailKind = "play_by_play"
)

// DetailRepository stores immutable per-game details. Writes replace whatever a game had before.
type DetailRepository interface {
	ExistingGameIDs(ctx context.Context, kind DetailKind, gameIDs []string) (map[string]bool, error)
	ReplaceBoxScores(ctx context.Context, gameIDs []string, box model.BoxScore) error
	ReplacePlayByPlay(ctx context.Context, gameIDs []string, rows []model.PlayByPlay) error
}

// OverrideRepository stores resolved home/away assignments.
type OverrideRepository interface {
	// Upsert deletes and re-inserts the given games in one transaction.
	Upsert(ctx context.Context, overrides []model.HomeAwayOverride) error
	List(ctx context.Context) ([]model.HomeAwayOverride, error)
}
