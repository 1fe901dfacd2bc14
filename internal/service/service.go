// Package service holds the sync use cases: the sequential run pipeline plus the two fan-out
// stages (details and home/away resolution) and the quality gate.
// Kept lean: only orchestration across the fetch adapter, the file store and the warehouse.
package service

import (
	"context"
	"errors"

	"github.com/maxviazov/gamelog-sync/internal/canonical"
	"github.com/maxviazov/gamelog-sync/internal/model"
	"github.com/maxviazov/gamelog-sync/internal/statsapi"
)

// ErrQualityGate marks a run whose modern data broke a must-pass invariant.
var ErrQualityGate = errors.New("quality gate failed")

// GameLogFetcher is the windowed game log endpoint.
type GameLogFetcher interface {
	FetchGameLogs(ctx context.Context, window model.Window, category model.SeasonType) (statsapi.Batch, error)
}

// DetailFetcher serves per-game detail tables.
type DetailFetcher interface {
	FetchBoxScore(ctx context.Context, gameID string) (statsapi.BoxScoreSets, error)
	FetchPlayByPlay(ctx context.Context, gameID string) ([]model.RawRow, error)
}

// SummaryFetcher serves the per-game summary used to settle home/away.
type SummaryFetcher interface {
	FetchGameSummary(ctx context.Context, gameID string) (model.RawRow, error)
}

var (
	_ GameLogFetcher = (*statsapi.Client)(nil)
	_ DetailFetcher  = (*statsapi.Client)(nil)
	_ SummaryFetcher = (*statsapi.Client)(nil)
)

// uniqueIDs canonicalizes ids and drops blanks and repeats, keeping first-seen order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		n := canonical.NormalizeID(id)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// gameIDs lists the distinct game ids of rows.
func gameIDs(rows []model.GameLog) []string {
	ids := make([]string, 0, len(rows))
	for _, g := range rows {
		ids = append(ids, g.GameID)
	}
	return uniqueIDs(ids)
}
