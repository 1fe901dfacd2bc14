package service_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/maxviazov/gamelog-sync/internal/canonical"
	"github.com/maxviazov/gamelog-sync/internal/model"
	"github.com/maxviazov/gamelog-sync/internal/statsapi"
)

func day(s string) time.Time {
	d, err := model.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func ptr[T any](v T) *T { return &v }

// pad restores the 10-digit game id form the upstream uses.
func pad(id string) string {
	return strings.Repeat("0", max(0, 10-len(id))) + id
}

// logRow builds a canonical game log row; the home flag follows the matchup like the real feed.
func logRow(gameID, teamID, date, matchup, wl, seasonID string) model.GameLog {
	d := day(date)
	return model.GameLog{
		SeasonID:   seasonID,
		TeamID:     teamID,
		GameID:     gameID,
		GameDate:   &d,
		Matchup:    matchup,
		WL:         wl,
		IsHome:     canonical.IsHomeFromMatchup(matchup),
		SeasonType: model.SeasonTypeRegular,
	}
}

// rawRow is logRow as the upstream sends it: upper-case headers, padded ids.
func rawRow(gameID, teamID, date, matchup, wl, seasonID string) model.RawRow {
	return model.RawRow{
		"SEASON_ID": seasonID,
		"TEAM_ID":   teamID,
		"GAME_ID":   pad(gameID),
		"GAME_DATE": date,
		"MATCHUP":   matchup,
		"WL":        wl,
	}
}

// fakeGameLogs serves scripted rows per category and records every call.
type fakeGameLogs struct {
	mu      sync.Mutex
	rows    map[model.SeasonType][]model.RawRow
	fail    map[model.SeasonType]time.Time
	windows []model.Window
	calls   []model.SeasonType
}

func newFakeGameLogs() *fakeGameLogs {
	return &fakeGameLogs{rows: map[model.SeasonType][]model.RawRow{}, fail: map[model.SeasonType]time.Time{}}
}

func (f *fakeGameLogs) FetchGameLogs(_ context.Context, w model.Window, c model.SeasonType) (statsapi.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = append(f.windows, w)
	f.calls = append(f.calls, c)

	b := statsapi.Batch{Window: w, Category: c, Rows: f.rows[c], Requests: 1}
	if from, ok := f.fail[c]; ok {
		b.FailedFrom = &from
		return b, fmt.Errorf("fetch game logs %s: %w", c, statsapi.ErrFetchFailed)
	}
	if len(b.Rows) == 0 {
		b.Empty = statsapi.NoData
	}
	return b, nil
}

func (f *fakeGameLogs) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeSummaries serves GameSummary rows per game id; unknown ids fail.
type fakeSummaries struct {
	mu    sync.Mutex
	rows  map[string]model.RawRow
	calls map[string]int
}

func newFakeSummaries() *fakeSummaries {
	return &fakeSummaries{rows: map[string]model.RawRow{}, calls: map[string]int{}}
}

func (f *fakeSummaries) add(gameID, home, away, date string) {
	f.rows[gameID] = model.RawRow{
		"GAME_ID":         pad(gameID),
		"GAME_DATE_EST":   date + "T00:00:00",
		"HOME_TEAM_ID":    home,
		"VISITOR_TEAM_ID": away,
	}
}

func (f *fakeSummaries) FetchGameSummary(_ context.Context, gameID string) (model.RawRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[gameID]++
	row, ok := f.rows[gameID]
	if !ok {
		return nil, fmt.Errorf("game summary %s: %w", gameID, statsapi.ErrFetchFailed)
	}
	return row, nil
}

func (f *fakeSummaries) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}
