// Package contract holds behaviour suites every warehouse implementation must pass.
package contract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maxviazov/gamelog-sync/internal/model"
	"github.com/maxviazov/gamelog-sync/internal/repository"
)

// Repos bundles one implementation's repositories over a shared, empty store.
type Repos struct {
	GameLogs  repository.GameLogRepository
	Details   repository.DetailRepository
	Overrides repository.OverrideRepository
	Tx        repository.TxManager
	Pinger    repository.Pinger
}

// Factory returns fresh repositories plus a cleanup func.
type Factory func(t *testing.T) (Repos, func())

func day(s string) *time.Time {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return &d
}

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }

func gameLog(game, team, date, wl string, home *bool) model.GameLog {
	return model.GameLog{
		SeasonID: "22023", GameID: game, TeamID: team, GameDate: day(date), WL: wl, IsHome: home,
		SeasonType: model.SeasonTypeRegular,
		Stats:      model.Stats{PTS: floatPtr(100)},
	}
}

func RunGameLogRepositoryContract(t *testing.T, makeRepos Factory) {
	t.Helper()

	t.Run("merge_inserts_then_updates", func(t *testing.T) {
		r, cleanup := makeRepos(t)
		t.Cleanup(cleanup)
		ctx := context.Background()

		seed := []model.GameLog{gameLog("22200001", "1610612737", "2022-10-18", "W", boolPtr(true))}
		res, err := r.GameLogs.Upsert(ctx, seed, repository.ModeMerge)
		if err != nil {
			t.Fatalf("seed upsert: %v", err)
		}
		if res.Inserted != 1 || res.Updated != 0 {
			t.Fatalf("unexpected seed result: %+v", res)
		}

		incoming := []model.GameLog{
			gameLog("22300001", "1610612738", "2023-10-24", "W", boolPtr(true)),
			gameLog("22300001", "1610612760", "2023-10-24", "L", boolPtr(false)),
		}
		res, err = r.GameLogs.Upsert(ctx, incoming, repository.ModeMerge)
		if err != nil {
			t.Fatalf("upsert: %v", err)
		}
		if res.Inserted != 2 {
			t.Fatalf("expected 2 inserted, got %+v", res)
		}
		n, err := r.GameLogs.Count(ctx)
		if err != nil || n != 3 {
			t.Fatalf("expected 3 rows, got %d (err=%v)", n, err)
		}

		// Same keys again with a changed value: nothing new, value replaced.
		incoming[0].Stats.PTS = floatPtr(111)
		res, err = r.GameLogs.Upsert(ctx, incoming, repository.ModeMerge)
		if err != nil {
			t.Fatalf("re-upsert: %v", err)
		}
		if res.Inserted != 0 || res.Updated != 2 {
			t.Fatalf("expected 0 inserted / 2 updated, got %+v", res)
		}
		n, _ = r.GameLogs.Count(ctx)
		if n != 3 {
			t.Fatalf("re-upsert changed row count to %d", n)
		}
		rows, err := r.GameLogs.ListByGameIDs(ctx, []string{"22300001"})
		if err != nil || len(rows) != 2 {
			t.Fatalf("list by ids: %d rows (err=%v)", len(rows), err)
		}
		for _, g := range rows {
			if g.TeamID == "1610612738" && (g.Stats.PTS == nil || *g.Stats.PTS != 111) {
				t.Fatalf("value not replaced: %+v", g.Stats.PTS)
			}
		}
	})

	t.Run("batch_with_repeated_key_keeps_last", func(t *testing.T) {
		r, cleanup := makeRepos(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		first := gameLog("1", "10", "2023-11-01", "L", boolPtr(true))
		last := gameLog("1", "10", "2023-11-01", "W", boolPtr(true))
		if _, err := r.GameLogs.Upsert(ctx, []model.GameLog{first, last}, repository.ModeMerge); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		rows, err := r.GameLogs.List(ctx)
		if err != nil || len(rows) != 1 {
			t.Fatalf("expected 1 row, got %d (err=%v)", len(rows), err)
		}
		if rows[0].WL != "W" {
			t.Fatalf("expected last occurrence to win, got %q", rows[0].WL)
		}
	})

	t.Run("replace_discards_previous_rows", func(t *testing.T) {
		r, cleanup := makeRepos(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		if _, err := r.GameLogs.Upsert(ctx, []model.GameLog{gameLog("1", "10", "2023-11-01", "W", nil)}, repository.ModeMerge); err != nil {
			t.Fatalf("seed: %v", err)
		}
		if _, err := r.GameLogs.Upsert(ctx, []model.GameLog{gameLog("2", "20", "2023-11-02", "L", nil)}, repository.ModeReplace); err != nil {
			t.Fatalf("replace: %v", err)
		}
		rows, _ := r.GameLogs.List(ctx)
		if len(rows) != 1 || rows[0].GameID != "2" {
			t.Fatalf("unexpected rows after replace: %+v", rows)
		}
	})

	t.Run("max_game_date", func(t *testing.T) {
		r, cleanup := makeRepos(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		got, err := r.GameLogs.MaxGameDate(ctx)
		if err != nil || got != nil {
			t.Fatalf("expected nil on empty store, got %v (err=%v)", got, err)
		}
		rows := []model.GameLog{
			gameLog("1", "10", "2022-10-18", "W", nil),
			gameLog("2", "10", "2023-01-05", "W", nil),
		}
		if _, err := r.GameLogs.Upsert(ctx, rows, repository.ModeMerge); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		got, err = r.GameLogs.MaxGameDate(ctx)
		if err != nil || got == nil || got.Format(model.DateLayout) != "2023-01-05" {
			t.Fatalf("unexpected max date %v (err=%v)", got, err)
		}
	})

	t.Run("games_missing_overrides", func(t *testing.T) {
		r, cleanup := makeRepos(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		rows := []model.GameLog{
			// clean split
			gameLog("1", "10", "2023-11-01", "W", boolPtr(true)),
			gameLog("1", "20", "2023-11-01", "L", boolPtr(false)),
			// neutral site, both "away"
			gameLog("2", "10", "2023-11-02", "W", boolPtr(false)),
			gameLog("2", "30", "2023-11-02", "L", boolPtr(false)),
			// ambiguous but already overridden
			gameLog("3", "10", "2023-11-03", "W", nil),
			gameLog("3", "40", "2023-11-03", "L", nil),
		}
		if _, err := r.GameLogs.Upsert(ctx, rows, repository.ModeMerge); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		err := r.Overrides.Upsert(ctx, []model.HomeAwayOverride{{
			GameID: "3", TeamIDHome: "40", TeamIDAway: "10", Source: model.OverrideSourceNetwork, UpdatedAt: time.Now().UTC(),
		}})
		if err != nil {
			t.Fatalf("override upsert: %v", err)
		}
		ids, err := r.GameLogs.GamesMissingOverrides(ctx, repository.Page{Limit: 10})
		if err != nil {
			t.Fatalf("discover: %v", err)
		}
		if len(ids) != 1 || ids[0] != "2" {
			t.Fatalf("expected [2], got %v", ids)
		}
	})
}

func RunDetailRepositoryContract(t *testing.T, makeRepos Factory) {
	t.Helper()

	t.Run("replace_box_scores_is_idempotent", func(t *testing.T) {
		r, cleanup := makeRepos(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		box := model.BoxScore{
			Teams: []model.BoxScoreTeam{
				{GameID: "22300001", TeamID: "1610612738", Stats: model.Stats{PTS: floatPtr(108)}},
				{GameID: "22300001", TeamID: "1610612752", Stats: model.Stats{PTS: floatPtr(104)}},
			},
			Players: []model.BoxScorePlayer{{GameID: "22300001", TeamID: "1610612738", PlayerID: "1628369"}},
		}
		for i := 0; i < 2; i++ {
			if err := r.Details.ReplaceBoxScores(ctx, []string{"22300001"}, box); err != nil {
				t.Fatalf("replace #%d: %v", i, err)
			}
		}
		got, err := r.Details.ExistingGameIDs(ctx, repository.DetailBoxScore, []string{"22300001", "22300002"})
		if err != nil {
			t.Fatalf("existing: %v", err)
		}
		if !got["22300001"] || got["22300002"] {
			t.Fatalf("unexpected presence map: %v", got)
		}
		pbp, err := r.Details.ExistingGameIDs(ctx, repository.DetailPlayByPlay, []string{"22300001"})
		if err != nil || len(pbp) != 0 {
			t.Fatalf("kinds must be tracked independently: %v (err=%v)", pbp, err)
		}
	})

	t.Run("replace_play_by_play", func(t *testing.T) {
		r, cleanup := makeRepos(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		rows := []model.PlayByPlay{
			{GameID: "22300001", EventNum: 1, Period: 1},
			{GameID: "22300001", EventNum: 2, Period: 1},
		}
		if err := r.Details.ReplacePlayByPlay(ctx, []string{"22300001"}, rows); err != nil {
			t.Fatalf("replace: %v", err)
		}
		if err := r.Details.ReplacePlayByPlay(ctx, []string{"22300001"}, rows[:1]); err != nil {
			t.Fatalf("replace again: %v", err)
		}
		got, err := r.Details.ExistingGameIDs(ctx, repository.DetailPlayByPlay, []string{"22300001"})
		if err != nil || !got["22300001"] {
			t.Fatalf("expected play by play present: %v (err=%v)", got, err)
		}
	})

	t.Run("play_by_play_accepts_repeated_event_numbers", func(t *testing.T) {
		r, cleanup := makeRepos(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		rows := []model.PlayByPlay{
			{GameID: "22300005", EventNum: 0, Period: 1},
			{GameID: "22300005", EventNum: 0, Period: 1},
			{GameID: "22300005", EventNum: 7, Period: 2},
			{GameID: "22300005", EventNum: 7, Period: 2},
		}
		if err := r.Tx.WithinTx(ctx, func(ctx context.Context) error {
			return r.Details.ReplacePlayByPlay(ctx, []string{"22300005"}, rows)
		}); err != nil {
			t.Fatalf("replace with repeated event numbers: %v", err)
		}
		got, err := r.Details.ExistingGameIDs(ctx, repository.DetailPlayByPlay, []string{"22300005"})
		if err != nil || !got["22300005"] {
			t.Fatalf("expected play by play present: %v (err=%v)", got, err)
		}
	})
}

func RunOverrideRepositoryContract(t *testing.T, makeRepos Factory) {
	t.Helper()

	t.Run("upsert_replaces_existing", func(t *testing.T) {
		r, cleanup := makeRepos(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		season := 2020
		first := model.HomeAwayOverride{
			GameID: "22000999", GameDate: day("2020-08-01"), Season: &season,
			TeamIDHome: "10", TeamIDAway: "20", Source: model.OverrideSourceLocal, UpdatedAt: time.Now().UTC(),
		}
		second := first
		second.TeamIDHome, second.TeamIDAway, second.Source = "20", "10", model.OverrideSourceNetwork
		if err := r.Overrides.Upsert(ctx, []model.HomeAwayOverride{first}); err != nil {
			t.Fatalf("first: %v", err)
		}
		if err := r.Overrides.Upsert(ctx, []model.HomeAwayOverride{second}); err != nil {
			t.Fatalf("second: %v", err)
		}
		list, err := r.Overrides.List(ctx)
		if err != nil || len(list) != 1 {
			t.Fatalf("expected one override, got %d (err=%v)", len(list), err)
		}
		got := list[0]
		if got.TeamIDHome != "20" || got.Source != model.OverrideSourceNetwork {
			t.Fatalf("override not replaced: %+v", got)
		}
		if got.Season == nil || *got.Season != 2020 {
			t.Fatalf("season lost: %v", got.Season)
		}
	})
}

func RunTxManagerContract(t *testing.T, makeRepos Factory) {
	t.Helper()

	t.Run("commit_on_nil_error", func(t *testing.T) {
		r, cleanup := makeRepos(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		err := r.Tx.WithinTx(ctx, func(ctx context.Context) error {
			_, err := r.GameLogs.Upsert(ctx, []model.GameLog{gameLog("1", "10", "2023-11-01", "W", nil)}, repository.ModeMerge)
			return err
		})
		if err != nil {
			t.Fatalf("WithinTx: %v", err)
		}
		if n, _ := r.GameLogs.Count(ctx); n != 1 {
			t.Fatalf("expected committed row visible, got %d rows", n)
		}
	})

	t.Run("rollback_on_error", func(t *testing.T) {
		r, cleanup := makeRepos(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		errMarker := errors.New("boom")
		err := r.Tx.WithinTx(ctx, func(ctx context.Context) error {
			if _, err := r.GameLogs.Upsert(ctx, []model.GameLog{gameLog("1", "10", "2023-11-01", "W", nil)}, repository.ModeMerge); err != nil {
				return err
			}
			if err := r.Overrides.Upsert(ctx, []model.HomeAwayOverride{{
				GameID: "1", TeamIDHome: "10", TeamIDAway: "20", Source: model.OverrideSourceLocal, UpdatedAt: time.Now().UTC(),
			}}); err != nil {
				return err
			}
			return errMarker
		})
		if !errors.Is(err, errMarker) {
			t.Fatalf("expected marker error, got %v", err)
		}
		if n, _ := r.GameLogs.Count(ctx); n != 0 {
			t.Fatalf("expected rollback, found %d rows", n)
		}
		if list, _ := r.Overrides.List(ctx); len(list) != 0 {
			t.Fatalf("expected rollback of overrides, found %d", len(list))
		}
	})
}

func RunPingerContract(t *testing.T, makeRepos Factory) {
	t.Helper()
	t.Run("ping_ok", func(t *testing.T) {
		r, cleanup := makeRepos(t)
		t.Cleanup(cleanup)
		if err := r.Pinger.Ping(context.Background()); err != nil {
			t.Fatalf("expected ping ok, got %v", err)
		}
	})
}
