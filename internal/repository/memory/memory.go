// Package memory is an in-process implementation of the warehouse repositories.
// It backs service tests and runs the same contract suites as the Postgres implementation.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/maxviazov/gamelog-sync/internal/dedup"
	"github.com/maxviazov/gamelog-sync/internal/model"
	"github.com/maxviazov/gamelog-sync/internal/repository"
)

type state struct {
	logs       []model.GameLog
	boxTeams   map[string][]model.BoxScoreTeam
	boxPlayers map[string][]model.BoxScorePlayer
	pbp        map[string][]model.PlayByPlay
	overrides  map[string]model.HomeAwayOverride
}

func (s state) clone() state {
	c := state{
		logs:       slices.Clone(s.logs),
		boxTeams:   make(map[string][]model.BoxScoreTeam, len(s.boxTeams)),
		boxPlayers: make(map[string][]model.BoxScorePlayer, len(s.boxPlayers)),
		pbp:        make(map[string][]model.PlayByPlay, len(s.pbp)),
		overrides:  make(map[string]model.HomeAwayOverride, len(s.overrides)),
	}
	for k, v := range s.boxTeams {
		c.boxTeams[k] = v
	}
	for k, v := range s.boxPlayers {
		c.boxPlayers[k] = v
	}
	for k, v := range s.pbp {
		c.pbp[k] = v
	}
	for k, v := range s.overrides {
		c.overrides[k] = v
	}
	return c
}

// Store holds every table. The zero value is not usable; call New.
type Store struct {
	mu  sync.Mutex
	cur state

	// UpsertErr, when set, fails the next game log upsert (then clears itself).
	UpsertErr error
	// CommitErr, when set, fails the next transaction after its body succeeded (then clears itself).
	CommitErr error
}

func New() *Store {
	return &Store{cur: state{}.clone()}
}

// WithinTx snapshots the store and restores it when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	s.mu.Lock()
	snapshot := s.cur.clone()
	s.mu.Unlock()

	err := fn(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil && s.CommitErr != nil {
		err, s.CommitErr = s.CommitErr, nil
	}
	if err != nil {
		s.cur = snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// GameLogs returns the game log repository view.
func (s *Store) GameLogs() repository.GameLogRepository { return &gameLogs{s: s} }

// Details returns the detail repository view.
func (s *Store) Details() repository.DetailRepository { return &details{s: s} }

// Overrides returns the override repository view.
func (s *Store) Overrides() repository.OverrideRepository { return &overrides{s: s} }

type gameLogs struct{ s *Store }

func (r *gameLogs) Upsert(ctx context.Context, rows []model.GameLog, mode repository.UpsertMode) (repository.UpsertResult, error) {
	if err := ctx.Err(); err != nil {
		return repository.UpsertResult{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.UpsertErr; err != nil {
		r.s.UpsertErr = nil
		return repository.UpsertResult{}, err
	}

	base := r.s.cur.logs
	if mode == repository.ModeReplace {
		base = nil
	}
	merged, inserted := dedup.Merge(base, rows)
	if dedup.CountDuplicates(merged) > 0 {
		return repository.UpsertResult{}, repository.ErrDuplicateKeyInvariant
	}
	r.s.cur.logs = merged
	return repository.UpsertResult{Inserted: inserted, Updated: len(dedup.Unique(rows)) - inserted}, nil
}

func (r *gameLogs) MaxGameDate(ctx context.Context) (*time.Time, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *time.Time
	for _, g := range r.s.cur.logs {
		if g.GameDate != nil && (latest == nil || g.GameDate.After(*latest)) {
			d := *g.GameDate
			latest = &d
		}
	}
	return latest, nil
}

func (r *gameLogs) Count(ctx context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.cur.logs), nil
}

func (r *gameLogs) List(ctx context.Context) ([]model.GameLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := slices.Clone(r.s.cur.logs)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].GameDate, out[j].GameDate
		switch {
		case a == nil:
			return b != nil
		case b == nil:
			return false
		default:
			return a.Before(*b)
		}
	})
	return out, nil
}

func (r *gameLogs) ListByGameIDs(ctx context.Context, gameIDs []string) ([]model.GameLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[string]bool, len(gameIDs))
	for _, id := range gameIDs {
		want[id] = true
	}
	var out []model.GameLog
	for _, g := range r.s.cur.logs {
		if want[g.GameID] {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *gameLogs) GamesMissingOverrides(ctx context.Context, p repository.Page) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p = p.Normalize()

	type tally struct {
		teams        map[string]bool
		homes, aways int
	}
	games := map[string]*tally{}
	for _, g := range r.s.cur.logs {
		if _, ok := r.s.cur.overrides[g.GameID]; ok {
			continue
		}
		t := games[g.GameID]
		if t == nil {
			t = &tally{teams: map[string]bool{}}
			games[g.GameID] = t
		}
		t.teams[g.TeamID] = true
		if g.IsHome != nil {
			if *g.IsHome {
				t.homes++
			} else {
				t.aways++
			}
		}
	}
	var ids []string
	for id, t := range games {
		if len(t.teams) == 2 && (t.homes != 1 || t.aways != 1) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if p.Offset >= len(ids) {
		return nil, nil
	}
	ids = ids[p.Offset:]
	if len(ids) > p.Limit {
		ids = ids[:p.Limit]
	}
	return ids, nil
}

type details struct{ s *Store }

func (r *details) ExistingGameIDs(ctx context.Context, kind repository.DetailKind, gameIDs []string) (map[string]bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[string]bool)
	for _, id := range gameIDs {
		var present bool
		switch kind {
		case repository.DetailBoxScore:
			present = len(r.s.cur.boxTeams[id]) > 0
		case repository.DetailPlayByPlay:
			present = len(r.s.cur.pbp[id]) > 0
		}
		if present {
			out[id] = true
		}
	}
	return out, nil
}

func (r *details) ReplaceBoxScores(ctx context.Context, gameIDs []string, box model.BoxScore) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range gameIDs {
		delete(r.s.cur.boxTeams, id)
		delete(r.s.cur.boxPlayers, id)
	}
	for _, t := range box.Teams {
		r.s.cur.boxTeams[t.GameID] = append(r.s.cur.boxTeams[t.GameID], t)
	}
	for _, p := range box.Players {
		r.s.cur.boxPlayers[p.GameID] = append(r.s.cur.boxPlayers[p.GameID], p)
	}
	return nil
}

func (r *details) ReplacePlayByPlay(ctx context.Context, gameIDs []string, rows []model.PlayByPlay) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range gameIDs {
		delete(r.s.cur.pbp, id)
	}
	for _, e := range rows {
		r.s.cur.pbp[e.GameID] = append(r.s.cur.pbp[e.GameID], e)
	}
	return nil
}

type overrides struct{ s *Store }

func (r *overrides) Upsert(ctx context.Context, list []model.HomeAwayOverride) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range list {
		r.s.cur.overrides[o.GameID] = o
	}
	return nil
}

func (r *overrides) List(ctx context.Context) ([]model.HomeAwayOverride, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.HomeAwayOverride, 0, len(r.s.cur.overrides))
	for _, o := range r.s.cur.overrides {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameID < out[j].GameID })
	return out, nil
}

var (
	_ repository.TxManager          = (*Store)(nil)
	_ repository.Pinger             = (*Store)(nil)
	_ repository.GameLogRepository  = (*gameLogs)(nil)
	_ repository.DetailRepository   = (*details)(nil)
	_ repository.OverrideRepository = (*overrides)(nil)
)
