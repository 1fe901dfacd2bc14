package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/maxviazov/gamelog-sync/internal/canonical"
	"github.com/maxviazov/gamelog-sync/internal/config"
	"github.com/maxviazov/gamelog-sync/internal/model"
	"github.com/maxviazov/gamelog-sync/internal/repository"
	"github.com/maxviazov/gamelog-sync/internal/season"
)

// ResolveMode selects whether unresolved games may hit the network.
type ResolveMode string

const (
	ResolveNetworkFallback ResolveMode = "network_fallback"
	ResolveLocalOnly       ResolveMode = "local_only"
)

// ResolveReport counts what one Resolve call did.
type ResolveReport struct {
	Requested  int  `json:"requested"`
	Local      int  `json:"local"`
	Network    int  `json:"network"`
	Unresolved int  `json:"unresolved"`
	Failed     int  `json:"failed"`
	DryRun     bool `json:"dry_run"`
}

// Resolved is the number of overrides produced, local and network combined.
func (r ResolveReport) Resolved() int { return r.Local + r.Network }

type ResolverService struct {
	games      repository.GameLogRepository
	overrides  repository.OverrideRepository
	fetch      SummaryFetcher
	limiter    *rate.Limiter
	workers    int
	flushEvery int
	jitter     time.Duration
	log        zerolog.Logger

	// DryRun resolves without writing overrides.
	DryRun bool

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewResolverService wires the resolver. fetch should carry the overrides retry policy;
// the resolver only adds spacing between calls on top of it.
func NewResolverService(games repository.GameLogRepository, overrides repository.OverrideRepository, fetch SummaryFetcher, cfg config.OverridesConfig, logger zerolog.Logger) *ResolverService {
	workers := max(cfg.Workers, 1)
	flush := max(cfg.FlushEvery, 1)
	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}
	l := logger.With().Str("module", "service").Str("component", "resolver").Logger()
	return &ResolverService{
		games:      games,
		overrides:  overrides,
		fetch:      fetch,
		limiter:    rate.NewLimiter(limit, 1),
		workers:    workers,
		flushEvery: flush,
		jitter:     cfg.Jitter,
		log:        l,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

// Discover lists games whose stored rows do not settle home/away and that have no override yet.
func (s *ResolverService) Discover(ctx context.Context, limit int) ([]string, error) {
	ids, err := s.games.GamesMissingOverrides(ctx, repository.Page{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("discover ambiguous games: %w", err)
	}
	return ids, nil
}

// Resolve settles home/away for ids. Local data is tried first; the rest goes to the game
// summary endpoint unless mode is ResolveLocalOnly. Network results are flushed every
// flushEvery games so an interrupted run keeps what it already resolved.
func (s *ResolverService) Resolve(ctx context.Context, ids []string, mode ResolveMode) (ResolveReport, error) {
	ids = uniqueIDs(ids)
	rep := ResolveReport{Requested: len(ids), DryRun: s.DryRun}
	if len(ids) == 0 {
		return rep, nil
	}

	rows, err := s.games.ListByGameIDs(ctx, ids)
	if err != nil {
		return rep, fmt.Errorf("load game logs: %w", err)
	}
	byGame := make(map[string][]model.GameLog, len(ids))
	for _, g := range rows {
		byGame[g.GameID] = append(byGame[g.GameID], g)
	}

	var (
		local   []model.HomeAwayOverride
		pending []string
	)
	now := s.now().UTC()
	for _, id := range ids {
		if o, ok := resolveLocal(id, byGame[id], now); ok {
			local = append(local, o)
			continue
		}
		pending = append(pending, id)
	}
	if err := s.flush(ctx, local); err != nil {
		return rep, err
	}
	rep.Local = len(local)

	if mode == ResolveLocalOnly || len(pending) == 0 {
		rep.Unresolved = len(pending)
		s.logReport(rep)
		return rep, nil
	}

	network, failed, err := s.resolveNetwork(ctx, pending, byGame, now)
	rep.Network = network
	rep.Failed = failed
	rep.Unresolved = len(pending) - network
	s.logReport(rep)
	return rep, err
}

type summaryResult struct {
	gameID   string
	override model.HomeAwayOverride
	err      error
}

func (s *ResolverService) resolveNetwork(ctx context.Context, ids []string, byGame map[string][]model.GameLog, now time.Time) (resolved, failed int, err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan summaryResult)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	go func() {
		for _, id := range ids {
			g.Go(func() error {
				r := summaryResult{gameID: id}
				r.override, r.err = s.lookup(gctx, id, byGame[id], now)
				select {
				case results <- r:
				case <-gctx.Done():
				}
				// Per-game failures never cancel siblings.
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	batch := make([]model.HomeAwayOverride, 0, s.flushEvery)
	var flushErr error
	for r := range results {
		if flushErr != nil {
			continue
		}
		if r.err != nil {
			failed++
			s.log.Warn().Err(r.err).Str("game_id", r.gameID).Msg("home/away lookup failed, skipping")
			continue
		}
		batch = append(batch, r.override)
		if len(batch) >= s.flushEvery {
			if flushErr = s.flush(ctx, batch); flushErr != nil {
				cancel()
				continue
			}
			resolved += len(batch)
			batch = batch[:0]
		}
	}
	if flushErr != nil {
		return resolved, failed, flushErr
	}
	// An interrupted run keeps only what was flushed before the interruption.
	if err := ctx.Err(); err != nil {
		return resolved, failed, err
	}
	if err := s.flush(ctx, batch); err != nil {
		return resolved, failed, err
	}
	resolved += len(batch)
	return resolved, failed, nil
}

// lookup waits its turn on the shared limiter, adds jitter, then asks the summary endpoint.
func (s *ResolverService) lookup(ctx context.Context, id string, rows []model.GameLog, now time.Time) (model.HomeAwayOverride, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return model.HomeAwayOverride{}, err
	}
	if s.jitter > 0 {
		if err := s.sleep(ctx, rand.N(s.jitter)); err != nil {
			return model.HomeAwayOverride{}, err
		}
	}
	raw, err := s.fetch.FetchGameSummary(ctx, id)
	if err != nil {
		return model.HomeAwayOverride{}, err
	}
	sum := canonical.GameSummary(raw)
	if sum.HomeTeamID == "" || sum.AwayTeamID == "" || sum.HomeTeamID == sum.AwayTeamID {
		return model.HomeAwayOverride{}, fmt.Errorf("game %s: summary has no usable home/visitor pair (%q, %q)", id, sum.HomeTeamID, sum.AwayTeamID)
	}

	o := model.HomeAwayOverride{
		GameID:     id,
		GameDate:   sum.GameDate,
		Season:     sum.Season,
		TeamIDHome: sum.HomeTeamID,
		TeamIDAway: sum.AwayTeamID,
		Source:     model.OverrideSourceNetwork,
		UpdatedAt:  now,
	}
	if o.GameDate == nil || o.Season == nil {
		date, seasonYear := describe(rows)
		if o.GameDate == nil {
			o.GameDate = date
		}
		if o.Season == nil {
			o.Season = seasonYear
		}
	}
	return o, nil
}

func (s *ResolverService) flush(ctx context.Context, batch []model.HomeAwayOverride) error {
	if len(batch) == 0 {
		return nil
	}
	if s.DryRun {
		for _, o := range batch {
			s.log.Info().Str("game_id", o.GameID).Str("home", o.TeamIDHome).Str("away", o.TeamIDAway).Str("source", o.Source).Msg("dry run: would store override")
		}
		return nil
	}
	if err := s.overrides.Upsert(ctx, batch); err != nil {
		return fmt.Errorf("store overrides: %w", err)
	}
	s.log.Debug().Int("overrides", len(batch)).Msg("overrides flushed")
	return nil
}

func (s *ResolverService) logReport(rep ResolveReport) {
	s.log.Info().
		Int("requested", rep.Requested).
		Int("local", rep.Local).
		Int("network", rep.Network).
		Int("unresolved", rep.Unresolved).
		Int("failed", rep.Failed).
		Bool("dry_run", rep.DryRun).
		Msg("home/away resolution finished")
}

// resolveLocal settles a game from its own rows: two distinct teams and either a clean
// home/away split or exactly one known flag that implies the other.
func resolveLocal(id string, rows []model.GameLog, now time.Time) (model.HomeAwayOverride, bool) {
	var (
		teams []string
		flags = map[string]*bool{}
	)
	for _, g := range rows {
		if _, seen := flags[g.TeamID]; !seen {
			teams = append(teams, g.TeamID)
			flags[g.TeamID] = nil
		}
		if flags[g.TeamID] == nil && g.IsHome != nil {
			flags[g.TeamID] = g.IsHome
		}
	}
	if len(teams) != 2 {
		return model.HomeAwayOverride{}, false
	}
	a, b := flags[teams[0]], flags[teams[1]]

	var home, away string
	switch {
	case a != nil && b != nil && *a != *b:
		home, away = teams[0], teams[1]
		if *b {
			home, away = teams[1], teams[0]
		}
	case a != nil && b == nil:
		home, away = teams[0], teams[1]
		if !*a {
			home, away = teams[1], teams[0]
		}
	case a == nil && b != nil:
		home, away = teams[1], teams[0]
		if !*b {
			home, away = teams[0], teams[1]
		}
	default:
		return model.HomeAwayOverride{}, false
	}

	date, seasonYear := describe(rows)
	return model.HomeAwayOverride{
		GameID:     id,
		GameDate:   date,
		Season:     seasonYear,
		TeamIDHome: home,
		TeamIDAway: away,
		Source:     model.OverrideSourceLocal,
		UpdatedAt:  now,
	}, true
}

// AmbiguousGames returns the ids among rows whose home/away split is not clean.
// Games seen with a single team are left out; the other side may arrive later.
func AmbiguousGames(rows []model.GameLog) []string {
	type tally struct {
		teams        map[string]bool
		homes, aways int
	}
	var order []string
	games := map[string]*tally{}
	for _, g := range rows {
		t := games[g.GameID]
		if t == nil {
			t = &tally{teams: map[string]bool{}}
			games[g.GameID] = t
			order = append(order, g.GameID)
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
	var out []string
	for _, id := range order {
		t := games[id]
		if len(t.teams) == 2 && (t.homes != 1 || t.aways != 1) {
			out = append(out, id)
		}
	}
	return out
}

// describe pulls the game date and season start year out of a game's rows.
func describe(rows []model.GameLog) (*time.Time, *int) {
	var (
		date       *time.Time
		seasonYear *int
	)
	for _, g := range rows {
		if date == nil && g.GameDate != nil {
			d := *g.GameDate
			date = &d
		}
		if seasonYear == nil {
			if y, ok := season.StartYearFromSeasonID(g.SeasonID); ok {
				seasonYear = &y
			}
		}
	}
	if seasonYear == nil && date != nil {
		y := season.Year(*date)
		seasonYear = &y
	}
	return date, seasonYear
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
