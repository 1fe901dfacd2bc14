package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/maxviazov/gamelog-sync/internal/canonical"
	"github.com/maxviazov/gamelog-sync/internal/config"
	"github.com/maxviazov/gamelog-sync/internal/model"
	"github.com/maxviazov/gamelog-sync/internal/repository"
)

// DetailReport counts (kind, game) jobs.
type DetailReport struct {
	Requested int `json:"requested"`
	Fetched   int `json:"fetched"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

type DetailService struct {
	fetch   DetailFetcher
	repo    repository.DetailRepository
	tx      repository.TxManager
	workers int
	log     zerolog.Logger
}

func NewDetailService(fetch DetailFetcher, repo repository.DetailRepository, tx repository.TxManager, cfg config.DetailsConfig, logger zerolog.Logger) *DetailService {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	l := logger.With().Str("module", "service").Str("component", "details").Logger()
	return &DetailService{fetch: fetch, repo: repo, tx: tx, workers: workers, log: l}
}

type detailJob struct {
	kind   repository.DetailKind
	gameID string
}

type detailResult struct {
	box model.BoxScore
	pbp []model.PlayByPlay
	err error
}

// FetchDetails pulls box scores and play-by-play for games that lack them.
// Each kind is filtered on its own, so a game with a box score can still get its timeline.
// A failed job is logged and counted. When the batched write fails, games are written one by one
// and the ones that still fail are counted too; an error comes back only if nothing could be stored.
func (s *DetailService) FetchDetails(ctx context.Context, ids []string) (DetailReport, error) {
	ids = uniqueIDs(ids)
	var rep DetailReport
	if len(ids) == 0 {
		return rep, nil
	}

	var jobs []detailJob
	for _, kind := range []repository.DetailKind{repository.DetailBoxScore, repository.DetailPlayByPlay} {
		present, err := s.repo.ExistingGameIDs(ctx, kind, ids)
		if err != nil {
			return rep, fmt.Errorf("existing %s ids: %w", kind, err)
		}
		for _, id := range ids {
			rep.Requested++
			if present[id] {
				rep.Skipped++
				continue
			}
			jobs = append(jobs, detailJob{kind: kind, gameID: id})
		}
	}
	if len(jobs) == 0 {
		s.log.Debug().Int("games", len(ids)).Msg("all details already present")
		return rep, nil
	}

	// Every worker owns one slot; nothing else is shared until Wait returns.
	results := make([]detailResult, len(jobs))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].err = err
				return nil
			}
			results[i] = s.fetchOne(ctx, job)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return rep, err
	}

	var (
		ready []fetchedDetail
		games []string
	)
	byGame := map[string][]fetchedDetail{}
	for i, job := range jobs {
		r := results[i]
		if r.err != nil {
			rep.Failed++
			s.log.Warn().Err(r.err).Str("game_id", job.gameID).Str("kind", string(job.kind)).Msg("detail fetch failed, skipping")
			continue
		}
		rep.Fetched++
		d := fetchedDetail{detailJob: job, detailResult: r}
		ready = append(ready, d)
		if _, seen := byGame[job.gameID]; !seen {
			games = append(games, job.gameID)
		}
		byGame[job.gameID] = append(byGame[job.gameID], d)
	}

	if err := s.store(ctx, ready); err != nil {
		if ctx.Err() != nil {
			return rep, err
		}
		// One bad game must not cost its siblings their details.
		s.log.Warn().Err(err).Int("games", len(games)).Msg("batched detail write failed, storing games one by one")
		var lastErr error
		stored := 0
		for _, id := range games {
			group := byGame[id]
			if err := s.store(ctx, group); err != nil {
				if ctx.Err() != nil {
					return rep, err
				}
				lastErr = err
				rep.Fetched -= len(group)
				rep.Failed += len(group)
				s.log.Warn().Err(err).Str("game_id", id).Msg("detail write failed, skipping game")
				continue
			}
			stored++
		}
		if stored == 0 {
			return rep, lastErr
		}
	}

	s.log.Info().
		Int("requested", rep.Requested).
		Int("fetched", rep.Fetched).
		Int("skipped", rep.Skipped).
		Int("failed", rep.Failed).
		Msg("details stored")
	return rep, nil
}

type fetchedDetail struct {
	detailJob
	detailResult
}

// store replaces the details of every game in items inside one transaction.
func (s *DetailService) store(ctx context.Context, items []fetchedDetail) error {
	var (
		box    model.BoxScore
		boxIDs []string
		pbp    []model.PlayByPlay
		pbpIDs []string
	)
	for _, d := range items {
		switch d.kind {
		case repository.DetailBoxScore:
			boxIDs = append(boxIDs, d.gameID)
			box.Teams = append(box.Teams, d.box.Teams...)
			box.Players = append(box.Players, d.box.Players...)
		case repository.DetailPlayByPlay:
			pbpIDs = append(pbpIDs, d.gameID)
			pbp = append(pbp, d.pbp...)
		}
	}
	if len(boxIDs) == 0 && len(pbpIDs) == 0 {
		return nil
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if len(boxIDs) > 0 {
			if err := s.repo.ReplaceBoxScores(ctx, boxIDs, box); err != nil {
				return fmt.Errorf("store box scores: %w", err)
			}
		}
		if len(pbpIDs) > 0 {
			if err := s.repo.ReplacePlayByPlay(ctx, pbpIDs, pbp); err != nil {
				return fmt.Errorf("store play by play: %w", err)
			}
		}
		return nil
	})
}

// fetchOne fetches and canonicalizes one job. Ids are forced to the requested game so a
// payload with a padded or missing GAME_ID still lands under the right key.
func (s *DetailService) fetchOne(ctx context.Context, job detailJob) detailResult {
	switch job.kind {
	case repository.DetailBoxScore:
		sets, err := s.fetch.FetchBoxScore(ctx, job.gameID)
		if err != nil {
			return detailResult{err: err}
		}
		box := canonical.BoxScore(sets.Teams, sets.Players)
		for i := range box.Teams {
			box.Teams[i].GameID = job.gameID
		}
		for i := range box.Players {
			box.Players[i].GameID = job.gameID
		}
		return detailResult{box: box}
	case repository.DetailPlayByPlay:
		raws, err := s.fetch.FetchPlayByPlay(ctx, job.gameID)
		if err != nil {
			return detailResult{err: err}
		}
		rows := canonical.PlayByPlay(raws)
		for i := range rows {
			rows[i].GameID = job.gameID
		}
		return detailResult{pbp: rows}
	default:
		return detailResult{err: fmt.Errorf("unknown detail kind %q", job.kind)}
	}
}
