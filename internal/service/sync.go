package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/maxviazov/gamelog-sync/internal/canonical"
	"github.com/maxviazov/gamelog-sync/internal/config"
	"github.com/maxviazov/gamelog-sync/internal/dedup"
	"github.com/maxviazov/gamelog-sync/internal/model"
	"github.com/maxviazov/gamelog-sync/internal/repository"
	"github.com/maxviazov/gamelog-sync/internal/season"
	"github.com/maxviazov/gamelog-sync/internal/statsapi"
	"github.com/maxviazov/gamelog-sync/internal/store"
	"github.com/maxviazov/gamelog-sync/internal/watermark"
)

// Run modes reported in the summary.
const (
	ModeIncremental = "incremental"
	ModeExplicit    = "explicit"
	ModeFullHistory = "full_history"
)

// SyncOptions are the per-run switches of the sync command. Nil dates mean "derive".
type SyncOptions struct {
	Start         *time.Time
	End           *time.Time
	FullHistory   bool
	LocalOnly     bool
	SkipDetails   bool
	SkipOverrides bool
	SkipQuality   bool
}

// SyncDeps bundles what a SyncService needs. Details, Resolver and Quality may be nil,
// which disables that stage.
type SyncDeps struct {
	Fetcher   GameLogFetcher
	LogFile   store.GameLogFile
	Watermark store.WatermarkFile
	Games     repository.GameLogRepository
	Tx        repository.TxManager
	Details   *DetailService
	Resolver  *ResolverService
	Quality   *QualityService
}

type SyncService struct {
	deps       SyncDeps
	epoch      time.Time
	fallback   model.SeasonType
	categories []model.SeasonType
	now        func() time.Time
	log        zerolog.Logger
}

func NewSyncService(deps SyncDeps, source config.SourceConfig, cfg config.SyncConfig, logger zerolog.Logger) (*SyncService, error) {
	epoch, err := model.ParseDay(source.Epoch)
	if err != nil {
		return nil, fmt.Errorf("invalid source epoch %q: %w", source.Epoch, err)
	}
	var categories []model.SeasonType
	for _, c := range cfg.Categories {
		categories = append(categories, canonical.SeasonType(c))
	}
	l := logger.With().Str("module", "service").Str("component", "sync").Logger()
	return &SyncService{
		deps:       deps,
		epoch:      epoch,
		fallback:   canonical.SeasonType(cfg.DefaultCategory),
		categories: categories,
		now:        time.Now,
		log:        l,
	}, nil
}

// WithClock overrides "today"; used by tests.
func (s *SyncService) WithClock(now func() time.Time) *SyncService {
	s.now = now
	return s
}

// Run executes one sync: window, fetch, canonicalize, dedup, persist, then the fan-out stages.
// The returned summary is filled as far as the run got, also on error.
// Fatal errors: seed missing, duplicate key invariant, store failures, quality gate.
func (s *SyncService) Run(ctx context.Context, opts SyncOptions) (model.RunSummary, error) {
	sum := model.RunSummary{RunID: uuid.NewString(), Mode: runMode(opts)}
	log := s.log.With().Str("run_id", sum.RunID).Str("mode", sum.Mode).Logger()

	// 1. Что уже лежит на диске и где остановились в прошлый раз.
	existing, err := s.deps.LogFile.Read()
	if err != nil {
		return sum, fmt.Errorf("read game log: %w", err)
	}
	prevMark, err := s.deps.Watermark.Read()
	if err != nil {
		return sum, fmt.Errorf("read watermark: %w", err)
	}
	if prevMark != nil {
		sum.Watermark = prevMark.Format(model.DateLayout)
	}
	storeMax, err := s.storeMax(ctx, existing)
	if err != nil {
		return sum, err
	}

	// 2. Окно запроса.
	window, err := watermark.NextWindow(
		watermark.State{Watermark: prevMark, StoreMax: storeMax},
		watermark.Request{Start: opts.Start, End: opts.End, FullHistory: opts.FullHistory, Epoch: s.epoch, Today: s.now()},
	)
	switch {
	case errors.Is(err, watermark.ErrNoWorkNeeded):
		sum.WindowStart, sum.WindowEnd = window.From.Format(model.DateLayout), window.To.Format(model.DateLayout)
		sum.NoWorkNeeded = true
		sum.FinalRowCount = len(existing)
		log.Info().Str("window", window.String()).Msg("no updates required")
		return sum, nil
	case err != nil:
		return sum, err
	}
	sum.WindowStart, sum.WindowEnd = window.From.Format(model.DateLayout), window.To.Format(model.DateLayout)
	log.Info().Str("window", window.String()).Int("stored_rows", len(existing)).Msg("sync window selected")

	// 3. Загрузка по категориям. Упавшая категория не валит весь прогон.
	var (
		incoming    []model.GameLog
		firstFailed *time.Time
	)
	for _, slice := range s.planFor(window) {
		category := slice.Category
		for _, w := range slice.Windows {
			batch, err := s.deps.Fetcher.FetchGameLogs(ctx, w, category)
			sum.RowsFetched += len(batch.Rows)
			if batch.Empty != "" {
				sum.WindowsEmpty++
			}
			incoming = append(incoming, canonical.GameLogs(batch.Rows, category)...)
			if err == nil {
				continue
			}
			if !errors.Is(err, statsapi.ErrFetchFailed) && !errors.Is(err, statsapi.ErrMalformedPayload) {
				return sum, fmt.Errorf("fetch %s: %w", category, err)
			}
			sum.WindowsFailed++
			failedFrom := w.From
			if batch.FailedFrom != nil {
				failedFrom = *batch.FailedFrom
			}
			if firstFailed == nil || failedFrom.Before(*firstFailed) {
				firstFailed = &failedFrom
			}
			log.Warn().Err(err).Str("category", string(category)).Str("window", w.String()).Int("partial_rows", len(batch.Rows)).Msg("window fetch failed, keeping partial rows")
			// Later parts of this category sit past the cap anyway.
			break
		}
	}
	incoming = dedup.Unique(incoming)

	// 4. Слияние. Полная перезаливка только если все окна пришли целиком.
	mode := repository.ModeMerge
	base := existing
	if opts.FullHistory {
		if sum.WindowsFailed == 0 {
			mode = repository.ModeReplace
			base = nil
		} else {
			log.Warn().Int("windows_failed", sum.WindowsFailed).Msg("full history fetch incomplete, merging instead of replacing")
		}
	}
	merged, inserted := dedup.Merge(base, incoming)
	if n := dedup.CountDuplicates(merged); n > 0 {
		return sum, fmt.Errorf("%w: %d duplicate keys after merge", repository.ErrDuplicateKeyInvariant, n)
	}
	sum.RowsWritten = inserted
	sum.FinalRowCount = len(existing)

	// 5. Запись: склад и файл вместе, файл пишется внутри транзакции склада.
	if len(incoming) > 0 || mode == repository.ModeReplace {
		upsertRows := incoming
		if mode == repository.ModeReplace {
			upsertRows = merged
		}
		var (
			res         repository.UpsertResult
			fileWritten bool
		)
		seeded := s.deps.LogFile.Exists()
		err := s.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			if res, err = s.deps.Games.Upsert(ctx, upsertRows, mode); err != nil {
				return fmt.Errorf("warehouse upsert: %w", err)
			}
			if err := s.deps.LogFile.Write(merged); err != nil {
				return fmt.Errorf("write game log: %w", err)
			}
			fileWritten = true
			return nil
		})
		if err != nil {
			if fileWritten {
				// The commit failed after the new log was swapped in; put the old one back.
				if rerr := s.restoreLog(seeded, existing); rerr != nil {
					log.Error().Err(rerr).Msg("game log restore failed, file is ahead of the warehouse")
				}
			}
			return sum, err
		}
		sum.FinalRowCount = len(merged)
		log.Info().
			Int("rows_fetched", sum.RowsFetched).
			Int("rows_written", sum.RowsWritten).
			Int("warehouse_inserted", res.Inserted).
			Int("warehouse_updated", res.Updated).
			Int("final_rows", sum.FinalRowCount).
			Msg("game logs persisted")
	} else {
		log.Info().Int("final_rows", sum.FinalRowCount).Msg("upstream returned no rows")
	}

	// 6. Водяной знак двигается только после успешной записи.
	next := watermark.Advance(prevMark, store.MaxGameDate(incoming), firstFailed)
	if next != nil && (prevMark == nil || next.After(*prevMark)) {
		if err := s.deps.Watermark.Write(*next); err != nil {
			return sum, fmt.Errorf("write watermark: %w", err)
		}
		log.Info().Str("watermark", next.Format(model.DateLayout)).Msg("watermark advanced")
	}
	if next != nil {
		sum.Watermark = next.Format(model.DateLayout)
	}

	// 7. Детали, разрешение home/away и проверка качества.
	ids := gameIDs(incoming)
	if s.deps.Details != nil && !opts.SkipDetails && len(ids) > 0 {
		rep, err := s.deps.Details.FetchDetails(ctx, ids)
		sum.DetailsFetched += rep.Fetched
		sum.ItemsSkipped += rep.Skipped
		sum.ItemsFailed += rep.Failed
		if err != nil {
			return sum, fmt.Errorf("details: %w", err)
		}
	}
	if s.deps.Resolver != nil && !opts.SkipOverrides {
		if ambiguous := AmbiguousGames(incoming); len(ambiguous) > 0 {
			resolveMode := ResolveNetworkFallback
			if opts.LocalOnly {
				resolveMode = ResolveLocalOnly
			}
			rep, err := s.deps.Resolver.Resolve(ctx, ambiguous, resolveMode)
			sum.OverridesResolved += rep.Resolved()
			sum.ItemsFailed += rep.Failed
			sum.ItemsSkipped += rep.Unresolved - rep.Failed
			if err != nil {
				return sum, fmt.Errorf("overrides: %w", err)
			}
		}
	}
	if s.deps.Quality != nil && !opts.SkipQuality {
		rep, err := s.deps.Quality.Check(ctx)
		sum.QualityFailures = rep.Failures()
		sum.QualityWarnings = rep.Warnings()
		if err != nil {
			return sum, err
		}
	}

	log.Info().
		Int("rows_written", sum.RowsWritten).
		Int("final_rows", sum.FinalRowCount).
		Int("windows_failed", sum.WindowsFailed).
		Int("items_failed", sum.ItemsFailed).
		Msg("sync finished")
	return sum, nil
}

// restoreLog rewinds the log file to what the run started from.
func (s *SyncService) restoreLog(seeded bool, rows []model.GameLog) error {
	if !seeded {
		return s.deps.LogFile.Remove()
	}
	return s.deps.LogFile.Write(rows)
}

// storeMax is the later of the log file max and the warehouse max.
func (s *SyncService) storeMax(ctx context.Context, existing []model.GameLog) (*time.Time, error) {
	latest := store.MaxGameDate(existing)
	if s.deps.Games == nil {
		return latest, nil
	}
	wh, err := s.deps.Games.MaxGameDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("warehouse max game date: %w", err)
	}
	if wh != nil && (latest == nil || wh.After(*latest)) {
		latest = wh
	}
	return latest, nil
}

// planFor returns what to request for w. Configured categories cover the whole window; otherwise
// the calendar picks each category's plausible months. A window the calendar has no category for
// (mid-summer) still probes the default one.
func (s *SyncService) planFor(w model.Window) []season.Slice {
	if len(s.categories) > 0 {
		out := make([]season.Slice, 0, len(s.categories))
		for _, c := range s.categories {
			out = append(out, season.Slice{Category: c, Windows: []model.Window{w}})
		}
		return out
	}
	if plan := season.Plan(w); len(plan) > 0 {
		return plan
	}
	return []season.Slice{{Category: s.fallback, Windows: []model.Window{w}}}
}

func runMode(opts SyncOptions) string {
	switch {
	case opts.Start != nil:
		return ModeExplicit
	case opts.FullHistory:
		return ModeFullHistory
	default:
		return ModeIncremental
	}
}

