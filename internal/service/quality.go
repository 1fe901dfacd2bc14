package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/maxviazov/gamelog-sync/internal/canonical"
	"github.com/maxviazov/gamelog-sync/internal/config"
	"github.com/maxviazov/gamelog-sync/internal/model"
	"github.com/maxviazov/gamelog-sync/internal/quality"
	"github.com/maxviazov/gamelog-sync/internal/repository"
)

type QualityService struct {
	games     repository.GameLogRepository
	overrides repository.OverrideRepository
	rules     quality.Rules
	log       zerolog.Logger
}

func NewQualityService(games repository.GameLogRepository, overrides repository.OverrideRepository, cfg config.QualityConfig, logger zerolog.Logger) *QualityService {
	l := logger.With().Str("module", "service").Str("component", "quality").Logger()
	teamIDs := cfg.KnownTeamIDs
	if len(teamIDs) == 0 {
		teamIDs = quality.FranchiseTeamIDs()
	}
	known := make(map[string]bool, len(teamIDs))
	for _, id := range teamIDs {
		known[canonical.NormalizeID(id)] = true
	}
	rules := quality.Rules{ModernStartYear: cfg.ModernStartYear, KnownTeams: known}
	return &QualityService{games: games, overrides: overrides, rules: rules, log: l}
}

// Check evaluates the warehouse game log. The report is always returned; the error wraps
// ErrQualityGate when a modern season breaks a must-pass check.
func (s *QualityService) Check(ctx context.Context) (quality.Report, error) {
	rows, err := s.games.List(ctx)
	if err != nil {
		return quality.Report{}, fmt.Errorf("load game logs: %w", err)
	}
	list, err := s.overrides.List(ctx)
	if err != nil {
		return quality.Report{}, fmt.Errorf("load overrides: %w", err)
	}
	byGame := make(map[string]model.HomeAwayOverride, len(list))
	for _, o := range list {
		byGame[o.GameID] = o
	}

	rep := quality.Evaluate(rows, byGame, s.rules)
	for _, res := range rep.Results {
		if res.Failures == 0 && res.Warnings == 0 {
			continue
		}
		ev := s.log.Warn()
		if res.Failures > 0 {
			ev = s.log.Error()
		}
		ev.Str("check", res.Name).
			Int("failures", res.Failures).
			Int("warnings", res.Warnings).
			Strs("samples", res.Samples).
			Msg("quality check reported violations")
	}
	if !rep.Passed() {
		return rep, fmt.Errorf("%w: %s", ErrQualityGate, strings.Join(rep.Summary(), ", "))
	}
	s.log.Info().Int("rows", rep.RowsChecked).Int("warnings", rep.Warnings()).Msg("quality gate passed")
	return rep, nil
}
