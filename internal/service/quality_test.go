package service_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/gamelog-sync/internal/config"
	"github.com/maxviazov/gamelog-sync/internal/model"
	"github.com/maxviazov/gamelog-sync/internal/quality"
	"github.com/maxviazov/gamelog-sync/internal/repository"
	"github.com/maxviazov/gamelog-sync/internal/repository/memory"
	"github.com/maxviazov/gamelog-sync/internal/service"
)

func resultByName(rep quality.Report, name string) quality.Result {
	for _, r := range rep.Results {
		if r.Name == name {
			return r
		}
	}
	return quality.Result{}
}

func TestQualityCheck(t *testing.T) {
	tests := []struct {
		name      string
		rows      []model.GameLog
		overrides []model.HomeAwayOverride
		cfg       config.QualityConfig
		wantGate  string
		wantWarn  int
	}{
		{
			name: "clean modern game passes",
			rows: seedPair(),
		},
		{
			name:     "modern home/away imbalance fails",
			rows:     ambiguousPair("22200090", "2022-11-01"),
			wantGate: quality.CheckHomeAway,
		},
		{
			name: "override settles the imbalance",
			rows: ambiguousPair("22200091", "2022-11-01"),
			overrides: []model.HomeAwayOverride{{
				GameID: "22200091", TeamIDHome: "1610612748", TeamIDAway: "1610612738", Source: model.OverrideSourceNetwork,
			}},
		},
		{
			name: "legacy imbalance only warns",
			rows: []model.GameLog{
				logRow("29600001", "1610612738", "1996-11-01", "BOS @ MIA", "W", "21996"),
				logRow("29600001", "1610612748", "1996-11-01", "MIA @ BOS", "L", "21996"),
			},
			wantWarn: 1,
		},
		{
			name: "team outside the franchise list fails",
			rows: []model.GameLog{
				logRow("12200001", "1610612738", "2022-10-02", "BOS vs. RMD", "W", "12022"),
				logRow("12200001", "50009", "2022-10-02", "RMD @ BOS", "L", "12022"),
			},
			wantGate: quality.CheckTeams,
		},
		{
			name: "configured team dimension admits the guest",
			rows: []model.GameLog{
				logRow("12200002", "1610612738", "2022-10-03", "BOS vs. RMD", "W", "12022"),
				logRow("12200002", "50009", "2022-10-03", "RMD @ BOS", "L", "12022"),
			},
			cfg: config.QualityConfig{KnownTeamIDs: []string{"1610612738", "0050009"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := memory.New()
			_, err := mem.GameLogs().Upsert(context.Background(), tt.rows, repository.ModeMerge)
			require.NoError(t, err)
			require.NoError(t, mem.Overrides().Upsert(context.Background(), tt.overrides))

			cfg := tt.cfg
			cfg.Enabled, cfg.ModernStartYear = true, 2010
			svc := service.NewQualityService(mem.GameLogs(), mem.Overrides(), cfg, zerolog.Nop())
			rep, err := svc.Check(context.Background())
			if tt.wantGate != "" {
				require.ErrorIs(t, err, service.ErrQualityGate)
				assert.Equal(t, 1, resultByName(rep, tt.wantGate).Failures)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantWarn, rep.Warnings())
			assert.Equal(t, len(tt.rows), rep.RowsChecked)
		})
	}
}
