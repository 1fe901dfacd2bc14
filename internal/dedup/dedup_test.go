package dedup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/gamelog-sync/internal/dedup"
	"github.com/maxviazov/gamelog-sync/internal/model"
)

func row(game, team, wl string) model.GameLog {
	return model.GameLog{GameID: game, TeamID: team, WL: wl, SeasonType: model.SeasonTypeRegular}
}

func TestMerge_AppendsNewKeys(t *testing.T) {
	existing := []model.GameLog{row("22200001", "1610612737", "W")}
	incoming := []model.GameLog{row("22300001", "1610612738", "W"), row("22300001", "1610612760", "L")}

	merged, inserted := dedup.Merge(existing, incoming)
	assert.Equal(t, 2, inserted)
	require.Len(t, merged, 3)
	assert.Equal(t, "22200001", merged[0].GameID)
	assert.Equal(t, "1610612760", merged[2].TeamID)
}

func TestMerge_IncomingReplacesInPlace(t *testing.T) {
	existing := []model.GameLog{row("1", "10", "L"), row("2", "20", "W")}
	incoming := []model.GameLog{row("0001", "010", "W")}

	merged, inserted := dedup.Merge(existing, incoming)
	assert.Zero(t, inserted)
	require.Len(t, merged, 2)
	assert.Equal(t, "W", merged[0].WL, "most recent fetch wins")
	assert.Equal(t, "1", merged[0].GameID, "ids come out canonical")
}

func TestMerge_SeasonTypeIsPartOfKey(t *testing.T) {
	existing := []model.GameLog{row("1", "10", "W")}
	playoff := row("1", "10", "W")
	playoff.SeasonType = model.SeasonTypePlayoffs

	merged, inserted := dedup.Merge(existing, []model.GameLog{playoff})
	assert.Equal(t, 1, inserted)
	assert.Len(t, merged, 2)
}

func TestMerge_ExistingDuplicatesCollapse(t *testing.T) {
	existing := []model.GameLog{row("1", "10", "L"), row("01", "10", "W")}
	merged, inserted := dedup.Merge(existing, nil)
	assert.Zero(t, inserted)
	require.Len(t, merged, 1)
	assert.Equal(t, "W", merged[0].WL)
}

func TestMerge_Idempotent(t *testing.T) {
	existing := []model.GameLog{row("1", "10", "W"), row("1", "20", "L")}
	incoming := []model.GameLog{row("2", "10", "L"), row("2", "30", "W")}

	once, _ := dedup.Merge(existing, incoming)
	twice, inserted := dedup.Merge(once, incoming)
	assert.Zero(t, inserted)
	assert.Equal(t, once, twice)
	assert.Zero(t, dedup.CountDuplicates(twice))
}

func TestCountDuplicates(t *testing.T) {
	rows := []model.GameLog{row("1", "10", "W"), row("001", "10", "W"), row("1", "20", "L")}
	assert.Equal(t, 1, dedup.CountDuplicates(rows))
	assert.Len(t, dedup.Unique(rows), 2)
}
