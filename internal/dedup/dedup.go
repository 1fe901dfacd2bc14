// Package dedup reconciles fetched game logs against what is already stored.
package dedup

import (
	"github.com/maxviazov/gamelog-sync/internal/canonical"
	"github.com/maxviazov/gamelog-sync/internal/model"
)

// Key builds the comparison key with ids normalized, so "0022300001" and "22300001" collide.
func Key(g model.GameLog) model.GameLogKey {
	return model.GameLogKey{
		GameID:     canonical.NormalizeID(g.GameID),
		TeamID:     canonical.NormalizeID(g.TeamID),
		SeasonType: g.SeasonType,
	}
}

// Unique collapses rows sharing a key. The last occurrence wins but keeps the slot of the first.
func Unique(rows []model.GameLog) []model.GameLog {
	merged, _ := merge(nil, rows)
	return merged
}

// Merge overlays incoming on existing. Rows with a known key replace the stored row in place,
// new keys are appended in arrival order. inserted counts keys that were not present before.
func Merge(existing, incoming []model.GameLog) (merged []model.GameLog, inserted int) {
	return merge(existing, incoming)
}

func merge(existing, incoming []model.GameLog) ([]model.GameLog, int) {
	index := make(map[model.GameLogKey]int, len(existing)+len(incoming))
	out := make([]model.GameLog, 0, len(existing)+len(incoming))

	put := func(g model.GameLog) bool {
		k := Key(g)
		g.GameID, g.TeamID = k.GameID, k.TeamID
		if i, ok := index[k]; ok {
			out[i] = g
			return false
		}
		index[k] = len(out)
		out = append(out, g)
		return true
	}

	for _, g := range existing {
		put(g)
	}
	inserted := 0
	for _, g := range incoming {
		if put(g) {
			inserted++
		}
	}
	return out, inserted
}

// CountDuplicates reports how many rows share a key with an earlier row. Zero is the invariant.
func CountDuplicates(rows []model.GameLog) int {
	seen := make(map[model.GameLogKey]struct{}, len(rows))
	dups := 0
	for _, g := range rows {
		k := Key(g)
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	return dups
}
