package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/gamelog-sync/internal/config"
	"github.com/maxviazov/gamelog-sync/internal/model"
	"github.com/maxviazov/gamelog-sync/internal/repository"
	"github.com/maxviazov/gamelog-sync/internal/repository/memory"
	"github.com/maxviazov/gamelog-sync/internal/service"
)

// countingOverrides records the size of every flush before delegating.
type countingOverrides struct {
	repository.OverrideRepository
	mu      sync.Mutex
	flushes []int
}

func (c *countingOverrides) Upsert(ctx context.Context, list []model.HomeAwayOverride) error {
	c.mu.Lock()
	c.flushes = append(c.flushes, len(list))
	c.mu.Unlock()
	return c.OverrideRepository.Upsert(ctx, list)
}

type resolverHarness struct {
	mem       *memory.Store
	overrides *countingOverrides
	summaries *fakeSummaries
	svc       *service.ResolverService
}

func newResolverHarness(t *testing.T, flushEvery int) *resolverHarness {
	t.Helper()
	mem := memory.New()
	h := &resolverHarness{
		mem:       mem,
		overrides: &countingOverrides{OverrideRepository: mem.Overrides()},
		summaries: newFakeSummaries(),
	}
	h.svc = service.NewResolverService(mem.GameLogs(), h.overrides, h.summaries, config.OverridesConfig{
		Enabled:    true,
		Workers:    3,
		FlushEvery: flushEvery,
	}, zerolog.Nop())
	return h
}

func (h *resolverHarness) seed(t *testing.T, rows ...model.GameLog) {
	t.Helper()
	_, err := h.mem.GameLogs().Upsert(context.Background(), rows, repository.ModeMerge)
	require.NoError(t, err)
}

func (h *resolverHarness) stored(t *testing.T) map[string]model.HomeAwayOverride {
	t.Helper()
	list, err := h.mem.Overrides().List(context.Background())
	require.NoError(t, err)
	out := make(map[string]model.HomeAwayOverride, len(list))
	for _, o := range list {
		out[o.GameID] = o
	}
	return out
}

// ambiguousPair is the broken shape the feed sometimes ships: both teams "@".
func ambiguousPair(gameID, date string) []model.GameLog {
	return []model.GameLog{
		logRow(gameID, "1610612738", date, "BOS @ MIA", "W", "22022"),
		logRow(gameID, "1610612748", date, "MIA @ BOS", "L", "22022"),
	}
}

func TestResolve_LocalFirst(t *testing.T) {
	h := newResolverHarness(t, 25)
	// One row knows it is home, the other carries no matchup at all.
	home := logRow("22200010", "1610612738", "2022-10-20", "BOS vs. MIA", "W", "22022")
	other := logRow("22200010", "1610612748", "2022-10-20", "", "L", "22022")
	h.seed(t, home, other)

	rep, err := h.svc.Resolve(context.Background(), []string{"0022200010"}, service.ResolveNetworkFallback)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Local)
	assert.Zero(t, rep.Network)
	assert.Zero(t, h.summaries.total(), "local resolution must not hit the network")

	o := h.stored(t)["22200010"]
	assert.Equal(t, "1610612738", o.TeamIDHome)
	assert.Equal(t, "1610612748", o.TeamIDAway)
	assert.Equal(t, model.OverrideSourceLocal, o.Source)
	require.NotNil(t, o.Season)
	assert.Equal(t, 2022, *o.Season)
}

func TestResolve_NetworkFallbackIsolatesFailures(t *testing.T) {
	h := newResolverHarness(t, 25)
	h.seed(t, ambiguousPair("22200020", "2022-10-21")...)
	h.seed(t, ambiguousPair("22200021", "2022-10-21")...)
	h.summaries.add("22200020", "1610612748", "1610612738", "2022-10-21")
	// 22200021 has no summary and fails.

	rep, err := h.svc.Resolve(context.Background(), []string{"22200020", "22200021"}, service.ResolveNetworkFallback)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Network)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 1, rep.Unresolved)

	stored := h.stored(t)
	require.Contains(t, stored, "22200020")
	assert.NotContains(t, stored, "22200021")
	o := stored["22200020"]
	assert.Equal(t, "1610612748", o.TeamIDHome)
	assert.Equal(t, model.OverrideSourceNetwork, o.Source)
	require.NotNil(t, o.GameDate)
	assert.Equal(t, day("2022-10-21"), *o.GameDate)
}

func TestResolve_FlushesInBatches(t *testing.T) {
	h := newResolverHarness(t, 2)
	ids := []string{"22200031", "22200032", "22200033", "22200034", "22200035"}
	for _, id := range ids {
		h.seed(t, ambiguousPair(id, "2022-10-22")...)
		h.summaries.add(id, "1610612738", "1610612748", "2022-10-22")
	}

	rep, err := h.svc.Resolve(context.Background(), ids, service.ResolveNetworkFallback)
	require.NoError(t, err)

	assert.Equal(t, 5, rep.Network)
	assert.Equal(t, []int{2, 2, 1}, h.overrides.flushes)
	assert.Len(t, h.stored(t), 5)
}

func TestResolve_LocalOnlySkipsNetwork(t *testing.T) {
	h := newResolverHarness(t, 25)
	h.seed(t, ambiguousPair("22200040", "2022-10-23")...)
	h.summaries.add("22200040", "1610612738", "1610612748", "2022-10-23")

	rep, err := h.svc.Resolve(context.Background(), []string{"22200040"}, service.ResolveLocalOnly)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Unresolved)
	assert.Zero(t, rep.Resolved())
	assert.Zero(t, h.summaries.total())
	assert.Empty(t, h.stored(t))
}

func TestResolve_DryRunStoresNothing(t *testing.T) {
	h := newResolverHarness(t, 25)
	h.seed(t, ambiguousPair("22200050", "2022-10-23")...)
	h.summaries.add("22200050", "1610612738", "1610612748", "2022-10-23")
	h.svc.DryRun = true

	rep, err := h.svc.Resolve(context.Background(), []string{"22200050"}, service.ResolveNetworkFallback)
	require.NoError(t, err)

	assert.True(t, rep.DryRun)
	assert.Equal(t, 1, rep.Network)
	assert.Empty(t, h.stored(t))
	assert.Empty(t, h.overrides.flushes)
}

func TestResolve_CancelledContext(t *testing.T) {
	h := newResolverHarness(t, 25)
	h.seed(t, ambiguousPair("22200060", "2022-10-23")...)
	h.summaries.add("22200060", "1610612738", "1610612748", "2022-10-23")

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	cancel()
	_, err := h.svc.Resolve(ctx, []string{"22200060"}, service.ResolveNetworkFallback)
	require.Error(t, err)
	assert.Empty(t, h.stored(t))
}

func TestDiscover_ListsAmbiguousGamesWithoutOverride(t *testing.T) {
	h := newResolverHarness(t, 25)
	h.seed(t, seedPair()...)
	h.seed(t, ambiguousPair("22200070", "2022-10-24")...)
	h.seed(t, ambiguousPair("22200071", "2022-10-24")...)
	require.NoError(t, h.mem.Overrides().Upsert(context.Background(), []model.HomeAwayOverride{{
		GameID: "22200071", TeamIDHome: "1610612748", TeamIDAway: "1610612738", Source: model.OverrideSourceNetwork,
	}}))

	ids, err := h.svc.Discover(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"22200070"}, ids)
}

func TestAmbiguousGames(t *testing.T) {
	rows := append(seedPair(), ambiguousPair("22200080", "2022-10-25")...)
	rows = append(rows, logRow("22200081", "1610612738", "2022-10-25", "BOS @ MIA", "W", "22022"))

	assert.Equal(t, []string{"22200080"}, service.AmbiguousGames(rows))
}
