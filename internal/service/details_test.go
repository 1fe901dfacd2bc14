package service_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/gamelog-sync/internal/config"
	"github.com/maxviazov/gamelog-sync/internal/model"
	"github.com/maxviazov/gamelog-sync/internal/repository"
	"github.com/maxviazov/gamelog-sync/internal/repository/memory"
	"github.com/maxviazov/gamelog-sync/internal/retry"
	"github.com/maxviazov/gamelog-sync/internal/service"
	"github.com/maxviazov/gamelog-sync/internal/statsapi"
)

// detailUpstream answers box score and play-by-play calls for any game id.
// transient scripts statuses per "endpoint/gameID"; broken games always answer 500.
type detailUpstream struct {
	mu        sync.Mutex
	transient map[string][]int
	broken    map[string]bool
	repeated  map[string]bool
	calls     map[string]int
}

func newDetailUpstream() *detailUpstream {
	return &detailUpstream{transient: map[string][]int{}, broken: map[string]bool{}, repeated: map[string]bool{}, calls: map[string]int{}}
}

func (u *detailUpstream) router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/stats/:endpoint", func(c *gin.Context) {
		endpoint, gameID := c.Param("endpoint"), c.Query("GameID")
		key := endpoint + "/" + gameID

		u.mu.Lock()
		u.calls[key]++
		var status int
		if pending := u.transient[key]; len(pending) > 0 {
			status, u.transient[key] = pending[0], pending[1:]
		}
		if u.broken[gameID] {
			status = http.StatusInternalServerError
		}
		u.mu.Unlock()

		if status != 0 {
			c.String(status, "scripted failure")
			return
		}
		switch endpoint {
		case "boxscoretraditionalv2":
			c.JSON(http.StatusOK, gin.H{"resultSets": []gin.H{
				{"name": "PlayerStats", "headers": []string{"GAME_ID", "TEAM_ID", "PLAYER_ID", "PLAYER_NAME", "MIN", "PTS"},
					"rowSet": [][]any{{gameID, 1610612738, 1628369, "Jayson Tatum", "36:10", 31}}},
				{"name": "TeamStats", "headers": []string{"GAME_ID", "TEAM_ID", "TEAM_ABBREVIATION", "PTS"},
					"rowSet": [][]any{{gameID, 1610612738, "BOS", 108}, {gameID, 1610612748, "MIA", 100}}},
			}})
		case "playbyplayv2":
			events := [][]any{{gameID, 1, 12, 1, "12:00"}, {gameID, 2, 10, 1, "12:00"}}
			u.mu.Lock()
			if u.repeated[gameID] {
				events = append(events, []any{gameID, 2, 1, 1, "11:41"})
			}
			u.mu.Unlock()
			c.JSON(http.StatusOK, gin.H{"resultSets": []gin.H{{
				"name":    "PlayByPlay",
				"headers": []string{"GAME_ID", "EVENTNUM", "EVENTMSGTYPE", "PERIOD", "PCTIMESTRING"},
				"rowSet":  events,
			}}})
		default:
			c.Status(http.StatusNotFound)
		}
	})
	return r
}

func (u *detailUpstream) callCount(endpoint, gameID string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls[endpoint+"/"+pad(gameID)]
}

// keyedDetails rejects a play-by-play batch that repeats (game, event) like a keyed table would.
type keyedDetails struct {
	repository.DetailRepository
	writes int
}

func (k *keyedDetails) ReplacePlayByPlay(ctx context.Context, gameIDs []string, rows []model.PlayByPlay) error {
	k.writes++
	seen := map[string]bool{}
	for _, e := range rows {
		key := fmt.Sprintf("%s/%d", e.GameID, e.EventNum)
		if seen[key] {
			return fmt.Errorf("duplicate event %s", key)
		}
		seen[key] = true
	}
	return k.DetailRepository.ReplacePlayByPlay(ctx, gameIDs, rows)
}

func newDetailHarness(t *testing.T) (*detailUpstream, *memory.Store, *service.DetailService) {
	t.Helper()
	up, mem, client := newDetailClient(t)
	svc := service.NewDetailService(client, mem.Details(), mem, config.DetailsConfig{Enabled: true, Workers: 3}, zerolog.Nop())
	return up, mem, svc
}

func newDetailClient(t *testing.T) (*detailUpstream, *memory.Store, *statsapi.Client) {
	t.Helper()
	up := newDetailUpstream()
	srv := httptest.NewServer(up.router())
	t.Cleanup(srv.Close)

	policy := retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
	client, err := statsapi.New(config.SourceConfig{
		BaseURL:      srv.URL + "/stats",
		Timeout:      5 * time.Second,
		Epoch:        "1946-11-01",
		MaxBodyBytes: 1 << 20,
	}, policy, zerolog.Nop(),
		statsapi.WithHTTPClient(srv.Client()),
		statsapi.WithSleeper(func(context.Context, time.Duration) {}),
	)
	require.NoError(t, err)
	return up, memory.New(), client
}

func TestFetchDetails_IsolatesFailures(t *testing.T) {
	up, mem, svc := newDetailHarness(t)
	// 22300002 fails twice on each endpoint, then recovers; 22300003 never answers.
	up.transient["boxscoretraditionalv2/"+pad("22300002")] = []int{http.StatusServiceUnavailable, http.StatusBadGateway}
	up.transient["playbyplayv2/"+pad("22300002")] = []int{http.StatusTooManyRequests, http.StatusServiceUnavailable}
	up.broken[pad("22300003")] = true

	ids := []string{"22300001", "0022300002", "22300003"}
	rep, err := svc.FetchDetails(context.Background(), ids)
	require.NoError(t, err, "per-game failures must not fail the call")

	assert.Equal(t, 6, rep.Requested)
	assert.Equal(t, 4, rep.Fetched)
	assert.Equal(t, 2, rep.Failed)
	assert.Zero(t, rep.Skipped)
	assert.Equal(t, 3, up.callCount("boxscoretraditionalv2", "22300002"))
	assert.Equal(t, 3, up.callCount("boxscoretraditionalv2", "22300003"))

	for _, kind := range []repository.DetailKind{repository.DetailBoxScore, repository.DetailPlayByPlay} {
		present, err := mem.Details().ExistingGameIDs(context.Background(), kind, []string{"22300001", "22300002", "22300003"})
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"22300001": true, "22300002": true}, present, kind)
	}
}

func TestFetchDetails_SkipsPresentKindsIndependently(t *testing.T) {
	up, mem, svc := newDetailHarness(t)
	err := mem.Details().ReplaceBoxScores(context.Background(), []string{"22300001"}, model.BoxScore{
		Teams: []model.BoxScoreTeam{{GameID: "22300001", TeamID: "1610612738"}},
	})
	require.NoError(t, err)

	rep, err := svc.FetchDetails(context.Background(), []string{"22300001"})
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Skipped)
	assert.Equal(t, 1, rep.Fetched)
	assert.Zero(t, up.callCount("boxscoretraditionalv2", "22300001"))
	assert.Equal(t, 1, up.callCount("playbyplayv2", "22300001"))

	present, err := mem.Details().ExistingGameIDs(context.Background(), repository.DetailPlayByPlay, []string{"22300001"})
	require.NoError(t, err)
	assert.True(t, present["22300001"])
}

func TestFetchDetails_SecondPassOnlyRetriesMissing(t *testing.T) {
	up, _, svc := newDetailHarness(t)
	up.broken[pad("22300003")] = true

	_, err := svc.FetchDetails(context.Background(), []string{"22300001", "22300003"})
	require.NoError(t, err)

	rep, err := svc.FetchDetails(context.Background(), []string{"22300001", "22300003"})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Skipped)
	assert.Equal(t, 2, rep.Failed)
	assert.Equal(t, 1, up.callCount("playbyplayv2", "22300001"))
}

func TestFetchDetails_EmptyInput(t *testing.T) {
	_, _, svc := newDetailHarness(t)
	rep, err := svc.FetchDetails(context.Background(), []string{"", "  "})
	require.NoError(t, err)
	assert.Equal(t, service.DetailReport{}, rep)
}

func TestFetchDetails_BadWriteOnlyCostsItsGame(t *testing.T) {
	up, mem, client := newDetailClient(t)
	up.repeated[pad("22300004")] = true
	repo := &keyedDetails{DetailRepository: mem.Details()}
	svc := service.NewDetailService(client, repo, mem, config.DetailsConfig{Enabled: true, Workers: 3}, zerolog.Nop())

	rep, err := svc.FetchDetails(context.Background(), []string{"22300001", "22300004", "22300005"})
	require.NoError(t, err, "one game that cannot be stored must not fail the call")

	assert.Equal(t, 6, rep.Requested)
	assert.Equal(t, 4, rep.Fetched)
	assert.Equal(t, 2, rep.Failed)
	assert.Equal(t, 4, repo.writes, "one batched attempt, then one per game")

	box, err := mem.Details().ExistingGameIDs(context.Background(), repository.DetailBoxScore, []string{"22300001", "22300004", "22300005"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"22300001": true, "22300005": true}, box, "the rejected game is written as a whole or not at all")

	pbp, err := mem.Details().ExistingGameIDs(context.Background(), repository.DetailPlayByPlay, []string{"22300001", "22300004", "22300005"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"22300001": true, "22300005": true}, pbp)
}
