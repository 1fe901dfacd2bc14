package statsapi

import (
	"context"
	"fmt"
	"net/url"

	"github.com/maxviazov/gamelog-sync/internal/model"
)

const (
	endpointBoxScore   = "boxscoretraditionalv2"
	endpointPlayByPlay = "playbyplayv2"
	endpointSummary    = "boxscoresummaryv2"
)

// BoxScoreSets holds the two raw tables of a traditional box score.
type BoxScoreSets struct {
	Teams   []model.RawRow
	Players []model.RawRow
}

// FetchBoxScore returns raw team and player rows for one game.
func (c *Client) FetchBoxScore(ctx context.Context, gameID string) (BoxScoreSets, error) {
	env, err := c.get(ctx, endpointBoxScore, boxScoreParams(gameID))
	if err != nil {
		return BoxScoreSets{}, fmt.Errorf("box score %s: %w", gameID, err)
	}
	teams, err := env.set("TeamStats")
	if err != nil {
		return BoxScoreSets{}, fmt.Errorf("box score %s: %w", gameID, err)
	}
	players, err := env.set("PlayerStats")
	if err != nil {
		return BoxScoreSets{}, fmt.Errorf("box score %s: %w", gameID, err)
	}
	return BoxScoreSets{Teams: teams.Rows(), Players: players.Rows()}, nil
}

// FetchPlayByPlay returns the raw timeline rows for one game.
func (c *Client) FetchPlayByPlay(ctx context.Context, gameID string) ([]model.RawRow, error) {
	q := url.Values{}
	q.Set("GameID", padGameID(gameID))
	q.Set("StartPeriod", "0")
	q.Set("EndPeriod", "14")
	env, err := c.get(ctx, endpointPlayByPlay, q)
	if err != nil {
		return nil, fmt.Errorf("play by play %s: %w", gameID, err)
	}
	set, err := env.set("PlayByPlay")
	if err != nil {
		return nil, fmt.Errorf("play by play %s: %w", gameID, err)
	}
	return set.Rows(), nil
}

// FetchGameSummary returns the single GameSummary row for one game.
func (c *Client) FetchGameSummary(ctx context.Context, gameID string) (model.RawRow, error) {
	q := url.Values{}
	q.Set("GameID", padGameID(gameID))
	env, err := c.get(ctx, endpointSummary, q)
	if err != nil {
		return nil, fmt.Errorf("game summary %s: %w", gameID, err)
	}
	set, err := env.set("GameSummary")
	if err != nil {
		return nil, fmt.Errorf("game summary %s: %w", gameID, err)
	}
	rows := set.Rows()
	if len(rows) == 0 {
		return nil, fmt.Errorf("game summary %s: %w: empty GameSummary", gameID, ErrMalformedPayload)
	}
	return rows[0], nil
}

func boxScoreParams(gameID string) url.Values {
	q := url.Values{}
	q.Set("GameID", padGameID(gameID))
	q.Set("StartPeriod", "0")
	q.Set("EndPeriod", "14")
	q.Set("StartRange", "0")
	q.Set("EndRange", "0")
	q.Set("RangeType", "0")
	return q
}

// padGameID restores the 10-digit form the API wants; ids are stored without leading zeros.
func padGameID(id string) string {
	const width = 10
	for len(id) < width {
		id = "0" + id
	}
	return id
}
