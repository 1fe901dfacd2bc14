// Package model contains domain entities shared across layers.
// I keep it lean and focused on data shapes; the only behavior here is key and date helpers.
package model

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date layout used in files, flags and the watermark.
const DateLayout = "2006-01-02"

// SeasonType is the event category. Values are the canonical labels the stats API accepts.
type SeasonType string

const (
	SeasonTypeRegular    SeasonType = "Regular Season"
	SeasonTypePlayoffs   SeasonType = "Playoffs"
	SeasonTypePreSeason  SeasonType = "Pre Season"
	SeasonTypePlayIn     SeasonType = "PlayIn"
	SeasonTypeTournament SeasonType = "In Season Tournament"
)

// AllSeasonTypes lists canonical categories in query order.
var AllSeasonTypes = []SeasonType{
	SeasonTypeRegular,
	SeasonTypePlayoffs,
	SeasonTypePreSeason,
	SeasonTypePlayIn,
	SeasonTypeTournament,
}

// RawRow is one upstream table row keyed by the header names exactly as the source sent them.
// It only lives until canonicalization.
type RawRow map[string]any

// GameLog is one team's line for one game (one participant row per event).
// Identifier fields are canonical strings: trimmed, no leading zeros.
type GameLog struct {
	SeasonID         string     `json:"season_id"`
	TeamID           string     `json:"team_id"`
	TeamAbbreviation string     `json:"team_abbreviation"`
	TeamName         string     `json:"team_name"`
	GameID           string     `json:"game_id"`
	GameDate         *time.Time `json:"game_date"`
	Matchup          string     `json:"matchup"`
	WL               string     `json:"wl"`
	IsHome           *bool      `json:"is_home"`
	SeasonType       SeasonType `json:"season_type"`
	Stats            Stats      `json:"stats"`
}

// Stats is the fixed statistics block of a game log row. Nil means the source did not report it.
type Stats struct {
	Min       *float64 `json:"min"`
	FGM       *float64 `json:"fgm"`
	FGA       *float64 `json:"fga"`
	FGPct     *float64 `json:"fg_pct"`
	FG3M      *float64 `json:"fg3m"`
	FG3A      *float64 `json:"fg3a"`
	FG3Pct    *float64 `json:"fg3_pct"`
	FTM       *float64 `json:"ftm"`
	FTA       *float64 `json:"fta"`
	FTPct     *float64 `json:"ft_pct"`
	OREB      *float64 `json:"oreb"`
	DREB      *float64 `json:"dreb"`
	REB       *float64 `json:"reb"`
	AST       *float64 `json:"ast"`
	STL       *float64 `json:"stl"`
	BLK       *float64 `json:"blk"`
	TOV       *float64 `json:"tov"`
	PF        *float64 `json:"pf"`
	PTS       *float64 `json:"pts"`
	PlusMinus *float64 `json:"plus_minus"`
}

// GameLogKey is the composite uniqueness key of a GameLog.
type GameLogKey struct {
	GameID     string
	TeamID     string
	SeasonType SeasonType
}

// Key returns the row's composite key. Callers must canonicalize ids first.
func (g GameLog) Key() GameLogKey {
	return GameLogKey{GameID: g.GameID, TeamID: g.TeamID, SeasonType: g.SeasonType}
}

func (k GameLogKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.GameID, k.TeamID, k.SeasonType)
}

// Window is an inclusive calendar date range.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Empty reports whether the window contains no days.
func (w Window) Empty() bool { return w.From.After(w.To) }

func (w Window) String() string {
	return w.From.Format(DateLayout) + ".." + w.To.Format(DateLayout)
}

// Day truncates t to a UTC calendar date, dropping the clock and the zone.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay parses an ISO date into a UTC calendar date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// BoxScoreTeam is the team-level traditional box score for one game.
type BoxScoreTeam struct {
	GameID           string `json:"game_id"`
	TeamID           string `json:"team_id"`
	TeamAbbreviation string `json:"team_abbreviation"`
	TeamName         string `json:"team_name"`
	Stats            Stats  `json:"stats"`
}

// BoxScorePlayer is one player's traditional box score line for one game.
type BoxScorePlayer struct {
	GameID     string `json:"game_id"`
	TeamID     string `json:"team_id"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	StartPos   string `json:"start_position"`
	Minutes    string `json:"minutes"`
	Stats      Stats  `json:"stats"`
	Comment    string `json:"comment"`
}

// PlayByPlay is one timeline entry for one game.
type PlayByPlay struct {
	GameID              string `json:"game_id"`
	EventNum            int    `json:"event_num"`
	EventMsgType        int    `json:"event_msg_type"`
	Period              int    `json:"period"`
	PCTimeString        string `json:"pc_time_string"`
	HomeDescription     string `json:"home_description"`
	VisitorDescription  string `json:"visitor_description"`
	NeutralDescription  string `json:"neutral_description"`
	Score               string `json:"score"`
	Player1ID           string `json:"player1_id"`
	Player1TeamID       string `json:"player1_team_id"`
	WallClockTimeString string `json:"wc_time_string"`
}

// BoxScore bundles both tables returned by one box score call.
type BoxScore struct {
	Teams   []BoxScoreTeam
	Players []BoxScorePlayer
}

// GameSummary is the subset of the game summary endpoint used for home/away resolution.
type GameSummary struct {
	GameID     string
	GameDate   *time.Time
	Season     *int
	HomeTeamID string
	AwayTeamID string
}

// Override provenance tags.
const (
	OverrideSourceLocal   = "local"
	OverrideSourceNetwork = "nba_api_boxscoresummaryv2"
)

// HomeAwayOverride is a resolved home/away assignment for one game.
type HomeAwayOverride struct {
	GameID     string     `json:"game_id"`
	GameDate   *time.Time `json:"game_date"`
	Season     *int       `json:"season"`
	TeamIDHome string     `json:"team_id_home"`
	TeamIDAway string     `json:"team_id_away"`
	Source     string     `json:"source"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// RunSummary is the machine-readable outcome of one sync run.
type RunSummary struct {
	RunID             string `json:"run_id"`
	Mode              string `json:"mode"`
	WindowStart       string `json:"window_start,omitempty"`
	WindowEnd         string `json:"window_end,omitempty"`
	NoWorkNeeded      bool   `json:"no_work_needed"`
	RowsFetched       int    `json:"rows_fetched"`
	RowsWritten       int    `json:"rows_written"`
	FinalRowCount     int    `json:"final_row_count"`
	WindowsEmpty      int    `json:"windows_empty"`
	WindowsFailed     int    `json:"windows_failed"`
	DetailsFetched    int    `json:"details_fetched"`
	ItemsSkipped      int    `json:"items_skipped"`
	ItemsFailed       int    `json:"items_failed"`
	OverridesResolved int    `json:"overrides_resolved"`
	QualityFailures   int    `json:"quality_failures"`
	QualityWarnings   int    `json:"quality_warnings"`
	Watermark         string `json:"watermark,omitempty"`
}
