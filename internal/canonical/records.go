package canonical

import (
	"github.com/maxviazov/gamelog-sync/internal/model"
	"github.com/maxviazov/gamelog-sync/internal/season"
)

// GameLog converts one raw game log row. fallback is the category the row was requested under;
// it is used when the row carries no season type of its own.
func GameLog(raw model.RawRow, fallback model.SeasonType) model.GameLog {
	r := lower(raw)

	g := model.GameLog{
		SeasonID:         NormalizeID(r["season_id"]),
		TeamID:           NormalizeID(r["team_id"]),
		TeamAbbreviation: str(r, "team_abbreviation"),
		TeamName:         str(r, "team_name"),
		GameID:           NormalizeID(r["game_id"]),
		Matchup:          str(r, "matchup"),
		WL:               str(r, "wl"),
		Stats:            stats(r),
	}
	for _, col := range dateColumns {
		if d := ParseDate(r[col]); d != nil {
			g.GameDate = d
			break
		}
	}

	label := str(r, "season_type")
	if label == "" {
		label = string(fallback)
	}
	g.SeasonType = SeasonType(label)

	if v, ok := r["is_home"]; ok {
		g.IsHome = parseBool(v)
	}
	if g.IsHome == nil {
		g.IsHome = IsHomeFromMatchup(g.Matchup)
	}
	return g
}

// GameLogs converts a whole batch.
func GameLogs(raws []model.RawRow, fallback model.SeasonType) []model.GameLog {
	out := make([]model.GameLog, 0, len(raws))
	for _, raw := range raws {
		out = append(out, GameLog(raw, fallback))
	}
	return out
}

func stats(r map[string]any) model.Stats {
	return model.Stats{
		Min:       minutes(r["min"]),
		FGM:       Number(r["fgm"]),
		FGA:       Number(r["fga"]),
		FGPct:     Number(r["fg_pct"]),
		FG3M:      Number(r["fg3m"]),
		FG3A:      Number(r["fg3a"]),
		FG3Pct:    Number(r["fg3_pct"]),
		FTM:       Number(r["ftm"]),
		FTA:       Number(r["fta"]),
		FTPct:     Number(r["ft_pct"]),
		OREB:      Number(r["oreb"]),
		DREB:      Number(r["dreb"]),
		REB:       Number(r["reb"]),
		AST:       Number(r["ast"]),
		STL:       Number(r["stl"]),
		BLK:       Number(r["blk"]),
		TOV:       firstNumber(r, "tov", "to"),
		PF:        Number(r["pf"]),
		PTS:       Number(r["pts"]),
		PlusMinus: Number(r["plus_minus"]),
	}
}

func firstNumber(r map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		if n := Number(r[k]); n != nil {
			return n
		}
	}
	return nil
}

// minutes accepts plain numbers and the "240:00" / "34:12" clock form used by box scores.
func minutes(v any) *float64 {
	s := toString(v)
	for i := 0; i < len(s); i++ {
		if s[i] != ':' {
			continue
		}
		m, sec := Number(s[:i]), Number(s[i+1:])
		if m == nil {
			return nil
		}
		total := *m
		if sec != nil {
			total += *sec / 60
		}
		return &total
	}
	return Number(v)
}

// BoxScore converts the two traditional box score tables.
func BoxScore(teams, players []model.RawRow) model.BoxScore {
	out := model.BoxScore{
		Teams:   make([]model.BoxScoreTeam, 0, len(teams)),
		Players: make([]model.BoxScorePlayer, 0, len(players)),
	}
	for _, raw := range teams {
		r := lower(raw)
		out.Teams = append(out.Teams, model.BoxScoreTeam{
			GameID:           NormalizeID(r["game_id"]),
			TeamID:           NormalizeID(r["team_id"]),
			TeamAbbreviation: str(r, "team_abbreviation"),
			TeamName:         str(r, "team_name"),
			Stats:            stats(r),
		})
	}
	for _, raw := range players {
		r := lower(raw)
		out.Players = append(out.Players, model.BoxScorePlayer{
			GameID:     NormalizeID(r["game_id"]),
			TeamID:     NormalizeID(r["team_id"]),
			PlayerID:   NormalizeID(r["player_id"]),
			PlayerName: str(r, "player_name"),
			StartPos:   str(r, "start_position"),
			Minutes:    str(r, "min"),
			Stats:      stats(r),
			Comment:    str(r, "comment"),
		})
	}
	return out
}

// PlayByPlay converts timeline rows.
func PlayByPlay(raws []model.RawRow) []model.PlayByPlay {
	out := make([]model.PlayByPlay, 0, len(raws))
	for _, raw := range raws {
		r := lower(raw)
		out = append(out, model.PlayByPlay{
			GameID:              NormalizeID(r["game_id"]),
			EventNum:            intField(r, "eventnum"),
			EventMsgType:        intField(r, "eventmsgtype"),
			Period:              intField(r, "period"),
			PCTimeString:        str(r, "pctimestring"),
			HomeDescription:     str(r, "homedescription"),
			VisitorDescription:  str(r, "visitordescription"),
			NeutralDescription:  str(r, "neutraldescription"),
			Score:               str(r, "score"),
			Player1ID:           NormalizeID(r["player1_id"]),
			Player1TeamID:       NormalizeID(r["player1_team_id"]),
			WallClockTimeString: str(r, "wctimestring"),
		})
	}
	return out
}

// GameSummary converts the GameSummary row used for home/away resolution.
// The season comes from the SEASON column, falling back to the season of the game date.
func GameSummary(raw model.RawRow) model.GameSummary {
	r := lower(raw)
	s := model.GameSummary{
		GameID:     NormalizeID(r["game_id"]),
		HomeTeamID: NormalizeID(r["home_team_id"]),
		AwayTeamID: NormalizeID(r["visitor_team_id"]),
	}
	for _, col := range dateColumns {
		if d := ParseDate(r[col]); d != nil {
			s.GameDate = d
			break
		}
	}
	if n := Number(r["season"]); n != nil {
		y := int(*n)
		s.Season = &y
	} else if s.GameDate != nil {
		y := season.Year(*s.GameDate)
		s.Season = &y
	}
	return s
}
