// Package canonical turns raw upstream rows into typed domain records.
// Every identifier that leaves this package is in canonical form, see NormalizeID.
package canonical

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/maxviazov/gamelog-sync/internal/model"
)

// dateLayouts are tried in order; the API mixes ISO, ISO with a clock and US styles.
var dateLayouts = []string{
	model.DateLayout,
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"Jan 02, 2006",
}

var dateColumns = []string{"game_date", "game_date_est", "game_date_time_est"}

var seasonTypeSynonyms = map[string]model.SeasonType{
	"regular":              model.SeasonTypeRegular,
	"regular season":       model.SeasonTypeRegular,
	"playoff":              model.SeasonTypePlayoffs,
	"playoffs":             model.SeasonTypePlayoffs,
	"post season":          model.SeasonTypePlayoffs,
	"postseason":           model.SeasonTypePlayoffs,
	"preseason":            model.SeasonTypePreSeason,
	"pre-season":           model.SeasonTypePreSeason,
	"pre season":           model.SeasonTypePreSeason,
	"play-in":              model.SeasonTypePlayIn,
	"play in":              model.SeasonTypePlayIn,
	"playin":               model.SeasonTypePlayIn,
	"play-in tournament":   model.SeasonTypePlayIn,
	"in-season tournament": model.SeasonTypeTournament,
	"in season tournament": model.SeasonTypeTournament,
	"ist":                  model.SeasonTypeTournament,
	"nba cup":              model.SeasonTypeTournament,
	"emirates nba cup":     model.SeasonTypeTournament,
}

// NormalizeID canonicalizes an identifier: trimmed, integral floats printed as integers,
// leading zeros stripped. The empty result of stripping is "0".
func NormalizeID(v any) string {
	s := strings.TrimSpace(toString(v))
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, ".eE") {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
			s = strconv.FormatFloat(f, 'f', 0, 64)
		}
	}
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return "0"
	}
	return s
}

// SeasonType maps a free-form label onto a canonical category. Unknown labels come back trimmed.
func SeasonType(label string) model.SeasonType {
	trimmed := strings.TrimSpace(label)
	if c, ok := seasonTypeSynonyms[strings.ToLower(trimmed)]; ok {
		return c
	}
	for _, c := range model.AllSeasonTypes {
		if strings.EqualFold(trimmed, string(c)) {
			return c
		}
	}
	return model.SeasonType(trimmed)
}

// ParseDate reads a calendar date in any supported layout. Unparsable input yields nil.
func ParseDate(v any) *time.Time {
	s := strings.TrimSpace(toString(v))
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := model.Day(t)
			return &d
		}
	}
	return nil
}

// Number reads a statistic: JSON numbers and numeric strings parse, null and blanks are nil.
func Number(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	default:
		s := strings.TrimSpace(toString(v))
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	}
	if math.IsNaN(f) {
		return nil
	}
	return &f
}

// IsHomeFromMatchup derives the home flag: "vs." means home, "@" means away.
func IsHomeFromMatchup(matchup string) *bool {
	var home bool
	switch {
	case strings.Contains(matchup, "vs."):
		home = true
	case strings.Contains(matchup, "@"):
		home = false
	default:
		return nil
	}
	return &home
}

func parseBool(v any) *bool {
	var b bool
	switch x := v.(type) {
	case nil:
		return nil
	case bool:
		b = x
	default:
		switch strings.ToLower(strings.TrimSpace(toString(v))) {
		case "1", "true", "t", "yes":
			b = true
		case "0", "false", "f", "no":
			b = false
		default:
			return nil
		}
	}
	return &b
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}

// lower folds the row's header names so lookups are case-insensitive.
func lower(raw model.RawRow) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

func str(r map[string]any, key string) string {
	return strings.TrimSpace(toString(r[key]))
}

func intField(r map[string]any, key string) int {
	n := Number(r[key])
	if n == nil {
		return 0
	}
	return int(*n)
}
