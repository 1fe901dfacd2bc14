// Package quality holds the structural checks run over the game log after a sync.
// Violations in modern seasons fail the gate; older seasons are known to be patchy and only warn.
package quality

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/maxviazov/gamelog-sync/internal/model"
	"github.com/maxviazov/gamelog-sync/internal/season"
)

// Check names.
const (
	CheckWinLoss  = "wl_balance"
	CheckHomeAway = "home_away_balance"
	CheckPct      = "pct_range"
	CheckMinutes  = "team_minutes"
	CheckPoints   = "points_identity"
	CheckTeams    = "known_team"
)

// Team minutes outside this range cannot be a real game (48*5 = 240, plus overtimes).
const (
	MinTeamMinutes = 200
	MaxTeamMinutes = 330
)

// pointsTolerance absorbs rounding in old box scores.
const pointsTolerance = 2

// maxSamples caps the example keys kept per check.
const maxSamples = 5

// FranchiseTeamIDs returns the ids of the 30 current franchises, 1610612737 through 1610612766.
func FranchiseTeamIDs() []string {
	out := make([]string, 0, 30)
	for id := 1610612737; id <= 1610612766; id++ {
		out = append(out, strconv.Itoa(id))
	}
	return out
}

// Rules parameterizes Evaluate.
type Rules struct {
	// ModernStartYear is the first season whose violations fail the gate.
	ModernStartYear int

	// KnownTeams is the team dimension. Modern rows for other teams fail; nil skips the check.
	KnownTeams map[string]bool
}

// Result is the outcome of one check.
type Result struct {
	Name     string   `json:"name"`
	Failures int      `json:"failures"`
	Warnings int      `json:"warnings"`
	Samples  []string `json:"samples,omitempty"`
}

// Report is the outcome of all checks.
type Report struct {
	ModernStartYear int      `json:"modern_start_year"`
	RowsChecked     int      `json:"rows_checked"`
	Results         []Result `json:"results"`
}

// Failures sums must-pass violations across checks.
func (r Report) Failures() int {
	n := 0
	for _, res := range r.Results {
		n += res.Failures
	}
	return n
}

// Warnings sums legacy violations across checks.
func (r Report) Warnings() int {
	n := 0
	for _, res := range r.Results {
		n += res.Warnings
	}
	return n
}

// Passed reports whether no must-pass check failed.
func (r Report) Passed() bool { return r.Failures() == 0 }

// Summary renders failing checks as short lines for logs and errors.
func (r Report) Summary() []string {
	var out []string
	for _, res := range r.Results {
		if res.Failures > 0 {
			out = append(out, fmt.Sprintf("%s: %d", res.Name, res.Failures))
		}
	}
	return out
}

// Modern reports whether a season id belongs to the must-pass era.
// Ids without a parsable year count as legacy.
func Modern(seasonID string, cutoff int) bool {
	year, ok := season.StartYearFromSeasonID(seasonID)
	return ok && year >= cutoff
}

// Evaluate runs every check over rows. overrides is keyed by game id and supersedes row home flags.
func Evaluate(rows []model.GameLog, overrides map[string]model.HomeAwayOverride, rules Rules) Report {
	cutoff := rules.ModernStartYear
	rep := Report{ModernStartYear: cutoff, RowsChecked: len(rows)}

	type gameKey struct {
		gameID     string
		seasonType model.SeasonType
	}
	type tally struct {
		modern       bool
		wins, losses int
		homes, aways int
	}
	groups := make(map[gameKey]*tally)
	var order []gameKey

	pct := Result{Name: CheckPct}
	mins := Result{Name: CheckMinutes}
	pts := Result{Name: CheckPoints}
	teams := Result{Name: CheckTeams}
	unknown := make(map[string]bool)

	for _, g := range rows {
		modern := Modern(g.SeasonID, cutoff)
		k := gameKey{g.GameID, g.SeasonType}
		t, ok := groups[k]
		if !ok {
			t = &tally{}
			groups[k] = t
			order = append(order, k)
		}
		// A game is modern when any of its rows is.
		t.modern = t.modern || modern

		switch g.WL {
		case "W":
			t.wins++
		case "L":
			t.losses++
		}
		if home := effectiveHome(g, overrides); home != nil {
			if *home {
				t.homes++
			} else {
				t.aways++
			}
		}

		label := g.Key().String()
		if badPct(g.Stats) {
			record(&pct, modern, label)
		}
		if m := g.Stats.Min; m != nil && (*m < MinTeamMinutes || *m > MaxTeamMinutes) {
			record(&mins, modern, label)
		}
		if badPoints(g.Stats) {
			record(&pts, modern, label)
		}
		// Counted once per team, modern seasons only.
		if modern && rules.KnownTeams != nil && !rules.KnownTeams[g.TeamID] && !unknown[g.TeamID] {
			unknown[g.TeamID] = true
			record(&teams, true, g.TeamID)
		}
	}

	wl := Result{Name: CheckWinLoss}
	ha := Result{Name: CheckHomeAway}
	for _, k := range order {
		t := groups[k]
		label := fmt.Sprintf("%s/%s", k.gameID, k.seasonType)
		if t.wins != 1 || t.losses != 1 {
			record(&wl, t.modern, label)
		}
		if t.homes != 1 || t.aways != 1 {
			record(&ha, t.modern, label)
		}
	}

	rep.Results = []Result{wl, ha, pct, mins, pts, teams}
	for i := range rep.Results {
		sort.Strings(rep.Results[i].Samples)
	}
	return rep
}

func effectiveHome(g model.GameLog, overrides map[string]model.HomeAwayOverride) *bool {
	if o, ok := overrides[g.GameID]; ok {
		var home bool
		switch g.TeamID {
		case o.TeamIDHome:
			home = true
		case o.TeamIDAway:
			home = false
		default:
			return g.IsHome
		}
		return &home
	}
	return g.IsHome
}

// badPct flags a percentage that is missing or outside [0,1] while attempts were made.
func badPct(s model.Stats) bool {
	check := func(attempts, pct *float64) bool {
		if attempts == nil || *attempts <= 0 {
			return false
		}
		return pct == nil || *pct < 0 || *pct > 1
	}
	return check(s.FGA, s.FGPct) || check(s.FG3A, s.FG3Pct) || check(s.FTA, s.FTPct)
}

// badPoints compares reported points with 2*FGM + FG3M + FTM when all parts are present.
func badPoints(s model.Stats) bool {
	if s.PTS == nil || s.FGM == nil || s.FG3M == nil || s.FTM == nil {
		return false
	}
	fgm, fg3m, ftm := *s.FGM, *s.FG3M, *s.FTM
	return math.Abs(*s.PTS-(2*fgm+fg3m+ftm)) > pointsTolerance
}

func record(r *Result, modern bool, label string) {
	if modern {
		r.Failures++
		if len(r.Samples) < maxSamples {
			r.Samples = append(r.Samples, label)
		}
		return
	}
	r.Warnings++
}
