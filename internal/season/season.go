// Package season holds calendar arithmetic for NBA seasons and the pure heuristic that
// maps a date window to the categories worth querying.
package season

import (
	"fmt"
	"time"

	"github.com/maxviazov/gamelog-sync/internal/model"
)

// Year returns the starting year of the season containing d. Seasons run Jul 1 .. Jun 30.
func Year(d time.Time) int {
	if d.Month() >= time.July {
		return d.Year()
	}
	return d.Year() - 1
}

// Label formats a season year the way the stats API expects it, e.g. 2023 -> "2023-24".
func Label(year int) string {
	return fmt.Sprintf("%d-%02d", year, (year+1)%100)
}

// Start is the first day of the season starting in year.
func Start(year int) time.Time { return time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC) }

// End is the last day of the season starting in year.
func End(year int) time.Time { return time.Date(year+1, time.June, 30, 0, 0, 0, 0, time.UTC) }

// Bucket is one request-sized slice of a window. It never spans more than one calendar month,
// and therefore never crosses a season boundary.
type Bucket struct {
	model.Window
	Season int
}

// MonthBuckets splits w into calendar-month buckets clipped to w.
func MonthBuckets(w model.Window) []Bucket {
	from, to := model.Day(w.From), model.Day(w.To)
	if from.After(to) {
		return nil
	}
	var out []Bucket
	for cur := from; !cur.After(to); {
		monthEnd := time.Date(cur.Year(), cur.Month()+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
		if monthEnd.After(to) {
			monthEnd = to
		}
		out = append(out, Bucket{Window: model.Window{From: cur, To: monthEnd}, Season: Year(cur)})
		cur = monthEnd.AddDate(0, 0, 1)
	}
	return out
}

// span describes when a category can produce games: a month range inside the season
// (months after June count as the first half) and the first season it existed.
type span struct {
	category    model.SeasonType
	first, last time.Month
	sinceSeason int
}

var calendar = []span{
	{model.SeasonTypePreSeason, time.September, time.October, 0},
	{model.SeasonTypeRegular, time.October, time.April, 0},
	{model.SeasonTypeTournament, time.November, time.December, 2023},
	{model.SeasonTypePlayIn, time.April, time.May, 2020},
	{model.SeasonTypePlayoffs, time.April, time.June, 0},
}

// seasonMonth orders months from July (0) to June (11).
func seasonMonth(m time.Month) int {
	return (int(m) - int(time.July) + 12) % 12
}

func (s span) covers(season int, m time.Month) bool {
	if season < s.sinceSeason {
		return false
	}
	pos := seasonMonth(m)
	return pos >= seasonMonth(s.first) && pos <= seasonMonth(s.last)
}

// CategoriesFor returns the categories that can have games inside w, in model.AllSeasonTypes order.
// It is a calendar heuristic only; callers that know better pass an explicit list instead.
func CategoriesFor(w model.Window) []model.SeasonType {
	seen := make(map[model.SeasonType]bool, len(calendar))
	for _, b := range MonthBuckets(w) {
		for _, s := range calendar {
			if s.covers(b.Season, b.From.Month()) {
				seen[s.category] = true
			}
		}
	}
	out := make([]model.SeasonType, 0, len(seen))
	for _, c := range model.AllSeasonTypes {
		if seen[c] {
			out = append(out, c)
		}
	}
	return out
}

// CategoriesForBucket is CategoriesFor restricted to a single bucket.
func CategoriesForBucket(b Bucket) []model.SeasonType {
	return CategoriesFor(b.Window)
}

// Slice is one category together with the parts of a window it can have games in.
type Slice struct {
	Category model.SeasonType
	Windows  []model.Window
}

// Plan maps w to the categories the calendar allows, each restricted to the runs of adjacent
// month buckets where it is plausible. Categories come in model.AllSeasonTypes order and a
// window with no plausible bucket yields nil.
func Plan(w model.Window) []Slice {
	runs := make(map[model.SeasonType][]model.Window, len(calendar))
	for _, b := range MonthBuckets(w) {
		for _, c := range CategoriesForBucket(b) {
			ws := runs[c]
			if n := len(ws); n > 0 && ws[n-1].To.AddDate(0, 0, 1).Equal(b.From) {
				ws[n-1].To = b.To
			} else {
				ws = append(ws, b.Window)
			}
			runs[c] = ws
		}
	}
	var out []Slice
	for _, c := range model.AllSeasonTypes {
		if ws := runs[c]; len(ws) > 0 {
			out = append(out, Slice{Category: c, Windows: ws})
		}
	}
	return out
}

// StartYearFromSeasonID extracts the season start year from a stats API season id such as "22023".
func StartYearFromSeasonID(seasonID string) (int, bool) {
	if len(seasonID) < 4 {
		return 0, false
	}
	var year int
	for _, r := range seasonID[len(seasonID)-4:] {
		if r < '0' || r > '9' {
			return 0, false
		}
		year = year*10 + int(r-'0')
	}
	return year, true
}
