package season_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/gamelog-sync/internal/model"
	"github.com/maxviazov/gamelog-sync/internal/season"
)

func day(s string) time.Time {
	d, err := model.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestYearAndLabel(t *testing.T) {
	cases := []struct {
		date  string
		year  int
		label string
	}{
		{"2023-07-01", 2023, "2023-24"},
		{"2023-06-30", 2022, "2022-23"},
		{"2024-01-15", 2023, "2023-24"},
		{"1999-10-01", 1999, "1999-00"},
		{"1946-11-01", 1946, "1946-47"},
	}
	for _, tc := range cases {
		t.Run(tc.date, func(t *testing.T) {
			y := season.Year(day(tc.date))
			assert.Equal(t, tc.year, y)
			assert.Equal(t, tc.label, season.Label(y))
		})
	}
	assert.Equal(t, day("2023-07-01"), season.Start(2023))
	assert.Equal(t, day("2024-06-30"), season.End(2023))
}

func TestMonthBuckets(t *testing.T) {
	buckets := season.MonthBuckets(model.Window{From: day("2023-06-20"), To: day("2023-08-03")})
	require.Len(t, buckets, 3)

	assert.Equal(t, day("2023-06-20"), buckets[0].From)
	assert.Equal(t, day("2023-06-30"), buckets[0].To)
	assert.Equal(t, 2022, buckets[0].Season)

	assert.Equal(t, day("2023-07-01"), buckets[1].From)
	assert.Equal(t, day("2023-07-31"), buckets[1].To)
	assert.Equal(t, 2023, buckets[1].Season)

	assert.Equal(t, day("2023-08-01"), buckets[2].From)
	assert.Equal(t, day("2023-08-03"), buckets[2].To)
}

func TestMonthBuckets_DecemberRollover(t *testing.T) {
	buckets := season.MonthBuckets(model.Window{From: day("2023-12-31"), To: day("2024-01-01")})
	require.Len(t, buckets, 2)
	assert.Equal(t, day("2023-12-31"), buckets[0].To)
	assert.Equal(t, day("2024-01-01"), buckets[1].From)
	assert.Equal(t, 2023, buckets[1].Season)
}

func TestMonthBuckets_EmptyWindow(t *testing.T) {
	assert.Nil(t, season.MonthBuckets(model.Window{From: day("2023-10-02"), To: day("2023-10-01")}))
}

func TestCategoriesFor(t *testing.T) {
	cases := []struct {
		name string
		from string
		to   string
		want []model.SeasonType
	}{
		{"offseason", "2023-07-05", "2023-08-20", []model.SeasonType{}},
		{"preseason and tip-off", "2023-10-01", "2023-10-31", []model.SeasonType{model.SeasonTypeRegular, model.SeasonTypePreSeason}},
		{"november with cup", "2023-11-10", "2023-11-12", []model.SeasonType{model.SeasonTypeRegular, model.SeasonTypeTournament}},
		{"november before cup existed", "2019-11-10", "2019-11-12", []model.SeasonType{model.SeasonTypeRegular}},
		{"april modern", "2024-04-10", "2024-04-20", []model.SeasonType{model.SeasonTypeRegular, model.SeasonTypePlayoffs, model.SeasonTypePlayIn}},
		{"april before play-in", "2015-04-10", "2015-04-20", []model.SeasonType{model.SeasonTypeRegular, model.SeasonTypePlayoffs}},
		{"june finals", "2024-06-01", "2024-06-20", []model.SeasonType{model.SeasonTypePlayoffs}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := season.CategoriesFor(model.Window{From: day(tc.from), To: day(tc.to)})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPlan_FullSeasonRequestsOnlyPlausibleBuckets(t *testing.T) {
	plan := season.Plan(model.Window{From: day("2023-10-01"), To: day("2024-06-30")})

	got := map[model.SeasonType][]string{}
	buckets := 0
	for _, s := range plan {
		for _, w := range s.Windows {
			got[s.Category] = append(got[s.Category], w.String())
			buckets += len(season.MonthBuckets(w))
		}
	}
	assert.Equal(t, map[model.SeasonType][]string{
		model.SeasonTypeRegular:    {"2023-10-01..2024-04-30"},
		model.SeasonTypePreSeason:  {"2023-10-01..2023-10-31"},
		model.SeasonTypeTournament: {"2023-11-01..2023-12-31"},
		model.SeasonTypePlayIn:     {"2024-04-01..2024-05-31"},
		model.SeasonTypePlayoffs:   {"2024-04-01..2024-06-30"},
	}, got)
	assert.Equal(t, 15, buckets)
}

func TestPlan_SplitsAcrossSeasons(t *testing.T) {
	plan := season.Plan(model.Window{From: day("2023-05-15"), To: day("2023-10-10")})

	got := map[model.SeasonType][]string{}
	for _, s := range plan {
		for _, w := range s.Windows {
			got[s.Category] = append(got[s.Category], w.String())
		}
	}
	assert.Equal(t, []string{"2023-10-01..2023-10-10"}, got[model.SeasonTypeRegular])
	assert.Equal(t, []string{"2023-05-15..2023-06-30"}, got[model.SeasonTypePlayoffs])
	assert.Equal(t, []string{"2023-09-01..2023-10-10"}, got[model.SeasonTypePreSeason])
	assert.Equal(t, []string{"2023-05-15..2023-05-31"}, got[model.SeasonTypePlayIn])
}

func TestPlan_Offseason(t *testing.T) {
	assert.Nil(t, season.Plan(model.Window{From: day("2023-07-05"), To: day("2023-08-20")}))
}

func TestStartYearFromSeasonID(t *testing.T) {
	y, ok := season.StartYearFromSeasonID("22023")
	assert.True(t, ok)
	assert.Equal(t, 2023, y)

	_, ok = season.StartYearFromSeasonID("203")
	assert.False(t, ok)

	y, ok = season.StartYearFromSeasonID("42019")
	assert.True(t, ok)
	assert.Equal(t, 2019, y)

	_, ok = season.StartYearFromSeasonID("220a3")
	assert.False(t, ok)
}
