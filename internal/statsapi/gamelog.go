package statsapi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/maxviazov/gamelog-sync/internal/model"
	"github.com/maxviazov/gamelog-sync/internal/season"
)

// EmptyReason explains why a batch carries no rows.
type EmptyReason string

const (
	// RangeEmpty means the window had no days inside [epoch, today]; nothing was requested.
	RangeEmpty EmptyReason = "range_empty"
	// NoData means the upstream answered with a client error for at least one bucket.
	NoData EmptyReason = "no_data"
)

// Batch is what one FetchGameLogs call produced.
type Batch struct {
	Window   model.Window
	Category model.SeasonType
	Rows     []model.RawRow
	Requests int
	Empty    EmptyReason
	// FailedFrom is the first day of the bucket whose retries ran out, if any.
	// Rows before it are complete; nothing at or after it was fetched.
	FailedFrom *time.Time
}

const (
	endpointGameLog   = "leaguegamelog"
	apiDateLayout     = "01/02/2006"
	resultSetGameLogs = "LeagueGameLog"
)

// FetchGameLogs pulls team game logs for one category over window, one request per month bucket.
// A window outside [epoch, today] is not an error: the batch comes back marked RangeEmpty.
// When a bucket exhausts its retries the call stops there and returns the partial batch
// together with an error wrapping ErrFetchFailed.
func (c *Client) FetchGameLogs(ctx context.Context, window model.Window, category model.SeasonType) (Batch, error) {
	batch := Batch{Window: window, Category: category}

	clipped, ok := c.clip(window)
	if !ok {
		batch.Empty = RangeEmpty
		c.log.Debug().Str("window", window.String()).Str("category", string(category)).Msg("window outside source range")
		return batch, nil
	}

	noData := false
	for _, b := range season.MonthBuckets(clipped) {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		batch.Requests++
		env, err := c.get(ctx, endpointGameLog, gameLogParams(b, category))
		switch {
		case err == nil:
		case IsClientError(err):
			noData = true
			c.log.Warn().Err(err).Str("bucket", b.String()).Str("category", string(category)).Msg("upstream has no data for bucket")
			continue
		case errors.Is(err, ErrFetchFailed):
			from := b.From
			batch.FailedFrom = &from
			return batch, fmt.Errorf("fetch game logs %s %s: %w", b.String(), category, err)
		default:
			return batch, fmt.Errorf("fetch game logs %s %s: %w", b.String(), category, err)
		}

		set, err := env.set(resultSetGameLogs)
		if err != nil {
			// Older payloads ship an unnamed single table.
			if set, err = env.set(""); err != nil {
				return batch, fmt.Errorf("fetch game logs %s %s: %w", b.String(), category, err)
			}
		}
		rows := set.Rows()
		c.log.Debug().Str("bucket", b.String()).Str("category", string(category)).Int("rows", len(rows)).Msg("bucket fetched")
		batch.Rows = append(batch.Rows, rows...)
	}
	if len(batch.Rows) == 0 && noData {
		batch.Empty = NoData
	}
	return batch, nil
}

// clip intersects w with [epoch, today].
func (c *Client) clip(w model.Window) (model.Window, bool) {
	from, to := model.Day(w.From), model.Day(w.To)
	if from.Before(c.epoch) {
		from = c.epoch
	}
	today := model.Day(c.now())
	if to.After(today) {
		to = today
	}
	clipped := model.Window{From: from, To: to}
	if clipped.Empty() {
		return clipped, false
	}
	return clipped, true
}

func gameLogParams(b season.Bucket, category model.SeasonType) url.Values {
	q := url.Values{}
	q.Set("LeagueID", "00")
	q.Set("PlayerOrTeam", "T")
	q.Set("Season", season.Label(b.Season))
	q.Set("SeasonType", string(category))
	q.Set("DateFrom", b.From.Format(apiDateLayout))
	q.Set("DateTo", b.To.Format(apiDateLayout))
	q.Set("Direction", "ASC")
	q.Set("Sorter", "DATE")
	q.Set("Counter", "0")
	return q
}
