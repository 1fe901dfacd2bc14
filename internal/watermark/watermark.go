// Package watermark decides which date window a sync run should cover and how far the
// watermark may move afterwards.
package watermark

import (
	"errors"
	"time"

	"github.com/maxviazov/gamelog-sync/internal/model"
)

var (
	// ErrNoWorkNeeded means the computed start is after the end. Callers treat it as success.
	ErrNoWorkNeeded = errors.New("no work needed")
	// ErrSeedMissing means there is neither a watermark nor stored data to resume from.
	ErrSeedMissing = errors.New("cannot infer start date: no watermark and no stored game logs")
)

// State is what the store knows about previous runs.
type State struct {
	Watermark *time.Time
	StoreMax  *time.Time
}

// Request carries the caller's overrides. Nil dates mean "not given".
type Request struct {
	Start       *time.Time
	End         *time.Time
	FullHistory bool
	Epoch       time.Time
	Today       time.Time
}

// NextWindow picks the window to fetch.
// Start precedence: explicit start, epoch in full-history mode, watermark+1, store max+1.
// End defaults to the day before Today.
func NextWindow(state State, req Request) (model.Window, error) {
	var start time.Time
	switch {
	case req.Start != nil:
		start = model.Day(*req.Start)
	case req.FullHistory:
		start = model.Day(req.Epoch)
	case state.Watermark != nil:
		start = model.Day(*state.Watermark).AddDate(0, 0, 1)
	case state.StoreMax != nil:
		start = model.Day(*state.StoreMax).AddDate(0, 0, 1)
	default:
		return model.Window{}, ErrSeedMissing
	}

	end := model.Day(req.Today).AddDate(0, 0, -1)
	if req.End != nil {
		end = model.Day(*req.End)
	}

	w := model.Window{From: start, To: end}
	if w.Empty() {
		return w, ErrNoWorkNeeded
	}
	return w, nil
}

// Advance returns the watermark after a run. It never moves backwards and never
// passes the day before the first failed bucket, so a failed range is retried next time.
// Nil prev means no watermark yet; the result is nil when there is nothing to record.
func Advance(prev, maxIngested, firstFailed *time.Time) *time.Time {
	candidate := maxIngested
	if candidate != nil && firstFailed != nil {
		limit := model.Day(*firstFailed).AddDate(0, 0, -1)
		if candidate.After(limit) {
			candidate = &limit
		}
	}
	switch {
	case candidate == nil:
		return prev
	case prev == nil:
		d := model.Day(*candidate)
		return &d
	case candidate.After(*prev):
		d := model.Day(*candidate)
		return &d
	default:
		return prev
	}
}
