package statsapi

import (
	"fmt"
	"strings"

	"github.com/maxviazov/gamelog-sync/internal/model"
)

// ResultSet is one named table in a stats API answer.
type ResultSet struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	RowSet  [][]any  `json:"rowSet"`
}

// envelope covers both shapes the API uses: a "resultSets" array or a single "resultSet" object.
type envelope struct {
	ResultSets []ResultSet `json:"resultSets"`
	ResultSet  *ResultSet  `json:"resultSet"`
}

func (e *envelope) sets() []ResultSet {
	if len(e.ResultSets) > 0 {
		return e.ResultSets
	}
	if e.ResultSet != nil {
		return []ResultSet{*e.ResultSet}
	}
	return nil
}

// set returns the table called name, or the first one when name is empty.
func (e *envelope) set(name string) (ResultSet, error) {
	sets := e.sets()
	if len(sets) == 0 {
		return ResultSet{}, fmt.Errorf("%w: no result sets", ErrMalformedPayload)
	}
	if name == "" {
		return sets[0], nil
	}
	for _, s := range sets {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return ResultSet{}, fmt.Errorf("%w: result set %q missing", ErrMalformedPayload, name)
}

// Rows zips headers with each row. Short rows leave trailing columns unset; extra cells are dropped.
func (s ResultSet) Rows() []model.RawRow {
	out := make([]model.RawRow, 0, len(s.RowSet))
	for _, cells := range s.RowSet {
		row := make(model.RawRow, len(s.Headers))
		for i, h := range s.Headers {
			if i >= len(cells) {
				break
			}
			row[h] = cells[i]
		}
		out = append(out, row)
	}
	return out
}
