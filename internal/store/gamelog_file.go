package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/maxviazov/gamelog-sync/internal/canonical"
	"github.com/maxviazov/gamelog-sync/internal/model"
)

// Columns is the header of the durable game log, in file order.
var Columns = []string{
	"season_id", "team_id", "team_abbreviation", "team_name", "game_id", "game_date",
	"matchup", "wl", "is_home", "season_type",
	"min", "fgm", "fga", "fg_pct", "fg3m", "fg3a", "fg3_pct", "ftm", "fta", "ft_pct",
	"oreb", "dreb", "reb", "ast", "stl", "blk", "tov", "pf", "pts", "plus_minus",
}

// GameLogFile is the CSV log of every ingested team game row.
type GameLogFile struct {
	Path string
}

// Exists reports whether the log has been seeded.
func (f GameLogFile) Exists() bool {
	_, err := os.Stat(f.Path)
	return err == nil
}

// Remove deletes the log. A missing file is fine.
func (f GameLogFile) Remove() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove game log: %w", err)
	}
	return nil
}

// Read loads every row. A missing file is an empty log, not an error.
func (f GameLogFile) Read() ([]model.GameLog, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open game log: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read game log header: %w", err)
	}

	var out []model.GameLog
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read game log: %w", err)
		}
		raw := make(model.RawRow, len(header))
		for i, h := range header {
			if i < len(rec) && rec[i] != "" {
				raw[h] = rec[i]
			}
		}
		// The stored label is already canonical; the fallback only covers hand-edited files.
		out = append(out, canonical.GameLog(raw, model.SeasonTypeRegular))
	}
	return out, nil
}

// Write replaces the whole log atomically.
func (f GameLogFile) Write(rows []model.GameLog) error {
	return WriteAtomic(f.Path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(Columns); err != nil {
			return err
		}
		for _, g := range rows {
			if err := cw.Write(record(g)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// MaxGameDate is the latest game_date in rows, or nil.
func MaxGameDate(rows []model.GameLog) *time.Time {
	var latest *time.Time
	for i := range rows {
		d := rows[i].GameDate
		if d != nil && (latest == nil || d.After(*latest)) {
			latest = d
		}
	}
	return latest
}

func record(g model.GameLog) []string {
	s := g.Stats
	rec := []string{
		g.SeasonID, g.TeamID, g.TeamAbbreviation, g.TeamName, g.GameID, formatDate(g.GameDate),
		g.Matchup, g.WL, formatBool(g.IsHome), string(g.SeasonType),
	}
	for _, v := range []*float64{
		s.Min, s.FGM, s.FGA, s.FGPct, s.FG3M, s.FG3A, s.FG3Pct, s.FTM, s.FTA, s.FTPct,
		s.OREB, s.DREB, s.REB, s.AST, s.STL, s.BLK, s.TOV, s.PF, s.PTS, s.PlusMinus,
	} {
		rec = append(rec, formatFloat(v))
	}
	return rec
}

func formatDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(model.DateLayout)
}

func formatBool(b *bool) string {
	if b == nil {
		return ""
	}
	if *b {
		return "1"
	}
	return "0"
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
