package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/maxviazov/gamelog-sync/internal/model"
)

// WatermarkFile persists the last fully ingested date as a single ISO line.
type WatermarkFile struct {
	Path   string
	Logger zerolog.Logger
}

// Read returns the stored watermark, nil when the file is absent.
// A malformed file is ignored with a warning so the store max can take over.
func (f WatermarkFile) Read() (*time.Time, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read watermark: %w", err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, nil
	}
	d, err := model.ParseDay(text)
	if err != nil {
		f.Logger.Warn().Err(err).Str("path", f.Path).Str("value", text).Msg("ignoring malformed watermark")
		return nil, nil
	}
	return &d, nil
}

// Write stores d atomically.
func (f WatermarkFile) Write(d time.Time) error {
	return WriteAtomic(f.Path, func(w io.Writer) error {
		_, err := io.WriteString(w, d.Format(model.DateLayout)+"\n")
		return err
	})
}
