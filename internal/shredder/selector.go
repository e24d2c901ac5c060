package shredder

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

// FileDateLayout daily accounting file name (yyyyMMdd)
const FileDateLayout = "20060102"

// FileSelector picks the daily accounting files not yet ingested
type FileSelector struct {
	clock    clock.PassiveClock
	location *time.Location
	log      *zap.Logger
}

// NewFileSelector creates a selector. loc is the time zone file names are dated in.
func NewFileSelector(clk clock.PassiveClock, loc *time.Location, log *zap.Logger) *FileSelector {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FileSelector{clock: clk, location: loc, log: log}
}

// Select returns the paths to ingest from dir in date order.
// With no watermark every file except today's is returned. Otherwise the files dated
// watermark+1 day through yesterday that exist are returned.
func (s *FileSelector) Select(dir string, watermark *time.Time) ([]string, error) {
	today := s.day(s.clock.Now())
	todayName := today.Format(FileDateLayout)

	if watermark == nil {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read accounting directory %s: %w", dir, err)
		}
		var paths []string
		for _, e := range entries {
			if e.IsDir() || e.Name() == todayName {
				continue
			}
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
		return paths, nil
	}

	if info, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("failed to read accounting directory %s: %w", dir, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("accounting directory %s is not a directory", dir)
	}

	var paths []string
	for d := s.day(*watermark).AddDate(0, 0, 1); d.Before(today); d = d.AddDate(0, 0, 1) {
		path := filepath.Join(dir, d.Format(FileDateLayout))
		s.log.Debug("checking for file", zap.String("path", path))

		info, err := os.Stat(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.log.Error("failed to stat accounting file", zap.String("path", path), zap.Error(err))
			}
			continue
		}
		if info.IsDir() {
			continue
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// day truncates t to local midnight
func (s *FileSelector) day(t time.Time) time.Time {
	t = t.In(s.location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.location)
}
