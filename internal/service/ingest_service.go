package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"pbsacct/internal/shredder"
	"pbsacct/pkg/interfaces"
)

// StdinPath designates standard input in single-stream mode
const StdinPath = "-"

// FileResult outcome of shredding one file in directory mode
type FileResult struct {
	Path  string         `json:"path"`
	Stats shredder.Stats `json:"stats"`
	Error string         `json:"error,omitempty"`
}

// IngestSummary outcome of one ingest invocation
type IngestSummary struct {
	Watermark *time.Time     `json:"watermark,omitempty"`
	Files     []FileResult   `json:"files"`
	Total     shredder.Stats `json:"total"`
}

func (s *IngestSummary) add(stats shredder.Stats) {
	s.Total.Lines += stats.Lines
	s.Total.Shredded += stats.Shredded
	s.Total.Skipped += stats.Skipped
	s.Total.Failed += stats.Failed
}

// IngestService feeds accounting logs into the store, from one stream or a dated directory
type IngestService struct {
	store    interfaces.Store
	shredder *shredder.Shredder
	selector *shredder.FileSelector
	stdin    io.Reader
	log      *zap.Logger
}

// NewIngestService creates an ingest service
func NewIngestService(store interfaces.Store, sh *shredder.Shredder, selector *shredder.FileSelector, log *zap.Logger) *IngestService {
	if log == nil {
		log = zap.NewNop()
	}
	return &IngestService{
		store:    store,
		shredder: sh,
		selector: selector,
		stdin:    os.Stdin,
		log:      log,
	}
}

// SetStdin replaces the reader used for StdinPath
func (s *IngestService) SetStdin(r io.Reader) {
	s.stdin = r
}

// IngestStream shreds a single reader
func (s *IngestService) IngestStream(ctx context.Context, r io.Reader) (shredder.Stats, error) {
	return s.shredder.ShredWithStats(ctx, r)
}

// IngestFile shreds the designated input; failing to open it is fatal
func (s *IngestService) IngestFile(ctx context.Context, path string) (*IngestSummary, error) {
	summary := &IngestSummary{}

	var r io.Reader
	if path == StdinPath {
		r = s.stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	stats, err := s.IngestStream(ctx, r)
	summary.Files = append(summary.Files, FileResult{Path: path, Stats: stats})
	summary.add(stats)
	if err != nil {
		return summary, err
	}
	s.log.Info("input shredded", zap.String("path", path), zap.Int("shredded", stats.Shredded))
	return summary, nil
}

// Watermark returns the latest ingested date for the run's host scope, nil when nothing is ingested
func (s *IngestService) Watermark(ctx context.Context) (*time.Time, error) {
	var max time.Time
	found, err := s.store.QueryRow(ctx, interfaces.StmtMaxDate, s.shredder.Parser().Host(), &max)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingest watermark: %w", err)
	}
	if !found || max.IsZero() {
		return nil, nil
	}
	return &max, nil
}

// IngestDirectory shreds the files in dir newer than the watermark.
// Files that cannot be opened or read are logged and skipped.
func (s *IngestService) IngestDirectory(ctx context.Context, dir string) (*IngestSummary, error) {
	watermark, err := s.Watermark(ctx)
	if err != nil {
		return nil, err
	}

	paths, err := s.selector.Select(dir, watermark)
	if err != nil {
		return nil, err
	}

	summary := &IngestSummary{Watermark: watermark}
	if len(paths) == 0 {
		s.log.Info("no new files", zap.String("dir", dir))
		return summary, nil
	}

	for _, path := range paths {
		stats, err := s.ingestPath(ctx, path)
		result := FileResult{Path: path, Stats: stats}
		if err != nil {
			result.Error = err.Error()
			s.log.Error("failed to shred file", zap.String("path", path), zap.Error(err))
		} else {
			s.log.Info("file shredded", zap.String("path", path), zap.Int("shredded", stats.Shredded))
		}
		summary.Files = append(summary.Files, result)
		summary.add(stats)
	}

	s.log.Info("directory shredded",
		zap.String("dir", dir),
		zap.Int("files", len(paths)),
		zap.Int("shredded", summary.Total.Shredded),
		zap.Int("skipped", summary.Total.Skipped))
	return summary, nil
}

func (s *IngestService) ingestPath(ctx context.Context, path string) (shredder.Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return shredder.Stats{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return s.IngestStream(ctx, f)
}
