package shredder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"pbsacct/internal/model"
	"pbsacct/pkg/interfaces"

	"go.uber.org/zap"
)

const (
	readBufferSize = 64 * 1024
	maxLineSize    = 1024 * 1024
)

// Stats counters for one shredded stream
type Stats struct {
	Lines    int `json:"lines"`
	Shredded int `json:"shredded"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"` // parsed but not persisted
}

// Shredder writes parsed accounting lines to the store
type Shredder struct {
	parser *Parser
	store  interfaces.Store
	log    *zap.Logger
}

// NewShredder creates a shredder
func NewShredder(parser *Parser, store interfaces.Store, log *zap.Logger) *Shredder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Shredder{
		parser: parser,
		store:  store,
		log:    log,
	}
}

// Parser returns the line parser
func (s *Shredder) Parser() *Parser {
	return s.parser
}

// Shred reads r line by line and returns the number of records persisted.
// Bad lines and failed inserts are logged and skipped; only a read error aborts.
func (s *Shredder) Shred(ctx context.Context, r io.Reader) (int, error) {
	stats, err := s.ShredWithStats(ctx, r)
	return stats.Shredded, err
}

// ShredWithStats is Shred returning the full counters
func (s *Shredder) ShredWithStats(ctx context.Context, r io.Reader) (Stats, error) {
	var stats Stats

	reader := bufio.NewReaderSize(r, readBufferSize)
	for {
		line, tooLong, err := readLine(reader)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read accounting log: %w", err)
		}
		stats.Lines++

		if tooLong {
			stats.Skipped++
			s.log.Warn("accounting line too long",
				zap.Int("line", stats.Lines), zap.Int("max_bytes", maxLineSize))
			continue
		}

		parsed, err := s.parser.ParseLine(line)
		if err != nil {
			stats.Skipped++
			s.log.Error("malformed accounting line",
				zap.Int("line", stats.Lines), zap.String("text", line), zap.Error(err))
			continue
		}

		eventID, err := s.load(ctx, parsed.Record)
		if err != nil {
			stats.Failed++
			s.log.Error("failed to load event record",
				zap.Int64("job_id", parsed.Record.JobID), zap.String("host", parsed.Record.Host), zap.Error(err))
			continue
		}
		stats.Shredded++

		s.logHosts(ctx, eventID, parsed.Hosts)
	}

	s.log.Info("shredded accounting log",
		zap.Int("lines", stats.Lines),
		zap.Int("shredded", stats.Shredded),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed))
	return stats, nil
}

// readLine returns the next line without its terminator. A line longer than
// maxLineSize is drained and reported as tooLong with an empty text.
func readLine(r *bufio.Reader) (string, bool, error) {
	var (
		buf     []byte
		tooLong bool
	)
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && (len(buf) > 0 || tooLong) {
				return string(buf), tooLong, nil
			}
			return "", false, err
		}
		if !tooLong {
			if len(buf)+len(chunk) > maxLineSize {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			return string(buf), tooLong, nil
		}
	}
}

func (s *Shredder) load(ctx context.Context, rec *model.EventRecord) (int64, error) {
	id, err := s.store.Insert(ctx, interfaces.StmtInsertEvent, rec)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrLoadingFailure, err)
	}
	if id == 0 {
		return 0, fmt.Errorf("%w: generated id was empty", model.ErrLoadingFailure)
	}
	rec.ID = id
	return id, nil
}

// logHosts records which hosts the job ran on
func (s *Shredder) logHosts(ctx context.Context, eventID int64, hosts []HostCPU) {
	for _, h := range hosts {
		usage := &model.HostUsage{EventID: eventID, Host: h.Host, CPU: h.CPU}
		if _, err := s.store.Insert(ctx, interfaces.StmtInsertHostLog, usage); err != nil {
			s.log.Error("failed to log host activity",
				zap.Int64("event_id", eventID), zap.String("host", h.Host), zap.Error(err))
		}
	}
}
