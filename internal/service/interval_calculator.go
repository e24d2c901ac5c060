package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"pbsacct/internal/model"
	"pbsacct/pkg/interfaces"
)

// DefaultEndOffsetDays intervals end on the day before the run
const DefaultEndOffsetDays = 1

// intervalWindows start offsets in days relative to the reference date, in insert order
var intervalWindows = []struct {
	label  string
	offset int
}{
	{model.IntervalWeek, -7},
	{model.IntervalMonth, -30},
	{model.IntervalQuarter, -84},
	{model.IntervalYear, -365},
}

// IntervalCalculator derives the trailing reporting windows and rewrites the interval table
type IntervalCalculator struct {
	store         interfaces.Store
	clock         clock.PassiveClock
	location      *time.Location
	endOffsetDays int
	log           *zap.Logger
}

// NewIntervalCalculator creates a calculator. endOffsetDays < 0 falls back to the default.
func NewIntervalCalculator(store interfaces.Store, clk clock.PassiveClock, loc *time.Location, endOffsetDays int, log *zap.Logger) *IntervalCalculator {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if loc == nil {
		loc = time.Local
	}
	if endOffsetDays < 0 {
		endOffsetDays = DefaultEndOffsetDays
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &IntervalCalculator{
		store:         store,
		clock:         clk,
		location:      loc,
		endOffsetDays: endOffsetDays,
		log:           log,
	}
}

// Reference returns the reference date: now minus the end offset
func (c *IntervalCalculator) Reference() time.Time {
	return c.clock.Now().In(c.location).AddDate(0, 0, -c.endOffsetDays)
}

// Compute returns the four windows ending on ref's date. IDs are left unset.
func (c *IntervalCalculator) Compute(ref time.Time) []model.Interval {
	ref = ref.In(c.location)
	y, m, d := ref.Date()
	end := time.Date(y, m, d, 23, 59, 59, 0, c.location)

	intervals := make([]model.Interval, 0, len(intervalWindows))
	for _, w := range intervalWindows {
		sy, sm, sd := time.Date(y, m, d, 0, 0, 0, 0, c.location).AddDate(0, 0, w.offset).Date()
		intervals = append(intervals, model.Interval{
			Label: w.label,
			Start: time.Date(sy, sm, sd, 0, 0, 0, 0, c.location),
			End:   end,
		})
	}
	return intervals
}

// Rebuild truncates the interval table and inserts the windows for the current reference date
func (c *IntervalCalculator) Rebuild(ctx context.Context) ([]model.Interval, error) {
	if _, err := c.store.Delete(ctx, interfaces.StmtTruncateIntervals, nil); err != nil {
		return nil, fmt.Errorf("failed to truncate intervals: %w", err)
	}

	intervals := c.Compute(c.Reference())
	for i := range intervals {
		id, err := c.store.Insert(ctx, interfaces.StmtInsertInterval, &intervals[i])
		if err != nil {
			return nil, fmt.Errorf("failed to insert interval %s: %w", intervals[i].Label, err)
		}
		if id == 0 {
			return nil, fmt.Errorf("failed to insert interval %s: %w", intervals[i].Label, model.ErrLoadingFailure)
		}
		intervals[i].ID = id
		c.log.Debug("interval inserted",
			zap.String("label", intervals[i].Label),
			zap.Time("start", intervals[i].Start),
			zap.Time("end", intervals[i].End))
	}
	return intervals, nil
}
