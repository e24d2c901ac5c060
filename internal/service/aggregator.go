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

var activityStatements = map[model.DimensionKind]struct {
	truncate interfaces.Statement
	query    interfaces.Statement
	insert   interfaces.Statement
}{
	model.DimensionCluster: {interfaces.StmtTruncateClusterActivity, interfaces.StmtSelectClusterActivity, interfaces.StmtInsertClusterActivity},
	model.DimensionQueue:   {interfaces.StmtTruncateQueueActivity, interfaces.StmtSelectQueueActivity, interfaces.StmtInsertQueueActivity},
	model.DimensionGroup:   {interfaces.StmtTruncateGroupActivity, interfaces.StmtSelectGroupActivity, interfaces.StmtInsertGroupActivity},
	model.DimensionUser:    {interfaces.StmtTruncateUserActivity, interfaces.StmtSelectUserActivity, interfaces.StmtInsertUserActivity},
}

// histogram statements for one cpu-bucket table
type histogram struct {
	name     string
	truncate interfaces.Statement
	query    interfaces.Statement
	insert   interfaces.Statement
}

var histograms = []histogram{
	{"cpu_consumption", interfaces.StmtTruncateCpuConsumption, interfaces.StmtCpuConsumption, interfaces.StmtInsertCpuConsumption},
	{"actual_wait_time", interfaces.StmtTruncateActualWaitTime, interfaces.StmtActualWaitTime, interfaces.StmtInsertActualWaitTime},
}

// AggregateReport summary of one full rebuild
type AggregateReport struct {
	Intervals     int                         `json:"intervals"`
	ActivityRows  map[model.DimensionKind]int `json:"activity_rows"`
	DroppedRows   int                         `json:"dropped_rows"`
	FailedQueries int                         `json:"failed_queries"`
	HistogramRows int                         `json:"histogram_rows"`
	EmptyBuckets  int                         `json:"empty_buckets"`
	Resolve       ResolveStats                `json:"resolve"`
	Duration      time.Duration               `json:"duration"`
}

// Aggregator rebuilds every activity rollup and cpu histogram from the persisted events
type Aggregator struct {
	store     interfaces.Store
	resolver  *DimensionResolver
	intervals *IntervalCalculator
	clock     clock.PassiveClock
	log       *zap.Logger
}

// NewAggregator creates an aggregator
func NewAggregator(store interfaces.Store, resolver *DimensionResolver, intervals *IntervalCalculator, clk clock.PassiveClock, log *zap.Logger) *Aggregator {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{
		store:     store,
		resolver:  resolver,
		intervals: intervals,
		clock:     clk,
		log:       log,
	}
}

// Aggregate discards and recomputes the whole reporting dataset.
// Row-level failures are logged and skipped; phase failures wrap model.ErrAggregation.
func (a *Aggregator) Aggregate(ctx context.Context) (*AggregateReport, error) {
	started := a.clock.Now()
	report := &AggregateReport{ActivityRows: make(map[model.DimensionKind]int)}

	dims, resolveStats, err := a.resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve dimensions: %v", model.ErrAggregation, err)
	}
	report.Resolve = resolveStats

	var intervals []model.Interval
	err = a.inTx(ctx, func(ctx context.Context) error {
		var err error
		intervals, err = a.intervals.Rebuild(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: compute intervals: %v", model.ErrAggregation, err)
	}
	report.Intervals = len(intervals)

	err = a.inTx(ctx, func(ctx context.Context) error {
		return a.buildActivity(ctx, dims, intervals, report)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrAggregation, err)
	}
	if err := a.buildHistograms(ctx, dims, intervals, report); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrAggregation, err)
	}

	report.Duration = a.clock.Since(started)
	a.log.Info("aggregation complete",
		zap.Int("intervals", report.Intervals),
		zap.Int("cluster_rows", report.ActivityRows[model.DimensionCluster]),
		zap.Int("queue_rows", report.ActivityRows[model.DimensionQueue]),
		zap.Int("group_rows", report.ActivityRows[model.DimensionGroup]),
		zap.Int("user_rows", report.ActivityRows[model.DimensionUser]),
		zap.Int("dropped_rows", report.DroppedRows),
		zap.Int("histogram_rows", report.HistogramRows),
		zap.Int("empty_buckets", report.EmptyBuckets),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// inTx runs fn in a store transaction when the store supports one, so a failed
// rebuild leaves the previous rows in place
func (a *Aggregator) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx, ok := a.store.(interfaces.Transactor); ok {
		return tx.ExecTx(ctx, fn)
	}
	return fn(ctx)
}

// buildActivity rebuilds Activity together with the four link tables that point into it
func (a *Aggregator) buildActivity(ctx context.Context, dims *Dimensions, intervals []model.Interval, report *AggregateReport) error {
	if _, err := a.store.Delete(ctx, interfaces.StmtTruncateActivity, nil); err != nil {
		return fmt.Errorf("truncate activity: %w", err)
	}

	for _, kind := range model.DimensionKinds() {
		stmts := activityStatements[kind]
		if _, err := a.store.Delete(ctx, stmts.truncate, nil); err != nil {
			return fmt.Errorf("truncate %s activity: %w", kind, err)
		}

		for _, interval := range intervals {
			var records []model.ActivityRecord
			if err := a.store.QueryList(ctx, stmts.query, interval, &records); err != nil {
				report.FailedQueries++
				a.log.Error("failed to summarize activity",
					zap.String("kind", string(kind)), zap.String("interval", interval.Label), zap.Error(err))
				continue
			}
			for i := range records {
				if a.writeActivity(ctx, kind, dims, interval, &records[i]) {
					report.ActivityRows[kind]++
				} else {
					report.DroppedRows++
				}
			}
		}
	}
	return nil
}

// writeActivity persists one activity row and its link row; false when the row was dropped
func (a *Aggregator) writeActivity(ctx context.Context, kind model.DimensionKind, dims *Dimensions, interval model.Interval, rec *model.ActivityRecord) bool {
	link, err := linkFor(kind, dims, rec)
	if err != nil {
		a.log.Error("dropping activity row",
			zap.String("kind", string(kind)), zap.String("interval", interval.Label), zap.Error(err))
		return false
	}

	id, err := a.store.Insert(ctx, interfaces.StmtInsertActivity, rec)
	if err == nil && id == 0 {
		err = model.ErrLoadingFailure
	}
	if err != nil {
		a.log.Error("failed to insert activity row",
			zap.String("kind", string(kind)), zap.String("interval", interval.Label),
			zap.String("host", rec.Host), zap.Error(err))
		return false
	}
	rec.ID = id

	link.IntervalID = interval.ID
	link.ActivityID = id
	if _, err := a.store.Insert(ctx, activityStatements[kind].insert, link); err != nil {
		a.log.Error("failed to insert activity link",
			zap.String("kind", string(kind)), zap.String("interval", interval.Label),
			zap.Int64("activity_id", id), zap.Error(err))
		return false
	}
	return true
}

// linkFor resolves the foreign keys of an activity row
func linkFor(kind model.DimensionKind, dims *Dimensions, rec *model.ActivityRecord) (*model.ActivityLink, error) {
	cluster, ok := dims.Clusters.Get(rec.Host)
	if !ok {
		return nil, fmt.Errorf("%w: cluster %q", model.ErrMissingDimension, rec.Host)
	}
	link := &model.ActivityLink{ClusterID: cluster.ID}

	var name string
	switch kind {
	case model.DimensionCluster:
		link.UserCount = rec.UserCount
		link.GroupCount = rec.GroupCount
		return link, nil
	case model.DimensionQueue:
		name = rec.Queue
		link.UserCount = rec.UserCount
		link.GroupCount = rec.GroupCount
	case model.DimensionGroup:
		name = rec.Group
		link.UserCount = rec.UserCount
	case model.DimensionUser:
		name = rec.User
	}

	d, ok := dims.Table(kind).Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s %q on cluster %q", model.ErrMissingDimension, kind, name, rec.Host)
	}
	link.DimensionID = d.ID
	return link, nil
}

func (a *Aggregator) buildHistograms(ctx context.Context, dims *Dimensions, intervals []model.Interval, report *AggregateReport) error {
	for _, h := range histograms {
		err := a.inTx(ctx, func(ctx context.Context) error {
			return a.buildHistogram(ctx, h, dims, intervals, report)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// buildHistogram truncates one histogram table and writes a row for every cluster, interval and bucket
func (a *Aggregator) buildHistogram(ctx context.Context, h histogram, dims *Dimensions, intervals []model.Interval, report *AggregateReport) error {
	if _, err := a.store.Delete(ctx, h.truncate, nil); err != nil {
		return fmt.Errorf("truncate %s: %w", h.name, err)
	}

	buckets := model.CpuBuckets()
	for _, host := range dims.Clusters.Names() {
		clusterID := dims.Clusters.ID(host)
		for _, interval := range intervals {
			for order, bucket := range buckets {
				row := &model.HistogramRow{
					ClusterID:  clusterID,
					IntervalID: interval.ID,
					Label:      bucket.Label(),
					ViewOrder:  order,
				}

				q := model.BucketQuery{Host: host, Start: interval.Start, End: interval.End, Bucket: bucket}
				var v model.BucketValue
				found, err := a.store.QueryRow(ctx, h.query, q, &v)
				switch {
				case err != nil:
					report.FailedQueries++
					report.EmptyBuckets++
					a.log.Error("failed to compute histogram bucket",
						zap.String("histogram", h.name), zap.String("host", host),
						zap.String("interval", interval.Label), zap.String("bucket", row.Label), zap.Error(err))
				case !found:
					report.EmptyBuckets++
					a.log.Warn("no jobs in histogram bucket",
						zap.String("histogram", h.name), zap.String("host", host),
						zap.String("interval", interval.Label), zap.String("bucket", row.Label))
				default:
					row.Value = v.Value
				}

				if _, err := a.store.Insert(ctx, h.insert, row); err != nil {
					a.log.Error("failed to insert histogram row",
						zap.String("histogram", h.name), zap.String("host", host),
						zap.String("interval", interval.Label), zap.String("bucket", row.Label), zap.Error(err))
					continue
				}
				report.HistogramRows++
			}
		}
	}
	return nil
}
