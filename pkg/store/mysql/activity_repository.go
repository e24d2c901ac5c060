package mysql

import (
	"context"
	"fmt"

	"pbsacct/internal/model"
	mysqlModel "pbsacct/pkg/store/mysql/model"
)

// jobFilter finished jobs whose run overlaps a window; binds window end then window start
const jobFilter = `e.type = 'E'
	  AND e.start IS NOT NULL AND e.end IS NOT NULL
	  AND e.start <= ? AND e.end >= ?`

const waitExpr = `CASE WHEN e.qtime IS NULL THEN 0 ELSE GREATEST(e.start - e.qtime, 0) END`

const activityQuery = `
	SELECT %s,
	  COUNT(*) AS jobs,
	  COALESCE(SUM(e.resources_used_walltime), 0) AS wallt,
	  AVG(COALESCE(e.resources_used_walltime, 0)) AS avg_wallt,
	  COALESCE(MAX(e.resources_used_walltime), 0) AS max_wallt,
	  COALESCE(SUM(e.resources_used_cput), 0) AS cput,
	  AVG(COALESCE(e.resources_used_cput, 0)) AS avg_cput,
	  COALESCE(MAX(e.resources_used_cput), 0) AS max_cput,
	  AVG(COALESCE(e.resources_used_mem, 0)) AS avg_mem,
	  COALESCE(MAX(e.resources_used_mem), 0) AS max_mem,
	  AVG(COALESCE(e.resources_used_vmem, 0)) AS avg_vmem,
	  COALESCE(MAX(e.resources_used_vmem), 0) AS max_vmem,
	  AVG(` + waitExpr + `) AS avg_wait,
	  AVG(GREATEST(e.end - e.start, 0)) AS avg_exect,
	  AVG(COALESCE(e.resources_used_nodes, 0)) AS avg_nodes,
	  COALESCE(MAX(e.resources_used_nodes), 0) AS max_nodes,
	  AVG(COALESCE(e.resources_used_cpus, 0)) AS avg_cpus,
	  COALESCE(MAX(e.resources_used_cpus), 0) AS max_cpus,
	  COUNT(DISTINCT NULLIF(e.user, '')) AS user_count,
	  COUNT(DISTINCT NULLIF(e.group, '')) AS group_count
	FROM event e
	WHERE ` + jobFilter + `%s
	GROUP BY %s
	ORDER BY %s`

// activityShape select list, extra filter and grouping of one rollup
type activityShape struct {
	columns string
	filter  string
	groupBy string
}

var activityShapes = map[model.DimensionKind]activityShape{
	model.DimensionCluster: {columns: "e.host", groupBy: "e.host"},
	model.DimensionQueue:   {columns: "e.host, e.queue", filter: " AND e.queue <> ''", groupBy: "e.host, e.queue"},
	model.DimensionGroup:   {columns: "e.host, e.group AS group_name", filter: " AND e.group <> ''", groupBy: "e.host, e.group"},
	model.DimensionUser:    {columns: "e.host, e.user", filter: " AND e.user <> ''", groupBy: "e.host, e.user"},
}

var activityLinkTables = map[model.DimensionKind]string{
	model.DimensionCluster: "cluster_activity",
	model.DimensionQueue:   "queue_activity",
	model.DimensionGroup:   "group_activity",
	model.DimensionUser:    "user_activity",
}

const (
	histogramCpuConsumption = "cpu_consumption"
	histogramActualWaitTime = "actual_wait_time"
)

// histogramValues value expression of each histogram over its bucket's jobs
var histogramValues = map[string]string{
	histogramCpuConsumption: "COALESCE(SUM(COALESCE(e.resources_used_cput, 0)), 0)",
	histogramActualWaitTime: "COALESCE(AVG(" + waitExpr + "), 0)",
}

// ActivityRepository handles intervals, activity rollups and histograms in MySQL
type ActivityRepository struct {
	ds *Datastore
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(ds *Datastore) *ActivityRepository {
	return &ActivityRepository{ds: ds}
}

// TruncateIntervals empties time_interval
func (r *ActivityRepository) TruncateIntervals(ctx context.Context) error {
	return r.ds.truncate(ctx, mysqlModel.TimeInterval{}.TableName())
}

// CreateInterval inserts an interval and returns its generated id
func (r *ActivityRepository) CreateInterval(ctx context.Context, iv *model.Interval) (int64, error) {
	row := FromIntervalDomain(iv)
	if err := r.ds.DB(ctx).Create(row).Error; err != nil {
		return 0, fmt.Errorf("failed to insert interval %s: %w", iv.Label, err)
	}
	return row.IntervalID, nil
}

// TruncateActivity empties activity
func (r *ActivityRepository) TruncateActivity(ctx context.Context) error {
	return r.ds.truncate(ctx, mysqlModel.Activity{}.TableName())
}

// CreateActivity inserts the metrics of rec and returns the activity id
func (r *ActivityRepository) CreateActivity(ctx context.Context, rec *model.ActivityRecord) (int64, error) {
	row := FromActivityDomain(rec)
	if err := r.ds.DB(ctx).Create(row).Error; err != nil {
		return 0, fmt.Errorf("failed to insert activity: %w", err)
	}
	return row.ActivityID, nil
}

// Summarize groups finished jobs overlapping iv by dimension instance
func (r *ActivityRepository) Summarize(ctx context.Context, kind model.DimensionKind, iv model.Interval) ([]model.ActivityRecord, error) {
	shape, ok := activityShapes[kind]
	if !ok {
		return nil, fmt.Errorf("unknown dimension %q", kind)
	}

	query := fmt.Sprintf(activityQuery, shape.columns, shape.filter, shape.groupBy, shape.groupBy)
	var rows []mysqlModel.ActivitySummary
	if err := r.ds.DB(ctx).Raw(query, iv.End.Unix(), iv.Start.Unix()).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to summarize %s activity for %s: %w", kind, iv.Label, err)
	}

	out := make([]model.ActivityRecord, 0, len(rows))
	for i := range rows {
		out = append(out, ToActivityDomain(&rows[i], kind))
	}
	return out, nil
}

// TruncateLinks empties the activity link table of kind
func (r *ActivityRepository) TruncateLinks(ctx context.Context, kind model.DimensionKind) error {
	table, ok := activityLinkTables[kind]
	if !ok {
		return fmt.Errorf("unknown dimension %q", kind)
	}
	return r.ds.truncate(ctx, table)
}

// CreateLink inserts the activity link row of kind
func (r *ActivityRepository) CreateLink(ctx context.Context, kind model.DimensionKind, link *model.ActivityLink) error {
	row := ToActivityLinkRow(kind, link)
	if row == nil {
		return fmt.Errorf("unknown dimension %q", kind)
	}
	if err := r.ds.DB(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to insert %s activity link: %w", kind, err)
	}
	return nil
}

// TruncateHistogram empties a histogram table
func (r *ActivityRepository) TruncateHistogram(ctx context.Context, table string) error {
	return r.ds.truncate(ctx, table)
}

// Bucket computes one histogram bucket. False when no job falls in it.
func (r *ActivityRepository) Bucket(ctx context.Context, table string, q model.BucketQuery) (model.BucketValue, bool, error) {
	valueExpr, ok := histogramValues[table]
	if !ok {
		return model.BucketValue{}, false, fmt.Errorf("unknown histogram %q", table)
	}

	query := "SELECT COUNT(*) AS jobs, " + valueExpr + " AS value FROM event e WHERE e.host = ? AND " +
		jobFilter + " AND e.resources_used_cpus >= ?"
	args := []interface{}{q.Host, q.End.Unix(), q.Start.Unix(), q.Bucket.Min}
	if !q.Bucket.Unbounded() {
		query += " AND e.resources_used_cpus <= ?"
		args = append(args, q.Bucket.Max)
	}

	var stat mysqlModel.BucketStat
	if err := r.ds.DB(ctx).Raw(query, args...).Scan(&stat).Error; err != nil {
		return model.BucketValue{}, false, fmt.Errorf("failed to query %s bucket %s for %s: %w",
			table, q.Bucket.Label(), q.Host, err)
	}
	if stat.Jobs == 0 {
		return model.BucketValue{}, false, nil
	}
	return model.BucketValue{Jobs: stat.Jobs, Value: stat.Value}, true, nil
}

// CreateHistogramRow inserts one bucket row
func (r *ActivityRepository) CreateHistogramRow(ctx context.Context, table string, row *model.HistogramRow) error {
	dbRow := FromHistogramDomain(table, row)
	if dbRow == nil {
		return fmt.Errorf("unknown histogram %q", table)
	}
	if err := r.ds.DB(ctx).Create(dbRow).Error; err != nil {
		return fmt.Errorf("failed to insert %s row %s: %w", table, row.Label, err)
	}
	return nil
}
