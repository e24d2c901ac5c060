package mysql

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pbsacct/internal/model"
	"pbsacct/pkg/interfaces"
	mysqlModel "pbsacct/pkg/store/mysql/model"
)

// every statement must be routed by exactly one operation category
func TestStore_StatementCoverage(t *testing.T) {
	routed := map[interfaces.Statement]int{}
	count := func(n int, stmts ...interfaces.Statement) {
		for _, s := range stmts {
			routed[s] += n
		}
	}
	for _, m := range []map[interfaces.Statement]model.DimensionKind{
		dimensionInsertStmts, dimensionSelectStmts, observationStmts,
		activitySelectStmts, activityInsertStmts, activityTruncateStmts,
	} {
		for s := range m {
			count(1, s)
		}
	}
	for _, m := range []map[interfaces.Statement]string{
		linkInsertStmts, linkDeleteStmts,
		histogramQueryStmts, histogramInsertStmts, histogramTruncateStmts,
	} {
		for s := range m {
			count(1, s)
		}
	}
	count(1,
		interfaces.StmtInsertEvent, interfaces.StmtInsertHostLog, interfaces.StmtMaxDate,
		interfaces.StmtTruncateIntervals, interfaces.StmtInsertInterval,
		interfaces.StmtTruncateActivity, interfaces.StmtInsertActivity,
	)

	for stmt := interfaces.StmtInsertEvent; stmt <= interfaces.StmtInsertActualWaitTime; stmt++ {
		assert.Equal(t, 1, routed[stmt], stmt.String())
	}
}

func TestStore_ArgumentTypes(t *testing.T) {
	s := &Store{}
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
	}{
		{"event", func() error { _, err := s.Insert(ctx, interfaces.StmtInsertEvent, model.EventRecord{}); return err }},
		{"host log", func() error { _, err := s.Insert(ctx, interfaces.StmtInsertHostLog, "n1"); return err }},
		{"dimension", func() error { _, err := s.Insert(ctx, interfaces.StmtInsertQueue, 7); return err }},
		{"link", func() error { _, err := s.Insert(ctx, interfaces.StmtInsertUserGroupLink, &model.Link{}); return err }},
		{"activity link", func() error {
			_, err := s.Insert(ctx, interfaces.StmtInsertUserActivity, model.ActivityLink{})
			return err
		}},
		{"histogram row", func() error {
			_, err := s.Insert(ctx, interfaces.StmtInsertCpuConsumption, model.HistogramRow{})
			return err
		}},
		{"max date dest", func() error { _, err := s.QueryRow(ctx, interfaces.StmtMaxDate, "", new(int64)); return err }},
		{"bucket arg", func() error {
			_, err := s.QueryRow(ctx, interfaces.StmtCpuConsumption, &model.BucketQuery{}, &model.BucketValue{})
			return err
		}},
		{"activity dest", func() error {
			return s.QueryList(ctx, interfaces.StmtSelectUserActivity, model.Interval{}, &[]model.Dimension{})
		}},
		{"observation dest", func() error {
			return s.QueryList(ctx, interfaces.StmtSelectUsersFromEvents, nil, &[]model.Dimension{})
		}},
		{"delete link", func() error { _, err := s.Delete(ctx, interfaces.StmtDeleteUserQueueLink, nil); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var argErr *interfaces.ArgTypeError
			assert.True(t, errors.As(tt.run(), &argErr))
		})
	}
}

func TestStore_UnsupportedStatements(t *testing.T) {
	s := &Store{}
	ctx := context.Background()
	var stmtErr *interfaces.UnsupportedStatementError

	_, err := s.Insert(ctx, interfaces.StmtMaxDate, "")
	require.True(t, errors.As(err, &stmtErr))
	assert.Equal(t, "insert", stmtErr.Op)

	_, err = s.QueryRow(ctx, interfaces.StmtInsertUser, nil, nil)
	assert.True(t, errors.As(err, &stmtErr))

	assert.True(t, errors.As(s.QueryList(ctx, interfaces.StmtTruncateActivity, nil, nil), &stmtErr))

	_, err = s.Delete(ctx, interfaces.StmtInsertEvent, nil)
	assert.True(t, errors.As(err, &stmtErr))
}

func TestEventConversion(t *testing.T) {
	rec := &model.EventRecord{
		DateKey:           time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC),
		JobID:             42,
		JobArrayIndex:     model.Int64Ptr(3),
		Host:              "c1",
		EventType:         model.EventTypeEnd,
		User:              "alice",
		Group:             "physics",
		Queue:             "batch",
		StartTime:         model.Int64Ptr(100),
		EndTime:           model.Int64Ptr(200),
		ResourcesUsedCpus: model.IntPtr(4),
		ResourceListNodes: "2:ppn=2",
		ResourcesUsedMem:  model.Int64Ptr(1024),
	}

	row := FromEventDomain(rec)
	assert.Equal(t, "E", row.Type)
	assert.Equal(t, "physics", row.Group)
	assert.Equal(t, int64(100), *row.Start)

	assert.Equal(t, "c1", row.Host)
	assert.Equal(t, int64(1024), *row.ResourcesUsedMem)

	unknown := FromEventDomain(&model.EventRecord{EventType: model.EventTypeUnknown})
	assert.Equal(t, "", unknown.Type)

	assert.Nil(t, FromEventDomain(nil))
}

func TestTruncateStatementInsideTransaction(t *testing.T) {
	assert.Equal(t, "TRUNCATE TABLE `Activity`", truncateStatement("Activity", false))
	assert.Equal(t, "DELETE FROM `Activity`", truncateStatement("Activity", true))
}

func TestActivityConversionKeepsDimensionCounts(t *testing.T) {
	row := &mysqlModel.ActivitySummary{Host: "c1", Jobs: 2, UserCount: 3, GroupCount: 4}

	assert.Equal(t, int64(4), ToActivityDomain(row, model.DimensionCluster).GroupCount)
	assert.Equal(t, int64(3), ToActivityDomain(row, model.DimensionQueue).UserCount)

	group := ToActivityDomain(row, model.DimensionGroup)
	assert.Equal(t, int64(3), group.UserCount)
	assert.Zero(t, group.GroupCount)

	user := ToActivityDomain(row, model.DimensionUser)
	assert.Zero(t, user.UserCount)
	assert.Zero(t, user.GroupCount)
}

func TestActivityLinkRows(t *testing.T) {
	link := &model.ActivityLink{ClusterID: 1, DimensionID: 2, IntervalID: 3, ActivityID: 4, UserCount: 5, GroupCount: 6}

	assert.Equal(t, &mysqlModel.ClusterActivity{ClusterID: 1, IntervalID: 3, ActivityID: 4, UserCount: 5, GroupCount: 6},
		ToActivityLinkRow(model.DimensionCluster, link))
	assert.Equal(t, &mysqlModel.QueueActivity{QueueID: 2, ClusterID: 1, IntervalID: 3, ActivityID: 4, UserCount: 5, GroupCount: 6},
		ToActivityLinkRow(model.DimensionQueue, link))
	assert.Equal(t, &mysqlModel.GroupActivity{GroupID: 2, ClusterID: 1, IntervalID: 3, ActivityID: 4, UserCount: 5},
		ToActivityLinkRow(model.DimensionGroup, link))
	assert.Equal(t, &mysqlModel.UserActivity{UserID: 2, ClusterID: 1, IntervalID: 3, ActivityID: 4},
		ToActivityLinkRow(model.DimensionUser, link))
	assert.Nil(t, ToActivityLinkRow("project", link))
}

func TestDimensionAndLinkRows(t *testing.T) {
	for _, kind := range model.DimensionKinds() {
		assert.NotNil(t, ToDimensionRow(kind, "x"), kind)
	}
	assert.Nil(t, ToDimensionRow("project", "x"))

	for table := range linkColumns {
		assert.NotNil(t, ToLinkRow(table, model.Link{LeftID: 1, RightID: 2}), table)
	}
	assert.Equal(t, &mysqlModel.UserGroup{UserID: 1, GroupID: 2}, ToLinkRow(linkUserGroup, model.Link{LeftID: 1, RightID: 2}))
}

func TestHistogramRows(t *testing.T) {
	row := &model.HistogramRow{ClusterID: 1, IntervalID: 2, Label: "3-4", ViewOrder: 2, Value: 7.5}

	assert.Equal(t, &mysqlModel.CpuConsumption{ClusterID: 1, IntervalID: 2, ViewOrder: 2, Label: "3-4", Cput: 7.5},
		FromHistogramDomain(histogramCpuConsumption, row))
	assert.Equal(t, &mysqlModel.ActualWaitTime{ClusterID: 1, IntervalID: 2, ViewOrder: 2, Label: "3-4", AvgWait: 7.5},
		FromHistogramDomain(histogramActualWaitTime, row))
	assert.Nil(t, FromHistogramDomain("wall_time", row))
}

func TestActivityQueryShapes(t *testing.T) {
	for kind, shape := range activityShapes {
		assert.True(t, strings.HasPrefix(shape.columns, "e.host"), kind)
		assert.Contains(t, shape.groupBy, "e.host", kind)
	}
	assert.Contains(t, activityShapes[model.DimensionGroup].columns, "AS group_name")
	assert.Empty(t, activityShapes[model.DimensionCluster].filter)
}

func TestDSN(t *testing.T) {
	assert.Equal(t,
		"acct:secret@tcp(db:3306)/ubmod?charset=utf8mb4&parseTime=True&loc=UTC",
		DSN("acct", "secret", "db", 3306, "ubmod"))
}
