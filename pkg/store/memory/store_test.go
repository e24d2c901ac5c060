package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pbsacct/internal/model"
	"pbsacct/pkg/interfaces"
)

func endEvent(host, user, group, queue string, start, end int64, cpus int) *model.EventRecord {
	return &model.EventRecord{
		DateKey:           time.Unix(end, 0).UTC(),
		Host:              host,
		EventType:         model.EventTypeEnd,
		User:              user,
		Group:             group,
		Queue:             queue,
		QueueTime:         model.Int64Ptr(start - 30),
		StartTime:         model.Int64Ptr(start),
		EndTime:           model.Int64Ptr(end),
		ResourcesUsedCpus: model.IntPtr(cpus),
		ResourcesUsedCput: model.Int64Ptr(int64(cpus) * (end - start)),
	}
}

func TestStore_EventsAndWatermark(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	var max time.Time
	found, err := s.QueryRow(ctx, interfaces.StmtMaxDate, "", &max)
	require.NoError(t, err)
	assert.False(t, found)

	for i, host := range []string{"c1", "c2", "c1"} {
		id, err := s.Insert(ctx, interfaces.StmtInsertEvent, endEvent(host, "u", "g", "q", int64(1000*i), int64(1000*i+500), 1))
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), id)
	}

	found, err = s.QueryRow(ctx, interfaces.StmtMaxDate, "c2", &max)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(1500), max.Unix())

	found, err = s.QueryRow(ctx, interfaces.StmtMaxDate, "", &max)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(2500), max.Unix())
}

func TestStore_Dimensions(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	id, err := s.Insert(ctx, interfaces.StmtInsertQueue, "batch")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	_, err = s.Insert(ctx, interfaces.StmtInsertQueue, "batch")
	assert.Error(t, err, "names are unique")

	var rows []model.Dimension
	require.NoError(t, s.QueryList(ctx, interfaces.StmtSelectQueues, nil, &rows))
	assert.Equal(t, []model.Dimension{{ID: 1, Name: "batch"}}, rows)

	link := model.Link{LeftID: 1, RightID: 7}
	_, err = s.Insert(ctx, interfaces.StmtInsertQueueClusterLink, link)
	require.NoError(t, err)
	_, err = s.Insert(ctx, interfaces.StmtInsertQueueClusterLink, link)
	assert.Error(t, err, "links are unique")

	n, err := s.Delete(ctx, interfaces.StmtDeleteQueueClusterLink, link)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Empty(t, s.Snapshot().QueueClusterLinks)
}

func TestStore_Observations(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	for _, e := range []*model.EventRecord{
		endEvent("c2", "bob", "", "long", 0, 10, 1),
		endEvent("c1", "alice", "physics", "batch", 0, 10, 1),
		endEvent("c1", "alice", "physics", "batch", 20, 30, 1),
		endEvent("", "ghost", "g", "q", 0, 10, 1),
	} {
		_, err := s.Insert(ctx, interfaces.StmtInsertEvent, e)
		require.NoError(t, err)
	}

	var obs []model.Observation
	require.NoError(t, s.QueryList(ctx, interfaces.StmtSelectClustersFromEvents, nil, &obs))
	assert.Equal(t, []model.Observation{{Host: "c1"}, {Host: "c2"}}, obs)

	require.NoError(t, s.QueryList(ctx, interfaces.StmtSelectGroupsFromEvents, nil, &obs))
	assert.Equal(t, []model.Observation{{Host: "c1", Group: "physics"}}, obs)

	require.NoError(t, s.QueryList(ctx, interfaces.StmtSelectUsersFromEvents, nil, &obs))
	assert.Equal(t, []model.Observation{
		{Host: "c1", User: "alice", Group: "physics", Queue: "batch"},
		{Host: "c2", User: "bob", Queue: "long"},
	}, obs)
}

func TestStore_ActivitySummary(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	for _, e := range []*model.EventRecord{
		endEvent("c1", "alice", "physics", "batch", 100, 200, 2),
		endEvent("c1", "bob", "physics", "batch", 150, 450, 4),
		endEvent("c1", "carol", "", "batch", 5000, 6000, 1), // outside the interval
	} {
		_, err := s.Insert(ctx, interfaces.StmtInsertEvent, e)
		require.NoError(t, err)
	}
	started := endEvent("c1", "dave", "physics", "batch", 100, 200, 8)
	started.EventType = model.EventTypeStart
	_, err := s.Insert(ctx, interfaces.StmtInsertEvent, started)
	require.NoError(t, err)

	interval := model.Interval{Start: time.Unix(0, 0), End: time.Unix(1000, 0)}

	var rows []model.ActivityRecord
	require.NoError(t, s.QueryList(ctx, interfaces.StmtSelectQueueActivity, interval, &rows))
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, "batch", r.Queue)
	assert.Equal(t, int64(2), r.Jobs)
	assert.Equal(t, int64(200+1200), r.Cput)
	assert.Equal(t, int64(1200), r.MaxCput)
	assert.Equal(t, 30.0, r.AvgWait)
	assert.Equal(t, 200.0, r.AvgExect)
	assert.Equal(t, 3.0, r.AvgCpus)
	assert.Equal(t, int64(2), r.UserCount)
	assert.Equal(t, int64(1), r.GroupCount)

	require.NoError(t, s.QueryList(ctx, interfaces.StmtSelectUserActivity, interval, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[0].User)
	assert.Zero(t, rows[0].UserCount)
}

func TestStore_BucketValues(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	for _, e := range []*model.EventRecord{
		endEvent("c1", "a", "g", "q", 100, 200, 3),
		endEvent("c1", "a", "g", "q", 100, 300, 4),
		endEvent("c1", "a", "g", "q", 100, 200, 1024),
		endEvent("c2", "a", "g", "q", 100, 200, 3),
	} {
		_, err := s.Insert(ctx, interfaces.StmtInsertEvent, e)
		require.NoError(t, err)
	}
	buckets := model.CpuBuckets()
	q := model.BucketQuery{Host: "c1", Start: time.Unix(0, 0), End: time.Unix(1000, 0), Bucket: buckets[2]}

	var v model.BucketValue
	found, err := s.QueryRow(ctx, interfaces.StmtCpuConsumption, q, &v)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.BucketValue{Jobs: 2, Value: 300 + 800}, v)

	found, err = s.QueryRow(ctx, interfaces.StmtActualWaitTime, q, &v)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 30.0, v.Value)

	q.Bucket = buckets[10]
	found, err = s.QueryRow(ctx, interfaces.StmtCpuConsumption, q, &v)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(1), v.Jobs)

	q.Bucket = buckets[0]
	found, err = s.QueryRow(ctx, interfaces.StmtCpuConsumption, q, &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_TruncateResetsSequences(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := s.Delete(ctx, interfaces.StmtTruncateActivity, nil)
		require.NoError(t, err)
		id, err := s.Insert(ctx, interfaces.StmtInsertActivity, &model.ActivityRecord{Host: "c1"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), id)

		_, err = s.Delete(ctx, interfaces.StmtTruncateIntervals, nil)
		require.NoError(t, err)
		id, err = s.Insert(ctx, interfaces.StmtInsertInterval, &model.Interval{Label: model.IntervalWeek})
		require.NoError(t, err)
		assert.Equal(t, int64(1), id)
	}
}

func TestStore_Errors(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.Insert(ctx, interfaces.StmtInsertEvent, "not a record")
	var argErr *interfaces.ArgTypeError
	assert.True(t, errors.As(err, &argErr))

	_, err = s.Insert(ctx, interfaces.StmtMaxDate, nil)
	var stmtErr *interfaces.UnsupportedStatementError
	assert.True(t, errors.As(err, &stmtErr))

	_, err = s.QueryRow(ctx, interfaces.StmtInsertEvent, nil, nil)
	assert.True(t, errors.As(err, &stmtErr))

	assert.True(t, errors.As(s.QueryList(ctx, interfaces.StmtDeleteUserGroupLink, nil, nil), &stmtErr))

	_, err = s.Delete(ctx, interfaces.StmtSelectUsers, nil)
	assert.True(t, errors.As(err, &stmtErr))

	assert.NoError(t, s.Close())
}

func TestStore_ExecTxRollsBackOnError(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.Insert(ctx, interfaces.StmtInsertCluster, "c1")
	require.NoError(t, err)
	_, err = s.Insert(ctx, interfaces.StmtInsertActivity, &model.ActivityRecord{Host: "c1", Jobs: 3})
	require.NoError(t, err)
	before := s.Snapshot()

	boom := errors.New("boom")
	err = s.ExecTx(ctx, func(ctx context.Context) error {
		if _, err := s.Delete(ctx, interfaces.StmtTruncateActivity, nil); err != nil {
			return err
		}
		if _, err := s.Insert(ctx, interfaces.StmtInsertCluster, "c2"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, s.Snapshot())

	id, err := s.Insert(ctx, interfaces.StmtInsertCluster, "c2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), id, "sequence restored with the rows")
}

func TestStore_ExecTxKeepsWritesOnSuccess(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.ExecTx(ctx, func(ctx context.Context) error {
		_, err := s.Insert(ctx, interfaces.StmtInsertActivity, &model.ActivityRecord{Host: "c1"})
		return err
	}))
	assert.Len(t, s.Snapshot().Activity, 1)
}
