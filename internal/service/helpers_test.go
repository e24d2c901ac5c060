package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pbsacct/internal/model"
	"pbsacct/pkg/interfaces"
	"pbsacct/pkg/store/memory"
)

// 2026-10-15 10:00:00 UTC
var t0 = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC).Unix()

// runAt the fake "now" used by aggregation tests: reference date is 2026-10-17
var runAt = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type jobSpec struct {
	host, user, group, queue string
	eventType                model.EventType
	qtime, start, end        int64
	cpus                     int
	nodes                    int
	cput, wallt              int64
	mem, vmem                int64
}

func (j jobSpec) record() *model.EventRecord {
	et := j.eventType
	if et == model.EventTypeUnknown {
		et = model.EventTypeEnd
	}
	nodes := j.nodes
	if nodes == 0 {
		nodes = 1
	}
	return &model.EventRecord{
		DateKey:               time.Unix(j.end, 0).UTC(),
		JobID:                 j.start,
		Host:                  j.host,
		EventType:             et,
		User:                  j.user,
		Group:                 j.group,
		Queue:                 j.queue,
		QueueTime:             model.Int64Ptr(j.qtime),
		StartTime:             model.Int64Ptr(j.start),
		EndTime:               model.Int64Ptr(j.end),
		ResourcesUsedCpus:     model.IntPtr(j.cpus),
		ResourcesUsedNodes:    model.IntPtr(nodes),
		ResourcesUsedCput:     model.Int64Ptr(j.cput),
		ResourcesUsedWalltime: model.Int64Ptr(j.wallt),
		ResourcesUsedMem:      model.Int64Ptr(j.mem),
		ResourcesUsedVmem:     model.Int64Ptr(j.vmem),
	}
}

// fixtureJobs two week-old jobs on c1, one June job on c2 and a started-only job on c1
func fixtureJobs() []jobSpec {
	june := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC).Unix()
	return []jobSpec{
		{host: "c1", user: "alice", group: "physics", queue: "batch",
			qtime: t0 - 100, start: t0, end: t0 + 3600, cpus: 1, cput: 3600, wallt: 3600, mem: 1024, vmem: 2048},
		{host: "c1", user: "bob", group: "chem", queue: "batch",
			qtime: t0 - 300, start: t0, end: t0 + 7200, cpus: 4, cput: 7200, wallt: 7200, mem: 4096, vmem: 8192},
		{host: "c2", user: "alice", group: "physics", queue: "long",
			qtime: june - 60, start: june, end: june + 600, cpus: 600, nodes: 5, cput: 360000, wallt: 600, mem: 1 << 20, vmem: 1 << 21},
		{host: "c1", user: "carol", group: "chem", queue: "debug", eventType: model.EventTypeStart,
			qtime: t0, start: t0 + 10, end: t0 + 20, cpus: 2, cput: 0, wallt: 0},
	}
}

func seedJobs(t *testing.T, store interfaces.Store, jobs ...jobSpec) {
	t.Helper()
	for _, j := range jobs {
		id, err := store.Insert(context.Background(), interfaces.StmtInsertEvent, j.record())
		require.NoError(t, err)
		require.NotZero(t, id)
	}
}

// faultyStore fails selected statements and delegates the rest
type faultyStore struct {
	*memory.Store
	fail map[interfaces.Statement]error
}

func newFaultyStore(fail map[interfaces.Statement]error) *faultyStore {
	return &faultyStore{Store: memory.NewStore(), fail: fail}
}

func (f *faultyStore) Insert(ctx context.Context, stmt interfaces.Statement, arg interface{}) (int64, error) {
	if err := f.fail[stmt]; err != nil {
		return 0, err
	}
	return f.Store.Insert(ctx, stmt, arg)
}

func (f *faultyStore) QueryRow(ctx context.Context, stmt interfaces.Statement, arg interface{}, dest interface{}) (bool, error) {
	if err := f.fail[stmt]; err != nil {
		return false, err
	}
	return f.Store.QueryRow(ctx, stmt, arg, dest)
}

func (f *faultyStore) QueryList(ctx context.Context, stmt interfaces.Statement, arg interface{}, dest interface{}) error {
	if err := f.fail[stmt]; err != nil {
		return err
	}
	return f.Store.QueryList(ctx, stmt, arg, dest)
}

func (f *faultyStore) Delete(ctx context.Context, stmt interfaces.Statement, arg interface{}) (int64, error) {
	if err := f.fail[stmt]; err != nil {
		return 0, err
	}
	return f.Store.Delete(ctx, stmt, arg)
}
