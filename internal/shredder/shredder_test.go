package shredder

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pbsacct/internal/model"
	"pbsacct/pkg/interfaces"
	"pbsacct/pkg/store/memory"
)

// flakyStore fails event inserts for selected job ids
type flakyStore struct {
	*memory.Store
	failJobs  map[int64]bool
	zeroID    bool
	failHosts bool
}

func (f *flakyStore) Insert(ctx context.Context, stmt interfaces.Statement, arg interface{}) (int64, error) {
	switch stmt {
	case interfaces.StmtInsertEvent:
		rec := arg.(*model.EventRecord)
		if f.failJobs[rec.JobID] {
			return 0, errors.New("deadlock found")
		}
		if f.zeroID {
			return 0, nil
		}
	case interfaces.StmtInsertHostLog:
		if f.failHosts {
			return 0, errors.New("table is full")
		}
	}
	return f.Store.Insert(ctx, stmt, arg)
}

type failingReader struct {
	data string
	done bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.done {
		r.done = true
		return copy(p, r.data), nil
	}
	return 0, errors.New("disk unplugged")
}

const sampleLog = `10/15/2026 09:00:00;Q;1.c1;queue=batch
10/15/2026 09:00:01;Q
10/15/2026 09:05:00;S;1.c1;user=alice queue=batch exec_host=n1/0+n2/0
10/15/2026 10:00:00;E;1.c1;user=alice queue=batch exec_host=n1/0+n2/0 resources_used.walltime=00:55:00
not;a;valid.line
`

func TestShredder_Shred(t *testing.T) {
	store := memory.NewStore()
	sh := NewShredder(newTestParser(), store, nil)

	stats, err := sh.ShredWithStats(context.Background(), strings.NewReader(sampleLog))
	require.NoError(t, err)
	assert.Equal(t, Stats{Lines: 5, Shredded: 3, Skipped: 2}, stats)

	tables := store.Snapshot()
	require.Len(t, tables.Events, 3)
	assert.Equal(t, model.EventTypeQueue, tables.Events[0].EventType)
	assert.Equal(t, model.EventTypeEnd, tables.Events[2].EventType)
	assert.Equal(t, int64(3300), *tables.Events[2].ResourcesUsedWalltime)

	require.Len(t, tables.HostLogs, 4)
	assert.Equal(t, model.HostUsage{EventID: 2, Host: "n1", CPU: 0}, tables.HostLogs[0])
	assert.Equal(t, model.HostUsage{EventID: 3, Host: "n2", CPU: 0}, tables.HostLogs[3])
}

func TestShredder_BadLineDoesNotStopStream(t *testing.T) {
	sh := NewShredder(newTestParser(), memory.NewStore(), nil)

	n, err := sh.Shred(context.Background(), strings.NewReader("a;b\n10/15/2026 09:00:00;Q;7.c1\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestShredder_LoadingFailures(t *testing.T) {
	store := &flakyStore{Store: memory.NewStore(), failJobs: map[int64]bool{1: true}}
	sh := NewShredder(newTestParser(), store, nil)

	stats, err := sh.ShredWithStats(context.Background(), strings.NewReader(
		"10/15/2026 09:00:00;E;1.c1;exec_host=n1/0\n10/15/2026 09:00:00;E;2.c1;exec_host=n1/0\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Shredded)
	assert.Equal(t, 1, stats.Failed)

	tables := store.Snapshot()
	require.Len(t, tables.HostLogs, 1, "host rows follow only acknowledged events")
	assert.Equal(t, tables.Events[0].ID, tables.HostLogs[0].EventID)
}

func TestShredder_EmptyGeneratedID(t *testing.T) {
	store := &flakyStore{Store: memory.NewStore(), zeroID: true}
	sh := NewShredder(newTestParser(), store, nil)

	stats, err := sh.ShredWithStats(context.Background(), strings.NewReader("10/15/2026 09:00:00;E;1.c1;exec_host=n1/0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Shredded)
	assert.Equal(t, 1, stats.Failed)
	assert.Empty(t, store.Snapshot().HostLogs)
}

func TestShredder_HostLogFailureKeepsEvent(t *testing.T) {
	store := &flakyStore{Store: memory.NewStore(), failHosts: true}
	sh := NewShredder(newTestParser(), store, nil)

	n, err := sh.Shred(context.Background(), strings.NewReader("10/15/2026 09:00:00;E;1.c1;exec_host=n1/0\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, store.Snapshot().Events, 1)
}

func TestShredder_ReadErrorIsFatal(t *testing.T) {
	sh := NewShredder(newTestParser(), memory.NewStore(), nil)

	stats, err := sh.ShredWithStats(context.Background(), &failingReader{data: "10/15/2026 09:00:00;Q;1.c1\n"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk unplugged")
	assert.Equal(t, 1, stats.Shredded)
}

func TestShredder_OverlongLineIsSkipped(t *testing.T) {
	store := memory.NewStore()
	sh := NewShredder(newTestParser(), store, nil)

	input := strings.Join([]string{
		"10/15/2026 09:00:00;Q;1.c1;queue=batch",
		"10/15/2026 09:00:00;Q;2.c1;queue=" + strings.Repeat("x", 2*maxLineSize),
		"10/15/2026 09:00:00;Q;3.c1;queue=batch",
		"10/15/2026 09:00:00;Q;4.c1;queue=batch",
	}, "\n")

	stats, err := sh.ShredWithStats(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, Stats{Lines: 4, Shredded: 3, Skipped: 1}, stats)

	tables := store.Snapshot()
	require.Len(t, tables.Events, 3)
	assert.Equal(t, int64(4), tables.Events[2].JobID)
}

func TestShredder_LineAtSizeLimitIsParsed(t *testing.T) {
	prefix := "10/15/2026 09:00:00;Q;1.c1;queue="
	line := prefix + strings.Repeat("q", maxLineSize-len(prefix))
	require.Len(t, line, maxLineSize)

	sh := NewShredder(newTestParser(), memory.NewStore(), nil)
	stats, err := sh.ShredWithStats(context.Background(), strings.NewReader(line+"\r\n"))
	require.NoError(t, err)
	assert.Equal(t, Stats{Lines: 1, Shredded: 1}, stats)
}
