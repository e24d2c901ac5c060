package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pbsacct/internal/model"
	"pbsacct/pkg/interfaces"
)

// Tables copy of every table held by a Store
type Tables struct {
	Events   []model.EventRecord
	HostLogs []model.HostUsage

	Clusters []model.Dimension
	Queues   []model.Dimension
	Groups   []model.Dimension
	Users    []model.Dimension

	QueueClusterLinks []model.Link
	GroupClusterLinks []model.Link
	UserClusterLinks  []model.Link
	UserGroupLinks    []model.Link
	UserQueueLinks    []model.Link

	Intervals       []model.Interval
	Activity        []model.ActivityRecord
	ClusterActivity []model.ActivityLink
	QueueActivity   []model.ActivityLink
	GroupActivity   []model.ActivityLink
	UserActivity    []model.ActivityLink
	CpuConsumption  []model.HistogramRow
	ActualWaitTime  []model.HistogramRow
}

// dimensionTable rows plus the next surrogate id
type dimensionTable struct {
	rows []model.Dimension
	seq  int64
}

func (t *dimensionTable) insert(name string) (int64, error) {
	for _, r := range t.rows {
		if r.Name == name {
			return 0, fmt.Errorf("duplicate entry %q", name)
		}
	}
	t.seq++
	t.rows = append(t.rows, model.Dimension{ID: t.seq, Name: name})
	return t.seq, nil
}

// Store in-process implementation of interfaces.Store.
// Truncation resets the id sequence, matching TRUNCATE TABLE.
type Store struct {
	mu sync.Mutex

	events   []model.EventRecord
	eventSeq int64
	hostLogs []model.HostUsage
	hostSeq  int64

	dimensions map[model.DimensionKind]*dimensionTable
	links      map[interfaces.Statement][]model.Link

	intervals   []model.Interval
	intervalSeq int64
	activity    []model.ActivityRecord
	activitySeq int64

	activityLinks map[model.DimensionKind][]model.ActivityLink
	histograms    map[interfaces.Statement][]model.HistogramRow
}

// NewStore creates an empty store
func NewStore() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.events = nil
	s.eventSeq = 0
	s.hostLogs = nil
	s.hostSeq = 0
	s.dimensions = map[model.DimensionKind]*dimensionTable{
		model.DimensionCluster: {},
		model.DimensionQueue:   {},
		model.DimensionGroup:   {},
		model.DimensionUser:    {},
	}
	s.links = make(map[interfaces.Statement][]model.Link)
	s.intervals = nil
	s.intervalSeq = 0
	s.activity = nil
	s.activitySeq = 0
	s.activityLinks = make(map[model.DimensionKind][]model.ActivityLink)
	s.histograms = make(map[interfaces.Statement][]model.HistogramRow)
}

// ExecTx implements interfaces.Transactor. fn runs against the live tables; when it
// fails the tables are restored to their state before the call, including writes
// other callers made meanwhile.
func (s *Store) ExecTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	saved := s.clone()
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.restore(saved)
		s.mu.Unlock()
		return err
	}
	return nil
}

// clone deep copies every table. Callers hold mu.
func (s *Store) clone() *Store {
	c := &Store{
		events:        append([]model.EventRecord(nil), s.events...),
		eventSeq:      s.eventSeq,
		hostLogs:      append([]model.HostUsage(nil), s.hostLogs...),
		hostSeq:       s.hostSeq,
		dimensions:    make(map[model.DimensionKind]*dimensionTable, len(s.dimensions)),
		links:         make(map[interfaces.Statement][]model.Link, len(s.links)),
		intervals:     append([]model.Interval(nil), s.intervals...),
		intervalSeq:   s.intervalSeq,
		activity:      append([]model.ActivityRecord(nil), s.activity...),
		activitySeq:   s.activitySeq,
		activityLinks: make(map[model.DimensionKind][]model.ActivityLink, len(s.activityLinks)),
		histograms:    make(map[interfaces.Statement][]model.HistogramRow, len(s.histograms)),
	}
	for kind, t := range s.dimensions {
		c.dimensions[kind] = &dimensionTable{rows: append([]model.Dimension(nil), t.rows...), seq: t.seq}
	}
	for stmt, rows := range s.links {
		c.links[stmt] = append([]model.Link(nil), rows...)
	}
	for kind, rows := range s.activityLinks {
		c.activityLinks[kind] = append([]model.ActivityLink(nil), rows...)
	}
	for stmt, rows := range s.histograms {
		c.histograms[stmt] = append([]model.HistogramRow(nil), rows...)
	}
	return c
}

// restore swaps in the tables of a clone. Callers hold mu.
func (s *Store) restore(c *Store) {
	s.events, s.eventSeq = c.events, c.eventSeq
	s.hostLogs, s.hostSeq = c.hostLogs, c.hostSeq
	s.dimensions = c.dimensions
	s.links = c.links
	s.intervals, s.intervalSeq = c.intervals, c.intervalSeq
	s.activity, s.activitySeq = c.activity, c.activitySeq
	s.activityLinks = c.activityLinks
	s.histograms = c.histograms
}

// Close implements interfaces.Store
func (s *Store) Close() error {
	return nil
}

// Snapshot returns a copy of every table
func (s *Store) Snapshot() Tables {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Tables{
		Events:            append([]model.EventRecord(nil), s.events...),
		HostLogs:          append([]model.HostUsage(nil), s.hostLogs...),
		Clusters:          append([]model.Dimension(nil), s.dimensions[model.DimensionCluster].rows...),
		Queues:            append([]model.Dimension(nil), s.dimensions[model.DimensionQueue].rows...),
		Groups:            append([]model.Dimension(nil), s.dimensions[model.DimensionGroup].rows...),
		Users:             append([]model.Dimension(nil), s.dimensions[model.DimensionUser].rows...),
		QueueClusterLinks: append([]model.Link(nil), s.links[interfaces.StmtInsertQueueClusterLink]...),
		GroupClusterLinks: append([]model.Link(nil), s.links[interfaces.StmtInsertGroupClusterLink]...),
		UserClusterLinks:  append([]model.Link(nil), s.links[interfaces.StmtInsertUserClusterLink]...),
		UserGroupLinks:    append([]model.Link(nil), s.links[interfaces.StmtInsertUserGroupLink]...),
		UserQueueLinks:    append([]model.Link(nil), s.links[interfaces.StmtInsertUserQueueLink]...),
		Intervals:         append([]model.Interval(nil), s.intervals...),
		Activity:          append([]model.ActivityRecord(nil), s.activity...),
		ClusterActivity:   append([]model.ActivityLink(nil), s.activityLinks[model.DimensionCluster]...),
		QueueActivity:     append([]model.ActivityLink(nil), s.activityLinks[model.DimensionQueue]...),
		GroupActivity:     append([]model.ActivityLink(nil), s.activityLinks[model.DimensionGroup]...),
		UserActivity:      append([]model.ActivityLink(nil), s.activityLinks[model.DimensionUser]...),
		CpuConsumption:    append([]model.HistogramRow(nil), s.histograms[interfaces.StmtInsertCpuConsumption]...),
		ActualWaitTime:    append([]model.HistogramRow(nil), s.histograms[interfaces.StmtInsertActualWaitTime]...),
	}
}

var dimensionInserts = map[interfaces.Statement]model.DimensionKind{
	interfaces.StmtInsertCluster: model.DimensionCluster,
	interfaces.StmtInsertQueue:   model.DimensionQueue,
	interfaces.StmtInsertGroup:   model.DimensionGroup,
	interfaces.StmtInsertUser:    model.DimensionUser,
}

var dimensionSelects = map[interfaces.Statement]model.DimensionKind{
	interfaces.StmtSelectClusters: model.DimensionCluster,
	interfaces.StmtSelectQueues:   model.DimensionQueue,
	interfaces.StmtSelectGroups:   model.DimensionGroup,
	interfaces.StmtSelectUsers:    model.DimensionUser,
}

// linkDeletes maps each delete statement to the insert statement naming its table
var linkDeletes = map[interfaces.Statement]interfaces.Statement{
	interfaces.StmtDeleteQueueClusterLink: interfaces.StmtInsertQueueClusterLink,
	interfaces.StmtDeleteGroupClusterLink: interfaces.StmtInsertGroupClusterLink,
	interfaces.StmtDeleteUserClusterLink:  interfaces.StmtInsertUserClusterLink,
	interfaces.StmtDeleteUserGroupLink:    interfaces.StmtInsertUserGroupLink,
	interfaces.StmtDeleteUserQueueLink:    interfaces.StmtInsertUserQueueLink,
}

var linkInserts = map[interfaces.Statement]bool{
	interfaces.StmtInsertQueueClusterLink: true,
	interfaces.StmtInsertGroupClusterLink: true,
	interfaces.StmtInsertUserClusterLink:  true,
	interfaces.StmtInsertUserGroupLink:    true,
	interfaces.StmtInsertUserQueueLink:    true,
}

var activityInserts = map[interfaces.Statement]model.DimensionKind{
	interfaces.StmtInsertClusterActivity: model.DimensionCluster,
	interfaces.StmtInsertQueueActivity:   model.DimensionQueue,
	interfaces.StmtInsertGroupActivity:   model.DimensionGroup,
	interfaces.StmtInsertUserActivity:    model.DimensionUser,
}

var activityTruncates = map[interfaces.Statement]model.DimensionKind{
	interfaces.StmtTruncateClusterActivity: model.DimensionCluster,
	interfaces.StmtTruncateQueueActivity:   model.DimensionQueue,
	interfaces.StmtTruncateGroupActivity:   model.DimensionGroup,
	interfaces.StmtTruncateUserActivity:    model.DimensionUser,
}

var activitySelects = map[interfaces.Statement]model.DimensionKind{
	interfaces.StmtSelectClusterActivity: model.DimensionCluster,
	interfaces.StmtSelectQueueActivity:   model.DimensionQueue,
	interfaces.StmtSelectGroupActivity:   model.DimensionGroup,
	interfaces.StmtSelectUserActivity:    model.DimensionUser,
}

// Insert implements interfaces.Store
func (s *Store) Insert(ctx context.Context, stmt interfaces.Statement, arg interface{}) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kind, ok := dimensionInserts[stmt]; ok {
		name, ok := arg.(string)
		if !ok {
			return 0, &interfaces.ArgTypeError{Stmt: stmt, Want: "string", Got: arg}
		}
		return s.dimensions[kind].insert(name)
	}
	if linkInserts[stmt] {
		link, ok := arg.(model.Link)
		if !ok {
			return 0, &interfaces.ArgTypeError{Stmt: stmt, Want: "model.Link", Got: arg}
		}
		for _, l := range s.links[stmt] {
			if l == link {
				return 0, fmt.Errorf("%s: duplicate link %+v", stmt, link)
			}
		}
		s.links[stmt] = append(s.links[stmt], link)
		return 0, nil
	}
	if kind, ok := activityInserts[stmt]; ok {
		link, ok := arg.(*model.ActivityLink)
		if !ok {
			return 0, &interfaces.ArgTypeError{Stmt: stmt, Want: "*model.ActivityLink", Got: arg}
		}
		s.activityLinks[kind] = append(s.activityLinks[kind], *link)
		return 0, nil
	}

	switch stmt {
	case interfaces.StmtInsertEvent:
		rec, ok := arg.(*model.EventRecord)
		if !ok {
			return 0, &interfaces.ArgTypeError{Stmt: stmt, Want: "*model.EventRecord", Got: arg}
		}
		s.eventSeq++
		row := *rec
		row.ID = s.eventSeq
		s.events = append(s.events, row)
		return s.eventSeq, nil

	case interfaces.StmtInsertHostLog:
		usage, ok := arg.(*model.HostUsage)
		if !ok {
			return 0, &interfaces.ArgTypeError{Stmt: stmt, Want: "*model.HostUsage", Got: arg}
		}
		s.hostSeq++
		s.hostLogs = append(s.hostLogs, *usage)
		return s.hostSeq, nil

	case interfaces.StmtInsertInterval:
		interval, ok := arg.(*model.Interval)
		if !ok {
			return 0, &interfaces.ArgTypeError{Stmt: stmt, Want: "*model.Interval", Got: arg}
		}
		s.intervalSeq++
		row := *interval
		row.ID = s.intervalSeq
		s.intervals = append(s.intervals, row)
		return s.intervalSeq, nil

	case interfaces.StmtInsertActivity:
		rec, ok := arg.(*model.ActivityRecord)
		if !ok {
			return 0, &interfaces.ArgTypeError{Stmt: stmt, Want: "*model.ActivityRecord", Got: arg}
		}
		s.activitySeq++
		row := *rec
		row.ID = s.activitySeq
		s.activity = append(s.activity, row)
		return s.activitySeq, nil

	case interfaces.StmtInsertCpuConsumption, interfaces.StmtInsertActualWaitTime:
		row, ok := arg.(*model.HistogramRow)
		if !ok {
			return 0, &interfaces.ArgTypeError{Stmt: stmt, Want: "*model.HistogramRow", Got: arg}
		}
		s.histograms[stmt] = append(s.histograms[stmt], *row)
		return 0, nil
	}

	return 0, &interfaces.UnsupportedStatementError{Op: "insert", Stmt: stmt}
}

// QueryRow implements interfaces.Store
func (s *Store) QueryRow(ctx context.Context, stmt interfaces.Statement, arg interface{}, dest interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch stmt {
	case interfaces.StmtMaxDate:
		host, ok := arg.(string)
		if !ok {
			return false, &interfaces.ArgTypeError{Stmt: stmt, Want: "string", Got: arg}
		}
		out, ok := dest.(*time.Time)
		if !ok {
			return false, &interfaces.ArgTypeError{Stmt: stmt, Want: "*time.Time", Got: dest}
		}
		var max time.Time
		found := false
		for _, e := range s.events {
			if host != "" && e.Host != host {
				continue
			}
			if !found || e.DateKey.After(max) {
				max = e.DateKey
				found = true
			}
		}
		if found {
			*out = max
		}
		return found, nil

	case interfaces.StmtCpuConsumption, interfaces.StmtActualWaitTime:
		q, ok := arg.(model.BucketQuery)
		if !ok {
			return false, &interfaces.ArgTypeError{Stmt: stmt, Want: "model.BucketQuery", Got: arg}
		}
		out, ok := dest.(*model.BucketValue)
		if !ok {
			return false, &interfaces.ArgTypeError{Stmt: stmt, Want: "*model.BucketValue", Got: dest}
		}
		v := bucketValue(s.events, q, stmt == interfaces.StmtCpuConsumption)
		if v.Jobs == 0 {
			return false, nil
		}
		*out = v
		return true, nil
	}

	return false, &interfaces.UnsupportedStatementError{Op: "query row", Stmt: stmt}
}

// QueryList implements interfaces.Store
func (s *Store) QueryList(ctx context.Context, stmt interfaces.Statement, arg interface{}, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kind, ok := dimensionSelects[stmt]; ok {
		out, ok := dest.(*[]model.Dimension)
		if !ok {
			return &interfaces.ArgTypeError{Stmt: stmt, Want: "*[]model.Dimension", Got: dest}
		}
		*out = append([]model.Dimension(nil), s.dimensions[kind].rows...)
		return nil
	}
	if kind, ok := activitySelects[stmt]; ok {
		interval, ok := arg.(model.Interval)
		if !ok {
			return &interfaces.ArgTypeError{Stmt: stmt, Want: "model.Interval", Got: arg}
		}
		out, ok := dest.(*[]model.ActivityRecord)
		if !ok {
			return &interfaces.ArgTypeError{Stmt: stmt, Want: "*[]model.ActivityRecord", Got: dest}
		}
		*out = summarizeActivity(s.events, kind, interval)
		return nil
	}

	var kind model.DimensionKind
	switch stmt {
	case interfaces.StmtSelectClustersFromEvents:
		kind = model.DimensionCluster
	case interfaces.StmtSelectQueuesFromEvents:
		kind = model.DimensionQueue
	case interfaces.StmtSelectGroupsFromEvents:
		kind = model.DimensionGroup
	case interfaces.StmtSelectUsersFromEvents:
		kind = model.DimensionUser
	default:
		return &interfaces.UnsupportedStatementError{Op: "query list", Stmt: stmt}
	}
	out, ok := dest.(*[]model.Observation)
	if !ok {
		return &interfaces.ArgTypeError{Stmt: stmt, Want: "*[]model.Observation", Got: dest}
	}
	*out = observe(s.events, kind)
	return nil
}

// Delete implements interfaces.Store
func (s *Store) Delete(ctx context.Context, stmt interfaces.Statement, arg interface{}) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if table, ok := linkDeletes[stmt]; ok {
		link, ok := arg.(model.Link)
		if !ok {
			return 0, &interfaces.ArgTypeError{Stmt: stmt, Want: "model.Link", Got: arg}
		}
		kept := s.links[table][:0]
		var n int64
		for _, l := range s.links[table] {
			if l == link {
				n++
				continue
			}
			kept = append(kept, l)
		}
		s.links[table] = kept
		return n, nil
	}
	if kind, ok := activityTruncates[stmt]; ok {
		n := int64(len(s.activityLinks[kind]))
		s.activityLinks[kind] = nil
		return n, nil
	}

	switch stmt {
	case interfaces.StmtTruncateIntervals:
		n := int64(len(s.intervals))
		s.intervals = nil
		s.intervalSeq = 0
		return n, nil
	case interfaces.StmtTruncateActivity:
		n := int64(len(s.activity))
		s.activity = nil
		s.activitySeq = 0
		return n, nil
	case interfaces.StmtTruncateCpuConsumption:
		n := int64(len(s.histograms[interfaces.StmtInsertCpuConsumption]))
		delete(s.histograms, interfaces.StmtInsertCpuConsumption)
		return n, nil
	case interfaces.StmtTruncateActualWaitTime:
		n := int64(len(s.histograms[interfaces.StmtInsertActualWaitTime]))
		delete(s.histograms, interfaces.StmtInsertActualWaitTime)
		return n, nil
	}

	return 0, &interfaces.UnsupportedStatementError{Op: "delete", Stmt: stmt}
}
