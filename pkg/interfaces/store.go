package interfaces

import (
	"context"
	"fmt"
)

// Statement identifies one named persistence operation.
// The comment on each constant lists the argument and destination types it expects.
type Statement int

const (
	// Raw events

	StmtInsertEvent    Statement = iota + 1 // Insert: *model.EventRecord -> event id
	StmtInsertHostLog                       // Insert: *model.HostUsage -> host log id
	StmtMaxDate                             // QueryRow: host string ("" for all hosts), dest *time.Time

	// Dimension tables

	StmtSelectClusters // QueryList: nil, dest *[]model.Dimension (name = host)
	StmtSelectQueues   // QueryList: nil, dest *[]model.Dimension
	StmtSelectGroups   // QueryList: nil, dest *[]model.Dimension
	StmtSelectUsers    // QueryList: nil, dest *[]model.Dimension

	StmtSelectClustersFromEvents // QueryList: nil, dest *[]model.Observation{Host}
	StmtSelectQueuesFromEvents   // QueryList: nil, dest *[]model.Observation{Host, Queue}
	StmtSelectGroupsFromEvents   // QueryList: nil, dest *[]model.Observation{Host, Group}
	StmtSelectUsersFromEvents    // QueryList: nil, dest *[]model.Observation{Host, Group, Queue, User}

	StmtInsertCluster // Insert: name string -> cluster id
	StmtInsertQueue   // Insert: name string -> queue id
	StmtInsertGroup   // Insert: name string -> group id
	StmtInsertUser    // Insert: name string -> user id

	// Dimension association links; arg model.Link{LeftID, RightID}

	StmtDeleteQueueClusterLink // Delete: {queue, cluster}
	StmtInsertQueueClusterLink // Insert: {queue, cluster}
	StmtDeleteGroupClusterLink // Delete: {group, cluster}
	StmtInsertGroupClusterLink // Insert: {group, cluster}
	StmtDeleteUserClusterLink  // Delete: {user, cluster}
	StmtInsertUserClusterLink  // Insert: {user, cluster}
	StmtDeleteUserGroupLink    // Delete: {user, group}
	StmtInsertUserGroupLink    // Insert: {user, group}
	StmtDeleteUserQueueLink    // Delete: {user, queue}
	StmtInsertUserQueueLink    // Insert: {user, queue}

	// Intervals

	StmtTruncateIntervals // Delete: nil
	StmtInsertInterval    // Insert: *model.Interval -> interval id

	// Activity rollups

	StmtTruncateActivity // Delete: nil
	StmtInsertActivity   // Insert: *model.ActivityRecord -> activity id

	StmtTruncateClusterActivity // Delete: nil
	StmtTruncateQueueActivity   // Delete: nil
	StmtTruncateGroupActivity   // Delete: nil
	StmtTruncateUserActivity    // Delete: nil

	StmtSelectClusterActivity // QueryList: model.Interval, dest *[]model.ActivityRecord keyed by Host
	StmtSelectQueueActivity   // QueryList: model.Interval, dest *[]model.ActivityRecord keyed by Host, Queue
	StmtSelectGroupActivity   // QueryList: model.Interval, dest *[]model.ActivityRecord keyed by Host, Group
	StmtSelectUserActivity    // QueryList: model.Interval, dest *[]model.ActivityRecord keyed by Host, User

	StmtInsertClusterActivity // Insert: *model.ActivityLink
	StmtInsertQueueActivity   // Insert: *model.ActivityLink
	StmtInsertGroupActivity   // Insert: *model.ActivityLink
	StmtInsertUserActivity    // Insert: *model.ActivityLink

	// CPU-size histograms

	StmtTruncateCpuConsumption // Delete: nil
	StmtCpuConsumption         // QueryRow: model.BucketQuery, dest *model.BucketValue (summed cpu time)
	StmtInsertCpuConsumption   // Insert: *model.HistogramRow

	StmtTruncateActualWaitTime // Delete: nil
	StmtActualWaitTime         // QueryRow: model.BucketQuery, dest *model.BucketValue (average wait)
	StmtInsertActualWaitTime   // Insert: *model.HistogramRow
)

var statementNames = map[Statement]string{
	StmtInsertEvent:              "event.insertEvent",
	StmtInsertHostLog:            "event.insertHostLog",
	StmtMaxDate:                  "event.maxDate",
	StmtSelectClusters:           "cluster.selectAll",
	StmtSelectQueues:             "queue.selectAll",
	StmtSelectGroups:             "group.selectAll",
	StmtSelectUsers:              "user.selectAll",
	StmtSelectClustersFromEvents: "cluster.selectFromEvent",
	StmtSelectQueuesFromEvents:   "queue.selectFromEvent",
	StmtSelectGroupsFromEvents:   "group.selectFromEvent",
	StmtSelectUsersFromEvents:    "user.selectFromEvent",
	StmtInsertCluster:            "cluster.insert",
	StmtInsertQueue:              "queue.insert",
	StmtInsertGroup:              "group.insert",
	StmtInsertUser:               "user.insert",
	StmtDeleteQueueClusterLink:   "queue.deleteClusterLink",
	StmtInsertQueueClusterLink:   "queue.insertClusterLink",
	StmtDeleteGroupClusterLink:   "group.deleteClusterLink",
	StmtInsertGroupClusterLink:   "group.insertClusterLink",
	StmtDeleteUserClusterLink:    "user.deleteClusterLink",
	StmtInsertUserClusterLink:    "user.insertClusterLink",
	StmtDeleteUserGroupLink:      "user.deleteGroupLink",
	StmtInsertUserGroupLink:      "user.insertGroupLink",
	StmtDeleteUserQueueLink:      "user.deleteQueueLink",
	StmtInsertUserQueueLink:      "user.insertQueueLink",
	StmtTruncateIntervals:        "interval.truncate",
	StmtInsertInterval:           "interval.insert",
	StmtTruncateActivity:         "activity.truncateActivity",
	StmtInsertActivity:           "activity.insertActivity",
	StmtTruncateClusterActivity:  "cluster.truncateActivity",
	StmtTruncateQueueActivity:    "queue.truncateActivity",
	StmtTruncateGroupActivity:    "group.truncateActivity",
	StmtTruncateUserActivity:     "user.truncateActivity",
	StmtSelectClusterActivity:    "cluster.selectActivity",
	StmtSelectQueueActivity:      "queue.selectActivity",
	StmtSelectGroupActivity:      "group.selectActivity",
	StmtSelectUserActivity:       "user.selectActivity",
	StmtInsertClusterActivity:    "cluster.insertActivity",
	StmtInsertQueueActivity:      "queue.insertActivity",
	StmtInsertGroupActivity:      "group.insertActivity",
	StmtInsertUserActivity:       "user.insertActivity",
	StmtTruncateCpuConsumption:   "activity.truncateCpuConsumption",
	StmtCpuConsumption:           "activity.cpuConsumption",
	StmtInsertCpuConsumption:     "activity.insertCpuConsumption",
	StmtTruncateActualWaitTime:   "activity.truncateActualWaitTime",
	StmtActualWaitTime:           "activity.actualWaitTime",
	StmtInsertActualWaitTime:     "activity.insertActualWaitTime",
}

func (s Statement) String() string {
	if name, ok := statementNames[s]; ok {
		return name
	}
	return fmt.Sprintf("statement(%d)", int(s))
}

// Store persistence collaborator used by the shredder and the aggregator.
// Implementations: MySQL (gorm) and in-memory.
type Store interface {
	// Insert writes one row and returns its generated id.
	// Link and activity-link statements have no identity and return 0.
	Insert(ctx context.Context, stmt Statement, arg interface{}) (int64, error)

	// QueryRow fills dest with a single row. A missing row returns false with a nil error.
	QueryRow(ctx context.Context, stmt Statement, arg interface{}, dest interface{}) (bool, error)

	// QueryList fills dest (a pointer to a slice) with every matching row
	QueryList(ctx context.Context, stmt Statement, arg interface{}, dest interface{}) error

	// Delete removes the rows selected by arg, or every row for truncate statements
	Delete(ctx context.Context, stmt Statement, arg interface{}) (int64, error)

	// Close releases the underlying connection
	Close() error
}

// Transactor is implemented by stores that can apply a group of statements atomically
type Transactor interface {
	// ExecTx runs fn with a ctx carrying the transaction; an error from fn discards its writes
	ExecTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UnsupportedStatementError a store was asked to run a statement outside the category it implements
type UnsupportedStatementError struct {
	Op   string
	Stmt Statement
}

func (e *UnsupportedStatementError) Error() string {
	return fmt.Sprintf("%s: unsupported statement %s", e.Op, e.Stmt)
}

// ArgTypeError a statement received an argument or destination of the wrong type
type ArgTypeError struct {
	Stmt Statement
	Want string
	Got  interface{}
}

func (e *ArgTypeError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %T", e.Stmt, e.Want, e.Got)
}
