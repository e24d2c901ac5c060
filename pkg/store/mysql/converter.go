package mysql

import (
	"pbsacct/internal/model"
	mysqlModel "pbsacct/pkg/store/mysql/model"
)

// FromEventDomain converts a domain EventRecord to a MySQL Event row
func FromEventDomain(rec *model.EventRecord) *mysqlModel.Event {
	if rec == nil {
		return nil
	}

	return &mysqlModel.Event{
		DateKey:       rec.DateKey,
		JobID:         rec.JobID,
		JobArrayIndex: rec.JobArrayIndex,
		Host:          rec.Host,
		Type:          rec.EventType.Code(),
		User:          rec.User,
		Group:         rec.Group,
		Queue:         rec.Queue,
		ExitStatus:    rec.ExitStatus,
		Session:       rec.Session,
		Requestor:     rec.Requestor,
		JobName:       rec.JobName,
		Account:       rec.Account,
		ExecHost:      rec.ExecHost,

		Ctime: rec.CreationTime,
		Qtime: rec.QueueTime,
		Etime: rec.EligibleTime,
		Start: rec.StartTime,
		End:   rec.EndTime,

		ResourcesUsedNodes: rec.ResourcesUsedNodes,
		ResourcesUsedCpus:  rec.ResourcesUsedCpus,

		ResourceListNodes:     rec.ResourceListNodes,
		ResourceListProcs:     rec.ResourceListProcs,
		ResourceListNeednodes: rec.ResourceListNeednodes,
		ResourceListNcpus:     rec.ResourceListNcpus,
		ResourceListNodect:    rec.ResourceListNodect,

		ResourcesUsedWalltime: rec.ResourcesUsedWalltime,
		ResourcesUsedCput:     rec.ResourcesUsedCput,
		ResourceListPcput:     rec.ResourceListPcput,
		ResourceListCput:      rec.ResourceListCput,
		ResourceListWalltime:  rec.ResourceListWalltime,

		ResourcesUsedVmem: rec.ResourcesUsedVmem,
		ResourcesUsedMem:  rec.ResourcesUsedMem,
		ResourceListMem:   rec.ResourceListMem,
		ResourceListPmem:  rec.ResourceListPmem,
	}
}

// FromActivityDomain converts the metrics of an ActivityRecord to an Activity row
func FromActivityDomain(rec *model.ActivityRecord) *mysqlModel.Activity {
	if rec == nil {
		return nil
	}

	return &mysqlModel.Activity{
		Jobs:     rec.Jobs,
		Wallt:    rec.Wallt,
		AvgWallt: rec.AvgWallt,
		MaxWallt: rec.MaxWallt,
		Cput:     rec.Cput,
		AvgCput:  rec.AvgCput,
		MaxCput:  rec.MaxCput,
		AvgMem:   rec.AvgMem,
		MaxMem:   rec.MaxMem,
		AvgVmem:  rec.AvgVmem,
		MaxVmem:  rec.MaxVmem,
		AvgWait:  rec.AvgWait,
		AvgExect: rec.AvgExect,
		AvgNodes: rec.AvgNodes,
		MaxNodes: rec.MaxNodes,
		AvgCpus:  rec.AvgCpus,
		MaxCpus:  rec.MaxCpus,
	}
}

// ToActivityDomain converts a rollup query row to an ActivityRecord.
// Distinct counts are kept only where the dimension reports them.
func ToActivityDomain(row *mysqlModel.ActivitySummary, kind model.DimensionKind) model.ActivityRecord {
	rec := model.ActivityRecord{
		Host:  row.Host,
		Queue: row.Queue,
		Group: row.Group,
		User:  row.User,

		Jobs:     row.Jobs,
		Wallt:    row.Wallt,
		AvgWallt: row.AvgWallt,
		MaxWallt: row.MaxWallt,
		Cput:     row.Cput,
		AvgCput:  row.AvgCput,
		MaxCput:  row.MaxCput,
		AvgMem:   row.AvgMem,
		MaxMem:   row.MaxMem,
		AvgVmem:  row.AvgVmem,
		MaxVmem:  row.MaxVmem,
		AvgWait:  row.AvgWait,
		AvgExect: row.AvgExect,
		AvgNodes: row.AvgNodes,
		MaxNodes: row.MaxNodes,
		AvgCpus:  row.AvgCpus,
		MaxCpus:  row.MaxCpus,
	}

	switch kind {
	case model.DimensionCluster, model.DimensionQueue:
		rec.UserCount = row.UserCount
		rec.GroupCount = row.GroupCount
	case model.DimensionGroup:
		rec.UserCount = row.UserCount
	}
	return rec
}

// ToActivityLinkRow builds the dimension-specific activity link row
func ToActivityLinkRow(kind model.DimensionKind, link *model.ActivityLink) interface{} {
	switch kind {
	case model.DimensionCluster:
		return &mysqlModel.ClusterActivity{
			ClusterID:  link.ClusterID,
			IntervalID: link.IntervalID,
			ActivityID: link.ActivityID,
			UserCount:  link.UserCount,
			GroupCount: link.GroupCount,
		}
	case model.DimensionQueue:
		return &mysqlModel.QueueActivity{
			QueueID:    link.DimensionID,
			ClusterID:  link.ClusterID,
			IntervalID: link.IntervalID,
			ActivityID: link.ActivityID,
			UserCount:  link.UserCount,
			GroupCount: link.GroupCount,
		}
	case model.DimensionGroup:
		return &mysqlModel.GroupActivity{
			GroupID:    link.DimensionID,
			ClusterID:  link.ClusterID,
			IntervalID: link.IntervalID,
			ActivityID: link.ActivityID,
			UserCount:  link.UserCount,
		}
	case model.DimensionUser:
		return &mysqlModel.UserActivity{
			UserID:     link.DimensionID,
			ClusterID:  link.ClusterID,
			IntervalID: link.IntervalID,
			ActivityID: link.ActivityID,
		}
	}
	return nil
}

// FromIntervalDomain converts a domain Interval to a TimeInterval row
func FromIntervalDomain(iv *model.Interval) *mysqlModel.TimeInterval {
	if iv == nil {
		return nil
	}
	return &mysqlModel.TimeInterval{
		TimeInterval: iv.Label,
		Start:        iv.Start,
		End:          iv.End,
	}
}

// ToDimensionRow builds the dimension table row holding name
func ToDimensionRow(kind model.DimensionKind, name string) mysqlModel.DimensionRow {
	switch kind {
	case model.DimensionCluster:
		return &mysqlModel.Cluster{Host: name}
	case model.DimensionQueue:
		return &mysqlModel.Queue{Queue: name}
	case model.DimensionGroup:
		return &mysqlModel.ResearchGroup{Group: name}
	case model.DimensionUser:
		return &mysqlModel.User{User: name}
	}
	return nil
}

// ToObservationDomain converts a distinct-combination row
func ToObservationDomain(row mysqlModel.ObservationRow) model.Observation {
	return model.Observation{Host: row.Host, Queue: row.Queue, Group: row.Group, User: row.User}
}

// ToLinkRow builds the association row for a dimension link table
func ToLinkRow(table string, link model.Link) interface{} {
	switch table {
	case linkQueueCluster:
		return &mysqlModel.QueueCluster{QueueID: link.LeftID, ClusterID: link.RightID}
	case linkGroupCluster:
		return &mysqlModel.GroupCluster{GroupID: link.LeftID, ClusterID: link.RightID}
	case linkUserCluster:
		return &mysqlModel.UserCluster{UserID: link.LeftID, ClusterID: link.RightID}
	case linkUserGroup:
		return &mysqlModel.UserGroup{UserID: link.LeftID, GroupID: link.RightID}
	case linkUserQueue:
		return &mysqlModel.UserQueue{UserID: link.LeftID, QueueID: link.RightID}
	}
	return nil
}

// FromHistogramDomain converts a histogram row to the table row of the named histogram
func FromHistogramDomain(table string, row *model.HistogramRow) interface{} {
	switch table {
	case histogramCpuConsumption:
		return &mysqlModel.CpuConsumption{
			ClusterID:  row.ClusterID,
			IntervalID: row.IntervalID,
			ViewOrder:  row.ViewOrder,
			Label:      row.Label,
			Cput:       row.Value,
		}
	case histogramActualWaitTime:
		return &mysqlModel.ActualWaitTime{
			ClusterID:  row.ClusterID,
			IntervalID: row.IntervalID,
			ViewOrder:  row.ViewOrder,
			Label:      row.Label,
			AvgWait:    row.Value,
		}
	}
	return nil
}
