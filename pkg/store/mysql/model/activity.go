package model

import "time"

// TimeInterval one trailing reporting window
type TimeInterval struct {
	IntervalID   int64     `gorm:"column:interval_id;primaryKey;autoIncrement" json:"interval_id"`
	TimeInterval string    `gorm:"column:time_interval;type:varchar(32);not null" json:"time_interval"`
	Start        time.Time `gorm:"column:start;not null" json:"start"`
	End          time.Time `gorm:"column:end;not null" json:"end"`
}

// TableName returns the table name for TimeInterval
func (TimeInterval) TableName() string {
	return "time_interval"
}

// Activity aggregated job metrics shared by every dimension rollup
type Activity struct {
	ActivityID int64   `gorm:"column:activity_id;primaryKey;autoIncrement" json:"activity_id"`
	Jobs       int64   `gorm:"column:jobs;not null;default:0" json:"jobs"`
	Wallt      int64   `gorm:"column:wallt;not null;default:0" json:"wallt"`
	AvgWallt   float64 `gorm:"column:avg_wallt;type:decimal(16,4);not null;default:0" json:"avg_wallt"`
	MaxWallt   int64   `gorm:"column:max_wallt;not null;default:0" json:"max_wallt"`
	Cput       int64   `gorm:"column:cput;not null;default:0" json:"cput"`
	AvgCput    float64 `gorm:"column:avg_cput;type:decimal(16,4);not null;default:0" json:"avg_cput"`
	MaxCput    int64   `gorm:"column:max_cput;not null;default:0" json:"max_cput"`
	AvgMem     float64 `gorm:"column:avg_mem;type:decimal(16,4);not null;default:0" json:"avg_mem"`
	MaxMem     int64   `gorm:"column:max_mem;not null;default:0" json:"max_mem"`
	AvgVmem    float64 `gorm:"column:avg_vmem;type:decimal(16,4);not null;default:0" json:"avg_vmem"`
	MaxVmem    int64   `gorm:"column:max_vmem;not null;default:0" json:"max_vmem"`
	AvgWait    float64 `gorm:"column:avg_wait;type:decimal(16,4);not null;default:0" json:"avg_wait"`
	AvgExect   float64 `gorm:"column:avg_exect;type:decimal(16,4);not null;default:0" json:"avg_exect"`
	AvgNodes   float64 `gorm:"column:avg_nodes;type:decimal(16,4);not null;default:0" json:"avg_nodes"`
	MaxNodes   int64   `gorm:"column:max_nodes;not null;default:0" json:"max_nodes"`
	AvgCpus    float64 `gorm:"column:avg_cpus;type:decimal(16,4);not null;default:0" json:"avg_cpus"`
	MaxCpus    int64   `gorm:"column:max_cpus;not null;default:0" json:"max_cpus"`
}

// TableName returns the table name for Activity
func (Activity) TableName() string {
	return "activity"
}

// ActivitySummary one row of an activity rollup query; not a table
type ActivitySummary struct {
	Host  string `gorm:"column:host"`
	Queue string `gorm:"column:queue"`
	Group string `gorm:"column:group_name"`
	User  string `gorm:"column:user"`

	Jobs     int64   `gorm:"column:jobs"`
	Wallt    int64   `gorm:"column:wallt"`
	AvgWallt float64 `gorm:"column:avg_wallt"`
	MaxWallt int64   `gorm:"column:max_wallt"`
	Cput     int64   `gorm:"column:cput"`
	AvgCput  float64 `gorm:"column:avg_cput"`
	MaxCput  int64   `gorm:"column:max_cput"`
	AvgMem   float64 `gorm:"column:avg_mem"`
	MaxMem   int64   `gorm:"column:max_mem"`
	AvgVmem  float64 `gorm:"column:avg_vmem"`
	MaxVmem  int64   `gorm:"column:max_vmem"`
	AvgWait  float64 `gorm:"column:avg_wait"`
	AvgExect float64 `gorm:"column:avg_exect"`
	AvgNodes float64 `gorm:"column:avg_nodes"`
	MaxNodes int64   `gorm:"column:max_nodes"`
	AvgCpus  float64 `gorm:"column:avg_cpus"`
	MaxCpus  int64   `gorm:"column:max_cpus"`

	UserCount  int64 `gorm:"column:user_count"`
	GroupCount int64 `gorm:"column:group_count"`
}

// ClusterActivity activity of one cluster within one interval
type ClusterActivity struct {
	ClusterID  int64 `gorm:"column:cluster_id;primaryKey;autoIncrement:false" json:"cluster_id"`
	IntervalID int64 `gorm:"column:interval_id;primaryKey;autoIncrement:false" json:"interval_id"`
	ActivityID int64 `gorm:"column:activity_id;not null" json:"activity_id"`
	UserCount  int64 `gorm:"column:user_count;not null;default:0" json:"user_count"`
	GroupCount int64 `gorm:"column:group_count;not null;default:0" json:"group_count"`
}

// TableName returns the table name for ClusterActivity
func (ClusterActivity) TableName() string {
	return "cluster_activity"
}

// QueueActivity activity of one queue on one cluster within one interval
type QueueActivity struct {
	QueueID    int64 `gorm:"column:queue_id;primaryKey;autoIncrement:false" json:"queue_id"`
	ClusterID  int64 `gorm:"column:cluster_id;primaryKey;autoIncrement:false" json:"cluster_id"`
	IntervalID int64 `gorm:"column:interval_id;primaryKey;autoIncrement:false" json:"interval_id"`
	ActivityID int64 `gorm:"column:activity_id;not null" json:"activity_id"`
	UserCount  int64 `gorm:"column:user_count;not null;default:0" json:"user_count"`
	GroupCount int64 `gorm:"column:group_count;not null;default:0" json:"group_count"`
}

// TableName returns the table name for QueueActivity
func (QueueActivity) TableName() string {
	return "queue_activity"
}

// GroupActivity activity of one group on one cluster within one interval
type GroupActivity struct {
	GroupID    int64 `gorm:"column:group_id;primaryKey;autoIncrement:false" json:"group_id"`
	ClusterID  int64 `gorm:"column:cluster_id;primaryKey;autoIncrement:false" json:"cluster_id"`
	IntervalID int64 `gorm:"column:interval_id;primaryKey;autoIncrement:false" json:"interval_id"`
	ActivityID int64 `gorm:"column:activity_id;not null" json:"activity_id"`
	UserCount  int64 `gorm:"column:user_count;not null;default:0" json:"user_count"`
}

// TableName returns the table name for GroupActivity
func (GroupActivity) TableName() string {
	return "group_activity"
}

// UserActivity activity of one user on one cluster within one interval
type UserActivity struct {
	UserID     int64 `gorm:"column:user_id;primaryKey;autoIncrement:false" json:"user_id"`
	ClusterID  int64 `gorm:"column:cluster_id;primaryKey;autoIncrement:false" json:"cluster_id"`
	IntervalID int64 `gorm:"column:interval_id;primaryKey;autoIncrement:false" json:"interval_id"`
	ActivityID int64 `gorm:"column:activity_id;not null" json:"activity_id"`
}

// TableName returns the table name for UserActivity
func (UserActivity) TableName() string {
	return "user_activity"
}

// CpuConsumption summed cpu time per cpu-count bucket
type CpuConsumption struct {
	ClusterID  int64   `gorm:"column:cluster_id;primaryKey;autoIncrement:false" json:"cluster_id"`
	IntervalID int64   `gorm:"column:interval_id;primaryKey;autoIncrement:false" json:"interval_id"`
	ViewOrder  int     `gorm:"column:view_order;primaryKey;autoIncrement:false" json:"view_order"`
	Label      string  `gorm:"column:label;type:varchar(16);not null" json:"label"`
	Cput       float64 `gorm:"column:cput;type:decimal(20,4);not null;default:0" json:"cput"`
}

// TableName returns the table name for CpuConsumption
func (CpuConsumption) TableName() string {
	return "cpu_consumption"
}

// ActualWaitTime average queue wait per cpu-count bucket
type ActualWaitTime struct {
	ClusterID  int64   `gorm:"column:cluster_id;primaryKey;autoIncrement:false" json:"cluster_id"`
	IntervalID int64   `gorm:"column:interval_id;primaryKey;autoIncrement:false" json:"interval_id"`
	ViewOrder  int     `gorm:"column:view_order;primaryKey;autoIncrement:false" json:"view_order"`
	Label      string  `gorm:"column:label;type:varchar(16);not null" json:"label"`
	AvgWait    float64 `gorm:"column:avg_wait;type:decimal(20,4);not null;default:0" json:"avg_wait"`
}

// TableName returns the table name for ActualWaitTime
func (ActualWaitTime) TableName() string {
	return "actual_wait_time"
}

// BucketStat one histogram bucket query result; not a table
type BucketStat struct {
	Jobs  int64   `gorm:"column:jobs"`
	Value float64 `gorm:"column:value"`
}

// AllTables every persisted row model, in creation order
func AllTables() []interface{} {
	return []interface{}{
		&Event{}, &EventHost{},
		&Cluster{}, &Queue{}, &ResearchGroup{}, &User{},
		&QueueCluster{}, &GroupCluster{}, &UserCluster{}, &UserGroup{}, &UserQueue{},
		&TimeInterval{}, &Activity{},
		&ClusterActivity{}, &QueueActivity{}, &GroupActivity{}, &UserActivity{},
		&CpuConsumption{}, &ActualWaitTime{},
	}
}
