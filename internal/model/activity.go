package model

import (
	"fmt"
	"time"
)

// DimensionKind reporting axis
type DimensionKind string

const (
	DimensionCluster DimensionKind = "cluster"
	DimensionQueue   DimensionKind = "queue"
	DimensionGroup   DimensionKind = "group"
	DimensionUser    DimensionKind = "user"
)

// DimensionKinds returns the reporting axes in resolution order
func DimensionKinds() []DimensionKind {
	return []DimensionKind{DimensionCluster, DimensionQueue, DimensionGroup, DimensionUser}
}

// Dimension a persisted dimension row: surrogate id plus natural name
type Dimension struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Observation a distinct combination of dimension values seen in persisted events.
// Only the fields relevant to the querying statement are populated.
type Observation struct {
	Host  string `json:"host"`
	Queue string `json:"queue,omitempty"`
	Group string `json:"group,omitempty"`
	User  string `json:"user,omitempty"`
}

// Link association row between two dimensions.
// LeftID is the dependent side (queue, group or user), RightID the side it is linked to.
type Link struct {
	LeftID  int64 `json:"left_id"`
	RightID int64 `json:"right_id"`
}

// Interval label constants
const (
	IntervalWeek    = "Week"
	IntervalMonth   = "Month"
	IntervalQuarter = "Quarter"
	IntervalYear    = "Year"
)

// Interval named trailing window
type Interval struct {
	ID    int64     `json:"id"`
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ActivityRecord aggregated usage for one dimension instance within one interval.
// Host, Queue, Group and User identify the instance; unused ones are empty.
type ActivityRecord struct {
	ID    int64  `json:"id,omitempty"`
	Host  string `json:"host"`
	Queue string `json:"queue,omitempty"`
	Group string `json:"group,omitempty"`
	User  string `json:"user,omitempty"`

	Jobs     int64   `json:"jobs"`
	Wallt    int64   `json:"wallt"`
	AvgWallt float64 `json:"avg_wallt"`
	MaxWallt int64   `json:"max_wallt"`
	Cput     int64   `json:"cput"`
	AvgCput  float64 `json:"avg_cput"`
	MaxCput  int64   `json:"max_cput"`
	AvgMem   float64 `json:"avg_mem"`
	MaxMem   int64   `json:"max_mem"`
	AvgVmem  float64 `json:"avg_vmem"`
	MaxVmem  int64   `json:"max_vmem"`
	AvgWait  float64 `json:"avg_wait"`
	AvgExect float64 `json:"avg_exect"`
	AvgNodes float64 `json:"avg_nodes"`
	MaxNodes int64   `json:"max_nodes"`
	AvgCpus  float64 `json:"avg_cpus"`
	MaxCpus  int64   `json:"max_cpus"`

	UserCount  int64 `json:"user_count"`
	GroupCount int64 `json:"group_count"`
}

// ActivityLink dimension-specific row tying an activity row to its dimension and interval.
// DimensionID is unused for cluster activity.
type ActivityLink struct {
	ClusterID   int64 `json:"cluster_id"`
	DimensionID int64 `json:"dimension_id,omitempty"`
	IntervalID  int64 `json:"interval_id"`
	ActivityID  int64 `json:"activity_id"`
	UserCount   int64 `json:"user_count"`
	GroupCount  int64 `json:"group_count"`
}

// CpuBucket inclusive range over a job's used-cpu count. Max < 0 marks the open-ended bucket
// covering every count greater than Min-1.
type CpuBucket struct {
	Min int
	Max int
}

// CpuBucketLimit the largest bounded cpu count
const CpuBucketLimit = 512

var cpuBuckets = []CpuBucket{
	{1, 1}, {2, 2}, {3, 4}, {5, 8}, {9, 16}, {17, 32},
	{33, 64}, {65, 128}, {129, 256}, {257, 512}, {CpuBucketLimit + 1, -1},
}

// CpuBuckets returns the fixed histogram buckets in view order
func CpuBuckets() []CpuBucket {
	return append([]CpuBucket(nil), cpuBuckets...)
}

// Unbounded reports whether b is the open-ended last bucket
func (b CpuBucket) Unbounded() bool {
	return b.Max < 0
}

// Contains reports whether cpus falls in b
func (b CpuBucket) Contains(cpus int) bool {
	if b.Unbounded() {
		return cpus >= b.Min
	}
	return cpus >= b.Min && cpus <= b.Max
}

// Label display label: "n", "min-max" or ">512"
func (b CpuBucket) Label() string {
	switch {
	case b.Unbounded():
		return fmt.Sprintf(">%d", b.Min-1)
	case b.Min == b.Max:
		return fmt.Sprintf("%d", b.Max)
	default:
		return fmt.Sprintf("%d-%d", b.Min, b.Max)
	}
}

// BucketQuery scopes a histogram statistic to one cluster, interval and bucket
type BucketQuery struct {
	Host   string
	Start  time.Time
	End    time.Time
	Bucket CpuBucket
}

// BucketValue a histogram statistic; Jobs is the number of contributing jobs
type BucketValue struct {
	Jobs  int64   `json:"jobs"`
	Value float64 `json:"value"`
}

// HistogramRow one persisted bucket of a per-cluster, per-interval histogram
type HistogramRow struct {
	ClusterID  int64   `json:"cluster_id"`
	IntervalID int64   `json:"interval_id"`
	Label      string  `json:"label"`
	ViewOrder  int     `json:"view_order"`
	Value      float64 `json:"value"`
}
