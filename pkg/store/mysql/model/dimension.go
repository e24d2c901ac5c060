package model

// Cluster one accounting host
type Cluster struct {
	ClusterID int64  `gorm:"column:cluster_id;primaryKey;autoIncrement" json:"cluster_id"`
	Host      string `gorm:"column:host;type:varchar(255);not null;uniqueIndex" json:"host"`
}

// TableName returns the table name for Cluster
func (Cluster) TableName() string {
	return "cluster"
}

// Queue one batch queue
type Queue struct {
	QueueID int64  `gorm:"column:queue_id;primaryKey;autoIncrement" json:"queue_id"`
	Queue   string `gorm:"column:queue;type:varchar(255);not null;uniqueIndex" json:"queue"`
}

// TableName returns the table name for Queue
func (Queue) TableName() string {
	return "queue"
}

// ResearchGroup one unix group
type ResearchGroup struct {
	GroupID int64  `gorm:"column:group_id;primaryKey;autoIncrement" json:"group_id"`
	Group   string `gorm:"column:group;type:varchar(255);not null;uniqueIndex" json:"group"`
}

// TableName returns the table name for ResearchGroup
func (ResearchGroup) TableName() string {
	return "research_group"
}

// User one job owner
type User struct {
	UserID int64  `gorm:"column:user_id;primaryKey;autoIncrement" json:"user_id"`
	User   string `gorm:"column:user;type:varchar(255);not null;uniqueIndex" json:"user"`
}

// TableName returns the table name for User
func (User) TableName() string {
	return "user"
}

// QueueCluster queue seen on a cluster
type QueueCluster struct {
	QueueID   int64 `gorm:"column:queue_id;primaryKey;autoIncrement:false" json:"queue_id"`
	ClusterID int64 `gorm:"column:cluster_id;primaryKey;autoIncrement:false" json:"cluster_id"`
}

// TableName returns the table name for QueueCluster
func (QueueCluster) TableName() string {
	return "queue_cluster"
}

// GroupCluster group seen on a cluster
type GroupCluster struct {
	GroupID   int64 `gorm:"column:group_id;primaryKey;autoIncrement:false" json:"group_id"`
	ClusterID int64 `gorm:"column:cluster_id;primaryKey;autoIncrement:false" json:"cluster_id"`
}

// TableName returns the table name for GroupCluster
func (GroupCluster) TableName() string {
	return "group_cluster"
}

// UserCluster user seen on a cluster
type UserCluster struct {
	UserID    int64 `gorm:"column:user_id;primaryKey;autoIncrement:false" json:"user_id"`
	ClusterID int64 `gorm:"column:cluster_id;primaryKey;autoIncrement:false" json:"cluster_id"`
}

// TableName returns the table name for UserCluster
func (UserCluster) TableName() string {
	return "user_cluster"
}

// UserGroup user seen running under a group
type UserGroup struct {
	UserID  int64 `gorm:"column:user_id;primaryKey;autoIncrement:false" json:"user_id"`
	GroupID int64 `gorm:"column:group_id;primaryKey;autoIncrement:false" json:"group_id"`
}

// TableName returns the table name for UserGroup
func (UserGroup) TableName() string {
	return "user_group"
}

// UserQueue user seen submitting to a queue
type UserQueue struct {
	UserID  int64 `gorm:"column:user_id;primaryKey;autoIncrement:false" json:"user_id"`
	QueueID int64 `gorm:"column:queue_id;primaryKey;autoIncrement:false" json:"queue_id"`
}

// TableName returns the table name for UserQueue
func (UserQueue) TableName() string {
	return "user_queue"
}

// DimensionRow a row of one of the four dimension tables
type DimensionRow interface {
	RowID() int64
}

func (c *Cluster) RowID() int64       { return c.ClusterID }
func (q *Queue) RowID() int64         { return q.QueueID }
func (g *ResearchGroup) RowID() int64 { return g.GroupID }
func (u *User) RowID() int64          { return u.UserID }

// ObservationRow one distinct dimension combination read from event; not a table
type ObservationRow struct {
	Host  string `gorm:"column:host"`
	Queue string `gorm:"column:queue"`
	Group string `gorm:"column:group_name"`
	User  string `gorm:"column:user"`
}
