package model

import "time"

// Event one shredded accounting log line
type Event struct {
	EventID       int64     `gorm:"column:event_id;primaryKey;autoIncrement" json:"event_id"`
	DateKey       time.Time `gorm:"column:date_key;not null;index:idx_event_host_date,priority:2" json:"date_key"`
	JobID         int64     `gorm:"column:job_id;not null" json:"job_id"`
	JobArrayIndex *int64    `gorm:"column:job_array_index" json:"job_array_index"`
	Host          string    `gorm:"column:host;type:varchar(255);not null;default:'';index:idx_event_host_date,priority:1" json:"host"`
	Type          string    `gorm:"column:type;type:varchar(1);not null;default:'';index" json:"type"`
	User          string    `gorm:"column:user;type:varchar(255);not null;default:''" json:"user"`
	Group         string    `gorm:"column:group;type:varchar(255);not null;default:''" json:"group"`
	Queue         string    `gorm:"column:queue;type:varchar(255);not null;default:''" json:"queue"`
	ExitStatus    string    `gorm:"column:exit_status;type:varchar(32);not null;default:''" json:"exit_status"`
	Session       string    `gorm:"column:session;type:varchar(32);not null;default:''" json:"session"`
	Requestor     string    `gorm:"column:requestor;type:varchar(255);not null;default:''" json:"requestor"`
	JobName       string    `gorm:"column:jobname;type:varchar(255);not null;default:''" json:"jobname"`
	Account       string    `gorm:"column:account;type:varchar(255);not null;default:''" json:"account"`
	ExecHost      string    `gorm:"column:exec_host;type:text" json:"exec_host"`

	Ctime *int64 `gorm:"column:ctime" json:"ctime"`
	Qtime *int64 `gorm:"column:qtime" json:"qtime"`
	Etime *int64 `gorm:"column:etime" json:"etime"`
	Start *int64 `gorm:"column:start;index:idx_event_span,priority:1" json:"start"`
	End   *int64 `gorm:"column:end;index:idx_event_span,priority:2" json:"end"`

	ResourcesUsedNodes *int `gorm:"column:resources_used_nodes" json:"resources_used_nodes"`
	ResourcesUsedCpus  *int `gorm:"column:resources_used_cpus" json:"resources_used_cpus"`

	ResourceListNodes     string `gorm:"column:resource_list_nodes;type:varchar(255);not null;default:''" json:"resource_list_nodes"`
	ResourceListProcs     string `gorm:"column:resource_list_procs;type:varchar(255);not null;default:''" json:"resource_list_procs"`
	ResourceListNeednodes string `gorm:"column:resource_list_neednodes;type:varchar(255);not null;default:''" json:"resource_list_neednodes"`
	ResourceListNcpus     string `gorm:"column:resource_list_ncpus;type:varchar(255);not null;default:''" json:"resource_list_ncpus"`
	ResourceListNodect    string `gorm:"column:resource_list_nodect;type:varchar(255);not null;default:''" json:"resource_list_nodect"`

	ResourcesUsedWalltime *int64 `gorm:"column:resources_used_walltime" json:"resources_used_walltime"`
	ResourcesUsedCput     *int64 `gorm:"column:resources_used_cput" json:"resources_used_cput"`
	ResourceListPcput     *int64 `gorm:"column:resource_list_pcput" json:"resource_list_pcput"`
	ResourceListCput      *int64 `gorm:"column:resource_list_cput" json:"resource_list_cput"`
	ResourceListWalltime  *int64 `gorm:"column:resource_list_walltime" json:"resource_list_walltime"`

	ResourcesUsedVmem *int64 `gorm:"column:resources_used_vmem" json:"resources_used_vmem"`
	ResourcesUsedMem  *int64 `gorm:"column:resources_used_mem" json:"resources_used_mem"`
	ResourceListMem   *int64 `gorm:"column:resource_list_mem" json:"resource_list_mem"`
	ResourceListPmem  *int64 `gorm:"column:resource_list_pmem" json:"resource_list_pmem"`
}

// TableName returns the table name for Event
func (Event) TableName() string {
	return "event"
}

// EventHost one host/cpu slot an event ran on
type EventHost struct {
	ID      int64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	EventID int64  `gorm:"column:event_id;not null;index" json:"event_id"`
	Host    string `gorm:"column:host;type:varchar(255);not null" json:"host"`
	CPU     int    `gorm:"column:cpu;not null" json:"cpu"`
}

// TableName returns the table name for EventHost
func (EventHost) TableName() string {
	return "event_host"
}
