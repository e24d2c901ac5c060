package model

import "time"

// EventType accounting log event kind
type EventType uint8

const (
	EventTypeUnknown     EventType = iota // Code not in the catalog
	EventTypeAbort                        // Job was aborted by server
	EventTypeBegin                        // Beginning of reservation period
	EventTypeCheckpoint                   // Job was checkpointed and held
	EventTypeDelete                       // Job was deleted by request
	EventTypeEnd                          // Job ended (terminated execution)
	EventTypeFinish                       // Resources reservation period finished
	EventTypeRemove                       // Scheduler or server requested removal of reservation
	EventTypeTerminate                    // Resources reservation terminated by ordinary client
	EventTypeQueue                        // Job was entered into a queue
	EventTypeRerun                        // Job was rerun
	EventTypeStart                        // Job execution started
	EventTypeRestart                      // Job was restarted from a checkpoint file
	EventTypeUnconfirmed                  // Created unconfirmed resources reservation on server
	EventTypeConfirmed                    // Resources reservation confirmed by scheduler
)

// eventCatalog binds every event kind to its single-character log code.
var eventCatalog = []struct {
	eventType EventType
	code      string
	name      string
}{
	{EventTypeAbort, "A", "ABORT"},
	{EventTypeBegin, "B", "BEGIN"},
	{EventTypeCheckpoint, "C", "CHECKPOINT"},
	{EventTypeDelete, "D", "DELETE"},
	{EventTypeEnd, "E", "END"},
	{EventTypeFinish, "F", "FINISH"},
	{EventTypeRemove, "K", "REMOVE"},
	{EventTypeTerminate, "k", "TERMINATE"},
	{EventTypeQueue, "Q", "QUEUE"},
	{EventTypeRerun, "R", "RERUN"},
	{EventTypeStart, "S", "START"},
	{EventTypeRestart, "T", "RESTART"},
	{EventTypeUnconfirmed, "U", "UNCONFIRMED"},
	{EventTypeConfirmed, "Y", "CONFIRMED"},
}

var (
	eventTypeByCode = make(map[string]EventType, len(eventCatalog))
	codeByEventType = make(map[EventType]string, len(eventCatalog))
	nameByEventType = make(map[EventType]string, len(eventCatalog))
)

func init() {
	for _, e := range eventCatalog {
		eventTypeByCode[e.code] = e.eventType
		codeByEventType[e.eventType] = e.code
		nameByEventType[e.eventType] = e.name
	}
}

// EventTypeFromCode resolves a log code. Unknown codes return EventTypeUnknown and false.
func EventTypeFromCode(code string) (EventType, bool) {
	t, ok := eventTypeByCode[code]
	return t, ok
}

// EventTypes returns every known event kind in catalog order
func EventTypes() []EventType {
	types := make([]EventType, 0, len(eventCatalog))
	for _, e := range eventCatalog {
		types = append(types, e.eventType)
	}
	return types
}

// Code returns the single-character log code, or "" for EventTypeUnknown
func (t EventType) Code() string {
	return codeByEventType[t]
}

// IsKnown reports whether t belongs to the catalog
func (t EventType) IsKnown() bool {
	_, ok := codeByEventType[t]
	return ok
}

func (t EventType) String() string {
	if name, ok := nameByEventType[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// EventRecord one normalized accounting log line.
// Times are unix seconds, durations are seconds and memory is KB.
type EventRecord struct {
	ID            int64     `json:"id,omitempty"`
	DateKey       time.Time `json:"date_key"`
	JobID         int64     `json:"job_id"`
	JobArrayIndex *int64    `json:"job_array_index,omitempty"`
	Host          string    `json:"host"`
	EventType     EventType `json:"event_type"`
	User          string    `json:"user,omitempty"`
	Group         string    `json:"group,omitempty"`
	Queue         string    `json:"queue,omitempty"`
	ExitStatus    string    `json:"exit_status,omitempty"`
	Session       string    `json:"session,omitempty"`
	Requestor     string    `json:"requestor,omitempty"`
	JobName       string    `json:"jobname,omitempty"`
	Account       string    `json:"account,omitempty"`
	ExecHost      string    `json:"exec_host,omitempty"`

	CreationTime *int64 `json:"ctime,omitempty"`
	QueueTime    *int64 `json:"qtime,omitempty"`
	EligibleTime *int64 `json:"etime,omitempty"`
	StartTime    *int64 `json:"start,omitempty"`
	EndTime      *int64 `json:"end,omitempty"`

	ResourcesUsedNodes *int `json:"resources_used_nodes,omitempty"`
	ResourcesUsedCpus  *int `json:"resources_used_cpus,omitempty"`

	ResourceListNodes     string `json:"resource_list_nodes,omitempty"`
	ResourceListProcs     string `json:"resource_list_procs,omitempty"`
	ResourceListNeednodes string `json:"resource_list_neednodes,omitempty"`
	ResourceListNcpus     string `json:"resource_list_ncpus,omitempty"`
	ResourceListNodect    string `json:"resource_list_nodect,omitempty"`

	ResourcesUsedWalltime *int64 `json:"resources_used_walltime,omitempty"`
	ResourcesUsedCput     *int64 `json:"resources_used_cput,omitempty"`
	ResourceListPcput     *int64 `json:"resource_list_pcput,omitempty"`
	ResourceListCput      *int64 `json:"resource_list_cput,omitempty"`
	ResourceListWalltime  *int64 `json:"resource_list_walltime,omitempty"`

	ResourcesUsedVmem *int64 `json:"resources_used_vmem,omitempty"`
	ResourcesUsedMem  *int64 `json:"resources_used_mem,omitempty"`
	ResourceListMem   *int64 `json:"resource_list_mem,omitempty"`
	ResourceListPmem  *int64 `json:"resource_list_pmem,omitempty"`
}

// HostUsage one host/cpu pair taken from an event's exec_host, keyed by the event id
type HostUsage struct {
	EventID int64  `json:"event_id"`
	Host    string `json:"host"`
	CPU     int    `json:"cpu"`
}

// Int64Ptr returns a pointer to v
func Int64Ptr(v int64) *int64 {
	return &v
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}
