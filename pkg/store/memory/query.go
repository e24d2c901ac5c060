package memory

import (
	"sort"

	"pbsacct/internal/model"
)

// jobSpan returns start/end of a finished job, false when e is not a usable END record
func jobSpan(e *model.EventRecord) (start, end int64, ok bool) {
	if e.EventType != model.EventTypeEnd || e.StartTime == nil || e.EndTime == nil {
		return 0, 0, false
	}
	return *e.StartTime, *e.EndTime, true
}

// inInterval reports whether the job's run intersects [from, to]
func inInterval(e *model.EventRecord, from, to int64) bool {
	start, end, ok := jobSpan(e)
	if !ok {
		return false
	}
	return start <= to && end >= from
}

func val64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

func valInt(p *int) int64 {
	if p == nil {
		return 0
	}
	return int64(*p)
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func waitTime(e *model.EventRecord) int64 {
	if e.QueueTime == nil || e.StartTime == nil {
		return 0
	}
	return nonNegative(*e.StartTime - *e.QueueTime)
}

func execTime(e *model.EventRecord) int64 {
	if e.StartTime == nil || e.EndTime == nil {
		return 0
	}
	return nonNegative(*e.EndTime - *e.StartTime)
}

type activityKey struct {
	host, queue, group, user string
}

func keyFor(e *model.EventRecord, kind model.DimensionKind) (activityKey, bool) {
	k := activityKey{host: e.Host}
	switch kind {
	case model.DimensionQueue:
		k.queue = e.Queue
		return k, e.Queue != ""
	case model.DimensionGroup:
		k.group = e.Group
		return k, e.Group != ""
	case model.DimensionUser:
		k.user = e.User
		return k, e.User != ""
	}
	return k, true
}

type accumulator struct {
	rec    model.ActivityRecord
	mem    int64
	vmem   int64
	wait   int64
	exect  int64
	nodes  int64
	cpus   int64
	users  map[string]struct{}
	groups map[string]struct{}
}

func (a *accumulator) add(e *model.EventRecord) {
	r := &a.rec
	r.Jobs++

	wallt := val64(e.ResourcesUsedWalltime)
	r.Wallt += wallt
	r.MaxWallt = maxInt64(r.MaxWallt, wallt)

	cput := val64(e.ResourcesUsedCput)
	r.Cput += cput
	r.MaxCput = maxInt64(r.MaxCput, cput)

	mem := val64(e.ResourcesUsedMem)
	a.mem += mem
	r.MaxMem = maxInt64(r.MaxMem, mem)

	vmem := val64(e.ResourcesUsedVmem)
	a.vmem += vmem
	r.MaxVmem = maxInt64(r.MaxVmem, vmem)

	a.wait += waitTime(e)
	a.exect += execTime(e)

	nodes := valInt(e.ResourcesUsedNodes)
	a.nodes += nodes
	r.MaxNodes = maxInt64(r.MaxNodes, nodes)

	cpus := valInt(e.ResourcesUsedCpus)
	a.cpus += cpus
	r.MaxCpus = maxInt64(r.MaxCpus, cpus)

	if e.User != "" {
		a.users[e.User] = struct{}{}
	}
	if e.Group != "" {
		a.groups[e.Group] = struct{}{}
	}
}

func (a *accumulator) finish(kind model.DimensionKind) model.ActivityRecord {
	r := a.rec
	n := float64(r.Jobs)
	r.AvgWallt = float64(r.Wallt) / n
	r.AvgCput = float64(r.Cput) / n
	r.AvgMem = float64(a.mem) / n
	r.AvgVmem = float64(a.vmem) / n
	r.AvgWait = float64(a.wait) / n
	r.AvgExect = float64(a.exect) / n
	r.AvgNodes = float64(a.nodes) / n
	r.AvgCpus = float64(a.cpus) / n

	switch kind {
	case model.DimensionCluster, model.DimensionQueue:
		r.UserCount = int64(len(a.users))
		r.GroupCount = int64(len(a.groups))
	case model.DimensionGroup:
		r.UserCount = int64(len(a.users))
	}
	return r
}

func maxInt64(a, b int64) int64 {
	if b > a {
		return b
	}
	return a
}

// summarizeActivity groups END records intersecting the interval by dimension instance
func summarizeActivity(events []model.EventRecord, kind model.DimensionKind, interval model.Interval) []model.ActivityRecord {
	from, to := interval.Start.Unix(), interval.End.Unix()

	groups := make(map[activityKey]*accumulator)
	for i := range events {
		e := &events[i]
		if !inInterval(e, from, to) {
			continue
		}
		key, ok := keyFor(e, kind)
		if !ok {
			continue
		}
		acc, ok := groups[key]
		if !ok {
			acc = &accumulator{
				rec: model.ActivityRecord{
					Host:  key.host,
					Queue: key.queue,
					Group: key.group,
					User:  key.user,
				},
				users:  make(map[string]struct{}),
				groups: make(map[string]struct{}),
			}
			groups[key] = acc
		}
		acc.add(e)
	}

	keys := make([]activityKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.host != b.host {
			return a.host < b.host
		}
		if a.queue != b.queue {
			return a.queue < b.queue
		}
		if a.group != b.group {
			return a.group < b.group
		}
		return a.user < b.user
	})

	records := make([]model.ActivityRecord, 0, len(keys))
	for _, k := range keys {
		records = append(records, groups[k].finish(kind))
	}
	return records
}

// bucketValue summed cpu time (consumption) or average wait for one histogram bucket
func bucketValue(events []model.EventRecord, q model.BucketQuery, consumption bool) model.BucketValue {
	from, to := q.Start.Unix(), q.End.Unix()

	var v model.BucketValue
	var total int64
	for i := range events {
		e := &events[i]
		if e.Host != q.Host || e.ResourcesUsedCpus == nil || !inInterval(e, from, to) {
			continue
		}
		if !q.Bucket.Contains(*e.ResourcesUsedCpus) {
			continue
		}
		v.Jobs++
		if consumption {
			total += val64(e.ResourcesUsedCput)
		} else {
			total += waitTime(e)
		}
	}
	if v.Jobs == 0 {
		return v
	}
	if consumption {
		v.Value = float64(total)
	} else {
		v.Value = float64(total) / float64(v.Jobs)
	}
	return v
}

// observe distinct dimension combinations in events, sorted
func observe(events []model.EventRecord, kind model.DimensionKind) []model.Observation {
	seen := make(map[model.Observation]struct{})
	for i := range events {
		e := &events[i]
		if e.Host == "" {
			continue
		}
		o := model.Observation{Host: e.Host}
		switch kind {
		case model.DimensionQueue:
			if e.Queue == "" {
				continue
			}
			o.Queue = e.Queue
		case model.DimensionGroup:
			if e.Group == "" {
				continue
			}
			o.Group = e.Group
		case model.DimensionUser:
			if e.User == "" {
				continue
			}
			o.User, o.Group, o.Queue = e.User, e.Group, e.Queue
		}
		seen[o] = struct{}{}
	}

	out := make([]model.Observation, 0, len(seen))
	for o := range seen {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Host != b.Host {
			return a.Host < b.Host
		}
		if a.User != b.User {
			return a.User < b.User
		}
		if a.Queue != b.Queue {
			return a.Queue < b.Queue
		}
		return a.Group < b.Group
	})
	return out
}
