package shredder

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"pbsacct/internal/model"

	"go.uber.org/zap"
)

// DefaultDateLayout accounting log timestamp layout (MM/dd/yyyy HH:mm:ss)
const DefaultDateLayout = "01/02/2006 15:04:05"

// ParsedLine result of parsing one accounting line
type ParsedLine struct {
	Record *model.EventRecord
	// Hosts the exec_host pairs, written as per-host usage rows once the record has an id
	Hosts []HostCPU
}

// Parser turns accounting log lines into event records
type Parser struct {
	host       string
	location   *time.Location
	dateLayout string
	log        *zap.Logger
}

// ParserOption configures a Parser
type ParserOption func(*Parser)

// WithHost forces every record's host, overriding the host parsed from the line
func WithHost(host string) ParserOption {
	return func(p *Parser) {
		p.host = host
	}
}

// WithLocation sets the time zone used for line timestamps
func WithLocation(loc *time.Location) ParserOption {
	return func(p *Parser) {
		if loc != nil {
			p.location = loc
		}
	}
}

// WithDateLayout sets the line timestamp layout
func WithDateLayout(layout string) ParserOption {
	return func(p *Parser) {
		if layout != "" {
			p.dateLayout = layout
		}
	}
}

// NewParser creates a parser
func NewParser(log *zap.Logger, opts ...ParserOption) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Parser{
		location:   time.Local,
		dateLayout: DefaultDateLayout,
		log:        log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Host returns the host override, or "" when hosts come from the log
func (p *Parser) Host() string {
	return p.host
}

// Location returns the time zone used for timestamps
func (p *Parser) Location() *time.Location {
	return p.location
}

// ParseLine parses "timestamp;code;jobid.host[;key=value ...]".
// Unknown event codes and unknown keys are tolerated.
func (p *Parser) ParseLine(line string) (*ParsedLine, error) {
	fields := splitFields(line)
	var params string
	switch len(fields) {
	case 3:
	case 4:
		params = fields[3]
	default:
		return nil, fmt.Errorf("%w: expected 3 or 4 fields, got %d", model.ErrMalformedLine, len(fields))
	}

	rec := &model.EventRecord{}
	if t, ok := model.EventTypeFromCode(fields[1]); ok {
		rec.EventType = t
	} else {
		p.log.Debug("unknown event code", zap.String("code", fields[1]))
	}

	dateKey, err := time.ParseInLocation(p.dateLayout, fields[0], p.location)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp %q", model.ErrMalformedLine, fields[0])
	}
	rec.DateKey = dateKey

	if err := p.setJobIDAndHost(rec, fields[2]); err != nil {
		return nil, err
	}

	parsed := &ParsedLine{Record: rec}
	for _, token := range strings.Fields(params) {
		key, val, found := strings.Cut(token, "=")
		if !found {
			p.log.Error("malformed param, no '=' found", zap.String("param", token))
			continue
		}
		key = strings.ToLower(strings.ReplaceAll(key, ".", "_"))

		if key == "exec_host" {
			hosts, err := setExecHost(rec, val)
			if err != nil {
				return nil, err
			}
			parsed.Hosts = hosts
			continue
		}

		setter, ok := fieldSetters[key]
		if !ok {
			continue
		}
		if err := setter(rec, val); err != nil {
			return nil, fmt.Errorf("param %s: %w", key, err)
		}
	}

	return parsed, nil
}

// splitFields splits on ";" dropping trailing empty fields
func splitFields(line string) []string {
	fields := strings.Split(line, ";")
	for len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}

// setJobIDAndHost handles "jobid.host" and the array form "jobid[idx].host"
func (p *Parser) setJobIDAndHost(rec *model.EventRecord, val string) error {
	idPart, host, found := strings.Cut(val, ".")
	if !found {
		return fmt.Errorf("%w: %q", model.ErrInvalidJobID, val)
	}

	var arrayIndex *int64
	if open := strings.IndexByte(idPart, '['); open >= 0 && strings.HasSuffix(idPart, "]") {
		idx := idPart[open+1 : len(idPart)-1]
		if idx != "" {
			n, err := strconv.ParseInt(idx, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: array index %q", model.ErrInvalidJobID, idPart)
			}
			arrayIndex = &n
		}
		idPart = idPart[:open]
	}

	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", model.ErrInvalidJobID, idPart)
	}

	rec.JobID = id
	rec.JobArrayIndex = arrayIndex
	if p.host != "" {
		rec.Host = p.host
	} else {
		rec.Host = host
	}
	return nil
}

func setExecHost(rec *model.EventRecord, val string) ([]HostCPU, error) {
	hosts, err := ParseExecHost(val)
	if err != nil {
		return nil, err
	}
	nodes, cpus := CountExecHost(hosts)
	rec.ResourcesUsedNodes = model.IntPtr(nodes)
	rec.ResourcesUsedCpus = model.IntPtr(cpus)
	rec.ExecHost = val
	return hosts, nil
}

type fieldSetter func(rec *model.EventRecord, val string) error

func memoryField(field func(*model.EventRecord) **int64) fieldSetter {
	return func(rec *model.EventRecord, val string) error {
		v, err := ParseMemory(val)
		if err != nil {
			return err
		}
		*field(rec) = &v
		return nil
	}
}

func timeField(field func(*model.EventRecord) **int64) fieldSetter {
	return func(rec *model.EventRecord, val string) error {
		v, err := ParseTime(val)
		if err != nil {
			return err
		}
		*field(rec) = &v
		return nil
	}
}

func unixField(field func(*model.EventRecord) **int64) fieldSetter {
	return func(rec *model.EventRecord, val string) error {
		v, err := ParseUnixTime(val)
		if err != nil {
			return err
		}
		*field(rec) = &v
		return nil
	}
}

func stringField(field func(*model.EventRecord) *string) fieldSetter {
	return func(rec *model.EventRecord, val string) error {
		*field(rec) = val
		return nil
	}
}

// fieldSetters dispatch table for normalized param keys. exec_host is handled separately.
var fieldSetters = map[string]fieldSetter{
	"resources_used_vmem": memoryField(func(r *model.EventRecord) **int64 { return &r.ResourcesUsedVmem }),
	"resources_used_mem":  memoryField(func(r *model.EventRecord) **int64 { return &r.ResourcesUsedMem }),
	"resource_list_mem":   memoryField(func(r *model.EventRecord) **int64 { return &r.ResourceListMem }),
	"resource_list_pmem":  memoryField(func(r *model.EventRecord) **int64 { return &r.ResourceListPmem }),

	"resources_used_walltime": timeField(func(r *model.EventRecord) **int64 { return &r.ResourcesUsedWalltime }),
	"resources_used_cput":     timeField(func(r *model.EventRecord) **int64 { return &r.ResourcesUsedCput }),
	"resource_list_pcput":     timeField(func(r *model.EventRecord) **int64 { return &r.ResourceListPcput }),
	"resource_list_cput":      timeField(func(r *model.EventRecord) **int64 { return &r.ResourceListCput }),
	"resource_list_walltime":  timeField(func(r *model.EventRecord) **int64 { return &r.ResourceListWalltime }),

	"ctime": unixField(func(r *model.EventRecord) **int64 { return &r.CreationTime }),
	"qtime": unixField(func(r *model.EventRecord) **int64 { return &r.QueueTime }),
	"start": unixField(func(r *model.EventRecord) **int64 { return &r.StartTime }),
	"end":   unixField(func(r *model.EventRecord) **int64 { return &r.EndTime }),
	"etime": unixField(func(r *model.EventRecord) **int64 { return &r.EligibleTime }),

	"user":        stringField(func(r *model.EventRecord) *string { return &r.User }),
	"group":       stringField(func(r *model.EventRecord) *string { return &r.Group }),
	"queue":       stringField(func(r *model.EventRecord) *string { return &r.Queue }),
	"exit_status": stringField(func(r *model.EventRecord) *string { return &r.ExitStatus }),
	"requestor":   stringField(func(r *model.EventRecord) *string { return &r.Requestor }),
	"session":     stringField(func(r *model.EventRecord) *string { return &r.Session }),
	"jobname":     stringField(func(r *model.EventRecord) *string { return &r.JobName }),
	"account":     stringField(func(r *model.EventRecord) *string { return &r.Account }),

	"resource_list_nodes":     stringField(func(r *model.EventRecord) *string { return &r.ResourceListNodes }),
	"resource_list_procs":     stringField(func(r *model.EventRecord) *string { return &r.ResourceListProcs }),
	"resource_list_neednodes": stringField(func(r *model.EventRecord) *string { return &r.ResourceListNeednodes }),
	"resource_list_ncpus":     stringField(func(r *model.EventRecord) *string { return &r.ResourceListNcpus }),
	"resource_list_nodect":    stringField(func(r *model.EventRecord) *string { return &r.ResourceListNodect }),
}
