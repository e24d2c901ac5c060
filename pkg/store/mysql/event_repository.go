package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pbsacct/internal/model"
	mysqlModel "pbsacct/pkg/store/mysql/model"
)

// EventRepository handles raw event persistence in MySQL
type EventRepository struct {
	ds *Datastore
}

// NewEventRepository creates a new event repository
func NewEventRepository(ds *Datastore) *EventRepository {
	return &EventRepository{ds: ds}
}

// Create inserts one event and returns its generated id
func (r *EventRepository) Create(ctx context.Context, rec *model.EventRecord) (int64, error) {
	row := FromEventDomain(rec)
	if err := r.ds.DB(ctx).Create(row).Error; err != nil {
		return 0, fmt.Errorf("failed to insert event for job %d: %w", rec.JobID, err)
	}
	return row.EventID, nil
}

// CreateHost inserts one host/cpu slot of an event
func (r *EventRepository) CreateHost(ctx context.Context, usage *model.HostUsage) (int64, error) {
	row := &mysqlModel.EventHost{EventID: usage.EventID, Host: usage.Host, CPU: usage.CPU}
	if err := r.ds.DB(ctx).Create(row).Error; err != nil {
		return 0, fmt.Errorf("failed to insert host %s for event %d: %w", usage.Host, usage.EventID, err)
	}
	return row.ID, nil
}

// MaxDate returns the latest event timestamp, optionally for one host. False when no event matches.
func (r *EventRepository) MaxDate(ctx context.Context, host string) (time.Time, bool, error) {
	query := r.ds.DB(ctx).Model(&mysqlModel.Event{}).Select("MAX(date_key)")
	if host != "" {
		query = query.Where("host = ?", host)
	}

	var max sql.NullTime
	if err := query.Row().Scan(&max); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get max event date: %w", err)
	}
	if !max.Valid {
		return time.Time{}, false, nil
	}
	return max.Time, true, nil
}
