package mysql

import "go.uber.org/zap"

// Repository aggregates all MySQL repositories
type Repository struct {
	ds *Datastore

	Event     *EventRepository
	Dimension *DimensionRepository
	Activity  *ActivityRepository
}

// NewRepository creates a new MySQL repository with all sub-repositories
func NewRepository(dsn string, log *zap.Logger) (*Repository, error) {
	ds, err := NewDatastore(dsn, log)
	if err != nil {
		return nil, err
	}

	return &Repository{
		ds:        ds,
		Event:     NewEventRepository(ds),
		Dimension: NewDimensionRepository(ds),
		Activity:  NewActivityRepository(ds),
	}, nil
}

// GetDatastore returns the underlying datastore for transaction support
func (r *Repository) GetDatastore() *Datastore {
	return r.ds
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.ds.Close()
}
