package mysql

import (
	"context"
	"fmt"

	"pbsacct/internal/model"
	mysqlModel "pbsacct/pkg/store/mysql/model"
)

// dimensionTable names the id and name columns of one dimension table
type dimensionTable struct {
	table   string
	idCol   string
	nameCol string
}

var dimensionTables = map[model.DimensionKind]dimensionTable{
	model.DimensionCluster: {table: "cluster", idCol: "cluster.cluster_id", nameCol: "cluster.host"},
	model.DimensionQueue:   {table: "queue", idCol: "queue.queue_id", nameCol: "queue.queue"},
	model.DimensionGroup:   {table: "research_group", idCol: "research_group.group_id", nameCol: "research_group.group"},
	model.DimensionUser:    {table: "user", idCol: "user.user_id", nameCol: "user.user"},
}

// Distinct combinations per dimension. Qualified names let the reserved word group pass unquoted.
var observationQueries = map[model.DimensionKind]string{
	model.DimensionCluster: `
		SELECT DISTINCT e.host
		FROM event e
		WHERE e.host <> ''
		ORDER BY e.host`,
	model.DimensionQueue: `
		SELECT DISTINCT e.host, e.queue
		FROM event e
		WHERE e.host <> '' AND e.queue <> ''
		ORDER BY e.host, e.queue`,
	model.DimensionGroup: `
		SELECT DISTINCT e.host, e.group AS group_name
		FROM event e
		WHERE e.host <> '' AND e.group <> ''
		ORDER BY e.host, e.group`,
	model.DimensionUser: `
		SELECT DISTINCT e.host, e.user, e.group AS group_name, e.queue
		FROM event e
		WHERE e.host <> '' AND e.user <> ''
		ORDER BY e.host, e.user, e.queue, e.group`,
}

const (
	linkQueueCluster = "queue_cluster"
	linkGroupCluster = "group_cluster"
	linkUserCluster  = "user_cluster"
	linkUserGroup    = "user_group"
	linkUserQueue    = "user_queue"
)

// linkColumns left and right id columns of each link table
var linkColumns = map[string][2]string{
	linkQueueCluster: {"queue_id", "cluster_id"},
	linkGroupCluster: {"group_id", "cluster_id"},
	linkUserCluster:  {"user_id", "cluster_id"},
	linkUserGroup:    {"user_id", "group_id"},
	linkUserQueue:    {"user_id", "queue_id"},
}

// DimensionRepository handles cluster, queue, group and user tables and their links
type DimensionRepository struct {
	ds *Datastore
}

// NewDimensionRepository creates a new dimension repository
func NewDimensionRepository(ds *Datastore) *DimensionRepository {
	return &DimensionRepository{ds: ds}
}

// List returns every row of the dimension table in id order
func (r *DimensionRepository) List(ctx context.Context, kind model.DimensionKind) ([]model.Dimension, error) {
	t, ok := dimensionTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown dimension %q", kind)
	}

	var rows []model.Dimension
	err := r.ds.DB(ctx).Table(t.table).
		Select(t.idCol + " AS id, " + t.nameCol + " AS name").
		Order(t.idCol).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", t.table, err)
	}
	return rows, nil
}

// Create inserts a dimension name and returns its generated id
func (r *DimensionRepository) Create(ctx context.Context, kind model.DimensionKind, name string) (int64, error) {
	row := ToDimensionRow(kind, name)
	if row == nil {
		return 0, fmt.Errorf("unknown dimension %q", kind)
	}
	if err := r.ds.DB(ctx).Create(row).Error; err != nil {
		return 0, fmt.Errorf("failed to insert %s %q: %w", kind, name, err)
	}
	return row.RowID(), nil
}

// Observe returns the distinct combinations of the dimension present in event
func (r *DimensionRepository) Observe(ctx context.Context, kind model.DimensionKind) ([]model.Observation, error) {
	query, ok := observationQueries[kind]
	if !ok {
		return nil, fmt.Errorf("unknown dimension %q", kind)
	}

	var rows []mysqlModel.ObservationRow
	if err := r.ds.DB(ctx).Raw(query).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read %s values from events: %w", kind, err)
	}

	out := make([]model.Observation, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToObservationDomain(row))
	}
	return out, nil
}

// CreateLink inserts an association row
func (r *DimensionRepository) CreateLink(ctx context.Context, table string, link model.Link) error {
	row := ToLinkRow(table, link)
	if row == nil {
		return fmt.Errorf("unknown link table %q", table)
	}
	if err := r.ds.DB(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to insert %s link %d-%d: %w", table, link.LeftID, link.RightID, err)
	}
	return nil
}

// DeleteLink removes an association row and returns the number deleted
func (r *DimensionRepository) DeleteLink(ctx context.Context, table string, link model.Link) (int64, error) {
	cols, ok := linkColumns[table]
	if !ok {
		return 0, fmt.Errorf("unknown link table %q", table)
	}

	result := r.ds.DB(ctx).Exec(
		"DELETE FROM "+table+" WHERE "+cols[0]+" = ? AND "+cols[1]+" = ?",
		link.LeftID, link.RightID,
	)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete %s link %d-%d: %w", table, link.LeftID, link.RightID, result.Error)
	}
	return result.RowsAffected, nil
}
