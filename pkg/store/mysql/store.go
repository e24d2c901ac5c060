package mysql

import (
	"context"
	"time"

	"pbsacct/internal/model"
	"pbsacct/pkg/interfaces"
)

var (
	dimensionInsertStmts = map[interfaces.Statement]model.DimensionKind{
		interfaces.StmtInsertCluster: model.DimensionCluster,
		interfaces.StmtInsertQueue:   model.DimensionQueue,
		interfaces.StmtInsertGroup:   model.DimensionGroup,
		interfaces.StmtInsertUser:    model.DimensionUser,
	}
	dimensionSelectStmts = map[interfaces.Statement]model.DimensionKind{
		interfaces.StmtSelectClusters: model.DimensionCluster,
		interfaces.StmtSelectQueues:   model.DimensionQueue,
		interfaces.StmtSelectGroups:   model.DimensionGroup,
		interfaces.StmtSelectUsers:    model.DimensionUser,
	}
	observationStmts = map[interfaces.Statement]model.DimensionKind{
		interfaces.StmtSelectClustersFromEvents: model.DimensionCluster,
		interfaces.StmtSelectQueuesFromEvents:   model.DimensionQueue,
		interfaces.StmtSelectGroupsFromEvents:   model.DimensionGroup,
		interfaces.StmtSelectUsersFromEvents:    model.DimensionUser,
	}
	linkInsertStmts = map[interfaces.Statement]string{
		interfaces.StmtInsertQueueClusterLink: linkQueueCluster,
		interfaces.StmtInsertGroupClusterLink: linkGroupCluster,
		interfaces.StmtInsertUserClusterLink:  linkUserCluster,
		interfaces.StmtInsertUserGroupLink:    linkUserGroup,
		interfaces.StmtInsertUserQueueLink:    linkUserQueue,
	}
	linkDeleteStmts = map[interfaces.Statement]string{
		interfaces.StmtDeleteQueueClusterLink: linkQueueCluster,
		interfaces.StmtDeleteGroupClusterLink: linkGroupCluster,
		interfaces.StmtDeleteUserClusterLink:  linkUserCluster,
		interfaces.StmtDeleteUserGroupLink:    linkUserGroup,
		interfaces.StmtDeleteUserQueueLink:    linkUserQueue,
	}
	activitySelectStmts = map[interfaces.Statement]model.DimensionKind{
		interfaces.StmtSelectClusterActivity: model.DimensionCluster,
		interfaces.StmtSelectQueueActivity:   model.DimensionQueue,
		interfaces.StmtSelectGroupActivity:   model.DimensionGroup,
		interfaces.StmtSelectUserActivity:    model.DimensionUser,
	}
	activityInsertStmts = map[interfaces.Statement]model.DimensionKind{
		interfaces.StmtInsertClusterActivity: model.DimensionCluster,
		interfaces.StmtInsertQueueActivity:   model.DimensionQueue,
		interfaces.StmtInsertGroupActivity:   model.DimensionGroup,
		interfaces.StmtInsertUserActivity:    model.DimensionUser,
	}
	activityTruncateStmts = map[interfaces.Statement]model.DimensionKind{
		interfaces.StmtTruncateClusterActivity: model.DimensionCluster,
		interfaces.StmtTruncateQueueActivity:   model.DimensionQueue,
		interfaces.StmtTruncateGroupActivity:   model.DimensionGroup,
		interfaces.StmtTruncateUserActivity:    model.DimensionUser,
	}
	histogramQueryStmts = map[interfaces.Statement]string{
		interfaces.StmtCpuConsumption: histogramCpuConsumption,
		interfaces.StmtActualWaitTime: histogramActualWaitTime,
	}
	histogramInsertStmts = map[interfaces.Statement]string{
		interfaces.StmtInsertCpuConsumption: histogramCpuConsumption,
		interfaces.StmtInsertActualWaitTime: histogramActualWaitTime,
	}
	histogramTruncateStmts = map[interfaces.Statement]string{
		interfaces.StmtTruncateCpuConsumption: histogramCpuConsumption,
		interfaces.StmtTruncateActualWaitTime: histogramActualWaitTime,
	}
)

// Store implements interfaces.Store on top of the MySQL repositories
type Store struct {
	repo *Repository
}

var (
	_ interfaces.Store      = (*Store)(nil)
	_ interfaces.Transactor = (*Store)(nil)
)

// NewStore creates a Store over repo
func NewStore(repo *Repository) *Store {
	return &Store{repo: repo}
}

// Migrate creates or updates every table
func (s *Store) Migrate(ctx context.Context) error {
	return s.repo.GetDatastore().Migrate(ctx)
}

// ExecTx implements interfaces.Transactor
func (s *Store) ExecTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.repo.GetDatastore().ExecTx(ctx, fn)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.repo.Close()
}

// Insert implements interfaces.Store
func (s *Store) Insert(ctx context.Context, stmt interfaces.Statement, arg interface{}) (int64, error) {
	if kind, ok := dimensionInsertStmts[stmt]; ok {
		name, ok := arg.(string)
		if !ok {
			return 0, &interfaces.ArgTypeError{Stmt: stmt, Want: "string", Got: arg}
		}
		return s.repo.Dimension.Create(ctx, kind, name)
	}
	if table, ok := linkInsertStmts[stmt]; ok {
		link, ok := arg.(model.Link)
		if !ok {
			return 0, &interfaces.ArgTypeError{Stmt: stmt, Want: "model.Link", Got: arg}
		}
		return 0, s.repo.Dimension.CreateLink(ctx, table, link)
	}
	if kind, ok := activityInsertStmts[stmt]; ok {
		link, ok := arg.(*model.ActivityLink)
		if !ok {
			return 0, &interfaces.ArgTypeError{Stmt: stmt, Want: "*model.ActivityLink", Got: arg}
		}
		return 0, s.repo.Activity.CreateLink(ctx, kind, link)
	}
	if table, ok := histogramInsertStmts[stmt]; ok {
		row, ok := arg.(*model.HistogramRow)
		if !ok {
			return 0, &interfaces.ArgTypeError{Stmt: stmt, Want: "*model.HistogramRow", Got: arg}
		}
		return 0, s.repo.Activity.CreateHistogramRow(ctx, table, row)
	}

	switch stmt {
	case interfaces.StmtInsertEvent:
		rec, ok := arg.(*model.EventRecord)
		if !ok {
			return 0, &interfaces.ArgTypeError{Stmt: stmt, Want: "*model.EventRecord", Got: arg}
		}
		return s.repo.Event.Create(ctx, rec)
	case interfaces.StmtInsertHostLog:
		usage, ok := arg.(*model.HostUsage)
		if !ok {
			return 0, &interfaces.ArgTypeError{Stmt: stmt, Want: "*model.HostUsage", Got: arg}
		}
		return s.repo.Event.CreateHost(ctx, usage)
	case interfaces.StmtInsertInterval:
		iv, ok := arg.(*model.Interval)
		if !ok {
			return 0, &interfaces.ArgTypeError{Stmt: stmt, Want: "*model.Interval", Got: arg}
		}
		return s.repo.Activity.CreateInterval(ctx, iv)
	case interfaces.StmtInsertActivity:
		rec, ok := arg.(*model.ActivityRecord)
		if !ok {
			return 0, &interfaces.ArgTypeError{Stmt: stmt, Want: "*model.ActivityRecord", Got: arg}
		}
		return s.repo.Activity.CreateActivity(ctx, rec)
	}

	return 0, &interfaces.UnsupportedStatementError{Op: "insert", Stmt: stmt}
}

// QueryRow implements interfaces.Store
func (s *Store) QueryRow(ctx context.Context, stmt interfaces.Statement, arg interface{}, dest interface{}) (bool, error) {
	if table, ok := histogramQueryStmts[stmt]; ok {
		q, ok := arg.(model.BucketQuery)
		if !ok {
			return false, &interfaces.ArgTypeError{Stmt: stmt, Want: "model.BucketQuery", Got: arg}
		}
		out, ok := dest.(*model.BucketValue)
		if !ok {
			return false, &interfaces.ArgTypeError{Stmt: stmt, Want: "*model.BucketValue", Got: dest}
		}
		v, found, err := s.repo.Activity.Bucket(ctx, table, q)
		if err != nil || !found {
			return false, err
		}
		*out = v
		return true, nil
	}

	if stmt == interfaces.StmtMaxDate {
		host, ok := arg.(string)
		if !ok {
			return false, &interfaces.ArgTypeError{Stmt: stmt, Want: "string", Got: arg}
		}
		out, ok := dest.(*time.Time)
		if !ok {
			return false, &interfaces.ArgTypeError{Stmt: stmt, Want: "*time.Time", Got: dest}
		}
		max, found, err := s.repo.Event.MaxDate(ctx, host)
		if err != nil || !found {
			return false, err
		}
		*out = max
		return true, nil
	}

	return false, &interfaces.UnsupportedStatementError{Op: "query row", Stmt: stmt}
}

// QueryList implements interfaces.Store
func (s *Store) QueryList(ctx context.Context, stmt interfaces.Statement, arg interface{}, dest interface{}) error {
	if kind, ok := dimensionSelectStmts[stmt]; ok {
		out, ok := dest.(*[]model.Dimension)
		if !ok {
			return &interfaces.ArgTypeError{Stmt: stmt, Want: "*[]model.Dimension", Got: dest}
		}
		rows, err := s.repo.Dimension.List(ctx, kind)
		if err != nil {
			return err
		}
		*out = rows
		return nil
	}
	if kind, ok := observationStmts[stmt]; ok {
		out, ok := dest.(*[]model.Observation)
		if !ok {
			return &interfaces.ArgTypeError{Stmt: stmt, Want: "*[]model.Observation", Got: dest}
		}
		rows, err := s.repo.Dimension.Observe(ctx, kind)
		if err != nil {
			return err
		}
		*out = rows
		return nil
	}
	if kind, ok := activitySelectStmts[stmt]; ok {
		iv, ok := arg.(model.Interval)
		if !ok {
			return &interfaces.ArgTypeError{Stmt: stmt, Want: "model.Interval", Got: arg}
		}
		out, ok := dest.(*[]model.ActivityRecord)
		if !ok {
			return &interfaces.ArgTypeError{Stmt: stmt, Want: "*[]model.ActivityRecord", Got: dest}
		}
		rows, err := s.repo.Activity.Summarize(ctx, kind, iv)
		if err != nil {
			return err
		}
		*out = rows
		return nil
	}

	return &interfaces.UnsupportedStatementError{Op: "query list", Stmt: stmt}
}

// Delete implements interfaces.Store. Truncates report zero rows.
func (s *Store) Delete(ctx context.Context, stmt interfaces.Statement, arg interface{}) (int64, error) {
	if table, ok := linkDeleteStmts[stmt]; ok {
		link, ok := arg.(model.Link)
		if !ok {
			return 0, &interfaces.ArgTypeError{Stmt: stmt, Want: "model.Link", Got: arg}
		}
		return s.repo.Dimension.DeleteLink(ctx, table, link)
	}
	if kind, ok := activityTruncateStmts[stmt]; ok {
		return 0, s.repo.Activity.TruncateLinks(ctx, kind)
	}
	if table, ok := histogramTruncateStmts[stmt]; ok {
		return 0, s.repo.Activity.TruncateHistogram(ctx, table)
	}

	switch stmt {
	case interfaces.StmtTruncateIntervals:
		return 0, s.repo.Activity.TruncateIntervals(ctx)
	case interfaces.StmtTruncateActivity:
		return 0, s.repo.Activity.TruncateActivity(ctx)
	}

	return 0, &interfaces.UnsupportedStatementError{Op: "delete", Stmt: stmt}
}
