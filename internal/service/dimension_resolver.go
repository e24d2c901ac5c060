package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"pbsacct/internal/model"
	"pbsacct/pkg/interfaces"
)

// DimensionTable name-keyed lookup of one dimension kind, valid for a single run
type DimensionTable struct {
	kind   model.DimensionKind
	byName map[string]model.Dimension
}

func newDimensionTable(kind model.DimensionKind, rows []model.Dimension) *DimensionTable {
	t := &DimensionTable{kind: kind, byName: make(map[string]model.Dimension, len(rows))}
	for _, r := range rows {
		t.byName[r.Name] = r
	}
	return t
}

// Kind returns the dimension kind
func (t *DimensionTable) Kind() model.DimensionKind {
	return t.kind
}

// Get looks a dimension up by name
func (t *DimensionTable) Get(name string) (model.Dimension, bool) {
	d, ok := t.byName[name]
	return d, ok
}

// ID returns the surrogate id for name, 0 if unknown
func (t *DimensionTable) ID(name string) int64 {
	return t.byName[name].ID
}

// Len number of known dimensions
func (t *DimensionTable) Len() int {
	return len(t.byName)
}

// Names returns the known names in sorted order
func (t *DimensionTable) Names() []string {
	names := make([]string, 0, len(t.byName))
	for n := range t.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (t *DimensionTable) put(d model.Dimension) {
	t.byName[d.Name] = d
}

// Dimensions the four lookup tables produced by one resolution
type Dimensions struct {
	Clusters *DimensionTable
	Queues   *DimensionTable
	Groups   *DimensionTable
	Users    *DimensionTable
}

// Table returns the lookup table for kind
func (d *Dimensions) Table(kind model.DimensionKind) *DimensionTable {
	switch kind {
	case model.DimensionCluster:
		return d.Clusters
	case model.DimensionQueue:
		return d.Queues
	case model.DimensionGroup:
		return d.Groups
	case model.DimensionUser:
		return d.Users
	}
	return nil
}

var dimensionStatements = map[model.DimensionKind]struct {
	selectAll  interfaces.Statement
	fromEvents interfaces.Statement
	insert     interfaces.Statement
}{
	model.DimensionCluster: {interfaces.StmtSelectClusters, interfaces.StmtSelectClustersFromEvents, interfaces.StmtInsertCluster},
	model.DimensionQueue:   {interfaces.StmtSelectQueues, interfaces.StmtSelectQueuesFromEvents, interfaces.StmtInsertQueue},
	model.DimensionGroup:   {interfaces.StmtSelectGroups, interfaces.StmtSelectGroupsFromEvents, interfaces.StmtInsertGroup},
	model.DimensionUser:    {interfaces.StmtSelectUsers, interfaces.StmtSelectUsersFromEvents, interfaces.StmtInsertUser},
}

// ResolveStats counters for one resolution
type ResolveStats struct {
	Inserted map[model.DimensionKind]int `json:"inserted"`
	Links    int                         `json:"links"`
	Failed   int                         `json:"failed"`
}

// DimensionResolver upserts dimensions observed in persisted events and refreshes their links
type DimensionResolver struct {
	store interfaces.Store
	log   *zap.Logger
}

// NewDimensionResolver creates a resolver
func NewDimensionResolver(store interfaces.Store, log *zap.Logger) *DimensionResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &DimensionResolver{store: store, log: log}
}

// Resolve seeds the lookup tables from the store, inserts unseen dimensions and
// rewrites every observed link. Only a failed read is returned as an error.
func (r *DimensionResolver) Resolve(ctx context.Context) (*Dimensions, ResolveStats, error) {
	stats := ResolveStats{Inserted: make(map[model.DimensionKind]int)}

	dims := &Dimensions{}
	for _, kind := range model.DimensionKinds() {
		var rows []model.Dimension
		if err := r.store.QueryList(ctx, dimensionStatements[kind].selectAll, nil, &rows); err != nil {
			return nil, stats, fmt.Errorf("failed to load %s dimensions: %w", kind, err)
		}
		t := newDimensionTable(kind, rows)
		switch kind {
		case model.DimensionCluster:
			dims.Clusters = t
		case model.DimensionQueue:
			dims.Queues = t
		case model.DimensionGroup:
			dims.Groups = t
		case model.DimensionUser:
			dims.Users = t
		}
	}

	for _, kind := range model.DimensionKinds() {
		var observed []model.Observation
		if err := r.store.QueryList(ctx, dimensionStatements[kind].fromEvents, nil, &observed); err != nil {
			return nil, stats, fmt.Errorf("failed to observe %s dimensions: %w", kind, err)
		}
		for _, o := range observed {
			r.resolveObservation(ctx, kind, o, dims, &stats)
		}
	}

	r.log.Info("dimensions resolved",
		zap.Int("clusters", dims.Clusters.Len()),
		zap.Int("queues", dims.Queues.Len()),
		zap.Int("groups", dims.Groups.Len()),
		zap.Int("users", dims.Users.Len()),
		zap.Int("links", stats.Links),
		zap.Int("failed", stats.Failed))
	return dims, stats, nil
}

func (r *DimensionResolver) resolveObservation(ctx context.Context, kind model.DimensionKind, o model.Observation, dims *Dimensions, stats *ResolveStats) {
	cluster, ok := r.ensure(ctx, dims.Clusters, o.Host, stats)
	if !ok || kind == model.DimensionCluster {
		return
	}

	switch kind {
	case model.DimensionQueue:
		if queue, ok := r.ensure(ctx, dims.Queues, o.Queue, stats); ok {
			r.refreshLink(ctx, interfaces.StmtDeleteQueueClusterLink, interfaces.StmtInsertQueueClusterLink,
				model.Link{LeftID: queue.ID, RightID: cluster.ID}, stats)
		}

	case model.DimensionGroup:
		if group, ok := r.ensure(ctx, dims.Groups, o.Group, stats); ok {
			r.refreshLink(ctx, interfaces.StmtDeleteGroupClusterLink, interfaces.StmtInsertGroupClusterLink,
				model.Link{LeftID: group.ID, RightID: cluster.ID}, stats)
		}

	case model.DimensionUser:
		user, ok := r.ensure(ctx, dims.Users, o.User, stats)
		if !ok {
			return
		}
		r.refreshLink(ctx, interfaces.StmtDeleteUserClusterLink, interfaces.StmtInsertUserClusterLink,
			model.Link{LeftID: user.ID, RightID: cluster.ID}, stats)
		if o.Group != "" {
			if group, ok := r.ensure(ctx, dims.Groups, o.Group, stats); ok {
				r.refreshLink(ctx, interfaces.StmtDeleteUserGroupLink, interfaces.StmtInsertUserGroupLink,
					model.Link{LeftID: user.ID, RightID: group.ID}, stats)
			}
		}
		if o.Queue != "" {
			if queue, ok := r.ensure(ctx, dims.Queues, o.Queue, stats); ok {
				r.refreshLink(ctx, interfaces.StmtDeleteUserQueueLink, interfaces.StmtInsertUserQueueLink,
					model.Link{LeftID: user.ID, RightID: queue.ID}, stats)
			}
		}
	}
}

// ensure returns the dimension named name, inserting it when absent
func (r *DimensionResolver) ensure(ctx context.Context, t *DimensionTable, name string, stats *ResolveStats) (model.Dimension, bool) {
	if name == "" {
		return model.Dimension{}, false
	}
	if d, ok := t.Get(name); ok {
		return d, true
	}

	id, err := r.store.Insert(ctx, dimensionStatements[t.kind].insert, name)
	if err == nil && id == 0 {
		err = fmt.Errorf("%w: generated id was empty", model.ErrLoadingFailure)
	}
	if err != nil {
		stats.Failed++
		r.log.Error("failed to insert dimension",
			zap.String("kind", string(t.kind)), zap.String("name", name), zap.Error(err))
		return model.Dimension{}, false
	}

	d := model.Dimension{ID: id, Name: name}
	t.put(d)
	stats.Inserted[t.kind]++
	r.log.Debug("dimension inserted", zap.String("kind", string(t.kind)), zap.String("name", name), zap.Int64("id", id))
	return d, true
}

// refreshLink deletes the pairing then inserts it again
func (r *DimensionResolver) refreshLink(ctx context.Context, del, ins interfaces.Statement, link model.Link, stats *ResolveStats) {
	if _, err := r.store.Delete(ctx, del, link); err != nil {
		stats.Failed++
		r.log.Error("failed to delete link", zap.Stringer("statement", del), zap.Any("link", link), zap.Error(err))
		return
	}
	if _, err := r.store.Insert(ctx, ins, link); err != nil {
		stats.Failed++
		r.log.Error("failed to insert link", zap.Stringer("statement", ins), zap.Any("link", link), zap.Error(err))
		return
	}
	stats.Links++
}
