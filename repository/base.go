/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomoncle/doctools/database"
	"github.com/tomoncle/doctools/types"
)

var errNilEntity = errors.New("entity cannot be nil")

type baseRepositoryImpl[T any, PT interface {
	*T
	types.Entity
}] struct {
	collection database.Collection
	manager    database.AbstractDatabaseManager
	opts       *options
}

// New connects to the database described by cfg and returns a repository
// bound to the collection of T. Connection failures are returned as
// reported by the driver; the caller owns the connection and releases it
// with Close.
func New[T any, PT interface {
	*T
	types.Entity
}](ctx context.Context, cfg *database.ConnectionConfig, opts ...Option) (Repository[T], error) {
	o := newOptions(opts)
	manager, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	manager.SetLogger(o.logger)
	repo, err := bind[T, PT](manager.Database(), manager, o)
	if err != nil {
		_ = manager.Disconnect(ctx)
		return nil, err
	}
	return repo, nil
}

// NewWithDatabase returns a repository bound to the collection of T in an
// already open database.
func NewWithDatabase[T any, PT interface {
	*T
	types.Entity
}](db database.Database, opts ...Option) (Repository[T], error) {
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}
	return bind[T, PT](db, nil, newOptions(opts))
}

func bind[T any, PT interface {
	*T
	types.Entity
}](db database.Database, manager database.AbstractDatabaseManager, o *options) (Repository[T], error) {
	name := o.collectionName
	if name == "" {
		name = CollectionNameOf[T]()
	}
	if name == "" {
		return nil, fmt.Errorf("cannot derive a collection name for %T, use WithCollectionName", *new(T))
	}
	o.logger = database.WithFields(o.logger, "collection", name)
	o.logger.Debug("Repository bound", "database", db.Name())
	return &baseRepositoryImpl[T, PT]{
		collection: db.Collection(name),
		manager:    manager,
		opts:       o,
	}, nil
}

func (r *baseRepositoryImpl[T, PT]) CollectionName() string { return r.collection.Name() }

func (r *baseRepositoryImpl[T, PT]) Collection() database.Collection { return r.collection }

func (r *baseRepositoryImpl[T, PT]) AsQueryable() *Query[T] { return newQuery[T](r.collection) }

func (r *baseRepositoryImpl[T, PT]) Close(ctx context.Context) error {
	if r.manager == nil {
		return nil
	}
	return r.manager.Disconnect(ctx)
}

func (r *baseRepositoryImpl[T, PT]) Find(ctx context.Context, filter *types.Filter) ([]*T, error) {
	entities := make([]*T, 0)
	if err := r.collection.Find(ctx, filter, nil, &entities); err != nil {
		return nil, err
	}
	if entities == nil {
		entities = make([]*T, 0)
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T, PT]) FindOne(ctx context.Context, filter *types.Filter) (*T, error) {
	entity := new(T)
	found, err := r.collection.FindOne(ctx, filter, entity)
	if err != nil || !found {
		return nil, err
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T, PT]) GetAll(ctx context.Context) ([]*T, error) {
	return r.Find(ctx, types.All())
}

func (r *baseRepositoryImpl[T, PT]) Count(ctx context.Context, filter *types.Filter) (int64, error) {
	return r.collection.Count(ctx, filter)
}

func (r *baseRepositoryImpl[T, PT]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	if pageRequest == nil {
		pageRequest = types.NewDefaultPageRequest(1, 0)
	}
	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	total, err := r.collection.Count(ctx, pageRequest.GetFilter())
	if err != nil || total == 0 {
		return pagination, err
	}
	entities := make([]*T, 0, pageRequest.GetPageSize())
	err = r.collection.Find(ctx, pageRequest.GetFilter(), &database.FindOptions{
		Sort:  pageRequest.GetOrders(),
		Skip:  int64(pageRequest.GetOffset()),
		Limit: int64(pageRequest.GetPageSize()),
	}, &entities)
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = entities
	return pagination, nil
}

func (r *baseRepositoryImpl[T, PT]) Insert(ctx context.Context, entity *T) error {
	if entity == nil {
		return errNilEntity
	}
	return r.collection.InsertOne(ctx, entity)
}

func (r *baseRepositoryImpl[T, PT]) InsertMany(ctx context.Context, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}
	documents := make([]any, len(entities))
	for i, entity := range entities {
		if entity == nil {
			return errNilEntity
		}
		documents[i] = entity
	}
	return r.collection.InsertMany(ctx, documents)
}

func (r *baseRepositoryImpl[T, PT]) ReplaceOne(ctx context.Context, entity *T) (bool, error) {
	if entity == nil {
		return false, errNilEntity
	}
	e := PT(entity)
	e.SetUpdateMoment(r.opts.clock().UTC())
	replaced, err := r.collection.FindOneAndReplace(ctx, types.ByID(e.GetID()), entity)
	if err == nil && !replaced {
		r.opts.logger.Debug("Replace matched no entity", "id", e.GetID())
	}
	return replaced, err
}

func (r *baseRepositoryImpl[T, PT]) DeleteByID(ctx context.Context, id any) (bool, error) {
	return r.collection.FindOneAndDelete(ctx, types.ByID(id))
}

func (r *baseRepositoryImpl[T, PT]) DeleteOne(ctx context.Context, filter *types.Filter) (bool, error) {
	return r.collection.DeleteOne(ctx, filter)
}

func (r *baseRepositoryImpl[T, PT]) FindAsync(ctx context.Context, filter *types.Filter) *Future[[]*T] {
	return Go(func() ([]*T, error) { return r.Find(ctx, filter) })
}

func (r *baseRepositoryImpl[T, PT]) FindOneAsync(ctx context.Context, filter *types.Filter) *Future[*T] {
	return Go(func() (*T, error) { return r.FindOne(ctx, filter) })
}

func (r *baseRepositoryImpl[T, PT]) GetAllAsync(ctx context.Context) *Future[[]*T] {
	return Go(func() ([]*T, error) { return r.GetAll(ctx) })
}

func (r *baseRepositoryImpl[T, PT]) InsertAsync(ctx context.Context, entity *T) *Future[struct{}] {
	return Go(func() (struct{}, error) { return struct{}{}, r.Insert(ctx, entity) })
}

func (r *baseRepositoryImpl[T, PT]) InsertManyAsync(ctx context.Context, entities []*T) *Future[struct{}] {
	return Go(func() (struct{}, error) { return struct{}{}, r.InsertMany(ctx, entities) })
}

func (r *baseRepositoryImpl[T, PT]) ReplaceOneAsync(ctx context.Context, entity *T) *Future[bool] {
	return Go(func() (bool, error) { return r.ReplaceOne(ctx, entity) })
}

func (r *baseRepositoryImpl[T, PT]) DeleteByIDAsync(ctx context.Context, id any) *Future[bool] {
	return Go(func() (bool, error) { return r.DeleteByID(ctx, id) })
}

func (r *baseRepositoryImpl[T, PT]) DeleteOneAsync(ctx context.Context, filter *types.Filter) *Future[bool] {
	return Go(func() (bool, error) { return r.DeleteOne(ctx, filter) })
}
