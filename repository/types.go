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

	"github.com/tomoncle/doctools/database"
	"github.com/tomoncle/doctools/types"
)

// CrudRepository defines the blocking operations on a collection of
// entities. Driver errors are returned unchanged.
type CrudRepository[T any] interface {
	// Find returns every entity matching filter, or an empty slice.
	Find(ctx context.Context, filter *types.Filter) ([]*T, error)

	// FindOne returns the first entity matching filter, or nil.
	FindOne(ctx context.Context, filter *types.Filter) (*T, error)

	GetAll(ctx context.Context) ([]*T, error)

	Count(ctx context.Context, filter *types.Filter) (int64, error)

	Insert(ctx context.Context, entity *T) error

	// InsertMany inserts entities in one batch; an empty batch is a no-op.
	InsertMany(ctx context.Context, entities []*T) error

	// ReplaceOne stamps the entity's update moment and replaces the stored
	// entity with the same id. It reports false and changes nothing when no
	// such entity exists.
	ReplaceOne(ctx context.Context, entity *T) (bool, error)

	DeleteByID(ctx context.Context, id any) (bool, error)

	DeleteOne(ctx context.Context, filter *types.Filter) (bool, error)
}

// AsyncRepository mirrors CrudRepository with operations that run in the
// background and resolve through a Future.
type AsyncRepository[T any] interface {
	FindAsync(ctx context.Context, filter *types.Filter) *Future[[]*T]
	FindOneAsync(ctx context.Context, filter *types.Filter) *Future[*T]
	GetAllAsync(ctx context.Context) *Future[[]*T]
	InsertAsync(ctx context.Context, entity *T) *Future[struct{}]
	InsertManyAsync(ctx context.Context, entities []*T) *Future[struct{}]
	ReplaceOneAsync(ctx context.Context, entity *T) *Future[bool]
	DeleteByIDAsync(ctx context.Context, id any) *Future[bool]
	DeleteOneAsync(ctx context.Context, filter *types.Filter) *Future[bool]
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// Repository combines blocking, asynchronous and paged access to the
// collection an entity type is bound to.
type Repository[T any] interface {
	CrudRepository[T]
	AsyncRepository[T]
	PageQueryRepository[T]

	// AsQueryable returns a composable query over the whole collection.
	AsQueryable() *Query[T]

	CollectionName() string
	Collection() database.Collection

	// Close releases the connection opened by New. Repositories created
	// with NewWithDatabase leave the shared connection open.
	Close(ctx context.Context) error
}
