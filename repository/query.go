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

// Query is an immutable, composable query over a collection. Every builder
// method returns a new Query; nothing is sent to the database until a
// terminal method (ToList, First, Count, Any) is called.
type Query[T any] struct {
	collection database.Collection
	filter     *types.Filter
	sorts      []types.Sort
	skip       int64
	limit      int64
}

func newQuery[T any](collection database.Collection) *Query[T] {
	return &Query[T]{collection: collection, filter: types.All()}
}

func (q *Query[T]) clone() *Query[T] {
	c := *q
	c.sorts = append([]types.Sort(nil), q.sorts...)
	return &c
}

// Where narrows the query; successive calls are combined with AND.
func (q *Query[T]) Where(filter *types.Filter) *Query[T] {
	c := q.clone()
	c.filter = types.And(q.filter, filter)
	return c
}

// OrderBy appends sort keys.
func (q *Query[T]) OrderBy(sorts ...types.Sort) *Query[T] {
	c := q.clone()
	c.sorts = append(c.sorts, sorts...)
	return c
}

func (q *Query[T]) Skip(n int64) *Query[T] {
	c := q.clone()
	c.skip = max(n, 0)
	return c
}

// Limit caps the number of results; zero means no limit.
func (q *Query[T]) Limit(n int64) *Query[T] {
	c := q.clone()
	c.limit = max(n, 0)
	return c
}

// Filter returns the combined filter of the query.
func (q *Query[T]) Filter() *types.Filter { return q.filter }

func (q *Query[T]) findOptions() *database.FindOptions {
	return &database.FindOptions{Sort: q.sorts, Skip: q.skip, Limit: q.limit}
}

func (q *Query[T]) ToList(ctx context.Context) ([]*T, error) {
	results := make([]*T, 0)
	if err := q.collection.Find(ctx, q.filter, q.findOptions(), &results); err != nil {
		return nil, err
	}
	if results == nil {
		results = make([]*T, 0)
	}
	return results, nil
}

// First returns the first result, or nil when the query matches nothing.
func (q *Query[T]) First(ctx context.Context) (*T, error) {
	items, err := q.Limit(1).ToList(ctx)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return items[0], nil
}

// Count returns the number of results the query would return, honouring
// Skip and Limit.
func (q *Query[T]) Count(ctx context.Context) (int64, error) {
	total, err := q.collection.Count(ctx, q.filter)
	if err != nil {
		return 0, err
	}
	n := max(total-q.skip, 0)
	if q.limit > 0 && n > q.limit {
		n = q.limit
	}
	return n, nil
}

func (q *Query[T]) Any(ctx context.Context) (bool, error) {
	first, err := q.First(ctx)
	return first != nil, err
}
