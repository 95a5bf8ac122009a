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

package repository_test

import (
	"context"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/doctools/types"
)

func TestQueryable(t *testing.T) {
	ctx := context.Background()
	repo := newPersonRepository(t)
	people := fakePeople(gofakeit.New(31), 6)
	for i, p := range people {
		p.Age = 30 + i
	}
	require.NoError(t, repo.InsertMany(ctx, people))

	base := repo.AsQueryable()
	adults := base.Where(types.Gte("Age", 32)).Where(types.Lt("Age", 35))
	assert.Equal(t, "and(Age gte 32, Age lt 35)", adults.Filter().String())
	assert.Equal(t, types.OpAll, base.Filter().Operator())

	list, err := adults.OrderBy(types.Desc("Age")).ToList(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, 34, list[0].Age)
	assert.Equal(t, 32, list[2].Age)

	first, err := adults.OrderBy(types.Asc("Age")).First(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 32, first.Age)

	n, err := adults.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = adults.Skip(1).Limit(1).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = base.Skip(10).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	paged, err := base.OrderBy(types.Asc("Age")).Skip(2).Limit(2).ToList(ctx)
	require.NoError(t, err)
	require.Len(t, paged, 2)
	assert.Equal(t, 32, paged[0].Age)

	exists, err := base.Where(types.Gt("Age", 100)).Any(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	empty, err := base.Where(types.Gt("Age", 100)).ToList(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	all, err := base.ToList(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 6)
}
