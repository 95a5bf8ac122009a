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
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/doctools/database"
	"github.com/tomoncle/doctools/repository"
	"github.com/tomoncle/doctools/types"
)

func TestRepositoryBindsPluralCollection(t *testing.T) {
	repo := newPersonRepository(t)
	assert.Equal(t, "People", repo.CollectionName())
	assert.Equal(t, "People", repo.Collection().Name())

	named := newPersonRepository(t, repository.WithCollectionName("staff"))
	assert.Equal(t, "staff", named.CollectionName())
}

func TestInsertAndFind(t *testing.T) {
	ctx := context.Background()
	repo := newPersonRepository(t)
	faker := gofakeit.New(7)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	p := fakePeople(faker, 1)[0]
	require.NoError(t, repo.Insert(ctx, p))

	got, err := repo.FindOne(ctx, types.ByID(p.ID))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Age, got.Age)
	assert.Equal(t, p.Email, got.Email)

	missing, err := repo.FindOne(ctx, types.ByID("missing"))
	require.NoError(t, err)
	assert.Nil(t, missing)

	found, err := repo.Find(ctx, types.Eq("Email", p.Email))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, p.ID, found[0].ID)

	none, err := repo.Find(ctx, types.Eq("Email", "nobody@example.com"))
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestInsertDuplicateID(t *testing.T) {
	ctx := context.Background()
	repo := newPersonRepository(t)
	p := fakePeople(gofakeit.New(1), 1)[0]

	require.NoError(t, repo.Insert(ctx, p))
	err := repo.Insert(ctx, p)
	require.Error(t, err)
	assert.True(t, database.IsDuplicateKey(err))
}

func TestInsertNil(t *testing.T) {
	ctx := context.Background()
	repo := newPersonRepository(t)
	assert.Error(t, repo.Insert(ctx, nil))
	assert.Error(t, repo.InsertMany(ctx, []*Person{nil}))
	_, err := repo.ReplaceOne(ctx, nil)
	assert.Error(t, err)
}

func TestInsertMany(t *testing.T) {
	ctx := context.Background()
	repo := newPersonRepository(t)
	people := fakePeople(gofakeit.New(11), 5)

	require.NoError(t, repo.InsertMany(ctx, nil))
	require.NoError(t, repo.InsertMany(ctx, people[:2]))
	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repo.InsertMany(ctx, people[2:]))
	all, err = repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	n, err := repo.Count(ctx, types.All())
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestReplaceOneStampsUpdateMoment(t *testing.T) {
	ctx := context.Background()
	repo := newPersonRepository(t)
	p := fakePeople(gofakeit.New(3), 1)[0]
	require.NoError(t, repo.Insert(ctx, p))
	assert.True(t, p.UpdateMoment.IsZero())

	before := time.Now().UTC().Truncate(time.Millisecond)
	p.Name = "Renamed"
	p.Age = p.Age + 1
	p.Email = "renamed@example.com"
	replaced, err := repo.ReplaceOne(ctx, p)
	require.NoError(t, err)
	assert.True(t, replaced)
	assert.Equal(t, time.UTC, p.UpdateMoment.Location())

	got, err := repo.FindOne(ctx, types.ByID(p.ID))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, p.Age, got.Age)
	assert.Equal(t, "renamed@example.com", got.Email)
	assert.Equal(t, p.ID, got.ID)
	assert.False(t, got.UpdateMoment.Before(before))
	assert.False(t, got.UpdateMoment.After(time.Now().UTC()))
}

func TestReplaceOneWithClock(t *testing.T) {
	ctx := context.Background()
	local := time.FixedZone("UTC+8", 8*60*60)
	moment := time.Date(2025, 3, 4, 13, 14, 15, 0, local)
	repo := newPersonRepository(t, repository.WithClock(func() time.Time { return moment }))

	p := fakePeople(gofakeit.New(5), 1)[0]
	require.NoError(t, repo.Insert(ctx, p))
	replaced, err := repo.ReplaceOne(ctx, p)
	require.NoError(t, err)
	require.True(t, replaced)

	got, err := repo.FindOne(ctx, types.ByID(p.ID))
	require.NoError(t, err)
	assert.True(t, moment.Equal(got.UpdateMoment))
	assert.Equal(t, 5, got.UpdateMoment.Hour())
}

func TestReplaceOneMissingIsNoop(t *testing.T) {
	ctx := context.Background()
	repo := newPersonRepository(t)
	p := fakePeople(gofakeit.New(9), 1)[0]

	replaced, err := repo.ReplaceOne(ctx, p)
	require.NoError(t, err)
	assert.False(t, replaced)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDeleteByIDAndDeleteOne(t *testing.T) {
	ctx := context.Background()
	repo := newPersonRepository(t)
	people := fakePeople(gofakeit.New(13), 3)
	people[2].Age = 200
	require.NoError(t, repo.InsertMany(ctx, people))

	deleted, err := repo.DeleteByID(ctx, people[0].ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.DeleteByID(ctx, people[0].ID)
	require.NoError(t, err)
	assert.False(t, deleted)
	n, err := repo.Count(ctx, types.All())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	deleted, err = repo.DeleteByID(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, deleted)
	n, err = repo.Count(ctx, types.All())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	deleted, err = repo.DeleteOne(ctx, types.Gt("Age", 150))
	require.NoError(t, err)
	assert.True(t, deleted)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, people[1].ID, all[0].ID)
}

func TestPage(t *testing.T) {
	ctx := context.Background()
	repo := newPersonRepository(t)
	people := fakePeople(gofakeit.New(17), 7)
	for i, p := range people {
		p.Age = 20 + i
	}
	require.NoError(t, repo.InsertMany(ctx, people))

	page, err := repo.Page(ctx, types.NewPageRequestWithOrders(2, 3, []types.Sort{types.Desc("Age")}))
	require.NoError(t, err)
	assert.Equal(t, int64(7), page.Total)
	assert.Equal(t, int64(3), page.Pages())
	require.Len(t, page.Items, 3)
	assert.Equal(t, 23, page.Items[0].Age)
	assert.Equal(t, 21, page.Items[2].Age)

	page, err = repo.Page(ctx, types.NewPageRequestWithFilter(1, 10, types.Lt("Age", 22)))
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Items, 2)

	page, err = repo.Page(ctx, types.NewPageRequestWithFilter(1, 10, types.Gt("Age", 100)))
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.NotNil(t, page.Items)
}

func TestAsyncOperations(t *testing.T) {
	ctx := context.Background()
	repo := newPersonRepository(t)
	people := fakePeople(gofakeit.New(19), 3)

	_, err := repo.InsertAsync(ctx, people[0]).Await(ctx)
	require.NoError(t, err)
	_, err = repo.InsertManyAsync(ctx, people[1:]).Get()
	require.NoError(t, err)

	all, err := repo.GetAllAsync(ctx).Await(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	found, err := repo.FindAsync(ctx, types.ByID(people[1].ID)).Await(ctx)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	one, err := repo.FindOneAsync(ctx, types.ByID(people[2].ID)).Await(ctx)
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.Equal(t, people[2].Email, one.Email)

	people[0].Name = "Async"
	replaced, err := repo.ReplaceOneAsync(ctx, people[0]).Await(ctx)
	require.NoError(t, err)
	assert.True(t, replaced)

	deleted, err := repo.DeleteByIDAsync(ctx, people[1].ID).Await(ctx)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.DeleteOneAsync(ctx, types.Eq("Name", "Async")).Await(ctx)
	require.NoError(t, err)
	assert.True(t, deleted)

	n, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAsyncErrorsArePropagated(t *testing.T) {
	ctx := context.Background()
	repo := newPersonRepository(t)
	p := fakePeople(gofakeit.New(23), 1)[0]
	require.NoError(t, repo.Insert(ctx, p))

	_, err := repo.InsertAsync(ctx, p).Await(ctx)
	assert.True(t, database.IsDuplicateKey(err))
}

func TestClosedRepositoryReportsNotConnected(t *testing.T) {
	ctx := context.Background()
	repo := newPersonRepository(t)
	require.NoError(t, repo.Close(ctx))

	_, err := repo.GetAll(ctx)
	require.Error(t, err)
	assert.Equal(t, database.NotConnectedErr, database.ClassifyError(err))
}

func TestNewWithDatabase(t *testing.T) {
	ctx := context.Background()
	manager, err := database.Open(ctx, sqliteConfig(t))
	require.NoError(t, err)
	defer func() { _ = manager.Disconnect(ctx) }()

	_, err = repository.NewWithDatabase[Person](nil)
	assert.Error(t, err)

	first, err := repository.NewWithDatabase[Person](manager.Database())
	require.NoError(t, err)
	second, err := repository.NewWithDatabase[Person](manager.Database())
	require.NoError(t, err)

	p := fakePeople(gofakeit.New(29), 1)[0]
	require.NoError(t, first.Insert(ctx, p))
	require.NoError(t, first.Close(ctx))

	got, err := second.FindOne(ctx, types.ByID(p.ID))
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestNewFailsForUnknownDriver(t *testing.T) {
	_, err := repository.New[Person](context.Background(), &database.ConnectionConfig{Driver: "oracle"})
	assert.Error(t, err)
}
