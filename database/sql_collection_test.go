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

package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/doctools/types"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type gadget struct {
	ID    string `bson:"_id"`
	Name  string `bson:"Name"`
	Price int    `bson:"Price"`
}

func openSQLite(t *testing.T) AbstractDatabaseManager {
	t.Helper()
	manager, err := Open(context.Background(), &ConnectionConfig{
		Driver:           DriverSQLite,
		ConnectionString: filepath.Join(t.TempDir(), "doctools.db"),
		DatabaseName:     "doctools",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Disconnect(context.Background()) })
	return manager
}

func TestSQLCollectionCrud(t *testing.T) {
	ctx := context.Background()
	manager := openSQLite(t)
	require.Equal(t, DriverSQLite, manager.Driver())
	require.NoError(t, manager.Ping(ctx))

	coll := manager.Database().Collection("Gadgets")
	assert.Equal(t, "Gadgets", coll.Name())

	require.NoError(t, coll.InsertOne(ctx, &gadget{ID: "g1", Name: "lamp", Price: 30}))
	require.NoError(t, coll.InsertMany(ctx, []any{
		&gadget{ID: "g2", Name: "desk", Price: 120},
		&gadget{ID: "g3", Name: "chair", Price: 80},
	}))
	require.NoError(t, coll.InsertMany(ctx, nil))

	n, err := coll.Count(ctx, types.All())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	var one gadget
	found, err := coll.FindOne(ctx, types.ByID("g2"), &one)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "desk", one.Name)

	found, err = coll.FindOne(ctx, types.ByID("missing"), &one)
	require.NoError(t, err)
	assert.False(t, found)

	var cheap []*gadget
	require.NoError(t, coll.Find(ctx, types.Lt("Price", 100), &FindOptions{Sort: []types.Sort{types.Desc("Price")}}, &cheap))
	require.Len(t, cheap, 2)
	assert.Equal(t, "g3", cheap[0].ID)
	assert.Equal(t, "g1", cheap[1].ID)

	var paged []*gadget
	require.NoError(t, coll.Find(ctx, nil, &FindOptions{Skip: 1, Limit: 1}, &paged))
	require.Len(t, paged, 1)
	assert.Equal(t, "g2", paged[0].ID)

	n, err = coll.Count(ctx, types.Gte("Price", 80))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	replaced, err := coll.FindOneAndReplace(ctx, types.ByID("g1"), &gadget{ID: "g1", Name: "lamp", Price: 35})
	require.NoError(t, err)
	assert.True(t, replaced)
	require.NoError(t, coll.Find(ctx, types.ByID("g1"), nil, &paged))
	assert.Equal(t, 35, paged[0].Price)

	replaced, err = coll.FindOneAndReplace(ctx, types.ByID("nope"), &gadget{ID: "nope"})
	require.NoError(t, err)
	assert.False(t, replaced)

	_, err = coll.FindOneAndReplace(ctx, types.ByID("g1"), &gadget{ID: "other"})
	assert.Error(t, err)

	deleted, err := coll.FindOneAndDelete(ctx, types.Eq("Name", "desk"))
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = coll.DeleteOne(ctx, types.Eq("Name", "desk"))
	require.NoError(t, err)
	assert.False(t, deleted)

	n, err = coll.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSQLCollectionDuplicateKey(t *testing.T) {
	ctx := context.Background()
	coll := openSQLite(t).Database().Collection("Gadgets")

	require.NoError(t, coll.InsertOne(ctx, &gadget{ID: "g1"}))
	err := coll.InsertOne(ctx, &gadget{ID: "g1"})
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))
}

func TestSQLCollectionGeneratedID(t *testing.T) {
	ctx := context.Background()
	coll := openSQLite(t).Database().Collection("notes")

	require.NoError(t, coll.InsertOne(ctx, bson.M{"text": "hello"}))
	var docs []bson.M
	require.NoError(t, coll.Find(ctx, types.Eq("text", "hello"), nil, &docs))
	require.Len(t, docs, 1)
	id, ok := docs[0]["_id"].(bson.ObjectID)
	require.True(t, ok)

	var byID bson.M
	found, err := coll.FindOne(ctx, types.ByID(id), &byID)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSQLCollectionNumericIDs(t *testing.T) {
	ctx := context.Background()
	coll := openSQLite(t).Database().Collection("counters")

	require.NoError(t, coll.InsertOne(ctx, bson.M{"_id": int32(1), "n": "one"}))
	require.NoError(t, coll.InsertOne(ctx, bson.M{"_id": int64(2), "n": "two"}))

	var doc bson.M
	for _, filter := range []*types.Filter{
		types.ByID(int64(1)),
		types.Eq(types.IDField, 1.0),
		types.ByID(1),
		types.And(types.ByID(int64(1)), types.Eq("n", "one")),
	} {
		found, err := coll.FindOne(ctx, filter, &doc)
		require.NoError(t, err)
		assert.True(t, found, filter.String())
	}

	var docs []bson.M
	require.NoError(t, coll.Find(ctx, types.In(types.IDField, 1.0, int32(2)), nil, &docs))
	assert.Len(t, docs, 2)

	err := coll.InsertOne(ctx, bson.M{"_id": 1.0})
	assert.True(t, IsDuplicateKey(err))

	deleted, err := coll.FindOneAndDelete(ctx, types.ByID(2.0))
	require.NoError(t, err)
	assert.True(t, deleted)
	n, err := coll.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSQLManagerHealthAndReconnect(t *testing.T) {
	ctx := context.Background()
	manager := openSQLite(t)

	status := manager.HealthCheck(ctx)
	assert.True(t, status.Healthy)
	assert.Equal(t, DriverSQLite, status.Driver)
	assert.Equal(t, 1, manager.GetStats().MaxOpenConns)

	coll := manager.Database().Collection("Gadgets")
	require.NoError(t, coll.InsertOne(ctx, &gadget{ID: "g1"}))
	require.NoError(t, manager.Reconnect(ctx))

	n, err := coll.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, manager.Disconnect(ctx))
	assert.ErrorIs(t, manager.Ping(ctx), errNotConnected)
	_, err = coll.Count(ctx, nil)
	assert.Equal(t, NotConnectedErr, ClassifyError(err))
	assert.False(t, manager.HealthCheck(ctx).Healthy)
}

func TestEnsureCollections(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t).Database()

	registry := newCollectionRegistry()
	registry.Register(CollectionRegistration{Name: "b", Priority: 2})
	registry.Register(CollectionRegistration{Name: "a", Priority: 1})
	registry.Register(CollectionRegistration{Name: "c", Priority: 1})

	regs := registry.Collections()
	require.Len(t, regs, 3)
	assert.Equal(t, []string{"a", "c", "b"}, []string{regs[0].Name, regs[1].Name, regs[2].Name})

	require.NoError(t, EnsureCollections(ctx, db, registry))
	n, err := db.Collection("b").Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
