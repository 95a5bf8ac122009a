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
	"errors"

	"github.com/tomoncle/doctools/types"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// mongoCollection resolves the driver collection on every call so handles
// stay valid across Reconnect.
type mongoCollection struct {
	manager  *mongoDatabaseManager
	database string
	name     string
}

var _ Collection = (*mongoCollection)(nil)

func (c *mongoCollection) Name() string { return c.name }

func (c *mongoCollection) collection() (*mongo.Collection, error) {
	client := c.manager.getClient()
	if client == nil {
		return nil, errNotConnected
	}
	return client.Database(c.database).Collection(c.name), nil
}

func (c *mongoCollection) Find(ctx context.Context, filter *types.Filter, opts *FindOptions, results any) error {
	coll, err := c.collection()
	if err != nil {
		return err
	}
	findOpts := options.Find()
	if opts != nil {
		if len(opts.Sort) > 0 {
			findOpts.SetSort(types.SortDocument(opts.Sort))
		}
		if opts.Skip > 0 {
			findOpts.SetSkip(opts.Skip)
		}
		if opts.Limit > 0 {
			findOpts.SetLimit(opts.Limit)
		}
	}
	cursor, err := coll.Find(ctx, filter.Document(), findOpts)
	if err != nil {
		return err
	}
	return cursor.All(ctx, results)
}

func (c *mongoCollection) FindOne(ctx context.Context, filter *types.Filter, result any) (bool, error) {
	coll, err := c.collection()
	if err != nil {
		return false, err
	}
	return found(coll.FindOne(ctx, filter.Document()).Decode(result))
}

func (c *mongoCollection) Count(ctx context.Context, filter *types.Filter) (int64, error) {
	coll, err := c.collection()
	if err != nil {
		return 0, err
	}
	return coll.CountDocuments(ctx, filter.Document())
}

func (c *mongoCollection) InsertOne(ctx context.Context, document any) error {
	coll, err := c.collection()
	if err != nil {
		return err
	}
	_, err = coll.InsertOne(ctx, document)
	return err
}

func (c *mongoCollection) InsertMany(ctx context.Context, documents []any) error {
	if len(documents) == 0 {
		return nil
	}
	coll, err := c.collection()
	if err != nil {
		return err
	}
	_, err = coll.InsertMany(ctx, documents)
	return err
}

func (c *mongoCollection) FindOneAndReplace(ctx context.Context, filter *types.Filter, replacement any) (bool, error) {
	coll, err := c.collection()
	if err != nil {
		return false, err
	}
	return found(coll.FindOneAndReplace(ctx, filter.Document(), replacement).Err())
}

func (c *mongoCollection) FindOneAndDelete(ctx context.Context, filter *types.Filter) (bool, error) {
	coll, err := c.collection()
	if err != nil {
		return false, err
	}
	return found(coll.FindOneAndDelete(ctx, filter.Document()).Err())
}

func (c *mongoCollection) DeleteOne(ctx context.Context, filter *types.Filter) (bool, error) {
	coll, err := c.collection()
	if err != nil {
		return false, err
	}
	res, err := coll.DeleteOne(ctx, filter.Document())
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func found(err error) (bool, error) {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return err == nil, err
}
