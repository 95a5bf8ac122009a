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
	"fmt"

	"github.com/tomoncle/doctools/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// documentRow is one stored document: the id column holds the document's
// _id and document holds its canonical extended JSON.
type documentRow struct {
	ID       string `bun:"id,pk"`
	Document string `bun:"document,notnull"`
}

// storedDocument is a row decoded for filtering and sorting.
type storedDocument struct {
	key    string
	body   string
	fields bson.M
}

// sqlCollection stores one collection in a table of the same name.
type sqlCollection struct {
	manager *sqlDatabaseManager
	name    string
}

var _ Collection = (*sqlCollection)(nil)

func (c *sqlCollection) Name() string { return c.name }

func (c *sqlCollection) table() bun.Ident { return bun.Ident(c.name) }

// db returns the open handle, creating the backing table on first use.
func (c *sqlCollection) db(ctx context.Context) (*bun.DB, error) {
	c.manager.mu.RLock()
	db, tables := c.manager.db, c.manager.tables
	c.manager.mu.RUnlock()
	if db == nil {
		return nil, errNotConnected
	}
	if _, ok := tables.Load(c.name); ok {
		return db, nil
	}
	if err := createDocumentTable(ctx, db, c.name); err != nil {
		return nil, err
	}
	tables.Store(c.name, struct{}{})
	return db, nil
}

func createDocumentTable(ctx context.Context, db *bun.DB, name string) error {
	bodyType := "TEXT"
	if db.Dialect().Name() == dialect.MySQL {
		bodyType = "LONGTEXT"
	}
	_, err := db.NewRaw(
		"CREATE TABLE IF NOT EXISTS ? (id VARCHAR(255) NOT NULL PRIMARY KEY, document "+bodyType+" NOT NULL)",
		bun.Ident(name),
	).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}
	return nil
}

// idKeys extracts the id column values a filter is restricted to, so the
// lookup can be done by primary key. ok is false when the filter does not
// constrain _id.
func idKeys(filter *types.Filter) (keys []string, ok bool, err error) {
	switch filter.Operator() {
	case types.OpEq:
		if filter.Field() != types.IDField {
			return nil, false, nil
		}
		key, err := documentKey(filter.Value())
		if err != nil {
			return nil, false, err
		}
		return []string{key}, true, nil
	case types.OpIn:
		if filter.Field() != types.IDField {
			return nil, false, nil
		}
		keys = make([]string, 0, len(filter.Values()))
		for _, v := range filter.Values() {
			key, err := documentKey(v)
			if err != nil {
				return nil, false, err
			}
			keys = append(keys, key)
		}
		return keys, true, nil
	case types.OpAnd:
		for _, child := range filter.Children() {
			if keys, ok, err := idKeys(child); ok || err != nil {
				return keys, ok, err
			}
		}
	}
	return nil, false, nil
}

// scan loads the rows matching filter, ordered by sorts and then by id.
func (c *sqlCollection) scan(ctx context.Context, db bun.IDB, filter *types.Filter, opts *FindOptions) ([]storedDocument, error) {
	if opts == nil {
		opts = &FindOptions{}
	}
	q := db.NewSelect().
		TableExpr("?", c.table()).
		ColumnExpr("?, ?", bun.Ident("id"), bun.Ident("document")).
		OrderExpr("? ASC", bun.Ident("id"))

	keys, byID, err := idKeys(filter)
	if err != nil {
		return nil, err
	}
	if byID {
		if len(keys) == 0 {
			return nil, nil
		}
		q = q.Where("? IN (?)", bun.Ident("id"), bun.In(keys))
	}

	// Paging is pushed down only when SQL alone decides the result set.
	exact := filter.Operator() == types.OpAll || (byID && isIDOnly(filter))
	if exact && len(opts.Sort) == 0 {
		if opts.Skip > 0 {
			q = q.Offset(int(opts.Skip))
		}
		if opts.Limit > 0 {
			q = q.Limit(int(opts.Limit))
		}
	}

	var rows []documentRow
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, err
	}

	docs := make([]storedDocument, 0, len(rows))
	for _, row := range rows {
		fields, err := decodeDocument(row.Document)
		if err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", row.ID, err)
		}
		if !exact {
			ok, err := matchDocument(filter, fields)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		docs = append(docs, storedDocument{key: row.ID, body: row.Document, fields: fields})
	}
	if exact && len(opts.Sort) == 0 {
		return docs, nil
	}

	sortDocuments(docs, opts.Sort)
	return window(docs, opts.Skip, opts.Limit), nil
}

func isIDOnly(filter *types.Filter) bool {
	op := filter.Operator()
	return (op == types.OpEq || op == types.OpIn) && filter.Field() == types.IDField
}

func window(docs []storedDocument, skip, limit int64) []storedDocument {
	if skip > 0 {
		if skip >= int64(len(docs)) {
			return nil
		}
		docs = docs[skip:]
	}
	if limit > 0 && limit < int64(len(docs)) {
		docs = docs[:limit]
	}
	return docs
}

func (c *sqlCollection) Find(ctx context.Context, filter *types.Filter, opts *FindOptions, results any) error {
	db, err := c.db(ctx)
	if err != nil {
		return err
	}
	docs, err := c.scan(ctx, db, filter, opts)
	if err != nil {
		return err
	}
	bodies := make([]string, len(docs))
	for i, d := range docs {
		bodies[i] = d.body
	}
	return decodeAll(bodies, results)
}

func (c *sqlCollection) FindOne(ctx context.Context, filter *types.Filter, result any) (bool, error) {
	db, err := c.db(ctx)
	if err != nil {
		return false, err
	}
	docs, err := c.scan(ctx, db, filter, &FindOptions{Limit: 1})
	if err != nil || len(docs) == 0 {
		return false, err
	}
	return true, decodeInto(docs[0].body, result)
}

func (c *sqlCollection) Count(ctx context.Context, filter *types.Filter) (int64, error) {
	db, err := c.db(ctx)
	if err != nil {
		return 0, err
	}
	if filter.Operator() == types.OpAll {
		var n int64
		err := db.NewSelect().TableExpr("?", c.table()).ColumnExpr("count(*)").Scan(ctx, &n)
		return n, err
	}
	docs, err := c.scan(ctx, db, filter, nil)
	return int64(len(docs)), err
}

func (c *sqlCollection) InsertOne(ctx context.Context, document any) error {
	return c.InsertMany(ctx, []any{document})
}

func (c *sqlCollection) InsertMany(ctx context.Context, documents []any) error {
	if len(documents) == 0 {
		return nil
	}
	rows := make([]documentRow, 0, len(documents))
	for _, doc := range documents {
		key, body, err := encodeDocument(doc, nil)
		if err != nil {
			return err
		}
		rows = append(rows, documentRow{ID: key, Document: body})
	}
	db, err := c.db(ctx)
	if err != nil {
		return err
	}
	_, err = db.NewInsert().Model(&rows).ModelTableExpr("?", c.table()).Exec(ctx)
	return err
}

func (c *sqlCollection) FindOneAndReplace(ctx context.Context, filter *types.Filter, replacement any) (bool, error) {
	db, err := c.db(ctx)
	if err != nil {
		return false, err
	}
	matched := false
	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		docs, err := c.scan(ctx, tx, filter, &FindOptions{Limit: 1})
		if err != nil || len(docs) == 0 {
			return err
		}
		current := docs[0]
		key, body, err := encodeDocument(replacement, current.fields[types.IDField])
		if err != nil {
			return err
		}
		if key != current.key {
			return fmt.Errorf("the (immutable) field '%s' was found to have been altered to %s", types.IDField, key)
		}
		_, err = tx.NewUpdate().
			TableExpr("?", c.table()).
			Set("? = ?", bun.Ident("document"), body).
			Where("? = ?", bun.Ident("id"), key).
			Exec(ctx)
		matched = err == nil
		return err
	})
	return matched, err
}

func (c *sqlCollection) FindOneAndDelete(ctx context.Context, filter *types.Filter) (bool, error) {
	db, err := c.db(ctx)
	if err != nil {
		return false, err
	}
	deleted := false
	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		docs, err := c.scan(ctx, tx, filter, &FindOptions{Limit: 1})
		if err != nil || len(docs) == 0 {
			return err
		}
		res, err := tx.NewDelete().
			TableExpr("?", c.table()).
			Where("? = ?", bun.Ident("id"), docs[0].key).
			Exec(ctx)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	return deleted, err
}

func (c *sqlCollection) DeleteOne(ctx context.Context, filter *types.Filter) (bool, error) {
	return c.FindOneAndDelete(ctx, filter)
}
