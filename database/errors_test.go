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
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, UnknownErr},
		{"not connected", fmt.Errorf("find: %w", errNotConnected), NotConnectedErr},
		{"mongo no documents", mongo.ErrNoDocuments, NoRowsErr},
		{"sql no rows", sql.ErrNoRows, NoRowsErr},
		{"mongo duplicate", mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}}}, DuplicateKeyErr},
		{"deadline", context.DeadlineExceeded, TimeoutErr},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '1' for key 'PRIMARY'"}, DuplicateKeyErr},
		{"mysql missing table", &mysql.MySQLError{Number: 1146, Message: "Table 'test.People' doesn't exist"}, NoTableErr},
		{"postgres duplicate", &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}, DuplicateKeyErr},
		{"postgres missing table", &pq.Error{Code: "42P01", Message: "relation \"People\" does not exist"}, NoTableErr},
		{"sqlite duplicate", errors.New("constraint failed: UNIQUE constraint failed: People.id (1555)"), DuplicateKeyErr},
		{"sqlite missing table", errors.New("SQL logic error: no such table: People (1)"), NoTableErr},
		{"other", errors.New("boom"), UnknownErr},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyError(tc.err))
		})
	}
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, IsDuplicateKey(&pq.Error{Code: "23505"}))
	assert.False(t, IsDuplicateKey(errors.New("boom")))
	assert.False(t, IsDuplicateKey(nil))
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "duplicate key", DuplicateKeyErr.String())
	assert.Equal(t, "unknown", ErrorKind(-1).String())
	assert.Equal(t, "not connected", NotConnectedErr.String())
}
