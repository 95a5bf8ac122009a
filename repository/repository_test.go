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
	"path/filepath"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/doctools/database"
	"github.com/tomoncle/doctools/repository"
	"github.com/tomoncle/doctools/types"
)

type Person struct {
	types.BaseEntity `bson:",inline"`
	Name             string `bson:"Name"`
	Age              int    `bson:"Age"`
	Email            string `bson:"Email"`
}

func sqliteConfig(t *testing.T) *database.ConnectionConfig {
	t.Helper()
	return &database.ConnectionConfig{
		Driver:           database.DriverSQLite,
		ConnectionString: filepath.Join(t.TempDir(), "people.db"),
		DatabaseName:     "people",
	}
}

func newPersonRepository(t *testing.T, opts ...repository.Option) repository.Repository[Person] {
	t.Helper()
	repo, err := repository.New[Person](context.Background(), sqliteConfig(t), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close(context.Background()) })
	return repo
}

func fakePeople(faker *gofakeit.Faker, n int) []*Person {
	people := make([]*Person, n)
	for i := range people {
		people[i] = &Person{
			BaseEntity: types.NewBaseEntity(),
			Name:       faker.Name(),
			Age:        faker.Number(18, 90),
			Email:      faker.Email(),
		}
	}
	return people
}
