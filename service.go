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

package doctools

import (
	"context"
	"errors"
	"sync"

	"github.com/tomoncle/doctools/database"
	"github.com/tomoncle/doctools/repository"
	"github.com/tomoncle/doctools/types"
)

type Service[T any] interface {
	// Get returns a single entity by its identifier, or nil.
	Get(ctx context.Context, id any) (*T, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// Find returns entities that match the provided filter.
	Find(ctx context.Context, filter *types.Filter) ([]*T, error)

	// FindOne returns the first entity matching filter, or nil.
	FindOne(ctx context.Context, filter *types.Filter) (*T, error)

	// Query returns a composable query over the collection, or nil before InitDB.
	Query() *repository.Query[T]

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Replace stamps and replaces an existing entity.
	Replace(ctx context.Context, model *T) (bool, error)

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id any) (bool, error)

	// DeleteOne removes the first entity matching filter.
	DeleteOne(ctx context.Context, filter *types.Filter) (bool, error)

	// Save inserts one new entity.
	Save(ctx context.Context, model *T) error

	// SaveAll inserts new entities in one batch.
	SaveAll(ctx context.Context, models ...*T) error

	// Repository returns the underlying repository.
	Repository() repository.Repository[T]
}

var errNotInitialized = errors.New("database not initialized, call database.InitDB first")

type baseServiceImpl[T any, PT interface {
	*T
	types.Entity
}] struct {
	repo    repository.Repository[T]
	manager database.AbstractDatabaseManager
	mu      sync.Mutex
	opts    []repository.Option
}

// NewService returns a default Service implementation using the generic
// repository backed by the global database connection. The repository is
// bound on first use, so the service may be created before InitDB.
func NewService[T any, PT interface {
	*T
	types.Entity
}](opts ...repository.Option) Service[T] {
	return &baseServiceImpl[T, PT]{opts: opts}
}

// baseRepo binds the repository on the first call made after InitDB, and
// rebinds it when InitDB has since replaced the global connection.
func (s *baseServiceImpl[T, PT]) baseRepo() (repository.Repository[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	manager := database.GetDatabaseManager()
	if manager == nil {
		return nil, errNotInitialized
	}
	if s.repo != nil && s.manager == manager {
		return s.repo, nil
	}
	repo, err := repository.NewWithDatabase[T, PT](manager.Database(), s.opts...)
	if err != nil {
		return nil, err
	}
	s.repo, s.manager = repo, manager
	return repo, nil
}

func (s *baseServiceImpl[T, PT]) Repository() repository.Repository[T] {
	repo, _ := s.baseRepo()
	return repo
}

func (s *baseServiceImpl[T, PT]) Get(ctx context.Context, id any) (*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.FindOne(ctx, types.ByID(id))
}

func (s *baseServiceImpl[T, PT]) All(ctx context.Context) ([]*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.GetAll(ctx)
}

func (s *baseServiceImpl[T, PT]) Find(ctx context.Context, filter *types.Filter) ([]*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.Find(ctx, filter)
}

func (s *baseServiceImpl[T, PT]) FindOne(ctx context.Context, filter *types.Filter) (*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.FindOne(ctx, filter)
}

func (s *baseServiceImpl[T, PT]) Query() *repository.Query[T] {
	repo, err := s.baseRepo()
	if err != nil {
		return nil
	}
	return repo.AsQueryable()
}

func (s *baseServiceImpl[T, PT]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.Page(ctx, page)
}

func (s *baseServiceImpl[T, PT]) Replace(ctx context.Context, model *T) (bool, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return false, err
	}
	return repo.ReplaceOne(ctx, model)
}

func (s *baseServiceImpl[T, PT]) Delete(ctx context.Context, id any) (bool, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return false, err
	}
	return repo.DeleteByID(ctx, id)
}

func (s *baseServiceImpl[T, PT]) DeleteOne(ctx context.Context, filter *types.Filter) (bool, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return false, err
	}
	return repo.DeleteOne(ctx, filter)
}

func (s *baseServiceImpl[T, PT]) Save(ctx context.Context, model *T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.Insert(ctx, model)
}

func (s *baseServiceImpl[T, PT]) SaveAll(ctx context.Context, models ...*T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.InsertMany(ctx, models)
}
