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
	"sort"
	"sync"
)

var defaultRegistry = newCollectionRegistry()

// CollectionRegistration names a collection to provision when the global
// database is initialized. Lower priorities are created first.
type CollectionRegistration struct {
	Name     string
	Priority int
}

// CollectionRegistry stores collection registrations and exposes them in a
// deterministic order.
type CollectionRegistry interface {
	Register(reg CollectionRegistration)
	Collections() []CollectionRegistration
}

type collectionRegistry struct {
	collections map[string]CollectionRegistration
	mutex       sync.RWMutex
}

func newCollectionRegistry() CollectionRegistry {
	return &collectionRegistry{
		collections: make(map[string]CollectionRegistration),
	}
}

// Register adds reg; registering a name again replaces its priority.
func (r *collectionRegistry) Register(reg CollectionRegistration) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.collections[reg.Name] = reg
}

func (r *collectionRegistry) Collections() []CollectionRegistration {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]CollectionRegistration, 0, len(r.collections))
	for _, reg := range r.collections {
		result = append(result, reg)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority < result[j].Priority
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// RegisterCollection adds a collection to the default registry.
func RegisterCollection(name string, priority int) {
	defaultRegistry.Register(CollectionRegistration{Name: name, Priority: priority})
}

// GetRegisteredCollections returns the default registry sorted by
// ascending priority.
func GetRegisteredCollections() []CollectionRegistration {
	return defaultRegistry.Collections()
}

// EnsureCollections creates every registered collection missing from db.
func EnsureCollections(ctx context.Context, db Database, registry CollectionRegistry) error {
	for _, reg := range registry.Collections() {
		if err := db.EnsureCollection(ctx, reg.Name); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", reg.Name, err)
		}
	}
	return nil
}
