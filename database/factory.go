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
	"sync"
	"time"
)

// BaseDatabaseFactory owns one database manager: it builds it from a
// configuration, connects it, provisions the registered collections and
// reports on its health.
type BaseDatabaseFactory struct {
	mu       sync.RWMutex
	manager  AbstractDatabaseManager
	logger   Logger
	registry CollectionRegistry
}

// NewDatabaseFactory returns a factory using the package logger and the
// default collection registry.
func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{
		logger:   GetLogger(),
		registry: defaultRegistry,
	}
}

// CreateFromConfig builds a manager from a copy of cfg after applying the
// DB_* environment overrides and validating the result.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *ConnectionConfig) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	config := *cfg
	overrideFromEnv(&config)
	if err := config.Validate(); err != nil {
		return nil, err
	}

	manager, err := NewDatabaseManager(&config)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	manager.SetLogger(f.logger)
	f.manager = manager
	return manager, nil
}

// InitializeDatabase connects the manager and creates every registered
// collection that does not exist yet. The connection is released again if
// provisioning fails.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context) error {
	manager := f.GetManager()
	if manager == nil {
		return fmt.Errorf("database manager not created")
	}
	if err := manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	start := time.Now()
	if err := EnsureCollections(ctx, manager.Database(), f.registry); err != nil {
		_ = manager.Disconnect(ctx)
		return err
	}
	f.logger.Info("Database initialization completed!", "driver", manager.Driver(),
		"collections", len(f.registry.Collections()), "elapsed", time.Since(start))
	return nil
}

func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.manager
}

// GetDatabase returns the database handle, or nil before CreateFromConfig.
func (f *BaseDatabaseFactory) GetDatabase() Database {
	if manager := f.GetManager(); manager != nil {
		return manager.Database()
	}
	return nil
}

func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

// Close disconnects the manager; closing an empty factory is a no-op.
func (f *BaseDatabaseFactory) Close(ctx context.Context) error {
	if manager := f.GetManager(); manager != nil {
		return manager.Disconnect(ctx)
	}
	return nil
}

func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	manager := f.GetManager()
	if manager == nil {
		return &HealthStatus{LastError: "Database manager not initialized", LastCheckTime: time.Now()}
	}
	return manager.HealthCheck(ctx)
}

func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if manager := f.GetManager(); manager != nil {
		return manager.GetStats()
	}
	return &DBStats{}
}
