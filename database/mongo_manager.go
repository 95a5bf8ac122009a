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
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/event"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

type mongoDatabaseManager struct {
	baseManager
	client *mongo.Client
	pool   poolCounters
}

func newMongoDatabaseManager(config *ConnectionConfig) *mongoDatabaseManager {
	return &mongoDatabaseManager{baseManager: newBaseManager(config, DriverMongoDB)}
}

func (m *mongoDatabaseManager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected && m.client != nil {
		return nil
	}

	client, err := mongo.Connect(m.clientOptions())
	if err != nil {
		m.lastError = err
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	ctxTimeout, cancel := connectTimeoutContext(ctx, m.config.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctxTimeout, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		m.lastError = err
		return wrapConnectError(m.driver, err)
	}

	m.client = client
	m.connected = true
	m.lastError = nil
	m.reconnectTries = 0
	m.startHealthCheckLocked(m.HealthCheck, m.Reconnect)

	m.loggerLocked().Info("Database connected successfully:", "driver", m.driver,
		"uri", m.config.RedactedConnectionString(), "database", m.config.DatabaseName)
	return nil
}

func (m *mongoDatabaseManager) clientOptions() *options.ClientOptions {
	opts := options.Client().
		ApplyURI(m.config.ConnectionString).
		SetMonitor(newCommandMonitor(m.config, m.loggerLocked)).
		SetPoolMonitor(m.pool.monitor())
	if m.config.AppName != "" {
		opts.SetAppName(m.config.AppName)
	}
	if m.config.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(uint64(m.config.MaxPoolSize))
	}
	if m.config.MinPoolSize > 0 {
		opts.SetMinPoolSize(uint64(m.config.MinPoolSize))
	}
	if m.config.ConnectTimeout > 0 {
		opts.SetConnectTimeout(m.config.ConnectTimeout)
	}
	if m.config.ServerSelectionTimeout > 0 {
		opts.SetServerSelectionTimeout(m.config.ServerSelectionTimeout)
	}
	if m.config.ConnMaxIdleTime > 0 {
		opts.SetMaxConnIdleTime(m.config.ConnMaxIdleTime)
	}
	return opts
}

// Disconnect stops the health check loop and closes the client.
func (m *mongoDatabaseManager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopHealthCheckLocked()
	return m.closeLocked(ctx)
}

// closeLocked closes the client and leaves the health check loop running.
// The caller holds mu.
func (m *mongoDatabaseManager) closeLocked(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	err := m.client.Disconnect(ctx)
	m.client = nil
	m.connected = false
	if err != nil {
		m.loggerLocked().Error("Failed to close database connection", "error", err)
	} else {
		m.loggerLocked().Info("Database connection closed")
	}
	return err
}

// Reconnect replaces the client. A running health check loop keeps
// running, so a failed attempt is retried on its next tick.
func (m *mongoDatabaseManager) Reconnect(ctx context.Context) error {
	m.log().Info("Attempting to reconnect to the database")
	m.mu.Lock()
	err := m.closeLocked(ctx)
	m.mu.Unlock()
	if err != nil {
		m.log().Warn("Error disconnecting existing connection", "error", err)
	}
	return m.Connect(ctx)
}

func (m *mongoDatabaseManager) Ping(ctx context.Context) error {
	client := m.getClient()
	if client == nil {
		return errNotConnected
	}
	return client.Ping(ctx, readpref.Primary())
}

func (m *mongoDatabaseManager) getClient() *mongo.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

func (m *mongoDatabaseManager) Database() Database {
	return &mongoDatabase{manager: m, name: m.config.DatabaseName}
}

func (m *mongoDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{LastCheckTime: start}

	client := m.getClient()
	if client == nil {
		status.LastError = "Database not initialized"
		status.Driver = m.driver
		return status
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()
	err := client.Ping(ctxTimeout, readpref.Primary())
	status.ResponseTime = time.Since(start)

	stats := m.pool.stats(m.config.MaxPoolSize)
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConns

	m.mu.Lock()
	m.recordHealthLocked(status, err)
	m.mu.Unlock()
	return status
}

func (m *mongoDatabaseManager) GetStats() *DBStats {
	return m.pool.stats(m.config.MaxPoolSize)
}

// poolCounters tracks connection pool events reported by the driver.
type poolCounters struct {
	open           atomic.Int64
	inUse          atomic.Int64
	checkOutFailed atomic.Int64
	closedIdle     atomic.Int64
	closedStale    atomic.Int64
}

func (p *poolCounters) monitor() *event.PoolMonitor {
	return &event.PoolMonitor{
		Event: func(e *event.PoolEvent) {
			switch e.Type {
			case event.ConnectionCreated:
				p.open.Add(1)
			case event.ConnectionClosed:
				p.open.Add(-1)
				switch e.Reason {
				case event.ReasonIdle:
					p.closedIdle.Add(1)
				case event.ReasonStale:
					p.closedStale.Add(1)
				}
			case event.ConnectionCheckedOut:
				p.inUse.Add(1)
			case event.ConnectionCheckedIn:
				p.inUse.Add(-1)
			case event.ConnectionCheckOutFailed:
				p.checkOutFailed.Add(1)
			}
		},
	}
}

func (p *poolCounters) stats(maxPoolSize int) *DBStats {
	open := int(p.open.Load())
	inUse := int(p.inUse.Load())
	idle := open - inUse
	if idle < 0 {
		idle = 0
	}
	return &DBStats{
		MaxOpenConns:      maxPoolSize,
		OpenConns:         open,
		InUse:             inUse,
		Idle:              idle,
		CheckOutFailed:    p.checkOutFailed.Load(),
		MaxIdleTimeClosed: p.closedIdle.Load(),
		MaxLifetimeClosed: p.closedStale.Load(),
	}
}

type mongoDatabase struct {
	manager *mongoDatabaseManager
	name    string
}

func (d *mongoDatabase) Name() string { return d.name }

func (d *mongoDatabase) Collection(name string) Collection {
	return &mongoCollection{manager: d.manager, database: d.name, name: name}
}

func (d *mongoDatabase) Ping(ctx context.Context) error { return d.manager.Ping(ctx) }

func (d *mongoDatabase) EnsureCollection(ctx context.Context, name string) error {
	client := d.manager.getClient()
	if client == nil {
		return errNotConnected
	}
	db := client.Database(d.name)
	names, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}
	if len(names) > 0 {
		return nil
	}
	return db.CreateCollection(ctx, name)
}
