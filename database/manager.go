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
	"fmt"
	"sync"
	"time"
)

var errNotConnected = errors.New("database not connected")

// NewDatabaseManager returns the manager matching the configured driver.
// If config is nil, a default configuration is used and Connect fails until
// a connection string is supplied.
func NewDatabaseManager(config *ConnectionConfig) (AbstractDatabaseManager, error) {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	driver, err := config.ResolveDriver()
	if err != nil {
		return nil, err
	}
	switch driver {
	case DriverMongoDB:
		return newMongoDatabaseManager(config), nil
	default:
		return newSQLDatabaseManager(config, driver), nil
	}
}

// baseManager holds the connection bookkeeping shared by every backend:
// health status, the periodic health check loop, and reconnect attempts.
type baseManager struct {
	config          *ConnectionConfig
	driver          string
	logger          Logger
	mu              sync.RWMutex
	connected       bool
	lastError       error
	lastHealthCheck time.Time
	healthStatus    *HealthStatus
	reconnectTries  int
	stopHealthCheck chan struct{}
}

// newBaseManager keeps its own copy of config; the caller's value is never
// modified.
func newBaseManager(config *ConnectionConfig, driver string) baseManager {
	cfg := *config
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	return baseManager{
		config:       &cfg,
		driver:       driver,
		healthStatus: &HealthStatus{Driver: driver},
	}
}

func (b *baseManager) Driver() string { return b.driver }

func (b *baseManager) SetLogger(logger Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
}

func (b *baseManager) log() Logger {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.logger == nil {
		return GetLogger()
	}
	return b.logger
}

// loggerLocked is log for callers that already hold mu.
func (b *baseManager) loggerLocked() Logger {
	if b.logger == nil {
		return GetLogger()
	}
	return b.logger
}

// startHealthCheckLocked launches the health check loop. The caller holds mu.
func (b *baseManager) startHealthCheckLocked(check func(context.Context) *HealthStatus, reconnect func(context.Context) error) {
	if b.config.HealthCheckInterval <= 0 || b.stopHealthCheck != nil {
		return
	}
	stop := make(chan struct{})
	b.stopHealthCheck = stop
	interval := b.config.HealthCheckInterval
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
				status := check(ctx)
				cancel()
				if !status.Healthy && b.config.EnableReconnect {
					b.handleReconnect(stop, reconnect)
				}
			case <-stop:
				return
			}
		}
	}()
}

// stopHealthCheckLocked ends the health check loop. The caller holds mu.
func (b *baseManager) stopHealthCheckLocked() {
	if b.stopHealthCheck != nil {
		close(b.stopHealthCheck)
		b.stopHealthCheck = nil
	}
}

func (b *baseManager) handleReconnect(stop <-chan struct{}, reconnect func(context.Context) error) {
	logger := b.log()
	b.mu.Lock()
	if b.reconnectTries >= b.config.MaxReconnectTries {
		tries := b.reconnectTries
		b.mu.Unlock()
		logger.Error("Max reconnect attempts reached, stopping", "tries", tries)
		return
	}
	b.reconnectTries++
	try := b.reconnectTries
	b.mu.Unlock()

	logger.Info("Starting database reconnect", "try", try)
	select {
	case <-time.After(b.config.ReconnectInterval):
	case <-stop:
		return
	}
	select {
	case <-stop:
		return
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.config.ConnectTimeout)
	defer cancel()
	if err := reconnect(ctx); err != nil {
		logger.Error("Reconnect failed", "error", err, "try", try)
		return
	}
	logger.Info("Reconnect succeeded")
}

// recordHealthLocked stores a health check result. The caller holds mu.
func (b *baseManager) recordHealthLocked(status *HealthStatus, err error) {
	status.Driver = b.driver
	if err != nil {
		status.Healthy = false
		status.Connected = false
		status.LastError = err.Error()
		b.lastError = err
	} else {
		status.Healthy = true
		status.Connected = true
		b.lastError = nil
	}
	b.healthStatus = status
	b.lastHealthCheck = status.LastCheckTime
}

func connectTimeoutContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func wrapConnectError(driver string, err error) error {
	return fmt.Errorf("%s connection test failed: %w", driver, err)
}
