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
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

// sqlDatabaseManager keeps documents in relational tables through bun, one
// table per collection.
type sqlDatabaseManager struct {
	baseManager
	db     *bun.DB
	sqlDB  *sql.DB
	tables *sync.Map // collection name -> struct{} once the table exists
}

func newSQLDatabaseManager(config *ConnectionConfig, driver string) *sqlDatabaseManager {
	return &sqlDatabaseManager{baseManager: newBaseManager(config, driver)}
}

func (dm *sqlDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.connected && dm.db != nil {
		return nil
	}

	sqlDB, db, err := dm.createConnection()
	if err != nil {
		dm.lastError = err
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	dm.configureConnectionPool(sqlDB)

	ctxTimeout, cancel := connectTimeoutContext(ctx, dm.config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctxTimeout); err != nil {
		_ = db.Close()
		dm.lastError = err
		return wrapConnectError(dm.driver, err)
	}

	dm.sqlDB, dm.db = sqlDB, db
	dm.tables = &sync.Map{}
	dm.connected = true
	dm.lastError = nil
	dm.reconnectTries = 0
	dm.startHealthCheckLocked(dm.HealthCheck, dm.Reconnect)

	dm.loggerLocked().Info("Database connected successfully:", "driver", dm.driver,
		"dsn", dm.config.RedactedConnectionString(), "database", dm.config.DatabaseName)
	return nil
}

func (dm *sqlDatabaseManager) createConnection() (*sql.DB, *bun.DB, error) {
	var sqlDB *sql.DB
	var db *bun.DB
	var err error

	switch dm.driver {
	case DriverMySQL:
		sqlDB, db, err = dm.createMySQLConnection()
	case DriverPostgres:
		sqlDB, db, err = dm.createPostgreSQLConnection()
	case DriverSQLite:
		sqlDB, db, err = dm.createSQLiteConnection()
	default:
		return nil, nil, fmt.Errorf("unsupported database driver: %s", dm.driver)
	}
	if err != nil {
		return nil, nil, err
	}

	if dm.config.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	db.AddQueryHook(NewQueryHook(false, false))
	if dm.config.SlowQueryTime > 0 {
		db.AddQueryHook(&slowQueryHook{slowTime: dm.config.SlowQueryTime, logger: dm.log})
	}
	return sqlDB, db, nil
}

// createMySQLConnection accepts a go-sql-driver DSN, optionally prefixed
// with mysql://.
func (dm *sqlDatabaseManager) createMySQLConnection() (*sql.DB, *bun.DB, error) {
	dsn := strings.TrimPrefix(dm.config.ConnectionString, "mysql://")
	if dsn == "" {
		return nil, nil, fmt.Errorf("mysql connection string is required")
	}
	if !strings.Contains(dsn, "parseTime=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "charset=utf8mb4&parseTime=True&loc=UTC"
	}

	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, nil, err
	}
	return sqlDB, bun.NewDB(sqlDB, mysqldialect.New()), nil
}

func (dm *sqlDatabaseManager) createPostgreSQLConnection() (*sql.DB, *bun.DB, error) {
	dsn := dm.config.ConnectionString
	if dsn == "" {
		return nil, nil, fmt.Errorf("postgres connection string is required")
	}
	if !strings.Contains(dsn, "sslmode=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "sslmode=disable"
	}

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, err
	}
	return sqlDB, bun.NewDB(sqlDB, pgdialect.New()), nil
}

// createSQLiteConnection opens the file named by the connection string, or
// "<database>.db" when none is given.
func (dm *sqlDatabaseManager) createSQLiteConnection() (*sql.DB, *bun.DB, error) {
	dsn := strings.TrimPrefix(dm.config.ConnectionString, "sqlite://")
	if dsn == "" {
		dsn = fmt.Sprintf("%s.db", dm.config.DatabaseName)
	}

	sqlDB, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, nil, err
	}
	return sqlDB, bun.NewDB(sqlDB, sqlitedialect.New()), nil
}

func (dm *sqlDatabaseManager) configureConnectionPool(sqlDB *sql.DB) {
	if dm.driver == DriverSQLite {
		// sqlite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	} else if dm.config.MaxPoolSize > 0 {
		sqlDB.SetMaxOpenConns(dm.config.MaxPoolSize)
	}
	sqlDB.SetMaxIdleConns(dm.config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(dm.config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(dm.config.ConnMaxIdleTime)
}

// Disconnect stops the health check loop and closes the connection.
func (dm *sqlDatabaseManager) Disconnect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	dm.stopHealthCheckLocked()
	return dm.closeLocked()
}

// closeLocked closes the connection and leaves the health check loop
// running. The caller holds mu.
func (dm *sqlDatabaseManager) closeLocked() error {
	if dm.db == nil {
		return nil
	}
	err := dm.db.Close()
	dm.db = nil
	dm.sqlDB = nil
	dm.connected = false
	if err != nil {
		dm.loggerLocked().Error("Failed to close database connection", "error", err)
	} else {
		dm.loggerLocked().Info("Database connection closed")
	}
	return err
}

// Reconnect replaces the connection. A running health check loop keeps
// running, so a failed attempt is retried on its next tick.
func (dm *sqlDatabaseManager) Reconnect(ctx context.Context) error {
	dm.log().Info("Attempting to reconnect to the database")
	dm.mu.Lock()
	err := dm.closeLocked()
	dm.mu.Unlock()
	if err != nil {
		dm.log().Warn("Error disconnecting existing connection", "error", err)
	}
	return dm.Connect(ctx)
}

func (dm *sqlDatabaseManager) Ping(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return errNotConnected
	}
	return db.PingContext(ctx)
}

// GetDB returns the bun handle, or nil before Connect.
func (dm *sqlDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *sqlDatabaseManager) Database() Database {
	return &sqlDatabase{manager: dm, name: dm.config.DatabaseName}
}

func (dm *sqlDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{LastCheckTime: start}

	dm.mu.RLock()
	db, sqlDB := dm.db, dm.sqlDB
	dm.mu.RUnlock()
	if db == nil {
		status.Driver = dm.driver
		status.LastError = "Database not initialized"
		return status
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()
	err := db.PingContext(ctxTimeout)
	status.ResponseTime = time.Since(start)

	stats := sqlDB.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections

	dm.mu.Lock()
	dm.recordHealthLocked(status, err)
	dm.mu.Unlock()
	return status
}

func (dm *sqlDatabaseManager) GetStats() *DBStats {
	dm.mu.RLock()
	sqlDB := dm.sqlDB
	dm.mu.RUnlock()

	if sqlDB == nil {
		return &DBStats{}
	}

	stats := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

type sqlDatabase struct {
	manager *sqlDatabaseManager
	name    string
}

func (d *sqlDatabase) Name() string { return d.name }

func (d *sqlDatabase) Collection(name string) Collection {
	return &sqlCollection{manager: d.manager, name: name}
}

func (d *sqlDatabase) Ping(ctx context.Context) error { return d.manager.Ping(ctx) }

func (d *sqlDatabase) EnsureCollection(ctx context.Context, name string) error {
	c := &sqlCollection{manager: d.manager, name: name}
	_, err := c.db(ctx)
	return err
}
