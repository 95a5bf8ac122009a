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
	"strings"
	"time"

	"github.com/tomoncle/doctools/types"
)

// Supported drivers.
const (
	DriverMongoDB  = "mongodb"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// SupportedDrivers lists the accepted values of ConnectionConfig.Driver.
var SupportedDrivers = []string{DriverMongoDB, DriverPostgres, DriverMySQL, DriverSQLite}

// AbstractDatabaseManager defines the operations for managing a connection
// to a document database and reporting its health.
type AbstractDatabaseManager interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Reconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	Database() Database
	Driver() string
	GetStats() *DBStats
	SetLogger(logger Logger)
}

// Database is a handle to one logical database.
type Database interface {
	Name() string
	Collection(name string) Collection
	// EnsureCollection creates the named collection if it does not exist.
	EnsureCollection(ctx context.Context, name string) error
	Ping(ctx context.Context) error
}

// FindOptions shapes the result set of Collection.Find.
type FindOptions struct {
	Sort  []types.Sort
	Skip  int64
	Limit int64
}

// Collection is a handle to one named collection. Documents are any values
// the bson codec can marshal; results must be pointers the codec can decode
// into (Find expects a pointer to a slice).
//
// FindOne, FindOneAndReplace, FindOneAndDelete and DeleteOne report false
// when nothing matched. Every other failure is returned as produced by the
// underlying driver.
type Collection interface {
	Name() string
	Find(ctx context.Context, filter *types.Filter, opts *FindOptions, results any) error
	FindOne(ctx context.Context, filter *types.Filter, result any) (bool, error)
	Count(ctx context.Context, filter *types.Filter) (int64, error)
	InsertOne(ctx context.Context, document any) error
	InsertMany(ctx context.Context, documents []any) error
	FindOneAndReplace(ctx context.Context, filter *types.Filter, replacement any) (bool, error)
	FindOneAndDelete(ctx context.Context, filter *types.Filter) (bool, error)
	DeleteOne(ctx context.Context, filter *types.Filter) (bool, error)
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	Driver        string        `json:"driver"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats reports connection pool statistics. SQL stores fill every field
// from database/sql; MongoDB fills the counters it can observe through the
// driver's pool monitor.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	CheckOutFailed    int64         `json:"check_out_failed"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// ConnectionConfig describes how to reach a document database.
// ConnectionString and DatabaseName are required; Driver is inferred from
// the connection string scheme when empty.
type ConnectionConfig struct {
	Driver                 string        `json:"driver" yaml:"driver"`
	ConnectionString       string        `json:"connection_string" yaml:"connection_string"`
	DatabaseName           string        `json:"database_name" yaml:"database_name"`
	AppName                string        `json:"app_name" yaml:"app_name"`
	MaxPoolSize            int           `json:"max_pool_size" yaml:"max_pool_size"`
	MinPoolSize            int           `json:"min_pool_size" yaml:"min_pool_size"`
	MaxIdleConns           int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime        time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime        time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	ConnectTimeout         time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
	ServerSelectionTimeout time.Duration `json:"server_selection_timeout" yaml:"server_selection_timeout"`
	EnableReconnect        bool          `json:"enable_reconnect" yaml:"enable_reconnect"`
	ReconnectInterval      time.Duration `json:"reconnect_interval" yaml:"reconnect_interval"`
	MaxReconnectTries      int           `json:"max_reconnect_tries" yaml:"max_reconnect_tries"`
	HealthCheckInterval    time.Duration `json:"health_check_interval" yaml:"health_check_interval"`
	EnableQueryLog         bool          `json:"enable_query_log" yaml:"enable_query_log"`
	SlowQueryTime          time.Duration `json:"slow_query_time" yaml:"slow_query_time"`
}

// Config aggregates the settings loaded from a configuration file.
type Config struct {
	ConnectionConfig ConnectionConfig `json:"connection" yaml:"connection"`
}

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		MaxPoolSize:            100,
		MinPoolSize:            0,
		MaxIdleConns:           10,
		ConnMaxLifetime:        time.Hour,
		ConnMaxIdleTime:        time.Minute * 30,
		ConnectTimeout:         time.Second * 10,
		ServerSelectionTimeout: time.Second * 30,
		EnableReconnect:        true,
		ReconnectInterval:      time.Second * 5,
		MaxReconnectTries:      3,
		HealthCheckInterval:    time.Minute * 5,
		EnableQueryLog:         false,
		SlowQueryTime:          time.Second * 2,
	}
}

// ResolveDriver returns the canonical driver name, inferring it from the
// connection string scheme when Driver is empty.
func (c *ConnectionConfig) ResolveDriver() (string, error) {
	if c.Driver != "" {
		switch strings.ToLower(strings.TrimSpace(c.Driver)) {
		case "mongodb", "mongo":
			return DriverMongoDB, nil
		case "postgres", "postgresql", "pg":
			return DriverPostgres, nil
		case "mysql":
			return DriverMySQL, nil
		case "sqlite", "sqlite3":
			return DriverSQLite, nil
		}
		return "", fmt.Errorf("unsupported database driver: %s, supported drivers: %v", c.Driver, SupportedDrivers)
	}
	cs := strings.ToLower(strings.TrimSpace(c.ConnectionString))
	switch {
	case strings.HasPrefix(cs, "mongodb://"), strings.HasPrefix(cs, "mongodb+srv://"):
		return DriverMongoDB, nil
	case strings.HasPrefix(cs, "postgres://"), strings.HasPrefix(cs, "postgresql://"):
		return DriverPostgres, nil
	case strings.HasPrefix(cs, "mysql://"):
		return DriverMySQL, nil
	case strings.HasPrefix(cs, "sqlite://"), strings.HasPrefix(cs, "file:"), strings.HasSuffix(cs, ".db"):
		return DriverSQLite, nil
	}
	return "", fmt.Errorf("cannot infer database driver from connection string, set driver to one of %v", SupportedDrivers)
}
