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
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML configuration file. Unset fields keep the values
// of DefaultConnectionConfig and environment overrides are applied last.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML configuration bytes.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{ConnectionConfig: *DefaultConnectionConfig()}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	overrideFromEnv(&cfg.ConnectionConfig)
	return cfg, nil
}

// Validate checks the fields required to open a connection.
func (c *ConnectionConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("database configuration cannot be empty")
	}
	if _, err := c.ResolveDriver(); err != nil {
		return err
	}
	if strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("database name cannot be empty")
	}
	return nil
}

// RedactedConnectionString hides the password of URI style connection
// strings so they can be logged.
func (c *ConnectionConfig) RedactedConnectionString() string {
	u, err := url.Parse(c.ConnectionString)
	if err != nil || u.Scheme == "" || u.User == nil {
		if i := strings.LastIndex(c.ConnectionString, "@"); i > 0 {
			return "xxxxx" + c.ConnectionString[i:]
		}
		return c.ConnectionString
	}
	return u.Redacted()
}

// overrideFromEnv overrides configuration values from environment variables.
func overrideFromEnv(cfg *ConnectionConfig) {
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		cfg.Driver = driver
	}
	if cs := os.Getenv("DB_CONNECTION_STRING"); cs != "" {
		cfg.ConnectionString = cs
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.DatabaseName = name
	}
	if appName := os.Getenv("DB_APP_NAME"); appName != "" {
		cfg.AppName = appName
	}

	// Connection pool config
	if maxPool := os.Getenv("DB_MAX_POOL_SIZE"); maxPool != "" {
		if val, err := strconv.Atoi(maxPool); err == nil {
			cfg.MaxPoolSize = val
		}
	}
	if minPool := os.Getenv("DB_MIN_POOL_SIZE"); minPool != "" {
		if val, err := strconv.Atoi(minPool); err == nil {
			cfg.MinPoolSize = val
		}
	}
	if timeout := os.Getenv("DB_CONNECT_TIMEOUT"); timeout != "" {
		if val, err := strconv.Atoi(timeout); err == nil {
			cfg.ConnectTimeout = time.Duration(val) * time.Second
		}
	}

	// Reconnect config
	if enableReconnect := os.Getenv("DB_ENABLE_RECONNECT"); enableReconnect != "" {
		cfg.EnableReconnect = enableReconnect == "true"
	}

	// Logging config
	if enableQueryLog := os.Getenv("DB_ENABLE_QUERY_LOG"); enableQueryLog != "" {
		cfg.EnableQueryLog = enableQueryLog == "true"
	}
}
