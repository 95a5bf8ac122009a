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
	"io"
	"os"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/v2/event"
)

// QueryLogEnv toggles the coloured query log at runtime: "1" prints failed
// statements, "2" prints every statement, "0" or empty disables it.
const QueryLogEnv = "DOCTOOLS_QUERY_LOG"

const (
	ansiReset     = "\x1b[0m"
	ansiRed       = "\x1b[31m"
	ansiYellow    = "\x1b[33m"
	ansiGreen     = "\x1b[32m"
	ansiBlue      = "\x1b[34m"
	ansiMagenta   = "\x1b[35m"
	ansiCyan      = "\x1b[36m"
	ansiBGGreen   = "\x1b[42;97m"
	ansiBGYellow  = "\x1b[43;97m"
	ansiBGBlue    = "\x1b[44;97m"
	ansiBGMagenta = "\x1b[45;97m"
	ansiBGRed     = "\x1b[41;97m"
)

var querySilentMode atomic.Bool

// EnableQuerySilent suppresses the query log hooks, e.g. while tables are
// being provisioned.
func EnableQuerySilent(b bool) {
	querySilentMode.Store(b)
}

func colorWrap(s, code string) string { return fmt.Sprintf("%s%s%s", code, s, ansiReset) }

// QueryHook prints SQL statements to writer, coloured by operation.
type QueryHook struct {
	envName string
	enabled bool
	verbose bool
	writer  io.Writer
}

var _ bun.QueryHook = (*QueryHook)(nil)

// NewQueryHook returns a hook reading its switch from QueryLogEnv and
// writing to stderr.
func NewQueryHook(enabled, verbose bool) *QueryHook {
	return &QueryHook{envName: QueryLogEnv, enabled: enabled, verbose: verbose, writer: os.Stderr}
}

func (h *QueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if querySilentMode.Load() {
		return
	}
	enabled, verbose := queryLogSwitch(h.envName, h.enabled, h.verbose)
	if !enabled {
		return
	}

	if !verbose {
		switch {
		case event.Err == nil, errors.Is(event.Err, sql.ErrNoRows), errors.Is(event.Err, sql.ErrTxDone):
			return
		}
	}

	now := time.Now()
	printStatement(h.writer, now, "[BUN] ✅", now.Sub(event.StartTime), colorWrap(event.Query, operationColor(event.Operation())), event.Err)
}

func queryLogSwitch(envName string, enabled, verbose bool) (bool, bool) {
	if env, ok := os.LookupEnv(envName); ok {
		return env != "" && env != "0", env == "2"
	}
	return enabled, verbose
}

func printStatement(w io.Writer, now time.Time, tag string, dur time.Duration, statement string, err error) {
	args := []interface{}{
		now.Format("2006-01-02 15:04:05.000"),
		colorWrap(fmt.Sprintf("%15s", tag), ansiCyan),
		fmt.Sprintf("%17s", dur.Round(time.Microsecond)),
		"  ", statement,
	}
	if err != nil {
		typ := reflect.TypeOf(err).String()
		args = append(args,
			"\t",
			color.New(color.BgRed).Sprintf(" %s ", typ+": "+err.Error()),
		)
	}
	_, _ = fmt.Fprintln(w, args...)
}

func operationColor(operation string) string {
	switch operation {
	case "SELECT", "find", "count", "aggregate":
		return ansiGreen
	case "INSERT", "insert":
		return ansiBlue
	case "UPDATE", "findAndModify", "update":
		return ansiYellow
	case "DELETE", "delete":
		return ansiMagenta
	default:
		return ansiRed
	}
}

func operationBackgroundColor(operation string) string {
	switch operation {
	case "SELECT", "find", "count", "aggregate":
		return ansiBGGreen
	case "INSERT", "insert":
		return ansiBGBlue
	case "UPDATE", "findAndModify", "update":
		return ansiBGYellow
	case "DELETE", "delete":
		return ansiBGMagenta
	default:
		return ansiBGRed
	}
}

// slowQueryHook warns about statements slower than slowTime.
type slowQueryHook struct {
	slowTime time.Duration
	logger   func() Logger
}

var _ bun.QueryHook = (*slowQueryHook)(nil)

func (h *slowQueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *slowQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if event.Err != nil || querySilentMode.Load() {
		return
	}
	h.observe(time.Since(event.StartTime), event.Operation(), event.Query)
}

func (h *slowQueryHook) observe(duration time.Duration, operation, query string) {
	if h.slowTime <= 0 || duration <= h.slowTime {
		return
	}
	h.logger().Warn("\x1b[33;5mDatabase slow query detected:⚠️\x1b[0m",
		"duration", duration,
		"slow_threshold", h.slowTime,
		"query", colorWrap(query, operationBackgroundColor(operation)),
	)
}

// commandMonitor reports MongoDB commands through the query log and the
// slow query warning.
type commandMonitor struct {
	queryLog bool
	writer   io.Writer
	slow     *slowQueryHook
	started  sync.Map // request id -> command text
}

func newCommandMonitor(config *ConnectionConfig, logger func() Logger) *event.CommandMonitor {
	m := &commandMonitor{
		queryLog: config.EnableQueryLog,
		writer:   os.Stderr,
		slow:     &slowQueryHook{slowTime: config.SlowQueryTime, logger: logger},
	}
	return &event.CommandMonitor{
		Started:   m.onStarted,
		Succeeded: m.onSucceeded,
		Failed:    m.onFailed,
	}
}

func (m *commandMonitor) onStarted(_ context.Context, e *event.CommandStartedEvent) {
	m.started.Store(e.RequestID, e.Command.String())
}

func (m *commandMonitor) onSucceeded(_ context.Context, e *event.CommandSucceededEvent) {
	m.finish(e.CommandFinishedEvent, nil)
}

func (m *commandMonitor) onFailed(_ context.Context, e *event.CommandFailedEvent) {
	m.finish(e.CommandFinishedEvent, e.Failure)
}

func (m *commandMonitor) finish(e event.CommandFinishedEvent, err error) {
	v, ok := m.started.LoadAndDelete(e.RequestID)
	if !ok || querySilentMode.Load() {
		return
	}
	command, _ := v.(string)
	if err == nil {
		m.slow.observe(e.Duration, e.CommandName, command)
	}
	enabled, verbose := queryLogSwitch(QueryLogEnv, m.queryLog, m.queryLog)
	if !enabled || (!verbose && err == nil) {
		return
	}
	statement := colorWrap(e.DatabaseName+"."+e.CommandName+" "+command, operationColor(e.CommandName))
	printStatement(m.writer, time.Now(), "[MONGO] ✅", e.Duration, statement, err)
}
