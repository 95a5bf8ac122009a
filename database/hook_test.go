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
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/event"
)

type recordingLogger struct {
	warnings []string
}

func (l *recordingLogger) SetLevel(LogLevel)                 {}
func (l *recordingLogger) Debug(string, ...interface{})      {}
func (l *recordingLogger) Info(string, ...interface{})       {}
func (l *recordingLogger) Error(string, ...interface{})      {}
func (l *recordingLogger) Warn(msg string, _ ...interface{}) { l.warnings = append(l.warnings, msg) }

func TestQueryLogSwitch(t *testing.T) {
	t.Setenv(QueryLogEnv, "2")
	enabled, verbose := queryLogSwitch(QueryLogEnv, false, false)
	assert.True(t, enabled)
	assert.True(t, verbose)

	t.Setenv(QueryLogEnv, "0")
	enabled, _ = queryLogSwitch(QueryLogEnv, true, true)
	assert.False(t, enabled)
}

func TestSlowQueryHook(t *testing.T) {
	logger := &recordingLogger{}
	h := &slowQueryHook{slowTime: time.Millisecond, logger: func() Logger { return logger }}

	h.observe(time.Microsecond, "SELECT", "SELECT 1")
	assert.Empty(t, logger.warnings)
	h.observe(time.Second, "SELECT", "SELECT 1")
	assert.Len(t, logger.warnings, 1)
}

func TestCommandMonitor(t *testing.T) {
	t.Setenv(QueryLogEnv, "2")
	logger := &recordingLogger{}
	var buf bytes.Buffer
	m := &commandMonitor{
		writer: &buf,
		slow:   &slowQueryHook{slowTime: time.Millisecond, logger: func() Logger { return logger }},
	}
	ctx := context.Background()
	command, err := bson.Marshal(bson.D{{Key: "find", Value: "People"}})
	require.NoError(t, err)

	m.onStarted(ctx, &event.CommandStartedEvent{Command: command, RequestID: 1})
	m.onSucceeded(ctx, &event.CommandSucceededEvent{CommandFinishedEvent: event.CommandFinishedEvent{
		RequestID: 1, CommandName: "find", DatabaseName: "app", Duration: time.Second,
	}})
	assert.Contains(t, buf.String(), "app.find")
	assert.Contains(t, buf.String(), "People")
	assert.Len(t, logger.warnings, 1)

	buf.Reset()
	EnableQuerySilent(true)
	m.onStarted(ctx, &event.CommandStartedEvent{Command: command, RequestID: 2})
	m.onFailed(ctx, &event.CommandFailedEvent{
		CommandFinishedEvent: event.CommandFinishedEvent{RequestID: 2, CommandName: "find"},
		Failure:              errors.New("boom"),
	})
	EnableQuerySilent(false)
	assert.Empty(t, buf.String())

	m.onStarted(ctx, &event.CommandStartedEvent{Command: command, RequestID: 3})
	m.onFailed(ctx, &event.CommandFailedEvent{
		CommandFinishedEvent: event.CommandFinishedEvent{RequestID: 3, CommandName: "find"},
		Failure:              errors.New("boom"),
	})
	assert.Contains(t, buf.String(), "boom")
}
