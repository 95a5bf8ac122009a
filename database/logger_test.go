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
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type capturingLogger struct {
	recordingLogger
	fields []interface{}
}

func (l *capturingLogger) Info(_ string, kv ...interface{}) { l.fields = kv }

func TestWithFields(t *testing.T) {
	inner := &capturingLogger{}
	assert.Same(t, Logger(inner), WithFields(inner))

	scoped := WithFields(inner, "collection", "People")
	scoped.Info("bound", "database", "app")
	assert.Equal(t, []interface{}{"collection", "People", "database", "app"}, inner.fields)
}

func TestDefaultLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.TextFormatter{DisableColors: true, DisableTimestamp: true})

	l := WithFields(&DefaultLogger{entry: logrus.NewEntry(base)}, "collection", "People")
	l.SetLevel(LogLevelWarn)
	l.Info("hidden")
	l.Warn("slow", "elapsed", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "collection=People")
	assert.Contains(t, out, "elapsed=3")
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "WARN", LogLevelWarn.String())
	assert.Equal(t, "DEBUG", LogLevel(42).String())
	assert.Equal(t, logrus.ErrorLevel, LogLevelError.logrusLevel())
}
