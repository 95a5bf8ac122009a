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
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/doctools/utils"
)

const loggerName = "DATABASE"

var (
	globalLogger   Logger
	globalLoggerMu sync.RWMutex
)

type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

var logLevelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if l < LogLevelDebug || l > LogLevelError {
		return logLevelNames[LogLevelDebug]
	}
	return logLevelNames[l]
}

func (l LogLevel) logrusLevel() logrus.Level {
	switch l {
	case LogLevelInfo:
		return logrus.InfoLevel
	case LogLevelWarn:
		return logrus.WarnLevel
	case LogLevelError:
		return logrus.ErrorLevel
	default:
		return logrus.DebugLevel
	}
}

// Logger receives a message followed by alternating key/value pairs.
type Logger interface {
	SetLevel(LogLevel)
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// InitLogger installs log as the package logger unless one is already set.
func InitLogger(log Logger) {
	if log == nil {
		return
	}
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	if globalLogger == nil {
		globalLogger = log
	}
}

// GetLogger returns the package logger, creating the "DATABASE" logrus
// logger on first use.
func GetLogger() Logger {
	globalLoggerMu.RLock()
	l := globalLogger
	globalLoggerMu.RUnlock()
	if l != nil {
		return l
	}

	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	if globalLogger == nil {
		globalLogger = &DefaultLogger{entry: logrus.NewEntry(utils.NewLogger(loggerName))}
	}
	return globalLogger
}

// WithFields returns a logger that appends kv to the fields of every
// record written through l.
func WithFields(l Logger, kv ...interface{}) Logger {
	if len(kv) == 0 {
		return l
	}
	if dl, ok := l.(*DefaultLogger); ok {
		return &DefaultLogger{entry: dl.entry.WithFields(toFields(kv))}
	}
	return &fieldLogger{Logger: l, fields: kv}
}

// DefaultLogger writes structured records to a logrus entry.
type DefaultLogger struct {
	entry *logrus.Entry
}

func (l *DefaultLogger) Debug(msg string, fields ...interface{}) {
	l.entry.WithFields(toFields(fields)).Debug(msg)
}

func (l *DefaultLogger) Info(msg string, fields ...interface{}) {
	l.entry.WithFields(toFields(fields)).Info(msg)
}

func (l *DefaultLogger) Warn(msg string, fields ...interface{}) {
	l.entry.WithFields(toFields(fields)).Warn(msg)
}

func (l *DefaultLogger) Error(msg string, fields ...interface{}) {
	l.entry.WithFields(toFields(fields)).Error(msg)
}

// SetLevel changes the level of the underlying logrus logger, which is
// shared by every logger derived through WithFields.
func (l *DefaultLogger) SetLevel(level LogLevel) {
	l.entry.Logger.SetLevel(level.logrusLevel())
}

type fieldLogger struct {
	Logger
	fields []interface{}
}

func (l *fieldLogger) with(kv []interface{}) []interface{} {
	return append(append(make([]interface{}, 0, len(l.fields)+len(kv)), l.fields...), kv...)
}

func (l *fieldLogger) Debug(msg string, kv ...interface{}) { l.Logger.Debug(msg, l.with(kv)...) }

func (l *fieldLogger) Info(msg string, kv ...interface{}) { l.Logger.Info(msg, l.with(kv)...) }

func (l *fieldLogger) Warn(msg string, kv ...interface{}) { l.Logger.Warn(msg, l.with(kv)...) }

func (l *fieldLogger) Error(msg string, kv ...interface{}) { l.Logger.Error(msg, l.with(kv)...) }

// toFields pairs up key/value arguments; a trailing key without a value is
// dropped.
func toFields(kv []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
