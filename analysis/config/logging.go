// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"io"
	"log"

	"github.com/sirupsen/logrus"
)

type LogLevel int

const (
	// ErrLevel=1 - the minimum level of logging.
	ErrLevel LogLevel = iota + 1

	// WarnLevel=2 - the level for logging warnings, and errors
	WarnLevel

	// InfoLevel=3 - the level for logging high-level information, results
	InfoLevel

	// DebugLevel=4 - the level for debugging information, e.g. every summary computed by the fixpoint
	DebugLevel

	// TraceLevel=5 - the level for tracing, e.g. every solver invocation and every call site. Only useful on small
	// programs.
	TraceLevel
)

// LogGroup is a levelled logger. All levels write to the same logrus logger.
type LogGroup struct {
	level  LogLevel
	logger *logrus.Logger
}

// NewLogGroup returns a log group that is configured to the logging settings stored inside the config
func NewLogGroup(config *Config) *LogGroup {
	level := LogLevel(config.LogLevel)
	if config.SilenceWarn && level == WarnLevel {
		level = ErrLevel
	}
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableLevelTruncation: true})
	logger.SetLevel(logrusLevel(level))
	return &LogGroup{level: level, logger: logger}
}

func logrusLevel(l LogLevel) logrus.Level {
	switch {
	case l >= TraceLevel:
		return logrus.TraceLevel
	case l == DebugLevel:
		return logrus.DebugLevel
	case l == InfoLevel:
		return logrus.InfoLevel
	case l == WarnLevel:
		return logrus.WarnLevel
	default:
		return logrus.ErrorLevel
	}
}

// SetAllOutput sets the output writer of the logger to the writer provided
func (l *LogGroup) SetAllOutput(w io.Writer) {
	l.logger.SetOutput(w)
}

// Level returns the level of the log group
func (l *LogGroup) Level() LogLevel {
	return l.level
}

// Tracef calls Tracef on the underlying logger. Arguments are handled in the manner of Printf
func (l *LogGroup) Tracef(format string, v ...any) {
	if l.level >= TraceLevel {
		l.logger.Tracef(format, v...)
	}
}

// Debugf calls Debugf on the underlying logger. Arguments are handled in the manner of Printf
func (l *LogGroup) Debugf(format string, v ...any) {
	if l.level >= DebugLevel {
		l.logger.Debugf(format, v...)
	}
}

// Infof calls Infof on the underlying logger. Arguments are handled in the manner of Printf
func (l *LogGroup) Infof(format string, v ...any) {
	if l.level >= InfoLevel {
		l.logger.Infof(format, v...)
	}
}

// Warnf calls Warnf on the underlying logger. Arguments are handled in the manner of Printf
func (l *LogGroup) Warnf(format string, v ...any) {
	if l.level >= WarnLevel {
		l.logger.Warnf(format, v...)
	}
}

// Errorf calls Errorf on the underlying logger. Arguments are handled in the manner of Printf
func (l *LogGroup) Errorf(format string, v ...any) {
	if l.level >= ErrLevel {
		l.logger.Errorf(format, v...)
	}
}

// WithField returns a logrus entry with the field set, for structured messages
func (l *LogGroup) WithField(key string, value any) *logrus.Entry {
	return l.logger.WithField(key, value)
}

// GetDebug returns a debug level logger, for applications that need a logger as input
func (l *LogGroup) GetDebug() *log.Logger {
	return log.New(l.logger.WriterLevel(logrus.DebugLevel), "", 0)
}

// GetError returns an error level logger, for applications that need a logger as input
func (l *LogGroup) GetError() *log.Logger {
	return log.New(l.logger.WriterLevel(logrus.ErrorLevel), "", 0)
}
