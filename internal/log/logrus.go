// Copyright © 2024 Kaleido, Inc.
//
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

// LogrusLogger is used for verbose runs and when output is not a terminal,
// so every step ends up as a timestamped line on stderr.
type LogrusLogger struct {
	entry *logrus.Logger
}

func NewLogrusLogger(out io.Writer, level LogLevel) *LogrusLogger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	lg := &LogrusLogger{entry: l}
	lg.SetLogLevel(level)
	return lg
}

func (l *LogrusLogger) SetLogLevel(level LogLevel) {
	switch level {
	case Trace:
		l.entry.SetLevel(logrus.TraceLevel)
	case Debug:
		l.entry.SetLevel(logrus.DebugLevel)
	case Warn:
		l.entry.SetLevel(logrus.WarnLevel)
	case Error:
		l.entry.SetLevel(logrus.ErrorLevel)
	default:
		l.entry.SetLevel(logrus.InfoLevel)
	}
}

func (l *LogrusLogger) Trace(s string) {
	l.entry.Trace(s)
}

func (l *LogrusLogger) Debug(s string) {
	l.entry.Debug(s)
}

func (l *LogrusLogger) Info(s string) {
	l.entry.Info(s)
}

func (l *LogrusLogger) Warn(s string) {
	l.entry.Warn(s)
}

func (l *LogrusLogger) Error(e error) {
	l.entry.Error(e.Error())
}
